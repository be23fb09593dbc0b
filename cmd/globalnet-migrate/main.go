// Copyright 2024 The Globalnet Monitor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command globalnet-migrate applies or rolls back the measurements table
// schema using the SQL files under sql/.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/alecthomas/kingpin/v2"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

func main() {
	app := kingpin.New("globalnet-migrate", "Apply or roll back the measurements schema.")
	dsn := app.Flag("dsn", "Postgres connection string (postgres://...).").Required().String()
	sourcePath := app.Flag("source", "Directory of migration files.").Default("file://sql").String()

	upCmd := app.Command("up", "Apply all pending migrations.")
	downCmd := app.Command("down", "Roll back one migration.")

	cmd := kingpin.MustParse(app.Parse(os.Args[1:]))

	m, err := migrate.New(*sourcePath, *dsn)
	if err != nil {
		exitf("opening migrator: %v", err)
	}
	defer m.Close()

	switch cmd {
	case upCmd.FullCommand():
		err = m.Up()
	case downCmd.FullCommand():
		err = m.Steps(-1)
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		exitf("running migration: %v", err)
	}
}

func exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
