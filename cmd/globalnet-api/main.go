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

// Command globalnet-api serves the read-only REST surface over the
// measurements table. It is deliberately a separate process from the
// collector so query load never competes with scheduling a cycle.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/go-kit/log/level"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/run"

	"github.com/alabtor75/globalnet-monitor-core/internal/api"
	"github.com/alabtor75/globalnet-monitor-core/internal/logging"
)

const serverShutdownGrace = 10 * time.Second

func main() {
	app := kingpin.New("globalnet-api", "Read-only REST API over collected measurements.")
	dsn := app.Flag("dsn", "Postgres connection string.").Required().String()
	listenAddr := app.Flag("listen-address", "Address to serve the API on.").Default(":8080").String()
	logLevel := app.Flag("log-level", "One of debug, info, warning, error, critical.").Default("info").String()
	kingpin.MustParse(app.Parse(os.Args[1:]))

	logger := logging.With(logging.New(logging.Options{MinLevel: *logLevel}), "component", "api")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, *dsn)
	if err != nil {
		level.Error(logger).Log("msg", "failed to open datastore pool", "err", err)
		os.Exit(2)
	}
	defer pool.Close()

	srv := &http.Server{Addr: *listenAddr, Handler: api.New(pool).Router()}

	var g run.Group
	{
		g.Add(func() error {
			level.Info(logger).Log("msg", "serving api", "addr", *listenAddr)
			err := srv.ListenAndServe()
			if err == http.ErrServerClosed {
				return nil
			}
			return err
		}, func(error) {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), serverShutdownGrace)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		})
	}
	{
		term := make(chan os.Signal, 1)
		stop := make(chan struct{})
		signal.Notify(term, os.Interrupt, syscall.SIGTERM)
		g.Add(func() error {
			select {
			case <-term:
			case <-stop:
			}
			return nil
		}, func(error) {
			close(stop)
		})
	}

	if err := g.Run(); err != nil {
		level.Error(logger).Log("msg", "unhandled internal error", "err", err)
		os.Exit(3)
	}
}
