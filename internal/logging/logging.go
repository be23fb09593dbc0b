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

// Package logging is the collector's logging façade: level-filtered,
// structured logfmt events with a console sink always present and an
// optional rotating file sink, in the same go-kit/log style the teacher
// uses in cmd/config-reloader.
package logging

import (
	"io"
	"os"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures the Logging Façade.
type Options struct {
	// FilePath, if non-empty, enables a rotating file sink alongside the
	// console sink.
	FilePath   string
	MaxSizeMB  int
	MaxBackups int
	// MinLevel is one of "debug", "info", "warning", "error", "critical".
	MinLevel string
}

// New builds the base logger. Component-specific loggers should be derived
// from it with log.With(base, "component", name).
func New(opts Options) log.Logger {
	var w io.Writer = os.Stderr
	if opts.FilePath != "" {
		rotator := &lumberjack.Logger{
			Filename:   opts.FilePath,
			MaxSize:    maxOr(opts.MaxSizeMB, 10),
			MaxBackups: maxOr(opts.MaxBackups, 5),
		}
		w = io.MultiWriter(os.Stderr, rotator)
	}

	logger := log.NewLogfmtLogger(log.NewSyncWriter(w))
	logger = level.NewFilter(logger, levelOption(opts.MinLevel))
	logger = log.With(logger, "ts", log.DefaultTimestampUTC, "caller", log.DefaultCaller)
	return logger
}

func maxOr(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// levelOption maps the collector's five named levels onto go-kit/log's
// four (DEBUG/INFO/WARNING/ERROR); CRITICAL is logged at level.Error with
// an explicit "severity=critical" field by callers, since go-kit/log has no
// fifth level.
func levelOption(name string) level.Option {
	switch name {
	case "debug":
		return level.AllowDebug()
	case "warning":
		return level.AllowWarn()
	case "error":
		return level.AllowError()
	case "critical":
		return level.AllowError()
	default:
		return level.AllowInfo()
	}
}

// Critical logs at ERROR with an extra severity field, since go-kit/log
// does not have a fifth level.
func Critical(logger log.Logger, keyvals ...interface{}) error {
	return level.Error(logger).Log(append([]interface{}{"severity", "critical"}, keyvals...)...)
}

// With is a re-export so callers don't need a second import for the common
// case of tagging a component name.
func With(logger log.Logger, keyvals ...interface{}) log.Logger {
	return log.With(logger, keyvals...)
}

// Debug, Info, Warn, Error mirror go-kit/log/level for convenience at call
// sites that already hold a *component* logger.
func Debug(logger log.Logger, keyvals ...interface{}) error { return level.Debug(logger).Log(keyvals...) }
func Info(logger log.Logger, keyvals ...interface{}) error  { return level.Info(logger).Log(keyvals...) }
func Warn(logger log.Logger, keyvals ...interface{}) error  { return level.Warn(logger).Log(keyvals...) }
func Error(logger log.Logger, keyvals ...interface{}) error { return level.Error(logger).Log(keyvals...) }
