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

// Command globalnet-collector runs the active-probing collector: it loads
// the config catalogs, resolves the probing vantage point's identity, and
// either runs continuously ("run", the default) or performs a single
// cycle and exits ("once").
//
// Exit codes: 0 clean shutdown, 1 fatal config, 2 fatal datastore, 3
// unhandled internal error.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"github.com/go-kit/log/level"
	"github.com/oklog/run"

	"github.com/alabtor75/globalnet-monitor-core/internal/collerr"
	"github.com/alabtor75/globalnet-monitor-core/internal/config"
	"github.com/alabtor75/globalnet-monitor-core/internal/identity"
	"github.com/alabtor75/globalnet-monitor-core/internal/logging"
	"github.com/alabtor75/globalnet-monitor-core/internal/metrics"
	"github.com/alabtor75/globalnet-monitor-core/internal/model"
	"github.com/alabtor75/globalnet-monitor-core/internal/probe"
	"github.com/alabtor75/globalnet-monitor-core/internal/probe/dnscheck"
	"github.com/alabtor75/globalnet-monitor-core/internal/probe/httpcheck"
	"github.com/alabtor75/globalnet-monitor-core/internal/probe/jsonapi"
	"github.com/alabtor75/globalnet-monitor-core/internal/probe/ping"
	"github.com/alabtor75/globalnet-monitor-core/internal/probe/sslcert"
	"github.com/alabtor75/globalnet-monitor-core/internal/probe/tcpcheck"
	"github.com/alabtor75/globalnet-monitor-core/internal/scheduler"
	"github.com/alabtor75/globalnet-monitor-core/internal/store"
)

func main() {
	app := kingpin.New("globalnet-collector", "Active network monitoring collector.")

	mainConfig := app.Flag("config", "Path to the main config file.").Default("/etc/globalnet/config.yaml").String()
	hostsConfig := app.Flag("hosts", "Path to the host catalog.").Default("/etc/globalnet/hosts.yaml").String()
	servicesConfig := app.Flag("services", "Path to the service catalog.").Default("/etc/globalnet/services.yaml").String()
	geoEndpoint := app.Flag("geo-endpoint", "Geo-IP lookup endpoint for identity resolution (disabled if empty).").Default("").String()
	logFile := app.Flag("log-file", "Optional rotating log file path.").Default("").String()
	logLevel := app.Flag("log-level", "One of debug, info, warning, error, critical.").Default("info").String()
	enableMetrics := app.Flag("metrics", "Expose a Prometheus /metrics endpoint.").Default("false").Bool()
	metricsAddr := app.Flag("metrics-listen-address", "Address for the optional metrics server.").Default(":9090").String()

	app.Command("run", "Run continuously (default).").Default()
	onceCmd := app.Command("once", "Run a single cycle and exit.")

	cmd := kingpin.MustParse(app.Parse(os.Args[1:]))

	logger := logging.New(logging.Options{FilePath: *logFile, MinLevel: *logLevel})
	logger = logging.With(logger, "component", "collector")

	snap, warnings, err := config.Load(*mainConfig, *hostsConfig, *servicesConfig)
	if err != nil {
		level.Error(logger).Log("msg", "fatal config error", "err", err)
		os.Exit(1)
	}
	for _, w := range warnings {
		level.Warn(logger).Log("msg", w)
	}

	idResolver := identity.NewResolver(logging.With(logger, "component", "identity"), *geoEndpoint)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	writer, err := store.Open(ctx, snap.Main.DB.DSN, int32(snap.Main.DB.PoolMinCached), int32(snap.Main.DB.PoolMaxConns))
	if err != nil {
		if collerr.Is(err, collerr.KindFatalConfig) {
			level.Error(logger).Log("msg", "fatal config error", "err", err)
			os.Exit(1)
		}
		level.Error(logger).Log("msg", "fatal datastore error", "err", err)
		os.Exit(2)
	}
	defer writer.Close()

	probes := probe.Table{
		model.CheckPing:    ping.Runner{},
		model.CheckHTTP:    httpcheck.New(),
		model.CheckDNS:     dnscheck.Runner{},
		model.CheckTCP:     tcpcheck.Runner{},
		model.CheckSSLCert: sslcert.Runner{},
		model.CheckJSONAPI: jsonapi.New(),
	}

	var recorder *metrics.Recorder
	if *enableMetrics || os.Getenv("GNM_PROMETHEUS") == "1" {
		recorder = metrics.New()
	}

	sched := scheduler.New(logging.With(logger, "component", "scheduler"), snap, idResolver, probes, writer, recorderOrNil(recorder))

	var g run.Group
	{
		g.Add(func() error {
			if cmd == onceCmd.FullCommand() {
				return sched.RunOnce(ctx)
			}
			return sched.Run(ctx)
		}, func(error) {
			cancel()
		})
	}
	{
		term := make(chan os.Signal, 1)
		stop := make(chan struct{})
		signal.Notify(term, os.Interrupt, syscall.SIGTERM)
		g.Add(func() error {
			select {
			case <-term:
				level.Info(logger).Log("msg", "received shutdown signal, draining")
			case <-stop:
			}
			return nil
		}, func(error) {
			close(stop)
			cancel()
		})
	}
	if recorder != nil {
		g.Add(func() error {
			return recorder.Serve(ctx, *metricsAddr)
		}, func(error) {
			cancel()
		})
	}

	if err := g.Run(); err != nil {
		if collerr.Is(err, collerr.KindFatalDatastore) {
			level.Error(logger).Log("msg", "fatal datastore error", "err", err)
			os.Exit(2)
		}
		level.Error(logger).Log("msg", "unhandled internal error", "err", err)
		os.Exit(3)
	}
}

func recorderOrNil(r *metrics.Recorder) scheduler.Recorder {
	if r == nil {
		return nil
	}
	return r
}
