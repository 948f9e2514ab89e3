/*
Copyright © 2026 Benny Powers <web@bennypowers.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/

// Package watch provides the watch command, polling configured jobs on a
// schedule.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"bennypowers.dev/ivywatch/fs"
	"bennypowers.dev/ivywatch/internal/cli"
	"bennypowers.dev/ivywatch/internal/version"
	"bennypowers.dev/ivywatch/poll"
)

// Cmd is the watch command.
var Cmd = &cobra.Command{
	Use:   "watch",
	Short: "Poll configured jobs until interrupted",
	Long: `Poll every job of a config file on a fixed interval. Each job keeps its
baseline and polling log under the state directory. When a job changes,
the --on-change command runs with IVYWATCH_JOB set to the job name.

Example config:

  node:
    name: builder-1
    labels: [linux]
  interval: 10m
  metrics-addr: ":9102"
  jobs:
    - name: nightly
      ivy: ivy.xml
      settings: https://repo.example.com/ivysettings.xml
      workspace: /srv/nightly`,
	Args: cobra.NoArgs,
	RunE: run,
}

func init() {
	Cmd.Flags().StringP("config", "c", "ivywatch.yaml", "Config file (yaml, toml or json)")
	Cmd.Flags().String("on-change", "", "Shell command run when a job changes")
	Cmd.Flags().String("metrics-addr", "", "Serve prometheus metrics on this address")
	Cmd.Flags().Bool("verbose", false, "Mirror the polling logs to stderr")
}

func run(cmd *cobra.Command, args []string) error {
	logger := slog.Default()
	configFile, _ := cmd.Flags().GetString("config")
	verbose, _ := cmd.Flags().GetBool("verbose")

	v := viper.New()
	v.SetConfigFile(configFile)
	v.SetEnvPrefix("IVYWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	_ = v.BindPFlag("on-change", cmd.Flags().Lookup("on-change"))
	_ = v.BindPFlag("metrics-addr", cmd.Flags().Lookup("metrics-addr"))
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config %s: %w", configFile, err)
	}
	cfg, err := cli.LoadWatchConfig(v)
	if err != nil {
		return fmt.Errorf("%s: %w", configFile, err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		buildInfo(),
	)
	opts := cli.Options{
		StateDir:    cfg.StateDir,
		Node:        cli.CurrentNode(cfg.Node.Name, cfg.Node.Labels, cfg.Node.Root),
		Logger:      logger,
		Metrics:     poll.NewMetrics(reg),
		Concurrency: cfg.Concurrency,
	}
	if verbose {
		opts.Mirror = cmd.ErrOrStderr()
	}
	deps := cli.NewDeps(fs.NewOSFileSystem(), opts)

	registry := poll.NewDefaultRegistry()
	triggers := make([]poll.Trigger, 0, len(cfg.Jobs))
	for _, job := range cfg.Jobs {
		t, err := registry.New(job.Kind, job.Config, deps)
		if err != nil {
			return err
		}
		triggers = append(triggers, t)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.MetricsAddr != "" {
		srv := metricsServer(cfg.MetricsAddr, reg)
		go func() {
			logger.Info("metrics server starting", "address", cfg.MetricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("metrics server shutdown failed", "error", err)
			}
		}()
	}

	scheduler := &poll.Scheduler{Interval: cfg.Interval, Logger: logger}
	if cfg.OnChange != "" {
		scheduler.OnChange = cli.ShellHook(cfg.OnChange, cmd.OutOrStdout(), cmd.ErrOrStderr())
	}

	logger.Info("watching jobs",
		"jobs", len(triggers),
		"interval", cfg.Interval,
		"node", opts.Node.Name,
		"version", version.GetVersion(),
	)
	err = scheduler.Run(ctx, triggers...)
	logger.Info("stopped watching")
	return err
}

func metricsServer(addr string, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func buildInfo() prometheus.Collector {
	g := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ivywatch_build_info",
		Help: "Build information of the running ivywatch.",
	}, []string{"version", "commit"})
	g.WithLabelValues(version.GetVersion(), version.GitCommit).Set(1)
	return g
}
