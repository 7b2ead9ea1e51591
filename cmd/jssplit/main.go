// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command jssplit analyzes JavaScript and Vue sources and splits them into
// smaller files according to a plan.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/tonguyenducmanh/split-file-javascript/services/splitter"
	"github.com/tonguyenducmanh/split-file-javascript/services/splitter/config"
	"github.com/tonguyenducmanh/split-file-javascript/services/splitter/snapshot"
	"github.com/tonguyenducmanh/split-file-javascript/services/splitter/telemetry"
)

var version = "dev"

// app holds state shared by every subcommand.
type app struct {
	configDir string
	logLevel  string
	logFormat string

	cfg      *config.Config
	logger   *slog.Logger
	shutdown telemetry.ShutdownFunc
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "jssplit",
		Short: "Analyze and split JavaScript files",
		Long: `jssplit inventories the functions and classes of JavaScript and Vue
sources, records who calls whom, and moves declarations into new files
according to a split plan, wiring the imports the moved code needs.`,
		Version:            version,
		SilenceUsage:       true,
		PersistentPreRunE:  a.setup,
		PersistentPostRunE: a.teardown,
	}

	root.PersistentFlags().StringVar(&a.configDir, "config", ".", "Directory holding jssplit.yaml and .env")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	root.PersistentFlags().StringVar(&a.logFormat, "log-format", "", "Log format: auto, text, json")

	root.AddCommand(
		newAnalyzeCmd(a),
		newPlanCmd(a),
		newSplitCmd(a),
		newServeCmd(a),
		newSnapshotCmd(a),
		newWatchCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cmd.Context(), a.configDir)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Logging.Format = a.logFormat
	}

	logger, err := telemetry.NewLogger(cfg.Logging.Level, cfg.Logging.Format, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	shutdown, err := telemetry.SetupTracing(cmd.Context(), telemetry.TracingOptions{
		Exporter:    cfg.Tracing.Exporter,
		Endpoint:    cfg.Tracing.Endpoint,
		Writer:      cmd.ErrOrStderr(),
		ServiceName: "jssplit",
	})
	if err != nil {
		return err
	}

	a.cfg, a.logger, a.shutdown = cfg, logger, shutdown
	return nil
}

func (a *app) teardown(cmd *cobra.Command, _ []string) error {
	if a.shutdown == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return a.shutdown(ctx)
}

// service builds a Service over the OS file system. With snapshots set the
// snapshot store is opened and the returned close func releases it.
func (a *app) service(snapshots bool) (*splitter.Service, func(), error) {
	sc := splitter.ServiceConfig{Config: a.cfg, Logger: a.logger}
	closeFn := func() {}

	if snapshots {
		dir, err := a.cfg.SnapshotDir()
		if err != nil {
			return nil, nil, err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("creating snapshot dir: %w", err)
		}
		db, err := snapshot.OpenDB(dir)
		if err != nil {
			return nil, nil, err
		}
		mgr, err := snapshot.NewManager(db, a.logger)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		sc.Snapshots = mgr
		closeFn = func() {
			if err := db.Close(); err != nil {
				a.logger.Warn("failed to close snapshot store", slog.String("error", err.Error()))
			}
		}
	}

	svc, err := splitter.NewService(sc)
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	return svc, closeFn, nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
