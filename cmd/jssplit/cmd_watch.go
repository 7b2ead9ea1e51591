// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/tonguyenducmanh/split-file-javascript/services/splitter"
	"github.com/tonguyenducmanh/split-file-javascript/services/splitter/snapshot"
	"github.com/tonguyenducmanh/split-file-javascript/services/splitter/watch"
)

func newWatchCmd(a *app) *cobra.Command {
	var (
		out       string
		snapshots bool
	)
	cmd := &cobra.Command{
		Use:   "watch [path]",
		Short: "Re-analyze a folder whenever its sources change",
		Long: `Watch analyzes a folder, then re-analyzes it after every burst of
changes to its JavaScript and Vue files. With --snapshot every run is
stored and compared against the previous one.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) == 1 {
				root = args[0]
			}
			root, err := filepath.Abs(root)
			if err != nil {
				return err
			}
			svc, closeFn, err := a.service(snapshots)
			if err != nil {
				return err
			}
			defer closeFn()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			w := cmd.OutOrStdout()
			run := func(ctx context.Context, changed []string) error {
				return reanalyze(ctx, w, svc, root, out, changed)
			}
			if err := run(ctx, nil); err != nil {
				return err
			}

			watcher, err := watch.New(watch.Options{
				Root:       root,
				Extensions: a.cfg.Analysis.Extensions,
				Exclude:    a.cfg.Analysis.Ignore,
				Debounce:   a.cfg.Watch.Debounce,
				OnChange:   run,
				Logger:     a.logger,
			})
			if err != nil {
				return err
			}
			return watcher.Run(ctx)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "Report file or directory rewritten on every run")
	cmd.Flags().BoolVar(&snapshots, "snapshot", false, "Store every run as a snapshot and print what changed")
	return cmd
}

func reanalyze(ctx context.Context, w io.Writer, svc *splitter.Service, root, out string, changed []string) error {
	for _, path := range changed {
		if rel, err := filepath.Rel(root, path); err == nil {
			path = rel
		}
		fmt.Fprintf(w, "changed: %s\n", path)
	}

	if svc.Snapshots() == nil {
		report, err := svc.AnalyzeFiles(ctx, root, out)
		if err != nil {
			return err
		}
		printOK(w, "%d files, %d functions, %d classes", len(report.Files), report.TotalFunctions, report.TotalClasses)
		return nil
	}

	previous, prevMeta, err := svc.Snapshots().LoadLatest(ctx, root)
	if err != nil && !errors.Is(err, snapshot.ErrNotFound) {
		return err
	}
	meta, report, err := svc.SaveSnapshot(ctx, root, "watch")
	if err != nil {
		return err
	}
	if out != "" {
		if _, err := svc.SaveReport(report, out); err != nil {
			return err
		}
	}
	printOK(w, "snapshot %s: %d files, %d functions, %d classes",
		meta.SnapshotID, len(report.Files), report.TotalFunctions, report.TotalClasses)
	if previous == nil {
		return nil
	}
	diff, err := snapshot.DiffReports(previous, report, prevMeta.SnapshotID, meta.SnapshotID)
	if err != nil {
		return err
	}
	printSnapshotDiff(w, diff)
	return nil
}
