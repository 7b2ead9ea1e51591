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
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/tonguyenducmanh/split-file-javascript/services/splitter/snapshot"
)

func newSnapshotCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Manage stored analysis reports",
	}
	cmd.AddCommand(
		newSnapshotSaveCmd(a),
		newSnapshotListCmd(a),
		newSnapshotShowCmd(a),
		newSnapshotDiffCmd(a),
		newSnapshotDeleteCmd(a),
	)
	return cmd
}

func newSnapshotSaveCmd(a *app) *cobra.Command {
	var label string
	cmd := &cobra.Command{
		Use:   "save [path]",
		Short: "Analyze a folder and store the report",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) == 1 {
				root = args[0]
			}
			root, err := filepath.Abs(root)
			if err != nil {
				return err
			}
			svc, closeFn, err := a.service(true)
			if err != nil {
				return err
			}
			defer closeFn()

			meta, _, err := svc.SaveSnapshot(cmd.Context(), root, label)
			if err != nil {
				return err
			}
			printMetadata(cmd.OutOrStdout(), meta)
			return nil
		},
	}
	cmd.Flags().StringVar(&label, "label", "", "Free-form label stored with the snapshot")
	return cmd
}

func newSnapshotListCmd(a *app) *cobra.Command {
	var (
		root   string
		limit  int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List snapshots, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if root != "" {
				abs, err := filepath.Abs(root)
				if err != nil {
					return err
				}
				root = abs
			}
			svc, closeFn, err := a.service(true)
			if err != nil {
				return err
			}
			defer closeFn()

			metas, err := svc.Snapshots().List(cmd.Context(), root, limit)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(w, metas)
			}
			if len(metas) == 0 {
				fmt.Fprintln(w, "no snapshots")
				return nil
			}
			for _, m := range metas {
				label := ""
				if m.Label != "" {
					label = " [" + m.Label + "]"
				}
				fmt.Fprintf(w, "%s  %s  %s%s\n", m.SnapshotID, formatMilli(m.CreatedAtMilli), m.Root, label)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&root, "root", "", "Only list snapshots of this project root")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum snapshots to list")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	return cmd
}

func newSnapshotShowCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := a.service(true)
			if err != nil {
				return err
			}
			defer closeFn()

			report, meta, err := svc.Snapshots().Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(w, report)
			}
			printMetadata(w, meta)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the stored report as JSON")
	return cmd
}

func newSnapshotDiffCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "diff <base> <target>",
		Short: "Compare the declarations of two snapshots",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := a.service(true)
			if err != nil {
				return err
			}
			defer closeFn()

			mgr := svc.Snapshots()
			base, _, err := mgr.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			target, _, err := mgr.Load(cmd.Context(), args[1])
			if err != nil {
				return err
			}
			diff, err := snapshot.DiffReports(base, target, args[0], args[1])
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(w, diff)
			}
			printSnapshotDiff(w, diff)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	return cmd
}

func newSnapshotDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := a.service(true)
			if err != nil {
				return err
			}
			defer closeFn()

			if err := svc.Snapshots().Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			printOK(cmd.OutOrStdout(), "snapshot %s deleted", args[0])
			return nil
		},
	}
}

func printMetadata(w io.Writer, m *snapshot.Metadata) {
	printTitle(w, "Snapshot "+m.SnapshotID)
	printField(w, "root", m.Root)
	if m.Label != "" {
		printField(w, "label", m.Label)
	}
	printField(w, "created", formatMilli(m.CreatedAtMilli))
	printField(w, "files", m.FileCount)
	printField(w, "functions", m.FunctionCount)
	printField(w, "classes", m.ClassCount)
	printField(w, "size", fmt.Sprintf("%d bytes", m.CompressedSize))
}

func printSnapshotDiff(w io.Writer, d *snapshot.Diff) {
	printTitle(w, fmt.Sprintf("%s -> %s", d.BaseSnapshotID, d.TargetSnapshotID))
	for _, key := range d.Added {
		printOK(w, "added    %s", key)
	}
	for _, key := range d.Removed {
		printWarn(w, "removed  %s", key)
	}
	for _, m := range d.Modified {
		fmt.Fprintf(w, "~ %-8s %s\n", m.ChangeType, m.Key)
	}
	printField(w, "changes", d.Summary.TotalChanges)
	printField(w, "files", d.Summary.FilesAffected)
}

func formatMilli(ms int64) string {
	return time.UnixMilli(ms).Local().Format(time.DateTime)
}
