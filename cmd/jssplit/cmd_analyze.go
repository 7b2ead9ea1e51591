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
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/tonguyenducmanh/split-file-javascript/services/splitter/analysis"
)

func newAnalyzeCmd(a *app) *cobra.Command {
	var (
		out      string
		asJSON   bool
		snapshot bool
		label    string
	)
	cmd := &cobra.Command{
		Use:   "analyze [path]",
		Short: "Inventory functions, classes and call sites",
		Long: `Analyze a file or every JavaScript and Vue file below a folder.

A single file prints its analysis as JSON. A folder writes a report to
--out: a path with an extension names the report file, anything else is a
directory that receives the configured result file (result.json).`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "."
			if len(args) == 1 {
				path = args[0]
			}
			w := cmd.OutOrStdout()

			info, err := os.Stat(path)
			if err != nil {
				return err
			}
			svc, closeFn, err := a.service(snapshot)
			if err != nil {
				return err
			}
			defer closeFn()

			if !info.IsDir() {
				result, err := svc.AnalyzeFile(cmd.Context(), path)
				if err != nil {
					return err
				}
				return writeJSON(w, result)
			}

			var report *analysis.Report
			if snapshot {
				// Snapshots are keyed by root, so "." and its absolute form must agree.
				if path, err = filepath.Abs(path); err != nil {
					return err
				}
				meta, r, err := svc.SaveSnapshot(cmd.Context(), path, label)
				if err != nil {
					return err
				}
				report = r
				defer printOK(w, "snapshot %s saved", meta.SnapshotID)
				if out != "" {
					if _, err := svc.SaveReport(report, out); err != nil {
						return err
					}
				}
			} else {
				report, err = svc.AnalyzeFiles(cmd.Context(), path, out)
				if err != nil {
					return err
				}
			}

			if asJSON {
				return writeJSON(w, report)
			}
			printTitle(w, "Analysis of "+path)
			printField(w, "files", len(report.Files))
			printField(w, "functions", report.TotalFunctions)
			printField(w, "classes", report.TotalClasses)
			printField(w, "hash", report.ReportHash)
			if out != "" {
				printField(w, "report", reportPath(out, a.cfg.Analysis.ResultFile))
			}
			for _, f := range report.Files {
				for _, warning := range f.Warnings {
					printWarn(w, "%s: %s", f.FilePath, warning)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", ".", "Report file or directory; empty to skip writing")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the folder report as JSON")
	cmd.Flags().BoolVar(&snapshot, "snapshot", false, "Also store the report as a snapshot")
	cmd.Flags().StringVar(&label, "label", "", "Snapshot label")
	return cmd
}

func reportPath(out, resultFile string) string {
	if filepath.Ext(out) != "" {
		return out
	}
	return filepath.Join(out, resultFile)
}
