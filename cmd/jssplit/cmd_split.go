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
	"sort"

	"github.com/spf13/cobra"
	"github.com/tonguyenducmanh/split-file-javascript/services/splitter"
	"github.com/tonguyenducmanh/split-file-javascript/services/splitter/plan"
	"github.com/tonguyenducmanh/split-file-javascript/services/splitter/rewrite"
)

// planFlags are shared by plan and split.
type planFlags struct {
	planFile string
	file     string
	asJSON   bool
}

func (f *planFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.planFile, "plan", "p", "", "Split plan file (.json, .yaml or .yml)")
	cmd.Flags().StringVarP(&f.file, "file", "f", "", "Source file for groups that name none")
	cmd.Flags().BoolVar(&f.asJSON, "json", false, "Print the result as JSON")
	_ = cmd.MarkFlagRequired("plan")
}

func newPlanCmd(a *app) *cobra.Command {
	var flags planFlags
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show the imports and dangling references a split would produce",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := plan.LoadFile(flags.planFile)
			if err != nil {
				return err
			}
			svc, closeFn, err := a.service(false)
			if err != nil {
				return err
			}
			defer closeFn()

			files, err := svc.Plan(cmd.Context(), p, flags.file)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if flags.asJSON {
				return writeJSON(w, splitter.PlanResponse{Files: files})
			}
			for _, fp := range files {
				printFilePlan(w, fp)
			}
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func printFilePlan(w io.Writer, fp *splitter.FilePlan) {
	printTitle(w, fp.File)
	dests := make([]string, 0, len(fp.Dependencies))
	for dest := range fp.Dependencies {
		dests = append(dests, dest)
	}
	sort.Strings(dests)
	for _, dest := range dests {
		for _, dep := range fp.Dependencies[dest] {
			name := dep.NewName
			if dep.OriginalName != dep.NewName {
				name = fmt.Sprintf("%s (was %s)", dep.NewName, dep.OriginalName)
			}
			from := dep.Target
			if dep.Original {
				from = filepath.Base(fp.File)
			}
			printField(w, dest, fmt.Sprintf("imports %s from %s", name, from))
		}
	}
	if len(dests) == 0 {
		printField(w, "imports", "none")
	}
	for _, d := range fp.Dangling {
		printWarn(w, "dangling: %s", d.String())
	}
	for _, name := range fp.Unmatched {
		printWarn(w, "not found: %s", name)
	}
}

func newSplitCmd(a *app) *cobra.Command {
	var (
		flags  planFlags
		dryRun bool
	)
	cmd := &cobra.Command{
		Use:   "split",
		Short: "Move declarations into new files according to a plan",
		Long: `Split executes a plan: every listed function, class or method is moved
into its destination file, imports are added where moved code still
needs what stayed, and the source file is rewritten.

With --dry-run nothing is written and a unified diff is printed instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := plan.LoadFile(flags.planFile)
			if err != nil {
				return err
			}
			svc, closeFn, err := a.service(false)
			if err != nil {
				return err
			}
			defer closeFn()
			w := cmd.OutOrStdout()

			if dryRun {
				preview, err := svc.Preview(cmd.Context(), p, flags.file)
				if err != nil {
					return err
				}
				if flags.asJSON {
					return writeJSON(w, splitter.PreviewResponse{Result: preview.Result, Diff: preview.Diff})
				}
				fmt.Fprint(w, preview.Diff)
				printResult(cmd.ErrOrStderr(), preview.Result)
				return nil
			}

			result, err := svc.Split(cmd.Context(), p, flags.file)
			if err != nil {
				return err
			}
			if flags.asJSON {
				return writeJSON(w, result)
			}
			printResult(w, result)
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "Print a unified diff instead of writing")
	return cmd
}

func printResult(w io.Writer, r *rewrite.Result) {
	title := "Split " + r.RunID
	if r.DryRun {
		title += " (dry run)"
	}
	printTitle(w, title)
	for _, item := range r.ExtractedItems {
		printOK(w, "%s %s -> %s", item.Kind, item.OriginalName, item.Path)
	}
	for _, g := range r.NotFound {
		for _, it := range g.Items {
			printWarn(w, "not found in %s: %s", g.File, it.String())
		}
	}
	for _, d := range r.Dangling {
		printWarn(w, "dangling: %s", d.String())
	}
	for _, warning := range r.Warnings {
		printWarn(w, "%s", warning)
	}
	if !r.DryRun {
		printField(w, "written", len(r.Written))
	}
}
