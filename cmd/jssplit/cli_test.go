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
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tonguyenducmanh/split-file-javascript/services/splitter/analysis"
	"github.com/tonguyenducmanh/split-file-javascript/services/splitter/snapshot"
)

// runCLI executes the root command with args and returns stdout.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := newRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append([]string{"--config", t.TempDir(), "--log-level", "error"}, args...))
	err := root.Execute()
	return stdout.String(), err
}

func writeProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"src/app.js":    "function a() {\n  b();\n}\n\nfunction b() {}\n",
		"src/plan.json": `[{"destination": "lib.js", "items": ["b"]}]`,
	}
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestAnalyzeCommand_Folder(t *testing.T) {
	dir := writeProject(t)
	out := filepath.Join(t.TempDir(), "reports")

	stdout, err := runCLI(t, "analyze", filepath.Join(dir, "src"), "--out", out)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if !strings.Contains(stdout, "functions") {
		t.Errorf("summary missing counts:\n%s", stdout)
	}

	data, err := os.ReadFile(filepath.Join(out, "result.json"))
	if err != nil {
		t.Fatalf("report not written: %v", err)
	}
	report, err := analysis.ParseReport(data)
	if err != nil {
		t.Fatalf("ParseReport: %v", err)
	}
	if len(report.Files) != 1 || report.TotalFunctions != 2 {
		t.Errorf("report = %d files, %d functions; want 1, 2", len(report.Files), report.TotalFunctions)
	}
}

func TestAnalyzeCommand_File(t *testing.T) {
	dir := writeProject(t)

	stdout, err := runCLI(t, "analyze", filepath.Join(dir, "src", "app.js"))
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	var a analysis.Analysis
	if err := json.Unmarshal([]byte(stdout), &a); err != nil {
		t.Fatalf("output is not an analysis: %v\n%s", err, stdout)
	}
	if a.TotalFunctions != 2 {
		t.Errorf("TotalFunctions = %d, want 2", a.TotalFunctions)
	}
}

func TestAnalyzeCommand_MissingPath(t *testing.T) {
	if _, err := runCLI(t, "analyze", filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("expected error for a missing path")
	}
}

func TestSplitCommand_DryRun(t *testing.T) {
	dir := writeProject(t)
	src := filepath.Join(dir, "src", "app.js")

	stdout, err := runCLI(t, "split", "--plan", filepath.Join(dir, "src", "plan.json"), "--file", src, "--dry-run")
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if !strings.Contains(stdout, "+export function b() {}") {
		t.Errorf("diff missing extracted function:\n%s", stdout)
	}
	if _, err := os.Stat(filepath.Join(dir, "src", "lib.js")); !os.IsNotExist(err) {
		t.Errorf("dry run wrote lib.js: %v", err)
	}
}

func TestSplitCommand_Writes(t *testing.T) {
	dir := writeProject(t)
	src := filepath.Join(dir, "src", "app.js")

	if _, err := runCLI(t, "split", "--plan", filepath.Join(dir, "src", "plan.json"), "--file", src); err != nil {
		t.Fatalf("split: %v", err)
	}
	lib, err := os.ReadFile(filepath.Join(dir, "src", "lib.js"))
	if err != nil {
		t.Fatalf("lib.js not written: %v", err)
	}
	if string(lib) != "export function b() {}\n" {
		t.Errorf("lib.js = %q", lib)
	}
	app, err := os.ReadFile(src)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(app), "function b() {}") {
		t.Errorf("b still declared in app.js:\n%s", app)
	}
}

func TestSplitCommand_RequiresPlan(t *testing.T) {
	if _, err := runCLI(t, "split"); err == nil {
		t.Error("expected error without --plan")
	}
}

func TestPlanCommand_JSON(t *testing.T) {
	dir := writeProject(t)
	planFile := filepath.Join(dir, "plan.yaml")
	yamlPlan := "- destination: p1.js\n  items: [a]\n- destination: p2.js\n  items: [b]\n"
	if err := os.WriteFile(planFile, []byte(yamlPlan), 0o644); err != nil {
		t.Fatal(err)
	}

	stdout, err := runCLI(t, "plan", "--plan", planFile, "--file", filepath.Join(dir, "src", "app.js"), "--json")
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if !strings.Contains(stdout, `"target": "p2.js"`) {
		t.Errorf("plan output missing dependency:\n%s", stdout)
	}
}

func TestSnapshotCommands(t *testing.T) {
	dir := writeProject(t)
	t.Setenv("JSSPLIT_SNAPSHOT_DIR", t.TempDir())

	if _, err := runCLI(t, "snapshot", "save", dir, "--label", "first"); err != nil {
		t.Fatalf("snapshot save: %v", err)
	}

	stdout, err := runCLI(t, "snapshot", "list", "--json")
	if err != nil {
		t.Fatalf("snapshot list: %v", err)
	}
	var metas []*snapshot.Metadata
	if err := json.Unmarshal([]byte(stdout), &metas); err != nil {
		t.Fatalf("list output: %v\n%s", err, stdout)
	}
	if len(metas) != 1 || metas[0].Label != "first" {
		t.Fatalf("metas = %+v", metas)
	}
	id := metas[0].SnapshotID

	stdout, err = runCLI(t, "snapshot", "diff", id, id)
	if err != nil {
		t.Fatalf("snapshot diff: %v", err)
	}
	if !strings.Contains(stdout, "changes") {
		t.Errorf("diff output:\n%s", stdout)
	}

	if _, err := runCLI(t, "snapshot", "delete", id); err != nil {
		t.Fatalf("snapshot delete: %v", err)
	}
	if _, err := runCLI(t, "snapshot", "show", id); err == nil {
		t.Error("expected error showing a deleted snapshot")
	}
}
