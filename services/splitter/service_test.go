// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package splitter

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tonguyenducmanh/split-file-javascript/services/splitter/analysis"
	"github.com/tonguyenducmanh/split-file-javascript/services/splitter/plan"
	"github.com/tonguyenducmanh/split-file-javascript/services/splitter/rewrite"
	"github.com/tonguyenducmanh/split-file-javascript/services/splitter/workspace"
)

const cartComponent = `<template><div /></template>
<script>
export default {
  methods: {
    save() {
      return 1;
    },
  },
};
</script>
`

func projectFiles() map[string]string {
	return map[string]string{
		"proj/src/app.js":            "function a() {\n  b();\n}\n\nfunction b() {}\n",
		"proj/src/shapes.js":         "class Square {\n  area() {\n    return 1;\n  }\n}\n",
		"proj/src/Cart.vue":          cartComponent,
		"proj/src/readme.md":         "# not javascript\n",
		"proj/node_modules/dep/x.js": "function dep() {}\n",
	}
}

func newTestService(t *testing.T, files map[string]string) (*Service, *workspace.MemoryFileSystem) {
	t.Helper()
	fs := workspace.NewMemoryFileSystem(files)
	svc, err := NewService(ServiceConfig{FS: fs})
	require.NoError(t, err)
	return svc, fs
}

func TestService_AnalyzeFiles(t *testing.T) {
	svc, fs := newTestService(t, projectFiles())

	report, err := svc.AnalyzeFiles(context.Background(), "proj", "out")
	require.NoError(t, err)

	require.Len(t, report.Files, 3)
	assert.Equal(t, "proj/src/Cart.vue", report.Files[0].FilePath)
	assert.Equal(t, 3, report.TotalFunctions)
	assert.Equal(t, 1, report.TotalClasses)

	app := report.File("proj/src/app.js")
	require.NotNil(t, app)
	require.Len(t, app.Function("b").References, 1)
	assert.Equal(t, "a", app.Function("b").References[0].CallerIdentifier)

	saved, ok := fs.Files()["out/result.json"]
	require.True(t, ok, "report must be written to the result file")
	parsed, err := analysis.ParseReport([]byte(saved))
	require.NoError(t, err)
	assert.Equal(t, report.ReportHash, parsed.ReportHash)
}

func TestService_AnalyzeFilesExplicitReportPath(t *testing.T) {
	svc, fs := newTestService(t, projectFiles())

	_, err := svc.AnalyzeFiles(context.Background(), "proj/src", "reports/app.json")
	require.NoError(t, err)
	assert.Contains(t, fs.Files(), "reports/app.json")
}

func TestService_AnalyzeSourceIsCached(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	first, err := svc.AnalyzeSource(ctx, []byte("function a() {}\n"), "a.js")
	require.NoError(t, err)
	second, err := svc.AnalyzeSource(ctx, []byte("function a() {}\n"), "a.js")
	require.NoError(t, err)
	assert.Same(t, first, second)

	changed, err := svc.AnalyzeSource(ctx, []byte("function b() {}\n"), "a.js")
	require.NoError(t, err)
	assert.NotSame(t, first, changed)
	assert.NotNil(t, changed.Function("b"))
}

func TestService_Plan(t *testing.T) {
	svc, fs := newTestService(t, projectFiles())
	p := &plan.SplitPlan{Groups: []*plan.Group{
		{File: "proj/src/app.js", Destination: "p1.js", Items: []plan.Item{plan.Named("a")}},
		{File: "proj/src/app.js", Destination: "p2.js", Items: []plan.Item{plan.Named("b"), plan.Named("ghost")}},
	}}

	files, err := svc.Plan(context.Background(), p, "")
	require.NoError(t, err)

	require.Len(t, files, 1)
	fp := files[0]
	assert.Equal(t, "proj/src/app.js", fp.File)
	assert.Equal(t, []plan.Dependency{{Source: "p1.js", Target: "p2.js", OriginalName: "b", NewName: "b"}}, fp.Dependencies["p1.js"])
	assert.Equal(t, []string{"ghost"}, fp.Unmatched)
	assert.Empty(t, fp.Dangling)

	assert.Equal(t, projectFiles()["proj/src/app.js"], fs.Files()["proj/src/app.js"], "planning must not write")
}

func TestService_PlanNeedsSourceFile(t *testing.T) {
	svc, _ := newTestService(t, nil)
	p := &plan.SplitPlan{Groups: []*plan.Group{
		{Destination: "p1.js", Items: []plan.Item{plan.Named("a")}},
	}}

	_, err := svc.Plan(context.Background(), p, "")
	assert.ErrorIs(t, err, rewrite.ErrNoSourceFile)
}

func TestService_PreviewWritesNothing(t *testing.T) {
	svc, fs := newTestService(t, projectFiles())
	p := &plan.SplitPlan{Groups: []*plan.Group{
		{Destination: "lib.js", Items: []plan.Item{plan.Named("b")}},
	}}

	preview, err := svc.Preview(context.Background(), p, "proj/src/app.js")
	require.NoError(t, err)

	assert.True(t, preview.Result.DryRun)
	require.Len(t, preview.Changes, 2)
	assert.Contains(t, preview.Diff, "--- /dev/null\n+++ b/proj/src/lib.js\n")
	assert.Contains(t, preview.Diff, "+export function b() {}\n")
	assert.Contains(t, preview.Diff, "-function b() {}\n")
	assert.NotContains(t, fs.Files(), "proj/src/lib.js")
	assert.Equal(t, projectFiles()["proj/src/app.js"], fs.Files()["proj/src/app.js"])
}

func TestService_Split(t *testing.T) {
	svc, fs := newTestService(t, projectFiles())
	p := &plan.SplitPlan{Groups: []*plan.Group{
		{File: "proj/src/Cart.vue", Destination: "cart-actions.js", Items: []plan.Item{plan.Named("save")}},
	}}

	result, err := svc.Split(context.Background(), p, "")
	require.NoError(t, err)

	assert.Len(t, result.ExtractedItems, 1)
	assert.Contains(t, fs.Files()["proj/src/cart-actions.js"], "save() {")
	assert.Contains(t, fs.Files()["proj/src/Cart.vue"], "...cartActions,")

	data, err := json.Marshal(result)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"runId"`)
}

func TestService_SaveSnapshotWithoutManager(t *testing.T) {
	svc, _ := newTestService(t, projectFiles())

	_, _, err := svc.SaveSnapshot(context.Background(), "proj", "")
	assert.ErrorIs(t, err, ErrSnapshotsDisabled)
}
