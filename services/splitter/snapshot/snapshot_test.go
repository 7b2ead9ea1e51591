// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package snapshot

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/tonguyenducmanh/split-file-javascript/services/splitter/analysis"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	db, err := OpenDB("")
	if err != nil {
		t.Fatalf("OpenDB: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	mgr, err := NewManager(db, logger)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return mgr
}

func fileWith(path string, functions ...*analysis.Declaration) *analysis.Analysis {
	a := analysis.NewAnalysis(path)
	a.Functions = append(a.Functions, functions...)
	a.Total()
	return a
}

func fn(name string, start, lines, refs int) *analysis.Declaration {
	d := &analysis.Declaration{
		Name:       name,
		Kind:       analysis.KindFunction,
		StartLine:  start,
		EndLine:    start + lines - 1,
		LineCount:  lines,
		References: make([]analysis.Reference, 0),
	}
	for i := 0; i < refs; i++ {
		d.References = append(d.References, analysis.Reference{CallerIdentifier: "caller", Site: analysis.SiteCall, StartLine: 1, EndLine: 1})
	}
	return d
}

func report(root string, at int64, files ...*analysis.Analysis) *analysis.Report {
	r := analysis.NewReport(root, files)
	r.GeneratedAtMilli = at
	return r
}

func TestNewManager_NilArguments(t *testing.T) {
	if _, err := NewManager(nil, slog.Default()); err == nil {
		t.Error("expected error for nil DB")
	}
	db, err := OpenDB("")
	if err != nil {
		t.Fatalf("OpenDB: %v", err)
	}
	defer db.Close()
	if _, err := NewManager(db, nil); err == nil {
		t.Error("expected error for nil logger")
	}
}

func TestManager_SaveAndLoad(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()
	r := report("/proj", 1000, fileWith("a.js", fn("a", 1, 3, 1), fn("b", 5, 1, 0)))

	meta, err := mgr.Save(ctx, r, "first")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if meta.SnapshotID == "" || meta.ContentHash == "" {
		t.Fatalf("incomplete metadata: %+v", meta)
	}
	if meta.FunctionCount != 2 || meta.FileCount != 1 {
		t.Errorf("counts = %d functions, %d files", meta.FunctionCount, meta.FileCount)
	}
	if meta.ProjectHash != ProjectHash("/proj") {
		t.Errorf("project hash = %q", meta.ProjectHash)
	}

	loaded, loadedMeta, err := mgr.Load(ctx, meta.SnapshotID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.ReportHash != r.ReportHash {
		t.Errorf("report hash = %q, want %q", loaded.ReportHash, r.ReportHash)
	}
	if loadedMeta.Label != "first" {
		t.Errorf("label = %q", loadedMeta.Label)
	}
	if got := loaded.File("a.js"); got == nil || len(got.Functions) != 2 {
		t.Errorf("loaded file = %+v", got)
	}
}

func TestManager_LoadMissing(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()

	if _, _, err := mgr.Load(ctx, "nonexistent"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Load err = %v, want ErrNotFound", err)
	}
	if _, _, err := mgr.LoadLatest(ctx, "/nowhere"); !errors.Is(err, ErrNotFound) {
		t.Errorf("LoadLatest err = %v, want ErrNotFound", err)
	}
	if err := mgr.Delete(ctx, "nonexistent"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete err = %v, want ErrNotFound", err)
	}
}

func TestManager_LatestListDelete(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()

	first, err := mgr.Save(ctx, report("/proj", 1000, fileWith("a.js", fn("a", 1, 1, 0))), "")
	if err != nil {
		t.Fatalf("Save first: %v", err)
	}
	second, err := mgr.Save(ctx, report("/proj", 2000, fileWith("a.js", fn("a", 2, 1, 0))), "")
	if err != nil {
		t.Fatalf("Save second: %v", err)
	}
	if _, err := mgr.Save(ctx, report("/other", 3000), ""); err != nil {
		t.Fatalf("Save other: %v", err)
	}

	_, latest, err := mgr.LoadLatest(ctx, "/proj")
	if err != nil {
		t.Fatalf("LoadLatest: %v", err)
	}
	if latest.SnapshotID != second.SnapshotID {
		t.Errorf("latest = %s, want %s", latest.SnapshotID, second.SnapshotID)
	}

	all, err := mgr.List(ctx, "", 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("list all = %d, want 3", len(all))
	}
	project, err := mgr.List(ctx, "/proj", 1)
	if err != nil {
		t.Fatalf("List project: %v", err)
	}
	if len(project) != 1 {
		t.Errorf("list with limit = %d, want 1", len(project))
	}

	if err := mgr.Delete(ctx, second.SnapshotID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, _, err := mgr.LoadLatest(ctx, "/proj"); !errors.Is(err, ErrNotFound) {
		t.Errorf("latest pointer should be gone, got %v", err)
	}
	if _, _, err := mgr.Load(ctx, first.SnapshotID); err != nil {
		t.Errorf("first snapshot should survive: %v", err)
	}
}
