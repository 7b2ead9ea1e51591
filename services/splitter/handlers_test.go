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
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tonguyenducmanh/split-file-javascript/services/splitter/config"
	"github.com/tonguyenducmanh/split-file-javascript/services/splitter/snapshot"
	"github.com/tonguyenducmanh/split-file-javascript/services/splitter/workspace"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupTestRouter(svc *Service) *gin.Engine {
	router := gin.New()
	v1 := router.Group("/v1")
	RegisterRoutes(v1, NewHandlers(svc))
	return router
}

func newSnapshotService(t *testing.T) *Service {
	t.Helper()
	db, err := snapshot.OpenDB("")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	mgr, err := snapshot.NewManager(db, logger)
	require.NoError(t, err)

	svc, err := NewService(ServiceConfig{
		FS:        workspace.NewMemoryFileSystem(projectFiles()),
		Snapshots: mgr,
		Logger:    logger,
	})
	require.NoError(t, err)
	return svc
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHandleHealth(t *testing.T) {
	svc, _ := newTestService(t, nil)
	w := doJSON(t, setupTestRouter(svc), http.MethodGet, "/v1/splitter/health", nil)

	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[HealthResponse](t, w)
	assert.Equal(t, "ok", resp.Status)
	assert.False(t, resp.Snapshots)
}

func TestHandleAnalyze_Content(t *testing.T) {
	svc, _ := newTestService(t, nil)
	w := doJSON(t, setupTestRouter(svc), http.MethodPost, "/v1/splitter/analyze", AnalyzeRequest{
		Content: "function a() {\n  b();\n}\nfunction b() {}\n",
	})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[AnalyzeResponse](t, w)
	require.NotNil(t, resp.Analysis)
	assert.Nil(t, resp.Report)
	assert.Equal(t, "inline.js", resp.Analysis.FilePath)
	assert.Equal(t, 2, resp.Analysis.TotalFunctions)
}

func TestHandleAnalyze_File(t *testing.T) {
	svc, _ := newTestService(t, projectFiles())
	w := doJSON(t, setupTestRouter(svc), http.MethodPost, "/v1/splitter/analyze", AnalyzeRequest{
		Path: "proj/src/shapes.js",
	})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[AnalyzeResponse](t, w)
	require.NotNil(t, resp.Analysis)
	assert.Equal(t, 1, resp.Analysis.TotalClasses)
}

func TestHandleAnalyze_Folder(t *testing.T) {
	svc, fs := newTestService(t, projectFiles())
	w := doJSON(t, setupTestRouter(svc), http.MethodPost, "/v1/splitter/analyze", AnalyzeRequest{
		Path:           "proj",
		SaveResultPath: "out",
	})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[AnalyzeResponse](t, w)
	require.NotNil(t, resp.Report)
	assert.Len(t, resp.Report.Files, 3)
	assert.Empty(t, resp.SnapshotID)
	assert.Contains(t, fs.Files(), "out/result.json")
}

func TestHandleAnalyze_MissingParameter(t *testing.T) {
	svc, _ := newTestService(t, nil)
	w := doJSON(t, setupTestRouter(svc), http.MethodPost, "/v1/splitter/analyze", AnalyzeRequest{})

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "MISSING_PARAMETER", decode[ErrorResponse](t, w).Code)
}

func TestHandleAnalyze_SnapshotsDisabled(t *testing.T) {
	svc, _ := newTestService(t, projectFiles())
	w := doJSON(t, setupTestRouter(svc), http.MethodPost, "/v1/splitter/analyze", AnalyzeRequest{
		Path:     "proj",
		Snapshot: true,
	})

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "SNAPSHOTS_NOT_AVAILABLE", decode[ErrorResponse](t, w).Code)
}

func TestHandlePlan(t *testing.T) {
	svc, _ := newTestService(t, projectFiles())
	w := doJSON(t, setupTestRouter(svc), http.MethodPost, "/v1/splitter/plan", map[string]any{
		"plan": []map[string]any{
			{"destination": "p1.js", "items": []string{"a"}},
			{"destination": "p2.js", "items": []string{"b", "ghost"}},
		},
		"default_file": "proj/src/app.js",
	})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[PlanResponse](t, w)
	require.Len(t, resp.Files, 1)
	assert.Equal(t, "proj/src/app.js", resp.Files[0].File)
	require.Len(t, resp.Files[0].Dependencies["p1.js"], 1)
	assert.Equal(t, "p2.js", resp.Files[0].Dependencies["p1.js"][0].Target)
	assert.Equal(t, []string{"ghost"}, resp.Files[0].Unmatched)
}

func TestHandlePlan_Invalid(t *testing.T) {
	svc, _ := newTestService(t, projectFiles())
	router := setupTestRouter(svc)

	tests := map[string]any{
		"empty plan":          map[string]any{"plan": []any{}},
		"missing destination": map[string]any{"plan": []map[string]any{{"items": []string{"a"}}}},
		"no source file":      map[string]any{"plan": []map[string]any{{"destination": "p1.js", "items": []string{"a"}}}},
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			w := doJSON(t, router, http.MethodPost, "/v1/splitter/plan", body)
			require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			assert.Equal(t, "INVALID_PLAN", decode[ErrorResponse](t, w).Code)
		})
	}
}

func TestHandlePlan_MissingFile(t *testing.T) {
	svc, _ := newTestService(t, nil)
	w := doJSON(t, setupTestRouter(svc), http.MethodPost, "/v1/splitter/plan", map[string]any{
		"plan": []map[string]any{{"file": "nope.js", "destination": "p1.js", "items": []string{"a"}}},
	})

	require.Equal(t, http.StatusNotFound, w.Code, w.Body.String())
	assert.Equal(t, "FILE_NOT_FOUND", decode[ErrorResponse](t, w).Code)
}

func TestHandlePreview(t *testing.T) {
	svc, fs := newTestService(t, projectFiles())
	w := doJSON(t, setupTestRouter(svc), http.MethodPost, "/v1/splitter/preview", map[string]any{
		"plan":         map[string]any{"groups": []map[string]any{{"destination": "lib.js", "items": []string{"b"}}}},
		"default_file": "proj/src/app.js",
	})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[PreviewResponse](t, w)
	require.NotNil(t, resp.Result)
	assert.True(t, resp.Result.DryRun)
	assert.NotEmpty(t, resp.Result.RunID)
	assert.Contains(t, resp.Diff, "+++ b/proj/src/lib.js")
	assert.NotContains(t, fs.Files(), "proj/src/lib.js")
}

func TestSnapshotEndpoints_Unavailable(t *testing.T) {
	svc, _ := newTestService(t, nil)
	router := setupTestRouter(svc)

	for _, req := range []struct{ method, path string }{
		{http.MethodGet, "/v1/splitter/snapshots"},
		{http.MethodGet, "/v1/splitter/snapshots/abc"},
		{http.MethodDelete, "/v1/splitter/snapshots/abc"},
		{http.MethodGet, "/v1/splitter/snapshots/diff?base=a&target=b"},
	} {
		w := doJSON(t, router, req.method, req.path, nil)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code, req.path)
	}
}

func TestSnapshotEndpoints_Lifecycle(t *testing.T) {
	svc := newSnapshotService(t)
	router := setupTestRouter(svc)

	w := doJSON(t, router, http.MethodPost, "/v1/splitter/analyze", AnalyzeRequest{Path: "proj", Snapshot: true, Label: "before"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	id := decode[AnalyzeResponse](t, w).SnapshotID
	require.NotEmpty(t, id)

	w = doJSON(t, router, http.MethodGet, "/v1/splitter/snapshots", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[ListSnapshotsResponse](t, w)
	require.Len(t, list.Snapshots, 1)
	assert.Equal(t, "before", list.Snapshots[0].Label)

	w = doJSON(t, router, http.MethodGet, "/v1/splitter/snapshots/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	loaded := decode[LoadSnapshotResponse](t, w)
	assert.Equal(t, id, loaded.Metadata.SnapshotID)
	assert.Len(t, loaded.Report.Files, 3)

	w = doJSON(t, router, http.MethodGet, "/v1/splitter/snapshots/diff?base="+id+"&target="+id, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 0, decode[SnapshotDiffResponse](t, w).Diff.Summary.TotalChanges)

	w = doJSON(t, router, http.MethodGet, "/v1/splitter/snapshots/diff?base="+id, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, http.MethodDelete, "/v1/splitter/snapshots/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodGet, "/v1/splitter/snapshots/"+id, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "SNAPSHOT_NOT_FOUND", decode[ErrorResponse](t, w).Code)
}

func TestNewRouter_RateLimitAndRequestID(t *testing.T) {
	cfg := config.Default()
	cfg.Server.RateLimit = 1
	cfg.Server.Burst = 1
	svc, err := NewService(ServiceConfig{Config: cfg, FS: workspace.NewMemoryFileSystem(nil)})
	require.NoError(t, err)
	router := NewRouter(svc, false)

	req := httptest.NewRequest(http.MethodGet, "/v1/splitter/health", nil)
	req.Header.Set("X-Request-ID", "req-1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "req-1", w.Header().Get("X-Request-ID"))

	w = doJSON(t, router, http.MethodGet, "/v1/splitter/health", nil)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "RATE_LIMITED", decode[ErrorResponse](t, w).Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = doJSON(t, router, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
