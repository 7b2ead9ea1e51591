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
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/tonguyenducmanh/split-file-javascript/services/splitter/analysis"
	"github.com/tonguyenducmanh/split-file-javascript/services/splitter/ast"
	"github.com/tonguyenducmanh/split-file-javascript/services/splitter/plan"
	"github.com/tonguyenducmanh/split-file-javascript/services/splitter/rewrite"
	"github.com/tonguyenducmanh/split-file-javascript/services/splitter/snapshot"
)

// Handlers serves the splitter HTTP API.
type Handlers struct {
	svc *Service
}

// NewHandlers creates Handlers over svc.
func NewHandlers(svc *Service) *Handlers {
	return &Handlers{svc: svc}
}

// HandleAnalyze handles POST /v1/splitter/analyze.
//
// Description:
//
//	Analyzes inline content, a single file, or every matching file below
//	a directory. A folder analysis may be saved to disk and as a snapshot.
//
// Request Body:
//
//	AnalyzeRequest
//
// Response:
//
//	200 OK: AnalyzeResponse
//	400 Bad Request: Neither path nor content, or unparseable content
//	404 Not Found: Path does not exist
//	413 Request Entity Too Large: Source exceeds the parse limit
func (h *Handlers) HandleAnalyze(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleAnalyze")
	ctx := c.Request.Context()

	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body: " + err.Error(), Code: "INVALID_REQUEST"})
		return
	}

	switch {
	case req.Content != "":
		path := req.FilePath
		if path == "" {
			path = "inline.js"
		}
		a, err := h.svc.AnalyzeSource(ctx, []byte(req.Content), path)
		if err != nil {
			writeError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, AnalyzeResponse{Analysis: a})

	case req.Path != "":
		if !req.Snapshot && req.SaveResultPath == "" {
			// A path that cannot be read as a file is retried as a folder.
			a, err := h.svc.AnalyzeFile(ctx, req.Path)
			if err == nil {
				c.JSON(http.StatusOK, AnalyzeResponse{Analysis: a})
				return
			}
			if skippable(err) {
				writeError(c, logger, err)
				return
			}
		}
		var (
			report *analysis.Report
			meta   *snapshot.Metadata
			err    error
		)
		if req.Snapshot {
			meta, report, err = h.svc.SaveSnapshot(ctx, req.Path, req.Label)
			if err == nil && req.SaveResultPath != "" {
				_, err = h.svc.SaveReport(report, req.SaveResultPath)
			}
		} else {
			report, err = h.svc.AnalyzeFiles(ctx, req.Path, req.SaveResultPath)
		}
		if err != nil {
			writeError(c, logger, err)
			return
		}
		resp := AnalyzeResponse{Report: report}
		if meta != nil {
			resp.SnapshotID = meta.SnapshotID
		}
		logger.Info("analyzed folder", slog.String("path", req.Path), slog.Int("files", len(report.Files)))
		c.JSON(http.StatusOK, resp)

	default:
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "path or content is required", Code: "MISSING_PARAMETER"})
	}
}

// HandlePlan handles POST /v1/splitter/plan.
//
// Description:
//
//	Computes the imports and dangling references a split would produce
//	for every source file the plan names. Nothing is written.
//
// Response:
//
//	200 OK: PlanResponse
//	400 Bad Request: Invalid plan
//	404 Not Found: A source file does not exist
func (h *Handlers) HandlePlan(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandlePlan")

	p, defaultFile, ok := bindPlan(c)
	if !ok {
		return
	}
	files, err := h.svc.Plan(c.Request.Context(), p, defaultFile)
	if err != nil {
		writeError(c, logger, err)
		return
	}
	logger.Info("plan computed", slog.Int("files", len(files)))
	c.JSON(http.StatusOK, PlanResponse{Files: files})
}

// HandlePreview handles POST /v1/splitter/preview.
//
// Description:
//
//	Runs the plan against an in-memory overlay and returns the result
//	with a unified diff of every file it would write.
//
// Response:
//
//	200 OK: PreviewResponse
//	400 Bad Request: Invalid plan
//	404 Not Found: A source file does not exist
//	422 Unprocessable Entity: A source file has syntax errors
func (h *Handlers) HandlePreview(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandlePreview")

	p, defaultFile, ok := bindPlan(c)
	if !ok {
		return
	}
	preview, err := h.svc.Preview(c.Request.Context(), p, defaultFile)
	if err != nil {
		writeError(c, logger, err)
		return
	}
	logger.Info("preview computed",
		slog.String("run_id", preview.Result.RunID),
		slog.Int("changes", len(preview.Changes)),
	)
	c.JSON(http.StatusOK, PreviewResponse{Result: preview.Result, Diff: preview.Diff})
}

// HandleListSnapshots handles GET /v1/splitter/snapshots.
//
// Query Parameters:
//
//	root: Optional filter by project root
//	limit: Maximum results, default 100
func (h *Handlers) HandleListSnapshots(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleListSnapshots")

	mgr := h.svc.Snapshots()
	if mgr == nil {
		snapshotsUnavailable(c)
		return
	}
	limit := 100
	if limitStr := c.Query("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	snapshots, err := mgr.List(c.Request.Context(), c.Query("root"), limit)
	if err != nil {
		logger.Error("failed to list snapshots", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to list snapshots: " + err.Error(), Code: "SNAPSHOT_LIST_FAILED"})
		return
	}
	c.JSON(http.StatusOK, ListSnapshotsResponse{Snapshots: snapshots})
}

// HandleLoadSnapshot handles GET /v1/splitter/snapshots/:id.
func (h *Handlers) HandleLoadSnapshot(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleLoadSnapshot")

	mgr := h.svc.Snapshots()
	if mgr == nil {
		snapshotsUnavailable(c)
		return
	}
	id := c.Param("id")
	report, meta, err := mgr.Load(c.Request.Context(), id)
	if err != nil {
		logger.Warn("snapshot load failed", slog.String("snapshot_id", id), slog.Any("error", err))
		writeError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, LoadSnapshotResponse{Metadata: meta, Report: report})
}

// HandleDeleteSnapshot handles DELETE /v1/splitter/snapshots/:id.
func (h *Handlers) HandleDeleteSnapshot(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleDeleteSnapshot")

	mgr := h.svc.Snapshots()
	if mgr == nil {
		snapshotsUnavailable(c)
		return
	}
	id := c.Param("id")
	if err := mgr.Delete(c.Request.Context(), id); err != nil {
		writeError(c, logger, err)
		return
	}
	logger.Info("snapshot deleted", slog.String("snapshot_id", id))
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// HandleDiffSnapshots handles GET /v1/splitter/snapshots/diff?base=&target=.
func (h *Handlers) HandleDiffSnapshots(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleDiffSnapshots")

	mgr := h.svc.Snapshots()
	if mgr == nil {
		snapshotsUnavailable(c)
		return
	}
	baseID, targetID := c.Query("base"), c.Query("target")
	if baseID == "" || targetID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "both 'base' and 'target' parameters are required", Code: "MISSING_PARAMETER"})
		return
	}

	ctx := c.Request.Context()
	base, _, err := mgr.Load(ctx, baseID)
	if err != nil {
		writeError(c, logger, err)
		return
	}
	target, _, err := mgr.Load(ctx, targetID)
	if err != nil {
		writeError(c, logger, err)
		return
	}
	diff, err := snapshot.DiffReports(base, target, baseID, targetID)
	if err != nil {
		writeError(c, logger, err)
		return
	}
	logger.Info("snapshot diff computed",
		slog.String("base", baseID),
		slog.String("target", targetID),
		slog.Int("total_changes", diff.Summary.TotalChanges),
	)
	c.JSON(http.StatusOK, SnapshotDiffResponse{Diff: diff})
}

// HandleHealth handles GET /v1/splitter/health.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok", Snapshots: h.svc.Snapshots() != nil})
}

func bindPlan(c *gin.Context) (*plan.SplitPlan, string, bool) {
	var req PlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body: " + err.Error(), Code: "INVALID_REQUEST"})
		return nil, "", false
	}
	p, err := plan.Parse(req.Plan, plan.FormatJSON)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "INVALID_PLAN"})
		return nil, "", false
	}
	return p, req.DefaultFile, true
}

func snapshotsUnavailable(c *gin.Context) {
	c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: ErrSnapshotsDisabled.Error(), Code: "SNAPSHOTS_NOT_AVAILABLE"})
}

// writeError maps domain errors to status codes.
func writeError(c *gin.Context, logger *slog.Logger, err error) {
	status, code := http.StatusInternalServerError, "INTERNAL_ERROR"
	switch {
	case errors.Is(err, fs.ErrNotExist):
		status, code = http.StatusNotFound, "FILE_NOT_FOUND"
	case errors.Is(err, snapshot.ErrNotFound):
		status, code = http.StatusNotFound, "SNAPSHOT_NOT_FOUND"
	case errors.Is(err, ast.ErrFileTooLarge):
		status, code = http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE"
	case errors.Is(err, ast.ErrInvalidContent), errors.Is(err, ast.ErrNoScriptSection):
		status, code = http.StatusBadRequest, "INVALID_CONTENT"
	case errors.Is(err, ast.ErrSyntax):
		status, code = http.StatusUnprocessableEntity, "SYNTAX_ERROR"
	case errors.Is(err, rewrite.ErrNoSourceFile), errors.Is(err, plan.ErrInvalidPlan),
		errors.Is(err, plan.ErrMalformedItem), errors.Is(err, plan.ErrEmptyPlan):
		status, code = http.StatusBadRequest, "INVALID_PLAN"
	case errors.Is(err, ErrSnapshotsDisabled):
		status, code = http.StatusServiceUnavailable, "SNAPSHOTS_NOT_AVAILABLE"
	}
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", slog.Any("error", err))
	} else {
		logger.Warn("request rejected", slog.String("code", code), slog.Any("error", err))
	}
	c.JSON(status, ErrorResponse{Error: err.Error(), Code: code})
}
