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
	"encoding/json"

	"github.com/tonguyenducmanh/split-file-javascript/services/splitter/analysis"
	"github.com/tonguyenducmanh/split-file-javascript/services/splitter/rewrite"
	"github.com/tonguyenducmanh/split-file-javascript/services/splitter/snapshot"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// AnalyzeRequest is the body of POST /v1/splitter/analyze.
//
// Exactly one of Path or Content is used. With Content, FilePath names the
// source for dispatch and reporting. A directory Path analyzes every
// matching file below it.
type AnalyzeRequest struct {
	Path     string `json:"path"`
	Content  string `json:"content"`
	FilePath string `json:"file_path"`

	// SaveResultPath optionally writes the folder report.
	SaveResultPath string `json:"save_result_path"`

	// Snapshot saves a folder report as a snapshot.
	Snapshot bool   `json:"snapshot"`
	Label    string `json:"label"`
}

// AnalyzeResponse carries either a single-file analysis or a folder report.
type AnalyzeResponse struct {
	Analysis   *analysis.Analysis `json:"analysis,omitempty"`
	Report     *analysis.Report   `json:"report,omitempty"`
	SnapshotID string             `json:"snapshot_id,omitempty"`
}

// PlanRequest is the body of POST /v1/splitter/plan and /preview.
type PlanRequest struct {
	// Plan is a SplitPlan: an array of groups or {"groups": [...]}.
	Plan json.RawMessage `json:"plan"`

	// DefaultFile is the source file for groups that name none.
	DefaultFile string `json:"default_file"`
}

// PlanResponse is the body of a successful plan request.
type PlanResponse struct {
	Files []*FilePlan `json:"files"`
}

// PreviewResponse is the body of a successful preview request.
type PreviewResponse struct {
	Result *rewrite.Result `json:"result"`
	Diff   string          `json:"diff"`
}

// ListSnapshotsResponse is the body of GET /v1/splitter/snapshots.
type ListSnapshotsResponse struct {
	Snapshots []*snapshot.Metadata `json:"snapshots"`
}

// LoadSnapshotResponse is the body of GET /v1/splitter/snapshots/:id.
type LoadSnapshotResponse struct {
	Metadata *snapshot.Metadata `json:"metadata"`
	Report   *analysis.Report   `json:"report"`
}

// SnapshotDiffResponse is the body of GET /v1/splitter/snapshots/diff.
type SnapshotDiffResponse struct {
	Diff *snapshot.Diff `json:"diff"`
}

// HealthResponse is the body of GET /v1/splitter/health.
type HealthResponse struct {
	Status    string `json:"status"`
	Snapshots bool   `json:"snapshots"`
}
