// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package analysis

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// ReportSchemaVersion is the version of the report format.
// Increment when the format changes in a breaking way.
const ReportSchemaVersion = "1.0"

// Report is the serialized result of analyzing a set of files.
//
// Description:
//
//	Files are sorted by path so that two reports over the same sources
//	produce the same ReportHash regardless of analysis order.
//
// Thread Safety: Report is a value type with no internal state.
type Report struct {
	// SchemaVersion identifies the report format version.
	SchemaVersion string `json:"schema_version"`

	// Root is the directory or file the report was produced for.
	Root string `json:"root"`

	// GeneratedAtMilli is the Unix timestamp in milliseconds of generation.
	GeneratedAtMilli int64 `json:"generated_at_milli"`

	// ReportHash is a deterministic hash over Files.
	ReportHash string `json:"report_hash"`

	TotalFunctions int `json:"total_functions"`
	TotalClasses   int `json:"total_classes"`

	Files []*Analysis `json:"files"`
}

// NewReport builds a Report over files.
//
// Inputs:
//
//	root  - The analyzed root.
//	files - Per-file inventories. Nil entries are skipped.
//
// Outputs:
//
//	*Report - The report. Never nil.
func NewReport(root string, files []*Analysis) *Report {
	sorted := make([]*Analysis, 0, len(files))
	for _, a := range files {
		if a != nil {
			sorted = append(sorted, a)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].FilePath < sorted[j].FilePath
	})

	r := &Report{
		SchemaVersion:    ReportSchemaVersion,
		Root:             root,
		GeneratedAtMilli: time.Now().UnixMilli(),
		Files:            sorted,
	}
	for _, a := range sorted {
		r.TotalFunctions += a.TotalFunctions
		r.TotalClasses += a.TotalClasses
	}
	r.ReportHash = hashFiles(sorted)
	return r
}

// File returns the inventory for path, or nil.
func (r *Report) File(path string) *Analysis {
	for _, a := range r.Files {
		if a.FilePath == path {
			return a
		}
	}
	return nil
}

// MarshalIndent encodes the report as indented JSON.
func (r *Report) MarshalIndent() ([]byte, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding report: %w", err)
	}
	return data, nil
}

// ParseReport decodes a report and checks its schema version.
func ParseReport(data []byte) (*Report, error) {
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decoding report: %w", err)
	}
	if r.SchemaVersion != ReportSchemaVersion {
		return nil, fmt.Errorf("unsupported schema version %q (expected %q)", r.SchemaVersion, ReportSchemaVersion)
	}
	for _, a := range r.Files {
		if a == nil {
			return nil, fmt.Errorf("report contains a null file entry")
		}
	}
	return &r, nil
}

func hashFiles(files []*Analysis) string {
	h := sha256.New()
	enc := json.NewEncoder(h)
	for _, a := range files {
		// Encoding a struct of plain fields cannot fail.
		_ = enc.Encode(a)
	}
	return hex.EncodeToString(h.Sum(nil))
}
