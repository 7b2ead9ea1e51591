// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package rewrite

import (
	"github.com/tonguyenducmanh/split-file-javascript/services/splitter/plan"
)

// ExtractedItem records one relocated entity.
type ExtractedItem struct {
	// Name is the entity's name in its destination.
	Name string `json:"name"`

	// OriginalName is the bare or "Class.method" name in the source file.
	OriginalName string `json:"originalName"`

	Destination string `json:"destination"`

	// Path is the destination file path.
	Path string `json:"path"`

	// Kind is function, class or method.
	Kind string `json:"kind"`
}

// Output is one file produced by a rewrite.
type Output struct {
	Destination string
	Path        string
	Content     []byte
}

// FileRewrite is the outcome of rewriting one source file.
type FileRewrite struct {
	SourcePath string

	// Original is the rewritten source. Nil when nothing was extracted.
	Original []byte

	// Outputs are destination files in first-seen group order.
	Outputs []Output

	Extracted []ExtractedItem
	Dangling  []plan.Dangling
	Warnings  []string
}

// Changed reports whether the rewrite produced anything to write.
func (r *FileRewrite) Changed() bool {
	return r.Original != nil || len(r.Outputs) > 0
}

// Result is the record of one split invocation.
type Result struct {
	RunID string `json:"runId"`

	ExtractedItems []ExtractedItem `json:"extractedItems"`

	// NotFound lists the plan groups that still hold unmatched items.
	NotFound []*plan.Group `json:"notFound"`

	Dangling []plan.Dangling `json:"dangling,omitempty"`
	Warnings []string        `json:"warnings,omitempty"`

	// Written lists every file path written, in write order.
	Written []string `json:"written"`

	DryRun bool `json:"dryRun,omitempty"`
}
