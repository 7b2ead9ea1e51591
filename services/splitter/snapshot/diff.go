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
	"fmt"
	"sort"

	"github.com/tonguyenducmanh/split-file-javascript/services/splitter/analysis"
)

// Change types reported for declarations present in both reports.
const (
	ChangeMoved      = "moved"
	ChangeResized    = "resized"
	ChangeReferences = "references_changed"
)

// Diff is the difference between two reports.
type Diff struct {
	BaseSnapshotID   string `json:"base_snapshot_id"`
	TargetSnapshotID string `json:"target_snapshot_id"`

	// Added and Removed hold declaration keys "file#name", methods as
	// "file#Class.method".
	Added    []string          `json:"added"`
	Removed  []string          `json:"removed"`
	Modified []DeclarationDiff `json:"modified"`

	Summary Summary `json:"summary"`
}

// DeclarationDiff describes one declaration present in both reports.
type DeclarationDiff struct {
	Key        string `json:"key"`
	Name       string `json:"name"`
	ChangeType string `json:"change_type"`
}

// Summary aggregates a Diff.
type Summary struct {
	TotalChanges  int     `json:"total_changes"`
	FilesAffected int     `json:"files_affected"`
	ChangeRatio   float64 `json:"change_ratio"`
}

type entry struct {
	file      string
	name      string
	startLine int
	lineCount int
	refs      int
}

// DiffReports compares base to target by declaration key.
//
// Description:
//
//	A declaration that changed file shows as remove plus add. For keys in
//	both reports the first difference found is reported, in the order:
//	start line, line count, reference count. Output lists are sorted.
func DiffReports(base, target *analysis.Report, baseID, targetID string) (*Diff, error) {
	if base == nil {
		return nil, fmt.Errorf("base report must not be nil")
	}
	if target == nil {
		return nil, fmt.Errorf("target report must not be nil")
	}

	diff := &Diff{
		BaseSnapshotID:   baseID,
		TargetSnapshotID: targetID,
		Added:            []string{},
		Removed:          []string{},
		Modified:         []DeclarationDiff{},
	}
	b, t := index(base), index(target)
	affected := make(map[string]bool)

	for key, te := range t {
		be, ok := b[key]
		if !ok {
			diff.Added = append(diff.Added, key)
			affected[te.file] = true
			continue
		}
		if change := classify(be, te); change != "" {
			diff.Modified = append(diff.Modified, DeclarationDiff{Key: key, Name: te.name, ChangeType: change})
			affected[te.file] = true
		}
	}
	for key, be := range b {
		if _, ok := t[key]; !ok {
			diff.Removed = append(diff.Removed, key)
			affected[be.file] = true
		}
	}

	sort.Strings(diff.Added)
	sort.Strings(diff.Removed)
	sort.Slice(diff.Modified, func(i, j int) bool {
		return diff.Modified[i].Key < diff.Modified[j].Key
	})

	total := len(b)
	if len(t) > total {
		total = len(t)
	}
	changed := len(diff.Added) + len(diff.Removed) + len(diff.Modified)
	diff.Summary = Summary{
		TotalChanges:  changed,
		FilesAffected: len(affected),
	}
	if total > 0 {
		diff.Summary.ChangeRatio = float64(changed) / float64(total)
	}
	return diff, nil
}

func classify(base, target entry) string {
	switch {
	case base.startLine != target.startLine:
		return ChangeMoved
	case base.lineCount != target.lineCount:
		return ChangeResized
	case base.refs != target.refs:
		return ChangeReferences
	default:
		return ""
	}
}

// index flattens a report into declaration entries. Anonymous functions
// have no stable key and are skipped.
func index(r *analysis.Report) map[string]entry {
	out := make(map[string]entry)
	for _, a := range r.Files {
		for _, decls := range [][]*analysis.Declaration{a.Functions, a.Classes} {
			for _, d := range decls {
				if d.Name == analysis.Anonymous {
					continue
				}
				key := a.FilePath + "#" + d.Name
				if _, dup := out[key]; !dup {
					out[key] = entry{file: a.FilePath, name: d.Name, startLine: d.StartLine, lineCount: d.LineCount, refs: len(d.References)}
				}
				for _, m := range d.Methods {
					name := analysis.Qualify(d.Name, m.Name)
					out[a.FilePath+"#"+name] = entry{file: a.FilePath, name: name, startLine: m.StartLine, lineCount: m.LineCount, refs: len(m.References)}
				}
			}
		}
	}
	return out
}
