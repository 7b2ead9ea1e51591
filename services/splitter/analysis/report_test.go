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
	"encoding/json"
	"strings"
	"testing"
)

func TestReport_DeterministicHash(t *testing.T) {
	a, _ := analyze(t, "function a() {}\na();\n")
	a.FilePath = "a.js"
	b, _ := analyze(t, "class B {}\n")
	b.FilePath = "b.js"

	r1 := NewReport("/src", []*Analysis{a, b})
	r2 := NewReport("/src", []*Analysis{b, nil, a})

	if r1.ReportHash != r2.ReportHash {
		t.Errorf("expected identical hashes regardless of order")
	}
	if r2.Files[0].FilePath != "a.js" {
		t.Errorf("expected files sorted by path, got %s first", r2.Files[0].FilePath)
	}
	if r1.TotalFunctions != 1 || r1.TotalClasses != 1 {
		t.Errorf("expected totals 1/1, got %d/%d", r1.TotalFunctions, r1.TotalClasses)
	}
	if r1.File("b.js") != b {
		t.Errorf("expected File lookup to return b.js")
	}
}

func TestReport_RoundTrip(t *testing.T) {
	a, _ := analyze(t, "function a() {}\na();\n")
	r := NewReport("/src", []*Analysis{a})

	data, err := r.MarshalIndent()
	if err != nil {
		t.Fatalf("MarshalIndent failed: %v", err)
	}
	for _, key := range []string{`"functionDeclarations"`, `"totalLine"`, `"callerIdentifier"`} {
		if !strings.Contains(string(data), key) {
			t.Errorf("expected report JSON to contain %s", key)
		}
	}

	back, err := ParseReport(data)
	if err != nil {
		t.Fatalf("ParseReport failed: %v", err)
	}
	if back.ReportHash != r.ReportHash {
		t.Errorf("hash changed across round trip")
	}
}

func TestParseReport_RejectsUnknownSchema(t *testing.T) {
	data, _ := json.Marshal(map[string]any{"schema_version": "0.1"})
	if _, err := ParseReport(data); err == nil {
		t.Error("expected unsupported schema version error")
	}
}
