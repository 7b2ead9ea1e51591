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
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/sourcegraph/go-diff/diff"
	"github.com/tonguyenducmanh/split-file-javascript/services/splitter/workspace"
)

const diffContext = 3

// UnifiedDiff renders changes as a multi-file unified diff.
func UnifiedDiff(changes []workspace.Change) ([]byte, error) {
	fds := make([]*diff.FileDiff, 0, len(changes))
	for _, ch := range changes {
		if fd := fileDiff(ch); fd != nil {
			fds = append(fds, fd)
		}
	}
	if len(fds) == 0 {
		return nil, nil
	}
	out, err := diff.PrintMultiFileDiff(fds)
	if err != nil {
		return nil, fmt.Errorf("printing diff: %w", err)
	}
	return out, nil
}

func fileDiff(ch workspace.Change) *diff.FileDiff {
	if ch.Before != nil && bytes.Equal(ch.Before, ch.After) {
		return nil
	}
	hs := hunks(splitLines(ch.Before), splitLines(ch.After), diffContext)
	if len(hs) == 0 {
		return nil
	}
	name := filepath.ToSlash(ch.Path)
	fd := &diff.FileDiff{
		OrigName: "a/" + name,
		NewName:  "b/" + name,
		Extended: []string{fmt.Sprintf("diff --git a/%s b/%s", name, name)},
		Hunks:    hs,
	}
	if ch.Before == nil {
		fd.OrigName = "/dev/null"
		fd.Extended = append(fd.Extended, "new file mode 100644")
	}
	return fd
}

func splitLines(b []byte) []string {
	if len(b) == 0 {
		return nil
	}
	s := strings.TrimSuffix(string(b), "\n")
	return strings.Split(s, "\n")
}

// hunks groups changed lines with up to context unchanged lines around
// them. Changes separated by at most 2*context unchanged lines share a hunk.
func hunks(a, b []string, context int) []*diff.Hunk {
	var out []*diff.Hunk
	for _, group := range difflib.NewMatcher(a, b).GetGroupedOpCodes(context) {
		changed := false
		var body bytes.Buffer
		for _, op := range group {
			switch op.Tag {
			case 'e':
				writeLines(&body, ' ', a[op.I1:op.I2])
			case 'd':
				writeLines(&body, '-', a[op.I1:op.I2])
				changed = true
			case 'i':
				writeLines(&body, '+', b[op.J1:op.J2])
				changed = true
			case 'r':
				writeLines(&body, '-', a[op.I1:op.I2])
				writeLines(&body, '+', b[op.J1:op.J2])
				changed = true
			}
		}
		if !changed {
			continue
		}

		first, last := group[0], group[len(group)-1]
		h := &diff.Hunk{
			OrigStartLine: int32(first.I1),
			OrigLines:     int32(last.I2 - first.I1),
			NewStartLine:  int32(first.J1),
			NewLines:      int32(last.J2 - first.J1),
			Body:          body.Bytes(),
		}
		if h.OrigLines > 0 {
			h.OrigStartLine++
		}
		if h.NewLines > 0 {
			h.NewStartLine++
		}
		out = append(out, h)
	}
	return out
}

func writeLines(b *bytes.Buffer, prefix byte, lines []string) {
	for _, line := range lines {
		b.WriteByte(prefix)
		b.WriteString(line)
		b.WriteByte('\n')
	}
}
