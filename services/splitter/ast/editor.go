package ast

import (
	"bytes"
	"fmt"
	"sort"
)

// Edit replaces Source[Start:End] with Text. Start == End is an insertion.
type Edit struct {
	Start uint32
	End   uint32
	Text  string

	seq int
}

// Editor accumulates edits against an immutable File and prints the result.
//
// Description:
//
//	The tree is never mutated. Passes record byte-range edits and Apply
//	splices them into a copy of the source in one step. Insertions at the
//	same offset keep the order they were recorded in.
//
// Thread Safety:
//
//	Not safe for concurrent use.
type Editor struct {
	file  *File
	edits []Edit
}

// NewEditor creates an Editor for f.
func NewEditor(f *File) *Editor {
	return &Editor{file: f}
}

// Len returns the number of recorded edits.
func (e *Editor) Len() int {
	return len(e.edits)
}

// ReplaceRange records a replacement of [start, end).
func (e *Editor) ReplaceRange(start, end uint32, text string) {
	e.edits = append(e.edits, Edit{Start: start, End: end, Text: text, seq: len(e.edits)})
}

// Replace records a replacement of n's text.
func (e *Editor) Replace(n *Node, text string) {
	e.ReplaceRange(n.StartByte, n.EndByte, text)
}

// Insert records an insertion at offset.
func (e *Editor) Insert(offset uint32, text string) {
	e.ReplaceRange(offset, offset, text)
}

// RemoveStatement removes n together with its leading comments, the
// indentation before it and the line break after it, so no blank husk is
// left behind.
func (e *Editor) RemoveStatement(n *Node) {
	start, end := expandToLines(e.file.Source, e.file.StatementStart(n), n.EndByte)
	e.ReplaceRange(start, end, "")
}

// RemoveLines removes [start, end), widened to whole lines when nothing
// else shares them.
func (e *Editor) RemoveLines(start, end uint32) {
	s, t := expandToLines(e.file.Source, start, end)
	e.ReplaceRange(s, t, "")
}

// ReplaceStatement replaces n and its leading comments with text.
func (e *Editor) ReplaceStatement(n *Node, text string) {
	e.ReplaceRange(e.file.StatementStart(n), n.EndByte, text)
}

// StatementStart returns the offset where n's leading comments begin, or
// n's own start when it has none.
func (f *File) StatementStart(n *Node) uint32 {
	if lead := f.LeadingComments(n); len(lead) > 0 {
		return lead[0].StartByte
	}
	return n.StartByte
}

// Apply returns the source with every edit applied.
func (e *Editor) Apply() ([]byte, error) {
	return applyEdits(e.file.Source, e.edits)
}

// Print renders f. The tree is immutable so this is its source text; it
// exists so callers depend on a printer rather than on File internals.
func Print(f *File) []byte {
	out := make([]byte, len(f.Source))
	copy(out, f.Source)
	return out
}

// Fragment returns the text of n with edits applied. Edits must lie inside
// n's range and use absolute offsets into the file.
func (f *File) Fragment(n *Node, edits []Edit) (string, error) {
	return f.FragmentRange(n.StartByte, n.EndByte, edits)
}

// FragmentRange returns Source[start:end] with edits applied.
func (f *File) FragmentRange(start, end uint32, edits []Edit) (string, error) {
	local := make([]Edit, 0, len(edits))
	for i, ed := range edits {
		if ed.Start < start || ed.End > end {
			return "", fmt.Errorf("edit [%d,%d) outside fragment [%d,%d)", ed.Start, ed.End, start, end)
		}
		local = append(local, Edit{Start: ed.Start - start, End: ed.End - start, Text: ed.Text, seq: i})
	}
	out, err := applyEdits(f.Source[start:end], local)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func applyEdits(src []byte, edits []Edit) ([]byte, error) {
	sorted := make([]Edit, len(edits))
	copy(sorted, edits)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Start != sorted[j].Start {
			return sorted[i].Start < sorted[j].Start
		}
		// Pure insertions go before a replacement starting at the same offset.
		iIns, jIns := sorted[i].Start == sorted[i].End, sorted[j].Start == sorted[j].End
		if iIns != jIns {
			return iIns
		}
		return sorted[i].seq < sorted[j].seq
	})

	var buf bytes.Buffer
	buf.Grow(len(src))
	var cursor uint32
	for _, ed := range sorted {
		if ed.End < ed.Start || int(ed.End) > len(src) {
			return nil, fmt.Errorf("edit [%d,%d) out of bounds", ed.Start, ed.End)
		}
		if ed.Start < cursor {
			return nil, fmt.Errorf("edit at %d: %w", ed.Start, ErrOverlappingEdits)
		}
		buf.Write(src[cursor:ed.Start])
		buf.WriteString(ed.Text)
		cursor = ed.End
	}
	buf.Write(src[cursor:])
	return buf.Bytes(), nil
}

// expandToLines widens [start, end) to whole lines when the range is the
// only non-blank content on them. A blank line after the range goes too
// when the range starts the file or follows a blank line.
func expandToLines(src []byte, start, end uint32) (uint32, uint32) {
	s, e, whole := wholeLines(src, start, end)
	if !whole {
		return s, e
	}
	if s == 0 || blankLineBefore(src, s) {
		if next, ok := blankLineAt(src, e); ok {
			e = next
		}
	}
	return s, e
}

func wholeLines(src []byte, start, end uint32) (uint32, uint32, bool) {
	s := start
	for s > 0 && (src[s-1] == ' ' || src[s-1] == '\t') {
		s--
	}
	if s > 0 && src[s-1] != '\n' {
		return start, end, false
	}

	e := end
	for int(e) < len(src) && (src[e] == ' ' || src[e] == '\t' || src[e] == ';') {
		e++
	}
	switch {
	case int(e) == len(src):
		return s, e, true
	case src[e] == '\r' && int(e+1) < len(src) && src[e+1] == '\n':
		return s, e + 2, true
	case src[e] == '\n':
		return s, e + 1, true
	default:
		return start, end, false
	}
}

// blankLineBefore reports whether the line ending just before offset s,
// which starts a line, holds only whitespace.
func blankLineBefore(src []byte, s uint32) bool {
	i := int(s) - 2
	for i >= 0 && (src[i] == ' ' || src[i] == '\t' || src[i] == '\r') {
		i--
	}
	return i < 0 || src[i] == '\n'
}

// blankLineAt returns the end of the blank line starting at e, if any.
func blankLineAt(src []byte, e uint32) (uint32, bool) {
	i := int(e)
	for i < len(src) && (src[i] == ' ' || src[i] == '\t' || src[i] == '\r') {
		i++
	}
	if i < len(src) && src[i] == '\n' {
		return uint32(i + 1), true
	}
	return e, false
}

// Dedent removes indent from the start of every line after the first.
func Dedent(text, indent string) string {
	if indent == "" {
		return text
	}
	lines := bytes.Split([]byte(text), []byte("\n"))
	for i := 1; i < len(lines); i++ {
		lines[i] = bytes.TrimPrefix(lines[i], []byte(indent))
	}
	return string(bytes.Join(lines, []byte("\n")))
}
