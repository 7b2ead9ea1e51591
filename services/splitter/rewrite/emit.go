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
	"path"
	"path/filepath"
	"strings"

	"github.com/tonguyenducmanh/split-file-javascript/services/splitter/ast"
)

// specifier is one binding of an import statement.
type specifier struct {
	exported string
	local    string
}

func (s specifier) String() string {
	if s.exported == s.local {
		return s.local
	}
	return s.exported + " as " + s.local
}

// importGroup collects specifiers for one module path in insertion order.
type importGroup struct {
	from  string
	specs []specifier
	seen  map[string]bool
}

// importSet aggregates imports by module path in first-seen order.
type importSet struct {
	groups []*importGroup
	byPath map[string]*importGroup
}

func newImportSet() *importSet {
	return &importSet{byPath: make(map[string]*importGroup)}
}

// add registers a binding. A local name is bound at most once per module.
func (s *importSet) add(from, exported, local string) {
	g, ok := s.byPath[from]
	if !ok {
		g = &importGroup{from: from, seen: make(map[string]bool)}
		s.byPath[from] = g
		s.groups = append(s.groups, g)
	}
	if g.seen[local] {
		return
	}
	g.seen[local] = true
	g.specs = append(g.specs, specifier{exported: exported, local: local})
}

func (s *importSet) empty() bool {
	return len(s.groups) == 0
}

// render prints one import statement per module path.
func (s *importSet) render(quote string) string {
	var b strings.Builder
	for i, g := range s.groups {
		if i > 0 {
			b.WriteString("\n")
		}
		parts := make([]string, len(g.specs))
		for j, sp := range g.specs {
			parts[j] = sp.String()
		}
		b.WriteString("import { ")
		b.WriteString(strings.Join(parts, ", "))
		b.WriteString(" } from ")
		b.WriteString(quote + g.from + quote)
		b.WriteString(";")
	}
	return b.String()
}

// outputPath is the file a destination of source is written to.
func outputPath(source, dest string) string {
	return filepath.Join(filepath.Dir(source), filepath.FromSlash(dest))
}

// importPathFromSource is the specifier the original file uses for dest.
func importPathFromSource(dest string) string {
	return "./" + strings.TrimPrefix(filepath.ToSlash(dest), "./")
}

// importPathBetween is the specifier destination from uses for to. Both
// are relative to the source file's directory.
func importPathBetween(from, to string) string {
	from = path.Clean(filepath.ToSlash(from))
	to = path.Clean(filepath.ToSlash(to))
	rel, err := filepath.Rel(filepath.FromSlash(path.Dir(from)), filepath.FromSlash(to))
	if err != nil {
		return importPathFromSource(to)
	}
	rel = filepath.ToSlash(rel)
	if strings.HasPrefix(rel, "../") {
		return rel
	}
	return "./" + rel
}

// quoteStyle returns the quote character the file's imports already use,
// or a double quote.
func quoteStyle(f *ast.File) string {
	for _, stmt := range f.TopLevel() {
		if stmt.Kind != ast.KindImportStatement {
			continue
		}
		if src := stmt.ChildByField("source"); src != nil {
			if text := f.Text(src); strings.HasPrefix(text, "'") {
				return "'"
			}
			return "\""
		}
	}
	return "\""
}

// importInsertionPoint returns where new imports go: after the last
// leading import, directive or hashbang, or at the start of the file.
// The boolean is false when nothing precedes the insertion point.
func importInsertionPoint(f *ast.File) (uint32, bool) {
	var offset uint32
	found := false
	for _, stmt := range f.Root.Children {
		switch {
		case stmt.Kind == ast.KindHashBang, stmt.Kind == ast.KindImportStatement, isDirective(stmt):
			offset = stmt.EndByte
			found = true
		case stmt.Kind == ast.KindComment:
		default:
			return offset, found
		}
	}
	return offset, found
}

// isDirective reports whether stmt is a prologue string like "use strict".
func isDirective(stmt *ast.Node) bool {
	if stmt.Kind != ast.KindExpressionStatement {
		return false
	}
	named := stmt.NamedChildren()
	return len(named) == 1 && named[0].Kind == ast.KindString
}

// reexport renders the statement that keeps a moved export visible from
// the original module.
func reexport(local string, isDefault bool) string {
	if isDefault {
		return "export default " + local + ";"
	}
	return "export { " + local + " };"
}
