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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"regexp"
	"strings"

	"github.com/tonguyenducmanh/split-file-javascript/services/splitter/analysis"
	"github.com/tonguyenducmanh/split-file-javascript/services/splitter/ast"
	"github.com/tonguyenducmanh/split-file-javascript/services/splitter/plan"
	"go.opentelemetry.io/otel/attribute"
)

// ErrNoMethodsObject is returned for a component without a methods object.
var ErrNoMethodsObject = errors.New("no methods object in Vue component")

var kebabRe = regexp.MustCompile(`-([a-z])`)

// vueImportName derives the default-import binding for a destination:
// its base name without extension, kebab-case turned into camelCase.
func vueImportName(dest string) string {
	base := path.Base(strings.ReplaceAll(dest, "\\", "/"))
	base = strings.TrimSuffix(base, path.Ext(base))
	return kebabRe.ReplaceAllStringFunc(base, func(m string) string {
		return strings.ToUpper(m[1:])
	})
}

// RewriteVue moves selected methods of a component's methods object into
// destination files.
//
// Description:
//
//	Each destination receives "export default { ... }" holding the moved
//	methods in shorthand form, so this still binds to the component. The
//	component imports every destination by default import and spreads it
//	at the start of its methods object. Only bare items apply; the markup
//	and the script tag's attributes are left untouched.
//
// Inputs:
//
//	ctx     - Context for tracing.
//	parser  - Parser for the script block.
//	content - The full component source.
//	file    - Component path; destinations resolve against its directory.
//	groups  - Groups for the component, mutated in place.
//
// Outputs:
//
//	*FileRewrite - The rewritten component and destination files.
//	error        - ErrNoScriptSection, ErrNoMethodsObject, ErrSyntax, or a
//	               parse failure.
func (e *Engine) RewriteVue(ctx context.Context, parser *ast.Parser, content []byte, file string, groups []*plan.Group) (*FileRewrite, error) {
	ctx, span := rewriteTracer.Start(ctx, "rewrite.Engine.RewriteVue")
	defer span.End()

	section, err := ast.ExtractScriptSection(content)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	f, err := parser.Parse(ctx, []byte(section.Content), file)
	if err != nil {
		return nil, fmt.Errorf("parsing script of %s: %w", file, err)
	}
	if f.HasErrors {
		recordRewrite("refused")
		return nil, fmt.Errorf("%s: %w", file, ast.ErrSyntax)
	}
	methodsObject := analysis.VueMethodsObject(f)
	if methodsObject == nil {
		return nil, fmt.Errorf("%s: %w", file, ErrNoMethodsObject)
	}

	entries := make(map[string]*ast.Node)
	for _, m := range analysis.VueMethods(f) {
		if _, dup := entries[m.Name]; !dup {
			entries[m.Name] = m.Entry
		}
	}

	result := &FileRewrite{SourcePath: file}
	editor := ast.NewEditor(f)
	taken := make(map[string]bool)
	var destOrder []string
	bodies := make(map[string][]string)

	for _, g := range groups {
		dest := g.Destination
		items := append([]plan.Item(nil), g.Items...)
		for _, it := range items {
			if it.IsClass() {
				continue
			}
			entry, ok := entries[it.Name]
			if !ok || taken[it.Name] {
				continue
			}
			text, err := vueMethodText(f, entry, it.Name)
			if err != nil {
				return nil, fmt.Errorf("rendering %s: %w", it.Name, err)
			}
			if it.NewName != "" && it.NewName != it.Name {
				result.Warnings = append(result.Warnings,
					fmt.Sprintf("%s: component methods keep their name; newName %q ignored", it.Name, it.NewName))
			}

			start := f.StatementStart(entry)
			end := entry.EndByte
			if next := entry.NextSibling(); next != nil && next.Kind == ast.KindToken && next.Type == "," {
				end = next.EndByte
			}
			editor.RemoveLines(start, end)

			taken[it.Name] = true
			if _, seen := bodies[dest]; !seen {
				destOrder = append(destOrder, dest)
			}
			bodies[dest] = append(bodies[dest], text)
			result.Extracted = append(result.Extracted, ExtractedItem{
				Name:         it.Name,
				OriginalName: it.Name,
				Destination:  dest,
				Path:         outputPath(file, dest),
				Kind:         "method",
			})
			recordExtracted("method")
			g.RemoveItem(it.Name)
		}
	}

	if len(destOrder) == 0 {
		recordRewrite("unchanged")
		return result, nil
	}

	quote := quoteStyle(f)
	memberIndent := vueMemberIndent(f, methodsObject)
	var imports []string
	for _, dest := range destOrder {
		name := vueImportName(dest)
		imports = append(imports, "import "+name+" from "+quote+importPathFromSource(dest)+quote+";")
		editor.Insert(methodsObject.StartByte+1, "\n"+memberIndent+"..."+name+",")

		var b strings.Builder
		b.WriteString("export default {\n")
		for i, body := range bodies[dest] {
			if i > 0 {
				b.WriteString(",\n\n")
			}
			b.WriteString(indentLines(body, "  "))
		}
		b.WriteString(",\n};\n")
		result.Outputs = append(result.Outputs, Output{
			Destination: dest,
			Path:        outputPath(file, dest),
			Content:     []byte(b.String()),
		})
	}

	importText := strings.Join(imports, "\n")
	if offset, found := importInsertionPoint(f); found {
		editor.Insert(offset, "\n"+importText)
	} else {
		editor.Insert(0, importText+"\n")
	}

	script, err := editor.Apply()
	if err != nil {
		return nil, fmt.Errorf("rewriting %s: %w", file, err)
	}
	result.Original = ast.ReplaceScriptSection(content, section, string(script))
	recordRewrite("rewritten")

	span.SetAttributes(
		attribute.String("file", file),
		attribute.Int("extracted", len(result.Extracted)),
	)
	e.logger.Debug("rewrote vue component",
		slog.String("file", file),
		slog.Int("extracted", len(result.Extracted)),
	)
	return result, nil
}

// vueMethodText renders a methods entry in shorthand form with its leading
// comments, dedented to column zero.
func vueMethodText(f *ast.File, entry *ast.Node, name string) (string, error) {
	lead := string(f.Source[f.StatementStart(entry):entry.StartByte])
	indent := f.LineIndent(entry)
	if entry.Kind == ast.KindMethodDefinition {
		return ast.Dedent(lead+f.Text(entry), indent), nil
	}

	value := entry.ChildByField("value")
	fn, err := synthesizeFunction(f, value, name, nil)
	if err != nil {
		return "", err
	}
	shorthand := strings.TrimPrefix(fn, functionHeader(value)+" ")
	prefix := ""
	if value.HasToken("async") {
		prefix = "async "
	}
	if value.HasToken("*") {
		prefix += "*"
	}
	return ast.Dedent(lead, indent) + prefix + shorthand, nil
}

// vueMemberIndent returns the indentation of the methods object's entries.
func vueMemberIndent(f *ast.File, object *ast.Node) string {
	for _, c := range object.NamedChildren() {
		if c.StartLine != object.StartLine {
			return f.LineIndent(c)
		}
	}
	return f.LineIndent(object) + "  "
}

// indentLines prefixes every non-empty line of text with indent.
func indentLines(text, indent string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if strings.TrimSpace(line) != "" {
			lines[i] = indent + line
		}
	}
	return strings.Join(lines, "\n")
}
