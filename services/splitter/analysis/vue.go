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
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tonguyenducmanh/split-file-javascript/services/splitter/ast"
	"go.opentelemetry.io/otel/attribute"
)

// VueMethod is one entry of a component's methods object.
type VueMethod struct {
	Name string

	// Entry is the pair or method_definition inside the methods object.
	Entry *ast.Node
}

// VueComponentObject returns the options object of a component script:
// the object exported by default, unwrapping a defineComponent or
// Vue.extend call. Returns nil when the script has no such export.
func VueComponentObject(f *ast.File) *ast.Node {
	for _, stmt := range f.TopLevel() {
		if stmt.Kind != ast.KindExportStatement || !stmt.HasToken("default") {
			continue
		}
		value := stmt.ChildByField("value")
		if value == nil {
			return nil
		}
		if value.Kind == ast.KindCallExpression {
			args := value.ChildByField("arguments")
			if args == nil {
				return nil
			}
			value = args.FirstChildOfKind(ast.KindObject)
		}
		if value != nil && value.Kind == ast.KindObject {
			return value
		}
		return nil
	}
	return nil
}

// VueMethodsObject returns the object held under the "methods" key of the
// component options, or nil.
func VueMethodsObject(f *ast.File) *ast.Node {
	component := VueComponentObject(f)
	if component == nil {
		return nil
	}
	for _, pair := range component.ChildrenOfKind(ast.KindPair) {
		key := pair.ChildByField("key")
		if key == nil || !isPlainName(key) || f.Text(key) != "methods" {
			continue
		}
		if value := pair.ChildByField("value"); value != nil && value.Kind == ast.KindObject {
			return value
		}
	}
	return nil
}

// VueMethods lists the function-valued entries of the methods object in
// source order. Shorthand methods and key: function pairs both count.
func VueMethods(f *ast.File) []VueMethod {
	methods := VueMethodsObject(f)
	if methods == nil {
		return nil
	}
	var out []VueMethod
	for _, entry := range methods.NamedChildren() {
		switch entry.Kind {
		case ast.KindMethodDefinition:
			if name, ok := methodName(f, entry); ok {
				out = append(out, VueMethod{Name: name, Entry: entry})
			}
		case ast.KindPair:
			key := entry.ChildByField("key")
			value := entry.ChildByField("value")
			if key == nil || value == nil || !isPlainName(key) {
				continue
			}
			if value.Kind == ast.KindFunctionExpression || value.Kind == ast.KindArrowFunction {
				out = append(out, VueMethod{Name: f.Text(key), Entry: entry})
			}
		default:
		}
	}
	return out
}

// AnalyzeVue inventories the methods of a Vue single-file component.
//
// Description:
//
//	The first <script> block is parsed as JavaScript and each entry of the
//	default export's methods object becomes a function declaration marked
//	IsVueMethod. Line numbers are reported relative to the component file.
//	Call sites are not resolved inside components.
//
// Inputs:
//
//	ctx     - Context for cancellation and tracing.
//	content - The full component source.
//	path    - Path recorded on the result.
//
// Outputs:
//
//	*Analysis - Inventory of methods. Empty when there is no methods object.
//	error     - ErrNoScriptSection or a parse failure, wrapped.
func (z *Analyzer) AnalyzeVue(ctx context.Context, content []byte, path string) (*Analysis, error) {
	ctx, span := analysisTracer.Start(ctx, "analysis.AnalyzeVue")
	defer span.End()

	start := time.Now()
	section, err := ast.ExtractScriptSection(content)
	if err != nil {
		RecordAnalysisFailure("vue")
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	f, err := z.parser.Parse(ctx, []byte(section.Content), path)
	if err != nil {
		RecordAnalysisFailure("vue")
		return nil, fmt.Errorf("parsing script of %s: %w", path, err)
	}

	offset := bytes.Count(content[:section.Start], []byte("\n"))

	a := NewAnalysis(path)
	a.Hash = f.Hash
	for _, m := range VueMethods(f) {
		a.Functions = append(a.Functions, &Declaration{
			Name:        m.Name,
			Kind:        KindFunction,
			StartLine:   m.Entry.StartLine + offset,
			EndLine:     m.Entry.EndLine + offset,
			LineCount:   m.Entry.LineCount(),
			References:  make([]Reference, 0),
			IsVueMethod: true,
		})
	}
	if f.HasErrors {
		a.Warnings = append(a.Warnings, "script section contains syntax errors; inventory may be incomplete")
	}
	a.Total()

	status := "ok"
	if f.HasErrors {
		status = "syntax_error"
	}
	recordAnalysis("vue", status, a, ResolveStats{}, time.Since(start))

	span.SetAttributes(
		attribute.String("file", path),
		attribute.Int("methods", a.TotalFunctions),
	)
	z.logger.Debug("analyzed vue component",
		slog.String("file", path),
		slog.Int("methods", a.TotalFunctions),
	)
	return a, nil
}
