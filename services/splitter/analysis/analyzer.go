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
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tonguyenducmanh/split-file-javascript/services/splitter/ast"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var analysisTracer = otel.Tracer("jssplit.analysis")

// Analyze collects and resolves the declarations of an already parsed file.
//
// Description:
//
//	Runs the Collector, then the Resolver, then recomputes totals. The file
//	tree is only read.
//
// Inputs:
//
//	ctx - Context for tracing.
//	f   - Parsed file. Must not be nil.
//
// Outputs:
//
//	*Analysis - The resolved inventory.
func Analyze(ctx context.Context, f *ast.File) *Analysis {
	_, span := analysisTracer.Start(ctx, "analysis.Analyze")
	defer span.End()

	start := time.Now()
	a := Collect(f)
	stats := Resolve(f, a)
	a.Total()

	status := "ok"
	if f.HasErrors {
		status = "syntax_error"
	}
	recordAnalysis("javascript", status, a, stats, time.Since(start))

	span.SetAttributes(
		attribute.String("file", f.Path),
		attribute.Int("functions", a.TotalFunctions),
		attribute.Int("classes", a.TotalClasses),
		attribute.Int("sites", stats.Sites),
		attribute.Int("resolved", stats.Resolved),
	)
	return a
}

// Analyzer parses and analyzes JavaScript and Vue sources.
//
// Thread Safety:
//
//	Safe for concurrent use.
type Analyzer struct {
	parser *ast.Parser
	logger *slog.Logger
}

// NewAnalyzer creates an Analyzer. A nil parser or logger selects the default.
func NewAnalyzer(parser *ast.Parser, logger *slog.Logger) *Analyzer {
	if parser == nil {
		parser = ast.NewParser()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{parser: parser, logger: logger}
}

// Parser returns the parser used by the Analyzer.
func (z *Analyzer) Parser() *ast.Parser {
	return z.parser
}

// AnalyzeSource parses content and returns its inventory.
//
// Description:
//
//	Vue single-file components are recognized by extension and analyzed
//	through their methods object; every other path is treated as
//	JavaScript.
//
// Inputs:
//
//	ctx     - Context for cancellation and tracing.
//	content - Source bytes.
//	path    - Path recorded on the result and used for dispatch.
//
// Outputs:
//
//	*Analysis - The inventory.
//	error     - Parse failures, wrapped.
func (z *Analyzer) AnalyzeSource(ctx context.Context, content []byte, path string) (*Analysis, error) {
	if ast.IsVueFile(path) {
		return z.AnalyzeVue(ctx, content, path)
	}

	f, err := z.parser.Parse(ctx, content, path)
	if err != nil {
		RecordAnalysisFailure("javascript")
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	a := Analyze(ctx, f)
	if f.HasErrors {
		z.logger.Warn("analyzed file with syntax errors",
			slog.String("file", path),
		)
	}
	z.logger.Debug("analyzed file",
		slog.String("file", path),
		slog.Int("functions", a.TotalFunctions),
		slog.Int("classes", a.TotalClasses),
	)
	return a, nil
}
