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

	"github.com/google/uuid"
	"github.com/tonguyenducmanh/split-file-javascript/services/splitter/analysis"
	"github.com/tonguyenducmanh/split-file-javascript/services/splitter/ast"
	"github.com/tonguyenducmanh/split-file-javascript/services/splitter/plan"
	"github.com/tonguyenducmanh/split-file-javascript/services/splitter/workspace"
	"go.opentelemetry.io/otel/attribute"
)

// ErrNoSourceFile is returned when a group names no source file and the
// caller supplied none.
var ErrNoSourceFile = errors.New("plan group has no source file")

// Splitter executes a SplitPlan against a file system.
//
// Description:
//
//	Source files are processed one at a time in the order the plan first
//	names them. For each file the destinations are written first, then
//	the rewritten original. A failure stops the run; files already
//	written stay written.
//
// Thread Safety:
//
//	Safe for concurrent use when the FileSystem is; concurrent runs over
//	the same files race on their contents.
type Splitter struct {
	fs       workspace.FileSystem
	analyzer *analysis.Analyzer
	engine   *Engine
	logger   *slog.Logger
}

// NewSplitter creates a Splitter. Nil analyzer, engine or logger select
// the defaults.
func NewSplitter(fs workspace.FileSystem, analyzer *analysis.Analyzer, engine *Engine, logger *slog.Logger) *Splitter {
	if logger == nil {
		logger = slog.Default()
	}
	if analyzer == nil {
		analyzer = analysis.NewAnalyzer(nil, logger)
	}
	if engine == nil {
		engine = NewEngine(logger)
	}
	return &Splitter{fs: fs, analyzer: analyzer, engine: engine, logger: logger}
}

// Split runs p and reports what moved.
//
// Inputs:
//
//	ctx         - Context for cancellation and tracing.
//	p           - The plan. Not modified.
//	defaultFile - Source file for groups that name none. May be empty when
//	              every group names its file.
//
// Outputs:
//
//	*Result - Always non-nil, also on error, describing the work done.
//	error   - ErrNoSourceFile, read or write failures, ast.ErrSyntax.
func (s *Splitter) Split(ctx context.Context, p *plan.SplitPlan, defaultFile string) (*Result, error) {
	ctx, span := rewriteTracer.Start(ctx, "rewrite.Splitter.Split")
	defer span.End()

	result := &Result{
		RunID:          uuid.NewString(),
		ExtractedItems: make([]ExtractedItem, 0),
		NotFound:       make([]*plan.Group, 0),
		Written:        make([]string, 0),
	}

	work := p.Clone()
	for _, g := range work.Groups {
		if g.File != "" {
			continue
		}
		if defaultFile == "" {
			return result, fmt.Errorf("group for %s: %w", g.Destination, ErrNoSourceFile)
		}
		g.File = defaultFile
	}

	logger := s.logger.With(slog.String("run_id", result.RunID))
	for _, file := range work.Files() {
		if err := ctx.Err(); err != nil {
			result.NotFound = work.Remaining()
			return result, fmt.Errorf("split canceled: %w", err)
		}
		if err := s.splitFile(ctx, logger, file, work.ForFile(file), result); err != nil {
			result.NotFound = work.Remaining()
			return result, err
		}
	}

	result.NotFound = work.Remaining()
	recordNotFound(result.NotFound)

	span.SetAttributes(
		attribute.String("run_id", result.RunID),
		attribute.Int("extracted", len(result.ExtractedItems)),
		attribute.Int("not_found_groups", len(result.NotFound)),
	)
	logger.Info("split complete",
		slog.Int("extracted", len(result.ExtractedItems)),
		slog.Int("written", len(result.Written)),
		slog.Int("not_found_groups", len(result.NotFound)),
		slog.Int("dangling", len(result.Dangling)),
	)
	return result, nil
}

func (s *Splitter) splitFile(ctx context.Context, logger *slog.Logger, file string, groups []*plan.Group, result *Result) error {
	content, err := s.fs.ReadFile(file)
	if err != nil {
		return err
	}

	var rw *FileRewrite
	if ast.IsVueFile(file) {
		rw, err = s.engine.RewriteVue(ctx, s.analyzer.Parser(), content, file, groups)
		if errors.Is(err, ErrNoMethodsObject) || errors.Is(err, ast.ErrNoScriptSection) {
			logger.Warn("skipping component", slog.String("file", file), slog.String("reason", err.Error()))
			result.Warnings = append(result.Warnings, err.Error())
			return nil
		}
	} else {
		var f *ast.File
		f, err = s.analyzer.Parser().Parse(ctx, content, file)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", file, err)
		}
		rw, err = s.engine.Rewrite(ctx, f, analysis.Analyze(ctx, f), groups)
	}
	if err != nil {
		return err
	}

	for _, out := range rw.Outputs {
		if err := workspace.WriteFileAll(s.fs, out.Path, out.Content); err != nil {
			return err
		}
		result.Written = append(result.Written, out.Path)
	}
	if rw.Original != nil {
		if err := s.fs.WriteFile(file, rw.Original); err != nil {
			return err
		}
		result.Written = append(result.Written, file)
	}

	result.ExtractedItems = append(result.ExtractedItems, rw.Extracted...)
	result.Dangling = append(result.Dangling, rw.Dangling...)
	result.Warnings = append(result.Warnings, rw.Warnings...)
	for _, d := range rw.Dangling {
		logger.Warn("moved code references a declaration left behind", slog.String("detail", d.String()))
	}
	logger.Debug("split file",
		slog.String("file", file),
		slog.Int("extracted", len(rw.Extracted)),
		slog.Int("outputs", len(rw.Outputs)),
	)
	return nil
}
