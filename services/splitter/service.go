// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package splitter is the jssplit service facade.
//
// It ties the analysis, planning and rewrite packages to a file system
// and exposes them to the CLI and the HTTP API.
package splitter

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/tonguyenducmanh/split-file-javascript/services/splitter/analysis"
	"github.com/tonguyenducmanh/split-file-javascript/services/splitter/ast"
	"github.com/tonguyenducmanh/split-file-javascript/services/splitter/config"
	"github.com/tonguyenducmanh/split-file-javascript/services/splitter/plan"
	"github.com/tonguyenducmanh/split-file-javascript/services/splitter/rewrite"
	"github.com/tonguyenducmanh/split-file-javascript/services/splitter/snapshot"
	"github.com/tonguyenducmanh/split-file-javascript/services/splitter/workspace"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

var serviceTracer = otel.Tracer("jssplit.splitter")

// ErrSnapshotsDisabled is returned by snapshot operations when the service
// was built without a snapshot manager.
var ErrSnapshotsDisabled = errors.New("snapshot persistence not configured")

// ServiceConfig holds the collaborators of a Service.
type ServiceConfig struct {
	// Config is the loaded configuration. Nil selects config.Default().
	Config *config.Config

	// FS is the file system the service reads and writes. Nil selects an
	// OSFileSystem configured from Config.
	FS workspace.FileSystem

	// Snapshots is optional.
	Snapshots *snapshot.Manager

	Logger *slog.Logger
}

// Service analyzes and splits JavaScript sources.
//
// Thread Safety:
//
//	Safe for concurrent use. Concurrent splits touching the same files
//	race on their contents.
type Service struct {
	cfg         *config.Config
	fs          workspace.FileSystem
	analyzer    *analysis.Analyzer
	engine      *rewrite.Engine
	cache       *lru.Cache[string, *analysis.Analysis]
	snapshotMgr *snapshot.Manager
	logger      *slog.Logger
}

// NewService builds a Service from sc.
func NewService(sc ServiceConfig) (*Service, error) {
	cfg := sc.Config
	if cfg == nil {
		cfg = config.Default()
	}
	logger := sc.Logger
	if logger == nil {
		logger = slog.Default()
	}
	fs := sc.FS
	if fs == nil {
		fs = &workspace.OSFileSystem{
			RespectGitignore: cfg.Analysis.RespectGitignore,
			ExtraIgnores:     cfg.Analysis.Ignore,
		}
	}

	cache, err := lru.New[string, *analysis.Analysis](cfg.Server.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating analysis cache: %w", err)
	}

	parser := ast.NewParser(ast.WithMaxFileSize(cfg.Analysis.MaxFileSize))
	return &Service{
		cfg:      cfg,
		fs:       fs,
		analyzer: analysis.NewAnalyzer(parser, logger),
		engine: rewrite.NewEngine(logger,
			rewrite.WithInstanceParam(cfg.Rewrite.InstanceParam),
			rewrite.WithReExport(cfg.Rewrite.ReExport),
		),
		cache:       cache,
		snapshotMgr: sc.Snapshots,
		logger:      logger,
	}, nil
}

// Config returns the service configuration.
func (s *Service) Config() *config.Config {
	return s.cfg
}

// Snapshots returns the snapshot manager, or nil.
func (s *Service) Snapshots() *snapshot.Manager {
	return s.snapshotMgr
}

// AnalyzeFile reads and analyzes one file.
func (s *Service) AnalyzeFile(ctx context.Context, path string) (*analysis.Analysis, error) {
	content, err := s.fs.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return s.AnalyzeSource(ctx, content, path)
}

// AnalyzeSource analyzes content as if read from path. Results are cached
// by path and content hash.
func (s *Service) AnalyzeSource(ctx context.Context, content []byte, path string) (*analysis.Analysis, error) {
	sum := sha256.Sum256(content)
	key := path + "\x00" + hex.EncodeToString(sum[:])
	if a, ok := s.cache.Get(key); ok {
		return a, nil
	}
	a, err := s.analyzer.AnalyzeSource(ctx, content, path)
	if err != nil {
		return nil, err
	}
	s.cache.Add(key, a)
	return a, nil
}

// AnalyzeFiles analyzes every matching file below folder.
//
// Description:
//
//	Files are discovered with the configured extensions, honoring
//	.gitignore, and parsed concurrently up to the configured limit. The
//	report lists files sorted by path. Files the parser rejects as too
//	large or not UTF-8, and components without a script section, are
//	skipped with a warning; any other failure aborts the run.
//
//	When saveResultPath is not empty the report is written as indented
//	JSON. A path with an extension names the report file itself;
//	otherwise it names a directory that receives the configured result
//	file. Missing directories are created.
//
// Outputs:
//
//	*analysis.Report - The report.
//	error            - Walk, analysis or write failures.
func (s *Service) AnalyzeFiles(ctx context.Context, folder, saveResultPath string) (*analysis.Report, error) {
	ctx, span := serviceTracer.Start(ctx, "splitter.Service.AnalyzeFiles")
	defer span.End()

	files, err := s.fs.ListFiles(folder, s.cfg.Analysis.Extensions)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", folder, err)
	}

	results := make([]*analysis.Analysis, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Analysis.Concurrency)
	for i, file := range files {
		g.Go(func() error {
			a, err := s.AnalyzeFile(gctx, file)
			if skippable(err) {
				s.logger.Warn("skipping file", slog.String("file", file), slog.Any("error", err))
				return nil
			}
			if err != nil {
				return err
			}
			results[i] = a
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := analysis.NewReport(folder, results)
	if saveResultPath != "" {
		if _, err := s.SaveReport(report, saveResultPath); err != nil {
			return nil, err
		}
	}

	span.SetAttributes(
		attribute.String("folder", folder),
		attribute.Int("files", len(report.Files)),
		attribute.Int("functions", report.TotalFunctions),
		attribute.Int("classes", report.TotalClasses),
	)
	s.logger.Info("folder analyzed",
		slog.String("folder", folder),
		slog.Int("files", len(report.Files)),
		slog.Int("functions", report.TotalFunctions),
		slog.Int("classes", report.TotalClasses),
	)
	return report, nil
}

func skippable(err error) bool {
	return errors.Is(err, ast.ErrFileTooLarge) ||
		errors.Is(err, ast.ErrInvalidContent) ||
		errors.Is(err, ast.ErrNoScriptSection)
}

// SaveReport writes report as indented JSON and returns the file written.
// A saveResultPath without an extension is a directory that receives the
// configured result file.
func (s *Service) SaveReport(report *analysis.Report, saveResultPath string) (string, error) {
	path := saveResultPath
	if filepath.Ext(path) == "" {
		path = filepath.Join(path, s.cfg.Analysis.ResultFile)
	}
	data, err := report.MarshalIndent()
	if err != nil {
		return "", err
	}
	if err := workspace.WriteFileAll(s.fs, path, data); err != nil {
		return "", fmt.Errorf("saving report: %w", err)
	}
	s.logger.Info("report saved", slog.String("path", path))
	return path, nil
}

// FilePlan is the dependency plan for one source file.
type FilePlan struct {
	File         string             `json:"file"`
	Dependencies plan.DependencyMap `json:"dependencies"`
	Dangling     []plan.Dangling    `json:"dangling"`

	// Unmatched lists the plan items naming nothing in the file.
	Unmatched []string `json:"unmatched"`
}

// Plan computes the imports and dangling references a split would
// produce, without rewriting anything.
func (s *Service) Plan(ctx context.Context, p *plan.SplitPlan, defaultFile string) ([]*FilePlan, error) {
	ctx, span := serviceTracer.Start(ctx, "splitter.Service.Plan")
	defer span.End()

	work, err := withDefaultFile(p, defaultFile)
	if err != nil {
		return nil, err
	}

	out := make([]*FilePlan, 0)
	for _, file := range work.Files() {
		a, err := s.AnalyzeFile(ctx, file)
		if err != nil {
			return nil, err
		}
		groups := work.ForFile(file)
		planned := plan.PlanDependencies(ctx, a, groups)
		fp := &FilePlan{
			File:         file,
			Dependencies: planned.Dependencies,
			Dangling:     planned.Dangling,
			Unmatched:    make([]string, 0),
		}
		if fp.Dangling == nil {
			fp.Dangling = make([]plan.Dangling, 0)
		}
		for _, g := range groups {
			for _, it := range g.Items {
				if !it.IsClass() || len(it.Methods) == 0 {
					if _, ok := planned.Targets.Lookup(it.OriginalName()); !ok {
						fp.Unmatched = append(fp.Unmatched, it.String())
					}
					continue
				}
				for _, m := range it.Methods {
					if _, ok := planned.Targets.Lookup(analysis.Qualify(it.Class, m.Name)); !ok {
						fp.Unmatched = append(fp.Unmatched, analysis.Qualify(it.Class, m.Name))
					}
				}
			}
		}
		out = append(out, fp)
	}
	span.SetAttributes(attribute.Int("files", len(out)))
	return out, nil
}

// Split executes p against the service's file system.
func (s *Service) Split(ctx context.Context, p *plan.SplitPlan, defaultFile string) (*rewrite.Result, error) {
	return rewrite.NewSplitter(s.fs, s.analyzer, s.engine, s.logger).Split(ctx, p, defaultFile)
}

// Preview is the outcome of a dry run.
type Preview struct {
	Result *rewrite.Result `json:"result"`

	// Diff is the multi-file unified diff of every file the run would write.
	Diff string `json:"diff"`

	Changes []workspace.Change `json:"-"`
}

// Preview runs p against an in-memory overlay and renders the result as a
// unified diff. Nothing is written.
func (s *Service) Preview(ctx context.Context, p *plan.SplitPlan, defaultFile string) (*Preview, error) {
	ctx, span := serviceTracer.Start(ctx, "splitter.Service.Preview")
	defer span.End()

	overlay := workspace.NewOverlay(s.fs)
	result, err := rewrite.NewSplitter(overlay, s.analyzer, s.engine, s.logger).Split(ctx, p, defaultFile)
	if result != nil {
		result.DryRun = true
	}
	if err != nil {
		return &Preview{Result: result}, err
	}

	changes := overlay.Changes()
	text, err := UnifiedDiff(changes)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("changes", len(changes)))
	return &Preview{Result: result, Diff: string(text), Changes: changes}, nil
}

// SaveSnapshot analyzes root and stores the report.
func (s *Service) SaveSnapshot(ctx context.Context, root, label string) (*snapshot.Metadata, *analysis.Report, error) {
	if s.snapshotMgr == nil {
		return nil, nil, ErrSnapshotsDisabled
	}
	report, err := s.AnalyzeFiles(ctx, root, "")
	if err != nil {
		return nil, nil, err
	}
	meta, err := s.snapshotMgr.Save(ctx, report, label)
	if err != nil {
		return nil, nil, err
	}
	return meta, report, nil
}

func withDefaultFile(p *plan.SplitPlan, defaultFile string) (*plan.SplitPlan, error) {
	work := p.Clone()
	for _, g := range work.Groups {
		if g.File != "" {
			continue
		}
		if defaultFile == "" {
			return nil, fmt.Errorf("group for %s: %w", g.Destination, rewrite.ErrNoSourceFile)
		}
		g.File = defaultFile
	}
	return work, nil
}
