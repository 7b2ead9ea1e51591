// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package rewrite relocates planned declarations into destination files and
// rewrites the source file so behavior is preserved.
package rewrite

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/tonguyenducmanh/split-file-javascript/services/splitter/analysis"
	"github.com/tonguyenducmanh/split-file-javascript/services/splitter/ast"
	"github.com/tonguyenducmanh/split-file-javascript/services/splitter/plan"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var rewriteTracer = otel.Tracer("jssplit.rewrite")

// EngineOptions configures an Engine.
type EngineOptions struct {
	// InstanceParam names the leading parameter of extracted instance
	// methods. Default: "instance".
	InstanceParam string

	// ReExport keeps moved exports visible from the original module.
	// Default: true.
	ReExport bool
}

// DefaultEngineOptions returns sensible defaults.
func DefaultEngineOptions() EngineOptions {
	return EngineOptions{
		InstanceParam: "instance",
		ReExport:      true,
	}
}

// EngineOption configures an Engine.
type EngineOption func(*EngineOptions)

// WithInstanceParam sets the name of the extracted method's instance parameter.
func WithInstanceParam(name string) EngineOption {
	return func(o *EngineOptions) {
		if name != "" {
			o.InstanceParam = name
		}
	}
}

// WithReExport toggles re-exporting moved exports from the original module.
func WithReExport(enabled bool) EngineOption {
	return func(o *EngineOptions) {
		o.ReExport = enabled
	}
}

// Engine is the split/rewrite engine.
//
// Thread Safety:
//
//	An Engine holds no per-run state and is safe for concurrent use. A
//	single Rewrite call mutates the groups it is given.
type Engine struct {
	options EngineOptions
	logger  *slog.Logger
}

// NewEngine creates an Engine. A nil logger selects slog.Default().
func NewEngine(logger *slog.Logger, opts ...EngineOption) *Engine {
	options := DefaultEngineOptions()
	for _, opt := range opts {
		opt(&options)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{options: options, logger: logger}
}

// moved is one declaration pending emission into a destination.
type moved struct {
	identity string
	local    string
	newName  string
	kind     string
	text     string
	unit     *unit

	// proxy marks extracted methods; the original calls them by newName.
	proxy bool
}

// fileRewriter holds the state of one Rewrite call.
type fileRewriter struct {
	e      *Engine
	f      *ast.File
	plan   *plan.Plan
	units  map[string]*unit
	editor *ast.Editor

	renames     map[string]map[string]string
	identifiers map[string][]*ast.Node

	pending     map[string][]*moved
	destOrder   []string
	extracted   map[string]bool
	removed     [][2]uint32
	proxyLocals map[string]bool

	boundOrder    []*ast.Node
	boundRemovals map[*ast.Node][]*unit

	result *FileRewrite
}

// Rewrite relocates the items of groups out of f.
//
// Description:
//
//	Groups are processed in order and items in order; every successfully
//	relocated item is removed from its group, so whatever remains in the
//	groups afterwards was not found. Plain functions and classes move
//	verbatim; bound functions and arrows are rewritten to declaration
//	form; classes at method granularity keep their shape and get proxy
//	bodies for the extracted methods. Each destination file starts with
//	the imports it needs from other destinations. The original receives
//	one import per destination it still uses.
//
// Inputs:
//
//	ctx    - Context for tracing.
//	f      - Parsed source. Must not contain syntax errors.
//	a      - Resolved inventory of f.
//	groups - Groups for f, mutated in place.
//
// Outputs:
//
//	*FileRewrite - Rewritten original and destination files.
//	error        - ast.ErrSyntax, or an edit failure.
func (e *Engine) Rewrite(ctx context.Context, f *ast.File, a *analysis.Analysis, groups []*plan.Group) (*FileRewrite, error) {
	ctx, span := rewriteTracer.Start(ctx, "rewrite.Engine.Rewrite")
	defer span.End()

	if f.HasErrors {
		recordRewrite("refused")
		return nil, fmt.Errorf("%s: %w", f.Path, ast.ErrSyntax)
	}

	r := &fileRewriter{
		e:             e,
		f:             f,
		plan:          plan.PlanDependencies(ctx, a, groups),
		units:         topLevelUnits(f),
		editor:        ast.NewEditor(f),
		pending:       make(map[string][]*moved),
		extracted:     make(map[string]bool),
		proxyLocals:   make(map[string]bool),
		boundRemovals: make(map[*ast.Node][]*unit),
		result:        &FileRewrite{SourcePath: f.Path},
	}
	r.indexIdentifiers()
	r.buildRenames()

	for _, g := range groups {
		items := append([]plan.Item(nil), g.Items...)
		for _, it := range items {
			if err := r.processItem(g, it); err != nil {
				return nil, err
			}
		}
	}
	r.finishBoundRemovals()

	if err := r.emitOriginal(); err != nil {
		return nil, err
	}
	r.emitDestinations()
	r.result.Dangling = append(r.result.Dangling, r.plan.Dangling...)

	status := "unchanged"
	if r.result.Changed() {
		status = "rewritten"
	}
	recordRewrite(status)

	span.SetAttributes(
		attribute.String("file", f.Path),
		attribute.Int("extracted", len(r.result.Extracted)),
		attribute.Int("destinations", len(r.result.Outputs)),
		attribute.Int("dangling", len(r.result.Dangling)),
	)
	e.logger.Debug("rewrote file",
		slog.String("file", f.Path),
		slog.Int("extracted", len(r.result.Extracted)),
		slog.Int("destinations", len(r.result.Outputs)),
	)
	return r.result, nil
}

func (r *fileRewriter) processItem(g *plan.Group, it plan.Item) error {
	if !it.IsClass() {
		t, ok := r.plan.Targets.Lookup(it.Name)
		if !ok || t.Group != g || t.IsMethod() {
			return nil
		}
		u := r.units[it.Name]
		if u == nil || (u.kind == unitClass) != (t.Granularity == plan.GranularityWhole) {
			return nil
		}
		if err := r.move(u, t); err != nil {
			return err
		}
		g.RemoveItem(it.Name)
		return nil
	}

	u := r.units[it.Class]
	if u == nil || u.kind != unitClass {
		return nil
	}
	if t, ok := r.plan.Targets.Lookup(it.Class); ok {
		if t.Group == g && t.Granularity == plan.GranularityWhole {
			if err := r.move(u, t); err != nil {
				return err
			}
			g.RemoveItem(it.Class)
		}
		return nil
	}

	methods := append([]plan.MethodItem(nil), it.Methods...)
	for _, sel := range methods {
		key := analysis.Qualify(it.Class, sel.Name)
		t, ok := r.plan.Targets.Lookup(key)
		if !ok || t.Group != g || t.Granularity != plan.GranularityMethod {
			continue
		}
		method := classMethod(r.f, u.decl, sel.Name)
		if method == nil {
			continue
		}
		if err := r.extractMethod(u, method, t); err != nil {
			r.result.Warnings = append(r.result.Warnings, fmt.Sprintf("%s: %v", key, err))
			continue
		}
		g.RemoveMethod(it.Class, sel.Name)
	}
	return nil
}

// move relocates a whole top-level unit.
func (r *fileRewriter) move(u *unit, t plan.Target) error {
	var (
		text string
		err  error
	)
	switch u.kind {
	case unitBound:
		edits := r.renameEdits(t.Destination, u.fn.StartByte, u.fn.EndByte)
		text, err = synthesizeFunction(r.f, u.fn, t.NewName, edits)
	default:
		edits := r.renameEdits(t.Destination, u.decl.StartByte, u.decl.EndByte)
		text, err = r.f.Fragment(u.decl, edits)
	}
	if err != nil {
		return fmt.Errorf("rendering %s: %w", u.identity, err)
	}

	lead := ""
	if u.kind != unitBound || u.soleDeclarator() {
		lead = string(r.f.Source[r.f.StatementStart(u.stmt):u.stmt.StartByte])
	}

	switch {
	case u.kind == unitBound && u.container != nil:
		r.boundRemovals[u.container] = append(r.boundRemovals[u.container], u)
		if len(r.boundRemovals[u.container]) == 1 {
			r.boundOrder = append(r.boundOrder, u.container)
		}
	case u.exported && r.e.options.ReExport:
		r.editor.ReplaceStatement(u.stmt, reexport(u.local, u.isDefault))
		r.markRemoved(r.f.StatementStart(u.stmt), u.stmt.EndByte)
	default:
		r.editor.RemoveStatement(u.stmt)
		r.markRemoved(r.f.StatementStart(u.stmt), u.stmt.EndByte)
	}

	kind := "function"
	if u.kind == unitClass {
		kind = "class"
	}
	r.queue(t, &moved{
		identity: u.identity,
		local:    u.local,
		newName:  t.NewName,
		kind:     kind,
		text:     lead + "export " + text,
		unit:     u,
	})
	return nil
}

// extractMethod turns one method into a free function plus proxy.
func (r *fileRewriter) extractMethod(u *unit, method *ast.Node, t plan.Target) error {
	instance := r.e.options.InstanceParam
	renames := r.renameEdits(t.Destination, method.StartByte, method.EndByte)
	parts, err := extractMethodParts(r.f, method, instance, renames)
	if err != nil {
		return err
	}

	body := method.ChildByField("body")
	local := r.proxyLocal(t.Class, t.NewName, body)
	r.proxyLocals[local] = true
	r.editor.Replace(body, parts.proxyBody(r.f, method, local))
	r.markRemoved(body.StartByte, body.EndByte)

	r.queue(t, &moved{
		identity: t.OriginalName,
		local:    local,
		newName:  t.NewName,
		kind:     "method",
		text:     "export " + parts.freeFunction(method, t.NewName, instance),
		unit:     u,
		proxy:    true,
	})
	return nil
}

// proxyLocal picks the name the original binds an extracted method to:
// its exported name, or Class_name when that would clash with another
// identifier of the source file.
func (r *fileRewriter) proxyLocal(class, name string, body *ast.Node) string {
	if !r.bindsName(name, body) {
		return name
	}
	base := class + "_" + name
	local := base
	for i := 2; r.bindsName(local, body); i++ {
		local = fmt.Sprintf("%s%d", base, i)
	}
	return local
}

// bindsName reports whether name is already in use in the original outside
// the method body being replaced.
func (r *fileRewriter) bindsName(name string, body *ast.Node) bool {
	if r.proxyLocals[name] {
		return true
	}
	for _, id := range r.identifiers[name] {
		if id.StartByte < body.StartByte || id.StartByte >= body.EndByte {
			return true
		}
	}
	return false
}

func (r *fileRewriter) queue(t plan.Target, m *moved) {
	if _, seen := r.pending[t.Destination]; !seen {
		r.destOrder = append(r.destOrder, t.Destination)
	}
	r.pending[t.Destination] = append(r.pending[t.Destination], m)
	r.extracted[m.identity] = true
	r.result.Extracted = append(r.result.Extracted, ExtractedItem{
		Name:         m.newName,
		OriginalName: m.identity,
		Destination:  t.Destination,
		Path:         outputPath(r.f.Path, t.Destination),
		Kind:         m.kind,
	})
	recordExtracted(m.kind)
}

// finishBoundRemovals removes moved declarators, dropping the whole
// declaration when none of its declarators stay.
func (r *fileRewriter) finishBoundRemovals() {
	for _, container := range r.boundOrder {
		moved := r.boundRemovals[container]
		stmt := moved[0].stmt
		all := container.ChildrenOfKind(ast.KindVariableDeclarator)

		var exportedLocals []string
		if moved[0].exported && r.e.options.ReExport {
			for _, u := range moved {
				exportedLocals = append(exportedLocals, u.local)
			}
		}
		reexports := ""
		if len(exportedLocals) > 0 {
			reexports = "export { " + strings.Join(exportedLocals, ", ") + " };"
		}

		if len(moved) == len(all) {
			if reexports != "" {
				r.editor.ReplaceStatement(stmt, reexports)
			} else {
				r.editor.RemoveStatement(stmt)
			}
			r.markRemoved(r.f.StatementStart(stmt), stmt.EndByte)
			continue
		}

		gone := make(map[*ast.Node]bool, len(moved))
		for _, u := range moved {
			gone[u.decl] = true
			r.markRemoved(u.decl.StartByte, u.decl.EndByte)
		}
		var kept []string
		for _, d := range all {
			if !gone[d] {
				kept = append(kept, r.f.Text(d))
			}
		}
		keyword := container.Children[0].Type
		text := keyword + " " + strings.Join(kept, ", ")
		if container.HasToken(";") {
			text += ";"
		}
		r.editor.Replace(container, text)
		if reexports != "" {
			r.editor.Insert(stmt.EndByte, "\n"+reexports)
		}
	}
}

// emitOriginal adds imports for destinations the remaining code still uses
// and renders the original file.
func (r *fileRewriter) emitOriginal() error {
	imports := newImportSet()
	for _, dest := range r.destOrder {
		from := importPathFromSource(dest)
		for _, m := range r.pending[dest] {
			switch {
			case m.proxy:
				imports.add(from, m.newName, m.local)
			case r.stillUsed(m):
				imports.add(from, m.newName, m.local)
			default:
			}
		}
	}

	if !imports.empty() {
		text := imports.render(quoteStyle(r.f))
		if offset, found := importInsertionPoint(r.f); found {
			r.editor.Insert(offset, "\n"+text)
		} else {
			r.editor.Insert(0, text+"\n\n")
		}
	}
	if locals := r.keptExports(); len(locals) > 0 {
		end := uint32(len(r.f.Source))
		lead := "\n"
		if end > 0 && r.f.Source[end-1] != '\n' {
			lead = "\n\n"
		}
		r.editor.Insert(end, lead+"export { "+strings.Join(locals, ", ")+" };\n")
	}

	if r.editor.Len() == 0 {
		return nil
	}
	out, err := r.editor.Apply()
	if err != nil {
		return fmt.Errorf("rewriting %s: %w", r.f.Path, err)
	}
	r.result.Original = out
	return nil
}

// keptExports lists classes that stay in the original but are imported by
// a destination and are not exported yet.
func (r *fileRewriter) keptExports() []string {
	var locals []string
	seen := make(map[string]bool)
	for _, dest := range r.destOrder {
		for _, dep := range r.plan.Dependencies.For(dest) {
			u := r.units[dep.OriginalName]
			if !dep.Original || u == nil || u.exported || seen[u.local] {
				continue
			}
			seen[u.local] = true
			locals = append(locals, u.local)
		}
	}
	return locals
}

// stillUsed reports whether the original must keep a binding for m.
func (r *fileRewriter) stillUsed(m *moved) bool {
	if m.unit != nil && m.unit.exported && r.e.options.ReExport {
		return true
	}
	for _, id := range r.identifiers[m.local] {
		if !r.isRemoved(id.StartByte) {
			return true
		}
	}
	return false
}

// emitDestinations renders one file per destination in first-seen order.
func (r *fileRewriter) emitDestinations() {
	quote := quoteStyle(r.f)
	for _, dest := range r.destOrder {
		imports := newImportSet()
		for _, dep := range r.plan.Dependencies.For(dest) {
			if dep.Original {
				r.importFromOriginal(imports, dest, dep)
				continue
			}
			if !r.extracted[dep.OriginalName] {
				r.result.Warnings = append(r.result.Warnings,
					fmt.Sprintf("%s needs %s from %s, which was not extracted", dest, dep.OriginalName, dep.Target))
				continue
			}
			local := dep.OriginalName
			if u := r.units[dep.OriginalName]; u != nil {
				local = u.local
			}
			imports.add(importPathBetween(dest, dep.Target), dep.NewName, local)
		}

		var b strings.Builder
		if !imports.empty() {
			b.WriteString(imports.render(quote))
			b.WriteString("\n\n")
		}
		for i, m := range r.pending[dest] {
			if i > 0 {
				b.WriteString("\n\n")
			}
			b.WriteString(m.text)
		}
		b.WriteString("\n")

		r.result.Outputs = append(r.result.Outputs, Output{
			Destination: dest,
			Path:        outputPath(r.f.Path, dest),
			Content:     []byte(b.String()),
		})
	}
}

// importFromOriginal binds a symbol the source file keeps, such as a class
// whose methods were extracted, in destination dest.
func (r *fileRewriter) importFromOriginal(imports *importSet, dest string, dep plan.Dependency) {
	u := r.units[dep.OriginalName]
	if u == nil {
		r.result.Warnings = append(r.result.Warnings,
			fmt.Sprintf("%s needs %s from the original file, which is not a top-level declaration", dest, dep.OriginalName))
		return
	}
	exported := u.local
	if u.isDefault {
		exported = "default"
	}
	imports.add(importPathBetween(dest, filepath.Base(r.f.Path)), exported, u.local)
}

// indexIdentifiers records every identifier use by name.
func (r *fileRewriter) indexIdentifiers() {
	r.identifiers = make(map[string][]*ast.Node)
	r.f.Root.Walk(func(n *ast.Node) bool {
		if n.Kind == ast.KindIdentifier || n.Kind == ast.KindShorthandPropertyIdentifier {
			name := r.f.Text(n)
			r.identifiers[name] = append(r.identifiers[name], n)
		}
		return true
	})
}

// buildRenames maps, per destination, local names of renamed entities to
// their new names.
func (r *fileRewriter) buildRenames() {
	r.renames = make(map[string]map[string]string)
	for identity, t := range r.plan.Targets {
		if t.IsMethod() {
			continue
		}
		u := r.units[identity]
		if u == nil || t.NewName == u.local {
			continue
		}
		if r.renames[t.Destination] == nil {
			r.renames[t.Destination] = make(map[string]string)
		}
		r.renames[t.Destination][u.local] = t.NewName
	}
}

// renameEdits returns edits renaming same-destination identifiers inside
// [start, end).
func (r *fileRewriter) renameEdits(dest string, start, end uint32) []ast.Edit {
	names := r.renames[dest]
	if len(names) == 0 {
		return nil
	}
	var edits []ast.Edit
	for name, newName := range names {
		for _, id := range r.identifiers[name] {
			if id.Kind != ast.KindIdentifier || id.StartByte < start || id.EndByte > end {
				continue
			}
			edits = append(edits, ast.Edit{Start: id.StartByte, End: id.EndByte, Text: newName})
		}
	}
	return edits
}

func (r *fileRewriter) markRemoved(start, end uint32) {
	r.removed = append(r.removed, [2]uint32{start, end})
}

func (r *fileRewriter) isRemoved(offset uint32) bool {
	for _, rg := range r.removed {
		if offset >= rg[0] && offset < rg[1] {
			return true
		}
	}
	return false
}
