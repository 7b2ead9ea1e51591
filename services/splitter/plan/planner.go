// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package plan

import (
	"context"
	"fmt"

	"github.com/tonguyenducmanh/split-file-javascript/services/splitter/analysis"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var planTracer = otel.Tracer("jssplit.plan")

// Dependency is one import a destination needs from another destination.
type Dependency struct {
	// Source is the consuming destination.
	Source string `json:"source"`

	// Target is the destination that owns and exports the symbol. It is
	// empty when Original is set.
	Target string `json:"target"`

	// OriginalName is the callee's name in the source file, used locally
	// by the consumer.
	OriginalName string `json:"originalName"`

	// NewName is the name the owner exports.
	NewName string `json:"newName"`

	// Original marks a symbol the source file keeps and exports: a class
	// whose methods were extracted but whose declaration stays behind.
	Original bool `json:"original,omitempty"`
}

// Dangling is a reference from moved code to a declaration that stays in
// the original file. The moved code will not see that declaration.
type Dangling struct {
	Caller      string `json:"caller"`
	Callee      string `json:"callee"`
	Destination string `json:"destination"`
	Line        int    `json:"line"`
}

func (d Dangling) String() string {
	return fmt.Sprintf("%s (moved to %s) calls %s at line %d, which stays in the original file", d.Caller, d.Destination, d.Callee, d.Line)
}

// DependencyMap lists, per consuming destination, the imports it needs in
// discovery order.
type DependencyMap map[string][]Dependency

// Plan is the result of PlanDependencies.
type Plan struct {
	Targets      ItemToDestination
	Dependencies DependencyMap
	Dangling     []Dangling
}

// PlanDependencies computes the cross-destination imports a split needs.
//
// Description:
//
//	For every recorded reference whose caller and callee both map to
//	known, different destinations, registers an edge in the caller's
//	destination, deduplicated by the callee's addressable unit. A caller
//	nested inside a planned item is attributed to the innermost such item,
//	since it moves with it. A method callee resolves to its class entry:
//	the class, not the method, is what a consumer imports. When the class
//	stays behind because only some methods are extracted, the edge points
//	at the source file itself. References where either end falls outside
//	the plan produce no edge; a moved caller whose callee stays behind is
//	reported as Dangling.
//
//	Iteration order is functions then classes, each in source order, then
//	references in source order. The result is deterministic.
//
// Inputs:
//
//	ctx    - Context for tracing.
//	a      - Resolved inventory.
//	groups - Groups for this file, in plan order.
//
// Outputs:
//
//	*Plan - Targets, dependencies and dangling references.
func PlanDependencies(ctx context.Context, a *analysis.Analysis, groups []*Group) *Plan {
	_, span := planTracer.Start(ctx, "plan.PlanDependencies")
	defer span.End()

	p := &Plan{
		Targets:      BuildItemToDestination(a, groups),
		Dependencies: make(DependencyMap),
	}
	seen := make(map[string]map[string]bool)

	visit := func(callee string, refs []analysis.Reference) {
		unit, ok := p.addressable(a, callee)
		for _, ref := range refs {
			if ref.CallerIdentifier == analysis.Anonymous {
				continue
			}
			owner, planned := p.Targets.Owner(a, ref.CallerIdentifier)
			if !planned {
				continue
			}
			caller, callerDest := owner.OriginalName, owner.Destination
			if !ok {
				if !sameClassMethod(caller, callee) && !nestedIn(a, callee, caller) {
					p.Dangling = append(p.Dangling, Dangling{
						Caller:      ref.CallerIdentifier,
						Callee:      callee,
						Destination: callerDest,
						Line:        ref.StartLine,
					})
				}
				continue
			}
			if unit.Destination == callerDest || (unit.Destination == "" && sameClassMethod(caller, callee)) {
				continue
			}
			if seen[callerDest] == nil {
				seen[callerDest] = make(map[string]bool)
			}
			if seen[callerDest][unit.OriginalName] {
				continue
			}
			seen[callerDest][unit.OriginalName] = true
			p.Dependencies[callerDest] = append(p.Dependencies[callerDest], Dependency{
				Source:       callerDest,
				Target:       unit.Destination,
				OriginalName: unit.OriginalName,
				NewName:      unit.NewName,
				Original:     unit.Destination == "",
			})
		}
	}

	for _, fn := range a.Functions {
		if fn.Name != analysis.Anonymous {
			visit(fn.Name, fn.References)
		}
	}
	for _, cls := range a.Classes {
		visit(cls.Name, cls.References)
		for _, m := range cls.Methods {
			visit(analysis.Qualify(cls.Name, m.Name), m.References)
		}
	}

	edges := 0
	for _, deps := range p.Dependencies {
		edges += len(deps)
	}
	span.SetAttributes(
		attribute.Int("targets", len(p.Targets)),
		attribute.Int("edges", edges),
		attribute.Int("dangling", len(p.Dangling)),
	)
	return p
}

// addressable returns the importable unit for callee: the callee itself,
// or for a method the class entry that owns it. A class kept in the source
// file at method granularity is addressable there, with an empty
// destination.
func (p *Plan) addressable(a *analysis.Analysis, callee string) (Target, bool) {
	class := callee
	if c, _, ok := analysis.SplitQualified(callee); ok {
		class = c
	}
	if t, ok := p.Targets.Lookup(class); ok {
		return t, true
	}
	if a.Class(class) != nil && p.Targets.classAtMethodGranularity(class) {
		return Target{OriginalName: class, NewName: class, Granularity: GranularityMethod}, true
	}
	return Target{}, false
}

// sameClassMethod reports whether caller is a method of callee's class.
// Such calls go through the instance and survive extraction.
func sameClassMethod(caller, callee string) bool {
	cc, _, ok1 := analysis.SplitQualified(caller)
	tc, _, ok2 := analysis.SplitQualified(callee)
	return ok1 && ok2 && cc == tc
}

// nestedIn reports whether callee is declared inside caller's range, in
// which case it moves together with the caller.
func nestedIn(a *analysis.Analysis, callee, caller string) bool {
	inner, ok1 := extentOf(a, callee)
	outer, ok2 := extentOf(a, caller)
	return ok1 && ok2 && inner != outer && outer.contains(inner)
}

// For returns the dependencies of one destination.
func (m DependencyMap) For(destination string) []Dependency {
	return m[destination]
}
