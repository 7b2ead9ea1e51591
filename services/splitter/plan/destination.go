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
	"maps"
	"slices"

	"github.com/tonguyenducmanh/split-file-javascript/services/splitter/analysis"
)

// Granularity says how a class item is relocated.
type Granularity string

const (
	// GranularityWhole moves the declaration as one unit.
	GranularityWhole Granularity = "whole"

	// GranularityMethod extracts selected methods and leaves proxies behind.
	GranularityMethod Granularity = "method"
)

// Target is where one inventoried entity goes.
type Target struct {
	// Destination is the group destination the entity is emitted into.
	Destination string

	// OriginalName is the map key: a bare name or "Class.method".
	OriginalName string

	// NewName is the name the entity has in its destination.
	NewName string

	// Class is set for method entries.
	Class string

	// Granularity is set for class entries and their methods.
	Granularity Granularity

	// Group is the plan group the entity was selected by.
	Group *Group
}

// IsMethod reports whether the target is a class method.
func (t Target) IsMethod() bool {
	return t.Class != ""
}

// ItemToDestination maps every planned entity to its Target.
//
// Keys are declaration names or qualified "Class.method" identities. The
// map is built once per source file and read-only afterwards.
type ItemToDestination map[string]Target

// Lookup returns the target for identity.
func (m ItemToDestination) Lookup(identity string) (Target, bool) {
	t, ok := m[identity]
	return t, ok
}

// DestinationOf returns the destination of identity, or "" when it stays.
func (m ItemToDestination) DestinationOf(identity string) string {
	return m[identity].Destination
}

// Owner returns the planned entity that code attributed to caller moves
// with: caller itself when it is planned, otherwise the innermost planned
// declaration whose source range contains caller's. A function nested in a
// planned item is not planned on its own but travels inside it.
func (m ItemToDestination) Owner(a *analysis.Analysis, caller string) (Target, bool) {
	if t, ok := m.Lookup(caller); ok {
		return t, true
	}
	inner, ok := extentOf(a, caller)
	if !ok {
		return Target{}, false
	}
	var (
		owner  Target
		bounds extent
		found  bool
	)
	for _, identity := range slices.Sorted(maps.Keys(m)) {
		outer, ok := extentOf(a, identity)
		if !ok || outer == inner || !outer.contains(inner) {
			continue
		}
		if !found || (bounds.contains(outer) && outer != bounds) {
			owner, bounds, found = m[identity], outer, true
		}
	}
	return owner, found
}

// classAtMethodGranularity reports whether some method of class is
// extracted while the class itself stays in the source file.
func (m ItemToDestination) classAtMethodGranularity(class string) bool {
	if _, whole := m[class]; whole {
		return false
	}
	for _, t := range m {
		if t.Class == class && t.Granularity == GranularityMethod {
			return true
		}
	}
	return false
}

// extent is a source range, in bytes when the inventory carries offsets
// and in lines otherwise.
type extent struct {
	start, end int
}

func (e extent) contains(o extent) bool {
	return e.start <= o.start && o.end <= e.end
}

func extentOf(a *analysis.Analysis, identity string) (extent, bool) {
	if class, method, ok := analysis.SplitQualified(identity); ok {
		if c := a.Class(class); c != nil {
			if m := c.Method(method); m != nil {
				if m.EndByte > 0 {
					return extent{int(m.StartByte), int(m.EndByte)}, true
				}
				return extent{m.StartLine, m.EndLine}, true
			}
		}
		return extent{}, false
	}
	d := a.Function(identity)
	if d == nil {
		d = a.Class(identity)
	}
	if d == nil {
		return extent{}, false
	}
	if d.EndByte > 0 {
		return extent{int(d.StartByte), int(d.EndByte)}, true
	}
	return extent{d.StartLine, d.EndLine}, true
}

// BuildItemToDestination flattens the groups that apply to a into an
// ItemToDestination map.
//
// Description:
//
//	Bare items match a function first, then a class. A class that moves
//	whole maps itself and every method, qualified, to its destination. A
//	class item with a method selection is first mapped method by method;
//	it stays at method granularity only when one of the selected methods
//	is called from outside its destination, otherwise the whole class
//	moves. Items that match nothing in a are left out; the Engine reports
//	them as not found.
//
// Inputs:
//
//	a      - Resolved inventory of the source file.
//	groups - Groups for this file, in plan order.
//
// Outputs:
//
//	ItemToDestination - The flattened map. First assignment wins.
func BuildItemToDestination(a *analysis.Analysis, groups []*Group) ItemToDestination {
	m := make(ItemToDestination)
	type selection struct {
		group *Group
		item  Item
		class *analysis.Declaration
	}
	var selections []selection

	put := func(key string, t Target) {
		if _, exists := m[key]; !exists {
			m[key] = t
		}
	}

	for _, g := range groups {
		for _, it := range g.Items {
			if !it.IsClass() {
				if fn := a.Function(it.Name); fn != nil {
					put(it.Name, Target{Destination: g.Destination, OriginalName: it.Name, NewName: it.TargetName(), Group: g})
					continue
				}
			}
			cls := a.Class(it.OriginalName())
			if cls == nil {
				continue
			}
			if len(it.Methods) > 0 {
				matched := false
				for _, sel := range it.Methods {
					if cls.Method(sel.Name) == nil {
						continue
					}
					matched = true
					key := analysis.Qualify(cls.Name, sel.Name)
					put(key, Target{
						Destination:  g.Destination,
						OriginalName: key,
						NewName:      sel.TargetName(),
						Class:        cls.Name,
						Granularity:  GranularityMethod,
						Group:        g,
					})
				}
				if matched {
					selections = append(selections, selection{group: g, item: it, class: cls})
				}
				continue
			}
			putWholeClass(m, cls, g, it.TargetName())
		}
	}

	for _, sel := range selections {
		if _, taken := m[sel.class.Name]; taken {
			continue
		}
		if !selectionHasExternalReference(a, m, sel.class, sel.item, sel.group.Destination) {
			for _, meth := range sel.item.Methods {
				delete(m, analysis.Qualify(sel.class.Name, meth.Name))
			}
			putWholeClass(m, sel.class, sel.group, sel.item.TargetName())
		}
	}
	return m
}

func putWholeClass(m ItemToDestination, cls *analysis.Declaration, g *Group, newName string) {
	if _, exists := m[cls.Name]; exists {
		return
	}
	m[cls.Name] = Target{
		Destination:  g.Destination,
		OriginalName: cls.Name,
		NewName:      newName,
		Granularity:  GranularityWhole,
		Group:        g,
	}
	for _, meth := range cls.Methods {
		key := analysis.Qualify(cls.Name, meth.Name)
		if _, exists := m[key]; exists {
			continue
		}
		m[key] = Target{
			Destination:  g.Destination,
			OriginalName: key,
			NewName:      meth.Name,
			Class:        cls.Name,
			Granularity:  GranularityWhole,
			Group:        g,
		}
	}
}

// selectionHasExternalReference reports whether any selected method of cls
// is called by a caller that does not move to dest. Anonymous and
// unplanned callers count as external; a nested caller counts as its
// enclosing planned item.
func selectionHasExternalReference(a *analysis.Analysis, m ItemToDestination, cls *analysis.Declaration, it Item, dest string) bool {
	for _, sel := range it.Methods {
		meth := cls.Method(sel.Name)
		if meth == nil {
			continue
		}
		for _, ref := range meth.References {
			if ref.CallerIdentifier == analysis.Anonymous {
				return true
			}
			if owner, ok := m.Owner(a, ref.CallerIdentifier); !ok || owner.Destination != dest {
				return true
			}
		}
	}
	return false
}
