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
	"github.com/tonguyenducmanh/split-file-javascript/services/splitter/ast"
)

// ResolveStats summarizes one resolution pass.
type ResolveStats struct {
	// Sites is the number of call and construction sites visited.
	Sites int

	// Resolved is the number of in-edges recorded.
	Resolved int

	// Dropped is the number of sites whose callee matched no declaration.
	Dropped int
}

// resolveState holds lookup tables for one Resolve call.
type resolveState struct {
	file      *ast.File
	analysis  *Analysis
	functions map[string]*Declaration
	classes   map[string]*Declaration
}

// Resolve records every call and construction site of f as an in-edge on
// the declaration it invokes.
//
// Description:
//
//	Second pass over the same tree used by Collect. For each site the callee
//	identity is derived first and the site is dropped when it matches no
//	inventoried declaration. The caller is then the nearest enclosing
//	declaration context found through parent links; anonymous callbacks are
//	transparent and a site with no context is attributed to Anonymous.
//
//	Callee resolution strategies, in order:
//	  1. foo()            -> function or class "foo"
//	  2. Cls.m()          -> "Cls.m" when Cls names a known class
//	  3. this.m()         -> nearest lexical class, then its superclass chain
//	  4. super.m()        -> superclass chain of the nearest lexical class
//	  5. other.m()        -> function or class "m" (no instance tracking)
//	  6. new Cls()        -> class "Cls" only
//	Strategies 2-4 never fall back to a free function: once an owning class
//	is statically identified the qualified method identity wins.
//
// Inputs:
//
//	f - The parsed file a was collected from.
//	a - Inventory to populate in place.
//
// Outputs:
//
//	ResolveStats - Site counts for logging and metrics.
//
// Thread Safety:
//
//	Not safe for concurrent use on the same Analysis.
func Resolve(f *ast.File, a *Analysis) ResolveStats {
	s := &resolveState{
		file:      f,
		analysis:  a,
		functions: make(map[string]*Declaration, len(a.Functions)),
		classes:   make(map[string]*Declaration, len(a.Classes)),
	}
	for _, d := range a.Functions {
		if d.Name == Anonymous {
			continue
		}
		if _, exists := s.functions[d.Name]; !exists {
			s.functions[d.Name] = d
		}
	}
	for _, d := range a.Classes {
		if _, exists := s.classes[d.Name]; !exists {
			s.classes[d.Name] = d
		}
	}

	var stats ResolveStats
	f.Root.Walk(func(n *ast.Node) bool {
		var callee string
		var site SiteKind
		switch n.Kind {
		case ast.KindCallExpression:
			callee, site = s.calleeOfCall(n), SiteCall
		case ast.KindNewExpression:
			callee, site = s.calleeOfNew(n), SiteNew
		default:
			return true
		}

		stats.Sites++
		if callee == "" {
			stats.Dropped++
			return true
		}

		callerID, callerKind := s.callerOf(n)
		s.record(callee, Reference{
			CallerIdentifier: callerID,
			CallerKind:       callerKind,
			Site:             site,
			StartLine:        n.StartLine,
			EndLine:          n.EndLine,
		})
		stats.Resolved++
		return true
	})

	return stats
}

// calleeOfCall derives the callee identity of a call_expression, or "".
func (s *resolveState) calleeOfCall(call *ast.Node) string {
	fn := call.ChildByField("function")
	if fn == nil {
		return ""
	}

	switch fn.Kind {
	case ast.KindIdentifier:
		return s.lookupBare(s.file.Text(fn))

	case ast.KindMemberExpression:
		prop := fn.ChildByField("property")
		if prop == nil || (prop.Kind != ast.KindPropertyIdentifier && prop.Kind != ast.KindPrivatePropertyIdentifier) {
			return ""
		}
		member := s.file.Text(prop)

		obj := fn.ChildByField("object")
		if obj == nil {
			return ""
		}
		switch obj.Kind {
		case ast.KindIdentifier:
			if cls, ok := s.classes[s.file.Text(obj)]; ok {
				if cls.Method(member) != nil {
					return Qualify(cls.Name, member)
				}
				return ""
			}
		case ast.KindThis:
			if cls := s.lexicalClass(call); cls != nil {
				return s.lookupMethodChain(cls, member)
			}
		case ast.KindSuper:
			if cls := s.lexicalClass(call); cls != nil {
				if parent, ok := s.classes[cls.Extends]; ok {
					return s.lookupMethodChain(parent, member)
				}
				return ""
			}
		default:
		}
		return s.lookupBare(member)

	default:
		return ""
	}
}

// calleeOfNew matches a construction only against class declarations.
func (s *resolveState) calleeOfNew(n *ast.Node) string {
	ctor := n.ChildByField("constructor")
	if ctor == nil || ctor.Kind != ast.KindIdentifier {
		return ""
	}
	if cls, ok := s.classes[s.file.Text(ctor)]; ok {
		return cls.Name
	}
	return ""
}

func (s *resolveState) lookupBare(name string) string {
	if _, ok := s.functions[name]; ok {
		return name
	}
	if _, ok := s.classes[name]; ok {
		return name
	}
	return ""
}

// lookupMethodChain finds member on cls or the nearest statically named
// ancestor class that declares it.
func (s *resolveState) lookupMethodChain(cls *Declaration, member string) string {
	seen := make(map[string]bool)
	for c := cls; c != nil && !seen[c.Name]; c = s.classes[c.Extends] {
		seen[c.Name] = true
		if c.Method(member) != nil {
			return Qualify(c.Name, member)
		}
	}
	return ""
}

// lexicalClass returns the inventoried class whose `this` is visible at n.
// Arrow functions are transparent; any other function boundary ends the
// search.
func (s *resolveState) lexicalClass(n *ast.Node) *Declaration {
	for p := n.Parent; p != nil; p = p.Parent {
		if !p.Kind.BindsThis() {
			continue
		}
		var classNode *ast.Node
		switch p.Kind {
		case ast.KindMethodDefinition:
			classNode = ownerClass(p)
		case ast.KindClassDeclaration, ast.KindClassExpression:
			classNode = p
		default:
		}
		if classNode == nil {
			return nil
		}
		return s.classes[className(s.file, classNode)]
	}
	return nil
}

// callerOf walks the ancestor chain to the nearest declaration context.
func (s *resolveState) callerOf(n *ast.Node) (string, CallerKind) {
	for p := n.Parent; p != nil; p = p.Parent {
		switch p.Kind {
		case ast.KindFunctionDeclaration, ast.KindFunctionExpression, ast.KindArrowFunction:
			if isClassMember(p) {
				continue
			}
			if name, kind := functionIdentity(s.file, p); name != Anonymous {
				return name, kind
			}

		case ast.KindMethodDefinition:
			name, ok := methodName(s.file, p)
			if !ok {
				continue
			}
			if cls := ownerClass(p); cls != nil {
				return Qualify(className(s.file, cls), name), CallerMethod
			}
			return name, CallerProperty

		case ast.KindClassDeclaration, ast.KindClassExpression:
			return className(s.file, p), CallerClass

		default:
		}
	}
	return Anonymous, CallerAnonymous
}

// record appends ref to the callee's reference list.
func (s *resolveState) record(callee string, ref Reference) {
	if class, method, ok := SplitQualified(callee); ok {
		if cls, ok := s.classes[class]; ok {
			if m := cls.Method(method); m != nil {
				m.References = append(m.References, ref)
			}
		}
		return
	}
	if d, ok := s.functions[callee]; ok {
		d.References = append(d.References, ref)
		return
	}
	if d, ok := s.classes[callee]; ok {
		d.References = append(d.References, ref)
	}
}
