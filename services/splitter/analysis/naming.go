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

import "github.com/tonguyenducmanh/split-file-javascript/services/splitter/ast"

// bindingOf returns the name a function value is bound to by its parent:
// a variable declarator, an assignment to a plain identifier, or an object
// property key.
func bindingOf(f *ast.File, fn *ast.Node) (string, CallerKind, bool) {
	p := fn.Parent
	if p == nil {
		return "", "", false
	}
	switch p.Kind {
	case ast.KindVariableDeclarator:
		if fn.Field != "value" {
			return "", "", false
		}
		if name := p.ChildByField("name"); name != nil && name.Kind == ast.KindIdentifier {
			return f.Text(name), CallerVariable, true
		}
	case ast.KindAssignmentExpression:
		if fn.Field != "right" {
			return "", "", false
		}
		if left := p.ChildByField("left"); left != nil && left.Kind == ast.KindIdentifier {
			return f.Text(left), CallerAssignment, true
		}
	case ast.KindPair:
		if fn.Field != "value" {
			return "", "", false
		}
		if key := p.ChildByField("key"); key != nil && isPlainName(key) {
			return f.Text(key), CallerProperty, true
		}
	default:
	}
	return "", "", false
}

// functionIdentity names a function node the same way for the Collector
// and the Resolver: its own identifier first, then its binding.
func functionIdentity(f *ast.File, fn *ast.Node) (string, CallerKind) {
	switch fn.Kind {
	case ast.KindFunctionDeclaration:
		if name := fn.ChildByField("name"); name != nil {
			return f.Text(name), CallerFunction
		}
		return Anonymous, CallerFunction
	case ast.KindFunctionExpression:
		if name := fn.ChildByField("name"); name != nil {
			if _, kind, ok := bindingOf(f, fn); ok {
				return f.Text(name), kind
			}
			return f.Text(name), CallerFunction
		}
		if name, kind, ok := bindingOf(f, fn); ok {
			return name, kind
		}
	case ast.KindArrowFunction:
		if name, kind, ok := bindingOf(f, fn); ok {
			return name, kind
		}
	default:
	}
	return Anonymous, CallerAnonymous
}

// className returns a class node's own name, or Anonymous.
func className(f *ast.File, class *ast.Node) string {
	if name := class.ChildByField("name"); name != nil {
		return f.Text(name)
	}
	if name, _, ok := bindingOf(f, class); ok {
		return name
	}
	return Anonymous
}

// methodName returns a method definition's name when it is a plain
// identifier. Computed and string-keyed methods are not addressable.
func methodName(f *ast.File, m *ast.Node) (string, bool) {
	name := m.ChildByField("name")
	if name == nil {
		return "", false
	}
	switch name.Kind {
	case ast.KindPropertyIdentifier, ast.KindPrivatePropertyIdentifier, ast.KindIdentifier:
		return f.Text(name), true
	default:
		return "", false
	}
}

// ownerClass returns the class declaration or expression that owns a class
// member, or nil for object-literal members.
func ownerClass(member *ast.Node) *ast.Node {
	body := member.Parent
	if body == nil || body.Kind != ast.KindClassBody {
		return nil
	}
	if body.Parent != nil && (body.Parent.Kind == ast.KindClassDeclaration || body.Parent.Kind == ast.KindClassExpression) {
		return body.Parent
	}
	return nil
}

// isClassMember reports whether fn is the value of a class field.
func isClassMember(fn *ast.Node) bool {
	return fn.Parent != nil && fn.Parent.Kind == ast.KindFieldDefinition
}

func isPlainName(n *ast.Node) bool {
	switch n.Kind {
	case ast.KindPropertyIdentifier, ast.KindIdentifier:
		return true
	default:
		return false
	}
}

// superclassName returns the identifier after "extends", if it is a plain name.
func superclassName(f *ast.File, class *ast.Node) string {
	heritage := class.FirstChildOfKind(ast.KindClassHeritage)
	if heritage == nil {
		return ""
	}
	if id := heritage.FirstChildOfKind(ast.KindIdentifier); id != nil {
		return f.Text(id)
	}
	return ""
}
