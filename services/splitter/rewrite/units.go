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
	"github.com/tonguyenducmanh/split-file-javascript/services/splitter/ast"
)

// unitKind is the relocation policy of a top-level unit.
type unitKind int

const (
	// unitFunction is a function declaration moved verbatim.
	unitFunction unitKind = iota

	// unitBound is a function or arrow bound by a declarator or an
	// assignment; it is rewritten into declaration form.
	unitBound

	// unitClass is a class declaration moved verbatim.
	unitClass
)

// unit is one relocatable top-level statement or declarator.
type unit struct {
	kind unitKind

	// identity is the inventory name the Collector gives the entity.
	identity string

	// local is the name code in the source file uses for it.
	local string

	// stmt is the program-level statement, export wrapper included.
	stmt *ast.Node

	// decl is the declaration, declarator or assignment node.
	decl *ast.Node

	// fn is the function value of a bound unit.
	fn *ast.Node

	// container is the lexical or variable declaration holding decl.
	container *ast.Node

	exported  bool
	isDefault bool
}

// soleDeclarator reports whether u's declarator is the only one in its
// declaration.
func (u *unit) soleDeclarator() bool {
	return u.container == nil || len(u.container.ChildrenOfKind(ast.KindVariableDeclarator)) == 1
}

// topLevelUnits indexes the relocatable program-level declarations of f
// by identity. The first declaration of a name wins.
func topLevelUnits(f *ast.File) map[string]*unit {
	units := make(map[string]*unit)
	add := func(u *unit) {
		if u.identity == "" {
			return
		}
		if _, exists := units[u.identity]; !exists {
			units[u.identity] = u
		}
	}

	for _, stmt := range f.TopLevel() {
		node := stmt
		exported, isDefault := false, false
		if stmt.Kind == ast.KindExportStatement {
			exported = true
			isDefault = stmt.HasToken("default")
			node = stmt.ChildByField("declaration")
			if node == nil {
				node = stmt.ChildByField("value")
			}
			if node == nil {
				continue
			}
		}

		switch node.Kind {
		case ast.KindFunctionDeclaration, ast.KindFunctionExpression:
			name := node.ChildByField("name")
			if name == nil {
				continue
			}
			add(&unit{kind: unitFunction, identity: f.Text(name), local: f.Text(name), stmt: stmt, decl: node, exported: exported, isDefault: isDefault})

		case ast.KindClassDeclaration, ast.KindClassExpression:
			name := node.ChildByField("name")
			if name == nil {
				continue
			}
			add(&unit{kind: unitClass, identity: f.Text(name), local: f.Text(name), stmt: stmt, decl: node, exported: exported, isDefault: isDefault})

		case ast.KindLexicalDeclaration, ast.KindVariableDeclaration:
			for _, d := range node.ChildrenOfKind(ast.KindVariableDeclarator) {
				name := d.ChildByField("name")
				value := d.ChildByField("value")
				if name == nil || name.Kind != ast.KindIdentifier || !isFunctionValue(value) {
					continue
				}
				add(&unit{
					kind:      unitBound,
					identity:  boundIdentity(f, value, f.Text(name)),
					local:     f.Text(name),
					stmt:      stmt,
					decl:      d,
					fn:        value,
					container: node,
					exported:  exported,
				})
			}

		case ast.KindExpressionStatement:
			expr := firstNamed(node)
			if expr == nil || expr.Kind != ast.KindAssignmentExpression {
				continue
			}
			left := expr.ChildByField("left")
			right := expr.ChildByField("right")
			if left == nil || left.Kind != ast.KindIdentifier || !isFunctionValue(right) {
				continue
			}
			add(&unit{
				kind:     unitBound,
				identity: boundIdentity(f, right, f.Text(left)),
				local:    f.Text(left),
				stmt:     stmt,
				decl:     expr,
				fn:       right,
			})

		default:
		}
	}
	return units
}

func isFunctionValue(n *ast.Node) bool {
	return n != nil && (n.Kind == ast.KindFunctionExpression || n.Kind == ast.KindArrowFunction)
}

// boundIdentity mirrors the Collector: a named function expression is
// inventoried under its own name.
func boundIdentity(f *ast.File, fn *ast.Node, binding string) string {
	if fn.Kind == ast.KindFunctionExpression {
		if name := fn.ChildByField("name"); name != nil {
			return f.Text(name)
		}
	}
	return binding
}

func firstNamed(n *ast.Node) *ast.Node {
	if named := n.NamedChildren(); len(named) > 0 {
		return named[0]
	}
	return nil
}

// classMethod returns the method_definition named name in class, or nil.
func classMethod(f *ast.File, class *ast.Node, name string) *ast.Node {
	body := class.ChildByField("body")
	for _, m := range body.ChildrenOfKind(ast.KindMethodDefinition) {
		if n := m.ChildByField("name"); n != nil && f.Text(n) == name {
			return m
		}
	}
	return nil
}
