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

// Collect builds the declaration inventory of f.
//
// Description:
//
//	Single pass over the whole tree. Functions (declarations, expressions
//	and arrow functions) are recorded unless they are class members or
//	plain-object properties; classes are recorded with their non-constructor
//	methods. Every entry starts with an empty reference list.
//
// Inputs:
//
//	f - Parsed file. Must not be nil.
//
// Outputs:
//
//	*Analysis - Inventory in source order with totals computed.
//
// Thread Safety:
//
//	Safe for concurrent use; f is only read.
func Collect(f *ast.File) *Analysis {
	a := NewAnalysis(f.Path)
	a.Hash = f.Hash

	f.Root.Walk(func(n *ast.Node) bool {
		switch n.Kind {
		case ast.KindFunctionDeclaration:
			a.Functions = append(a.Functions, newFunctionDeclaration(f, n))

		case ast.KindFunctionExpression, ast.KindArrowFunction:
			if isClassMember(n) || (n.Parent != nil && n.Parent.Kind == ast.KindPair) {
				return true
			}
			a.Functions = append(a.Functions, newFunctionDeclaration(f, n))

		case ast.KindClassDeclaration:
			a.Classes = append(a.Classes, newClassDeclaration(f, n))

		default:
		}
		return true
	})

	if f.HasErrors {
		a.Warnings = append(a.Warnings, "source contains syntax errors; inventory may be incomplete")
	}

	a.Total()
	return a
}

func newFunctionDeclaration(f *ast.File, n *ast.Node) *Declaration {
	name, _ := functionIdentity(f, n)
	return &Declaration{
		Name:       name,
		Kind:       KindFunction,
		StartLine:  n.StartLine,
		EndLine:    n.EndLine,
		LineCount:  n.LineCount(),
		References: make([]Reference, 0),
		StartByte:  n.StartByte,
		EndByte:    n.EndByte,
	}
}

func newClassDeclaration(f *ast.File, n *ast.Node) *Declaration {
	decl := &Declaration{
		Name:       className(f, n),
		Kind:       KindClass,
		StartLine:  n.StartLine,
		EndLine:    n.EndLine,
		LineCount:  n.LineCount(),
		References: make([]Reference, 0),
		Methods:    make([]*MethodDeclaration, 0),
		Extends:    superclassName(f, n),
		StartByte:  n.StartByte,
		EndByte:    n.EndByte,
	}

	body := n.ChildByField("body")
	for _, member := range body.ChildrenOfKind(ast.KindMethodDefinition) {
		name, ok := methodName(f, member)
		if !ok || name == "constructor" {
			continue
		}
		decl.Methods = append(decl.Methods, &MethodDeclaration{
			Name:        name,
			IsStatic:    member.HasToken("static"),
			IsAsync:     member.HasToken("async"),
			IsGenerator: member.HasToken("*"),
			IsAccessor:  member.HasToken("get") || member.HasToken("set"),
			StartLine:   member.StartLine,
			EndLine:     member.EndLine,
			LineCount:   member.LineCount(),
			References:  make([]Reference, 0),
			StartByte:   member.StartByte,
			EndByte:     member.EndByte,
		})
	}
	return decl
}
