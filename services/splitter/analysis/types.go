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

import "strings"

// Anonymous names a function or caller with no resolvable binding.
const Anonymous = "Anonymous"

// DeclarationKind distinguishes relocatable top-level units.
type DeclarationKind string

const (
	KindFunction DeclarationKind = "function"
	KindClass    DeclarationKind = "class"
)

// CallerKind describes the declaration context that encloses a call site.
type CallerKind string

const (
	CallerFunction   CallerKind = "FunctionDeclaration"
	CallerVariable   CallerKind = "VariableDeclarator"
	CallerAssignment CallerKind = "AssignmentExpression"
	CallerProperty   CallerKind = "Property"
	CallerMethod     CallerKind = "ClassMethod"
	CallerClass      CallerKind = "ClassDeclaration"
	CallerAnonymous  CallerKind = "Anonymous"
)

// SiteKind distinguishes invocation from construction.
type SiteKind string

const (
	SiteCall SiteKind = "call"
	SiteNew  SiteKind = "new"
)

// Reference is an in-edge recorded on the callee.
type Reference struct {
	// CallerIdentifier is the caller's name, qualified "Class.method" for methods.
	CallerIdentifier string     `json:"callerIdentifier"`
	CallerKind       CallerKind `json:"callerKind"`
	Site             SiteKind   `json:"site"`
	StartLine        int        `json:"startLine"`
	EndLine          int        `json:"endLine"`
}

// MethodDeclaration is a non-constructor class method.
type MethodDeclaration struct {
	Name        string      `json:"name"`
	NewName     string      `json:"newName,omitempty"`
	IsStatic    bool        `json:"isStatic"`
	IsAsync     bool        `json:"isAsync,omitempty"`
	IsGenerator bool        `json:"isGenerator,omitempty"`
	IsAccessor  bool        `json:"isAccessor,omitempty"`
	StartLine   int         `json:"startLine"`
	EndLine     int         `json:"endLine"`
	LineCount   int         `json:"totalLine"`
	References  []Reference `json:"references"`

	StartByte uint32 `json:"-"`
	EndByte   uint32 `json:"-"`
}

// Declaration is a function or class that can move between destinations.
type Declaration struct {
	Name       string               `json:"name"`
	Kind       DeclarationKind      `json:"kind"`
	NewName    string               `json:"newName,omitempty"`
	StartLine  int                  `json:"startLine"`
	EndLine    int                  `json:"endLine"`
	LineCount  int                  `json:"totalLine"`
	References []Reference          `json:"references"`
	Methods    []*MethodDeclaration `json:"methods,omitempty"`

	// Extends is the statically named superclass, if any.
	Extends string `json:"extends,omitempty"`

	// IsVueMethod marks entries collected from a Vue component's methods object.
	IsVueMethod bool `json:"isVueMethod,omitempty"`

	// StartByte and EndByte locate the declaration in the parsed source.
	// They are not part of the report and are zero after ParseReport.
	StartByte uint32 `json:"-"`
	EndByte   uint32 `json:"-"`
}

// Method returns the method with the given name, or nil.
func (d *Declaration) Method(name string) *MethodDeclaration {
	for _, m := range d.Methods {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// Analysis is the declaration inventory of one source file.
type Analysis struct {
	FilePath       string         `json:"filePath"`
	Hash           string         `json:"hash,omitempty"`
	Functions      []*Declaration `json:"functionDeclarations"`
	Classes        []*Declaration `json:"classDeclarations"`
	TotalFunctions int            `json:"totalFunctions"`
	TotalClasses   int            `json:"totalClasses"`

	// Warnings lists non-fatal problems such as recovered syntax errors.
	Warnings []string `json:"warnings,omitempty"`
}

// NewAnalysis returns an empty inventory for filePath.
func NewAnalysis(filePath string) *Analysis {
	return &Analysis{
		FilePath:  filePath,
		Functions: make([]*Declaration, 0),
		Classes:   make([]*Declaration, 0),
	}
}

// Total recomputes the summary counts.
func (a *Analysis) Total() {
	a.TotalFunctions = len(a.Functions)
	a.TotalClasses = len(a.Classes)
}

// Function returns the first function declaration with the given name.
func (a *Analysis) Function(name string) *Declaration {
	for _, d := range a.Functions {
		if d.Name == name {
			return d
		}
	}
	return nil
}

// Class returns the class declaration with the given name.
func (a *Analysis) Class(name string) *Declaration {
	for _, d := range a.Classes {
		if d.Name == name {
			return d
		}
	}
	return nil
}

// ReferencesOf returns the in-edges recorded for identity, which is either
// a bare declaration name or a qualified "Class.method".
func (a *Analysis) ReferencesOf(identity string) []Reference {
	if class, method, ok := SplitQualified(identity); ok {
		if c := a.Class(class); c != nil {
			if m := c.Method(method); m != nil {
				return m.References
			}
		}
		return nil
	}
	if d := a.Function(identity); d != nil {
		return d.References
	}
	if d := a.Class(identity); d != nil {
		return d.References
	}
	return nil
}

// Qualify joins a class and member name.
func Qualify(class, member string) string {
	return class + "." + member
}

// SplitQualified splits "Class.method" into its parts.
func SplitQualified(identity string) (class, method string, ok bool) {
	i := strings.IndexByte(identity, '.')
	if i <= 0 || i == len(identity)-1 {
		return "", "", false
	}
	return identity[:i], identity[i+1:], true
}
