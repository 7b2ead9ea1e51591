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
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func analyze(t *testing.T, src string) (*Analysis, ResolveStats) {
	t.Helper()
	f := parseJS(t, src)
	a := Collect(f)
	stats := Resolve(f, a)
	return a, stats
}

func callers(refs []Reference) []string {
	out := make([]string, 0, len(refs))
	for _, r := range refs {
		out = append(out, r.CallerIdentifier)
	}
	return out
}

func TestResolve_FunctionCalls(t *testing.T) {
	src := `function a() {}
function b() {
  a();
}
const c = () => a();
a();
`
	a, stats := analyze(t, src)

	refs := a.ReferencesOf("a")
	require.Len(t, refs, 3)
	assert.Equal(t, []string{"b", "c", Anonymous}, callers(refs))
	assert.Equal(t, CallerFunction, refs[0].CallerKind)
	assert.Equal(t, CallerVariable, refs[1].CallerKind)
	assert.Equal(t, CallerAnonymous, refs[2].CallerKind)
	assert.Equal(t, SiteCall, refs[0].Site)
	assert.Equal(t, 3, refs[0].StartLine)

	assert.Equal(t, 3, stats.Sites)
	assert.Equal(t, 3, stats.Resolved)
	assert.Equal(t, 0, stats.Dropped)
}

func TestResolve_UnknownCalleeDropped(t *testing.T) {
	src := `function a() {
  console.log("x");
  missing();
}
`
	a, stats := analyze(t, src)

	assert.Empty(t, a.ReferencesOf("a"))
	assert.Equal(t, 2, stats.Sites)
	assert.Equal(t, 0, stats.Resolved)
	assert.Equal(t, 2, stats.Dropped)
}

func TestResolve_AnonymousCallbackIsTransparent(t *testing.T) {
	src := `function helper() {}
function outer() {
  [1, 2].forEach(function () {
    helper();
  });
  setTimeout(() => helper(), 0);
}
`
	a, _ := analyze(t, src)

	refs := a.ReferencesOf("helper")
	assert.Equal(t, []string{"outer", "outer"}, callers(refs))
}

func TestResolve_ConstructionMatchesClassesOnly(t *testing.T) {
	src := `class Point {}
function make() {
  return new Point();
}
function factory() {}
const x = new factory();
`
	a, _ := analyze(t, src)

	refs := a.ReferencesOf("Point")
	require.Len(t, refs, 1)
	assert.Equal(t, "make", refs[0].CallerIdentifier)
	assert.Equal(t, SiteNew, refs[0].Site)

	assert.Empty(t, a.ReferencesOf("factory"))
}

func TestResolve_ThisAndStaticMethods(t *testing.T) {
	src := `class C {
  static create() {}
  m() {
    this.n();
  }
  n() {}
}
function use() {
  C.create();
}
`
	a, _ := analyze(t, src)

	n := a.ReferencesOf("C.n")
	require.Len(t, n, 1)
	assert.Equal(t, "C.m", n[0].CallerIdentifier)
	assert.Equal(t, CallerMethod, n[0].CallerKind)

	create := a.ReferencesOf("C.create")
	require.Len(t, create, 1)
	assert.Equal(t, "use", create[0].CallerIdentifier)
}

func TestResolve_InheritedAndSuperCalls(t *testing.T) {
	src := `class Base {
  greet() {}
}
class Child extends Base {
  hello() {
    this.greet();
    super.greet();
  }
}
`
	a, _ := analyze(t, src)

	refs := a.ReferencesOf("Base.greet")
	assert.Equal(t, []string{"Child.hello", "Child.hello"}, callers(refs))
}

func TestResolve_OwnMethodWinsOverFreeFunction(t *testing.T) {
	src := `function n() {}
class C {
  m() { this.n(); }
  n() {}
}
`
	a, _ := analyze(t, src)

	assert.Len(t, a.ReferencesOf("C.n"), 1)
	assert.Empty(t, a.ReferencesOf("n"))
}

func TestResolve_ThisInsideNestedFunctionIsNotTheClass(t *testing.T) {
	src := `class C {
  m() {
    const self = function () { this.n(); };
    const arrow = () => this.n();
  }
  n() {}
}
`
	a, _ := analyze(t, src)

	// Only the arrow keeps the class as its this binding. The regular
	// function's site falls back to a bare lookup, which finds nothing.
	refs := a.ReferencesOf("C.n")
	require.Len(t, refs, 1)
	assert.Equal(t, "arrow", refs[0].CallerIdentifier)
}

func TestResolve_ClassFieldCallerIsClass(t *testing.T) {
	src := `function a() {}
class C {
  handler = () => { a(); };
}
`
	a, _ := analyze(t, src)

	refs := a.ReferencesOf("a")
	require.Len(t, refs, 1)
	assert.Equal(t, "C", refs[0].CallerIdentifier)
	assert.Equal(t, CallerClass, refs[0].CallerKind)
}

func TestResolve_ObjectMethodCaller(t *testing.T) {
	src := `function a() {}
const api = {
  load() { a(); },
  save: function () { a(); },
};
`
	a, _ := analyze(t, src)

	refs := a.ReferencesOf("a")
	require.Len(t, refs, 2)
	assert.Equal(t, []string{"load", "save"}, callers(refs))
	assert.Equal(t, CallerProperty, refs[0].CallerKind)
	assert.Equal(t, CallerProperty, refs[1].CallerKind)
}

// Every resolved site produces exactly one in-edge somewhere in the inventory.
func TestResolve_OneReferencePerSite(t *testing.T) {
	src := `function a() { b(); c(); }
function b() { c(); new K(); }
const c = () => {};
class K { m() { this.m(); a(); } }
a(); b(); missing();
`
	a, stats := analyze(t, src)

	total := 0
	for _, d := range a.Functions {
		total += len(d.References)
	}
	for _, d := range a.Classes {
		total += len(d.References)
		for _, m := range d.Methods {
			total += len(m.References)
		}
	}
	assert.Equal(t, stats.Resolved, total)
	assert.Equal(t, stats.Sites, stats.Resolved+stats.Dropped)
	assert.Equal(t, 1, stats.Dropped)
}

func TestAnalyzer_AnalyzeSource(t *testing.T) {
	z := NewAnalyzer(nil, nil)
	a, err := z.AnalyzeSource(context.Background(), []byte("function a() {}\na();\n"), "src/app.js")
	require.NoError(t, err)

	assert.Equal(t, "src/app.js", a.FilePath)
	assert.NotEmpty(t, a.Hash)
	assert.Equal(t, 1, a.TotalFunctions)
	assert.Len(t, a.ReferencesOf("a"), 1)
}

func TestAnalyzer_AnalyzeSource_InvalidUTF8(t *testing.T) {
	z := NewAnalyzer(nil, nil)
	_, err := z.AnalyzeSource(context.Background(), []byte{0xff, 0xfe}, "bad.js")
	assert.Error(t, err)
}
