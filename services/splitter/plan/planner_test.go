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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tonguyenducmanh/split-file-javascript/services/splitter/analysis"
	"github.com/tonguyenducmanh/split-file-javascript/services/splitter/ast"
)

func analyzeJS(t *testing.T, src string) *analysis.Analysis {
	t.Helper()
	f, err := ast.NewParser().Parse(context.Background(), []byte(src), "src.js")
	require.NoError(t, err)
	return analysis.Analyze(context.Background(), f)
}

func TestPlanDependencies_CrossDestinationEdge(t *testing.T) {
	a := analyzeJS(t, "function a() { b(); }\nfunction b() {}\n")
	groups := []*Group{
		{Destination: "p1", Items: []Item{Named("a")}},
		{Destination: "p2", Items: []Item{Named("b")}},
	}

	p := PlanDependencies(context.Background(), a, groups)

	assert.Equal(t, "p1", p.Targets.DestinationOf("a"))
	assert.Equal(t, "p2", p.Targets.DestinationOf("b"))
	assert.Equal(t, []Dependency{{Source: "p1", Target: "p2", OriginalName: "b", NewName: "b"}}, p.Dependencies.For("p1"))
	assert.Empty(t, p.Dependencies.For("p2"))
	assert.Empty(t, p.Dangling)
}

func TestPlanDependencies_RenamedCallee(t *testing.T) {
	a := analyzeJS(t, "function a() { b(); b(); }\nfunction c() { b(); }\nfunction b() {}\n")
	groups := []*Group{
		{Destination: "p1", Items: []Item{Named("a"), Named("c")}},
		{Destination: "p2", Items: []Item{{Name: "b", NewName: "bee"}}},
	}

	p := PlanDependencies(context.Background(), a, groups)

	deps := p.Dependencies.For("p1")
	require.Len(t, deps, 1, "edges are deduplicated per consumer and callee")
	assert.Equal(t, "b", deps[0].OriginalName)
	assert.Equal(t, "bee", deps[0].NewName)
}

func TestPlanDependencies_SameDestinationAndOutsidePlan(t *testing.T) {
	a := analyzeJS(t, "function a() { b(); }\nfunction b() { c(); }\nfunction c() {}\nb();\n")
	groups := []*Group{
		{Destination: "p1", Items: []Item{Named("a"), Named("b")}},
	}

	p := PlanDependencies(context.Background(), a, groups)

	assert.Empty(t, p.Dependencies)
	require.Len(t, p.Dangling, 1)
	assert.Equal(t, Dangling{Caller: "b", Callee: "c", Destination: "p1", Line: 2}, p.Dangling[0])
}

func TestPlanDependencies_MethodReferenceUsesClassEntry(t *testing.T) {
	src := `class Calc {
  static add() {}
}
function use() {
  Calc.add();
}
`
	a := analyzeJS(t, src)
	groups := []*Group{
		{Destination: "lib", Items: []Item{Named("Calc")}},
		{Destination: "app", Items: []Item{Named("use")}},
	}

	p := PlanDependencies(context.Background(), a, groups)

	assert.Equal(t, GranularityWhole, p.Targets["Calc"].Granularity)
	assert.Equal(t, "lib", p.Targets.DestinationOf("Calc.add"))
	assert.Equal(t, []Dependency{{Source: "app", Target: "lib", OriginalName: "Calc", NewName: "Calc"}}, p.Dependencies.For("app"))
}

func TestBuildItemToDestination_ClassGranularity(t *testing.T) {
	src := `class C {
  m() {}
  n() { this.m(); }
  o() {}
}
`
	a := analyzeJS(t, src)

	t.Run("externally referenced method forces method granularity", func(t *testing.T) {
		m := BuildItemToDestination(a, []*Group{
			{Destination: "p", Items: []Item{{Class: "C", Methods: []MethodItem{{Name: "m", NewName: "em"}}}}},
		})
		_, classMapped := m["C"]
		assert.False(t, classMapped)
		tgt, ok := m.Lookup("C.m")
		require.True(t, ok)
		assert.Equal(t, GranularityMethod, tgt.Granularity)
		assert.Equal(t, "em", tgt.NewName)
		assert.True(t, tgt.IsMethod())
	})

	t.Run("unreferenced selection moves the whole class", func(t *testing.T) {
		m := BuildItemToDestination(a, []*Group{
			{Destination: "p", Items: []Item{{Class: "C", Methods: []MethodItem{{Name: "o"}}}}},
		})
		assert.Equal(t, GranularityWhole, m["C"].Granularity)
		assert.Equal(t, "p", m.DestinationOf("C.m"))
		assert.Equal(t, "p", m.DestinationOf("C.o"))
	})

	t.Run("caller selected into the same destination is internal", func(t *testing.T) {
		m := BuildItemToDestination(a, []*Group{
			{Destination: "p", Items: []Item{{Class: "C", Methods: []MethodItem{{Name: "m"}, {Name: "n"}}}}},
		})
		assert.Equal(t, GranularityWhole, m["C"].Granularity)
	})

	t.Run("unknown items are not mapped", func(t *testing.T) {
		m := BuildItemToDestination(a, []*Group{
			{Destination: "p", Items: []Item{Named("ghost"), {Class: "C", Methods: []MethodItem{{Name: "nope"}}}}},
		})
		_, ghost := m["ghost"]
		assert.False(t, ghost)
		_, nope := m["C.nope"]
		assert.False(t, nope)
		_, cls := m["C"]
		assert.False(t, cls, "a selection matching no method must not move the class")
	})
}

func TestPlanDependencies_NestedCalleeIsNotDangling(t *testing.T) {
	src := `function outer() {
  function inner() {}
  inner();
}
`
	a := analyzeJS(t, src)
	p := PlanDependencies(context.Background(), a, []*Group{{Destination: "p", Items: []Item{Named("outer")}}})
	assert.Empty(t, p.Dangling)
}

func TestPlanDependencies_NestedCallerUsesEnclosingItem(t *testing.T) {
	src := "function a(){ function inner(){ return b(); } return inner(); } function b(){}\n"
	a := analyzeJS(t, src)

	t.Run("callee in another destination is imported", func(t *testing.T) {
		p := PlanDependencies(context.Background(), a, []*Group{
			{Destination: "p1.js", Items: []Item{Named("a")}},
			{Destination: "p2.js", Items: []Item{Named("b")}},
		})
		assert.Equal(t, []Dependency{{Source: "p1.js", Target: "p2.js", OriginalName: "b", NewName: "b"}}, p.Dependencies.For("p1.js"))
		assert.Empty(t, p.Dangling)
	})

	t.Run("callee left behind is dangling", func(t *testing.T) {
		p := PlanDependencies(context.Background(), a, []*Group{
			{Destination: "p1.js", Items: []Item{Named("a")}},
		})
		assert.Empty(t, p.Dependencies)
		assert.Equal(t, []Dangling{{Caller: "inner", Callee: "b", Destination: "p1.js", Line: 1}}, p.Dangling)
	})
}

func TestItemToDestination_Owner(t *testing.T) {
	src := `function outer() {
  function mid() {
    function leaf() {}
  }
}
function loose() {}
`
	a := analyzeJS(t, src)
	m := BuildItemToDestination(a, []*Group{
		{Destination: "o.js", Items: []Item{Named("outer")}},
		{Destination: "m.js", Items: []Item{Named("mid")}},
	})

	owner, ok := m.Owner(a, "leaf")
	require.True(t, ok)
	assert.Equal(t, "mid", owner.OriginalName, "innermost planned item wins")

	owner, ok = m.Owner(a, "outer")
	require.True(t, ok)
	assert.Equal(t, "o.js", owner.Destination)

	_, ok = m.Owner(a, "loose")
	assert.False(t, ok)
}

func TestPlanDependencies_ClassKeptAtMethodGranularity(t *testing.T) {
	src := `function use() {
  return C.make(1);
}

class C {
  static make(x) {
    return new C(x);
  }
}
`
	a := analyzeJS(t, src)
	groups := []*Group{
		{Destination: "c.js", Items: []Item{{Class: "C", Methods: []MethodItem{{Name: "make"}}}}},
		{Destination: "u.js", Items: []Item{Named("use")}},
	}

	p := PlanDependencies(context.Background(), a, groups)

	assert.Equal(t, GranularityMethod, p.Targets["C.make"].Granularity)
	assert.Equal(t, []Dependency{{Source: "u.js", OriginalName: "C", NewName: "C", Original: true}}, p.Dependencies.For("u.js"))
	assert.Equal(t, []Dependency{{Source: "c.js", OriginalName: "C", NewName: "C", Original: true}}, p.Dependencies.For("c.js"))
	assert.Empty(t, p.Dangling)
}

func TestPlanDependencies_SameClassCallsNeedNoImport(t *testing.T) {
	src := `class C {
  m() {
    return this.n();
  }

  n() {
    return 1;
  }

  o() {
    return this.m();
  }
}
`
	a := analyzeJS(t, src)
	p := PlanDependencies(context.Background(), a, []*Group{
		{Destination: "c.js", Items: []Item{{Class: "C", Methods: []MethodItem{{Name: "m"}}}}},
	})

	assert.Equal(t, GranularityMethod, p.Targets["C.m"].Granularity)
	assert.Empty(t, p.Dependencies)
	assert.Empty(t, p.Dangling)
}
