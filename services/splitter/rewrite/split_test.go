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
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tonguyenducmanh/split-file-javascript/services/splitter/ast"
	"github.com/tonguyenducmanh/split-file-javascript/services/splitter/plan"
	"github.com/tonguyenducmanh/split-file-javascript/services/splitter/workspace"
)

func TestSplitter_Scenario(t *testing.T) {
	fs := workspace.NewMemoryFileSystem(map[string]string{
		"src/app.js": "function a() {\n  b();\n}\n\nfunction b() {}\n",
	})
	p := &plan.SplitPlan{Groups: []*plan.Group{
		{File: "src/app.js", Destination: "p1.js", Items: []plan.Item{plan.Named("a")}},
		{File: "src/app.js", Destination: "p2.js", Items: []plan.Item{plan.Named("b"), plan.Named("ghost")}},
	}}

	result, err := NewSplitter(fs, nil, nil, nil).Split(context.Background(), p, "")
	require.NoError(t, err)

	files := fs.Files()
	assert.Equal(t, "import { b } from \"./p2.js\";\n\nexport function a() {\n  b();\n}\n", files["src/p1.js"])
	assert.Equal(t, "export function b() {}\n", files["src/p2.js"])
	assert.NotContains(t, files["src/app.js"], "function")
	assert.Equal(t, []string{"src/p1.js", "src/p2.js", "src/app.js"}, result.Written)
	assert.NotEmpty(t, result.RunID)
	assert.Len(t, result.ExtractedItems, 2)

	require.Len(t, result.NotFound, 1)
	assert.Equal(t, "p2.js", result.NotFound[0].Destination)
	require.Len(t, result.NotFound[0].Items, 1)
	assert.Equal(t, "ghost", result.NotFound[0].Items[0].Name)

	require.Len(t, p.Groups[1].Items, 2, "the caller's plan must not be modified")
}

func TestSplitter_DefaultFile(t *testing.T) {
	fs := workspace.NewMemoryFileSystem(map[string]string{"lib/x.js": "function a() {}\n"})
	p := &plan.SplitPlan{Groups: []*plan.Group{
		{Destination: "a.js", Items: []plan.Item{plan.Named("a")}},
	}}
	s := NewSplitter(fs, nil, nil, nil)

	_, err := s.Split(context.Background(), p, "")
	assert.ErrorIs(t, err, ErrNoSourceFile)

	result, err := s.Split(context.Background(), p, "lib/x.js")
	require.NoError(t, err)
	assert.Empty(t, result.NotFound)
	assert.Equal(t, "export function a() {}\n", fs.Files()["lib/a.js"])
}

func TestSplitter_MissingSourceFile(t *testing.T) {
	fs := workspace.NewMemoryFileSystem(nil)
	p := &plan.SplitPlan{Groups: []*plan.Group{
		{File: "nope.js", Destination: "a.js", Items: []plan.Item{plan.Named("a")}},
	}}

	result, err := NewSplitter(fs, nil, nil, nil).Split(context.Background(), p, "")
	require.Error(t, err)
	require.NotNil(t, result)
	assert.Len(t, result.NotFound, 1)
}

func TestSplitter_SyntaxErrorStopsRun(t *testing.T) {
	fs := workspace.NewMemoryFileSystem(map[string]string{"bad.js": "function a( {\n"})
	p := &plan.SplitPlan{Groups: []*plan.Group{
		{File: "bad.js", Destination: "a.js", Items: []plan.Item{plan.Named("a")}},
	}}

	_, err := NewSplitter(fs, nil, nil, nil).Split(context.Background(), p, "")
	assert.True(t, errors.Is(err, ast.ErrSyntax))
	assert.Equal(t, "function a( {\n", fs.Files()["bad.js"])
}

func TestSplitter_DryRunThroughOverlay(t *testing.T) {
	base := workspace.NewMemoryFileSystem(map[string]string{"app.js": "function a() {}\n"})
	overlay := workspace.NewOverlay(base)
	p := &plan.SplitPlan{Groups: []*plan.Group{
		{File: "app.js", Destination: "a.js", Items: []plan.Item{plan.Named("a")}},
	}}

	_, err := NewSplitter(overlay, nil, nil, nil).Split(context.Background(), p, "")
	require.NoError(t, err)

	assert.Equal(t, "function a() {}\n", base.Files()["app.js"])
	changes := overlay.Changes()
	require.Len(t, changes, 2)
	assert.Equal(t, "a.js", changes[0].Path)
	assert.Nil(t, changes[0].Before)
	assert.Equal(t, "app.js", changes[1].Path)
	assert.Equal(t, "", string(changes[1].After))
}

const component = `<template>
  <div />
</template>

<script>
export default {
  name: "Cart",
  methods: {
    save() {
      return 1;
    },
    load: function (id) {
      return id;
    },
    keep() {},
  },
};
</script>
`

func TestSplitter_VueMethods(t *testing.T) {
	fs := workspace.NewMemoryFileSystem(map[string]string{"src/Cart.vue": component})
	p := &plan.SplitPlan{Groups: []*plan.Group{
		{File: "src/Cart.vue", Destination: "cart-actions.js", Items: []plan.Item{plan.Named("save"), plan.Named("load"), plan.Named("missing")}},
	}}

	result, err := NewSplitter(fs, nil, nil, nil).Split(context.Background(), p, "")
	require.NoError(t, err)

	files := fs.Files()
	assert.Equal(t, "export default {\n  save() {\n    return 1;\n  },\n\n  load(id) {\n    return id;\n  },\n};\n", files["src/cart-actions.js"])

	want := `<template>
  <div />
</template>

<script>import cartActions from "./cart-actions.js";

export default {
  name: "Cart",
  methods: {
    ...cartActions,
    keep() {},
  },
};
</script>
`
	assert.Equal(t, want, files["src/Cart.vue"])
	assert.Len(t, result.ExtractedItems, 2)
	require.Len(t, result.NotFound, 1)
	assert.Equal(t, "missing", result.NotFound[0].Items[0].Name)
}

func TestSplitter_VueWithoutMethodsIsSkipped(t *testing.T) {
	fs := workspace.NewMemoryFileSystem(map[string]string{
		"C.vue": "<script>\nexport default { name: 'C' };\n</script>\n",
	})
	p := &plan.SplitPlan{Groups: []*plan.Group{
		{File: "C.vue", Destination: "c.js", Items: []plan.Item{plan.Named("save")}},
	}}

	result, err := NewSplitter(fs, nil, nil, nil).Split(context.Background(), p, "")
	require.NoError(t, err)
	assert.Len(t, result.NotFound, 1)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "methods")
}

func TestVueImportName(t *testing.T) {
	tests := map[string]string{
		"cart-actions.js":   "cartActions",
		"mixins/form.js":    "form",
		"user-list-view.js": "userListView",
	}
	for dest, want := range tests {
		assert.Equal(t, want, vueImportName(dest), dest)
	}
}
