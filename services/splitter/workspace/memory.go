// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package workspace is the file-system collaborator of the splitter: the
// real disk, an in-memory tree for tests and a write overlay for dry runs.
package workspace

import (
	"os"
	"path"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"
)

// MemoryFileSystem keeps files in an afero.MemMapFs. Paths are cleaned
// and compared in slash form, relative to the tree's root.
//
// Thread Safety:
//
//	Safe for concurrent use.
type MemoryFileSystem struct {
	fs afero.Fs
}

// NewMemoryFileSystem returns a file system holding files.
func NewMemoryFileSystem(files map[string]string) *MemoryFileSystem {
	m := &MemoryFileSystem{fs: afero.NewMemMapFs()}
	for p, content := range files {
		_ = afero.WriteFile(m.fs, clean(p), []byte(content), 0o644)
	}
	return m
}

func clean(p string) string {
	return path.Clean(filepath.ToSlash(p))
}

// ReadFile implements FileSystem.
func (m *MemoryFileSystem) ReadFile(p string) ([]byte, error) {
	return readFile(m.fs, clean(p))
}

// WriteFile implements FileSystem. Missing parents are created, as the
// tree has no directory permissions to respect.
func (m *MemoryFileSystem) WriteFile(p string, data []byte) error {
	return writeFile(m.fs, clean(p), data)
}

// MkdirAll implements FileSystem.
func (m *MemoryFileSystem) MkdirAll(p string) error {
	return mkdirAll(m.fs, clean(p))
}

// ListFiles implements FileSystem. Only IgnoredDirs are skipped.
func (m *MemoryFileSystem) ListFiles(root string, exts []string) ([]string, error) {
	return listFiles(m.fs, clean(root), nil, exts)
}

// Files returns a snapshot of every file, keyed by cleaned path.
func (m *MemoryFileSystem) Files() map[string]string {
	out := make(map[string]string)
	_ = afero.Walk(m.fs, ".", func(p string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		if data, err := afero.ReadFile(m.fs, p); err == nil {
			out[clean(p)] = string(data)
		}
		return nil
	})
	return out
}

// Change is one file written through an Overlay.
type Change struct {
	Path string

	// Before is nil when the file did not exist.
	Before []byte
	After  []byte
}

// Overlay records writes in an in-memory layer and reads through to a base
// file system for everything it has not written. It is what dry runs
// split against.
//
// Thread Safety:
//
//	Safe for concurrent use.
type Overlay struct {
	base  FileSystem
	layer afero.Fs

	mu    sync.Mutex
	order []string
}

// NewOverlay wraps base.
func NewOverlay(base FileSystem) *Overlay {
	return &Overlay{base: base, layer: afero.NewMemMapFs()}
}

// ReadFile implements FileSystem.
func (o *Overlay) ReadFile(p string) ([]byte, error) {
	if ok, _ := afero.Exists(o.layer, clean(p)); ok {
		return readFile(o.layer, clean(p))
	}
	return o.base.ReadFile(p)
}

// WriteFile implements FileSystem.
func (o *Overlay) WriteFile(p string, data []byte) error {
	key := clean(p)
	o.mu.Lock()
	defer o.mu.Unlock()
	if ok, _ := afero.Exists(o.layer, key); !ok {
		o.order = append(o.order, key)
	}
	return writeFile(o.layer, key, data)
}

// MkdirAll implements FileSystem. Directories are implied by writes.
func (o *Overlay) MkdirAll(string) error {
	return nil
}

// ListFiles implements FileSystem against the base.
func (o *Overlay) ListFiles(root string, exts []string) ([]string, error) {
	return o.base.ListFiles(root, exts)
}

// Changes returns every written file in first-write order with its base
// content.
func (o *Overlay) Changes() []Change {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]Change, 0, len(o.order))
	for _, p := range o.order {
		before, err := o.base.ReadFile(p)
		if err != nil {
			before = nil
		}
		after, _ := afero.ReadFile(o.layer, p)
		out = append(out, Change{Path: p, Before: before, After: after})
	}
	return out
}

