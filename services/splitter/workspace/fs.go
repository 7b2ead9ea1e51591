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
// Package workspace is the file-system collaborator of the splitter: the
// real disk, an in-memory tree for tests and a write overlay for dry runs.
// All three sit on afero.
package workspace

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
)

// FileSystem is everything the splitter needs from storage.
type FileSystem interface {
	// ReadFile returns the contents of path.
	ReadFile(path string) ([]byte, error)

	// WriteFile creates or truncates path. Parent directories must exist.
	WriteFile(path string, data []byte) error

	// MkdirAll creates path and any missing parents.
	MkdirAll(path string) error

	// ListFiles returns the files below root whose extension is in exts,
	// in lexical walk order. A root naming a file yields that file.
	ListFiles(root string, exts []string) ([]string, error)
}

// OSFileSystem is the real disk.
//
// Thread Safety:
//
//	Safe for concurrent use; it holds no state beyond its options.
type OSFileSystem struct {
	// RespectGitignore skips paths matched by the root's .gitignore.
	RespectGitignore bool

	// ExtraIgnores are gitignore-style patterns applied in addition.
	ExtraIgnores []string
}

var osFs = afero.NewOsFs()

// NewOSFileSystem returns a disk file system that honors .gitignore.
func NewOSFileSystem(extraIgnores ...string) *OSFileSystem {
	return &OSFileSystem{RespectGitignore: true, ExtraIgnores: extraIgnores}
}

// ReadFile implements FileSystem.
func (o *OSFileSystem) ReadFile(path string) ([]byte, error) {
	return readFile(osFs, path)
}

// WriteFile implements FileSystem.
func (o *OSFileSystem) WriteFile(path string, data []byte) error {
	return writeFile(osFs, path, data)
}

// MkdirAll implements FileSystem.
func (o *OSFileSystem) MkdirAll(path string) error {
	return mkdirAll(osFs, path)
}

// ListFiles implements FileSystem.
func (o *OSFileSystem) ListFiles(root string, exts []string) ([]string, error) {
	m := &ignoreMatcher{extra: compileExtra(o.ExtraIgnores)}
	if o.RespectGitignore {
		m.gitignore = loadGitignore(osFs, root)
	}
	return listFiles(osFs, root, m, exts)
}

func readFile(fsys afero.Fs, path string) ([]byte, error) {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}

func writeFile(fsys afero.Fs, path string, data []byte) error {
	if err := afero.WriteFile(fsys, path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func mkdirAll(fsys afero.Fs, path string) error {
	if err := fsys.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", path, err)
	}
	return nil
}

func listFiles(fsys afero.Fs, root string, m *ignoreMatcher, exts []string) ([]string, error) {
	info, err := fsys.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", root, err)
	}
	if !info.IsDir() {
		if hasExtension(root, exts) {
			return []string{root}, nil
		}
		return []string{}, nil
	}
	return walk(fsys, root, m, exts)
}

// WriteFileAll creates the parent directory of path and writes data.
func WriteFileAll(fs FileSystem, path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := fs.MkdirAll(dir); err != nil {
			return err
		}
	}
	return fs.WriteFile(path, data)
}
