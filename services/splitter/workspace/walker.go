// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
	"github.com/spf13/afero"
)

// IgnoredDirs are directories never descended into.
var IgnoredDirs = map[string]bool{
	".git":             true,
	"node_modules":     true,
	"bower_components": true,
	"dist":             true,
	"build":            true,
	"coverage":         true,
	".next":            true,
	".nuxt":            true,
	".cache":           true,
	".idea":            true,
	".vscode":          true,
}

type ignoreMatcher struct {
	gitignore *ignore.GitIgnore
	extra     *ignore.GitIgnore
}

func (m *ignoreMatcher) matches(rel string) bool {
	if m == nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	if m.gitignore != nil && m.gitignore.MatchesPath(rel) {
		return true
	}
	return m.extra != nil && m.extra.MatchesPath(rel)
}

// loadGitignore loads .gitignore from root if it exists.
func loadGitignore(fsys afero.Fs, root string) *ignore.GitIgnore {
	data, err := afero.ReadFile(fsys, filepath.Join(root, ".gitignore"))
	if err != nil {
		return nil
	}
	return ignore.CompileIgnoreLines(strings.Split(string(data), "\n")...)
}

func compileExtra(patterns []string) *ignore.GitIgnore {
	if len(patterns) == 0 {
		return nil
	}
	return ignore.CompileIgnoreLines(patterns...)
}

// walk collects matching files below root in lexical order.
func walk(fsys afero.Fs, root string, m *ignoreMatcher, exts []string) ([]string, error) {
	files := make([]string, 0)
	err := afero.Walk(fsys, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}

		if info.IsDir() {
			if IgnoredDirs[info.Name()] || m.matches(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if m.matches(rel) || !hasExtension(path, exts) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}
	return files, nil
}

// hasExtension reports whether path ends in one of exts. An empty exts
// accepts every file.
func hasExtension(path string, exts []string) bool {
	if len(exts) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range exts {
		if strings.ToLower(e) == ext {
			return true
		}
	}
	return false
}
