// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package watch re-runs analysis when sources below a directory change.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	ignore "github.com/sabhiram/go-gitignore"
	"github.com/tonguyenducmanh/split-file-javascript/services/splitter/workspace"
)

// DefaultDebounce is used when Options.Debounce is zero.
const DefaultDebounce = 500 * time.Millisecond

// ChangeFunc receives the sorted set of source files that changed since
// the previous call.
type ChangeFunc func(ctx context.Context, changed []string) error

// Options configures a Watcher.
type Options struct {
	// Root is the directory watched recursively.
	Root string

	// Extensions selects the files whose changes trigger OnChange.
	Extensions []string

	// Exclude holds gitignore-style patterns relative to Root.
	Exclude []string

	Debounce time.Duration
	OnChange ChangeFunc
	Logger   *slog.Logger
}

// Watcher coalesces file system events below a root into debounced
// OnChange calls.
//
// Thread Safety:
//
//	Run must be called at most once. OnChange runs on the Run goroutine,
//	so calls never overlap.
type Watcher struct {
	opts    Options
	fsw     *fsnotify.Watcher
	exclude *ignore.GitIgnore
	logger  *slog.Logger
}

// New creates a Watcher and registers every directory below opts.Root.
// Events that occur after New returns are delivered to the next Run.
func New(opts Options) (*Watcher, error) {
	if opts.OnChange == nil {
		return nil, errors.New("watch: OnChange is required")
	}
	if len(opts.Extensions) == 0 {
		return nil, errors.New("watch: at least one extension is required")
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", opts.Root, err)
	}
	opts.Root = root
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}
	w := &Watcher{
		opts:   opts,
		fsw:    fsw,
		logger: logger.With(slog.String("component", "watch"), slog.String("root", root)),
	}
	if len(opts.Exclude) > 0 {
		w.exclude = ignore.CompileIgnoreLines(opts.Exclude...)
	}
	if err := w.addRecursive(root); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// Run delivers debounced changes to OnChange until ctx is cancelled.
// OnChange errors are logged and do not stop the loop.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	pending := make(map[string]struct{})
	var (
		timer  *time.Timer
		timerC <-chan time.Time
	)
	stopTimer := func() {
		if timer != nil {
			timer.Stop()
		}
	}
	defer stopTimer()

	w.logger.Info("watching for changes", slog.Duration("debounce", w.opts.Debounce))
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("watcher events channel closed")
			}
			if !w.handle(event) {
				continue
			}
			pending[event.Name] = struct{}{}
			stopTimer()
			timer = time.NewTimer(w.opts.Debounce)
			timerC = timer.C

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("watcher errors channel closed")
			}
			w.logger.Warn("watcher error", slog.Any("error", err))

		case <-timerC:
			timerC = nil
			changed := make([]string, 0, len(pending))
			for p := range pending {
				changed = append(changed, p)
			}
			sort.Strings(changed)
			clear(pending)

			w.logger.Debug("changes detected", slog.Int("files", len(changed)))
			if err := w.opts.OnChange(ctx, changed); err != nil {
				w.logger.Error("change handler failed", slog.Any("error", err))
			}
		}
	}
}

// handle registers new directories and reports whether event touches a
// watched source file.
func (w *Watcher) handle(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}
	if w.excluded(event.Name) {
		return false
	}
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addRecursive(event.Name); err != nil {
				w.logger.Warn("failed to watch new directory", slog.String("path", event.Name), slog.Any("error", err))
			}
			return false
		}
	}
	return hasExtension(event.Name, w.opts.Extensions)
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path != root && errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && (workspace.IgnoredDirs[d.Name()] || w.excluded(path)) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		return nil
	})
}

func (w *Watcher) excluded(path string) bool {
	rel, err := filepath.Rel(w.opts.Root, path)
	if err != nil || rel == "." {
		return false
	}
	rel = filepath.ToSlash(rel)
	for _, part := range strings.Split(rel, "/") {
		if workspace.IgnoredDirs[part] {
			return true
		}
	}
	return w.exclude != nil && w.exclude.MatchesPath(rel)
}

func hasExtension(path string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range exts {
		if strings.ToLower(e) == ext {
			return true
		}
	}
	return false
}
