// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package snapshot persists analysis reports in BadgerDB so that the
// declaration inventory of a project can be compared over time.
package snapshot

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/tonguyenducmanh/split-file-javascript/services/splitter/analysis"
)

// ErrNotFound is returned when a snapshot or latest pointer does not exist.
var ErrNotFound = errors.New("snapshot not found")

// BadgerDB key layout.
const (
	keyPrefixSnap      = "jssplit:snap:"
	keyPrefixSnapIndex = "jssplit:snap:index:"
	keySuffixData      = ":data"
	keySuffixMeta      = ":meta"
	keySuffixLatest    = ":latest"
)

// Metadata describes a saved snapshot.
type Metadata struct {
	// SnapshotID is SHA256(Root + GeneratedAtMilli)[:16].
	SnapshotID string `json:"snapshot_id"`

	Root string `json:"root"`

	// ProjectHash is SHA256(Root)[:16], the key group of the project.
	ProjectHash string `json:"project_hash"`

	// ReportHash is the report's deterministic content hash.
	ReportHash string `json:"report_hash"`

	Label string `json:"label,omitempty"`

	CreatedAtMilli int64 `json:"created_at_milli"`

	FileCount      int    `json:"file_count"`
	FunctionCount  int    `json:"function_count"`
	ClassCount     int    `json:"class_count"`
	SchemaVersion  string `json:"schema_version"`
	CompressedSize int64  `json:"compressed_size"`

	// ContentHash is the SHA256 of the compressed payload.
	ContentHash string `json:"content_hash"`
}

// Manager saves and loads analysis reports.
//
// Thread Safety:
//
//	Safe for concurrent use. BadgerDB handles its own concurrency control.
type Manager struct {
	db     *badger.DB
	logger *slog.Logger
}

// OpenDB opens a BadgerDB at dir, or in memory when dir is empty.
func OpenDB(dir string) (*badger.DB, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot store %q: %w", dir, err)
	}
	return db, nil
}

// NewManager creates a Manager over an opened DB. The caller closes db.
func NewManager(db *badger.DB, logger *slog.Logger) (*Manager, error) {
	if db == nil {
		return nil, fmt.Errorf("badger db must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}
	return &Manager{db: db, logger: logger}, nil
}

// Save persists r and moves the project's latest pointer to it.
//
// Key Schema:
//
//	jssplit:snap:{projectHash}:{snapshotID}:data -> gzip(JSON(Report))
//	jssplit:snap:{projectHash}:{snapshotID}:meta -> JSON(Metadata)
//	jssplit:snap:{projectHash}:latest            -> snapshotID
//	jssplit:snap:index:{snapshotID}              -> projectHash
func (m *Manager) Save(ctx context.Context, r *analysis.Report, label string) (*Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r == nil {
		return nil, fmt.Errorf("report must not be nil")
	}

	payload, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshaling report: %w", err)
	}
	var compressed bytes.Buffer
	gw, err := gzip.NewWriterLevel(&compressed, gzip.BestCompression)
	if err != nil {
		return nil, fmt.Errorf("creating gzip writer: %w", err)
	}
	if _, err := gw.Write(payload); err != nil {
		return nil, fmt.Errorf("compressing report: %w", err)
	}
	if err := gw.Close(); err != nil {
		return nil, fmt.Errorf("closing gzip writer: %w", err)
	}
	data := compressed.Bytes()

	projectHash := ProjectHash(r.Root)
	snapshotID := hashString(fmt.Sprintf("%s:%d", r.Root, r.GeneratedAtMilli))[:16]
	meta := &Metadata{
		SnapshotID:     snapshotID,
		Root:           r.Root,
		ProjectHash:    projectHash,
		ReportHash:     r.ReportHash,
		Label:          label,
		CreatedAtMilli: time.Now().UnixMilli(),
		FileCount:      len(r.Files),
		FunctionCount:  r.TotalFunctions,
		ClassCount:     r.TotalClasses,
		SchemaVersion:  r.SchemaVersion,
		CompressedSize: int64(len(data)),
		ContentHash:    hashBytes(data),
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("marshaling metadata: %w", err)
	}

	err = m.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(dataKey(projectHash, snapshotID), data); err != nil {
			return fmt.Errorf("storing data: %w", err)
		}
		if err := txn.Set(metaKey(projectHash, snapshotID), metaJSON); err != nil {
			return fmt.Errorf("storing metadata: %w", err)
		}
		if err := txn.Set(latestKey(projectHash), []byte(snapshotID)); err != nil {
			return fmt.Errorf("updating latest pointer: %w", err)
		}
		if err := txn.Set([]byte(keyPrefixSnapIndex+snapshotID), []byte(projectHash)); err != nil {
			return fmt.Errorf("storing reverse index: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("writing snapshot: %w", err)
	}

	m.logger.Info("snapshot saved",
		slog.String("snapshot_id", snapshotID),
		slog.String("root", r.Root),
		slog.Int("files", meta.FileCount),
		slog.Int64("compressed_size", meta.CompressedSize),
	)
	return meta, nil
}

// Load returns the report saved under snapshotID.
func (m *Manager) Load(ctx context.Context, snapshotID string) (*analysis.Report, *Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	if snapshotID == "" {
		return nil, nil, fmt.Errorf("snapshot ID must not be empty")
	}
	projectHash, err := m.getString([]byte(keyPrefixSnapIndex + snapshotID))
	if err != nil {
		return nil, nil, fmt.Errorf("looking up snapshot %s: %w", snapshotID, err)
	}
	return m.loadByKeys(projectHash, snapshotID)
}

// LoadLatest returns the most recent report saved for root.
func (m *Manager) LoadLatest(ctx context.Context, root string) (*analysis.Report, *Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	projectHash := ProjectHash(root)
	snapshotID, err := m.getString(latestKey(projectHash))
	if err != nil {
		return nil, nil, fmt.Errorf("reading latest pointer for %s: %w", root, err)
	}
	return m.loadByKeys(projectHash, snapshotID)
}

// List returns snapshot metadata newest first. An empty root lists every
// project. limit <= 0 means 100.
func (m *Manager) List(ctx context.Context, root string, limit int) ([]*Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 100
	}
	prefix := keyPrefixSnap
	if root != "" {
		prefix = keyPrefixSnap + ProjectHash(root) + ":"
	}

	results := make([]*Metadata, 0)
	err := m.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek([]byte(prefix)); it.Valid(); it.Next() {
			item := it.Item()
			key := string(item.Key())
			if !strings.HasSuffix(key, keySuffixMeta) {
				continue
			}
			var meta Metadata
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &meta)
			}); err != nil {
				m.logger.Warn("skipping corrupt metadata", slog.String("key", key), slog.Any("error", err))
				continue
			}
			results = append(results, &meta)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].CreatedAtMilli > results[j].CreatedAtMilli
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Delete removes a snapshot, and the latest pointer when it pointed at it.
func (m *Manager) Delete(ctx context.Context, snapshotID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if snapshotID == "" {
		return fmt.Errorf("snapshot ID must not be empty")
	}
	projectHash, err := m.getString([]byte(keyPrefixSnapIndex + snapshotID))
	if err != nil {
		return fmt.Errorf("looking up snapshot %s: %w", snapshotID, err)
	}

	err = m.db.Update(func(txn *badger.Txn) error {
		for _, key := range [][]byte{
			dataKey(projectHash, snapshotID),
			metaKey(projectHash, snapshotID),
			[]byte(keyPrefixSnapIndex + snapshotID),
		} {
			if err := txn.Delete(key); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("deleting %s: %w", key, err)
			}
		}
		item, err := txn.Get(latestKey(projectHash))
		if err != nil {
			return nil
		}
		latest, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		if string(latest) == snapshotID {
			return txn.Delete(latestKey(projectHash))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("deleting snapshot %s: %w", snapshotID, err)
	}

	m.logger.Info("snapshot deleted", slog.String("snapshot_id", snapshotID))
	return nil
}

func (m *Manager) loadByKeys(projectHash, snapshotID string) (*analysis.Report, *Metadata, error) {
	var data, metaJSON []byte
	err := m.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(dataKey(projectHash, snapshotID))
		if err != nil {
			return fmt.Errorf("reading data for %s: %w", snapshotID, notFound(err))
		}
		if data, err = item.ValueCopy(nil); err != nil {
			return fmt.Errorf("copying data for %s: %w", snapshotID, err)
		}
		item, err = txn.Get(metaKey(projectHash, snapshotID))
		if err != nil {
			return fmt.Errorf("reading metadata for %s: %w", snapshotID, notFound(err))
		}
		if metaJSON, err = item.ValueCopy(nil); err != nil {
			return fmt.Errorf("copying metadata for %s: %w", snapshotID, err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	var meta Metadata
	if err := json.Unmarshal(metaJSON, &meta); err != nil {
		return nil, nil, fmt.Errorf("unmarshaling metadata for %s: %w", snapshotID, err)
	}
	if actual := hashBytes(data); meta.ContentHash != "" && meta.ContentHash != actual {
		return nil, nil, fmt.Errorf("integrity check failed for %s: expected hash %s, got %s", snapshotID, meta.ContentHash, actual)
	}

	gr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("decompressing snapshot %s: %w", snapshotID, err)
	}
	defer gr.Close()
	payload, err := io.ReadAll(gr)
	if err != nil {
		return nil, nil, fmt.Errorf("reading decompressed data for %s: %w", snapshotID, err)
	}

	r, err := analysis.ParseReport(payload)
	if err != nil {
		return nil, nil, fmt.Errorf("snapshot %s: %w", snapshotID, err)
	}
	return r, &meta, nil
}

func (m *Manager) getString(key []byte) (string, error) {
	var out string
	err := m.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return notFound(err)
		}
		val, err := item.ValueCopy(nil)
		out = string(val)
		return err
	})
	return out, err
}

// notFound maps badger's missing-key error to ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	return err
}

// ProjectHash returns SHA256(root)[:16], the key prefix of a project.
func ProjectHash(root string) string {
	return hashString(root)[:16]
}

func dataKey(projectHash, snapshotID string) []byte {
	return []byte(keyPrefixSnap + projectHash + ":" + snapshotID + keySuffixData)
}

func metaKey(projectHash, snapshotID string) []byte {
	return []byte(keyPrefixSnap + projectHash + ":" + snapshotID + keySuffixMeta)
}

func latestKey(projectHash string) []byte {
	return []byte(keyPrefixSnap + projectHash + keySuffixLatest)
}

func hashString(s string) string {
	return hashBytes([]byte(s))
}

func hashBytes(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
