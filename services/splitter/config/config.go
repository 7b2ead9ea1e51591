// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads jssplit settings.
//
// Settings come from three layers, later layers winning: the embedded
// defaults, an optional jssplit.yaml in the project root, and JSSPLIT_*
// environment variables (optionally read from a .env file next to it).
package config

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"gopkg.in/yaml.v3"
)

var configTracer = otel.Tracer("jssplit.config")

//go:embed default_config.yaml
var defaultConfigYAML []byte

const (
	// FileName is the project config file looked up in the project root.
	FileName = "jssplit.yaml"

	// MaxYAMLFileSize bounds the project config file.
	MaxYAMLFileSize = 1 << 20
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the full jssplit configuration.
//
// Thread Safety: Immutable after loading; safe for concurrent use.
type Config struct {
	Analysis AnalysisConfig `yaml:"analysis"`
	Rewrite  RewriteConfig  `yaml:"rewrite"`
	Snapshot SnapshotConfig `yaml:"snapshot"`
	Server   ServerConfig   `yaml:"server"`
	Watch    WatchConfig    `yaml:"watch"`
	Logging  LoggingConfig  `yaml:"logging"`
	Tracing  TracingConfig  `yaml:"tracing"`
}

// AnalysisConfig controls file discovery and parsing.
type AnalysisConfig struct {
	// Extensions are the file extensions folder analysis picks up.
	Extensions []string `yaml:"extensions"`

	// MaxFileSize is the largest file the parser accepts, in bytes.
	MaxFileSize int `yaml:"max_file_size"`

	// Concurrency bounds parallel parsing during folder analysis.
	Concurrency int `yaml:"concurrency"`

	// ResultFile is the report name written under the save path.
	ResultFile string `yaml:"result_file"`

	RespectGitignore bool `yaml:"respect_gitignore"`

	// Ignore holds extra gitignore-style patterns.
	Ignore []string `yaml:"ignore"`
}

// RewriteConfig controls the rewrite engine.
type RewriteConfig struct {
	// InstanceParam is the parameter name extracted methods receive.
	InstanceParam string `yaml:"instance_param"`

	// ReExport keeps moved exports visible from the original module.
	ReExport bool `yaml:"reexport"`
}

// SnapshotConfig locates the snapshot store.
type SnapshotConfig struct {
	Dir string `yaml:"dir"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port int `yaml:"port"`

	// RateLimit is the sustained request rate per second. Zero disables it.
	RateLimit float64 `yaml:"rate_limit"`
	Burst     int     `yaml:"burst"`

	// CacheSize is the number of analyses kept by content hash.
	CacheSize int `yaml:"cache_size"`
}

// WatchConfig configures watch mode.
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce"`
}

// LoggingConfig selects the log level and handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TracingConfig selects the span exporter.
type TracingConfig struct {
	Exporter string `yaml:"exporter"`
	Endpoint string `yaml:"endpoint"`
}

// Default returns the embedded defaults.
func Default() *Config {
	var cfg Config
	if err := yaml.Unmarshal(defaultConfigYAML, &cfg); err != nil {
		panic(fmt.Sprintf("embedded default config is invalid: %v", err))
	}
	return &cfg
}

// Load builds the configuration for the project rooted at dir.
//
// Description:
//
//	Starts from the embedded defaults, overlays dir/jssplit.yaml when it
//	exists, loads dir/.env into the environment without overriding
//	variables already set, then applies JSSPLIT_* overrides. A missing
//	file at either step is not an error. An empty dir skips both files.
//
// Inputs:
//
//	ctx - Context for tracing.
//	dir - Project root.
//
// Outputs:
//
//	*Config - The validated configuration.
//	error   - File, parse or ErrInvalidConfig errors.
func Load(ctx context.Context, dir string) (*Config, error) {
	_, span := configTracer.Start(ctx, "config.Load")
	defer span.End()

	cfg := Default()
	source := "defaults"

	if dir != "" {
		path := filepath.Join(dir, FileName)
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := cfg.overlay(data); err != nil {
				return nil, fmt.Errorf("loading %s: %w", path, err)
			}
			source = path
		case errors.Is(err, fs.ErrNotExist):
		default:
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}

		if err := godotenv.Load(filepath.Join(dir, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading .env: %w", err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	span.SetAttributes(
		attribute.String("source", source),
		attribute.Int("extensions", len(cfg.Analysis.Extensions)),
	)
	slog.Debug("config loaded",
		slog.String("source", source),
		slog.String("log_level", cfg.Logging.Level),
		slog.String("tracing", cfg.Tracing.Exporter),
	)
	return cfg, nil
}

func (c *Config) overlay(data []byte) error {
	if len(data) > MaxYAMLFileSize {
		return fmt.Errorf("config file exceeds maximum size (%d > %d)", len(data), MaxYAMLFileSize)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing YAML: %w", err)
	}
	return nil
}

// applyEnv applies JSSPLIT_* overrides read through lookup.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	num := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not an integer", ErrInvalidConfig, key, v)
		}
		*dst = n
		return nil
	}

	str("JSSPLIT_LOG_LEVEL", &c.Logging.Level)
	str("JSSPLIT_LOG_FORMAT", &c.Logging.Format)
	str("JSSPLIT_SNAPSHOT_DIR", &c.Snapshot.Dir)
	str("JSSPLIT_TRACING_EXPORTER", &c.Tracing.Exporter)
	str("JSSPLIT_OTLP_ENDPOINT", &c.Tracing.Endpoint)
	str("JSSPLIT_INSTANCE_PARAM", &c.Rewrite.InstanceParam)
	if err := num("JSSPLIT_PORT", &c.Server.Port); err != nil {
		return err
	}
	if err := num("JSSPLIT_CONCURRENCY", &c.Analysis.Concurrency); err != nil {
		return err
	}
	if v, ok := lookup("JSSPLIT_EXTENSIONS"); ok && strings.TrimSpace(v) != "" {
		c.Analysis.Extensions = splitList(v)
	}
	if v, ok := lookup("JSSPLIT_REEXPORT"); ok && strings.TrimSpace(v) != "" {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%w: JSSPLIT_REEXPORT=%q is not a boolean", ErrInvalidConfig, v)
		}
		c.Rewrite.ReExport = b
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	if len(c.Analysis.Extensions) == 0 {
		return fmt.Errorf("%w: analysis.extensions must not be empty", ErrInvalidConfig)
	}
	for i, ext := range c.Analysis.Extensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("%w: analysis.extensions[%d] %q must start with a dot", ErrInvalidConfig, i, ext)
		}
	}
	if c.Analysis.MaxFileSize <= 0 {
		return fmt.Errorf("%w: analysis.max_file_size must be positive", ErrInvalidConfig)
	}
	if c.Analysis.Concurrency <= 0 {
		return fmt.Errorf("%w: analysis.concurrency must be positive", ErrInvalidConfig)
	}
	if c.Analysis.ResultFile == "" || filepath.Base(c.Analysis.ResultFile) != c.Analysis.ResultFile {
		return fmt.Errorf("%w: analysis.result_file must be a plain file name", ErrInvalidConfig)
	}
	if !isIdentifier(c.Rewrite.InstanceParam) {
		return fmt.Errorf("%w: rewrite.instance_param %q is not a JavaScript identifier", ErrInvalidConfig, c.Rewrite.InstanceParam)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server.port %d out of range", ErrInvalidConfig, c.Server.Port)
	}
	if c.Server.RateLimit < 0 || c.Server.Burst < 0 {
		return fmt.Errorf("%w: server rate limits must not be negative", ErrInvalidConfig)
	}
	if c.Server.CacheSize <= 0 {
		return fmt.Errorf("%w: server.cache_size must be positive", ErrInvalidConfig)
	}
	if c.Watch.Debounce < 0 {
		return fmt.Errorf("%w: watch.debounce must not be negative", ErrInvalidConfig)
	}
	switch c.Logging.Format {
	case "auto", "text", "json":
	default:
		return fmt.Errorf("%w: logging.format %q (want auto, text or json)", ErrInvalidConfig, c.Logging.Format)
	}
	switch c.Tracing.Exporter {
	case "none", "stdout", "otlp":
	default:
		return fmt.Errorf("%w: tracing.exporter %q (want none, stdout or otlp)", ErrInvalidConfig, c.Tracing.Exporter)
	}
	return nil
}

// SnapshotDir returns the configured snapshot directory, defaulting to
// ~/.jssplit/snapshots.
func (c *Config) SnapshotDir() (string, error) {
	if c.Snapshot.Dir != "" {
		return c.Snapshot.Dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".jssplit", "snapshots"), nil
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || r == '$':
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}
