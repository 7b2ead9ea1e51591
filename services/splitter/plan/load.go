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
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format is a plan serialization.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the format by extension. Unknown extensions are JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Parse decodes and validates a plan.
//
// Inputs:
//
//	data   - Encoded plan.
//	format - FormatJSON or FormatYAML.
//
// Outputs:
//
//	*SplitPlan - The validated plan.
//	error      - ErrMalformedItem, ErrEmptyPlan, ErrInvalidPlan or a decode error.
func Parse(data []byte, format Format) (*SplitPlan, error) {
	var p SplitPlan
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("decoding YAML plan: %w", err)
		}
	case FormatJSON, "":
		if len(bytes.TrimSpace(data)) == 0 {
			return nil, ErrEmptyPlan
		}
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("decoding JSON plan: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported plan format %q", format)
	}
	if err := Validate(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

// LoadFile reads and parses a plan file.
func LoadFile(path string) (*SplitPlan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading plan %s: %w", path, err)
	}
	p, err := Parse(data, FormatFromPath(path))
	if err != nil {
		return nil, fmt.Errorf("plan %s: %w", path, err)
	}
	return p, nil
}

// Encode serializes a plan in the given format.
func Encode(p *SplitPlan, format Format) ([]byte, error) {
	switch format {
	case FormatYAML:
		return yaml.Marshal(p)
	default:
		return json.MarshalIndent(p, "", "  ")
	}
}
