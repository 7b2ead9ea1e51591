// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package plan models split plans and computes the cross-destination
// imports a split requires.
package plan

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

var (
	// ErrMalformedItem is returned when a plan item is neither a bare name
	// nor one of the recognized object forms.
	ErrMalformedItem = errors.New("malformed plan item")

	// ErrEmptyPlan is returned when a plan has no groups.
	ErrEmptyPlan = errors.New("plan has no groups")
)

// MethodItem selects one method of a class item.
type MethodItem struct {
	Name    string `json:"name" yaml:"name"`
	NewName string `json:"newName,omitempty" yaml:"newName,omitempty"`
}

// TargetName returns the name the method takes in its destination.
func (m MethodItem) TargetName() string {
	if m.NewName != "" {
		return m.NewName
	}
	return m.Name
}

// Item is one entry of a Group.
//
// Exactly one of Name or Class is set. A class item with Methods selects
// those methods for extraction; without Methods the whole class moves.
// Bare marks items written as a plain string so they encode back the same
// way.
type Item struct {
	Name    string
	Class   string
	NewName string
	Methods []MethodItem
	Bare    bool
}

// Named returns a bare name item.
func Named(name string) Item {
	return Item{Name: name, Bare: true}
}

// IsClass reports whether the item names a class.
func (it Item) IsClass() bool {
	return it.Class != ""
}

// OriginalName returns the declaration name the item refers to.
func (it Item) OriginalName() string {
	if it.Class != "" {
		return it.Class
	}
	return it.Name
}

// TargetName returns the name the item takes in its destination.
func (it Item) TargetName() string {
	if it.NewName != "" {
		return it.NewName
	}
	return it.OriginalName()
}

// Method returns the selected method with the given name, or nil.
func (it Item) Method(name string) *MethodItem {
	for i := range it.Methods {
		if it.Methods[i].Name == name {
			return &it.Methods[i]
		}
	}
	return nil
}

func (it Item) String() string {
	if it.Class != "" {
		return "class " + it.Class
	}
	return it.Name
}

// itemObject is the object form of an item on the wire.
type itemObject struct {
	Name    string            `json:"name,omitempty" yaml:"name,omitempty"`
	Class   string            `json:"class,omitempty" yaml:"class,omitempty"`
	NewName string            `json:"newName,omitempty" yaml:"newName,omitempty"`
	Methods []json.RawMessage `json:"methods,omitempty" yaml:"-"`
}

// UnmarshalJSON accepts a string, {name, newName?} or
// {class, newName?, methods?}. Anything else is ErrMalformedItem.
func (it *Item) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return fmt.Errorf("%w: %s", ErrMalformedItem, data)
		}
		if name == "" {
			return fmt.Errorf("%w: empty name", ErrMalformedItem)
		}
		*it = Named(name)
		return nil
	}

	if len(data) == 0 || data[0] != '{' {
		return fmt.Errorf("%w: %s", ErrMalformedItem, data)
	}

	var obj itemObject
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&obj); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedItem, data, err)
	}

	out := Item{Name: obj.Name, Class: obj.Class, NewName: obj.NewName}
	for _, raw := range obj.Methods {
		m, err := decodeMethodJSON(raw)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrMalformedItem, data, err)
		}
		out.Methods = append(out.Methods, m)
	}
	if err := out.check(); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedItem, data, err)
	}
	*it = out
	return nil
}

func decodeMethodJSON(raw json.RawMessage) (MethodItem, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '"' {
		var name string
		if err := json.Unmarshal(raw, &name); err != nil {
			return MethodItem{}, err
		}
		return MethodItem{Name: name}, nil
	}
	var m MethodItem
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&m); err != nil {
		return MethodItem{}, fmt.Errorf("method entry %s: %v", raw, err)
	}
	return m, nil
}

// check enforces the shape rules shared by every codec.
func (it Item) check() error {
	switch {
	case it.Name != "" && it.Class != "":
		return errors.New("item sets both name and class")
	case it.Name == "" && it.Class == "":
		return errors.New("item sets neither name nor class")
	case it.Name != "" && len(it.Methods) > 0:
		return errors.New("methods are only allowed on class items")
	}
	seen := make(map[string]bool, len(it.Methods))
	for _, m := range it.Methods {
		if m.Name == "" {
			return errors.New("method entry has no name")
		}
		if m.Name == "constructor" {
			return errors.New("constructors cannot be extracted")
		}
		if seen[m.Name] {
			return fmt.Errorf("method %q selected twice", m.Name)
		}
		seen[m.Name] = true
	}
	return nil
}

// MarshalJSON mirrors the accepted input shapes.
func (it Item) MarshalJSON() ([]byte, error) {
	if it.Bare && it.Class == "" && it.NewName == "" {
		return json.Marshal(it.Name)
	}
	type methodsOut struct {
		Name    string       `json:"name,omitempty"`
		Class   string       `json:"class,omitempty"`
		NewName string       `json:"newName,omitempty"`
		Methods []MethodItem `json:"methods,omitempty"`
	}
	return json.Marshal(methodsOut{Name: it.Name, Class: it.Class, NewName: it.NewName, Methods: it.Methods})
}

// UnmarshalYAML accepts the same shapes as UnmarshalJSON.
func (it *Item) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Value == "" {
			return fmt.Errorf("%w: empty name at line %d", ErrMalformedItem, node.Line)
		}
		*it = Named(node.Value)
		return nil

	case yaml.MappingNode:
		var out Item
		for i := 0; i+1 < len(node.Content); i += 2 {
			key, value := node.Content[i], node.Content[i+1]
			switch key.Value {
			case "name":
				out.Name = value.Value
			case "class":
				out.Class = value.Value
			case "newName":
				out.NewName = value.Value
			case "methods":
				if value.Kind != yaml.SequenceNode {
					return fmt.Errorf("%w: methods must be a list at line %d", ErrMalformedItem, value.Line)
				}
				for _, entry := range value.Content {
					m, err := decodeMethodYAML(entry)
					if err != nil {
						return fmt.Errorf("%w: %v", ErrMalformedItem, err)
					}
					out.Methods = append(out.Methods, m)
				}
			default:
				return fmt.Errorf("%w: unknown field %q at line %d", ErrMalformedItem, key.Value, key.Line)
			}
		}
		if err := out.check(); err != nil {
			return fmt.Errorf("%w: line %d: %v", ErrMalformedItem, node.Line, err)
		}
		*it = out
		return nil

	default:
		return fmt.Errorf("%w: unexpected YAML node at line %d", ErrMalformedItem, node.Line)
	}
}

func decodeMethodYAML(node *yaml.Node) (MethodItem, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		return MethodItem{Name: node.Value}, nil
	case yaml.MappingNode:
		var m MethodItem
		for i := 0; i+1 < len(node.Content); i += 2 {
			key, value := node.Content[i], node.Content[i+1]
			switch key.Value {
			case "name":
				m.Name = value.Value
			case "newName":
				m.NewName = value.Value
			default:
				return MethodItem{}, fmt.Errorf("unknown method field %q at line %d", key.Value, key.Line)
			}
		}
		return m, nil
	default:
		return MethodItem{}, fmt.Errorf("unexpected method entry at line %d", node.Line)
	}
}

// MarshalYAML mirrors MarshalJSON.
func (it Item) MarshalYAML() (interface{}, error) {
	if it.Bare && it.Class == "" && it.NewName == "" {
		return it.Name, nil
	}
	return struct {
		Name    string       `yaml:"name,omitempty"`
		Class   string       `yaml:"class,omitempty"`
		NewName string       `yaml:"newName,omitempty"`
		Methods []MethodItem `yaml:"methods,omitempty"`
	}{it.Name, it.Class, it.NewName, it.Methods}, nil
}

// Group assigns items of one source file to one destination.
type Group struct {
	// File is the source file the items are taken from. Optional when the
	// caller supplies the source file separately.
	File string `json:"file,omitempty" yaml:"file,omitempty"`

	// Destination is the output file name, resolved against the source
	// file's directory.
	Destination string `json:"destination" yaml:"destination" validate:"required,relpath"`

	// Dest is an accepted short alias of Destination.
	Dest string `json:"dest,omitempty" yaml:"dest,omitempty" validate:"-"`

	Items []Item `json:"items" yaml:"items" validate:"required,min=1"`
}

// normalize folds Dest into Destination.
func (g *Group) normalize() {
	if g.Destination == "" {
		g.Destination = g.Dest
	}
	g.Dest = ""
}

// RemoveItem drops the item with the given original name.
func (g *Group) RemoveItem(name string) {
	kept := g.Items[:0]
	for _, it := range g.Items {
		if it.OriginalName() != name {
			kept = append(kept, it)
		}
	}
	g.Items = kept
}

// RemoveMethod drops one method from a class item. The class item itself
// is removed once its last selected method is gone.
func (g *Group) RemoveMethod(class, method string) {
	for i := range g.Items {
		it := &g.Items[i]
		if it.Class != class {
			continue
		}
		kept := it.Methods[:0]
		for _, m := range it.Methods {
			if m.Name != method {
				kept = append(kept, m)
			}
		}
		it.Methods = kept
		if len(kept) == 0 {
			g.RemoveItem(class)
		}
		return
	}
}

// Clone returns a deep copy of the group.
func (g *Group) Clone() *Group {
	c := *g
	c.Items = make([]Item, len(g.Items))
	for i, it := range g.Items {
		c.Items[i] = it
		if it.Methods != nil {
			c.Items[i].Methods = append([]MethodItem(nil), it.Methods...)
		}
	}
	return &c
}

// SplitPlan is an ordered sequence of groups.
type SplitPlan struct {
	Groups []*Group `json:"groups" yaml:"groups" validate:"required,min=1,dive,required"`
}

// UnmarshalJSON accepts a top-level array of groups or {"groups": [...]}.
func (p *SplitPlan) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	var groups []*Group
	if len(data) > 0 && data[0] == '[' {
		if err := json.Unmarshal(data, &groups); err != nil {
			return err
		}
	} else {
		var wrapped struct {
			Groups []*Group `json:"groups"`
		}
		if err := json.Unmarshal(data, &wrapped); err != nil {
			return err
		}
		groups = wrapped.Groups
	}
	p.Groups = groups
	p.normalize()
	return nil
}

// UnmarshalYAML accepts a top-level sequence of groups or {groups: [...]}.
func (p *SplitPlan) UnmarshalYAML(node *yaml.Node) error {
	var groups []*Group
	if node.Kind == yaml.SequenceNode {
		if err := node.Decode(&groups); err != nil {
			return err
		}
	} else {
		var wrapped struct {
			Groups []*Group `yaml:"groups"`
		}
		if err := node.Decode(&wrapped); err != nil {
			return err
		}
		groups = wrapped.Groups
	}
	p.Groups = groups
	p.normalize()
	return nil
}

func (p *SplitPlan) normalize() {
	for _, g := range p.Groups {
		if g != nil {
			g.normalize()
		}
	}
}

// Clone returns a deep copy of the plan.
func (p *SplitPlan) Clone() *SplitPlan {
	c := &SplitPlan{Groups: make([]*Group, 0, len(p.Groups))}
	for _, g := range p.Groups {
		c.Groups = append(c.Groups, g.Clone())
	}
	return c
}

// ForFile returns the groups that apply to file, in plan order. Groups
// without a File apply to every file.
func (p *SplitPlan) ForFile(file string) []*Group {
	var out []*Group
	for _, g := range p.Groups {
		if g.File == "" || g.File == file {
			out = append(out, g)
		}
	}
	return out
}

// Files returns the distinct source files named by the plan in
// first-seen order.
func (p *SplitPlan) Files() []string {
	seen := make(map[string]bool)
	var out []string
	for _, g := range p.Groups {
		if g.File != "" && !seen[g.File] {
			seen[g.File] = true
			out = append(out, g.File)
		}
	}
	return out
}

// Remaining returns the groups that still hold items.
func (p *SplitPlan) Remaining() []*Group {
	out := make([]*Group, 0)
	for _, g := range p.Groups {
		if len(g.Items) > 0 {
			out = append(out, g)
		}
	}
	return out
}
