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
	"errors"
	"fmt"
	"strings"

	"github.com/tonguyenducmanh/split-file-javascript/services/splitter/ast"
)

var (
	// errUnsupportedMethod marks a method whose body cannot live outside
	// its class.
	errUnsupportedMethod = errors.New("method cannot be extracted")
)

// editsWithin returns the edits that lie inside [start, end).
func editsWithin(edits []ast.Edit, start, end uint32) []ast.Edit {
	var out []ast.Edit
	for _, ed := range edits {
		if ed.Start >= start && ed.End <= end {
			out = append(out, ed)
		}
	}
	return out
}

// functionHeader renders the "async function*" prefix of fn.
func functionHeader(n *ast.Node) string {
	var b strings.Builder
	if n.HasToken("async") {
		b.WriteString("async ")
	}
	b.WriteString("function")
	if n.HasToken("*") {
		b.WriteString("*")
	}
	return b.String()
}

// synthesizeFunction turns a bound function or arrow value into a function
// declaration named name. An expression body becomes a block with a single
// return statement. edits are renames inside fn.
func synthesizeFunction(f *ast.File, fn *ast.Node, name string, edits []ast.Edit) (string, error) {
	var params string
	switch {
	case fn.ChildByField("parameters") != nil:
		p := fn.ChildByField("parameters")
		text, err := f.Fragment(p, editsWithin(edits, p.StartByte, p.EndByte))
		if err != nil {
			return "", err
		}
		params = text
	case fn.ChildByField("parameter") != nil:
		p := fn.ChildByField("parameter")
		text, err := f.Fragment(p, editsWithin(edits, p.StartByte, p.EndByte))
		if err != nil {
			return "", err
		}
		params = "(" + text + ")"
	default:
		params = "()"
	}

	body := fn.ChildByField("body")
	if body == nil {
		return "", fmt.Errorf("function %s has no body", name)
	}
	bodyText, err := f.Fragment(body, editsWithin(edits, body.StartByte, body.EndByte))
	if err != nil {
		return "", err
	}
	if body.Kind != ast.KindStatementBlock {
		bodyText = "{\n  return " + bodyText + ";\n}"
	} else {
		bodyText = ast.Dedent(bodyText, f.LineIndent(fn.Parent))
	}

	return functionHeader(fn) + " " + name + params + " " + bodyText, nil
}

// methodParts is what method extraction needs from one method_definition.
type methodParts struct {
	static    bool
	generator bool
	params    string
	body      string
	forward   string
}

// extractMethodParts renders a method's parameters and body for use as a
// free function. this inside the body becomes instanceParam; arrow
// functions are crossed, other function boundaries are not.
func extractMethodParts(f *ast.File, method *ast.Node, instanceParam string, renames []ast.Edit) (*methodParts, error) {
	name := method.ChildByField("name")
	if name == nil || name.Kind == ast.KindPrivatePropertyIdentifier {
		return nil, fmt.Errorf("%w: private or computed name", errUnsupportedMethod)
	}
	body := method.ChildByField("body")
	params := method.ChildByField("parameters")
	if body == nil || params == nil {
		return nil, fmt.Errorf("%w: missing body", errUnsupportedMethod)
	}

	parts := &methodParts{
		static:    method.HasToken("static"),
		generator: method.HasToken("*"),
	}

	edits := editsWithin(renames, body.StartByte, body.EndByte)
	var usesThis bool
	var unsupported string
	body.Walk(func(n *ast.Node) bool {
		if n != body && n.Kind.BindsThis() {
			return false
		}
		switch n.Kind {
		case ast.KindThis:
			usesThis = true
			edits = append(edits, ast.Edit{Start: n.StartByte, End: n.EndByte, Text: instanceParam})
		case ast.KindSuper:
			unsupported = "uses super"
		case ast.KindPrivatePropertyIdentifier:
			unsupported = "uses private members"
		default:
		}
		return true
	})
	if unsupported != "" {
		return nil, fmt.Errorf("%w: %s", errUnsupportedMethod, unsupported)
	}
	if parts.static && usesThis {
		return nil, fmt.Errorf("%w: static method uses this", errUnsupportedMethod)
	}

	bodyText, err := f.Fragment(body, edits)
	if err != nil {
		return nil, err
	}
	parts.body = ast.Dedent(bodyText, f.LineIndent(method))

	paramText, err := f.Fragment(params, editsWithin(renames, params.StartByte, params.EndByte))
	if err != nil {
		return nil, err
	}
	parts.params = strings.TrimSpace(paramText[1 : len(paramText)-1])
	parts.forward = forwardArguments(f, params)
	return parts, nil
}

// freeFunction renders the extracted method as a function declaration.
func (p *methodParts) freeFunction(method *ast.Node, name, instanceParam string) string {
	params := p.params
	if !p.static {
		if params == "" {
			params = instanceParam
		} else {
			params = instanceParam + ", " + params
		}
	}
	return functionHeader(method) + " " + name + "(" + params + ") " + p.body
}

// proxyBody renders the block that replaces the method's body.
func (p *methodParts) proxyBody(f *ast.File, method *ast.Node, name string) string {
	args := p.forward
	if !p.static {
		if args == "" {
			args = "this"
		} else {
			args = "this, " + args
		}
	}
	call := "return " + name + "(" + args + ");"
	if p.generator {
		call = "yield* " + name + "(" + args + ");"
	}
	indent := f.LineIndent(method)
	return "{\n" + indent + indentUnit(f, method) + call + "\n" + indent + "}"
}

// forwardArguments lists the names a proxy passes on. Simple parameters
// forward by name; any destructuring pattern forwards ...arguments.
func forwardArguments(f *ast.File, params *ast.Node) string {
	var names []string
	for _, p := range params.NamedChildren() {
		switch p.Kind {
		case ast.KindIdentifier:
			names = append(names, f.Text(p))
		case ast.KindAssignmentPattern:
			left := p.ChildByField("left")
			if left == nil || left.Kind != ast.KindIdentifier {
				return "...arguments"
			}
			names = append(names, f.Text(left))
		case ast.KindRestPattern:
			id := p.FirstChildOfKind(ast.KindIdentifier)
			if id == nil {
				return "...arguments"
			}
			names = append(names, "..."+f.Text(id))
		default:
			return "...arguments"
		}
	}
	return strings.Join(names, ", ")
}

// indentUnit guesses one indentation step from the method's own body.
func indentUnit(f *ast.File, method *ast.Node) string {
	base := f.LineIndent(method)
	if body := method.ChildByField("body"); body != nil {
		for _, stmt := range body.NamedChildren() {
			if stmt.StartLine == body.StartLine {
				continue
			}
			inner := f.LineIndent(stmt)
			if strings.HasPrefix(inner, base) && len(inner) > len(base) {
				return inner[len(base):]
			}
			break
		}
	}
	if strings.HasPrefix(base, "\t") {
		return "\t"
	}
	return "  "
}
