package ast

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("jssplit.ast")

// Parser turns JavaScript source into an owned syntax tree.
//
// Description:
//
//	Parser uses tree-sitter's JavaScript grammar and copies the resulting
//	tree into Node values with parent links. The tree-sitter tree is closed
//	before Parse returns.
//
// Thread Safety:
//
//	Parser is safe for concurrent use. Each Parse call creates its own
//	tree-sitter parser instance.
//
// Example:
//
//	parser := NewParser()
//	file, err := parser.Parse(ctx, content, "app.js")
//	if err != nil {
//	    return fmt.Errorf("parse: %w", err)
//	}
//	for _, stmt := range file.TopLevel() {
//	    fmt.Println(stmt.Kind)
//	}
type Parser struct {
	options ParserOptions
}

// ParserOptions configures Parser behavior.
type ParserOptions struct {
	// MaxFileSize is the maximum file size in bytes to parse.
	// Default: 10MB
	MaxFileSize int
}

// DefaultParserOptions returns the default options.
func DefaultParserOptions() ParserOptions {
	return ParserOptions{
		MaxFileSize: 10 * 1024 * 1024,
	}
}

// ParserOption is a functional option for configuring Parser.
type ParserOption func(*ParserOptions)

// WithMaxFileSize sets the maximum file size for parsing.
func WithMaxFileSize(size int) ParserOption {
	return func(o *ParserOptions) {
		if size > 0 {
			o.MaxFileSize = size
		}
	}
}

// NewParser creates a Parser with the given options.
func NewParser(opts ...ParserOption) *Parser {
	options := DefaultParserOptions()
	for _, opt := range opts {
		opt(&options)
	}
	return &Parser{options: options}
}

// Extensions returns the file extensions this parser handles directly.
func (p *Parser) Extensions() []string {
	return []string{".js", ".mjs", ".cjs", ".jsx"}
}

// Parse builds the owned tree for content.
//
// Description:
//
//	Validates size and encoding, parses with tree-sitter and copies the
//	tree. Syntax errors do not fail the parse; they set File.HasErrors.
//
// Inputs:
//
//	ctx      - Context for cancellation. Checked before and after parsing.
//	content  - Raw JavaScript source bytes. Must be valid UTF-8.
//	filePath - Path recorded on the returned File.
//
// Outputs:
//
//	*File - The parsed file. Never nil on success.
//	error - ErrFileTooLarge, ErrInvalidContent, cancellation, or a tree-sitter failure.
//
// Thread Safety:
//
//	This method is safe for concurrent use.
func (p *Parser) Parse(ctx context.Context, content []byte, filePath string) (*File, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("javascript parse canceled before start: %w", err)
	}

	ctx, span := tracer.Start(ctx, "Parser.Parse")
	defer span.End()

	if len(content) > p.options.MaxFileSize {
		return nil, fmt.Errorf("%s: %w", filePath, ErrFileTooLarge)
	}
	if !utf8.Valid(content) {
		return nil, fmt.Errorf("%s: %w", filePath, ErrInvalidContent)
	}

	hash := sha256.Sum256(content)

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(javascript.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse failed: %w", err)
	}
	defer tree.Close()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("javascript parse canceled after tree-sitter: %w", err)
	}

	rootNode := tree.RootNode()
	root, count := copyTree(rootNode)

	file := &File{
		Path:      filePath,
		Source:    content,
		Root:      root,
		Hash:      hex.EncodeToString(hash[:]),
		HasErrors: rootNode.HasError(),
	}

	if file.HasErrors {
		slog.Debug("javascript source contains syntax errors",
			slog.String("file", filePath),
		)
	}

	span.SetAttributes(
		attribute.String("file", filePath),
		attribute.Int("bytes", len(content)),
		attribute.Int("nodes", count),
		attribute.Bool("has_errors", file.HasErrors),
	)

	return file, nil
}

// copyTree copies a tree-sitter tree into owned nodes.
//
// The walk is driven by a TreeCursor, which is the only binding API that
// reports the field name of every child, and never recurses.
func copyTree(rootNode *sitter.Node) (*Node, int) {
	cursor := sitter.NewTreeCursor(rootNode)
	defer cursor.Close()

	root := newNode(cursor.CurrentNode(), "", nil)
	count := 1
	if !cursor.GoToFirstChild() {
		return root, count
	}

	parent := root
	for {
		n := newNode(cursor.CurrentNode(), cursor.CurrentFieldName(), parent)
		parent.Children = append(parent.Children, n)
		count++

		if cursor.GoToFirstChild() {
			parent = n
			continue
		}

		for !cursor.GoToNextSibling() {
			if !cursor.GoToParent() || parent == root {
				return root, count
			}
			parent = parent.Parent
		}
	}
}

func newNode(sn *sitter.Node, field string, parent *Node) *Node {
	return &Node{
		Kind:      kindOf(sn.Type(), sn.IsNamed()),
		Type:      sn.Type(),
		Field:     field,
		StartByte: sn.StartByte(),
		EndByte:   sn.EndByte(),
		StartLine: int(sn.StartPoint().Row) + 1,
		EndLine:   int(sn.EndPoint().Row) + 1,
		Parent:    parent,
	}
}
