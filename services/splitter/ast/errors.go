package ast

import "errors"

var (
	// ErrFileTooLarge is returned when content exceeds ParserOptions.MaxFileSize.
	ErrFileTooLarge = errors.New("file exceeds maximum parse size")

	// ErrInvalidContent is returned for content that is not valid UTF-8.
	ErrInvalidContent = errors.New("content is not valid UTF-8")

	// ErrSyntax marks a file whose tree contains syntax errors. Parse itself
	// never returns it; callers that must not rewrite a damaged tree do.
	ErrSyntax = errors.New("source contains syntax errors")

	// ErrOverlappingEdits is returned by Editor.Apply when two edits overlap.
	ErrOverlappingEdits = errors.New("overlapping edits")

	// ErrNoScriptSection is returned when a Vue file has no <script> block.
	ErrNoScriptSection = errors.New("no <script> section found in Vue file")
)
