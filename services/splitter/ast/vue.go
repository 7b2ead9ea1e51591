package ast

import (
	"path/filepath"
	"regexp"
	"strings"
)

var scriptSectionRe = regexp.MustCompile(`(?s)<script[^>]*>(.*?)</script>`)

// ScriptSection locates the first <script> block of a Vue single-file component.
type ScriptSection struct {
	// Content is the text between the opening and closing tags.
	Content string

	// Start and End delimit Content within the component source.
	Start int
	End   int
}

// IsVueFile reports whether path names a Vue single-file component.
func IsVueFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".vue")
}

// ExtractScriptSection finds the first <script> block in content.
func ExtractScriptSection(content []byte) (*ScriptSection, error) {
	loc := scriptSectionRe.FindSubmatchIndex(content)
	if loc == nil {
		return nil, ErrNoScriptSection
	}
	return &ScriptSection{
		Content: string(content[loc[2]:loc[3]]),
		Start:   loc[2],
		End:     loc[3],
	}, nil
}

// ReplaceScriptSection returns content with the script block body replaced.
func ReplaceScriptSection(content []byte, section *ScriptSection, script string) []byte {
	out := make([]byte, 0, len(content)-len(section.Content)+len(script))
	out = append(out, content[:section.Start]...)
	out = append(out, script...)
	out = append(out, content[section.End:]...)
	return out
}
