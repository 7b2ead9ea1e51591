package ast

// Node is one node of an owned syntax tree.
//
// Description:
//
//	Nodes are copied out of the tree-sitter tree once at parse time so the
//	tree-sitter handle can be closed immediately and every node carries an
//	explicit Parent link. Anonymous tokens (keywords, punctuation) are kept
//	as KindToken children so modifiers like "static" and "async" can be read
//	without re-scanning source text.
//
// Thread Safety:
//
//	A tree is immutable after Parse returns and safe for concurrent reads.
type Node struct {
	Kind Kind

	// Type is the raw tree-sitter type. For tokens it is the token text.
	Type string

	// Field is the grammar field name under which the parent holds this node.
	Field string

	StartByte uint32
	EndByte   uint32

	// StartLine and EndLine are 1-based.
	StartLine int
	EndLine   int

	Parent   *Node
	Children []*Node
}

// ChildByField returns the first child held under the given field name.
func (n *Node) ChildByField(field string) *Node {
	if n == nil {
		return nil
	}
	for _, c := range n.Children {
		if c.Field == field {
			return c
		}
	}
	return nil
}

// FirstChildOfKind returns the first direct child with the given kind.
func (n *Node) FirstChildOfKind(k Kind) *Node {
	if n == nil {
		return nil
	}
	for _, c := range n.Children {
		if c.Kind == k {
			return c
		}
	}
	return nil
}

// ChildrenOfKind returns all direct children with the given kind.
func (n *Node) ChildrenOfKind(k Kind) []*Node {
	if n == nil {
		return nil
	}
	var out []*Node
	for _, c := range n.Children {
		if c.Kind == k {
			out = append(out, c)
		}
	}
	return out
}

// HasToken reports whether n has a direct anonymous child with the given text.
func (n *Node) HasToken(tok string) bool {
	if n == nil {
		return false
	}
	for _, c := range n.Children {
		if c.Kind == KindToken && c.Type == tok {
			return true
		}
	}
	return false
}

// NamedChildren returns direct children that are not tokens or comments.
func (n *Node) NamedChildren() []*Node {
	if n == nil {
		return nil
	}
	out := make([]*Node, 0, len(n.Children))
	for _, c := range n.Children {
		if c.Kind == KindToken || c.Kind == KindComment {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Index returns the position of n within its parent's children, or -1.
func (n *Node) Index() int {
	if n == nil || n.Parent == nil {
		return -1
	}
	for i, c := range n.Parent.Children {
		if c == n {
			return i
		}
	}
	return -1
}

// PrevSibling returns the sibling immediately before n, tokens included.
func (n *Node) PrevSibling() *Node {
	i := n.Index()
	if i <= 0 {
		return nil
	}
	return n.Parent.Children[i-1]
}

// NextSibling returns the sibling immediately after n, tokens included.
func (n *Node) NextSibling() *Node {
	i := n.Index()
	if i < 0 || i+1 >= len(n.Parent.Children) {
		return nil
	}
	return n.Parent.Children[i+1]
}

// LineCount returns the number of source lines the node spans.
func (n *Node) LineCount() int {
	if n == nil {
		return 0
	}
	return n.EndLine - n.StartLine + 1
}

// Contains reports whether other lies within n's byte range.
func (n *Node) Contains(other *Node) bool {
	return other != nil && other.StartByte >= n.StartByte && other.EndByte <= n.EndByte
}

// Walk visits n and its descendants in source order. Returning false from
// visit skips the node's subtree.
//
// The traversal uses an explicit stack so deeply nested sources cannot
// exhaust the goroutine stack.
func (n *Node) Walk(visit func(*Node) bool) {
	if n == nil {
		return
	}
	stack := []*Node{n}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !visit(cur) {
			continue
		}
		for i := len(cur.Children) - 1; i >= 0; i-- {
			stack = append(stack, cur.Children[i])
		}
	}
}

// Ancestor returns the nearest ancestor (excluding n) for which match is true.
func (n *Node) Ancestor(match func(*Node) bool) *Node {
	if n == nil {
		return nil
	}
	for p := n.Parent; p != nil; p = p.Parent {
		if match(p) {
			return p
		}
	}
	return nil
}

// File is a parsed JavaScript source.
type File struct {
	Path   string
	Source []byte
	Root   *Node

	// Hash is the hex SHA256 of Source.
	Hash string

	// HasErrors is true when tree-sitter recovered from syntax errors.
	HasErrors bool
}

// Text returns the source text covered by n.
func (f *File) Text(n *Node) string {
	if n == nil {
		return ""
	}
	return string(f.Source[n.StartByte:n.EndByte])
}

// TopLevel returns the program's statements in source order.
func (f *File) TopLevel() []*Node {
	if f == nil || f.Root == nil {
		return nil
	}
	return f.Root.NamedChildren()
}

// LineIndent returns the whitespace that precedes n on its first line.
func (f *File) LineIndent(n *Node) string {
	start := int(n.StartByte)
	i := start
	for i > 0 && f.Source[i-1] != '\n' {
		i--
	}
	j := i
	for j < start && (f.Source[j] == ' ' || f.Source[j] == '\t') {
		j++
	}
	return string(f.Source[i:j])
}

// LeadingComments returns the comment siblings that directly precede n,
// separated from it (and from each other) only by whitespace with at most
// one line break. The comments are returned in source order.
func (f *File) LeadingComments(n *Node) []*Node {
	var out []*Node
	next := n
	for prev := n.PrevSibling(); prev != nil && prev.Kind == KindComment; prev = prev.PrevSibling() {
		if !onlySpaceBetween(f.Source, prev.EndByte, next.StartByte) {
			break
		}
		out = append([]*Node{prev}, out...)
		next = prev
	}
	return out
}

// onlySpaceBetween reports whether src[from:to] holds whitespace containing
// at most one newline.
func onlySpaceBetween(src []byte, from, to uint32) bool {
	if from > to {
		return false
	}
	newlines := 0
	for _, b := range src[from:to] {
		switch b {
		case '\n':
			newlines++
		case ' ', '\t', '\r':
		default:
			return false
		}
	}
	return newlines <= 1
}
