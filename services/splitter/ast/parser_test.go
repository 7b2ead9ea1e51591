package ast

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func mustParse(t *testing.T, src string) *File {
	t.Helper()
	f, err := NewParser().Parse(context.Background(), []byte(src), "test.js")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return f
}

func TestParser_Parse_FunctionDeclaration(t *testing.T) {
	f := mustParse(t, "function a(x, y) {\n  return b(x);\n}\n")

	stmts := f.TopLevel()
	if len(stmts) != 1 {
		t.Fatalf("expected 1 top-level statement, got %d", len(stmts))
	}
	fn := stmts[0]
	if fn.Kind != KindFunctionDeclaration {
		t.Fatalf("expected function_declaration, got %s", fn.Kind)
	}
	if got := f.Text(fn.ChildByField("name")); got != "a" {
		t.Errorf("expected name a, got %q", got)
	}
	if params := fn.ChildByField("parameters"); params == nil || params.Kind != KindFormalParameters {
		t.Errorf("expected formal_parameters under parameters field")
	}
	if body := fn.ChildByField("body"); body == nil || body.Kind != KindStatementBlock {
		t.Errorf("expected statement_block under body field")
	}
	if fn.StartLine != 1 || fn.EndLine != 3 {
		t.Errorf("expected lines 1-3, got %d-%d", fn.StartLine, fn.EndLine)
	}
	if fn.LineCount() != 3 {
		t.Errorf("expected LineCount 3, got %d", fn.LineCount())
	}
}

func TestParser_Parse_ParentLinks(t *testing.T) {
	f := mustParse(t, "function a() { b(); }")

	var call *Node
	f.Root.Walk(func(n *Node) bool {
		if n.Kind == KindCallExpression {
			call = n
		}
		return true
	})
	if call == nil {
		t.Fatal("expected a call_expression")
	}

	fn := call.Ancestor(func(n *Node) bool { return n.Kind == KindFunctionDeclaration })
	if fn == nil {
		t.Fatal("expected the call to have a function_declaration ancestor")
	}
	if fn.Parent != f.Root {
		t.Errorf("expected function parent to be the program root")
	}
	if !fn.Contains(call) {
		t.Errorf("expected function range to contain the call")
	}
}

func TestParser_Parse_ClassMethodModifiers(t *testing.T) {
	f := mustParse(t, `class C {
  constructor() {}
  static make(x) { return new C(); }
  async load() {}
}`)

	class := f.TopLevel()[0]
	if class.Kind != KindClassDeclaration {
		t.Fatalf("expected class_declaration, got %s", class.Kind)
	}
	body := class.ChildByField("body")
	methods := body.ChildrenOfKind(KindMethodDefinition)
	if len(methods) != 3 {
		t.Fatalf("expected 3 method definitions, got %d", len(methods))
	}

	tests := []struct {
		name     string
		isStatic bool
		isAsync  bool
	}{
		{"constructor", false, false},
		{"make", true, false},
		{"load", false, true},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := methods[i]
			if got := f.Text(m.ChildByField("name")); got != tt.name {
				t.Errorf("expected name %s, got %s", tt.name, got)
			}
			if m.HasToken("static") != tt.isStatic {
				t.Errorf("static = %v, want %v", m.HasToken("static"), tt.isStatic)
			}
			if m.HasToken("async") != tt.isAsync {
				t.Errorf("async = %v, want %v", m.HasToken("async"), tt.isAsync)
			}
		})
	}
}

func TestParser_Parse_ArrowDeclarator(t *testing.T) {
	f := mustParse(t, "const inc = async (x) => x + 1;")

	decl := f.TopLevel()[0]
	if decl.Kind != KindLexicalDeclaration {
		t.Fatalf("expected lexical_declaration, got %s", decl.Kind)
	}
	declarator := decl.FirstChildOfKind(KindVariableDeclarator)
	if declarator == nil {
		t.Fatal("expected a variable_declarator")
	}
	value := declarator.ChildByField("value")
	if value == nil || value.Kind != KindArrowFunction {
		t.Fatalf("expected arrow_function value")
	}
	if !value.HasToken("async") {
		t.Errorf("expected async token on arrow function")
	}
	if body := value.ChildByField("body"); body == nil || body.Kind == KindStatementBlock {
		t.Errorf("expected expression body")
	}
}

func TestParser_Parse_Errors(t *testing.T) {
	t.Run("too large", func(t *testing.T) {
		p := NewParser(WithMaxFileSize(4))
		_, err := p.Parse(context.Background(), []byte("function a() {}"), "big.js")
		if !errors.Is(err, ErrFileTooLarge) {
			t.Errorf("expected ErrFileTooLarge, got %v", err)
		}
	})

	t.Run("invalid utf8", func(t *testing.T) {
		_, err := NewParser().Parse(context.Background(), []byte{0xff, 0xfe}, "bad.js")
		if !errors.Is(err, ErrInvalidContent) {
			t.Errorf("expected ErrInvalidContent, got %v", err)
		}
	})

	t.Run("canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := NewParser().Parse(ctx, []byte("a()"), "c.js"); err == nil {
			t.Error("expected error for canceled context")
		}
	})

	t.Run("syntax errors are recorded", func(t *testing.T) {
		f := mustParse(t, "function ( {")
		if !f.HasErrors {
			t.Error("expected HasErrors for broken source")
		}
	})
}

func TestFile_LeadingComments(t *testing.T) {
	src := "// unrelated\n\n/** doc */\n// more\nfunction a() {}\n"
	f := mustParse(t, src)

	var fn *Node
	for _, n := range f.Root.Children {
		if n.Kind == KindFunctionDeclaration {
			fn = n
		}
	}
	if fn == nil {
		t.Fatal("expected function")
	}
	lead := f.LeadingComments(fn)
	if len(lead) != 2 {
		t.Fatalf("expected 2 attached comments, got %d", len(lead))
	}
	if !strings.HasPrefix(f.Text(lead[0]), "/** doc") {
		t.Errorf("expected doc comment first, got %q", f.Text(lead[0]))
	}
}

func TestKind_String(t *testing.T) {
	if KindMethodDefinition.String() != "method_definition" {
		t.Errorf("unexpected name %q", KindMethodDefinition.String())
	}
	if kindOf("generator_function_declaration", true) != KindFunctionDeclaration {
		t.Error("generator declarations should map to KindFunctionDeclaration")
	}
	if kindOf("function", false) != KindToken {
		t.Error("anonymous keyword should map to KindToken")
	}
	if !KindArrowFunction.IsFunction() || KindArrowFunction.BindsThis() {
		t.Error("arrow functions are functions that do not bind this")
	}
}
