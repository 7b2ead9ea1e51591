package ast

// Kind classifies a syntax node.
//
// Description:
//
//	Kind is a closed set: every tree-sitter node maps to exactly one Kind via
//	kindOf. Node types the splitter never inspects collapse into KindOther
//	(named nodes) or KindToken (anonymous tokens such as keywords and
//	punctuation), so switches over Kind only need the cases they care about
//	plus a default.
type Kind uint8

const (
	KindOther Kind = iota
	KindToken
	KindError

	KindProgram
	KindHashBang
	KindComment
	KindString

	// Declarations and function forms.
	KindFunctionDeclaration
	KindFunctionExpression
	KindArrowFunction
	KindClassDeclaration
	KindClassExpression
	KindClassHeritage
	KindClassBody
	KindMethodDefinition
	KindFieldDefinition

	// Bindings.
	KindLexicalDeclaration
	KindVariableDeclaration
	KindVariableDeclarator
	KindAssignmentExpression
	KindPair
	KindObject

	// Calls and access.
	KindCallExpression
	KindNewExpression
	KindMemberExpression
	KindIdentifier
	KindPropertyIdentifier
	KindPrivatePropertyIdentifier
	KindShorthandPropertyIdentifier
	KindThis
	KindSuper

	// Parameters and bodies.
	KindFormalParameters
	KindAssignmentPattern
	KindRestPattern
	KindStatementBlock
	KindExpressionStatement
	KindReturnStatement

	// Module surface.
	KindImportStatement
	KindExportStatement
	KindExportClause
	KindSpreadElement
)

var kindNames = [...]string{
	KindOther:                       "other",
	KindToken:                       "token",
	KindError:                       "error",
	KindProgram:                     "program",
	KindHashBang:                    "hash_bang_line",
	KindComment:                     "comment",
	KindString:                      "string",
	KindFunctionDeclaration:         "function_declaration",
	KindFunctionExpression:          "function_expression",
	KindArrowFunction:               "arrow_function",
	KindClassDeclaration:            "class_declaration",
	KindClassExpression:             "class",
	KindClassHeritage:               "class_heritage",
	KindClassBody:                   "class_body",
	KindMethodDefinition:            "method_definition",
	KindFieldDefinition:             "field_definition",
	KindLexicalDeclaration:          "lexical_declaration",
	KindVariableDeclaration:         "variable_declaration",
	KindVariableDeclarator:          "variable_declarator",
	KindAssignmentExpression:        "assignment_expression",
	KindPair:                        "pair",
	KindObject:                      "object",
	KindCallExpression:              "call_expression",
	KindNewExpression:               "new_expression",
	KindMemberExpression:            "member_expression",
	KindIdentifier:                  "identifier",
	KindPropertyIdentifier:          "property_identifier",
	KindPrivatePropertyIdentifier:   "private_property_identifier",
	KindShorthandPropertyIdentifier: "shorthand_property_identifier",
	KindThis:                        "this",
	KindSuper:                       "super",
	KindFormalParameters:            "formal_parameters",
	KindAssignmentPattern:           "assignment_pattern",
	KindRestPattern:                 "rest_pattern",
	KindStatementBlock:              "statement_block",
	KindExpressionStatement:         "expression_statement",
	KindReturnStatement:             "return_statement",
	KindImportStatement:             "import_statement",
	KindExportStatement:             "export_statement",
	KindExportClause:                "export_clause",
	KindSpreadElement:               "spread_element",
}

// String returns the canonical tree-sitter type name for the kind.
func (k Kind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return "unknown"
}

// IsFunction reports whether the kind introduces a function body.
func (k Kind) IsFunction() bool {
	switch k {
	case KindFunctionDeclaration, KindFunctionExpression, KindArrowFunction, KindMethodDefinition:
		return true
	default:
		return false
	}
}

// BindsThis reports whether a node of this kind rebinds `this` for its body.
// Arrow functions inherit the enclosing binding.
func (k Kind) BindsThis() bool {
	switch k {
	case KindFunctionDeclaration, KindFunctionExpression, KindMethodDefinition,
		KindClassDeclaration, KindClassExpression:
		return true
	default:
		return false
	}
}

// kindOf maps a tree-sitter node type to its Kind.
//
// Both "function" and "function_expression" map to KindFunctionExpression:
// the javascript grammar renamed the node between releases. Generator
// declarations share KindFunctionDeclaration; callers read the "*" token
// when they need the distinction.
func kindOf(nodeType string, named bool) Kind {
	if !named {
		return KindToken
	}
	switch nodeType {
	case "ERROR":
		return KindError
	case "program":
		return KindProgram
	case "hash_bang_line":
		return KindHashBang
	case "comment":
		return KindComment
	case "string":
		return KindString
	case "function_declaration", "generator_function_declaration":
		return KindFunctionDeclaration
	case "function_expression", "function", "generator_function":
		return KindFunctionExpression
	case "arrow_function":
		return KindArrowFunction
	case "class_declaration":
		return KindClassDeclaration
	case "class":
		return KindClassExpression
	case "class_heritage":
		return KindClassHeritage
	case "class_body":
		return KindClassBody
	case "method_definition":
		return KindMethodDefinition
	case "field_definition", "public_field_definition":
		return KindFieldDefinition
	case "lexical_declaration":
		return KindLexicalDeclaration
	case "variable_declaration":
		return KindVariableDeclaration
	case "variable_declarator":
		return KindVariableDeclarator
	case "assignment_expression":
		return KindAssignmentExpression
	case "pair":
		return KindPair
	case "object":
		return KindObject
	case "call_expression":
		return KindCallExpression
	case "new_expression":
		return KindNewExpression
	case "member_expression":
		return KindMemberExpression
	case "identifier":
		return KindIdentifier
	case "property_identifier":
		return KindPropertyIdentifier
	case "private_property_identifier":
		return KindPrivatePropertyIdentifier
	case "shorthand_property_identifier":
		return KindShorthandPropertyIdentifier
	case "this":
		return KindThis
	case "super":
		return KindSuper
	case "formal_parameters":
		return KindFormalParameters
	case "assignment_pattern":
		return KindAssignmentPattern
	case "rest_pattern":
		return KindRestPattern
	case "statement_block":
		return KindStatementBlock
	case "expression_statement":
		return KindExpressionStatement
	case "return_statement":
		return KindReturnStatement
	case "import_statement":
		return KindImportStatement
	case "export_statement":
		return KindExportStatement
	case "export_clause":
		return KindExportClause
	case "spread_element":
		return KindSpreadElement
	default:
		return KindOther
	}
}
