package tokens

import (
	"fmt"

	"compiler/internal/source"
)

// TOKEN is the kind of a lexical token. The lexer is an external
// collaborator: this package only defines the stream contract the
// parser consumes.
type TOKEN string

const (
	//keywords
	FUNCTION_TOKEN TOKEN = "fn"
	IF_TOKEN       TOKEN = "if"
	ELSE_TOKEN     TOKEN = "else"
	WHILE_TOKEN    TOKEN = "while"
	FOR_TOKEN      TOKEN = "for"
	IN_TOKEN       TOKEN = "in"
	STRUCT_TOKEN   TOKEN = "struct"
	ENUM_TOKEN     TOKEN = "enum"
	PRINT_TOKEN    TOKEN = "print"
	RETURN_TOKEN   TOKEN = "return"
	TRUE_TOKEN     TOKEN = "true"
	FALSE_TOKEN    TOKEN = "false"

	//literals
	IDENTIFIER_TOKEN TOKEN = "identifier"
	NUMBER_TOKEN     TOKEN = "numeric literal"
	STRING_TOKEN     TOKEN = "string literal"

	//range operator
	RANGE_TOKEN TOKEN = ".."

	//binary operators
	AND_TOKEN TOKEN = "&&"
	OR_TOKEN  TOKEN = "||"

	//unary operators
	NOT_TOKEN TOKEN = "!"

	//arithmetic operators
	PLUS_TOKEN  TOKEN = "+"
	MINUS_TOKEN TOKEN = "-"
	MUL_TOKEN   TOKEN = "*"
	DIV_TOKEN   TOKEN = "/"
	MOD_TOKEN   TOKEN = "%"

	//comparison operators
	DOUBLE_EQUAL_TOKEN  TOKEN = "=="
	NOT_EQUAL_TOKEN     TOKEN = "!="
	LESS_TOKEN          TOKEN = "<"
	LESS_EQUAL_TOKEN    TOKEN = "<="
	GREATER_TOKEN       TOKEN = ">"
	GREATER_EQUAL_TOKEN TOKEN = ">="

	//assignment
	EQUALS_TOKEN TOKEN = "="

	//delimiters
	OPEN_PAREN      TOKEN = "("
	CLOSE_PAREN     TOKEN = ")"
	OPEN_BRACKET    TOKEN = "["
	CLOSE_BRACKET   TOKEN = "]"
	OPEN_CURLY      TOKEN = "{"
	CLOSE_CURLY     TOKEN = "}"
	COMMA_TOKEN     TOKEN = ","
	DOT_TOKEN       TOKEN = "."
	COLON_TOKEN     TOKEN = ":"
	SEMICOLON_TOKEN TOKEN = ";"
	ARROW_TOKEN     TOKEN = "->"

	EOF_TOKEN TOKEN = "end_of_file"
)

var keyWordsMap = map[TOKEN]bool{
	FUNCTION_TOKEN: true,
	IF_TOKEN:       true,
	ELSE_TOKEN:     true,
	WHILE_TOKEN:    true,
	FOR_TOKEN:      true,
	IN_TOKEN:       true,
	STRUCT_TOKEN:   true,
	ENUM_TOKEN:     true,
	PRINT_TOKEN:    true,
	RETURN_TOKEN:   true,
	TRUE_TOKEN:     true,
	FALSE_TOKEN:    true,
}

// IsKeyword reports whether word is a reserved keyword.
func IsKeyword(word string) bool {
	return keyWordsMap[TOKEN(word)]
}

// Token is one unit of the externally produced token stream.
type Token struct {
	Kind  TOKEN
	Value string
	Start source.Position
	End   source.Position
}

func (t Token) String() string {
	return fmt.Sprintf("%s(%q) at %d:%d", t.Kind, t.Value, t.Start.Line, t.Start.Column)
}

// New builds a token with both positions filled in.
func New(kind TOKEN, value string, start, end source.Position) Token {
	return Token{Kind: kind, Value: value, Start: start, End: end}
}
