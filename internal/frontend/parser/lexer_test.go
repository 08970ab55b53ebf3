package parser

// A minimal token scanner used only by tests. The real compiler consumes an
// externally produced token stream; tests still want cases written as source
// text, so this scanner covers exactly the vocabulary the grammar uses.

import (
	"strings"
	"testing"

	"compiler/internal/source"
	"compiler/internal/tokens"
)

func lex(t *testing.T, src string) []tokens.Token {
	t.Helper()

	var toks []tokens.Token
	line, col := 1, 1
	i := 0

	pos := func() source.Position { return source.Position{Line: line, Column: col, Index: i} }
	emit := func(kind tokens.TOKEN, value string, start source.Position) {
		toks = append(toks, tokens.New(kind, value, start, pos()))
	}

	for i < len(src) {
		c := src[i]

		switch {
		case c == '\n':
			line++
			col = 1
			i++
		case c == ' ' || c == '\t' || c == '\r':
			col++
			i++
		case c >= '0' && c <= '9':
			start := pos()
			j := i
			for j < len(src) && (src[j] >= '0' && src[j] <= '9') {
				j++
			}
			// a single dot continues a float; a double dot is the range operator
			if j+1 < len(src) && src[j] == '.' && src[j+1] != '.' {
				j++
				for j < len(src) && (src[j] >= '0' && src[j] <= '9') {
					j++
				}
			}
			col += j - i
			val := src[i:j]
			i = j
			emit(tokens.NUMBER_TOKEN, val, start)
		case isIdentByte(c):
			start := pos()
			j := i
			for j < len(src) && (isIdentByte(src[j]) || (src[j] >= '0' && src[j] <= '9')) {
				j++
			}
			col += j - i
			word := src[i:j]
			i = j
			if tokens.IsKeyword(word) {
				emit(tokens.TOKEN(word), word, start)
			} else {
				emit(tokens.IDENTIFIER_TOKEN, word, start)
			}
		case c == '"':
			start := pos()
			j := i + 1
			for j < len(src) && src[j] != '"' {
				if src[j] == '\\' && j+1 < len(src) {
					j++
				}
				j++
			}
			if j >= len(src) {
				t.Fatalf("unterminated string literal at %d:%d", line, col)
			}
			col += j + 1 - i
			val := src[i+1 : j] // escapes stay raw; the parser unescapes
			i = j + 1
			emit(tokens.STRING_TOKEN, val, start)
		default:
			start := pos()
			two := ""
			if i+1 < len(src) {
				two = src[i : i+2]
			}
			switch two {
			case "&&", "||", "==", "!=", "<=", ">=", "->", "..":
				col += 2
				i += 2
				emit(tokens.TOKEN(two), two, start)
				continue
			}
			single := string(c)
			switch tokens.TOKEN(single) {
			case tokens.PLUS_TOKEN, tokens.MINUS_TOKEN, tokens.MUL_TOKEN, tokens.DIV_TOKEN,
				tokens.MOD_TOKEN, tokens.NOT_TOKEN, tokens.LESS_TOKEN, tokens.GREATER_TOKEN,
				tokens.EQUALS_TOKEN, tokens.OPEN_PAREN, tokens.CLOSE_PAREN, tokens.OPEN_BRACKET,
				tokens.CLOSE_BRACKET, tokens.OPEN_CURLY, tokens.CLOSE_CURLY, tokens.COMMA_TOKEN,
				tokens.DOT_TOKEN, tokens.COLON_TOKEN, tokens.SEMICOLON_TOKEN:
				col++
				i++
				emit(tokens.TOKEN(single), single, start)
			default:
				t.Fatalf("test scanner: unexpected byte %q at %d:%d", c, line, col)
			}
		}
	}

	start := pos()
	emit(tokens.EOF_TOKEN, "", start)
	return toks
}

func isIdentByte(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func TestLexSanity(t *testing.T) {
	toks := lex(t, "x = 0..10;")
	kinds := make([]tokens.TOKEN, 0, len(toks))
	for _, tok := range toks {
		kinds = append(kinds, tok.Kind)
	}
	want := []tokens.TOKEN{
		tokens.IDENTIFIER_TOKEN, tokens.EQUALS_TOKEN, tokens.NUMBER_TOKEN,
		tokens.RANGE_TOKEN, tokens.NUMBER_TOKEN, tokens.SEMICOLON_TOKEN, tokens.EOF_TOKEN,
	}
	if len(kinds) != len(want) {
		t.Fatalf("got %d tokens, want %d (%v)", len(kinds), len(want), kinds)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("token %d: got %s, want %s", i, kinds[i], want[i])
		}
	}
	if strings.Contains("0..10", "...") {
		t.Fatal("unreachable")
	}
}
