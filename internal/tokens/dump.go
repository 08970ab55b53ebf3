package tokens

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"compiler/internal/source"
)

// operatorKinds lists every operator and delimiter kind a dump may name
// directly by its token text.
var operatorKinds = map[TOKEN]bool{
	RANGE_TOKEN:         true,
	AND_TOKEN:           true,
	OR_TOKEN:            true,
	NOT_TOKEN:           true,
	PLUS_TOKEN:          true,
	MINUS_TOKEN:         true,
	MUL_TOKEN:           true,
	DIV_TOKEN:           true,
	MOD_TOKEN:           true,
	DOUBLE_EQUAL_TOKEN:  true,
	NOT_EQUAL_TOKEN:     true,
	LESS_TOKEN:          true,
	LESS_EQUAL_TOKEN:    true,
	GREATER_TOKEN:       true,
	GREATER_EQUAL_TOKEN: true,
	EQUALS_TOKEN:        true,
	OPEN_PAREN:          true,
	CLOSE_PAREN:         true,
	OPEN_BRACKET:        true,
	CLOSE_BRACKET:       true,
	OPEN_CURLY:          true,
	CLOSE_CURLY:         true,
	COMMA_TOKEN:         true,
	DOT_TOKEN:           true,
	COLON_TOKEN:         true,
	SEMICOLON_TOKEN:     true,
	ARROW_TOKEN:         true,
}

// ParseDump reads an externally produced token stream, one token per
// line:
//
//	line:col kind lexeme
//
// kind is "ident", "number" or "string" for the literal classes, and the
// token text itself for keywords, operators and delimiters (whose lexeme
// may be omitted). String lexemes may be Go-quoted. Blank lines and
// lines starting with '#' are skipped. The end-of-file token is appended
// automatically.
func ParseDump(r io.Reader) ([]Token, error) {
	var toks []Token
	var last source.Position

	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		tok, err := parseDumpLine(text)
		if err != nil {
			return nil, fmt.Errorf("token dump line %d: %w", lineNo, err)
		}
		toks = append(toks, tok)
		last = tok.End
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	toks = append(toks, New(EOF_TOKEN, "", last, last))
	return toks, nil
}

func parseDumpLine(text string) (Token, error) {
	parts := strings.SplitN(text, " ", 3)
	if len(parts) < 2 {
		return Token{}, fmt.Errorf("want %q, got %q", "line:col kind lexeme", text)
	}

	start, err := parsePosition(parts[0])
	if err != nil {
		return Token{}, err
	}

	kind := parts[1]
	lexeme := ""
	if len(parts) == 3 {
		lexeme = parts[2]
	}

	switch kind {
	case "ident":
		if lexeme == "" {
			return Token{}, fmt.Errorf("ident token needs a lexeme")
		}
		return New(IDENTIFIER_TOKEN, lexeme, start, endPos(start, lexeme)), nil
	case "number":
		if lexeme == "" {
			return Token{}, fmt.Errorf("number token needs a lexeme")
		}
		return New(NUMBER_TOKEN, lexeme, start, endPos(start, lexeme)), nil
	case "string":
		raw := lexeme
		if strings.HasPrefix(lexeme, `"`) {
			unquoted, err := strconv.Unquote(lexeme)
			if err != nil {
				return Token{}, fmt.Errorf("bad string lexeme %s: %w", lexeme, err)
			}
			lexeme = unquoted
		}
		return New(STRING_TOKEN, lexeme, start, endPos(start, raw)), nil
	default:
		k := TOKEN(kind)
		if !IsKeyword(kind) && !operatorKinds[k] {
			return Token{}, fmt.Errorf("unknown token kind %q", kind)
		}
		return New(k, kind, start, endPos(start, kind)), nil
	}
}

func parsePosition(text string) (source.Position, error) {
	line, col, ok := strings.Cut(text, ":")
	if !ok {
		return source.Position{}, fmt.Errorf("bad position %q", text)
	}
	l, err := strconv.Atoi(line)
	if err != nil {
		return source.Position{}, fmt.Errorf("bad line in %q", text)
	}
	c, err := strconv.Atoi(col)
	if err != nil {
		return source.Position{}, fmt.Errorf("bad column in %q", text)
	}
	return source.Position{Line: l, Column: c}, nil
}

func endPos(start source.Position, lexeme string) source.Position {
	return source.Position{Line: start.Line, Column: start.Column + len(lexeme), Index: start.Index + len(lexeme)}
}
