package tokens

import (
	"strings"
	"testing"
)

func TestParseDump(t *testing.T) {
	dump := `
# two tokens and a string
1:1 fn
1:4 ident main
2:3 number 42
3:1 string "hi\nthere"
3:10 ->
`
	toks, err := ParseDump(strings.NewReader(dump))
	if err != nil {
		t.Fatalf("ParseDump: %v", err)
	}

	want := []struct {
		kind  TOKEN
		value string
		line  int
		col   int
	}{
		{FUNCTION_TOKEN, "fn", 1, 1},
		{IDENTIFIER_TOKEN, "main", 1, 4},
		{NUMBER_TOKEN, "42", 2, 3},
		{STRING_TOKEN, "hi\nthere", 3, 1},
		{ARROW_TOKEN, "->", 3, 10},
		{EOF_TOKEN, "", 3, 12},
	}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d", len(toks), len(want))
	}
	for i, w := range want {
		got := toks[i]
		if got.Kind != w.kind || got.Value != w.value || got.Start.Line != w.line || got.Start.Column != w.col {
			t.Errorf("token %d = %v, want %s %q at %d:%d", i, got, w.kind, w.value, w.line, w.col)
		}
	}
}

func TestParseDumpErrors(t *testing.T) {
	cases := []struct {
		name string
		line string
	}{
		{"missing kind", "1:1"},
		{"bad position", "one:1 fn"},
		{"unknown kind", "1:1 whatever"},
		{"ident without lexeme", "1:1 ident"},
		{"bad string quoting", `1:1 string "unterminated`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParseDump(strings.NewReader(tc.line)); err == nil {
				t.Fatalf("dump %q parsed without error", tc.line)
			}
		})
	}
}
