package ast

import "compiler/internal/source"

type LiteralKind int

const (
	INT LiteralKind = iota
	FLOAT
	STRING
	BOOL
)

// BasicLit represents a literal of basic type (int, float, string, bool).
// String values hold the unescaped text: escape sequences are resolved at
// parse time.
type BasicLit struct {
	Kind  LiteralKind
	Value string
	source.Location
}

func (b *BasicLit) INode()                {}
func (b *BasicLit) Expr()                 {}
func (b *BasicLit) Loc() *source.Location { return &b.Location }
