package ast

import (
	"compiler/internal/source"
)

// Node is the base interface for all AST nodes
type Node interface {
	INode()
	Loc() *source.Location
}

// Expression represents any node that produces a value
type Expression interface {
	Node
	Expr()
}

// Statement represents any node that performs an action
type Statement interface {
	Node
	Stmt()
}

// Program is an ordered sequence of top-level statements produced by one
// parse. It is immutable once the parser returns it.
type Program struct {
	Filename string
	Nodes    []Node
	source.Location
}

func (p *Program) INode()                {}
func (p *Program) Loc() *source.Location { return &p.Location }

// Block represents a braced statement list
type Block struct {
	Nodes []Node
	source.Location
}

func (b *Block) INode()                {}
func (b *Block) Stmt()                 {}
func (b *Block) Loc() *source.Location { return &b.Location }
