package ast

import (
	"compiler/internal/source"
	"compiler/internal/tokens"
)

// IdentifierExpr represents an identifier
type IdentifierExpr struct {
	Name string
	source.Location
}

func (i *IdentifierExpr) INode()                {}
func (i *IdentifierExpr) Expr()                 {}
func (i *IdentifierExpr) Loc() *source.Location { return &i.Location }

// BinaryExpr represents a binary expression
type BinaryExpr struct {
	X  Expression   // left operand
	Op tokens.Token // operator
	Y  Expression   // right operand
	source.Location
}

func (b *BinaryExpr) INode()                {}
func (b *BinaryExpr) Expr()                 {}
func (b *BinaryExpr) Loc() *source.Location { return &b.Location }

// UnaryExpr represents a unary expression
type UnaryExpr struct {
	Op tokens.Token // operator
	X  Expression   // operand
	source.Location
}

func (u *UnaryExpr) INode()                {}
func (u *UnaryExpr) Expr()                 {}
func (u *UnaryExpr) Loc() *source.Location { return &u.Location }

// CallExpr represents a function call expression
type CallExpr struct {
	Fun  Expression   // function expression
	Args []Expression // call arguments
	source.Location
}

func (c *CallExpr) INode()                {}
func (c *CallExpr) Expr()                 {}
func (c *CallExpr) Loc() *source.Location { return &c.Location }

// FieldAccessExpr represents a field access expression (x.field)
type FieldAccessExpr struct {
	Object Expression      // expression whose field is read
	Field  *IdentifierExpr // field selector
	source.Location
}

func (f *FieldAccessExpr) INode()                {}
func (f *FieldAccessExpr) Expr()                 {}
func (f *FieldAccessExpr) Loc() *source.Location { return &f.Location }

// IndexExpr represents an index expression (array[index])
type IndexExpr struct {
	X     Expression
	Index Expression
	source.Location
}

func (i *IndexExpr) INode()                {}
func (i *IndexExpr) Expr()                 {}
func (i *IndexExpr) Loc() *source.Location { return &i.Location }

// RangeExpr represents a range expression: start..end (end exclusive)
type RangeExpr struct {
	Start Expression
	End   Expression
	source.Location
}

func (r *RangeExpr) INode()                {}
func (r *RangeExpr) Expr()                 {}
func (r *RangeExpr) Loc() *source.Location { return &r.Location }

// StructLitExpr represents struct instantiation: Name { field: value, ... }
type StructLitExpr struct {
	Name   *IdentifierExpr
	Fields []StructLitField
	source.Location
}

// StructLitField is one field: value entry of a struct literal.
type StructLitField struct {
	Name  *IdentifierExpr
	Value Expression
}

func (s *StructLitExpr) INode()                {}
func (s *StructLitExpr) Expr()                 {}
func (s *StructLitExpr) Loc() *source.Location { return &s.Location }

// EnumVariantExpr represents enum-variant construction: Enum.Variant or
// Enum.Variant(payload). Data is nil for payload-less variants.
type EnumVariantExpr struct {
	EnumName    string
	VariantName string
	Data        Expression
	source.Location
}

func (e *EnumVariantExpr) INode()                {}
func (e *EnumVariantExpr) Expr()                 {}
func (e *EnumVariantExpr) Loc() *source.Location { return &e.Location }

// ArrayLitExpr represents an array literal: [a, b, c]
type ArrayLitExpr struct {
	Elts []Expression
	source.Location
}

func (a *ArrayLitExpr) INode()                {}
func (a *ArrayLitExpr) Expr()                 {}
func (a *ArrayLitExpr) Loc() *source.Location { return &a.Location }
