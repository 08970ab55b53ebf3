package ast

import "compiler/internal/source"

// AssignStmt represents an assignment statement. Lhs is an identifier, a
// field access, or an index expression.
type AssignStmt struct {
	Lhs Expression
	Rhs Expression
	source.Location
}

func (a *AssignStmt) INode()                {}
func (a *AssignStmt) Stmt()                 {}
func (a *AssignStmt) Loc() *source.Location { return &a.Location }

// Param is one declared function parameter.
type Param struct {
	Name *IdentifierExpr
	Type *IdentifierExpr // type annotation, nil when omitted
}

// FuncDecl represents a function declaration
type FuncDecl struct {
	Name       *IdentifierExpr
	Params     []Param
	ReturnType *IdentifierExpr // nil for void
	Body       *Block
	source.Location
}

func (f *FuncDecl) INode()                {}
func (f *FuncDecl) Stmt()                 {}
func (f *FuncDecl) Loc() *source.Location { return &f.Location }

// IfStmt represents an if statement; Else is a *Block, another *IfStmt, or nil.
type IfStmt struct {
	Cond Expression
	Body *Block
	Else Node
	source.Location
}

func (i *IfStmt) INode()                {}
func (i *IfStmt) Stmt()                 {}
func (i *IfStmt) Loc() *source.Location { return &i.Location }

// WhileStmt represents a while loop
type WhileStmt struct {
	Cond Expression
	Body *Block
	source.Location
}

func (w *WhileStmt) INode()                {}
func (w *WhileStmt) Stmt()                 {}
func (w *WhileStmt) Loc() *source.Location { return &w.Location }

// ForStmt represents a for-in loop over a range expression
type ForStmt struct {
	Var   *IdentifierExpr
	Range Expression
	Body  *Block
	source.Location
}

func (f *ForStmt) INode()                {}
func (f *ForStmt) Stmt()                 {}
func (f *ForStmt) Loc() *source.Location { return &f.Location }

// FieldDef is one declared struct field.
type FieldDef struct {
	Name *IdentifierExpr
	Type *IdentifierExpr
}

// StructDecl represents a struct declaration
type StructDecl struct {
	Name   *IdentifierExpr
	Fields []FieldDef
	source.Location
}

func (s *StructDecl) INode()                {}
func (s *StructDecl) Stmt()                 {}
func (s *StructDecl) Loc() *source.Location { return &s.Location }

// VariantDef is one declared enum variant; Payload is nil for bare variants.
type VariantDef struct {
	Name    *IdentifierExpr
	Payload *IdentifierExpr
}

// EnumDecl represents an enum declaration
type EnumDecl struct {
	Name     *IdentifierExpr
	Variants []VariantDef
	source.Location
}

func (e *EnumDecl) INode()                {}
func (e *EnumDecl) Stmt()                 {}
func (e *EnumDecl) Loc() *source.Location { return &e.Location }

// PrintStmt represents a print statement
type PrintStmt struct {
	X Expression
	source.Location
}

func (p *PrintStmt) INode()                {}
func (p *PrintStmt) Stmt()                 {}
func (p *PrintStmt) Loc() *source.Location { return &p.Location }

// ReturnStmt represents a return statement; Result is nil for bare returns.
type ReturnStmt struct {
	Result Expression
	source.Location
}

func (r *ReturnStmt) INode()                {}
func (r *ReturnStmt) Stmt()                 {}
func (r *ReturnStmt) Loc() *source.Location { return &r.Location }

// ExprStmt represents an expression used as a statement
type ExprStmt struct {
	X Expression
	source.Location
}

func (e *ExprStmt) INode()                {}
func (e *ExprStmt) Stmt()                 {}
func (e *ExprStmt) Loc() *source.Location { return &e.Location }
