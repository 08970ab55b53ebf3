package hir

import "compiler/internal/frontend/ast"

// FuncSymbol is a collected function declaration.
type FuncSymbol struct {
	Name string
	Decl *ast.FuncDecl
}

// Arity returns the declared parameter count.
func (f *FuncSymbol) Arity() int { return len(f.Decl.Params) }

// StructSymbol is a collected struct declaration. Field order follows the
// declaration.
type StructSymbol struct {
	Name   string
	Decl   *ast.StructDecl
	Fields []string
}

// HasField reports whether the struct declares the named field.
func (s *StructSymbol) HasField(name string) bool {
	for _, f := range s.Fields {
		if f == name {
			return true
		}
	}
	return false
}

// EnumSymbol is a collected enum declaration. Payload maps variant name to
// whether the variant carries a payload.
type EnumSymbol struct {
	Name    string
	Decl    *ast.EnumDecl
	Payload map[string]bool
}

// HasVariant reports whether the enum declares the named variant.
func (e *EnumSymbol) HasVariant(name string) bool {
	_, ok := e.Payload[name]
	return ok
}

// SymbolTable holds every module-level declaration of a program.
type SymbolTable struct {
	Functions map[string]*FuncSymbol
	Structs   map[string]*StructSymbol
	Enums     map[string]*EnumSymbol
	Globals   map[string]bool // module-level variables, by first assignment
}

func newSymbolTable() *SymbolTable {
	return &SymbolTable{
		Functions: make(map[string]*FuncSymbol),
		Structs:   make(map[string]*StructSymbol),
		Enums:     make(map[string]*EnumSymbol),
		Globals:   make(map[string]bool),
	}
}

// declared reports whether the name is taken by any module-level
// declaration kind.
func (t *SymbolTable) declared(name string) bool {
	if _, ok := t.Functions[name]; ok {
		return true
	}
	if _, ok := t.Structs[name]; ok {
		return true
	}
	if _, ok := t.Enums[name]; ok {
		return true
	}
	return t.Globals[name]
}
