// Package hir holds the semantically-checked form of a parsed program:
// the AST plus a verified symbol table. Lowering to the mid-level
// representation starts from here and can assume every name resolves.
package hir

import (
	"fmt"

	"compiler/internal/diagnostics"
	"compiler/internal/frontend/ast"
	"compiler/internal/source"
)

// Module is a checked program. Lowering may assume all references in
// Program resolve against Symbols.
type Module struct {
	Program *ast.Program
	Symbols *SymbolTable
}

var primitiveTypes = map[string]bool{
	"i64":  true,
	"f64":  true,
	"bool": true,
	"str":  true,
}

// Build collects module-level symbols and checks every reference in the
// program. Problems are reported to the bag; a non-nil error summarizes
// how many were found.
func Build(prog *ast.Program, bag *diagnostics.Bag) (*Module, error) {
	c := &checker{prog: prog, table: newSymbolTable(), bag: bag}
	c.collect()
	c.checkFieldLayouts()
	c.check()
	if c.errs > 0 {
		return nil, fmt.Errorf("semantic analysis failed with %d error(s)", c.errs)
	}
	return &Module{Program: prog, Symbols: c.table}, nil
}

type checker struct {
	prog  *ast.Program
	table *SymbolTable
	bag   *diagnostics.Bag
	errs  int
}

func (c *checker) report(code string, loc *source.Location, msg, label string) {
	c.errs++
	c.bag.Add(diagnostics.NewError(msg).
		WithCode(code).
		WithPrimaryLabel(loc, label))
}

// collect declares every module-level name. Bodies are not entered except
// to find nothing: only top-level declarations introduce module symbols.
func (c *checker) collect() {
	for _, node := range c.prog.Nodes {
		switch n := node.(type) {
		case *ast.FuncDecl:
			if c.table.declared(n.Name.Name) {
				c.reportRedeclared(n.Name)
				continue
			}
			c.table.Functions[n.Name.Name] = &FuncSymbol{Name: n.Name.Name, Decl: n}
		case *ast.StructDecl:
			if c.table.declared(n.Name.Name) {
				c.reportRedeclared(n.Name)
				continue
			}
			sym := &StructSymbol{Name: n.Name.Name, Decl: n}
			seen := map[string]bool{}
			for _, f := range n.Fields {
				if seen[f.Name.Name] {
					c.report(diagnostics.ErrRedeclaredSymbol, f.Name.Loc(),
						fmt.Sprintf("duplicate field '%s' in struct '%s'", f.Name.Name, n.Name.Name),
						"field declared twice")
					continue
				}
				seen[f.Name.Name] = true
				sym.Fields = append(sym.Fields, f.Name.Name)
			}
			c.table.Structs[n.Name.Name] = sym
		case *ast.EnumDecl:
			if c.table.declared(n.Name.Name) {
				c.reportRedeclared(n.Name)
				continue
			}
			sym := &EnumSymbol{Name: n.Name.Name, Decl: n, Payload: map[string]bool{}}
			for _, v := range n.Variants {
				if _, dup := sym.Payload[v.Name.Name]; dup {
					c.report(diagnostics.ErrRedeclaredSymbol, v.Name.Loc(),
						fmt.Sprintf("duplicate variant '%s' in enum '%s'", v.Name.Name, n.Name.Name),
						"variant declared twice")
					continue
				}
				sym.Payload[v.Name.Name] = v.Payload != nil
			}
			c.table.Enums[n.Name.Name] = sym
		case *ast.AssignStmt:
			if id, ok := n.Lhs.(*ast.IdentifierExpr); ok {
				c.table.Globals[id.Name] = true
			}
		}
	}
}

// checkFieldLayouts rejects a field name declared at different positions
// in two structs. Field accesses resolve through the field name alone at
// lowering, so a shared name must mean the same slot in every struct
// declaring it.
func (c *checker) checkFieldLayouts() {
	type slot struct {
		owner string
		index int
	}
	first := map[string]slot{}
	for _, node := range c.prog.Nodes {
		n, ok := node.(*ast.StructDecl)
		if !ok {
			continue
		}
		sym := c.table.Structs[n.Name.Name]
		if sym == nil || sym.Decl != n {
			continue
		}
		for i, name := range sym.Fields {
			prev, seen := first[name]
			if !seen {
				first[name] = slot{owner: n.Name.Name, index: i}
				continue
			}
			if prev.index != i {
				c.report(diagnostics.ErrFieldLayoutConflict, fieldLoc(n, name),
					fmt.Sprintf("field '%s' is at position %d in struct '%s' but position %d in struct '%s'",
						name, i, n.Name.Name, prev.index, prev.owner),
					"conflicting field position")
			}
		}
	}
}

func fieldLoc(n *ast.StructDecl, name string) *source.Location {
	for _, f := range n.Fields {
		if f.Name.Name == name {
			return f.Name.Loc()
		}
	}
	return n.Name.Loc()
}

// scope is a chained set of local names.
type scope struct {
	parent *scope
	names  map[string]bool
}

func newScope(parent *scope) *scope {
	return &scope{parent: parent, names: map[string]bool{}}
}

func (s *scope) defined(name string) bool {
	for cur := s; cur != nil; cur = cur.parent {
		if cur.names[name] {
			return true
		}
	}
	return false
}

func (s *scope) define(name string) { s.names[name] = true }

func (c *checker) check() {
	top := newScope(nil)
	for _, node := range c.prog.Nodes {
		c.checkNode(node, top)
	}
}

func (c *checker) checkNode(node ast.Node, sc *scope) {
	switch n := node.(type) {
	case *ast.FuncDecl:
		body := newScope(nil) // functions do not close over outer locals
		for _, p := range n.Params {
			body.define(p.Name.Name)
			c.checkTypeName(p.Type)
		}
		c.checkTypeName(n.ReturnType)
		c.checkBlock(n.Body, body)
	case *ast.StructDecl:
		for _, f := range n.Fields {
			c.checkTypeName(f.Type)
		}
	case *ast.EnumDecl:
		for _, v := range n.Variants {
			c.checkTypeName(v.Payload)
		}
	case *ast.AssignStmt:
		c.checkExpr(n.Rhs, sc)
		if id, ok := n.Lhs.(*ast.IdentifierExpr); ok {
			sc.define(id.Name)
		} else {
			c.checkExpr(n.Lhs, sc)
		}
	case *ast.IfStmt:
		c.checkExpr(n.Cond, sc)
		c.checkBlock(n.Body, newScope(sc))
		if n.Else != nil {
			c.checkNode(n.Else, sc)
		}
	case *ast.WhileStmt:
		c.checkExpr(n.Cond, sc)
		c.checkBlock(n.Body, newScope(sc))
	case *ast.ForStmt:
		c.checkExpr(n.Range, sc)
		body := newScope(sc)
		body.define(n.Var.Name)
		c.checkBlock(n.Body, body)
	case *ast.PrintStmt:
		c.checkExpr(n.X, sc)
	case *ast.ReturnStmt:
		if n.Result != nil {
			c.checkExpr(n.Result, sc)
		}
	case *ast.ExprStmt:
		c.checkExpr(n.X, sc)
	case *ast.Block:
		c.checkBlock(n, newScope(sc))
	}
}

func (c *checker) checkBlock(blk *ast.Block, sc *scope) {
	if blk == nil {
		return
	}
	for _, node := range blk.Nodes {
		c.checkNode(node, sc)
	}
}

func (c *checker) checkExpr(expr ast.Expression, sc *scope) {
	switch e := expr.(type) {
	case *ast.BasicLit:
	case *ast.IdentifierExpr:
		if sc.defined(e.Name) || c.table.Globals[e.Name] {
			return
		}
		if _, ok := c.table.Functions[e.Name]; ok {
			return
		}
		c.report(diagnostics.ErrUndefinedSymbol, e.Loc(),
			fmt.Sprintf("undefined name '%s'", e.Name),
			"not defined anywhere in this program")
	case *ast.BinaryExpr:
		c.checkExpr(e.X, sc)
		c.checkExpr(e.Y, sc)
	case *ast.UnaryExpr:
		c.checkExpr(e.X, sc)
	case *ast.RangeExpr:
		c.checkExpr(e.Start, sc)
		c.checkExpr(e.End, sc)
	case *ast.CallExpr:
		c.checkCall(e, sc)
	case *ast.FieldAccessExpr:
		c.checkExpr(e.Object, sc)
	case *ast.IndexExpr:
		c.checkExpr(e.X, sc)
		c.checkExpr(e.Index, sc)
	case *ast.ArrayLitExpr:
		for _, elt := range e.Elts {
			c.checkExpr(elt, sc)
		}
	case *ast.StructLitExpr:
		c.checkStructLit(e, sc)
	case *ast.EnumVariantExpr:
		c.checkEnumVariant(e, sc)
	}
}

func (c *checker) checkCall(e *ast.CallExpr, sc *scope) {
	for _, arg := range e.Args {
		c.checkExpr(arg, sc)
	}
	id, ok := e.Fun.(*ast.IdentifierExpr)
	if !ok {
		c.report(diagnostics.ErrNotCallable, e.Loc(),
			"only named functions can be called",
			"this expression is not callable")
		return
	}
	fn, ok := c.table.Functions[id.Name]
	if !ok {
		if c.table.declared(id.Name) || sc.defined(id.Name) {
			c.report(diagnostics.ErrNotCallable, id.Loc(),
				fmt.Sprintf("'%s' is not a function", id.Name),
				"cannot be called")
			return
		}
		c.report(diagnostics.ErrUndefinedSymbol, id.Loc(),
			fmt.Sprintf("undefined function '%s'", id.Name),
			"no function with this name")
		return
	}
	if len(e.Args) != fn.Arity() {
		c.report(diagnostics.ErrWrongArgumentCount, e.Loc(),
			fmt.Sprintf("'%s' expects %d argument(s), got %d", id.Name, fn.Arity(), len(e.Args)),
			"wrong number of arguments")
	}
}

func (c *checker) checkStructLit(e *ast.StructLitExpr, sc *scope) {
	sym, ok := c.table.Structs[e.Name.Name]
	if !ok {
		c.report(diagnostics.ErrUndefinedSymbol, e.Name.Loc(),
			fmt.Sprintf("undefined struct '%s'", e.Name.Name),
			"no struct with this name")
	}
	seen := map[string]bool{}
	for _, f := range e.Fields {
		c.checkExpr(f.Value, sc)
		if seen[f.Name.Name] {
			c.report(diagnostics.ErrRedeclaredSymbol, f.Name.Loc(),
				fmt.Sprintf("field '%s' set twice", f.Name.Name),
				"duplicate field")
			continue
		}
		seen[f.Name.Name] = true
		if sym != nil && !sym.HasField(f.Name.Name) {
			c.report(diagnostics.ErrUnknownField, f.Name.Loc(),
				fmt.Sprintf("struct '%s' has no field '%s'", e.Name.Name, f.Name.Name),
				"unknown field")
		}
	}
}

func (c *checker) checkEnumVariant(e *ast.EnumVariantExpr, sc *scope) {
	sym, ok := c.table.Enums[e.EnumName]
	if !ok {
		c.report(diagnostics.ErrUndefinedSymbol, e.Loc(),
			fmt.Sprintf("undefined enum '%s'", e.EnumName),
			"no enum with this name")
		if e.Data != nil {
			c.checkExpr(e.Data, sc)
		}
		return
	}
	if !sym.HasVariant(e.VariantName) {
		c.report(diagnostics.ErrUnknownVariant, e.Loc(),
			fmt.Sprintf("enum '%s' has no variant '%s'", e.EnumName, e.VariantName),
			"unknown variant")
		if e.Data != nil {
			c.checkExpr(e.Data, sc)
		}
		return
	}
	wantPayload := sym.Payload[e.VariantName]
	if wantPayload && e.Data == nil {
		c.report(diagnostics.ErrUnknownVariant, e.Loc(),
			fmt.Sprintf("variant '%s.%s' requires a payload", e.EnumName, e.VariantName),
			"missing payload")
	}
	if !wantPayload && e.Data != nil {
		c.report(diagnostics.ErrUnknownVariant, e.Loc(),
			fmt.Sprintf("variant '%s.%s' takes no payload", e.EnumName, e.VariantName),
			"unexpected payload")
	}
	if e.Data != nil {
		c.checkExpr(e.Data, sc)
	}
}

// checkTypeName validates a type annotation: a primitive name or a
// declared struct or enum. A nil annotation is allowed (it defaults at
// lowering).
func (c *checker) checkTypeName(id *ast.IdentifierExpr) {
	if id == nil {
		return
	}
	if primitiveTypes[id.Name] {
		return
	}
	if _, ok := c.table.Structs[id.Name]; ok {
		return
	}
	if _, ok := c.table.Enums[id.Name]; ok {
		return
	}
	c.report(diagnostics.ErrUndefinedSymbol, id.Loc(),
		fmt.Sprintf("unknown type '%s'", id.Name),
		"not a primitive or declared type")
}

func (c *checker) reportRedeclared(id *ast.IdentifierExpr) {
	c.report(diagnostics.ErrRedeclaredSymbol, id.Loc(),
		fmt.Sprintf("'%s' is already declared", id.Name),
		"redeclared here")
}
