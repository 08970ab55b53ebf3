// Package mirgen lowers a checked module into the mid-level
// representation: an explicit control-flow graph over the ir types.
//
// Lowering conventions:
//   - every local lives in an alloca slot; reads are load, writes are store
//   - load takes [addr, byte-offset const]; store takes [addr, byte-offset
//     const, value]
//   - aggregates (structs, enum values, arrays) live in alloca'd memory,
//     one 8-byte slot per field or element; enum values are [tag, payload]
//   - for-in over a range desugars to a counter loop
//   - string + is strcat, print is its own opcode
package mirgen

import (
	"fmt"
	"sort"
	"strconv"

	"compiler/internal/frontend/ast"
	"compiler/internal/hir"
	"compiler/internal/ir"
)

const slotSize = 8

// Lower produces the MIR program for a checked module. Module-level
// statements run in a synthesized entry function; a user-declared main is
// called from it.
func Lower(m *hir.Module, meta ir.Metadata) (*ir.Program, error) {
	lw := &lowerer{
		mod:     m,
		builder: ir.NewBuilder(meta),
	}
	return lw.run()
}

type lowerer struct {
	mod     *hir.Module
	builder *ir.Builder
}

// slot is a local's storage: its address value and its tracked type.
type slot struct {
	addr ir.Value
	typ  ir.Type
}

// funcLowerer carries per-function lowering state.
type funcLowerer struct {
	*lowerer
	fn     *ir.Function
	cur    *ir.Block
	locals map[string]slot
}

func (lw *lowerer) run() (*ir.Program, error) {
	// globals first so stores in the entry function resolve
	for _, gname := range sortedGlobals(lw.mod.Symbols) {
		typ := lw.globalType(gname)
		if err := lw.builder.AddGlobal(gname, typ, zeroInit(typ)); err != nil {
			return nil, err
		}
	}

	// declared functions, in source order
	for _, node := range lw.mod.Program.Nodes {
		decl, ok := node.(*ast.FuncDecl)
		if !ok {
			continue
		}
		if err := lw.lowerFunc(decl); err != nil {
			return nil, err
		}
	}

	if err := lw.lowerEntry(); err != nil {
		return nil, err
	}
	return lw.builder.Build(), nil
}

// lowerEntry synthesizes the program entry: module-level statements in
// source order, then a call to a user-declared main (if any).
func (lw *lowerer) lowerEntry() error {
	fn := lw.builder.CreateFunction("__start", nil, ir.Void)
	fl := &funcLowerer{
		lowerer: lw,
		fn:      fn,
		cur:     fn.Blocks[fn.Entry],
		locals:  map[string]slot{},
	}

	for _, node := range lw.mod.Program.Nodes {
		switch node.(type) {
		case *ast.FuncDecl, *ast.StructDecl, *ast.EnumDecl:
			continue
		}
		if err := fl.lowerStmt(node); err != nil {
			return err
		}
	}

	if sym, ok := lw.mod.Symbols.Functions["main"]; ok && sym.Arity() == 0 {
		fl.builder.AddCall(fn, fl.cur, "main", ir.Void)
	}
	fl.terminate(&ir.Return{})
	return lw.builder.SetEntryPoint("__start")
}

func (lw *lowerer) lowerFunc(decl *ast.FuncDecl) error {
	params := make([]ir.Param, len(decl.Params))
	for i, p := range decl.Params {
		params[i] = ir.Param{
			ID:   ir.ParamID(i),
			Name: p.Name.Name,
			Type: lw.typeFromAnnotation(p.Type),
		}
	}
	ret := ir.Type(ir.Void)
	if decl.ReturnType != nil {
		ret = lw.typeFromAnnotation(decl.ReturnType)
	}

	fn := lw.builder.CreateFunction(decl.Name.Name, params, ret)
	fl := &funcLowerer{
		lowerer: lw,
		fn:      fn,
		cur:     fn.Blocks[fn.Entry],
		locals:  map[string]slot{},
	}

	// parameters are spilled into slots so assignment to them works
	for i, p := range decl.Params {
		addr := fl.emit(ir.OpAlloca, ir.Pointer{Elem: params[i].Type}, ir.ConstInt(slotSize))
		fl.emit(ir.OpStore, ir.Void, addr, ir.ConstInt(0), ir.ParamValue(ir.ParamID(i)))
		fl.locals[p.Name.Name] = slot{addr: addr, typ: params[i].Type}
	}

	for _, node := range decl.Body.Nodes {
		if err := fl.lowerStmt(node); err != nil {
			return err
		}
	}
	fl.terminate(&ir.Return{})
	return nil
}

// ----- statements -----

func (fl *funcLowerer) lowerStmt(node ast.Node) error {
	switch n := node.(type) {
	case *ast.AssignStmt:
		return fl.lowerAssign(n)
	case *ast.IfStmt:
		return fl.lowerIf(n)
	case *ast.WhileStmt:
		return fl.lowerWhile(n)
	case *ast.ForStmt:
		return fl.lowerFor(n)
	case *ast.PrintStmt:
		v, _, err := fl.lowerExpr(n.X)
		if err != nil {
			return err
		}
		fl.emit(ir.OpPrint, ir.Void, v)
		return nil
	case *ast.ReturnStmt:
		if n.Result == nil {
			fl.terminate(&ir.Return{})
		} else {
			v, _, err := fl.lowerExpr(n.Result)
			if err != nil {
				return err
			}
			fl.terminate(&ir.Return{Value: &v})
		}
		// statements after a return land in a fresh unreachable block
		fl.cur = fl.newBlock("dead")
		return nil
	case *ast.ExprStmt:
		_, _, err := fl.lowerExpr(n.X)
		return err
	case *ast.Block:
		for _, inner := range n.Nodes {
			if err := fl.lowerStmt(inner); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("cannot lower %T", node)
	}
}

func (fl *funcLowerer) lowerAssign(n *ast.AssignStmt) error {
	val, typ, err := fl.lowerExpr(n.Rhs)
	if err != nil {
		return err
	}

	switch lhs := n.Lhs.(type) {
	case *ast.IdentifierExpr:
		if sl, ok := fl.locals[lhs.Name]; ok {
			fl.emit(ir.OpStore, ir.Void, sl.addr, ir.ConstInt(0), val)
			return nil
		}
		if fl.mod.Symbols.Globals[lhs.Name] {
			fl.emit(ir.OpStore, ir.Void, ir.GlobalValue(lhs.Name), ir.ConstInt(0), val)
			return nil
		}
		// first assignment declares a local
		addr := fl.emit(ir.OpAlloca, ir.Pointer{Elem: typ}, ir.ConstInt(slotSize))
		fl.emit(ir.OpStore, ir.Void, addr, ir.ConstInt(0), val)
		fl.locals[lhs.Name] = slot{addr: addr, typ: typ}
		return nil
	case *ast.FieldAccessExpr:
		addr, offset, _, err := fl.fieldSlot(lhs)
		if err != nil {
			return err
		}
		fl.emit(ir.OpStore, ir.Void, addr, ir.ConstInt(offset), val)
		return nil
	case *ast.IndexExpr:
		addr, err := fl.elementAddr(lhs)
		if err != nil {
			return err
		}
		fl.emit(ir.OpStore, ir.Void, addr, ir.ConstInt(0), val)
		return nil
	default:
		return fmt.Errorf("invalid assignment target %T", n.Lhs)
	}
}

func (fl *funcLowerer) lowerIf(n *ast.IfStmt) error {
	cond, _, err := fl.lowerExpr(n.Cond)
	if err != nil {
		return err
	}

	thenBlk := fl.newBlock("then")
	joinBlk := fl.newBlock("join")
	elseTarget := joinBlk
	if n.Else != nil {
		elseTarget = fl.newBlock("else")
	}
	fl.terminate(&ir.CondBr{Cond: cond, Then: thenBlk.ID, Else: elseTarget.ID})

	fl.cur = thenBlk
	if err := fl.lowerStmt(n.Body); err != nil {
		return err
	}
	fl.terminate(&ir.Br{Target: joinBlk.ID})

	if n.Else != nil {
		fl.cur = elseTarget
		if err := fl.lowerStmt(n.Else); err != nil {
			return err
		}
		fl.terminate(&ir.Br{Target: joinBlk.ID})
	}

	fl.cur = joinBlk
	return nil
}

func (fl *funcLowerer) lowerWhile(n *ast.WhileStmt) error {
	condBlk := fl.newBlock("while.cond")
	bodyBlk := fl.newBlock("while.body")
	exitBlk := fl.newBlock("while.exit")

	fl.terminate(&ir.Br{Target: condBlk.ID})
	fl.cur = condBlk
	cond, _, err := fl.lowerExpr(n.Cond)
	if err != nil {
		return err
	}
	fl.terminate(&ir.CondBr{Cond: cond, Then: bodyBlk.ID, Else: exitBlk.ID})

	fl.cur = bodyBlk
	if err := fl.lowerStmt(n.Body); err != nil {
		return err
	}
	fl.terminate(&ir.Br{Target: condBlk.ID})

	fl.cur = exitBlk
	return nil
}

// lowerFor desugars `for i in start..end` into a counter loop with i in
// its own slot. The end bound is evaluated once, before the loop.
func (fl *funcLowerer) lowerFor(n *ast.ForStmt) error {
	rng, ok := n.Range.(*ast.RangeExpr)
	if !ok {
		return fmt.Errorf("for-in requires a range expression, got %T", n.Range)
	}
	start, _, err := fl.lowerExpr(rng.Start)
	if err != nil {
		return err
	}
	end, _, err := fl.lowerExpr(rng.End)
	if err != nil {
		return err
	}

	ivar := fl.emit(ir.OpAlloca, ir.Pointer{Elem: ir.I64}, ir.ConstInt(slotSize))
	fl.emit(ir.OpStore, ir.Void, ivar, ir.ConstInt(0), start)
	bound := fl.emit(ir.OpAlloca, ir.Pointer{Elem: ir.I64}, ir.ConstInt(slotSize))
	fl.emit(ir.OpStore, ir.Void, bound, ir.ConstInt(0), end)

	condBlk := fl.newBlock("for.cond")
	bodyBlk := fl.newBlock("for.body")
	stepBlk := fl.newBlock("for.step")
	exitBlk := fl.newBlock("for.exit")

	fl.terminate(&ir.Br{Target: condBlk.ID})
	fl.cur = condBlk
	cur := fl.emit(ir.OpLoad, ir.I64, ivar, ir.ConstInt(0))
	lim := fl.emit(ir.OpLoad, ir.I64, bound, ir.ConstInt(0))
	cond := fl.emit(ir.OpLt, ir.Bool, cur, lim)
	fl.terminate(&ir.CondBr{Cond: cond, Then: bodyBlk.ID, Else: exitBlk.ID})

	fl.cur = bodyBlk
	prev, shadowed := fl.locals[n.Var.Name]
	fl.locals[n.Var.Name] = slot{addr: ivar, typ: ir.I64}
	if err := fl.lowerStmt(n.Body); err != nil {
		return err
	}
	if shadowed {
		fl.locals[n.Var.Name] = prev
	} else {
		delete(fl.locals, n.Var.Name)
	}
	fl.terminate(&ir.Br{Target: stepBlk.ID})

	fl.cur = stepBlk
	v := fl.emit(ir.OpLoad, ir.I64, ivar, ir.ConstInt(0))
	next := fl.emit(ir.OpAdd, ir.I64, v, ir.ConstInt(1))
	fl.emit(ir.OpStore, ir.Void, ivar, ir.ConstInt(0), next)
	fl.terminate(&ir.Br{Target: condBlk.ID})

	fl.cur = exitBlk
	return nil
}

// ----- expressions -----

func (fl *funcLowerer) lowerExpr(expr ast.Expression) (ir.Value, ir.Type, error) {
	switch e := expr.(type) {
	case *ast.BasicLit:
		return fl.lowerLit(e)
	case *ast.IdentifierExpr:
		if sl, ok := fl.locals[e.Name]; ok {
			return fl.emit(ir.OpLoad, sl.typ, sl.addr, ir.ConstInt(0)), sl.typ, nil
		}
		if fl.mod.Symbols.Globals[e.Name] {
			typ := fl.globalType(e.Name)
			return fl.emit(ir.OpLoad, typ, ir.GlobalValue(e.Name), ir.ConstInt(0)), typ, nil
		}
		return ir.Value{}, nil, fmt.Errorf("unresolved name %q reached lowering", e.Name)
	case *ast.BinaryExpr:
		return fl.lowerBinary(e)
	case *ast.UnaryExpr:
		v, typ, err := fl.lowerExpr(e.X)
		if err != nil {
			return ir.Value{}, nil, err
		}
		if e.Op.Value == "!" {
			return fl.emit(ir.OpNot, ir.Bool, v), ir.Bool, nil
		}
		return fl.emit(ir.OpNeg, typ, v), typ, nil
	case *ast.CallExpr:
		return fl.lowerCall(e)
	case *ast.FieldAccessExpr:
		addr, offset, typ, err := fl.fieldSlot(e)
		if err != nil {
			return ir.Value{}, nil, err
		}
		return fl.emit(ir.OpLoad, typ, addr, ir.ConstInt(offset)), typ, nil
	case *ast.IndexExpr:
		addr, err := fl.elementAddr(e)
		if err != nil {
			return ir.Value{}, nil, err
		}
		return fl.emit(ir.OpLoad, ir.I64, addr, ir.ConstInt(0)), ir.I64, nil
	case *ast.StructLitExpr:
		return fl.lowerStructLit(e)
	case *ast.EnumVariantExpr:
		return fl.lowerEnumVariant(e)
	case *ast.ArrayLitExpr:
		return fl.lowerArrayLit(e)
	case *ast.RangeExpr:
		return ir.Value{}, nil, fmt.Errorf("range expression outside for-in")
	default:
		return ir.Value{}, nil, fmt.Errorf("cannot lower expression %T", expr)
	}
}

func (fl *funcLowerer) lowerLit(e *ast.BasicLit) (ir.Value, ir.Type, error) {
	switch e.Kind {
	case ast.INT:
		n, err := strconv.ParseInt(e.Value, 10, 64)
		if err != nil {
			return ir.Value{}, nil, fmt.Errorf("bad integer literal %q: %w", e.Value, err)
		}
		return ir.ConstInt(n), ir.I64, nil
	case ast.FLOAT:
		return ir.ConstFloat(e.Value), ir.F64, nil
	case ast.BOOL:
		return ir.ConstBool(e.Value == "true"), ir.Bool, nil
	case ast.STRING:
		return ir.ConstString(e.Value), ir.Str, nil
	default:
		return ir.Value{}, nil, fmt.Errorf("unknown literal kind %d", e.Kind)
	}
}

var binaryOps = map[string]ir.Opcode{
	"+":  ir.OpAdd,
	"-":  ir.OpSub,
	"*":  ir.OpMul,
	"/":  ir.OpDiv,
	"%":  ir.OpMod,
	"==": ir.OpEq,
	"!=": ir.OpNe,
	"<":  ir.OpLt,
	"<=": ir.OpLe,
	">":  ir.OpGt,
	">=": ir.OpGe,
	"&&": ir.OpAnd,
	"||": ir.OpOr,
}

func (fl *funcLowerer) lowerBinary(e *ast.BinaryExpr) (ir.Value, ir.Type, error) {
	x, xt, err := fl.lowerExpr(e.X)
	if err != nil {
		return ir.Value{}, nil, err
	}
	y, _, err := fl.lowerExpr(e.Y)
	if err != nil {
		return ir.Value{}, nil, err
	}

	op, ok := binaryOps[e.Op.Value]
	if !ok {
		return ir.Value{}, nil, fmt.Errorf("unknown binary operator %q", e.Op.Value)
	}
	if op == ir.OpAdd && xt == ir.Str {
		return fl.emit(ir.OpStrConcat, ir.Str, x, y), ir.Str, nil
	}
	switch {
	case op.IsComparison(), op == ir.OpAnd, op == ir.OpOr:
		return fl.emit(op, ir.Bool, x, y), ir.Bool, nil
	default:
		return fl.emit(op, xt, x, y), xt, nil
	}
}

func (fl *funcLowerer) lowerCall(e *ast.CallExpr) (ir.Value, ir.Type, error) {
	id := e.Fun.(*ast.IdentifierExpr) // guaranteed by the checker
	args := make([]ir.Value, len(e.Args))
	for i, a := range e.Args {
		v, _, err := fl.lowerExpr(a)
		if err != nil {
			return ir.Value{}, nil, err
		}
		args[i] = v
	}
	sym := fl.mod.Symbols.Functions[id.Name]
	ret := ir.Type(ir.Void)
	if sym.Decl.ReturnType != nil {
		ret = fl.typeFromAnnotation(sym.Decl.ReturnType)
	}
	return fl.builder.AddCall(fl.fn, fl.cur, id.Name, ret, args...), ret, nil
}

func (fl *funcLowerer) lowerStructLit(e *ast.StructLitExpr) (ir.Value, ir.Type, error) {
	sym := fl.mod.Symbols.Structs[e.Name.Name]
	size := int64(len(sym.Fields)) * slotSize
	typ := ir.Pointer{Elem: ir.I64}
	addr := fl.emit(ir.OpAlloca, typ, ir.ConstInt(size))
	for _, f := range e.Fields {
		v, _, err := fl.lowerExpr(f.Value)
		if err != nil {
			return ir.Value{}, nil, err
		}
		fl.emit(ir.OpStore, ir.Void, addr, ir.ConstInt(fieldOffset(sym, f.Name.Name)), v)
	}
	return addr, typ, nil
}

// lowerEnumVariant materializes [tag, payload] in an alloca'd pair. Tags
// are variant declaration order.
func (fl *funcLowerer) lowerEnumVariant(e *ast.EnumVariantExpr) (ir.Value, ir.Type, error) {
	sym := fl.mod.Symbols.Enums[e.EnumName]
	typ := ir.Pointer{Elem: ir.I64}
	addr := fl.emit(ir.OpAlloca, typ, ir.ConstInt(2*slotSize))
	fl.emit(ir.OpStore, ir.Void, addr, ir.ConstInt(0), ir.ConstInt(variantTag(sym, e.VariantName)))
	if e.Data != nil {
		v, _, err := fl.lowerExpr(e.Data)
		if err != nil {
			return ir.Value{}, nil, err
		}
		fl.emit(ir.OpStore, ir.Void, addr, ir.ConstInt(slotSize), v)
	}
	return addr, typ, nil
}

func (fl *funcLowerer) lowerArrayLit(e *ast.ArrayLitExpr) (ir.Value, ir.Type, error) {
	typ := ir.Pointer{Elem: ir.I64}
	size := int64(len(e.Elts)) * slotSize
	if size == 0 {
		size = slotSize
	}
	addr := fl.emit(ir.OpAlloca, typ, ir.ConstInt(size))
	for i, elt := range e.Elts {
		v, _, err := fl.lowerExpr(elt)
		if err != nil {
			return ir.Value{}, nil, err
		}
		fl.emit(ir.OpStore, ir.Void, addr, ir.ConstInt(int64(i)*slotSize), v)
	}
	return addr, typ, nil
}

// fieldSlot resolves a field access to (base address, byte offset, type).
func (fl *funcLowerer) fieldSlot(e *ast.FieldAccessExpr) (ir.Value, int64, ir.Type, error) {
	base, _, err := fl.lowerExpr(e.Object)
	if err != nil {
		return ir.Value{}, 0, nil, err
	}
	// without per-value struct identity the offset comes from the first
	// struct declaring this field name; the checker guarantees a shared
	// field name occupies the same position in every declaring struct
	for _, name := range sortedStructs(fl.mod.Symbols) {
		sym := fl.mod.Symbols.Structs[name]
		if sym.HasField(e.Field.Name) {
			return base, fieldOffset(sym, e.Field.Name), ir.I64, nil
		}
	}
	return ir.Value{}, 0, nil, fmt.Errorf("no struct declares field %q", e.Field.Name)
}

// elementAddr computes the address of arr[idx]. Constant indexes fold into
// the offset at optimization time; dynamic ones scale at runtime.
func (fl *funcLowerer) elementAddr(e *ast.IndexExpr) (ir.Value, error) {
	base, _, err := fl.lowerExpr(e.X)
	if err != nil {
		return ir.Value{}, err
	}
	idx, _, err := fl.lowerExpr(e.Index)
	if err != nil {
		return ir.Value{}, err
	}
	scaled := fl.emit(ir.OpMul, ir.I64, idx, ir.ConstInt(slotSize))
	return fl.emit(ir.OpAdd, ir.Pointer{Elem: ir.I64}, base, scaled), nil
}

// ----- helpers -----

func (fl *funcLowerer) emit(op ir.Opcode, typ ir.Type, operands ...ir.Value) ir.Value {
	return fl.builder.AddInstr(fl.fn, fl.cur, op, typ, operands...)
}

func (fl *funcLowerer) newBlock(label string) *ir.Block {
	return fl.builder.AddBlock(fl.fn, label)
}

// terminate sets the current block's terminator unless a statement already
// did (a return inside the block wins).
func (fl *funcLowerer) terminate(term ir.Terminator) {
	if _, placeholder := fl.cur.Term.(*ir.Return); placeholder || fl.cur.Term == nil {
		fl.builder.SetTerm(fl.cur, term)
	}
}

func (lw *lowerer) typeFromAnnotation(id *ast.IdentifierExpr) ir.Type {
	if id == nil {
		return ir.I64
	}
	switch id.Name {
	case "i64":
		return ir.I64
	case "f64":
		return ir.F64
	case "bool":
		return ir.Bool
	case "str":
		return ir.Str
	default:
		// declared aggregates travel by address
		return ir.Pointer{Elem: ir.I64}
	}
}

// globalType infers a global's type from its first top-level assignment.
func (lw *lowerer) globalType(name string) ir.Type {
	for _, node := range lw.mod.Program.Nodes {
		as, ok := node.(*ast.AssignStmt)
		if !ok {
			continue
		}
		id, ok := as.Lhs.(*ast.IdentifierExpr)
		if !ok || id.Name != name {
			continue
		}
		if lit, ok := as.Rhs.(*ast.BasicLit); ok {
			switch lit.Kind {
			case ast.FLOAT:
				return ir.F64
			case ast.BOOL:
				return ir.Bool
			case ast.STRING:
				return ir.Str
			}
		}
		return ir.I64
	}
	return ir.I64
}

func zeroInit(t ir.Type) string {
	switch t {
	case ir.F64:
		return "0.0"
	case ir.Bool:
		return "false"
	case ir.Str:
		return `""`
	default:
		return "0"
	}
}

func fieldOffset(sym *hir.StructSymbol, field string) int64 {
	for i, f := range sym.Fields {
		if f == field {
			return int64(i) * slotSize
		}
	}
	return 0
}

func variantTag(sym *hir.EnumSymbol, variant string) int64 {
	for i, v := range sym.Decl.Variants {
		if v.Name.Name == variant {
			return int64(i)
		}
	}
	return 0
}

func sortedGlobals(t *hir.SymbolTable) []string {
	out := make([]string, 0, len(t.Globals))
	for name := range t.Globals {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func sortedStructs(t *hir.SymbolTable) []string {
	out := make([]string, 0, len(t.Structs))
	for name := range t.Structs {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
