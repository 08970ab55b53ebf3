// Package wasm generates binary WebAssembly core modules from validated
// programs.
//
// Strategy: one wasm function per program function, every instruction
// result in a typed local. Control flow runs under a dispatch loop: the
// sorted basic blocks become nested wasm blocks, a br_table on a selector
// local jumps to the active block's code, and branch terminators set the
// selector and continue the loop. Allocas carve frames off a module
// stack-pointer global. Strings live in the data segment and travel as a
// packed i64 (pointer in the high half, length in the low half). print and
// strcat are host imports under the "fir" module.
package wasm

import (
	"fmt"
	"strconv"

	"compiler/internal/diagnostics"
	"compiler/internal/ir"
	"compiler/internal/target"
)

const (
	dataBase  = 1024  // first byte of the string table
	stackBase = 65536 // initial stack pointer
	memPages  = 2
)

// import indexes, fixed by declaration order
const (
	impPrintI64 = iota
	impPrintF64
	impPrintBool
	impPrintStr
	impStrcat
	numImports
)

// Generator emits a wasm module for one platform.
type Generator struct {
	platform target.Platform
}

// New returns a generator for the platform.
func New(tp target.Platform) *Generator {
	return &Generator{platform: tp}
}

func (g *Generator) Generate(p *ir.Program) ([]byte, error) {
	em := &emitter{
		prog:        p,
		mb:          &moduleBuilder{memoryMin: memPages},
		globalIndex: map[string]uint32{},
		funcIndex:   map[string]uint32{},
		strings:     map[string]uint32{},
	}
	out, err := em.run()
	if err != nil {
		return nil, &target.BackendError{
			Target:  g.platform.Triple,
			Code:    diagnostics.ErrCodegenFailed,
			Message: err.Error(),
		}
	}
	return out, nil
}

type emitter struct {
	prog *ir.Program
	mb   *moduleBuilder

	spGlobal    uint32
	globalIndex map[string]uint32
	funcIndex   map[string]uint32

	strings   map[string]uint32 // content -> data offset
	strOrder  []string
	strCursor uint32
}

func (em *emitter) run() ([]byte, error) {
	em.declareImports()
	em.declareGlobals()

	// function index space must be complete before bodies are emitted so
	// calls in any order resolve
	ids := em.prog.FunctionIDs(true)
	for i, id := range ids {
		fn := em.prog.Functions[id]
		em.funcIndex[fn.Name] = uint32(numImports + i)
	}

	for _, id := range ids {
		fn := em.prog.Functions[id]
		if err := em.emitFunction(fn); err != nil {
			return nil, fmt.Errorf("function %q: %w", fn.Name, err)
		}
		em.mb.addExport(fn.Name, exportKindFunc, em.funcIndex[fn.Name])
	}
	em.mb.addExport("memory", exportKindMemory, 0)

	em.flushStrings()
	return em.mb.emit(), nil
}

func (em *emitter) declareImports() {
	tI64 := em.mb.addType([]valType{valI64}, nil)
	tF64 := em.mb.addType([]valType{valF64}, nil)
	tI32 := em.mb.addType([]valType{valI32}, nil)
	tCat := em.mb.addType([]valType{valI64, valI64}, []valType{valI64})

	em.mb.addImport("fir", "print_i64", tI64)
	em.mb.addImport("fir", "print_f64", tF64)
	em.mb.addImport("fir", "print_bool", tI32)
	em.mb.addImport("fir", "print_str", tI64)
	em.mb.addImport("fir", "strcat", tCat)
}

func (em *emitter) declareGlobals() {
	em.spGlobal = em.mb.addGlobal(valI32, true, append([]byte{opI32Const}, sleb32(stackBase)...))
	for _, name := range em.prog.GlobalNames(true) {
		g := em.prog.Globals[name]
		vt := wasmType(g.Type)
		var init []byte
		switch vt {
		case valI64:
			init = append([]byte{opI64Const}, sleb64(0)...)
		case valF64:
			init = append([]byte{opF64Const}, encodeF64(0)...)
		default:
			init = append([]byte{opI32Const}, sleb32(0)...)
		}
		em.globalIndex[name] = em.mb.addGlobal(vt, true, init)
	}
}

// intern places a string in the data segment once and returns its packed
// i64 handle.
func (em *emitter) intern(s string) int64 {
	off, ok := em.strings[s]
	if !ok {
		off = dataBase + em.strCursor
		em.strings[s] = off
		em.strOrder = append(em.strOrder, s)
		em.strCursor += uint32(len(s))
	}
	return int64(off)<<32 | int64(uint32(len(s)))
}

func (em *emitter) flushStrings() {
	var data []byte
	for _, s := range em.strOrder {
		data = append(data, s...)
	}
	em.mb.addData(dataBase, data)
}

// funcEmitter carries per-function emission state.
type funcEmitter struct {
	*emitter
	fn *ir.Function

	blockIDs  []ir.BlockID
	blockSlot map[ir.BlockID]int // sorted position, the br_table value

	localOf   map[ir.InstrID]uint32
	instrType map[ir.InstrID]ir.Type
	frameOff  map[ir.InstrID]int32
	frameSize int32
	fpLocal   uint32
	selLocal  uint32

	body []byte
}

func (em *emitter) emitFunction(fn *ir.Function) error {
	fe := &funcEmitter{
		emitter:   em,
		fn:        fn,
		blockSlot: map[ir.BlockID]int{},
		localOf:   map[ir.InstrID]uint32{},
		instrType: map[ir.InstrID]ir.Type{},
		frameOff:  map[ir.InstrID]int32{},
	}
	fe.blockIDs = fn.BlockIDs(true)
	for i, bid := range fe.blockIDs {
		fe.blockSlot[bid] = i
	}

	params := make([]valType, len(fn.Params))
	for i, p := range fn.Params {
		params[i] = wasmType(p.Type)
	}
	var results []valType
	if rt := wasmType(fn.Return); rt != 0 {
		results = []valType{rt}
	}
	typeIdx := em.mb.addType(params, results)

	locals, err := fe.assignLocals(uint32(len(params)))
	if err != nil {
		return err
	}
	if err := fe.emitBody(); err != nil {
		return err
	}
	em.mb.addFunction(typeIdx, locals, fe.body)
	return nil
}

// assignLocals gives every value-producing instruction a local and every
// alloca a frame offset. The fp and selector locals come last.
func (fe *funcEmitter) assignLocals(base uint32) ([]valType, error) {
	var locals []valType
	next := base
	for _, bid := range fe.blockIDs {
		for _, in := range fe.fn.Blocks[bid].Instrs {
			fe.instrType[in.ID] = in.Type
			if in.Op == ir.OpAlloca {
				size, err := constInt(in.Operands[0])
				if err != nil {
					return nil, fmt.Errorf("alloca %%t%d: %w", in.ID, err)
				}
				fe.frameOff[in.ID] = fe.frameSize
				fe.frameSize += int32(size)
			}
			if vt := wasmType(in.Type); vt != 0 {
				fe.localOf[in.ID] = next
				locals = append(locals, vt)
				next++
			}
		}
	}
	fe.fpLocal = next
	locals = append(locals, valI32)
	fe.selLocal = next + 1
	locals = append(locals, valI32)
	return locals, nil
}

func (fe *funcEmitter) emitBody() error {
	if fe.frameSize > 0 {
		// fp = sp; sp += frame
		fe.op(opGlobalGet)
		fe.raw(uleb(fe.spGlobal))
		fe.op(opLocalSet)
		fe.raw(uleb(fe.fpLocal))
		fe.op(opGlobalGet)
		fe.raw(uleb(fe.spGlobal))
		fe.op(opI32Const)
		fe.raw(sleb32(fe.frameSize))
		fe.op(opI32Add)
		fe.op(opGlobalSet)
		fe.raw(uleb(fe.spGlobal))
	}

	if len(fe.blockIDs) == 1 {
		blk := fe.fn.Blocks[fe.blockIDs[0]]
		if err := fe.emitBlockCode(blk, 0); err != nil {
			return err
		}
		return nil
	}

	n := len(fe.blockIDs)
	// sel = entry slot
	fe.op(opI32Const)
	fe.raw(sleb32(int32(fe.blockSlot[fe.fn.Entry])))
	fe.op(opLocalSet)
	fe.raw(uleb(fe.selLocal))

	fe.op(opLoop)
	fe.op(blockTypeVoid)
	for i := 0; i < n; i++ {
		fe.op(opBlock)
		fe.op(blockTypeVoid)
	}
	fe.op(opLocalGet)
	fe.raw(uleb(fe.selLocal))
	fe.op(opBrTable)
	fe.raw(uleb(uint32(n)))
	for i := 0; i < n; i++ {
		fe.raw(uleb(uint32(i)))
	}
	fe.raw(uleb(0)) // default, unreachable by construction

	for i, bid := range fe.blockIDs {
		fe.op(opEnd)
		loopDepth := uint32(n - 1 - i)
		if err := fe.emitBlockCode(fe.fn.Blocks[bid], loopDepth); err != nil {
			return err
		}
	}
	fe.op(opEnd) // loop
	fe.op(opUnreachable)
	return nil
}

// emitBlockCode emits one block's instructions and terminator. loopDepth
// is the br depth that re-enters the dispatch loop from this position.
func (fe *funcEmitter) emitBlockCode(blk *ir.Block, loopDepth uint32) error {
	for _, in := range blk.Instrs {
		if err := fe.emitInstr(in); err != nil {
			return fmt.Errorf("%%t%d (%s): %w", in.ID, in.Op, err)
		}
	}
	return fe.emitTerm(blk.Term, loopDepth)
}

func (fe *funcEmitter) emitTerm(term ir.Terminator, loopDepth uint32) error {
	switch t := term.(type) {
	case *ir.Return:
		fe.restoreStack()
		if t.Value != nil {
			if err := fe.emitValue(*t.Value); err != nil {
				return err
			}
			fe.coerce(fe.valueType(*t.Value), fe.fn.Return)
		}
		fe.op(opReturn)
		return nil
	case *ir.Br:
		fe.op(opI32Const)
		fe.raw(sleb32(int32(fe.blockSlot[t.Target])))
		fe.op(opLocalSet)
		fe.raw(uleb(fe.selLocal))
		fe.op(opBr)
		fe.raw(uleb(loopDepth))
		return nil
	case *ir.CondBr:
		if err := fe.emitValue(t.Cond); err != nil {
			return err
		}
		fe.op(opIf)
		fe.op(blockTypeVoid)
		fe.op(opI32Const)
		fe.raw(sleb32(int32(fe.blockSlot[t.Then])))
		fe.op(opLocalSet)
		fe.raw(uleb(fe.selLocal))
		fe.op(opElse)
		fe.op(opI32Const)
		fe.raw(sleb32(int32(fe.blockSlot[t.Else])))
		fe.op(opLocalSet)
		fe.raw(uleb(fe.selLocal))
		fe.op(opEnd)
		fe.op(opBr)
		fe.raw(uleb(loopDepth))
		return nil
	case *ir.Unreachable:
		fe.op(opUnreachable)
		return nil
	default:
		return fmt.Errorf("unknown terminator %T", term)
	}
}

// restoreStack releases this function's frame before returning.
func (fe *funcEmitter) restoreStack() {
	if fe.frameSize == 0 {
		return
	}
	fe.op(opLocalGet)
	fe.raw(uleb(fe.fpLocal))
	fe.op(opGlobalSet)
	fe.raw(uleb(fe.spGlobal))
}

func (fe *funcEmitter) emitInstr(in *ir.Instruction) error {
	switch {
	case in.Op.IsBinaryArith():
		return fe.emitArith(in)
	case in.Op.IsComparison():
		return fe.emitCompare(in)
	}

	switch in.Op {
	case ir.OpAnd, ir.OpOr:
		for _, v := range in.Operands {
			if err := fe.emitValue(v); err != nil {
				return err
			}
		}
		if in.Op == ir.OpAnd {
			fe.op(opI32And)
		} else {
			fe.op(opI32Or)
		}
		fe.setResult(in)
		return nil
	case ir.OpNot:
		if err := fe.emitValue(in.Operands[0]); err != nil {
			return err
		}
		fe.op(opI32Eqz)
		fe.setResult(in)
		return nil
	case ir.OpNeg:
		if wasmType(in.Type) == valF64 {
			if err := fe.emitValue(in.Operands[0]); err != nil {
				return err
			}
			fe.op(opF64Neg)
		} else {
			fe.op(opI64Const)
			fe.raw(sleb64(0))
			if err := fe.emitValue(in.Operands[0]); err != nil {
				return err
			}
			fe.op(opI64Sub)
		}
		fe.setResult(in)
		return nil
	case ir.OpAlloca:
		fe.op(opLocalGet)
		fe.raw(uleb(fe.fpLocal))
		fe.op(opI32Const)
		fe.raw(sleb32(fe.frameOff[in.ID]))
		fe.op(opI32Add)
		fe.setResult(in)
		return nil
	case ir.OpLoad:
		return fe.emitLoad(in)
	case ir.OpStore:
		return fe.emitStore(in)
	case ir.OpCall:
		callee, _ := fe.prog.FunctionByName(in.Target)
		for i, v := range in.Operands {
			if err := fe.emitValue(v); err != nil {
				return err
			}
			if callee != nil && i < len(callee.Params) {
				fe.coerce(fe.valueType(v), callee.Params[i].Type)
			}
		}
		idx, ok := fe.funcIndex[in.Target]
		if !ok {
			return fmt.Errorf("call targets unknown function %q", in.Target)
		}
		fe.op(opCall)
		fe.raw(uleb(idx))
		if wasmType(in.Type) != 0 {
			fe.setResult(in)
		}
		return nil
	case ir.OpPrint:
		return fe.emitPrint(in)
	case ir.OpStrConcat:
		for _, v := range in.Operands {
			if err := fe.emitValue(v); err != nil {
				return err
			}
		}
		fe.op(opCall)
		fe.raw(uleb(impStrcat))
		fe.setResult(in)
		return nil
	case ir.OpCast:
		if err := fe.emitValue(in.Operands[0]); err != nil {
			return err
		}
		fe.coerce(fe.valueType(in.Operands[0]), in.Type)
		fe.setResult(in)
		return nil
	default:
		return fmt.Errorf("unsupported opcode %s", in.Op)
	}
}

func (fe *funcEmitter) emitArith(in *ir.Instruction) error {
	if _, isPtr := in.Type.(ir.Pointer); isPtr {
		// address arithmetic runs in i32
		for _, v := range in.Operands {
			if err := fe.emitAddr(v); err != nil {
				return err
			}
		}
		fe.op(opI32Add)
		fe.setResult(in)
		return nil
	}
	for _, v := range in.Operands {
		if err := fe.emitValue(v); err != nil {
			return err
		}
	}
	op, err := arithOpcode(in.Op, wasmType(in.Type))
	if err != nil {
		return err
	}
	fe.op(op)
	fe.setResult(in)
	return nil
}

func (fe *funcEmitter) emitCompare(in *ir.Instruction) error {
	operand := wasmType(fe.valueType(in.Operands[0]))
	for _, v := range in.Operands {
		if err := fe.emitValue(v); err != nil {
			return err
		}
	}
	op, err := compareOpcode(in.Op, operand)
	if err != nil {
		return err
	}
	fe.op(op)
	fe.setResult(in)
	return nil
}

func (fe *funcEmitter) emitLoad(in *ir.Instruction) error {
	addr := in.Operands[0]
	if addr.Kind == ir.ValGlobal {
		fe.op(opGlobalGet)
		fe.raw(uleb(fe.globalIndex[addr.Global]))
		fe.coerce(fe.prog.Globals[addr.Global].Type, in.Type)
		fe.setResult(in)
		return nil
	}
	if err := fe.emitAddr(addr); err != nil {
		return err
	}
	offset, err := constInt(in.Operands[1])
	if err != nil {
		return fmt.Errorf("load offset: %w", err)
	}
	fe.op(loadOpcode(wasmType(in.Type)))
	fe.raw(uleb(0)) // align
	fe.raw(uleb(uint32(offset)))
	fe.setResult(in)
	return nil
}

func (fe *funcEmitter) emitStore(in *ir.Instruction) error {
	addr, value := in.Operands[0], in.Operands[2]
	if addr.Kind == ir.ValGlobal {
		if err := fe.emitValue(value); err != nil {
			return err
		}
		fe.coerce(fe.valueType(value), fe.prog.Globals[addr.Global].Type)
		fe.op(opGlobalSet)
		fe.raw(uleb(fe.globalIndex[addr.Global]))
		return nil
	}
	if err := fe.emitAddr(addr); err != nil {
		return err
	}
	if err := fe.emitValue(value); err != nil {
		return err
	}
	offset, err := constInt(in.Operands[1])
	if err != nil {
		return fmt.Errorf("store offset: %w", err)
	}
	fe.op(storeOpcode(wasmType(fe.valueType(value))))
	fe.raw(uleb(0))
	fe.raw(uleb(uint32(offset)))
	return nil
}

func (fe *funcEmitter) emitPrint(in *ir.Instruction) error {
	v := in.Operands[0]
	if err := fe.emitValue(v); err != nil {
		return err
	}
	var imp uint32
	switch t := fe.valueType(v); {
	case t == ir.F64:
		imp = impPrintF64
	case t == ir.Bool:
		imp = impPrintBool
	case t == ir.Str:
		imp = impPrintStr
	default:
		if wasmType(t) == valI32 {
			fe.op(opI64ExtendI32U)
		}
		imp = impPrintI64
	}
	fe.op(opCall)
	fe.raw(uleb(imp))
	return nil
}

// emitAddr pushes a value coerced to an i32 address.
func (fe *funcEmitter) emitAddr(v ir.Value) error {
	if err := fe.emitValue(v); err != nil {
		return err
	}
	if wasmType(fe.valueType(v)) == valI64 {
		fe.op(opI32WrapI64)
	}
	return nil
}

func (fe *funcEmitter) emitValue(v ir.Value) error {
	switch v.Kind {
	case ir.ValConst:
		return fe.emitConst(v.Const)
	case ir.ValParam:
		fe.op(opLocalGet)
		fe.raw(uleb(uint32(v.Param)))
		return nil
	case ir.ValInstr:
		idx, ok := fe.localOf[v.Instr]
		if !ok {
			return fmt.Errorf("value %%t%d has no local", v.Instr)
		}
		fe.op(opLocalGet)
		fe.raw(uleb(idx))
		return nil
	case ir.ValGlobal:
		idx, ok := fe.globalIndex[v.Global]
		if !ok {
			return fmt.Errorf("unknown global @%s", v.Global)
		}
		fe.op(opGlobalGet)
		fe.raw(uleb(idx))
		return nil
	default:
		return fmt.Errorf("invalid value kind %d", v.Kind)
	}
}

func (fe *funcEmitter) emitConst(c ir.Constant) error {
	switch c.Type {
	case ir.I64:
		n, err := strconv.ParseInt(c.Text, 10, 64)
		if err != nil {
			return fmt.Errorf("bad i64 constant %q: %w", c.Text, err)
		}
		fe.op(opI64Const)
		fe.raw(sleb64(n))
	case ir.F64:
		f, err := strconv.ParseFloat(c.Text, 64)
		if err != nil {
			return fmt.Errorf("bad f64 constant %q: %w", c.Text, err)
		}
		fe.op(opF64Const)
		fe.raw(encodeF64(f))
	case ir.Bool:
		fe.op(opI32Const)
		if c.Text == "true" {
			fe.raw(sleb32(1))
		} else {
			fe.raw(sleb32(0))
		}
	case ir.Str:
		fe.op(opI64Const)
		fe.raw(sleb64(fe.intern(c.Text)))
	default:
		return fmt.Errorf("constant of unsupported type %v", c.Type)
	}
	return nil
}

// valueType resolves the IR type a value carries.
func (fe *funcEmitter) valueType(v ir.Value) ir.Type {
	switch v.Kind {
	case ir.ValConst:
		return v.Const.Type
	case ir.ValParam:
		for _, p := range fe.fn.Params {
			if p.ID == v.Param {
				return p.Type
			}
		}
		return ir.I64
	case ir.ValInstr:
		return fe.instrType[v.Instr]
	case ir.ValGlobal:
		return fe.prog.Globals[v.Global].Type
	default:
		return ir.I64
	}
}

// coerce converts the value on the stack from one IR type's wasm
// representation to another's.
func (fe *funcEmitter) coerce(from, to ir.Type) {
	f, t := wasmType(from), wasmType(to)
	if t == 0 || f == t {
		return
	}
	switch {
	case f == valI64 && t == valI32:
		fe.op(opI32WrapI64)
	case f == valI32 && t == valI64:
		fe.op(opI64ExtendI32U)
	case f == valI64 && t == valF64:
		fe.op(opF64ConvertI64)
	case f == valF64 && t == valI64:
		fe.op(opI64TruncF64S)
	case f == valI32 && t == valF64:
		fe.op(opI64ExtendI32U)
		fe.op(opF64ConvertI64)
	case f == valF64 && t == valI32:
		fe.op(opI64TruncF64S)
		fe.op(opI32WrapI64)
	}
}

func (fe *funcEmitter) setResult(in *ir.Instruction) {
	fe.op(opLocalSet)
	fe.raw(uleb(fe.localOf[in.ID]))
}

func (fe *funcEmitter) op(b byte)     { fe.body = append(fe.body, b) }
func (fe *funcEmitter) raw(bs []byte) { fe.body = append(fe.body, bs...) }

// wasmType maps an IR type to its wasm value type; 0 means no value.
func wasmType(t ir.Type) valType {
	switch tt := t.(type) {
	case ir.Primitive:
		switch tt {
		case ir.I64:
			return valI64
		case ir.F64:
			return valF64
		case ir.Bool:
			return valI32
		case ir.Str:
			return valI64
		case ir.I32:
			return valI32
		case ir.Void:
			return 0
		}
	case ir.Pointer:
		return valI32
	case ir.FuncType:
		return valI32
	}
	return 0
}

func constInt(v ir.Value) (int64, error) {
	if v.Kind != ir.ValConst {
		return 0, fmt.Errorf("expected inline constant, got %s", v)
	}
	return strconv.ParseInt(v.Const.Text, 10, 64)
}
