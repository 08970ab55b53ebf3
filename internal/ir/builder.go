package ir

import "fmt"

// Builder constructs a Program incrementally. Ids are handed out in
// creation order, so two identical build sequences produce structurally
// identical programs.
type Builder struct {
	prog     *Program
	nextFunc FunctionID
}

// NewBuilder returns a builder for an empty program carrying the given
// metadata.
func NewBuilder(meta Metadata) *Builder {
	return &Builder{
		prog: &Program{
			Functions: make(map[FunctionID]*Function),
			Globals:   make(map[string]Global),
			Meta:      meta,
		},
	}
}

// CreateFunction registers a new function and allocates its entry block.
// The entry block starts with a void-return placeholder terminator so a
// freshly created function is already well formed.
func (b *Builder) CreateFunction(name string, params []Param, ret Type) *Function {
	fn := &Function{
		ID:     b.nextFunc,
		Name:   name,
		Params: params,
		Return: ret,
		Blocks: make(map[BlockID]*Block),
	}
	b.nextFunc++

	entry := b.AddBlock(fn, "entry")
	fn.Entry = entry.ID
	entry.Term = &Return{Value: nil}

	b.prog.Functions[fn.ID] = fn
	b.prog.funcSeq = append(b.prog.funcSeq, fn.ID)
	return fn
}

// AddBlock appends an empty basic block to the function.
func (b *Builder) AddBlock(fn *Function, label string) *Block {
	blk := &Block{ID: fn.nextBlock, Label: label}
	fn.nextBlock++
	fn.Blocks[blk.ID] = blk
	fn.blockSeq = append(fn.blockSeq, blk.ID)
	return blk
}

// AddInstr appends an instruction to a block and returns a value
// referencing its result.
func (b *Builder) AddInstr(fn *Function, blk *Block, op Opcode, typ Type, operands ...Value) Value {
	in := &Instruction{
		ID:       fn.nextInstr,
		Op:       op,
		Operands: operands,
		Type:     typ,
	}
	fn.nextInstr++
	blk.Instrs = append(blk.Instrs, in)
	return InstrValue(in.ID)
}

// AddCall appends a call instruction targeting the named function.
func (b *Builder) AddCall(fn *Function, blk *Block, callee string, typ Type, args ...Value) Value {
	in := &Instruction{
		ID:       fn.nextInstr,
		Op:       OpCall,
		Operands: args,
		Type:     typ,
		Target:   callee,
	}
	fn.nextInstr++
	blk.Instrs = append(blk.Instrs, in)
	return InstrValue(in.ID)
}

// SetTerm replaces the block's terminator.
func (b *Builder) SetTerm(blk *Block, term Terminator) {
	blk.Term = term
}

// AddGlobal registers a module-level value. Redefining a name is an error.
func (b *Builder) AddGlobal(name string, typ Type, init string) error {
	if _, ok := b.prog.Globals[name]; ok {
		return fmt.Errorf("global %q already defined", name)
	}
	b.prog.Globals[name] = Global{Name: name, Type: typ, Init: init}
	b.prog.globSeq = append(b.prog.globSeq, name)
	return nil
}

// SetEntryPoint marks the named function as the program entry point.
func (b *Builder) SetEntryPoint(name string) error {
	fn, ok := b.prog.FunctionByName(name)
	if !ok {
		return fmt.Errorf("entry point %q does not name a defined function", name)
	}
	id := fn.ID
	b.prog.Entry = &id
	return nil
}

// Build returns the constructed program.
func (b *Builder) Build() *Program {
	return b.prog
}
