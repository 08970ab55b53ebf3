package ir

// Clone returns a deep copy of the program. Id sequences and insertion
// order are preserved, so the copy formats to the same bytes as the
// original.
func Clone(p *Program) *Program {
	out := &Program{
		Functions: make(map[FunctionID]*Function, len(p.Functions)),
		Globals:   make(map[string]Global, len(p.Globals)),
		Meta:      p.Meta,
		funcSeq:   append([]FunctionID(nil), p.funcSeq...),
		globSeq:   append([]string(nil), p.globSeq...),
	}
	if p.Entry != nil {
		id := *p.Entry
		out.Entry = &id
	}
	for name, g := range p.Globals {
		out.Globals[name] = g
	}
	for id, fn := range p.Functions {
		out.Functions[id] = cloneFunction(fn)
	}
	return out
}

func cloneFunction(fn *Function) *Function {
	out := &Function{
		ID:        fn.ID,
		Name:      fn.Name,
		Params:    append([]Param(nil), fn.Params...),
		Return:    fn.Return,
		Blocks:    make(map[BlockID]*Block, len(fn.Blocks)),
		Entry:     fn.Entry,
		blockSeq:  append([]BlockID(nil), fn.blockSeq...),
		nextInstr: fn.nextInstr,
		nextBlock: fn.nextBlock,
	}
	for id, blk := range fn.Blocks {
		out.Blocks[id] = cloneBlock(blk)
	}
	return out
}

func cloneBlock(blk *Block) *Block {
	out := &Block{
		ID:     blk.ID,
		Label:  blk.Label,
		Instrs: make([]*Instruction, len(blk.Instrs)),
		Term:   cloneTerm(blk.Term),
	}
	for i, in := range blk.Instrs {
		cp := *in
		cp.Operands = append([]Value(nil), in.Operands...)
		out.Instrs[i] = &cp
	}
	return out
}

func cloneTerm(term Terminator) Terminator {
	switch t := term.(type) {
	case *Return:
		if t.Value == nil {
			return &Return{}
		}
		v := *t.Value
		return &Return{Value: &v}
	case *Br:
		return &Br{Target: t.Target}
	case *CondBr:
		return &CondBr{Cond: t.Cond, Then: t.Then, Else: t.Else}
	case *Unreachable:
		return &Unreachable{}
	default:
		return nil
	}
}
