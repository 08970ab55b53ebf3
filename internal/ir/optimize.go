package ir

import "strconv"

// Optimize returns an optimized deep copy of the program. The input is
// left untouched so earlier pipeline stages keep their snapshots.
//
// Two passes run to a fixpoint: constant folding of two-constant
// arithmetic and comparisons, then pruning of blocks unreachable from the
// function entry. Division or modulo by a zero constant folds to zero
// rather than trapping, matching the runtime behavior of the backends.
func Optimize(p *Program) *Program {
	out := Clone(p)
	for _, id := range out.FunctionIDs(false) {
		fn := out.Functions[id]
		for foldConstants(fn) {
		}
		pruneUnreachable(fn)
	}
	return out
}

// foldConstants folds every instruction whose operands are all inline
// constants, rewrites its uses to the folded constant, and deletes it.
// Reports whether anything changed.
func foldConstants(fn *Function) bool {
	changed := false
	for _, bid := range fn.BlockIDs(false) {
		blk := fn.Blocks[bid]
		kept := blk.Instrs[:0]
		for _, in := range blk.Instrs {
			folded, ok := foldInstr(in)
			if !ok {
				kept = append(kept, in)
				continue
			}
			replaceUses(fn, in.ID, folded)
			changed = true
		}
		blk.Instrs = kept
	}
	return changed
}

func foldInstr(in *Instruction) (Value, bool) {
	if len(in.Operands) != 2 {
		return Value{}, false
	}
	x, y := in.Operands[0], in.Operands[1]
	if x.Kind != ValConst || y.Kind != ValConst {
		return Value{}, false
	}

	if in.Op.IsBinaryArith() {
		if x.Const.Type == I64 && y.Const.Type == I64 {
			a, errA := strconv.ParseInt(x.Const.Text, 10, 64)
			b, errB := strconv.ParseInt(y.Const.Text, 10, 64)
			if errA != nil || errB != nil {
				return Value{}, false
			}
			return ConstInt(foldInt(in.Op, a, b)), true
		}
		if x.Const.Type == F64 && y.Const.Type == F64 {
			a, errA := strconv.ParseFloat(x.Const.Text, 64)
			b, errB := strconv.ParseFloat(y.Const.Text, 64)
			if errA != nil || errB != nil {
				return Value{}, false
			}
			v := foldFloat(in.Op, a, b)
			return ConstFloat(strconv.FormatFloat(v, 'g', -1, 64)), true
		}
		return Value{}, false
	}

	if in.Op.IsComparison() && x.Const.Type == I64 && y.Const.Type == I64 {
		a, errA := strconv.ParseInt(x.Const.Text, 10, 64)
		b, errB := strconv.ParseInt(y.Const.Text, 10, 64)
		if errA != nil || errB != nil {
			return Value{}, false
		}
		return ConstBool(foldCompare(in.Op, a, b)), true
	}
	return Value{}, false
}

func foldInt(op Opcode, a, b int64) int64 {
	switch op {
	case OpAdd:
		return a + b
	case OpSub:
		return a - b
	case OpMul:
		return a * b
	case OpDiv:
		if b == 0 {
			return 0
		}
		return a / b
	case OpMod:
		if b == 0 {
			return 0
		}
		return a % b
	}
	return 0
}

func foldFloat(op Opcode, a, b float64) float64 {
	switch op {
	case OpAdd:
		return a + b
	case OpSub:
		return a - b
	case OpMul:
		return a * b
	case OpDiv:
		if b == 0 {
			return 0
		}
		return a / b
	case OpMod:
		return 0
	}
	return 0
}

func foldCompare(op Opcode, a, b int64) bool {
	switch op {
	case OpEq:
		return a == b
	case OpNe:
		return a != b
	case OpLt:
		return a < b
	case OpLe:
		return a <= b
	case OpGt:
		return a > b
	case OpGe:
		return a >= b
	}
	return false
}

// replaceUses rewrites every operand and terminator reference to the
// result of instruction id with the replacement value.
func replaceUses(fn *Function, id InstrID, repl Value) {
	for _, bid := range fn.BlockIDs(false) {
		blk := fn.Blocks[bid]
		for _, in := range blk.Instrs {
			for i, v := range in.Operands {
				if v.Kind == ValInstr && v.Instr == id {
					in.Operands[i] = repl
				}
			}
		}
		switch t := blk.Term.(type) {
		case *Return:
			if t.Value != nil && t.Value.Kind == ValInstr && t.Value.Instr == id {
				v := repl
				t.Value = &v
			}
		case *CondBr:
			if t.Cond.Kind == ValInstr && t.Cond.Instr == id {
				t.Cond = repl
			}
		}
	}
}

// pruneUnreachable deletes blocks not reachable from the function entry.
func pruneUnreachable(fn *Function) {
	reached := map[BlockID]bool{}
	work := []BlockID{fn.Entry}
	for len(work) > 0 {
		id := work[len(work)-1]
		work = work[:len(work)-1]
		if reached[id] {
			continue
		}
		blk, ok := fn.Blocks[id]
		if !ok {
			continue
		}
		reached[id] = true
		work = append(work, Successors(blk.Term)...)
	}

	kept := fn.blockSeq[:0]
	for _, id := range fn.blockSeq {
		if reached[id] {
			kept = append(kept, id)
			continue
		}
		delete(fn.Blocks, id)
	}
	fn.blockSeq = kept
}
