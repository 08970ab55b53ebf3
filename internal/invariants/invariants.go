// Package invariants implements the backend invariant validator: the
// checks every program must satisfy before code generation is allowed to
// see it.
package invariants

import (
	"fmt"

	"compiler/internal/diagnostics"
	"compiler/internal/ir"
)

// Violation is one failed invariant. Stage names the pipeline stage whose
// output was checked ("hir", "mir", "ir"); Code, when set, is the
// diagnostic code for the failed condition.
type Violation struct {
	Stage   string
	Code    string
	Message string
}

func (v Violation) String() string {
	if v.Code != "" {
		return fmt.Sprintf("[%s %s] %s", v.Stage, v.Code, v.Message)
	}
	return fmt.Sprintf("[%s] %s", v.Stage, v.Message)
}

// Validate runs all backend invariants against an optimized program:
// no constant-constant arithmetic on any reachable path, fully concrete
// ABI types, and fully resolved symbol references. The returned slice is
// empty when the program is fit for code generation.
func Validate(p *ir.Program) []Violation {
	var out []Violation
	out = append(out, CheckOptimized(p)...)
	out = append(out, CheckABITypes(p)...)
	out = append(out, CheckResolvedSymbols(p)...)
	return out
}

// CheckOptimized walks each function from its entry block. Any block key
// the walk never reaches is an unreachable-block violation (the optimizer
// should have pruned it), and any binary arithmetic instruction on a
// reachable path whose operands are both inline constants is a missed
// constant fold.
func CheckOptimized(p *ir.Program) []Violation {
	var out []Violation
	for _, id := range p.FunctionIDs(true) {
		fn := p.Functions[id]

		reached := map[ir.BlockID]bool{}
		for _, bid := range reachableBlocks(fn) {
			reached[bid] = true
			for _, in := range fn.Blocks[bid].Instrs {
				if !in.Op.IsBinaryArith() || len(in.Operands) != 2 {
					continue
				}
				if in.Operands[0].Kind == ir.ValConst && in.Operands[1].Kind == ir.ValConst {
					out = append(out, Violation{
						Stage: "ir",
						Code:  diagnostics.ErrMalformedIR,
						Message: fmt.Sprintf(
							"function %q: constant-constant %s at %%t%d survived optimization",
							fn.Name, in.Op, in.ID),
					})
				}
			}
		}

		for _, bid := range fn.BlockIDs(true) {
			if !reached[bid] {
				out = append(out, Violation{
					Stage:   "ir",
					Code:    diagnostics.ErrUnreachableBlock,
					Message: fmt.Sprintf("function %q: block b%d is unreachable", fn.Name, bid),
				})
			}
		}
	}
	return out
}

// CheckABITypes verifies every function signature and global is fully
// concrete: no nil types, no pointers to nothing, no half-typed function
// types.
func CheckABITypes(p *ir.Program) []Violation {
	var out []Violation
	for _, id := range p.FunctionIDs(true) {
		fn := p.Functions[id]
		for _, prm := range fn.Params {
			if prm.Type == nil || !prm.Type.Concrete() {
				out = append(out, Violation{
					Stage: "ir",
					Code:  diagnostics.ErrMalformedIR,
					Message: fmt.Sprintf(
						"function %q: parameter %q has non-concrete type %s",
						fn.Name, prm.Name, typeText(prm.Type)),
				})
			}
		}
		if fn.Return == nil || !fn.Return.Concrete() {
			out = append(out, Violation{
				Stage: "ir",
				Code:  diagnostics.ErrMalformedIR,
				Message: fmt.Sprintf(
					"function %q: return type %s is not concrete",
					fn.Name, typeText(fn.Return)),
			})
		}
	}
	for _, name := range p.GlobalNames(true) {
		g := p.Globals[name]
		if g.Type == nil || !g.Type.Concrete() {
			out = append(out, Violation{
				Stage:   "ir",
				Code:    diagnostics.ErrMalformedIR,
				Message: fmt.Sprintf("global %q has non-concrete type %s", name, typeText(g.Type)),
			})
		}
	}
	return out
}

// CheckResolvedSymbols verifies every reference resolves: call targets name
// defined functions, global operands name defined globals, instruction and
// parameter operands reference ids that exist in the enclosing function.
func CheckResolvedSymbols(p *ir.Program) []Violation {
	var out []Violation
	for _, id := range p.FunctionIDs(true) {
		fn := p.Functions[id]

		instrs := map[ir.InstrID]bool{}
		for _, bid := range fn.BlockIDs(true) {
			for _, in := range fn.Blocks[bid].Instrs {
				instrs[in.ID] = true
			}
		}
		params := map[ir.ParamID]bool{}
		for _, prm := range fn.Params {
			params[prm.ID] = true
		}

		check := func(v ir.Value, where string) {
			switch v.Kind {
			case ir.ValInstr:
				if !instrs[v.Instr] {
					out = append(out, Violation{
						Stage: "ir",
						Code:  diagnostics.ErrUnresolvedRef,
						Message: fmt.Sprintf(
							"function %q: %s references undefined value %%t%d",
							fn.Name, where, v.Instr),
					})
				}
			case ir.ValParam:
				if !params[v.Param] {
					out = append(out, Violation{
						Stage: "ir",
						Code:  diagnostics.ErrUnresolvedRef,
						Message: fmt.Sprintf(
							"function %q: %s references undefined parameter %%p%d",
							fn.Name, where, v.Param),
					})
				}
			case ir.ValGlobal:
				if _, ok := p.Globals[v.Global]; !ok {
					out = append(out, Violation{
						Stage: "ir",
						Code:  diagnostics.ErrUnresolvedRef,
						Message: fmt.Sprintf(
							"function %q: %s references undefined global @%s",
							fn.Name, where, v.Global),
					})
				}
			}
		}

		for _, bid := range fn.BlockIDs(true) {
			blk := fn.Blocks[bid]
			for _, in := range blk.Instrs {
				where := fmt.Sprintf("%%t%d", in.ID)
				for _, v := range in.Operands {
					check(v, where)
				}
				if in.Op == ir.OpCall {
					if _, ok := p.FunctionByName(in.Target); !ok {
						out = append(out, Violation{
							Stage: "ir",
							Code:  diagnostics.ErrUnresolvedRef,
							Message: fmt.Sprintf(
								"function %q: call %%t%d targets undefined function %q",
								fn.Name, in.ID, in.Target),
						})
					}
				}
			}
			switch t := blk.Term.(type) {
			case *ir.Return:
				if t.Value != nil {
					check(*t.Value, fmt.Sprintf("return in b%d", bid))
				}
			case *ir.CondBr:
				check(t.Cond, fmt.Sprintf("branch in b%d", bid))
			}
		}
	}
	return out
}

func reachableBlocks(fn *ir.Function) []ir.BlockID {
	reached := map[ir.BlockID]bool{}
	var order []ir.BlockID
	work := []ir.BlockID{fn.Entry}
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
		order = append(order, id)
		work = append(work, ir.Successors(blk.Term)...)
	}
	return order
}

func typeText(t ir.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}
