package ir

import (
	"fmt"
	"strings"
)

// Format renders the program as deterministic text. With canonical set,
// functions, globals, and blocks are emitted in sorted id/name order;
// otherwise insertion order is used. Two structurally identical programs
// always render to identical bytes for the same flag value.
func Format(p *Program, canonical bool) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "; source = %s\n", p.Meta.SourceFile)
	fmt.Fprintf(&sb, "; target = %s\n", p.Meta.TargetTriple)
	fmt.Fprintf(&sb, "; opt = %d\n", p.Meta.OptLevel)
	if p.Entry != nil {
		if fn, ok := p.Functions[*p.Entry]; ok {
			fmt.Fprintf(&sb, "; entry = %s\n", fn.Name)
		} else {
			fmt.Fprintf(&sb, "; entry = f%d\n", *p.Entry)
		}
	}
	sb.WriteByte('\n')

	for _, name := range p.GlobalNames(canonical) {
		g := p.Globals[name]
		fmt.Fprintf(&sb, "global @%s : %s = %s\n", g.Name, typeText(g.Type), g.Init)
	}
	if len(p.Globals) > 0 {
		sb.WriteByte('\n')
	}

	for _, id := range p.FunctionIDs(canonical) {
		formatFunction(&sb, p.Functions[id], canonical)
		sb.WriteByte('\n')
	}
	return sb.String()
}

func formatFunction(sb *strings.Builder, fn *Function, canonical bool) {
	params := make([]string, len(fn.Params))
	for i, prm := range fn.Params {
		params[i] = fmt.Sprintf("%%p%d %s : %s", prm.ID, prm.Name, typeText(prm.Type))
	}
	fmt.Fprintf(sb, "fn @%s(%s) -> %s {\n", fn.Name, strings.Join(params, ", "), typeText(fn.Return))

	for _, bid := range fn.BlockIDs(canonical) {
		blk := fn.Blocks[bid]
		if blk.Label != "" {
			fmt.Fprintf(sb, "b%d: ; %s\n", blk.ID, blk.Label)
		} else {
			fmt.Fprintf(sb, "b%d:\n", blk.ID)
		}
		for _, in := range blk.Instrs {
			sb.WriteString("  ")
			sb.WriteString(formatInstr(in))
			sb.WriteByte('\n')
		}
		fmt.Fprintf(sb, "  %s\n", formatTerm(blk.Term))
	}
	sb.WriteString("}\n")
}

func formatInstr(in *Instruction) string {
	ops := make([]string, len(in.Operands))
	for i, v := range in.Operands {
		ops[i] = v.String()
	}
	switch in.Op {
	case OpStore:
		return fmt.Sprintf("store %s", strings.Join(ops, ", "))
	case OpPrint:
		return fmt.Sprintf("print %s", strings.Join(ops, ", "))
	case OpCall:
		return fmt.Sprintf("%%t%d = call @%s(%s) : %s", in.ID, in.Target, strings.Join(ops, ", "), typeText(in.Type))
	default:
		return fmt.Sprintf("%%t%d = %s %s : %s", in.ID, in.Op, strings.Join(ops, ", "), typeText(in.Type))
	}
}

func formatTerm(term Terminator) string {
	switch t := term.(type) {
	case *Return:
		if t.Value == nil {
			return "ret"
		}
		return fmt.Sprintf("ret %s", t.Value)
	case *Br:
		return fmt.Sprintf("br b%d", t.Target)
	case *CondBr:
		return fmt.Sprintf("condbr %s, b%d, b%d", t.Cond, t.Then, t.Else)
	case *Unreachable:
		return "unreachable"
	default:
		return "<no terminator>"
	}
}

func typeText(t Type) string {
	if t == nil {
		return "?"
	}
	return t.String()
}
