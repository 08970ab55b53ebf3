// Package native generates deterministic LLVM-flavored text for native
// targets. The output is a stable textual lowering, not input for a
// specific LLVM version: the cross-target validator compares and hashes
// it, and downstream assembly is out of scope here.
package native

import (
	"fmt"
	"strings"

	"compiler/internal/diagnostics"
	"compiler/internal/ir"
	"compiler/internal/target"
)

// Generator emits native text for one platform.
type Generator struct {
	platform target.Platform
}

// New returns a generator for the platform.
func New(tp target.Platform) *Generator {
	return &Generator{platform: tp}
}

func (g *Generator) Generate(p *ir.Program) ([]byte, error) {
	var sb strings.Builder

	fmt.Fprintf(&sb, "; ModuleID = '%s'\n", p.Meta.SourceFile)
	fmt.Fprintf(&sb, "target triple = %q\n\n", g.platform.Triple)

	for _, name := range p.GlobalNames(true) {
		gl := p.Globals[name]
		fmt.Fprintf(&sb, "@%s = global %s %s\n", gl.Name, llvmType(gl.Type), llvmZero(gl.Type))
	}
	if len(p.Globals) > 0 {
		sb.WriteByte('\n')
	}

	for _, id := range p.FunctionIDs(true) {
		if err := emitFunction(&sb, p.Functions[id]); err != nil {
			return nil, &target.BackendError{
				Target:  g.platform.Triple,
				Code:    diagnostics.ErrCodegenFailed,
				Message: err.Error(),
			}
		}
		sb.WriteByte('\n')
	}
	return []byte(sb.String()), nil
}

func emitFunction(sb *strings.Builder, fn *ir.Function) error {
	params := make([]string, len(fn.Params))
	for i, p := range fn.Params {
		params[i] = fmt.Sprintf("%s %%p%d", llvmType(p.Type), p.ID)
	}
	fmt.Fprintf(sb, "define %s @%s(%s) {\n", llvmType(fn.Return), fn.Name, strings.Join(params, ", "))

	for _, bid := range fn.BlockIDs(true) {
		blk := fn.Blocks[bid]
		fmt.Fprintf(sb, "b%d:\n", bid)
		for _, in := range blk.Instrs {
			line, err := instrLine(in)
			if err != nil {
				return fmt.Errorf("function %q: %w", fn.Name, err)
			}
			fmt.Fprintf(sb, "  %s\n", line)
		}
		fmt.Fprintf(sb, "  %s\n", termLine(fn, blk.Term))
	}
	sb.WriteString("}\n")
	return nil
}

var intArith = map[ir.Opcode]string{
	ir.OpAdd: "add",
	ir.OpSub: "sub",
	ir.OpMul: "mul",
	ir.OpDiv: "sdiv",
	ir.OpMod: "srem",
}

var floatArith = map[ir.Opcode]string{
	ir.OpAdd: "fadd",
	ir.OpSub: "fsub",
	ir.OpMul: "fmul",
	ir.OpDiv: "fdiv",
	ir.OpMod: "frem",
}

var intCmp = map[ir.Opcode]string{
	ir.OpEq: "eq",
	ir.OpNe: "ne",
	ir.OpLt: "slt",
	ir.OpLe: "sle",
	ir.OpGt: "sgt",
	ir.OpGe: "sge",
}

func instrLine(in *ir.Instruction) (string, error) {
	switch {
	case in.Op.IsBinaryArith():
		table := intArith
		if in.Type == ir.F64 {
			table = floatArith
		}
		return fmt.Sprintf("%%t%d = %s %s %s, %s",
			in.ID, table[in.Op], llvmType(in.Type), operand(in.Operands[0]), operand(in.Operands[1])), nil
	case in.Op.IsComparison():
		return fmt.Sprintf("%%t%d = icmp %s i64 %s, %s",
			in.ID, intCmp[in.Op], operand(in.Operands[0]), operand(in.Operands[1])), nil
	}

	switch in.Op {
	case ir.OpAnd:
		return fmt.Sprintf("%%t%d = and i1 %s, %s", in.ID, operand(in.Operands[0]), operand(in.Operands[1])), nil
	case ir.OpOr:
		return fmt.Sprintf("%%t%d = or i1 %s, %s", in.ID, operand(in.Operands[0]), operand(in.Operands[1])), nil
	case ir.OpNot:
		return fmt.Sprintf("%%t%d = xor i1 %s, true", in.ID, operand(in.Operands[0])), nil
	case ir.OpNeg:
		if in.Type == ir.F64 {
			return fmt.Sprintf("%%t%d = fneg double %s", in.ID, operand(in.Operands[0])), nil
		}
		return fmt.Sprintf("%%t%d = sub i64 0, %s", in.ID, operand(in.Operands[0])), nil
	case ir.OpAlloca:
		return fmt.Sprintf("%%t%d = alloca [%s x i8]", in.ID, constText(in.Operands[0])), nil
	case ir.OpLoad:
		return fmt.Sprintf("%%t%d = load %s, ptr %s, offset %s",
			in.ID, llvmType(in.Type), operand(in.Operands[0]), constText(in.Operands[1])), nil
	case ir.OpStore:
		return fmt.Sprintf("store %s %s, ptr %s, offset %s",
			llvmType(valueLLVMType(in.Operands[2])), operand(in.Operands[2]),
			operand(in.Operands[0]), constText(in.Operands[1])), nil
	case ir.OpCall:
		args := make([]string, len(in.Operands))
		for i, v := range in.Operands {
			args[i] = fmt.Sprintf("%s %s", llvmType(valueLLVMType(v)), operand(v))
		}
		if in.Type == ir.Void {
			return fmt.Sprintf("call void @%s(%s)", in.Target, strings.Join(args, ", ")), nil
		}
		return fmt.Sprintf("%%t%d = call %s @%s(%s)",
			in.ID, llvmType(in.Type), in.Target, strings.Join(args, ", ")), nil
	case ir.OpPrint:
		v := in.Operands[0]
		return fmt.Sprintf("call void @fir.print(%s %s)", llvmType(valueLLVMType(v)), operand(v)), nil
	case ir.OpStrConcat:
		return fmt.Sprintf("%%t%d = call i64 @fir.strcat(i64 %s, i64 %s)",
			in.ID, operand(in.Operands[0]), operand(in.Operands[1])), nil
	case ir.OpCast:
		return fmt.Sprintf("%%t%d = cast %s %s to %s",
			in.ID, llvmType(valueLLVMType(in.Operands[0])), operand(in.Operands[0]), llvmType(in.Type)), nil
	default:
		return "", fmt.Errorf("unsupported opcode %s", in.Op)
	}
}

func termLine(fn *ir.Function, term ir.Terminator) string {
	switch t := term.(type) {
	case *ir.Return:
		if t.Value == nil {
			return "ret void"
		}
		return fmt.Sprintf("ret %s %s", llvmType(fn.Return), operand(*t.Value))
	case *ir.Br:
		return fmt.Sprintf("br label %%b%d", t.Target)
	case *ir.CondBr:
		return fmt.Sprintf("br i1 %s, label %%b%d, label %%b%d", operand(t.Cond), t.Then, t.Else)
	case *ir.Unreachable:
		return "unreachable"
	default:
		return "; no terminator"
	}
}

func operand(v ir.Value) string {
	switch v.Kind {
	case ir.ValInstr:
		return fmt.Sprintf("%%t%d", v.Instr)
	case ir.ValParam:
		return fmt.Sprintf("%%p%d", v.Param)
	case ir.ValGlobal:
		return "@" + v.Global
	case ir.ValConst:
		if v.Const.Type == ir.Str {
			return fmt.Sprintf("str(%q)", v.Const.Text)
		}
		return v.Const.Text
	default:
		return "<invalid>"
	}
}

func constText(v ir.Value) string {
	if v.Kind == ir.ValConst {
		return v.Const.Text
	}
	return operand(v)
}

func valueLLVMType(v ir.Value) ir.Type {
	if v.Kind == ir.ValConst {
		return v.Const.Type
	}
	// operand types beyond constants are only needed for display; i64 is
	// the dominant case and the validator only requires stability
	return ir.I64
}

func llvmType(t ir.Type) string {
	switch tt := t.(type) {
	case ir.Primitive:
		switch tt {
		case ir.I64:
			return "i64"
		case ir.I32:
			return "i32"
		case ir.F64:
			return "double"
		case ir.Bool:
			return "i1"
		case ir.Str:
			return "i64"
		case ir.Void:
			return "void"
		}
	case ir.Pointer:
		return "ptr"
	case ir.FuncType:
		return "ptr"
	}
	return "i64"
}

func llvmZero(t ir.Type) string {
	if t == ir.F64 {
		return "0.0"
	}
	return "0"
}
