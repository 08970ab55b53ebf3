package native

import (
	"bytes"
	"strings"
	"testing"

	"compiler/internal/ir"
)

func sampleProgram() *ir.Program {
	b := ir.NewBuilder(ir.Metadata{SourceFile: "main.fir"})
	_ = b.AddGlobal("counter", ir.I64, "0")

	abs := b.CreateFunction("abs", []ir.Param{{ID: 0, Name: "x", Type: ir.I64}}, ir.I64)
	entry := abs.Blocks[abs.Entry]
	neg := b.AddBlock(abs, "neg")
	pos := b.AddBlock(abs, "pos")
	cond := b.AddInstr(abs, entry, ir.OpLt, ir.Bool, ir.ParamValue(0), ir.ConstInt(0))
	b.SetTerm(entry, &ir.CondBr{Cond: cond, Then: neg.ID, Else: pos.ID})
	n := b.AddInstr(abs, neg, ir.OpNeg, ir.I64, ir.ParamValue(0))
	b.SetTerm(neg, &ir.Return{Value: &n})
	x := ir.ParamValue(0)
	b.SetTerm(pos, &ir.Return{Value: &x})

	main := b.CreateFunction("main", nil, ir.Void)
	mentry := main.Blocks[main.Entry]
	v := b.AddCall(main, mentry, "abs", ir.I64, ir.ConstInt(-5))
	b.AddInstr(main, mentry, ir.OpPrint, ir.Void, v)

	_ = b.SetEntryPoint("main")
	return b.Build()
}

func TestGenerateHasTripleAndDefines(t *testing.T) {
	out, err := New(LinuxAMD64).Generate(sampleProgram())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	text := string(out)

	if !strings.Contains(text, `target triple = "x86_64-unknown-linux-gnu"`) {
		t.Fatalf("missing target triple:\n%s", text)
	}
	for _, want := range []string{
		"define i64 @abs(i64 %p0) {",
		"define void @main() {",
		"@counter = global i64 0",
		"icmp slt i64 %p0, 0",
		"br i1 %t0, label %b1, label %b2",
		"call void @fir.print(i64 %t",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("output missing %q:\n%s", want, text)
		}
	}
}

func TestGenerateIsDeterministic(t *testing.T) {
	a, err := New(LinuxAMD64).Generate(sampleProgram())
	if err != nil {
		t.Fatal(err)
	}
	b, err := New(LinuxAMD64).Generate(sampleProgram())
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a, b) {
		t.Fatal("two identical programs produced different text")
	}
}

func TestDifferentTriplesDiffer(t *testing.T) {
	a, _ := New(LinuxAMD64).Generate(sampleProgram())
	b, _ := New(DarwinARM64).Generate(sampleProgram())
	if bytes.Equal(a, b) {
		t.Fatal("different triples produced identical artifacts")
	}
}
