package wasm

import (
	"bytes"
	"context"
	"testing"

	"github.com/tetratelabs/wazero"

	"compiler/internal/ir"
)

func generate(t *testing.T, p *ir.Program) []byte {
	t.Helper()
	out, err := New(Platform).Generate(p)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	return out
}

// compile runs the artifact through a real wasm decoder so structural
// mistakes fail loudly.
func compile(t *testing.T, artifact []byte) {
	t.Helper()
	ctx := context.Background()
	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)
	if _, err := rt.CompileModule(ctx, artifact); err != nil {
		t.Fatalf("module does not validate: %v", err)
	}
}

func sampleProgram() *ir.Program {
	b := ir.NewBuilder(ir.Metadata{SourceFile: "main.fir", TargetTriple: Platform.Triple})

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
	slot := b.AddInstr(main, mentry, ir.OpAlloca, ir.Pointer{Elem: ir.I64}, ir.ConstInt(8))
	v := b.AddCall(main, mentry, "abs", ir.I64, ir.ConstInt(-5))
	b.AddInstr(main, mentry, ir.OpStore, ir.Void, slot, ir.ConstInt(0), v)
	loaded := b.AddInstr(main, mentry, ir.OpLoad, ir.I64, slot, ir.ConstInt(0))
	b.AddInstr(main, mentry, ir.OpPrint, ir.Void, loaded)
	b.AddInstr(main, mentry, ir.OpPrint, ir.Void, ir.ConstString("done"))

	_ = b.SetEntryPoint("main")
	return b.Build()
}

func TestModuleHeader(t *testing.T) {
	out := generate(t, sampleProgram())
	if !bytes.HasPrefix(out, []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}) {
		t.Fatalf("missing wasm magic/version, got % x", out[:8])
	}
}

func TestGenerateIsDeterministic(t *testing.T) {
	a := generate(t, sampleProgram())
	b := generate(t, sampleProgram())
	if !bytes.Equal(a, b) {
		t.Fatal("two identical programs produced different modules")
	}
}

func TestModuleValidates(t *testing.T) {
	compile(t, generate(t, sampleProgram()))
}

func TestSingleBlockFunctionValidates(t *testing.T) {
	b := ir.NewBuilder(ir.Metadata{})
	fn := b.CreateFunction("answer", nil, ir.I64)
	v := ir.ConstInt(42)
	b.SetTerm(fn.Blocks[fn.Entry], &ir.Return{Value: &v})
	compile(t, generate(t, b.Build()))
}

func TestLoopProgramValidates(t *testing.T) {
	// while-style loop: cond, body, exit
	b := ir.NewBuilder(ir.Metadata{})
	fn := b.CreateFunction("count", nil, ir.Void)
	entry := fn.Blocks[fn.Entry]
	cond := b.AddBlock(fn, "cond")
	body := b.AddBlock(fn, "body")
	exit := b.AddBlock(fn, "exit")

	slot := b.AddInstr(fn, entry, ir.OpAlloca, ir.Pointer{Elem: ir.I64}, ir.ConstInt(8))
	b.AddInstr(fn, entry, ir.OpStore, ir.Void, slot, ir.ConstInt(0), ir.ConstInt(0))
	b.SetTerm(entry, &ir.Br{Target: cond.ID})

	cur := b.AddInstr(fn, cond, ir.OpLoad, ir.I64, slot, ir.ConstInt(0))
	c := b.AddInstr(fn, cond, ir.OpLt, ir.Bool, cur, ir.ConstInt(10))
	b.SetTerm(cond, &ir.CondBr{Cond: c, Then: body.ID, Else: exit.ID})

	v := b.AddInstr(fn, body, ir.OpLoad, ir.I64, slot, ir.ConstInt(0))
	b.AddInstr(fn, body, ir.OpPrint, ir.Void, v)
	next := b.AddInstr(fn, body, ir.OpAdd, ir.I64, v, ir.ConstInt(1))
	b.AddInstr(fn, body, ir.OpStore, ir.Void, slot, ir.ConstInt(0), next)
	b.SetTerm(body, &ir.Br{Target: cond.ID})

	b.SetTerm(exit, &ir.Return{})
	compile(t, generate(t, b.Build()))
}

func TestGlobalsBecomeWasmGlobals(t *testing.T) {
	b := ir.NewBuilder(ir.Metadata{})
	_ = b.AddGlobal("counter", ir.I64, "0")
	fn := b.CreateFunction("bump", nil, ir.Void)
	entry := fn.Blocks[fn.Entry]
	v := b.AddInstr(fn, entry, ir.OpLoad, ir.I64, ir.GlobalValue("counter"), ir.ConstInt(0))
	next := b.AddInstr(fn, entry, ir.OpAdd, ir.I64, v, ir.ConstInt(1))
	b.AddInstr(fn, entry, ir.OpStore, ir.Void, ir.GlobalValue("counter"), ir.ConstInt(0), next)
	compile(t, generate(t, b.Build()))
}

func TestStringsLandInDataSegment(t *testing.T) {
	b := ir.NewBuilder(ir.Metadata{})
	fn := b.CreateFunction("greet", nil, ir.Void)
	entry := fn.Blocks[fn.Entry]
	cat := b.AddInstr(fn, entry, ir.OpStrConcat, ir.Str,
		ir.ConstString("hello "), ir.ConstString("world"))
	b.AddInstr(fn, entry, ir.OpPrint, ir.Void, cat)

	out := generate(t, b.Build())
	if !bytes.Contains(out, []byte("hello ")) || !bytes.Contains(out, []byte("world")) {
		t.Fatal("string constants missing from module bytes")
	}
	compile(t, out)
}

func TestExportsAndImports(t *testing.T) {
	out := generate(t, sampleProgram())
	for _, want := range []string{"abs", "main", "memory", "fir", "print_i64", "strcat"} {
		if !bytes.Contains(out, []byte(want)) {
			t.Fatalf("module bytes missing %q", want)
		}
	}
}
