package ir

import (
	"strings"
	"testing"
)

func buildSample() *Program {
	b := NewBuilder(Metadata{SourceFile: "main.fir", TargetTriple: "wasm32-unknown-unknown"})

	fn := b.CreateFunction("main", nil, Void)
	entry := fn.Blocks[fn.Entry]
	sum := b.AddInstr(fn, entry, OpAdd, I64, ConstInt(2), ConstInt(3))
	b.AddInstr(fn, entry, OpPrint, Void, sum)

	_ = b.AddGlobal("greeting", Str, `"hello"`)
	_ = b.SetEntryPoint("main")
	return b.Build()
}

func TestBuilderCreatesWellFormedFunction(t *testing.T) {
	p := buildSample()

	fn, ok := p.FunctionByName("main")
	if !ok {
		t.Fatal("main not found")
	}
	entry, ok := fn.Blocks[fn.Entry]
	if !ok {
		t.Fatalf("entry block b%d missing", fn.Entry)
	}
	if entry.Term == nil {
		t.Fatal("entry block has no terminator")
	}
	if ret, ok := entry.Term.(*Return); !ok || ret.Value != nil {
		t.Fatalf("expected void-return placeholder, got %T", entry.Term)
	}
	if errs := Validate(p); len(errs) != 0 {
		t.Fatalf("validate: %v", errs)
	}
}

func TestValidateFlagsDefects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Program)
		want   string
	}{
		{
			name: "entry point names missing function",
			mutate: func(p *Program) {
				bogus := FunctionID(99)
				p.Entry = &bogus
			},
			want: "entry point id 99",
		},
		{
			name: "branch to missing block",
			mutate: func(p *Program) {
				fn, _ := p.FunctionByName("main")
				fn.Blocks[fn.Entry].Term = &Br{Target: 42}
			},
			want: "missing block b42",
		},
		{
			name: "block without terminator",
			mutate: func(p *Program) {
				fn, _ := p.FunctionByName("main")
				fn.Blocks[fn.Entry].Term = nil
			},
			want: "no terminator",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := buildSample()
			tc.mutate(p)
			errs := Validate(p)
			if len(errs) == 0 {
				t.Fatal("expected validation errors")
			}
			found := false
			for _, e := range errs {
				if strings.Contains(e.Error(), tc.want) {
					found = true
				}
			}
			if !found {
				t.Fatalf("no error mentioning %q in %v", tc.want, errs)
			}
		})
	}
}

func TestFormatIsDeterministic(t *testing.T) {
	a := Format(buildSample(), true)
	b := Format(buildSample(), true)
	if a != b {
		t.Fatal("two identical builds formatted differently")
	}
	if !strings.Contains(a, "fn @main() -> void {") {
		t.Fatalf("missing function header:\n%s", a)
	}
	if !strings.Contains(a, "global @greeting : str") {
		t.Fatalf("missing global:\n%s", a)
	}
	if !strings.Contains(a, "; entry = main") {
		t.Fatalf("missing entry comment:\n%s", a)
	}
}

func TestFormatCanonicalSortsGlobals(t *testing.T) {
	b := NewBuilder(Metadata{})
	b.CreateFunction("main", nil, Void)
	_ = b.AddGlobal("zeta", I64, "1")
	_ = b.AddGlobal("alpha", I64, "2")
	p := b.Build()

	canonical := Format(p, true)
	if strings.Index(canonical, "@alpha") > strings.Index(canonical, "@zeta") {
		t.Fatal("canonical order should sort alpha before zeta")
	}
	structural := Format(p, false)
	if strings.Index(structural, "@zeta") > strings.Index(structural, "@alpha") {
		t.Fatal("structural order should keep insertion order")
	}
}

func TestOptimizeFoldsConstantArithmetic(t *testing.T) {
	p := buildSample()
	opt := Optimize(p)

	fn, _ := opt.FunctionByName("main")
	for _, bid := range fn.BlockIDs(true) {
		for _, in := range fn.Blocks[bid].Instrs {
			if !in.Op.IsBinaryArith() {
				continue
			}
			if in.Operands[0].Kind == ValConst && in.Operands[1].Kind == ValConst {
				t.Fatalf("constant arithmetic survived: %s", formatInstr(in))
			}
		}
	}

	// The print use must now see the folded constant.
	entry := fn.Blocks[fn.Entry]
	if len(entry.Instrs) != 1 {
		t.Fatalf("expected 1 instruction after folding, got %d", len(entry.Instrs))
	}
	pr := entry.Instrs[0]
	if pr.Op != OpPrint || pr.Operands[0].Kind != ValConst || pr.Operands[0].Const.Text != "5" {
		t.Fatalf("print operand not folded to 5: %s", formatInstr(pr))
	}

	// Input program untouched.
	orig, _ := p.FunctionByName("main")
	if len(orig.Blocks[orig.Entry].Instrs) != 2 {
		t.Fatal("optimization mutated its input")
	}
}

func TestOptimizeDivModByZero(t *testing.T) {
	tests := []struct {
		op   Opcode
		want string
	}{
		{OpDiv, "0"},
		{OpMod, "0"},
	}
	for _, tc := range tests {
		t.Run(string(tc.op), func(t *testing.T) {
			b := NewBuilder(Metadata{})
			fn := b.CreateFunction("main", nil, Void)
			entry := fn.Blocks[fn.Entry]
			v := b.AddInstr(fn, entry, tc.op, I64, ConstInt(7), ConstInt(0))
			b.AddInstr(fn, entry, OpPrint, Void, v)

			opt := Optimize(b.Build())
			ofn, _ := opt.FunctionByName("main")
			pr := ofn.Blocks[ofn.Entry].Instrs[0]
			if pr.Operands[0].Const.Text != tc.want {
				t.Fatalf("folded to %q, want %q", pr.Operands[0].Const.Text, tc.want)
			}
		})
	}
}

func TestOptimizePrunesUnreachableBlocks(t *testing.T) {
	b := NewBuilder(Metadata{})
	fn := b.CreateFunction("main", nil, Void)
	exit := b.AddBlock(fn, "exit")
	exit.Term = &Return{}
	orphan := b.AddBlock(fn, "orphan")
	orphan.Term = &Return{}
	b.SetTerm(fn.Blocks[fn.Entry], &Br{Target: exit.ID})

	opt := Optimize(b.Build())
	ofn, _ := opt.FunctionByName("main")
	if _, ok := ofn.Blocks[orphan.ID]; ok {
		t.Fatal("orphan block survived")
	}
	if _, ok := ofn.Blocks[exit.ID]; !ok {
		t.Fatal("reachable block pruned")
	}
	if len(ofn.BlockIDs(false)) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(ofn.BlockIDs(false)))
	}
}

func TestCloneIsIndependent(t *testing.T) {
	p := buildSample()
	cp := Clone(p)

	if Format(p, true) != Format(cp, true) {
		t.Fatal("clone formats differently")
	}

	fn, _ := cp.FunctionByName("main")
	fn.Blocks[fn.Entry].Instrs = nil
	orig, _ := p.FunctionByName("main")
	if len(orig.Blocks[orig.Entry].Instrs) != 2 {
		t.Fatal("mutating the clone reached the original")
	}
}

func TestTypeConcreteness(t *testing.T) {
	tests := []struct {
		name string
		typ  Type
		want bool
	}{
		{"primitive", I64, true},
		{"pointer to primitive", Pointer{Elem: I64}, true},
		{"pointer to nothing", Pointer{}, false},
		{"func complete", FuncType{Params: []Type{I64, Str}, Return: Void}, true},
		{"func nil param", FuncType{Params: []Type{nil}, Return: Void}, false},
		{"func nil return", FuncType{Params: []Type{I64}}, false},
		{"nested incomplete", Pointer{Elem: Pointer{}}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.typ.Concrete(); got != tc.want {
				t.Fatalf("Concrete() = %v, want %v", got, tc.want)
			}
		})
	}
}
