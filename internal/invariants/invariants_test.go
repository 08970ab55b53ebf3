package invariants

import (
	"strings"
	"testing"

	"compiler/internal/diagnostics"
	"compiler/internal/ir"
)

func cleanProgram() (*ir.Builder, *ir.Function) {
	b := ir.NewBuilder(ir.Metadata{SourceFile: "main.fir"})
	fn := b.CreateFunction("main", nil, ir.Void)
	return b, fn
}

func TestCleanProgramPasses(t *testing.T) {
	b := ir.NewBuilder(ir.Metadata{SourceFile: "main.fir"})
	fn := b.CreateFunction("double", []ir.Param{{ID: 0, Name: "x", Type: ir.I64}}, ir.I64)
	entry := fn.Blocks[fn.Entry]
	v := b.AddInstr(fn, entry, ir.OpAdd, ir.I64, ir.ParamValue(0), ir.ParamValue(0))
	b.SetTerm(entry, &ir.Return{Value: &v})

	if got := Validate(b.Build()); len(got) != 0 {
		t.Fatalf("expected no violations, got %v", got)
	}
}

func TestConstantArithmeticIsFlagged(t *testing.T) {
	b, fn := cleanProgram()
	entry := fn.Blocks[fn.Entry]
	b.AddInstr(fn, entry, ir.OpMul, ir.I64, ir.ConstInt(6), ir.ConstInt(7))

	got := CheckOptimized(b.Build())
	if len(got) != 1 {
		t.Fatalf("expected 1 violation, got %d: %v", len(got), got)
	}
	if !strings.Contains(got[0].Message, `function "main"`) ||
		!strings.Contains(got[0].Message, "constant-constant mul") {
		t.Fatalf("message does not name function and op: %s", got[0].Message)
	}
	if got[0].Stage != "ir" {
		t.Fatalf("stage = %q", got[0].Stage)
	}
	if got[0].Code != diagnostics.ErrMalformedIR {
		t.Fatalf("code = %q, want %q", got[0].Code, diagnostics.ErrMalformedIR)
	}
}

func TestOrphanBlockIsFlagged(t *testing.T) {
	b, fn := cleanProgram()
	orphan := b.AddBlock(fn, "orphan")
	b.AddInstr(fn, orphan, ir.OpAdd, ir.I64, ir.ConstInt(2), ir.ConstInt(2))
	b.SetTerm(orphan, &ir.Return{})

	got := CheckOptimized(b.Build())
	if len(got) != 1 {
		t.Fatalf("expected exactly the unreachable-block violation, got %v", got)
	}
	// the orphan is reported once as unreachable; its instructions are not
	// walked for missed folds on top of that
	if !strings.Contains(got[0].Message, `function "main"`) ||
		!strings.Contains(got[0].Message, "block b1 is unreachable") {
		t.Fatalf("message must name the function and block: %s", got[0].Message)
	}
	if got[0].Code != diagnostics.ErrUnreachableBlock {
		t.Fatalf("code = %q, want %q", got[0].Code, diagnostics.ErrUnreachableBlock)
	}
}

func TestCheckOptimizedIsIdempotent(t *testing.T) {
	b := ir.NewBuilder(ir.Metadata{SourceFile: "main.fir"})
	fn := b.CreateFunction("id", []ir.Param{{ID: 0, Name: "x", Type: ir.I64}}, ir.I64)
	x := ir.ParamValue(0)
	b.SetTerm(fn.Blocks[fn.Entry], &ir.Return{Value: &x})
	prog := b.Build()

	before := ir.Format(prog, true)
	for i := 0; i < 2; i++ {
		if got := CheckOptimized(prog); len(got) != 0 {
			t.Fatalf("run %d: %v", i, got)
		}
	}
	if ir.Format(prog, true) != before {
		t.Fatal("check mutated the program")
	}
}

func TestNonConcreteABITypes(t *testing.T) {
	tests := []struct {
		name  string
		build func(b *ir.Builder)
		want  string
	}{
		{
			name: "nil param type",
			build: func(b *ir.Builder) {
				b.CreateFunction("f", []ir.Param{{ID: 0, Name: "x"}}, ir.Void)
			},
			want: `parameter "x" has non-concrete type`,
		},
		{
			name: "pointer to nothing",
			build: func(b *ir.Builder) {
				b.CreateFunction("f", []ir.Param{{ID: 0, Name: "p", Type: ir.Pointer{}}}, ir.Void)
			},
			want: `parameter "p" has non-concrete type ptr<?>`,
		},
		{
			name: "nil return type",
			build: func(b *ir.Builder) {
				b.CreateFunction("f", nil, nil)
			},
			want: "return type <nil> is not concrete",
		},
		{
			name: "incomplete func-typed param",
			build: func(b *ir.Builder) {
				typ := ir.FuncType{Params: []ir.Type{nil}, Return: ir.Void}
				b.CreateFunction("f", []ir.Param{{ID: 0, Name: "cb", Type: typ}}, ir.Void)
			},
			want: `parameter "cb" has non-concrete type`,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			b := ir.NewBuilder(ir.Metadata{})
			tc.build(b)
			got := CheckABITypes(b.Build())
			if len(got) == 0 {
				t.Fatal("expected a violation")
			}
			if !strings.Contains(got[0].Message, tc.want) {
				t.Fatalf("message %q does not contain %q", got[0].Message, tc.want)
			}
			if !strings.Contains(got[0].Message, `function "f"`) {
				t.Fatalf("message must name the function: %s", got[0].Message)
			}
			if got[0].Code != diagnostics.ErrMalformedIR {
				t.Fatalf("code = %q, want %q", got[0].Code, diagnostics.ErrMalformedIR)
			}
		})
	}
}

func TestUnresolvedSymbols(t *testing.T) {
	tests := []struct {
		name  string
		build func(b *ir.Builder, fn *ir.Function)
		want  string
	}{
		{
			name: "undefined value operand",
			build: func(b *ir.Builder, fn *ir.Function) {
				entry := fn.Blocks[fn.Entry]
				b.AddInstr(fn, entry, ir.OpNot, ir.Bool, ir.InstrValue(77))
			},
			want: "references undefined value %t77",
		},
		{
			name: "undefined parameter",
			build: func(b *ir.Builder, fn *ir.Function) {
				entry := fn.Blocks[fn.Entry]
				b.AddInstr(fn, entry, ir.OpNeg, ir.I64, ir.ParamValue(5))
			},
			want: "references undefined parameter %p5",
		},
		{
			name: "undefined global",
			build: func(b *ir.Builder, fn *ir.Function) {
				entry := fn.Blocks[fn.Entry]
				b.AddInstr(fn, entry, ir.OpLoad, ir.I64, ir.GlobalValue("missing"), ir.ConstInt(0))
			},
			want: "references undefined global @missing",
		},
		{
			name: "undefined call target",
			build: func(b *ir.Builder, fn *ir.Function) {
				entry := fn.Blocks[fn.Entry]
				b.AddCall(fn, entry, "helper", ir.I64)
			},
			want: `targets undefined function "helper"`,
		},
		{
			name: "undefined value in return",
			build: func(b *ir.Builder, fn *ir.Function) {
				v := ir.InstrValue(9)
				b.SetTerm(fn.Blocks[fn.Entry], &ir.Return{Value: &v})
			},
			want: "return in b0",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			b, fn := cleanProgram()
			tc.build(b, fn)
			got := CheckResolvedSymbols(b.Build())
			if len(got) == 0 {
				t.Fatal("expected a violation")
			}
			if !strings.Contains(got[0].Message, tc.want) {
				t.Fatalf("message %q does not contain %q", got[0].Message, tc.want)
			}
			if got[0].Code != diagnostics.ErrUnresolvedRef {
				t.Fatalf("code = %q, want %q", got[0].Code, diagnostics.ErrUnresolvedRef)
			}
		})
	}
}

func TestValidateAggregatesAllChecks(t *testing.T) {
	b := ir.NewBuilder(ir.Metadata{})
	fn := b.CreateFunction("f", []ir.Param{{ID: 0, Name: "x"}}, ir.Void)
	entry := fn.Blocks[fn.Entry]
	b.AddInstr(fn, entry, ir.OpAdd, ir.I64, ir.ConstInt(1), ir.ConstInt(2))
	b.AddCall(fn, entry, "ghost", ir.Void)

	got := Validate(b.Build())
	if len(got) < 3 {
		t.Fatalf("expected violations from all three checks, got %v", got)
	}
}
