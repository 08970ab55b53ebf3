package crosstarget

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"compiler/internal/codegen/native"
	"compiler/internal/codegen/wasm"
	"compiler/internal/ir"
	"compiler/internal/target"
)

var errFailed = errors.New("generator failed")

func simpleProgram() *ir.Program {
	b := ir.NewBuilder(ir.Metadata{SourceFile: "main.fir"})
	fn := b.CreateFunction("main", nil, ir.Void)
	b.AddInstr(fn, fn.Blocks[fn.Entry], ir.OpPrint, ir.Void, ir.ConstInt(7))
	_ = b.SetEntryPoint("main")
	return b.Build()
}

func testRegistry() *target.Registry {
	reg := target.NewRegistry()
	reg.Register(wasm.Platform, func(tp target.Platform) target.CodeGenerator {
		return wasm.New(tp)
	})
	reg.Register(native.LinuxAMD64, func(tp target.Platform) target.CodeGenerator {
		return native.New(tp)
	})
	return reg
}

func TestValidateAllTargetsPass(t *testing.T) {
	// generous tolerance: wall-clock spread is noise in a test run
	v := New(testRegistry()).WithTolerance(1e9)
	report, err := v.Validate(simpleProgram())
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if len(report.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(report.Results))
	}
	if !report.SemanticOK {
		t.Fatalf("semantic issues: %v", report.SemanticIssues)
	}
	if !report.OK() {
		t.Fatal("report not OK")
	}

	// canonical order: sorted by triple
	if report.Results[0].Platform.Triple > report.Results[1].Platform.Triple {
		t.Fatal("results not in canonical order")
	}
	for _, res := range report.Results {
		if len(res.Hash) != 64 {
			t.Fatalf("hash for %s is not sha-256 hex: %q", res.Platform.Triple, res.Hash)
		}
		if res.Size == 0 {
			t.Fatalf("empty artifact for %s", res.Platform.Triple)
		}
	}
}

func TestDeterminismAcrossDifferingBackends(t *testing.T) {
	// wasm and native artifacts can never be byte-identical, so a
	// deterministic run over both must report the hash mismatch.
	v := New(testRegistry()).WithDeterminism(true)
	report, err := v.Validate(simpleProgram())
	if err != nil {
		t.Fatal(err)
	}
	if report.DeterministicOK {
		t.Fatal("differing artifacts passed the hash collapse check")
	}
	if len(report.DeterminismDiff) != 1 {
		t.Fatalf("expected exactly one mismatch entry, got %v", report.DeterminismDiff)
	}
}

func TestDeterminismCollapsesForIdenticalBackends(t *testing.T) {
	// the two wasm targets share a code generator, so their artifacts
	// collapse to one hash
	reg := target.NewRegistry()
	factory := func(tp target.Platform) target.CodeGenerator { return wasm.New(tp) }
	reg.Register(wasm.Platform, factory)
	reg.Register(wasm.WASIPlatform, factory)

	report, err := New(reg).WithDeterminism(true).Validate(simpleProgram())
	if err != nil {
		t.Fatal(err)
	}
	if !report.DeterministicOK {
		t.Fatalf("identical artifacts reported as diverging: %v", report.DeterminismDiff)
	}
}

func TestDeterminismCheckIsOptIn(t *testing.T) {
	report, err := New(testRegistry()).Validate(simpleProgram())
	if err != nil {
		t.Fatal(err)
	}
	if !report.DeterministicOK || len(report.DeterminismDiff) != 0 {
		t.Fatal("determinism analysis ran without being requested")
	}
}

func TestHashSpread(t *testing.T) {
	mismatch := HashSpread(map[string]string{
		"wasm32-unknown-unknown":   "abc123",
		"x86_64-unknown-linux-gnu": "def456",
	})
	if len(mismatch) != 1 {
		t.Fatalf("expected exactly one entry, got %v", mismatch)
	}
	want := "targets produced 2 distinct artifact hashes: " +
		"wasm32-unknown-unknown=abc123, x86_64-unknown-linux-gnu=def456"
	if mismatch[0] != want {
		t.Fatalf("entry = %q, want %q", mismatch[0], want)
	}

	same := HashSpread(map[string]string{
		"wasm32-unknown-unknown": "abc123",
		"wasm32-wasi":            "abc123",
	})
	if same != nil {
		t.Fatalf("collapsed hashes produced entries: %v", same)
	}
	if HashSpread(nil) != nil {
		t.Fatal("empty hash set produced entries")
	}
}

func TestGuaranteesPerTarget(t *testing.T) {
	v := New(testRegistry()).WithDeterminism(true)
	report, err := v.Validate(simpleProgram())
	if err != nil {
		t.Fatal(err)
	}

	wantTags := func(triple, specific string) {
		cs := report.Guarantees[triple]
		if len(cs) != 4 {
			t.Fatalf("%s: expected 4 claims, got %d", triple, len(cs))
		}
		tags := map[string]bool{}
		for _, c := range cs {
			tags[c.Tag] = true
			if !c.Holds {
				t.Fatalf("%s: claim %s not validated on a successful target", triple, c.Tag)
			}
		}
		for _, tag := range []string{"semantic-consistency", "memory-safety", "determinism-when-requested", specific} {
			if !tags[tag] {
				t.Fatalf("%s: missing claim %s (have %v)", triple, tag, tags)
			}
		}
	}
	wantTags(wasm.Platform.Triple, "platform-optimization")
	wantTags(native.LinuxAMD64.Triple, "abi-compatibility")
}

type brokenGen struct{}

func (brokenGen) Generate(p *ir.Program) ([]byte, error) {
	return []byte("not wasm"), nil
}

func TestStructuralCheckCatchesBadArtifact(t *testing.T) {
	reg := target.NewRegistry()
	reg.Register(wasm.Platform, func(tp target.Platform) target.CodeGenerator {
		return brokenGen{}
	})

	report, err := New(reg).Validate(simpleProgram())
	if err != nil {
		t.Fatal(err)
	}
	if report.SemanticOK {
		t.Fatal("malformed artifact passed semantic consistency")
	}
	if len(report.SemanticIssues) == 0 {
		t.Fatal("no semantic issues recorded")
	}
	for _, c := range report.Guarantees[wasm.Platform.Triple] {
		if c.Holds {
			t.Fatalf("claim %s validated on a failing target", c.Tag)
		}
	}
}

func TestPerformanceVariations(t *testing.T) {
	v := New(testRegistry())

	if got := v.performanceVariations([]Result{{Duration: 5, Size: 10}}); got != nil {
		t.Fatalf("single sample should pass vacuously, got %v", got)
	}

	// both metrics inside the default 10% tolerance
	got := v.performanceVariations([]Result{
		{Duration: 100, Size: 100},
		{Duration: 105, Size: 104},
	})
	if got != nil {
		t.Fatalf("spreads within tolerance produced variations: %v", got)
	}

	// equal compile times, wildly different sizes: the size metric alone
	// must fail the check
	got = v.performanceVariations([]Result{
		{Duration: time.Millisecond, Size: 100},
		{Duration: time.Millisecond, Size: 100000},
	})
	if len(got) != 1 {
		t.Fatalf("expected exactly one variation, got %v", got)
	}
	if !strings.Contains(got[0], "artifact-size") {
		t.Fatalf("variation does not name the metric: %q", got[0])
	}

	// the converse: equal sizes, diverging compile times
	got = v.performanceVariations([]Result{
		{Duration: 100, Size: 512},
		{Duration: 300, Size: 512},
	})
	if len(got) != 1 || !strings.Contains(got[0], "compile-time") {
		t.Fatalf("expected one compile-time variation, got %v", got)
	}

	// both diverge: one entry per metric
	got = v.performanceVariations([]Result{
		{Duration: 100, Size: 100},
		{Duration: 300, Size: 100000},
	})
	if len(got) != 2 {
		t.Fatalf("expected two variations, got %v", got)
	}

	// failed targets contribute no samples
	got = v.performanceVariations([]Result{
		{Duration: 100, Size: 100},
		{Duration: 300, Size: 100000, Err: errFailed},
	})
	if got != nil {
		t.Fatalf("failed target skewed the metrics: %v", got)
	}
}

// paddedGen inflates a working generator's artifact without breaking its
// structure.
type paddedGen struct {
	inner target.CodeGenerator
	pad   int
}

func (g paddedGen) Generate(p *ir.Program) ([]byte, error) {
	out, err := g.inner.Generate(p)
	if err != nil {
		return nil, err
	}
	return append(out, bytes.Repeat([]byte{'\n'}, g.pad)...), nil
}

func TestArtifactSizeDivergenceFailsPerformance(t *testing.T) {
	reg := target.NewRegistry()
	reg.Register(wasm.Platform, func(tp target.Platform) target.CodeGenerator {
		return wasm.New(tp)
	})
	reg.Register(native.LinuxAMD64, func(tp target.Platform) target.CodeGenerator {
		return paddedGen{inner: native.New(tp), pad: 1 << 20}
	})

	report, err := New(reg).WithTolerance(DefaultTolerance).Validate(simpleProgram())
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !report.SemanticOK {
		t.Fatalf("semantic issues: %v", report.SemanticIssues)
	}
	if report.PerformanceOK {
		t.Fatal("a megabyte of size divergence passed the performance check")
	}
	found := false
	for _, v := range report.Variations {
		if strings.Contains(v, "artifact-size") {
			found = true
		}
	}
	if !found {
		t.Fatalf("no artifact-size variation recorded: %v", report.Variations)
	}
}
