package compiler

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"compiler/internal/codegen/native"
	"compiler/internal/codegen/wasm"
	"compiler/internal/diagnostics"
	"compiler/internal/frontend/parser"
	"compiler/internal/ir"
	"compiler/internal/target"
	"compiler/internal/tokens"
)

// addDump is `fn add(a, b) -> i64 { return a + b; }` followed by
// `fn main() { print add(2, 3); }` in token-dump form.
const addDump = `
1:1 fn
1:4 ident add
1:7 (
1:8 ident a
1:9 ,
1:11 ident b
1:12 )
1:14 ->
1:17 ident i64
1:21 {
1:23 return
1:30 ident a
1:32 +
1:34 ident b
1:35 ;
1:37 }
2:1 fn
2:4 ident main
2:8 (
2:9 )
2:11 {
2:13 print
2:19 ident add
2:22 (
2:23 number 2
2:24 ,
2:26 number 3
2:27 )
2:28 ;
2:30 }
`

// missingReturnDump is `fn f() -> i64 { print 1; }`: semantically valid
// but failing the all-paths-return check.
const missingReturnDump = `
1:1 fn
1:4 ident f
1:5 (
1:6 )
1:8 ->
1:11 ident i64
1:15 {
1:17 print
1:23 number 1
1:24 ;
1:26 }
`

func dumpTokens(t *testing.T, dump string) []tokens.Token {
	t.Helper()
	toks, err := tokens.ParseDump(strings.NewReader(dump))
	if err != nil {
		t.Fatalf("ParseDump: %v", err)
	}
	return toks
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

func newCompiler(t *testing.T, cfg Config) *Compiler {
	t.Helper()
	if cfg.SourceFile == "" {
		cfg.SourceFile = "main.fir"
	}
	return New(cfg).WithRegistry(testRegistry())
}

func TestGenerateWasmArtifact(t *testing.T) {
	c := newCompiler(t, Config{
		Backend:       wasm.Platform.Triple,
		Deterministic: NewBuildConfig(),
	})

	artifact, err := c.Generate(dumpTokens(t, addDump))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !bytes.HasPrefix(artifact, []byte{0x00, 0x61, 0x73, 0x6d}) {
		t.Fatal("artifact is not a wasm module")
	}
}

func TestStageEntryPointsRederive(t *testing.T) {
	c := newCompiler(t, Config{Backend: wasm.Platform.Triple})
	toks := dumpTokens(t, addDump)

	prog, err := c.ParseTokens(toks)
	if err != nil {
		t.Fatalf("ParseTokens: %v", err)
	}
	if len(prog.Nodes) != 2 {
		t.Fatalf("expected 2 top-level nodes, got %d", len(prog.Nodes))
	}

	mod, err := c.BuildHIR(toks)
	if err != nil {
		t.Fatalf("BuildHIR: %v", err)
	}
	if _, ok := mod.Symbols.Functions["add"]; !ok {
		t.Fatal("add not collected")
	}

	mir, err := c.BuildMIR(toks)
	if err != nil {
		t.Fatalf("BuildMIR: %v", err)
	}
	if _, ok := mir.FunctionByName("__start"); !ok {
		t.Fatal("entry function not synthesized")
	}

	opt, err := c.BuildIR(toks)
	if err != nil {
		t.Fatalf("BuildIR: %v", err)
	}
	if opt == mir {
		t.Fatal("BuildIR returned the unoptimized program")
	}
}

func TestVerifyBuildReproducibility(t *testing.T) {
	c := newCompiler(t, Config{
		Backend:       wasm.Platform.Triple,
		Deterministic: NewBuildConfig(),
	})
	toks := dumpTokens(t, addDump)

	for _, stage := range []string{StageAST, StageHIR, StageMIR, StageIR, StageBackend} {
		ok, err := c.VerifyBuildReproducibility(toks, stage)
		if err != nil {
			t.Fatalf("stage %s: %v", stage, err)
		}
		if !ok {
			t.Fatalf("stage %s is not reproducible", stage)
		}
	}

	if _, err := c.VerifyBuildReproducibility(toks, "nonsense"); err == nil {
		t.Fatal("unknown stage accepted")
	}
}

func TestInvariantViolationCarriesContext(t *testing.T) {
	c := newCompiler(t, Config{
		Backend:       wasm.Platform.Triple,
		Deterministic: NewBuildConfig(),
	})

	_, err := c.BuildHIR(dumpTokens(t, missingReturnDump))
	if err == nil {
		t.Fatal("missing return passed the gate")
	}

	var violation *InvariantViolation
	if !errors.As(err, &violation) {
		t.Fatalf("error is %T, want *InvariantViolation", err)
	}
	if violation.Stage != StageHIR {
		t.Fatalf("stage = %q, want %q", violation.Stage, StageHIR)
	}
	if violation.SourceHash == "" || violation.BuildHash == "" {
		t.Fatalf("violation missing hashes: %+v", violation)
	}
	if !strings.Contains(violation.Message, "not all paths return") {
		t.Fatalf("unexpected message: %s", violation.Message)
	}
}

func TestStrictModeFiresAbortHook(t *testing.T) {
	c := newCompiler(t, Config{
		Backend:          wasm.Platform.Triple,
		StrictInvariants: true,
	})

	var fired []*InvariantViolation
	c.SetAbortHook(func(v *InvariantViolation) {
		fired = append(fired, v)
	})

	if _, err := c.BuildHIR(dumpTokens(t, missingReturnDump)); err == nil {
		t.Fatal("expected an error")
	}
	if len(fired) != 1 {
		t.Fatalf("abort hook fired %d times, want 1", len(fired))
	}
	if fired[0].Stage != StageHIR {
		t.Fatalf("hook saw stage %q", fired[0].Stage)
	}
}

func TestParseErrorPropagates(t *testing.T) {
	c := newCompiler(t, Config{Backend: wasm.Platform.Triple})

	_, err := c.ParseTokens(dumpTokens(t, "1:1 )"))
	if err == nil {
		t.Fatal("bad stream parsed")
	}
	var perr *parser.ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("error is %T, want *parser.ParseError", err)
	}
}

func TestUnknownBackendIsRejected(t *testing.T) {
	c := newCompiler(t, Config{Backend: "riscv64-unknown-none"})
	_, err := c.Generate(dumpTokens(t, addDump))
	if err == nil {
		t.Fatal("unregistered backend accepted")
	}
	var berr *target.BackendError
	if !errors.As(err, &berr) {
		t.Fatalf("error is %T, want *target.BackendError", err)
	}
	if berr.Code != diagnostics.ErrTargetNotFound {
		t.Fatalf("code = %q, want %q", berr.Code, diagnostics.ErrTargetNotFound)
	}
}

// driftingGen produces a different artifact on every call.
type driftingGen struct{ n int }

func (g *driftingGen) Generate(p *ir.Program) ([]byte, error) {
	g.n++
	return []byte(fmt.Sprintf("build %d", g.n)), nil
}

func TestNonReproducibleBackendIsReported(t *testing.T) {
	tp := target.Platform{Triple: "drift-test-target", Backend: "native"}
	gen := &driftingGen{}
	reg := target.NewRegistry()
	reg.Register(tp, func(target.Platform) target.CodeGenerator { return gen })

	c := New(Config{SourceFile: "main.fir", Backend: tp.Triple}).WithRegistry(reg)
	ok, err := c.VerifyBuildReproducibility(dumpTokens(t, addDump), StageBackend)
	if err != nil {
		t.Fatalf("VerifyBuildReproducibility: %v", err)
	}
	if ok {
		t.Fatal("drifting backend reported as reproducible")
	}

	found := false
	for _, d := range c.Diagnostics().Diagnostics() {
		if d.Code == diagnostics.ErrNonDeterministic {
			found = true
		}
	}
	if !found {
		t.Fatal("no diagnostic recorded for the non-deterministic build")
	}
}

func TestValidateTargets(t *testing.T) {
	c := newCompiler(t, Config{
		Backend:       wasm.Platform.Triple,
		PerfTolerance: 1e9,
	})

	report, err := c.ValidateTargets(dumpTokens(t, addDump))
	if err != nil {
		t.Fatalf("ValidateTargets: %v", err)
	}
	if !report.OK() {
		t.Fatalf("cross-target run failed: %+v", report)
	}
	if len(report.Results) != 2 {
		t.Fatalf("expected 2 targets, got %d", len(report.Results))
	}
}

func TestValidateTargetsDeterministicFlagsBackendDivergence(t *testing.T) {
	// under determinism mode the wasm and native artifacts cannot hash
	// identically, and the report must say so
	c := newCompiler(t, Config{
		Backend:       wasm.Platform.Triple,
		Deterministic: NewBuildConfig(),
	})

	report, err := c.ValidateTargets(dumpTokens(t, addDump))
	if err != nil {
		t.Fatalf("ValidateTargets: %v", err)
	}
	if !report.SemanticOK {
		t.Fatalf("semantic issues: %v", report.SemanticIssues)
	}
	if report.DeterministicOK {
		t.Fatal("differing backend artifacts passed the hash collapse check")
	}
	if len(report.DeterminismDiff) != 1 {
		t.Fatalf("expected one mismatch entry, got %v", report.DeterminismDiff)
	}
}

func TestBuildID(t *testing.T) {
	a := &BuildConfig{
		Timestamp:     100,
		SourceHash:    "aaa",
		Env:           map[string]string{"LANG": "C", "TZ": "UTC"},
		Deterministic: true,
	}
	b := &BuildConfig{
		Timestamp:     100,
		SourceHash:    "aaa",
		Env:           map[string]string{"TZ": "UTC", "LANG": "C"},
		Deterministic: true,
	}
	if a.BuildID() != b.BuildID() {
		t.Fatal("identical configurations produced different build ids")
	}

	b.SourceHash = "bbb"
	if a.BuildID() == b.BuildID() {
		t.Fatal("different sources produced the same build id")
	}
}

func TestHashTokensIsStable(t *testing.T) {
	toks := dumpTokens(t, addDump)
	if HashTokens(toks) != HashTokens(dumpTokens(t, addDump)) {
		t.Fatal("identical streams hash differently")
	}
	if HashTokens(toks) == HashTokens(dumpTokens(t, missingReturnDump)) {
		t.Fatal("different streams hash identically")
	}
}
