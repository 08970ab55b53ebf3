// Package compiler sequences the pipeline: token stream -> AST -> HIR ->
// MIR -> optimized IR -> backend artifact. Every stage entry point
// re-derives everything upstream from the token stream, so each stage is
// independently callable and no state is cached across calls. After AST,
// HIR and MIR production the stage's invariant gate runs; a failed gate
// returns an InvariantViolation, or aborts the process under strict mode.
package compiler

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"compiler/internal/crosstarget"
	"compiler/internal/diagnostics"
	"compiler/internal/frontend/ast"
	"compiler/internal/frontend/parser"
	"compiler/internal/hir"
	"compiler/internal/invariants"
	"compiler/internal/ir"
	"compiler/internal/mirgen"
	"compiler/internal/target"
	"compiler/internal/tokens"
)

// Version of the compiler, recorded in program metadata.
const Version = "0.1.0"

// Stage names accepted by StageArtifact and VerifyBuildReproducibility.
const (
	StageAST     = "ast"
	StageHIR     = "hir"
	StageMIR     = "mir"
	StageIR      = "ir"
	StageBackend = "backend" // the configured backend's raw artifact
)

// Config selects what one Compiler instance builds and how strictly.
type Config struct {
	SourceFile       string
	Backend          string // target triple
	OptLevel         int
	Debug            bool
	StrictInvariants bool
	Deterministic    *BuildConfig // nil disables deterministic output
	PerfTolerance    float64      // percent; 0 uses the cross-target default
}

// InvariantViolation reports a failed stage gate with enough context to
// reproduce the failing build.
type InvariantViolation struct {
	Stage      string
	Message    string
	SourceHash string
	BuildHash  string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("invariant violation at stage %s: %s (source %s, build %s)",
		e.Stage, e.Message, shortHash(e.SourceHash), shortHash(e.BuildHash))
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	if h == "" {
		return "-"
	}
	return h
}

// Compiler owns one compilation configuration. Instances are not safe
// for concurrent use; every stage runs synchronously to completion.
type Compiler struct {
	cfg      Config
	registry *target.Registry
	bag      *diagnostics.Bag
	abort    func(*InvariantViolation)

	sourceHash string
}

// New returns a compiler over the default target registry.
func New(cfg Config) *Compiler {
	c := &Compiler{
		cfg:      cfg,
		registry: target.Default(),
		bag:      diagnostics.NewBag(),
	}
	c.abort = c.fatalAbort
	return c
}

// WithRegistry swaps the target registry.
func (c *Compiler) WithRegistry(reg *target.Registry) *Compiler {
	c.registry = reg
	return c
}

// SetAbortHook replaces the strict-mode abort behavior. Passing nil
// restores the default, which logs at fatal level and exits.
func (c *Compiler) SetAbortHook(fn func(*InvariantViolation)) {
	if fn == nil {
		fn = c.fatalAbort
	}
	c.abort = fn
}

// Diagnostics returns the bag stage runs report into.
func (c *Compiler) Diagnostics() *diagnostics.Bag {
	return c.bag
}

func (c *Compiler) fatalAbort(v *InvariantViolation) {
	logger.Fatal("invariant violation",
		zap.String("stage", v.Stage),
		zap.String("message", v.Message),
		zap.String("source_hash", v.SourceHash),
		zap.String("build_hash", v.BuildHash),
	)
}

// HashTokens is the canonical content hash of an input token stream.
func HashTokens(toks []tokens.Token) string {
	var sb strings.Builder
	for _, t := range toks {
		fmt.Fprintf(&sb, "%d:%d %s %s\n", t.Start.Line, t.Start.Column, t.Kind, t.Value)
	}
	sum := sha256.Sum256([]byte(sb.String()))
	return hex.EncodeToString(sum[:])
}

func (c *Compiler) prepare(toks []tokens.Token) {
	c.sourceHash = HashTokens(toks)
	if c.cfg.Deterministic != nil {
		c.cfg.Deterministic.SourceHash = c.sourceHash
	}
	c.bag.Clear()
}

func (c *Compiler) buildHash() string {
	if c.cfg.Deterministic == nil {
		return ""
	}
	return c.cfg.Deterministic.BuildID()
}

func (c *Compiler) canonical() bool {
	return c.cfg.Deterministic != nil && c.cfg.Deterministic.Deterministic
}

// gate turns stage violations into a typed error, aborting under strict
// mode.
func (c *Compiler) gate(stage string, viols []invariants.Violation) error {
	if len(viols) == 0 {
		return nil
	}
	msgs := make([]string, len(viols))
	for i, v := range viols {
		msgs[i] = v.Message
	}
	violation := &InvariantViolation{
		Stage:      stage,
		Message:    strings.Join(msgs, "; "),
		SourceHash: c.sourceHash,
		BuildHash:  c.buildHash(),
	}
	logger.Error("stage gate failed",
		zap.String("stage", stage),
		zap.Int("violations", len(viols)),
	)
	if c.cfg.StrictInvariants {
		c.abort(violation)
	}
	return violation
}

// ParseTokens builds the AST. The stream is parsed twice and the two
// structural dumps compared: the AST gate is re-parse stability.
func (c *Compiler) ParseTokens(toks []tokens.Token) (*ast.Program, error) {
	c.prepare(toks)

	prog, err := parser.Parse(toks, c.cfg.SourceFile, c.bag)
	if err != nil {
		return nil, err
	}
	again, err := parser.Parse(toks, c.cfg.SourceFile, diagnostics.NewBag())
	if err != nil {
		return nil, err
	}
	if ast.Dump(prog) != ast.Dump(again) {
		return nil, c.gate(StageAST, []invariants.Violation{{
			Stage:   StageAST,
			Message: "re-parse produced a structurally different tree",
		}})
	}

	logger.Debug("parsed", zap.String("source", c.cfg.SourceFile), zap.Int("nodes", len(prog.Nodes)))
	return prog, nil
}

// BuildHIR re-derives the AST and runs semantic analysis plus the HIR
// invariant gate.
func (c *Compiler) BuildHIR(toks []tokens.Token) (*hir.Module, error) {
	prog, err := c.ParseTokens(toks)
	if err != nil {
		return nil, err
	}
	mod, err := hir.Build(prog, c.bag)
	if err != nil {
		return nil, err
	}
	if err := c.gate(StageHIR, hir.CheckInvariants(mod)); err != nil {
		return nil, err
	}
	return mod, nil
}

// BuildMIR re-derives HIR and lowers it to the control-flow-explicit
// program, then runs the MIR invariant gate.
func (c *Compiler) BuildMIR(toks []tokens.Token) (*ir.Program, error) {
	mod, err := c.BuildHIR(toks)
	if err != nil {
		return nil, err
	}
	prog, err := mirgen.Lower(mod, ir.Metadata{
		SourceFile:   c.cfg.SourceFile,
		Version:      Version,
		TargetTriple: c.cfg.Backend,
		OptLevel:     c.cfg.OptLevel,
		Debug:        c.cfg.Debug,
	})
	if err != nil {
		return nil, err
	}
	if err := c.gate(StageMIR, mirgen.CheckInvariants(prog)); err != nil {
		return nil, err
	}
	return prog, nil
}

// BuildIR re-derives MIR and optimizes it, then runs the final backend
// invariant checks.
func (c *Compiler) BuildIR(toks []tokens.Token) (*ir.Program, error) {
	prog, err := c.BuildMIR(toks)
	if err != nil {
		return nil, err
	}
	opt := ir.Optimize(prog)
	if err := c.gate(StageIR, invariants.Validate(opt)); err != nil {
		return nil, err
	}
	return opt, nil
}

// Generate re-derives the optimized IR and runs the configured backend.
func (c *Compiler) Generate(toks []tokens.Token) ([]byte, error) {
	prog, err := c.BuildIR(toks)
	if err != nil {
		return nil, err
	}
	gen, err := c.registry.Generator(c.cfg.Backend)
	if err != nil {
		return nil, err
	}
	artifact, err := gen.Generate(prog)
	if err != nil {
		return nil, err
	}

	logger.Info("artifact generated",
		zap.String("target", c.cfg.Backend),
		zap.Int("size", len(artifact)),
		zap.String("build_hash", c.buildHash()),
	)
	return artifact, nil
}

// StageArtifact produces the canonical bytes for one stage: structural
// dump for AST, canonical text for HIR, MIR and IR, raw backend output
// for StageBackend.
func (c *Compiler) StageArtifact(toks []tokens.Token, stage string) ([]byte, error) {
	switch stage {
	case StageAST:
		prog, err := c.ParseTokens(toks)
		if err != nil {
			return nil, err
		}
		return []byte(ast.Dump(prog)), nil
	case StageHIR:
		mod, err := c.BuildHIR(toks)
		if err != nil {
			return nil, err
		}
		return []byte(hir.Format(mod)), nil
	case StageMIR:
		prog, err := c.BuildMIR(toks)
		if err != nil {
			return nil, err
		}
		return []byte(ir.Format(prog, c.canonical())), nil
	case StageIR:
		prog, err := c.BuildIR(toks)
		if err != nil {
			return nil, err
		}
		return []byte(ir.Format(prog, c.canonical())), nil
	case StageBackend:
		return c.Generate(toks)
	default:
		return nil, fmt.Errorf("unknown stage %q", stage)
	}
}

// VerifyBuildReproducibility compiles the stage twice under the held
// configuration and compares artifact hashes.
func (c *Compiler) VerifyBuildReproducibility(toks []tokens.Token, stage string) (bool, error) {
	first, err := c.StageArtifact(toks, stage)
	if err != nil {
		return false, err
	}
	second, err := c.StageArtifact(toks, stage)
	if err != nil {
		return false, err
	}

	a := sha256.Sum256(first)
	b := sha256.Sum256(second)
	ok := a == b
	if !ok {
		c.bag.Add(diagnostics.NewError(
			fmt.Sprintf("stage %s produced different artifacts across two identical builds", stage)).
			WithCode(diagnostics.ErrNonDeterministic))
	}

	logger.Info("reproducibility check",
		zap.String("stage", stage),
		zap.String("first", hex.EncodeToString(a[:])[:12]),
		zap.String("second", hex.EncodeToString(b[:])[:12]),
		zap.Bool("reproducible", ok),
	)
	return ok, nil
}

// ValidateTargets builds the optimized IR and runs it through every
// backend in the registry.
func (c *Compiler) ValidateTargets(toks []tokens.Token) (*crosstarget.Report, error) {
	prog, err := c.BuildIR(toks)
	if err != nil {
		return nil, err
	}
	v := crosstarget.New(c.registry).WithDeterminism(c.canonical())
	if c.cfg.PerfTolerance > 0 {
		v = v.WithTolerance(c.cfg.PerfTolerance)
	}
	return v.Validate(prog)
}
