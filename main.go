package main

import (
	"flag"
	"fmt"
	"os"
	"sort"

	"go.uber.org/zap"

	"compiler/internal/codegen/native"
	"compiler/internal/codegen/wasm"
	"compiler/internal/compiler"
	"compiler/internal/crosstarget"
	"compiler/internal/tokens"
)

func main() {
	emit := flag.String("emit", "wasm", "Stage to emit: ast, hir, mir, ir, wasm or native")
	out := flag.String("o", "", "Output file (default: stdout for text stages, out.wasm for wasm)")
	strict := flag.Bool("strict", false, "Abort on the first stage invariant violation")
	deterministic := flag.Bool("deterministic", true, "Canonical ordering and pinned build id")
	verify := flag.Bool("verify", false, "Compile twice and check the emitted stage is byte-reproducible")
	validateTargets := flag.Bool("validate-targets", false, "Compile for every registered target and report consistency")

	debug := flag.Bool("d", false, "Enable debug output")
	showVersion := flag.Bool("v", false, "Show version")
	flag.BoolVar(debug, "debug", false, "Enable debug output")
	flag.BoolVar(showVersion, "version", false, "Show version")

	flag.Parse()

	if *showVersion {
		fmt.Printf("fir compiler version %s\n", compiler.Version)
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: fir [options] <token-dump>")
		fmt.Fprintln(os.Stderr, "\nThe input is an externally lexed token stream, one token per line:")
		fmt.Fprintln(os.Stderr, "  line:col kind lexeme")
		fmt.Fprintln(os.Stderr, "\nOptions:")
		flag.PrintDefaults()
		os.Exit(1)
	}

	if *debug {
		log, err := zap.NewDevelopment()
		if err == nil {
			compiler.SetLogger(log)
			crosstarget.SetLogger(log)
			defer log.Sync()
		}
	}

	dumpFile := args[0]
	f, err := os.Open(dumpFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cannot open %s: %v\n", dumpFile, err)
		os.Exit(1)
	}
	toks, err := tokens.ParseDump(f)
	f.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	stage, backend, binary, err := resolveEmit(*emit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	cfg := compiler.Config{
		SourceFile:       dumpFile,
		Backend:          backend,
		Debug:            *debug,
		StrictInvariants: *strict,
	}
	if *deterministic {
		cfg.Deterministic = compiler.NewBuildConfig()
	}
	c := compiler.New(cfg)

	if *validateTargets {
		report, err := c.ValidateTargets(toks)
		if err != nil {
			fail(c, err)
		}
		printReport(report)
		if !report.OK() {
			os.Exit(1)
		}
		return
	}

	if *verify {
		ok, err := c.VerifyBuildReproducibility(toks, stage)
		if err != nil {
			fail(c, err)
		}
		if !ok {
			fmt.Fprintf(os.Stderr, "stage %s is NOT reproducible\n", stage)
			os.Exit(1)
		}
		fmt.Printf("stage %s is reproducible\n", stage)
		return
	}

	artifact, err := c.StageArtifact(toks, stage)
	if err != nil {
		fail(c, err)
	}

	dest := *out
	if dest == "" && binary {
		dest = "out.wasm"
	}
	if dest == "" {
		os.Stdout.Write(artifact)
		return
	}
	if err := os.WriteFile(dest, artifact, 0644); err != nil {
		fmt.Fprintf(os.Stderr, "cannot write %s: %v\n", dest, err)
		os.Exit(1)
	}
}

// resolveEmit maps the -emit value to a pipeline stage and, for backend
// stages, a target triple. Native codegen is available when the binary is
// built with the native tag.
func resolveEmit(emit string) (stage, backend string, binary bool, err error) {
	switch emit {
	case "ast", "hir", "mir", "ir":
		return emit, wasm.Platform.Triple, false, nil
	case "wasm":
		return compiler.StageBackend, wasm.Platform.Triple, true, nil
	case "native":
		return compiler.StageBackend, native.LinuxAMD64.Triple, false, nil
	default:
		return "", "", false, fmt.Errorf("unknown -emit value %q", emit)
	}
}

func fail(c *compiler.Compiler, err error) {
	if c.Diagnostics().HasErrors() {
		c.Diagnostics().EmitAll()
	}
	fmt.Fprintf(os.Stderr, "%v\n", err)
	os.Exit(1)
}

func printReport(r *crosstarget.Report) {
	for _, res := range r.Results {
		status := "ok"
		if res.Err != nil {
			status = res.Err.Error()
		}
		fmt.Printf("%-28s %8d bytes  %s  %s\n", res.Platform.Triple, res.Size, shortHash(res.Hash), status)
	}
	fmt.Printf("semantic: %v  deterministic: %v  performance: %v\n",
		r.SemanticOK, r.DeterministicOK, r.PerformanceOK)
	for _, v := range r.Variations {
		fmt.Printf("  variation: %s\n", v)
	}
	for _, triple := range sortedTriples(r.Guarantees) {
		for _, claim := range r.Guarantees[triple] {
			mark := " "
			if claim.Holds {
				mark = "x"
			}
			fmt.Printf("  [%s] %s %s: %s\n", mark, triple, claim.Tag, claim.Detail)
		}
	}
}

func sortedTriples(m map[string][]crosstarget.Claim) []string {
	out := make([]string, 0, len(m))
	for t := range m {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
