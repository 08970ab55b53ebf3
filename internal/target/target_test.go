package target

import (
	"errors"
	"testing"

	"compiler/internal/diagnostics"
	"compiler/internal/ir"
)

type nopGen struct{ triple string }

func (g nopGen) Generate(p *ir.Program) ([]byte, error) {
	return []byte(g.triple), nil
}

func TestRegistryCanonicalOrder(t *testing.T) {
	reg := NewRegistry()
	for _, triple := range []string{"zz-last", "aa-first", "mm-middle"} {
		tp := Platform{Triple: triple, Backend: "native"}
		reg.Register(tp, func(tp Platform) CodeGenerator { return nopGen{tp.Triple} })
	}

	got := reg.Platforms()
	want := []string{"aa-first", "mm-middle", "zz-last"}
	if len(got) != len(want) {
		t.Fatalf("got %d platforms, want %d", len(got), len(want))
	}
	for i, tp := range got {
		if tp.Triple != want[i] {
			t.Fatalf("platform %d = %s, want %s", i, tp.Triple, want[i])
		}
	}
}

func TestRegistryGenerator(t *testing.T) {
	reg := NewRegistry()
	reg.Register(Platform{Triple: "aa-first"}, func(tp Platform) CodeGenerator {
		return nopGen{tp.Triple}
	})

	gen, err := reg.Generator("aa-first")
	if err != nil {
		t.Fatalf("Generator: %v", err)
	}
	out, err := gen.Generate(nil)
	if err != nil || string(out) != "aa-first" {
		t.Fatalf("generate = %q, %v", out, err)
	}

	_, err = reg.Generator("missing")
	if err == nil {
		t.Fatal("unknown triple resolved")
	}
	var berr *BackendError
	if !errors.As(err, &berr) {
		t.Fatalf("error is %T, want *BackendError", err)
	}
	if berr.Target != "missing" || berr.Code != diagnostics.ErrTargetNotFound {
		t.Fatalf("error = %+v, want target missing with code %s", berr, diagnostics.ErrTargetNotFound)
	}
}

func TestRegisterReplaces(t *testing.T) {
	reg := NewRegistry()
	tp := Platform{Triple: "aa-first"}
	reg.Register(tp, func(Platform) CodeGenerator { return nopGen{"old"} })
	reg.Register(tp, func(Platform) CodeGenerator { return nopGen{"new"} })

	if got := reg.Platforms(); len(got) != 1 {
		t.Fatalf("replacement added a platform: %v", got)
	}
	gen, _ := reg.Generator("aa-first")
	if out, _ := gen.Generate(nil); string(out) != "new" {
		t.Fatalf("stale factory survived: %q", out)
	}
}
