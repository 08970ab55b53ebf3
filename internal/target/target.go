// Package target describes the platforms the compiler can generate code
// for and keeps the canonical registry backends register themselves in.
package target

import (
	"fmt"
	"sort"
	"sync"

	"compiler/internal/diagnostics"
	"compiler/internal/ir"
)

// CodeGenerator turns a validated program into a target artifact.
type CodeGenerator interface {
	Generate(p *ir.Program) ([]byte, error)
}

// Factory builds a generator for one platform.
type Factory func(tp Platform) CodeGenerator

// Platform identifies one code generation target.
type Platform struct {
	Triple  string // e.g. "wasm32-unknown-unknown"
	Arch    string
	OS      string
	ABI     string
	Backend string // "wasm" or "native"
}

func (p Platform) String() string { return p.Triple }

// BackendError reports a code generation failure for one target. Code is
// the diagnostic code of the failed condition.
type BackendError struct {
	Target  string
	Code    string
	Message string
}

func (e *BackendError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("backend %s [%s]: %s", e.Target, e.Code, e.Message)
	}
	return fmt.Sprintf("backend %s: %s", e.Target, e.Message)
}

// Registry maps platforms to generator factories. Iteration order is
// canonical: sorted by triple.
type Registry struct {
	mu      sync.Mutex
	entries map[string]entry
}

type entry struct {
	platform Platform
	factory  Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]entry)}
}

// Register adds or replaces the platform's generator factory.
func (r *Registry) Register(tp Platform, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[tp.Triple] = entry{platform: tp, factory: f}
}

// Platforms returns every registered platform in canonical order.
func (r *Registry) Platforms() []Platform {
	r.mu.Lock()
	defer r.mu.Unlock()
	triples := make([]string, 0, len(r.entries))
	for t := range r.entries {
		triples = append(triples, t)
	}
	sort.Strings(triples)
	out := make([]Platform, len(triples))
	for i, t := range triples {
		out[i] = r.entries[t].platform
	}
	return out
}

// Generator builds a generator for the given triple.
func (r *Registry) Generator(triple string) (CodeGenerator, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[triple]
	if !ok {
		return nil, &BackendError{
			Target:  triple,
			Code:    diagnostics.ErrTargetNotFound,
			Message: "no backend registered for this target",
		}
	}
	return e.factory(e.platform), nil
}

var defaultRegistry = NewRegistry()

// Default returns the process-wide registry backends register into.
func Default() *Registry { return defaultRegistry }
