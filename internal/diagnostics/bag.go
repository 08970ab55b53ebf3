package diagnostics

import (
	"bytes"
	"os"
	"strings"
	"sync"
)

// Bag collects diagnostics during compilation.
type Bag struct {
	diagnostics []*Diagnostic
	mu          sync.Mutex
	errorCount  int
	warnCount   int
	sources     map[string][]string // file path -> lines, for emitting snippets
}

// NewBag creates a new diagnostic bag.
func NewBag() *Bag {
	return &Bag{
		diagnostics: make([]*Diagnostic, 0),
		sources:     make(map[string][]string),
	}
}

// AddSourceContent registers source text for a file path so the emitter can
// print snippets (the compiler never reads files itself).
func (b *Bag) AddSourceContent(filepath, content string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sources[filepath] = strings.Split(content, "\n")
}

// Add adds a diagnostic to the bag
func (b *Bag) Add(diag *Diagnostic) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.diagnostics = append(b.diagnostics, diag)

	switch diag.Severity {
	case Error:
		b.errorCount++
	case Warning:
		b.warnCount++
	}
}

// HasErrors returns true if there are any errors
func (b *Bag) HasErrors() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.errorCount > 0
}

// ErrorCount returns the number of errors
func (b *Bag) ErrorCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.errorCount
}

// WarningCount returns the number of warnings
func (b *Bag) WarningCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.warnCount
}

// Diagnostics returns a copy of all diagnostics
func (b *Bag) Diagnostics() []*Diagnostic {
	b.mu.Lock()
	defer b.mu.Unlock()
	result := make([]*Diagnostic, len(b.diagnostics))
	copy(result, b.diagnostics)
	return result
}

func (b *Bag) sourceLine(filepath string, line int) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	lines, ok := b.sources[filepath]
	if !ok || line < 1 || line > len(lines) {
		return "", false
	}
	return lines[line-1], true
}

// EmitAll writes every collected diagnostic to stderr.
func (b *Bag) EmitAll() {
	emitter := NewEmitter(os.Stderr)
	for _, diag := range b.Diagnostics() {
		emitter.Emit(b, diag)
	}
	emitter.Summary(b.ErrorCount(), b.WarningCount())
}

// EmitAllToString renders every collected diagnostic without color.
func (b *Bag) EmitAllToString() string {
	var buf bytes.Buffer
	emitter := newEmitter(&buf, false)
	for _, diag := range b.Diagnostics() {
		emitter.Emit(b, diag)
	}
	emitter.Summary(b.ErrorCount(), b.WarningCount())
	return buf.String()
}

// Clear removes all diagnostics
func (b *Bag) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.diagnostics = make([]*Diagnostic, 0)
	b.errorCount = 0
	b.warnCount = 0
}
