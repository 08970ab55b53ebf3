package diagnostics

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var (
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	infoStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	hintStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	gutterStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	noteStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

// Emitter renders diagnostics to a writer in a rustc-like layout.
type Emitter struct {
	writer io.Writer
	color  bool
}

// NewEmitter creates an emitter for w, with color enabled only when w is a
// terminal.
func NewEmitter(w io.Writer) *Emitter {
	color := false
	if f, ok := w.(*os.File); ok {
		color = term.IsTerminal(int(f.Fd()))
	}
	return newEmitter(w, color)
}

func newEmitter(w io.Writer, color bool) *Emitter {
	return &Emitter{writer: w, color: color}
}

func (e *Emitter) styled(style lipgloss.Style, s string) string {
	if !e.color {
		return s
	}
	return style.Render(s)
}

func (e *Emitter) severityStyle(s Severity) lipgloss.Style {
	switch s {
	case Error:
		return errStyle
	case Warning:
		return warnStyle
	case Info:
		return infoStyle
	default:
		return hintStyle
	}
}

// Emit renders a single diagnostic, pulling source snippets from the bag.
func (e *Emitter) Emit(bag *Bag, d *Diagnostic) {
	header := d.Severity.String()
	if d.Code != "" {
		header = fmt.Sprintf("%s[%s]", header, d.Code)
	}
	fmt.Fprintf(e.writer, "%s: %s\n", e.styled(e.severityStyle(d.Severity), header), d.Message)

	for _, label := range d.Labels {
		e.emitLabel(bag, label)
	}

	for _, note := range d.Notes {
		fmt.Fprintf(e.writer, "  %s %s\n", e.styled(noteStyle, "note:"), note.Message)
	}
	if d.Help != "" {
		fmt.Fprintf(e.writer, "  %s %s\n", e.styled(noteStyle, "help:"), d.Help)
	}
	fmt.Fprintln(e.writer)
}

func (e *Emitter) emitLabel(bag *Bag, label Label) {
	loc := label.Location
	if loc == nil || loc.Start == nil {
		return
	}

	file := "<unknown>"
	if loc.Filename != nil {
		file = *loc.Filename
	}
	fmt.Fprintf(e.writer, "  %s %s:%d:%d\n", e.styled(gutterStyle, "-->"), file, loc.Start.Line, loc.Start.Column)

	line, ok := bag.sourceLine(file, loc.Start.Line)
	if !ok {
		return
	}

	gutter := fmt.Sprintf("%4d | ", loc.Start.Line)
	fmt.Fprintf(e.writer, "%s%s\n", e.styled(gutterStyle, gutter), line)

	marker := "^"
	if label.Style == Secondary {
		marker = "-"
	}
	width := 1
	if loc.End != nil && loc.End.Line == loc.Start.Line && loc.End.Column > loc.Start.Column {
		width = loc.End.Column - loc.Start.Column
	}
	underline := strings.Repeat(" ", len(gutter)+loc.Start.Column-1) + strings.Repeat(marker, width)
	if label.Message != "" {
		underline += " " + label.Message
	}
	fmt.Fprintf(e.writer, "%s\n", e.styled(e.severityStyle(Error), underline))
}

// Summary prints the compilation outcome line.
func (e *Emitter) Summary(errors, warnings int) {
	if errors > 0 {
		msg := fmt.Sprintf("compilation failed with %d error(s)", errors)
		if warnings > 0 {
			msg += fmt.Sprintf(" and %d warning(s)", warnings)
		}
		fmt.Fprintln(e.writer, e.styled(errStyle, msg))
	} else if warnings > 0 {
		fmt.Fprintln(e.writer, e.styled(warnStyle, fmt.Sprintf("compilation succeeded with %d warning(s)", warnings)))
	}
}
