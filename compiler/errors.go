package compiler

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
)

// Kind classifies a diagnostic (spec.md §7).
type Kind uint8

const (
	KindLexical Kind = iota
	KindSyntax
	KindSemantic
	KindResource
	KindStructural
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindLexical:
		return "lexical"
	case KindSyntax:
		return "syntax"
	case KindSemantic:
		return "semantic"
	case KindResource:
		return "resource"
	case KindStructural:
		return "structural"
	case KindValidation:
		return "validation"
	default:
		return "unknown"
	}
}

// Severity distinguishes errors (which set compilingError) from warnings
// (which do not), per spec.md §7.
type Severity uint8

const (
	SeverityWarning Severity = iota
	SeverityError
)

// Diagnostic is a single accumulated compiler message, naming the source
// line and the offending code (spec.md §7).
type Diagnostic struct {
	Kind     Kind
	Severity Severity
	Line     int
	Text     string
	Message  string
}

func (d Diagnostic) String() string {
	sev := "error"
	if d.Severity == SeverityWarning {
		sev = "warning"
	}
	return fmt.Sprintf("%s line %d: %s: %s", sev, d.Line, sev, d.summary())
}

func (d Diagnostic) summary() string {
	if d.Text == "" {
		return d.Message
	}
	return fmt.Sprintf("%s (in %q)", d.Message, d.Text)
}

// Diagnostics accumulates compiler diagnostics and the sticky
// compiling_error flag (spec.md §7). Unlike a Go error, it never aborts the
// pass that raises it: compilation continues opportunistically so multiple
// diagnostics can be produced before the flag is consulted at a pass
// boundary.
type Diagnostics struct {
	items   []Diagnostic
	failed  bool
}

// Errorf records an error-severity diagnostic and sets the sticky flag.
func (d *Diagnostics) Errorf(kind Kind, line int, text, format string, args ...interface{}) {
	d.items = append(d.items, Diagnostic{
		Kind: kind, Severity: SeverityError, Line: line, Text: text,
		Message: fmt.Sprintf(format, args...),
	})
	d.failed = true
}

// Warnf records a warning-severity diagnostic; it never sets the sticky
// flag (spec.md §7: "Warnings ... do not set the flag").
func (d *Diagnostics) Warnf(kind Kind, line int, text, format string, args ...interface{}) {
	d.items = append(d.items, Diagnostic{
		Kind: kind, Severity: SeverityWarning, Line: line, Text: text,
		Message: fmt.Sprintf(format, args...),
	})
}

// Failed reports the sticky compiling_error flag.
func (d *Diagnostics) Failed() bool { return d.failed }

// Items returns every diagnostic recorded so far, in emission order.
func (d *Diagnostics) Items() []Diagnostic { return d.items }

// Reset clears all accumulated diagnostics and the sticky flag, used by
// clearCompiler.
func (d *Diagnostics) Reset() {
	d.items = nil
	d.failed = false
}

// WriteTo prints every diagnostic, one per line, to w - the convention
// cmd/vbc/main.go uses for stderr output (SPEC_FULL.md §1.4).
func (d *Diagnostics) WriteTo(w io.Writer) (int64, error) {
	var n int64
	for _, item := range d.items {
		c, err := fmt.Fprintln(w, item.String())
		n += int64(c)
		if err != nil {
			return n, errors.Wrap(err, "writing diagnostics")
		}
	}
	return n, nil
}

// ErrCompilationFailed is returned by Compiler.Compile when the sticky flag
// was set at a pass boundary (spec.md §7).
var ErrCompilationFailed = errors.New("compilation failed")
