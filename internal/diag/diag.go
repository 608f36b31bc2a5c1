// Package diag provides structured diagnostics for the region inference
// engine. The solver appends diagnostics to a Buffer as it validates
// obligations; rendering them is the caller's responsibility.
package diag

import (
	"fmt"
	"strings"

	"github.com/orizon-lang/regionck/internal/position"
)

// Level represents the severity level of a diagnostic.
type Level int

const (
	LevelError Level = iota
	LevelWarning
	LevelInfo
)

func (l Level) String() string {
	switch l {
	case LevelError:
		return "error"
	case LevelWarning:
		return "warning"
	case LevelInfo:
		return "info"
	default:
		return "unknown"
	}
}

// Category classifies region checking diagnostics.
type Category int

const (
	CategoryTypeTest Category = iota
	CategoryRegionBound
	CategoryHigherRankedSubtype
)

func (c Category) String() string {
	switch c {
	case CategoryTypeTest:
		return "type-test"
	case CategoryRegionBound:
		return "region-bound"
	case CategoryHigherRankedSubtype:
		return "higher-ranked-subtype"
	default:
		return "unknown"
	}
}

// Label provides additional located context for a diagnostic, such as
// "type must outlive 'a here" pointing at the blamed constraint.
type Label struct {
	Message string
	Span    position.Span
}

// Diagnostic represents a single located diagnostic message.
type Diagnostic struct {
	Level    Level
	Category Category
	Message  string
	Span     position.Span
	Labels   []Label
}

// String renders the diagnostic in a compact single-line form. The CLI
// does richer rendering; this form is used by tests and debug logs.
func (d Diagnostic) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s[%s]: %s", d.Level, d.Category, d.Message)
	if d.Span.IsValid() {
		fmt.Fprintf(&b, " at %s", d.Span)
	}
	for _, label := range d.Labels {
		fmt.Fprintf(&b, "; %s (%s)", label.Message, label.Span)
	}
	return b.String()
}

// Buffer accumulates diagnostics. It is append-only: the solver never
// consumes or reorders what it has reported.
type Buffer struct {
	diags []Diagnostic
}

// NewBuffer creates an empty diagnostic buffer.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// Append adds a diagnostic to the buffer.
func (b *Buffer) Append(d Diagnostic) {
	b.diags = append(b.diags, d)
}

// Len returns the number of buffered diagnostics.
func (b *Buffer) Len() int {
	return len(b.diags)
}

// All returns the buffered diagnostics in the order they were reported.
func (b *Buffer) All() []Diagnostic {
	return b.diags
}

// HasErrors returns true if any buffered diagnostic is an error.
func (b *Buffer) HasErrors() bool {
	for _, d := range b.diags {
		if d.Level == LevelError {
			return true
		}
	}
	return false
}
