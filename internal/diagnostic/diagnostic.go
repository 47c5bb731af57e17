package diagnostic

import (
	"errors"
	"fmt"
	"strings"
)

// Location identifies a position in a source file
type Location struct {
	File   string
	Line   int
	Column int
}

// String renders the location as file:line:col
func (l Location) String() string {
	file := l.File
	if file == "" {
		file = "<input>"
	}
	return fmt.Sprintf("%s:%d:%d", file, l.Line, l.Column)
}

// Located is implemented by errors that point at a source location
type Located interface {
	error
	Location() Location
}

// Internal is implemented by errors that indicate a compiler defect rather
// than a problem with the user's program
type Internal interface {
	error
	Internal() bool
}

// Severity represents the severity level of a diagnostic message
type Severity int

const (
	Error Severity = iota
	Warning
)

// String returns the string representation of the severity level
func (s Severity) String() string {
	switch s {
	case Error:
		return "error"
	case Warning:
		return "warning"
	default:
		return "unknown"
	}
}

// Diagnostic represents a single compiler error or warning
type Diagnostic struct {
	Severity Severity
	Message  string
	Loc      Location
	Hint     string // optional suggestion
}

// Diagnostics manages a collection of diagnostic messages
type Diagnostics struct {
	items []Diagnostic
}

// New creates a new empty Diagnostics collection
func New() *Diagnostics {
	return &Diagnostics{
		items: make([]Diagnostic, 0),
	}
}

// Warningf adds a warning diagnostic with formatted message
func (d *Diagnostics) Warningf(loc Location, format string, args ...interface{}) {
	d.items = append(d.items, Diagnostic{
		Severity: Warning,
		Message:  fmt.Sprintf(format, args...),
		Loc:      loc,
	})
}

// WarningWithHint adds a warning diagnostic with an optional hint
func (d *Diagnostics) WarningWithHint(loc Location, msg, hint string) {
	d.items = append(d.items, Diagnostic{
		Severity: Warning,
		Message:  msg,
		Loc:      loc,
		Hint:     hint,
	})
}

// Add appends an already built diagnostic
func (d *Diagnostics) Add(diag Diagnostic) {
	d.items = append(d.items, diag)
}

// HasErrors returns true if there are any error-level diagnostics
func (d *Diagnostics) HasErrors() bool {
	for _, item := range d.items {
		if item.Severity == Error {
			return true
		}
	}
	return false
}

// All returns all diagnostics regardless of severity
func (d *Diagnostics) All() []Diagnostic {
	return d.items
}

// Count returns the total number of diagnostics
func (d *Diagnostics) Count() int {
	return len(d.items)
}

// WarningCount returns the number of warning-level diagnostics
func (d *Diagnostics) WarningCount() int {
	count := 0
	for _, item := range d.items {
		if item.Severity == Warning {
			count++
		}
	}
	return count
}

// FromError converts a stage error into a diagnostic. Located errors keep
// their position; internal errors are labelled as compiler defects.
func FromError(err error) Diagnostic {
	diag := Diagnostic{Severity: Error, Message: err.Error()}

	var located Located
	if errors.As(err, &located) {
		diag.Loc = located.Location()
		diag.Message = strings.TrimPrefix(diag.Message, diag.Loc.String()+": ")
	}

	var internal Internal
	if errors.As(err, &internal) && internal.Internal() {
		diag.Message = "internal compiler error: " + diag.Message
		diag.Hint = "this is a bug in the compiler, not in the program"
	}
	return diag
}

// Report builds a collection holding the diagnostic for err
func Report(err error) *Diagnostics {
	d := New()
	d.Add(FromError(err))
	return d
}

// Format returns human-readable error messages
// Output format:
//
//	error[filename:3:10]: unknown identifier "x"
//	  hint: declare it with var first
//	warning[filename:5:1]: variable "z" is never used
func (d *Diagnostics) Format(filename string) string {
	if len(d.items) == 0 {
		return ""
	}

	var builder strings.Builder
	for i, item := range d.items {
		loc := item.Loc
		if loc.File == "" {
			loc.File = filename
		}

		if loc.Line == 0 {
			// toolchain and I/O failures carry no source position
			builder.WriteString(fmt.Sprintf("%s: %s", item.Severity.String(), item.Message))
		} else {
			builder.WriteString(fmt.Sprintf("%s[%s]: %s",
				item.Severity.String(),
				loc.String(),
				item.Message,
			))
		}

		if item.Hint != "" {
			builder.WriteString(fmt.Sprintf("\n  hint: %s", item.Hint))
		}

		if i < len(d.items)-1 {
			builder.WriteString("\n")
		}
	}

	return builder.String()
}
