package shader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
)

// ErrCompilation is wrapped by Diagnostics.Err when at least one diagnostic is an error.
var ErrCompilation = errors.New("shader compilation failed")

// Severity classifies a compilation message.
type Severity int

const (
	// SeverityInfo marks an informational message that never blocks pipeline construction.
	SeverityInfo Severity = iota

	// SeverityWarning marks a suspicious construct that does not block pipeline construction.
	SeverityWarning

	// SeverityError marks a message that makes the shader unusable.
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	}
	return "Severity(" + strconv.Itoa(int(s)) + ")"
}

func (s Severity) level() slog.Level {
	switch s {
	case SeverityWarning:
		return slog.LevelWarn
	case SeverityError:
		return slog.LevelError
	}
	return slog.LevelInfo
}

// Diagnostic is a single message produced while compiling a shader.
// Line and Column are 1-based; zero means the message applies to the whole module.
type Diagnostic struct {
	Line     int
	Column   int
	Severity Severity
	Message  string
}

// String formats the diagnostic as "line:column - message".
func (d Diagnostic) String() string {
	return fmt.Sprintf("%d:%d - %s", d.Line, d.Column, d.Message)
}

// Diagnostics is the ordered list of messages from one compilation.
type Diagnostics []Diagnostic

// OK reports whether no diagnostic has error severity. Warnings and infos never fail a compile.
func (ds Diagnostics) OK() bool {
	for _, d := range ds {
		if d.Severity == SeverityError {
			return false
		}
	}
	return true
}

// Errors returns only the error severity diagnostics, in their original order.
func (ds Diagnostics) Errors() Diagnostics {
	var out Diagnostics
	for _, d := range ds {
		if d.Severity == SeverityError {
			out = append(out, d)
		}
	}
	return out
}

// Err returns nil when the diagnostics are OK, otherwise an error wrapping ErrCompilation
// that names the first error diagnostic.
func (ds Diagnostics) Err() error {
	errs := ds.Errors()
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return fmt.Errorf("%w: %s", ErrCompilation, errs[0])
	}
	return fmt.Errorf("%w: %s (and %d more)", ErrCompilation, errs[0], len(errs)-1)
}

// Log writes every diagnostic to the logger in order, under a single header line.
// When any diagnostic is an error a final failure line follows. Nothing is written for an empty list.
//
// Parameters:
//   - logger: the destination logger
func (ds Diagnostics) Log(logger *slog.Logger) {
	if len(ds) == 0 || logger == nil {
		return
	}
	ctx := context.Background()
	logger.Info("shader compilation log:")
	for _, d := range ds {
		logger.Log(ctx, d.Severity.level(), d.String(),
			"line", d.Line,
			"column", d.Column,
			"severity", d.Severity.String(),
		)
	}
	if !ds.OK() {
		logger.Error("shader failed to compile")
	}
}

var (
	// positionRegex captures "line:column" pairs as printed by WGSL front ends.
	positionRegex = regexp.MustCompile(`(\d+):(\d+)`)

	// lineRegex captures "line N" with an optional "column M".
	lineRegex = regexp.MustCompile(`(?i)line\s+(\d+)(?:\D+column\s+(\d+))?`)
)

// diagnosticFromError converts a compiler error into an error Diagnostic, recovering the source
// position from the message text when one is present.
func diagnosticFromError(err error) Diagnostic {
	msg := err.Error()
	d := Diagnostic{Severity: SeverityError, Message: msg}
	if m := lineRegex.FindStringSubmatch(msg); m != nil {
		d.Line, _ = strconv.Atoi(m[1])
		if m[2] != "" {
			d.Column, _ = strconv.Atoi(m[2])
		}
		return d
	}
	if m := positionRegex.FindStringSubmatch(msg); m != nil {
		d.Line, _ = strconv.Atoi(m[1])
		d.Column, _ = strconv.Atoi(m[2])
	}
	return d
}
