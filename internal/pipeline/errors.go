// Package pipeline holds the shared error model for the reconciliation pipeline.
package pipeline

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies pipeline failures so callers can handle them without
// subsystem-specific error trees.
type Kind string

const (
	// KindScan covers malformed inbox filenames and paths escaping the repo root.
	KindScan Kind = "scan"
	// KindNoFiles means the inbox contained no candidate files at all.
	KindNoFiles Kind = "no_files"
	// KindMissingReports means required (source, report_type, year) keys are absent.
	KindMissingReports Kind = "missing_reports"
	// KindValidation covers pre-ingestion file checks (size, encoding, headers).
	KindValidation Kind = "validation"
	// KindAdapter covers source export parsing failures.
	KindAdapter Kind = "adapter"
	// KindMapping covers mapping table and rule file failures.
	KindMapping Kind = "mapping"
	// KindReconcile covers reconciliation and analytics input failures.
	KindReconcile Kind = "reconcile"
)

// Error is the single tagged error type used across the pipeline. Every
// failure is fail-fast: no component catches one of these and continues.
type Error struct {
	Err       error
	Kind      Kind
	Msg       string
	Path      string
	Missing   []string
	Available []string
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Msg)
	if e.Path != "" {
		fmt.Fprintf(&b, " (%s)", e.Path)
	}
	if len(e.Missing) > 0 {
		fmt.Fprintf(&b, ": missing [%s]", strings.Join(e.Missing, ", "))
	}
	if len(e.Available) > 0 {
		fmt.Fprintf(&b, "; available: %s", strings.Join(e.Available, ", "))
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Errorf builds a tagged error with a formatted message.
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap tags an underlying error without losing it from the chain.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// IsKind reports whether any error in err's chain carries the given kind.
func IsKind(err error, kind Kind) bool {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind == kind
	}
	return false
}
