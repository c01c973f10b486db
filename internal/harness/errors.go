package harness

import (
	"errors"
	"fmt"
	"strings"
)

// ErrAssertion matches every *AssertionError.
var ErrAssertion = errors.New("harness: assertion failed")

// Kind classifies an assertion failure.
type Kind string

const (
	KindStaleExpectation       Kind = "stale_expectation"
	KindNumericMismatch        Kind = "numeric_mismatch"
	KindShapeMismatch          Kind = "shape_mismatch"
	KindDTypeMismatch          Kind = "dtype_mismatch"
	KindStructureMismatch      Kind = "structure_mismatch"
	KindCoverageDrift          Kind = "coverage_drift"
	KindMissingSourceError     Kind = "missing_source_error"
	KindSourceErrorMismatch    Kind = "source_error_mismatch"
	KindTargetErrorMismatch    Kind = "target_error_mismatch"
	KindUnexpectedTargetError  Kind = "unexpected_target_error"
	KindSpecialValueMismatch   Kind = "special_value_mismatch"
	KindReconstructionMismatch Kind = "reconstruction_mismatch"
)

// maxReported bounds the offending positions kept per mismatch.
const maxReported = 10

// Mismatch is one offending element of a leaf comparison.
type Mismatch struct {
	Flat   int     `json:"flat"`
	Index  []int64 `json:"index"`
	Source float64 `json:"source"`
	Target float64 `json:"target"`
	// SourceText and TargetText hold exact renderings of 64-bit integers.
	SourceText string `json:"source_text,omitempty"`
	TargetText string `json:"target_text,omitempty"`
}

func (m Mismatch) String() string {
	if m.SourceText != "" {
		return fmt.Sprintf("%v: source=%s target=%s", m.Index, m.SourceText, m.TargetText)
	}

	return fmt.Sprintf("%v: source=%v target=%v", m.Index, m.Source, m.Target)
}

// AssertionError is a failed comparison, expectation or audit.
type AssertionError struct {
	Kind Kind
	// Mode is the target mode that produced the failure, if any.
	Mode string
	// Leaf is the output index, -1 when not leaf specific.
	Leaf       int
	Msg        string
	Mismatches []Mismatch
	// Total counts all offending elements, including unreported ones.
	Total int
	Err   error
}

func (e *AssertionError) Error() string {
	var b strings.Builder

	b.WriteString("harness: ")
	b.WriteString(string(e.Kind))

	if e.Mode != "" {
		fmt.Fprintf(&b, " [%s]", e.Mode)
	}

	if e.Leaf >= 0 {
		fmt.Fprintf(&b, " output %d", e.Leaf)
	}

	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}

	if len(e.Mismatches) > 0 {
		fmt.Fprintf(&b, " (%d offending elements", e.Total)

		if e.Total > len(e.Mismatches) {
			fmt.Fprintf(&b, ", first %d", len(e.Mismatches))
		}

		b.WriteString(")")

		for _, m := range e.Mismatches {
			b.WriteString("\n  ")
			b.WriteString(m.String())
		}
	}

	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}

	return b.String()
}

func (e *AssertionError) Is(target error) bool { return target == ErrAssertion }

func (e *AssertionError) Unwrap() error { return e.Err }

func assertf(kind Kind, format string, args ...any) *AssertionError {
	return &AssertionError{Kind: kind, Leaf: -1, Msg: fmt.Sprintf(format, args...)}
}

// ReferenceError wraps a failure of the source computation. It points at the
// reference implementation or the harness, never at the translation.
type ReferenceError struct {
	Err error
}

func (e *ReferenceError) Error() string { return "harness: reference failed: " + e.Err.Error() }

func (e *ReferenceError) Unwrap() error { return e.Err }

// IsKind reports whether err is an AssertionError of kind k.
func IsKind(err error, k Kind) bool {
	var ae *AssertionError

	return errors.As(err, &ae) && ae.Kind == k
}
