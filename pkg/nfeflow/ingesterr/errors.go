// Package ingesterr defines the error taxonomy of the ingestion pipeline.
// Each pipeline stage fails with exactly one of these types, carrying a
// single human-readable reason; the facade surfaces that reason verbatim.
package ingesterr

import "fmt"

// StructuralError reports that the raw text is not recognizably an NFe
// document. It is raised by the pre-parse envelope check and names the
// first missing element when one of the required markers is absent.
type StructuralError struct {
	Reason string
}

func (e *StructuralError) Error() string { return e.Reason }

// ParseError reports that the XML could not be turned into a tree
// (malformed nesting, unterminated elements, bad encoding).
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid XML: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// SchemaError reports a domain-rule violation found while validating the
// parsed tree. Validation is fail-fast: one error, one reason, never an
// aggregate.
type SchemaError struct {
	Reason string
}

func (e *SchemaError) Error() string { return e.Reason }

// ProjectionError reports a persistence failure, tagged with the projector
// step that failed. The underlying store error is preserved.
type ProjectionError struct {
	Step string
	Err  error
}

func (e *ProjectionError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *ProjectionError) Unwrap() error { return e.Err }
