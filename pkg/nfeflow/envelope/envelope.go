// Package envelope performs the cheap pre-parse structural check on raw
// NFe text. It is shallow string matching, not parsing: its job is to
// reject non-invoice input before the cost of building a full tree.
package envelope

import (
	"strings"

	"github.com/fiscalsoft/nfeflow/pkg/nfeflow/ingesterr"
)

// requiredMarkers are the element openings every NFe document carries,
// checked in order after the declaration and envelope checks.
var requiredMarkers = []string{
	"<NFe",
	"<infNFe",
	"<emit>",
	"<dest>",
	"<det",
	"<total>",
}

// Validate checks that raw looks like an NFe procedure document. Checks
// run in order and stop at the first failure.
func Validate(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return &ingesterr.StructuralError{Reason: "document is empty"}
	}
	if !strings.Contains(raw, "<?xml") {
		return &ingesterr.StructuralError{Reason: "document has no XML declaration"}
	}
	if !strings.Contains(raw, "<nfeProc") {
		return &ingesterr.StructuralError{Reason: "document is not an NFe procedure envelope"}
	}
	for _, marker := range requiredMarkers {
		if !strings.Contains(raw, marker) {
			return &ingesterr.StructuralError{Reason: "required element not found: " + marker}
		}
	}
	return nil
}
