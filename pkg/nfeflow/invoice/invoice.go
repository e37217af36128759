// Package invoice holds the schema-checked shape of one NFe document and
// the validation that produces it from a parsed tree.
package invoice

import "time"

// Issuer is the business entity that issued the invoice.
type Issuer struct {
	TaxID string // CNPJ
	Name  string
	Email string // optional in the source document
}

// Recipient is the invoice's named recipient. TaxID is a CNPJ or a CPF,
// whichever the document carries.
type Recipient struct {
	Name  string
	TaxID string
}

// LineItem is one product entry of the invoice.
type LineItem struct {
	Description string
	Quantity    float64
	UnitPrice   float64
	Total       float64
}

// Details are the authorization fields passed through verbatim from the
// document's protocol section. Never validated or recomputed.
type Details struct {
	Number    string
	Series    string
	AccessKey string
	Protocol  string
}

// Invoice is a validated fiscal document. It is only ever constructed by
// FromTree, after every schema check has passed: Items is non-empty, the
// grand total is positive and both party identifiers are present.
type Invoice struct {
	Issuer     Issuer
	Recipient  Recipient
	Items      []LineItem
	GrandTotal float64
	IssuedAt   time.Time
	Details    Details
}
