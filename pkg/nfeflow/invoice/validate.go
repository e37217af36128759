package invoice

import (
	"fmt"
	"time"

	"github.com/fiscalsoft/nfeflow/pkg/nfeflow/ingesterr"
	"github.com/fiscalsoft/nfeflow/pkg/nfeflow/xmltree"
)

// FromTree validates a parsed NFe tree and returns the typed invoice.
// Checks run in a fixed order and stop at the first violation, so every
// rejection carries exactly one actionable reason. The order is part of
// the error-display contract: callers show the reason as-is.
func FromTree(t xmltree.Tree) (*Invoice, error) {
	inf, err := rootEnvelope(t)
	if err != nil {
		return nil, err
	}
	issuer, err := validateIssuer(inf)
	if err != nil {
		return nil, err
	}
	recipient, err := validateRecipient(inf)
	if err != nil {
		return nil, err
	}
	items, err := validateItems(inf)
	if err != nil {
		return nil, err
	}
	grandTotal, err := validateTotals(inf)
	if err != nil {
		return nil, err
	}

	return &Invoice{
		Issuer:     issuer,
		Recipient:  recipient,
		Items:      items,
		GrandTotal: grandTotal,
		IssuedAt:   issuedAt(inf),
		Details:    details(t, inf),
	}, nil
}

func rootEnvelope(t xmltree.Tree) (xmltree.Tree, error) {
	proc, ok := t.Child("nfeProc")
	if !ok {
		return nil, &ingesterr.SchemaError{Reason: "invalid or incomplete NFe structure"}
	}
	nfe, ok := proc.Child("NFe")
	if !ok {
		return nil, &ingesterr.SchemaError{Reason: "invalid or incomplete NFe structure"}
	}
	inf, ok := nfe.Child("infNFe")
	if !ok {
		return nil, &ingesterr.SchemaError{Reason: "invalid or incomplete NFe structure"}
	}
	return inf, nil
}

func validateIssuer(inf xmltree.Tree) (Issuer, error) {
	emit, ok := inf.Child("emit")
	if !ok {
		return Issuer{}, &ingesterr.SchemaError{Reason: "issuer data not found"}
	}
	taxID := emit.Text("CNPJ")
	if taxID == "" {
		return Issuer{}, &ingesterr.SchemaError{Reason: "issuer CNPJ is required"}
	}
	name := emit.Text("xNome")
	if name == "" {
		return Issuer{}, &ingesterr.SchemaError{Reason: "issuer name is required"}
	}
	return Issuer{TaxID: taxID, Name: name, Email: emit.Text("email")}, nil
}

func validateRecipient(inf xmltree.Tree) (Recipient, error) {
	dest, ok := inf.Child("dest")
	if !ok {
		return Recipient{}, &ingesterr.SchemaError{Reason: "recipient data not found"}
	}
	name := dest.Text("xNome")
	if name == "" {
		return Recipient{}, &ingesterr.SchemaError{Reason: "recipient name is required"}
	}
	taxID := dest.Text("CNPJ")
	if taxID == "" {
		taxID = dest.Text("CPF")
	}
	if taxID == "" {
		return Recipient{}, &ingesterr.SchemaError{Reason: "recipient must have a CNPJ or CPF"}
	}
	return Recipient{Name: name, TaxID: taxID}, nil
}

func validateItems(inf xmltree.Tree) ([]LineItem, error) {
	dets, ok := inf.List("det")
	if !ok {
		return nil, &ingesterr.SchemaError{Reason: "invoice has no line item list"}
	}
	if len(dets) == 0 {
		return nil, &ingesterr.SchemaError{Reason: "invoice must contain at least one line item"}
	}

	items := make([]LineItem, 0, len(dets))
	for i, det := range dets {
		item, err := validateItem(det, i+1)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func validateItem(det xmltree.Tree, pos int) (LineItem, error) {
	prod, ok := det.Child("prod")
	if !ok {
		return LineItem{}, itemError(pos, "product data not found")
	}
	desc := prod.Text("xProd")
	if desc == "" {
		return LineItem{}, itemError(pos, "description is required")
	}
	qty, ok := prod.Number("qCom")
	if !ok || qty <= 0 {
		return LineItem{}, itemError(pos, "invalid quantity")
	}
	unitPrice, ok := prod.Number("vUnCom")
	if !ok || unitPrice <= 0 {
		return LineItem{}, itemError(pos, "invalid unit price")
	}
	total, ok := prod.Number("vProd")
	if !ok || total <= 0 {
		return LineItem{}, itemError(pos, "invalid line total")
	}
	return LineItem{Description: desc, Quantity: qty, UnitPrice: unitPrice, Total: total}, nil
}

func itemError(pos int, reason string) error {
	return &ingesterr.SchemaError{Reason: fmt.Sprintf("line item %d: %s", pos, reason)}
}

func validateTotals(inf xmltree.Tree) (float64, error) {
	total, ok := inf.Child("total")
	if !ok {
		return 0, &ingesterr.SchemaError{Reason: "invoice totals not found"}
	}
	icms, ok := total.Child("ICMSTot")
	if !ok {
		return 0, &ingesterr.SchemaError{Reason: "invoice totals not found"}
	}
	grand, ok := icms.Number("vNF")
	if !ok || grand <= 0 {
		return 0, &ingesterr.SchemaError{Reason: "invalid invoice grand total"}
	}
	return grand, nil
}

// issuedAt reads ide/dhEmi leniently. The emission timestamp is not part
// of the validation contract, so an absent or unparsable value falls back
// to the ingestion time.
func issuedAt(inf xmltree.Tree) time.Time {
	ide, ok := inf.Child("ide")
	if !ok {
		return time.Now()
	}
	raw := ide.Text("dhEmi")
	if raw == "" {
		raw = ide.Text("dEmi") // NFe layout 2.0 carried a date only
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts
		}
	}
	return time.Now()
}

func details(t, inf xmltree.Tree) Details {
	var d Details
	if ide, ok := inf.Child("ide"); ok {
		d.Number = ide.Text("nNF")
		d.Series = ide.Text("serie")
	}
	if proc, ok := t.Child("nfeProc"); ok {
		if prot, ok := proc.Child("protNFe"); ok {
			if infProt, ok := prot.Child("infProt"); ok {
				d.AccessKey = infProt.Text("chNFe")
				d.Protocol = infProt.Text("nProt")
			}
		}
	}
	return d
}
