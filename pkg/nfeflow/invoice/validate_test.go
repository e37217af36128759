package invoice

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/fiscalsoft/nfeflow/pkg/nfeflow/ingesterr"
	"github.com/fiscalsoft/nfeflow/pkg/nfeflow/xmltree"
)

const validDoc = `<?xml version="1.0" encoding="UTF-8"?>
<nfeProc versao="4.00">
  <NFe>
    <infNFe Id="NFe35240511111111000111550010000123451000123456" versao="4.00">
      <ide>
        <nNF>12345</nNF>
        <serie>1</serie>
        <dhEmi>2024-05-10T14:30:00-03:00</dhEmi>
      </ide>
      <emit>
        <CNPJ>11.111.111/0001-11</CNPJ>
        <xNome>Acme Foods</xNome>
      </emit>
      <dest>
        <CNPJ>22.222.222/0001-22</CNPJ>
        <xNome>Client X</xNome>
      </dest>
      <det nItem="1">
        <prod>
          <xProd>Rice 1kg</xProd>
          <qCom>10</qCom>
          <vUnCom>5.00</vUnCom>
          <vProd>50.00</vProd>
        </prod>
      </det>
      <total>
        <ICMSTot>
          <vNF>50.00</vNF>
        </ICMSTot>
      </total>
    </infNFe>
  </NFe>
  <protNFe>
    <infProt>
      <chNFe>35240511111111000111550010000123451000123456</chNFe>
      <nProt>135240000000001</nProt>
    </infProt>
  </protNFe>
</nfeProc>`

func parseDoc(t *testing.T, raw string) xmltree.Tree {
	t.Helper()
	tree, err := xmltree.Parse(raw, xmltree.DefaultOptions())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return tree
}

func mutate(old, new string) string {
	return strings.Replace(validDoc, old, new, 1)
}

// rename changes an element's tag name so the document stays well-formed
// while the original name disappears.
func rename(doc, el string) string {
	return strings.NewReplacer("<"+el+">", "<"+el+"X>", "</"+el+">", "</"+el+"X>").Replace(doc)
}

func TestFromTreeValid(t *testing.T) {
	inv, err := FromTree(parseDoc(t, validDoc))
	if err != nil {
		t.Fatalf("FromTree: %v", err)
	}

	if inv.Issuer.TaxID != "11.111.111/0001-11" {
		t.Errorf("issuer tax id = %q", inv.Issuer.TaxID)
	}
	if inv.Issuer.Name != "Acme Foods" {
		t.Errorf("issuer name = %q", inv.Issuer.Name)
	}
	if inv.Recipient.Name != "Client X" {
		t.Errorf("recipient name = %q", inv.Recipient.Name)
	}
	if inv.Recipient.TaxID != "22.222.222/0001-22" {
		t.Errorf("recipient tax id = %q", inv.Recipient.TaxID)
	}
	if len(inv.Items) != 1 {
		t.Fatalf("expected 1 line item, got %d", len(inv.Items))
	}
	item := inv.Items[0]
	if item.Description != "Rice 1kg" || item.Quantity != 10 || item.UnitPrice != 5 || item.Total != 50 {
		t.Errorf("line item = %+v", item)
	}
	if inv.GrandTotal != 50 {
		t.Errorf("grand total = %v", inv.GrandTotal)
	}

	want := time.Date(2024, 5, 10, 14, 30, 0, 0, time.FixedZone("", -3*3600))
	if !inv.IssuedAt.Equal(want) {
		t.Errorf("issued at = %v, want %v", inv.IssuedAt, want)
	}

	if inv.Details.Number != "12345" || inv.Details.Series != "1" {
		t.Errorf("details = %+v", inv.Details)
	}
	if inv.Details.AccessKey != "35240511111111000111550010000123451000123456" {
		t.Errorf("access key = %q", inv.Details.AccessKey)
	}
	if inv.Details.Protocol != "135240000000001" {
		t.Errorf("protocol = %q", inv.Details.Protocol)
	}
}

func TestFromTreeRecipientCPFAccepted(t *testing.T) {
	doc := mutate("<CNPJ>22.222.222/0001-22</CNPJ>", "<CPF>123.456.789-09</CPF>")

	inv, err := FromTree(parseDoc(t, doc))
	if err != nil {
		t.Fatalf("FromTree: %v", err)
	}
	if inv.Recipient.TaxID != "123.456.789-09" {
		t.Errorf("recipient tax id = %q, want the CPF", inv.Recipient.TaxID)
	}
}

func TestFromTreeOrderedFailures(t *testing.T) {
	cases := []struct {
		name   string
		doc    string
		reason string
	}{
		{
			"missing infNFe",
			`<?xml version="1.0"?><nfeProc><NFe><other/></NFe></nfeProc>`,
			"invalid or incomplete NFe structure",
		},
		{
			"missing issuer block",
			rename(validDoc, "emit"),
			"issuer data not found",
		},
		{
			"missing recipient block",
			rename(validDoc, "dest"),
			"recipient data not found",
		},
		{
			"missing issuer CNPJ",
			mutate("<CNPJ>11.111.111/0001-11</CNPJ>", ""),
			"issuer CNPJ is required",
		},
		{
			"missing issuer name",
			mutate("<xNome>Acme Foods</xNome>", ""),
			"issuer name is required",
		},
		{
			"missing recipient name",
			mutate("<xNome>Client X</xNome>", ""),
			"recipient name is required",
		},
		{
			"missing both recipient ids",
			mutate("<CNPJ>22.222.222/0001-22</CNPJ>", ""),
			"recipient must have a CNPJ or CPF",
		},
		{
			"missing item description",
			mutate("<xProd>Rice 1kg</xProd>", ""),
			"line item 1: description is required",
		},
		{
			"zero quantity",
			mutate("<qCom>10</qCom>", "<qCom>0</qCom>"),
			"line item 1: invalid quantity",
		},
		{
			"non-numeric quantity",
			mutate("<qCom>10</qCom>", "<qCom>ten</qCom>"),
			"line item 1: invalid quantity",
		},
		{
			"negative unit price",
			mutate("<vUnCom>5.00</vUnCom>", "<vUnCom>-5.00</vUnCom>"),
			"line item 1: invalid unit price",
		},
		{
			"missing line total",
			mutate("<vProd>50.00</vProd>", ""),
			"line item 1: invalid line total",
		},
		{
			"missing totals block",
			rename(validDoc, "ICMSTot"),
			"invoice totals not found",
		},
		{
			"non-positive grand total",
			mutate("<vNF>50.00</vNF>", "<vNF>0</vNF>"),
			"invalid invoice grand total",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := FromTree(parseDoc(t, tc.doc))
			if err == nil {
				t.Fatal("expected a schema error")
			}
			var schemaErr *ingesterr.SchemaError
			if !errors.As(err, &schemaErr) {
				t.Fatalf("expected SchemaError, got %T", err)
			}
			if schemaErr.Reason != tc.reason {
				t.Errorf("reason = %q, want %q", schemaErr.Reason, tc.reason)
			}
		})
	}
}

func TestFromTreeMissingItemListDistinctFromEmpty(t *testing.T) {
	// Parsed without force-list and with no det at all: the list is
	// absent, which is a different rejection than an empty list.
	doc := strings.Replace(validDoc, "<det nItem=\"1\">", "<detX>", 1)
	doc = strings.Replace(doc, "</det>", "</detX>", 1)

	tree, err := xmltree.Parse(doc, xmltree.DefaultOptions())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	_, err = FromTree(tree)
	if err == nil {
		t.Fatal("expected a schema error")
	}
	if got := err.Error(); got != "invoice has no line item list" {
		t.Errorf("reason = %q, want the missing-list reason", got)
	}
}

func TestFromTreeEmptyItemListDistinctFromMissing(t *testing.T) {
	// A zero-length sequence cannot come out of the XML parser, but the
	// validator still distinguishes it from an absent list.
	tree := xmltree.Tree{
		"nfeProc": xmltree.Tree{
			"NFe": xmltree.Tree{
				"infNFe": xmltree.Tree{
					"emit": xmltree.Tree{"CNPJ": "11.111.111/0001-11", "xNome": "Acme Foods"},
					"dest": xmltree.Tree{"xNome": "Client X", "CNPJ": "22.222.222/0001-22"},
					"det":  []xmltree.Tree{},
				},
			},
		},
	}

	_, err := FromTree(tree)
	if err == nil {
		t.Fatal("expected a schema error")
	}
	if got := err.Error(); got != "invoice must contain at least one line item" {
		t.Errorf("reason = %q, want the empty-list reason", got)
	}
}

func TestFromTreeItemPositionIsOneBased(t *testing.T) {
	secondItem := `<det nItem="2">
        <prod>
          <xProd>Beans 1kg</xProd>
          <qCom>0</qCom>
          <vUnCom>8.00</vUnCom>
          <vProd>8.00</vProd>
        </prod>
      </det>
      <total>`
	doc := mutate("<total>", secondItem)

	_, err := FromTree(parseDoc(t, doc))
	if err == nil {
		t.Fatal("expected a schema error")
	}
	if got := err.Error(); got != "line item 2: invalid quantity" {
		t.Errorf("reason = %q, want the 1-based second position", got)
	}
}

func TestFromTreeFailsFastOnFirstViolation(t *testing.T) {
	// Issuer and totals both broken: only the issuer reason surfaces.
	doc := mutate("<CNPJ>11.111.111/0001-11</CNPJ>", "")
	doc = strings.Replace(doc, "<vNF>50.00</vNF>", "<vNF>0</vNF>", 1)

	_, err := FromTree(parseDoc(t, doc))
	if err == nil {
		t.Fatal("expected a schema error")
	}
	if got := err.Error(); got != "issuer CNPJ is required" {
		t.Errorf("reason = %q, want the first violation only", got)
	}
}

func TestFromTreeLenientIssuedAtFallback(t *testing.T) {
	doc := mutate("<dhEmi>2024-05-10T14:30:00-03:00</dhEmi>", "<dhEmi>not a date</dhEmi>")

	before := time.Now()
	inv, err := FromTree(parseDoc(t, doc))
	if err != nil {
		t.Fatalf("FromTree: %v", err)
	}
	if inv.IssuedAt.Before(before) {
		t.Error("unparsable dhEmi should fall back to the ingestion time")
	}
}
