// Package xmltree converts raw XML into a generic nested tree. Attributes
// and child elements become uniform addressable fields, so consumers never
// care which kind of field the source used.
package xmltree

import (
	"encoding/xml"
	"errors"
	"io"
	"strconv"
	"strings"

	"golang.org/x/net/html/charset"

	"github.com/fiscalsoft/nfeflow/pkg/nfeflow/ingesterr"
)

// Tree is a parsed element. Values are string, float64, Tree or []Tree.
type Tree map[string]any

// textKey holds element text when the element also has attributes or
// children and cannot collapse to a scalar.
const textKey = "#text"

// Options controls tree construction.
type Options struct {
	// ForceList names elements that are always stored as a sequence,
	// even when the document contains a single occurrence. Without this
	// a one-item invoice would collapse its item list to a plain
	// mapping, changing shape depending on cardinality.
	ForceList []string
}

// DefaultOptions forces the NFe line-item element into sequence shape.
func DefaultOptions() Options {
	return Options{ForceList: []string{"det"}}
}

// Parse builds a Tree from raw XML. Malformed input returns a ParseError
// and no partial tree. Non-UTF-8 documents are decoded through their
// declared charset.
func Parse(raw string, opts Options) (Tree, error) {
	force := make(map[string]bool, len(opts.ForceList))
	for _, name := range opts.ForceList {
		force[name] = true
	}

	dec := xml.NewDecoder(strings.NewReader(raw))
	dec.CharsetReader = charset.NewReaderLabel

	root := Tree{}
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &ingesterr.ParseError{Err: err}
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			// Declarations, comments and inter-element whitespace.
			continue
		}
		child, err := build(dec, start, force)
		if err != nil {
			return nil, &ingesterr.ParseError{Err: err}
		}
		root.add(start.Name.Local, child, force[start.Name.Local])
	}
	if len(root) == 0 {
		return nil, &ingesterr.ParseError{Err: errors.New("no root element")}
	}
	return root, nil
}

// build consumes tokens until start's matching end tag. An element with
// neither attributes nor children collapses to its text scalar.
func build(dec *xml.Decoder, start xml.StartElement, force map[string]bool) (any, error) {
	node := Tree{}
	for _, attr := range start.Attr {
		node[attr.Name.Local] = coerceScalar(attr.Value)
	}

	var text strings.Builder
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			child, err := build(dec, t, force)
			if err != nil {
				return nil, err
			}
			node.add(t.Name.Local, child, force[t.Name.Local])
		case xml.CharData:
			text.Write(t)
		case xml.EndElement:
			trimmed := strings.TrimSpace(text.String())
			if len(node) == 0 {
				return coerceScalar(trimmed), nil
			}
			if trimmed != "" {
				node[textKey] = coerceScalar(trimmed)
			}
			return node, nil
		}
	}
}

// add stores a child field, accumulating repeated names into a sequence.
// Forced names are sequences from the first occurrence.
func (t Tree) add(name string, child any, forced bool) {
	existing, ok := t[name]
	switch {
	case !ok && forced:
		t[name] = []Tree{asTree(child)}
	case !ok:
		t[name] = child
	default:
		if list, isList := existing.([]Tree); isList {
			t[name] = append(list, asTree(child))
		} else {
			t[name] = []Tree{asTree(existing), asTree(child)}
		}
	}
}

// asTree keeps sequence items mapping-shaped; a scalar occurrence of a
// sequence element is wrapped under the text key.
func asTree(v any) Tree {
	if tr, ok := v.(Tree); ok {
		return tr
	}
	return Tree{textKey: v}
}

// coerceScalar opportunistically parses numeric text. Digit strings with
// a leading zero, and digit strings too long for exact float64
// representation (access keys, protocol numbers), stay strings so fiscal
// codes keep their exact form.
func coerceScalar(s string) any {
	if s == "" {
		return ""
	}
	if len(s) > 1 && s[0] == '0' && s[1] != '.' {
		return s
	}
	if len(s) > 15 && digitsOnly(s) {
		return s
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

func digitsOnly(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Child returns the named field when it is mapping-shaped.
func (t Tree) Child(name string) (Tree, bool) {
	child, ok := t[name].(Tree)
	return child, ok
}

// List returns the named field when it is sequence-shaped.
func (t Tree) List(name string) ([]Tree, bool) {
	list, ok := t[name].([]Tree)
	return list, ok
}

// Has reports whether the field exists at all, whatever its shape.
func (t Tree) Has(name string) bool {
	_, ok := t[name]
	return ok
}

// Text returns the named scalar as a string, or "" when the field is
// absent. Numeric scalars are formatted back without a trailing zero tail;
// mapping-shaped fields yield their own text content.
func (t Tree) Text(name string) string {
	return scalarText(t[name])
}

func scalarText(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case Tree:
		return scalarText(s[textKey])
	default:
		return ""
	}
}

// Number returns the named scalar as a float64 when it is numeric or
// numeric text.
func (t Tree) Number(name string) (float64, bool) {
	return scalarNumber(t[name])
}

func scalarNumber(v any) (float64, bool) {
	switch s := v.(type) {
	case float64:
		return s, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		return f, err == nil
	case Tree:
		return scalarNumber(s[textKey])
	default:
		return 0, false
	}
}
