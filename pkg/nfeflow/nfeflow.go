// Package nfeflow ingests NFe invoice XML into a relational store. The
// facade runs the four pipeline stages per document: structural check,
// tree parse, schema validation, relational projection.
package nfeflow

import (
	"context"
	"fmt"

	"github.com/fiscalsoft/nfeflow/pkg/nfeflow/envelope"
	"github.com/fiscalsoft/nfeflow/pkg/nfeflow/invoice"
	"github.com/fiscalsoft/nfeflow/pkg/nfeflow/project"
	"github.com/fiscalsoft/nfeflow/pkg/nfeflow/store"
	"github.com/fiscalsoft/nfeflow/pkg/nfeflow/xmltree"
)

// Importer is the sole entry point external collaborators use to ingest
// documents. Every failure from any stage is reduced to a single
// human-readable message; the importer never panics past its boundary.
type Importer struct {
	store     store.Store
	projector *project.Projector
	parseOpts xmltree.Options
}

// Options configures an Importer.
type Options struct {
	Store store.Store

	// ForceList overrides the element names the parser always coerces
	// to a sequence. Leave nil for the NFe default.
	ForceList []string
}

// New creates an Importer writing through the given store.
func New(opts Options) *Importer {
	parseOpts := xmltree.DefaultOptions()
	if opts.ForceList != nil {
		parseOpts.ForceList = opts.ForceList
	}
	return &Importer{
		store:     opts.Store,
		projector: project.New(),
		parseOpts: parseOpts,
	}
}

// Close releases the underlying store.
func (im *Importer) Close() error {
	return im.store.Close()
}

// Result is the uniform outcome of one ingestion.
type Result struct {
	Success bool
	OrderID string

	// Details carries the document's authorization fields verbatim when
	// the source includes them. Nil on failure or when absent.
	Details *invoice.Details

	// ErrorMessage is the single reason the document was rejected.
	// Empty on success.
	ErrorMessage string
}

// Ingest validates and imports one raw document. The document either
// completes projection or is rejected with the first failure found; no
// later stage runs after a failure.
func (im *Importer) Ingest(ctx context.Context, raw string) Result {
	if err := envelope.Validate(raw); err != nil {
		return failure(err)
	}

	tree, err := xmltree.Parse(raw, im.parseOpts)
	if err != nil {
		return failure(err)
	}

	inv, err := invoice.FromTree(tree)
	if err != nil {
		return failure(err)
	}

	projected, err := im.projector.Project(ctx, inv, im.store)
	if err != nil {
		return failure(err)
	}

	res := Result{Success: true, OrderID: projected.OrderID}
	if d := inv.Details; d != (invoice.Details{}) {
		res.Details = &d
	}
	return res
}

func failure(err error) Result {
	return Result{ErrorMessage: err.Error()}
}

// BatchDoc is one document of a batch, named for error reporting.
type BatchDoc struct {
	Name    string
	Content string
}

// BatchResult summarizes a batch ingestion.
type BatchResult struct {
	Processed int
	Succeeded int
	Failed    int

	// FirstError is the first failing document's message, tagged with
	// its position and name. Empty when every document succeeded.
	FirstError string

	// Results holds the per-document outcomes in submission order.
	Results []Result
}

// IngestBatch processes documents strictly one at a time, in submission
// order. A failing document aborts only its own pipeline; the rest of
// the batch still runs.
func (im *Importer) IngestBatch(ctx context.Context, docs []BatchDoc) BatchResult {
	batch := BatchResult{Results: make([]Result, 0, len(docs))}

	for i, doc := range docs {
		res := im.Ingest(ctx, doc.Content)
		batch.Results = append(batch.Results, res)
		batch.Processed++

		if res.Success {
			batch.Succeeded++
			continue
		}
		batch.Failed++
		if batch.FirstError == "" {
			batch.FirstError = tagDoc(i+1, doc.Name, res.ErrorMessage)
		}
	}
	return batch
}

func tagDoc(pos int, name, msg string) string {
	if name == "" {
		return fmt.Sprintf("document %d: %s", pos, msg)
	}
	return fmt.Sprintf("document %d (%s): %s", pos, name, msg)
}
