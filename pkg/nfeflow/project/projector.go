// Package project maps a validated invoice onto the relational entities:
// seller, order, products and order line items.
package project

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/fiscalsoft/nfeflow/pkg/nfeflow/ingesterr"
	"github.com/fiscalsoft/nfeflow/pkg/nfeflow/invoice"
	"github.com/fiscalsoft/nfeflow/pkg/nfeflow/store"
)

// orderIDPrefix and productCodePrefix mark ingestion-generated
// identifiers apart from externally managed ones.
const (
	orderIDPrefix     = "PED"
	productCodePrefix = "PRD"
)

// defaultUnit is assigned to products created implicitly from a line
// item, which names a product but carries no unit class for the catalog.
const defaultUnit = "UN"

// Projector issues the persistence writes for validated invoices. Write
// order is fixed: seller, order, then per line item product resolution
// followed by the line item row.
type Projector struct {
	entropy *ulid.MonotonicEntropy
	now     func() time.Time
}

// New creates a Projector.
func New() *Projector {
	return &Projector{
		entropy: ulid.Monotonic(rand.Reader, 0),
		now:     time.Now,
	}
}

// Result reports a completed projection.
type Result struct {
	OrderID string
}

// Project persists one validated invoice through st and returns the
// generated order id. A failing step aborts the remaining steps; steps
// already committed are not rolled back, so a late failure can leave an
// order without line items. Each failure is a ProjectionError tagged with
// the step that raised it.
func (p *Projector) Project(ctx context.Context, inv *invoice.Invoice, st store.Store) (Result, error) {
	if err := p.upsertSeller(ctx, inv, st); err != nil {
		return Result{}, err
	}

	orderID, err := p.createOrder(ctx, inv, st)
	if err != nil {
		return Result{}, err
	}

	for i, item := range inv.Items {
		productID, err := p.resolveProduct(ctx, item, st)
		if err != nil {
			return Result{}, &ingesterr.ProjectionError{
				Step: fmt.Sprintf("resolve product for line item %d", i+1),
				Err:  err,
			}
		}

		_, err = st.InsertOrderItem(ctx, store.OrderItem{
			OrderID:   orderID,
			ProductID: productID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
		if err != nil {
			return Result{}, &ingesterr.ProjectionError{
				Step: fmt.Sprintf("save line item %d", i+1),
				Err:  err,
			}
		}
	}

	return Result{OrderID: orderID}, nil
}

// upsertSeller writes the issuer as a seller, a no-op when the tax id is
// already known. A missing issuer email is replaced with a placeholder
// derived from the tax id so the unique-email constraint holds across
// repeated ingests from the same issuer.
func (p *Projector) upsertSeller(ctx context.Context, inv *invoice.Invoice, st store.Store) error {
	email := inv.Issuer.Email
	if email == "" {
		email = inv.Issuer.TaxID + "@placeholder.com"
	}

	err := st.InsertSellerIfAbsent(ctx, store.Seller{
		TaxID: inv.Issuer.TaxID,
		Name:  inv.Issuer.Name,
		Email: email,
	})
	if err != nil {
		return &ingesterr.ProjectionError{Step: "save seller", Err: err}
	}
	return nil
}

func (p *Projector) createOrder(ctx context.Context, inv *invoice.Invoice, st store.Store) (string, error) {
	orderID := fmt.Sprintf("%s%d", orderIDPrefix, p.now().UnixNano())

	err := st.InsertOrder(ctx, store.Order{
		ID:          orderID,
		SellerTaxID: inv.Issuer.TaxID,
		Client:      inv.Recipient.Name,
		Total:       inv.GrandTotal,
		Status:      store.StatusPending,
		IssuedAt:    inv.IssuedAt,
		ItemCount:   len(inv.Items),
	})
	if err != nil {
		return "", &ingesterr.ProjectionError{Step: "create order", Err: err}
	}
	return orderID, nil
}

// resolveProduct finds the catalog product matching the line item's
// description, creating a zero-stock placeholder priced at the line's
// unit price when no match exists.
func (p *Projector) resolveProduct(ctx context.Context, item invoice.LineItem, st store.Store) (int64, error) {
	now := p.now()
	return st.ResolveOrCreateProduct(ctx, store.Product{
		Code:      p.newProductCode(),
		Name:      item.Description,
		Unit:      defaultUnit,
		UnitPrice: item.UnitPrice,
		Stock:     0,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func (p *Projector) newProductCode() string {
	return productCodePrefix + ulid.MustNew(ulid.Now(), p.entropy).String()
}
