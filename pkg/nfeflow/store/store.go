// Package store defines the persistence contract the ingestion pipeline
// writes through, plus the persisted entity shapes. The projector owns
// the write sequencing; the store only promises the operations below.
package store

import (
	"context"
	"time"
)

// StatusPending is the fixed initial status of every ingested order.
// Status transitions are owned by external collaborators, never by the
// ingestion core.
const StatusPending = "pending"

// Store is the relational port consumed by the projector and the query
// side. Implementations: sqlite (production) and memstore (tests).
type Store interface {
	Close() error

	// Sellers
	InsertSellerIfAbsent(ctx context.Context, s Seller) error
	GetSeller(ctx context.Context, taxID string) (Seller, bool, error)
	ListSellers(ctx context.Context) ([]Seller, error)

	// Orders
	InsertOrder(ctx context.Context, o Order) error
	GetOrder(ctx context.Context, id string) (Order, bool, error)
	ListOrders(ctx context.Context) ([]OrderSummary, error)
	ListOrdersBySeller(ctx context.Context, taxID string) ([]OrderSummary, error)

	// Products
	ResolveOrCreateProduct(ctx context.Context, candidate Product) (int64, error)
	InsertProduct(ctx context.Context, p Product) (int64, error)
	GetProduct(ctx context.Context, id int64) (Product, bool, error)
	GetProductByName(ctx context.Context, name string) (Product, bool, error)
	ListProducts(ctx context.Context) ([]Product, error)
	UpdateProduct(ctx context.Context, p Product) error
	DeleteProduct(ctx context.Context, id int64) error

	// Order line items
	InsertOrderItem(ctx context.Context, it OrderItem) (int64, error)
	ListOrderItems(ctx context.Context, orderID string) ([]OrderItem, error)
}

// Seller is an invoice issuer, keyed by tax id. Ingestion never updates
// an existing seller; the first write wins.
type Seller struct {
	TaxID string
	Name  string
	Email string
}

// Order is one ingested invoice.
type Order struct {
	ID          string
	SellerTaxID string
	Client      string
	Total       float64
	Status      string
	IssuedAt    time.Time
	ItemCount   int
}

// OrderSummary is an order joined with its seller's name, the shape the
// listing surfaces consume.
type OrderSummary struct {
	Order
	SellerName string
}

// Product is a catalog entry. Rows are created explicitly through catalog
// management or implicitly by ingestion when a line item names an unknown
// product.
type Product struct {
	ID          int64
	Code        string
	Name        string
	Description string
	Unit        string
	UnitPrice   float64
	Stock       int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// OrderItem links an order to a resolved product with the quantity and
// unit price copied verbatim from the invoice line.
type OrderItem struct {
	ID        int64
	OrderID   string
	ProductID int64
	Quantity  float64
	UnitPrice float64
}
