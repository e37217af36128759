package memstore

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"

	"github.com/fiscalsoft/nfeflow/pkg/nfeflow/store"
)

// Store is an in-memory implementation of store.Store for tests.
type Store struct {
	mu            sync.RWMutex
	sellers       map[string]store.Seller
	orders        map[string]store.Order
	orderIDs      []string // insertion order
	products      map[int64]store.Product
	nameIndex     map[string]int64
	codeIndex     map[string]int64
	items         []store.OrderItem
	nextProductID int64
	nextItemID    int64
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		sellers:       make(map[string]store.Seller),
		orders:        make(map[string]store.Order),
		products:      make(map[int64]store.Product),
		nameIndex:     make(map[string]int64),
		codeIndex:     make(map[string]int64),
		nextProductID: 1,
		nextItemID:    1,
	}
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// InsertSellerIfAbsent keeps the first row written for a tax id.
func (s *Store) InsertSellerIfAbsent(ctx context.Context, sl store.Seller) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sellers[sl.TaxID]; ok {
		return nil
	}
	for _, existing := range s.sellers {
		if existing.Email == sl.Email {
			return fmt.Errorf("seller email %q already in use", sl.Email)
		}
	}
	s.sellers[sl.TaxID] = sl
	return nil
}

// GetSeller returns a seller by tax id.
func (s *Store) GetSeller(ctx context.Context, taxID string) (store.Seller, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sl, ok := s.sellers[taxID]
	return sl, ok, nil
}

// ListSellers returns all sellers ordered by name.
func (s *Store) ListSellers(ctx context.Context) ([]store.Seller, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sellers := make([]store.Seller, 0, len(s.sellers))
	for _, sl := range s.sellers {
		sellers = append(sellers, sl)
	}
	sort.Slice(sellers, func(i, j int) bool { return sellers[i].Name < sellers[j].Name })
	return sellers, nil
}

// InsertOrder inserts one order row; duplicate ids fail.
func (s *Store) InsertOrder(ctx context.Context, o store.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.orders[o.ID]; ok {
		return fmt.Errorf("order %s already exists", o.ID)
	}
	if _, ok := s.sellers[o.SellerTaxID]; !ok {
		return fmt.Errorf("unknown seller %s", o.SellerTaxID)
	}
	s.orders[o.ID] = o
	s.orderIDs = append(s.orderIDs, o.ID)
	return nil
}

// GetOrder returns an order by id.
func (s *Store) GetOrder(ctx context.Context, id string) (store.Order, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[id]
	return o, ok, nil
}

// ListOrders returns all orders with seller names, newest first.
func (s *Store) ListOrders(ctx context.Context) ([]store.OrderSummary, error) {
	return s.listOrders("")
}

// ListOrdersBySeller returns one seller's orders, newest first.
func (s *Store) ListOrdersBySeller(ctx context.Context, taxID string) ([]store.OrderSummary, error) {
	return s.listOrders(taxID)
}

func (s *Store) listOrders(taxID string) ([]store.OrderSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var summaries []store.OrderSummary
	for _, id := range s.orderIDs {
		o := s.orders[id]
		if taxID != "" && o.SellerTaxID != taxID {
			continue
		}
		summaries = append(summaries, store.OrderSummary{
			Order:      o,
			SellerName: s.sellers[o.SellerTaxID].Name,
		})
	}
	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].IssuedAt.After(summaries[j].IssuedAt)
	})
	return summaries, nil
}

// ResolveOrCreateProduct reuses the product with the candidate's name or
// inserts the candidate.
func (s *Store) ResolveOrCreateProduct(ctx context.Context, candidate store.Product) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.nameIndex[candidate.Name]; ok {
		return id, nil
	}
	return s.insertProductLocked(candidate)
}

// InsertProduct inserts a catalog product and returns its assigned id.
func (s *Store) InsertProduct(ctx context.Context, p store.Product) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.insertProductLocked(p)
}

func (s *Store) insertProductLocked(p store.Product) (int64, error) {
	if p.Code != "" {
		if _, ok := s.codeIndex[p.Code]; ok {
			return 0, fmt.Errorf("product code %q already in use", p.Code)
		}
	}
	p.ID = s.nextProductID
	s.nextProductID++
	s.products[p.ID] = p
	s.nameIndex[p.Name] = p.ID
	if p.Code != "" {
		s.codeIndex[p.Code] = p.ID
	}
	return p.ID, nil
}

// GetProduct returns a product by id.
func (s *Store) GetProduct(ctx context.Context, id int64) (store.Product, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	return p, ok, nil
}

// GetProductByName returns a product by exact name match.
func (s *Store) GetProductByName(ctx context.Context, name string) (store.Product, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if id, ok := s.nameIndex[name]; ok {
		return s.products[id], true, nil
	}
	return store.Product{}, false, nil
}

// ListProducts returns all products ordered by name.
func (s *Store) ListProducts(ctx context.Context) ([]store.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]store.Product, 0, len(s.products))
	for _, p := range s.products {
		products = append(products, p)
	}
	sort.Slice(products, func(i, j int) bool { return products[i].Name < products[j].Name })
	return products, nil
}

// UpdateProduct rewrites a product row.
func (s *Store) UpdateProduct(ctx context.Context, p store.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.products[p.ID]
	if !ok {
		return sql.ErrNoRows
	}
	delete(s.nameIndex, existing.Name)
	delete(s.codeIndex, existing.Code)
	s.products[p.ID] = p
	s.nameIndex[p.Name] = p.ID
	if p.Code != "" {
		s.codeIndex[p.Code] = p.ID
	}
	return nil
}

// DeleteProduct removes a product by id.
func (s *Store) DeleteProduct(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.products[id]; ok {
		delete(s.nameIndex, p.Name)
		delete(s.codeIndex, p.Code)
		delete(s.products, id)
	}
	return nil
}

// InsertOrderItem inserts one line item and returns its assigned id.
func (s *Store) InsertOrderItem(ctx context.Context, it store.OrderItem) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.orders[it.OrderID]; !ok {
		return 0, fmt.Errorf("unknown order %s", it.OrderID)
	}
	if _, ok := s.products[it.ProductID]; !ok {
		return 0, fmt.Errorf("unknown product %d", it.ProductID)
	}
	it.ID = s.nextItemID
	s.nextItemID++
	s.items = append(s.items, it)
	return it.ID, nil
}

// ListOrderItems returns an order's line items in insertion order.
func (s *Store) ListOrderItems(ctx context.Context, orderID string) ([]store.OrderItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var items []store.OrderItem
	for _, it := range s.items {
		if it.OrderID == orderID {
			items = append(items, it)
		}
	}
	return items, nil
}
