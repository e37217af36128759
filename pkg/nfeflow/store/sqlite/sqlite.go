package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "modernc.org/sqlite"

	"github.com/fiscalsoft/nfeflow/pkg/nfeflow/store"
)

// sqliteStore implements the store.Store interface using SQLite
type sqliteStore struct {
	db *sql.DB
}

// OpenSQLite opens a SQLite database with WAL mode and foreign keys
// enabled, creating the schema when missing.
func OpenSQLite(ctx context.Context, path string) (store.Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, err
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &sqliteStore{db: db}, nil
}

// Close closes the database connection
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS sellers (
	tax_id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	email TEXT UNIQUE
);

CREATE TABLE IF NOT EXISTS orders (
	id TEXT PRIMARY KEY,
	seller_tax_id TEXT NOT NULL,
	client TEXT,
	total REAL,
	status TEXT,
	issued_at TEXT,
	item_count INTEGER,
	FOREIGN KEY(seller_tax_id) REFERENCES sellers(tax_id)
);

CREATE TABLE IF NOT EXISTS products (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	code TEXT UNIQUE,
	name TEXT NOT NULL,
	description TEXT,
	unit TEXT,
	unit_price REAL,
	stock INTEGER DEFAULT 0,
	created_at TEXT,
	updated_at TEXT
);

CREATE TABLE IF NOT EXISTS order_items (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	order_id TEXT NOT NULL,
	product_id INTEGER NOT NULL,
	quantity REAL,
	unit_price REAL,
	FOREIGN KEY(order_id) REFERENCES orders(id),
	FOREIGN KEY(product_id) REFERENCES products(id)
);

CREATE INDEX IF NOT EXISTS idx_orders_seller ON orders(seller_tax_id);
CREATE INDEX IF NOT EXISTS idx_products_name ON products(name);
CREATE INDEX IF NOT EXISTS idx_order_items_order ON order_items(order_id);
`

	_, err := db.ExecContext(ctx, schema)
	return err
}

// InsertSellerIfAbsent inserts a seller, keeping the existing row when
// the tax id is already known.
func (s *sqliteStore) InsertSellerIfAbsent(ctx context.Context, sl store.Seller) error {
	const stmt = `
INSERT INTO sellers (tax_id, name, email)
VALUES (?, ?, ?)
ON CONFLICT(tax_id) DO NOTHING;
`
	_, err := s.db.ExecContext(ctx, stmt, sl.TaxID, sl.Name, sl.Email)
	return err
}

// GetSeller returns a seller by tax id.
func (s *sqliteStore) GetSeller(ctx context.Context, taxID string) (store.Seller, bool, error) {
	const stmt = `SELECT tax_id, name, email FROM sellers WHERE tax_id = ?`

	var sl store.Seller
	err := s.db.QueryRowContext(ctx, stmt, taxID).Scan(&sl.TaxID, &sl.Name, &sl.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Seller{}, false, nil
	}
	if err != nil {
		return store.Seller{}, false, err
	}
	return sl, true, nil
}

// ListSellers returns all sellers ordered by name.
func (s *sqliteStore) ListSellers(ctx context.Context) ([]store.Seller, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT tax_id, name, email FROM sellers ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sellers []store.Seller
	for rows.Next() {
		var sl store.Seller
		if err := rows.Scan(&sl.TaxID, &sl.Name, &sl.Email); err != nil {
			return nil, err
		}
		sellers = append(sellers, sl)
	}
	return sellers, rows.Err()
}

// InsertOrder inserts exactly one order row.
func (s *sqliteStore) InsertOrder(ctx context.Context, o store.Order) error {
	const stmt = `
INSERT INTO orders (id, seller_tax_id, client, total, status, issued_at, item_count)
VALUES (?, ?, ?, ?, ?, ?, ?);
`
	_, err := s.db.ExecContext(
		ctx,
		stmt,
		o.ID,
		o.SellerTaxID,
		o.Client,
		o.Total,
		o.Status,
		o.IssuedAt.UTC().Format(time.RFC3339),
		o.ItemCount,
	)
	return err
}

// GetOrder returns an order by id.
func (s *sqliteStore) GetOrder(ctx context.Context, id string) (store.Order, bool, error) {
	const stmt = `
SELECT id, seller_tax_id, client, total, status, issued_at, item_count
FROM orders WHERE id = ?`

	var (
		o        store.Order
		issuedAt string
	)
	err := s.db.QueryRowContext(ctx, stmt, id).Scan(
		&o.ID, &o.SellerTaxID, &o.Client, &o.Total, &o.Status, &issuedAt, &o.ItemCount,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Order{}, false, nil
	}
	if err != nil {
		return store.Order{}, false, err
	}
	o.IssuedAt = parseTime(issuedAt)
	return o, true, nil
}

// ListOrders returns all orders joined with their seller's name, newest
// first.
func (s *sqliteStore) ListOrders(ctx context.Context) ([]store.OrderSummary, error) {
	const stmt = `
SELECT o.id, o.seller_tax_id, o.client, o.total, o.status, o.issued_at, o.item_count, s.name
FROM orders o
JOIN sellers s ON o.seller_tax_id = s.tax_id
ORDER BY o.issued_at DESC`

	return s.queryOrderSummaries(ctx, stmt)
}

// ListOrdersBySeller returns one seller's orders, newest first.
func (s *sqliteStore) ListOrdersBySeller(ctx context.Context, taxID string) ([]store.OrderSummary, error) {
	const stmt = `
SELECT o.id, o.seller_tax_id, o.client, o.total, o.status, o.issued_at, o.item_count, s.name
FROM orders o
JOIN sellers s ON o.seller_tax_id = s.tax_id
WHERE s.tax_id = ?
ORDER BY o.issued_at DESC`

	return s.queryOrderSummaries(ctx, stmt, taxID)
}

func (s *sqliteStore) queryOrderSummaries(ctx context.Context, stmt string, args ...any) ([]store.OrderSummary, error) {
	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []store.OrderSummary
	for rows.Next() {
		var (
			sum      store.OrderSummary
			issuedAt string
		)
		err := rows.Scan(
			&sum.ID, &sum.SellerTaxID, &sum.Client, &sum.Total,
			&sum.Status, &issuedAt, &sum.ItemCount, &sum.SellerName,
		)
		if err != nil {
			return nil, err
		}
		sum.IssuedAt = parseTime(issuedAt)
		summaries = append(summaries, sum)
	}
	return summaries, rows.Err()
}

// ResolveOrCreateProduct returns the id of the product matching the
// candidate's name, inserting the candidate when no match exists. Lookup
// and insert run in one transaction so concurrent resolutions of the
// same name cannot interleave.
func (s *sqliteStore) ResolveOrCreateProduct(ctx context.Context, candidate store.Product) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRowContext(ctx, `SELECT id FROM products WHERE name = ?`, candidate.Name).Scan(&id)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}
	if errors.Is(err, sql.ErrNoRows) {
		err = tx.QueryRowContext(ctx, insertProductStmt, productArgs(candidate)...).Scan(&id)
		if err != nil {
			return 0, err
		}
	}

	return id, tx.Commit()
}

const insertProductStmt = `
INSERT INTO products (code, name, description, unit, unit_price, stock, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
RETURNING id;
`

func productArgs(p store.Product) []any {
	return []any{
		p.Code,
		p.Name,
		p.Description,
		p.Unit,
		p.UnitPrice,
		p.Stock,
		p.CreatedAt.UTC().Format(time.RFC3339),
		p.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// InsertProduct inserts a catalog product and returns its assigned id.
func (s *sqliteStore) InsertProduct(ctx context.Context, p store.Product) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, insertProductStmt, productArgs(p)...).Scan(&id)
	return id, err
}

// GetProduct returns a product by id.
func (s *sqliteStore) GetProduct(ctx context.Context, id int64) (store.Product, bool, error) {
	return s.getProduct(ctx, `WHERE id = ?`, id)
}

// GetProductByName returns a product by exact name match.
func (s *sqliteStore) GetProductByName(ctx context.Context, name string) (store.Product, bool, error) {
	return s.getProduct(ctx, `WHERE name = ?`, name)
}

func (s *sqliteStore) getProduct(ctx context.Context, where string, arg any) (store.Product, bool, error) {
	stmt := `
SELECT id, code, name, description, unit, unit_price, stock, created_at, updated_at
FROM products ` + where

	var (
		p                    store.Product
		createdAt, updatedAt string
	)
	err := s.db.QueryRowContext(ctx, stmt, arg).Scan(
		&p.ID, &p.Code, &p.Name, &p.Description, &p.Unit,
		&p.UnitPrice, &p.Stock, &createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Product{}, false, nil
	}
	if err != nil {
		return store.Product{}, false, err
	}
	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updatedAt)
	return p, true, nil
}

// ListProducts returns all products ordered by name.
func (s *sqliteStore) ListProducts(ctx context.Context) ([]store.Product, error) {
	const stmt = `
SELECT id, code, name, description, unit, unit_price, stock, created_at, updated_at
FROM products
ORDER BY name ASC`

	rows, err := s.db.QueryContext(ctx, stmt)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []store.Product
	for rows.Next() {
		var (
			p                    store.Product
			createdAt, updatedAt string
		)
		err := rows.Scan(
			&p.ID, &p.Code, &p.Name, &p.Description, &p.Unit,
			&p.UnitPrice, &p.Stock, &createdAt, &updatedAt,
		)
		if err != nil {
			return nil, err
		}
		p.CreatedAt = parseTime(createdAt)
		p.UpdatedAt = parseTime(updatedAt)
		products = append(products, p)
	}
	return products, rows.Err()
}

// UpdateProduct rewrites a product row and stamps updated_at.
func (s *sqliteStore) UpdateProduct(ctx context.Context, p store.Product) error {
	const stmt = `
UPDATE products
SET code = ?, name = ?, description = ?, unit = ?, unit_price = ?, stock = ?, updated_at = ?
WHERE id = ?`

	res, err := s.db.ExecContext(
		ctx,
		stmt,
		p.Code, p.Name, p.Description, p.Unit, p.UnitPrice, p.Stock,
		time.Now().UTC().Format(time.RFC3339),
		p.ID,
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteProduct removes a product by id.
func (s *sqliteStore) DeleteProduct(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	return err
}

// InsertOrderItem inserts one order line item and returns its assigned
// id.
func (s *sqliteStore) InsertOrderItem(ctx context.Context, it store.OrderItem) (int64, error) {
	const stmt = `
INSERT INTO order_items (order_id, product_id, quantity, unit_price)
VALUES (?, ?, ?, ?)
RETURNING id;
`
	var id int64
	err := s.db.QueryRowContext(ctx, stmt, it.OrderID, it.ProductID, it.Quantity, it.UnitPrice).Scan(&id)
	return id, err
}

// ListOrderItems returns an order's line items in insertion order.
func (s *sqliteStore) ListOrderItems(ctx context.Context, orderID string) ([]store.OrderItem, error) {
	const stmt = `
SELECT id, order_id, product_id, quantity, unit_price
FROM order_items
WHERE order_id = ?
ORDER BY id ASC`

	rows, err := s.db.QueryContext(ctx, stmt, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []store.OrderItem
	for rows.Next() {
		var it store.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantity, &it.UnitPrice); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func parseTime(s string) time.Time {
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return ts
}
