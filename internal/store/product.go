// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"marketsite/internal/models"
)

// ProductStore handles catalogue persistence and is the stock authority.
type ProductStore struct {
	db *sql.DB
}

// NewProductStore creates a new ProductStore with the given database connection.
func NewProductStore(db *sql.DB) *ProductStore {
	return &ProductStore{db: db}
}

// productColumns lists the columns selected in product queries.
const productColumns = `id, title, slug, description, price, currency, image,
	availability, product_type, affiliate_url, quantity, sizes, created_at, updated_at`

// scanProduct scans a product row from the result set.
func scanProduct(scanner interface{ Scan(...any) error }) (*models.Product, error) {
	var (
		p     models.Product
		sizes []byte
	)
	err := scanner.Scan(
		&p.ID, &p.Title, &p.Slug, &p.Description, &p.Price, &p.Currency, &p.Image,
		&p.Availability, &p.Type, &p.AffiliateURL, &p.Quantity, &sizes,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(sizes) > 0 {
		if err := json.Unmarshal(sizes, &p.Sizes); err != nil {
			return nil, fmt.Errorf("decode sizes of %s: %w", p.ID, err)
		}
	}
	return &p, nil
}

func encodeSizes(sizes []models.ProductSize) (string, error) {
	if sizes == nil {
		sizes = []models.ProductSize{}
	}
	b, err := json.Marshal(sizes)
	if err != nil {
		return "", fmt.Errorf("encode sizes: %w", err)
	}
	return string(b), nil
}

// Create inserts a new product and returns it with the generated ID.
func (s *ProductStore) Create(ctx context.Context, p *models.Product) (*models.Product, error) {
	sizes, err := encodeSizes(p.Sizes)
	if err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO products (title, slug, description, price, currency, image,
			availability, product_type, affiliate_url, quantity, sizes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING `+productColumns,
		p.Title, p.Slug, p.Description, p.Price, p.Currency, p.Image,
		p.Availability, p.Type, p.AffiliateURL, p.Quantity, sizes,
	)
	created, err := scanProduct(row)
	if isUniqueViolation(err) {
		return nil, ErrSlugTaken
	}
	if err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	return created, nil
}

// Update overwrites a product. Returns nil if the product does not exist.
func (s *ProductStore) Update(ctx context.Context, p *models.Product) (*models.Product, error) {
	sizes, err := encodeSizes(p.Sizes)
	if err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		UPDATE products SET
			title = $2, slug = $3, description = $4, price = $5, currency = $6,
			image = $7, availability = $8, product_type = $9, affiliate_url = $10,
			quantity = $11, sizes = $12, updated_at = NOW()
		WHERE id = $1
		RETURNING `+productColumns,
		p.ID, p.Title, p.Slug, p.Description, p.Price, p.Currency, p.Image,
		p.Availability, p.Type, p.AffiliateURL, p.Quantity, sizes,
	)
	updated, err := scanProduct(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if isUniqueViolation(err) {
		return nil, ErrSlugTaken
	}
	if err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}
	return updated, nil
}

// FindByID retrieves a single product by its UUID. Returns nil if not found.
func (s *ProductStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	p, err := scanProduct(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find product by id: %w", err)
	}
	return p, nil
}

// List returns products ordered by title, with pagination.
func (s *ProductStore) List(ctx context.Context, limit, offset int) ([]models.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		ORDER BY title ASC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var items []models.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		items = append(items, *p)
	}
	return items, rows.Err()
}
