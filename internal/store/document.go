// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"marketsite/internal/content"
	"marketsite/internal/models"
	"marketsite/internal/slug"
)

// ErrSlugTaken is returned when an insert or update collides with an
// existing slug of the same document type.
var ErrSlugTaken = errors.New("slug already taken")

// maxSlugAttempts bounds the suffix search in UniqueSlug.
const maxSlugAttempts = 100

// DocumentStore handles post and story persistence. Both live in the
// documents table, differentiated by type.
type DocumentStore struct {
	db *sql.DB
}

// NewDocumentStore creates a new DocumentStore with the given database connection.
func NewDocumentStore(db *sql.DB) *DocumentStore {
	return &DocumentStore{db: db}
}

// documentColumns lists the columns selected in document queries.
const documentColumns = `id, type, title, slug, meta_title, meta_description,
	author, category, tags, blocks, faqs, key_points, lsi_keywords, citations,
	geo, structured_data, owner_id, created_at, updated_at`

// scanDocument scans a document row, decoding the JSONB columns.
func scanDocument(scanner interface{ Scan(...any) error }) (*models.Document, error) {
	var (
		d                                                  models.Document
		tags, blocks, faqs, keyPoints, lsi, citations, geo []byte
		structured                                         []byte
	)
	err := scanner.Scan(
		&d.ID, &d.Type, &d.Title, &d.Slug, &d.MetaTitle, &d.MetaDescription,
		&d.Author, &d.Category, &tags, &blocks, &faqs, &keyPoints, &lsi, &citations,
		&geo, &structured, &d.OwnerID, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	fields := []struct {
		raw []byte
		dst any
	}{
		{tags, &d.Tags},
		{blocks, &d.Blocks},
		{faqs, &d.FAQs},
		{keyPoints, &d.KeyPoints},
		{lsi, &d.LSIKeywords},
		{citations, &d.Citations},
		{geo, &d.Geo},
	}
	for _, f := range fields {
		if len(f.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(f.raw, f.dst); err != nil {
			return nil, fmt.Errorf("decode document %s: %w", d.ID, err)
		}
	}
	if len(structured) > 0 {
		d.StructuredData = json.RawMessage(structured)
	}
	return &d, nil
}

// documentArgs encodes the JSONB columns of d in insert/update order.
func documentArgs(d *models.Document) ([]any, error) {
	list := func(v []string) []string {
		if v == nil {
			return []string{}
		}
		return v
	}

	enc := func(v any) (string, error) {
		b, err := json.Marshal(v)
		return string(b), err
	}

	faqs := d.FAQs
	if faqs == nil {
		faqs = []content.FAQ{}
	}
	blocks := d.Blocks
	if blocks == nil {
		blocks = content.Blocks{}
	}

	var out []any
	for _, v := range []any{list(d.Tags), blocks, faqs, list(d.KeyPoints), list(d.LSIKeywords), list(d.Citations)} {
		s, err := enc(v)
		if err != nil {
			return nil, fmt.Errorf("encode document: %w", err)
		}
		out = append(out, s)
	}

	var geo, structured *string
	if d.Geo != nil && !d.Geo.IsZero() {
		s, err := enc(d.Geo)
		if err != nil {
			return nil, fmt.Errorf("encode geo: %w", err)
		}
		geo = &s
	}
	if len(d.StructuredData) > 0 {
		s := string(d.StructuredData)
		structured = &s
	}
	return append(out, geo, structured), nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// Create inserts a new document and returns it with the generated ID.
func (s *DocumentStore) Create(ctx context.Context, d *models.Document) (*models.Document, error) {
	args, err := documentArgs(d)
	if err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO documents (type, title, slug, meta_title, meta_description,
			author, category, tags, blocks, faqs, key_points, lsi_keywords,
			citations, geo, structured_data, owner_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING `+documentColumns,
		append([]any{d.Type, d.Title, d.Slug, d.MetaTitle, d.MetaDescription, d.Author, d.Category},
			append(args, d.OwnerID)...)...,
	)
	created, err := scanDocument(row)
	if isUniqueViolation(err) {
		return nil, ErrSlugTaken
	}
	if err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}
	return created, nil
}

// Replace overwrites every editable field of the document with d.ID.
// Owner and creation time are kept. Returns nil if the document is gone.
func (s *DocumentStore) Replace(ctx context.Context, d *models.Document) (*models.Document, error) {
	args, err := documentArgs(d)
	if err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		UPDATE documents SET
			title = $2, slug = $3, meta_title = $4, meta_description = $5,
			author = $6, category = $7, tags = $8, blocks = $9, faqs = $10,
			key_points = $11, lsi_keywords = $12, citations = $13, geo = $14,
			structured_data = $15, updated_at = NOW()
		WHERE id = $1
		RETURNING `+documentColumns,
		append([]any{d.ID, d.Title, d.Slug, d.MetaTitle, d.MetaDescription, d.Author, d.Category}, args...)...,
	)
	updated, err := scanDocument(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if isUniqueViolation(err) {
		return nil, ErrSlugTaken
	}
	if err != nil {
		return nil, fmt.Errorf("replace document: %w", err)
	}
	return updated, nil
}

// FindBySlug retrieves a document by type and slug. Returns nil if not found.
func (s *DocumentStore) FindBySlug(ctx context.Context, typ content.DocType, slug string) (*models.Document, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE type = $1 AND slug = $2`, typ, slug)
	d, err := scanDocument(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find document by slug: %w", err)
	}
	return d, nil
}

// List returns documents of one type, newest first, with pagination.
func (s *DocumentStore) List(ctx context.Context, typ content.DocType, limit, offset int) ([]models.Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+documentColumns+`
		FROM documents
		WHERE type = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, typ, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []models.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, *d)
	}
	return docs, rows.Err()
}

// Delete removes a document by ID.
func (s *DocumentStore) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

// slugTaken reports whether slug is used by a document of typ other than exclude.
func (s *DocumentStore) slugTaken(ctx context.Context, typ content.DocType, candidate string, exclude uuid.UUID) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM documents WHERE type = $1 AND slug = $2 AND id <> $3)
	`, typ, candidate, exclude).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check slug: %w", err)
	}
	return exists, nil
}

// UniqueSlug returns base, or base with the lowest free "-n" suffix
// starting at 2. exclude is the document being replaced, or uuid.Nil.
func (s *DocumentStore) UniqueSlug(ctx context.Context, typ content.DocType, base string, exclude uuid.UUID) (string, error) {
	candidate := base
	for n := 2; n < maxSlugAttempts+2; n++ {
		taken, err := s.slugTaken(ctx, typ, candidate, exclude)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = slug.WithSuffix(base, n)
	}
	return "", fmt.Errorf("unique slug for %q: %w", base, ErrSlugTaken)
}
