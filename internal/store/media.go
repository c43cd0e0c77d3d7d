// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"marketsite/internal/models"
)

// MediaStore records images uploaded for content blocks.
type MediaStore struct {
	db *sql.DB
}

// NewMediaStore creates a new MediaStore with the given database connection.
func NewMediaStore(db *sql.DB) *MediaStore {
	return &MediaStore{db: db}
}

// mediaColumns lists the columns selected in media queries.
const mediaColumns = `id, document_id, original_name, content_type, size_bytes,
	bucket, s3_key, thumb_s3_key, url, uploader_id, created_at`

func scanMedia(scanner interface{ Scan(...any) error }) (*models.Media, error) {
	var m models.Media
	err := scanner.Scan(
		&m.ID, &m.DocumentID, &m.OriginalName, &m.ContentType, &m.SizeBytes,
		&m.Bucket, &m.S3Key, &m.ThumbS3Key, &m.URL, &m.UploaderID, &m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Create inserts a new media record and returns it with the generated ID.
func (s *MediaStore) Create(ctx context.Context, m *models.Media) (*models.Media, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO media (document_id, original_name, content_type, size_bytes,
			bucket, s3_key, thumb_s3_key, url, uploader_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+mediaColumns,
		m.DocumentID, m.OriginalName, m.ContentType, m.SizeBytes,
		m.Bucket, m.S3Key, m.ThumbS3Key, m.URL, m.UploaderID,
	)
	created, err := scanMedia(row)
	if err != nil {
		return nil, fmt.Errorf("create media: %w", err)
	}
	return created, nil
}

// AttachToDocument links uploaded media to the document that uses them.
func (s *MediaStore) AttachToDocument(ctx context.Context, documentID uuid.UUID, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("attach media: %w", err)
	}
	defer tx.Rollback()

	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, `UPDATE media SET document_id = $1 WHERE id = $2`, documentID, id); err != nil {
			return fmt.Errorf("attach media %s: %w", id, err)
		}
	}
	return tx.Commit()
}

// ListByDocument returns the media used by a document.
func (s *MediaStore) ListByDocument(ctx context.Context, documentID uuid.UUID) ([]models.Media, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+mediaColumns+`
		FROM media
		WHERE document_id = $1
		ORDER BY created_at ASC
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("list media: %w", err)
	}
	return collectMedia(rows)
}

// DeleteByDocument removes the media rows of a document and returns them so
// the caller can clean up the corresponding S3 objects.
func (s *MediaStore) DeleteByDocument(ctx context.Context, documentID uuid.UUID) ([]models.Media, error) {
	rows, err := s.db.QueryContext(ctx, `
		DELETE FROM media WHERE document_id = $1
		RETURNING `+mediaColumns, documentID)
	if err != nil {
		return nil, fmt.Errorf("delete media: %w", err)
	}
	return collectMedia(rows)
}

func collectMedia(rows *sql.Rows) ([]models.Media, error) {
	defer rows.Close()

	var items []models.Media
	for rows.Next() {
		m, err := scanMedia(rows)
		if err != nil {
			return nil, fmt.Errorf("scan media: %w", err)
		}
		items = append(items, *m)
	}
	return items, rows.Err()
}
