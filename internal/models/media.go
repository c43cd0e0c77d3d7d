// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// Media records an image uploaded for a content block. The file itself
// lives in the bucket; the row ties it to the document that uses it.
type Media struct {
	ID           uuid.UUID  `json:"id"`
	DocumentID   *uuid.UUID `json:"document_id,omitempty"`
	OriginalName string     `json:"original_name"`
	ContentType  string     `json:"content_type"`
	SizeBytes    int64      `json:"size_bytes"`
	Bucket       string     `json:"bucket"`
	S3Key        string     `json:"s3_key"`
	ThumbS3Key   *string    `json:"thumb_s3_key,omitempty"`
	URL          string     `json:"url"`
	UploaderID   *uuid.UUID `json:"uploader_id,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// ObjectKeys lists every bucket object the upload produced: the image
// and, when one was made, its thumbnail.
func (m *Media) ObjectKeys() []string {
	if m.S3Key == "" {
		return nil
	}
	keys := []string{m.S3Key}
	if m.ThumbS3Key != nil && *m.ThumbS3Key != "" {
		keys = append(keys, *m.ThumbS3Key)
	}
	return keys
}

// Attached reports whether the upload belongs to a stored document.
func (m *Media) Attached() bool {
	return m.DocumentID != nil
}
