// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"marketsite/internal/content"
)

// Document is a persisted post or story. Posts and stories share the
// documents table, told apart by Type. A document is only ever replaced
// whole, never patched.
type Document struct {
	ID              uuid.UUID          `json:"id"`
	Type            content.DocType    `json:"type"`
	Title           string             `json:"title"`
	Slug            string             `json:"slug"`
	MetaTitle       string             `json:"metaTitle"`
	MetaDescription string             `json:"metaDescription"`
	Author          string             `json:"author"`
	Category        string             `json:"category"`
	Tags            []string           `json:"tags"`
	Blocks          content.Blocks     `json:"contentBlocks"`
	FAQs            []content.FAQ      `json:"faqs"`
	KeyPoints       []string           `json:"keyPoints"`
	LSIKeywords     []string           `json:"lsiKeywords"`
	Citations       []string           `json:"citations"`
	Geo             *content.GeoTarget `json:"geoTargeting,omitempty"`
	StructuredData  json.RawMessage    `json:"structuredData,omitempty"`
	OwnerID         *uuid.UUID         `json:"owner_id,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

// DocumentFromForm copies the submitted fields into a new Document.
// The slug is left for the caller to resolve.
func DocumentFromForm(f *content.Form) *Document {
	d := &Document{
		Type:            f.Type,
		Title:           f.Title,
		MetaTitle:       f.MetaTitle,
		MetaDescription: f.MetaDescription,
		Author:          f.Author,
		Category:        f.Category,
		Tags:            f.Tags,
		Blocks:          f.Blocks,
		FAQs:            f.FAQs,
		KeyPoints:       f.KeyPoints,
		LSIKeywords:     f.LSIKeywords,
		Citations:       f.Citations,
	}
	if sd := strings.TrimSpace(f.StructuredData); sd != "" {
		d.StructuredData = json.RawMessage(sd)
	}
	if f.Geo != nil && !f.Geo.IsZero() {
		d.Geo = f.Geo
	}
	return d
}

// Record returns the summary sent back to a submitting client.
func (d *Document) Record() *content.Record {
	return &content.Record{
		ID:        d.ID.String(),
		Type:      d.Type,
		Slug:      d.Slug,
		Title:     d.Title,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

// OwnedBy reports whether the document was created by the given user.
func (d *Document) OwnedBy(userID uuid.UUID) bool {
	return d.OwnerID != nil && *d.OwnerID == userID
}
