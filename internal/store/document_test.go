// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"

	"marketsite/internal/content"
	"marketsite/internal/models"
)

// testDocument returns a minimal valid post with the given slug.
func testDocument(slug string) *models.Document {
	return &models.Document{
		Type:     content.DocTypePost,
		Title:    "Test Post",
		Slug:     slug,
		Author:   "Tester",
		Category: "Testing",
		Tags:     []string{"go", "test"},
		Blocks: content.Blocks{
			&content.Heading{Level: 2, Text: "Intro"},
			&content.Paragraph{Text: "Body", BulletPoints: []string{"one", "two"}},
			&content.Image{ExistingURL: "http://localhost/img.jpg", AltText: "A picture"},
			&content.Link{Text: "More", Href: "https://example.com", Target: content.TargetBlank},
		},
		FAQs: []content.FAQ{{Question: "Q?", Answer: "A."}},
	}
}

func TestDocumentStoreCreateAndFind(t *testing.T) {
	db := testDB(t)
	s := NewDocumentStore(db)
	ctx := context.Background()

	slug := "test-create-doc-" + uuid.NewString()[:8]
	deleteAfter(t, db, "documents", "slug", slug)

	doc := testDocument(slug)
	doc.Geo = &content.GeoTarget{Country: "BD", City: "Dhaka"}
	doc.StructuredData = json.RawMessage(`{"@type": "Article"}`)

	created, err := s.Create(ctx, doc)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID == uuid.Nil {
		t.Error("expected non-nil UUID")
	}

	found, err := s.FindBySlug(ctx, content.DocTypePost, slug)
	if err != nil {
		t.Fatalf("FindBySlug: %v", err)
	}
	if found == nil {
		t.Fatal("expected document, got nil")
	}
	if len(found.Blocks) != 4 {
		t.Fatalf("blocks: got %d, want 4", len(found.Blocks))
	}
	if p, ok := found.Blocks[1].(*content.Paragraph); !ok || len(p.BulletPoints) != 2 {
		t.Errorf("paragraph block not round-tripped: %#v", found.Blocks[1])
	}
	if img, ok := found.Blocks[2].(*content.Image); !ok || img.ExistingURL != "http://localhost/img.jpg" {
		t.Errorf("image block not round-tripped: %#v", found.Blocks[2])
	}
	if found.Geo == nil || found.Geo.City != "Dhaka" {
		t.Errorf("geo: got %+v", found.Geo)
	}
	if len(found.FAQs) != 1 {
		t.Errorf("faqs: got %d, want 1", len(found.FAQs))
	}

	// Same slug, other type is not a match.
	other, err := s.FindBySlug(ctx, content.DocTypeStory, slug)
	if err != nil {
		t.Fatalf("FindBySlug story: %v", err)
	}
	if other != nil {
		t.Error("expected nil for another document type")
	}
}

func TestDocumentStoreDuplicateSlug(t *testing.T) {
	db := testDB(t)
	s := NewDocumentStore(db)
	ctx := context.Background()

	slug := "test-dup-doc-" + uuid.NewString()[:8]
	deleteAfter(t, db, "documents", "slug", slug)

	if _, err := s.Create(ctx, testDocument(slug)); err != nil {
		t.Fatalf("Create: %v", err)
	}
	_, err := s.Create(ctx, testDocument(slug))
	if !errors.Is(err, ErrSlugTaken) {
		t.Errorf("expected ErrSlugTaken, got %v", err)
	}
}

func TestDocumentStoreUniqueSlug(t *testing.T) {
	db := testDB(t)
	s := NewDocumentStore(db)
	ctx := context.Background()

	base := "test-unique-" + uuid.NewString()[:8]
	deleteAfter(t, db, "documents", "slug", base, base+"-2", base+"-3")

	got, err := s.UniqueSlug(ctx, content.DocTypePost, base, uuid.Nil)
	if err != nil {
		t.Fatalf("UniqueSlug: %v", err)
	}
	if got != base {
		t.Errorf("free slug: got %q, want %q", got, base)
	}

	first, err := s.Create(ctx, testDocument(base))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := s.Create(ctx, testDocument(base+"-2")); err != nil {
		t.Fatalf("Create -2: %v", err)
	}

	got, _ = s.UniqueSlug(ctx, content.DocTypePost, base, uuid.Nil)
	if got != base+"-3" {
		t.Errorf("taken slug: got %q, want %q", got, base+"-3")
	}

	// The document being replaced may keep its own slug.
	got, _ = s.UniqueSlug(ctx, content.DocTypePost, base, first.ID)
	if got != base {
		t.Errorf("own slug: got %q, want %q", got, base)
	}
}

func TestDocumentStoreReplaceAndDelete(t *testing.T) {
	db := testDB(t)
	s := NewDocumentStore(db)
	ctx := context.Background()

	slug := "test-replace-doc-" + uuid.NewString()[:8]
	deleteAfter(t, db, "documents", "slug", slug)

	created, err := s.Create(ctx, testDocument(slug))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	replacement := testDocument(slug)
	replacement.ID = created.ID
	replacement.Title = "Replaced"
	replacement.Blocks = content.Blocks{&content.Paragraph{Text: "Only block"}}
	replacement.Tags = nil

	updated, err := s.Replace(ctx, replacement)
	if err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if updated.Title != "Replaced" || len(updated.Blocks) != 1 || len(updated.Tags) != 0 {
		t.Errorf("replace did not overwrite: %+v", updated)
	}
	if !updated.UpdatedAt.After(created.UpdatedAt) && !updated.UpdatedAt.Equal(created.UpdatedAt) {
		t.Error("updated_at moved backwards")
	}

	missing := testDocument(slug)
	missing.ID = uuid.New()
	gone, err := s.Replace(ctx, missing)
	if err != nil || gone != nil {
		t.Errorf("Replace unknown: got %v, %v; want nil, nil", gone, err)
	}

	if err := s.Delete(ctx, created.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	found, _ := s.FindBySlug(ctx, content.DocTypePost, slug)
	if found != nil {
		t.Error("expected nil after delete")
	}
}

func TestDocumentStoreList(t *testing.T) {
	db := testDB(t)
	s := NewDocumentStore(db)
	ctx := context.Background()

	slug := "test-list-doc-" + uuid.NewString()[:8]
	deleteAfter(t, db, "documents", "slug", slug)

	if _, err := s.Create(ctx, testDocument(slug)); err != nil {
		t.Fatalf("Create: %v", err)
	}

	docs, err := s.List(ctx, content.DocTypePost, 100, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	found := false
	for _, d := range docs {
		if d.Type != content.DocTypePost {
			t.Errorf("unexpected type %q in post list", d.Type)
		}
		if d.Slug == slug {
			found = true
		}
	}
	if !found {
		t.Error("created document missing from list")
	}
}
