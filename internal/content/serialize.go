// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package content

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"strings"
	"time"

	"marketsite/internal/slug"
)

// Field is one scalar multipart field.
type Field struct {
	Name  string
	Value string
}

// FilePart is one binary attachment. Name is the placeholder key the
// matching block refers to.
type FilePart struct {
	Name        string
	Filename    string
	ContentType string
	Data        []byte
}

// Payload is a serialized submission ready to be sent as multipart/form-data.
type Payload struct {
	Fields []Field
	Files  []FilePart
}

// Value returns the first field with the given name.
func (p *Payload) Value(name string) string {
	for _, f := range p.Fields {
		if f.Name == name {
			return f.Value
		}
	}
	return ""
}

// File returns the file part stored under the placeholder key.
func (p *Payload) File(key string) (FilePart, bool) {
	for _, f := range p.Files {
		if f.Name == key {
			return f, true
		}
	}
	return FilePart{}, false
}

// Encode writes the payload as a multipart body and returns it along with
// the Content-Type header value carrying the boundary.
func (p *Payload) Encode() (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)

	for _, f := range p.Fields {
		if err := mw.WriteField(f.Name, f.Value); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", f.Name, err)
		}
	}

	for _, f := range p.Files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, f.Name, f.Filename))
		ct := f.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		h.Set("Content-Type", ct)
		part, err := mw.CreatePart(h)
		if err != nil {
			return nil, "", fmt.Errorf("create part %s: %w", f.Name, err)
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, "", fmt.Errorf("write part %s: %w", f.Name, err)
		}
	}

	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart: %w", err)
	}
	return body, mw.FormDataContentType(), nil
}

// Serializer converts a form into a Payload. Now is used for placeholder
// keys and defaults to time.Now.
type Serializer struct {
	Now func() time.Time
}

// PlaceholderKey names the file part for a new image in block index.
func PlaceholderKey(index int, at time.Time) string {
	return fmt.Sprintf("image_%d_%d", index, at.UnixMilli())
}

// AdvisorySlug is the slug suggested to the server. The server owns
// uniqueness and may change it.
func AdvisorySlug(f *Form) string {
	if s := slug.Generate(f.Slug); s != "" {
		return s
	}
	return slug.Generate(f.Title)
}

// Serialize walks the blocks in order, splitting new image files into
// separate parts. Images without a new file keep their existing URL.
func (s Serializer) Serialize(f *Form) (*Payload, error) {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	at := now()

	p := &Payload{}
	wire := make([]wireBlock, len(f.Blocks))
	for i, b := range f.Blocks {
		key := ""
		if img, ok := b.(*Image); ok && img.File != nil {
			key = PlaceholderKey(i, at)
			p.Files = append(p.Files, FilePart{
				Name:        key,
				Filename:    img.File.Filename,
				ContentType: img.File.ContentType,
				Data:        img.File.Data,
			})
		}
		wire[i] = toWire(b, key)
	}

	blocksJSON, err := json.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("encode content blocks: %w", err)
	}

	p.Fields = []Field{
		{"type", string(f.Type)},
		{"title", strings.TrimSpace(f.Title)},
		{"slug", AdvisorySlug(f)},
		{"metaTitle", strings.TrimSpace(f.MetaTitle)},
		{"metaDescription", strings.TrimSpace(f.MetaDescription)},
		{"author", strings.TrimSpace(f.Author)},
		{"category", strings.TrimSpace(f.Category)},
		{"contentBlocks", string(blocksJSON)},
	}

	lists := []struct {
		name  string
		value any
	}{
		{"tags", Compact(f.Tags)},
		{"keyPoints", Compact(f.KeyPoints)},
		{"lsiKeywords", Compact(f.LSIKeywords)},
		{"citations", Compact(f.Citations)},
		{"faqs", compactFAQs(f.FAQs)},
	}
	for _, l := range lists {
		raw, err := json.Marshal(l.value)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", l.name, err)
		}
		p.Fields = append(p.Fields, Field{l.name, string(raw)})
	}

	if !f.Geo.IsZero() {
		raw, err := json.Marshal(f.Geo)
		if err != nil {
			return nil, fmt.Errorf("encode geoTargeting: %w", err)
		}
		p.Fields = append(p.Fields, Field{"geoTargeting", string(raw)})
	}
	if sd := strings.TrimSpace(f.StructuredData); sd != "" {
		p.Fields = append(p.Fields, Field{"structuredData", sd})
	}

	return p, nil
}
