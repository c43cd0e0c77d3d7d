// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package content

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"marketsite/internal/validation"
)

// DocType distinguishes blog posts from featured stories. Both share the
// same form and the same documents table.
type DocType string

const (
	DocTypePost  DocType = "post"
	DocTypeStory DocType = "story"
)

// FAQ is a question/answer pair used for SEO rich results.
type FAQ struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// GeoTarget narrows a document to a location for local SEO.
type GeoTarget struct {
	Country string `json:"country,omitempty"`
	Region  string `json:"region,omitempty"`
	City    string `json:"city,omitempty"`
}

// IsZero reports whether no location is set.
func (g *GeoTarget) IsZero() bool {
	return g == nil || (g.Country == "" && g.Region == "" && g.City == "")
}

// Form is the in-progress state of a post or story editor.
type Form struct {
	Type            DocType    `json:"type" validate:"required,oneof=post story"`
	Title           string     `json:"title" validate:"required,max=200"`
	Slug            string     `json:"slug" validate:"max=75"`
	MetaTitle       string     `json:"metaTitle" validate:"max=70"`
	MetaDescription string     `json:"metaDescription" validate:"max=160"`
	Author          string     `json:"author" validate:"required,max=100"`
	Category        string     `json:"category" validate:"required,max=100"`
	Tags            []string   `json:"tags"`
	Blocks          Blocks     `json:"-"`
	FAQs            []FAQ      `json:"faqs"`
	KeyPoints       []string   `json:"keyPoints"`
	LSIKeywords     []string   `json:"lsiKeywords"`
	Citations       []string   `json:"citations"`
	Geo             *GeoTarget `json:"geoTargeting,omitempty"`
	StructuredData  string     `json:"structuredData"`
}

// Validate runs the scalar field checks, then the block checks. It does
// not modify the form.
func (f *Form) Validate(v *validation.Validator) error {
	trimmed := *f
	trimmed.Title = strings.TrimSpace(f.Title)
	trimmed.Author = strings.TrimSpace(f.Author)
	trimmed.Category = strings.TrimSpace(f.Category)
	if err := v.Validate(&trimmed); err != nil {
		return err
	}

	if sd := strings.TrimSpace(f.StructuredData); sd != "" && !json.Valid([]byte(sd)) {
		return validation.FieldErrors{"structuredData": "must be valid JSON"}
	}

	return Validate(f.Blocks)
}

// UserMessage turns a validation error into the sentence shown to the user.
func UserMessage(err error) string {
	var blockErr *ValidationError
	if errors.As(err, &blockErr) {
		return blockErr.Message
	}
	var fieldErrs validation.FieldErrors
	if errors.As(err, &fieldErrs) {
		return fieldErrs.First()
	}
	return err.Error()
}

// Submission is a decoded multipart submission. ImageKeys maps a block
// index to the placeholder naming the file part that holds its new image.
type Submission struct {
	Form      Form
	ImageKeys map[int]string
}

// DecodeFields rebuilds a submission from multipart field values, the
// inverse of Serializer.Serialize for everything except file parts.
func DecodeFields(values map[string][]string) (*Submission, error) {
	get := func(name string) string {
		if vs := values[name]; len(vs) > 0 {
			return vs[0]
		}
		return ""
	}

	sub := &Submission{
		Form: Form{
			Type:            DocType(get("type")),
			Title:           get("title"),
			Slug:            get("slug"),
			MetaTitle:       get("metaTitle"),
			MetaDescription: get("metaDescription"),
			Author:          get("author"),
			Category:        get("category"),
			StructuredData:  get("structuredData"),
		},
	}

	if raw := get("contentBlocks"); raw != "" {
		blocks, keys, err := decodeBlocks([]byte(raw))
		if err != nil {
			return nil, err
		}
		sub.Form.Blocks = blocks
		sub.ImageKeys = keys
	}

	lists := []struct {
		field string
		dst   *[]string
	}{
		{"tags", &sub.Form.Tags},
		{"keyPoints", &sub.Form.KeyPoints},
		{"lsiKeywords", &sub.Form.LSIKeywords},
		{"citations", &sub.Form.Citations},
	}
	for _, l := range lists {
		if err := decodeJSONField(get(l.field), l.field, l.dst); err != nil {
			return nil, err
		}
		*l.dst = Compact(*l.dst)
	}

	if err := decodeJSONField(get("faqs"), "faqs", &sub.Form.FAQs); err != nil {
		return nil, err
	}
	sub.Form.FAQs = compactFAQs(sub.Form.FAQs)

	if raw := get("geoTargeting"); raw != "" {
		var geo GeoTarget
		if err := decodeJSONField(raw, "geoTargeting", &geo); err != nil {
			return nil, err
		}
		if !geo.IsZero() {
			sub.Form.Geo = &geo
		}
	}

	return sub, nil
}

func decodeJSONField(raw, name string, dst any) error {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}

// compactFAQs drops pairs missing either the question or the answer.
func compactFAQs(faqs []FAQ) []FAQ {
	out := make([]FAQ, 0, len(faqs))
	for _, f := range faqs {
		q, a := strings.TrimSpace(f.Question), strings.TrimSpace(f.Answer)
		if q == "" || a == "" {
			continue
		}
		out = append(out, FAQ{Question: q, Answer: a})
	}
	return out
}
