// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"marketsite/internal/apiclient"
	"marketsite/internal/content"
	"marketsite/internal/imaging"
	"marketsite/internal/validation"
)

// defaultAPIURL is where a local server listens with the default APP_PORT.
const defaultAPIURL = "http://localhost:8080"

// connectFunc builds the persister a draft is sent through.
type connectFunc func(apiURL, token string) content.Persister

func remotePersister(apiURL, token string) content.Persister {
	return apiclient.New(apiURL, apiclient.WithToken(token))
}

// draft is a post or story on disk. Image blocks name their file relative
// to the draft.
type draft struct {
	content.Form
	Blocks []draftBlock `json:"blocks"`
}

type draftBlock struct {
	Type         content.Kind `json:"type"`
	Caption      string       `json:"caption"`
	Level        int          `json:"level"`
	Text         string       `json:"text"`
	BulletPoints []string     `json:"bulletPoints"`
	File         string       `json:"file"`
	ImageURL     string       `json:"imageUrl"`
	AltText      string       `json:"altText"`
	Href         string       `json:"href"`
	Target       string       `json:"target"`
}

// submitDocument sends a draft file through the content submitter, creating
// a document or, with -slug, replacing the one stored under that slug.
func submitDocument(ctx context.Context, args []string, out io.Writer, connect connectFunc) error {
	fs := flag.NewFlagSet("document submit", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	file := fs.String("file", "", "draft JSON file")
	slug := fs.String("slug", "", "slug of the document to replace")
	api := fs.String("api", envOr("MARKETSITE_API_URL", defaultAPIURL), "API base URL")
	token := fs.String("token", os.Getenv("MARKETSITE_TOKEN"), "session id of an editor or admin")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if *file == "" {
		return fmt.Errorf("%w: -file is required", errUsage)
	}

	form, err := loadDraft(*file)
	if err != nil {
		return err
	}

	sub := content.NewSubmitter(connect(*api, *token), validation.New(), slog.Default())
	rec, err := sub.Submit(ctx, form, *slug)
	sub.Close()
	if err != nil {
		return fmt.Errorf("submit %s: %w", *file, err)
	}

	verb := "created"
	if *slug != "" {
		verb = "replaced"
	}
	fmt.Fprintf(out, "%s %s %q at /%s (%s)\n", verb, rec.Type, rec.Title, rec.Slug, rec.ID)
	return nil
}

// loadDraft reads a draft file and builds its blocks with the editor.
func loadDraft(path string) (*content.Form, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read draft: %w", err)
	}
	var d draft
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("parse draft %s: %w", path, err)
	}
	if len(d.Blocks) == 0 {
		return nil, fmt.Errorf("draft %s: %w", path, content.ErrLastBlock)
	}

	e := content.NewEditor()
	dir := filepath.Dir(path)
	for i, b := range d.Blocks {
		if i == 0 {
			err = e.ChangeBlockKind(0, b.Type)
		} else {
			err = e.AddBlock(b.Type)
		}
		if err != nil {
			return nil, fmt.Errorf("block %d: %w", i+1, err)
		}
		if err := fillBlock(e, i, b, dir); err != nil {
			return nil, fmt.Errorf("block %d: %w", i+1, err)
		}
	}

	form := d.Form
	form.Blocks = e.Blocks()
	return &form, nil
}

func fillBlock(e *content.Editor, i int, b draftBlock, dir string) error {
	fields := []struct{ name, value string }{
		{content.FieldCaption, b.Caption},
		{content.FieldText, b.Text},
		{content.FieldAltText, b.AltText},
		{content.FieldImageURL, b.ImageURL},
		{content.FieldHref, b.Href},
		{content.FieldTarget, b.Target},
	}
	if b.Level != 0 {
		fields = append(fields, struct{ name, value string }{content.FieldLevel, strconv.Itoa(b.Level)})
	}
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		if err := e.UpdateField(i, f.name, f.value); err != nil {
			return err
		}
	}

	if len(b.BulletPoints) > 0 {
		block, err := e.Block(i)
		if err != nil {
			return err
		}
		p, ok := block.(*content.Paragraph)
		if !ok {
			return fmt.Errorf("%w: %q on %s block", content.ErrUnknownField, content.FieldBulletPoints, block.Kind())
		}
		p.BulletPoints = content.Compact(b.BulletPoints)
	}

	if b.File != "" {
		att, err := readImage(filepath.Join(dir, b.File))
		if err != nil {
			return err
		}
		return e.AttachImage(i, att)
	}
	return nil
}

func readImage(path string) (*content.Attachment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	contentType := mime.TypeByExtension(filepath.Ext(path))
	if !imaging.Allowed(contentType) {
		contentType = http.DetectContentType(data)
	}
	if !imaging.Allowed(contentType) {
		return nil, fmt.Errorf("%s: unsupported image type %s", filepath.Base(path), contentType)
	}
	return &content.Attachment{Filename: filepath.Base(path), ContentType: contentType, Data: data}, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
