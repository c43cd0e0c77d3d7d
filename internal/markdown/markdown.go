// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package markdown renders document blocks to HTML. Paragraph text is
// Markdown and goes through goldmark; raw HTML in it is escaped.
package markdown

import (
	"bytes"
	"fmt"
	"html"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"

	"marketsite/internal/content"
)

// md is the configured goldmark instance, reused across calls.
var md = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,         // GitHub-Flavored Markdown: tables, strikethrough, autolinks, task lists
		extension.Typographer, // Smart quotes and dashes
	),
	goldmark.WithParserOptions(
		parser.WithAutoHeadingID(),
	),
)

// ToHTML converts Markdown source into HTML.
func ToHTML(source string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(source), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderBlocks renders blocks in order. Captions become <figcaption>
// elements on images and a trailing <p class="caption"> elsewhere.
func RenderBlocks(blocks content.Blocks) (string, error) {
	var sb strings.Builder
	for i, b := range blocks {
		if err := renderBlock(&sb, b); err != nil {
			return "", fmt.Errorf("render block %d: %w", i+1, err)
		}
	}
	return sb.String(), nil
}

func renderBlock(sb *strings.Builder, b content.Block) error {
	caption := strings.TrimSpace(content.Caption(b))

	switch v := b.(type) {
	case *content.Heading:
		fmt.Fprintf(sb, "<h%d>%s</h%d>\n", v.Level, html.EscapeString(v.Text), v.Level)
	case *content.Paragraph:
		body, err := ToHTML(v.Text)
		if err != nil {
			return err
		}
		sb.WriteString(body)
		if points := content.Compact(v.BulletPoints); len(points) > 0 {
			sb.WriteString("<ul>\n")
			for _, p := range points {
				fmt.Fprintf(sb, "<li>%s</li>\n", html.EscapeString(p))
			}
			sb.WriteString("</ul>\n")
		}
	case *content.Image:
		sb.WriteString("<figure>")
		fmt.Fprintf(sb, `<img src="%s" alt="%s">`, html.EscapeString(v.ExistingURL), html.EscapeString(v.AltText))
		if caption != "" {
			fmt.Fprintf(sb, "<figcaption>%s</figcaption>", html.EscapeString(caption))
		}
		sb.WriteString("</figure>\n")
		return nil
	case *content.Link:
		rel := ""
		if v.Target == content.TargetBlank {
			rel = ` rel="noopener noreferrer"`
		}
		fmt.Fprintf(sb, `<p><a href="%s" target="%s"%s>%s</a></p>`+"\n",
			html.EscapeString(v.Href), html.EscapeString(v.Target), rel, html.EscapeString(v.Text))
	}

	if caption != "" {
		fmt.Fprintf(sb, "<p class=\"caption\">%s</p>\n", html.EscapeString(caption))
	}
	return nil
}
