// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package content implements the structured content submission pipeline:
// typed content blocks, the block editor, validation, multipart
// serialization for the persistence API and the submission lifecycle.
package content

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Kind identifies the type of a content block.
type Kind string

const (
	KindHeading   Kind = "heading"
	KindParagraph Kind = "paragraph"
	KindImage     Kind = "image"
	KindLink      Kind = "link"
)

// Link targets accepted by link blocks.
const (
	TargetBlank = "_blank"
	TargetSelf  = "_self"
)

// DefaultHeadingLevel is the level a new heading block starts with.
const DefaultHeadingLevel = 2

// ErrUnknownKind is returned for a block kind outside the four supported ones.
var ErrUnknownKind = errors.New("unknown block kind")

// Block is one unit of a document body. The concrete types are *Heading,
// *Paragraph, *Image and *Link.
type Block interface {
	Kind() Kind
	base() *Base
}

// Base holds the fields every block kind shares.
type Base struct {
	Caption string `json:"caption,omitempty"`
}

func (b *Base) base() *Base { return b }

// Heading is a section title with a level from 1 to 6.
type Heading struct {
	Base
	Level int
	Text  string
}

// Paragraph is body text with optional bullet points.
type Paragraph struct {
	Base
	Text         string
	BulletPoints []string
}

// Attachment is a new image file chosen for an image block.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Image is a picture block. In edit mode ExistingURL carries the
// previously stored image; File is set when a replacement is chosen.
type Image struct {
	Base
	File        *Attachment
	ExistingURL string
	AltText     string
}

// Link is an outbound or internal hyperlink.
type Link struct {
	Base
	Text   string
	Href   string
	Target string
}

func (*Heading) Kind() Kind   { return KindHeading }
func (*Paragraph) Kind() Kind { return KindParagraph }
func (*Image) Kind() Kind     { return KindImage }
func (*Link) Kind() Kind      { return KindLink }

// NewBlock returns an empty block of the given kind with its defaults set.
func NewBlock(kind Kind) (Block, error) {
	switch kind {
	case KindHeading:
		return &Heading{Level: DefaultHeadingLevel}, nil
	case KindParagraph:
		return &Paragraph{}, nil
	case KindImage:
		return &Image{}, nil
	case KindLink:
		return &Link{Target: TargetBlank}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// Caption returns the shared caption of any block.
func Caption(b Block) string {
	return b.base().Caption
}

// wireBlock is the JSON shape of a block on the persistence API and in
// the documents table. ImageKey is only set in submissions and names the
// multipart file part holding the new image.
type wireBlock struct {
	Type         Kind     `json:"type"`
	Level        int      `json:"level,omitempty"`
	Text         string   `json:"text,omitempty"`
	BulletPoints []string `json:"bulletPoints,omitempty"`
	ImageURL     string   `json:"imageUrl,omitempty"`
	ImageKey     string   `json:"imageKey,omitempty"`
	AltText      string   `json:"altText,omitempty"`
	Href         string   `json:"href,omitempty"`
	Target       string   `json:"target,omitempty"`
	Caption      string   `json:"caption,omitempty"`
}

func toWire(b Block, imageKey string) wireBlock {
	w := wireBlock{Type: b.Kind(), Caption: Caption(b)}
	switch v := b.(type) {
	case *Heading:
		w.Level = v.Level
		w.Text = v.Text
	case *Paragraph:
		w.Text = v.Text
		w.BulletPoints = v.BulletPoints
	case *Image:
		w.AltText = v.AltText
		if imageKey != "" {
			w.ImageKey = imageKey
		} else {
			w.ImageURL = v.ExistingURL
		}
	case *Link:
		w.Text = v.Text
		w.Href = v.Href
		w.Target = v.Target
	}
	return w
}

func fromWire(w wireBlock) (Block, string, error) {
	base := Base{Caption: w.Caption}
	switch w.Type {
	case KindHeading:
		level := w.Level
		if level == 0 {
			level = DefaultHeadingLevel
		}
		return &Heading{Base: base, Level: level, Text: w.Text}, "", nil
	case KindParagraph:
		return &Paragraph{Base: base, Text: w.Text, BulletPoints: w.BulletPoints}, "", nil
	case KindImage:
		return &Image{Base: base, ExistingURL: w.ImageURL, AltText: w.AltText}, w.ImageKey, nil
	case KindLink:
		target := w.Target
		if target == "" {
			target = TargetBlank
		}
		return &Link{Base: base, Text: w.Text, Href: w.Href, Target: target}, "", nil
	default:
		return nil, "", fmt.Errorf("%w: %q", ErrUnknownKind, w.Type)
	}
}

// Blocks is an ordered block list with a JSON encoding that tags every
// element with its kind.
type Blocks []Block

// MarshalJSON encodes the blocks as tagged objects. New image files are
// not part of the JSON; the serializer handles them separately.
func (bs Blocks) MarshalJSON() ([]byte, error) {
	out := make([]wireBlock, len(bs))
	for i, b := range bs {
		out[i] = toWire(b, "")
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes tagged block objects.
func (bs *Blocks) UnmarshalJSON(data []byte) error {
	decoded, _, err := decodeBlocks(data)
	if err != nil {
		return err
	}
	*bs = decoded
	return nil
}

// decodeBlocks decodes tagged JSON blocks and returns, per index, the
// placeholder key of any image awaiting upload.
func decodeBlocks(data []byte) (Blocks, map[int]string, error) {
	var wire []wireBlock
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, nil, fmt.Errorf("decode content blocks: %w", err)
	}

	blocks := make(Blocks, 0, len(wire))
	keys := make(map[int]string)
	for i, w := range wire {
		b, key, err := fromWire(w)
		if err != nil {
			return nil, nil, fmt.Errorf("block %d: %w", i+1, err)
		}
		if key != "" {
			keys[i] = key
		}
		blocks = append(blocks, b)
	}
	return blocks, keys, nil
}
