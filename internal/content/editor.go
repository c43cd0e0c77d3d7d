// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package content

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrLastBlock is returned when removing the only remaining block.
	ErrLastBlock = errors.New("At least one content block is required.")

	// ErrBlockIndex is returned for an index outside the block list.
	ErrBlockIndex = errors.New("block index out of range")

	// ErrUnknownField is returned when a field does not exist on the block's kind.
	ErrUnknownField = errors.New("unknown block field")
)

// Field names accepted by UpdateField.
const (
	FieldCaption      = "caption"
	FieldText         = "text"
	FieldLevel        = "level"
	FieldBulletPoints = "bulletPoints"
	FieldAltText      = "altText"
	FieldImageURL     = "imageUrl"
	FieldHref         = "href"
	FieldTarget       = "target"
)

// Editor holds the ordered block list of a document being edited.
// It is not safe for concurrent use.
type Editor struct {
	blocks Blocks
}

// NewEditor returns an editor with a single empty paragraph.
func NewEditor() *Editor {
	return &Editor{blocks: Blocks{&Paragraph{}}}
}

// EditorFrom starts an editor on existing blocks (edit mode). An empty
// list gets a single paragraph so the one-block minimum holds.
func EditorFrom(blocks Blocks) *Editor {
	if len(blocks) == 0 {
		return NewEditor()
	}
	cp := make(Blocks, len(blocks))
	copy(cp, blocks)
	return &Editor{blocks: cp}
}

// Blocks returns the current blocks in order.
func (e *Editor) Blocks() Blocks {
	cp := make(Blocks, len(e.blocks))
	copy(cp, e.blocks)
	return cp
}

// Len returns the number of blocks.
func (e *Editor) Len() int {
	return len(e.blocks)
}

// Block returns the block at index i.
func (e *Editor) Block(i int) (Block, error) {
	if err := e.checkIndex(i); err != nil {
		return nil, err
	}
	return e.blocks[i], nil
}

// AddBlock appends a new block of the given kind with its defaults.
func (e *Editor) AddBlock(kind Kind) error {
	b, err := NewBlock(kind)
	if err != nil {
		return err
	}
	e.blocks = append(e.blocks, b)
	return nil
}

// ChangeBlockKind replaces the block at i with a fresh block of kind.
// Only the caption survives; all kind-specific values are discarded.
func (e *Editor) ChangeBlockKind(i int, kind Kind) error {
	if err := e.checkIndex(i); err != nil {
		return err
	}
	b, err := NewBlock(kind)
	if err != nil {
		return err
	}
	b.base().Caption = Caption(e.blocks[i])
	e.blocks[i] = b
	return nil
}

// RemoveBlock deletes the block at i. The last block cannot be removed.
func (e *Editor) RemoveBlock(i int) error {
	if err := e.checkIndex(i); err != nil {
		return err
	}
	if len(e.blocks) == 1 {
		return ErrLastBlock
	}
	e.blocks = append(e.blocks[:i], e.blocks[i+1:]...)
	return nil
}

// AttachImage sets a new file on the image block at i.
func (e *Editor) AttachImage(i int, file *Attachment) error {
	if err := e.checkIndex(i); err != nil {
		return err
	}
	img, ok := e.blocks[i].(*Image)
	if !ok {
		return fmt.Errorf("%w: block %d is %s, not image", ErrUnknownField, i+1, e.blocks[i].Kind())
	}
	img.File = file
	return nil
}

// UpdateField sets one field of the block at i from form input.
// Bullet points are given as comma-separated text.
func (e *Editor) UpdateField(i int, field, value string) error {
	if err := e.checkIndex(i); err != nil {
		return err
	}
	b := e.blocks[i]

	if field == FieldCaption {
		b.base().Caption = value
		return nil
	}

	switch v := b.(type) {
	case *Heading:
		switch field {
		case FieldText:
			v.Text = value
			return nil
		case FieldLevel:
			level, err := strconv.Atoi(strings.TrimSpace(value))
			if err != nil || level < 1 || level > 6 {
				return fmt.Errorf("heading level must be between 1 and 6, got %q", value)
			}
			v.Level = level
			return nil
		}
	case *Paragraph:
		switch field {
		case FieldText:
			v.Text = value
			return nil
		case FieldBulletPoints:
			v.BulletPoints = SplitList(value)
			return nil
		}
	case *Image:
		switch field {
		case FieldAltText:
			v.AltText = value
			return nil
		case FieldImageURL:
			v.ExistingURL = value
			return nil
		}
	case *Link:
		switch field {
		case FieldText:
			v.Text = value
			return nil
		case FieldHref:
			v.Href = value
			return nil
		case FieldTarget:
			if value != TargetBlank && value != TargetSelf {
				return fmt.Errorf("link target must be %s or %s, got %q", TargetBlank, TargetSelf, value)
			}
			v.Target = value
			return nil
		}
	}
	return fmt.Errorf("%w: %q on %s block", ErrUnknownField, field, b.Kind())
}

// ValidateAll checks every block; see Validate.
func (e *Editor) ValidateAll() error {
	return Validate(e.blocks)
}

func (e *Editor) checkIndex(i int) error {
	if i < 0 || i >= len(e.blocks) {
		return fmt.Errorf("%w: %d", ErrBlockIndex, i)
	}
	return nil
}

// SplitList splits comma-separated input, trims each entry and drops
// empty ones: "a, b,  ,c" becomes ["a" "b" "c"].
func SplitList(s string) []string {
	parts := strings.Split(s, ",")
	return Compact(parts)
}

// Compact trims entries and drops the blank ones.
func Compact(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
