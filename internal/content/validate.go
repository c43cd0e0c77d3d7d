// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package content

import (
	"fmt"
	"strings"
)

// ValidationError reports the first invalid block. Index is zero-based;
// the message numbers blocks from one.
type ValidationError struct {
	Index   int
	Kind    Kind
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Validate checks blocks in order and fails on the first invalid one.
// An empty list is invalid.
func Validate(blocks Blocks) error {
	if len(blocks) == 0 {
		return &ValidationError{Index: -1, Message: ErrLastBlock.Error()}
	}

	for i, b := range blocks {
		if msg := blockProblem(b, i+1); msg != "" {
			return &ValidationError{Index: i, Kind: b.Kind(), Message: msg}
		}
	}
	return nil
}

func blockProblem(b Block, n int) string {
	switch v := b.(type) {
	case *Heading:
		if blank(v.Text) {
			return fmt.Sprintf("Please enter text for block %d.", n)
		}
		if v.Level < 1 || v.Level > 6 {
			return fmt.Sprintf("Heading level for block %d must be between 1 and 6.", n)
		}
	case *Paragraph:
		if blank(v.Text) {
			return fmt.Sprintf("Please enter text for block %d.", n)
		}
	case *Image:
		if v.File == nil && blank(v.ExistingURL) {
			return fmt.Sprintf("Please upload an image for image block %d.", n)
		}
		if blank(v.AltText) {
			return fmt.Sprintf("Please add alt text for image block %d.", n)
		}
	case *Link:
		if blank(v.Text) || blank(v.Href) {
			return fmt.Sprintf("Please provide both link text and URL for block %d.", n)
		}
	default:
		return fmt.Sprintf("Block %d has an unsupported type.", n)
	}
	return ""
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
