// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"slices"
	"testing"

	"github.com/google/uuid"
)

func TestMediaObjectKeys(t *testing.T) {
	thumb := "content/post/ab12_thumb.jpg"
	empty := ""

	tests := []struct {
		name  string
		media Media
		want  []string
	}{
		{"image with thumbnail", Media{S3Key: "content/post/ab12.jpg", ThumbS3Key: &thumb}, []string{"content/post/ab12.jpg", thumb}},
		{"small image without thumbnail", Media{S3Key: "content/story/cd34.png"}, []string{"content/story/cd34.png"}},
		{"empty thumbnail key", Media{S3Key: "content/story/cd34.png", ThumbS3Key: &empty}, []string{"content/story/cd34.png"}},
		{"nothing uploaded", Media{}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.media.ObjectKeys(); !slices.Equal(got, tt.want) {
				t.Errorf("ObjectKeys() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMediaAttached(t *testing.T) {
	m := Media{S3Key: "content/post/a.jpg"}
	if m.Attached() {
		t.Error("fresh upload should not be attached")
	}
	id := uuid.New()
	m.DocumentID = &id
	if !m.Attached() {
		t.Error("media with a document id should be attached")
	}
}
