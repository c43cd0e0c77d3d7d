// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package content

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBlockDefaults(t *testing.T) {
	tests := []struct {
		kind  Kind
		check func(t *testing.T, b Block)
	}{
		{KindHeading, func(t *testing.T, b Block) {
			assert.Equal(t, DefaultHeadingLevel, b.(*Heading).Level)
		}},
		{KindParagraph, func(t *testing.T, b Block) {
			assert.Empty(t, b.(*Paragraph).Text)
		}},
		{KindImage, func(t *testing.T, b Block) {
			assert.Nil(t, b.(*Image).File)
		}},
		{KindLink, func(t *testing.T, b Block) {
			assert.Equal(t, TargetBlank, b.(*Link).Target)
		}},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			b, err := NewBlock(tt.kind)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, b.Kind())
			tt.check(t, b)
		})
	}

	_, err := NewBlock("video")
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestEditorAddBlockHasNoLimit(t *testing.T) {
	e := NewEditor()
	for range 50 {
		require.NoError(t, e.AddBlock(KindLink))
	}
	assert.Equal(t, 51, e.Len())
}

func TestEditorChangeBlockKindResetsFields(t *testing.T) {
	e := NewEditor()
	require.NoError(t, e.UpdateField(0, FieldText, "typed text"))
	require.NoError(t, e.UpdateField(0, FieldCaption, "a caption"))

	require.NoError(t, e.ChangeBlockKind(0, KindImage))

	b, err := e.Block(0)
	require.NoError(t, err)
	img, ok := b.(*Image)
	require.True(t, ok, "block should now be an image")
	assert.Empty(t, img.AltText)
	assert.Empty(t, img.ExistingURL)
	assert.Equal(t, "a caption", img.Caption)

	// Switching back does not restore the lost text.
	require.NoError(t, e.ChangeBlockKind(0, KindParagraph))
	b, _ = e.Block(0)
	assert.Empty(t, b.(*Paragraph).Text)
}

func TestEditorUpdateFieldBulletPoints(t *testing.T) {
	e := NewEditor()
	require.NoError(t, e.UpdateField(0, FieldBulletPoints, "a, b,  ,c"))

	b, _ := e.Block(0)
	assert.Equal(t, []string{"a", "b", "c"}, b.(*Paragraph).BulletPoints)
}

func TestEditorUpdateFieldErrors(t *testing.T) {
	e := NewEditor()
	require.NoError(t, e.AddBlock(KindHeading))
	require.NoError(t, e.AddBlock(KindLink))

	assert.ErrorIs(t, e.UpdateField(0, FieldHref, "https://x"), ErrUnknownField)
	assert.ErrorIs(t, e.UpdateField(9, FieldText, "x"), ErrBlockIndex)
	assert.Error(t, e.UpdateField(1, FieldLevel, "7"))
	assert.Error(t, e.UpdateField(2, FieldTarget, "_top"))

	require.NoError(t, e.UpdateField(1, FieldLevel, " 3 "))
	b, _ := e.Block(1)
	assert.Equal(t, 3, b.(*Heading).Level)
}

func TestEditorRemoveLastBlock(t *testing.T) {
	e := NewEditor()

	err := e.RemoveBlock(0)
	assert.True(t, errors.Is(err, ErrLastBlock))
	assert.Equal(t, 1, e.Len())
}

func TestEditorRemoveBlock(t *testing.T) {
	e := NewEditor()
	require.NoError(t, e.AddBlock(KindHeading))
	require.NoError(t, e.AddBlock(KindLink))

	require.NoError(t, e.RemoveBlock(1))

	blocks := e.Blocks()
	require.Len(t, blocks, 2)
	assert.Equal(t, KindParagraph, blocks[0].Kind())
	assert.Equal(t, KindLink, blocks[1].Kind())
}

func TestEditorAttachImage(t *testing.T) {
	e := NewEditor()
	require.NoError(t, e.AddBlock(KindImage))

	file := &Attachment{Filename: "a.png", ContentType: "image/png", Data: []byte("png")}
	assert.Error(t, e.AttachImage(0, file), "paragraph cannot take a file")
	require.NoError(t, e.AttachImage(1, file))

	b, _ := e.Block(1)
	assert.Same(t, file, b.(*Image).File)
}

func TestEditorFromEmpty(t *testing.T) {
	e := EditorFrom(nil)
	assert.Equal(t, 1, e.Len())
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, SplitList("a, b,  ,c"))
	assert.Equal(t, []string{}, SplitList(" , ,"))
	assert.Equal(t, []string{"single"}, SplitList("single"))
}
