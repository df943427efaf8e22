package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePageIDBareForm(t *testing.T) {
	id, err := NormalizePageID("550e8400e29b41d4a716446655440000")
	require.NoError(t, err)
	assert.Equal(t, "550e8400-e29b-41d4-a716-446655440000", id)
}

func TestNormalizePageIDHyphenatedForm(t *testing.T) {
	id, err := NormalizePageID("550E8400-E29B-41D4-A716-446655440000")
	require.NoError(t, err)
	assert.Equal(t, "550e8400-e29b-41d4-a716-446655440000", id)
}

func TestNormalizePageIDEmbedded(t *testing.T) {
	id, err := NormalizePageID("https://workspace.example/My-Page-550e8400e29b41d4a716446655440000")
	require.NoError(t, err)
	assert.Equal(t, "550e8400-e29b-41d4-a716-446655440000", id)
}

func TestNormalizePageIDRejectsGarbage(t *testing.T) {
	_, err := NormalizePageID("not-a-page-id")
	assert.Error(t, err)

	_, err = NormalizePageID("")
	assert.Error(t, err)
}

func TestParseMetadataComment(t *testing.T) {
	html := `<!--
  Page ID: 550e8400e29b41d4a716446655440000
  URL: https://docs.example.com/topic
  Captured: 2026-08-01
-->
<html><body><p>content</p></body></html>`

	meta := ParseMetadataComment(html)
	require.NotNil(t, meta)
	assert.Equal(t, "550e8400-e29b-41d4-a716-446655440000", meta.PageID)
	assert.Equal(t, "https://docs.example.com/topic", meta.URL)
	assert.Equal(t, "2026-08-01", meta.Fields["captured"])
}

func TestNewSourceDocumentFromMetadata(t *testing.T) {
	html := `<!--
  Page ID: 550e8400e29b41d4a716446655440000
  URL: https://docs.example.com/topic
-->
<html><body><p>content</p></body></html>`

	doc := NewSourceDocument(html, "", "")
	assert.Equal(t, "550e8400-e29b-41d4-a716-446655440000", doc.TargetPageID)
	assert.Equal(t, "https://docs.example.com/topic", doc.SourceURL)

	// An explicit URL wins over the metadata comment
	doc = NewSourceDocument(html, "Title", "https://else.example.com/page")
	assert.Equal(t, "https://else.example.com/page", doc.SourceURL)
	assert.Equal(t, "Title", doc.Title)
}

func TestNewSourceDocumentWithoutMetadata(t *testing.T) {
	doc := NewSourceDocument("<p>plain</p>", "T", "")
	assert.Empty(t, doc.TargetPageID)
	assert.Empty(t, doc.SourceURL)
}

func TestParseMetadataCommentMissing(t *testing.T) {
	assert.Nil(t, ParseMetadataComment("<html><body><p>no comment</p></body></html>"))
}

func TestParseMetadataCommentOnlyLeading(t *testing.T) {
	html := `<html><body><p>x</p><!-- Page ID: 550e8400e29b41d4a716446655440000 --></body></html>`
	assert.Nil(t, ParseMetadataComment(html), "non-leading comments are content, not metadata")
}
