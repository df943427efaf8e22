package models

import (
	"fmt"
	"regexp"
	"strings"
)

// SourceDocument is one captured HTML document submitted for conversion.
// It lives for the duration of a single request.
type SourceDocument struct {
	HTML         string `json:"html"`
	Title        string `json:"title,omitempty"`
	SourceURL    string `json:"source_url,omitempty"`
	TargetPageID string `json:"target_page_id,omitempty"`
}

// NewSourceDocument builds the request's document from the caller-supplied
// fields, filling the source URL and target page id from the document's
// leading metadata comment. Explicit fields always win over metadata.
func NewSourceDocument(html, title, sourceURL string) *SourceDocument {
	doc := &SourceDocument{
		HTML:      html,
		Title:     title,
		SourceURL: sourceURL,
	}
	if meta := ParseMetadataComment(html); meta != nil {
		if doc.SourceURL == "" {
			doc.SourceURL = meta.URL
		}
		doc.TargetPageID = meta.PageID
	}
	return doc
}

var (
	// pageIDPattern matches both the bare 32-char form and the hyphenated form
	pageIDPattern = regexp.MustCompile(`(?i)[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}|[0-9a-f]{32}`)

	metadataComment = regexp.MustCompile(`(?s)\A\s*<!--(.*?)-->`)
	metadataLine    = regexp.MustCompile(`(?m)^\s*([A-Za-z][A-Za-z0-9 _-]*):\s*(.+?)\s*$`)
)

// DocumentMetadata is the parsed leading comment block of a captured document
type DocumentMetadata struct {
	PageID string
	URL    string
	Fields map[string]string
}

// ParseMetadataComment extracts the leading metadata comment from captured
// HTML, if present. Scraped documents carry a comment of the form:
//
//	<!--
//	  Page ID: <uuid>
//	  URL: <source url>
//	-->
//
// Returns nil when no leading comment exists.
func ParseMetadataComment(html string) *DocumentMetadata {
	m := metadataComment.FindStringSubmatch(html)
	if m == nil {
		return nil
	}

	meta := &DocumentMetadata{Fields: make(map[string]string)}
	for _, line := range metadataLine.FindAllStringSubmatch(m[1], -1) {
		key := strings.ToLower(strings.TrimSpace(line[1]))
		value := strings.TrimSpace(line[2])
		meta.Fields[key] = value

		switch key {
		case "page id", "pageid", "page_id":
			if id, err := NormalizePageID(value); err == nil {
				meta.PageID = id
			}
		case "url", "source url":
			meta.URL = value
		}
	}
	return meta
}

// NormalizePageID parses a workspace page ID in either the bare 32-char hex
// form or the hyphenated UUID form, and returns the hyphenated 36-char form.
func NormalizePageID(s string) (string, error) {
	match := pageIDPattern.FindString(s)
	if match == "" {
		return "", fmt.Errorf("no page ID found in %q", s)
	}

	cleaned := strings.ToLower(strings.ReplaceAll(match, "-", ""))
	if len(cleaned) != 32 {
		return "", fmt.Errorf("page ID %q is not 32 hex characters", match)
	}

	return fmt.Sprintf("%s-%s-%s-%s-%s",
		cleaned[0:8], cleaned[8:12], cleaned[12:16], cleaned[16:20], cleaned[20:32]), nil
}
