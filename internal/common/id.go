package common

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// MarkerPattern matches correlation markers embedded in rich-text runs.
// Markers look like "(src:550e8400e29b41d4)" and must never survive a sweep.
var MarkerPattern = regexp.MustCompile(`\(src:[a-zA-Z0-9_-]{8,}\)`)

// NewRequestID generates a unique request ID with the "req_" prefix
func NewRequestID() string {
	return "req_" + uuid.New().String()
}

// NewMarker generates a correlation marker token for a source element.
// The token embeds the first 16 hex characters of a fresh UUID.
func NewMarker() string {
	id := strings.ReplaceAll(uuid.New().String(), "-", "")
	return fmt.Sprintf("(src:%s)", id[:16])
}

// StripMarkers removes all correlation markers from text
func StripMarkers(text string) string {
	return strings.TrimRight(MarkerPattern.ReplaceAllString(text, ""), " ")
}

// HasMarker reports whether text contains a correlation marker
func HasMarker(text string) bool {
	return MarkerPattern.MatchString(text)
}
