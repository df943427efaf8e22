package validator

import (
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/scriba/internal/common"
	"github.com/ternarybob/scriba/internal/models"
	"golang.org/x/text/unicode/norm"
)

// SegmentsFromHTML extracts ordered text segments from source HTML, skipping
// script/style/nav residues. Segments are trimmed; empties are dropped.
func SegmentsFromHTML(html string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}
	doc.Find("script, style, noscript, nav, header, footer, aside").Remove()

	var segments []string
	doc.Find("body, body *").Each(func(_ int, sel *goquery.Selection) {
		sel.Contents().Each(func(_ int, c *goquery.Selection) {
			if goquery.NodeName(c) != "#text" {
				return
			}
			text := strings.TrimSpace(c.Text())
			if text != "" {
				segments = append(segments, text)
			}
		})
	})
	if len(segments) == 0 {
		// Fragment without a body wrapper
		text := strings.TrimSpace(doc.Text())
		if text != "" {
			segments = append(segments, text)
		}
	}
	return segments
}

// SegmentsFromBlocks extracts ordered text segments from a block tree,
// descending depth-first through text payloads, table cells, and captions.
// Correlation markers are stripped before comparison.
func SegmentsFromBlocks(blocks []*models.Block) []string {
	var segments []string
	var walk func([]*models.Block)
	walk = func(list []*models.Block) {
		for _, b := range list {
			if text := strings.TrimSpace(common.StripMarkers(b.PlainText())); text != "" {
				segments = append(segments, text)
			}
			switch b.Type {
			case models.BlockTableRow:
				if b.TableRow != nil {
					for _, cell := range b.TableRow.Cells {
						var sb strings.Builder
						for _, run := range cell {
							sb.WriteString(run.Content)
						}
						if text := strings.TrimSpace(common.StripMarkers(sb.String())); text != "" {
							segments = append(segments, text)
						}
					}
				}
			case models.BlockImage:
				if b.Image != nil {
					segments = append(segments, captionText(b.Image.Caption)...)
				}
			}
			walk(b.Children)
		}
	}
	walk(blocks)
	return segments
}

func captionText(runs []models.RichText) []string {
	var sb strings.Builder
	for _, run := range runs {
		sb.WriteString(run.Content)
	}
	if text := strings.TrimSpace(sb.String()); text != "" {
		return []string{text}
	}
	return nil
}

// NormalizeSegment canonicalizes a segment for comparison: lowercase, NFKD,
// combining marks dropped, non-word characters replaced with spaces,
// whitespace collapsed. The operation is idempotent.
func NormalizeSegment(s string) string {
	s = strings.ToLower(s)
	s = norm.NFKD.String(s)

	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.Is(unicode.Mn, r):
			// combining mark, dropped
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			sb.WriteRune(r)
		default:
			sb.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(sb.String()), " ")
}

// NormalizeSegments applies NormalizeSegment across a list, dropping
// segments that normalize to empty
func NormalizeSegments(segments []string) []string {
	out := make([]string, 0, len(segments))
	for _, s := range segments {
		if n := NormalizeSegment(s); n != "" {
			out = append(out, n)
		}
	}
	return out
}
