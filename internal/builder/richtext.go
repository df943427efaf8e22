package builder

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/ternarybob/scriba/internal/models"
	"golang.org/x/net/html"
)

// inlineState carries annotation context down the inline walk
type inlineState struct {
	ann  models.Annotations
	href string
}

// colorAllowList maps inline style colors to workspace color tags. Colors
// outside the list are ignored rather than guessed.
var colorAllowList = map[string]string{
	"red":     "red",
	"#ff0000": "red",
	"#d32f2f": "red",
	"blue":    "blue",
	"#0000ff": "blue",
	"#1976d2": "blue",
	"green":   "green",
	"#008000": "green",
	"#388e3c": "green",
	"orange":  "orange",
	"#ff9800": "orange",
	"purple":  "purple",
	"#9c27b0": "purple",
	"gray":    "gray",
	"grey":    "gray",
	"#757575": "gray",
	"brown":   "brown",
	"pink":    "pink",
	"yellow":  "yellow",
}

var styleColorPattern = regexp.MustCompile(`(?i)(?:^|;)\s*color\s*:\s*([^;]+)`)

// inlineRuns extracts the rich-text runs of an element's inline content.
// Block-level children are skipped; blockChildren picks those up separately.
func (w *walker) inlineRuns(n *html.Node, st inlineState) []models.RichText {
	var runs []models.RichText
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		runs = append(runs, w.inlineNodeRuns(c, st)...)
	}
	return mergeRuns(runs)
}

// inlineRunsFromNodes extracts runs from an explicit node sequence (loose
// text and inline elements gathered between block elements)
func (w *walker) inlineRunsFromNodes(nodes []*html.Node) []models.RichText {
	var runs []models.RichText
	for _, n := range nodes {
		runs = append(runs, w.inlineNodeRuns(n, inlineState{})...)
	}
	return mergeRuns(runs)
}

func (w *walker) inlineNodeRuns(n *html.Node, st inlineState) []models.RichText {
	switch n.Type {
	case html.TextNode:
		text := collapseWhitespace(n.Data)
		if text == "" {
			return nil
		}
		return []models.RichText{{Content: text, Annotations: st.ann, Href: st.href}}

	case html.ElementNode:
		if !inlineTags[n.Data] {
			return nil
		}
		next := st
		switch n.Data {
		case "b", "strong":
			next.ann.Bold = true
		case "i", "em", "cite", "var":
			next.ann.Italic = true
		case "s", "del", "strike":
			next.ann.Strikethrough = true
		case "u":
			next.ann.Underline = true
		case "code", "kbd", "samp":
			next.ann.Code = true
		case "a":
			if href := w.resolveURL(attrVal(n, "href")); href != "" {
				next.href = href
			}
		case "br":
			return []models.RichText{{Content: "\n", Annotations: st.ann, Href: st.href}}
		}
		if color := styleColor(attrVal(n, "style")); color != "" {
			next.ann.Color = color
		}

		var runs []models.RichText
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			runs = append(runs, w.inlineNodeRuns(c, next)...)
		}
		return runs
	}
	return nil
}

// flattenRuns extracts runs from an element descending into block-level
// children as well, inserting a space at block boundaries. Used for table
// cells, where nested paragraphs and lists flatten into the cell's runs.
func (w *walker) flattenRuns(n *html.Node, st inlineState) []models.RichText {
	var runs []models.RichText
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && !inlineTags[c.Data] {
			if len(runs) > 0 {
				runs = append(runs, models.RichText{Content: " ", Annotations: st.ann})
			}
			runs = append(runs, w.flattenRuns(c, st)...)
			continue
		}
		runs = append(runs, w.inlineNodeRuns(c, st)...)
	}
	return mergeRuns(runs)
}

// resolveURL returns an absolute URL, resolving relative references against
// the document's source URL. Fragment-only and unresolvable references
// return empty.
func (w *walker) resolveURL(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(ref, "#") || strings.HasPrefix(ref, "javascript:") {
		return ""
	}
	parsed, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if parsed.IsAbs() {
		return ref
	}
	if w.opts.SourceURL == "" {
		return ""
	}
	base, err := url.Parse(w.opts.SourceURL)
	if err != nil {
		return ""
	}
	return base.ResolveReference(parsed).String()
}

// styleColor extracts an allow-listed color from an inline style attribute
func styleColor(style string) string {
	if style == "" {
		return ""
	}
	m := styleColorPattern.FindStringSubmatch(style)
	if m == nil {
		return ""
	}
	return colorAllowList[strings.ToLower(strings.TrimSpace(m[1]))]
}

// mergeRuns joins adjacent runs with identical annotations and href
func mergeRuns(runs []models.RichText) []models.RichText {
	if len(runs) < 2 {
		return runs
	}
	out := runs[:1]
	for _, run := range runs[1:] {
		last := &out[len(out)-1]
		if run.Annotations == last.Annotations && run.Href == last.Href {
			last.Content += run.Content
			continue
		}
		out = append(out, run)
	}
	return out
}

var whitespacePattern = regexp.MustCompile(`\s+`)

// collapseWhitespace folds runs of whitespace into single spaces. Content
// inside preformatted regions bypasses this via emitCode.
func collapseWhitespace(s string) string {
	return whitespacePattern.ReplaceAllString(s, " ")
}
