package builder

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/scriba/internal/common"
	"github.com/ternarybob/scriba/internal/models"
	"golang.org/x/net/html"
)

// walker performs the depth-first emit phase over the parsed DOM. The visited
// set breaks pathological structures so the emitted tree stays acyclic.
type walker struct {
	service  *Service
	opts     Options
	warnings []string
	visited  map[*html.Node]bool
}

// inlineTags are elements that contribute runs to the enclosing block rather
// than forming blocks of their own
var inlineTags = map[string]bool{
	"a": true, "b": true, "strong": true, "i": true, "em": true,
	"s": true, "del": true, "strike": true, "u": true, "code": true,
	"span": true, "sub": true, "sup": true, "br": true, "abbr": true,
	"mark": true, "small": true, "time": true, "cite": true, "kbd": true,
	"samp": true, "var": true, "q": true, "wbr": true,
}

// calloutClasses maps admonition classes to their icon and color tag
var calloutClasses = map[string]struct {
	Icon  string
	Color string
}{
	"note":      {"ⓘ", "blue_background"},
	"info":      {"ⓘ", "blue_background"},
	"tip":       {"💡", "green_background"},
	"warning":   {"⚠", "yellow_background"},
	"caution":   {"⚠", "yellow_background"},
	"important": {"❗", "red_background"},
}

// videoHosts are oEmbed iframe sources that map to a video block
var videoHosts = []string{"youtube.com", "youtu.be", "vimeo.com"}

// bookmarkHosts are embed sources that map to a bookmark block
var bookmarkHosts = []string{"codepen.io", "loom.com", "figma.com"}

func (w *walker) emitSelection(sel *goquery.Selection) []*models.Block {
	var blocks []*models.Block
	for _, n := range sel.Nodes {
		blocks = append(blocks, w.emitChildren(n)...)
	}
	return blocks
}

// emitChildren walks the children of a container, gathering consecutive
// inline content into paragraphs and dispatching block elements.
func (w *walker) emitChildren(n *html.Node) []*models.Block {
	if w.visited[n] {
		return nil
	}
	w.visited[n] = true

	var blocks []*models.Block
	var pending []*html.Node // consecutive inline nodes awaiting a paragraph

	flush := func() {
		if len(pending) == 0 {
			return
		}
		runs := w.inlineRunsFromNodes(pending)
		pending = nil
		if !runsEmpty(runs) {
			blocks = append(blocks, w.textBlock(models.BlockParagraph, runs))
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode:
			if strings.TrimSpace(c.Data) != "" {
				pending = append(pending, c)
			}
		case html.ElementNode:
			if inlineTags[c.Data] {
				pending = append(pending, c)
				continue
			}
			flush()
			blocks = append(blocks, w.emitElement(c)...)
		}
	}
	flush()
	return blocks
}

// emitElement maps one block-level element to zero or more blocks
func (w *walker) emitElement(n *html.Node) []*models.Block {
	if w.visited[n] {
		return nil
	}

	switch n.Data {
	case "h1", "h2", "h3", "h4", "h5", "h6":
		return w.emitHeading(n)
	case "p":
		return w.emitParagraph(n)
	case "ul", "ol":
		return w.emitList(n)
	case "table":
		return w.emitTable(n)
	case "pre":
		return w.emitCode(n)
	case "img":
		return w.emitImage(n)
	case "video":
		return w.emitVideo(n)
	case "iframe":
		return w.emitEmbed(n)
	case "blockquote":
		return w.emitQuote(n)
	case "hr":
		return []*models.Block{{Type: models.BlockDivider, Divider: &models.EmptyPayload{}}}
	case "div", "section", "article":
		if icon, color, ok := calloutClass(n); ok {
			return w.emitCallout(n, icon, color)
		}
		if attrVal(n, "class") != "" && strings.Contains(attrVal(n, "class"), "codeblock") {
			return w.emitCode(n)
		}
		// Unknown container: its children are inlined at the container's
		// position.
		return w.emitChildren(n)
	case "figure":
		return w.emitChildren(n)
	case "details", "summary":
		return w.emitToggle(n)
	default:
		return w.emitChildren(n)
	}
}

func (w *walker) emitHeading(n *html.Node) []*models.Block {
	level := int(n.Data[1] - '0')
	runs := w.inlineRuns(n, inlineState{})
	if runsEmpty(runs) {
		return nil
	}

	// h4+ clamp to heading_3 with a visual prefix per extra level
	if level > 3 {
		prefix := strings.Repeat("▸ ", level-3)
		runs = append([]models.RichText{models.NewRun(prefix)}, runs...)
		level = 3
	}

	runs = w.withMarker(runs)
	payload := &models.TextPayload{RichText: models.SplitRuns(runs)}
	switch level {
	case 1:
		return []*models.Block{{Type: models.BlockHeading1, Heading1: payload}}
	case 2:
		return []*models.Block{{Type: models.BlockHeading2, Heading2: payload}}
	default:
		return []*models.Block{{Type: models.BlockHeading3, Heading3: payload}}
	}
}

func (w *walker) emitParagraph(n *html.Node) []*models.Block {
	runs := w.inlineRuns(n, inlineState{})
	nested := w.blockChildren(n)
	if runsEmpty(runs) {
		// Keep the empty paragraph for now; the normalizer decides whether
		// it separates structural blocks or gets dropped.
		if len(nested) == 0 {
			return []*models.Block{w.textBlock(models.BlockParagraph, nil)}
		}
		return nested
	}
	block := w.textBlock(models.BlockParagraph, w.withMarker(runs))
	return append([]*models.Block{block}, nested...)
}

func (w *walker) emitList(n *html.Node) []*models.Block {
	kind := models.BlockBulletedItem
	if n.Data == "ol" {
		kind = models.BlockNumberedItem
	}

	var blocks []*models.Block
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || c.Data != "li" {
			continue
		}
		if item := w.emitListItem(c, kind); item != nil {
			blocks = append(blocks, item)
		}
	}
	return blocks
}

// emitListItem builds one list item: inline content becomes the item's runs,
// block children become the item's children. A to_do item is recognized by a
// leading checkbox input.
func (w *walker) emitListItem(li *html.Node, kind models.BlockType) *models.Block {
	if w.visited[li] {
		return nil
	}
	w.visited[li] = true

	var inline []*html.Node
	var children []*models.Block
	var checkbox *html.Node
	firstParagraphInlined := false

	for c := li.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode:
			inline = append(inline, c)
		case html.ElementNode:
			switch {
			case c.Data == "input" && attrVal(c, "type") == "checkbox":
				checkbox = c
			case inlineTags[c.Data]:
				inline = append(inline, c)
			case c.Data == "p" && !firstParagraphInlined && len(children) == 0:
				// A list item whose only block child is a single paragraph
				// has the paragraph inlined.
				inline = append(inline, c)
				firstParagraphInlined = true
			default:
				children = append(children, w.emitElement(c)...)
			}
		}
	}

	runs := w.withMarker(models.SplitRuns(w.inlineRunsFromNodes(inline)))
	if runsEmpty(runs) && len(children) == 0 {
		return nil
	}
	if runsEmpty(runs) {
		runs = []models.RichText{models.NewRun(" ")}
	}

	if checkbox != nil {
		return &models.Block{
			Type:     models.BlockToDo,
			ToDo:     &models.ToDoPayload{RichText: runs, Checked: hasAttr(checkbox, "checked")},
			Children: children,
		}
	}

	block := &models.Block{Type: kind, Children: children}
	payload := &models.TextPayload{RichText: runs}
	if kind == models.BlockNumberedItem {
		block.NumberedItem = payload
	} else {
		block.BulletedItem = payload
	}
	return block
}

func (w *walker) emitQuote(n *html.Node) []*models.Block {
	runs := w.inlineRuns(n, inlineState{})
	children := w.blockChildren(n)
	if runsEmpty(runs) && len(children) == 0 {
		return nil
	}
	if runsEmpty(runs) && len(children) > 0 {
		// Hoist the first child's runs into the quote itself
		first := children[0]
		if first.Type == models.BlockParagraph {
			runs = first.RichRuns()
			children = children[1:]
		}
	}
	return []*models.Block{{
		Type:     models.BlockQuote,
		Quote:    &models.TextPayload{RichText: models.SplitRuns(w.withMarker(runs))},
		Children: children,
	}}
}

func (w *walker) emitCallout(n *html.Node, icon, color string) []*models.Block {
	runs := w.inlineRuns(n, inlineState{})
	children := w.blockChildren(n)
	if runsEmpty(runs) && len(children) > 0 && children[0].Type == models.BlockParagraph {
		runs = children[0].RichRuns()
		children = children[1:]
	}
	if runsEmpty(runs) && len(children) == 0 {
		return nil
	}
	return []*models.Block{{
		Type: models.BlockCallout,
		Callout: &models.CalloutPayload{
			RichText: models.SplitRuns(w.withMarker(runs)),
			Icon:     icon,
			Color:    color,
		},
		Children: children,
	}}
}

func (w *walker) emitToggle(n *html.Node) []*models.Block {
	if n.Data == "summary" {
		return nil
	}

	var runs []models.RichText
	var children []*models.Block
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == "summary" {
			runs = w.inlineRuns(c, inlineState{})
			continue
		}
		if c.Type == html.ElementNode {
			children = append(children, w.emitElement(c)...)
		} else if c.Type == html.TextNode && strings.TrimSpace(c.Data) != "" {
			children = append(children, w.textBlock(models.BlockParagraph,
				[]models.RichText{models.NewRun(collapseWhitespace(c.Data))}))
		}
	}
	if runsEmpty(runs) {
		runs = []models.RichText{models.NewRun("Details")}
	}
	return []*models.Block{{
		Type:     models.BlockToggle,
		Toggle:   &models.TextPayload{RichText: models.SplitRuns(w.withMarker(runs))},
		Children: children,
	}}
}

func (w *walker) emitVideo(n *html.Node) []*models.Block {
	src := attrVal(n, "src")
	if src == "" {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && c.Data == "source" {
				src = attrVal(c, "src")
				break
			}
		}
	}
	if src == "" {
		return nil
	}
	return []*models.Block{{
		Type:  models.BlockVideo,
		Video: &models.FilePayload{URL: w.resolveURL(src)},
	}}
}

// emitEmbed maps an allow-listed oEmbed iframe to a video or bookmark block
func (w *walker) emitEmbed(n *html.Node) []*models.Block {
	src := attrVal(n, "src")
	if src == "" {
		return nil
	}
	for _, host := range videoHosts {
		if strings.Contains(src, host) {
			return []*models.Block{{
				Type:  models.BlockVideo,
				Video: &models.FilePayload{URL: w.resolveURL(src)},
			}}
		}
	}
	for _, host := range bookmarkHosts {
		if strings.Contains(src, host) {
			return []*models.Block{{
				Type:     models.BlockBookmark,
				Bookmark: &models.BookmarkPayload{URL: w.resolveURL(src)},
			}}
		}
	}
	return nil
}

// blockChildren emits the block-level children of a mixed-content element,
// skipping inline nodes already consumed as runs.
func (w *walker) blockChildren(n *html.Node) []*models.Block {
	var blocks []*models.Block
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || inlineTags[c.Data] {
			continue
		}
		blocks = append(blocks, w.emitElement(c)...)
	}
	return blocks
}

func (w *walker) textBlock(kind models.BlockType, runs []models.RichText) *models.Block {
	payload := &models.TextPayload{RichText: models.SplitRuns(runs)}
	block := &models.Block{Type: kind}
	switch kind {
	case models.BlockParagraph:
		block.Paragraph = payload
	case models.BlockHeading1:
		block.Heading1 = payload
	case models.BlockHeading2:
		block.Heading2 = payload
	case models.BlockHeading3:
		block.Heading3 = payload
	case models.BlockToggle:
		block.Toggle = payload
	case models.BlockQuote:
		block.Quote = payload
	}
	return block
}

// withMarker appends the correlation marker as the last run when enabled
func (w *walker) withMarker(runs []models.RichText) []models.RichText {
	if !w.opts.Markers || runsEmpty(runs) {
		return runs
	}
	return append(runs, models.NewRun(" "+common.NewMarker()))
}

func (w *walker) warn(msg string) {
	w.warnings = append(w.warnings, msg)
}

func calloutClass(n *html.Node) (icon, color string, ok bool) {
	for _, class := range strings.Fields(attrVal(n, "class")) {
		if style, found := calloutClasses[strings.ToLower(class)]; found {
			return style.Icon, style.Color, true
		}
	}
	return "", "", false
}

func attrVal(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

func hasAttr(n *html.Node, name string) bool {
	for _, a := range n.Attr {
		if a.Key == name {
			return true
		}
	}
	return false
}

func runsEmpty(runs []models.RichText) bool {
	for _, r := range runs {
		if strings.TrimSpace(r.Content) != "" {
			return false
		}
	}
	return true
}
