package builder

import (
	"github.com/ternarybob/scriba/internal/models"
)

// maxNestingDepth is the workspace's accepted nesting beneath a top-level
// list context, determined empirically.
const maxNestingDepth = 2

// normalizer enforces workspace tree limits on an emitted block tree
type normalizer struct {
	warnings  []string
	flattened bool
}

func (n *normalizer) normalize(blocks []*models.Block) []*models.Block {
	blocks = n.clampDepth(blocks, 0)
	blocks = n.dedupeCallouts(blocks)
	blocks = n.dropEmptyParagraphs(blocks)
	if n.flattened {
		n.warnings = append(n.warnings, "[nesting flattened]")
	}
	return blocks
}

// clampDepth hoists children beyond the depth limit to the nearest permitted
// parent, preserving relative order. Children under leaf kinds hoist
// unconditionally since the schema forbids them. Table rows are structural
// and stay put.
func (n *normalizer) clampDepth(blocks []*models.Block, depth int) []*models.Block {
	var out []*models.Block
	for _, b := range blocks {
		out = append(out, b)

		if b.Type == models.BlockTable {
			// Rows are the table's payload, not nested content
			continue
		}

		if len(b.Children) == 0 {
			continue
		}

		if !models.AllowsChildren(b.Type) {
			out = append(out, n.clampDepth(b.Children, depth)...)
			b.Children = nil
			continue
		}

		if depth >= maxNestingDepth {
			n.flattened = true
			out = append(out, n.clampDepth(b.Children, depth)...)
			b.Children = nil
			continue
		}

		b.Children = n.clampDepth(b.Children, depth+1)
	}
	return out
}

// dedupeCallouts collapses adjacent callouts with identical text, an
// artifact of CSS-expanded admonitions in the source
func (n *normalizer) dedupeCallouts(blocks []*models.Block) []*models.Block {
	var out []*models.Block
	for _, b := range blocks {
		if len(b.Children) > 0 {
			b.Children = n.dedupeCallouts(b.Children)
		}
		if b.Type == models.BlockCallout && len(out) > 0 {
			prev := out[len(out)-1]
			if prev.Type == models.BlockCallout && prev.PlainText() == b.PlainText() {
				n.warnings = append(n.warnings, "duplicate_callouts_collapsed")
				continue
			}
		}
		out = append(out, b)
	}
	return out
}

// dropEmptyParagraphs removes empty paragraphs unless one separates two
// blocks of the same kind that would otherwise merge visually
func (n *normalizer) dropEmptyParagraphs(blocks []*models.Block) []*models.Block {
	var out []*models.Block
	for i, b := range blocks {
		if len(b.Children) > 0 {
			b.Children = n.dropEmptyParagraphs(b.Children)
		}
		if b.Type != models.BlockParagraph || !runsEmpty(b.RichRuns()) {
			out = append(out, b)
			continue
		}
		if len(out) > 0 && i+1 < len(blocks) && separatesMerging(out[len(out)-1], blocks[i+1]) {
			out = append(out, b)
		}
	}
	return out
}

// separatesMerging reports whether two blocks of the same kind would merge
// visually without a separator between them
func separatesMerging(prev, next *models.Block) bool {
	if prev.Type != next.Type {
		return false
	}
	switch prev.Type {
	case models.BlockBulletedItem, models.BlockNumberedItem, models.BlockToDo,
		models.BlockQuote, models.BlockCallout, models.BlockCode:
		return true
	}
	return false
}
