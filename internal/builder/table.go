package builder

import (
	"fmt"

	"github.com/ternarybob/scriba/internal/models"
	"golang.org/x/net/html"
)

// emitTable converts a <table> into a table block with table_row children.
// Header detection follows <thead> presence; every row is padded to the
// table's column count so no submission carries ragged rows.
func (w *walker) emitTable(n *html.Node) []*models.Block {
	var rows []*models.TableRowPayload
	hasHeader := false

	var collect func(node *html.Node, inHead bool)
	collect = func(node *html.Node, inHead bool) {
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			switch c.Data {
			case "thead":
				collect(c, true)
			case "tbody", "tfoot":
				collect(c, false)
			case "tr":
				if inHead {
					hasHeader = true
				}
				if row := w.emitTableRow(c); row != nil {
					rows = append(rows, row)
				}
			}
		}
	}
	collect(n, false)

	if len(rows) == 0 {
		return nil
	}

	width := 0
	for _, row := range rows {
		if len(row.Cells) > width {
			width = len(row.Cells)
		}
	}
	if width == 0 {
		w.warn("table dropped: zero columns")
		return nil
	}

	// Pad ragged rows so every row matches the table width
	for _, row := range rows {
		for len(row.Cells) < width {
			row.Cells = append(row.Cells, []models.RichText{})
		}
	}

	children := make([]*models.Block, len(rows))
	for i, row := range rows {
		children[i] = &models.Block{Type: models.BlockTableRow, TableRow: row}
	}

	return []*models.Block{{
		Type: models.BlockTable,
		Table: &models.TablePayload{
			TableWidth:      width,
			HasColumnHeader: hasHeader,
		},
		Children: children,
	}}
}

func (w *walker) emitTableRow(tr *html.Node) *models.TableRowPayload {
	var cells [][]models.RichText
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || (c.Data != "td" && c.Data != "th") {
			continue
		}
		runs := models.SplitRuns(w.flattenRuns(c, inlineState{}))
		cells = append(cells, runs)

		// Colspan cells occupy extra columns to keep alignment
		if span := attrVal(c, "colspan"); span != "" {
			extra := 0
			fmt.Sscanf(span, "%d", &extra)
			for i := 1; i < extra; i++ {
				cells = append(cells, []models.RichText{})
			}
		}
	}
	if len(cells) == 0 {
		return nil
	}
	return &models.TableRowPayload{Cells: cells}
}
