package orchestrator

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/ternarybob/scriba/internal/common"
	"github.com/ternarybob/scriba/internal/models"
	"golang.org/x/sync/errgroup"
)

// sweep walks the uploaded page and rewrites every block still carrying a
// correlation marker. Returns how many marked blocks could not be cleaned;
// strict jobs fail on a nonzero residual, lenient jobs log and proceed.
func (s *Service) sweep(ctx context.Context, job *models.UploadJob) (int, error) {
	var swept, residual atomic.Int64

	if err := s.sweepChildren(ctx, job, job.PageID, &swept, &residual); err != nil {
		return int(residual.Load()), err
	}

	if s.logger != nil {
		s.logger.Debug().
			Str("page_id", job.PageID).
			Int64("swept", swept.Load()).
			Int64("residual", residual.Load()).
			Msg("Marker sweep finished")
	}
	return int(residual.Load()), nil
}

func (s *Service) sweepChildren(ctx context.Context, job *models.UploadJob, parentID string, swept, residual *atomic.Int64) error {
	cursor := ""
	for {
		if job.Cancelled() {
			return errCancelled
		}
		resp, err := s.client.ListChildren(ctx, parentID, cursor)
		if err != nil {
			return err
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.config.JobParallelism)
		for _, b := range resp.Results {
			b := b
			if !carriesMarker(b) {
				continue
			}
			g.Go(func() error {
				if err := s.client.UpdateBlock(gctx, b.ID, cleanedPayload(b)); err != nil {
					// Update failures leave the marker in place; strictness
					// decides later whether that fails the job.
					residual.Add(1)
					if s.logger != nil {
						s.logger.Warn().
							Str("block_id", b.ID).
							Err(err).
							Msg("Failed to sweep marker from block")
					}
					return nil
				}
				swept.Add(1)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		for _, b := range resp.Results {
			if b.HasChildren && b.ID != "" {
				if err := s.sweepChildren(ctx, job, b.ID, swept, residual); err != nil {
					return err
				}
			}
		}

		if !resp.HasMore || resp.NextCursor == "" {
			return nil
		}
		cursor = resp.NextCursor
	}
}

// carriesMarker reports whether any run or table cell contains a marker
func carriesMarker(b *models.Block) bool {
	if common.HasMarker(b.PlainText()) {
		return true
	}
	if b.Type == models.BlockTableRow && b.TableRow != nil {
		for _, cell := range b.TableRow.Cells {
			for _, run := range cell {
				if common.HasMarker(run.Content) {
					return true
				}
			}
		}
	}
	return false
}

// cleanedPayload clones a block with markers stripped from its runs. The
// clone carries only the type payload the update endpoint expects.
func cleanedPayload(b *models.Block) *models.Block {
	clone := *b
	clone.ID = ""
	clone.HasChildren = false
	clone.Children = nil

	if clone.Type == models.BlockTableRow && clone.TableRow != nil {
		cells := make([][]models.RichText, len(clone.TableRow.Cells))
		for i, cell := range clone.TableRow.Cells {
			cells[i] = stripRuns(cell)
		}
		clone.TableRow = &models.TableRowPayload{Cells: cells}
		return &clone
	}

	clone.SetRichRuns(stripRuns(clone.RichRuns()))
	return &clone
}

// stripRuns removes markers from each run, drops runs emptied by the strip,
// and trims trailing whitespace left behind by the marker separator.
func stripRuns(runs []models.RichText) []models.RichText {
	out := make([]models.RichText, 0, len(runs))
	for _, run := range runs {
		run.Content = common.StripMarkers(run.Content)
		if strings.TrimSpace(run.Content) == "" {
			continue
		}
		out = append(out, run)
	}
	if n := len(out); n > 0 {
		out[n-1].Content = strings.TrimRight(out[n-1].Content, " ")
	}
	return out
}
