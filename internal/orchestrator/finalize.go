package orchestrator

import (
	"context"
	"time"

	"github.com/ternarybob/scriba/internal/models"
)

const (
	excerptLimit       = 200
	finalizeTimeBudget = 15 * time.Second
)

// finalize writes summary properties back to the page. This is best effort:
// a property update failure never fails a job whose content already landed.
func (s *Service) finalize(ctx context.Context, job *models.UploadJob, blocks []*models.Block) {
	if s.excerpter == nil {
		return
	}

	excerpt := s.excerpter.Excerpt(blocks, excerptLimit)
	if excerpt == "" {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, finalizeTimeBudget)
	defer cancel()

	props := map[string]interface{}{
		"Excerpt": map[string]interface{}{
			"rich_text": []map[string]interface{}{
				{"text": map[string]interface{}{"content": excerpt}},
			},
		},
	}
	if err := s.client.UpdatePageProperties(ctx, job.PageID, props); err != nil {
		if s.logger != nil {
			s.logger.Warn().
				Str("page_id", job.PageID).
				Err(err).
				Msg("Failed to update page excerpt property")
		}
	}
}
