package orchestrator

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/ternarybob/scriba/internal/models"
	"github.com/ternarybob/scriba/internal/workspace"
	"golang.org/x/sync/errgroup"
)

// purgeBatchSize bounds how many deletes are in flight per wave so a failure
// aborts quickly instead of burning the rate budget.
const purgeBatchSize = 10

// defaultPurgeAttempts is the list-delete-verify cycle cap when
// jobs.purge_attempts is unset.
const defaultPurgeAttempts = 3

// PurgeIncompleteError reports a purge that left children on the page. The
// job must not proceed to upload over partial state.
type PurgeIncompleteError struct {
	Deleted int
	Failed  int
	Cause   error
}

func (e *PurgeIncompleteError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("purge incomplete: %d deleted, %d children persist", e.Deleted, e.Failed)
	}
	return fmt.Sprintf("purge incomplete: %d deleted, %d failed: %v", e.Deleted, e.Failed, e.Cause)
}

func (e *PurgeIncompleteError) Unwrap() error { return e.Cause }

// purge deletes every existing child of the job's page and verifies the page
// reads back empty. Each attempt lists children cursor by cursor and deletes
// them in bounded parallel waves; the purge succeeds only on a listing that
// yields zero children. A block already gone counts as deleted.
func (s *Service) purge(ctx context.Context, job *models.UploadJob) error {
	attempts := s.config.PurgeAttempts
	if attempts < 1 {
		attempts = defaultPurgeAttempts
	}

	totalDeleted := 0
	for attempt := 0; attempt < attempts; attempt++ {
		ids, err := s.collectChildIDs(ctx, job.PageID)
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			if s.logger != nil && totalDeleted > 0 {
				s.logger.Debug().
					Str("page_id", job.PageID).
					Int("deleted", totalDeleted).
					Msg("Existing page content purged")
			}
			return nil
		}

		deleted, failed, err := s.deleteChildren(ctx, job, ids)
		totalDeleted += deleted
		if err == errCancelled {
			return err
		}
		if failed > 0 || err != nil {
			return &PurgeIncompleteError{Deleted: totalDeleted, Failed: failed, Cause: err}
		}
	}

	// Attempts exhausted; the verification list decides.
	remaining, err := s.collectChildIDs(ctx, job.PageID)
	if err != nil {
		return err
	}
	if len(remaining) == 0 {
		return nil
	}
	return &PurgeIncompleteError{Deleted: totalDeleted, Failed: len(remaining)}
}

// deleteChildren issues deletes in waves of purgeBatchSize with bounded
// parallelism, observing cancellation between waves.
func (s *Service) deleteChildren(ctx context.Context, job *models.UploadJob, ids []string) (int, int, error) {
	var deleted atomic.Int64
	var failed atomic.Int64

	for start := 0; start < len(ids); start += purgeBatchSize {
		if job.Cancelled() {
			return int(deleted.Load()), int(failed.Load()), errCancelled
		}
		end := start + purgeBatchSize
		if end > len(ids) {
			end = len(ids)
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.config.JobParallelism)
		for _, id := range ids[start:end] {
			id := id
			g.Go(func() error {
				err := s.client.DeleteBlock(gctx, id)
				if err != nil && !workspace.IsNotFound(err) {
					failed.Add(1)
					return err
				}
				deleted.Add(1)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return int(deleted.Load()), int(failed.Load()), err
		}
	}
	return int(deleted.Load()), int(failed.Load()), nil
}

// collectChildIDs walks the paginated children listing and returns every
// top-level child id. Deleting a top-level block archives its subtree.
func (s *Service) collectChildIDs(ctx context.Context, pageID string) ([]string, error) {
	var ids []string
	cursor := ""
	for {
		resp, err := s.client.ListChildren(ctx, pageID, cursor)
		if err != nil {
			return nil, err
		}
		for _, b := range resp.Results {
			if b.ID != "" {
				ids = append(ids, b.ID)
			}
		}
		if !resp.HasMore || resp.NextCursor == "" {
			break
		}
		cursor = resp.NextCursor
	}
	return ids, nil
}
