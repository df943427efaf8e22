// Package orchestrator runs the upload state machine: purge existing page
// content, chunk the block tree into submissions the workspace accepts,
// append with pacing, sweep correlation markers, and finalize page
// properties.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scriba/internal/common"
	"github.com/ternarybob/scriba/internal/interfaces"
	"github.com/ternarybob/scriba/internal/models"
	"golang.org/x/sync/semaphore"
)

const (
	deadlineBase   = 180 * time.Second
	deadlineMedium = 300 * time.Second
	deadlineLarge  = 480 * time.Second
)

// Excerpter summarizes a block tree into a short plain-text excerpt for the
// page's summary property.
type Excerpter interface {
	Excerpt(blocks []*models.Block, limit int) string
}

// Service executes upload jobs. One global worker semaphore caps concurrent
// jobs; each job additionally holds a per-job I/O semaphore for parallel
// purge and sweep calls.
type Service struct {
	logger    arbor.ILogger
	config    common.JobsConfig
	client    interfaces.WorkspaceAPI
	sink      interfaces.ProgressSink
	excerpter Excerpter
	workers   *semaphore.Weighted
}

// NewService creates an orchestrator. The sink and excerpter are optional.
func NewService(config common.JobsConfig, client interfaces.WorkspaceAPI, sink interfaces.ProgressSink, excerpter Excerpter, logger arbor.ILogger) *Service {
	maxConcurrent := config.MaxConcurrent
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	if config.JobParallelism < 1 {
		config.JobParallelism = 1
	}
	return &Service{
		logger:    logger,
		config:    config,
		client:    client,
		sink:      sink,
		excerpter: excerpter,
		workers:   semaphore.NewWeighted(int64(maxConcurrent)),
	}
}

// errCancelled marks a job stopped by explicit cancellation
var errCancelled = fmt.Errorf("job cancelled")

// Run executes one upload job to completion. The job's phase, progress, and
// terminal state are updated in place; the returned error is the job's
// failure cause, already recorded on the job.
func (s *Service) Run(ctx context.Context, job *models.UploadJob, blocks []*models.Block) error {
	if err := s.workers.Acquire(ctx, 1); err != nil {
		job.Fail("worker queue wait cancelled")
		return err
	}
	defer s.workers.Release(1)

	deadline := deadlineFor(blocks)
	job.Deadline = time.Now().Add(deadline)
	job.TotalUnits = countBlocks(blocks)

	ctx, cancel := context.WithDeadline(ctx, job.Deadline)
	defer cancel()

	if s.logger != nil {
		s.logger.Info().
			Str("request_id", job.RequestID).
			Str("page_id", job.PageID).
			Int("blocks", job.TotalUnits).
			Dur("deadline", deadline).
			Msg("Upload job started")
	}

	err := s.run(ctx, job, blocks)
	if err != nil {
		job.Fail(err.Error())
		s.publish(job)
		if s.logger != nil {
			s.logger.Warn().
				Str("request_id", job.RequestID).
				Err(err).
				Msg("Upload job failed")
		}
		return err
	}

	job.SetPhase(models.PhaseDone)
	s.publish(job)
	if s.logger != nil {
		s.logger.Info().
			Str("request_id", job.RequestID).
			Int("appended", job.Appended).
			Msg("Upload job finished")
	}
	return nil
}

func (s *Service) run(ctx context.Context, job *models.UploadJob, blocks []*models.Block) error {
	job.SetPhase(models.PhasePurging)
	s.publish(job)
	if err := s.checkpoint(ctx, job); err != nil {
		return err
	}
	if err := s.purge(ctx, job); err != nil {
		return fmt.Errorf("purge: %w", err)
	}

	job.SetPhase(models.PhaseChunking)
	s.publish(job)
	if err := s.checkpoint(ctx, job); err != nil {
		return err
	}
	plan := planChunks(blocks, tableRowLimit())

	job.SetPhase(models.PhaseUploading)
	s.publish(job)
	if _, err := s.upload(ctx, job, job.PageID, plan); err != nil {
		return fmt.Errorf("upload: %w", err)
	}

	job.SetPhase(models.PhaseSweeping)
	s.publish(job)
	if err := s.checkpoint(ctx, job); err != nil {
		return err
	}
	residual, err := s.sweep(ctx, job)
	if err != nil {
		return fmt.Errorf("sweep: %w", err)
	}
	if residual > 0 && job.Strict {
		return fmt.Errorf("sweep: %d residual markers remain", residual)
	}

	job.SetPhase(models.PhaseFinalizing)
	s.publish(job)
	s.finalize(ctx, job, blocks)
	return nil
}

// Append uploads a pre-built block list under the job's page without purging
// or sweeping, and returns the ids assigned to the top-level blocks. Used by
// the append endpoint where the caller owns the page's existing content.
func (s *Service) Append(ctx context.Context, job *models.UploadJob, blocks []*models.Block) ([]string, error) {
	if err := s.workers.Acquire(ctx, 1); err != nil {
		job.Fail("worker queue wait cancelled")
		return nil, err
	}
	defer s.workers.Release(1)

	deadline := deadlineFor(blocks)
	job.Deadline = time.Now().Add(deadline)
	job.TotalUnits = countBlocks(blocks)

	ctx, cancel := context.WithDeadline(ctx, job.Deadline)
	defer cancel()

	job.SetPhase(models.PhaseChunking)
	s.publish(job)
	plan := planChunks(blocks, tableRowLimit())

	job.SetPhase(models.PhaseUploading)
	s.publish(job)
	ids, err := s.upload(ctx, job, job.PageID, plan)
	if err != nil {
		job.Fail(err.Error())
		s.publish(job)
		return ids, err
	}

	job.SetPhase(models.PhaseDone)
	s.publish(job)
	return ids, nil
}

// checkpoint observes cancellation and deadline between phases
func (s *Service) checkpoint(ctx context.Context, job *models.UploadJob) error {
	if job.Cancelled() {
		return errCancelled
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("deadline exceeded in phase %s", job.Phase())
	default:
		return nil
	}
}

func (s *Service) publish(job *models.UploadJob) {
	if s.sink != nil {
		s.sink.Publish(job.Snapshot())
	}
}

// deadlineFor picks the job deadline from the tree's size: small pages get
// 180s, pages over 300 blocks or 30 table rows get 300s, pages over 500
// blocks or 50 table rows get 480s.
func deadlineFor(blocks []*models.Block) time.Duration {
	total := countBlocks(blocks)
	rows := countTableRows(blocks)
	switch {
	case total > 500 || rows > 50:
		return deadlineLarge
	case total > 300 || rows > 30:
		return deadlineMedium
	default:
		return deadlineBase
	}
}

func countBlocks(blocks []*models.Block) int {
	count := 0
	for _, b := range blocks {
		count += 1 + b.DescendantCount()
	}
	return count
}

func countTableRows(blocks []*models.Block) int {
	count := 0
	for _, b := range blocks {
		if b.Type == models.BlockTableRow {
			count++
		}
		count += countTableRows(b.Children)
	}
	return count
}
