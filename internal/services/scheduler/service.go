// Package scheduler runs periodic maintenance: registry eviction and
// optional revalidation sweeps over configured pages.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scriba/internal/common"
	"github.com/ternarybob/scriba/internal/interfaces"
	"github.com/ternarybob/scriba/internal/registry"
)

const (
	evictionSchedule = "@every 1m"
	sweepTimeBudget  = 2 * time.Minute
)

// Service owns the cron runner. Jobs are registered at Start and stopped
// together at Stop.
type Service struct {
	logger   arbor.ILogger
	config   common.SchedulerConfig
	jobs     common.JobsConfig
	client   interfaces.WorkspaceAPI
	registry *registry.Registry
	cron     *cron.Cron
}

// NewService creates a scheduler service
func NewService(config common.SchedulerConfig, jobs common.JobsConfig, client interfaces.WorkspaceAPI, reg *registry.Registry, logger arbor.ILogger) *Service {
	return &Service{
		logger:   logger,
		config:   config,
		jobs:     jobs,
		client:   client,
		registry: reg,
		cron:     cron.New(),
	}
}

// Start registers the maintenance jobs and starts the cron runner
func (s *Service) Start() error {
	if _, err := s.cron.AddFunc(evictionSchedule, s.evictFinishedJobs); err != nil {
		return err
	}

	if s.config.Schedule != "" && len(s.config.PageIDs) > 0 {
		if _, err := s.cron.AddFunc(s.config.Schedule, s.revalidatePages); err != nil {
			return err
		}
		if s.logger != nil {
			s.logger.Info().
				Str("schedule", s.config.Schedule).
				Int("pages", len(s.config.PageIDs)).
				Msg("Periodic page revalidation enabled")
		}
	}

	s.cron.Start()
	return nil
}

// Stop halts the cron runner and waits for running jobs to finish
func (s *Service) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *Service) evictFinishedJobs() {
	ttl := s.jobs.RegistryTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	s.registry.EvictExpired(ttl)
}

// revalidatePages checks each configured page for residual correlation
// markers left by interrupted sweeps.
func (s *Service) revalidatePages() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeBudget)
	defer cancel()

	for _, pageID := range s.config.PageIDs {
		residual, err := s.countResidualMarkers(ctx, pageID)
		if err != nil {
			if s.logger != nil {
				s.logger.Warn().Str("page_id", pageID).Err(err).Msg("Revalidation sweep failed")
			}
			continue
		}
		if residual > 0 && s.logger != nil {
			s.logger.Warn().
				Str("page_id", pageID).
				Int("residual", residual).
				Msg("Page carries residual correlation markers")
		}
	}
}

func (s *Service) countResidualMarkers(ctx context.Context, parentID string) (int, error) {
	residual := 0
	cursor := ""
	for {
		resp, err := s.client.ListChildren(ctx, parentID, cursor)
		if err != nil {
			return residual, err
		}
		for _, b := range resp.Results {
			if common.HasMarker(b.PlainText()) {
				residual++
			}
			if b.HasChildren && b.ID != "" {
				nested, err := s.countResidualMarkers(ctx, b.ID)
				residual += nested
				if err != nil {
					return residual, err
				}
			}
		}
		if !resp.HasMore || resp.NextCursor == "" {
			return residual, nil
		}
		cursor = resp.NextCursor
	}
}
