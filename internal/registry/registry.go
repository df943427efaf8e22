// Package registry tracks in-flight and recently finished upload jobs by
// request id.
package registry

import (
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scriba/internal/models"
)

// Registry is a concurrency-safe map of request id to job. Terminal jobs
// linger until the eviction TTL passes so status polls can still see them.
type Registry struct {
	mu     sync.Mutex
	jobs   map[string]*models.UploadJob
	logger arbor.ILogger
}

// New creates an empty registry
func New(logger arbor.ILogger) *Registry {
	return &Registry{
		jobs:   make(map[string]*models.UploadJob),
		logger: logger,
	}
}

// Add registers a job under its request id
func (r *Registry) Add(job *models.UploadJob) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.RequestID] = job
}

// Get returns the job for a request id, or nil
func (r *Registry) Get(requestID string) *models.UploadJob {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.jobs[requestID]
}

// Cancel requests cancellation of the job with the given request id. Returns
// false when no such job exists or it already finished.
func (r *Registry) Cancel(requestID string) bool {
	r.mu.Lock()
	job := r.jobs[requestID]
	r.mu.Unlock()

	if job == nil || job.Phase().Terminal() {
		return false
	}
	job.Cancel()
	return true
}

// Active returns snapshots of all non-terminal jobs
func (r *Registry) Active() []models.ProgressEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var events []models.ProgressEvent
	for _, job := range r.jobs {
		if !job.Phase().Terminal() {
			events = append(events, job.Snapshot())
		}
	}
	return events
}

// Len returns the number of tracked jobs
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs)
}

// EvictExpired removes terminal jobs older than ttl and returns how many
// were dropped
func (r *Registry) EvictExpired(ttl time.Duration) int {
	cutoff := time.Now().Add(-ttl)

	r.mu.Lock()
	defer r.mu.Unlock()
	evicted := 0
	for id, job := range r.jobs {
		finished := job.FinishedAt()
		if !finished.IsZero() && finished.Before(cutoff) {
			delete(r.jobs, id)
			evicted++
		}
	}
	if evicted > 0 && r.logger != nil {
		r.logger.Debug().Int("evicted", evicted).Msg("Evicted finished jobs from registry")
	}
	return evicted
}
