package models

import (
	"sync"
	"sync/atomic"
	"time"
)

// JobPhase is a stage in the upload state machine
type JobPhase string

const (
	PhaseInit       JobPhase = "init"
	PhasePurging    JobPhase = "purging"
	PhaseChunking   JobPhase = "chunking"
	PhaseUploading  JobPhase = "uploading"
	PhaseSweeping   JobPhase = "sweeping"
	PhaseFinalizing JobPhase = "finalizing"
	PhaseDone       JobPhase = "done"
	PhaseFailed     JobPhase = "failed"
)

// Terminal reports whether the phase ends the job
func (p JobPhase) Terminal() bool {
	return p == PhaseDone || p == PhaseFailed
}

// ProgressEvent is one progress emission from a running job
type ProgressEvent struct {
	RequestID      string    `json:"request_id"`
	Phase          JobPhase  `json:"phase"`
	CompletedUnits int       `json:"completed_units"`
	TotalUnits     int       `json:"total_units"`
	LastActivityAt time.Time `json:"last_activity_at"`
}

// UploadJob tracks one in-flight page upload. Exactly one job exists per
// request id; cancelling one never affects another.
type UploadJob struct {
	RequestID  string    `json:"request_id"`
	PageID     string    `json:"page_id"`
	CreatedAt  time.Time `json:"created_at"`
	Deadline   time.Time `json:"deadline"`
	Strict     bool      `json:"strict"`
	DryRun     bool      `json:"dry_run"`
	Appended   int       `json:"appended"`
	TotalUnits int       `json:"total_units"`

	phase      JobPhase
	finishedAt time.Time
	lastError  string
	cancelled  atomic.Bool
	mu         sync.Mutex
}

// NewUploadJob creates a job in the Init phase
func NewUploadJob(requestID, pageID string) *UploadJob {
	return &UploadJob{
		RequestID: requestID,
		PageID:    pageID,
		CreatedAt: time.Now(),
		phase:     PhaseInit,
	}
}

// Phase returns the current phase
func (j *UploadJob) Phase() JobPhase {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.phase
}

// SetPhase transitions the job; terminal phases record the finish time
func (j *UploadJob) SetPhase(phase JobPhase) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.phase.Terminal() {
		return
	}
	j.phase = phase
	if phase.Terminal() {
		j.finishedAt = time.Now()
	}
}

// Fail transitions the job to Failed with a message
func (j *UploadJob) Fail(msg string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.phase.Terminal() {
		return
	}
	j.phase = PhaseFailed
	j.lastError = msg
	j.finishedAt = time.Now()
}

// LastError returns the failure message, if any
func (j *UploadJob) LastError() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.lastError
}

// FinishedAt returns when the job reached a terminal phase (zero if running)
func (j *UploadJob) FinishedAt() time.Time {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.finishedAt
}

// Cancel flips the cancellation flag. Components observe the flag at their
// next suspension point.
func (j *UploadJob) Cancel() {
	j.cancelled.Store(true)
}

// Cancelled reports whether cancellation was requested
func (j *UploadJob) Cancelled() bool {
	return j.cancelled.Load()
}

// Snapshot returns a progress event for the job's current state
func (j *UploadJob) Snapshot() ProgressEvent {
	j.mu.Lock()
	defer j.mu.Unlock()
	return ProgressEvent{
		RequestID:      j.RequestID,
		Phase:          j.phase,
		CompletedUnits: j.Appended,
		TotalUnits:     j.TotalUnits,
		LastActivityAt: time.Now(),
	}
}
