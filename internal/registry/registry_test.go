package registry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/scriba/internal/models"
)

func TestAddAndGet(t *testing.T) {
	r := New(nil)
	job := models.NewUploadJob("req_1", "page-1")
	r.Add(job)

	assert.Same(t, job, r.Get("req_1"))
	assert.Nil(t, r.Get("req_missing"))
	assert.Equal(t, 1, r.Len())
}

func TestCancel(t *testing.T) {
	r := New(nil)
	job := models.NewUploadJob("req_1", "page-1")
	r.Add(job)

	assert.True(t, r.Cancel("req_1"))
	assert.True(t, job.Cancelled())

	assert.False(t, r.Cancel("req_missing"))

	done := models.NewUploadJob("req_2", "page-2")
	done.SetPhase(models.PhaseDone)
	r.Add(done)
	assert.False(t, r.Cancel("req_2"), "terminal jobs cannot be cancelled")
}

func TestActiveSkipsTerminal(t *testing.T) {
	r := New(nil)
	running := models.NewUploadJob("req_1", "page-1")
	running.SetPhase(models.PhaseUploading)
	finished := models.NewUploadJob("req_2", "page-2")
	finished.SetPhase(models.PhaseDone)
	r.Add(running)
	r.Add(finished)

	active := r.Active()
	require.Len(t, active, 1)
	assert.Equal(t, "req_1", active[0].RequestID)
}

func TestEvictExpired(t *testing.T) {
	r := New(nil)

	old := models.NewUploadJob("req_old", "page-1")
	old.SetPhase(models.PhaseFailed)
	r.Add(old)
	time.Sleep(20 * time.Millisecond)

	fresh := models.NewUploadJob("req_fresh", "page-2")
	fresh.SetPhase(models.PhaseDone)
	r.Add(fresh)

	running := models.NewUploadJob("req_running", "page-3")
	r.Add(running)

	// Only terminal jobs older than the TTL go
	evicted := r.EvictExpired(10 * time.Millisecond)
	assert.Equal(t, 1, evicted)
	assert.Nil(t, r.Get("req_old"))
	assert.NotNil(t, r.Get("req_fresh"))
	assert.NotNil(t, r.Get("req_running"), "running jobs are never evicted")
}
