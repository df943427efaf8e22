package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJobPhaseTransitions(t *testing.T) {
	job := NewUploadJob("req_1", "page-1")
	assert.Equal(t, PhaseInit, job.Phase())

	job.SetPhase(PhaseUploading)
	assert.Equal(t, PhaseUploading, job.Phase())

	job.SetPhase(PhaseDone)
	assert.Equal(t, PhaseDone, job.Phase())
	assert.False(t, job.FinishedAt().IsZero())

	// Terminal phases are sticky
	job.SetPhase(PhaseUploading)
	assert.Equal(t, PhaseDone, job.Phase())
}

func TestJobFail(t *testing.T) {
	job := NewUploadJob("req_2", "page-2")
	job.Fail("purge incomplete")
	assert.Equal(t, PhaseFailed, job.Phase())
	assert.Equal(t, "purge incomplete", job.LastError())

	job.Fail("second failure is ignored")
	assert.Equal(t, "purge incomplete", job.LastError())
}

func TestJobCancelIsIndependent(t *testing.T) {
	a := NewUploadJob("req_a", "page-a")
	b := NewUploadJob("req_b", "page-b")

	a.Cancel()
	assert.True(t, a.Cancelled())
	assert.False(t, b.Cancelled())
}

func TestJobSnapshot(t *testing.T) {
	job := NewUploadJob("req_3", "page-3")
	job.TotalUnits = 10
	job.Appended = 4
	job.SetPhase(PhaseSweeping)

	snap := job.Snapshot()
	assert.Equal(t, "req_3", snap.RequestID)
	assert.Equal(t, PhaseSweeping, snap.Phase)
	assert.Equal(t, 4, snap.CompletedUnits)
	assert.Equal(t, 10, snap.TotalUnits)
}

func TestTerminal(t *testing.T) {
	assert.True(t, PhaseDone.Terminal())
	assert.True(t, PhaseFailed.Terminal())
	assert.False(t, PhaseUploading.Terminal())
	assert.False(t, PhaseInit.Terminal())
}
