package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJob(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	job := NewJob("job-1", "owner-1", "trend_42", now)

	assert.Equal(t, JobStatusPending, job.Status)
	assert.Equal(t, StageFetchingData, job.Progress.Stage)
	assert.Equal(t, 0, job.Progress.Percentage)
	assert.Zero(t, job.TotalCost)
	assert.Nil(t, job.Result)
	assert.Equal(t, now, job.CreatedAt)
}

func TestJobStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from JobStatus
		to   JobStatus
		want bool
	}{
		{JobStatusPending, JobStatusProcessing, true},
		{JobStatusPending, JobStatusFailed, true},
		{JobStatusPending, JobStatusCompleted, false},
		{JobStatusProcessing, JobStatusProcessing, true},
		{JobStatusProcessing, JobStatusCompleted, true},
		{JobStatusProcessing, JobStatusFailed, true},
		{JobStatusProcessing, JobStatusPending, false},
		{JobStatusCompleted, JobStatusFailed, false},
		{JobStatusFailed, JobStatusProcessing, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestJob_Apply_Progress(t *testing.T) {
	now := time.Now()
	job := NewJob("job-1", "owner-1", "ctx-1", now)

	err := job.Apply(JobPatch{
		Status:     Ptr(JobStatusProcessing),
		Stage:      Ptr(StageAnalyzing),
		Percentage: Ptr(20),
		Message:    Ptr("Analyzing"),
	}, now.Add(time.Second))
	require.NoError(t, err)

	assert.Equal(t, JobStatusProcessing, job.Status)
	assert.Equal(t, StageAnalyzing, job.Progress.Stage)
	assert.Equal(t, 20, job.Progress.Percentage)
	assert.Equal(t, "Analyzing", job.Progress.Message)
	assert.Equal(t, now.Add(time.Second), job.UpdatedAt)
}

func TestJob_Apply_RejectsPercentageDecrease(t *testing.T) {
	job := NewJob("job-1", "owner-1", "ctx-1", time.Now())
	require.NoError(t, job.Apply(JobPatch{Status: Ptr(JobStatusProcessing), Percentage: Ptr(40)}, time.Now()))

	err := job.Apply(JobPatch{Percentage: Ptr(30)}, time.Now())
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, 40, job.Progress.Percentage)
}

func TestJob_Apply_RejectsOutOfRange(t *testing.T) {
	job := NewJob("job-1", "owner-1", "ctx-1", time.Now())
	assert.ErrorIs(t, job.Apply(JobPatch{Percentage: Ptr(101)}, time.Now()), ErrInvalidTransition)
	assert.ErrorIs(t, job.Apply(JobPatch{Percentage: Ptr(-1)}, time.Now()), ErrInvalidTransition)
}

func TestJob_Apply_RejectsStatusRegression(t *testing.T) {
	job := NewJob("job-1", "owner-1", "ctx-1", time.Now())
	require.NoError(t, job.Apply(JobPatch{Status: Ptr(JobStatusProcessing)}, time.Now()))

	err := job.Apply(JobPatch{Status: Ptr(JobStatusPending)}, time.Now())
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, JobStatusProcessing, job.Status)
}

func TestJob_Apply_TerminalIsFinal(t *testing.T) {
	job := NewJob("job-1", "owner-1", "ctx-1", time.Now())
	require.NoError(t, job.Apply(JobPatch{Status: Ptr(JobStatusFailed), Error: Ptr("boom")}, time.Now()))

	err := job.Apply(JobPatch{Message: Ptr("late")}, time.Now())
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestJob_Apply_CompletedForcesFullProgress(t *testing.T) {
	job := NewJob("job-1", "owner-1", "ctx-1", time.Now())
	require.NoError(t, job.Apply(JobPatch{Status: Ptr(JobStatusProcessing), Percentage: Ptr(95)}, time.Now()))

	err := job.Apply(JobPatch{
		Status: Ptr(JobStatusCompleted),
		Result: &JobResult{Text: "hello", WordCount: 1},
		Costs:  &CostBreakdown{Generation: 0.02, Asset: 0.04},
	}, time.Now())
	require.NoError(t, err)

	assert.Equal(t, 100, job.Progress.Percentage)
	assert.InDelta(t, 0.06, job.TotalCost, 1e-9)
	require.NotNil(t, job.Result)
	assert.Equal(t, "hello", job.Result.Text)
}

func TestJob_Apply_CompletedRequiresResult(t *testing.T) {
	job := NewJob("job-1", "owner-1", "ctx-1", time.Now())
	require.NoError(t, job.Apply(JobPatch{Status: Ptr(JobStatusProcessing)}, time.Now()))

	err := job.Apply(JobPatch{Status: Ptr(JobStatusCompleted)}, time.Now())
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, JobStatusProcessing, job.Status)
}

func TestJob_Apply_FailedRequiresError(t *testing.T) {
	job := NewJob("job-1", "owner-1", "ctx-1", time.Now())

	err := job.Apply(JobPatch{Status: Ptr(JobStatusFailed)}, time.Now())
	assert.ErrorIs(t, err, ErrInvalidTransition)

	require.NoError(t, job.Apply(JobPatch{Status: Ptr(JobStatusFailed), Error: Ptr("timeout")}, time.Now()))
	assert.Equal(t, 100, job.Progress.Percentage)
}

func TestCreateJobRequest_Validate(t *testing.T) {
	assert.NoError(t, CreateJobRequest{OwnerID: "o", ContextID: "c"}.Validate())

	err := CreateJobRequest{OwnerID: "o"}.Validate()
	assert.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "contextId")

	err = CreateJobRequest{ContextID: "  "}.Validate()
	assert.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "ownerId, contextId")
}

func TestStage_Band(t *testing.T) {
	prevEnd := 0
	for _, s := range Stages() {
		band := s.Band()
		assert.Equal(t, prevEnd, band.Start, "stage %s", s)
		assert.Greater(t, band.End, band.Start)
		prevEnd = band.End
	}
	assert.Equal(t, 100, prevEnd)
	assert.Equal(t, StageBand{}, Stage("unknown").Band())
}
