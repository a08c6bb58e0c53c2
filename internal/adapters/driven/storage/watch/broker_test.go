package watch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/postsmith/internal/core/domain"
)

func newJob(id string) domain.Job {
	return domain.NewJob(id, "owner-1", "ctx-1", time.Now())
}

func drain(t *testing.T, ch <-chan domain.Job) []domain.Job {
	t.Helper()
	var got []domain.Job
	timeout := time.After(2 * time.Second)
	for {
		select {
		case j, ok := <-ch:
			if !ok {
				return got
			}
			got = append(got, j)
		case <-timeout:
			t.Fatal("subscription channel was not closed")
			return got
		}
	}
}

func TestBroker_DeliversCurrentThenUpdates(t *testing.T) {
	b := NewBroker()
	job := newJob("job-1")

	ch := b.Subscribe(context.Background(), job)

	job.Status = domain.JobStatusProcessing
	job.Progress.Percentage = 30
	b.Publish(job)

	job.Status = domain.JobStatusCompleted
	job.Progress.Percentage = 100
	b.Publish(job)

	got := drain(t, ch)
	require.Len(t, got, 3)
	assert.Equal(t, domain.JobStatusPending, got[0].Status)
	assert.Equal(t, 30, got[1].Progress.Percentage)
	assert.Equal(t, domain.JobStatusCompleted, got[2].Status)
	assert.Equal(t, 0, b.Len())
}

func TestBroker_TerminalJobClosesImmediately(t *testing.T) {
	b := NewBroker()
	job := newJob("job-1")
	job.Status = domain.JobStatusFailed

	got := drain(t, b.Subscribe(context.Background(), job))

	require.Len(t, got, 1)
	assert.Equal(t, 0, b.Len())
}

func TestBroker_IgnoresOtherJobs(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe(context.Background(), newJob("job-1"))

	other := newJob("job-2")
	other.Status = domain.JobStatusCompleted
	b.Publish(other)

	assert.Equal(t, 1, b.Len())
	<-ch
	select {
	case j := <-ch:
		t.Fatalf("unexpected snapshot for %s", j.ID)
	default:
	}
}

func TestBroker_ContextCancelCloses(t *testing.T) {
	b := NewBroker()
	ctx, cancel := context.WithCancel(context.Background())
	ch := b.Subscribe(ctx, newJob("job-1"))

	cancel()

	got := drain(t, ch)
	assert.Len(t, got, 1)
	assert.Eventually(t, func() bool { return b.Len() == 0 }, time.Second, 10*time.Millisecond)
}

func TestBroker_SlowSubscriberStillGetsTerminal(t *testing.T) {
	b := NewBroker()
	job := newJob("job-1")
	ch := b.Subscribe(context.Background(), job)

	job.Status = domain.JobStatusProcessing
	for i := 0; i < subscriberBuffer*2; i++ {
		job.Progress.Message = "tick"
		b.Publish(job)
	}
	job.Status = domain.JobStatusCompleted
	b.Publish(job)

	got := drain(t, ch)
	require.NotEmpty(t, got)
	assert.LessOrEqual(t, len(got), subscriberBuffer)
	assert.Equal(t, domain.JobStatusCompleted, got[len(got)-1].Status)
}
