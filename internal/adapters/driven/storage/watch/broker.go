// Package watch fans job record updates out to subscribers.
package watch

import (
	"context"
	"sync"

	"github.com/custodia-labs/postsmith/internal/core/domain"
)

// subscriberBuffer is how many snapshots a slow subscriber may lag behind.
const subscriberBuffer = 32

type subscriber struct {
	jobID string
	ch    chan domain.Job
	done  chan struct{}
}

// Broker delivers job snapshots to subscribers. A subscriber that falls
// behind loses intermediate snapshots but always receives the terminal one.
type Broker struct {
	mu   sync.Mutex
	subs map[*subscriber]struct{}
}

// NewBroker creates an empty broker.
func NewBroker() *Broker {
	return &Broker{subs: make(map[*subscriber]struct{})}
}

// Subscribe registers for updates of one job, starting with current. The
// channel closes once a terminal snapshot is delivered or ctx is done.
func (b *Broker) Subscribe(ctx context.Context, current domain.Job) <-chan domain.Job {
	s := &subscriber{
		jobID: current.ID,
		ch:    make(chan domain.Job, subscriberBuffer),
		done:  make(chan struct{}),
	}
	s.ch <- current
	if current.Status.IsTerminal() {
		close(s.ch)
		return s.ch
	}

	b.mu.Lock()
	b.subs[s] = struct{}{}
	b.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			b.remove(s)
		case <-s.done:
		}
	}()
	return s.ch
}

// Publish sends a snapshot to the job's subscribers.
func (b *Broker) Publish(job domain.Job) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for s := range b.subs {
		if s.jobID != job.ID {
			continue
		}
		deliver(s.ch, job, job.Status.IsTerminal())
		if job.Status.IsTerminal() {
			b.drop(s)
		}
	}
}

// Len returns the number of live subscribers.
func (b *Broker) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

func (b *Broker) remove(s *subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[s]; ok {
		b.drop(s)
	}
}

// drop must be called with mu held.
func (b *Broker) drop(s *subscriber) {
	delete(b.subs, s)
	close(s.ch)
	close(s.done)
}

// deliver sends without blocking. When force is set and the buffer is full,
// the oldest snapshot is dropped to make room.
func deliver(ch chan domain.Job, job domain.Job, force bool) {
	select {
	case ch <- job:
		return
	default:
	}
	if !force {
		return
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- job:
	default:
	}
}
