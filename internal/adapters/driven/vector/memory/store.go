// Package memory provides an in-process VectorStore using brute-force cosine
// similarity. It suits tests and small local corpora.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/custodia-labs/postsmith/internal/core/domain"
	"github.com/custodia-labs/postsmith/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

type collection struct {
	dimensions int
	points     map[string]domain.VectorPoint
}

// Store keeps collections in memory.
type Store struct {
	mu          sync.RWMutex
	collections map[string]*collection
}

// NewStore creates an empty in-memory vector store.
func NewStore() *Store {
	return &Store{collections: make(map[string]*collection)}
}

// EnsureCollection creates the collection if absent.
func (s *Store) EnsureCollection(_ context.Context, name string, dimensions int) error {
	if dimensions <= 0 {
		return fmt.Errorf("%w: invalid dimension %d", domain.ErrInvalidInput, dimensions)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.collections[name]; ok {
		if c.dimensions != dimensions {
			return fmt.Errorf("%w: collection %s has %d dimensions, want %d",
				domain.ErrPersistence, name, c.dimensions, dimensions)
		}
		return nil
	}
	s.collections[name] = &collection{dimensions: dimensions, points: make(map[string]domain.VectorPoint)}
	return nil
}

// Upsert validates every point before writing any of them.
func (s *Store) Upsert(_ context.Context, name string, points []domain.VectorPoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[name]
	if !ok {
		return fmt.Errorf("%w: collection %s does not exist", domain.ErrPersistence, name)
	}
	for _, p := range points {
		if len(p.Vector) != c.dimensions {
			return fmt.Errorf("%w: point %s has %d dimensions, want %d",
				domain.ErrPersistence, p.ID, len(p.Vector), c.dimensions)
		}
	}
	for _, p := range points {
		p.Vector = append([]float32(nil), p.Vector...)
		c.points[p.ID] = p
	}
	return nil
}

// Search scores every matching point and returns the best limit hits.
func (s *Store) Search(
	_ context.Context,
	name string,
	vector []float32,
	limit int,
	filter domain.Filter,
) ([]domain.VectorHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collections[name]
	if !ok {
		return nil, nil
	}
	if len(vector) != c.dimensions {
		return nil, fmt.Errorf("%w: query has %d dimensions, want %d", domain.ErrInvalidInput, len(vector), c.dimensions)
	}

	hits := make([]domain.VectorHit, 0, len(c.points))
	for _, p := range c.points {
		if !p.Payload.Matches(filter) {
			continue
		}
		hits = append(hits, domain.VectorHit{
			ID:      p.ID,
			Score:   Cosine(vector, p.Vector),
			Payload: p.Payload,
		})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// DeleteByFilter removes matching points. An empty filter is rejected.
func (s *Store) DeleteByFilter(_ context.Context, name string, filter domain.Filter) error {
	if len(filter) == 0 {
		return fmt.Errorf("%w: delete requires a filter", domain.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[name]
	if !ok {
		return nil
	}
	for id, p := range c.points {
		if p.Payload.Matches(filter) {
			delete(c.points, id)
		}
	}
	return nil
}

// Count returns the number of points in a collection.
func (s *Store) Count(name string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.collections[name]; ok {
		return len(c.points)
	}
	return 0
}

// Close releases resources.
func (s *Store) Close() error {
	return nil
}

// Cosine returns the cosine similarity of a and b, or 0 if either is a zero vector.
func Cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
