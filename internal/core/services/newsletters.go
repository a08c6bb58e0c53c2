package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/postsmith/internal/core/domain"
	"github.com/custodia-labs/postsmith/internal/core/ports/driven"
	"github.com/custodia-labs/postsmith/internal/core/ports/driving"
)

// Ensure NewsletterService implements the interface.
var _ driving.NewsletterService = (*NewsletterService)(nil)

// NewsletterService stores incoming newsletters and indexes them.
type NewsletterService struct {
	store   driven.NewsletterStore
	indexer driving.IndexService
	now     func() time.Time
}

// NewNewsletterService creates a newsletter service.
func NewNewsletterService(store driven.NewsletterStore, indexer driving.IndexService) *NewsletterService {
	return &NewsletterService{store: store, indexer: indexer, now: time.Now}
}

// Ingest stores the newsletter as unindexed, then indexes it. Indexing
// failures leave the newsletter stored so it can be retried.
func (s *NewsletterService) Ingest(ctx context.Context, n domain.Newsletter) (domain.IndexingResult, error) {
	if strings.TrimSpace(n.ID) == "" {
		return domain.IndexingResult{}, fmt.Errorf("%w: newsletter id is required", domain.ErrValidation)
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = s.now().UTC()
	}
	n.Indexed = false
	n.IndexedAt = nil
	n.ChunkCount = 0
	if err := s.store.Save(ctx, n); err != nil {
		return domain.IndexingResult{}, persistenceErr("save newsletter", err)
	}
	return s.indexer.IndexNewsletter(ctx, n)
}

// GetNewsletter retrieves a newsletter by ID.
func (s *NewsletterService) GetNewsletter(ctx context.Context, id string) (*domain.Newsletter, error) {
	return s.store.Get(ctx, id)
}

// ListNewsletters returns an owner's newsletters.
func (s *NewsletterService) ListNewsletters(ctx context.Context, ownerID string) ([]domain.Newsletter, error) {
	return s.store.List(ctx, ownerID)
}
