package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/postsmith/internal/chunker"
	"github.com/custodia-labs/postsmith/internal/core/domain"
	"github.com/custodia-labs/postsmith/internal/core/ports/driven"
	"github.com/custodia-labs/postsmith/internal/core/ports/driving"
	"github.com/custodia-labs/postsmith/internal/logger"
)

// Ensure IndexerService implements the interface.
var _ driving.IndexService = (*IndexerService)(nil)

// DefaultSubBatchSize bounds how many newsletters are indexed concurrently.
const DefaultSubBatchSize = 10

// pointNamespace scopes deterministic point IDs to newsletter chunks.
var pointNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("postsmith:newsletter-chunk"))

// IndexerService chunks, embeds and stores newsletters.
type IndexerService struct {
	embedder     driven.EmbeddingService
	vectors      driven.VectorStore
	newsletters  driven.NewsletterStore
	accountant   *Accountant
	chunker      *chunker.Chunker
	collection   string
	subBatchSize int
	now          func() time.Time
}

// IndexerOption configures the indexer.
type IndexerOption func(*IndexerService)

// WithChunker replaces the default chunker.
func WithChunker(c *chunker.Chunker) IndexerOption {
	return func(s *IndexerService) {
		if c != nil {
			s.chunker = c
		}
	}
}

// WithSubBatchSize sets how many newsletters are indexed at once.
func WithSubBatchSize(n int) IndexerOption {
	return func(s *IndexerService) {
		if n > 0 {
			s.subBatchSize = n
		}
	}
}

// NewIndexerService creates an indexer writing into the given collection.
func NewIndexerService(
	embedder driven.EmbeddingService,
	vectors driven.VectorStore,
	newsletters driven.NewsletterStore,
	accountant *Accountant,
	collection string,
	opts ...IndexerOption,
) *IndexerService {
	s := &IndexerService{
		embedder:     embedder,
		vectors:      vectors,
		newsletters:  newsletters,
		accountant:   accountant,
		chunker:      chunker.New(),
		collection:   collection,
		subBatchSize: DefaultSubBatchSize,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PointID returns the deterministic vector point ID of a chunk.
func PointID(newsletterID string, index int) string {
	return uuid.NewSHA1(pointNamespace, []byte(newsletterID+":"+strconv.Itoa(index))).String()
}

// IndexNewsletter replaces any previous chunks of the newsletter with fresh ones.
// A newsletter with an empty body succeeds with zero chunks and zero cost.
func (s *IndexerService) IndexNewsletter(ctx context.Context, n domain.Newsletter) (domain.IndexingResult, error) {
	result := domain.IndexingResult{NewsletterID: n.ID}
	fail := func(err error) (domain.IndexingResult, error) {
		result.Success = false
		result.ChunksCreated = 0
		result.Error = err.Error()
		logger.Warn("indexing newsletter %s failed: %v", n.ID, err)
		return result, err
	}

	if strings.TrimSpace(n.ID) == "" {
		return fail(fmt.Errorf("%w: newsletter id is required", domain.ErrInvalidInput))
	}

	logger.Debug("indexing newsletter %s (%q)", n.ID, n.Subject)

	if err := s.vectors.EnsureCollection(ctx, s.collection, s.embedder.Dimensions()); err != nil {
		return fail(persistenceErr("ensure collection", err))
	}

	var texts []string
	if strings.TrimSpace(n.Body) != "" {
		texts = s.chunker.Chunks(n.CompositeText())
	}
	chunks, err := s.embedChunks(ctx, n.ID, texts)
	if err != nil {
		return fail(err)
	}

	// Earlier chunks are replaced only once the new embeddings exist. From
	// here on a failure leaves the newsletter unindexed so it is retried.
	failReset := func(err error) (domain.IndexingResult, error) {
		if rerr := s.newsletters.ResetIndexed(ctx, n.ID); rerr != nil {
			logger.Warn("resetting newsletter %s after failed indexing: %v", n.ID, rerr)
		}
		return fail(err)
	}
	if err := s.clearChunks(ctx, n.ID); err != nil {
		return failReset(err)
	}

	now := s.now().UTC()
	if len(chunks) == 0 {
		if err := s.newsletters.MarkIndexed(ctx, n.ID, 0, now); err != nil {
			return failReset(persistenceErr("mark indexed", err))
		}
		result.Success = true
		return result, nil
	}

	date := ""
	if !n.Date.IsZero() {
		date = n.Date.UTC().Format(time.RFC3339)
	}
	points := make([]domain.VectorPoint, len(chunks))
	records := make([]domain.ChunkRecord, len(chunks))
	for i, c := range chunks {
		points[i] = domain.VectorPoint{
			ID:     c.ID,
			Vector: c.Embedding,
			Payload: domain.ChunkPayload{
				ParentID:   c.ParentID,
				ChunkIndex: c.Index,
				Text:       c.Text,
				Subject:    n.Subject,
				From:       n.From,
				Date:       date,
				OwnerID:    n.OwnerID,
				SourceType: domain.SourceTypeNewsletter,
			},
		}
		records[i] = domain.ChunkRecord{
			ID:           c.ID,
			NewsletterID: c.ParentID,
			OwnerID:      n.OwnerID,
			ChunkIndex:   c.Index,
			CreatedAt:    now,
		}
	}

	if err := s.vectors.Upsert(ctx, s.collection, points); err != nil {
		return failReset(persistenceErr("upsert points", err))
	}
	if err := s.newsletters.SaveChunkRecords(ctx, records); err != nil {
		return failReset(persistenceErr("save chunk records", err))
	}
	if err := s.newsletters.MarkIndexed(ctx, n.ID, len(points), now); err != nil {
		return failReset(persistenceErr("mark indexed", err))
	}

	result.Success = true
	result.ChunksCreated = len(points)
	result.Cost = s.accountant.Record(ctx, n.OwnerID, domain.OperationEmbedding, s.embedder.ModelName(),
		domain.Usage{InputUnits: EstimateTokens(texts)},
		map[string]string{"newsletterId": n.ID, "chunks": strconv.Itoa(len(points)), "estimated": "true"})

	logger.Debug("indexed newsletter %s: %d chunks, $%.6f", n.ID, result.ChunksCreated, result.Cost)
	return result, nil
}

// embedChunks embeds texts and pairs each vector with its chunk.
func (s *IndexerService) embedChunks(ctx context.Context, parentID string, texts []string) ([]domain.Chunk, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, providerErr("embed chunks", err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d chunks", domain.ErrProvider, len(vectors), len(texts))
	}

	dims := s.embedder.Dimensions()
	chunks := make([]domain.Chunk, len(texts))
	for i, text := range texts {
		if len(vectors[i]) != dims {
			return nil, fmt.Errorf("%w: embedding %d has %d dimensions, want %d", domain.ErrProvider, i, len(vectors[i]), dims)
		}
		chunks[i] = domain.Chunk{
			ID:        PointID(parentID, i),
			ParentID:  parentID,
			Index:     i,
			Text:      text,
			Embedding: vectors[i],
		}
	}
	return chunks, nil
}

// IndexBatch indexes newsletters in sequential sub-batches. Newsletters in
// one sub-batch are indexed concurrently. Failures are recorded per
// newsletter and never abort the batch.
func (s *IndexerService) IndexBatch(ctx context.Context, newsletters []domain.Newsletter) domain.BatchIndexingResult {
	batch := domain.BatchIndexingResult{Results: make([]domain.IndexingResult, 0, len(newsletters))}

	for start := 0; start < len(newsletters); start += s.subBatchSize {
		end := min(start+s.subBatchSize, len(newsletters))
		sub := newsletters[start:end]
		results := make([]domain.IndexingResult, len(sub))

		var g errgroup.Group
		for i := range sub {
			g.Go(func() error {
				// Errors are already captured in the result.
				results[i], _ = s.IndexNewsletter(ctx, sub[i])
				return nil
			})
		}
		_ = g.Wait()

		for _, r := range results {
			batch.Add(r)
		}
		logger.Debug("indexed sub-batch %d-%d of %d", start+1, end, len(newsletters))
	}

	logger.Info("batch indexed: %d ok, %d failed, %d chunks", batch.SuccessCount, batch.FailureCount, batch.TotalChunks)
	return batch
}

// IndexUnindexed batches every unindexed newsletter of an owner.
func (s *IndexerService) IndexUnindexed(ctx context.Context, ownerID string) (domain.BatchIndexingResult, error) {
	pending, err := s.newsletters.ListUnindexed(ctx, ownerID)
	if err != nil {
		return domain.BatchIndexingResult{}, fmt.Errorf("list unindexed: %w", err)
	}
	return s.IndexBatch(ctx, pending), nil
}

// RemoveNewsletter deletes a newsletter's points and tracking records and
// resets its indexed flag.
func (s *IndexerService) RemoveNewsletter(ctx context.Context, newsletterID string) error {
	if _, err := s.newsletters.Get(ctx, newsletterID); err != nil {
		return fmt.Errorf("get newsletter %s: %w", newsletterID, err)
	}
	if err := s.clearChunks(ctx, newsletterID); err != nil {
		return err
	}
	if err := s.newsletters.ResetIndexed(ctx, newsletterID); err != nil {
		return persistenceErr("reset indexed", err)
	}
	logger.Debug("removed newsletter %s from index", newsletterID)
	return nil
}

func (s *IndexerService) clearChunks(ctx context.Context, newsletterID string) error {
	filter := domain.Filter{domain.PayloadParentID: newsletterID}
	if err := s.vectors.DeleteByFilter(ctx, s.collection, filter); err != nil {
		return persistenceErr("delete points", err)
	}
	if err := s.newsletters.DeleteChunkRecords(ctx, newsletterID); err != nil {
		return persistenceErr("delete chunk records", err)
	}
	return nil
}

// persistenceErr wraps err as a persistence error unless it already classifies.
func persistenceErr(op string, err error) error {
	if errors.Is(err, domain.ErrPersistence) || errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrPersistence, err)
}
