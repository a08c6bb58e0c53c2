package mcp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/postsmith/internal/core/domain"
)

func newTestServer(t *testing.T, ports *Ports) *Server {
	t.Helper()
	server, err := NewServer(ports, testRetrieval)
	require.NoError(t, err)
	return server
}

func TestServer_handleSearch(t *testing.T) {
	ctx := context.Background()
	date := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)
	result := domain.RetrievalResult{
		Query: "agents",
		Chunks: []domain.RetrievedChunk{
			{ParentID: "n1", Subject: "Weekly AI", From: "ai@example.com", Date: date, Text: "Agents are here", Score: 0.91},
			{ParentID: "n1", Subject: "Weekly AI", Text: "More on agents", Score: 0.71},
		},
		Sources: []domain.SourceGroup{{ParentID: "n1", Subject: "Weekly AI", Score: 0.81}},
	}
	result.Sources[0].Chunks = result.Chunks

	t.Run("returns search results", func(t *testing.T) {
		ret := &mockRetrievalService{result: result}
		server := newTestServer(t, &Ports{Retrieval: ret})

		_, output, err := server.handleSearch(ctx, nil, SearchInput{Query: "agents", Limit: 4})

		require.NoError(t, err)
		assert.Equal(t, "retrieve", ret.called)
		assert.Equal(t, 4, ret.query.Limit)
		assert.Equal(t, 2, output.Count)
		assert.Equal(t, "n1", output.Results[0].NewsletterID)
		assert.Equal(t, "2026-09-01T08:00:00Z", output.Results[0].Date)
		assert.Empty(t, output.Results[1].Date)
		require.Len(t, output.Sources, 1)
		assert.Equal(t, 2, output.Sources[0].Chunks)
	})

	t.Run("defaults come from settings", func(t *testing.T) {
		ret := &mockRetrievalService{}
		server := newTestServer(t, &Ports{Retrieval: ret})

		_, output, err := server.handleSearch(ctx, nil, SearchInput{Query: "x"})

		require.NoError(t, err)
		assert.Equal(t, 0, output.Count)
		assert.Equal(t, 8, ret.query.Limit)
		assert.InDelta(t, 0.5, ret.query.MinScore, 1e-9)
	})

	t.Run("topics use multi-topic retrieval", func(t *testing.T) {
		ret := &mockRetrievalService{result: result}
		server := newTestServer(t, &Ports{Retrieval: ret})

		_, _, err := server.handleSearch(ctx, nil, SearchInput{Topics: []string{"agents", "evals"}})

		require.NoError(t, err)
		assert.Equal(t, "topics", ret.called)
		assert.Equal(t, []string{"agents", "evals"}, ret.topics)
	})

	t.Run("recent applies recency options", func(t *testing.T) {
		ret := &mockRetrievalService{result: result}
		server := newTestServer(t, &Ports{Retrieval: ret})
		minScore := 0.2

		_, _, err := server.handleSearch(ctx, nil, SearchInput{Query: "agents", Recent: true, MinScore: &minScore})

		require.NoError(t, err)
		assert.Equal(t, "recent", ret.called)
		assert.Equal(t, 30*24*time.Hour, ret.recency.Window)
		assert.InDelta(t, 0.2, ret.query.MinScore, 1e-9)
	})

	t.Run("returns error on retrieval failure", func(t *testing.T) {
		ret := &mockRetrievalService{err: errors.New("vector store down")}
		server := newTestServer(t, &Ports{Retrieval: ret})

		_, _, err := server.handleSearch(ctx, nil, SearchInput{Query: "x"})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "vector store down")
	})
}

func TestServer_handleCreateJob(t *testing.T) {
	ctx := context.Background()

	t.Run("creates job", func(t *testing.T) {
		jobs := &mockJobService{resp: domain.CreateJobResponse{Success: true, JobID: "job_abc", Message: "started"}}
		server := newTestServer(t, &Ports{Retrieval: &mockRetrievalService{}, Jobs: jobs})

		_, out, err := server.handleCreateJob(ctx, nil, CreateJobInput{ContextID: "trend_42", OwnerID: "u1"})

		require.NoError(t, err)
		assert.True(t, out.Success)
		assert.Equal(t, "job_abc", out.JobID)
		require.Len(t, jobs.created, 1)
		assert.Equal(t, "trend_42", jobs.created[0].ContextID)
	})

	t.Run("validation error", func(t *testing.T) {
		jobs := &mockJobService{err: domain.ErrValidation}
		server := newTestServer(t, &Ports{Retrieval: &mockRetrievalService{}, Jobs: jobs})

		_, _, err := server.handleCreateJob(ctx, nil, CreateJobInput{})

		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("no job service", func(t *testing.T) {
		server := newTestServer(t, &Ports{Retrieval: &mockRetrievalService{}})
		_, _, err := server.handleCreateJob(ctx, nil, CreateJobInput{ContextID: "c"})
		assert.ErrorIs(t, err, errUnavailable)
	})
}

func TestServer_handleGetJob(t *testing.T) {
	ctx := context.Background()

	t.Run("completed job includes result", func(t *testing.T) {
		job := domain.NewJob("job_1", "u1", "trend_42", time.Now())
		job.Status = domain.JobStatusCompleted
		job.Progress = domain.Progress{Stage: domain.StageFinalizing, Percentage: 100, Message: "Post generated"}
		job.Result = &domain.JobResult{Text: "post", WordCount: 140, Hashtags: []string{"#ai"}}
		job.TotalCost = 0.02
		server := newTestServer(t, &Ports{Retrieval: &mockRetrievalService{}, Jobs: &mockJobService{job: &job}})

		_, out, err := server.handleGetJob(ctx, nil, GetJobInput{JobID: "job_1"})

		require.NoError(t, err)
		assert.Equal(t, "completed", out.Status)
		assert.Equal(t, 100, out.Percentage)
		assert.Equal(t, 140, out.WordCount)
		assert.Equal(t, []string{"#ai"}, out.Hashtags)
		assert.InDelta(t, 0.02, out.TotalCost, 1e-9)
	})

	t.Run("missing id", func(t *testing.T) {
		server := newTestServer(t, &Ports{Retrieval: &mockRetrievalService{}, Jobs: &mockJobService{}})
		_, _, err := server.handleGetJob(ctx, nil, GetJobInput{})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("not found", func(t *testing.T) {
		jobs := &mockJobService{err: domain.ErrNotFound}
		server := newTestServer(t, &Ports{Retrieval: &mockRetrievalService{}, Jobs: jobs})
		_, _, err := server.handleGetJob(ctx, nil, GetJobInput{JobID: "nope"})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestServer_handleIndex(t *testing.T) {
	ctx := context.Background()

	t.Run("indexes stored newsletter", func(t *testing.T) {
		index := &mockIndexService{result: domain.IndexingResult{NewsletterID: "n1", Success: true, ChunksCreated: 3}}
		news := &mockNewsletterService{newsletter: &domain.Newsletter{ID: "n1", Body: "hello"}}
		server := newTestServer(t, &Ports{Retrieval: &mockRetrievalService{}, Index: index, Newsletters: news})

		_, out, err := server.handleIndex(ctx, nil, IndexInput{NewsletterID: "n1"})

		require.NoError(t, err)
		assert.True(t, out.Success)
		assert.Equal(t, 3, out.ChunksCreated)
		assert.Equal(t, []string{"n1"}, index.indexed)
	})

	t.Run("indexing failure is reported in output", func(t *testing.T) {
		index := &mockIndexService{
			result: domain.IndexingResult{NewsletterID: "n1", Error: "embed chunks: provider error"},
			err:    domain.ErrProvider,
		}
		news := &mockNewsletterService{newsletter: &domain.Newsletter{ID: "n1"}}
		server := newTestServer(t, &Ports{Retrieval: &mockRetrievalService{}, Index: index, Newsletters: news})

		_, out, err := server.handleIndex(ctx, nil, IndexInput{NewsletterID: "n1"})

		require.NoError(t, err)
		assert.False(t, out.Success)
		assert.Contains(t, out.Error, "provider")
	})

	t.Run("unknown newsletter", func(t *testing.T) {
		news := &mockNewsletterService{err: domain.ErrNotFound}
		server := newTestServer(t, &Ports{Retrieval: &mockRetrievalService{}, Index: &mockIndexService{}, Newsletters: news})

		_, _, err := server.handleIndex(ctx, nil, IndexInput{NewsletterID: "nope"})

		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("not configured", func(t *testing.T) {
		server := newTestServer(t, &Ports{Retrieval: &mockRetrievalService{}})
		_, _, err := server.handleIndex(ctx, nil, IndexInput{NewsletterID: "n1"})
		assert.ErrorIs(t, err, errUnavailable)
	})
}
