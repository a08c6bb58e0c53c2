package mcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/postsmith/internal/core/domain"
	"github.com/custodia-labs/postsmith/internal/core/ports/driving"
)

// SearchInput is the input schema for the search_newsletters tool.
type SearchInput struct {
	Query    string   `json:"query,omitempty" jsonschema:"the search query; may be empty when topics are given"`
	OwnerID  string   `json:"owner_id,omitempty" jsonschema:"restrict results to one owner's newsletters"`
	Topics   []string `json:"topics,omitempty" jsonschema:"search several topics at once and merge the results"`
	Recent   bool     `json:"recent,omitempty" jsonschema:"boost newsletters from the recent window"`
	Limit    int      `json:"limit,omitempty" jsonschema:"maximum number of chunks to return"`
	MinScore *float64 `json:"min_score,omitempty" jsonschema:"minimum similarity score between 0 and 1"`
}

// SearchOutput is the output schema for the search_newsletters tool.
type SearchOutput struct {
	Query   string               `json:"query"`
	Results []SearchResultOutput `json:"results"`
	Sources []SearchSourceOutput `json:"sources"`
	Count   int                  `json:"count"`
}

// SearchResultOutput represents one retrieved chunk.
type SearchResultOutput struct {
	NewsletterID string  `json:"newsletter_id"`
	Subject      string  `json:"subject"`
	From         string  `json:"from"`
	Date         string  `json:"date,omitempty"`
	Score        float64 `json:"score"`
	Boosted      bool    `json:"boosted,omitempty"`
	Text         string  `json:"text"`
}

// SearchSourceOutput is one newsletter with its mean chunk score.
type SearchSourceOutput struct {
	NewsletterID string  `json:"newsletter_id"`
	Subject      string  `json:"subject"`
	Score        float64 `json:"score"`
	Chunks       int     `json:"chunks"`
}

// CreateJobInput is the input schema for the create_post_job tool.
type CreateJobInput struct {
	ContextID string `json:"context_id" jsonschema:"the trend, idea or session the post is built from"`
	OwnerID   string `json:"owner_id,omitempty" jsonschema:"owner of the job"`
}

// CreateJobOutput is the output schema for the create_post_job tool.
type CreateJobOutput struct {
	Success bool   `json:"success"`
	JobID   string `json:"job_id"`
	Message string `json:"message"`
}

// GetJobInput is the input schema for the get_job tool.
type GetJobInput struct {
	JobID string `json:"job_id" jsonschema:"the job identifier returned by create_post_job"`
}

// JobOutput is the output schema for the get_job tool.
type JobOutput struct {
	JobID      string   `json:"job_id"`
	Status     string   `json:"status"`
	Stage      string   `json:"stage"`
	Percentage int      `json:"percentage"`
	Message    string   `json:"message"`
	Text       string   `json:"text,omitempty"`
	WordCount  int      `json:"word_count,omitempty"`
	Hashtags   []string `json:"hashtags,omitempty"`
	AssetURL   string   `json:"asset_url,omitempty"`
	TotalCost  float64  `json:"total_cost"`
	Error      string   `json:"error,omitempty"`
}

// IndexInput is the input schema for the index_newsletter tool.
type IndexInput struct {
	NewsletterID string `json:"newsletter_id" jsonschema:"the stored newsletter to (re)index"`
}

// IndexOutput is the output schema for the index_newsletter tool.
type IndexOutput struct {
	NewsletterID  string  `json:"newsletter_id"`
	Success       bool    `json:"success"`
	ChunksCreated int     `json:"chunks_created"`
	Cost          float64 `json:"cost"`
	Error         string  `json:"error,omitempty"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search_newsletters",
		Description: "Semantic search across indexed newsletters",
	}, s.handleSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "create_post_job",
		Description: "Start generating a post from a trend, idea or session; returns a job ID immediately",
	}, s.handleCreateJob)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_job",
		Description: "Read a generation job's status, progress and result",
	}, s.handleGetJob)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "index_newsletter",
		Description: "Re-index a stored newsletter, replacing its previous chunks",
	}, s.handleIndex)
}

// handleSearch handles the search_newsletters tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	q := domain.RetrievalQuery{
		Query:    strings.TrimSpace(input.Query),
		OwnerID:  input.OwnerID,
		Limit:    input.Limit,
		MinScore: s.retrieval.MinScore,
	}
	if q.Limit <= 0 {
		q.Limit = s.retrieval.Limit
	}
	if input.MinScore != nil {
		q.MinScore = *input.MinScore
	}

	var (
		res domain.RetrievalResult
		err error
	)
	switch {
	case len(input.Topics) > 0:
		res, err = s.ports.Retrieval.RetrieveTopics(ctx, input.Topics, q)
	case input.Recent:
		res, err = s.ports.Retrieval.RetrieveRecent(ctx, q, driving.RecencyOptions{
			Window: s.retrieval.RecencyWindow(),
			Boost:  s.retrieval.RecencyBoost,
		})
	default:
		res, err = s.ports.Retrieval.Retrieve(ctx, q)
	}
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Query:   res.Query,
		Results: make([]SearchResultOutput, len(res.Chunks)),
		Sources: make([]SearchSourceOutput, len(res.Sources)),
		Count:   len(res.Chunks),
	}
	for i, c := range res.Chunks {
		output.Results[i] = SearchResultOutput{
			NewsletterID: c.ParentID,
			Subject:      c.Subject,
			From:         c.From,
			Date:         formatDate(c.Date),
			Score:        c.Score,
			Boosted:      c.Boosted,
			Text:         c.Text,
		}
	}
	for i, src := range res.Sources {
		output.Sources[i] = SearchSourceOutput{
			NewsletterID: src.ParentID,
			Subject:      src.Subject,
			Score:        src.Score,
			Chunks:       len(src.Chunks),
		}
	}

	return nil, output, nil
}

// handleCreateJob handles the create_post_job tool invocation.
func (s *Server) handleCreateJob(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input CreateJobInput,
) (*mcp.CallToolResult, CreateJobOutput, error) {
	if s.ports.Jobs == nil {
		return nil, CreateJobOutput{}, errUnavailable
	}
	resp, err := s.ports.Jobs.CreateJob(ctx, domain.CreateJobRequest{
		OwnerID:   input.OwnerID,
		ContextID: input.ContextID,
	})
	if err != nil {
		return nil, CreateJobOutput{}, err
	}
	return nil, CreateJobOutput{
		Success: resp.Success,
		JobID:   resp.JobID,
		Message: resp.Message,
	}, nil
}

// handleGetJob handles the get_job tool invocation.
func (s *Server) handleGetJob(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GetJobInput,
) (*mcp.CallToolResult, JobOutput, error) {
	if s.ports.Jobs == nil {
		return nil, JobOutput{}, errUnavailable
	}
	if strings.TrimSpace(input.JobID) == "" {
		return nil, JobOutput{}, fmt.Errorf("%w: job_id is required", domain.ErrInvalidInput)
	}
	job, err := s.ports.Jobs.GetJob(ctx, input.JobID)
	if err != nil {
		return nil, JobOutput{}, err
	}
	return nil, jobOutput(job), nil
}

// handleIndex handles the index_newsletter tool invocation.
func (s *Server) handleIndex(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input IndexInput,
) (*mcp.CallToolResult, IndexOutput, error) {
	if s.ports.Index == nil || s.ports.Newsletters == nil {
		return nil, IndexOutput{}, errUnavailable
	}
	n, err := s.ports.Newsletters.GetNewsletter(ctx, input.NewsletterID)
	if err != nil {
		return nil, IndexOutput{}, err
	}
	// A failed index is reported in the output, not as a tool error.
	res, _ := s.ports.Index.IndexNewsletter(ctx, *n)
	return nil, IndexOutput{
		NewsletterID:  res.NewsletterID,
		Success:       res.Success,
		ChunksCreated: res.ChunksCreated,
		Cost:          res.Cost,
		Error:         res.Error,
	}, nil
}

func jobOutput(job *domain.Job) JobOutput {
	out := JobOutput{
		JobID:      job.ID,
		Status:     string(job.Status),
		Stage:      string(job.Progress.Stage),
		Percentage: job.Progress.Percentage,
		Message:    job.Progress.Message,
		TotalCost:  job.TotalCost,
		Error:      job.Error,
	}
	if job.Result != nil {
		out.Text = job.Result.Text
		out.WordCount = job.Result.WordCount
		out.Hashtags = job.Result.Hashtags
		out.AssetURL = job.Result.AssetURL
	}
	return out
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
