package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	// uriScheme is the custom URI scheme for postsmith resources.
	uriScheme = "postsmith://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "contexts",
		Name:        "contexts",
		Description: "Trends, ideas and sessions that posts can be generated from",
		MIMEType:    "application/json",
	}, s.handleContextsResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "jobs/{jobId}",
		Name:        "job",
		Description: "Full record of a generation job",
		MIMEType:    "application/json",
	}, s.handleJobResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "newsletters/{newsletterId}",
		Name:        "newsletter",
		Description: "Body of a stored newsletter",
		MIMEType:    "text/plain",
	}, s.handleNewsletterResource)
}

// handleContextsResource lists every generation context.
func (s *Server) handleContextsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Contexts == nil {
		return textResult(req.Params.URI, "application/json", "[]"), nil
	}

	contexts, err := s.ports.Contexts.ListContexts(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("listing contexts: %w", err)
	}

	type contextInfo struct {
		ID     string   `json:"id"`
		Kind   string   `json:"kind"`
		Title  string   `json:"title"`
		Topics []string `json:"topics,omitempty"`
	}
	infos := make([]contextInfo, len(contexts))
	for i, c := range contexts {
		infos[i] = contextInfo{
			ID:     c.ID,
			Kind:   string(c.Kind),
			Title:  c.Title,
			Topics: c.Topics,
		}
	}

	data, err := json.MarshalIndent(infos, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling contexts: %w", err)
	}
	return textResult(req.Params.URI, "application/json", string(data)), nil
}

// handleJobResource returns a job record.
func (s *Server) handleJobResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	jobID := extractID(req.Params.URI, "jobs/")
	if s.ports.Jobs == nil || jobID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	job, err := s.ports.Jobs.GetJob(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("getting job: %w", err)
	}
	data, err := json.MarshalIndent(job, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling job: %w", err)
	}
	return textResult(req.Params.URI, "application/json", string(data)), nil
}

// handleNewsletterResource returns a newsletter's composite text.
func (s *Server) handleNewsletterResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	id := extractID(req.Params.URI, "newsletters/")
	if s.ports.Newsletters == nil || id == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	n, err := s.ports.Newsletters.GetNewsletter(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("getting newsletter: %w", err)
	}
	return textResult(req.Params.URI, "text/plain", n.CompositeText()), nil
}

func textResult(uri, mimeType, text string) *mcp.ReadResourceResult {
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: mimeType,
			Text:     text,
		}},
	}
}

// extractID returns the last path segment of postsmith://<kind>{id}, or ""
// when the URI does not match.
func extractID(uri, kind string) string {
	prefix := uriScheme + kind
	if !strings.HasPrefix(uri, prefix) {
		return ""
	}
	id := strings.TrimPrefix(uri, prefix)
	if strings.Contains(id, "/") {
		return ""
	}
	return id
}
