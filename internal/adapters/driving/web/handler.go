package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/postsmith/internal/core/domain"
	"github.com/custodia-labs/postsmith/internal/core/ports/driving"
)

const (
	// healthTimeout bounds all health checks together.
	healthTimeout = 5 * time.Second

	// defaultCostWindow is how far back a cost report reaches without ?since.
	defaultCostWindow = 30 * 24 * time.Hour
)

// Handler serves the API routes.
type Handler struct {
	svc       Services
	retrieval domain.RetrievalSettings
	checks    map[string]HealthCheck
	now       func() time.Time
}

// NewHandler creates a handler. Retrieval settings fill in search defaults.
func NewHandler(svc Services, retrieval domain.RetrievalSettings, checks map[string]HealthCheck) (*Handler, error) {
	if err := svc.Validate(); err != nil {
		return nil, err
	}
	return &Handler{
		svc:       svc,
		retrieval: retrieval,
		checks:    checks,
		now:       time.Now,
	}, nil
}

// RegisterRoutes mounts every route on r.
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.GET("/healthz", h.Health)

	r.POST("/jobs", h.CreateJob)
	r.GET("/jobs", h.ListJobs)
	r.GET("/jobs/:id", h.GetJob)
	r.GET("/jobs/:id/events", h.JobEvents)

	r.POST("/contexts", h.SaveContext)
	r.GET("/contexts", h.ListContexts)
	r.GET("/contexts/:id", h.GetContext)

	r.POST("/newsletters", h.IngestNewsletter)
	r.GET("/newsletters", h.ListNewsletters)
	r.GET("/newsletters/:id", h.GetNewsletter)
	r.POST("/newsletters/:id/index", h.IndexNewsletter)
	r.DELETE("/newsletters/:id/index", h.RemoveNewsletter)
	r.POST("/index/unindexed", h.IndexUnindexed)

	r.POST("/search", h.Search)
	r.GET("/costs", h.Costs)
}

// Health runs every check and answers 503 if any failed.
func (h *Handler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	resp := HealthResponse{Status: "ok"}
	if len(h.checks) > 0 {
		resp.Checks = make(map[string]string, len(h.checks))
	}
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			resp.Status = "degraded"
			resp.Checks[name] = err.Error()
			continue
		}
		resp.Checks[name] = "ok"
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, resp)
}

// CreateJob answers 202 as soon as the job is recorded and dispatched.
func (h *Handler) CreateJob(c *gin.Context) {
	var req domain.CreateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}
	resp, err := h.svc.Jobs.CreateJob(c.Request.Context(), req)
	if err != nil {
		if resp.Message == "" {
			resp.Message = err.Error()
		}
		c.AbortWithStatusJSON(statusFor(err), resp)
		return
	}
	c.JSON(http.StatusAccepted, resp)
}

// GetJob returns one job record.
func (h *Handler) GetJob(c *gin.Context) {
	job, err := h.svc.Jobs.GetJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

// ListJobs returns an owner's most recent jobs.
func (h *Handler) ListJobs(c *gin.Context) {
	limit, ok := queryInt(c, "limit", 20)
	if !ok {
		return
	}
	jobs, err := h.svc.Jobs.ListJobs(c.Request.Context(), c.Query("ownerId"), limit)
	if err != nil {
		fail(c, err)
		return
	}
	if jobs == nil {
		jobs = []domain.Job{}
	}
	c.JSON(http.StatusOK, jobs)
}

// JobEvents streams job snapshots as server-sent events until the job is
// terminal or the client goes away.
func (h *Handler) JobEvents(c *gin.Context) {
	updates, err := h.svc.Jobs.WatchJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)

	for job := range updates {
		data, err := json.Marshal(job)
		if err != nil {
			continue
		}
		if _, err := fmt.Fprintf(c.Writer, "event: job\ndata: %s\n\n", data); err != nil {
			return
		}
		c.Writer.Flush()
	}
	if c.Request.Context().Err() != nil {
		return
	}
	_, _ = fmt.Fprint(c.Writer, "event: done\ndata: {}\n\n")
	c.Writer.Flush()
}

// SaveContext creates or replaces a generation context.
func (h *Handler) SaveContext(c *gin.Context) {
	if h.svc.Contexts == nil {
		notImplemented(c)
		return
	}
	var req ContextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}
	gen := domain.GenerationContext{
		ID:        req.ID,
		OwnerID:   req.OwnerID,
		Kind:      req.Kind,
		Title:     req.Title,
		Summary:   req.Summary,
		Topics:    req.Topics,
		CreatedAt: h.now().UTC(),
	}
	if err := h.svc.Contexts.SaveContext(c.Request.Context(), gen); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gen)
}

// GetContext returns one generation context.
func (h *Handler) GetContext(c *gin.Context) {
	if h.svc.Contexts == nil {
		notImplemented(c)
		return
	}
	gen, err := h.svc.Contexts.GetContext(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gen)
}

// ListContexts returns an owner's generation contexts.
func (h *Handler) ListContexts(c *gin.Context) {
	if h.svc.Contexts == nil {
		notImplemented(c)
		return
	}
	list, err := h.svc.Contexts.ListContexts(c.Request.Context(), c.Query("ownerId"))
	if err != nil {
		fail(c, err)
		return
	}
	if list == nil {
		list = []domain.GenerationContext{}
	}
	c.JSON(http.StatusOK, list)
}

// IngestNewsletter stores and indexes a newsletter. Indexing failures answer
// 502 with the indexing result; the newsletter stays stored.
func (h *Handler) IngestNewsletter(c *gin.Context) {
	if h.svc.Newsletters == nil {
		notImplemented(c)
		return
	}
	var req NewsletterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}
	result, err := h.svc.Newsletters.Ingest(c.Request.Context(), domain.Newsletter{
		ID:      req.ID,
		OwnerID: req.OwnerID,
		Subject: req.Subject,
		From:    req.From,
		Date:    req.Date,
		Body:    req.Body,
	})
	if err != nil {
		if result.NewsletterID == "" {
			fail(c, err)
			return
		}
		c.AbortWithStatusJSON(http.StatusBadGateway, result)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// GetNewsletter returns one newsletter.
func (h *Handler) GetNewsletter(c *gin.Context) {
	if h.svc.Newsletters == nil {
		notImplemented(c)
		return
	}
	n, err := h.svc.Newsletters.GetNewsletter(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, n)
}

// ListNewsletters returns an owner's newsletters.
func (h *Handler) ListNewsletters(c *gin.Context) {
	if h.svc.Newsletters == nil {
		notImplemented(c)
		return
	}
	list, err := h.svc.Newsletters.ListNewsletters(c.Request.Context(), c.Query("ownerId"))
	if err != nil {
		fail(c, err)
		return
	}
	if list == nil {
		list = []domain.Newsletter{}
	}
	c.JSON(http.StatusOK, list)
}

// IndexNewsletter re-indexes a stored newsletter.
func (h *Handler) IndexNewsletter(c *gin.Context) {
	if h.svc.Newsletters == nil || h.svc.Index == nil {
		notImplemented(c)
		return
	}
	n, err := h.svc.Newsletters.GetNewsletter(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	result, err := h.svc.Index.IndexNewsletter(c.Request.Context(), *n)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadGateway, result)
		return
	}
	c.JSON(http.StatusOK, result)
}

// RemoveNewsletter drops a newsletter's chunks from the index.
func (h *Handler) RemoveNewsletter(c *gin.Context) {
	if h.svc.Index == nil {
		notImplemented(c)
		return
	}
	if err := h.svc.Index.RemoveNewsletter(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// IndexUnindexed indexes every unindexed newsletter of ?ownerId.
func (h *Handler) IndexUnindexed(c *gin.Context) {
	if h.svc.Index == nil {
		notImplemented(c)
		return
	}
	batch, err := h.svc.Index.IndexUnindexed(c.Request.Context(), c.Query("ownerId"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, batch)
}

// Search runs a single-query, multi-topic or recency-boosted retrieval.
func (h *Handler) Search(c *gin.Context) {
	if h.svc.Retrieval == nil {
		notImplemented(c)
		return
	}
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	q := domain.RetrievalQuery{
		Query:    strings.TrimSpace(req.Query),
		OwnerID:  req.OwnerID,
		Limit:    req.Limit,
		MinScore: h.retrieval.MinScore,
	}
	if q.Limit <= 0 {
		q.Limit = h.retrieval.Limit
	}
	if req.MinScore != nil {
		q.MinScore = *req.MinScore
	}

	ctx := c.Request.Context()
	var (
		result domain.RetrievalResult
		err    error
	)
	switch {
	case len(req.Topics) > 0:
		result, err = h.svc.Retrieval.RetrieveTopics(ctx, req.Topics, q)
	case req.Recent:
		result, err = h.svc.Retrieval.RetrieveRecent(ctx, q, driving.RecencyOptions{
			Window: h.retrieval.RecencyWindow(),
			Boost:  h.retrieval.RecencyBoost,
		})
	default:
		result, err = h.svc.Retrieval.Retrieve(ctx, q)
	}
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Costs reports spending for ?ownerId since ?since (RFC 3339, default 30 days).
func (h *Handler) Costs(c *gin.Context) {
	if h.svc.Costs == nil {
		notImplemented(c)
		return
	}
	since := h.now().Add(-defaultCostWindow).UTC()
	if raw := c.Query("since"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			badRequest(c, "since must be an RFC 3339 timestamp")
			return
		}
		since = t
	}
	ownerID := c.Query("ownerId")
	rows, err := h.svc.Costs.Summary(c.Request.Context(), ownerID, since)
	if err != nil {
		fail(c, err)
		return
	}
	resp := CostResponse{OwnerID: ownerID, Since: since, Rows: rows}
	if resp.Rows == nil {
		resp.Rows = []domain.CostSummaryRow{}
	}
	for _, r := range rows {
		resp.Total += r.Cost
	}
	c.JSON(http.StatusOK, resp)
}

// queryInt parses an optional positive integer query parameter. It answers
// 400 itself and returns false on bad input.
func queryInt(c *gin.Context, key string, def int) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		badRequest(c, key+" must be a non-negative integer")
		return 0, false
	}
	return n, true
}
