package domain

import (
	"fmt"
	"strings"
	"time"
)

// JobStatus is the lifecycle state of a generation job.
type JobStatus string

// Job lifecycle states. Transitions are pending -> processing -> {completed, failed}.
const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// IsValid returns true if the status is recognised.
func (s JobStatus) IsValid() bool {
	switch s {
	case JobStatusPending, JobStatusProcessing, JobStatusCompleted, JobStatusFailed:
		return true
	default:
		return false
	}
}

// IsTerminal returns true for completed and failed.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// CanTransitionTo reports whether moving from s to next is allowed.
// Re-asserting the current non-terminal status is allowed.
func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	switch s {
	case JobStatusPending:
		return next == JobStatusPending || next == JobStatusProcessing || next == JobStatusFailed
	case JobStatusProcessing:
		return next == JobStatusProcessing || next.IsTerminal()
	default:
		return false
	}
}

// String returns the string representation.
func (s JobStatus) String() string {
	return string(s)
}

// Stage names a step of the generation pipeline.
type Stage string

// Pipeline stages in execution order.
const (
	StageFetchingData    Stage = "fetching_data"
	StageAnalyzing       Stage = "analyzing"
	StageGeneratingPost  Stage = "generating_post"
	StageGeneratingImage Stage = "generating_image"
	StageFinalizing      Stage = "finalizing"
)

// StageBand is the percentage range a stage owns.
type StageBand struct {
	Start int
	End   int
}

var stageBands = map[Stage]StageBand{
	StageFetchingData:    {Start: 0, End: 20},
	StageAnalyzing:       {Start: 20, End: 40},
	StageGeneratingPost:  {Start: 40, End: 70},
	StageGeneratingImage: {Start: 70, End: 95},
	StageFinalizing:      {Start: 95, End: 100},
}

// Band returns the percentage band for the stage.
// Unknown stages get an empty band at zero.
func (s Stage) Band() StageBand {
	return stageBands[s]
}

// Stages returns all pipeline stages in execution order.
func Stages() []Stage {
	return []Stage{
		StageFetchingData,
		StageAnalyzing,
		StageGeneratingPost,
		StageGeneratingImage,
		StageFinalizing,
	}
}

// Progress describes where a job currently is.
type Progress struct {
	// Stage is the pipeline stage being executed.
	Stage Stage `json:"stage"`

	// Percentage is in [0, 100] and never decreases over a job's lifetime.
	Percentage int `json:"percentage"`

	// Message is a human-readable status line.
	Message string `json:"message"`
}

// Citation references a newsletter used as generation context.
type Citation struct {
	ParentID  string    `json:"parentId"`
	Subject   string    `json:"subject"`
	From      string    `json:"from"`
	Date      time.Time `json:"date"`
	Relevance float64   `json:"relevance"`
}

// JobResult is the artifact produced by a completed job.
type JobResult struct {
	// Text is the generated post.
	Text string `json:"text"`

	// WordCount is the number of whitespace-separated words in Text.
	WordCount int `json:"wordCount"`

	// Hashtags are tags without the leading '#'.
	Hashtags []string `json:"hashtags"`

	// AssetURL is the generated image URL; empty when asset generation failed.
	AssetURL string `json:"assetUrl,omitempty"`

	// AssetPrompt is the prompt sent to the image provider.
	AssetPrompt string `json:"assetPrompt,omitempty"`

	// Citations lists the sources the post was conditioned on.
	Citations []Citation `json:"citations,omitempty"`

	// Attempts is how many generation attempts the quality gate used.
	Attempts int `json:"attempts"`
}

// CostBreakdown is the monetary cost of a job split by stage kind.
// Generation covers every completion call (analysis and post attempts).
type CostBreakdown struct {
	Generation float64 `json:"generation"`
	Asset      float64 `json:"asset"`
}

// Total returns the sum of all stage costs.
func (c CostBreakdown) Total() float64 {
	return c.Generation + c.Asset
}

// Add returns the component-wise sum of c and other.
func (c CostBreakdown) Add(other CostBreakdown) CostBreakdown {
	return CostBreakdown{
		Generation: c.Generation + other.Generation,
		Asset:      c.Asset + other.Asset,
	}
}

// Job is a persisted record tracking one asynchronous generation request.
type Job struct {
	// ID is the unique identifier for the job.
	ID string `json:"id"`

	// OwnerID identifies who requested the job.
	OwnerID string `json:"ownerId"`

	// Status is the lifecycle state.
	Status JobStatus `json:"status"`

	// CreatedAt is when the job was created.
	CreatedAt time.Time `json:"createdAt"`

	// UpdatedAt is when the job was last modified.
	UpdatedAt time.Time `json:"updatedAt"`

	// ContextID identifies the trend, idea or session driving generation.
	ContextID string `json:"contextId"`

	// ContextTitle is filled in once the context has been fetched.
	ContextTitle string `json:"contextTitle,omitempty"`

	// Progress is the current stage and percentage.
	Progress Progress `json:"progress"`

	// Result is populated when Status is completed.
	Result *JobResult `json:"result,omitempty"`

	// TotalCost is Costs.Total(), kept denormalised for readers.
	TotalCost float64 `json:"totalCost"`

	// Costs is the per-stage cost breakdown.
	Costs CostBreakdown `json:"costs"`

	// Error is populated when Status is failed.
	Error string `json:"error,omitempty"`
}

// NewJob returns a pending job with zero progress and zero cost.
func NewJob(id, ownerID, contextID string, now time.Time) Job {
	return Job{
		ID:        id,
		OwnerID:   ownerID,
		Status:    JobStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
		ContextID: contextID,
		Progress: Progress{
			Stage:      StageFetchingData,
			Percentage: 0,
			Message:    "Queued",
		},
	}
}

// JobPatch is a partial update to a job. Nil fields are left untouched.
type JobPatch struct {
	Status       *JobStatus
	Stage        *Stage
	Percentage   *int
	Message      *string
	ContextTitle *string
	Result       *JobResult
	Costs        *CostBreakdown
	Error        *string
}

// IsEmpty returns true if the patch changes nothing.
func (p JobPatch) IsEmpty() bool {
	return p.Status == nil && p.Stage == nil && p.Percentage == nil && p.Message == nil &&
		p.ContextTitle == nil && p.Result == nil && p.Costs == nil && p.Error == nil
}

// Apply merges the patch into the job.
// It rejects edits to terminal jobs, status regressions and percentage decreases.
// Terminal statuses force the percentage to 100.
func (j *Job) Apply(p JobPatch, now time.Time) error {
	if j.Status.IsTerminal() {
		return fmt.Errorf("%w: job %s is already %s", ErrInvalidTransition, j.ID, j.Status)
	}

	next := *j
	if p.Status != nil {
		if !p.Status.IsValid() {
			return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, *p.Status)
		}
		if !j.Status.CanTransitionTo(*p.Status) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, j.Status, *p.Status)
		}
		next.Status = *p.Status
	}
	if p.Stage != nil {
		next.Progress.Stage = *p.Stage
	}
	if p.Percentage != nil {
		pct := *p.Percentage
		if pct < 0 || pct > 100 {
			return fmt.Errorf("%w: percentage %d out of range", ErrInvalidTransition, pct)
		}
		if pct < j.Progress.Percentage {
			return fmt.Errorf("%w: percentage %d -> %d", ErrInvalidTransition, j.Progress.Percentage, pct)
		}
		next.Progress.Percentage = pct
	}
	if p.Message != nil {
		next.Progress.Message = *p.Message
	}
	if p.ContextTitle != nil {
		next.ContextTitle = *p.ContextTitle
	}
	if p.Result != nil {
		r := *p.Result
		next.Result = &r
	}
	if p.Costs != nil {
		next.Costs = *p.Costs
		next.TotalCost = p.Costs.Total()
	}
	if p.Error != nil {
		next.Error = *p.Error
	}

	switch next.Status {
	case JobStatusCompleted:
		if next.Result == nil {
			return fmt.Errorf("%w: completed job %s has no result", ErrInvalidTransition, j.ID)
		}
		next.Progress.Percentage = 100
	case JobStatusFailed:
		if strings.TrimSpace(next.Error) == "" {
			return fmt.Errorf("%w: failed job %s has no error message", ErrInvalidTransition, j.ID)
		}
		next.Progress.Percentage = 100
	}

	next.UpdatedAt = now
	*j = next
	return nil
}

// CreateJobRequest asks for a new generation job.
type CreateJobRequest struct {
	// OwnerID identifies the requester.
	OwnerID string `json:"ownerId"`

	// ContextID identifies the trend, idea or session driving generation.
	ContextID string `json:"contextId"`
}

// Validate checks that the required identifiers are present.
func (r CreateJobRequest) Validate() error {
	var missing []string
	if strings.TrimSpace(r.OwnerID) == "" {
		missing = append(missing, "ownerId")
	}
	if strings.TrimSpace(r.ContextID) == "" {
		missing = append(missing, "contextId")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrValidation, strings.Join(missing, ", "))
	}
	return nil
}

// CreateJobResponse is returned before any background work finishes.
type CreateJobResponse struct {
	Success bool   `json:"success"`
	JobID   string `json:"jobId"`
	Message string `json:"message"`
}

// Ptr returns a pointer to v. Used to build patches.
func Ptr[T any](v T) *T {
	return &v
}
