package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/custodia-labs/postsmith/internal/core/domain"
	"github.com/custodia-labs/postsmith/internal/core/ports/driven"
	"github.com/custodia-labs/postsmith/internal/core/ports/driving"
	"github.com/custodia-labs/postsmith/internal/logger"
)

// Default quality gate settings.
const (
	DefaultMinWords    = 130
	DefaultMaxAttempts = 2
)

// ProgressFunc merges a patch into the job record.
type ProgressFunc func(ctx context.Context, patch domain.JobPatch) error

// PipelineConfig tunes the generation pipeline.
type PipelineConfig struct {
	// MinWords is the quality gate threshold.
	MinWords int

	// MaxAttempts bounds generation attempts including the first.
	MaxAttempts int

	// Retrieval holds query defaults for the fetch stage.
	Retrieval domain.RetrievalSettings

	// FailOnAssetError fails the job when image generation fails.
	// The default degrades to a post without an asset.
	FailOnAssetError bool
}

// PostPipeline runs the fixed stage sequence that turns a generation
// context into a post and an image. Stages run strictly in order.
type PostPipeline struct {
	contexts   driven.ContextStore
	retrieval  driving.RetrievalService
	llm        driven.LLMService
	images     driven.ImageGenerator
	accountant *Accountant
	cfg        PipelineConfig
	schema     *jsonschema.Schema
	prompts    driven.PromptStore
}

// Ensure PostPipeline accepts custom prompts.
var _ driven.PromptStoreAware = (*PostPipeline)(nil)

// NewPostPipeline creates a pipeline. images may be nil.
func NewPostPipeline(
	contexts driven.ContextStore,
	retrieval driving.RetrievalService,
	llm driven.LLMService,
	images driven.ImageGenerator,
	accountant *Accountant,
	cfg PipelineConfig,
) (*PostPipeline, error) {
	if cfg.MinWords <= 0 {
		cfg.MinWords = DefaultMinWords
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.Retrieval.Limit <= 0 {
		cfg.Retrieval.Limit = DefaultRetrievalLimit
	}
	schema, err := compileSchema(draftSchema)
	if err != nil {
		return nil, err
	}
	return &PostPipeline{
		contexts:   contexts,
		retrieval:  retrieval,
		llm:        llm,
		images:     images,
		accountant: accountant,
		cfg:        cfg,
		schema:     schema,
	}, nil
}

// run carries the state of one pipeline execution.
type run struct {
	job    domain.Job
	report ProgressFunc
	costs  domain.CostBreakdown

	gen       *domain.GenerationContext
	retrieved domain.RetrievalResult
	analysis  string
	draft     postDraft
	words     int
	attempts  int
	assetURL  string
	assetText string
}

// Run executes every stage for the job. Costs accumulated so far are
// returned even when a stage fails.
func (p *PostPipeline) Run(ctx context.Context, job domain.Job, report ProgressFunc) (domain.JobResult, domain.CostBreakdown, error) {
	r := &run{job: job, report: report}

	stages := []struct {
		stage domain.Stage
		fn    func(context.Context, *run) error
	}{
		{domain.StageFetchingData, p.fetch},
		{domain.StageAnalyzing, p.analyze},
		{domain.StageGeneratingPost, p.generate},
		{domain.StageGeneratingImage, p.asset},
	}
	for _, st := range stages {
		logger.Debug("job %s: stage %s", job.ID, st.stage)
		if err := st.fn(ctx, r); err != nil {
			return domain.JobResult{}, r.costs, fmt.Errorf("%s: %w", st.stage, err)
		}
	}

	if err := r.progress(ctx, domain.StageFinalizing, domain.StageFinalizing.Band().Start, "Finalizing post"); err != nil {
		return domain.JobResult{}, r.costs, err
	}

	hashtags := normaliseHashtags(r.draft.Hashtags)
	if len(hashtags) == 0 {
		hashtags = ExtractHashtags(r.draft.Post)
	}
	return domain.JobResult{
		Text:        strings.TrimSpace(r.draft.Post),
		WordCount:   r.words,
		Hashtags:    hashtags,
		AssetURL:    r.assetURL,
		AssetPrompt: r.assetText,
		Citations:   r.retrieved.Citations(),
		Attempts:    r.attempts,
	}, r.costs, nil
}

// SetPromptStore makes the stage system prompts user-editable.
func (p *PostPipeline) SetPromptStore(store driven.PromptStore) {
	p.prompts = store
}

// systemPrompt loads a custom prompt, falling back to the built-in one.
func (p *PostPipeline) systemPrompt(name, fallback string) string {
	if p.prompts == nil {
		return fallback
	}
	prompt, err := p.prompts.Load(name)
	if err != nil || strings.TrimSpace(prompt) == "" {
		if err != nil {
			logger.Warn("prompt %s unavailable, using built-in: %v", name, err)
		}
		return fallback
	}
	return prompt
}

func (r *run) progress(ctx context.Context, stage domain.Stage, pct int, msg string) error {
	costs := r.costs
	return r.report(ctx, domain.JobPatch{
		Stage:      &stage,
		Percentage: &pct,
		Message:    &msg,
		Costs:      &costs,
	})
}

// fetch loads the generation context and retrieves supporting newsletters.
// Trends favour fresh newsletters; ideas and sessions search per topic.
func (p *PostPipeline) fetch(ctx context.Context, r *run) error {
	band := domain.StageFetchingData.Band()
	if err := r.progress(ctx, domain.StageFetchingData, band.Start, "Fetching context"); err != nil {
		return err
	}

	gen, err := p.contexts.Get(ctx, r.job.ContextID)
	if err != nil {
		return fmt.Errorf("context %s: %w", r.job.ContextID, err)
	}
	r.gen = gen
	title := gen.Title
	if err := r.report(ctx, domain.JobPatch{ContextTitle: &title}); err != nil {
		return err
	}

	q := domain.RetrievalQuery{
		OwnerID:  r.job.OwnerID,
		Limit:    p.cfg.Retrieval.Limit,
		MinScore: p.cfg.Retrieval.MinScore,
	}
	topics := gen.SearchTopics()
	if gen.Kind == domain.ContextKindTrend && p.cfg.Retrieval.RecencyDays > 0 {
		q.Query = strings.Join(topics, " ")
		r.retrieved, err = p.retrieval.RetrieveRecent(ctx, q, driving.RecencyOptions{
			Window: p.cfg.Retrieval.RecencyWindow(),
			Boost:  p.cfg.Retrieval.RecencyBoost,
		})
	} else {
		r.retrieved, err = p.retrieval.RetrieveTopics(ctx, topics, q)
	}
	if err != nil {
		return fmt.Errorf("retrieve sources: %w", err)
	}

	msg := fmt.Sprintf("Found %d relevant sources", len(r.retrieved.Sources))
	return r.progress(ctx, domain.StageFetchingData, band.End, msg)
}

// analyze asks the model for the key insights across the sources.
func (p *PostPipeline) analyze(ctx context.Context, r *run) error {
	band := domain.StageAnalyzing.Band()
	if err := r.progress(ctx, domain.StageAnalyzing, band.Start, "Analyzing sources"); err != nil {
		return err
	}

	comp, err := p.llm.Complete(ctx, driven.CompletionRequest{
		System:      p.systemPrompt(driven.PromptAnalysisSystem, analysisSystemPrompt),
		Prompt:      analysisPrompt(r.gen, r.retrieved),
		Temperature: 0.3,
		MaxTokens:   800,
	})
	if err != nil {
		return providerErr("analysis", err)
	}
	r.costs.Generation += p.recordCompletion(ctx, r, comp, "analysis", 1)
	r.analysis = strings.TrimSpace(comp.Text)

	return r.progress(ctx, domain.StageAnalyzing, band.End, "Analysis complete")
}

// generate writes the post behind a word-count quality gate. Each attempt
// below MinWords triggers a retry with an amended prompt, up to MaxAttempts.
// Every attempt's cost counts; the longest valid draft is accepted even
// when it is still short.
func (p *PostPipeline) generate(ctx context.Context, r *run) error {
	band := domain.StageGeneratingPost.Band()
	if err := r.progress(ctx, domain.StageGeneratingPost, band.Start, "Writing post"); err != nil {
		return err
	}

	base := postPrompt(r.gen, r.analysis, r.retrieved, p.cfg.MinWords)
	prompt := base
	var best *postDraft
	bestWords := -1

	system := p.systemPrompt(driven.PromptPostSystem, postSystemPrompt)
	for attempt := 1; attempt <= p.cfg.MaxAttempts; attempt++ {
		r.attempts = attempt
		comp, err := p.llm.Complete(ctx, driven.CompletionRequest{
			System:      system,
			Prompt:      prompt,
			Temperature: 0.7,
			MaxTokens:   1200,
			JSON:        true,
		})
		if err != nil {
			if best != nil {
				logger.Warn("job %s: attempt %d failed, keeping earlier draft: %v", r.job.ID, attempt, err)
				r.attempts = attempt - 1
				break
			}
			return providerErr(fmt.Sprintf("generation attempt %d", attempt), err)
		}
		r.costs.Generation += p.recordCompletion(ctx, r, comp, "generation", attempt)

		draft, perr := p.parseDraft(comp.Text)
		if perr != nil {
			logger.Warn("job %s: attempt %d returned malformed output: %v", r.job.ID, attempt, perr)
			prompt = malformedPrompt(base)
			continue
		}

		words := CountWords(draft.Post)
		if words > bestWords {
			best, bestWords = &draft, words
		}

		pct := band.Start + (band.End-band.Start)*attempt/(p.cfg.MaxAttempts+1)
		msg := fmt.Sprintf("Draft %d: %d words", attempt, words)
		if err := r.progress(ctx, domain.StageGeneratingPost, pct, msg); err != nil {
			return err
		}

		if words >= p.cfg.MinWords {
			break
		}
		logger.Debug("job %s: draft %d has %d words, minimum %d", r.job.ID, attempt, words, p.cfg.MinWords)
		prompt = elaboratePrompt(base, words, p.cfg.MinWords)
	}

	if best == nil {
		return fmt.Errorf("%w: no valid draft after %d attempts", domain.ErrProvider, p.cfg.MaxAttempts)
	}
	if bestWords < p.cfg.MinWords {
		logger.Warn("job %s: accepting %d-word draft below minimum %d", r.job.ID, bestWords, p.cfg.MinWords)
	}
	r.draft, r.words = *best, bestWords

	return r.progress(ctx, domain.StageGeneratingPost, band.End, fmt.Sprintf("Post ready (%d words)", bestWords))
}

// asset generates the post image. Failures are logged and skipped unless
// FailOnAssetError is set.
func (p *PostPipeline) asset(ctx context.Context, r *run) error {
	band := domain.StageGeneratingImage.Band()
	if p.images == nil {
		return r.progress(ctx, domain.StageGeneratingImage, band.End, "Image generation disabled")
	}
	if err := r.progress(ctx, domain.StageGeneratingImage, band.Start, "Generating image"); err != nil {
		return err
	}

	prompt := strings.TrimSpace(r.draft.ImagePrompt)
	if prompt == "" {
		prompt = defaultImagePrompt(r.gen)
	}
	r.assetText = prompt

	img, err := p.images.Generate(ctx, prompt)
	if err != nil {
		if p.cfg.FailOnAssetError {
			return providerErr("image generation", err)
		}
		logger.Warn("job %s: image generation failed, continuing without image: %v", r.job.ID, err)
		return r.progress(ctx, domain.StageGeneratingImage, band.End, "Image generation failed, continuing without image")
	}

	model := img.Model
	if model == "" {
		model = p.images.ModelName()
	}
	usage := img.Usage
	if usage.InputUnits == 0 {
		usage.InputUnits = 1
	}
	r.costs.Asset += p.accountant.Record(ctx, r.job.OwnerID, domain.OperationImage, model, usage,
		map[string]string{"jobId": r.job.ID, "stage": string(domain.StageGeneratingImage)})
	r.assetURL = img.URL
	if img.RevisedPrompt != "" {
		r.assetText = img.RevisedPrompt
	}

	return r.progress(ctx, domain.StageGeneratingImage, band.End, "Image ready")
}

func (p *PostPipeline) recordCompletion(ctx context.Context, r *run, comp driven.Completion, step string, attempt int) float64 {
	model := comp.Model
	if model == "" {
		model = p.llm.ModelName()
	}
	return p.accountant.Record(ctx, r.job.OwnerID, domain.OperationCompletion, model, comp.Usage, map[string]string{
		"jobId":   r.job.ID,
		"step":    step,
		"attempt": strconv.Itoa(attempt),
	})
}

// postDraft is the structured response of a generation attempt.
type postDraft struct {
	Title       string   `json:"title"`
	Post        string   `json:"post"`
	Hashtags    []string `json:"hashtags"`
	ImagePrompt string   `json:"imagePrompt"`
}

var draftSchema = map[string]any{
	"type":     "object",
	"required": []string{"post"},
	"properties": map[string]any{
		"title":       map[string]any{"type": "string"},
		"post":        map[string]any{"type": "string", "minLength": 1},
		"hashtags":    map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		"imagePrompt": map[string]any{"type": "string"},
	},
}

func compileSchema(schemaMap map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("draft.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("draft.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

// parseDraft strips code fences, then validates and decodes the response.
func (p *PostPipeline) parseDraft(text string) (postDraft, error) {
	raw := []byte(stripCodeFence(text))
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return postDraft{}, fmt.Errorf("decode response: %w", err)
	}
	if err := p.schema.Validate(v); err != nil {
		return postDraft{}, fmt.Errorf("response does not match schema: %w", err)
	}
	var d postDraft
	if err := json.Unmarshal(raw, &d); err != nil {
		return postDraft{}, fmt.Errorf("decode draft: %w", err)
	}
	return d, nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}

// CountWords counts whitespace-separated words.
func CountWords(s string) int {
	return len(strings.Fields(s))
}

var hashtagPattern = regexp.MustCompile(`#([\pL\pN_]+)`)

// ExtractHashtags returns the distinct #tags in text, without the '#'.
func ExtractHashtags(text string) []string {
	var tags []string
	for _, m := range hashtagPattern.FindAllStringSubmatch(text, -1) {
		tags = append(tags, m[1])
	}
	return normaliseHashtags(tags)
}

func normaliseHashtags(tags []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, t := range tags {
		t = strings.TrimPrefix(strings.TrimSpace(t), "#")
		if t == "" || seen[strings.ToLower(t)] {
			continue
		}
		seen[strings.ToLower(t)] = true
		out = append(out, t)
	}
	return out
}
