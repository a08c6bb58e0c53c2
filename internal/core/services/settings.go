package services

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/postsmith/internal/core/domain"
	"github.com/custodia-labs/postsmith/internal/core/ports/driven"
	"github.com/custodia-labs/postsmith/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyEmbedProvider   = "embedding.provider"
	keyEmbedModel      = "embedding.model"
	keyEmbedDims       = "embedding.dimensions"
	keyEmbedBaseURL    = "embedding.base_url"
	keyEmbedAPIKey     = "embedding.api_key"
	keyEmbedBatchSize  = "embedding.batch_size"
	keyEmbedRPM        = "embedding.requests_per_minute"
	keyLLMProvider     = "llm.provider"
	keyLLMModel        = "llm.model"
	keyLLMBaseURL      = "llm.base_url"
	keyLLMAPIKey       = "llm.api_key"
	keyLLMRPM          = "llm.requests_per_minute"
	keyImageProvider   = "image.provider"
	keyImageModel      = "image.model"
	keyImageSize       = "image.size"
	keyImageAPIKey     = "image.api_key"
	keyImageBaseURL    = "image.base_url"
	keyVectorProvider  = "vector.provider"
	keyVectorURL       = "vector.url"
	keyVectorAPIKey    = "vector.api_key"
	keyVectorColl      = "vector.collection"
	keyMinWords        = "pipeline.min_words"
	keyMaxAttempts     = "pipeline.max_attempts"
	keyJobTimeout      = "pipeline.job_timeout"
	keyWorkers         = "pipeline.workers"
	keyQueueSize       = "pipeline.queue_size"
	keyFailOnAsset     = "pipeline.fail_on_asset_error"
	keyRetrievalLimit  = "retrieval.limit"
	keyMinScore        = "retrieval.min_score"
	keyRecencyDays     = "retrieval.recency_days"
	keyRecencyBoost    = "retrieval.recency_boost"
	keyServerAddr      = "server.addr"
	pricingPrefix      = "pricing."
	priceInputSuffix   = ".input_per_1k"
	priceOutputSuffix  = ".output_per_1k"
	pricePerImageSuffx = ".per_image"
)

type keyKind int

const (
	kindString keyKind = iota
	kindInt
	kindFloat
	kindBool
	kindDuration
)

var knownKeys = map[string]keyKind{
	keyEmbedProvider: kindString, keyEmbedModel: kindString, keyEmbedDims: kindInt,
	keyEmbedBaseURL: kindString, keyEmbedAPIKey: kindString, keyEmbedBatchSize: kindInt,
	keyEmbedRPM: kindInt, keyLLMProvider: kindString, keyLLMModel: kindString,
	keyLLMBaseURL: kindString, keyLLMAPIKey: kindString, keyLLMRPM: kindInt,
	keyImageProvider: kindString, keyImageModel: kindString, keyImageSize: kindString,
	keyImageAPIKey: kindString, keyImageBaseURL: kindString, keyVectorProvider: kindString,
	keyVectorURL: kindString, keyVectorAPIKey: kindString, keyVectorColl: kindString,
	keyMinWords: kindInt, keyMaxAttempts: kindInt, keyJobTimeout: kindDuration,
	keyWorkers: kindInt, keyQueueSize: kindInt, keyFailOnAsset: kindBool,
	keyRetrievalLimit: kindInt, keyMinScore: kindFloat, keyRecencyDays: kindInt,
	keyRecencyBoost: kindFloat, keyServerAddr: kindString,
}

// Environment variables that override file values when set.
//
//nolint:gosec // G101: These are variable names, not actual credentials.
const (
	EnvOpenAIKey    = "OPENAI_API_KEY"
	EnvAnthropicKey = "ANTHROPIC_API_KEY"
	EnvQdrantURL    = "QDRANT_URL"
	EnvQdrantKey    = "QDRANT_API_KEY"
	EnvServerAddr   = "POSTSMITH_ADDR"
)

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	getenv      func(string) string
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		getenv:      os.Getenv,
	}
}

// Get returns defaults overlaid with file values, then environment values.
func (s *SettingsService) Get() (*domain.Settings, error) {
	d := domain.DefaultSettings()

	settings := &domain.Settings{
		Embedding: domain.EmbeddingSettings{
			Provider:          s.getProvider(keyEmbedProvider, d.Embedding.Provider),
			Model:             s.getString(keyEmbedModel, d.Embedding.Model),
			Dimensions:        s.getInt(keyEmbedDims, 0),
			BaseURL:           s.configStore.GetString(keyEmbedBaseURL),
			APIKey:            s.configStore.GetString(keyEmbedAPIKey),
			BatchSize:         s.getInt(keyEmbedBatchSize, d.Embedding.BatchSize),
			RequestsPerMinute: s.getInt(keyEmbedRPM, d.Embedding.RequestsPerMinute),
		},
		LLM: domain.LLMSettings{
			Provider:          s.getProvider(keyLLMProvider, d.LLM.Provider),
			Model:             s.configStore.GetString(keyLLMModel),
			BaseURL:           s.configStore.GetString(keyLLMBaseURL),
			APIKey:            s.configStore.GetString(keyLLMAPIKey),
			RequestsPerMinute: s.getInt(keyLLMRPM, d.LLM.RequestsPerMinute),
		},
		Image: domain.ImageSettings{
			Provider: s.getProvider(keyImageProvider, d.Image.Provider),
			Model:    s.getString(keyImageModel, d.Image.Model),
			Size:     s.getString(keyImageSize, d.Image.Size),
			APIKey:   s.configStore.GetString(keyImageAPIKey),
			BaseURL:  s.configStore.GetString(keyImageBaseURL),
		},
		Vector: domain.VectorSettings{
			Provider:   domain.VectorProvider(s.getString(keyVectorProvider, string(d.Vector.Provider))),
			URL:        s.getString(keyVectorURL, d.Vector.URL),
			APIKey:     s.configStore.GetString(keyVectorAPIKey),
			Collection: s.getString(keyVectorColl, d.Vector.Collection),
		},
		Pipeline: domain.PipelineSettings{
			MinWords:         s.getInt(keyMinWords, d.Pipeline.MinWords),
			MaxAttempts:      s.getInt(keyMaxAttempts, d.Pipeline.MaxAttempts),
			JobTimeout:       s.getDuration(keyJobTimeout, d.Pipeline.JobTimeout),
			Workers:          s.getInt(keyWorkers, d.Pipeline.Workers),
			QueueSize:        s.getInt(keyQueueSize, d.Pipeline.QueueSize),
			FailOnAssetError: s.getBool(keyFailOnAsset, d.Pipeline.FailOnAssetError),
		},
		Retrieval: domain.RetrievalSettings{
			Limit:        s.getInt(keyRetrievalLimit, d.Retrieval.Limit),
			MinScore:     s.getFloat(keyMinScore, d.Retrieval.MinScore),
			RecencyDays:  s.getInt(keyRecencyDays, d.Retrieval.RecencyDays),
			RecencyBoost: s.getFloat(keyRecencyBoost, d.Retrieval.RecencyBoost),
		},
		Server: domain.ServerSettings{
			Addr: s.getString(keyServerAddr, d.Server.Addr),
		},
		Pricing: s.getPricing(),
	}

	// Dimensions follow the model unless set explicitly
	if settings.Embedding.Dimensions == 0 {
		settings.Embedding.Dimensions = d.Embedding.Dimensions
		if dims, ok := domain.EmbeddingDimensions()[settings.Embedding.Model]; ok {
			settings.Embedding.Dimensions = dims
		}
	}
	if settings.LLM.Model == "" {
		settings.LLM.Model = defaultLLMModel(settings.LLM.Provider)
	}

	s.applyEnv(settings)
	return settings, nil
}

// applyEnv overrides file values with environment variables.
func (s *SettingsService) applyEnv(settings *domain.Settings) {
	if key := s.getenv(EnvOpenAIKey); key != "" {
		settings.Embedding.APIKey = key
		settings.Image.APIKey = key
		if settings.LLM.Provider == domain.AIProviderOpenAI {
			settings.LLM.APIKey = key
		}
	}
	if key := s.getenv(EnvAnthropicKey); key != "" && settings.LLM.Provider == domain.AIProviderAnthropic {
		settings.LLM.APIKey = key
	}
	if url := s.getenv(EnvQdrantURL); url != "" {
		settings.Vector.URL = url
	}
	if key := s.getenv(EnvQdrantKey); key != "" {
		settings.Vector.APIKey = key
	}
	if addr := s.getenv(EnvServerAddr); addr != "" {
		settings.Server.Addr = addr
	}
	if settings.Image.APIKey == "" && settings.LLM.Provider == domain.AIProviderOpenAI {
		settings.Image.APIKey = settings.LLM.APIKey
	}
}

// Set stores one dotted key. String values are converted to the key's type.
func (s *SettingsService) Set(key string, value any) error {
	kind, ok := keyKindOf(key)
	if !ok {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}
	converted, err := convertValue(kind, value)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrInvalidInput, key, err)
	}
	if err := s.configStore.Set(key, converted); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// Validate checks the effective settings.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return settings.Validate()
}

// Keys returns every known setting key, sorted.
func Keys() []string {
	keys := make([]string, 0, len(knownKeys))
	for k := range knownKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func keyKindOf(key string) (keyKind, bool) {
	if kind, ok := knownKeys[key]; ok {
		return kind, true
	}
	if strings.HasPrefix(key, pricingPrefix) {
		for _, suffix := range []string{priceInputSuffix, priceOutputSuffix, pricePerImageSuffx} {
			if strings.HasSuffix(key, suffix) && len(key) > len(pricingPrefix)+len(suffix) {
				return kindFloat, true
			}
		}
	}
	return 0, false
}

func convertValue(kind keyKind, value any) (any, error) {
	str, isString := value.(string)
	if !isString {
		return value, nil
	}
	switch kind {
	case kindInt:
		return strconv.Atoi(str)
	case kindFloat:
		return strconv.ParseFloat(str, 64)
	case kindBool:
		return strconv.ParseBool(str)
	case kindDuration:
		if _, err := time.ParseDuration(str); err != nil {
			return nil, err
		}
		return str, nil
	default:
		return str, nil
	}
}

func defaultLLMModel(p domain.AIProvider) string {
	if p == domain.AIProviderAnthropic {
		return "claude-3-5-sonnet-latest"
	}
	return "gpt-4o-mini"
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	str := s.configStore.GetString(key)
	if str == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(str)
	if err != nil {
		return defaultVal
	}
	return d
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

// getPricing reads pricing.<model>.<field> keys into a price table.
func (s *SettingsService) getPricing() map[string]domain.ModelPrice {
	prices := make(map[string]domain.ModelPrice)
	for _, key := range s.configStore.Keys(pricingPrefix) {
		rest := strings.TrimPrefix(key, pricingPrefix)
		var model string
		var set func(*domain.ModelPrice, float64)
		switch {
		case strings.HasSuffix(rest, priceInputSuffix):
			model = strings.TrimSuffix(rest, priceInputSuffix)
			set = func(p *domain.ModelPrice, v float64) { p.InputPer1K = v }
		case strings.HasSuffix(rest, priceOutputSuffix):
			model = strings.TrimSuffix(rest, priceOutputSuffix)
			set = func(p *domain.ModelPrice, v float64) { p.OutputPer1K = v }
		case strings.HasSuffix(rest, pricePerImageSuffx):
			model = strings.TrimSuffix(rest, pricePerImageSuffx)
			set = func(p *domain.ModelPrice, v float64) { p.PerImage = v }
		default:
			continue
		}
		if model == "" {
			continue
		}
		p := prices[model]
		set(&p, s.configStore.GetFloat(key))
		prices[model] = p
	}
	if len(prices) == 0 {
		return nil
	}
	return prices
}
