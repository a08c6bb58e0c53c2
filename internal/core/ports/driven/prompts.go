package driven

// PromptStore provides access to user-editable LLM prompt templates.
type PromptStore interface {
	// Load returns the prompt with the given name.
	// Implementations fall back to their built-in defaults.
	Load(name string) (string, error)
}

// Prompt names.
const (
	// PromptAnalysisSystem is the system prompt of the analysis stage.
	PromptAnalysisSystem = "analysis_system"

	// PromptPostSystem is the system prompt of the generation stage.
	// It must keep asking for the JSON response shape.
	PromptPostSystem = "post_system"
)

// PromptStoreAware is an optional interface for services that can use custom prompts.
type PromptStoreAware interface {
	// SetPromptStore sets the prompt store for loading customisable prompts.
	SetPromptStore(store PromptStore)
}
