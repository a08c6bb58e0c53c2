package services

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/postsmith/internal/core/domain"
	"github.com/custodia-labs/postsmith/internal/core/ports/driven"
)

// sourcesInPrompt caps how many grouped sources go into a prompt.
const sourcesInPrompt = 5

const analysisSystemPrompt = `You are a content strategist. You read newsletter excerpts and identify
the insights, data points and opinions that would make a strong LinkedIn post.
Be concise and factual. Never invent facts that are not in the sources.`

const postSystemPrompt = `You are a LinkedIn ghostwriter. You write engaging, professional posts
grounded in the provided research. Respond with a single JSON object only:
{"title": string, "post": string, "hashtags": [string], "imagePrompt": string}`

// DefaultPrompts returns the built-in user-editable prompts by name.
func DefaultPrompts() map[string]string {
	return map[string]string{
		driven.PromptAnalysisSystem: analysisSystemPrompt,
		driven.PromptPostSystem:     postSystemPrompt,
	}
}

func analysisPrompt(gen *domain.GenerationContext, retrieved domain.RetrievalResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Topic (%s): %s\n", gen.Kind, gen.Title)
	if gen.Summary != "" {
		fmt.Fprintf(&b, "Angle: %s\n", gen.Summary)
	}
	b.WriteString("\nNewsletter sources:\n")
	b.WriteString(FormatSourcesForPrompt(retrieved.Sources, sourcesInPrompt))
	b.WriteString("\n\nList the 3 to 5 most important insights for this topic, one per line, ")
	b.WriteString("each followed by the source number it came from.")
	return b.String()
}

func postPrompt(gen *domain.GenerationContext, analysis string, retrieved domain.RetrievalResult, minWords int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write a LinkedIn post about: %s\n", gen.Title)
	if gen.Summary != "" {
		fmt.Fprintf(&b, "Angle: %s\n", gen.Summary)
	}
	if analysis != "" {
		fmt.Fprintf(&b, "\nKey insights:\n%s\n", analysis)
	}
	b.WriteString("\nSupporting excerpts:\n")
	b.WriteString(FormatChunksForPrompt(retrieved.Chunks, sourcesInPrompt*2))
	fmt.Fprintf(&b, "\n\nRequirements:\n- At least %d words in \"post\"\n", minWords)
	b.WriteString("- Open with a hook, end with a question for the reader\n")
	b.WriteString("- 3 to 5 relevant hashtags in \"hashtags\", without the # sign\n")
	b.WriteString("- \"imagePrompt\" describes an illustration for the post, with no text in the image")
	return b.String()
}

// elaboratePrompt amends the base prompt with the previous attempt's shortfall.
func elaboratePrompt(base string, got, want int) string {
	return fmt.Sprintf("%s\n\nYour previous draft was only %d words, %d short of the required minimum of %d. "+
		"Expand it: elaborate on each insight with concrete examples and implications until the post "+
		"has at least %d words.", base, got, want-got, want, want)
}

func malformedPrompt(base string) string {
	return base + "\n\nYour previous response was not a valid JSON object with a \"post\" field. " +
		"Respond with the JSON object only, no commentary and no code fences."
}

func defaultImagePrompt(gen *domain.GenerationContext) string {
	return fmt.Sprintf("A clean, modern editorial illustration representing %q for a professional "+
		"LinkedIn audience. No text, no logos.", gen.Title)
}
