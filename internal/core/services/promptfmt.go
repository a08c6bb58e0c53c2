package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/postsmith/internal/core/domain"
)

// FormatChunksForPrompt renders the top n chunks as numbered blocks with
// relevance percentages and citations. n <= 0 renders all.
func FormatChunksForPrompt(chunks []domain.RetrievedChunk, n int) string {
	if len(chunks) == 0 {
		return "No relevant newsletter content found."
	}
	if n > 0 && len(chunks) > n {
		chunks = chunks[:n]
	}

	var b strings.Builder
	for i, c := range chunks {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[%d] %s (relevance %d%%)\n", i+1, citationLine(c.Subject, c.From, c.Date), percent(c.Score))
		b.WriteString(strings.TrimSpace(c.Text))
	}
	return b.String()
}

// FormatSourcesForPrompt renders the top n grouped sources, each with its
// chunks as excerpts. n <= 0 renders all.
func FormatSourcesForPrompt(sources []domain.SourceGroup, n int) string {
	if len(sources) == 0 {
		return "No relevant newsletter content found."
	}
	if n > 0 && len(sources) > n {
		sources = sources[:n]
	}

	var b strings.Builder
	for i, s := range sources {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "Source %d: %s (relevance %d%%)\n", i+1, citationLine(s.Subject, s.From, s.Date), percent(s.Score))
		for _, c := range s.Chunks {
			fmt.Fprintf(&b, "- %s\n", excerpt(c.Text, 400))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatCitations renders citations as a numbered reference list.
func FormatCitations(citations []domain.Citation) string {
	var b strings.Builder
	for i, c := range citations {
		fmt.Fprintf(&b, "[%d] %s\n", i+1, citationLine(c.Subject, c.From, c.Date))
	}
	return strings.TrimRight(b.String(), "\n")
}

func citationLine(subject, from string, date time.Time) string {
	if subject == "" {
		subject = "Untitled"
	}
	line := fmt.Sprintf("%q", subject)
	if from != "" {
		line += " from " + from
	}
	if !date.IsZero() {
		line += ", " + date.Format("2 Jan 2006")
	}
	return line
}

func percent(score float64) int {
	return int(score*100 + 0.5)
}

func excerpt(text string, limit int) string {
	text = strings.Join(strings.Fields(text), " ")
	r := []rune(text)
	if len(r) <= limit {
		return text
	}
	return string(r[:limit]) + "..."
}
