package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/postsmith/internal/core/domain"
	"github.com/custodia-labs/postsmith/internal/core/ports/driving"
)

var (
	searchLimit    int
	searchMinScore float64
	searchTopics   []string
	searchRecent   bool
	searchJSON     bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search indexed newsletters",
	Long: `Performs semantic search across indexed newsletters.
Chunks below the minimum score are dropped and the rest are grouped by
newsletter. Use --topic to search several topics at once and --recent to
boost newsletters from the recency window.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 0, "maximum number of chunks (default retrieval.limit)")
	searchCmd.Flags().Float64Var(&searchMinScore, "min-score", -1, "minimum similarity score (default retrieval.min_score)")
	searchCmd.Flags().StringArrayVarP(&searchTopics, "topic", "t", nil, "search this topic too (repeatable)")
	searchCmd.Flags().BoolVar(&searchRecent, "recent", false, "boost recent newsletters")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	var query string
	if len(args) == 1 {
		query = strings.TrimSpace(args[0])
	}
	if query == "" && len(searchTopics) == 0 {
		return errors.New("give a query or at least one --topic")
	}

	svc, err := loadServices(cmd.Context())
	if err != nil {
		return err
	}
	if svc.Retrieval == nil {
		return errors.New("search service not configured")
	}

	defaults := svc.Config.Retrieval
	q := domain.RetrievalQuery{
		Query:    query,
		OwnerID:  currentOwner(),
		Limit:    defaults.Limit,
		MinScore: defaults.MinScore,
	}
	if searchLimit > 0 {
		q.Limit = searchLimit
	}
	if searchMinScore >= 0 {
		q.MinScore = searchMinScore
	}

	var res domain.RetrievalResult
	switch {
	case len(searchTopics) > 0:
		topics := searchTopics
		if query != "" {
			topics = append([]string{query}, topics...)
		}
		res, err = svc.Retrieval.RetrieveTopics(cmd.Context(), topics, q)
	case searchRecent:
		res, err = svc.Retrieval.RetrieveRecent(cmd.Context(), q, driving.RecencyOptions{
			Window: defaults.RecencyWindow(),
			Boost:  defaults.RecencyBoost,
		})
	default:
		res, err = svc.Retrieval.Retrieve(cmd.Context(), q)
	}
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, res)
	}
	return outputSearchTable(cmd, res)
}

func outputSearchJSON(cmd *cobra.Command, res domain.RetrievalResult) error {
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, res domain.RetrievalResult) error {
	if len(res.Sources) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	for i, src := range res.Sources {
		subject := src.Subject
		if subject == "" {
			subject = src.ParentID
		}
		cmd.Printf("  [%d] %s (%.0f%%)\n", i+1, subject, src.Score*100)
		if src.From != "" {
			cmd.Printf("      From: %s", src.From)
			if !src.Date.IsZero() {
				cmd.Printf(", %s", src.Date.Format("2006-01-02"))
			}
			cmd.Println()
		}
		for _, c := range src.Chunks {
			marker := ""
			if c.Boosted {
				marker = " recent"
			}
			cmd.Printf("      %.2f%s  %s\n", c.Score, marker, snippet(c.Text, 100))
		}
		cmd.Println()
	}
	return nil
}

// snippet collapses whitespace and cuts text to at most n runes.
func snippet(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n]) + "..."
}
