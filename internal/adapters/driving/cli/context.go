package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/postsmith/internal/core/domain"
)

var (
	contextID      string
	contextKind    string
	contextSummary string
	contextTopics  []string
)

var contextCmd = &cobra.Command{
	Use:   "context",
	Short: "Manage the trends, ideas and sessions posts are built from",
}

var contextAddCmd = &cobra.Command{
	Use:   "add [title]",
	Short: "Store a generation context",
	Long: `Store a trend, idea or session that jobs can be created from.

Topics drive newsletter retrieval. Trends retrieve with a recency boost; ideas
and sessions search each topic separately. When no topic is given the title
is used.`,
	Args: cobra.ExactArgs(1),
	RunE: runContextAdd,
}

var contextListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored contexts",
	Args:  cobra.NoArgs,
	RunE:  runContextList,
}

func init() {
	contextAddCmd.Flags().StringVar(&contextID, "id", "", "context ID (generated when empty)")
	contextAddCmd.Flags().StringVarP(&contextKind, "kind", "k", string(domain.ContextKindIdea), "trend, idea or session")
	contextAddCmd.Flags().StringVarP(&contextSummary, "summary", "s", "", "the angle the post should take")
	contextAddCmd.Flags().StringArrayVarP(&contextTopics, "topic", "t", nil, "retrieval topic (repeatable)")

	contextCmd.AddCommand(contextAddCmd)
	contextCmd.AddCommand(contextListCmd)
	rootCmd.AddCommand(contextCmd)
}

func runContextAdd(cmd *cobra.Command, args []string) error {
	svc, err := loadServices(cmd.Context())
	if err != nil {
		return err
	}
	if svc.Contexts == nil {
		return errors.New("context service not configured")
	}

	id := strings.TrimSpace(contextID)
	if id == "" {
		id = "ctx_" + uuid.NewString()
	}
	c := domain.GenerationContext{
		ID:      id,
		OwnerID: currentOwner(),
		Kind:    domain.ContextKind(contextKind),
		Title:   args[0],
		Summary: contextSummary,
		Topics:  contextTopics,
	}
	if err := svc.Contexts.SaveContext(cmd.Context(), c); err != nil {
		return fmt.Errorf("save context: %w", err)
	}

	cmd.Printf("Stored %s context %s\n", c.Kind, c.ID)
	return nil
}

func runContextList(cmd *cobra.Command, _ []string) error {
	svc, err := loadServices(cmd.Context())
	if err != nil {
		return err
	}
	if svc.Contexts == nil {
		return errors.New("context service not configured")
	}

	contexts, err := svc.Contexts.ListContexts(cmd.Context(), currentOwner())
	if err != nil {
		return fmt.Errorf("list contexts: %w", err)
	}
	if len(contexts) == 0 {
		cmd.Println("No contexts found.")
		return nil
	}

	for _, c := range contexts {
		cmd.Printf("  %s  %-8s %s\n", c.ID, c.Kind, c.Title)
		if topics := c.SearchTopics(); len(topics) > 0 {
			cmd.Printf("      topics: %s\n", strings.Join(topics, ", "))
		}
	}
	return nil
}
