package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/postsmith/internal/core/domain"
)

var indexAll bool

var indexCmd = &cobra.Command{
	Use:   "index [newsletter-id]",
	Short: "Index stored newsletters for retrieval",
	Long: `Chunk, embed and upsert a stored newsletter into the vector store,
replacing any chunks it had before.

With --all every newsletter of the owner that is not yet indexed is indexed
in batches. Failures are reported per newsletter.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIndex,
}

var indexRemoveCmd = &cobra.Command{
	Use:   "remove [newsletter-id]",
	Short: "Remove a newsletter's chunks from the vector store",
	Args:  cobra.ExactArgs(1),
	RunE:  runIndexRemove,
}

func init() {
	indexCmd.Flags().BoolVarP(&indexAll, "all", "a", false, "index every unindexed newsletter")
	indexCmd.AddCommand(indexRemoveCmd)
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	if indexAll == (len(args) == 1) {
		return errors.New("give a newsletter ID or --all")
	}

	svc, err := loadServices(cmd.Context())
	if err != nil {
		return err
	}
	if svc.Index == nil {
		return errors.New("index service not configured")
	}

	if indexAll {
		batch, err := svc.Index.IndexUnindexed(cmd.Context(), currentOwner())
		if err != nil {
			return fmt.Errorf("index newsletters: %w", err)
		}
		printBatch(cmd, batch)
		return nil
	}

	if svc.Newsletters == nil {
		return errors.New("newsletter service not configured")
	}
	n, err := svc.Newsletters.GetNewsletter(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("get newsletter: %w", err)
	}
	res, err := svc.Index.IndexNewsletter(cmd.Context(), *n)
	if err != nil {
		return fmt.Errorf("index newsletter: %w", err)
	}
	cmd.Printf("Indexed %s: %d chunks ($%.6f)\n", res.NewsletterID, res.ChunksCreated, res.Cost)
	return nil
}

func runIndexRemove(cmd *cobra.Command, args []string) error {
	svc, err := loadServices(cmd.Context())
	if err != nil {
		return err
	}
	if svc.Index == nil {
		return errors.New("index service not configured")
	}

	if err := svc.Index.RemoveNewsletter(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("remove newsletter: %w", err)
	}
	cmd.Printf("Removed %s from the index\n", args[0])
	return nil
}

func printBatch(cmd *cobra.Command, batch domain.BatchIndexingResult) {
	if len(batch.Results) == 0 {
		cmd.Println("Nothing to index.")
		return
	}
	for _, r := range batch.Results {
		if r.Success {
			cmd.Printf("  ok    %s  %d chunks\n", r.NewsletterID, r.ChunksCreated)
			continue
		}
		cmd.Printf("  fail  %s  %s\n", r.NewsletterID, r.Error)
	}
	cmd.Printf("Indexed %d, failed %d, %d chunks, $%.6f\n",
		batch.SuccessCount, batch.FailureCount, batch.TotalChunks, batch.TotalCost)
}
