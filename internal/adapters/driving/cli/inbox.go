package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/postsmith/internal/adapters/driving/inbox"
)

var (
	inboxReindex  bool
	inboxDebounce time.Duration
)

var inboxCmd = &cobra.Command{
	Use:   "inbox",
	Short: "Import newsletters from .eml files",
}

var inboxImportCmd = &cobra.Command{
	Use:   "import [path]",
	Short: "Import a .eml file or every .eml file under a directory",
	Long: `Parse .eml files, store them as newsletters and index them.

Each message gets a stable ID from its Message-Id, so importing the same file
again updates the stored newsletter. Newsletters that are already indexed are
skipped unless --reindex is given.`,
	Args: cobra.ExactArgs(1),
	RunE: runInboxImport,
}

var inboxWatchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Import .eml files as they appear in a directory",
	Long: `Watch a directory tree and import .eml files when they are created or
written. Files are imported once they have been quiet for the debounce
period. Press Ctrl+C to stop.`,
	Args: cobra.ExactArgs(1),
	RunE: runInboxWatch,
}

var inboxListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored newsletters",
	Args:  cobra.NoArgs,
	RunE:  runInboxList,
}

func init() {
	inboxImportCmd.Flags().BoolVar(&inboxReindex, "reindex", false, "re-index newsletters that are already indexed")
	inboxWatchCmd.Flags().BoolVar(&inboxReindex, "reindex", false, "re-index newsletters that are already indexed")
	inboxWatchCmd.Flags().DurationVar(&inboxDebounce, "debounce", inbox.DefaultDebounce, "quiet period before a file is imported")

	inboxCmd.AddCommand(inboxImportCmd)
	inboxCmd.AddCommand(inboxWatchCmd)
	inboxCmd.AddCommand(inboxListCmd)
	rootCmd.AddCommand(inboxCmd)
}

func newImporter(ctx context.Context) (*inbox.Importer, error) {
	svc, err := loadServices(ctx)
	if err != nil {
		return nil, err
	}
	if svc.Newsletters == nil {
		return nil, errors.New("newsletter service not configured")
	}
	return inbox.NewImporter(svc.Newsletters, currentOwner(),
		inbox.WithReindex(inboxReindex),
		inbox.WithDebounce(inboxDebounce),
	), nil
}

func runInboxImport(cmd *cobra.Command, args []string) error {
	importer, err := newImporter(cmd.Context())
	if err != nil {
		return err
	}

	info, err := os.Stat(args[0])
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}

	if !info.IsDir() {
		ev := importer.ImportFile(cmd.Context(), args[0])
		printEvent(cmd, ev)
		return ev.Err
	}

	report, err := importer.ImportDir(cmd.Context(), args[0])
	for _, ev := range report.Events {
		printEvent(cmd, ev)
	}
	cmd.Printf("%d files: %d imported, %d skipped, %d failed, %d chunks, $%.6f\n",
		report.Files, report.Imported, report.Skipped, report.Failed, report.Chunks, report.Cost)
	return err
}

func runInboxWatch(cmd *cobra.Command, args []string) error {
	importer, err := newImporter(cmd.Context())
	if err != nil {
		return err
	}

	events, err := importer.Watch(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}

	cmd.Printf("Watching %s for .eml files\n", args[0])
	for ev := range events {
		printEvent(cmd, ev)
	}
	return nil
}

func runInboxList(cmd *cobra.Command, _ []string) error {
	svc, err := loadServices(cmd.Context())
	if err != nil {
		return err
	}
	if svc.Newsletters == nil {
		return errors.New("newsletter service not configured")
	}

	newsletters, err := svc.Newsletters.ListNewsletters(cmd.Context(), currentOwner())
	if err != nil {
		return fmt.Errorf("list newsletters: %w", err)
	}
	if len(newsletters) == 0 {
		cmd.Println("No newsletters found.")
		return nil
	}

	for _, n := range newsletters {
		state := "unindexed"
		if n.Indexed {
			state = fmt.Sprintf("%d chunks", n.ChunkCount)
		}
		cmd.Printf("  %s  %s  %-10s %s\n", n.ID, n.Date.Format("2006-01-02"), state, n.Subject)
	}
	return nil
}

func printEvent(cmd *cobra.Command, ev inbox.Event) {
	switch {
	case ev.Err != nil:
		cmd.Printf("  fail  %s: %v\n", ev.Path, ev.Err)
	case ev.Skipped:
		cmd.Printf("  skip  %s (%s already indexed)\n", ev.Path, ev.NewsletterID)
	default:
		cmd.Printf("  ok    %s -> %s (%d chunks)\n", ev.Path, ev.NewsletterID, ev.Result.ChunksCreated)
	}
}
