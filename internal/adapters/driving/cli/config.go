package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show and change settings",
	Long: `Show the effective settings or change one value in config.toml.

Values come from built-in defaults, then config.toml, then the environment
(OPENAI_API_KEY, ANTHROPIC_API_KEY, QDRANT_URL, QDRANT_API_KEY,
POSTSMITH_ADDR).`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective settings",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set one setting",
	Long: `Set one dotted setting key in config.toml, for example:

  postsmith config set llm.provider anthropic
  postsmith config set pipeline.min_words 150
  postsmith config set pipeline.job_timeout 3m
  postsmith config set pricing.gpt-4o.input_per_1k 0.0025`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	settingsService, err := loadSettings()
	if err != nil {
		return err
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("[embedding]")
	cmd.Printf("  provider: %s\n", settings.Embedding.Provider.Description())
	cmd.Printf("  model: %s (%d dimensions)\n", settings.Embedding.Model, settings.Embedding.Dimensions)
	cmd.Printf("  api key: %s\n", maskAPIKey(settings.Embedding.APIKey))
	cmd.Printf("  batch size: %d\n", settings.Embedding.BatchSize)
	cmd.Println()

	cmd.Println("[llm]")
	cmd.Printf("  provider: %s\n", settings.LLM.Provider.Description())
	cmd.Printf("  model: %s\n", settings.LLM.Model)
	cmd.Printf("  api key: %s\n", maskAPIKey(settings.LLM.APIKey))
	cmd.Println()

	cmd.Println("[image]")
	cmd.Printf("  provider: %s\n", settings.Image.Provider.Description())
	cmd.Printf("  model: %s (%s)\n", settings.Image.Model, settings.Image.Size)
	cmd.Println()

	cmd.Println("[vector]")
	cmd.Printf("  provider: %s\n", settings.Vector.Provider)
	cmd.Printf("  url: %s\n", settings.Vector.URL)
	cmd.Printf("  collection: %s\n", settings.Vector.Collection)
	cmd.Println()

	cmd.Println("[pipeline]")
	cmd.Printf("  min words: %d\n", settings.Pipeline.MinWords)
	cmd.Printf("  max attempts: %d\n", settings.Pipeline.MaxAttempts)
	cmd.Printf("  job timeout: %s\n", settings.Pipeline.JobTimeout)
	cmd.Printf("  workers: %d (queue %d)\n", settings.Pipeline.Workers, settings.Pipeline.QueueSize)
	cmd.Printf("  fail on asset error: %t\n", settings.Pipeline.FailOnAssetError)
	cmd.Println()

	cmd.Println("[retrieval]")
	cmd.Printf("  limit: %d\n", settings.Retrieval.Limit)
	cmd.Printf("  min score: %.2f\n", settings.Retrieval.MinScore)
	cmd.Printf("  recency: %d days, +%.2f\n", settings.Retrieval.RecencyDays, settings.Retrieval.RecencyBoost)
	cmd.Println()

	cmd.Println("[server]")
	cmd.Printf("  addr: %s\n", settings.Server.Addr)

	if len(settings.Pricing) > 0 {
		cmd.Println()
		cmd.Println("[pricing]")
		models := make([]string, 0, len(settings.Pricing))
		for m := range settings.Pricing {
			models = append(models, m)
		}
		sort.Strings(models)
		for _, m := range models {
			p := settings.Pricing[m]
			cmd.Printf("  %s: in %.5f, out %.5f per 1k, %.3f per image\n",
				m, p.InputPer1K, p.OutputPer1K, p.PerImage)
		}
	}
	cmd.Println()

	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
	} else {
		cmd.Println("Configuration is valid.")
	}
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	settingsService, err := loadSettings()
	if err != nil {
		return err
	}

	if err := settingsService.Set(args[0], args[1]); err != nil {
		return fmt.Errorf("failed to set %s: %w", args[0], err)
	}
	cmd.Printf("Set %s\n", args[0])
	return nil
}

// maskAPIKey shows only the last four characters of a key.
func maskAPIKey(key string) string {
	if key == "" {
		return "(not set)"
	}
	if len(key) <= 8 {
		return "****"
	}
	return "****" + key[len(key)-4:]
}
