// Package cli provides the postsmith command line interface.
package cli

import (
	"context"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/postsmith/internal/logger"
)

// Environment variables read by the root command.
const (
	EnvHome    = "POSTSMITH_HOME"
	EnvOwner   = "POSTSMITH_OWNER"
	EnvVerbose = "POSTSMITH_VERBOSE"
)

// defaultOwnerID is used when neither --owner nor POSTSMITH_OWNER is set.
const defaultOwnerID = "default"

// version is set at build time via SetVersion.
var version = "dev"

var (
	verbose   bool
	homeDir   string
	ephemeral bool
	ownerID   string
)

var rootCmd = &cobra.Command{
	Use:   "postsmith",
	Short: "Turn your newsletter inbox into social posts",
	Long: `postsmith indexes the newsletters you receive, retrieves what is relevant
to a trend, idea or session, and runs an AI pipeline that drafts a post and an
image for it in the background.

State lives in ~/.postsmith unless --home or POSTSMITH_HOME says otherwise.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		if verbose || os.Getenv(EnvVerbose) == "1" {
			logger.SetVerbose(true)
		}
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	flags.StringVar(&homeDir, "home", "", "config and data directory (default ~/.postsmith)")
	flags.BoolVar(&ephemeral, "ephemeral", false, "keep jobs, newsletters and vectors in memory")
	flags.StringVar(&ownerID, "owner", "", "owner the records belong to (default $POSTSMITH_OWNER or \"default\")")
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	version = v
}

// Execute runs the root command and releases any services it built.
func Execute(ctx context.Context) error {
	defer closeServices()
	return rootCmd.ExecuteContext(ctx)
}

// currentOwner resolves the owner from the flag, then the environment.
func currentOwner() string {
	if o := strings.TrimSpace(ownerID); o != "" {
		return o
	}
	if o := strings.TrimSpace(os.Getenv(EnvOwner)); o != "" {
		return o
	}
	return defaultOwnerID
}

// currentOptions collects the flags that decide where state lives.
func currentOptions() Options {
	home := homeDir
	if home == "" {
		home = os.Getenv(EnvHome)
	}
	return Options{Home: home, Ephemeral: ephemeral}
}
