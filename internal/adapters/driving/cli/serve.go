package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/postsmith/internal/adapters/driving/web"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the job workers",
	Long: `Run the HTTP API together with the background job workers.

Jobs created through POST /jobs run on the workers of this process. Progress
streams from GET /jobs/{id}/events as server-sent events, and Prometheus
metrics are served from /metrics.

On SIGINT or SIGTERM the server stops accepting requests and running jobs are
given until the job timeout to finish.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default server.addr, \":8080\")")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	svc, err := loadServices(cmd.Context())
	if err != nil {
		return err
	}

	handler, err := web.NewHandler(web.Services{
		Jobs:        svc.Jobs,
		Contexts:    svc.Contexts,
		Newsletters: svc.Newsletters,
		Index:       svc.Index,
		Retrieval:   svc.Retrieval,
		Costs:       svc.Costs,
	}, svc.Config.Retrieval, svc.Health)
	if err != nil {
		return fmt.Errorf("creating handler: %w", err)
	}

	addr := serveAddr
	if addr == "" {
		addr = svc.Config.Server.Addr
	}
	server := web.NewServer(addr, handler, svc.Metrics)

	cmd.Printf("postsmith API listening on %s\n", addr)
	return server.Run(cmd.Context())
}
