package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/postsmith/internal/core/domain"
)

// defaultCostWindow is how far back the report looks without --since.
const defaultCostWindow = 30 * 24 * time.Hour

var (
	costsSince string
	costsJSON  bool
)

// now is replaced in tests.
var now = time.Now

var costsCmd = &cobra.Command{
	Use:   "costs",
	Short: "Report spending by operation and model",
	Long: `Summarise the cost ledger for the owner: one row per operation and
model with the number of calls, billed units and cost.

--since takes a date (2006-01-02), an RFC 3339 time or a duration such as
168h. The default is the last 30 days.`,
	Args: cobra.NoArgs,
	RunE: runCosts,
}

func init() {
	costsCmd.Flags().StringVar(&costsSince, "since", "", "start of the report (date, RFC 3339 time or duration)")
	costsCmd.Flags().BoolVar(&costsJSON, "json", false, "output rows as JSON")
	rootCmd.AddCommand(costsCmd)
}

func runCosts(cmd *cobra.Command, _ []string) error {
	since, err := parseSince(costsSince, now())
	if err != nil {
		return err
	}

	svc, err := loadServices(cmd.Context())
	if err != nil {
		return err
	}
	if svc.Costs == nil {
		return errors.New("cost service not configured")
	}

	rows, err := svc.Costs.Summary(cmd.Context(), currentOwner(), since)
	if err != nil {
		return fmt.Errorf("cost summary: %w", err)
	}

	if costsJSON {
		if rows == nil {
			rows = []domain.CostSummaryRow{}
		}
		data, err := json.MarshalIndent(rows, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal rows: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Printf("Costs since %s\n\n", since.Local().Format("2006-01-02 15:04"))
	if len(rows) == 0 {
		cmd.Println("No spending recorded.")
		return nil
	}

	var total float64
	cmd.Printf("  %-12s %-26s %8s %12s %12s\n", "OPERATION", "MODEL", "CALLS", "UNITS", "COST")
	for _, r := range rows {
		cmd.Printf("  %-12s %-26s %8d %12d %12s\n", r.Operation, r.Model, r.Entries, r.TotalUnits, formatCost(r.Cost))
		total += r.Cost
	}
	cmd.Printf("  %s\n", strings.Repeat("-", 74))
	cmd.Printf("  %-12s %-26s %8s %12s %12s\n", "TOTAL", "", "", "", formatCost(total))
	return nil
}

// parseSince accepts a date, an RFC 3339 time or a duration before ref.
func parseSince(s string, ref time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return ref.Add(-defaultCostWindow), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation(time.DateOnly, s, time.Local); err == nil {
		return t, nil
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return ref.Add(-d), nil
	}
	return time.Time{}, fmt.Errorf("%w: --since %q is not a date, time or duration", domain.ErrInvalidInput, s)
}

func formatCost(c float64) string {
	return fmt.Sprintf("$%.4f", c)
}
