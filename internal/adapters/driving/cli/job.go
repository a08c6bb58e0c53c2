package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/postsmith/internal/adapters/driving/tui"
	"github.com/custodia-labs/postsmith/internal/core/domain"
	"github.com/custodia-labs/postsmith/internal/core/ports/driving"
)

var (
	jobJSON   bool
	jobDetach bool
	jobPlain  bool
	jobLimit  int
)

// stdoutIsTerminal decides between the progress UI and plain lines.
var stdoutIsTerminal = func() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

var jobCmd = &cobra.Command{
	Use:   "job",
	Short: "Create and follow generation jobs",
}

var jobCreateCmd = &cobra.Command{
	Use:   "create [context-id]",
	Short: "Generate a post from a trend, idea or session",
	Long: `Create a generation job for a stored context and follow its progress.

The job runs on this process's workers. With --detach the command prints the
job ID and returns; the process still waits for running jobs before exiting.`,
	Args: cobra.ExactArgs(1),
	RunE: runJobCreate,
}

var jobGetCmd = &cobra.Command{
	Use:   "get [job-id]",
	Short: "Show a job",
	Args:  cobra.ExactArgs(1),
	RunE:  runJobGet,
}

var jobListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent jobs",
	Args:  cobra.NoArgs,
	RunE:  runJobList,
}

var jobWatchCmd = &cobra.Command{
	Use:   "watch [job-id]",
	Short: "Follow a job until it finishes",
	Long: `Follow a job's progress until it completes or fails.

On a terminal an interactive progress view is shown:
  d - Toggle cost breakdown and sources
  ? - Toggle help
  q - Stop watching (the job keeps running)

Use --plain, or pipe the output, to print one line per update instead.`,
	Args: cobra.ExactArgs(1),
	RunE: runJobWatch,
}

func init() {
	jobCreateCmd.Flags().BoolVar(&jobDetach, "detach", false, "print the job ID and return without following")
	jobCreateCmd.Flags().BoolVar(&jobPlain, "plain", false, "print plain progress lines")
	jobGetCmd.Flags().BoolVar(&jobJSON, "json", false, "output the job as JSON")
	jobListCmd.Flags().IntVarP(&jobLimit, "limit", "n", 20, "maximum number of jobs")
	jobWatchCmd.Flags().BoolVar(&jobPlain, "plain", false, "print plain progress lines")

	jobCmd.AddCommand(jobCreateCmd)
	jobCmd.AddCommand(jobGetCmd)
	jobCmd.AddCommand(jobListCmd)
	jobCmd.AddCommand(jobWatchCmd)
	rootCmd.AddCommand(jobCmd)
}

func runJobCreate(cmd *cobra.Command, args []string) error {
	svc, err := loadServices(cmd.Context())
	if err != nil {
		return err
	}
	if svc.Jobs == nil {
		return errors.New("job service not configured")
	}

	resp, err := svc.Jobs.CreateJob(cmd.Context(), domain.CreateJobRequest{
		OwnerID:   currentOwner(),
		ContextID: args[0],
	})
	if err != nil {
		return fmt.Errorf("create job: %w", err)
	}

	cmd.Printf("Created job %s\n", resp.JobID)
	if jobDetach {
		return nil
	}
	return watchJob(cmd, resp.JobID)
}

func runJobGet(cmd *cobra.Command, args []string) error {
	svc, err := loadServices(cmd.Context())
	if err != nil {
		return err
	}
	if svc.Jobs == nil {
		return errors.New("job service not configured")
	}

	job, err := svc.Jobs.GetJob(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("get job: %w", err)
	}

	if jobJSON {
		data, err := json.MarshalIndent(job, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal job: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	printJob(cmd, job)
	return nil
}

func runJobList(cmd *cobra.Command, _ []string) error {
	svc, err := loadServices(cmd.Context())
	if err != nil {
		return err
	}
	if svc.Jobs == nil {
		return errors.New("job service not configured")
	}

	jobs, err := svc.Jobs.ListJobs(cmd.Context(), currentOwner(), jobLimit)
	if err != nil {
		return fmt.Errorf("list jobs: %w", err)
	}
	if len(jobs) == 0 {
		cmd.Println("No jobs found.")
		return nil
	}

	for i := range jobs {
		j := &jobs[i]
		title := j.ContextTitle
		if title == "" {
			title = j.ContextID
		}
		cmd.Printf("  %s  %-10s %3d%%  %s  %s\n",
			j.ID, j.Status, j.Progress.Percentage, j.CreatedAt.Local().Format("2006-01-02 15:04"), title)
	}
	return nil
}

func runJobWatch(cmd *cobra.Command, args []string) error {
	return watchJob(cmd, args[0])
}

// watchJob follows a job with the progress UI on a terminal and plain
// lines otherwise. A failed job is returned as an error.
func watchJob(cmd *cobra.Command, jobID string) error {
	svc, err := loadServices(cmd.Context())
	if err != nil {
		return err
	}
	if svc.Jobs == nil {
		return errors.New("job service not configured")
	}

	var last *domain.Job
	if !jobPlain && stdoutIsTerminal() {
		app, err := tui.NewApp(tui.NewPorts(svc.Jobs), jobID)
		if err != nil {
			return err
		}
		last, err = app.WithContext(cmd.Context()).Run()
		if err != nil {
			return fmt.Errorf("watch job: %w", err)
		}
	} else {
		last, err = watchPlain(cmd.Context(), cmd, svc.Jobs, jobID)
		if err != nil {
			return err
		}
		if last != nil && last.Status == domain.JobStatusCompleted {
			cmd.Println()
			printResult(cmd, last)
		}
	}

	return jobOutcome(last)
}

// watchPlain prints one line per snapshot until the stream closes.
func watchPlain(ctx context.Context, cmd *cobra.Command, jobs driving.JobService, jobID string) (*domain.Job, error) {
	updates, err := jobs.WatchJob(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("watch job: %w", err)
	}

	var last *domain.Job
	for job := range updates {
		cmd.Printf("[%3d%%] %-16s %s\n", job.Progress.Percentage, job.Progress.Stage, job.Progress.Message)
		last = &job
	}
	if last == nil || !last.Status.IsTerminal() {
		if ctx.Err() != nil {
			return last, ctx.Err()
		}
		return last, tui.ErrDisconnected
	}
	return last, nil
}

// jobOutcome turns a failed job into an error.
func jobOutcome(job *domain.Job) error {
	if job == nil || job.Status != domain.JobStatusFailed {
		return nil
	}
	return fmt.Errorf("job %s failed: %s", job.ID, job.Error)
}

func printJob(cmd *cobra.Command, job *domain.Job) {
	cmd.Printf("Job:      %s\n", job.ID)
	cmd.Printf("Status:   %s\n", job.Status)
	cmd.Printf("Context:  %s\n", job.ContextID)
	if job.ContextTitle != "" {
		cmd.Printf("Title:    %s\n", job.ContextTitle)
	}
	cmd.Printf("Progress: %d%% %s (%s)\n", job.Progress.Percentage, job.Progress.Stage, job.Progress.Message)
	cmd.Printf("Cost:     $%.4f (generation $%.4f, asset $%.4f)\n", job.TotalCost, job.Costs.Generation, job.Costs.Asset)
	if job.Error != "" {
		cmd.Printf("Error:    %s\n", job.Error)
	}
	if job.Result != nil {
		cmd.Println()
		printResult(cmd, job)
	}
}

func printResult(cmd *cobra.Command, job *domain.Job) {
	res := job.Result
	if res == nil {
		return
	}
	cmd.Println(res.Text)
	if len(res.Hashtags) > 0 {
		tags := make([]string, len(res.Hashtags))
		for i, t := range res.Hashtags {
			tags[i] = "#" + t
		}
		cmd.Println()
		cmd.Println(strings.Join(tags, " "))
	}
	cmd.Println()
	cmd.Printf("%d words, %d attempt(s)\n", res.WordCount, res.Attempts)
	if res.AssetURL != "" {
		cmd.Printf("Image: %s\n", res.AssetURL)
	}
	for i, c := range res.Citations {
		cmd.Printf("  [%d] %s - %s (%.0f%%)\n", i+1, c.Subject, c.From, c.Relevance*100)
	}
}
