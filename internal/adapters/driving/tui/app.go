package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/postsmith/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/postsmith/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/postsmith/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/postsmith/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/postsmith/internal/core/domain"
)

const (
	defaultWidth = 80
	minBarWidth  = 20
	maxBarWidth  = 60
)

// App watches one generation job following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	ports *Ports
	ctx   context.Context
	jobID string

	styles   *styles.Styles
	keymap   *keymap.KeyMap
	bar      *status.Bar
	progress progress.Model
	spinner  spinner.Model
	help     help.Model

	// updates is the snapshot stream, nil until subscribed.
	updates <-chan domain.Job

	// job is the latest snapshot, nil until the first arrives.
	job *domain.Job

	showDetails bool
	done        bool
	err         error
	width       int
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a watcher for the given job.
func NewApp(ports *Ports, jobID string) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}
	if strings.TrimSpace(jobID) == "" {
		return nil, fmt.Errorf("creating app: %w", ErrMissingJobID)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()
	from, to := s.ProgressGradient()

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = s.StageActive

	a := &App{
		ports:    ports,
		ctx:      context.Background(),
		jobID:    jobID,
		styles:   s,
		keymap:   km,
		bar:      status.NewBar(s, km),
		progress: progress.New(progress.WithGradient(from, to), progress.WithoutPercentage()),
		spinner:  sp,
		help:     help.New(),
	}
	a.SetWidth(defaultWidth)
	return a, nil
}

// WithContext sets the context the subscription runs under.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	return a
}

// Init implements tea.Model. It opens the subscription and starts the spinner.
func (a *App) Init() tea.Cmd {
	return tea.Batch(a.subscribe(), a.spinner.Tick)
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetWidth(msg.Width)
		return a, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, a.keymap.Quit):
			return a, tea.Quit
		case key.Matches(msg, a.keymap.Help):
			a.help.ShowAll = !a.help.ShowAll
		case key.Matches(msg, a.keymap.Details):
			a.showDetails = !a.showDetails
		}
		return a, nil

	case messages.Subscribed:
		if msg.Err != nil {
			a.err = msg.Err
			a.bar.SetState(status.StateDisconnected)
			a.bar.SetMessage(msg.Err.Error())
			return a, tea.Quit
		}
		a.updates = msg.Updates
		a.bar.SetState(status.StateWatching)
		return a, waitForUpdate(a.updates)

	case messages.JobUpdated:
		a.apply(msg.Job)
		if msg.Terminal() {
			a.done = true
			return a, tea.Quit
		}
		return a, waitForUpdate(a.updates)

	case messages.StreamClosed:
		if !a.done {
			a.err = ErrDisconnected
			a.bar.SetState(status.StateDisconnected)
			if a.ctx.Err() != nil {
				a.bar.SetMessage(a.ctx.Err().Error())
			}
		}
		return a, tea.Quit

	case messages.ErrorOccurred:
		a.err = msg.Err
		a.bar.SetState(status.StateDisconnected)
		a.bar.SetMessage(msg.Err.Error())
		return a, tea.Quit

	case messages.Quit:
		return a, tea.Quit

	case spinner.TickMsg:
		if a.done {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd
	}

	return a, nil
}

// apply records a snapshot and mirrors it in the status bar.
func (a *App) apply(job domain.Job) {
	a.job = &job
	a.bar.SetCost(job.TotalCost)
	switch job.Status {
	case domain.JobStatusCompleted:
		a.bar.SetState(status.StateCompleted)
	case domain.JobStatusFailed:
		a.bar.SetState(status.StateFailed)
		a.bar.SetMessage(job.Error)
	default:
		a.bar.SetState(status.StateWatching)
	}
}

// subscribe opens the snapshot stream for the job.
func (a *App) subscribe() tea.Cmd {
	ctx, jobs, id := a.ctx, a.ports.Jobs, a.jobID
	return func() tea.Msg {
		ch, err := jobs.WatchJob(ctx, id)
		return messages.Subscribed{JobID: id, Updates: ch, Err: err}
	}
}

// waitForUpdate blocks on the next snapshot.
func waitForUpdate(ch <-chan domain.Job) tea.Cmd {
	return func() tea.Msg {
		job, ok := <-ch
		if !ok {
			return messages.StreamClosed{}
		}
		return messages.JobUpdated{Job: job}
	}
}

// View implements tea.Model.
func (a *App) View() string {
	var b strings.Builder

	b.WriteString(a.styles.Title.Render("postsmith"))
	b.WriteString(a.styles.Muted.Render("  job " + a.jobID))
	b.WriteString("\n")

	if a.job == nil {
		if a.err == nil {
			b.WriteString("\n" + a.spinner.View() + " Waiting for the job...\n")
		}
		b.WriteString("\n" + a.bar.View() + "\n")
		return b.String()
	}

	job := a.job
	if job.ContextTitle != "" {
		b.WriteString(a.styles.Subtitle.Render(job.ContextTitle) + "\n")
	}
	b.WriteString("\n")

	b.WriteString(a.progress.ViewAs(float64(job.Progress.Percentage) / 100))
	b.WriteString(fmt.Sprintf(" %3d%%\n\n", job.Progress.Percentage))

	b.WriteString(a.viewStages())

	if job.Progress.Message != "" {
		prefix := "  "
		if !job.Status.IsTerminal() {
			prefix = a.spinner.View() + " "
		}
		b.WriteString("\n" + prefix + a.styles.Muted.Render(job.Progress.Message) + "\n")
	}

	switch job.Status {
	case domain.JobStatusFailed:
		b.WriteString("\n" + a.styles.Error.Render("Error: "+job.Error) + "\n")
	case domain.JobStatusCompleted:
		b.WriteString("\n" + a.viewResult() + "\n")
	}

	if a.showDetails {
		b.WriteString("\n" + a.viewDetails())
	}

	if a.help.ShowAll {
		b.WriteString("\n" + a.help.View(a.keymap) + "\n")
	}

	b.WriteString("\n" + a.bar.View() + "\n")
	return b.String()
}

// viewStages renders the pipeline stages with their state.
func (a *App) viewStages() string {
	job := a.job
	current := -1
	for i, st := range domain.Stages() {
		if st == job.Progress.Stage {
			current = i
		}
	}

	var b strings.Builder
	for i, st := range domain.Stages() {
		label := StageLabel(st)
		switch {
		case job.Status == domain.JobStatusCompleted || i < current:
			b.WriteString(a.styles.StageDone.Render("  ✓ " + label))
		case i == current && job.Status == domain.JobStatusFailed:
			b.WriteString(a.styles.Error.Render("  ✗ " + label))
		case i == current:
			b.WriteString(a.styles.StageActive.Render("  ▸ " + label))
		default:
			b.WriteString(a.styles.StagePending.Render("  · " + label))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// viewResult renders the generated post.
func (a *App) viewResult() string {
	res := a.job.Result
	if res == nil {
		return a.styles.Warning.Render("Completed without a result")
	}

	var body strings.Builder
	body.WriteString(res.Text)
	if len(res.Hashtags) > 0 {
		tags := make([]string, len(res.Hashtags))
		for i, t := range res.Hashtags {
			tags[i] = "#" + t
		}
		body.WriteString("\n\n" + a.styles.Subtitle.Render(strings.Join(tags, " ")))
	}

	meta := fmt.Sprintf("%d words, %d attempt(s)", res.WordCount, res.Attempts)
	if res.AssetURL != "" {
		meta += "\nimage: " + res.AssetURL
	} else {
		meta += "\nno image"
	}

	width := max(a.width-4, minBarWidth)
	return a.styles.Result.Width(width).Render(body.String()) + "\n" + a.styles.Muted.Render(meta)
}

// viewDetails renders the cost breakdown and citations.
func (a *App) viewDetails() string {
	job := a.job
	var b strings.Builder
	b.WriteString(a.styles.Subtitle.Render("Cost") + "\n")
	b.WriteString(fmt.Sprintf("  generation  $%.4f\n", job.Costs.Generation))
	b.WriteString(fmt.Sprintf("  asset       $%.4f\n", job.Costs.Asset))
	b.WriteString(fmt.Sprintf("  total       $%.4f\n", job.TotalCost))

	if job.Result != nil && len(job.Result.Citations) > 0 {
		b.WriteString(a.styles.Subtitle.Render("Sources") + "\n")
		for i, c := range job.Result.Citations {
			b.WriteString(fmt.Sprintf("  [%d] %s (%.0f%%)\n", i+1, c.Subject, c.Relevance*100))
			if c.From != "" {
				b.WriteString(a.styles.Muted.Render("      "+c.From) + "\n")
			}
		}
	}
	return b.String()
}

// StageLabel turns a stage name into a display label,
// e.g. "generating_post" becomes "Generating post".
func StageLabel(s domain.Stage) string {
	label := strings.ReplaceAll(string(s), "_", " ")
	if label == "" {
		return ""
	}
	return strings.ToUpper(label[:1]) + label[1:]
}

// Run starts the watcher and blocks until it exits. It returns the last
// snapshot seen.
func (a *App) Run() (*domain.Job, error) {
	p := tea.NewProgram(a, tea.WithContext(a.ctx))
	if _, err := p.Run(); err != nil {
		return a.job, err
	}
	return a.job, a.err
}

// SetWidth sets the terminal width and resizes the children.
func (a *App) SetWidth(width int) {
	if width <= 0 {
		width = defaultWidth
	}
	a.width = width
	a.bar.SetWidth(width)
	a.help.Width = width
	a.progress.Width = min(max(width-10, minBarWidth), maxBarWidth)
}

// Job returns the latest snapshot, or nil if none has arrived.
func (a *App) Job() *domain.Job {
	return a.job
}

// Done reports whether a terminal snapshot has been seen.
func (a *App) Done() bool {
	return a.done
}

// Err returns the subscription error, if any.
func (a *App) Err() error {
	return a.err
}

// ShowDetails reports whether the details panel is open.
func (a *App) ShowDetails() bool {
	return a.showDetails
}

// Width returns the current width.
func (a *App) Width() int {
	return a.width
}
