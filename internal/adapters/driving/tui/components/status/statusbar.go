// Package status provides the watcher's status bar.
package status

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/postsmith/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/postsmith/internal/adapters/driving/tui/styles"
)

// State represents the watcher state for display.
type State string

const (
	StateConnecting   State = "connecting"
	StateWatching     State = "watching"
	StateCompleted    State = "completed"
	StateFailed       State = "failed"
	StateDisconnected State = "disconnected"
)

// Bar displays the watch state, running cost and keybinding hints.
type Bar struct {
	styles  *styles.Styles
	keymap  *keymap.KeyMap
	state   State
	message string
	cost    float64
	width   int
}

// NewBar creates a new status bar component.
func NewBar(s *styles.Styles, km *keymap.KeyMap) *Bar {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	return &Bar{
		styles: s,
		keymap: km,
		state:  StateConnecting,
		width:  80,
	}
}

// Init initialises the status bar.
func (s *Bar) Init() tea.Cmd {
	return nil
}

// Update handles status bar messages.
func (s *Bar) Update(msg tea.Msg) (*Bar, tea.Cmd) {
	// Bar is passive, updated via Set methods
	return s, nil
}

// View renders the status bar.
func (s *Bar) View() string {
	left := s.renderLeft()
	right := s.renderRight()

	padding := s.width - lipgloss.Width(left) - lipgloss.Width(right)
	if padding < 1 {
		padding = 1
	}

	return s.styles.StatusBar.Width(s.width).Render(
		left + strings.Repeat(" ", padding) + right,
	)
}

func (s *Bar) renderLeft() string {
	cost := fmt.Sprintf("$%.4f", s.cost)
	switch s.state {
	case StateWatching:
		return s.styles.Normal.Render("Watching") + "  " + s.styles.Muted.Render(cost)
	case StateCompleted:
		return s.styles.Success.Render("Completed") + "  " + s.styles.Muted.Render(cost)
	case StateFailed:
		if s.message != "" {
			return s.styles.Error.Render(fmt.Sprintf("Failed: %s", s.message))
		}
		return s.styles.Error.Render("Failed")
	case StateDisconnected:
		if s.message != "" {
			return s.styles.Warning.Render(fmt.Sprintf("Disconnected: %s", s.message))
		}
		return s.styles.Warning.Render("Disconnected")
	case StateConnecting:
		return s.styles.Muted.Render("Connecting...")
	}
	return s.styles.Muted.Render("Connecting...")
}

func (s *Bar) renderRight() string {
	bindings := s.keymap.ShortHelp()

	hints := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		hints = append(hints, fmt.Sprintf("%s: %s", h.Key, h.Desc))
	}
	return s.styles.Muted.Render(strings.Join(hints, " | "))
}

// SetState sets the current state.
func (s *Bar) SetState(state State) {
	s.state = state
}

// State returns the current state.
func (s *Bar) State() State {
	return s.state
}

// SetMessage sets the failure or disconnect detail.
func (s *Bar) SetMessage(message string) {
	s.message = message
}

// Message returns the current message.
func (s *Bar) Message() string {
	return s.message
}

// SetCost sets the job's running cost.
func (s *Bar) SetCost(cost float64) {
	s.cost = cost
}

// Cost returns the displayed cost.
func (s *Bar) Cost() float64 {
	return s.cost
}

// SetWidth sets the status bar width.
func (s *Bar) SetWidth(width int) {
	s.width = width
}

// Width returns the current width.
func (s *Bar) Width() int {
	return s.width
}
