package status

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/postsmith/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/postsmith/internal/adapters/driving/tui/styles"
)

func TestNewBar(t *testing.T) {
	bar := NewBar(styles.DefaultStyles(), keymap.DefaultKeyMap())

	require.NotNil(t, bar)
	assert.Equal(t, StateConnecting, bar.State())
	assert.Equal(t, "", bar.Message())
	assert.Zero(t, bar.Cost())
	assert.Equal(t, 80, bar.Width())
}

func TestNewBar_NilStyles(t *testing.T) {
	bar := NewBar(nil, nil)

	require.NotNil(t, bar)
	assert.NotNil(t, bar.styles)
	assert.NotNil(t, bar.keymap)
}

func TestStatusBar_InitAndUpdate(t *testing.T) {
	bar := NewBar(nil, nil)

	assert.Nil(t, bar.Init())

	updated, cmd := bar.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, bar, updated)
	assert.Nil(t, cmd)
}

func TestStatusBar_Setters(t *testing.T) {
	bar := NewBar(nil, nil)

	bar.SetState(StateWatching)
	bar.SetMessage("stream closed")
	bar.SetCost(0.25)
	bar.SetWidth(120)

	assert.Equal(t, StateWatching, bar.State())
	assert.Equal(t, "stream closed", bar.Message())
	assert.InDelta(t, 0.25, bar.Cost(), 1e-9)
	assert.Equal(t, 120, bar.Width())
}

func TestStatusBar_View(t *testing.T) {
	tests := []struct {
		name    string
		state   State
		message string
		want    []string
	}{
		{"connecting", StateConnecting, "", []string{"Connecting..."}},
		{"watching shows cost", StateWatching, "", []string{"Watching", "$0.0123"}},
		{"completed", StateCompleted, "", []string{"Completed", "$0.0123"}},
		{"failed", StateFailed, "", []string{"Failed"}},
		{"failed with message", StateFailed, "timeout", []string{"Failed: timeout"}},
		{"disconnected", StateDisconnected, "gone", []string{"Disconnected: gone"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bar := NewBar(nil, nil)
			bar.SetState(tt.state)
			bar.SetMessage(tt.message)
			bar.SetCost(0.0123)

			view := bar.View()

			for _, w := range tt.want {
				assert.Contains(t, view, w)
			}
		})
	}
}

func TestStatusBar_View_ShowsKeybindings(t *testing.T) {
	bar := NewBar(nil, nil)

	view := bar.View()

	assert.Contains(t, view, "quit")
	assert.Contains(t, view, "details")
}

func TestState_Constants(t *testing.T) {
	assert.Equal(t, State("connecting"), StateConnecting)
	assert.Equal(t, State("watching"), StateWatching)
	assert.Equal(t, State("completed"), StateCompleted)
	assert.Equal(t, State("failed"), StateFailed)
	assert.Equal(t, State("disconnected"), StateDisconnected)
}
