// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/deskchat-tui/internal/api"
	"github.com/jeranaias/deskchat-tui/internal/config"
	"github.com/jeranaias/deskchat-tui/internal/state"
	"github.com/jeranaias/deskchat-tui/internal/stream"
	"github.com/jeranaias/deskchat-tui/internal/transport"
	"github.com/jeranaias/deskchat-tui/internal/ui/components"
	"github.com/jeranaias/deskchat-tui/internal/ui/styles"
)

// =============================================================================
// CHAT MODEL
// =============================================================================

// Deps carries the wired collaborators into the chat model. The
// transport and API clients may be nil in offline subcommands and
// tests; affected operations surface an error banner instead.
type Deps struct {
	Dispatcher *state.Dispatcher
	Assembler  *stream.Assembler
	Transport  *transport.Client
	API        *api.Client
	Config     *config.Config
	Theme      *styles.Theme
}

// Model is the Bubble Tea model for the chat view.
type Model struct {
	dispatcher *state.Dispatcher
	assembler  *stream.Assembler
	transport  *transport.Client
	api        *api.Client
	cfg        *config.Config

	theme    *styles.Theme
	keys     KeyMap
	viewport viewport.Model
	input    textinput.Model
	renderer *components.MessageRenderer
	status   *components.StatusBar
	thinking components.ThinkingIndicator

	streamBuf *StreamingBuffer
	// ticking is true while the stream tick loop is running. It keeps
	// at most one tick chain alive regardless of how many chunks arrive.
	ticking bool

	// remoteSessions caches the last /sessions listing so /switch can
	// address conversations by their displayed number.
	remoteSessions []api.RemoteSession

	width  int
	height int
	ready  bool

	showHelp bool
	quitting bool
}

// New creates the chat model.
func New(deps Deps) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Describe your issue or ask a question..."
	ti.CharLimit = 4096
	ti.Focus()

	theme := deps.Theme
	if theme == nil {
		theme = styles.NewTheme("auto")
	}

	renderer := components.NewMessageRenderer(theme, 80)
	if deps.Config != nil {
		renderer.ShowTimestamps = deps.Config.UI.ShowTimestamps
	}

	return Model{
		dispatcher: deps.Dispatcher,
		assembler:  deps.Assembler,
		transport:  deps.Transport,
		api:        deps.API,
		cfg:        deps.Config,
		theme:      theme,
		keys:       DefaultKeyMap(),
		viewport:   viewport.New(80, 20),
		input:      ti,
		renderer:   renderer,
		status:     components.NewStatusBar(theme),
		thinking:   components.NewThinkingIndicator(),
		streamBuf:  NewStreamingBuffer(),
	}
}

// Init starts the cursor blink and, when a backend is configured,
// checks the restored session for actions still awaiting confirmation.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink}
	if m.api != nil {
		if sess := m.dispatcher.ActiveSession(); sess != nil {
			cmds = append(cmds, m.pendingActionsCmd(sess.ID))
		}
	}
	return tea.Batch(cmds...)
}

// State returns the current reducer state snapshot.
func (m Model) State() state.State {
	return m.dispatcher.State()
}
