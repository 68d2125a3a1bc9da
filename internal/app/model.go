package app

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"monitor/internal/activity"
	"monitor/internal/logging"
	"monitor/internal/session"
	"monitor/internal/store"
)

const (
	tickInterval     = 100 * time.Millisecond
	minListWidth     = 24
	maxListWidth     = 40
	minViewportWidth = 20
	minContentHeight = 6
	baselineKind     = "session"
)

type uiMode int

const (
	uiModeNormal uiMode = iota
	uiModeCompose
)

type tickMsg time.Time

// opDoneMsg signals that a background controller operation finished. The next
// tick picks up whatever state it produced.
type opDoneMsg struct{}

type Model struct {
	controller *session.Controller
	tracker    *activity.Tracker
	prompt     session.PromptOptions
	logger     logging.Logger

	viewport viewport.Model
	input    textinput.Model
	loader   spinner.Model

	mode    uiMode
	cursor  int
	width   int
	height  int
	follow  bool
	content string
}

func NewModel(controller *session.Controller, tracker *activity.Tracker, prompt session.PromptOptions, logger logging.Logger) Model {
	if logger == nil {
		logger = logging.Nop()
	}
	vp := viewport.New(minViewportWidth, minContentHeight-1)
	vp.SetContent("No session selected.")

	input := textinput.New()
	input.Placeholder = "Send a message…"
	input.CharLimit = 0

	loader := spinner.New()
	loader.Spinner = spinner.Dot

	return Model{
		controller: controller,
		tracker:    tracker,
		prompt:     prompt,
		logger:     logger,
		viewport:   vp,
		input:      input,
		loader:     loader,
		follow:     true,
	}
}

// Run starts the program and blocks until it exits.
func Run(model Model) error {
	p := tea.NewProgram(&model, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.refreshCmd(), m.loader.Tick, tickCmd())
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case tickMsg:
		m.clampCursor()
		m.syncContent()
		return m, tickCmd()

	case opDoneMsg:
		m.clampCursor()
		m.syncContent()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.loader, cmd = m.loader.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if m.mode == uiModeCompose {
			return m.updateCompose(msg)
		}
		return m.updateNormal(msg)
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *Model) updateNormal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	case "down", "j":
		if m.cursor < len(m.controller.Sessions())-1 {
			m.cursor++
		}
		return m, nil
	case "enter":
		sessions := m.controller.Sessions()
		if m.cursor >= 0 && m.cursor < len(sessions) {
			return m, m.openCmd(sessions[m.cursor].ID)
		}
		return m, nil
	case "n":
		return m, m.newSessionCmd()
	case "d":
		sessions := m.controller.Sessions()
		if m.cursor >= 0 && m.cursor < len(sessions) {
			return m, m.deleteCmd(sessions[m.cursor].ID)
		}
		return m, nil
	case "r":
		return m, m.refreshCmd()
	case "c":
		return m, m.cancelCmd()
	case "i":
		if m.controller.ActiveSessionID() != "" {
			m.mode = uiModeCompose
			m.input.Focus()
			return m, textinput.Blink
		}
		return m, nil
	case "pgup", "pgdown":
		m.follow = false
	}
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *Model) updateCompose(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = uiModeNormal
		m.input.Blur()
		return m, nil
	case "enter":
		text := m.input.Value()
		m.input.SetValue("")
		m.mode = uiModeNormal
		m.input.Blur()
		if text == "" {
			return m, nil
		}
		return m, m.sendCmd(text)
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) refreshCmd() tea.Cmd {
	c := m.controller
	return func() tea.Msg {
		c.RefreshSessions(context.Background())
		return opDoneMsg{}
	}
}

// openCmd switches the view to a session. The session being left gets a fresh
// activity baseline so its row reads "no new activity" until something
// happens.
func (m *Model) openCmd(sessionID string) tea.Cmd {
	c, tracker := m.controller, m.tracker
	previous := c.ActiveSessionID()
	if previous != "" && previous != sessionID {
		m.captureBaseline(previous)
	}
	m.follow = true
	return func() tea.Msg {
		c.OpenSession(context.Background(), sessionID)
		tracker.MarkUserActivity(c.WorkspaceID(), sessionID)
		return opDoneMsg{}
	}
}

func (m *Model) newSessionCmd() tea.Cmd {
	c := m.controller
	previous := c.ActiveSessionID()
	if previous != "" {
		m.captureBaseline(previous)
	}
	m.follow = true
	return func() tea.Msg {
		c.StartSession(context.Background())
		return opDoneMsg{}
	}
}

func (m *Model) sendCmd(text string) tea.Cmd {
	c, tracker, prompt := m.controller, m.tracker, m.prompt
	sessionID := c.ActiveSessionID()
	return func() tea.Msg {
		c.SendMessage(context.Background(), text, prompt)
		if sessionID != "" {
			tracker.MarkUserActivity(c.WorkspaceID(), sessionID)
		}
		return opDoneMsg{}
	}
}

// deleteCmd removes the selected session and drops its activity baseline so
// a future session reusing the id starts clean.
func (m *Model) deleteCmd(sessionID string) tea.Cmd {
	c, tracker := m.controller, m.tracker
	key := store.BaselineKey{Kind: baselineKind, WorkspaceID: c.WorkspaceID(), SessionID: sessionID}
	return func() tea.Msg {
		if c.DeleteSession(context.Background(), sessionID) {
			tracker.Forget(key)
		}
		return opDoneMsg{}
	}
}

func (m *Model) cancelCmd() tea.Cmd {
	c := m.controller
	return func() tea.Msg {
		c.CancelCurrentOperation(context.Background())
		return opDoneMsg{}
	}
}

func (m *Model) captureBaseline(sessionID string) {
	state, ok := m.controller.SessionState(sessionID)
	if !ok {
		return
	}
	key := store.BaselineKey{Kind: baselineKind, WorkspaceID: m.controller.WorkspaceID(), SessionID: sessionID}
	m.tracker.Reopen(key, activity.Snapshot(state.Items, state.Plan))
}

func (m *Model) clampCursor() {
	n := len(m.controller.Sessions())
	if n == 0 {
		m.cursor = 0
		return
	}
	if m.cursor >= n {
		m.cursor = n - 1
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}
