package app

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"

	"monitor/internal/activity"
	"monitor/internal/store"
	"monitor/internal/types"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true)
	selectedStyle = lipgloss.NewStyle().Reverse(true)
	dimStyle      = lipgloss.NewStyle().Faint(true)
	unreadStyle   = lipgloss.NewStyle().Bold(true)
	statusStyle   = lipgloss.NewStyle().Faint(true)
)

func (m *Model) resize() {
	listWidth := m.listWidth()
	contentWidth := m.width - listWidth - 1
	if contentWidth < minViewportWidth {
		contentWidth = minViewportWidth
	}
	contentHeight := m.height - 2
	if contentHeight < minContentHeight-1 {
		contentHeight = minContentHeight - 1
	}
	m.viewport.Width = contentWidth
	m.viewport.Height = contentHeight
	m.syncContent()
}

func (m *Model) listWidth() int {
	w := m.width / 4
	if w < minListWidth {
		w = minListWidth
	}
	if w > maxListWidth {
		w = maxListWidth
	}
	return w
}

// syncContent re-renders the active session's transcript into the viewport.
// Rendering from a fresh snapshot every tick keeps the view trivially
// consistent with the state.
func (m *Model) syncContent() {
	sessionID := m.controller.ActiveSessionID()
	if sessionID == "" {
		m.setContent("No session selected.\n\nPress n to start one, r to refresh the list.")
		return
	}
	items := m.controller.Items(sessionID)
	if len(items) == 0 {
		m.setContent("Empty session.")
		return
	}
	lines := renderItems(items, m.viewport.Width)
	m.setContent(strings.Join(lines, "\n"))
}

func (m *Model) setContent(content string) {
	if content == m.content {
		return
	}
	m.content = content
	m.viewport.SetContent(content)
	if m.follow {
		m.viewport.GotoBottom()
	}
}

func (m *Model) View() string {
	if m.width == 0 {
		return "Loading…"
	}
	sidebar := m.renderSidebar()
	body := lipgloss.JoinHorizontal(lipgloss.Top, sidebar, " ", m.viewport.View())
	return lipgloss.JoinVertical(lipgloss.Left, body, m.renderFooter())
}

func (m *Model) renderSidebar() string {
	width := m.listWidth()
	var b strings.Builder
	header := "Sessions"
	if m.controller.Loading() {
		header = "Sessions " + m.loader.View()
	}
	b.WriteString(titleStyle.Render(xansi.Truncate(header, width, "…")))
	b.WriteString("\n")

	sessions := m.controller.Sessions()
	if len(sessions) == 0 {
		b.WriteString(dimStyle.Render("(none)"))
	}
	activeID := m.controller.ActiveSessionID()
	for i, summary := range sessions {
		line, unread := m.sessionRow(summary, summary.ID == activeID, width)
		style := lipgloss.NewStyle()
		if i == m.cursor {
			style = selectedStyle
		} else if unread {
			style = unreadStyle
		}
		b.WriteString(style.Render(line))
		b.WriteString("\n")
	}
	return lipgloss.NewStyle().Width(width).Height(m.viewport.Height).Render(b.String())
}

// sessionRow renders one sidebar entry: a marker, the title, and the
// activity summary for sessions the user is not currently looking at.
func (m *Model) sessionRow(summary types.SessionSummary, active bool, width int) (string, bool) {
	marker := "  "
	if active {
		marker = "> "
	}
	line := marker + summary.Title

	var unread bool
	if state, ok := m.controller.SessionState(summary.ID); ok {
		unread = state.HasUnread
		if unread {
			marker = "● "
			line = marker + summary.Title
		}
		if !active {
			if tldr, _ := m.summarize(summary.ID, state); tldr != "" {
				line += dimStyle.Render(" — " + tldr)
			}
		}
	}
	return xansi.Truncate(line, width, "…"), unread
}

func (m *Model) summarize(sessionID string, state types.SessionState) (string, activity.Status) {
	current := activity.Snapshot(state.Items, state.Plan)
	key := store.BaselineKey{Kind: baselineKind, WorkspaceID: m.controller.WorkspaceID(), SessionID: sessionID}
	baseline := m.tracker.Baseline(key, current)
	return activity.Summarize(activity.Inputs{
		Current:         current,
		Baseline:        &baseline,
		HasItems:        len(state.Items) > 0,
		Processing:      state.IsProcessing,
		ApprovalPending: state.HasPendingApproval,
	})
}

func (m *Model) renderFooter() string {
	if m.mode == uiModeCompose {
		return m.input.View()
	}
	parts := []string{"j/k move", "enter open", "i message", "n new", "d delete", "c cancel", "r refresh", "q quit"}
	line := strings.Join(parts, "  ")

	if sessionID := m.controller.ActiveSessionID(); sessionID != "" {
		if state, ok := m.controller.SessionState(sessionID); ok {
			switch {
			case state.HasPendingApproval:
				line = m.loader.View() + " Waiting for approval  " + line
			case state.IsProcessing:
				line = m.loader.View() + " Working…  " + line
			}
		}
	}
	return statusStyle.Render(xansi.Truncate(line, m.width, "…"))
}
