package app

import (
	"strings"
	"testing"

	"monitor/internal/activity"
	"monitor/internal/session"
)

func newTestModel() *Model {
	m := NewModel(session.NewController(nil), activity.NewTracker(nil, nil, nil), session.PromptOptions{}, nil)
	m.width = 120
	m.height = 40
	return &m
}

func TestFooterShowsKeyHints(t *testing.T) {
	footer := newTestModel().renderFooter()
	for _, hint := range []string{"enter open", "i message", "n new", "d delete", "c cancel", "q quit"} {
		if !strings.Contains(footer, hint) {
			t.Fatalf("footer missing %q: %q", hint, footer)
		}
	}
}

func TestFooterComposeModeShowsInput(t *testing.T) {
	m := newTestModel()
	m.mode = uiModeCompose
	footer := m.renderFooter()
	if strings.Contains(footer, "q quit") {
		t.Fatalf("compose mode should replace key hints with the input, got %q", footer)
	}
}
