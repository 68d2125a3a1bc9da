package session

import (
	"github.com/google/uuid"
)

// TurnTracker carries the turn-scoped item ids that span multiple stream
// events: the assistant message and reasoning block currently receiving
// deltas, per session. It is owned by the controller, scoped to one workspace
// subscription, and reset when a turn completes.
type TurnTracker struct {
	assistant map[string]string
	reasoning map[string]string
}

func NewTurnTracker() *TurnTracker {
	return &TurnTracker{
		assistant: map[string]string{},
		reasoning: map[string]string{},
	}
}

// AssistantItem returns the active assistant item id for a session, minting
// one when the turn has not produced text yet.
func (t *TurnTracker) AssistantItem(sessionID string) string {
	if t == nil {
		return ""
	}
	id := t.assistant[sessionID]
	if id == "" {
		id = "msg-" + sessionID + "-" + uuid.NewString()
		t.assistant[sessionID] = id
	}
	return id
}

// SetAssistantItem registers a pre-created assistant item so streamed deltas
// route into it.
func (t *TurnTracker) SetAssistantItem(sessionID, itemID string) {
	if t == nil {
		return
	}
	t.assistant[sessionID] = itemID
}

// ReasoningItem returns the active reasoning item id for a session, minting
// one the first time a turn's reasoning begins.
func (t *TurnTracker) ReasoningItem(sessionID string) string {
	if t == nil {
		return ""
	}
	id := t.reasoning[sessionID]
	if id == "" {
		id = "reasoning-" + sessionID + "-" + uuid.NewString()
		t.reasoning[sessionID] = id
	}
	return id
}

// ResetReasoning drops the session's reasoning tracker so the next thought
// chunk starts a fresh item.
func (t *TurnTracker) ResetReasoning(sessionID string) {
	if t == nil {
		return
	}
	delete(t.reasoning, sessionID)
}

// EndTurn clears all turn-scoped trackers for a session.
func (t *TurnTracker) EndTurn(sessionID string) {
	if t == nil {
		return
	}
	delete(t.assistant, sessionID)
	delete(t.reasoning, sessionID)
}

// Reset clears every tracker, used on workspace teardown.
func (t *TurnTracker) Reset() {
	if t == nil {
		return
	}
	t.assistant = map[string]string{}
	t.reasoning = map[string]string{}
}
