package session

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"monitor/internal/logging"
	"monitor/internal/types"
)

// Backend is the set of asynchronous operations the agent process exposes for
// one workspace. Every operation may fail independently; failures are handled
// at the controller boundary and never propagate to callers.
type Backend interface {
	ListSessions(ctx context.Context) ([]types.SessionInfo, error)
	CreateSession(ctx context.Context) (types.SessionInfo, error)
	LoadSession(ctx context.Context, sessionID string) error
	DeleteSession(ctx context.Context, sessionID string) error
	Messages(ctx context.Context, sessionID string) ([]types.AgentMessage, error)
	SendMessage(ctx context.Context, sessionID, text string, opts PromptOptions) error
	Cancel(ctx context.Context, sessionID string) error
}

type PromptOptions struct {
	ProviderID string
	ModelID    string
}

// Subscription is one live event feed for a workspace. Cancel releases it.
type Subscription struct {
	Events <-chan types.Envelope
	Cancel func()
}

// Controller bridges side effects and the reducer. It owns the single event
// subscription per workspace and translates backend results into actions.
// State is mutated only under the controller's lock, one action at a time.
type Controller struct {
	mu          sync.Mutex
	state       *State
	turns       *TurnTracker
	backend     Backend
	workspaceID string
	gen         int
	cancel      func()
	logger      logging.Logger
	onChange    func(sessionIDs []string)
}

func NewController(logger logging.Logger) *Controller {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Controller{
		state:  NewState(),
		turns:  NewTurnTracker(),
		logger: logger,
	}
}

// SetOnChange registers a callback invoked after any state change, carrying
// the ids of the sessions the change touched (empty for workspace-level
// changes such as list refreshes). It must not call back into the controller
// synchronously while holding locks of its own that the caller also takes on
// the query path.
func (c *Controller) SetOnChange(fn func(sessionIDs []string)) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

func (c *Controller) notify(sessionIDs ...string) {
	c.mu.Lock()
	fn := c.onChange
	c.mu.Unlock()
	if fn != nil {
		fn(sessionIDs)
	}
}

// SetWorkspace tears down all state scoped to the previous workspace and
// attaches the controller to a new backend and event subscription. Stale
// events and in-flight results from the old workspace are dropped by a
// generation check.
func (c *Controller) SetWorkspace(workspaceID string, backend Backend, sub Subscription) {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	if c.workspaceID != "" {
		c.state.Apply(ClearWorkspace{WorkspaceID: c.workspaceID})
	}
	c.gen++
	gen := c.gen
	c.workspaceID = workspaceID
	c.backend = backend
	c.turns = NewTurnTracker()
	c.cancel = sub.Cancel
	events := sub.Events
	c.mu.Unlock()

	if events != nil {
		go func() {
			for env := range events {
				c.applyEnvelope(gen, env)
			}
		}()
	}
	c.notify()
}

func (c *Controller) applyEnvelope(gen int, env types.Envelope) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	actions := Decode(c.workspaceID, env, c.turns)
	for _, action := range actions {
		c.state.Apply(action)
	}
	c.mu.Unlock()
	if len(actions) > 0 {
		c.notify(actionSessions(actions)...)
	}
}

// actionSessions collects the distinct session ids a batch of actions
// touches, preserving first-seen order.
func actionSessions(actions []Action) []string {
	var ids []string
	seen := map[string]bool{}
	add := func(id string) {
		if id != "" && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for _, action := range actions {
		switch a := action.(type) {
		case EnsureSession:
			add(a.SessionID)
		case RenameSession:
			add(a.SessionID)
		case RemoveSession:
			add(a.SessionID)
		case SetActiveSession:
			add(a.SessionID)
		case AppendMessageDelta:
			add(a.SessionID)
		case AppendReasoningDelta:
			add(a.SessionID)
		case UpsertToolCall:
			add(a.SessionID)
		case SetToolStatus:
			add(a.SessionID)
		case AppendToolOutput:
			add(a.SessionID)
		case AppendToolChange:
			add(a.SessionID)
		case SetSessionPlan:
			add(a.SessionID)
		case ClearSessionPlan:
			add(a.SessionID)
		case SetProcessing:
			add(a.SessionID)
		case SetApprovalPending:
			add(a.SessionID)
		case TouchSession:
			add(a.SessionID)
		case CompleteTurn:
			add(a.SessionID)
		case ReplaceItems:
			add(a.SessionID)
		}
	}
	return ids
}

// StartSession creates a new session, registers it and makes it active. On
// failure it logs and returns "".
func (c *Controller) StartSession(ctx context.Context) string {
	c.mu.Lock()
	backend, workspaceID, gen := c.backend, c.workspaceID, c.gen
	c.mu.Unlock()
	if backend == nil {
		return ""
	}
	info, err := backend.CreateSession(ctx)
	if err != nil {
		c.logger.Error("session_create_error", logging.F("workspace", workspaceID), logging.F("error", err))
		return ""
	}
	title := info.Title
	if title == "" {
		title = defaultCreatedTitle
	}
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return ""
	}
	c.state.Apply(EnsureSession{WorkspaceID: workspaceID, SessionID: info.ID, Title: title})
	c.state.Apply(SetActiveSession{WorkspaceID: workspaceID, SessionID: info.ID})
	c.mu.Unlock()
	c.notify(info.ID)
	return info.ID
}

// SwitchSession moves the active-session pointer. Switching to a real session
// clears its unread flag.
func (c *Controller) SwitchSession(sessionID string) {
	c.mu.Lock()
	c.state.Apply(SetActiveSession{WorkspaceID: c.workspaceID, SessionID: sessionID})
	c.mu.Unlock()
	c.notify(sessionID)
}

// OpenSession switches to a session and replays its stored history into the
// item sequence. History failures degrade to an empty timeline.
func (c *Controller) OpenSession(ctx context.Context, sessionID string) {
	c.SwitchSession(sessionID)
	c.mu.Lock()
	backend, workspaceID, gen := c.backend, c.workspaceID, c.gen
	c.mu.Unlock()
	if backend == nil {
		return
	}
	if err := backend.LoadSession(ctx, sessionID); err != nil {
		c.logger.Warn("session_load_error", logging.F("session", sessionID), logging.F("error", err))
	}
	msgs, err := backend.Messages(ctx, sessionID)
	if err != nil {
		c.logger.Warn("session_history_error", logging.F("session", sessionID), logging.F("error", err))
		return
	}
	items := PartsToItems(msgs)
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.state.Apply(ReplaceItems{WorkspaceID: workspaceID, SessionID: sessionID, Items: items})
	c.mu.Unlock()
	c.notify(sessionID)
}

// SendMessage optimistically appends the user item, marks the session
// processing, clears its plan, pre-creates the assistant item that will
// receive streamed deltas, then invokes the backend. On failure processing is
// reset but the optimistic items stay in place.
func (c *Controller) SendMessage(ctx context.Context, text string, opts PromptOptions) {
	c.mu.Lock()
	sessionID := c.state.ActiveSession(c.workspaceID)
	backend, workspaceID, gen := c.backend, c.workspaceID, c.gen
	if sessionID == "" || backend == nil {
		c.mu.Unlock()
		return
	}
	userID := "user-" + uuid.NewString()
	c.state.Apply(AppendMessageDelta{
		WorkspaceID: workspaceID,
		SessionID:   sessionID,
		ItemID:      userID,
		Role:        types.MessageRoleUser,
		Delta:       text,
	})
	c.state.Apply(SetProcessing{WorkspaceID: workspaceID, SessionID: sessionID, Processing: true})
	c.state.Apply(ClearSessionPlan{WorkspaceID: workspaceID, SessionID: sessionID})
	c.turns.ResetReasoning(sessionID)
	assistantID := "msg-" + sessionID + "-" + uuid.NewString()
	c.turns.SetAssistantItem(sessionID, assistantID)
	c.state.Apply(AppendMessageDelta{
		WorkspaceID: workspaceID,
		SessionID:   sessionID,
		ItemID:      assistantID,
		Role:        types.MessageRoleAssistant,
	})
	c.mu.Unlock()
	c.notify(sessionID)

	if err := backend.SendMessage(ctx, sessionID, text, opts); err != nil {
		c.logger.Error("session_send_error", logging.F("session", sessionID), logging.F("error", err))
		c.mu.Lock()
		if gen == c.gen {
			c.state.Apply(SetProcessing{WorkspaceID: workspaceID, SessionID: sessionID, Processing: false})
		}
		c.mu.Unlock()
		c.notify(sessionID)
	}
}

// CancelCurrentOperation asks the backend to cancel the active session's
// turn. On failure the processing state is left untouched.
func (c *Controller) CancelCurrentOperation(ctx context.Context) {
	c.mu.Lock()
	sessionID := c.state.ActiveSession(c.workspaceID)
	backend, workspaceID, gen := c.backend, c.workspaceID, c.gen
	c.mu.Unlock()
	if sessionID == "" || backend == nil {
		return
	}
	if err := backend.Cancel(ctx, sessionID); err != nil {
		c.logger.Error("session_cancel_error", logging.F("session", sessionID), logging.F("error", err))
		return
	}
	c.mu.Lock()
	if gen == c.gen {
		c.state.Apply(SetProcessing{WorkspaceID: workspaceID, SessionID: sessionID, Processing: false})
	}
	c.mu.Unlock()
	c.notify(sessionID)
}

// DeleteSession removes a session from the backend, then drops its local
// state and summary entry. On failure the session is left in place and the
// error is logged. Reports whether the deletion went through.
func (c *Controller) DeleteSession(ctx context.Context, sessionID string) bool {
	c.mu.Lock()
	backend, workspaceID, gen := c.backend, c.workspaceID, c.gen
	c.mu.Unlock()
	if sessionID == "" || backend == nil {
		return false
	}
	if err := backend.DeleteSession(ctx, sessionID); err != nil {
		c.logger.Error("session_delete_error", logging.F("session", sessionID), logging.F("error", err))
		return false
	}
	c.mu.Lock()
	if gen == c.gen {
		c.state.Apply(RemoveSession{WorkspaceID: workspaceID, SessionID: sessionID})
		c.turns.EndTurn(sessionID)
	}
	c.mu.Unlock()
	c.notify(sessionID)
	return true
}

// RefreshSessions replaces the workspace's session summary list from the
// backend. The loading flag is cleared whether the fetch succeeds or not.
func (c *Controller) RefreshSessions(ctx context.Context) {
	c.mu.Lock()
	backend, workspaceID, gen := c.backend, c.workspaceID, c.gen
	if backend == nil {
		c.mu.Unlock()
		return
	}
	c.state.Apply(SetLoading{WorkspaceID: workspaceID, Loading: true})
	c.mu.Unlock()
	c.notify()

	list, err := backend.ListSessions(ctx)
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	if err == nil {
		summaries := make([]types.SessionSummary, 0, len(list))
		for _, info := range list {
			title := info.Title
			if title == "" {
				title = defaultUpdatedTitle
			}
			summaries = append(summaries, types.SessionSummary{ID: info.ID, Title: title})
		}
		c.state.Apply(SetSessionList{WorkspaceID: workspaceID, Sessions: summaries})
	}
	c.state.Apply(SetLoading{WorkspaceID: workspaceID, Loading: false})
	c.mu.Unlock()
	c.notify()
	if err != nil {
		c.logger.Error("session_list_error", logging.F("workspace", workspaceID), logging.F("error", err))
	}
}

// WorkspaceID returns the currently attached workspace id.
func (c *Controller) WorkspaceID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.workspaceID
}

// ActiveSessionID returns the active session id, "" when none.
func (c *Controller) ActiveSessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.ActiveSession(c.workspaceID)
}

// Sessions returns the workspace's session summary list.
func (c *Controller) Sessions() []types.SessionSummary {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Sessions(c.workspaceID)
}

// Items returns a copy of one session's item sequence.
func (c *Controller) Items(sessionID string) []types.ConversationItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Items(c.workspaceID, sessionID)
}

// SessionState returns a copy of one session's full state.
func (c *Controller) SessionState(sessionID string) (types.SessionState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Session(c.workspaceID, sessionID)
}

// Loading reports whether the session list is being refreshed.
func (c *Controller) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Loading(c.workspaceID)
}
