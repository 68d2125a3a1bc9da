package session

import "monitor/internal/types"

// Action is one unit of the closed set the reducer folds over. The interface
// is sealed by an unexported method so the set of kinds cannot grow outside
// this package, and the reducer's type switch covers every kind.
type Action interface {
	isAction()
}

// EnsureSession adds a session to a workspace's summary list if absent.
type EnsureSession struct {
	WorkspaceID string
	SessionID   string
	Title       string
}

// RenameSession updates a session's title in the summary list, inserting the
// entry when the session is not yet known.
type RenameSession struct {
	WorkspaceID string
	SessionID   string
	Title       string
}

// RemoveSession drops a session from the summary list and deletes its state.
type RemoveSession struct {
	WorkspaceID string
	SessionID   string
}

// SetSessionList replaces a workspace's summary list wholesale.
type SetSessionList struct {
	WorkspaceID string
	Sessions    []types.SessionSummary
}

// SetLoading toggles a workspace's session-list loading flag.
type SetLoading struct {
	WorkspaceID string
	Loading     bool
}

// SetActiveSession moves the active-session pointer. An empty SessionID
// means no session is active. Switching to a real session clears its unread
// flag.
type SetActiveSession struct {
	WorkspaceID string
	SessionID   string
}

// ClearWorkspace atomically removes every session, plan, flag and index entry
// scoped to a workspace.
type ClearWorkspace struct {
	WorkspaceID string
}

// AppendMessageDelta appends streamed text to a message item, creating it on
// first reference.
type AppendMessageDelta struct {
	WorkspaceID string
	SessionID   string
	ItemID      string
	Role        types.MessageRole
	Delta       string
}

// AppendReasoningDelta appends streamed reasoning content. Summary is set
// once, on whichever action first carries it.
type AppendReasoningDelta struct {
	WorkspaceID string
	SessionID   string
	ItemID      string
	Summary     string
	Delta       string
}

// UpsertToolCall creates or updates a tool item. DetailDelta is appended to
// the item's detail; Status is applied only when non-empty.
type UpsertToolCall struct {
	WorkspaceID string
	SessionID   string
	ItemID      string
	ToolType    string
	Title       string
	DetailDelta string
	Status      string
}

// SetToolStatus patches only the status of a tool item.
type SetToolStatus struct {
	WorkspaceID string
	SessionID   string
	ItemID      string
	Status      string
}

// AppendToolOutput appends streamed text to a tool item's output.
type AppendToolOutput struct {
	WorkspaceID string
	SessionID   string
	ItemID      string
	Delta       string
}

// AppendToolChange attaches one synthesized file diff to a tool item.
type AppendToolChange struct {
	WorkspaceID string
	SessionID   string
	ItemID      string
	Change      types.FileChange
}

// SetSessionPlan replaces the session's plan wholesale.
type SetSessionPlan struct {
	WorkspaceID string
	SessionID   string
	Plan        types.TurnPlan
}

// ClearSessionPlan removes the session's plan.
type ClearSessionPlan struct {
	WorkspaceID string
	SessionID   string
}

// SetProcessing toggles the session's processing flag.
type SetProcessing struct {
	WorkspaceID string
	SessionID   string
	Processing  bool
}

// SetApprovalPending toggles the session's pending-approval flag.
type SetApprovalPending struct {
	WorkspaceID string
	SessionID   string
	Pending     bool
}

// TouchSession marks a session's content as changed, setting the unread flag
// when the session is not the active one.
type TouchSession struct {
	WorkspaceID string
	SessionID   string
}

// CompleteTurn ends the current turn: processing and pending-approval flags
// are cleared.
type CompleteTurn struct {
	WorkspaceID string
	SessionID   string
}

// ReplaceItems swaps a session's item sequence, used when replaying stored
// history. The bounded-retention cap still applies.
type ReplaceItems struct {
	WorkspaceID string
	SessionID   string
	Items       []types.ConversationItem
}

func (EnsureSession) isAction()        {}
func (RenameSession) isAction()        {}
func (RemoveSession) isAction()        {}
func (SetSessionList) isAction()       {}
func (SetLoading) isAction()           {}
func (SetActiveSession) isAction()     {}
func (ClearWorkspace) isAction()       {}
func (AppendMessageDelta) isAction()   {}
func (AppendReasoningDelta) isAction() {}
func (UpsertToolCall) isAction()       {}
func (SetToolStatus) isAction()        {}
func (AppendToolOutput) isAction()     {}
func (AppendToolChange) isAction()     {}
func (SetSessionPlan) isAction()       {}
func (ClearSessionPlan) isAction()     {}
func (SetProcessing) isAction()        {}
func (SetApprovalPending) isAction()   {}
func (TouchSession) isAction()         {}
func (CompleteTurn) isAction()         {}
func (ReplaceItems) isAction()         {}
