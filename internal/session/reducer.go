package session

import "monitor/internal/types"

// MaxSessionItems caps every session's item sequence. Eviction drops oldest
// items first and runs before insertion, so a newly appended item is never
// evicted by its own action.
const MaxSessionItems = 200

type workspaceState struct {
	sessions map[string]*types.SessionState
	list     []types.SessionSummary
	active   string
	loading  bool
}

// State is the single cross-workspace state tree. It has exactly one writer:
// Apply, invoked sequentially per dispatched action. Each transition either
// applies fully or not at all.
type State struct {
	workspaces map[string]*workspaceState
}

func NewState() *State {
	return &State{workspaces: map[string]*workspaceState{}}
}

// Apply folds one action into the state. Unknown session/workspace ids are
// created on demand; actions that cannot apply cleanly are no-ops.
func (s *State) Apply(action Action) {
	if s == nil || action == nil {
		return
	}
	switch a := action.(type) {
	case EnsureSession:
		ws := s.ensureWorkspace(a.WorkspaceID)
		for _, summary := range ws.list {
			if summary.ID == a.SessionID {
				return
			}
		}
		ws.list = append(ws.list, types.SessionSummary{ID: a.SessionID, Title: a.Title})
	case RenameSession:
		ws := s.ensureWorkspace(a.WorkspaceID)
		for i := range ws.list {
			if ws.list[i].ID == a.SessionID {
				ws.list[i].Title = a.Title
				return
			}
		}
		ws.list = append(ws.list, types.SessionSummary{ID: a.SessionID, Title: a.Title})
	case RemoveSession:
		ws := s.workspaces[a.WorkspaceID]
		if ws == nil {
			return
		}
		delete(ws.sessions, a.SessionID)
		for i := range ws.list {
			if ws.list[i].ID == a.SessionID {
				ws.list = append(ws.list[:i], ws.list[i+1:]...)
				break
			}
		}
		if ws.active == a.SessionID {
			ws.active = ""
		}
	case SetSessionList:
		ws := s.ensureWorkspace(a.WorkspaceID)
		ws.list = append([]types.SessionSummary(nil), a.Sessions...)
	case SetLoading:
		s.ensureWorkspace(a.WorkspaceID).loading = a.Loading
	case SetActiveSession:
		ws := s.ensureWorkspace(a.WorkspaceID)
		ws.active = a.SessionID
		if a.SessionID != "" {
			ws.ensureSession(a.SessionID).HasUnread = false
		}
	case ClearWorkspace:
		delete(s.workspaces, a.WorkspaceID)
	case AppendMessageDelta:
		ws := s.ensureWorkspace(a.WorkspaceID)
		st := ws.ensureSession(a.SessionID)
		item := upsertItem(st, a.ItemID, types.ItemKindMessage)
		if item == nil {
			return
		}
		if item.Role == "" {
			item.Role = a.Role
		}
		item.Text += a.Delta
		ws.markUnread(a.SessionID)
	case AppendReasoningDelta:
		ws := s.ensureWorkspace(a.WorkspaceID)
		st := ws.ensureSession(a.SessionID)
		item := upsertItem(st, a.ItemID, types.ItemKindReasoning)
		if item == nil {
			return
		}
		if item.Summary == "" && a.Summary != "" {
			item.Summary = a.Summary
		}
		item.Content += a.Delta
		ws.markUnread(a.SessionID)
	case UpsertToolCall:
		ws := s.ensureWorkspace(a.WorkspaceID)
		st := ws.ensureSession(a.SessionID)
		item := upsertItem(st, a.ItemID, types.ItemKindTool)
		if item == nil {
			return
		}
		if item.ToolType == "" {
			item.ToolType = a.ToolType
		}
		if item.Title == "" {
			item.Title = a.Title
		}
		item.Detail += a.DetailDelta
		if a.Status != "" {
			item.Status = a.Status
		}
		ws.markUnread(a.SessionID)
	case SetToolStatus:
		item := s.findItem(a.WorkspaceID, a.SessionID, a.ItemID, types.ItemKindTool)
		if item == nil || a.Status == "" {
			return
		}
		item.Status = a.Status
	case AppendToolOutput:
		ws := s.ensureWorkspace(a.WorkspaceID)
		st := ws.ensureSession(a.SessionID)
		item := upsertItem(st, a.ItemID, types.ItemKindTool)
		if item == nil {
			return
		}
		item.Output += a.Delta
		ws.markUnread(a.SessionID)
	case AppendToolChange:
		ws := s.ensureWorkspace(a.WorkspaceID)
		st := ws.ensureSession(a.SessionID)
		item := upsertItem(st, a.ItemID, types.ItemKindTool)
		if item == nil {
			return
		}
		item.Changes = append(item.Changes, a.Change)
		ws.markUnread(a.SessionID)
	case SetSessionPlan:
		st := s.ensureWorkspace(a.WorkspaceID).ensureSession(a.SessionID)
		plan := a.Plan
		plan.Steps = append([]types.PlanStep(nil), a.Plan.Steps...)
		st.Plan = &plan
	case ClearSessionPlan:
		st := s.ensureWorkspace(a.WorkspaceID).ensureSession(a.SessionID)
		st.Plan = nil
	case SetProcessing:
		st := s.ensureWorkspace(a.WorkspaceID).ensureSession(a.SessionID)
		st.IsProcessing = a.Processing
	case SetApprovalPending:
		st := s.ensureWorkspace(a.WorkspaceID).ensureSession(a.SessionID)
		st.HasPendingApproval = a.Pending
	case TouchSession:
		ws := s.ensureWorkspace(a.WorkspaceID)
		ws.ensureSession(a.SessionID)
		ws.markUnread(a.SessionID)
	case CompleteTurn:
		st := s.ensureWorkspace(a.WorkspaceID).ensureSession(a.SessionID)
		st.IsProcessing = false
		st.HasPendingApproval = false
	case ReplaceItems:
		st := s.ensureWorkspace(a.WorkspaceID).ensureSession(a.SessionID)
		items := append([]types.ConversationItem(nil), a.Items...)
		if len(items) > MaxSessionItems {
			items = items[len(items)-MaxSessionItems:]
		}
		st.Items = items
	}
}

func (s *State) ensureWorkspace(id string) *workspaceState {
	ws := s.workspaces[id]
	if ws == nil {
		ws = &workspaceState{sessions: map[string]*types.SessionState{}}
		s.workspaces[id] = ws
	}
	return ws
}

func (w *workspaceState) ensureSession(id string) *types.SessionState {
	st := w.sessions[id]
	if st == nil {
		st = &types.SessionState{}
		w.sessions[id] = st
	}
	return st
}

func (w *workspaceState) markUnread(sessionID string) {
	if w.active == sessionID {
		return
	}
	if st := w.sessions[sessionID]; st != nil {
		st.HasUnread = true
	}
}

// upsertItem routes an append/attach action to the item with the given id,
// synthesizing a minimal item when none exists. An existing item of a
// different kind makes the action a no-op, protecting against id collisions
// across kinds.
func upsertItem(st *types.SessionState, id string, kind types.ItemKind) *types.ConversationItem {
	for i := range st.Items {
		if st.Items[i].ID == id {
			if st.Items[i].Kind != kind {
				return nil
			}
			return &st.Items[i]
		}
	}
	for len(st.Items) >= MaxSessionItems {
		st.Items = st.Items[1:]
	}
	st.Items = append(st.Items, types.ConversationItem{ID: id, Kind: kind})
	return &st.Items[len(st.Items)-1]
}

func (s *State) findItem(workspaceID, sessionID, itemID string, kind types.ItemKind) *types.ConversationItem {
	ws := s.workspaces[workspaceID]
	if ws == nil {
		return nil
	}
	st := ws.sessions[sessionID]
	if st == nil {
		return nil
	}
	for i := range st.Items {
		if st.Items[i].ID == itemID {
			if st.Items[i].Kind != kind {
				return nil
			}
			return &st.Items[i]
		}
	}
	return nil
}

// Items returns a copy of a session's item sequence.
func (s *State) Items(workspaceID, sessionID string) []types.ConversationItem {
	if s == nil {
		return nil
	}
	ws := s.workspaces[workspaceID]
	if ws == nil {
		return nil
	}
	st := ws.sessions[sessionID]
	if st == nil {
		return nil
	}
	return append([]types.ConversationItem(nil), st.Items...)
}

// Session returns a copy of one session's state.
func (s *State) Session(workspaceID, sessionID string) (types.SessionState, bool) {
	if s == nil {
		return types.SessionState{}, false
	}
	ws := s.workspaces[workspaceID]
	if ws == nil {
		return types.SessionState{}, false
	}
	st := ws.sessions[sessionID]
	if st == nil {
		return types.SessionState{}, false
	}
	out := types.SessionState{
		Items:              append([]types.ConversationItem(nil), st.Items...),
		IsProcessing:       st.IsProcessing,
		HasUnread:          st.HasUnread,
		HasPendingApproval: st.HasPendingApproval,
	}
	if st.Plan != nil {
		plan := *st.Plan
		plan.Steps = append([]types.PlanStep(nil), st.Plan.Steps...)
		out.Plan = &plan
	}
	return out, true
}

// ActiveSession returns the workspace's active session id, "" when none.
func (s *State) ActiveSession(workspaceID string) string {
	if s == nil {
		return ""
	}
	ws := s.workspaces[workspaceID]
	if ws == nil {
		return ""
	}
	return ws.active
}

// Sessions returns a copy of the workspace's session summary list.
func (s *State) Sessions(workspaceID string) []types.SessionSummary {
	if s == nil {
		return nil
	}
	ws := s.workspaces[workspaceID]
	if ws == nil {
		return nil
	}
	return append([]types.SessionSummary(nil), ws.list...)
}

// Loading reports the workspace's session-list loading flag.
func (s *State) Loading(workspaceID string) bool {
	if s == nil {
		return false
	}
	ws := s.workspaces[workspaceID]
	if ws == nil {
		return false
	}
	return ws.loading
}
