package types

type StepStatus string

const (
	StepStatusPending    StepStatus = "pending"
	StepStatusInProgress StepStatus = "inProgress"
	StepStatusCompleted  StepStatus = "completed"
)

type PlanStep struct {
	Step   string     `json:"step"`
	Status StepStatus `json:"status"`
}

// TurnPlan is the agent's current plan for one turn. It is replaced wholesale
// on every plan update, never merged.
type TurnPlan struct {
	TurnID      string     `json:"turnId,omitempty"`
	Explanation string     `json:"explanation,omitempty"`
	Steps       []PlanStep `json:"steps"`
}

// SessionState is the conversational state of one session within a workspace.
type SessionState struct {
	Items              []ConversationItem `json:"items"`
	Plan               *TurnPlan          `json:"plan,omitempty"`
	IsProcessing       bool               `json:"isProcessing"`
	HasUnread          bool               `json:"hasUnread"`
	HasPendingApproval bool               `json:"hasPendingApproval"`
}

// SessionSummary is one row of the per-workspace session list.
type SessionSummary struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// SessionInfo is the backend's description of a session, as returned by the
// list/create operations.
type SessionInfo struct {
	ID        string `json:"id"`
	Title     string `json:"title,omitempty"`
	CreatedAt *int64 `json:"createdAt,omitempty"`
	UpdatedAt *int64 `json:"updatedAt,omitempty"`
}

// MessagePart is one loosely-typed fragment of a stored message, as returned
// by the backend's message listing.
type MessagePart struct {
	Type     string   `json:"type"`
	Content  string   `json:"content,omitempty"`
	ToolName string   `json:"tool_name,omitempty"`
	Status   string   `json:"status,omitempty"`
	Files    []string `json:"files,omitempty"`
}

// AgentMessage is one stored message of a session's history.
type AgentMessage struct {
	ID        string        `json:"id"`
	SessionID string        `json:"sessionId"`
	Role      string        `json:"role"`
	Parts     []MessagePart `json:"parts,omitempty"`
	CreatedAt *int64        `json:"createdAt,omitempty"`
}
