package types

type ItemKind string

const (
	ItemKindMessage   ItemKind = "message"
	ItemKindReasoning ItemKind = "reasoning"
	ItemKindTool      ItemKind = "tool"
	ItemKindDiff      ItemKind = "diff"
	ItemKindReview    ItemKind = "review"
)

type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
)

type ReviewState string

const (
	ReviewStateStarted   ReviewState = "started"
	ReviewStateCompleted ReviewState = "completed"
)

// ConversationItem is one visible unit of a session timeline. Kind selects
// which variant fields are meaningful. ID is unique within a session and
// stable across updates to the same logical unit (one assistant turn, one
// tool call), which is how streaming deltas are routed.
type ConversationItem struct {
	ID   string   `json:"id"`
	Kind ItemKind `json:"kind"`

	// message
	Role MessageRole `json:"role,omitempty"`
	Text string      `json:"text,omitempty"`

	// reasoning
	Summary string `json:"summary,omitempty"`
	Content string `json:"content,omitempty"`

	// tool
	ToolType string       `json:"toolType,omitempty"`
	Title    string       `json:"title,omitempty"`
	Detail   string       `json:"detail,omitempty"`
	Status   string       `json:"status,omitempty"`
	Output   string       `json:"output,omitempty"`
	Changes  []FileChange `json:"changes,omitempty"`

	// diff
	Diff string `json:"diff,omitempty"`

	// review
	ReviewState ReviewState `json:"reviewState,omitempty"`
}

// FileChange is one synthesized per-file diff attached to a tool call.
type FileChange struct {
	Path string `json:"path"`
	Diff string `json:"diff"`
}
