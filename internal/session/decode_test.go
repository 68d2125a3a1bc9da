package session

import (
	"encoding/json"
	"strings"
	"testing"
	"unicode/utf8"

	"monitor/internal/types"
)

func envelope(t *testing.T, workspaceID, method string, params any) types.Envelope {
	t.Helper()
	raw, err := json.Marshal(params)
	if err != nil {
		t.Fatalf("marshal params: %v", err)
	}
	return types.Envelope{WorkspaceID: workspaceID, Method: method, Params: raw}
}

func TestDecodeIgnoresOtherWorkspaces(t *testing.T) {
	env := envelope(t, "other", "session/created", map[string]any{"sessionId": "s1"})
	if actions := Decode("ws", env, NewTurnTracker()); actions != nil {
		t.Fatalf("expected no actions for foreign workspace, got %v", actions)
	}
}

func TestDecodeSessionLifecycle(t *testing.T) {
	turns := NewTurnTracker()

	created := Decode("ws", envelope(t, "ws", "session/created", map[string]any{"sessionId": "s1"}), turns)
	if len(created) != 1 {
		t.Fatalf("expected 1 action, got %d", len(created))
	}
	ensure, ok := created[0].(EnsureSession)
	if !ok {
		t.Fatalf("expected EnsureSession, got %T", created[0])
	}
	if ensure.Title != "New Session" {
		t.Fatalf("expected default created title, got %q", ensure.Title)
	}

	updated := Decode("ws", envelope(t, "ws", "session/updated", map[string]any{"sessionId": "s1", "title": "  "}), turns)
	rename, ok := updated[0].(RenameSession)
	if !ok {
		t.Fatalf("expected RenameSession, got %T", updated[0])
	}
	if rename.Title != "Untitled Session" {
		t.Fatalf("expected default updated title, got %q", rename.Title)
	}

	named := Decode("ws", envelope(t, "ws", "session/updated", map[string]any{"sessionId": "s1", "title": "Fix bug"}), turns)
	if named[0].(RenameSession).Title != "Fix bug" {
		t.Fatalf("expected explicit title to survive")
	}

	deleted := Decode("ws", envelope(t, "ws", "session/deleted", map[string]any{"sessionId": "s1"}), turns)
	if _, ok := deleted[0].(RemoveSession); !ok {
		t.Fatalf("expected RemoveSession, got %T", deleted[0])
	}
}

func TestDecodeMalformedParams(t *testing.T) {
	turns := NewTurnTracker()
	cases := []types.Envelope{
		{WorkspaceID: "ws", Method: "session/created", Params: json.RawMessage(`{"sessionId":`)},
		{WorkspaceID: "ws", Method: "session/created", Params: json.RawMessage(`{}`)},
		{WorkspaceID: "ws", Method: "session/update", Params: json.RawMessage(`[1,2,3]`)},
		{WorkspaceID: "ws", Method: "does/not/exist", Params: json.RawMessage(`{}`)},
	}
	for _, env := range cases {
		if actions := Decode("ws", env, turns); actions != nil {
			t.Fatalf("method %s: expected malformed envelope to decode to nothing, got %v", env.Method, actions)
		}
	}
}

func TestDecodeMessageChunksShareOneItem(t *testing.T) {
	turns := NewTurnTracker()
	chunk := func(text string) types.Envelope {
		return envelope(t, "ws", "session/update", map[string]any{
			"sessionId": "s1",
			"update": map[string]any{
				"sessionUpdate": "agent_message_chunk",
				"content":       map[string]any{"type": "text", "text": text},
			},
		})
	}

	first := Decode("ws", chunk("Hel"), turns)
	second := Decode("ws", chunk("lo"), turns)
	a := first[0].(AppendMessageDelta)
	b := second[0].(AppendMessageDelta)
	if a.ItemID != b.ItemID {
		t.Fatalf("chunks of one turn should target one item: %q vs %q", a.ItemID, b.ItemID)
	}
	if !strings.HasPrefix(a.ItemID, "msg-s1-") {
		t.Fatalf("unexpected assistant item id %q", a.ItemID)
	}
	if a.Role != types.MessageRoleAssistant {
		t.Fatalf("expected assistant role, got %q", a.Role)
	}

	Decode("ws", envelope(t, "ws", "turn/completed", map[string]any{"sessionId": "s1"}), turns)
	third := Decode("ws", chunk("next"), turns)
	if third[0].(AppendMessageDelta).ItemID == a.ItemID {
		t.Fatalf("new turn should mint a new assistant item")
	}
}

func TestDecodeThoughtChunk(t *testing.T) {
	turns := NewTurnTracker()
	env := envelope(t, "ws", "session/update", map[string]any{
		"sessionId": "s1",
		"update": map[string]any{
			"sessionUpdate": "agent_thought_chunk",
			"content":       map[string]any{"type": "text", "text": "thinking"},
		},
	})
	actions := Decode("ws", env, turns)
	delta, ok := actions[0].(AppendReasoningDelta)
	if !ok {
		t.Fatalf("expected AppendReasoningDelta, got %T", actions[0])
	}
	if !strings.HasPrefix(delta.ItemID, "reasoning-s1-") {
		t.Fatalf("unexpected reasoning item id %q", delta.ItemID)
	}
	if delta.Delta != "thinking" {
		t.Fatalf("unexpected delta %q", delta.Delta)
	}
}

func TestDecodeToolCallWithDiff(t *testing.T) {
	turns := NewTurnTracker()
	env := envelope(t, "ws", "session/update", map[string]any{
		"sessionId": "s1",
		"update": map[string]any{
			"sessionUpdate": "tool_call",
			"toolCallId":    "call-1",
			"kind":          "execute",
			"title":         "run tests",
			"rawInput":      map[string]any{"command": "go test"},
			"content": []any{
				map[string]any{"type": "diff", "path": "a.txt", "oldText": "x\n", "newText": "y\n"},
			},
		},
	})
	actions := Decode("ws", env, turns)
	if len(actions) != 2 {
		t.Fatalf("expected upsert + change, got %d actions", len(actions))
	}

	upsert := actions[0].(UpsertToolCall)
	if upsert.ItemID != "tool-s1-call-1" {
		t.Fatalf("unexpected tool item id %q", upsert.ItemID)
	}
	if upsert.Title != "execute: run tests" {
		t.Fatalf("unexpected title %q", upsert.Title)
	}
	if upsert.Status != "pending" {
		t.Fatalf("missing status should default to pending, got %q", upsert.Status)
	}
	if upsert.ToolType != "execute" {
		t.Fatalf("unexpected tool type %q", upsert.ToolType)
	}
	if upsert.DetailDelta != `{"command":"go test"}` {
		t.Fatalf("unexpected detail %q", upsert.DetailDelta)
	}

	change := actions[1].(AppendToolChange)
	if change.Change.Path != "a.txt" {
		t.Fatalf("unexpected change path %q", change.Change.Path)
	}
	want := "--- a.txt\n+++ a.txt\n@@\n-x\n+y\n"
	if change.Change.Diff != want {
		t.Fatalf("unexpected diff:\n%s", change.Change.Diff)
	}
}

func TestDecodeToolCallUpdate(t *testing.T) {
	turns := NewTurnTracker()
	env := envelope(t, "ws", "session/update", map[string]any{
		"sessionId": "s1",
		"update": map[string]any{
			"sessionUpdate": "tool_call_update",
			"toolCallId":    "call-1",
			"status":        "completed",
			"content": []any{
				map[string]any{"type": "content", "content": map[string]any{"type": "text", "text": "ok\n"}},
				map[string]any{"type": "terminal", "terminalId": "term-9"},
			},
		},
	})
	actions := Decode("ws", env, turns)
	if len(actions) != 3 {
		t.Fatalf("expected status + 2 outputs, got %d actions", len(actions))
	}
	if status := actions[0].(SetToolStatus); status.Status != "completed" {
		t.Fatalf("unexpected status %q", status.Status)
	}
	if out := actions[1].(AppendToolOutput); out.Delta != "ok\n" {
		t.Fatalf("unexpected output %q", out.Delta)
	}
	if term := actions[2].(AppendToolOutput); term.Delta != "\n[terminal:term-9]\n" {
		t.Fatalf("unexpected terminal marker %q", term.Delta)
	}
}

func TestDecodeToolCallMissingID(t *testing.T) {
	env := envelope(t, "ws", "session/update", map[string]any{
		"sessionId": "s1",
		"update":    map[string]any{"sessionUpdate": "tool_call", "title": "run"},
	})
	if actions := Decode("ws", env, NewTurnTracker()); actions != nil {
		t.Fatalf("tool call without id should decode to nothing, got %v", actions)
	}
}

func TestDecodeToolDetailTruncated(t *testing.T) {
	big := strings.Repeat("x", maxToolDetailChars+500)
	env := envelope(t, "ws", "session/update", map[string]any{
		"sessionId": "s1",
		"update": map[string]any{
			"sessionUpdate": "tool_call",
			"toolCallId":    "call-1",
			"title":         "write",
			"rawInput":      map[string]any{"data": big},
		},
	})
	actions := Decode("ws", env, NewTurnTracker())
	detail := actions[0].(UpsertToolCall).DetailDelta
	if got := utf8.RuneCountInString(detail); got != maxToolDetailChars+1 {
		t.Fatalf("expected truncation to %d runes plus ellipsis, got %d", maxToolDetailChars, got)
	}
	if !strings.HasSuffix(detail, "…") {
		t.Fatalf("truncated detail should end with ellipsis")
	}
}

func TestDecodePlanStatusMapping(t *testing.T) {
	env := envelope(t, "ws", "session/update", map[string]any{
		"sessionId": "s1",
		"update": map[string]any{
			"sessionUpdate": "plan",
			"turnId":        "t1",
			"entries": []any{
				map[string]any{"content": "a", "status": "in_progress"},
				map[string]any{"content": "b", "status": "inProgress"},
				map[string]any{"content": "c", "status": "completed"},
				map[string]any{"content": "d", "status": "mystery"},
				map[string]any{"step": "e"},
				map[string]any{"status": "completed"},
			},
		},
	})
	actions := Decode("ws", env, NewTurnTracker())
	plan := actions[0].(SetSessionPlan).Plan
	if plan.TurnID != "t1" {
		t.Fatalf("unexpected turn id %q", plan.TurnID)
	}
	want := []types.StepStatus{
		types.StepStatusInProgress,
		types.StepStatusInProgress,
		types.StepStatusCompleted,
		types.StepStatusPending,
		types.StepStatusPending,
	}
	if len(plan.Steps) != len(want) {
		t.Fatalf("expected %d steps (empty entry skipped), got %d", len(want), len(plan.Steps))
	}
	for i, status := range want {
		if plan.Steps[i].Status != status {
			t.Fatalf("step %d: expected %q, got %q", i, status, plan.Steps[i].Status)
		}
	}
	if plan.Steps[4].Step != "e" {
		t.Fatalf("step field should back up missing content, got %q", plan.Steps[4].Step)
	}
}

func TestDecodeRequestPermission(t *testing.T) {
	env := envelope(t, "ws", "session/request_permission", map[string]any{"sessionId": "s1"})
	actions := Decode("ws", env, NewTurnTracker())
	pending, ok := actions[0].(SetApprovalPending)
	if !ok || !pending.Pending {
		t.Fatalf("expected pending approval action, got %v", actions)
	}
}

func TestDecodeContentUpdated(t *testing.T) {
	env := envelope(t, "ws", "content/updated", map[string]any{"sessionId": "s1"})
	actions := Decode("ws", env, NewTurnTracker())
	if _, ok := actions[0].(TouchSession); !ok {
		t.Fatalf("expected TouchSession, got %T", actions[0])
	}
}

func TestDecodeTurnCompleted(t *testing.T) {
	env := envelope(t, "ws", "turn/completed", map[string]any{"sessionId": "s1"})
	actions := Decode("ws", env, NewTurnTracker())
	if _, ok := actions[0].(CompleteTurn); !ok {
		t.Fatalf("expected CompleteTurn, got %T", actions[0])
	}
}
