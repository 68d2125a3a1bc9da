package session

import (
	"bytes"
	"encoding/json"
	"strings"
	"unicode/utf8"

	"monitor/internal/types"
)

const (
	defaultCreatedTitle = "New Session"
	defaultUpdatedTitle = "Untitled Session"

	maxToolDetailChars = 4000
	maxToolChangeChars = 10000

	ellipsis = "…"
)

// Decode turns one raw envelope into zero or more reducer actions. Envelopes
// for a workspace other than the subscribed one are discarded silently.
// Decoding is defensive: any fragment of unexpected shape is skipped rather
// than surfaced as an error.
func Decode(workspaceID string, env types.Envelope, turns *TurnTracker) []Action {
	if env.WorkspaceID != workspaceID {
		return nil
	}
	switch env.Method {
	case "session/created":
		sid, title := sessionIDAndTitle(env.Params)
		if sid == "" {
			return nil
		}
		if title == "" {
			title = defaultCreatedTitle
		}
		return []Action{EnsureSession{WorkspaceID: workspaceID, SessionID: sid, Title: title}}
	case "session/updated":
		sid, title := sessionIDAndTitle(env.Params)
		if sid == "" {
			return nil
		}
		if title == "" {
			title = defaultUpdatedTitle
		}
		return []Action{RenameSession{WorkspaceID: workspaceID, SessionID: sid, Title: title}}
	case "session/deleted":
		sid, _ := sessionIDAndTitle(env.Params)
		if sid == "" {
			return nil
		}
		return []Action{RemoveSession{WorkspaceID: workspaceID, SessionID: sid}}
	case "session/update":
		return decodeSessionUpdate(workspaceID, env.Params, turns)
	case "session/request_permission":
		sid, _ := sessionIDAndTitle(env.Params)
		if sid == "" {
			return nil
		}
		return []Action{SetApprovalPending{WorkspaceID: workspaceID, SessionID: sid, Pending: true}}
	case "content/updated":
		sid, _ := sessionIDAndTitle(env.Params)
		if sid == "" {
			return nil
		}
		return []Action{TouchSession{WorkspaceID: workspaceID, SessionID: sid}}
	case "turn/completed":
		sid, _ := sessionIDAndTitle(env.Params)
		if sid == "" {
			return nil
		}
		turns.EndTurn(sid)
		return []Action{CompleteTurn{WorkspaceID: workspaceID, SessionID: sid}}
	}
	return nil
}

func sessionIDAndTitle(raw json.RawMessage) (string, string) {
	if len(raw) == 0 {
		return "", ""
	}
	var params struct {
		SessionID string `json:"sessionId"`
		Title     string `json:"title"`
	}
	if err := json.Unmarshal(raw, &params); err != nil {
		return "", ""
	}
	return strings.TrimSpace(params.SessionID), strings.TrimSpace(params.Title)
}

func decodeSessionUpdate(workspaceID string, raw json.RawMessage, turns *TurnTracker) []Action {
	if len(raw) == 0 {
		return nil
	}
	var params struct {
		SessionID string          `json:"sessionId"`
		Update    json.RawMessage `json:"update"`
	}
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil
	}
	sid := strings.TrimSpace(params.SessionID)
	if sid == "" || len(params.Update) == 0 {
		return nil
	}
	var update struct {
		SessionUpdate string            `json:"sessionUpdate"`
		Content       json.RawMessage   `json:"content"`
		ToolCallID    string            `json:"toolCallId"`
		Title         string            `json:"title"`
		Kind          string            `json:"kind"`
		Status        string            `json:"status"`
		RawInput      json.RawMessage   `json:"rawInput"`
		Entries       []json.RawMessage `json:"entries"`
		TurnID        string            `json:"turnId"`
	}
	if err := json.Unmarshal(params.Update, &update); err != nil {
		return nil
	}

	switch update.SessionUpdate {
	case "agent_message_chunk":
		text := contentText(update.Content)
		if text == "" {
			return nil
		}
		return []Action{AppendMessageDelta{
			WorkspaceID: workspaceID,
			SessionID:   sid,
			ItemID:      turns.AssistantItem(sid),
			Role:        types.MessageRoleAssistant,
			Delta:       text,
		}}
	case "agent_thought_chunk":
		text := contentText(update.Content)
		if text == "" {
			return nil
		}
		return []Action{AppendReasoningDelta{
			WorkspaceID: workspaceID,
			SessionID:   sid,
			ItemID:      turns.ReasoningItem(sid),
			Delta:       text,
		}}
	case "tool_call":
		callID := strings.TrimSpace(update.ToolCallID)
		if callID == "" {
			return nil
		}
		itemID := toolItemID(sid, callID)
		title := update.Title
		if update.Kind != "" {
			title = update.Kind + ": " + title
		}
		status := update.Status
		if status == "" {
			status = "pending"
		}
		actions := []Action{UpsertToolCall{
			WorkspaceID: workspaceID,
			SessionID:   sid,
			ItemID:      itemID,
			ToolType:    update.Kind,
			Title:       title,
			DetailDelta: truncateChars(compactJSON(update.RawInput), maxToolDetailChars),
			Status:      status,
		}}
		return append(actions, decodeToolContent(workspaceID, sid, itemID, update.Content)...)
	case "tool_call_update":
		callID := strings.TrimSpace(update.ToolCallID)
		if callID == "" {
			return nil
		}
		itemID := toolItemID(sid, callID)
		var actions []Action
		if update.Status != "" {
			actions = append(actions, SetToolStatus{
				WorkspaceID: workspaceID,
				SessionID:   sid,
				ItemID:      itemID,
				Status:      update.Status,
			})
		}
		return append(actions, decodeToolContent(workspaceID, sid, itemID, update.Content)...)
	case "plan":
		steps := make([]types.PlanStep, 0, len(update.Entries))
		for _, raw := range update.Entries {
			var entry struct {
				Content string `json:"content"`
				Step    string `json:"step"`
				Status  string `json:"status"`
			}
			if err := json.Unmarshal(raw, &entry); err != nil {
				continue
			}
			text := strings.TrimSpace(entry.Content)
			if text == "" {
				text = strings.TrimSpace(entry.Step)
			}
			if text == "" {
				continue
			}
			steps = append(steps, types.PlanStep{Step: text, Status: stepStatus(entry.Status)})
		}
		return []Action{SetSessionPlan{
			WorkspaceID: workspaceID,
			SessionID:   sid,
			Plan:        types.TurnPlan{TurnID: update.TurnID, Steps: steps},
		}}
	}
	return nil
}

// decodeToolContent maps a tool call's content entries to output/changes
// actions. Entries of unexpected shape are skipped one by one.
func decodeToolContent(workspaceID, sessionID, itemID string, raw json.RawMessage) []Action {
	if len(raw) == 0 {
		return nil
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil
	}
	var actions []Action
	for _, rawEntry := range entries {
		var entry struct {
			Type       string          `json:"type"`
			Content    json.RawMessage `json:"content"`
			Path       string          `json:"path"`
			OldText    string          `json:"oldText"`
			NewText    string          `json:"newText"`
			TerminalID string          `json:"terminalId"`
		}
		if err := json.Unmarshal(rawEntry, &entry); err != nil {
			continue
		}
		switch entry.Type {
		case "content":
			text := contentText(entry.Content)
			if text == "" {
				continue
			}
			actions = append(actions, AppendToolOutput{
				WorkspaceID: workspaceID,
				SessionID:   sessionID,
				ItemID:      itemID,
				Delta:       text,
			})
		case "diff":
			path := strings.TrimSpace(entry.Path)
			if path == "" {
				continue
			}
			actions = append(actions, AppendToolChange{
				WorkspaceID: workspaceID,
				SessionID:   sessionID,
				ItemID:      itemID,
				Change: types.FileChange{
					Path: path,
					Diff: synthesizeDiff(path, entry.OldText, entry.NewText),
				},
			})
		case "terminal":
			id := strings.TrimSpace(entry.TerminalID)
			if id == "" {
				continue
			}
			actions = append(actions, AppendToolOutput{
				WorkspaceID: workspaceID,
				SessionID:   sessionID,
				ItemID:      itemID,
				Delta:       "\n[terminal:" + id + "]\n",
			})
		}
	}
	return actions
}

func toolItemID(sessionID, toolCallID string) string {
	return "tool-" + sessionID + "-" + toolCallID
}

func contentText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var content struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &content); err != nil {
		return ""
	}
	if content.Type != "" && content.Type != "text" {
		return ""
	}
	return content.Text
}

func stepStatus(raw string) types.StepStatus {
	switch raw {
	case "in_progress", "inProgress":
		return types.StepStatusInProgress
	case "completed":
		return types.StepStatusCompleted
	default:
		return types.StepStatusPending
	}
}

// synthesizeDiff builds a unified-diff-like block for one changed file.
func synthesizeDiff(path, oldText, newText string) string {
	var b strings.Builder
	b.WriteString("--- " + path + "\n")
	b.WriteString("+++ " + path + "\n")
	b.WriteString("@@\n")
	for _, line := range diffLines(oldText) {
		b.WriteString("-" + line + "\n")
	}
	for _, line := range diffLines(newText) {
		b.WriteString("+" + line + "\n")
	}
	return truncateChars(b.String(), maxToolChangeChars)
}

func diffLines(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(text, "\n"), "\n")
}

func compactJSON(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return ""
	}
	out := buf.String()
	if out == "null" {
		return ""
	}
	return out
}

func truncateChars(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max]) + ellipsis
}
