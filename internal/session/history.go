package session

import (
	"fmt"
	"strings"

	"monitor/internal/types"
)

// PartsToItems converts a session's stored message history into conversation
// items, in message order. Parts of unknown or malformed shape are skipped.
func PartsToItems(messages []types.AgentMessage) []types.ConversationItem {
	var items []types.ConversationItem
	for _, msg := range messages {
		items = append(items, messageToItems(msg)...)
	}
	return items
}

func messageToItems(msg types.AgentMessage) []types.ConversationItem {
	role := types.MessageRoleAssistant
	if msg.Role == "user" {
		role = types.MessageRoleUser
	}

	var items []types.ConversationItem
	var text []string
	for i, part := range msg.Parts {
		switch part.Type {
		case "text":
			if part.Content != "" {
				text = append(text, part.Content)
			}
		case "reasoning":
			if part.Content == "" {
				continue
			}
			items = append(items, types.ConversationItem{
				ID:      partID(msg.ID, "reasoning", i),
				Kind:    types.ItemKindReasoning,
				Content: part.Content,
			})
		case "tool":
			items = append(items, types.ConversationItem{
				ID:       partID(msg.ID, "tool", i),
				Kind:     types.ItemKindTool,
				ToolType: part.ToolName,
				Title:    part.ToolName,
				Status:   part.Status,
				Output:   part.Content,
			})
		case "patch":
			items = append(items, types.ConversationItem{
				ID:    partID(msg.ID, "patch", i),
				Kind:  types.ItemKindDiff,
				Title: patchTitle(part.Files),
				Diff:  part.Content,
			})
		case "review":
			state := types.ReviewStateStarted
			if part.Status == "completed" {
				state = types.ReviewStateCompleted
			}
			items = append(items, types.ConversationItem{
				ID:          partID(msg.ID, "review", i),
				Kind:        types.ItemKindReview,
				ReviewState: state,
				Text:        part.Content,
			})
		}
	}
	if len(text) > 0 {
		// The message item goes first so the timeline reads message, then
		// the work it produced.
		items = append([]types.ConversationItem{{
			ID:   msg.ID,
			Kind: types.ItemKindMessage,
			Role: role,
			Text: strings.Join(text, "\n"),
		}}, items...)
	}
	return items
}

func partID(messageID, kind string, index int) string {
	return fmt.Sprintf("%s-%s-%d", messageID, kind, index)
}

func patchTitle(files []string) string {
	switch len(files) {
	case 0:
		return "Patch"
	case 1:
		return "Patch (1 file)"
	default:
		return fmt.Sprintf("Patch (%d files)", len(files))
	}
}
