package app

import (
	"fmt"
	"strings"

	xansi "github.com/charmbracelet/x/ansi"

	"monitor/internal/types"
)

const maxToolOutputLines = 8

// renderItems flattens a session timeline into display lines. Streaming
// updates mutate items in place, so this is a pure projection and can run on
// every tick.
func renderItems(items []types.ConversationItem, width int) []string {
	var lines []string
	for _, item := range items {
		if len(lines) > 0 {
			lines = append(lines, "")
		}
		lines = append(lines, renderItem(item, width)...)
	}
	return lines
}

func renderItem(item types.ConversationItem, width int) []string {
	switch item.Kind {
	case types.ItemKindMessage:
		prefix := "agent"
		if item.Role == types.MessageRoleUser {
			prefix = "you"
		}
		if item.Text == "" {
			return []string{prefix + "> " + "…"}
		}
		return prefixLines(prefix+"> ", item.Text)

	case types.ItemKindReasoning:
		text := item.Summary
		if text == "" {
			text = item.Content
		}
		if text == "" {
			return []string{"· thinking…"}
		}
		return prefixLines("· ", text)

	case types.ItemKindTool:
		lines := []string{fmt.Sprintf("[%s] %s", item.Status, item.Title)}
		if item.Detail != "" {
			lines = append(lines, indentLines(item.Detail)...)
		}
		if item.Output != "" {
			out := strings.Split(strings.TrimRight(item.Output, "\n"), "\n")
			if len(out) > maxToolOutputLines {
				trimmed := len(out) - maxToolOutputLines
				out = append(out[:maxToolOutputLines], fmt.Sprintf("  … %d more lines", trimmed))
			}
			for _, line := range out {
				lines = append(lines, "  "+xansi.Truncate(line, width-2, "…"))
			}
		}
		for _, change := range item.Changes {
			lines = append(lines, "  ~ "+change.Path)
		}
		return lines

	case types.ItemKindDiff:
		count := strings.Count(item.Diff, "--- ")
		if count == 0 {
			count = 1
		}
		lines := []string{fmt.Sprintf("diff: %d file(s)", count)}
		for _, line := range strings.Split(item.Diff, "\n") {
			if strings.HasPrefix(line, "--- ") {
				lines = append(lines, "  "+strings.TrimPrefix(line, "--- "))
			}
		}
		return lines

	case types.ItemKindReview:
		return []string{"review " + string(item.ReviewState)}
	}
	return nil
}

func prefixLines(prefix, text string) []string {
	split := strings.Split(strings.TrimRight(text, "\n"), "\n")
	lines := make([]string, 0, len(split))
	pad := strings.Repeat(" ", len(prefix))
	for i, line := range split {
		if i == 0 {
			lines = append(lines, prefix+line)
		} else {
			lines = append(lines, pad+line)
		}
	}
	return lines
}

func indentLines(text string) []string {
	split := strings.Split(strings.TrimRight(text, "\n"), "\n")
	lines := make([]string, 0, len(split))
	for _, line := range split {
		lines = append(lines, "  "+line)
	}
	return lines
}
