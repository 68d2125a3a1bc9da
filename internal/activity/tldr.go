package activity

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"

	"monitor/internal/types"
)

// Status is the coarse state shown next to a session's TL;DR.
type Status string

const (
	StatusNew             Status = "new"
	StatusWaitingApproval Status = "waiting-approval"
	StatusWorking         Status = "working"
	StatusIdle            Status = "idle"
)

const maxSummaryWidth = 90

// Inputs is everything the summarizer looks at. Baseline is nil when no
// valid baseline exists yet.
type Inputs struct {
	Current         types.ActivityCounters
	Baseline        *types.ActivityBaseline
	HasItems        bool
	Processing      bool
	ApprovalPending bool
}

// Summarize derives the short activity summary and coarse status for a
// session the user has left. The summary is "" for a brand-new session.
func Summarize(in Inputs) (string, Status) {
	status := deriveStatus(in)
	if !in.HasItems {
		return "", status
	}

	counters := in.Current
	if in.Baseline != nil {
		counters = delta(in.Current, in.Baseline.Activity)
		if counters == (types.ActivityCounters{}) {
			switch {
			case in.Processing:
				return "Working…", status
			case in.ApprovalPending:
				return "Waiting for approval", status
			default:
				return "No new activity", status
			}
		}
	}

	summary := joinClauses(counters)
	if summary == "" {
		if in.Processing {
			return "Working…", status
		}
		return "Caught up", status
	}
	return clampWidth(summary), status
}

// clampWidth bounds a summary to the display cells a status row can spare,
// counting wide runes by their rendered width.
func clampWidth(summary string) string {
	return runewidth.Truncate(summary, maxSummaryWidth, "…")
}

func deriveStatus(in Inputs) Status {
	switch {
	case !in.HasItems:
		return StatusNew
	case in.ApprovalPending:
		return StatusWaitingApproval
	case in.Processing:
		return StatusWorking
	default:
		return StatusIdle
	}
}

func delta(current, baseline types.ActivityCounters) types.ActivityCounters {
	return types.ActivityCounters{
		MessageCount:       current.MessageCount - baseline.MessageCount,
		ToolCallCount:      current.ToolCallCount - baseline.ToolCallCount,
		DiffCount:          current.DiffCount - baseline.DiffCount,
		PlanCompletedCount: current.PlanCompletedCount - baseline.PlanCompletedCount,
	}
}

// joinClauses builds the comma-joined phrase. Precedence: completed plan
// steps, then changed files, then tool actions only when no files changed,
// then messages only when nothing else qualified.
func joinClauses(counters types.ActivityCounters) string {
	var clauses []string
	if counters.PlanCompletedCount > 0 {
		clauses = append(clauses, plural(counters.PlanCompletedCount, "task", "tasks")+" done")
	}
	if counters.DiffCount > 0 {
		clauses = append(clauses, plural(counters.DiffCount, "file", "files")+" changed")
	}
	if counters.ToolCallCount > 0 && counters.DiffCount <= 0 {
		clauses = append(clauses, plural(counters.ToolCallCount, "tool call", "tool calls"))
	}
	if len(clauses) == 0 && counters.MessageCount > 0 {
		clauses = append(clauses, plural(counters.MessageCount, "new message", "new messages"))
	}
	return strings.Join(clauses, ", ")
}

func plural(count int, singular, pluralForm string) string {
	if count == 1 {
		return fmt.Sprintf("1 %s", singular)
	}
	return fmt.Sprintf("%d %s", count, pluralForm)
}
