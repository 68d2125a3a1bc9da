package activity

import "monitor/internal/types"

// Snapshot projects a session's current items and plan onto cumulative
// counters. It is recomputed from current state on demand, never maintained
// incrementally, so the counts cannot drift.
func Snapshot(items []types.ConversationItem, plan *types.TurnPlan) types.ActivityCounters {
	var counters types.ActivityCounters
	for _, item := range items {
		switch item.Kind {
		case types.ItemKindMessage:
			if item.Role == types.MessageRoleAssistant {
				counters.MessageCount++
			}
		case types.ItemKindTool:
			counters.ToolCallCount++
		case types.ItemKindDiff:
			counters.DiffCount++
		}
	}
	if plan != nil {
		for _, step := range plan.Steps {
			if step.Status == types.StepStatusCompleted {
				counters.PlanCompletedCount++
			}
		}
	}
	return counters
}
