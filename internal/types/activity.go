package types

// ActivityCounters are the cumulative activity counts of a session, projected
// from its current items and plan.
type ActivityCounters struct {
	MessageCount       int `json:"messageCount"`
	ToolCallCount      int `json:"toolCallCount"`
	DiffCount          int `json:"diffCount"`
	PlanCompletedCount int `json:"planCompletedCount"`
}

// ActivityBaseline is a persisted snapshot of a session's counters, captured
// when the session was last viewed. Deltas against it drive the TL;DR.
type ActivityBaseline struct {
	OpenedAt int64            `json:"openedAt"` // unix milliseconds
	Activity ActivityCounters `json:"activity"`
}
