package activity

import (
	"strings"
	"testing"

	"github.com/mattn/go-runewidth"

	"monitor/internal/types"
)

func baselineOf(counters types.ActivityCounters) *types.ActivityBaseline {
	return &types.ActivityBaseline{OpenedAt: 1, Activity: counters}
}

func TestSummarizeBrandNewSession(t *testing.T) {
	summary, status := Summarize(Inputs{})
	if summary != "" {
		t.Fatalf("brand-new session should have no summary, got %q", summary)
	}
	if status != StatusNew {
		t.Fatalf("expected status new, got %q", status)
	}
}

func TestSummarizePlanDelta(t *testing.T) {
	summary, status := Summarize(Inputs{
		Current:  types.ActivityCounters{PlanCompletedCount: 3, MessageCount: 5},
		Baseline: baselineOf(types.ActivityCounters{PlanCompletedCount: 1, MessageCount: 5}),
		HasItems: true,
	})
	if summary != "2 tasks done" {
		t.Fatalf("unexpected summary %q", summary)
	}
	if status != StatusIdle {
		t.Fatalf("expected idle, got %q", status)
	}
}

func TestSummarizeZeroDelta(t *testing.T) {
	counters := types.ActivityCounters{MessageCount: 4, ToolCallCount: 2}

	summary, status := Summarize(Inputs{
		Current: counters, Baseline: baselineOf(counters),
		HasItems: true, Processing: true,
	})
	if summary != "Working…" || status != StatusWorking {
		t.Fatalf("processing with no delta: got %q/%q", summary, status)
	}

	summary, status = Summarize(Inputs{
		Current: counters, Baseline: baselineOf(counters),
		HasItems: true, ApprovalPending: true,
	})
	if summary != "Waiting for approval" || status != StatusWaitingApproval {
		t.Fatalf("approval with no delta: got %q/%q", summary, status)
	}

	summary, status = Summarize(Inputs{
		Current: counters, Baseline: baselineOf(counters),
		HasItems: true,
	})
	if summary != "No new activity" || status != StatusIdle {
		t.Fatalf("idle with no delta: got %q/%q", summary, status)
	}
}

func TestSummarizeClausePrecedence(t *testing.T) {
	cases := []struct {
		name    string
		current types.ActivityCounters
		want    string
	}{
		{
			"plan and diff both show",
			types.ActivityCounters{PlanCompletedCount: 1, DiffCount: 2, ToolCallCount: 4, MessageCount: 3},
			"1 task done, 2 files changed",
		},
		{
			"tools show only without diffs",
			types.ActivityCounters{ToolCallCount: 4, MessageCount: 3},
			"4 tool calls",
		},
		{
			"messages only as last resort",
			types.ActivityCounters{MessageCount: 1},
			"1 new message",
		},
		{
			"single forms",
			types.ActivityCounters{DiffCount: 1},
			"1 file changed",
		},
	}
	for _, tc := range cases {
		summary, _ := Summarize(Inputs{
			Current:  tc.current,
			Baseline: baselineOf(types.ActivityCounters{}),
			HasItems: true,
		})
		if summary != tc.want {
			t.Fatalf("%s: expected %q, got %q", tc.name, tc.want, summary)
		}
	}
}

func TestSummarizeNoBaselineUsesAbsoluteCounts(t *testing.T) {
	summary, _ := Summarize(Inputs{
		Current:  types.ActivityCounters{MessageCount: 2},
		HasItems: true,
	})
	if summary != "2 new messages" {
		t.Fatalf("unexpected summary %q", summary)
	}
}

func TestClampWidthBoundsDisplayCells(t *testing.T) {
	short := "3 files changed"
	if got := clampWidth(short); got != short {
		t.Fatalf("short summary must pass through unchanged, got %q", got)
	}

	long := strings.Repeat("a", maxSummaryWidth+30)
	got := clampWidth(long)
	if width := runewidth.StringWidth(got); width > maxSummaryWidth {
		t.Fatalf("clamped summary is %d cells wide, cap is %d", width, maxSummaryWidth)
	}
	if !strings.HasSuffix(got, "…") {
		t.Fatalf("clamped summary should end with an ellipsis, got %q", got)
	}

	// Wide runes occupy two display cells, so far fewer of them fit.
	wide := strings.Repeat("変", maxSummaryWidth)
	got = clampWidth(wide)
	if width := runewidth.StringWidth(got); width > maxSummaryWidth {
		t.Fatalf("wide-rune summary is %d cells wide, cap is %d", width, maxSummaryWidth)
	}
	if count := strings.Count(got, "変"); count >= maxSummaryWidth/2+1 {
		t.Fatalf("expected at most %d wide runes, got %d", maxSummaryWidth/2, count)
	}
}

func TestSummarizeNegativeDeltaReadsAsCaughtUp(t *testing.T) {
	// Counters can shrink when old items are evicted; the delta clamps to an
	// empty clause set rather than a nonsense negative phrase.
	summary, _ := Summarize(Inputs{
		Current:  types.ActivityCounters{MessageCount: 1},
		Baseline: baselineOf(types.ActivityCounters{MessageCount: 5}),
		HasItems: true,
	})
	if summary != "Caught up" {
		t.Fatalf("unexpected summary %q", summary)
	}
}
