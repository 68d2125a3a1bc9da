package session

import (
	"fmt"
	"strings"
	"testing"

	"pgregory.net/rapid"

	"monitor/internal/types"
)

// TestItemSequencePropertiesRapid drives the reducer with random delta
// streams and checks the invariants that hold regardless of ordering: the
// item cap, in-order concatenation of deltas per item, and kind stability.
func TestItemSequencePropertiesRapid(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		s := NewState()
		deltas := map[string][]string{}

		ids := rapid.SliceOfN(rapid.StringMatching(`m[0-9]{1,2}`), 1, 8).Draw(rt, "ids")
		steps := rapid.IntRange(1, 400).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			id := ids[rapid.IntRange(0, len(ids)-1).Draw(rt, fmt.Sprintf("pick%d", i))]
			delta := rapid.StringN(0, 12, -1).Draw(rt, fmt.Sprintf("delta%d", i))
			s.Apply(AppendMessageDelta{
				WorkspaceID: "ws", SessionID: "s1", ItemID: id,
				Role: types.MessageRoleAssistant, Delta: delta,
			})
			deltas[id] = append(deltas[id], delta)
		}

		items := s.Items("ws", "s1")
		if len(items) > MaxSessionItems {
			rt.Fatalf("item count %d exceeds cap %d", len(items), MaxSessionItems)
		}
		seen := map[string]bool{}
		for _, item := range items {
			if seen[item.ID] {
				rt.Fatalf("duplicate item id %q", item.ID)
			}
			seen[item.ID] = true
			if item.Kind != types.ItemKindMessage {
				rt.Fatalf("unexpected kind %q", item.Kind)
			}
			if want := strings.Join(deltas[item.ID], ""); item.Text != want {
				rt.Fatalf("item %q text %q != concatenated deltas %q", item.ID, item.Text, want)
			}
		}
	})
}

// TestItemCapRapid appends more distinct items than the cap allows and checks
// the survivors are exactly the newest suffix.
func TestItemCapRapid(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		s := NewState()
		total := rapid.IntRange(MaxSessionItems, MaxSessionItems+100).Draw(rt, "total")
		for i := 0; i < total; i++ {
			s.Apply(AppendMessageDelta{
				WorkspaceID: "ws", SessionID: "s1",
				ItemID: fmt.Sprintf("m%06d", i),
				Role:   types.MessageRoleAssistant, Delta: "x",
			})
		}
		items := s.Items("ws", "s1")
		if len(items) != MaxSessionItems {
			rt.Fatalf("expected %d items, got %d", MaxSessionItems, len(items))
		}
		for i, item := range items {
			want := fmt.Sprintf("m%06d", total-MaxSessionItems+i)
			if item.ID != want {
				rt.Fatalf("position %d: expected %q, got %q", i, want, item.ID)
			}
		}
	})
}
