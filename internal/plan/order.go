package plan

import (
	"math"
	"sort"

	"github.com/hpungsan/daychain/internal/clock"
)

// scheduleKey returns minutes since midnight, or MaxInt when unscheduled.
func scheduleKey(p PlanItem) int {
	if m, ok := clock.Minutes(p.ScheduledAt); ok {
		return m
	}
	return math.MaxInt
}

// Less orders plan items: fixed-time items by time first, unscheduled items
// last, ties broken by the explicit order key.
func Less(a, b PlanItem) bool {
	ka, kb := scheduleKey(a), scheduleKey(b)
	if ka != kb {
		return ka < kb
	}
	return a.Order < b.Order
}

// Sort orders items in place with Less.
func Sort(items []PlanItem) {
	sort.SliceStable(items, func(i, j int) bool {
		return Less(items[i], items[j])
	})
}

// Sorted returns a sorted copy.
func Sorted(items []PlanItem) []PlanItem {
	out := append([]PlanItem(nil), items...)
	Sort(out)
	return out
}

func sortByOrder(items []*PlanItem) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Order < items[j].Order
	})
}
