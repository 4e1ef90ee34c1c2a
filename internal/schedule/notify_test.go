package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/daychain/internal/plan"
)

func TestMinutesUntilStart(t *testing.T) {
	m, ok := MinutesUntilStart(item("a", 10, "09:00", 1), at(8, 55), time.UTC)
	require.True(t, ok)
	assert.Equal(t, 5, m)

	m, ok = MinutesUntilStart(item("a", 10, "09:00", 1), at(9, 2).Add(20*time.Second), time.UTC)
	require.True(t, ok)
	assert.Equal(t, -2, m)

	_, ok = MinutesUntilStart(item("a", 10, "", 1), at(8, 55), time.UTC)
	assert.False(t, ok)
}

func TestDueSignals(t *testing.T) {
	items := []plan.PlanItem{item("standup", 15, "09:00", 1)}
	fired := map[string]bool{}

	assert.Empty(t, DueSignals(items, at(8, 50), time.UTC, fired))

	var kinds []Kind
	for _, now := range []time.Time{at(8, 55), at(9, 0), at(9, 1), at(9, 30)} {
		for _, s := range DueSignals(items, now, time.UTC, fired) {
			kinds = append(kinds, s.Kind)
			fired[s.Key] = true
		}
	}
	assert.Equal(t, []Kind{KindPre5, KindStart, KindOverdue}, kinds, "each kind fires once")
	assert.True(t, fired["2026-10-16:standup:pre5"])
}

func TestDueSignals_SkipsClosedAndUnscheduled(t *testing.T) {
	done := item("done", 15, "09:00", 1)
	done.Status = plan.StatusDone
	skipped := item("skipped", 15, "09:00", 2)
	skipped.Status = plan.StatusSkipped
	loose := item("loose", 15, "", 3)

	assert.Empty(t, DueSignals([]plan.PlanItem{done, skipped, loose}, at(9, 30), time.UTC, nil))
}
