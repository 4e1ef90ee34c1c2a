package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/daychain/internal/plan"
)

const day = "2026-10-16"

func at(h, m int) time.Time {
	return time.Date(2026, 10, 16, h, m, 0, 0, time.UTC)
}

func item(id string, est int, sched string, order int) plan.PlanItem {
	return plan.PlanItem{ID: id, Day: day, Name: id, EstimateMin: est, ScheduledAt: sched, Status: plan.StatusTodo, Order: order}
}

func project(now time.Time, items []plan.PlanItem, sessions []plan.Session, active *plan.ActiveSession) Projection {
	return Project(Input{Day: day, Plans: items, Sessions: sessions, Active: active, Now: now, Base: BaseNow, Loc: time.UTC})
}

func entry(t *testing.T, p Projection, id string) Entry {
	t.Helper()
	e, ok := p.Entry(id)
	require.True(t, ok, "no entry for %s", id)
	return e
}

func TestProject_ScenarioA(t *testing.T) {
	p := project(at(8, 50), []plan.PlanItem{item("report", 30, "09:00", 1)}, nil, nil)

	e := entry(t, p, "report")
	require.True(t, e.Projected)
	assert.Equal(t, at(9, 0), *e.PlannedStart)
	assert.Equal(t, at(9, 30), *e.PlannedEnd)
	assert.Equal(t, int64(30*60000), e.RemainingMs)
	assert.Equal(t, at(9, 30), p.ChainEnd)
	assert.Equal(t, 30, p.TotalRemainingMin)
	assert.False(t, e.Overdue)
}

func TestProject_ScenarioB(t *testing.T) {
	active := &plan.ActiveSession{ID: "a1", Name: "report", PlanID: "report", StartAt: at(9, 10)}
	now := at(9, 15)

	p := project(now, []plan.PlanItem{item("report", 30, "09:00", 1)}, nil, active)

	e := entry(t, p, "report")
	require.True(t, e.Running)
	assert.Equal(t, now, *e.PlannedStart)
	assert.Equal(t, int64(25*60000), e.RemainingMs)
	assert.Equal(t, now.Add(25*time.Minute), *e.PlannedEnd)
	assert.Equal(t, 10, e.DelayMin)
	assert.Equal(t, "+10", Badge(e.DelayMin))
	assert.True(t, e.Overdue)
}

func TestProject_RunningAnchorsAtNow(t *testing.T) {
	active := &plan.ActiveSession{ID: "a1", Name: "b", StartAt: at(9, 0)}
	items := []plan.PlanItem{item("a", 20, "", 1), item("b", 40, "", 2), item("c", 10, "", 3)}

	for _, now := range []time.Time{at(9, 0), at(9, 7), at(9, 39), at(10, 30)} {
		p := project(now, items, nil, active)
		b := entry(t, p, "b")
		require.True(t, b.Running)
		assert.Equal(t, now, *b.PlannedStart)
		assert.GreaterOrEqual(t, b.RemainingMs, int64(0))

		c := entry(t, p, "c")
		assert.Equal(t, *b.PlannedEnd, *c.PlannedStart, "the item after the running one follows its end")
	}
}

func TestProject_RunningOverrunKeepsZeroLength(t *testing.T) {
	active := &plan.ActiveSession{ID: "a1", Name: "a", StartAt: at(9, 0)}
	p := project(at(9, 30), []plan.PlanItem{item("a", 10, "", 1)}, nil, active)

	e := entry(t, p, "a")
	assert.True(t, e.Projected)
	assert.Equal(t, int64(0), e.RemainingMs)
	assert.Equal(t, at(9, 30), *e.PlannedEnd)
	assert.Equal(t, at(9, 30), p.ChainEnd)
	assert.Equal(t, -30, e.DelayMin, "started before the chain reached it")
}

func TestProject_RunningWithoutFixedTimeComparesChainPosition(t *testing.T) {
	active := &plan.ActiveSession{ID: "a1", Name: "b", StartAt: at(9, 40)}
	items := []plan.PlanItem{item("a", 30, "", 1), item("b", 20, "", 2)}

	p := project(at(9, 45), items, nil, active)

	b := entry(t, p, "b")
	require.True(t, b.Running)
	assert.Equal(t, at(9, 45), *b.PlannedStart)
	assert.Equal(t, -35, b.DelayMin, "the chain put b after a, at 10:15")
	assert.Equal(t, "-35", Badge(b.DelayMin))

	p = project(at(10, 30), []plan.PlanItem{item("b", 20, "", 2)}, nil,
		&plan.ActiveSession{ID: "a2", Name: "b", StartAt: at(10, 30)})
	assert.Equal(t, 0, entry(t, p, "b").DelayMin)
}

func TestProject_ExcludesDoneAndZeroEstimate(t *testing.T) {
	done := item("done", 30, "", 1)
	done.Status = plan.StatusDone
	zero := item("zero", 0, "", 2)
	work := item("work", 20, "", 3)

	now := at(10, 0)
	p := project(now, []plan.PlanItem{done, zero, work}, nil, nil)

	require.Len(t, p.Entries, 3, "excluded items stay in the list")
	for _, id := range []string{"done", "zero"} {
		e := entry(t, p, id)
		assert.False(t, e.Projected, id)
		assert.Nil(t, e.PlannedStart, id)
	}
	assert.Equal(t, now, *entry(t, p, "work").PlannedStart)
	assert.Equal(t, now.Add(20*time.Minute), p.ChainEnd)
}

func TestProject_SkippedItemsKeepTheirSlot(t *testing.T) {
	skipped := item("skipped", 30, "", 1)
	skipped.Status = plan.StatusSkipped
	work := item("work", 10, "", 2)

	p := project(at(9, 0), []plan.PlanItem{skipped, work}, nil, nil)

	s := entry(t, p, "skipped")
	require.True(t, s.Projected)
	assert.Equal(t, at(9, 0), *s.PlannedStart)
	assert.Equal(t, at(9, 30), *entry(t, p, "work").PlannedStart)
	assert.Equal(t, at(9, 40), p.ChainEnd)
	assert.Equal(t, 40, p.TotalRemainingMin)
}

func TestProject_FullySpentItemIsExcluded(t *testing.T) {
	sessions := []plan.Session{{ID: "s1", StartAt: at(8, 0), EndAt: at(8, 30), DurationSec: 1800, PlanID: "a"}}
	p := project(at(9, 0), []plan.PlanItem{item("a", 30, "", 1), item("b", 10, "", 2)}, sessions, nil)

	assert.False(t, entry(t, p, "a").Projected)
	assert.Equal(t, int64(1800), entry(t, p, "a").SpentSec)
	assert.Equal(t, at(9, 0), *entry(t, p, "b").PlannedStart)
}

func TestProject_EndEqualsStartPlusRemaining(t *testing.T) {
	items := []plan.PlanItem{
		item("a", 25, "", 3),
		item("b", 40, "10:00", 1),
		item("c", 15, "09:15", 2),
		item("d", 5, "", 4),
	}
	sessions := []plan.Session{{ID: "s1", StartAt: at(8, 0), EndAt: at(8, 7), DurationSec: 7*60 + 13, PlanID: "a"}}
	active := &plan.ActiveSession{ID: "x", Name: "d", StartAt: at(8, 58)}

	p := project(at(9, 3), items, sessions, active)
	for _, e := range p.Entries {
		if !e.Projected {
			continue
		}
		assert.Equal(t, e.PlannedStart.Add(time.Duration(e.RemainingMs)*time.Millisecond), *e.PlannedEnd, e.PlanID)
	}
}

func TestProject_FixedTimeNeverPullsEarlier(t *testing.T) {
	p := project(at(11, 0), []plan.PlanItem{item("late", 30, "10:00", 1)}, nil, nil)

	e := entry(t, p, "late")
	assert.Equal(t, at(11, 0), *e.PlannedStart)
	assert.True(t, e.Overdue)
	assert.Equal(t, 0, e.DelayMin)
}

func TestProject_FixedTimePushesLater(t *testing.T) {
	items := []plan.PlanItem{item("meeting", 30, "10:00", 1), item("loose", 20, "", 1)}
	p := project(at(9, 0), items, nil, nil)

	assert.Equal(t, at(10, 0), *entry(t, p, "meeting").PlannedStart)
	assert.Equal(t, at(10, 30), *entry(t, p, "loose").PlannedStart)
	assert.Equal(t, "meeting", p.Entries[0].PlanID, "entries follow plan order")
}

func TestProject_SwapAdjacentSwapsStarts(t *testing.T) {
	now := at(9, 0)
	before := project(now, []plan.PlanItem{item("x", 10, "", 1), item("y", 20, "", 2), item("z", 30, "", 3)}, nil, nil)
	after := project(now, []plan.PlanItem{item("x", 10, "", 2), item("y", 20, "", 1), item("z", 30, "", 3)}, nil, nil)

	assert.Equal(t, *entry(t, before, "x").PlannedStart, *entry(t, after, "y").PlannedStart)
	assert.Equal(t, now.Add(20*time.Minute), *entry(t, after, "x").PlannedStart)
	assert.Equal(t, *entry(t, before, "z").PlannedStart, *entry(t, after, "z").PlannedStart)
	assert.Equal(t, before.ChainEnd, after.ChainEnd)
}

func TestProject_SpentFallsBackToTemplate(t *testing.T) {
	it := item("a", 30, "", 1)
	it.TemplateID = "tpl"
	sessions := []plan.Session{{ID: "s1", StartAt: at(8, 0), EndAt: at(8, 10), DurationSec: 600, TemplateID: "tpl"}}

	p := project(at(9, 0), []plan.PlanItem{it}, sessions, nil)
	assert.Equal(t, int64(20*60000), entry(t, p, "a").RemainingMs)
}

func TestProject_TemplateMatchSkipsDoneSibling(t *testing.T) {
	first := item("first", 30, "", 1)
	first.TemplateID = "tpl"
	first.Status = plan.StatusDone
	second := item("second", 30, "", 2)
	second.TemplateID = "tpl"
	active := &plan.ActiveSession{ID: "a", TemplateID: "tpl", Name: "x", StartAt: at(9, 0)}

	p := project(at(9, 5), []plan.PlanItem{first, second}, nil, active)
	assert.False(t, entry(t, p, "first").Running)
	assert.True(t, entry(t, p, "second").Running)
}

func TestProject_FirstScheduledBase(t *testing.T) {
	items := []plan.PlanItem{item("meeting", 30, "10:00", 1), item("loose", 20, "", 2)}
	p := Project(Input{Day: day, Plans: items, Now: at(8, 0), Base: BaseFirstScheduled, Loc: time.UTC})

	assert.Equal(t, BaseFirstScheduled, p.Base)
	assert.Equal(t, at(10, 0), *entry(t, p, "meeting").PlannedStart)
	assert.Equal(t, at(10, 50), p.ChainEnd)

	p = Project(Input{Day: day, Plans: items, Now: at(11, 0), Base: BaseFirstScheduled, Loc: time.UTC})
	assert.Equal(t, at(11, 0), *entry(t, p, "meeting").PlannedStart, "a passed first time never rewinds the cursor")
}

func TestProject_EmptyChainEndsNow(t *testing.T) {
	p := project(at(9, 0), nil, nil, nil)
	assert.Equal(t, at(9, 0), p.ChainEnd)
	assert.Empty(t, p.Entries)
	assert.Zero(t, p.TotalRemainingMin)
}

func TestProject_Bedtime(t *testing.T) {
	items := []plan.PlanItem{item("a", 30, "", 1)}

	p := Project(Input{Day: day, Plans: items, Now: at(21, 50), Loc: time.UTC, Bedtime: "22:00"})
	assert.True(t, p.BedtimeExceeded)

	p = Project(Input{Day: day, Plans: items, Now: at(21, 50), Loc: time.UTC, Bedtime: "01:00"})
	assert.False(t, p.BedtimeExceeded, "early-morning bedtime belongs to the next date")

	p = Project(Input{Day: day, Plans: items, Now: at(21, 50), Loc: time.UTC})
	assert.False(t, p.BedtimeExceeded)
}

func TestProject_DoesNotMutateInput(t *testing.T) {
	items := []plan.PlanItem{item("b", 10, "", 2), item("a", 10, "", 1)}
	project(at(9, 0), items, nil, nil)
	assert.Equal(t, "b", items[0].ID)
}

func TestBadge(t *testing.T) {
	assert.Equal(t, "+10", Badge(10))
	assert.Equal(t, "-5", Badge(-5))
	assert.Equal(t, "", Badge(0))
}

func TestRunningAheadOfScheduleShowsLead(t *testing.T) {
	active := &plan.ActiveSession{ID: "a1", Name: "report", StartAt: at(8, 55)}
	p := project(at(9, 0), []plan.PlanItem{item("report", 30, "09:00", 1)}, nil, active)

	e := entry(t, p, "report")
	assert.Equal(t, -5, e.DelayMin)
	assert.False(t, e.Overdue)
}
