package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/daychain/internal/clock"
	"github.com/hpungsan/daychain/internal/plan"
)

func session(id string, start time.Time, minutes int) plan.Session {
	return plan.Session{ID: id, Name: id, StartAt: start, EndAt: start.Add(time.Duration(minutes) * time.Minute), DurationSec: int64(minutes * 60)}
}

func reviewSnapshot() *plan.Snapshot {
	snap := plan.NewSnapshot()
	snap.Templates = []plan.Template{
		{ID: "tpl-write", Name: "Writing", TargetWeeklyMin: 120, TargetMonthlyMin: 600},
		{ID: "tpl-gym", Name: "Gym", TargetWeeklyMin: 50},
	}
	p1 := item("email", 30, "", 1)
	p1.Status = plan.StatusDone
	p2 := item("draft", 60, "", 2)
	p2.TemplateID = "tpl-write"
	snap.Plans = []plan.PlanItem{p1, p2, item("idle", 0, "", 3)}

	s1 := session("s1", at(9, 0), 40)
	s1.PlanID = "email"
	s1.Tags = []string{"admin"}
	s2 := session("s2", at(10, 0), 30)
	s2.PlanID = "draft"
	s2.TemplateID = "tpl-write"
	s2.InterruptGroupID = "g1"
	s2.SegmentIndex = 1
	s3 := session("s3", time.Date(2026, 10, 13, 9, 0, 0, 0, time.UTC), 60)
	s3.TemplateID = "tpl-write"
	s4 := session("s4", time.Date(2026, 10, 13, 18, 0, 0, 0, time.UTC), 45)
	s4.TemplateID = "tpl-gym"
	snap.Sessions = []plan.Session{s1, s2, s3, s4}
	return snap
}

func TestReview_Day(t *testing.T) {
	r := Review(ReviewInput{
		Snapshot: reviewSnapshot(),
		Resolver: clock.Resolver{Loc: time.UTC},
		Range:    RangeDay,
		Today:    day,
	})

	assert.Equal(t, day, r.From)
	assert.Equal(t, 1, r.Done)
	assert.Equal(t, 3, r.Total)
	assert.Equal(t, int64(70*60), r.TrackedSec)
	assert.Equal(t, 20, r.AvgAbsDiffMin)
	assert.Equal(t, 22, r.BiasPct)
	assert.Equal(t, InterruptStats{Count: 1, TotalSec: 1800}, r.Interrupts)
	assert.Equal(t, []NameMin{{Name: "email", Min: 10}}, r.Over)
	assert.Equal(t, []NameMin{{Name: "draft", Min: 30}}, r.Under)
	assert.Empty(t, r.Budgets, "budgets are weekly or monthly")
	require.Len(t, r.Series, 14)
	assert.Equal(t, DailyError{Day: day, DiffMin: 20}, r.Series[13])
	assert.Equal(t, []Total{{Label: "admin", Sec: 2400}}, r.ByTag)
}

func TestReview_WeekBudgets(t *testing.T) {
	r := Review(ReviewInput{
		Snapshot:   reviewSnapshot(),
		Resolver:   clock.Resolver{Loc: time.UTC},
		Range:      RangeWeek,
		Today:      day,
		SeriesDays: 3,
	})

	assert.Equal(t, "2026-10-12", r.From)
	require.Len(t, r.Budgets, 2)
	assert.Equal(t, Budget{Label: "Gym", BudgetMin: 50, AchievedMin: 45, RatePct: 90}, r.Budgets[0])
	assert.Equal(t, Budget{Label: "Writing", BudgetMin: 120, AchievedMin: 90, RatePct: 75}, r.Budgets[1])
	assert.Len(t, r.Series, 3)
	assert.Equal(t, []Total{{Label: "Writing", Sec: 5400}, {Label: "Gym", Sec: 2700}}, r.ByTemplate)
}

func TestPeriodStart(t *testing.T) {
	assert.Equal(t, "2026-10-12", PeriodStart(RangeWeek, "2026-10-16"))
	assert.Equal(t, "2026-10-12", PeriodStart(RangeWeek, "2026-10-12"))
	assert.Equal(t, "2026-10-01", PeriodStart(RangeMonth, "2026-10-16"))
	assert.Equal(t, "2026-10-16", PeriodStart(RangeDay, "2026-10-16"))
}
