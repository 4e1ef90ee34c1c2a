package ops

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/daychain/internal/errors"
	"github.com/hpungsan/daychain/internal/schedule"
)

func TestReview_Day(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	write := env.addPlan(t, "Write", 30, "")
	email := env.addPlan(t, "Email", 30, "")

	track(t, env, StartInput{PlanID: write.ID}, at(9, 0), at(9, 45), "docs")
	track(t, env, StartInput{PlanID: email.ID}, at(10, 0), at(10, 20))
	_, err := CompletePlan(ctx, env.Env, write.ID)
	require.NoError(t, err)

	r, err := Review(ctx, env.Env, ReviewInput{})
	require.NoError(t, err)
	assert.Equal(t, schedule.RangeDay, r.Range)
	assert.Equal(t, testDay, r.From)
	assert.Equal(t, testDay, r.To)
	assert.Equal(t, 1, r.Done)
	assert.Equal(t, 2, r.Total)
	assert.Equal(t, int64(65*60), r.TrackedSec)
	assert.Equal(t, 13, r.AvgAbsDiffMin)
	assert.Equal(t, -8, r.BiasPct)
	assert.Equal(t, []schedule.NameMin{{Name: "Write", Min: 15}}, r.Over)
	assert.Equal(t, []schedule.NameMin{{Name: "Email", Min: 10}}, r.Under)
	assert.Equal(t, []schedule.Total{{Label: "docs", Sec: 45 * 60}}, r.ByTag)
	require.Len(t, r.Series, 14)
	assert.Equal(t, schedule.DailyError{Day: testDay, DiffMin: -5}, r.Series[13])
}

func TestReview_WeekBudgets(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	gym, err := AddTemplate(ctx, env.Env, TemplateInput{Name: ptr("Gym"), TargetWeeklyMin: ptr(120)})
	require.NoError(t, err)

	// Monday and Friday of the same week, plus the Sunday before it.
	track(t, env, StartInput{TemplateID: gym.ID}, at(7, 0).Add(-4*24*time.Hour), at(7, 30).Add(-4*24*time.Hour))
	track(t, env, StartInput{TemplateID: gym.ID}, at(7, 0), at(7, 30))
	track(t, env, StartInput{TemplateID: gym.ID}, at(7, 0).Add(-5*24*time.Hour), at(8, 0).Add(-5*24*time.Hour))

	r, err := Review(ctx, env.Env, ReviewInput{Range: "week"})
	require.NoError(t, err)
	assert.Equal(t, "2026-10-12", r.From)
	assert.Equal(t, []schedule.Budget{{Label: "Gym", BudgetMin: 120, AchievedMin: 60, RatePct: 50}}, r.Budgets)
	assert.Equal(t, []schedule.Total{{Label: "Gym", Sec: 3600}}, r.ByTemplate)

	_, err = Review(ctx, env.Env, ReviewInput{Range: "year"})
	assert.True(t, errors.Is(err, errors.ErrValidation))
}

func TestReport(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.addPlan(t, "Write | edit", 30, "09:00")
	track(t, env, StartInput{PlanID: p.ID}, at(9, 0), at(9, 10))

	out, err := Report(ctx, env.Env, "", false)
	require.NoError(t, err)
	assert.Equal(t, testDay, out.Day)
	assert.Contains(t, out.Markdown, "# Daily report 2026-10-16")
	assert.Contains(t, out.Markdown, `| todo | Write \| edit | 09:00 | 30 | 10 | 09:10 | 09:30 |  |`)
	assert.Empty(t, out.HTML)

	out, err = Report(ctx, env.Env, testDay, true)
	require.NoError(t, err)
	assert.Contains(t, out.HTML, "<h1>Daily report 2026-10-16</h1>")
	assert.Contains(t, out.HTML, "<table>")
}
