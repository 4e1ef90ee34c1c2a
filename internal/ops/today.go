package ops

import (
	"context"
	"time"

	"github.com/hpungsan/daychain/internal/plan"
	"github.com/hpungsan/daychain/internal/schedule"
)

// TodayInput contains parameters for the Today operation.
type TodayInput struct {
	Day string // default: today's plan day
	// EnsureRoutines injects today's due routines before projecting.
	EnsureRoutines bool
}

// TodayOutput is the chained schedule of a day plus its summaries.
type TodayOutput struct {
	Day      string               `json:"day"`
	Now      time.Time            `json:"now"`
	Running  *plan.ActiveSession  `json:"running,omitempty"`
	Chain    *schedule.Projection `json:"chain,omitempty"`
	Summary  schedule.NowNext     `json:"summary"`
	Capacity schedule.Capacity    `json:"capacity"`
	Injected []plan.PlanItem      `json:"injected,omitempty"`
}

// Today projects a day's remaining items onto the clock. With chain_enabled
// off, Chain and the ETA are omitted.
func Today(ctx context.Context, env *Env, input TodayInput) (*TodayOutput, error) {
	var (
		snap     *plan.Snapshot
		now      time.Time
		day      string
		injected []plan.PlanItem
	)
	err := env.apply(ctx, "today", func(m *plan.Machine, at time.Time) (bool, error) {
		now = at
		snap = m.Snapshot()
		var err error
		day, err = env.resolveDay(input.Day, now)
		if err != nil {
			return false, err
		}
		if !input.EnsureRoutines {
			return false, nil
		}
		injected, err = m.EnsureRoutines(day, now)
		return len(injected) > 0, err
	})
	if err != nil {
		return nil, err
	}
	return buildToday(env, snap, day, now, injected), nil
}

// BuildToday computes the Today view from an already loaded snapshot.
func BuildToday(env *Env, snap *plan.Snapshot, day string, now time.Time) *TodayOutput {
	return buildToday(env, snap, day, now, nil)
}

func buildToday(env *Env, snap *plan.Snapshot, day string, now time.Time, injected []plan.PlanItem) *TodayOutput {
	loc := env.location()
	proj := env.project(snap, day, now)
	out := &TodayOutput{
		Day:      day,
		Now:      now,
		Running:  snap.Active,
		Summary:  schedule.Summarize(proj, loc),
		Capacity: schedule.EvaluateCapacity(env.window(), day, now, proj.TotalRemainingMin, loc),
		Injected: injected,
	}
	if env.config().ChainOn() {
		out.Chain = &proj
	} else {
		out.Summary.ETA = nil
		out.Summary.BedtimeWarn = false
	}
	return out
}

// Capacity compares the working time left today with the estimate left.
func Capacity(ctx context.Context, env *Env, day string) (*schedule.Capacity, error) {
	m, now, err := env.view(ctx)
	if err != nil {
		return nil, err
	}
	day, err = env.resolveDay(day, now)
	if err != nil {
		return nil, err
	}
	proj := env.project(m.Snapshot(), day, now)
	c := schedule.EvaluateCapacity(env.window(), day, now, proj.TotalRemainingMin, env.location())
	return &c, nil
}
