package ops

import (
	"context"
	"time"

	"github.com/hpungsan/daychain/internal/plan"
	"github.com/hpungsan/daychain/internal/schedule"
)

// NotificationsInput contains parameters for the Notifications operation.
type NotificationsInput struct {
	Day string
	// Peek lists due signals without recording them as fired.
	Peek bool
}

// NotificationsOutput lists signals due now.
type NotificationsOutput struct {
	Day     string            `json:"day"`
	Signals []schedule.Signal `json:"signals"`
}

// Notifications returns the pre-start, start and overdue signals due now.
// Each signal is returned once per item and day unless Peek is set.
func Notifications(ctx context.Context, env *Env, input NotificationsInput) (*NotificationsOutput, error) {
	out := &NotificationsOutput{Signals: []schedule.Signal{}}
	err := env.apply(ctx, "notifications", func(m *plan.Machine, now time.Time) (bool, error) {
		day, err := env.resolveDay(input.Day, now)
		if err != nil {
			return false, err
		}
		out.Day = day
		out.Signals = dueSignals(env, m.Snapshot(), day, now, !input.Peek)
		return !input.Peek && len(out.Signals) > 0, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func dueSignals(env *Env, snap *plan.Snapshot, day string, now time.Time, record bool) []schedule.Signal {
	signals := schedule.DueSignals(snap.PlansForDay(day), now, env.location(), snap.Notified)
	for i := range signals {
		signals[i].Name = snap.DisplayName(*snap.Plan(signals[i].PlanID))
		if record {
			snap.Notified[signals[i].Key] = true
		}
	}
	if signals == nil {
		signals = []schedule.Signal{}
	}
	return signals
}

// TickOutput is what one clock tick found.
type TickOutput struct {
	Day         string              `json:"day"`
	Injected    []plan.PlanItem     `json:"injected,omitempty"`
	LongRunning *plan.ActiveSession `json:"long_running,omitempty"`
	Signals     []schedule.Signal   `json:"signals"`
}

// Tick is the once-a-second housekeeping pass: it injects today's routines,
// raises the long-running alert once, and collects due notification
// signals. It saves only when one of those changed something.
func Tick(ctx context.Context, env *Env) (*TickOutput, error) {
	out := &TickOutput{}
	err := env.apply(ctx, "tick", func(m *plan.Machine, now time.Time) (bool, error) {
		snap := m.Snapshot()
		out.Day = env.resolver().PlanDay(now)

		injected, err := m.EnsureRoutines(out.Day, now)
		if err != nil {
			return false, err
		}
		out.Injected = injected

		if m.CheckLongRunning(now, env.config().AlertAfterMin) {
			a := *snap.Active
			out.LongRunning = &a
		}
		out.Signals = dueSignals(env, snap, out.Day, now, true)
		return len(injected) > 0 || out.LongRunning != nil || len(out.Signals) > 0, nil
	})
	if err != nil {
		return nil, err
	}

	log := env.logger()
	if out.LongRunning != nil {
		log.Info("long-running task", "name", out.LongRunning.Name, "since", out.LongRunning.StartAt)
	}
	for _, s := range out.Signals {
		log.Info("notification", "kind", s.Kind, "plan_id", s.PlanID, "name", s.Name, "scheduled_at", s.ScheduledAt)
	}
	return out, nil
}
