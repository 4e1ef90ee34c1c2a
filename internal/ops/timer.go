package ops

import (
	"context"
	"time"

	"github.com/hpungsan/daychain/internal/plan"
)

// StartInput contains parameters for the Start operation.
type StartInput struct {
	Name       string
	TemplateID string
	PlanID     string
	Switch     bool // stop a running task first instead of failing
	Tags       []string
}

// Start opens the timer.
func Start(ctx context.Context, env *Env, input StartInput) (*plan.ActiveSession, error) {
	var out *plan.ActiveSession
	err := env.mutate(ctx, "start", func(m *plan.Machine, now time.Time) error {
		a, err := m.Start(plan.StartDraft{
			Name:        input.Name,
			TemplateID:  input.TemplateID,
			PlanID:      input.PlanID,
			Switch:      input.Switch,
			DefaultTags: input.Tags,
		}, now)
		out = a
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// StopInput contains parameters for the Stop operation.
type StopInput struct {
	Tags         []string
	Note         string
	CompletePlan bool
	Split        string // "", "split" or "split-tomorrow"
}

// Stop closes the running task into a session.
func Stop(ctx context.Context, env *Env, input StopInput) (*plan.StopResult, error) {
	var out *plan.StopResult
	err := env.mutate(ctx, "stop", func(m *plan.Machine, now time.Time) error {
		res, err := m.Stop(plan.StopOptions{
			Tags:         input.Tags,
			Note:         input.Note,
			CompletePlan: input.CompletePlan,
			Split:        plan.SplitMode(input.Split),
		}, now)
		out = res
		return err
	})
	if err != nil {
		return nil, err
	}
	if out.Learned != nil {
		env.logger().Debug("estimate learned",
			"plan_id", out.Learned.PlanID, "old", out.Learned.OldEstimate, "new", out.Learned.NewEstimate)
	}
	if out.Resumed != nil {
		env.logger().Info("resumed after interruption", "name", out.Resumed.Name)
	}
	return out, nil
}

// InterruptInput names the interrupting task.
type InterruptInput struct {
	Name       string
	TemplateID string
	PlanID     string
}

// Interrupt pauses the running task for another one and arranges for it to
// resume when that one stops.
func Interrupt(ctx context.Context, env *Env, input InterruptInput) (*plan.InterruptResult, error) {
	var out *plan.InterruptResult
	err := env.mutate(ctx, "interrupt", func(m *plan.Machine, now time.Time) error {
		res, err := m.Interrupt(plan.StartDraft{
			Name:       input.Name,
			TemplateID: input.TemplateID,
			PlanID:     input.PlanID,
		}, now)
		out = res
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Break interrupts the running task with a break.
func Break(ctx context.Context, env *Env) (*plan.InterruptResult, error) {
	var out *plan.InterruptResult
	err := env.mutate(ctx, "break", func(m *plan.Machine, now time.Time) error {
		res, err := m.Break(now)
		out = res
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// QuickNote appends a line to the running task's note.
func QuickNote(ctx context.Context, env *Env, text string) (*plan.ActiveSession, error) {
	var out *plan.ActiveSession
	err := env.mutate(ctx, "quick_note", func(m *plan.Machine, _ time.Time) error {
		a, err := m.AddQuickNote(text)
		out = a
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// StatusOutput describes the timer.
type StatusOutput struct {
	Running     bool                `json:"running"`
	Active      *plan.ActiveSession `json:"active,omitempty"`
	ElapsedSec  int64               `json:"elapsed_sec"`
	Resume      *plan.ResumeIntent  `json:"resume,omitempty"`
	LongRunning bool                `json:"long_running"`
	Now         time.Time           `json:"now"`
}

// Status reports the running task without changing anything.
func Status(ctx context.Context, env *Env) (*StatusOutput, error) {
	m, now, err := env.view(ctx)
	if err != nil {
		return nil, err
	}
	snap := m.Snapshot()
	out := &StatusOutput{Now: now, Resume: snap.Resume}
	if a := snap.Active; a != nil {
		out.Running = true
		out.Active = a
		out.ElapsedSec = int64(a.Elapsed(now) / time.Second)
		threshold := env.config().AlertAfterMin
		out.LongRunning = threshold > 0 && a.Elapsed(now) > time.Duration(threshold)*time.Minute
	}
	return out, nil
}
