package ops

import (
	"context"
	"time"

	"github.com/hpungsan/daychain/internal/clock"
	"github.com/hpungsan/daychain/internal/errors"
	"github.com/hpungsan/daychain/internal/plan"
)

// AddPlanInput contains parameters for the AddPlan operation.
type AddPlanInput struct {
	Day         string // default: today's plan day
	Name        string
	TemplateID  string
	EstimateMin int
	ScheduledAt string
}

// AddPlan appends an item to a day's plan.
func AddPlan(ctx context.Context, env *Env, input AddPlanInput) (*plan.PlanItem, error) {
	var out *plan.PlanItem
	err := env.mutate(ctx, "plan_add", func(m *plan.Machine, now time.Time) error {
		day, err := env.resolveDay(input.Day, now)
		if err != nil {
			return err
		}
		p, err := m.AddItem(day, plan.Draft{
			Name:        input.Name,
			TemplateID:  input.TemplateID,
			EstimateMin: input.EstimateMin,
			ScheduledAt: input.ScheduledAt,
		}, now)
		out = p
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// EditPlanInput edits a plan item. Nil fields are left alone.
type EditPlanInput struct {
	ID          string
	Name        *string
	EstimateMin *int
	ScheduledAt *string
	Day         *string
}

// EditPlan changes an item's name, estimate, fixed time or day.
func EditPlan(ctx context.Context, env *Env, input EditPlanInput) (*plan.PlanItem, error) {
	return withItem(ctx, env, "plan_edit", input.ID, func(m *plan.Machine, id string) (*plan.PlanItem, error) {
		return m.EditItem(id, plan.Patch{
			Name:        input.Name,
			EstimateMin: input.EstimateMin,
			ScheduledAt: input.ScheduledAt,
			Day:         input.Day,
		})
	})
}

// CompletePlan marks an item done.
func CompletePlan(ctx context.Context, env *Env, id string) (*plan.PlanItem, error) {
	return withItem(ctx, env, "plan_complete", id, func(m *plan.Machine, id string) (*plan.PlanItem, error) {
		return m.Complete(id)
	})
}

// SkipPlan marks an item skipped.
func SkipPlan(ctx context.Context, env *Env, id string) (*plan.PlanItem, error) {
	return withItem(ctx, env, "plan_skip", id, func(m *plan.Machine, id string) (*plan.PlanItem, error) {
		return m.Skip(id)
	})
}

// UndoSkip restores the status an item had before it was skipped.
func UndoSkip(ctx context.Context, env *Env, id string) (*plan.PlanItem, error) {
	return withItem(ctx, env, "plan_unskip", id, func(m *plan.Machine, id string) (*plan.PlanItem, error) {
		return m.UndoSkip(id)
	})
}

// AdjustEstimate adds delta minutes to an item's estimate, floored at zero.
func AdjustEstimate(ctx context.Context, env *Env, id string, delta int) (*plan.PlanItem, error) {
	return withItem(ctx, env, "plan_estimate", id, func(m *plan.Machine, id string) (*plan.PlanItem, error) {
		return m.AdjustEstimate(id, delta)
	})
}

// MovePlan swaps an item with its neighbour delta positions away.
func MovePlan(ctx context.Context, env *Env, id string, delta int) (*plan.PlanItem, error) {
	if delta == 0 {
		return nil, errors.NewValidation("delta must not be zero")
	}
	return withItem(ctx, env, "plan_move", id, func(m *plan.Machine, id string) (*plan.PlanItem, error) {
		return m.Move(id, delta)
	})
}

// DeletePlan removes an item. The returned item can be passed to RestorePlan.
func DeletePlan(ctx context.Context, env *Env, id string) (*plan.PlanItem, error) {
	return withItem(ctx, env, "plan_delete", id, func(m *plan.Machine, id string) (*plan.PlanItem, error) {
		p, err := m.DeleteItem(id)
		if err != nil {
			return nil, err
		}
		return &p, nil
	})
}

// RestorePlan re-inserts a deleted item.
func RestorePlan(ctx context.Context, env *Env, item plan.PlanItem) (*plan.PlanItem, error) {
	var out *plan.PlanItem
	err := env.mutate(ctx, "plan_restore", func(m *plan.Machine, _ time.Time) error {
		p, err := m.RestoreItem(item)
		out = p
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SplitOutput is the result of SplitPlan.
type SplitOutput struct {
	Original plan.PlanItem `json:"original"`
	Sibling  plan.PlanItem `json:"sibling"`
}

// SplitPlan halves an item's remaining minutes into a new sibling.
func SplitPlan(ctx context.Context, env *Env, id string) (*SplitOutput, error) {
	id, err := requireID(id, "id")
	if err != nil {
		return nil, err
	}
	var out *SplitOutput
	err = env.mutate(ctx, "plan_split", func(m *plan.Machine, now time.Time) error {
		orig, sib, err := m.SplitRemaining(id, now)
		if err != nil {
			return err
		}
		out = &SplitOutput{Original: *orig, Sibling: *sib}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ReorderInput contains parameters for the ReorderPlan operation.
type ReorderInput struct {
	Day string
	IDs []string
}

// ReorderPlan renumbers a day's items in the given sequence.
func ReorderPlan(ctx context.Context, env *Env, input ReorderInput) ([]plan.PlanItem, error) {
	if len(input.IDs) == 0 {
		return nil, errors.NewValidation("ids are required")
	}
	var out []plan.PlanItem
	err := env.mutate(ctx, "plan_reorder", func(m *plan.Machine, now time.Time) error {
		day, err := env.resolveDay(input.Day, now)
		if err != nil {
			return err
		}
		out = m.Reorder(day, input.IDs)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return plan.Sorted(out), nil
}

// RolloverInput contains parameters for the Rollover operation.
type RolloverInput struct {
	From string // default: yesterday
	To   string // default: today
}

// Rollover copies unfinished items of one day into another.
func Rollover(ctx context.Context, env *Env, input RolloverInput) ([]plan.PlanItem, error) {
	var out []plan.PlanItem
	err := env.mutate(ctx, "plan_rollover", func(m *plan.Machine, now time.Time) error {
		to, err := env.resolveDay(input.To, now)
		if err != nil {
			return err
		}
		from := input.From
		if from == "" {
			from = clock.AddDays(to, -1)
		}
		if from == to {
			return errors.NewValidation("from and to must differ")
		}
		out, err = m.Rollover(from, to, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// PlanRoutines injects due routines into a day. It defaults to tomorrow, the
// "plan tomorrow" button; today's routines are injected by Today and Tick.
func PlanRoutines(ctx context.Context, env *Env, day string) ([]plan.PlanItem, error) {
	var out []plan.PlanItem
	err := env.apply(ctx, "plan_routines", func(m *plan.Machine, now time.Time) (bool, error) {
		target := day
		if target == "" {
			target = clock.AddDays(env.resolver().PlanDay(now), 1)
		}
		target, err := env.resolveDay(target, now)
		if err != nil {
			return false, err
		}
		out, err = m.EnsureRoutines(target, now)
		return len(out) > 0, err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SuppressInput contains parameters for the SuppressRoutine operation.
type SuppressInput struct {
	Day        string
	TemplateID string
	Off        bool // lift the suppression instead
}

// SuppressRoutine stops a routine from being injected on a day, removing its
// rows there, or lifts that.
func SuppressRoutine(ctx context.Context, env *Env, input SuppressInput) ([]plan.PlanItem, error) {
	tplID, err := requireID(input.TemplateID, "template_id")
	if err != nil {
		return nil, err
	}
	var out []plan.PlanItem
	err = env.mutate(ctx, "plan_suppress", func(m *plan.Machine, now time.Time) error {
		day, err := env.resolveDay(input.Day, now)
		if err != nil {
			return err
		}
		out, err = m.SuppressRoutine(day, tplID, !input.Off)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListPlanOutput is a day's plan in display order.
type ListPlanOutput struct {
	Day   string    `json:"day"`
	Items []PlanRow `json:"items"`
	Count int       `json:"count"`
	Done  int       `json:"done"`
}

// PlanRow is a plan item with its tracked time.
type PlanRow struct {
	plan.PlanItem
	DisplayName  string `json:"display_name"`
	SpentSec     int64  `json:"spent_sec"`
	RemainingMin int    `json:"remaining_min"`
	Running      bool   `json:"running"`
}

// ListPlan returns a day's items sorted by fixed time, then order.
func ListPlan(ctx context.Context, env *Env, day string) (*ListPlanOutput, error) {
	m, now, err := env.view(ctx)
	if err != nil {
		return nil, err
	}
	day, err = env.resolveDay(day, now)
	if err != nil {
		return nil, err
	}
	snap := m.Snapshot()
	from, to := env.resolver().PlanRange(day)
	spent := plan.SumSpent(snap.SessionsBetween(from, to))
	items := plan.Sorted(snap.PlansForDay(day))
	running := -1
	for i, p := range items {
		if p.Status == plan.StatusTodo && plan.Matches(snap.Active, p) {
			running = i
			break
		}
	}

	out := &ListPlanOutput{Day: day, Items: make([]PlanRow, 0, len(items)), Count: len(items)}
	for i, p := range items {
		if p.Status == plan.StatusDone {
			out.Done++
		}
		out.Items = append(out.Items, PlanRow{
			PlanItem:     p,
			DisplayName:  snap.DisplayName(p),
			SpentSec:     spent.For(p),
			RemainingMin: m.RemainingMin(p),
			Running:      i == running,
		})
	}
	return out, nil
}

// withItem runs a single-item mutation and returns the item it produced.
func withItem(ctx context.Context, env *Env, op, id string, fn func(m *plan.Machine, id string) (*plan.PlanItem, error)) (*plan.PlanItem, error) {
	id, err := requireID(id, "id")
	if err != nil {
		return nil, err
	}
	var out plan.PlanItem
	err = env.mutate(ctx, op, func(m *plan.Machine, _ time.Time) error {
		p, err := fn(m, id)
		if err != nil {
			return err
		}
		out = *p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
