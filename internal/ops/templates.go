package ops

import (
	"context"
	"time"

	"github.com/hpungsan/daychain/internal/plan"
)

// TemplateInput describes a template. For EditTemplate, nil fields are left
// alone; for AddTemplate nil means the zero value.
type TemplateInput struct {
	ID               string
	Name             *string
	DefaultTags      *[]string
	Color            *string
	IsRoutine        *bool
	RoutineDays      *[]int
	TimeOfDay        *string
	TargetDailyMin   *int
	TargetWeeklyMin  *int
	TargetMonthlyMin *int
}

func (in TemplateInput) draft() plan.TemplateDraft {
	var d plan.TemplateDraft
	if in.Name != nil {
		d.Name = *in.Name
	}
	if in.DefaultTags != nil {
		d.DefaultTags = *in.DefaultTags
	}
	if in.Color != nil {
		d.Color = *in.Color
	}
	if in.IsRoutine != nil {
		d.IsRoutine = *in.IsRoutine
	}
	if in.RoutineDays != nil {
		d.RoutineDays = *in.RoutineDays
	}
	if in.TimeOfDay != nil {
		d.TimeOfDay = *in.TimeOfDay
	}
	if in.TargetDailyMin != nil {
		d.TargetDailyMin = *in.TargetDailyMin
	}
	if in.TargetWeeklyMin != nil {
		d.TargetWeeklyMin = *in.TargetWeeklyMin
	}
	if in.TargetMonthlyMin != nil {
		d.TargetMonthlyMin = *in.TargetMonthlyMin
	}
	return d
}

// AddTemplate creates a template.
func AddTemplate(ctx context.Context, env *Env, input TemplateInput) (*plan.Template, error) {
	var out plan.Template
	err := env.mutate(ctx, "template_add", func(m *plan.Machine, now time.Time) error {
		t, err := m.AddTemplate(input.draft(), now)
		if err != nil {
			return err
		}
		out = *t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// EditTemplate changes a template.
func EditTemplate(ctx context.Context, env *Env, input TemplateInput) (*plan.Template, error) {
	id, err := requireID(input.ID, "id")
	if err != nil {
		return nil, err
	}
	var out plan.Template
	err = env.mutate(ctx, "template_edit", func(m *plan.Machine, _ time.Time) error {
		t, err := m.EditTemplate(id, plan.TemplatePatch{
			Name:             input.Name,
			DefaultTags:      input.DefaultTags,
			Color:            input.Color,
			IsRoutine:        input.IsRoutine,
			RoutineDays:      input.RoutineDays,
			TimeOfDay:        input.TimeOfDay,
			TargetDailyMin:   input.TargetDailyMin,
			TargetWeeklyMin:  input.TargetWeeklyMin,
			TargetMonthlyMin: input.TargetMonthlyMin,
		})
		if err != nil {
			return err
		}
		out = *t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteTemplate removes a template.
func DeleteTemplate(ctx context.Context, env *Env, id string) (*plan.Template, error) {
	id, err := requireID(id, "id")
	if err != nil {
		return nil, err
	}
	var out plan.Template
	err = env.mutate(ctx, "template_delete", func(m *plan.Machine, _ time.Time) error {
		t, err := m.DeleteTemplate(id)
		out = t
		return err
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListTemplatesOutput lists templates in creation order.
type ListTemplatesOutput struct {
	Items []plan.Template `json:"items"`
	Count int             `json:"count"`
}

// ListTemplates returns every template, or only routines.
func ListTemplates(ctx context.Context, env *Env, routinesOnly bool) (*ListTemplatesOutput, error) {
	snap, err := env.load(ctx)
	if err != nil {
		return nil, err
	}
	out := &ListTemplatesOutput{Items: make([]plan.Template, 0, len(snap.Templates))}
	for _, t := range snap.Templates {
		if routinesOnly && !t.IsRoutine {
			continue
		}
		out.Items = append(out.Items, t)
	}
	out.Count = len(out.Items)
	return out, nil
}
