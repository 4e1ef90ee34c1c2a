package ops

import (
	"context"
	"strings"
	"time"

	"github.com/hpungsan/daychain/internal/errors"
	"github.com/hpungsan/daychain/internal/plan"
)

// EditSessionInput edits a closed session. Nil fields are left alone.
type EditSessionInput struct {
	ID      string
	Name    *string
	StartAt *time.Time
	EndAt   *time.Time
	Tags    *[]string
	Note    *string
}

// EditSession rewrites a session and re-derives its duration.
func EditSession(ctx context.Context, env *Env, input EditSessionInput) (*plan.Session, error) {
	id, err := requireID(input.ID, "id")
	if err != nil {
		return nil, err
	}
	var out plan.Session
	err = env.mutate(ctx, "log_edit", func(m *plan.Machine, _ time.Time) error {
		s, err := m.EditSession(id, plan.SessionPatch{
			Name:    input.Name,
			StartAt: input.StartAt,
			EndAt:   input.EndAt,
			Tags:    input.Tags,
			Note:    input.Note,
		})
		if err != nil {
			return err
		}
		out = *s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteSession removes a session. The result can be passed to RestoreSession.
func DeleteSession(ctx context.Context, env *Env, id string) (*plan.Session, error) {
	id, err := requireID(id, "id")
	if err != nil {
		return nil, err
	}
	var out plan.Session
	err = env.mutate(ctx, "log_delete", func(m *plan.Machine, _ time.Time) error {
		s, err := m.DeleteSession(id)
		out = s
		return err
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// RestoreSession re-inserts a deleted session.
func RestoreSession(ctx context.Context, env *Env, s plan.Session) (*plan.Session, error) {
	var out plan.Session
	err := env.mutate(ctx, "log_restore", func(m *plan.Machine, _ time.Time) error {
		restored, err := m.RestoreSession(s)
		if err != nil {
			return err
		}
		out = *restored
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListSessionsInput selects sessions by logical day range and filters.
type ListSessionsInput struct {
	From       string // default: today's logical day
	To         string // inclusive, default: From
	Tag        string
	TemplateID string
	PlanID     string
}

// ListSessionsOutput lists sessions oldest first.
type ListSessionsOutput struct {
	From     string         `json:"from"`
	To       string         `json:"to"`
	Items    []plan.Session `json:"items"`
	Count    int            `json:"count"`
	TotalSec int64          `json:"total_sec"`
}

// ListSessions returns the sessions that started in [From, To].
func ListSessions(ctx context.Context, env *Env, input ListSessionsInput) (*ListSessionsOutput, error) {
	snap, err := env.load(ctx)
	if err != nil {
		return nil, err
	}
	return listSessions(env, snap, input, env.now())
}

func listSessions(env *Env, snap *plan.Snapshot, input ListSessionsInput, now time.Time) (*ListSessionsOutput, error) {
	r := env.resolver()
	from := strings.TrimSpace(input.From)
	if from == "" {
		from = r.LogicalDay(now)
	}
	to := strings.TrimSpace(input.To)
	if to == "" {
		to = from
	}
	for _, d := range []string{from, to} {
		if _, err := env.resolveDay(d, now); err != nil {
			return nil, err
		}
	}
	if to < from {
		return nil, errors.NewValidation("to must not be before from")
	}
	start, _ := r.DayRange(from)
	_, end := r.DayRange(to)

	tag := strings.TrimSpace(input.Tag)
	out := &ListSessionsOutput{From: from, To: to, Items: []plan.Session{}}
	for _, s := range snap.SessionsBetween(start, end) {
		if input.TemplateID != "" && s.TemplateID != input.TemplateID {
			continue
		}
		if input.PlanID != "" && s.PlanID != input.PlanID {
			continue
		}
		if tag != "" && !hasTag(s.Tags, tag) {
			continue
		}
		out.Items = append(out.Items, s)
		out.TotalSec += s.DurationSec
	}
	out.Count = len(out.Items)
	return out, nil
}

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}
