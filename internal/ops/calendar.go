package ops

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hpungsan/daychain/internal/errors"
	"github.com/hpungsan/daychain/internal/plan"
)

// ImportCalendarInput supplies expanded calendar occurrences, inline or as
// a JSON array file.
type ImportCalendarInput struct {
	Events []plan.EventDraft
	Path   string
}

// CalendarSkip reports an occurrence that was not imported.
type CalendarSkip struct {
	Index   int    `json:"index"`
	UID     string `json:"uid,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ImportCalendarOutput is the result of ImportCalendar.
type ImportCalendarOutput struct {
	Imported []plan.PlanItem `json:"imported"`
	Skipped  []CalendarSkip  `json:"skipped"`
}

// ImportCalendar adds occurrences as fixed-time plan items. Duplicates and
// invalid occurrences are skipped and reported; the rest are saved together.
func ImportCalendar(ctx context.Context, env *Env, input ImportCalendarInput) (*ImportCalendarOutput, error) {
	events := input.Events
	if input.Path != "" {
		fromFile, err := readEventFile(env, input.Path)
		if err != nil {
			return nil, err
		}
		events = append(events, fromFile...)
	}
	if len(events) == 0 {
		return nil, errors.NewValidation("events or path is required")
	}

	out := &ImportCalendarOutput{Imported: []plan.PlanItem{}, Skipped: []CalendarSkip{}}
	err := env.apply(ctx, "calendar_import", func(m *plan.Machine, now time.Time) (bool, error) {
		for i, ev := range events {
			if err := ctx.Err(); err != nil {
				return false, errors.NewCancelled("calendar import")
			}
			p, err := m.ImportEvent(ev, now)
			if err != nil {
				dErr, ok := errors.As(err)
				if !ok {
					return false, errors.NewInternal(err)
				}
				out.Skipped = append(out.Skipped, CalendarSkip{
					Index: i, UID: ev.UID, Code: string(dErr.Code), Message: dErr.Message,
				})
				continue
			}
			out.Imported = append(out.Imported, *p)
		}
		return len(out.Imported) > 0, nil
	})
	if err != nil {
		return nil, err
	}
	if len(out.Skipped) > 0 {
		env.logger().Info("calendar import skipped events", "skipped", len(out.Skipped), "imported", len(out.Imported))
	}
	return out, nil
}

func readEventFile(env *Env, path string) ([]plan.EventDraft, error) {
	if err := ValidatePath(path, PathCheckRead, env.config(), env.BaseDir); err != nil {
		return nil, err
	}
	f, err := openFileNoFollowRead(path)
	if err != nil {
		if _, ok := errors.As(err); ok {
			return nil, err
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to open calendar file: %w", err))
	}
	defer f.Close()

	var events []plan.EventDraft
	if err := json.NewDecoder(f).Decode(&events); err != nil {
		return nil, errors.NewValidation(fmt.Sprintf("calendar file must be a JSON array of events: %v", err))
	}
	return events, nil
}
