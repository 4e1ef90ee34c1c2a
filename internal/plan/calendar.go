package plan

import (
	"strings"
	"time"

	"github.com/hpungsan/daychain/internal/clock"
	"github.com/hpungsan/daychain/internal/errors"
)

// EventName is used for calendar events without a summary.
const EventName = "Event"

// EventDraft is one expanded calendar occurrence.
type EventDraft struct {
	UID     string    `json:"uid"`
	Summary string    `json:"summary"`
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
}

// EventKey is the duplicate guard: uid plus the UTC start instant.
func EventKey(uid string, start time.Time) string {
	return uid + "|" + start.UTC().Format("20060102T150405Z")
}

// ImportEvent adds an occurrence to the plan of its wall-clock day, scheduled
// at its start time with its length as the estimate. Occurrences with a uid
// are inserted at most once.
func (m *Machine) ImportEvent(ev EventDraft, now time.Time) (*PlanItem, error) {
	if ev.Start.IsZero() || ev.End.IsZero() {
		return nil, errors.NewValidation("event needs start and end")
	}
	if !ev.End.After(ev.Start) {
		return nil, errors.NewValidation("event end must be after start")
	}
	uid := strings.TrimSpace(ev.UID)
	key := ""
	if uid != "" {
		key = EventKey(uid, ev.Start)
		if m.snap.ImportedEvents[key] {
			return nil, errors.NewDuplicateEvent(key)
		}
	}
	loc := m.opts.Resolver.Loc
	if loc == nil {
		loc = time.Local
	}
	start := ev.Start.In(loc)
	name := strings.TrimSpace(ev.Summary)
	if name == "" {
		name = EventName
	}
	item, err := m.AddItem(clock.WallDayKey(start), Draft{
		Name:        name,
		EstimateMin: max(1, int(roundDiv(int64(ev.End.Sub(ev.Start)/time.Second), 60))),
		ScheduledAt: clock.FormatHHMM(start),
		ExternalKey: key,
	}, now)
	if err != nil {
		return nil, err
	}
	if key != "" {
		m.snap.ImportedEvents[key] = true
	}
	return item, nil
}
