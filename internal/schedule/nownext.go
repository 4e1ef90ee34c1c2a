package schedule

import (
	"time"

	"github.com/hpungsan/daychain/internal/plan"
)

// NowNext is the one-line summary of where the day stands.
type NowNext struct {
	Now   *Entry `json:"now,omitempty"`
	Next  *Entry `json:"next,omitempty"`
	After *Entry `json:"after,omitempty"`
	// UpcomingID is the open item with the earliest fixed time not yet passed.
	UpcomingID string `json:"upcoming_id,omitempty"`

	Done         int        `json:"done"`
	Total        int        `json:"total"`
	RemainingMin int        `json:"remaining_min"`
	ETA          *time.Time `json:"eta,omitempty"`
	Bedtime      string     `json:"bedtime,omitempty"`
	BedtimeWarn  bool       `json:"bedtime_warn"`
}

// Summarize picks Now and Next from a projection. While something runs the
// summary is Now plus the next other open item; otherwise Next plus After.
func Summarize(p Projection, loc *time.Location) NowNext {
	out := NowNext{
		Total:        len(p.Entries),
		RemainingMin: p.TotalRemainingMin,
		Bedtime:      p.Bedtime,
		BedtimeWarn:  p.BedtimeExceeded,
	}
	var open []Entry
	for _, e := range p.Entries {
		if e.Status == plan.StatusDone {
			out.Done++
		}
		if e.Status == plan.StatusTodo {
			open = append(open, e)
		}
	}
	for i := range open {
		if open[i].Running {
			e := open[i]
			out.Now = &e
			break
		}
	}
	var rest []Entry
	for _, e := range open {
		if out.Now == nil || e.PlanID != out.Now.PlanID {
			rest = append(rest, e)
		}
	}
	if len(rest) > 0 {
		e := rest[0]
		out.Next = &e
	}
	if out.Now == nil && len(rest) > 1 {
		e := rest[1]
		out.After = &e
	}
	if p.TotalRemainingMin > 0 || out.Now != nil {
		eta := p.ChainEnd
		out.ETA = &eta
	}

	loc = location(loc)
	var best time.Time
	for _, e := range open {
		if e.ScheduledAt == "" {
			continue
		}
		t, ok := fixedTimeOf(p.Day, e.ScheduledAt, loc)
		if !ok || t.Before(p.Now) {
			continue
		}
		if out.UpcomingID == "" || t.Before(best) {
			out.UpcomingID, best = e.PlanID, t
		}
	}
	return out
}
