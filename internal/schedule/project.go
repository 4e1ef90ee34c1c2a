// Package schedule derives time-dependent views from a plan snapshot: the
// chained schedule projection, delay badges, the Now/Next summary, capacity,
// notification signals and the accuracy review. Everything here is a pure
// function of its inputs; nothing is cached between calls.
package schedule

import (
	"time"

	"github.com/hpungsan/daychain/internal/clock"
	"github.com/hpungsan/daychain/internal/plan"
)

// Base selects where the projection sweep starts.
type Base string

const (
	// BaseNow starts the chain at the current instant.
	BaseNow Base = "now"
	// BaseFirstScheduled starts the chain at the earliest fixed time still
	// ahead, or now if that has passed.
	BaseFirstScheduled Base = "first-scheduled"
)

// Input is everything the projector reads.
type Input struct {
	Day      string
	Plans    []plan.PlanItem
	Sessions []plan.Session
	Active   *plan.ActiveSession
	Now      time.Time
	Base     Base
	Loc      *time.Location
	// Bedtime (HH:MM) is optional. Times before noon are read as after midnight.
	Bedtime string
}

// Entry is the projection of one plan item.
type Entry struct {
	PlanID      string      `json:"plan_id"`
	Name        string      `json:"name"`
	Status      plan.Status `json:"status"`
	ScheduledAt string      `json:"scheduled_at,omitempty"`
	EstimateMin int         `json:"estimate_min"`
	SpentSec    int64       `json:"spent_sec"`

	// Projected is false for done, zero-estimate and fully spent items.
	Projected    bool       `json:"projected"`
	PlannedStart *time.Time `json:"planned_start,omitempty"`
	PlannedEnd   *time.Time `json:"planned_end,omitempty"`
	RemainingMs  int64      `json:"remaining_ms"`
	Running      bool       `json:"running"`

	// DelayMin is positive when late, negative when running ahead of schedule.
	DelayMin int `json:"delay_min"`
	// Overdue is set when the item can no longer start at its fixed time.
	Overdue bool `json:"overdue"`
}

// Projection is the chained schedule of one day.
type Projection struct {
	Day               string    `json:"day"`
	Now               time.Time `json:"now"`
	Base              Base      `json:"base"`
	ChainEnd          time.Time `json:"chain_end"`
	Entries           []Entry   `json:"entries"`
	TotalRemainingMin int       `json:"total_remaining_min"`
	Bedtime           string    `json:"bedtime,omitempty"`
	BedtimeExceeded   bool      `json:"bedtime_exceeded"`
}

// Entry returns the projection of planID.
func (p *Projection) Entry(planID string) (Entry, bool) {
	for _, e := range p.Entries {
		if e.PlanID == planID {
			return e, true
		}
	}
	return Entry{}, false
}

func location(loc *time.Location) *time.Location {
	if loc == nil {
		return time.Local
	}
	return loc
}

// fixedTime resolves an item's HH:MM on its own day.
func fixedTime(p plan.PlanItem, loc *time.Location) (time.Time, bool) {
	return fixedTimeOf(p.Day, p.ScheduledAt, loc)
}

func fixedTimeOf(day, hhmm string, loc *time.Location) (time.Time, bool) {
	if hhmm == "" {
		return time.Time{}, false
	}
	return clock.At(day, hhmm, loc)
}

// Project runs one left-to-right sweep over the day's items in plan order.
// Each remaining item starts at the later of the cursor and its fixed time;
// the running item is pinned to now with its elapsed time deducted. The
// cursor ends up at the chain end.
func Project(in Input) Projection {
	loc := location(in.Loc)
	base := in.Base
	if base == "" {
		base = BaseNow
	}
	now := in.Now
	spent := plan.SumSpent(in.Sessions)
	items := plan.Sorted(in.Plans)

	remaining := make([]int64, len(items))
	for i, p := range items {
		remaining[i] = max(0, int64(max(0, p.EstimateMin))*60000-spent.For(p)*1000)
	}
	running := runningIndex(items, in.Active)
	// Done items and zero estimates drop out; skipped items keep their slot.
	// A fully spent running item still anchors the chain at now.
	projectable := func(i int) bool {
		p := items[i]
		if p.Status == plan.StatusDone || p.EstimateMin <= 0 {
			return false
		}
		return remaining[i] > 0 || i == running
	}

	cursor := now
	if base == BaseFirstScheduled {
		var first time.Time
		for i, p := range items {
			if !projectable(i) {
				continue
			}
			if t, ok := fixedTime(p, loc); ok && (first.IsZero() || t.Before(first)) {
				first = t
			}
		}
		if first.After(cursor) {
			cursor = first
		}
	}

	out := Projection{Day: in.Day, Now: now, Base: base, Bedtime: in.Bedtime}
	out.Entries = make([]Entry, 0, len(items))
	chainEnd := now
	for i, p := range items {
		e := Entry{
			PlanID:      p.ID,
			Name:        p.Name,
			Status:      p.Status,
			ScheduledAt: p.ScheduledAt,
			EstimateMin: p.EstimateMin,
			SpentSec:    spent.For(p),
			Running:     i == running,
		}
		if !projectable(i) {
			out.Entries = append(out.Entries, e)
			continue
		}
		fixed, hasFixed := fixedTime(p, loc)
		rem := remaining[i]
		var start time.Time
		chained := cursor
		if hasFixed && fixed.After(chained) {
			chained = fixed
		}
		if i == running {
			rem = max(0, rem-in.Active.Elapsed(now).Milliseconds())
			start = now
		} else {
			start = chained
		}
		end := start.Add(time.Duration(rem) * time.Millisecond)
		e.Projected = true
		e.PlannedStart = &start
		e.PlannedEnd = &end
		e.RemainingMs = rem
		e.DelayMin = delayMinutes(e, in.Active, fixed, hasFixed, cursor, now)
		if hasFixed {
			actual := start
			if e.Running {
				actual = in.Active.StartAt
			}
			e.Overdue = actual.After(fixed)
		}
		cursor = end
		chainEnd = end
		out.TotalRemainingMin += int(roundMinutes(rem))
		out.Entries = append(out.Entries, e)
	}
	out.ChainEnd = chainEnd
	if bt, ok := bedtimeOn(in.Day, in.Bedtime, loc); ok {
		out.BedtimeExceeded = out.ChainEnd.After(bt)
	}
	return out
}

// runningIndex finds the todo item the timer is running. Done or skipped
// items are ignored so a finished split sibling never claims the timer.
func runningIndex(items []plan.PlanItem, a *plan.ActiveSession) int {
	if a == nil {
		return -1
	}
	for i, p := range items {
		if p.Status == plan.StatusTodo && plan.Matches(a, p) {
			return i
		}
	}
	return -1
}

// bedtimeOn resolves bedtime on day. Times before noon belong to the next
// calendar date.
func bedtimeOn(day, hhmm string, loc *time.Location) (time.Time, bool) {
	if hhmm == "" {
		return time.Time{}, false
	}
	mins, ok := clock.Minutes(hhmm)
	if !ok {
		return time.Time{}, false
	}
	if mins < 12*60 {
		day = clock.AddDays(day, 1)
	}
	return clock.At(day, hhmm, loc)
}

// roundMinutes rounds milliseconds to whole minutes, half away from zero.
func roundMinutes(ms int64) int64 {
	if ms < 0 {
		return -roundMinutes(-ms)
	}
	return (ms + 30000) / 60000
}
