package schedule

import (
	"math"
	"time"

	"github.com/hpungsan/daychain/internal/clock"
)

// Level grades capacity slack.
type Level string

const (
	LevelOK   Level = "ok"
	LevelWarn Level = "warn"
	LevelOver Level = "over"
)

// Window is the configured working day.
type Window struct {
	WorkStart  string
	WorkEnd    string
	LunchStart string
	LunchEnd   string
	// LunchMin is deducted when no lunch window is set.
	LunchMin int
}

// Capacity compares the time left in the working day with the estimate left.
type Capacity struct {
	Configured           bool  `json:"configured"`
	CapacityMin          int   `json:"capacity_min"`
	RemainingCapacityMin int   `json:"remaining_capacity_min"`
	RemainingEstimateMin int   `json:"remaining_estimate_min"`
	SlackMin             int   `json:"slack_min"`
	Level                Level `json:"level"`
}

type block struct{ start, end time.Time }

func (b block) minutes(from time.Time) int {
	if from.Before(b.start) {
		from = b.start
	}
	if !b.end.After(from) {
		return 0
	}
	return int(roundMinutes(b.end.Sub(from).Milliseconds()))
}

// EvaluateCapacity is stateless: it needs only the window, the day, now and
// the projection's remaining minutes. An unset work window yields
// Configured=false and level ok.
func EvaluateCapacity(w Window, day string, now time.Time, remainingMin int, loc *time.Location) Capacity {
	loc = location(loc)
	out := Capacity{RemainingEstimateMin: remainingMin, Level: LevelOK}
	start, okStart := clock.At(day, w.WorkStart, loc)
	end, okEnd := clock.At(day, w.WorkEnd, loc)
	if !okStart || !okEnd {
		return out
	}
	out.Configured = true

	blocks := []block{{start, end}}
	lunchStart, okLS := clock.At(day, w.LunchStart, loc)
	lunchEnd, okLE := clock.At(day, w.LunchEnd, loc)
	hasLunchWindow := okLS && okLE
	if hasLunchWindow {
		blocks = blocks[:0]
		if lunchStart.After(start) {
			blocks = append(blocks, block{start, minTime(lunchStart, end)})
		}
		if lunchEnd.Before(end) {
			blocks = append(blocks, block{maxTime(lunchEnd, start), end})
		}
	}

	for _, b := range blocks {
		out.CapacityMin += b.minutes(b.start)
		out.RemainingCapacityMin += b.minutes(now)
	}
	if !hasLunchWindow {
		lunch := max(0, w.LunchMin)
		out.CapacityMin -= lunch
		out.RemainingCapacityMin = max(0, out.RemainingCapacityMin-lunch)
	}

	out.SlackMin = out.RemainingCapacityMin - remainingMin
	threshold := max(15, int(math.Round(float64(out.CapacityMin)*0.1)))
	switch {
	case out.SlackMin < 0:
		out.Level = LevelOver
	case out.SlackMin < threshold:
		out.Level = LevelWarn
	}
	return out
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}
