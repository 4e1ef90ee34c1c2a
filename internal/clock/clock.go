// Package clock converts instants into day keys and HH:MM wall times.
package clock

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
)

// DayLayout is the format of a day key.
const DayLayout = "2006-01-02"

// Clock supplies the current instant.
type Clock interface {
	Now() time.Time
}

// System reads the wall clock in Loc (local time when nil).
type System struct {
	Loc *time.Location
}

// Now implements Clock.
func (s System) Now() time.Time {
	if s.Loc == nil {
		return time.Now()
	}
	return time.Now().In(s.Loc)
}

// Fixed is a manually driven clock for tests and replays.
type Fixed struct {
	mu sync.Mutex
	t  time.Time
}

// NewFixed returns a clock stopped at t.
func NewFixed(t time.Time) *Fixed {
	return &Fixed{t: t}
}

// Now implements Clock.
func (f *Fixed) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

// Set moves the clock to t.
func (f *Fixed) Set(t time.Time) {
	f.mu.Lock()
	f.t = t
	f.mu.Unlock()
}

// Advance moves the clock forward by d.
func (f *Fixed) Advance(d time.Duration) {
	f.mu.Lock()
	f.t = f.t.Add(d)
	f.mu.Unlock()
}

// DayKey returns the calendar date of t after subtracting boundaryHour hours,
// so that with a boundary of 3, 02:00 still belongs to the previous day.
func DayKey(t time.Time, boundaryHour int) string {
	return t.Add(-time.Duration(boundaryHour) * time.Hour).Format(DayLayout)
}

// WallDayKey returns the calendar date of t, ignoring any boundary.
func WallDayKey(t time.Time) string {
	return t.Format(DayLayout)
}

// ParseDay parses a day key as midnight in loc.
func ParseDay(day string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(DayLayout, day, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid day %q: want YYYY-MM-DD", day)
	}
	return t, nil
}

// ValidDay reports whether day is a YYYY-MM-DD key.
func ValidDay(day string) bool {
	_, err := time.Parse(DayLayout, day)
	return err == nil
}

// AddDays shifts a day key by n calendar days.
func AddDays(day string, n int) string {
	t, err := time.Parse(DayLayout, day)
	if err != nil {
		return day
	}
	return t.AddDate(0, 0, n).Format(DayLayout)
}

// Weekday returns the weekday of a day key with Monday=0 through Sunday=6.
func Weekday(day string) int {
	t, err := time.Parse(DayLayout, day)
	if err != nil {
		return -1
	}
	return (int(t.Weekday()) + 6) % 7
}

// ParseHHMM splits "H:MM" or "HH:MM" into hours and minutes.
func ParseHHMM(s string) (h, m int, ok bool) {
	hs, ms, found := strings.Cut(strings.TrimSpace(s), ":")
	if !found || len(ms) != 2 || len(hs) < 1 || len(hs) > 2 {
		return 0, 0, false
	}
	h, err := strconv.Atoi(hs)
	if err != nil || h < 0 || h > 23 {
		return 0, 0, false
	}
	m, err = strconv.Atoi(ms)
	if err != nil || m < 0 || m > 59 {
		return 0, 0, false
	}
	return h, m, true
}

// ValidHHMM reports whether s parses as a wall time.
func ValidHHMM(s string) bool {
	_, _, ok := ParseHHMM(s)
	return ok
}

// Minutes returns minutes since midnight for an HH:MM string.
func Minutes(s string) (int, bool) {
	h, m, ok := ParseHHMM(s)
	if !ok {
		return 0, false
	}
	return h*60 + m, true
}

// FormatHHMM renders t's wall time as HH:MM.
func FormatHHMM(t time.Time) string {
	return t.Format("15:04")
}

// At returns the instant of hhmm on day in loc.
func At(day, hhmm string, loc *time.Location) (time.Time, bool) {
	h, m, ok := ParseHHMM(hhmm)
	if !ok {
		return time.Time{}, false
	}
	d, err := ParseDay(day, loc)
	if err != nil {
		return time.Time{}, false
	}
	return time.Date(d.Year(), d.Month(), d.Day(), h, m, 0, 0, d.Location()), true
}

// Resolver maps instants to logical and plan day keys.
type Resolver struct {
	BoundaryHour int
	// ApplyToPlan makes PlanDay honor BoundaryHour; otherwise plans use wall dates.
	ApplyToPlan bool
	Loc         *time.Location
}

func (r Resolver) loc() *time.Location {
	if r.Loc == nil {
		return time.Local
	}
	return r.Loc
}

// LogicalDay is the boundary-aware day key of t.
func (r Resolver) LogicalDay(t time.Time) string {
	return DayKey(t.In(r.loc()), r.BoundaryHour)
}

// PlanDay is the day key whose plan is current at t.
func (r Resolver) PlanDay(t time.Time) string {
	if r.ApplyToPlan {
		return r.LogicalDay(t)
	}
	return WallDayKey(t.In(r.loc()))
}

// StartOfLogicalDay returns the instant the logical day containing t began.
func (r Resolver) StartOfLogicalDay(t time.Time) time.Time {
	start, _ := r.DayRange(r.LogicalDay(t))
	return start
}

// DayRange returns the [start, end) instants of a logical day.
func (r Resolver) DayRange(day string) (time.Time, time.Time) {
	return r.rangeFor(day, r.BoundaryHour)
}

// PlanRange returns the [start, end) instants covered by a plan day.
func (r Resolver) PlanRange(day string) (time.Time, time.Time) {
	if r.ApplyToPlan {
		return r.rangeFor(day, r.BoundaryHour)
	}
	return r.rangeFor(day, 0)
}

func (r Resolver) rangeFor(day string, boundary int) (time.Time, time.Time) {
	d, err := ParseDay(day, r.loc())
	if err != nil {
		return time.Time{}, time.Time{}
	}
	start := time.Date(d.Year(), d.Month(), d.Day(), boundary, 0, 0, 0, d.Location())
	end := time.Date(d.Year(), d.Month(), d.Day()+1, boundary, 0, 0, 0, d.Location())
	return start, end
}
