package schedule

import (
	"math"
	"sort"

	"github.com/hpungsan/daychain/internal/clock"
	"github.com/hpungsan/daychain/internal/plan"
)

// Range selects the review period ending today.
type Range string

const (
	RangeDay   Range = "day"
	RangeWeek  Range = "week"
	RangeMonth Range = "month"
)

// Valid reports whether r is a known range.
func (r Range) Valid() bool {
	switch r {
	case RangeDay, RangeWeek, RangeMonth:
		return true
	}
	return false
}

// ReviewInput is what Review reads.
type ReviewInput struct {
	Snapshot *plan.Snapshot
	Resolver clock.Resolver
	Range    Range
	// Today is the plan day key the period ends on.
	Today string
	// SeriesDays is the length of the daily error series. Zero means 14.
	SeriesDays int
}

// Budget is a template's weekly or monthly target against tracked time.
type Budget struct {
	Label       string `json:"label"`
	BudgetMin   int    `json:"budget_min"`
	AchievedMin int    `json:"achieved_min"`
	RatePct     int    `json:"rate_pct"`
}

// NameMin is an estimate error aggregated by task name.
type NameMin struct {
	Name string `json:"name"`
	Min  int    `json:"min"`
}

// DailyError is the summed estimate error of one day; positive means the
// estimates were too generous.
type DailyError struct {
	Day     string `json:"day"`
	DiffMin int    `json:"diff_min"`
}

// Total is tracked time under one label.
type Total struct {
	Label string `json:"label"`
	Sec   int64  `json:"sec"`
}

// InterruptStats counts sessions that belong to an interruption group.
type InterruptStats struct {
	Count    int   `json:"count"`
	TotalSec int64 `json:"total_sec"`
}

// Report is the accuracy review of a period.
type Report struct {
	Range         Range          `json:"range"`
	From          string         `json:"from"`
	To            string         `json:"to"`
	Done          int            `json:"done"`
	Total         int            `json:"total"`
	TrackedSec    int64          `json:"tracked_sec"`
	AvgAbsDiffMin int            `json:"avg_abs_diff_min"`
	BiasPct       int            `json:"bias_pct"`
	Interrupts    InterruptStats `json:"interrupts"`
	Budgets       []Budget       `json:"budgets,omitempty"`
	Over          []NameMin      `json:"over,omitempty"`
	Under         []NameMin      `json:"under,omitempty"`
	ByTemplate    []Total        `json:"by_template,omitempty"`
	ByTag         []Total        `json:"by_tag,omitempty"`
	Series        []DailyError   `json:"series"`
}

// PeriodStart returns the first day of the period ending on today. Weeks
// start on Monday.
func PeriodStart(r Range, today string) string {
	switch r {
	case RangeWeek:
		if wd := clock.Weekday(today); wd > 0 {
			return clock.AddDays(today, -wd)
		}
	case RangeMonth:
		if len(today) == len(clock.DayLayout) {
			return today[:8] + "01"
		}
	}
	return today
}

// Review compares estimates with tracked time over the period.
func Review(in ReviewInput) Report {
	snap := in.Snapshot
	from := PeriodStart(in.Range, in.Today)
	out := Report{Range: in.Range, From: from, To: in.Today}
	if !clock.ValidDay(in.Today) {
		return out
	}

	days := make(map[string]bool)
	for d := from; d <= in.Today; d = clock.AddDays(d, 1) {
		days[d] = true
	}
	start, _ := in.Resolver.DayRange(from)
	_, end := in.Resolver.DayRange(in.Today)
	sessions := snap.SessionsBetween(start, end)

	byPlan := make(map[string]int64)
	byTemplate := make(map[string]int64)
	byTag := make(map[string]int64)
	for _, s := range sessions {
		out.TrackedSec += s.DurationSec
		if s.PlanID != "" {
			byPlan[s.PlanID] += s.DurationSec
		}
		if t := snap.Template(s.TemplateID); t != nil {
			byTemplate[t.ID] += s.DurationSec
		}
		for _, tag := range s.Tags {
			byTag[tag] += s.DurationSec
		}
		if s.InterruptGroupID != "" {
			out.Interrupts.Count++
			out.Interrupts.TotalSec += s.DurationSec
		}
	}

	var diffs []int64
	var totalEstSec, biasSec int64
	byName := make(map[string]int64)
	for _, p := range snap.Plans {
		if !days[p.Day] {
			continue
		}
		out.Total++
		if p.Status == plan.StatusDone {
			out.Done++
		}
		if p.EstimateMin <= 0 {
			continue
		}
		estSec := int64(p.EstimateMin) * 60
		diff := estSec - byPlan[p.ID]
		diffs = append(diffs, diff)
		totalEstSec += estSec
		biasSec += diff
		byName[snap.DisplayName(p)] += diff
	}
	if len(diffs) > 0 {
		var sum float64
		for _, d := range diffs {
			sum += math.Abs(float64(d))
		}
		out.AvgAbsDiffMin = int(math.Round(sum / float64(len(diffs)) / 60))
	}
	if totalEstSec > 0 {
		out.BiasPct = int(math.Round(float64(biasSec) / float64(totalEstSec) * 100))
	}
	out.Over, out.Under = topErrors(byName, 3)

	if in.Range == RangeWeek || in.Range == RangeMonth {
		for _, t := range snap.Templates {
			budget := t.TargetWeeklyMin
			if in.Range == RangeMonth {
				budget = t.TargetMonthlyMin
			}
			if budget <= 0 {
				continue
			}
			achieved := float64(byTemplate[t.ID]) / 60
			out.Budgets = append(out.Budgets, Budget{
				Label:       t.Name,
				BudgetMin:   budget,
				AchievedMin: int(math.Round(achieved)),
				RatePct:     int(math.Round(achieved / float64(budget) * 100)),
			})
		}
		sort.SliceStable(out.Budgets, func(i, j int) bool {
			return out.Budgets[i].RatePct > out.Budgets[j].RatePct
		})
	}

	for id, sec := range byTemplate {
		if t := snap.Template(id); t != nil {
			out.ByTemplate = append(out.ByTemplate, Total{Label: t.Name, Sec: sec})
		}
	}
	for tag, sec := range byTag {
		out.ByTag = append(out.ByTag, Total{Label: tag, Sec: sec})
	}
	sortTotals(out.ByTemplate)
	sortTotals(out.ByTag)

	n := in.SeriesDays
	if n <= 0 {
		n = 14
	}
	out.Series = dailyErrors(snap, in.Resolver, in.Today, n)
	return out
}

// topErrors splits per-name errors into overruns and underruns, largest
// first, at most n each.
func topErrors(byName map[string]int64, n int) (over, under []NameMin) {
	type kv struct {
		name string
		sec  int64
	}
	var all []kv
	for name, sec := range byName {
		all = append(all, kv{name, sec})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].sec != all[j].sec {
			return all[i].sec < all[j].sec
		}
		return all[i].name < all[j].name
	})
	for _, e := range all {
		if e.sec < 0 && len(over) < n {
			over = append(over, NameMin{Name: e.name, Min: int(math.Round(float64(-e.sec) / 60))})
		}
	}
	for i := len(all) - 1; i >= 0; i-- {
		if e := all[i]; e.sec > 0 && len(under) < n {
			under = append(under, NameMin{Name: e.name, Min: int(math.Round(float64(e.sec) / 60))})
		}
	}
	return over, under
}

func sortTotals(ts []Total) {
	sort.Slice(ts, func(i, j int) bool {
		if ts[i].Sec != ts[j].Sec {
			return ts[i].Sec > ts[j].Sec
		}
		return ts[i].Label < ts[j].Label
	})
}

// dailyErrors sums estimate minus tracked time per day for the n days ending today.
func dailyErrors(snap *plan.Snapshot, r clock.Resolver, today string, n int) []DailyError {
	out := make([]DailyError, 0, n)
	for i := n - 1; i >= 0; i-- {
		day := clock.AddDays(today, -i)
		from, to := r.DayRange(day)
		byPlan := make(map[string]int64)
		for _, s := range snap.SessionsBetween(from, to) {
			if s.PlanID != "" {
				byPlan[s.PlanID] += s.DurationSec
			}
		}
		var total int64
		for _, p := range snap.Plans {
			if p.Day == day {
				total += int64(p.EstimateMin)*60 - byPlan[p.ID]
			}
		}
		out = append(out, DailyError{Day: day, DiffMin: int(math.Round(float64(total) / 60))})
	}
	return out
}
