package plan

import "math"

// Matches reports whether plan item p is the one the active timer is running.
// Priority: explicit plan link, else template id, else exact name. A lower
// priority key is consulted only when every higher one is absent on the timer.
//
// The projector, the Now/Next summary, auto-complete and estimate learning
// all use this function so they agree on which row is running.
func Matches(a *ActiveSession, p PlanItem) bool {
	if a == nil {
		return false
	}
	switch {
	case a.PlanID != "":
		return p.ID == a.PlanID
	case a.TemplateID != "":
		return p.TemplateID == a.TemplateID
	default:
		return p.Name != "" && p.Name == a.Name
	}
}

// FindMatch returns the index of the first item in items matching a, or -1.
func FindMatch(items []PlanItem, a *ActiveSession) int {
	for i, p := range items {
		if Matches(a, p) {
			return i
		}
	}
	return -1
}

// Spent sums session durations per plan id and per template id.
type Spent struct {
	ByPlan     map[string]int64
	ByTemplate map[string]int64
}

// SumSpent tallies sessions.
func SumSpent(sessions []Session) Spent {
	sp := Spent{ByPlan: make(map[string]int64), ByTemplate: make(map[string]int64)}
	for _, s := range sessions {
		if s.PlanID != "" {
			sp.ByPlan[s.PlanID] += s.DurationSec
		}
		if s.TemplateID != "" {
			sp.ByTemplate[s.TemplateID] += s.DurationSec
		}
	}
	return sp
}

// For returns seconds spent on p: by plan link, falling back to its template
// when nothing is linked to the row itself.
func (sp Spent) For(p PlanItem) int64 {
	sec := sp.ByPlan[p.ID]
	if sec == 0 && p.TemplateID != "" {
		sec = sp.ByTemplate[p.TemplateID]
	}
	return sec
}

// roundDiv rounds n/d half away from zero.
func roundDiv(n, d int64) int64 {
	return int64(math.Round(float64(n) / float64(d)))
}
