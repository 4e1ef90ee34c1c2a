package plan

// LearnResult records one estimate adjustment.
type LearnResult struct {
	PlanID      string `json:"plan_id"`
	ActualMin   int    `json:"actual_min"`
	OldEstimate int    `json:"old_estimate"`
	NewEstimate int    `json:"new_estimate"`
	TemplateID  string `json:"template_id,omitempty"`
	OldTarget   int    `json:"old_target,omitempty"`
	NewTarget   int    `json:"new_target,omitempty"`
}

// Learn smooths an estimate toward an observed duration:
// round(0.3*actual + 0.7*old), snapped to the nearest 5 minutes, floored at 0.
func Learn(old, actualMin int) int {
	old = max(0, old)
	raw := roundDiv(int64(3*actualMin+7*old), 10)
	return max(0, int(roundDiv(raw, 5))*5)
}

// ActualMinutes converts a session duration to whole minutes, at least 1.
func ActualMinutes(durationSec int64) int {
	return max(1, int(roundDiv(durationSec, 60)))
}

// learn adjusts the plan row matched to a and mirrors the smoothing onto its
// template's daily target.
func (m *Machine) learn(a *ActiveSession, durationSec int64, day string) *LearnResult {
	p := m.matchToday(a, day)
	if p == nil {
		return nil
	}
	actual := ActualMinutes(durationSec)
	res := &LearnResult{PlanID: p.ID, ActualMin: actual, OldEstimate: p.EstimateMin}
	res.NewEstimate = Learn(p.EstimateMin, actual)
	p.EstimateMin = res.NewEstimate

	if t := m.snap.Template(p.TemplateID); t != nil {
		res.TemplateID = t.ID
		res.OldTarget = t.TargetDailyMin
		res.NewTarget = Learn(t.TargetDailyMin, actual)
		t.TargetDailyMin = res.NewTarget
	}
	m.log.Debug("estimate learned", "plan_id", res.PlanID, "actual_min", actual,
		"old", res.OldEstimate, "new", res.NewEstimate)
	return res
}
