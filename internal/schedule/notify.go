package schedule

import (
	"fmt"
	"time"

	"github.com/hpungsan/daychain/internal/plan"
)

// Kind is a notification signal kind.
type Kind string

const (
	KindPre5    Kind = "pre5"
	KindStart   Kind = "start"
	KindOverdue Kind = "overdue"
)

// Signal is one notification that became due.
type Signal struct {
	Key               string `json:"key"`
	Kind              Kind   `json:"kind"`
	Day               string `json:"day"`
	PlanID            string `json:"plan_id"`
	Name              string `json:"name"`
	ScheduledAt       string `json:"scheduled_at"`
	MinutesUntilStart int    `json:"minutes_until_start"`
}

// SignalKey is the dedupe key of a signal.
func SignalKey(day, planID string, kind Kind) string {
	return fmt.Sprintf("%s:%s:%s", day, planID, kind)
}

// MinutesUntilStart returns whole minutes from now to p's fixed time, rounded.
// Items without a fixed time report false.
func MinutesUntilStart(p plan.PlanItem, now time.Time, loc *time.Location) (int, bool) {
	t, ok := fixedTime(p, location(loc))
	if !ok {
		return 0, false
	}
	return int(roundMinutes(t.Sub(now).Milliseconds())), true
}

// DueSignals lists the signals of open fixed-time items that are due at now
// and not yet in fired. The caller records the keys it delivers.
func DueSignals(items []plan.PlanItem, now time.Time, loc *time.Location, fired map[string]bool) []Signal {
	var out []Signal
	for _, p := range plan.Sorted(items) {
		if p.Status != plan.StatusTodo {
			continue
		}
		mins, ok := MinutesUntilStart(p, now, loc)
		if !ok {
			continue
		}
		var kind Kind
		switch {
		case mins == 5:
			kind = KindPre5
		case mins == 0:
			kind = KindStart
		case mins < 0:
			kind = KindOverdue
		default:
			continue
		}
		key := SignalKey(p.Day, p.ID, kind)
		if fired[key] {
			continue
		}
		out = append(out, Signal{
			Key:               key,
			Kind:              kind,
			Day:               p.Day,
			PlanID:            p.ID,
			Name:              p.Name,
			ScheduledAt:       p.ScheduledAt,
			MinutesUntilStart: mins,
		})
	}
	return out
}
