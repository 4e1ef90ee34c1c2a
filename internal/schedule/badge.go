package schedule

import (
	"strconv"
	"time"

	"github.com/hpungsan/daychain/internal/plan"
)

// delayMinutes computes the delay badge of a projected entry.
//
// Running items compare their actual start with their fixed time, or with
// the chain position they had before being pinned to now when there is no
// fixed time. Queued items report how far now is past their planned start,
// and never a lead.
func delayMinutes(e Entry, active *plan.ActiveSession, fixed time.Time, hasFixed bool, chained, now time.Time) int {
	if e.Running {
		if active == nil {
			return 0
		}
		ref := chained
		if hasFixed {
			ref = fixed
		}
		return int(roundMinutes(active.StartAt.Sub(ref).Milliseconds()))
	}
	if e.PlannedStart == nil {
		return 0
	}
	return max(0, int(roundMinutes(now.Sub(*e.PlannedStart).Milliseconds())))
}

// Badge is a short label for a delay: "+10" when late, "-5" when ahead, "" on time.
func Badge(delayMin int) string {
	switch {
	case delayMin > 0:
		return "+" + strconv.Itoa(delayMin)
	case delayMin < 0:
		return "-" + strconv.Itoa(-delayMin)
	}
	return ""
}
