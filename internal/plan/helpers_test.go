package plan

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/daychain/internal/clock"
)

const testDay = "2026-10-16" // a Friday

func at(h, m int) time.Time {
	return time.Date(2026, 10, 16, h, m, 0, 0, time.UTC)
}

func newTestMachine(t *testing.T, tweak ...func(*Options)) *Machine {
	t.Helper()
	opts := Options{
		Resolver:   clock.Resolver{Loc: time.UTC},
		SuffixMode: SuffixNumeric,
	}
	for _, fn := range tweak {
		fn(&opts)
	}
	return NewMachine(NewSnapshot(), opts, nil)
}

func mustAdd(t *testing.T, m *Machine, d Draft) PlanItem {
	t.Helper()
	p, err := m.AddItem(testDay, d, at(8, 0))
	require.NoError(t, err)
	return *p
}

func addSession(m *Machine, planID, templateID string, start time.Time, minutes int) {
	m.snap.Sessions = append(m.snap.Sessions, Session{
		ID:          NewID(start),
		Name:        "logged",
		StartAt:     start,
		EndAt:       start.Add(time.Duration(minutes) * time.Minute),
		DurationSec: int64(minutes * 60),
		PlanID:      planID,
		TemplateID:  templateID,
	})
}
