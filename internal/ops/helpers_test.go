package ops

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/daychain/internal/clock"
	"github.com/hpungsan/daychain/internal/config"
	"github.com/hpungsan/daychain/internal/db"
	"github.com/hpungsan/daychain/internal/logging"
	"github.com/hpungsan/daychain/internal/plan"
)

// testDay is a Friday.
const testDay = "2026-10-16"

func at(h, m int) time.Time {
	return time.Date(2026, 10, 16, h, m, 0, 0, time.UTC)
}

type testEnv struct {
	*Env
	clock *clock.Fixed
}

func newTestEnv(t *testing.T, tweak ...func(*config.Config)) *testEnv {
	t.Helper()
	tmpDir := t.TempDir()
	database, err := db.Init(tmpDir)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	cfg := config.DefaultConfig()
	cfg.Timezone = "UTC"
	for _, fn := range tweak {
		fn(cfg)
	}
	require.NoError(t, cfg.Validate())

	fixed := clock.NewFixed(at(8, 0))
	return &testEnv{
		Env: &Env{
			DB:      database,
			Config:  cfg,
			Clock:   fixed,
			Logger:  logging.Discard(),
			BaseDir: tmpDir,
		},
		clock: fixed,
	}
}

func (e *testEnv) snapshot(t *testing.T) *plan.Snapshot {
	t.Helper()
	snap, err := db.LoadSnapshot(context.Background(), e.DB)
	require.NoError(t, err)
	return snap
}

func (e *testEnv) addPlan(t *testing.T, name string, est int, sched string) plan.PlanItem {
	t.Helper()
	p, err := AddPlan(context.Background(), e.Env, AddPlanInput{Name: name, EstimateMin: est, ScheduledAt: sched})
	require.NoError(t, err)
	return *p
}

func ptr[T any](v T) *T {
	return &v
}
