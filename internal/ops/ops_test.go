package ops

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/daychain/internal/config"
	"github.com/hpungsan/daychain/internal/errors"
)

func TestMutate_RejectedOperationSavesNothing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.addPlan(t, "Write", 30, "")

	_, err := Start(ctx, env.Env, StartInput{PlanID: p.ID})
	require.NoError(t, err)

	// Switch=false while running is a CONFLICT; the running task is untouched.
	_, err = Start(ctx, env.Env, StartInput{Name: "Other"})
	assert.True(t, errors.Is(err, errors.ErrConflict))

	snap := env.snapshot(t)
	require.NotNil(t, snap.Active)
	assert.Equal(t, "Write", snap.Active.Name)
	assert.Empty(t, snap.Sessions)
}

func TestMutate_ValidationLeavesStoreEmpty(t *testing.T) {
	env := newTestEnv(t)

	_, err := AddPlan(context.Background(), env.Env, AddPlanInput{Name: "x", ScheduledAt: "25:00"})
	assert.True(t, errors.Is(err, errors.ErrValidation))
	assert.Empty(t, env.snapshot(t).Plans)
}

func TestResolveDay(t *testing.T) {
	env := newTestEnv(t)

	day, err := env.resolveDay("", at(9, 0))
	require.NoError(t, err)
	assert.Equal(t, testDay, day)

	day, err = env.resolveDay(" 2026-10-17 ", at(9, 0))
	require.NoError(t, err)
	assert.Equal(t, "2026-10-17", day)

	_, err = env.resolveDay("16/10/2026", at(9, 0))
	assert.True(t, errors.Is(err, errors.ErrValidation))
}

func TestResolveDay_BoundaryAppliesToPlan(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) {
		c.DayBoundaryHour = 3
		c.ApplyBoundaryToPlan = true
	})
	day, err := env.resolveDay("", at(2, 0).Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, testDay, day)

	wall := newTestEnv(t, func(c *config.Config) { c.DayBoundaryHour = 3 })
	day, err = wall.resolveDay("", at(2, 0).Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, "2026-10-17", day)
}

func TestStoreFailuresSurfaceAsInternal(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.DB.Close())

	_, err := Today(ctx, env.Env, TodayInput{})
	assert.True(t, errors.Is(err, errors.ErrInternal), "load: %v", err)

	_, err = AddPlan(ctx, env.Env, AddPlanInput{Name: "Write", EstimateMin: 30})
	assert.True(t, errors.Is(err, errors.ErrInternal), "mutate: %v", err)
}

func TestStoreErr(t *testing.T) {
	err := storeErr(fmt.Errorf("sqlite: disk I/O error"))
	assert.True(t, errors.Is(err, errors.ErrInternal))
	assert.NotContains(t, err.Error(), "disk I/O")

	cancelled := errors.NewCancelled("load")
	assert.Same(t, cancelled, storeErr(cancelled))
}
