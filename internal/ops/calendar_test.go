package ops

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/daychain/internal/errors"
	"github.com/hpungsan/daychain/internal/plan"
)

func dentist() plan.EventDraft {
	return plan.EventDraft{
		UID:     "evt-1@example.com",
		Summary: "Dentist",
		Start:   at(14, 0),
		End:     at(14, 45),
	}
}

func TestImportCalendar(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	noUID := plan.EventDraft{Start: at(16, 0), End: at(16, 20)}
	backwards := plan.EventDraft{UID: "evt-2", Summary: "Broken", Start: at(12, 0), End: at(11, 0)}

	out, err := ImportCalendar(ctx, env.Env, ImportCalendarInput{Events: []plan.EventDraft{dentist(), noUID, backwards}})
	require.NoError(t, err)
	require.Len(t, out.Imported, 2)

	item := out.Imported[0]
	assert.Equal(t, testDay, item.Day)
	assert.Equal(t, "Dentist", item.Name)
	assert.Equal(t, "14:00", item.ScheduledAt)
	assert.Equal(t, 45, item.EstimateMin)
	assert.Equal(t, plan.EventKey("evt-1@example.com", at(14, 0)), item.ExternalKey)
	assert.Equal(t, plan.EventName, out.Imported[1].Name)
	assert.Empty(t, out.Imported[1].ExternalKey)

	require.Len(t, out.Skipped, 1)
	assert.Equal(t, 2, out.Skipped[0].Index)
	assert.Equal(t, string(errors.ErrValidation), out.Skipped[0].Code)

	// The same occurrence is imported at most once.
	out, err = ImportCalendar(ctx, env.Env, ImportCalendarInput{Events: []plan.EventDraft{dentist()}})
	require.NoError(t, err)
	assert.Empty(t, out.Imported)
	require.Len(t, out.Skipped, 1)
	assert.Equal(t, string(errors.ErrDuplicateEvent), out.Skipped[0].Code)

	// A different occurrence of the same series is new.
	moved := dentist()
	moved.Start = moved.Start.Add(24 * time.Hour)
	moved.End = moved.End.Add(24 * time.Hour)
	out, err = ImportCalendar(ctx, env.Env, ImportCalendarInput{Events: []plan.EventDraft{moved}})
	require.NoError(t, err)
	require.Len(t, out.Imported, 1)
	assert.Equal(t, "2026-10-17", out.Imported[0].Day)

	assert.Len(t, env.snapshot(t).Plans, 3)
}

func TestImportCalendar_FromFile(t *testing.T) {
	env := newTestEnv(t)

	data, err := json.Marshal([]plan.EventDraft{dentist()})
	require.NoError(t, err)
	path := filepath.Join(ExportsDir(env.BaseDir), "calendar.json")
	require.NoError(t, os.WriteFile(path, data, 0600))

	out, err := ImportCalendar(context.Background(), env.Env, ImportCalendarInput{Path: path})
	require.NoError(t, err)
	require.Len(t, out.Imported, 1)
	assert.Equal(t, "Dentist", out.Imported[0].Name)
}

func TestImportCalendar_Errors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := ImportCalendar(ctx, env.Env, ImportCalendarInput{})
	assert.True(t, errors.Is(err, errors.ErrValidation))

	_, err = ImportCalendar(ctx, env.Env, ImportCalendarInput{Path: filepath.Join(ExportsDir(env.BaseDir), "missing.json")})
	assert.True(t, errors.Is(err, errors.ErrFileNotFound))

	bad := filepath.Join(ExportsDir(env.BaseDir), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"uid":"x"}`), 0600))
	_, err = ImportCalendar(ctx, env.Env, ImportCalendarInput{Path: bad})
	assert.True(t, errors.Is(err, errors.ErrValidation))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = ImportCalendar(cancelled, env.Env, ImportCalendarInput{Events: []plan.EventDraft{dentist()}})
	assert.True(t, errors.Is(err, errors.ErrCancelled))
	assert.Empty(t, env.snapshot(t).Plans)
}
