package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/daychain/internal/errors"
)

func TestAddItem_AppendsWithNextOrder(t *testing.T) {
	m := newTestMachine(t)
	a := mustAdd(t, m, Draft{Name: "Email", EstimateMin: 15})
	b := mustAdd(t, m, Draft{Name: "Report", EstimateMin: 30, ScheduledAt: "09:00"})

	assert.Equal(t, 1, a.Order)
	assert.Equal(t, 2, b.Order)
	assert.Equal(t, StatusTodo, b.Status)
	assert.Equal(t, testDay, b.Day)
}

func TestAddItem_Validation(t *testing.T) {
	m := newTestMachine(t)
	tests := []struct {
		name string
		day  string
		d    Draft
		code errors.ErrorCode
	}{
		{"no name no template", testDay, Draft{EstimateMin: 10}, errors.ErrValidation},
		{"blank name", testDay, Draft{Name: "   "}, errors.ErrValidation},
		{"bad time", testDay, Draft{Name: "x", ScheduledAt: "9am"}, errors.ErrValidation},
		{"negative estimate", testDay, Draft{Name: "x", EstimateMin: -5}, errors.ErrValidation},
		{"bad day", "16/10/2026", Draft{Name: "x"}, errors.ErrValidation},
		{"unknown template", testDay, Draft{TemplateID: "missing"}, errors.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.AddItem(tt.day, tt.d, at(8, 0))
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.code), "got %v", err)
		})
	}
	assert.Empty(t, m.snap.Plans)
}

func TestAddItem_TemplateSuppliesName(t *testing.T) {
	m := newTestMachine(t)
	tpl, err := m.AddTemplate(TemplateDraft{Name: "Standup"}, at(8, 0))
	require.NoError(t, err)

	p := mustAdd(t, m, Draft{TemplateID: tpl.ID, EstimateMin: 15})
	assert.Equal(t, "Standup", p.Name)
}

func TestCompleteAndSkip_Idempotent(t *testing.T) {
	m := newTestMachine(t)
	p := mustAdd(t, m, Draft{Name: "Email"})

	_, err := m.Complete(p.ID)
	require.NoError(t, err)
	done, err := m.Complete(p.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusDone, done.Status)

	q := mustAdd(t, m, Draft{Name: "Read"})
	_, err = m.Skip(q.ID)
	require.NoError(t, err)
	skipped, err := m.Skip(q.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusSkipped, skipped.Status)
	assert.Equal(t, StatusTodo, skipped.PrevStatus)

	restored, err := m.UndoSkip(q.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusTodo, restored.Status)
	assert.Empty(t, restored.PrevStatus)
}

func TestSkip_UndoRestoresDone(t *testing.T) {
	m := newTestMachine(t)
	p := mustAdd(t, m, Draft{Name: "Email"})
	_, _ = m.Complete(p.ID)
	_, _ = m.Skip(p.ID)

	restored, err := m.UndoSkip(p.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusDone, restored.Status)
}

func TestMissingItem_NotFound(t *testing.T) {
	m := newTestMachine(t)
	_, err := m.Complete("nope")
	assert.True(t, errors.Is(err, errors.ErrNotFound))
	_, err = m.Skip("nope")
	assert.True(t, errors.Is(err, errors.ErrNotFound))
	_, err = m.AdjustEstimate("nope", 5)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestAdjustEstimate_ClampsAtZero(t *testing.T) {
	m := newTestMachine(t)
	p := mustAdd(t, m, Draft{Name: "Email", EstimateMin: 10})

	got, err := m.AdjustEstimate(p.ID, -25)
	require.NoError(t, err)
	assert.Equal(t, 0, got.EstimateMin)

	got, err = m.AdjustEstimate(p.ID, 15)
	require.NoError(t, err)
	assert.Equal(t, 15, got.EstimateMin)
}

func TestSplitRemaining_ScenarioC(t *testing.T) {
	m := newTestMachine(t)
	p := mustAdd(t, m, Draft{Name: "Write report", EstimateMin: 40, ScheduledAt: "10:00"})
	addSession(m, p.ID, "", at(9, 0), 15)

	orig, sibling, err := m.SplitRemaining(p.ID, at(9, 20))
	require.NoError(t, err)

	assert.Equal(t, 13, orig.EstimateMin)
	assert.Equal(t, 12, sibling.EstimateMin)
	assert.Equal(t, 25, orig.EstimateMin+sibling.EstimateMin)
	assert.Equal(t, "Write report", sibling.Name)
	assert.Equal(t, "10:00", sibling.ScheduledAt)
	assert.Equal(t, StatusTodo, sibling.Status)
	assert.Equal(t, orig.Order+1, sibling.Order)
}

func TestSplitRemaining_PreservesTotal(t *testing.T) {
	for _, est := range []int{1, 2, 3, 10, 25, 61} {
		m := newTestMachine(t)
		p := mustAdd(t, m, Draft{Name: "x", EstimateMin: est})
		orig, sibling, err := m.SplitRemaining(p.ID, at(9, 0))
		require.NoError(t, err)
		assert.Equal(t, est, orig.EstimateMin+sibling.EstimateMin, "estimate %d", est)
		assert.GreaterOrEqual(t, sibling.EstimateMin, 1)
	}
}

func TestSplitRemaining_NothingLeft(t *testing.T) {
	m := newTestMachine(t)
	p := mustAdd(t, m, Draft{Name: "x", EstimateMin: 20})
	addSession(m, p.ID, "", at(9, 0), 25)

	_, _, err := m.SplitRemaining(p.ID, at(9, 30))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNothingToSplit))
	assert.Len(t, m.snap.Plans, 1)

	z := mustAdd(t, m, Draft{Name: "zero"})
	_, _, err = m.SplitRemaining(z.ID, at(9, 30))
	assert.True(t, errors.Is(err, errors.ErrNothingToSplit))
}

func TestReorder(t *testing.T) {
	m := newTestMachine(t)
	a := mustAdd(t, m, Draft{Name: "a"})
	b := mustAdd(t, m, Draft{Name: "b"})
	c := mustAdd(t, m, Draft{Name: "c"})
	other, err := m.AddItem("2026-10-17", Draft{Name: "other"}, at(8, 0))
	require.NoError(t, err)

	out := m.Reorder(testDay, []string{c.ID, other.ID, "ghost", a.ID})

	require.Len(t, out, 3)
	assert.Equal(t, []string{c.ID, a.ID, b.ID}, []string{out[0].ID, out[1].ID, out[2].ID})
	assert.Equal(t, 1, m.snap.Plan(c.ID).Order)
	assert.Equal(t, 2, m.snap.Plan(a.ID).Order)
	assert.Equal(t, 3, m.snap.Plan(b.ID).Order)
	assert.Equal(t, 1, m.snap.Plan(other.ID).Order, "other day untouched")
}

func TestMove(t *testing.T) {
	m := newTestMachine(t)
	a := mustAdd(t, m, Draft{Name: "a"})
	b := mustAdd(t, m, Draft{Name: "b"})

	_, err := m.Move(b.ID, -1)
	require.NoError(t, err)
	assert.Equal(t, 1, m.snap.Plan(b.ID).Order)
	assert.Equal(t, 2, m.snap.Plan(a.ID).Order)

	_, err = m.Move(b.ID, -1)
	require.NoError(t, err)
	assert.Equal(t, 1, m.snap.Plan(b.ID).Order, "moving past the top is a no-op")
}

func TestRollover_CopiesIncomplete(t *testing.T) {
	m := newTestMachine(t)
	done := mustAdd(t, m, Draft{Name: "done", EstimateMin: 10})
	_, _ = m.Complete(done.ID)
	todo := mustAdd(t, m, Draft{Name: "todo", EstimateMin: 20, ScheduledAt: "14:00"})
	skipped := mustAdd(t, m, Draft{Name: "skipped", EstimateMin: 5})
	_, _ = m.Skip(skipped.ID)

	tomorrow := "2026-10-17"
	existing, err := m.AddItem(tomorrow, Draft{Name: "already"}, at(8, 0))
	require.NoError(t, err)

	created, err := m.Rollover(testDay, tomorrow, at(18, 0))
	require.NoError(t, err)
	require.Len(t, created, 2)

	assert.Equal(t, "todo", created[0].Name)
	assert.Equal(t, 20, created[0].EstimateMin)
	assert.Equal(t, "14:00", created[0].ScheduledAt)
	assert.Equal(t, StatusTodo, created[1].Status)
	assert.Equal(t, existing.Order+1, created[0].Order)
	assert.NotEqual(t, todo.ID, created[0].ID)

	assert.Equal(t, StatusSkipped, m.snap.Plan(skipped.ID).Status, "originals untouched")
	assert.Len(t, m.snap.PlansForDay(testDay), 3)
}

func TestEditItem(t *testing.T) {
	m := newTestMachine(t)
	p := mustAdd(t, m, Draft{Name: "a", EstimateMin: 10})

	name, est, when := "renamed", 45, "13:30"
	got, err := m.EditItem(p.ID, Patch{Name: &name, EstimateMin: &est, ScheduledAt: &when})
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Name)
	assert.Equal(t, 45, got.EstimateMin)
	assert.Equal(t, "13:30", got.ScheduledAt)

	bad := "25:00"
	_, err = m.EditItem(p.ID, Patch{ScheduledAt: &bad})
	assert.True(t, errors.Is(err, errors.ErrValidation))
	assert.Equal(t, "13:30", m.snap.Plan(p.ID).ScheduledAt)

	day := "2026-10-18"
	got, err = m.EditItem(p.ID, Patch{Day: &day})
	require.NoError(t, err)
	assert.Equal(t, day, got.Day)
	assert.Equal(t, 1, got.Order)
}

func TestEnsureRoutines(t *testing.T) {
	m := newTestMachine(t)
	daily, err := m.AddTemplate(TemplateDraft{Name: "Standup", IsRoutine: true, TimeOfDay: "09:30", TargetDailyMin: 15}, at(7, 0))
	require.NoError(t, err)
	_, err = m.AddTemplate(TemplateDraft{Name: "Weekly review", IsRoutine: true, RoutineDays: []int{0}}, at(7, 0))
	require.NoError(t, err)
	friday, err := m.AddTemplate(TemplateDraft{Name: "Timesheet", IsRoutine: true, RoutineDays: []int{4}}, at(7, 0))
	require.NoError(t, err)
	_, err = m.AddTemplate(TemplateDraft{Name: "Ad hoc"}, at(7, 0))
	require.NoError(t, err)

	added, err := m.EnsureRoutines(testDay, at(7, 0))
	require.NoError(t, err)
	require.Len(t, added, 2)
	assert.Equal(t, daily.ID, added[0].TemplateID)
	assert.Equal(t, 15, added[0].EstimateMin)
	assert.Equal(t, "09:30", added[0].ScheduledAt)
	assert.True(t, added[0].AutoInjected)
	assert.Equal(t, friday.ID, added[1].TemplateID)

	again, err := m.EnsureRoutines(testDay, at(7, 5))
	require.NoError(t, err)
	assert.Empty(t, again, "already-present templates are not re-injected")
}

func TestDeleteInjectedRoutine_Suppresses(t *testing.T) {
	m := newTestMachine(t)
	_, err := m.AddTemplate(TemplateDraft{Name: "Standup", IsRoutine: true}, at(7, 0))
	require.NoError(t, err)
	added, err := m.EnsureRoutines(testDay, at(7, 0))
	require.NoError(t, err)
	require.Len(t, added, 1)

	removed, err := m.DeleteItem(added[0].ID)
	require.NoError(t, err)

	again, err := m.EnsureRoutines(testDay, at(7, 5))
	require.NoError(t, err)
	assert.Empty(t, again)

	_, err = m.RestoreItem(removed)
	require.NoError(t, err)
	assert.False(t, m.snap.Suppressed(testDay, removed.TemplateID))
	assert.NotNil(t, m.snap.Plan(removed.ID))
}

func TestSuppressRoutine(t *testing.T) {
	m := newTestMachine(t)
	tpl, err := m.AddTemplate(TemplateDraft{Name: "Standup", IsRoutine: true}, at(7, 0))
	require.NoError(t, err)
	_, err = m.EnsureRoutines(testDay, at(7, 0))
	require.NoError(t, err)

	removed, err := m.SuppressRoutine(testDay, tpl.ID, true)
	require.NoError(t, err)
	assert.Len(t, removed, 1)
	assert.Empty(t, m.snap.PlansForDay(testDay))

	_, err = m.SuppressRoutine(testDay, tpl.ID, false)
	require.NoError(t, err)
	added, err := m.EnsureRoutines(testDay, at(7, 5))
	require.NoError(t, err)
	assert.Len(t, added, 1)
}

func TestImportEvent_DuplicateGuard(t *testing.T) {
	m := newTestMachine(t)
	ev := EventDraft{UID: "abc@cal", Summary: "Dentist", Start: at(15, 0), End: at(15, 45)}

	p, err := m.ImportEvent(ev, at(8, 0))
	require.NoError(t, err)
	assert.Equal(t, "15:00", p.ScheduledAt)
	assert.Equal(t, 45, p.EstimateMin)
	assert.Equal(t, testDay, p.Day)
	assert.Equal(t, "abc@cal|20261016T150000Z", p.ExternalKey)

	_, err = m.ImportEvent(ev, at(8, 1))
	assert.True(t, errors.Is(err, errors.ErrDuplicateEvent))
	assert.Len(t, m.snap.Plans, 1)

	ev.Start, ev.End = at(16, 0), at(16, 30)
	_, err = m.ImportEvent(ev, at(8, 2))
	assert.NoError(t, err, "another occurrence of the same uid is a new key")
}

func TestParseWeekdays(t *testing.T) {
	days, err := ParseWeekdays("mon, wed,Fri")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2, 4}, days)

	days, err = ParseWeekdays("every")
	require.NoError(t, err)
	assert.Nil(t, days)

	days, err = ParseWeekdays("6,0")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 6}, days)

	_, err = ParseWeekdays("someday")
	assert.True(t, errors.Is(err, errors.ErrValidation))
}

func TestLess_OrdersByTimeThenOrder(t *testing.T) {
	items := []PlanItem{
		{ID: "loose2", Order: 2},
		{ID: "late", ScheduledAt: "14:00", Order: 1},
		{ID: "loose1", Order: 1},
		{ID: "early", ScheduledAt: "09:00", Order: 5},
		{ID: "early-tie", ScheduledAt: "09:00", Order: 3},
	}
	Sort(items)
	var ids []string
	for _, p := range items {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{"early-tie", "early", "late", "loose1", "loose2"}, ids)
}
