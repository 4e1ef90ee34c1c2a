package plan

import (
	"strings"
	"time"

	"github.com/hpungsan/daychain/internal/clock"
	"github.com/hpungsan/daychain/internal/errors"
)

// Draft describes a new plan item.
type Draft struct {
	Name        string
	TemplateID  string
	EstimateMin int
	ScheduledAt string
	ExternalKey string
}

// Patch edits a plan item. Nil fields are left alone.
type Patch struct {
	Name        *string
	EstimateMin *int
	ScheduledAt *string
	Day         *string
}

func (m *Machine) validateDraft(day string, d *Draft) error {
	if !clock.ValidDay(day) {
		return errors.NewValidation("day must be YYYY-MM-DD")
	}
	d.Name = strings.TrimSpace(d.Name)
	d.TemplateID = strings.TrimSpace(d.TemplateID)
	d.ScheduledAt = strings.TrimSpace(d.ScheduledAt)
	if d.Name == "" && d.TemplateID == "" {
		return errors.NewValidation("name or template is required")
	}
	if d.EstimateMin < 0 {
		return errors.NewValidation("estimate must not be negative")
	}
	if d.ScheduledAt != "" && !clock.ValidHHMM(d.ScheduledAt) {
		return errors.NewValidation("scheduled time must be HH:MM")
	}
	if d.TemplateID != "" {
		t := m.snap.Template(d.TemplateID)
		if t == nil {
			return errors.NewNotFound("template", d.TemplateID)
		}
		if d.Name == "" {
			d.Name = t.Name
		}
	}
	return nil
}

// AddItem appends a todo item to day with the next order key.
func (m *Machine) AddItem(day string, d Draft, now time.Time) (*PlanItem, error) {
	if err := m.validateDraft(day, &d); err != nil {
		return nil, err
	}
	item := PlanItem{
		ID:          NewID(now),
		Day:         day,
		TemplateID:  d.TemplateID,
		Name:        d.Name,
		EstimateMin: d.EstimateMin,
		ScheduledAt: d.ScheduledAt,
		Status:      StatusTodo,
		Order:       m.snap.NextOrder(day),
		ExternalKey: d.ExternalKey,
	}
	m.snap.Plans = append(m.snap.Plans, item)
	return m.snap.Plan(item.ID), nil
}

func (m *Machine) item(id string) (*PlanItem, error) {
	p := m.snap.Plan(id)
	if p == nil {
		return nil, errors.NewNotFound("plan item", id)
	}
	return p, nil
}

// Complete marks an item done. Completing a done item is a no-op.
func (m *Machine) Complete(id string) (*PlanItem, error) {
	p, err := m.item(id)
	if err != nil {
		return nil, err
	}
	p.Status = StatusDone
	return p, nil
}

// Skip marks an item skipped and remembers its previous status for UndoSkip.
func (m *Machine) Skip(id string) (*PlanItem, error) {
	p, err := m.item(id)
	if err != nil {
		return nil, err
	}
	if p.Status == StatusSkipped {
		return p, nil
	}
	p.PrevStatus = p.Status
	p.Status = StatusSkipped
	return p, nil
}

// UndoSkip restores the status an item had before it was skipped.
func (m *Machine) UndoSkip(id string) (*PlanItem, error) {
	p, err := m.item(id)
	if err != nil {
		return nil, err
	}
	if p.Status != StatusSkipped {
		return p, nil
	}
	p.Status = p.PrevStatus
	if !p.Status.Valid() || p.Status == StatusSkipped {
		p.Status = StatusTodo
	}
	p.PrevStatus = ""
	return p, nil
}

// AdjustEstimate adds delta minutes, clamping at zero.
func (m *Machine) AdjustEstimate(id string, delta int) (*PlanItem, error) {
	p, err := m.item(id)
	if err != nil {
		return nil, err
	}
	p.EstimateMin = max(0, p.EstimateMin+delta)
	return p, nil
}

// RemainingMin returns estimate minus minutes logged against the item's own
// plan link on its day, floored at zero.
func (m *Machine) RemainingMin(p PlanItem) int {
	from, to := m.opts.Resolver.PlanRange(p.Day)
	var spent int64
	for _, s := range m.snap.SessionsBetween(from, to) {
		if s.PlanID == p.ID {
			spent += s.DurationSec
		}
	}
	return max(0, p.EstimateMin-int(roundDiv(spent, 60)))
}

// SplitRemaining halves an item's remaining minutes. The new sibling gets
// max(1, floor(remaining/2)) and is appended to the same day; the original
// keeps the rest.
func (m *Machine) SplitRemaining(id string, now time.Time) (*PlanItem, *PlanItem, error) {
	p, err := m.item(id)
	if err != nil {
		return nil, nil, err
	}
	remaining := m.RemainingMin(*p)
	if remaining <= 0 {
		return nil, nil, errors.NewNothingToSplit(id, remaining)
	}
	half := max(1, remaining/2)
	p.EstimateMin = remaining - half

	sibling := PlanItem{
		ID:          NewID(now),
		Day:         p.Day,
		TemplateID:  p.TemplateID,
		Name:        p.Name,
		EstimateMin: half,
		ScheduledAt: p.ScheduledAt,
		Status:      StatusTodo,
		Order:       m.snap.NextOrder(p.Day),
	}
	origID := p.ID
	m.snap.Plans = append(m.snap.Plans, sibling)
	return m.snap.Plan(origID), m.snap.Plan(sibling.ID), nil
}

// Reorder rewrites order keys 1..N for day following ids. Ids from other days
// or unknown ids are ignored; items of the day missing from ids keep their
// relative order after the listed ones.
func (m *Machine) Reorder(day string, ids []string) []PlanItem {
	var rows []*PlanItem
	byID := make(map[string]*PlanItem)
	for i := range m.snap.Plans {
		if m.snap.Plans[i].Day == day {
			rows = append(rows, &m.snap.Plans[i])
			byID[m.snap.Plans[i].ID] = &m.snap.Plans[i]
		}
	}
	sortByOrder(rows)

	placed := make(map[string]bool)
	var seq []*PlanItem
	for _, id := range ids {
		if p, ok := byID[id]; ok && !placed[id] {
			placed[id] = true
			seq = append(seq, p)
		}
	}
	for _, p := range rows {
		if !placed[p.ID] {
			seq = append(seq, p)
		}
	}
	out := make([]PlanItem, 0, len(seq))
	for i, p := range seq {
		p.Order = i + 1
		out = append(out, *p)
	}
	return out
}

// Move swaps an item's order key with its neighbour delta positions away.
// Moving past either end is a no-op.
func (m *Machine) Move(id string, delta int) (*PlanItem, error) {
	p, err := m.item(id)
	if err != nil {
		return nil, err
	}
	var rows []*PlanItem
	for i := range m.snap.Plans {
		if m.snap.Plans[i].Day == p.Day {
			rows = append(rows, &m.snap.Plans[i])
		}
	}
	sortByOrder(rows)
	idx := -1
	for i, r := range rows {
		if r.ID == id {
			idx = i
			break
		}
	}
	j := idx + delta
	if idx < 0 || j < 0 || j >= len(rows) {
		return p, nil
	}
	rows[idx].Order, rows[j].Order = rows[j].Order, rows[idx].Order
	if rows[idx].Order == rows[j].Order {
		// Equal keys would make the swap invisible; renumber the day first.
		for k, r := range rows {
			r.Order = k + 1
		}
		rows[idx].Order, rows[j].Order = rows[j].Order, rows[idx].Order
	}
	return m.snap.Plan(id), nil
}

// Rollover copies every non-done item of from into to as fresh todo items.
// The originals are left as they are.
func (m *Machine) Rollover(from, to string, now time.Time) ([]PlanItem, error) {
	if !clock.ValidDay(from) || !clock.ValidDay(to) {
		return nil, errors.NewValidation("day must be YYYY-MM-DD")
	}
	src := m.snap.PlansForDay(from)
	var sorted []*PlanItem
	for i := range src {
		sorted = append(sorted, &src[i])
	}
	sortByOrder(sorted)

	order := m.snap.NextOrder(to) - 1
	var created []PlanItem
	for _, p := range sorted {
		if p.Status == StatusDone {
			continue
		}
		order++
		created = append(created, PlanItem{
			ID:          NewID(now),
			Day:         to,
			TemplateID:  p.TemplateID,
			Name:        p.Name,
			EstimateMin: p.EstimateMin,
			ScheduledAt: p.ScheduledAt,
			Status:      StatusTodo,
			Order:       order,
		})
	}
	m.snap.Plans = append(m.snap.Plans, created...)
	return created, nil
}

// EditItem applies patch. Moving an item to another day appends it there.
func (m *Machine) EditItem(id string, patch Patch) (*PlanItem, error) {
	p, err := m.item(id)
	if err != nil {
		return nil, err
	}
	next := *p
	if patch.Name != nil {
		next.Name = strings.TrimSpace(*patch.Name)
		if next.Name == "" && next.TemplateID == "" {
			return nil, errors.NewValidation("name or template is required")
		}
	}
	if patch.EstimateMin != nil {
		if *patch.EstimateMin < 0 {
			return nil, errors.NewValidation("estimate must not be negative")
		}
		next.EstimateMin = *patch.EstimateMin
	}
	if patch.ScheduledAt != nil {
		at := strings.TrimSpace(*patch.ScheduledAt)
		if at != "" && !clock.ValidHHMM(at) {
			return nil, errors.NewValidation("scheduled time must be HH:MM")
		}
		next.ScheduledAt = at
	}
	if patch.Day != nil && *patch.Day != p.Day {
		if !clock.ValidDay(*patch.Day) {
			return nil, errors.NewValidation("day must be YYYY-MM-DD")
		}
		next.Day = *patch.Day
		next.Order = m.snap.NextOrder(next.Day)
	}
	*p = next
	return p, nil
}

// DeleteItem removes an item and returns it for RestoreItem. Deleting an
// injected routine suppresses that routine for the day.
func (m *Machine) DeleteItem(id string) (PlanItem, error) {
	p, ok := m.snap.removePlan(id)
	if !ok {
		return PlanItem{}, errors.NewNotFound("plan item", id)
	}
	if p.AutoInjected && p.TemplateID != "" && !m.snap.Suppressed(p.Day, p.TemplateID) {
		m.snap.Suppressions[p.Day] = append(m.snap.Suppressions[p.Day], p.TemplateID)
	}
	return p, nil
}

// RestoreItem re-inserts a deleted item and lifts any suppression its delete added.
func (m *Machine) RestoreItem(p PlanItem) (*PlanItem, error) {
	if p.ID == "" || !clock.ValidDay(p.Day) {
		return nil, errors.NewValidation("restored item needs an id and a day")
	}
	if m.snap.Plan(p.ID) != nil {
		return nil, errors.NewConflict("plan item already exists: " + p.ID)
	}
	if !p.Status.Valid() {
		p.Status = StatusTodo
	}
	if p.AutoInjected {
		m.setSuppressed(p.Day, p.TemplateID, false)
	}
	m.snap.Plans = append(m.snap.Plans, p)
	return m.snap.Plan(p.ID), nil
}

// SuppressRoutine toggles a routine's suppression for day. Suppressing removes
// the template's items already on that day and returns them.
func (m *Machine) SuppressRoutine(day, templateID string, on bool) ([]PlanItem, error) {
	if !clock.ValidDay(day) {
		return nil, errors.NewValidation("day must be YYYY-MM-DD")
	}
	if m.snap.Template(templateID) == nil {
		return nil, errors.NewNotFound("template", templateID)
	}
	m.setSuppressed(day, templateID, on)
	if !on {
		return nil, nil
	}
	var removed []PlanItem
	kept := m.snap.Plans[:0]
	for _, p := range m.snap.Plans {
		if p.Day == day && p.TemplateID == templateID {
			removed = append(removed, p)
			continue
		}
		kept = append(kept, p)
	}
	m.snap.Plans = kept
	return removed, nil
}

func (m *Machine) setSuppressed(day, templateID string, on bool) {
	list := m.snap.Suppressions[day]
	var next []string
	for _, id := range list {
		if id != templateID {
			next = append(next, id)
		}
	}
	if on {
		next = append(next, templateID)
	}
	if len(next) == 0 {
		delete(m.snap.Suppressions, day)
		return
	}
	m.snap.Suppressions[day] = next
}

// EnsureRoutines injects every routine template due on day's weekday that is
// neither suppressed nor already present. It returns the injected items.
func (m *Machine) EnsureRoutines(day string, now time.Time) ([]PlanItem, error) {
	if !clock.ValidDay(day) {
		return nil, errors.NewValidation("day must be YYYY-MM-DD")
	}
	weekday := clock.Weekday(day)
	present := make(map[string]bool)
	for _, p := range m.snap.Plans {
		if p.Day == day && p.TemplateID != "" {
			present[p.TemplateID] = true
		}
	}
	order := m.snap.NextOrder(day) - 1
	var added []PlanItem
	for _, t := range m.snap.Templates {
		if !t.RecursOn(weekday) || present[t.ID] || m.snap.Suppressed(day, t.ID) {
			continue
		}
		order++
		added = append(added, PlanItem{
			ID:           NewID(now),
			Day:          day,
			TemplateID:   t.ID,
			Name:         t.Name,
			EstimateMin:  t.TargetDailyMin,
			ScheduledAt:  t.TimeOfDay,
			Status:       StatusTodo,
			Order:        order,
			AutoInjected: true,
		})
	}
	m.snap.Plans = append(m.snap.Plans, added...)
	return added, nil
}
