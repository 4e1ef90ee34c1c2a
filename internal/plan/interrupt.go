package plan

import (
	"fmt"
	"strings"
	"time"

	"github.com/hpungsan/daychain/internal/errors"
)

// BreakName is the task name Break starts.
const BreakName = "Break"

// Suffix modes for resumed segments.
const (
	SuffixNumeric = "numeric"
	SuffixHalf    = "half"
)

// InterruptResult reports the closed base segment, the interrupting task and
// the pending resume.
type InterruptResult struct {
	Closed Session        `json:"closed"`
	Active *ActiveSession `json:"active"`
	Intent ResumeIntent   `json:"intent"`
}

// ResumeName derives the name of resumed segment n of base.
func ResumeName(base string, n int, mode string) string {
	if n < 2 {
		n = 2
	}
	if mode == SuffixHalf && n == 2 {
		return base + " 後半"
	}
	return fmt.Sprintf("%s #%d", base, n)
}

// Interrupt pauses the running task for d. The running task is closed as
// segment nextIndex-1 of an interruption group, d starts, and stopping d
// later resumes the base task as segment nextIndex.
//
// A pending intent is reused (same group, same next index, same base). A
// running resumed segment continues its own group.
func (m *Machine) Interrupt(d StartDraft, now time.Time) (*InterruptResult, error) {
	cur := m.snap.Active
	if cur == nil {
		return nil, errors.NewNotRunning()
	}
	d.Name = strings.TrimSpace(d.Name)
	if d.Name == "" && d.TemplateID == "" && d.PlanID == "" {
		return nil, errors.NewValidation("interrupting task name is required")
	}
	if d.TemplateID != "" && m.snap.Template(d.TemplateID) == nil {
		return nil, errors.NewNotFound("template", d.TemplateID)
	}
	if d.PlanID != "" && m.snap.Plan(d.PlanID) == nil {
		return nil, errors.NewNotFound("plan item", d.PlanID)
	}

	pending := m.snap.Resume != nil
	intent := ResumeIntent{
		BaseName:       cur.Name,
		BaseTemplateID: cur.TemplateID,
		NextIndex:      2,
	}
	switch {
	case pending:
		intent = *m.snap.Resume
		if intent.NextIndex < 2 {
			intent.NextIndex = 2
		}
	case cur.Segment != nil && cur.Segment.BaseName != "":
		intent.BaseName = cur.Segment.BaseName
		intent.BaseTemplateID = cur.Segment.BaseTemplateID
		intent.GroupID = cur.Segment.GroupID
		intent.NextIndex = cur.Segment.Index + 1
	}
	if intent.GroupID == "" {
		intent.GroupID = NewID(now)
	}

	// Only the base task becomes a segment; a nested interruption stays plain.
	if cur.Segment == nil && !pending {
		cur.Segment = &SegmentTag{
			GroupID:        intent.GroupID,
			Index:          intent.NextIndex - 1,
			BaseName:       intent.BaseName,
			BaseTemplateID: intent.BaseTemplateID,
		}
	}

	closed, _, _ := m.closeActive(StopOptions{}, now)
	d.Switch = false
	next, err := m.startActive(d, now)
	if err != nil {
		return nil, err
	}
	intent.InterruptSessionID = next.ID
	m.snap.Resume = &intent
	return &InterruptResult{Closed: closed, Active: next, Intent: intent}, nil
}

// Break interrupts the running task with a break.
func (m *Machine) Break(now time.Time) (*InterruptResult, error) {
	return m.Interrupt(StartDraft{Name: BreakName}, now)
}

// resume clears intent and starts the resumed segment of its base task.
func (m *Machine) resume(intent ResumeIntent, now time.Time) (*ActiveSession, error) {
	m.snap.Resume = nil
	n := max(2, intent.NextIndex)
	d := StartDraft{Name: ResumeName(intent.BaseName, n, m.opts.SuffixMode)}
	if intent.BaseTemplateID != "" && m.snap.Template(intent.BaseTemplateID) != nil {
		d.TemplateID = intent.BaseTemplateID
	}
	a, err := m.startActive(d, now)
	if err != nil {
		return nil, err
	}
	a.Segment = &SegmentTag{
		GroupID:        intent.GroupID,
		Index:          n,
		BaseName:       intent.BaseName,
		BaseTemplateID: intent.BaseTemplateID,
	}
	m.log.Info("resumed interrupted task", "name", a.Name, "group_id", intent.GroupID, "segment", n)
	return a, nil
}
