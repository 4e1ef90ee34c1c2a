package plan

import (
	"strings"
	"time"

	"github.com/hpungsan/daychain/internal/clock"
	"github.com/hpungsan/daychain/internal/errors"
)

// StartDraft describes a task to start.
type StartDraft struct {
	Name       string
	TemplateID string
	PlanID     string
	// Switch stops a running task first instead of failing with CONFLICT.
	Switch bool
	// DefaultTags tag the session when stop names none. A template's
	// default tags are used when empty.
	DefaultTags []string
}

// SplitMode selects what happens to unfinished estimate on stop.
type SplitMode string

const (
	SplitNone     SplitMode = ""
	SplitToday    SplitMode = "split"
	SplitTomorrow SplitMode = "split-tomorrow"
)

// StopOptions controls how the running task is closed.
type StopOptions struct {
	Tags         []string
	Note         string
	CompletePlan bool
	Split        SplitMode
}

// StopResult reports everything a stop changed.
type StopResult struct {
	Session     Session        `json:"session"`
	Completed   *PlanItem      `json:"completed,omitempty"`
	Learned     *LearnResult   `json:"learned,omitempty"`
	Remainder   *PlanItem      `json:"remainder,omitempty"`
	Resumed     *ActiveSession `json:"resumed,omitempty"`
	AutoStarted *ActiveSession `json:"auto_started,omitempty"`
}

// SessionPatch edits a closed session. Nil fields are left alone.
type SessionPatch struct {
	Name    *string
	StartAt *time.Time
	EndAt   *time.Time
	Tags    *[]string
	Note    *string
}

// Start opens the active timer.
func (m *Machine) Start(d StartDraft, now time.Time) (*ActiveSession, error) {
	if m.snap.Active != nil {
		if !d.Switch {
			return nil, errors.NewConflict("a task is already running: " + m.snap.Active.Name)
		}
		closed, _, _ := m.closeActive(StopOptions{}, now)
		if m.snap.Resume != nil && m.snap.Resume.InterruptSessionID == closed.ID {
			m.snap.Resume = nil
		}
	}
	return m.startActive(d, now)
}

func (m *Machine) startActive(d StartDraft, now time.Time) (*ActiveSession, error) {
	d.Name = strings.TrimSpace(d.Name)
	if d.PlanID != "" {
		p := m.snap.Plan(d.PlanID)
		if p == nil {
			return nil, errors.NewNotFound("plan item", d.PlanID)
		}
		if d.TemplateID == "" {
			d.TemplateID = p.TemplateID
		}
		if d.Name == "" {
			d.Name = m.snap.DisplayName(*p)
		}
	}
	var tpl *Template
	if d.TemplateID != "" {
		tpl = m.snap.Template(d.TemplateID)
		if tpl == nil {
			return nil, errors.NewNotFound("template", d.TemplateID)
		}
		if d.Name == "" {
			d.Name = tpl.Name
		}
		if len(d.DefaultTags) == 0 {
			d.DefaultTags = tpl.DefaultTags
		}
	}
	if d.Name == "" {
		d.Name = Untitled
	}

	// A template task always has a row in today's plan.
	if tpl != nil && d.PlanID == "" {
		day := m.opts.Resolver.PlanDay(now)
		exists := false
		for _, p := range m.snap.Plans {
			if p.Day == day && p.TemplateID == tpl.ID {
				exists = true
				break
			}
		}
		if !exists {
			if _, err := m.AddItem(day, Draft{
				Name:        d.Name,
				TemplateID:  tpl.ID,
				EstimateMin: tpl.TargetDailyMin,
				ScheduledAt: tpl.TimeOfDay,
			}, now); err != nil {
				return nil, err
			}
		}
	}

	m.snap.Active = &ActiveSession{
		ID:               NewID(now),
		TemplateID:       d.TemplateID,
		Name:             d.Name,
		StartAt:          now,
		PlanID:           d.PlanID,
		QuickDefaultTags: NormalizeTags(d.DefaultTags),
	}
	return m.snap.Active, nil
}

// closeActive turns the running timer into a session, applies plan
// completion and estimate learning, and clears the timer. It never resumes
// or auto-starts anything.
func (m *Machine) closeActive(opts StopOptions, now time.Time) (Session, *PlanItem, *LearnResult) {
	cur := *m.snap.Active
	durationSec := max(int64(1), int64(now.Sub(cur.StartAt)/time.Second))

	var notes []string
	for _, n := range []string{cur.QuickNote, strings.TrimSpace(opts.Note)} {
		if n != "" {
			notes = append(notes, n)
		}
	}
	tags := opts.Tags
	if len(tags) == 0 {
		tags = cur.QuickDefaultTags
	}
	sess := Session{
		ID:          cur.ID,
		Name:        cur.Name,
		StartAt:     cur.StartAt,
		EndAt:       now,
		DurationSec: durationSec,
		Tags:        NormalizeTags(tags),
		Note:        strings.Join(notes, "\n"),
		TemplateID:  cur.TemplateID,
		PlanID:      cur.PlanID,
	}
	if !sess.EndAt.After(sess.StartAt) {
		sess.EndAt = sess.StartAt.Add(time.Second)
	}
	if cur.Segment != nil {
		sess.InterruptGroupID = cur.Segment.GroupID
		sess.SegmentIndex = max(1, cur.Segment.Index)
	}
	m.snap.Sessions = append(m.snap.Sessions, sess)
	m.snap.Active = nil

	day := m.opts.Resolver.PlanDay(now)
	var completed *PlanItem
	if opts.CompletePlan || m.opts.AutoDoneOnStop {
		if p := m.matchToday(&cur, day); p != nil {
			p.Status = StatusDone
			c := *p
			completed = &c
		}
	}

	var learned *LearnResult
	if m.opts.AutoEstimateLearn {
		learned = m.learn(&cur, durationSec, day)
	}
	return sess, completed, learned
}

// matchToday finds the plan row the timer ran against. A plan link wins even
// when the row lives on another day.
func (m *Machine) matchToday(a *ActiveSession, day string) *PlanItem {
	if a.PlanID != "" {
		return m.snap.Plan(a.PlanID)
	}
	today := Sorted(m.snap.PlansForDay(day))
	if i := FindMatch(today, a); i >= 0 {
		return m.snap.Plan(today[i].ID)
	}
	return nil
}

// Stop closes the running task. Afterwards it resumes an interrupted task
// when the closed session was the interruption, or else optionally starts
// the next queued item.
func (m *Machine) Stop(opts StopOptions, now time.Time) (*StopResult, error) {
	if m.snap.Active == nil {
		return nil, errors.NewNotRunning()
	}
	cur := *m.snap.Active
	sess, completed, learned := m.closeActive(opts, now)
	res := &StopResult{Session: sess, Completed: completed, Learned: learned}

	if opts.Split != SplitNone && cur.PlanID != "" {
		rem, err := m.splitOnStop(cur.PlanID, opts.Split, now)
		if err != nil {
			return nil, err
		}
		res.Remainder = rem
	}

	if intent := m.snap.Resume; intent != nil && intent.InterruptSessionID == sess.ID {
		resumed, err := m.resume(*intent, now)
		if err != nil {
			return nil, err
		}
		res.Resumed = resumed
		return res, nil
	}

	if m.opts.AutoStartNext {
		next, err := m.startNext(&cur, now)
		if err != nil {
			return nil, err
		}
		res.AutoStarted = next
	}
	return res, nil
}

func (m *Machine) splitOnStop(planID string, mode SplitMode, now time.Time) (*PlanItem, error) {
	p := m.snap.Plan(planID)
	if p == nil || p.EstimateMin == 0 {
		return nil, nil
	}
	remaining := m.RemainingMin(*p)
	if remaining <= 0 {
		return nil, nil
	}
	d := Draft{Name: p.Name, TemplateID: p.TemplateID, EstimateMin: remaining}
	day := p.Day
	switch mode {
	case SplitToday:
	case SplitTomorrow:
		day = clock.AddDays(m.opts.Resolver.PlanDay(now), 1)
		d.ScheduledAt = p.ScheduledAt
	default:
		return nil, errors.NewValidation("split must be \"split\" or \"split-tomorrow\"")
	}
	if d.Name == "" && d.TemplateID == "" {
		d.Name = Untitled
	}
	return m.AddItem(day, d, now)
}

// startNext starts the first queued item of today other than the one that
// just stopped.
func (m *Machine) startNext(stopped *ActiveSession, now time.Time) (*ActiveSession, error) {
	day := m.opts.Resolver.PlanDay(now)
	for _, p := range Sorted(m.snap.PlansForDay(day)) {
		if p.Status != StatusTodo || Matches(stopped, p) {
			continue
		}
		return m.startActive(StartDraft{PlanID: p.ID}, now)
	}
	return nil, nil
}

// AddQuickNote appends a line to the running task's note.
func (m *Machine) AddQuickNote(text string) (*ActiveSession, error) {
	if m.snap.Active == nil {
		return nil, errors.NewNotRunning()
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.NewValidation("note text is required")
	}
	if m.snap.Active.QuickNote != "" {
		m.snap.Active.QuickNote += "\n"
	}
	m.snap.Active.QuickNote += text
	return m.snap.Active, nil
}

// CheckLongRunning flags the running task once it has run longer than
// thresholdMin. It reports true only on the call that sets the flag.
func (m *Machine) CheckLongRunning(now time.Time, thresholdMin int) bool {
	a := m.snap.Active
	if a == nil || thresholdMin <= 0 || a.Alerted {
		return false
	}
	if a.Elapsed(now) <= time.Duration(thresholdMin)*time.Minute {
		return false
	}
	a.Alerted = true
	return true
}

// EditSession rewrites a closed session and re-derives its duration.
func (m *Machine) EditSession(id string, patch SessionPatch) (*Session, error) {
	s := m.snap.Session(id)
	if s == nil {
		return nil, errors.NewNotFound("session", id)
	}
	next := *s
	if patch.Name != nil {
		if name := strings.TrimSpace(*patch.Name); name != "" {
			next.Name = name
		}
	}
	if patch.Tags != nil {
		next.Tags = NormalizeTags(*patch.Tags)
	}
	if patch.Note != nil {
		next.Note = strings.TrimSpace(*patch.Note)
	}
	if patch.StartAt != nil {
		next.StartAt = *patch.StartAt
	}
	if patch.EndAt != nil {
		next.EndAt = *patch.EndAt
	}
	if !next.EndAt.After(next.StartAt) {
		return nil, errors.NewInconsistentEdit(id)
	}
	next.DurationSec = max(int64(1), int64(next.EndAt.Sub(next.StartAt)/time.Second))
	*s = next
	return s, nil
}

// DeleteSession removes a session and returns it for RestoreSession.
func (m *Machine) DeleteSession(id string) (Session, error) {
	s, ok := m.snap.removeSession(id)
	if !ok {
		return Session{}, errors.NewNotFound("session", id)
	}
	return s, nil
}

// RestoreSession re-inserts a deleted session.
func (m *Machine) RestoreSession(s Session) (*Session, error) {
	if s.ID == "" {
		return nil, errors.NewValidation("restored session needs an id")
	}
	if !s.EndAt.After(s.StartAt) {
		return nil, errors.NewInconsistentEdit(s.ID)
	}
	if m.snap.Session(s.ID) != nil {
		return nil, errors.NewConflict("session already exists: " + s.ID)
	}
	m.snap.Sessions = append(m.snap.Sessions, s)
	return m.snap.Session(s.ID), nil
}
