// Package plan holds the daychain data model and the operations that mutate it:
// the plan item lifecycle, the single active timer, interruption/resume, and
// estimate learning.
package plan

import "time"

// Status is the lifecycle state of a plan item.
type Status string

const (
	StatusTodo    Status = "todo"
	StatusDone    Status = "done"
	StatusSkipped Status = "skipped"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusDone, StatusSkipped:
		return true
	}
	return false
}

// Template is a recurring task definition.
type Template struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	DefaultTags []string `json:"default_tags,omitempty"`
	Color       string   `json:"color,omitempty"`
	IsRoutine   bool     `json:"is_routine"`
	// RoutineDays lists weekdays with Monday=0. Empty means every day.
	RoutineDays      []int  `json:"routine_days,omitempty"`
	TimeOfDay        string `json:"time_of_day,omitempty"`
	TargetDailyMin   int    `json:"target_daily_min"`
	TargetWeeklyMin  int    `json:"target_weekly_min"`
	TargetMonthlyMin int    `json:"target_monthly_min"`
}

// RecursOn reports whether a routine template is due on the weekday (Monday=0).
func (t Template) RecursOn(weekday int) bool {
	if !t.IsRoutine {
		return false
	}
	if len(t.RoutineDays) == 0 {
		return true
	}
	for _, d := range t.RoutineDays {
		if d == weekday {
			return true
		}
	}
	return false
}

// PlanItem is one row of a day's plan.
type PlanItem struct {
	ID          string `json:"id"`
	Day         string `json:"day"`
	TemplateID  string `json:"template_id,omitempty"`
	Name        string `json:"name"`
	EstimateMin int    `json:"estimate_min"`
	ScheduledAt string `json:"scheduled_at,omitempty"`
	Status      Status `json:"status"`
	PrevStatus  Status `json:"prev_status,omitempty"`
	Order       int    `json:"order"`
	// AutoInjected marks items added by routine injection.
	AutoInjected bool `json:"auto_injected,omitempty"`
	// ExternalKey is the calendar duplicate-guard key (uid|start) for imported items.
	ExternalKey string `json:"external_key,omitempty"`
}

// Session is a closed interval of tracked work.
type Session struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	StartAt          time.Time `json:"start_at"`
	EndAt            time.Time `json:"end_at"`
	DurationSec      int64     `json:"duration_sec"`
	Tags             []string  `json:"tags,omitempty"`
	Note             string    `json:"note,omitempty"`
	TemplateID       string    `json:"template_id,omitempty"`
	PlanID           string    `json:"plan_id,omitempty"`
	InterruptGroupID string    `json:"interrupt_group_id,omitempty"`
	SegmentIndex     int       `json:"segment_index,omitempty"`
}

// SegmentTag links a session to an interruption group.
type SegmentTag struct {
	GroupID string `json:"group_id"`
	Index   int    `json:"index"`
	// BaseName and BaseTemplateID identify the interrupted task so a resumed
	// segment can itself be interrupted without renaming it "base #2 #2".
	BaseName       string `json:"base_name,omitempty"`
	BaseTemplateID string `json:"base_template_id,omitempty"`
}

// ActiveSession is the single running timer.
type ActiveSession struct {
	ID         string    `json:"id"`
	TemplateID string    `json:"template_id,omitempty"`
	Name       string    `json:"name"`
	StartAt    time.Time `json:"start_at"`
	PlanID     string    `json:"plan_id,omitempty"`

	QuickNote        string      `json:"quick_note,omitempty"`
	Segment          *SegmentTag `json:"segment,omitempty"`
	Alerted          bool        `json:"alerted,omitempty"`
	QuickDefaultTags []string    `json:"quick_default_tags,omitempty"`
}

// Elapsed returns the running time at now, never negative.
func (a *ActiveSession) Elapsed(now time.Time) time.Duration {
	if a == nil || now.Before(a.StartAt) {
		return 0
	}
	return now.Sub(a.StartAt)
}

// ResumeIntent records a pending automatic resume after an interruption.
type ResumeIntent struct {
	BaseName       string `json:"base_name"`
	BaseTemplateID string `json:"base_template_id,omitempty"`
	GroupID        string `json:"group_id"`
	NextIndex      int    `json:"next_index"`
	// InterruptSessionID is the active id whose stop triggers the resume.
	InterruptSessionID string `json:"interrupt_session_id"`
}
