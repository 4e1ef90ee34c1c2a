package plan

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/hpungsan/daychain/internal/clock"
	"github.com/hpungsan/daychain/internal/errors"
)

var palette = []string{"#f87171", "#fb923c", "#fbbf24", "#34d399", "#60a5fa", "#a78bfa", "#f472b6", "#22d3ee"}

// TemplateDraft describes a new template.
type TemplateDraft struct {
	Name             string
	DefaultTags      []string
	Color            string
	IsRoutine        bool
	RoutineDays      []int
	TimeOfDay        string
	TargetDailyMin   int
	TargetWeeklyMin  int
	TargetMonthlyMin int
}

// TemplatePatch edits a template. Nil fields are left alone.
type TemplatePatch struct {
	Name             *string
	DefaultTags      *[]string
	Color            *string
	IsRoutine        *bool
	RoutineDays      *[]int
	TimeOfDay        *string
	TargetDailyMin   *int
	TargetWeeklyMin  *int
	TargetMonthlyMin *int
}

func validateTemplate(t *Template) error {
	t.Name = strings.TrimSpace(t.Name)
	t.TimeOfDay = strings.TrimSpace(t.TimeOfDay)
	if t.Name == "" {
		return errors.NewValidation("template name is required")
	}
	if t.TimeOfDay != "" && !clock.ValidHHMM(t.TimeOfDay) {
		return errors.NewValidation("time of day must be HH:MM")
	}
	if t.TargetDailyMin < 0 || t.TargetWeeklyMin < 0 || t.TargetMonthlyMin < 0 {
		return errors.NewValidation("targets must not be negative")
	}
	for _, d := range t.RoutineDays {
		if d < 0 || d > 6 {
			return errors.NewValidation(fmt.Sprintf("routine day %d out of range 0-6", d))
		}
	}
	t.RoutineDays = dedupeDays(t.RoutineDays)
	t.DefaultTags = NormalizeTags(t.DefaultTags)
	return nil
}

func dedupeDays(days []int) []int {
	seen := make(map[int]bool)
	var out []int
	for _, d := range days {
		if !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	sort.Ints(out)
	return out
}

// AddTemplate creates a template. A missing color is picked from the palette.
func (m *Machine) AddTemplate(d TemplateDraft, now time.Time) (*Template, error) {
	t := Template{
		ID:               NewID(now),
		Name:             d.Name,
		DefaultTags:      d.DefaultTags,
		Color:            d.Color,
		IsRoutine:        d.IsRoutine,
		RoutineDays:      d.RoutineDays,
		TimeOfDay:        d.TimeOfDay,
		TargetDailyMin:   d.TargetDailyMin,
		TargetWeeklyMin:  d.TargetWeeklyMin,
		TargetMonthlyMin: d.TargetMonthlyMin,
	}
	if err := validateTemplate(&t); err != nil {
		return nil, err
	}
	if t.Color == "" {
		t.Color = palette[len(m.snap.Templates)%len(palette)]
	}
	m.snap.Templates = append(m.snap.Templates, t)
	return m.snap.Template(t.ID), nil
}

// EditTemplate applies patch.
func (m *Machine) EditTemplate(id string, patch TemplatePatch) (*Template, error) {
	t := m.snap.Template(id)
	if t == nil {
		return nil, errors.NewNotFound("template", id)
	}
	next := *t
	if patch.Name != nil {
		next.Name = *patch.Name
	}
	if patch.DefaultTags != nil {
		next.DefaultTags = *patch.DefaultTags
	}
	if patch.Color != nil {
		next.Color = *patch.Color
	}
	if patch.IsRoutine != nil {
		next.IsRoutine = *patch.IsRoutine
	}
	if patch.RoutineDays != nil {
		next.RoutineDays = *patch.RoutineDays
	}
	if patch.TimeOfDay != nil {
		next.TimeOfDay = *patch.TimeOfDay
	}
	if patch.TargetDailyMin != nil {
		next.TargetDailyMin = *patch.TargetDailyMin
	}
	if patch.TargetWeeklyMin != nil {
		next.TargetWeeklyMin = *patch.TargetWeeklyMin
	}
	if patch.TargetMonthlyMin != nil {
		next.TargetMonthlyMin = *patch.TargetMonthlyMin
	}
	if err := validateTemplate(&next); err != nil {
		return nil, err
	}
	*t = next
	return t, nil
}

// DeleteTemplate removes a template. Plan items and sessions keep their
// reference and fall back to their own names.
func (m *Machine) DeleteTemplate(id string) (Template, error) {
	for i, t := range m.snap.Templates {
		if t.ID == id {
			m.snap.Templates = append(m.snap.Templates[:i], m.snap.Templates[i+1:]...)
			return t, nil
		}
	}
	return Template{}, errors.NewNotFound("template", id)
}

var weekdayNames = map[string]int{
	"mon": 0, "tue": 1, "wed": 2, "thu": 3, "fri": 4, "sat": 5, "sun": 6,
}

// ParseWeekdays reads "every", "weekdays", "weekends", or a comma list of
// three-letter names or digits (Monday=0).
func ParseWeekdays(s string) ([]int, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "", "every", "daily":
		return nil, nil
	case "weekdays":
		return []int{0, 1, 2, 3, 4}, nil
	case "weekends":
		return []int{5, 6}, nil
	}
	var days []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if d, ok := weekdayNames[part[:min(3, len(part))]]; ok {
			days = append(days, d)
			continue
		}
		d, err := strconv.Atoi(part)
		if err != nil || d < 0 || d > 6 {
			return nil, errors.NewValidation(fmt.Sprintf("unknown weekday %q", part))
		}
		days = append(days, d)
	}
	return dedupeDays(days), nil
}
