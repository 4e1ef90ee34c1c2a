package plan

import (
	"sort"
	"time"
)

// Untitled is the display name of an item with neither a name nor a template.
const Untitled = "Untitled"

// Snapshot is the in-memory entity store: every collection the program owns.
// It enforces nothing about durability; internal/db loads and saves it whole.
type Snapshot struct {
	Templates []Template     `json:"templates"`
	Plans     []PlanItem     `json:"plans"`
	Sessions  []Session      `json:"sessions"`
	Active    *ActiveSession `json:"active,omitempty"`
	Resume    *ResumeIntent  `json:"resume,omitempty"`

	// Suppressions lists routine template ids per day that must not be re-injected.
	Suppressions map[string][]string `json:"suppressions,omitempty"`
	// ImportedEvents holds calendar duplicate-guard keys already inserted.
	ImportedEvents map[string]bool `json:"imported_events,omitempty"`
	// Notified holds fired notification keys (day:planID:kind).
	Notified map[string]bool `json:"notified,omitempty"`
}

// NewSnapshot returns an empty store.
func NewSnapshot() *Snapshot {
	s := &Snapshot{}
	s.ensureMaps()
	return s
}

func (s *Snapshot) ensureMaps() {
	if s.Suppressions == nil {
		s.Suppressions = make(map[string][]string)
	}
	if s.ImportedEvents == nil {
		s.ImportedEvents = make(map[string]bool)
	}
	if s.Notified == nil {
		s.Notified = make(map[string]bool)
	}
}

// Clone returns a deep copy.
func (s *Snapshot) Clone() *Snapshot {
	c := &Snapshot{
		Templates: make([]Template, len(s.Templates)),
		Plans:     append([]PlanItem(nil), s.Plans...),
		Sessions:  make([]Session, len(s.Sessions)),
	}
	for i, t := range s.Templates {
		t.DefaultTags = append([]string(nil), t.DefaultTags...)
		t.RoutineDays = append([]int(nil), t.RoutineDays...)
		c.Templates[i] = t
	}
	for i, sess := range s.Sessions {
		sess.Tags = append([]string(nil), sess.Tags...)
		c.Sessions[i] = sess
	}
	if s.Active != nil {
		a := *s.Active
		if a.Segment != nil {
			seg := *a.Segment
			a.Segment = &seg
		}
		a.QuickDefaultTags = append([]string(nil), a.QuickDefaultTags...)
		c.Active = &a
	}
	if s.Resume != nil {
		r := *s.Resume
		c.Resume = &r
	}
	c.ensureMaps()
	for k, v := range s.Suppressions {
		c.Suppressions[k] = append([]string(nil), v...)
	}
	for k, v := range s.ImportedEvents {
		c.ImportedEvents[k] = v
	}
	for k, v := range s.Notified {
		c.Notified[k] = v
	}
	return c
}

// Template returns the template with id, or nil.
func (s *Snapshot) Template(id string) *Template {
	if id == "" {
		return nil
	}
	for i := range s.Templates {
		if s.Templates[i].ID == id {
			return &s.Templates[i]
		}
	}
	return nil
}

// Plan returns the plan item with id, or nil.
func (s *Snapshot) Plan(id string) *PlanItem {
	if id == "" {
		return nil
	}
	for i := range s.Plans {
		if s.Plans[i].ID == id {
			return &s.Plans[i]
		}
	}
	return nil
}

// Session returns the session with id, or nil.
func (s *Snapshot) Session(id string) *Session {
	for i := range s.Sessions {
		if s.Sessions[i].ID == id {
			return &s.Sessions[i]
		}
	}
	return nil
}

// PlansForDay returns copies of a day's items in storage order.
func (s *Snapshot) PlansForDay(day string) []PlanItem {
	var out []PlanItem
	for _, p := range s.Plans {
		if p.Day == day {
			out = append(out, p)
		}
	}
	return out
}

// NextOrder returns one past the highest order key on day.
func (s *Snapshot) NextOrder(day string) int {
	maxOrder := 0
	for _, p := range s.Plans {
		if p.Day == day && p.Order > maxOrder {
			maxOrder = p.Order
		}
	}
	return maxOrder + 1
}

// SessionsBetween returns sessions starting in [from, to), oldest first.
func (s *Snapshot) SessionsBetween(from, to time.Time) []Session {
	var out []Session
	for _, sess := range s.Sessions {
		if !sess.StartAt.Before(from) && sess.StartAt.Before(to) {
			out = append(out, sess)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartAt.Before(out[j].StartAt)
	})
	return out
}

// DisplayName falls back to the template name, then Untitled.
func (s *Snapshot) DisplayName(p PlanItem) string {
	if p.Name != "" {
		return p.Name
	}
	if t := s.Template(p.TemplateID); t != nil && t.Name != "" {
		return t.Name
	}
	return Untitled
}

// Suppressed reports whether templateID is suppressed on day.
func (s *Snapshot) Suppressed(day, templateID string) bool {
	for _, id := range s.Suppressions[day] {
		if id == templateID {
			return true
		}
	}
	return false
}

func (s *Snapshot) removePlan(id string) (PlanItem, bool) {
	for i, p := range s.Plans {
		if p.ID == id {
			s.Plans = append(s.Plans[:i], s.Plans[i+1:]...)
			return p, true
		}
	}
	return PlanItem{}, false
}

func (s *Snapshot) removeSession(id string) (Session, bool) {
	for i, sess := range s.Sessions {
		if sess.ID == id {
			s.Sessions = append(s.Sessions[:i], s.Sessions[i+1:]...)
			return sess, true
		}
	}
	return Session{}, false
}
