package export

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/hpungsan/daychain/internal/plan"
	"github.com/hpungsan/daychain/internal/schedule"
)

// DayReport is the input of the Markdown daily report.
type DayReport struct {
	Day        string
	Projection schedule.Projection
	Summary    schedule.NowNext
	Capacity   *schedule.Capacity
	Sessions   []plan.Session
	Loc        *time.Location
}

// Markdown renders the daily report.
func Markdown(r DayReport) string {
	loc := r.Loc
	if loc == nil {
		loc = time.Local
	}
	clock := func(t *time.Time) string {
		if t == nil {
			return ""
		}
		return t.In(loc).Format("15:04")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Daily report %s\n\n", r.Day)

	var tracked int64
	for _, s := range r.Sessions {
		tracked += s.DurationSec
	}
	fmt.Fprintf(&b, "- Done: %d/%d\n", r.Summary.Done, r.Summary.Total)
	fmt.Fprintf(&b, "- Tracked: %s\n", FormatDuration(tracked))
	fmt.Fprintf(&b, "- Remaining: %d min", r.Summary.RemainingMin)
	if r.Summary.ETA != nil {
		fmt.Fprintf(&b, ", ETA %s", clock(r.Summary.ETA))
	}
	b.WriteString("\n")
	if r.Summary.BedtimeWarn {
		fmt.Fprintf(&b, "- Past bedtime %s\n", r.Summary.Bedtime)
	}
	if c := r.Capacity; c != nil && c.Configured {
		fmt.Fprintf(&b, "- Capacity: %d min left, slack %d min (%s)\n", c.RemainingCapacityMin, c.SlackMin, c.Level)
	}

	b.WriteString("\n## Plan\n\n")
	if len(r.Projection.Entries) == 0 {
		b.WriteString("Nothing planned.\n")
	} else {
		b.WriteString("| Status | Task | Fixed | Est | Spent | Start | End | Delay |\n")
		b.WriteString("|---|---|---|---|---|---|---|---|\n")
		for _, e := range r.Projection.Entries {
			status := string(e.Status)
			if e.Running {
				status = "running"
			}
			fmt.Fprintf(&b, "| %s | %s | %s | %d | %d | %s | %s | %s |\n",
				status, escapeCell(e.Name), e.ScheduledAt, e.EstimateMin, (e.SpentSec+30)/60,
				clock(e.PlannedStart), clock(e.PlannedEnd), schedule.Badge(e.DelayMin))
		}
	}

	b.WriteString("\n## Sessions\n\n")
	if len(r.Sessions) == 0 {
		b.WriteString("No tracked time.\n")
		return b.String()
	}
	b.WriteString("| Start | End | Task | Duration | Tags |\n")
	b.WriteString("|---|---|---|---|---|\n")
	var notes []plan.Session
	for _, s := range r.Sessions {
		start, end := s.StartAt, s.EndAt
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n",
			clock(&start), clock(&end), escapeCell(s.Name), FormatDuration(s.DurationSec), escapeCell(strings.Join(s.Tags, ", ")))
		if s.Note != "" {
			notes = append(notes, s)
		}
	}

	if len(notes) > 0 {
		b.WriteString("\n## Notes\n\n")
		for _, s := range notes {
			fmt.Fprintf(&b, "- **%s**: %s\n", s.Name, strings.ReplaceAll(s.Note, "\n", " "))
		}
	}
	return b.String()
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

var md = goldmark.New(goldmark.WithExtensions(extension.Table))

// RenderHTML converts report Markdown to an HTML fragment.
func RenderHTML(src string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
