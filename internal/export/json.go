package export

import (
	"encoding/json"
	"io"
	"time"

	"github.com/hpungsan/daychain/internal/plan"
)

type jsonExport struct {
	ExportedAt string      `json:"exported_at"`
	Count      int         `json:"count"`
	Entries    []jsonEntry `json:"entries"`
}

type jsonEntry struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	StartTime   string   `json:"start_time"`
	EndTime     string   `json:"end_time"`
	DurationSec int64    `json:"duration_seconds"`
	Duration    string   `json:"duration"`
	Tags        []string `json:"tags,omitempty"`
	Note        string   `json:"note,omitempty"`
	TemplateID  string   `json:"template_id,omitempty"`
	PlanID      string   `json:"plan_id,omitempty"`
}

// WriteJSON writes sessions inside an {exported_at, count, entries} envelope.
func WriteJSON(w io.Writer, sessions []plan.Session, exportedAt time.Time) error {
	out := jsonExport{
		ExportedAt: exportedAt.UTC().Format(time.RFC3339),
		Count:      len(sessions),
		Entries:    make([]jsonEntry, 0, len(sessions)),
	}
	for _, s := range sessions {
		out.Entries = append(out.Entries, jsonEntry{
			ID:          s.ID,
			Name:        s.Name,
			StartTime:   s.StartAt.UTC().Format(time.RFC3339),
			EndTime:     s.EndAt.UTC().Format(time.RFC3339),
			DurationSec: s.DurationSec,
			Duration:    FormatDuration(s.DurationSec),
			Tags:        s.Tags,
			Note:        s.Note,
			TemplateID:  s.TemplateID,
			PlanID:      s.PlanID,
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
