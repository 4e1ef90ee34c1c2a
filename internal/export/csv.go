package export

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/hpungsan/daychain/internal/plan"
)

var csvHeader = []string{
	"id", "name", "start_at", "end_at", "duration_sec", "duration",
	"tags", "note", "template_id", "plan_id",
}

// WriteCSV writes one row per session. Times are RFC 3339 in UTC; tags are
// joined with "|".
func WriteCSV(w io.Writer, sessions []plan.Session) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, s := range sessions {
		row := []string{
			s.ID,
			s.Name,
			s.StartAt.UTC().Format(time.RFC3339),
			s.EndAt.UTC().Format(time.RFC3339),
			strconv.FormatInt(s.DurationSec, 10),
			FormatDuration(s.DurationSec),
			strings.Join(s.Tags, "|"),
			s.Note,
			s.TemplateID,
			s.PlanID,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
