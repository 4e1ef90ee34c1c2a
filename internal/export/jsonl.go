package export

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/hpungsan/daychain/internal/plan"
)

// SchemaVersion is written in the backup header.
const SchemaVersion = "1.0"

// Header is the first line of a JSONL backup.
type Header struct {
	DaychainExport bool   `json:"_daychain_export"`
	SchemaVersion  string `json:"schema_version"`
	ExportedAt     int64  `json:"exported_at"`
}

// Record kinds in a JSONL backup.
const (
	KindTemplate   = "template"
	KindPlan       = "plan"
	KindSession    = "session"
	KindActive     = "active"
	KindResume     = "resume"
	KindSuppressed = "suppressed"
	KindImported   = "imported"
)

// Record is one backup line. Exactly one payload field is set.
type Record struct {
	Kind       string              `json:"kind"`
	Template   *plan.Template      `json:"template,omitempty"`
	Plan       *plan.PlanItem      `json:"plan,omitempty"`
	Session    *plan.Session       `json:"session,omitempty"`
	Active     *plan.ActiveSession `json:"active,omitempty"`
	Resume     *plan.ResumeIntent  `json:"resume,omitempty"`
	Day        string              `json:"day,omitempty"`
	TemplateID string              `json:"template_id,omitempty"`
	Key        string              `json:"key,omitempty"`
}

// WriteJSONL writes a header line and one record per entity. It returns the
// number of records written, header excluded.
func WriteJSONL(ctx context.Context, w io.Writer, snap *plan.Snapshot, exportedAt time.Time) (int, error) {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)

	if err := enc.Encode(Header{DaychainExport: true, SchemaVersion: SchemaVersion, ExportedAt: exportedAt.Unix()}); err != nil {
		return 0, err
	}

	count := 0
	emit := func(r Record) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := enc.Encode(r); err != nil {
			return err
		}
		count++
		return nil
	}

	for i := range snap.Templates {
		if err := emit(Record{Kind: KindTemplate, Template: &snap.Templates[i]}); err != nil {
			return count, err
		}
	}
	for i := range snap.Plans {
		if err := emit(Record{Kind: KindPlan, Plan: &snap.Plans[i]}); err != nil {
			return count, err
		}
	}
	for i := range snap.Sessions {
		if err := emit(Record{Kind: KindSession, Session: &snap.Sessions[i]}); err != nil {
			return count, err
		}
	}
	if snap.Active != nil {
		if err := emit(Record{Kind: KindActive, Active: snap.Active}); err != nil {
			return count, err
		}
	}
	if snap.Resume != nil {
		if err := emit(Record{Kind: KindResume, Resume: snap.Resume}); err != nil {
			return count, err
		}
	}
	for day, ids := range snap.Suppressions {
		for _, id := range ids {
			if err := emit(Record{Kind: KindSuppressed, Day: day, TemplateID: id}); err != nil {
				return count, err
			}
		}
	}
	for key, ok := range snap.ImportedEvents {
		if !ok {
			continue
		}
		if err := emit(Record{Kind: KindImported, Key: key}); err != nil {
			return count, err
		}
	}

	return count, bw.Flush()
}

// ReadJSONL parses a backup written by WriteJSONL into a fresh snapshot.
// Unknown record kinds are skipped.
func ReadJSONL(r io.Reader) (*plan.Snapshot, error) {
	dec := json.NewDecoder(r)

	var header Header
	if err := dec.Decode(&header); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty backup file")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	if !header.DaychainExport {
		return nil, errors.New("not a daychain backup: missing header")
	}

	snap := plan.NewSnapshot()
	for line := 2; ; line++ {
		var rec Record
		err := dec.Decode(&rec)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", line, err)
		}
		switch rec.Kind {
		case KindTemplate:
			if rec.Template != nil {
				snap.Templates = append(snap.Templates, *rec.Template)
			}
		case KindPlan:
			if rec.Plan != nil {
				snap.Plans = append(snap.Plans, *rec.Plan)
			}
		case KindSession:
			if rec.Session != nil {
				snap.Sessions = append(snap.Sessions, *rec.Session)
			}
		case KindActive:
			snap.Active = rec.Active
		case KindResume:
			snap.Resume = rec.Resume
		case KindSuppressed:
			snap.Suppressions[rec.Day] = append(snap.Suppressions[rec.Day], rec.TemplateID)
		case KindImported:
			snap.ImportedEvents[rec.Key] = true
		}
	}
	return snap, nil
}
