package ops

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/hpungsan/daychain/internal/errors"
	"github.com/hpungsan/daychain/internal/export"
	"github.com/hpungsan/daychain/internal/plan"
)

// ExportInput contains parameters for the Export operation.
type ExportInput struct {
	Format string // csv, json, jsonl (default) or markdown
	Path   string // optional, default: <baseDir>/exports/daychain-<day|all>-<timestamp>.<ext>
	// From and To bound csv/json sessions by logical day (inclusive). Empty
	// exports everything. Markdown reports the day From (default today).
	From string
	To   string
}

// ExportOutput contains the result of the Export operation.
type ExportOutput struct {
	Path       string `json:"path"`
	Format     string `json:"format"`
	Count      int    `json:"count"`
	ExportedAt int64  `json:"exported_at"`
}

// Export writes sessions, the full store or a daily report to a file.
func Export(ctx context.Context, env *Env, input ExportInput) (*ExportOutput, error) {
	format, err := export.ParseFormat(input.Format)
	if err != nil {
		return nil, errors.NewValidation(err.Error())
	}

	snap, err := env.load(ctx)
	if err != nil {
		return nil, err
	}
	now := env.now()

	sessions := snap.Sessions
	label := "all"
	switch {
	case format == export.FormatMarkdown:
		day, err := env.resolveDay(input.From, now)
		if err != nil {
			return nil, err
		}
		label = day
	case input.From != "" || input.To != "":
		listed, err := listSessions(env, snap, ListSessionsInput{From: input.From, To: input.To}, now)
		if err != nil {
			return nil, err
		}
		sessions = listed.Items
		label = listed.From
	}

	exportPath := input.Path
	if exportPath == "" {
		name := fmt.Sprintf("daychain-%s-%s%s", label, now.Format("2006-01-02T150405"), format.Ext())
		exportPath = filepath.Join(ExportsDir(env.BaseDir), name)
	}
	if err := ValidatePath(exportPath, PathCheckWrite, env.config(), env.BaseDir); err != nil {
		return nil, err
	}

	var count int
	err = writeAtomic(exportPath, func(w io.Writer) error {
		switch format {
		case export.FormatCSV:
			count = len(sessions)
			return export.WriteCSV(w, sessions)
		case export.FormatJSON:
			count = len(sessions)
			return export.WriteJSON(w, sessions, now)
		case export.FormatMarkdown:
			rep := dayReport(env, snap, label, now)
			count = len(rep.Sessions)
			_, err := io.WriteString(w, export.Markdown(rep))
			return err
		default:
			n, err := export.WriteJSONL(ctx, w, snap, now)
			count = n
			if ctx.Err() != nil {
				return errors.NewCancelled("export")
			}
			return err
		}
	})
	if err != nil {
		return nil, err
	}

	env.logger().Info("exported", "format", format, "path", exportPath, "count", count)
	return &ExportOutput{
		Path:       exportPath,
		Format:     string(format),
		Count:      count,
		ExportedAt: now.Unix(),
	}, nil
}

func dayReport(env *Env, snap *plan.Snapshot, day string, now time.Time) export.DayReport {
	today := buildToday(env, snap, day, now, nil)
	from, to := env.resolver().PlanRange(day)
	rep := export.DayReport{
		Day:      day,
		Summary:  today.Summary,
		Sessions: snap.SessionsBetween(from, to),
		Loc:      env.location(),
	}
	rep.Projection = env.project(snap, day, now)
	if today.Chain == nil {
		// Without the chain the report still lists the plan, minus projected times.
		for i := range rep.Projection.Entries {
			e := &rep.Projection.Entries[i]
			e.PlannedStart, e.PlannedEnd, e.DelayMin = nil, nil, 0
		}
	}
	if today.Capacity.Configured {
		c := today.Capacity
		rep.Capacity = &c
	}
	return rep
}

// writeAtomic writes to a temp file next to path and renames it into place,
// so a failed export leaves any existing file untouched.
func writeAtomic(path string, write func(w io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to create export directory: %w", err))
	}

	randBytes := make([]byte, 8)
	if _, err := rand.Read(randBytes); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to generate temp file name: %w", err))
	}
	tempPath := path + "." + hex.EncodeToString(randBytes) + ".tmp"
	file, err := openFileNoFollow(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		if _, ok := errors.As(err); ok {
			return err
		}
		return errors.NewInternal(fmt.Errorf("failed to create export file: %w", err))
	}

	success := false
	defer func() {
		if file != nil {
			file.Close()
		}
		if !success {
			os.Remove(tempPath)
		}
	}()

	if err := write(file); err != nil {
		if _, ok := errors.As(err); ok {
			return err
		}
		return errors.NewInternal(err)
	}
	if err := file.Sync(); err != nil {
		return errors.NewInternal(err)
	}
	// Close before rename (required on Windows).
	if err := file.Close(); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to close export file: %w", err))
	}
	file = nil

	// os.Rename would follow a symlinked destination.
	if info, err := os.Lstat(path); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return errors.NewValidation("export path is a symlink")
	}

	// Windows refuses to rename over an existing file; keep the old one.
	if err := os.Rename(tempPath, path); err != nil {
		if runtime.GOOS == "windows" {
			if _, statErr := os.Stat(path); statErr == nil {
				return errors.NewConflict("export destination already exists; choose a new path")
			}
		}
		return errors.NewInternal(fmt.Errorf("failed to finalize export: %w", err))
	}

	success = true
	return nil
}
