package ops

import (
	"context"
	"fmt"
	"time"

	"github.com/hpungsan/daychain/internal/errors"
	"github.com/hpungsan/daychain/internal/export"
	"github.com/hpungsan/daychain/internal/plan"
)

// ImportMode controls collision behavior during import.
type ImportMode string

const (
	ImportModeError   ImportMode = "error"   // fail on any id collision, import nothing
	ImportModeReplace ImportMode = "replace" // backup record wins on collision
	ImportModeSkip    ImportMode = "skip"    // existing record wins on collision
)

// ImportInput contains parameters for the Import operation.
type ImportInput struct {
	Path string     // required, a JSONL backup written by Export
	Mode ImportMode // default: error
}

// ImportOutput contains the result of the Import operation.
type ImportOutput struct {
	Imported int `json:"imported"`
	Replaced int `json:"replaced"`
	Skipped  int `json:"skipped"`
}

// Import merges a JSONL backup into the store by id.
func Import(ctx context.Context, env *Env, input ImportInput) (*ImportOutput, error) {
	if input.Path == "" {
		return nil, errors.NewValidation("path is required")
	}
	if input.Mode == "" {
		input.Mode = ImportModeError
	}
	switch input.Mode {
	case ImportModeError, ImportModeReplace, ImportModeSkip:
	default:
		return nil, errors.NewValidation("mode must be one of: error, replace, skip")
	}
	if err := ValidatePath(input.Path, PathCheckRead, env.config(), env.BaseDir); err != nil {
		return nil, err
	}

	f, err := openFileNoFollowRead(input.Path)
	if err != nil {
		if _, ok := errors.As(err); ok {
			return nil, err
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to open import file: %w", err))
	}
	defer f.Close()

	backup, err := export.ReadJSONL(f)
	if err != nil {
		return nil, errors.NewValidation(err.Error())
	}

	out := &ImportOutput{}
	err = env.mutate(ctx, "import", func(m *plan.Machine, _ time.Time) error {
		return mergeSnapshot(m.Snapshot(), backup, input.Mode, out)
	})
	if err != nil {
		return nil, err
	}
	env.logger().Info("imported backup", "path", input.Path, "imported", out.Imported, "replaced", out.Replaced, "skipped", out.Skipped)
	return out, nil
}

func mergeSnapshot(dst, src *plan.Snapshot, mode ImportMode, out *ImportOutput) error {
	collide := func(kind, id string, exists bool) (bool, error) {
		if !exists {
			out.Imported++
			return true, nil
		}
		switch mode {
		case ImportModeReplace:
			out.Replaced++
			return true, nil
		case ImportModeSkip:
			out.Skipped++
			return false, nil
		}
		return false, errors.NewConflict(fmt.Sprintf("%s already exists: %s", kind, id))
	}

	for _, t := range src.Templates {
		cur := dst.Template(t.ID)
		ok, err := collide("template", t.ID, cur != nil)
		if err != nil {
			return err
		}
		switch {
		case ok && cur != nil:
			*cur = t
		case ok:
			dst.Templates = append(dst.Templates, t)
		}
	}
	for _, p := range src.Plans {
		cur := dst.Plan(p.ID)
		ok, err := collide("plan item", p.ID, cur != nil)
		if err != nil {
			return err
		}
		switch {
		case ok && cur != nil:
			*cur = p
		case ok:
			dst.Plans = append(dst.Plans, p)
		}
	}
	for _, s := range src.Sessions {
		if !s.EndAt.After(s.StartAt) {
			out.Skipped++
			continue
		}
		cur := dst.Session(s.ID)
		ok, err := collide("session", s.ID, cur != nil)
		if err != nil {
			return err
		}
		switch {
		case ok && cur != nil:
			*cur = s
		case ok:
			dst.Sessions = append(dst.Sessions, s)
		}
	}

	// A running timer in the store always wins over one in the backup.
	if dst.Active == nil && src.Active != nil {
		dst.Active = src.Active
		dst.Resume = src.Resume
	}
	for day, ids := range src.Suppressions {
		for _, id := range ids {
			if !dst.Suppressed(day, id) {
				dst.Suppressions[day] = append(dst.Suppressions[day], id)
			}
		}
	}
	for key := range src.ImportedEvents {
		dst.ImportedEvents[key] = true
	}
	return nil
}
