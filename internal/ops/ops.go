// Package ops implements every user operation as one load-apply-save pass
// over the stored snapshot. A rejected operation saves nothing.
package ops

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"
	"time"

	"github.com/hpungsan/daychain/internal/clock"
	"github.com/hpungsan/daychain/internal/config"
	"github.com/hpungsan/daychain/internal/db"
	"github.com/hpungsan/daychain/internal/errors"
	"github.com/hpungsan/daychain/internal/logging"
	"github.com/hpungsan/daychain/internal/plan"
	"github.com/hpungsan/daychain/internal/schedule"
)

// Env is what every operation needs.
type Env struct {
	DB      *sql.DB
	Config  *config.Config
	Clock   clock.Clock
	Logger  *slog.Logger
	BaseDir string
}

func (e *Env) now() time.Time {
	if e.Clock == nil {
		return time.Now()
	}
	return e.Clock.Now()
}

func (e *Env) config() *config.Config {
	if e.Config == nil {
		return config.DefaultConfig()
	}
	return e.Config
}

func (e *Env) logger() *slog.Logger {
	if e.Logger == nil {
		return logging.Logger()
	}
	return e.Logger
}

func (e *Env) resolver() clock.Resolver {
	return e.config().Resolver()
}

func (e *Env) location() *time.Location {
	loc, err := e.config().Location()
	if err != nil {
		return time.Local
	}
	return loc
}

func (e *Env) options() plan.Options {
	cfg := e.config()
	return plan.Options{
		Resolver:          cfg.Resolver(),
		SuffixMode:        cfg.InterruptionSuffixMode,
		AutoDoneOnStop:    cfg.AutoDoneOnStop,
		AutoStartNext:     cfg.AutoStartNext,
		AutoEstimateLearn: cfg.AutoEstimateLearn,
	}
}

// load reads the current snapshot.
func (e *Env) load(ctx context.Context) (*plan.Snapshot, error) {
	snap, err := db.LoadSnapshot(ctx, e.DB)
	if err != nil {
		return nil, storeErr(err)
	}
	return snap, nil
}

// storeErr keeps coded errors and turns anything else into INTERNAL.
func storeErr(err error) error {
	if _, ok := errors.As(err); ok {
		return err
	}
	return errors.NewInternal(err)
}

// view loads the snapshot and wraps it in a machine for read-only use.
func (e *Env) view(ctx context.Context) (*plan.Machine, time.Time, error) {
	snap, err := e.load(ctx)
	if err != nil {
		return nil, time.Time{}, err
	}
	return plan.NewMachine(snap, e.options(), e.logger()), e.now(), nil
}

// mutate loads the snapshot, applies fn and saves the result. When fn
// fails nothing is written.
func (e *Env) mutate(ctx context.Context, op string, fn func(m *plan.Machine, now time.Time) error) error {
	return e.apply(ctx, op, func(m *plan.Machine, now time.Time) (bool, error) {
		return true, fn(m, now)
	})
}

// apply is mutate for operations that may find nothing to change; it saves
// only when fn reports a change.
func (e *Env) apply(ctx context.Context, op string, fn func(m *plan.Machine, now time.Time) (bool, error)) error {
	snap, err := e.load(ctx)
	if err != nil {
		return err
	}
	m := plan.NewMachine(snap, e.options(), e.logger())
	changed, err := fn(m, e.now())
	if err != nil || !changed {
		return err
	}
	if err := db.SaveSnapshot(ctx, e.DB, m.Snapshot()); err != nil {
		e.logger().Error("snapshot save failed", "op", op, "error", err)
		return storeErr(err)
	}
	e.logger().Debug("snapshot saved", "op", op)
	return nil
}

// resolveDay validates an explicit day key or defaults to today's plan day.
func (e *Env) resolveDay(day string, now time.Time) (string, error) {
	day = strings.TrimSpace(day)
	if day == "" {
		return e.resolver().PlanDay(now), nil
	}
	if !clock.ValidDay(day) {
		return "", errors.NewValidation("day must be YYYY-MM-DD")
	}
	return day, nil
}

// project builds the chained schedule for day.
func (e *Env) project(snap *plan.Snapshot, day string, now time.Time) schedule.Projection {
	cfg := e.config()
	from, to := e.resolver().PlanRange(day)
	return schedule.Project(schedule.Input{
		Day:      day,
		Plans:    snap.PlansForDay(day),
		Sessions: snap.SessionsBetween(from, to),
		Active:   snap.Active,
		Now:      now,
		Base:     schedule.Base(cfg.ChainBase),
		Loc:      e.location(),
		Bedtime:  cfg.Bedtime,
	})
}

func (e *Env) window() schedule.Window {
	cfg := e.config()
	return schedule.Window{
		WorkStart:  cfg.WorkStart,
		WorkEnd:    cfg.WorkEnd,
		LunchStart: cfg.LunchStart,
		LunchEnd:   cfg.LunchEnd,
		LunchMin:   cfg.LunchMin,
	}
}

// requireID trims id and rejects blanks.
func requireID(id, what string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", errors.NewValidation(what + " is required")
	}
	return id, nil
}
