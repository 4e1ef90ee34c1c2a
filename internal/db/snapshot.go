package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/hpungsan/daychain/internal/errors"
	"github.com/hpungsan/daychain/internal/plan"
)

// Querier is satisfied by *sql.DB and *sql.Tx.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// LoadSnapshot reads every table into a snapshot inside one read transaction.
// Empty tables load as empty collections with no active session.
func LoadSnapshot(ctx context.Context, db *sql.DB) (*plan.Snapshot, error) {
	tx, err := db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, wrapErr(ctx, "load", err)
	}
	defer func() { _ = tx.Rollback() }()

	snap := plan.NewSnapshot()
	loaders := []func(context.Context, Querier, *plan.Snapshot) error{
		loadTemplates,
		loadPlans,
		loadSessions,
		loadActive,
		loadResume,
		loadSuppressions,
		loadKeys("imported_events", snap.ImportedEvents),
		loadKeys("notified", snap.Notified),
	}
	for _, load := range loaders {
		if err := load(ctx, tx, snap); err != nil {
			return nil, wrapErr(ctx, "load", err)
		}
	}
	return snap, nil
}

// SaveSnapshot replaces every table with snap in one transaction. A failed
// save leaves the previous snapshot in place.
func SaveSnapshot(ctx context.Context, db *sql.DB, snap *plan.Snapshot) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return wrapErr(ctx, "save", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{
		"templates", "plan_items", "sessions", "active_session",
		"resume_intent", "plan_suppressions", "imported_events", "notified",
	} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return wrapErr(ctx, "save", err)
		}
	}

	savers := []func(context.Context, *sql.Tx, *plan.Snapshot) error{
		saveTemplates,
		savePlans,
		saveSessions,
		saveActive,
		saveResume,
		saveSuppressions,
		saveKeys("imported_events", snap.ImportedEvents),
		saveKeys("notified", snap.Notified),
	}
	for _, save := range savers {
		if err := save(ctx, tx, snap); err != nil {
			return wrapErr(ctx, "save", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return wrapErr(ctx, "save", err)
	}
	return nil
}

// wrapErr maps context cancellation to CANCELLED and anything else to INTERNAL.
func wrapErr(ctx context.Context, op string, err error) error {
	if ctx.Err() != nil {
		return errors.NewCancelled(op)
	}
	return errors.NewInternal(err)
}

func loadTemplates(ctx context.Context, q Querier, snap *plan.Snapshot) error {
	rows, err := q.QueryContext(ctx, `
		SELECT id, name, default_tags_json, color, is_routine, routine_days_json,
			time_of_day, target_daily_min, target_weekly_min, target_monthly_min
		FROM templates ORDER BY rowid
	`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			t         plan.Template
			tagsJSON  sql.NullString
			color     sql.NullString
			daysJSON  sql.NullString
			timeOfDay sql.NullString
		)
		if err := rows.Scan(&t.ID, &t.Name, &tagsJSON, &color, &t.IsRoutine, &daysJSON,
			&timeOfDay, &t.TargetDailyMin, &t.TargetWeeklyMin, &t.TargetMonthlyMin); err != nil {
			return err
		}
		t.Color = color.String
		t.TimeOfDay = timeOfDay.String
		if err := decodeJSON(tagsJSON, &t.DefaultTags); err != nil {
			return err
		}
		if err := decodeJSON(daysJSON, &t.RoutineDays); err != nil {
			return err
		}
		snap.Templates = append(snap.Templates, t)
	}
	return rows.Err()
}

func saveTemplates(ctx context.Context, tx *sql.Tx, snap *plan.Snapshot) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO templates (
			id, name, default_tags_json, color, is_routine, routine_days_json,
			time_of_day, target_daily_min, target_weekly_min, target_monthly_min
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, t := range snap.Templates {
		tags, err := encodeJSON(t.DefaultTags)
		if err != nil {
			return err
		}
		days, err := encodeJSON(t.RoutineDays)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, t.ID, t.Name, tags, toNullString(t.Color), t.IsRoutine, days,
			toNullString(t.TimeOfDay), t.TargetDailyMin, t.TargetWeeklyMin, t.TargetMonthlyMin); err != nil {
			return err
		}
	}
	return nil
}

func loadPlans(ctx context.Context, q Querier, snap *plan.Snapshot) error {
	rows, err := q.QueryContext(ctx, `
		SELECT id, day, template_id, name, estimate_min, scheduled_at, status,
			prev_status, sort_order, auto_injected, external_key
		FROM plan_items ORDER BY rowid
	`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			p                          plan.PlanItem
			templateID, scheduledAt    sql.NullString
			status, prevStatus, extKey sql.NullString
		)
		if err := rows.Scan(&p.ID, &p.Day, &templateID, &p.Name, &p.EstimateMin, &scheduledAt, &status,
			&prevStatus, &p.Order, &p.AutoInjected, &extKey); err != nil {
			return err
		}
		p.TemplateID = templateID.String
		p.ScheduledAt = scheduledAt.String
		p.Status = plan.Status(status.String)
		if !p.Status.Valid() {
			p.Status = plan.StatusTodo
		}
		p.PrevStatus = plan.Status(prevStatus.String)
		p.ExternalKey = extKey.String
		snap.Plans = append(snap.Plans, p)
	}
	return rows.Err()
}

func savePlans(ctx context.Context, tx *sql.Tx, snap *plan.Snapshot) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO plan_items (
			id, day, template_id, name, estimate_min, scheduled_at, status,
			prev_status, sort_order, auto_injected, external_key
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range snap.Plans {
		if _, err := stmt.ExecContext(ctx, p.ID, p.Day, toNullString(p.TemplateID), p.Name, p.EstimateMin,
			toNullString(p.ScheduledAt), string(p.Status), toNullString(string(p.PrevStatus)),
			p.Order, p.AutoInjected, toNullString(p.ExternalKey)); err != nil {
			return err
		}
	}
	return nil
}

func loadSessions(ctx context.Context, q Querier, snap *plan.Snapshot) error {
	rows, err := q.QueryContext(ctx, `
		SELECT id, name, start_at, end_at, duration_sec, tags_json, note,
			template_id, plan_id, interrupt_group_id, segment_index
		FROM sessions ORDER BY rowid
	`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			s                                    plan.Session
			startMs, endMs                       int64
			tagsJSON, note                       sql.NullString
			templateID, planID, interruptGroupID sql.NullString
		)
		if err := rows.Scan(&s.ID, &s.Name, &startMs, &endMs, &s.DurationSec, &tagsJSON, &note,
			&templateID, &planID, &interruptGroupID, &s.SegmentIndex); err != nil {
			return err
		}
		s.StartAt = fromMillis(startMs)
		s.EndAt = fromMillis(endMs)
		s.Note = note.String
		s.TemplateID = templateID.String
		s.PlanID = planID.String
		s.InterruptGroupID = interruptGroupID.String
		if err := decodeJSON(tagsJSON, &s.Tags); err != nil {
			return err
		}
		snap.Sessions = append(snap.Sessions, s)
	}
	return rows.Err()
}

func saveSessions(ctx context.Context, tx *sql.Tx, snap *plan.Snapshot) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO sessions (
			id, name, start_at, end_at, duration_sec, tags_json, note,
			template_id, plan_id, interrupt_group_id, segment_index
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, s := range snap.Sessions {
		tags, err := encodeJSON(s.Tags)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, s.ID, s.Name, s.StartAt.UnixMilli(), s.EndAt.UnixMilli(),
			s.DurationSec, tags, toNullString(s.Note), toNullString(s.TemplateID), toNullString(s.PlanID),
			toNullString(s.InterruptGroupID), s.SegmentIndex); err != nil {
			return err
		}
	}
	return nil
}

func loadActive(ctx context.Context, q Querier, snap *plan.Snapshot) error {
	var (
		a                      plan.ActiveSession
		startMs                int64
		templateID, planID     sql.NullString
		quickNote, segmentJSON sql.NullString
		quickTagsJSON          sql.NullString
	)
	err := q.QueryRowContext(ctx, `
		SELECT id, template_id, name, start_at, plan_id, quick_note, segment_json,
			alerted, quick_default_tags_json
		FROM active_session WHERE slot = 1
	`).Scan(&a.ID, &templateID, &a.Name, &startMs, &planID, &quickNote, &segmentJSON,
		&a.Alerted, &quickTagsJSON)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return err
	}
	a.StartAt = fromMillis(startMs)
	a.TemplateID = templateID.String
	a.PlanID = planID.String
	a.QuickNote = quickNote.String
	if segmentJSON.Valid && segmentJSON.String != "" {
		a.Segment = &plan.SegmentTag{}
		if err := json.Unmarshal([]byte(segmentJSON.String), a.Segment); err != nil {
			return err
		}
	}
	if err := decodeJSON(quickTagsJSON, &a.QuickDefaultTags); err != nil {
		return err
	}
	snap.Active = &a
	return nil
}

func saveActive(ctx context.Context, tx *sql.Tx, snap *plan.Snapshot) error {
	a := snap.Active
	if a == nil {
		return nil
	}
	var segment sql.NullString
	if a.Segment != nil {
		data, err := json.Marshal(a.Segment)
		if err != nil {
			return err
		}
		segment = sql.NullString{String: string(data), Valid: true}
	}
	quickTags, err := encodeJSON(a.QuickDefaultTags)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO active_session (
			slot, id, template_id, name, start_at, plan_id, quick_note, segment_json,
			alerted, quick_default_tags_json
		) VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, a.ID, toNullString(a.TemplateID), a.Name, a.StartAt.UnixMilli(), toNullString(a.PlanID),
		toNullString(a.QuickNote), segment, a.Alerted, quickTags)
	return err
}

func loadResume(ctx context.Context, q Querier, snap *plan.Snapshot) error {
	var (
		r              plan.ResumeIntent
		baseTemplateID sql.NullString
	)
	err := q.QueryRowContext(ctx, `
		SELECT base_name, base_template_id, group_id, next_index, interrupt_session_id
		FROM resume_intent WHERE slot = 1
	`).Scan(&r.BaseName, &baseTemplateID, &r.GroupID, &r.NextIndex, &r.InterruptSessionID)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return err
	}
	r.BaseTemplateID = baseTemplateID.String
	snap.Resume = &r
	return nil
}

func saveResume(ctx context.Context, tx *sql.Tx, snap *plan.Snapshot) error {
	r := snap.Resume
	if r == nil {
		return nil
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO resume_intent (
			slot, base_name, base_template_id, group_id, next_index, interrupt_session_id
		) VALUES (1, ?, ?, ?, ?, ?)
	`, r.BaseName, toNullString(r.BaseTemplateID), r.GroupID, r.NextIndex, r.InterruptSessionID)
	return err
}

func loadSuppressions(ctx context.Context, q Querier, snap *plan.Snapshot) error {
	rows, err := q.QueryContext(ctx, `SELECT day, template_id FROM plan_suppressions ORDER BY rowid`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var day, templateID string
		if err := rows.Scan(&day, &templateID); err != nil {
			return err
		}
		snap.Suppressions[day] = append(snap.Suppressions[day], templateID)
	}
	return rows.Err()
}

func saveSuppressions(ctx context.Context, tx *sql.Tx, snap *plan.Snapshot) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO plan_suppressions (day, template_id) VALUES (?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for day, ids := range snap.Suppressions {
		for _, id := range ids {
			if _, err := stmt.ExecContext(ctx, day, id); err != nil {
				return err
			}
		}
	}
	return nil
}

// loadKeys and saveKeys handle the single-column key sets.
func loadKeys(table string, into map[string]bool) func(context.Context, Querier, *plan.Snapshot) error {
	return func(ctx context.Context, q Querier, _ *plan.Snapshot) error {
		rows, err := q.QueryContext(ctx, "SELECT key FROM "+table)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var key string
			if err := rows.Scan(&key); err != nil {
				return err
			}
			into[key] = true
		}
		return rows.Err()
	}
}

func saveKeys(table string, keys map[string]bool) func(context.Context, *sql.Tx, *plan.Snapshot) error {
	return func(ctx context.Context, tx *sql.Tx, _ *plan.Snapshot) error {
		stmt, err := tx.PrepareContext(ctx, "INSERT INTO "+table+" (key) VALUES (?)")
		if err != nil {
			return err
		}
		defer stmt.Close()

		for key, ok := range keys {
			if !ok {
				continue
			}
			if _, err := stmt.ExecContext(ctx, key); err != nil {
				return err
			}
		}
		return nil
	}
}

// encodeJSON stores empty slices as NULL.
func encodeJSON[T any](v []T) (sql.NullString, error) {
	if len(v) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func decodeJSON[T any](ns sql.NullString, into *[]T) error {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	return json.Unmarshal([]byte(ns.String), into)
}

// toNullString stores empty strings as NULL.
func toNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
