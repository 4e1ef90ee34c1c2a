package main

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/hpungsan/daychain/internal/clock"
	"github.com/hpungsan/daychain/internal/config"
	"github.com/hpungsan/daychain/internal/db"
	"github.com/hpungsan/daychain/internal/logging"
	"github.com/hpungsan/daychain/internal/ops"
	"github.com/hpungsan/daychain/internal/plan"
)

func at(h, m int) time.Time {
	return time.Date(2026, 10, 16, h, m, 0, 0, time.UTC)
}

// setupTestEnv creates a temporary store with a stopped clock.
func setupTestEnv(t *testing.T) (*ops.Env, *clock.Fixed) {
	t.Helper()
	tmpDir := t.TempDir()
	database, err := db.Init(tmpDir)
	if err != nil {
		t.Fatalf("failed to init test db: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	cfg := config.DefaultConfig()
	cfg.Timezone = "UTC"
	clk := clock.NewFixed(at(8, 0))
	return &ops.Env{
		DB:      database,
		Config:  cfg,
		Clock:   clk,
		Logger:  logging.Discard(),
		BaseDir: tmpDir,
	}, clk
}

// runCLI runs the app and captures what it writes to stdout.
func runCLI(t *testing.T, env *ops.Env, args ...string) (string, error) {
	t.Helper()
	app := newCLIApp(env)

	oldStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	os.Stdout = w

	runErr := app.Run(append([]string{"daychain"}, args...))

	w.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(r)
	os.Stdout = oldStdout
	return buf.String(), runErr
}

// runCLIStdin is runCLI with stdin replaced by input.
func runCLIStdin(t *testing.T, env *ops.Env, input string, args ...string) (string, error) {
	t.Helper()
	oldStdin := os.Stdin
	stdinR, stdinW, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	os.Stdin = stdinR
	defer func() { os.Stdin = oldStdin }()

	go func() {
		_, _ = stdinW.WriteString(input)
		stdinW.Close()
	}()
	return runCLI(t, env, args...)
}

func mustRun(t *testing.T, env *ops.Env, out any, args ...string) {
	t.Helper()
	stdout, err := runCLI(t, env, args...)
	if err != nil {
		t.Fatalf("%v failed: %v", args, err)
	}
	if out == nil {
		return
	}
	if err := json.Unmarshal([]byte(stdout), out); err != nil {
		t.Fatalf("failed to parse output of %v: %v\nOutput: %s", args, err, stdout)
	}
}

// TestParseTags tests the parseTags helper function.
func TestParseTags(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{name: "empty string", input: "", expected: nil},
		{name: "single tag", input: "foo", expected: []string{"foo"}},
		{name: "multiple tags", input: "foo,bar,baz", expected: []string{"foo", "bar", "baz"}},
		{name: "tags with spaces", input: " foo , bar , baz ", expected: []string{"foo", "bar", "baz"}},
		{name: "empty tags filtered", input: "foo,,bar,", expected: []string{"foo", "bar"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := parseTags(tt.input)
			if len(result) != len(tt.expected) {
				t.Errorf("expected %d tags, got %d", len(tt.expected), len(result))
				return
			}
			for i, tag := range result {
				if tag != tt.expected[i] {
					t.Errorf("expected tag[%d]=%q, got %q", i, tt.expected[i], tag)
				}
			}
		})
	}
}

func TestParseMinutes(t *testing.T) {
	tests := []struct {
		input       string
		expected    int
		expectError bool
	}{
		{input: "", expected: 0},
		{input: "45", expected: 45},
		{input: " 30 ", expected: 30},
		{input: "1h30m", expected: 90},
		{input: "90s", expected: 2},
		{input: "-5", expectError: true},
		{input: "-1h", expectError: true},
		{input: "soon", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result, err := parseMinutes(tt.input)
			if tt.expectError {
				if err == nil {
					t.Errorf("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if result != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, result)
			}
		})
	}
}

func TestParseWeekdays(t *testing.T) {
	days, err := parseWeekdays("0, 2,4")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(days) != 3 || days[0] != 0 || days[1] != 2 || days[2] != 4 {
		t.Errorf("days = %v", days)
	}

	days, err = parseWeekdays("")
	if err != nil || days == nil || len(days) != 0 {
		t.Errorf("empty input: days=%v err=%v, want empty non-nil", days, err)
	}

	for _, bad := range []string{"7", "-1", "mon"} {
		if _, err := parseWeekdays(bad); err == nil {
			t.Errorf("parseWeekdays(%q): expected error", bad)
		}
	}
}

func TestParseTime(t *testing.T) {
	loc := time.FixedZone("JST", 9*3600)

	got, err := parseTime("2026-10-16T09:30:00Z", loc)
	if err != nil || !got.Equal(at(9, 30)) {
		t.Errorf("RFC 3339: got %v, %v", got, err)
	}

	got, err = parseTime("2026-10-16 18:30", loc)
	if err != nil || !got.Equal(at(9, 30)) {
		t.Errorf("local: got %v, %v", got, err)
	}

	if _, err := parseTime("09:30", loc); err == nil {
		t.Error("expected error for a bare time")
	}
}

func TestCLITimer(t *testing.T) {
	env, clk := setupTestEnv(t)

	var started plan.ActiveSession
	mustRun(t, env, &started, "start", "--tags=deep", "Write", "draft")
	if started.Name != "Write draft" {
		t.Errorf("expected name=Write draft, got %q", started.Name)
	}

	clk.Set(at(8, 25))
	var status ops.StatusOutput
	mustRun(t, env, &status, "status")
	if !status.Running || status.ElapsedSec != 1500 {
		t.Errorf("status = %+v", status)
	}

	var stopped plan.StopResult
	mustRun(t, env, &stopped, "stop", "--note", "first pass")
	if stopped.Session.DurationSec != 1500 {
		t.Errorf("expected duration_sec=1500, got %d", stopped.Session.DurationSec)
	}
	if stopped.Session.Note != "first pass" {
		t.Errorf("expected note, got %q", stopped.Session.Note)
	}
	if len(stopped.Session.Tags) != 1 || stopped.Session.Tags[0] != "deep" {
		t.Errorf("expected tags [deep], got %v", stopped.Session.Tags)
	}

	var sessions ops.ListSessionsOutput
	mustRun(t, env, &sessions, "log", "list", "--tag", "deep")
	if sessions.Count != 1 || sessions.TotalSec != 1500 {
		t.Errorf("sessions = %+v", sessions)
	}
}

func TestCLIInterrupt(t *testing.T) {
	env, clk := setupTestEnv(t)

	mustRun(t, env, nil, "start", "Design")
	clk.Set(at(8, 20))

	var res plan.InterruptResult
	mustRun(t, env, &res, "interrupt", "Phone")
	if res.Active == nil || res.Active.Name != "Phone" {
		t.Fatalf("expected Phone to be running, got %+v", res.Active)
	}

	clk.Set(at(8, 30))
	var stopped plan.StopResult
	mustRun(t, env, &stopped, "stop")
	if stopped.Resumed == nil || stopped.Resumed.Name != "Design #2" {
		t.Errorf("expected Design #2 to resume, got %+v", stopped.Resumed)
	}
}

func TestCLIPlan(t *testing.T) {
	env, clk := setupTestEnv(t)

	var item plan.PlanItem
	mustRun(t, env, &item, "plan", "add", "--estimate", "1h", "--at", "09:00", "Write")
	if item.EstimateMin != 60 || item.ScheduledAt != "09:00" || item.Day != "2026-10-16" {
		t.Fatalf("unexpected item: %+v", item)
	}

	var second plan.PlanItem
	mustRun(t, env, &second, "plan", "add", "-e", "30", "Review")

	mustRun(t, env, &item, "plan", "estimate", item.ID, "-15")
	if item.EstimateMin != 45 {
		t.Errorf("expected estimate 45, got %d", item.EstimateMin)
	}

	var edited plan.PlanItem
	mustRun(t, env, &edited, "plan", "edit", "--name", "Review PRs", second.ID)
	if edited.Name != "Review PRs" || edited.EstimateMin != 30 {
		t.Errorf("unexpected edit: %+v", edited)
	}

	var today ops.TodayOutput
	clk.Set(at(8, 50))
	mustRun(t, env, &today, "today")
	if today.Chain == nil || len(today.Chain.Entries) != 2 {
		t.Fatalf("expected 2 chain entries, got %+v", today.Chain)
	}
	first := today.Chain.Entries[0]
	if first.PlanID != item.ID || first.PlannedStart == nil || !first.PlannedStart.Equal(at(9, 0)) {
		t.Errorf("expected Write at 09:00 first, got %+v", first)
	}

	mustRun(t, env, nil, "plan", "done", item.ID)
	var list ops.ListPlanOutput
	mustRun(t, env, &list, "plan", "list")
	if list.Count != 2 || list.Done != 1 {
		t.Errorf("expected 1 of 2 done, got %d of %d", list.Done, list.Count)
	}
}

func TestCLIPlanDeleteRestore(t *testing.T) {
	env, _ := setupTestEnv(t)

	var item plan.PlanItem
	mustRun(t, env, &item, "plan", "add", "-e", "20", "Inbox")

	stdout, err := runCLI(t, env, "plan", "delete", item.ID)
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	var restored plan.PlanItem
	stdout, err = runCLIStdin(t, env, stdout, "plan", "restore")
	if err != nil {
		t.Fatalf("restore failed: %v", err)
	}
	if err := json.Unmarshal([]byte(stdout), &restored); err != nil {
		t.Fatalf("failed to parse output: %v", err)
	}
	if restored.ID != item.ID || restored.Name != "Inbox" {
		t.Errorf("unexpected restore: %+v", restored)
	}

	_, err = runCLIStdin(t, env, "not json", "plan", "restore")
	if err == nil || !strings.Contains(err.Error(), "[VALIDATION]") {
		t.Errorf("expected VALIDATION, got %v", err)
	}
}

func TestCLITemplates(t *testing.T) {
	env, _ := setupTestEnv(t)

	var tmpl plan.Template
	mustRun(t, env, &tmpl, "template", "add", "--name", "Stretch", "--routine", "--at", "10:00", "--days", "4")
	if !tmpl.IsRoutine || tmpl.TimeOfDay != "10:00" {
		t.Fatalf("unexpected template: %+v", tmpl)
	}
	mustRun(t, env, nil, "template", "add", "--name", "Email")

	var list ops.ListTemplatesOutput
	mustRun(t, env, &list, "template", "list", "--routines")
	if list.Count != 1 || list.Items[0].ID != tmpl.ID {
		t.Errorf("expected only the routine, got %+v", list)
	}

	// 2026-10-16 is a Friday (4).
	var today ops.TodayOutput
	mustRun(t, env, &today, "today")
	if len(today.Injected) != 1 || today.Injected[0].Name != "Stretch" {
		t.Errorf("expected Stretch to be injected, got %+v", today.Injected)
	}

	mustRun(t, env, nil, "template", "delete", tmpl.ID)
	mustRun(t, env, &list, "template", "list")
	if list.Count != 1 {
		t.Errorf("expected 1 template left, got %d", list.Count)
	}
}

func TestCLIReport(t *testing.T) {
	env, _ := setupTestEnv(t)
	mustRun(t, env, nil, "plan", "add", "-e", "30", "Write")

	stdout, err := runCLI(t, env, "report")
	if err != nil {
		t.Fatalf("report failed: %v", err)
	}
	if !strings.HasPrefix(stdout, "# Daily report 2026-10-16") {
		t.Errorf("unexpected report: %s", stdout)
	}
	if !strings.Contains(stdout, "| Write |") {
		t.Errorf("expected plan row, got: %s", stdout)
	}

	var out ops.ReportOutput
	mustRun(t, env, &out, "report", "--json")
	if !strings.Contains(out.HTML, "<table>") {
		t.Errorf("expected rendered table, got: %s", out.HTML)
	}
}

func TestCLICalendarImport(t *testing.T) {
	env, _ := setupTestEnv(t)

	events := `[{"uid":"abc","summary":"Standup","start":"2026-10-16T10:00:00Z","end":"2026-10-16T10:15:00Z"}]`
	stdout, err := runCLIStdin(t, env, events, "calendar-import")
	if err != nil {
		t.Fatalf("calendar-import failed: %v", err)
	}
	var out ops.ImportCalendarOutput
	if err := json.Unmarshal([]byte(stdout), &out); err != nil {
		t.Fatalf("failed to parse output: %v", err)
	}
	if len(out.Imported) != 1 || out.Imported[0].ScheduledAt != "10:00" || out.Imported[0].EstimateMin != 15 {
		t.Errorf("unexpected import: %+v", out)
	}

	stdout, err = runCLIStdin(t, env, events, "calendar-import")
	if err != nil {
		t.Fatalf("second calendar-import failed: %v", err)
	}
	if err := json.Unmarshal([]byte(stdout), &out); err != nil {
		t.Fatalf("failed to parse output: %v", err)
	}
	if len(out.Imported) != 0 || len(out.Skipped) != 1 {
		t.Errorf("expected the duplicate to be skipped, got %+v", out)
	}
}

func TestCLIExportImport(t *testing.T) {
	env, clk := setupTestEnv(t)
	mustRun(t, env, nil, "plan", "add", "-e", "30", "Write")
	mustRun(t, env, nil, "start", "Write")
	clk.Set(at(8, 30))
	mustRun(t, env, nil, "stop")

	var exported ops.ExportOutput
	mustRun(t, env, &exported, "export")
	if exported.Format != "jsonl" || exported.Count == 0 {
		t.Fatalf("unexpected export: %+v", exported)
	}
	if _, err := os.Stat(exported.Path); err != nil {
		t.Fatalf("export file missing: %v", err)
	}

	_, err := runCLI(t, env, "import", "--path", exported.Path)
	if err == nil || !strings.Contains(err.Error(), "[CONFLICT]") {
		t.Errorf("expected CONFLICT in error mode, got %v", err)
	}

	var imported ops.ImportOutput
	mustRun(t, env, &imported, "import", "--path", exported.Path, "--mode", "skip")
	if imported.Imported != 0 || imported.Skipped == 0 {
		t.Errorf("expected everything skipped, got %+v", imported)
	}

	var csv ops.ExportOutput
	mustRun(t, env, &csv, "export", "--format", "csv", "--from", "2026-10-16")
	if csv.Count != 1 {
		t.Errorf("expected 1 session in csv, got %d", csv.Count)
	}
}

// TestCLIErrorHandling tests that errors carry their code.
func TestCLIErrorHandling(t *testing.T) {
	env, _ := setupTestEnv(t)

	tests := []struct {
		name string
		args []string
		code string
	}{
		{name: "stop while idle", args: []string{"stop"}, code: "[NOT_RUNNING]"},
		{name: "complete unknown item", args: []string{"plan", "done", "nope"}, code: "[NOT_FOUND]"},
		{name: "delete without id", args: []string{"plan", "delete"}, code: "[VALIDATION]"},
		{name: "estimate without delta", args: []string{"plan", "estimate", "x"}, code: "[VALIDATION]"},
		{name: "estimate with bad delta", args: []string{"plan", "estimate", "x", "lots"}, code: "[VALIDATION]"},
		{name: "bad estimate", args: []string{"plan", "add", "--estimate", "soon", "X"}, code: "[VALIDATION]"},
		{name: "bad weekday", args: []string{"template", "add", "--name", "X", "--days", "9"}, code: "[VALIDATION]"},
		{name: "bad session time", args: []string{"log", "edit", "--start", "noon", "x"}, code: "[VALIDATION]"},
		{name: "bad review range", args: []string{"review", "--range", "decade"}, code: "[VALIDATION]"},
		{name: "bad day", args: []string{"today", "--day", "2026-13-01"}, code: "[VALIDATION]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCLI(t, env, tt.args...)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.code) {
				t.Errorf("expected %s, got %v", tt.code, err)
			}
		})
	}
}

// TestIsCLIMode tests the CLI vs MCP mode detection logic.
func TestIsCLIMode(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected bool
	}{
		{name: "no args", args: []string{"daychain"}, expected: false},
		{name: "start command", args: []string{"daychain", "start"}, expected: true},
		{name: "plan command", args: []string{"daychain", "plan", "list"}, expected: true},
		{name: "web command", args: []string{"daychain", "web"}, expected: true},
		{name: "calendar import", args: []string{"daychain", "calendar-import"}, expected: true},
		{name: "help flag", args: []string{"daychain", "--help"}, expected: true},
		{name: "version flag", args: []string{"daychain", "-v"}, expected: true},
		{name: "unknown command", args: []string{"daychain", "frobnicate"}, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isCLIMode(tt.args); got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

// TestIsHelpOrVersion tests the help/version detection logic.
func TestIsHelpOrVersion(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected bool
	}{
		{name: "no args", args: []string{"daychain"}, expected: false},
		{name: "help command", args: []string{"daychain", "help"}, expected: true},
		{name: "short help", args: []string{"daychain", "-h"}, expected: true},
		{name: "version flag", args: []string{"daychain", "--version"}, expected: true},
		{name: "start command is not help", args: []string{"daychain", "start"}, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isHelpOrVersion(tt.args); got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

// TestReadStdinWithLimit tests the readStdin function respects size limits.
func TestReadStdinWithLimit(t *testing.T) {
	withStdin := func(t *testing.T, content string) {
		t.Helper()
		r, w, err := os.Pipe()
		if err != nil {
			t.Fatalf("Failed to create pipe: %v", err)
		}
		go func() {
			_, _ = w.WriteString(content)
			w.Close()
		}()
		oldStdin := os.Stdin
		os.Stdin = r
		t.Cleanup(func() { os.Stdin = oldStdin })
	}

	t.Run("within limit", func(t *testing.T) {
		withStdin(t, "  small content\n")
		result, err := readStdin(1000)
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if result != "small content" {
			t.Errorf("expected %q, got %q", "small content", result)
		}
	})

	t.Run("exceeds limit", func(t *testing.T) {
		withStdin(t, strings.Repeat("x", 100))
		if _, err := readStdin(50); err == nil {
			t.Error("expected error for content exceeding limit, got nil")
		}
	})
}
