package mcp

import "github.com/mark3labs/mcp-go/mcp"

var stringItems = mcp.Items(map[string]any{"type": "string"})

var timerStartToolDef = mcp.NewTool(
	"timer_start",
	mcp.WithDescription("Start tracking a task. Name it freely, or point at a template or plan item."),
	mcp.WithString("name", mcp.Description("Task name. Required unless template_id or plan_id is given.")),
	mcp.WithString("template_id", mcp.Description("Template to track. Adds a plan row when today has none.")),
	mcp.WithString("plan_id", mcp.Description("Plan item to track.")),
	mcp.WithBoolean("switch", mcp.Description("Stop the running task first instead of failing with CONFLICT.")),
	mcp.WithArray("tags", stringItems, mcp.Description("Tags recorded on the session when it stops.")),
)

var timerStopToolDef = mcp.NewTool(
	"timer_stop",
	mcp.WithDescription("Stop the running task and record a session."),
	mcp.WithArray("tags", stringItems, mcp.Description("Extra tags for the session.")),
	mcp.WithString("note", mcp.Description("Note appended after any quick notes.")),
	mcp.WithBoolean("complete", mcp.Description("Mark the matching plan item done.")),
	mcp.WithString("split",
		mcp.Description("Carry the unfinished remainder into a new plan item."),
		mcp.Enum("split", "split-tomorrow"),
	),
)

var timerInterruptToolDef = mcp.NewTool(
	"timer_interrupt",
	mcp.WithDescription("Pause the running task for an interruption. Stopping the interruption resumes the task as the next segment."),
	mcp.WithString("name", mcp.Description("Interruption name. Defaults to Interrupt.")),
	mcp.WithString("template_id", mcp.Description("Template for the interruption.")),
	mcp.WithString("plan_id", mcp.Description("Plan item for the interruption.")),
)

var timerBreakToolDef = mcp.NewTool(
	"timer_break",
	mcp.WithDescription("Interrupt the running task with a Break."),
)

var timerNoteToolDef = mcp.NewTool(
	"timer_note",
	mcp.WithDescription("Append a quick note to the running task."),
	mcp.WithString("text", mcp.Required(), mcp.Description("Note text.")),
)

var timerStatusToolDef = mcp.NewTool(
	"timer_status",
	mcp.WithDescription("Show the running task, its elapsed time and any pending resume."),
)

var planAddToolDef = mcp.NewTool(
	"plan_add",
	mcp.WithDescription("Add a plan item to a day."),
	mcp.WithString("name", mcp.Description("Item name. Defaults to the template name.")),
	mcp.WithString("template_id", mcp.Description("Template the item belongs to.")),
	mcp.WithNumber("estimate_min", mcp.Required(), mcp.Min(0), mcp.Description("Estimated minutes.")),
	mcp.WithString("scheduled_at", mcp.Description("Fixed start time, HH:MM.")),
	mcp.WithString("day", mcp.Description("Day key YYYY-MM-DD. Defaults to today.")),
)

var planEditToolDef = mcp.NewTool(
	"plan_edit",
	mcp.WithDescription("Edit a plan item. Absent fields stay unchanged; an empty scheduled_at clears the fixed time."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Plan item id.")),
	mcp.WithString("name", mcp.Description("New name.")),
	mcp.WithNumber("estimate_min", mcp.Min(0), mcp.Description("New estimate in minutes.")),
	mcp.WithString("scheduled_at", mcp.Description("New fixed start time, HH:MM.")),
	mcp.WithString("day", mcp.Description("Move the item to another day, YYYY-MM-DD.")),
)

func planIDToolDef(name, description string) mcp.Tool {
	return mcp.NewTool(
		name,
		mcp.WithDescription(description),
		mcp.WithString("id", mcp.Required(), mcp.Description("Plan item id.")),
	)
}

var planEstimateToolDef = mcp.NewTool(
	"plan_estimate",
	mcp.WithDescription("Adjust a plan item's estimate by delta minutes. The estimate never drops below zero."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Plan item id.")),
	mcp.WithNumber("delta", mcp.Required(), mcp.Description("Minutes to add, negative to subtract.")),
)

var planMoveToolDef = mcp.NewTool(
	"plan_move",
	mcp.WithDescription("Move a plan item up (negative delta) or down within its day."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Plan item id.")),
	mcp.WithNumber("delta", mcp.Required(), mcp.Description("Positions to move.")),
)

var planRestoreToolDef = mcp.NewTool(
	"plan_restore",
	mcp.WithDescription("Re-insert a plan item returned by plan_delete."),
	mcp.WithObject("item", mcp.Required(), mcp.Description("The deleted item, as returned by plan_delete.")),
)

var planReorderToolDef = mcp.NewTool(
	"plan_reorder",
	mcp.WithDescription("Reorder a day's plan. Unlisted items keep their relative order after the listed ones."),
	mcp.WithArray("ids", mcp.Required(), stringItems, mcp.Description("Plan item ids in the new order.")),
	mcp.WithString("day", mcp.Description("Day key YYYY-MM-DD. Defaults to today.")),
)

var planRolloverToolDef = mcp.NewTool(
	"plan_rollover",
	mcp.WithDescription("Copy unfinished items from one day to another."),
	mcp.WithString("from", mcp.Description("Source day. Defaults to yesterday.")),
	mcp.WithString("to", mcp.Description("Target day. Defaults to today.")),
)

var planRoutinesToolDef = mcp.NewTool(
	"plan_routines",
	mcp.WithDescription("Add the routines due on a day that are not planned yet."),
	mcp.WithString("day", mcp.Description("Day key YYYY-MM-DD. Defaults to tomorrow.")),
)

var planSuppressToolDef = mcp.NewTool(
	"plan_suppress",
	mcp.WithDescription("Stop a routine from being injected on a day, or lift that with off."),
	mcp.WithString("template_id", mcp.Required(), mcp.Description("Routine template id.")),
	mcp.WithString("day", mcp.Description("Day key YYYY-MM-DD. Defaults to today.")),
	mcp.WithBoolean("off", mcp.Description("Lift the suppression.")),
)

var planListToolDef = mcp.NewTool(
	"plan_list",
	mcp.WithDescription("List a day's plan, fixed times first, with spent and remaining time."),
	mcp.WithString("day", mcp.Description("Day key YYYY-MM-DD. Defaults to today.")),
)

func templateToolDef(name, description string, edit bool) mcp.Tool {
	id := []mcp.PropertyOption{mcp.Description("Template id.")}
	nameOpts := []mcp.PropertyOption{mcp.Description("Template name.")}
	if edit {
		id = append(id, mcp.Required())
	} else {
		nameOpts = append(nameOpts, mcp.Required())
	}
	opts := []mcp.ToolOption{mcp.WithDescription(description)}
	if edit {
		opts = append(opts, mcp.WithString("id", id...))
	}
	return mcp.NewTool(name, append(opts,
		mcp.WithString("name", nameOpts...),
		mcp.WithArray("default_tags", stringItems, mcp.Description("Tags added to every session of this template.")),
		mcp.WithString("color", mcp.Description("Display color, #RRGGBB. Defaults to a palette color.")),
		mcp.WithBoolean("is_routine", mcp.Description("Inject the template into due days automatically.")),
		mcp.WithArray("routine_days",
			mcp.Items(map[string]any{"type": "integer", "minimum": 0, "maximum": 6}),
			mcp.Description("Weekdays the routine is due, Monday=0. Empty means every day."),
		),
		mcp.WithString("time_of_day", mcp.Description("Fixed start time for injected items, HH:MM.")),
		mcp.WithNumber("target_daily_min", mcp.Min(0), mcp.Description("Daily budget in minutes; also the injected estimate.")),
		mcp.WithNumber("target_weekly_min", mcp.Min(0), mcp.Description("Weekly budget in minutes.")),
		mcp.WithNumber("target_monthly_min", mcp.Min(0), mcp.Description("Monthly budget in minutes.")),
	)...)
}

var templateDeleteToolDef = mcp.NewTool(
	"template_delete",
	mcp.WithDescription("Delete a template. Past sessions keep their name."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Template id.")),
)

var templateListToolDef = mcp.NewTool(
	"template_list",
	mcp.WithDescription("List templates."),
	mcp.WithBoolean("routines_only", mcp.Description("Only list routines.")),
)

var logEditToolDef = mcp.NewTool(
	"log_edit",
	mcp.WithDescription("Edit a recorded session. Absent fields stay unchanged."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Session id.")),
	mcp.WithString("name", mcp.Description("New name.")),
	mcp.WithString("start_at", mcp.Description("New start, RFC 3339.")),
	mcp.WithString("end_at", mcp.Description("New end, RFC 3339. Must be after start.")),
	mcp.WithArray("tags", stringItems, mcp.Description("Replacement tags.")),
	mcp.WithString("note", mcp.Description("Replacement note.")),
)

var logDeleteToolDef = mcp.NewTool(
	"log_delete",
	mcp.WithDescription("Delete a recorded session. The response can be passed to log_restore."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Session id.")),
)

var logRestoreToolDef = mcp.NewTool(
	"log_restore",
	mcp.WithDescription("Re-insert a session returned by log_delete."),
	mcp.WithObject("session", mcp.Required(), mcp.Description("The deleted session, as returned by log_delete.")),
)

var logListToolDef = mcp.NewTool(
	"log_list",
	mcp.WithDescription("List recorded sessions by logical day."),
	mcp.WithString("from", mcp.Description("First day, YYYY-MM-DD. Defaults to today.")),
	mcp.WithString("to", mcp.Description("Last day, inclusive. Defaults to from.")),
	mcp.WithString("tag", mcp.Description("Only sessions carrying this tag.")),
	mcp.WithString("template_id", mcp.Description("Only sessions of this template.")),
	mcp.WithString("plan_id", mcp.Description("Only sessions of this plan item.")),
)

var scheduleTodayToolDef = mcp.NewTool(
	"schedule_today",
	mcp.WithDescription("Project the day's chained schedule: planned start and end per item, delay badges, now/next and ETA."),
	mcp.WithString("day", mcp.Description("Day key YYYY-MM-DD. Defaults to today.")),
	mcp.WithBoolean("ensure_routines", mcp.Description("Inject due routines before projecting.")),
)

var scheduleCapacityToolDef = mcp.NewTool(
	"schedule_capacity",
	mcp.WithDescription("Compare remaining estimates with remaining work time."),
	mcp.WithString("day", mcp.Description("Day key YYYY-MM-DD. Defaults to today.")),
)

var scheduleNotificationsToolDef = mcp.NewTool(
	"schedule_notifications",
	mcp.WithDescription("Return due reminders (5 minutes before, at start, overdue). Each fires once."),
	mcp.WithString("day", mcp.Description("Day key YYYY-MM-DD. Defaults to today.")),
	mcp.WithBoolean("peek", mcp.Description("List due reminders without marking them fired.")),
)

var scheduleReviewToolDef = mcp.NewTool(
	"schedule_review",
	mcp.WithDescription("Summarize estimate accuracy, interruptions and budgets over a period."),
	mcp.WithString("range", mcp.Description("Period length."), mcp.Enum("day", "week", "month")),
	mcp.WithString("day", mcp.Description("Last day of the period. Defaults to today.")),
)

var scheduleReportToolDef = mcp.NewTool(
	"schedule_report",
	mcp.WithDescription("Render a day's plan and sessions as a Markdown report."),
	mcp.WithString("day", mcp.Description("Day key YYYY-MM-DD. Defaults to today.")),
	mcp.WithBoolean("html", mcp.Description("Also render the report as HTML.")),
)

var calendarImportToolDef = mcp.NewTool(
	"calendar_import",
	mcp.WithDescription("Import calendar events as fixed-time plan items. Invalid or duplicate events are reported and skipped."),
	mcp.WithArray("events",
		mcp.Items(map[string]any{
			"type": "object",
			"properties": map[string]any{
				"uid":     map[string]any{"type": "string"},
				"summary": map[string]any{"type": "string"},
				"start":   map[string]any{"type": "string", "format": "date-time"},
				"end":     map[string]any{"type": "string", "format": "date-time"},
			},
		}),
		mcp.Description("Events with uid, summary, start and end."),
	),
	mcp.WithString("path", mcp.Description("JSON file of events, instead of inline events.")),
)

var exportToolDef = mcp.NewTool(
	"export",
	mcp.WithDescription("Export sessions or a full backup to a file under the exports directory."),
	mcp.WithString("format",
		mcp.Description("Output format. Defaults to jsonl, a full backup import can read."),
		mcp.Enum("csv", "json", "jsonl", "markdown"),
	),
	mcp.WithString("path", mcp.Description("Output file. Defaults to a timestamped file in the exports directory.")),
	mcp.WithString("from", mcp.Description("First day for csv and json; the report day for markdown.")),
	mcp.WithString("to", mcp.Description("Last day for csv and json.")),
)

var importToolDef = mcp.NewTool(
	"import",
	mcp.WithDescription("Restore a jsonl backup written by export."),
	mcp.WithString("path", mcp.Required(), mcp.Description("Backup file.")),
	mcp.WithString("mode",
		mcp.Description("What to do when an id already exists. Defaults to error."),
		mcp.Enum("error", "replace", "skip"),
	),
)
