package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/daychain/internal/errors"
	"github.com/hpungsan/daychain/internal/ops"
	"github.com/hpungsan/daychain/internal/plan"
)

// Handlers wraps the operation environment for MCP tool handlers.
type Handlers struct {
	env *ops.Env
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(env *ops.Env) *Handlers {
	return &Handlers{env: env}
}

// Request types

type idRequest struct {
	ID string `json:"id"`
}

type dayRequest struct {
	Day string `json:"day,omitempty"`
}

// StartRequest is the input for timer_start.
type StartRequest struct {
	Name       string   `json:"name,omitempty"`
	TemplateID string   `json:"template_id,omitempty"`
	PlanID     string   `json:"plan_id,omitempty"`
	Switch     bool     `json:"switch,omitempty"`
	Tags       []string `json:"tags,omitempty"`
}

// StopRequest is the input for timer_stop.
type StopRequest struct {
	Tags     []string `json:"tags,omitempty"`
	Note     string   `json:"note,omitempty"`
	Complete bool     `json:"complete,omitempty"`
	Split    string   `json:"split,omitempty"`
}

// InterruptRequest is the input for timer_interrupt.
type InterruptRequest struct {
	Name       string `json:"name,omitempty"`
	TemplateID string `json:"template_id,omitempty"`
	PlanID     string `json:"plan_id,omitempty"`
}

// NoteRequest is the input for timer_note.
type NoteRequest struct {
	Text string `json:"text"`
}

// PlanAddRequest is the input for plan_add.
type PlanAddRequest struct {
	Day         string `json:"day,omitempty"`
	Name        string `json:"name,omitempty"`
	TemplateID  string `json:"template_id,omitempty"`
	EstimateMin int    `json:"estimate_min"`
	ScheduledAt string `json:"scheduled_at,omitempty"`
}

// PlanEditRequest is the input for plan_edit. Absent fields stay unchanged.
type PlanEditRequest struct {
	ID          string  `json:"id"`
	Name        *string `json:"name,omitempty"`
	EstimateMin *int    `json:"estimate_min,omitempty"`
	ScheduledAt *string `json:"scheduled_at,omitempty"`
	Day         *string `json:"day,omitempty"`
}

type deltaRequest struct {
	ID    string `json:"id"`
	Delta int    `json:"delta"`
}

type planRestoreRequest struct {
	Item *plan.PlanItem `json:"item"`
}

type reorderRequest struct {
	Day string   `json:"day,omitempty"`
	IDs []string `json:"ids"`
}

type rolloverRequest struct {
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
}

type suppressRequest struct {
	Day        string `json:"day,omitempty"`
	TemplateID string `json:"template_id"`
	Off        bool   `json:"off,omitempty"`
}

// TemplateRequest is the input for template_add and template_edit.
type TemplateRequest struct {
	ID               string    `json:"id,omitempty"`
	Name             *string   `json:"name,omitempty"`
	DefaultTags      *[]string `json:"default_tags,omitempty"`
	Color            *string   `json:"color,omitempty"`
	IsRoutine        *bool     `json:"is_routine,omitempty"`
	RoutineDays      *[]int    `json:"routine_days,omitempty"`
	TimeOfDay        *string   `json:"time_of_day,omitempty"`
	TargetDailyMin   *int      `json:"target_daily_min,omitempty"`
	TargetWeeklyMin  *int      `json:"target_weekly_min,omitempty"`
	TargetMonthlyMin *int      `json:"target_monthly_min,omitempty"`
}

type templateListRequest struct {
	RoutinesOnly bool `json:"routines_only,omitempty"`
}

// LogEditRequest is the input for log_edit. Times are RFC 3339.
type LogEditRequest struct {
	ID      string     `json:"id"`
	Name    *string    `json:"name,omitempty"`
	StartAt *time.Time `json:"start_at,omitempty"`
	EndAt   *time.Time `json:"end_at,omitempty"`
	Tags    *[]string  `json:"tags,omitempty"`
	Note    *string    `json:"note,omitempty"`
}

type logRestoreRequest struct {
	Session *plan.Session `json:"session"`
}

// LogListRequest is the input for log_list.
type LogListRequest struct {
	From       string `json:"from,omitempty"`
	To         string `json:"to,omitempty"`
	Tag        string `json:"tag,omitempty"`
	TemplateID string `json:"template_id,omitempty"`
	PlanID     string `json:"plan_id,omitempty"`
}

type todayRequest struct {
	Day            string `json:"day,omitempty"`
	EnsureRoutines bool   `json:"ensure_routines,omitempty"`
}

type notificationsRequest struct {
	Day  string `json:"day,omitempty"`
	Peek bool   `json:"peek,omitempty"`
}

type reviewRequest struct {
	Range string `json:"range,omitempty"`
	Day   string `json:"day,omitempty"`
}

type reportRequest struct {
	Day  string `json:"day,omitempty"`
	HTML bool   `json:"html,omitempty"`
}

// CalendarImportRequest is the input for calendar_import.
type CalendarImportRequest struct {
	Events []plan.EventDraft `json:"events,omitempty"`
	Path   string            `json:"path,omitempty"`
}

// ExportRequest is the input for export.
type ExportRequest struct {
	Format string `json:"format,omitempty"`
	Path   string `json:"path,omitempty"`
	From   string `json:"from,omitempty"`
	To     string `json:"to,omitempty"`
}

// ImportRequest is the input for import.
type ImportRequest struct {
	Path string `json:"path"`
	Mode string `json:"mode,omitempty"`
}

// call decodes the arguments into T and runs fn, mapping errors to tool results.
func call[T any, R any](ctx context.Context, req mcp.CallToolRequest, fn func(context.Context, T) (R, error)) (*mcp.CallToolResult, error) {
	input, err := decode[T](req)
	if err != nil {
		return errorResult(errors.NewValidation(err.Error())), nil
	}
	result, err := fn(ctx, input)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// Timer

// HandleStart handles the timer_start tool call.
func (h *Handlers) HandleStart(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(ctx, req, func(ctx context.Context, in StartRequest) (*plan.ActiveSession, error) {
		return ops.Start(ctx, h.env, ops.StartInput{
			Name:       in.Name,
			TemplateID: in.TemplateID,
			PlanID:     in.PlanID,
			Switch:     in.Switch,
			Tags:       in.Tags,
		})
	})
}

// HandleStop handles the timer_stop tool call.
func (h *Handlers) HandleStop(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(ctx, req, func(ctx context.Context, in StopRequest) (*plan.StopResult, error) {
		return ops.Stop(ctx, h.env, ops.StopInput{
			Tags:         in.Tags,
			Note:         in.Note,
			CompletePlan: in.Complete,
			Split:        in.Split,
		})
	})
}

// HandleInterrupt handles the timer_interrupt tool call.
func (h *Handlers) HandleInterrupt(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(ctx, req, func(ctx context.Context, in InterruptRequest) (*plan.InterruptResult, error) {
		return ops.Interrupt(ctx, h.env, ops.InterruptInput{
			Name:       in.Name,
			TemplateID: in.TemplateID,
			PlanID:     in.PlanID,
		})
	})
}

// HandleBreak handles the timer_break tool call.
func (h *Handlers) HandleBreak(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := ops.Break(ctx, h.env)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleNote handles the timer_note tool call.
func (h *Handlers) HandleNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(ctx, req, func(ctx context.Context, in NoteRequest) (*plan.ActiveSession, error) {
		return ops.QuickNote(ctx, h.env, in.Text)
	})
}

// HandleStatus handles the timer_status tool call.
func (h *Handlers) HandleStatus(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := ops.Status(ctx, h.env)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// Plan

// HandlePlanAdd handles the plan_add tool call.
func (h *Handlers) HandlePlanAdd(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(ctx, req, func(ctx context.Context, in PlanAddRequest) (*plan.PlanItem, error) {
		return ops.AddPlan(ctx, h.env, ops.AddPlanInput{
			Day:         in.Day,
			Name:        in.Name,
			TemplateID:  in.TemplateID,
			EstimateMin: in.EstimateMin,
			ScheduledAt: in.ScheduledAt,
		})
	})
}

// HandlePlanEdit handles the plan_edit tool call.
func (h *Handlers) HandlePlanEdit(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(ctx, req, func(ctx context.Context, in PlanEditRequest) (*plan.PlanItem, error) {
		return ops.EditPlan(ctx, h.env, ops.EditPlanInput{
			ID:          in.ID,
			Name:        in.Name,
			EstimateMin: in.EstimateMin,
			ScheduledAt: in.ScheduledAt,
			Day:         in.Day,
		})
	})
}

// itemHandler adapts an id-keyed plan operation.
func (h *Handlers) itemHandler(op func(context.Context, *ops.Env, string) (*plan.PlanItem, error)) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return call(ctx, req, func(ctx context.Context, in idRequest) (*plan.PlanItem, error) {
			return op(ctx, h.env, in.ID)
		})
	}
}

// HandlePlanComplete handles the plan_complete tool call.
func (h *Handlers) HandlePlanComplete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return h.itemHandler(ops.CompletePlan)(ctx, req)
}

// HandlePlanSkip handles the plan_skip tool call.
func (h *Handlers) HandlePlanSkip(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return h.itemHandler(ops.SkipPlan)(ctx, req)
}

// HandlePlanUnskip handles the plan_unskip tool call.
func (h *Handlers) HandlePlanUnskip(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return h.itemHandler(ops.UndoSkip)(ctx, req)
}

// HandlePlanDelete handles the plan_delete tool call.
func (h *Handlers) HandlePlanDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return h.itemHandler(ops.DeletePlan)(ctx, req)
}

// HandlePlanEstimate handles the plan_estimate tool call.
func (h *Handlers) HandlePlanEstimate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(ctx, req, func(ctx context.Context, in deltaRequest) (*plan.PlanItem, error) {
		return ops.AdjustEstimate(ctx, h.env, in.ID, in.Delta)
	})
}

// HandlePlanMove handles the plan_move tool call.
func (h *Handlers) HandlePlanMove(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(ctx, req, func(ctx context.Context, in deltaRequest) (*plan.PlanItem, error) {
		return ops.MovePlan(ctx, h.env, in.ID, in.Delta)
	})
}

// HandlePlanRestore handles the plan_restore tool call.
func (h *Handlers) HandlePlanRestore(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(ctx, req, func(ctx context.Context, in planRestoreRequest) (*plan.PlanItem, error) {
		if in.Item == nil {
			return nil, errors.NewValidation("item is required")
		}
		return ops.RestorePlan(ctx, h.env, *in.Item)
	})
}

// HandlePlanSplit handles the plan_split tool call.
func (h *Handlers) HandlePlanSplit(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(ctx, req, func(ctx context.Context, in idRequest) (*ops.SplitOutput, error) {
		return ops.SplitPlan(ctx, h.env, in.ID)
	})
}

// HandlePlanReorder handles the plan_reorder tool call.
func (h *Handlers) HandlePlanReorder(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(ctx, req, func(ctx context.Context, in reorderRequest) (itemsOutput, error) {
		items, err := ops.ReorderPlan(ctx, h.env, ops.ReorderInput{Day: in.Day, IDs: in.IDs})
		return newItemsOutput(items), err
	})
}

// HandlePlanRollover handles the plan_rollover tool call.
func (h *Handlers) HandlePlanRollover(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(ctx, req, func(ctx context.Context, in rolloverRequest) (itemsOutput, error) {
		items, err := ops.Rollover(ctx, h.env, ops.RolloverInput{From: in.From, To: in.To})
		return newItemsOutput(items), err
	})
}

// HandlePlanRoutines handles the plan_routines tool call.
func (h *Handlers) HandlePlanRoutines(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(ctx, req, func(ctx context.Context, in dayRequest) (itemsOutput, error) {
		items, err := ops.PlanRoutines(ctx, h.env, in.Day)
		return newItemsOutput(items), err
	})
}

// HandlePlanSuppress handles the plan_suppress tool call.
func (h *Handlers) HandlePlanSuppress(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(ctx, req, func(ctx context.Context, in suppressRequest) (itemsOutput, error) {
		items, err := ops.SuppressRoutine(ctx, h.env, ops.SuppressInput{
			Day:        in.Day,
			TemplateID: in.TemplateID,
			Off:        in.Off,
		})
		return newItemsOutput(items), err
	})
}

// HandlePlanList handles the plan_list tool call.
func (h *Handlers) HandlePlanList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(ctx, req, func(ctx context.Context, in dayRequest) (*ops.ListPlanOutput, error) {
		return ops.ListPlan(ctx, h.env, in.Day)
	})
}

// itemsOutput keeps list results a JSON object with a count.
type itemsOutput struct {
	Items []plan.PlanItem `json:"items"`
	Count int             `json:"count"`
}

func newItemsOutput(items []plan.PlanItem) itemsOutput {
	if items == nil {
		items = []plan.PlanItem{}
	}
	return itemsOutput{Items: items, Count: len(items)}
}

// Templates

func (in TemplateRequest) input() ops.TemplateInput {
	return ops.TemplateInput{
		ID:               in.ID,
		Name:             in.Name,
		DefaultTags:      in.DefaultTags,
		Color:            in.Color,
		IsRoutine:        in.IsRoutine,
		RoutineDays:      in.RoutineDays,
		TimeOfDay:        in.TimeOfDay,
		TargetDailyMin:   in.TargetDailyMin,
		TargetWeeklyMin:  in.TargetWeeklyMin,
		TargetMonthlyMin: in.TargetMonthlyMin,
	}
}

// HandleTemplateAdd handles the template_add tool call.
func (h *Handlers) HandleTemplateAdd(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(ctx, req, func(ctx context.Context, in TemplateRequest) (*plan.Template, error) {
		return ops.AddTemplate(ctx, h.env, in.input())
	})
}

// HandleTemplateEdit handles the template_edit tool call.
func (h *Handlers) HandleTemplateEdit(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(ctx, req, func(ctx context.Context, in TemplateRequest) (*plan.Template, error) {
		return ops.EditTemplate(ctx, h.env, in.input())
	})
}

// HandleTemplateDelete handles the template_delete tool call.
func (h *Handlers) HandleTemplateDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(ctx, req, func(ctx context.Context, in idRequest) (*plan.Template, error) {
		return ops.DeleteTemplate(ctx, h.env, in.ID)
	})
}

// HandleTemplateList handles the template_list tool call.
func (h *Handlers) HandleTemplateList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(ctx, req, func(ctx context.Context, in templateListRequest) (*ops.ListTemplatesOutput, error) {
		return ops.ListTemplates(ctx, h.env, in.RoutinesOnly)
	})
}

// Session log

// HandleLogEdit handles the log_edit tool call.
func (h *Handlers) HandleLogEdit(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(ctx, req, func(ctx context.Context, in LogEditRequest) (*plan.Session, error) {
		return ops.EditSession(ctx, h.env, ops.EditSessionInput{
			ID:      in.ID,
			Name:    in.Name,
			StartAt: in.StartAt,
			EndAt:   in.EndAt,
			Tags:    in.Tags,
			Note:    in.Note,
		})
	})
}

// HandleLogDelete handles the log_delete tool call.
func (h *Handlers) HandleLogDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(ctx, req, func(ctx context.Context, in idRequest) (*plan.Session, error) {
		return ops.DeleteSession(ctx, h.env, in.ID)
	})
}

// HandleLogRestore handles the log_restore tool call.
func (h *Handlers) HandleLogRestore(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(ctx, req, func(ctx context.Context, in logRestoreRequest) (*plan.Session, error) {
		if in.Session == nil {
			return nil, errors.NewValidation("session is required")
		}
		return ops.RestoreSession(ctx, h.env, *in.Session)
	})
}

// HandleLogList handles the log_list tool call.
func (h *Handlers) HandleLogList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(ctx, req, func(ctx context.Context, in LogListRequest) (*ops.ListSessionsOutput, error) {
		return ops.ListSessions(ctx, h.env, ops.ListSessionsInput{
			From:       in.From,
			To:         in.To,
			Tag:        in.Tag,
			TemplateID: in.TemplateID,
			PlanID:     in.PlanID,
		})
	})
}

// Schedule

// HandleToday handles the schedule_today tool call.
func (h *Handlers) HandleToday(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(ctx, req, func(ctx context.Context, in todayRequest) (*ops.TodayOutput, error) {
		return ops.Today(ctx, h.env, ops.TodayInput{Day: in.Day, EnsureRoutines: in.EnsureRoutines})
	})
}

// HandleCapacity handles the schedule_capacity tool call.
func (h *Handlers) HandleCapacity(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(ctx, req, func(ctx context.Context, in dayRequest) (any, error) {
		return ops.Capacity(ctx, h.env, in.Day)
	})
}

// HandleNotifications handles the schedule_notifications tool call.
func (h *Handlers) HandleNotifications(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(ctx, req, func(ctx context.Context, in notificationsRequest) (*ops.NotificationsOutput, error) {
		return ops.Notifications(ctx, h.env, ops.NotificationsInput{Day: in.Day, Peek: in.Peek})
	})
}

// HandleReview handles the schedule_review tool call.
func (h *Handlers) HandleReview(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(ctx, req, func(ctx context.Context, in reviewRequest) (any, error) {
		return ops.Review(ctx, h.env, ops.ReviewInput{Range: in.Range, Day: in.Day})
	})
}

// HandleReport handles the schedule_report tool call.
func (h *Handlers) HandleReport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(ctx, req, func(ctx context.Context, in reportRequest) (*ops.ReportOutput, error) {
		return ops.Report(ctx, h.env, in.Day, in.HTML)
	})
}

// Files

// HandleCalendarImport handles the calendar_import tool call.
func (h *Handlers) HandleCalendarImport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(ctx, req, func(ctx context.Context, in CalendarImportRequest) (*ops.ImportCalendarOutput, error) {
		return ops.ImportCalendar(ctx, h.env, ops.ImportCalendarInput{Events: in.Events, Path: in.Path})
	})
}

// HandleExport handles the export tool call.
func (h *Handlers) HandleExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(ctx, req, func(ctx context.Context, in ExportRequest) (*ops.ExportOutput, error) {
		return ops.Export(ctx, h.env, ops.ExportInput{
			Format: in.Format,
			Path:   in.Path,
			From:   in.From,
			To:     in.To,
		})
	})
}

// HandleImport handles the import tool call.
func (h *Handlers) HandleImport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(ctx, req, func(ctx context.Context, in ImportRequest) (*ops.ImportOutput, error) {
		return ops.Import(ctx, h.env, ops.ImportInput{
			Path: in.Path,
			Mode: ops.ImportMode(strings.ToLower(strings.TrimSpace(in.Mode))),
		})
	})
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Internal error details are never exposed.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if dErr, ok := errors.As(err); ok {
		errorObj := map[string]any{
			"code":    dErr.Code,
			"message": dErr.Message,
			"status":  dErr.Status,
		}
		// Wrapping context such as "events[2]:" stays in the message
		if msg := err.Error(); dErr.Code != errors.ErrInternal && msg != dErr.Error() {
			errorObj["message"] = strings.Replace(msg, dErr.Error(), dErr.Message, 1)
		}
		if dErr.Code != errors.ErrInternal && dErr.Details != nil {
			errorObj["details"] = dErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    errors.ErrInternal,
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
