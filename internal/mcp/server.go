// Package mcp exposes daychain operations as MCP tools over stdio.
package mcp

import (
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hpungsan/daychain/internal/ops"
)

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"timer_start": {
		def:     timerStartToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleStart },
	},
	"timer_stop": {
		def:     timerStopToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleStop },
	},
	"timer_interrupt": {
		def:     timerInterruptToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleInterrupt },
	},
	"timer_break": {
		def:     timerBreakToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleBreak },
	},
	"timer_note": {
		def:     timerNoteToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleNote },
	},
	"timer_status": {
		def:     timerStatusToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleStatus },
	},
	"plan_add": {
		def:     planAddToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandlePlanAdd },
	},
	"plan_edit": {
		def:     planEditToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandlePlanEdit },
	},
	"plan_complete": {
		def:     planIDToolDef("plan_complete", "Mark a plan item done."),
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandlePlanComplete },
	},
	"plan_skip": {
		def:     planIDToolDef("plan_skip", "Skip a plan item for the day. Skipped items leave the chain."),
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandlePlanSkip },
	},
	"plan_unskip": {
		def:     planIDToolDef("plan_unskip", "Undo a skip, restoring the status the item had before."),
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandlePlanUnskip },
	},
	"plan_estimate": {
		def:     planEstimateToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandlePlanEstimate },
	},
	"plan_move": {
		def:     planMoveToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandlePlanMove },
	},
	"plan_delete": {
		def:     planIDToolDef("plan_delete", "Delete a plan item. The response can be passed to plan_restore."),
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandlePlanDelete },
	},
	"plan_restore": {
		def:     planRestoreToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandlePlanRestore },
	},
	"plan_split": {
		def:     planIDToolDef("plan_split", "Split the remaining estimate of a plan item into two halves."),
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandlePlanSplit },
	},
	"plan_reorder": {
		def:     planReorderToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandlePlanReorder },
	},
	"plan_rollover": {
		def:     planRolloverToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandlePlanRollover },
	},
	"plan_routines": {
		def:     planRoutinesToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandlePlanRoutines },
	},
	"plan_suppress": {
		def:     planSuppressToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandlePlanSuppress },
	},
	"plan_list": {
		def:     planListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandlePlanList },
	},
	"template_add": {
		def:     templateToolDef("template_add", "Create a task template, optionally a recurring routine.", false),
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleTemplateAdd },
	},
	"template_edit": {
		def:     templateToolDef("template_edit", "Edit a template. Absent fields stay unchanged.", true),
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleTemplateEdit },
	},
	"template_delete": {
		def:     templateDeleteToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleTemplateDelete },
	},
	"template_list": {
		def:     templateListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleTemplateList },
	},
	"log_edit": {
		def:     logEditToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleLogEdit },
	},
	"log_delete": {
		def:     logDeleteToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleLogDelete },
	},
	"log_restore": {
		def:     logRestoreToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleLogRestore },
	},
	"log_list": {
		def:     logListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleLogList },
	},
	"schedule_today": {
		def:     scheduleTodayToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleToday },
	},
	"schedule_capacity": {
		def:     scheduleCapacityToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleCapacity },
	},
	"schedule_notifications": {
		def:     scheduleNotificationsToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleNotifications },
	},
	"schedule_review": {
		def:     scheduleReviewToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleReview },
	},
	"schedule_report": {
		def:     scheduleReportToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleReport },
	},
	"calendar_import": {
		def:     calendarImportToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleCalendarImport },
	},
	"export": {
		def:     exportToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleExport },
	},
	"import": {
		def:     importToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleImport },
	},
}

// AllToolNames returns a sorted list of all valid tool names.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
// A group name such as "plan" or "timer" is accepted and disables the whole group.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; ok {
			continue
		}
		if len(ExpandGroups([]string{name})) > 0 {
			continue
		}
		unknown = append(unknown, name)
	}
	return unknown
}

// GroupForTool extracts the group name from a tool name.
// Tool names follow the pattern "group_action" (e.g., "plan_add" → "plan").
func GroupForTool(toolName string) string {
	if idx := strings.Index(toolName, "_"); idx > 0 {
		return toolName[:idx]
	}
	return ""
}

// ExpandGroups returns all tool names belonging to the given groups.
func ExpandGroups(groups []string) []string {
	if len(groups) == 0 {
		return nil
	}

	set := make(map[string]bool, len(groups))
	for _, g := range groups {
		set[g] = true
	}

	tools := make([]string, 0)
	for name := range toolRegistry {
		if g := GroupForTool(name); g != "" && set[g] {
			tools = append(tools, name)
		}
	}
	return tools
}

// NewServer creates a new MCP server with daychain tools registered.
// Tools listed in DisabledTools, directly or by group, are excluded.
func NewServer(env *ops.Env, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"daychain",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(env)

	disabled := make(map[string]bool)
	if env.Config != nil {
		for _, tool := range ExpandGroups(env.Config.DisabledTools) {
			disabled[tool] = true
		}
		for _, name := range env.Config.DisabledTools {
			disabled[name] = true
		}
	}

	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run starts the MCP server using stdio transport.
func Run(env *ops.Env, version string) error {
	s := NewServer(env, version)
	return server.ServeStdio(s)
}
