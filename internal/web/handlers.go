package web

import (
	"context"
	"html/template"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/hpungsan/daychain/internal/clock"
	"github.com/hpungsan/daychain/internal/db"
	"github.com/hpungsan/daychain/internal/errors"
	"github.com/hpungsan/daychain/internal/logging"
	"github.com/hpungsan/daychain/internal/ops"
	"github.com/hpungsan/daychain/internal/plan"
	"github.com/hpungsan/daychain/internal/schedule"
)

// recentLimit caps the fired notifications kept for /notifications.
const recentLimit = 50

// Handlers contains HTTP route handlers and the cached snapshot they read.
type Handlers struct {
	env      *ops.Env
	renderer *Renderer

	mu     sync.Mutex
	snap   *plan.Snapshot
	recent []schedule.Signal
}

func (h *Handlers) now() time.Time {
	if h.env.Clock == nil {
		return time.Now()
	}
	return h.env.Clock.Now()
}

func (h *Handlers) logger() *slog.Logger {
	if h.env.Logger == nil {
		return logging.Logger()
	}
	return h.env.Logger
}

func (h *Handlers) location() *time.Location {
	loc, err := h.env.Config.Location()
	if err != nil {
		return time.Local
	}
	return loc
}

// reload replaces the cached snapshot with the stored one.
func (h *Handlers) reload(ctx context.Context) error {
	snap, err := db.LoadSnapshot(ctx, h.env.DB)
	if err != nil {
		return err
	}
	h.mu.Lock()
	h.snap = snap
	h.mu.Unlock()
	return nil
}

// snapshot returns the cached snapshot, loading it on first use.
// Callers must not mutate the result.
func (h *Handlers) snapshot(ctx context.Context) (*plan.Snapshot, error) {
	h.mu.Lock()
	snap := h.snap
	h.mu.Unlock()
	if snap != nil {
		return snap, nil
	}
	if err := h.reload(ctx); err != nil {
		return nil, errors.NewInternal(err)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.snap, nil
}

// tick runs one background pass: routine injection, the long-running alert
// and due notifications. Fired signals are kept for /notifications.
func (h *Handlers) tick(ctx context.Context) {
	out, err := ops.Tick(ctx, h.env)
	if err != nil {
		h.logger().Warn("tick failed", "error", err)
		return
	}
	if len(out.Injected) == 0 && out.LongRunning == nil && len(out.Signals) == 0 {
		return
	}
	h.mu.Lock()
	h.recent = append(h.recent, out.Signals...)
	if n := len(h.recent); n > recentLimit {
		h.recent = append([]schedule.Signal(nil), h.recent[n-recentLimit:]...)
	}
	h.mu.Unlock()
	if err := h.reload(ctx); err != nil {
		h.logger().Warn("reload after tick failed", "error", err)
	}
}

// day resolves the ?day= parameter, defaulting to today's plan day.
func (h *Handlers) day(r *http.Request, now time.Time) (string, error) {
	day := r.URL.Query().Get("day")
	if day == "" {
		return h.env.Config.Resolver().PlanDay(now), nil
	}
	if !clock.ValidDay(day) {
		return "", errors.NewValidation("day must be YYYY-MM-DD")
	}
	return day, nil
}

func (h *Handlers) today(r *http.Request) (*ops.TodayOutput, error) {
	now := h.now()
	day, err := h.day(r, now)
	if err != nil {
		return nil, err
	}
	snap, err := h.snapshot(r.Context())
	if err != nil {
		return nil, err
	}
	return ops.BuildToday(h.env, snap, day, now), nil
}

// HandleDashboard handles GET /, the day's chain as an HTML page.
func (h *Handlers) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	out, err := h.today(r)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	h.renderer.renderPage(w, "today", h.todayPage(out))
}

func (h *Handlers) todayPage(out *ops.TodayOutput) TodayPageData {
	loc := h.location()
	hhmm := func(t *time.Time) string {
		if t == nil {
			return ""
		}
		return clock.FormatHHMM(t.In(loc))
	}

	data := TodayPageData{
		PageData: PageData{
			Title:   "Today " + out.Day,
			Version: h.renderer.version,
			Nav:     "today",
		},
		Day:          out.Day,
		Now:          clock.FormatHHMM(out.Now.In(loc)),
		ChainOn:      out.Chain != nil,
		ETA:          hhmm(out.Summary.ETA),
		RemainingMin: out.Summary.RemainingMin,
		BedtimeWarn:  out.Summary.BedtimeWarn,
		Bedtime:      out.Summary.Bedtime,
		Done:         out.Summary.Done,
		Total:        out.Summary.Total,
		Level:        string(out.Capacity.Level),
		SlackMin:     out.Capacity.SlackMin,
		Configured:   out.Capacity.Configured,
	}
	if out.Running != nil {
		data.Running = out.Running.Name
		data.ElapsedMin = int(out.Running.Elapsed(out.Now).Minutes())
	}
	if out.Chain != nil {
		for _, e := range out.Chain.Entries {
			data.Rows = append(data.Rows, ChainRow{
				Name:         e.Name,
				Status:       string(e.Status),
				ScheduledAt:  e.ScheduledAt,
				Start:        hhmm(e.PlannedStart),
				End:          hhmm(e.PlannedEnd),
				Badge:        schedule.Badge(e.DelayMin),
				RemainingMin: int((e.RemainingMs + 30000) / 60000),
				Running:      e.Running,
				Overdue:      e.Overdue,
			})
		}
	}
	return data
}

// HandleToday handles GET /today: projection, Now/Next and capacity as JSON.
func (h *Handlers) HandleToday(w http.ResponseWriter, r *http.Request) {
	out, err := h.today(r)
	if err != nil {
		h.renderer.renderAPIError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, out)
}

// HandleCapacity handles GET /capacity.
func (h *Handlers) HandleCapacity(w http.ResponseWriter, r *http.Request) {
	out, err := ops.Capacity(r.Context(), h.env, r.URL.Query().Get("day"))
	if err != nil {
		h.renderer.renderAPIError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, out)
}

// HandleSessions handles GET /sessions: the session log by logical day.
func (h *Handlers) HandleSessions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	out, err := ops.ListSessions(r.Context(), h.env, ops.ListSessionsInput{
		From:       q.Get("from"),
		To:         q.Get("to"),
		Tag:        q.Get("tag"),
		TemplateID: q.Get("template_id"),
		PlanID:     q.Get("plan_id"),
	})
	if err != nil {
		h.renderer.renderAPIError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, out)
}

// HandleReport handles GET /report: the daily report as HTML, or JSON on request.
func (h *Handlers) HandleReport(w http.ResponseWriter, r *http.Request) {
	out, err := ops.Report(r.Context(), h.env, r.URL.Query().Get("day"), true)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, out)
		return
	}

	h.renderer.renderPage(w, "report", ReportPageData{
		PageData: PageData{
			Title:   "Report " + out.Day,
			Version: h.renderer.version,
			Nav:     "report",
		},
		Day:          out.Day,
		Prev:         clock.AddDays(out.Day, -1),
		Next:         clock.AddDays(out.Day, 1),
		RenderedHTML: template.HTML(out.HTML), // rendered from our own Markdown
	})
}

// NotificationsOutput is the GET /notifications payload.
type NotificationsOutput struct {
	Day     string            `json:"day"`
	Pending []schedule.Signal `json:"pending"`
	Recent  []schedule.Signal `json:"recent"`
}

// HandleNotifications handles GET /notifications. Pending signals are due but
// not yet fired; recent ones were fired by the tick loop.
func (h *Handlers) HandleNotifications(w http.ResponseWriter, r *http.Request) {
	out, err := ops.Notifications(r.Context(), h.env, ops.NotificationsInput{
		Day:  r.URL.Query().Get("day"),
		Peek: true,
	})
	if err != nil {
		h.renderer.renderAPIError(w, err)
		return
	}

	h.mu.Lock()
	recent := append([]schedule.Signal{}, h.recent...)
	h.mu.Unlock()

	pending := out.Signals
	if pending == nil {
		pending = []schedule.Signal{}
	}
	renderJSON(w, http.StatusOK, NotificationsOutput{
		Day:     out.Day,
		Pending: pending,
		Recent:  recent,
	})
}
