package web

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hpungsan/daychain/internal/errors"
)

// PageData contains common fields used across all page templates.
type PageData struct {
	Title   string
	Version string
	Nav     string // active nav item: "today", "report"
}

// ChainRow is one plan item as the dashboard shows it.
type ChainRow struct {
	Name         string
	Status       string
	ScheduledAt  string
	Start        string
	End          string
	Badge        string
	RemainingMin int
	Running      bool
	Overdue      bool
}

// TodayPageData is the template data for the dashboard.
type TodayPageData struct {
	PageData
	Day          string
	Now          string
	Running      string
	ElapsedMin   int
	Rows         []ChainRow
	ChainOn      bool
	ETA          string
	RemainingMin int
	BedtimeWarn  bool
	Bedtime      string
	Done         int
	Total        int
	Level        string
	SlackMin     int
	Configured   bool
}

// ReportPageData is the template data for the daily report page.
type ReportPageData struct {
	PageData
	Day          string
	Prev         string
	Next         string
	RenderedHTML template.HTML
}

// ErrorPageData is the template data for the error page.
type ErrorPageData struct {
	PageData
	StatusCode int
	Message    string
}

// Renderer manages template parsing and rendering.
type Renderer struct {
	templates map[string]*template.Template
	version   string
	logger    *slog.Logger
}

// NewRenderer creates a Renderer by parsing templates from the given FS.
func NewRenderer(templateFS fs.FS, version string, logger *slog.Logger) *Renderer {
	funcMap := template.FuncMap{
		"statusClass": statusClass,
	}

	// Parse layout as the base template
	layoutTmpl := template.Must(template.New("layout").Funcs(funcMap).ParseFS(templateFS, "layout.html"))

	pages := map[string]string{
		"today":  "today.html",
		"report": "report.html",
		"error":  "error.html",
	}

	templates := make(map[string]*template.Template, len(pages))
	for name, file := range pages {
		t := template.Must(layoutTmpl.Clone())
		template.Must(t.ParseFS(templateFS, file))
		templates[name] = t
	}

	return &Renderer{
		templates: templates,
		version:   version,
		logger:    logger,
	}
}

// renderPage renders a named page template with the given data and HTTP 200 status.
func (r *Renderer) renderPage(w http.ResponseWriter, name string, data any) {
	r.renderPageStatus(w, http.StatusOK, name, data)
}

// renderPageStatus renders a named page template with the given data and HTTP status code.
func (r *Renderer) renderPageStatus(w http.ResponseWriter, status int, name string, data any) {
	t, ok := r.templates[name]
	if !ok {
		r.logger.Error("template not found", "template", name)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		r.logger.Error("template execution failed", "template", name, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// renderError renders an error response with content negotiation.
func (r *Renderer) renderError(w http.ResponseWriter, req *http.Request, err error) {
	dErr := r.asDaychainError(err)

	if wantsJSON(req) {
		renderJSONError(w, dErr)
		return
	}

	r.renderPageStatus(w, dErr.Status, "error", ErrorPageData{
		PageData: PageData{
			Title:   fmt.Sprintf("Error %d", dErr.Status),
			Version: r.version,
		},
		StatusCode: dErr.Status,
		Message:    dErr.Message,
	})
}

// renderAPIError always answers with the JSON error envelope.
func (r *Renderer) renderAPIError(w http.ResponseWriter, err error) {
	renderJSONError(w, r.asDaychainError(err))
}

func (r *Renderer) asDaychainError(err error) *errors.DaychainError {
	dErr, ok := errors.As(err)
	if !ok {
		dErr = errors.NewInternal(err)
	}
	if dErr.Code == errors.ErrInternal {
		r.logger.Error("request failed", "error", err)
	}
	return dErr
}

func renderJSONError(w http.ResponseWriter, dErr *errors.DaychainError) {
	renderJSON(w, dErr.Status, map[string]any{
		"error": map[string]any{
			"code":    string(dErr.Code),
			"message": dErr.Message,
			"status":  dErr.Status,
		},
	})
}

// renderJSON writes a JSON response.
func renderJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func wantsJSON(req *http.Request) bool {
	return strings.Contains(req.Header.Get("Accept"), "application/json")
}

// statusClass maps a row to its CSS class.
func statusClass(row ChainRow) string {
	switch {
	case row.Running:
		return "running"
	case row.Overdue:
		return "overdue"
	default:
		return row.Status
	}
}
