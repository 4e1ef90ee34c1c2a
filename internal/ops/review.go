package ops

import (
	"context"
	"fmt"

	"github.com/hpungsan/daychain/internal/errors"
	"github.com/hpungsan/daychain/internal/export"
	"github.com/hpungsan/daychain/internal/schedule"
)

// ReviewInput contains parameters for the Review operation.
type ReviewInput struct {
	Range string // day, week or month; default day
	Day   string // period end, default today
}

// Review reports estimate accuracy, interruptions and budget achievement for
// the period ending on Day.
func Review(ctx context.Context, env *Env, input ReviewInput) (*schedule.Report, error) {
	r := schedule.Range(input.Range)
	if r == "" {
		r = schedule.RangeDay
	}
	if !r.Valid() {
		return nil, errors.NewValidation(fmt.Sprintf("range must be day, week or month, got %q", input.Range))
	}
	m, now, err := env.view(ctx)
	if err != nil {
		return nil, err
	}
	day, err := env.resolveDay(input.Day, now)
	if err != nil {
		return nil, err
	}
	report := schedule.Review(schedule.ReviewInput{
		Snapshot: m.Snapshot(),
		Resolver: env.resolver(),
		Range:    r,
		Today:    day,
	})
	return &report, nil
}

// ReportOutput is the daily report as Markdown and, optionally, HTML.
type ReportOutput struct {
	Day      string `json:"day"`
	Markdown string `json:"markdown"`
	HTML     string `json:"html,omitempty"`
}

// Report renders a day's plan, chain and sessions as Markdown.
func Report(ctx context.Context, env *Env, day string, withHTML bool) (*ReportOutput, error) {
	m, now, err := env.view(ctx)
	if err != nil {
		return nil, err
	}
	day, err = env.resolveDay(day, now)
	if err != nil {
		return nil, err
	}
	md := export.Markdown(dayReport(env, m.Snapshot(), day, now))
	out := &ReportOutput{Day: day, Markdown: md}
	if withHTML {
		html, err := export.RenderHTML(md)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		out.HTML = html
	}
	return out, nil
}
