package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/hpungsan/daychain/internal/errors"
	"github.com/hpungsan/daychain/internal/ops"
	"github.com/hpungsan/daychain/internal/plan"
	"github.com/hpungsan/daychain/internal/web"
)

// maxStdinBytes bounds JSON read from stdin by the restore and calendar commands.
const maxStdinBytes = 4 << 20

// newCLIApp creates the CLI application with all commands.
func newCLIApp(env *ops.Env) *cli.App {
	app := &cli.App{
		Name:    "daychain",
		Usage:   "Daily plan, timer and chained schedule",
		Version: Version,
		Commands: []*cli.Command{
			startCmd(env),
			stopCmd(env),
			interruptCmd(env),
			breakCmd(env),
			noteCmd(env),
			statusCmd(env),
			planCmd(env),
			templateCmd(env),
			logCmd(env),
			todayCmd(env),
			capacityCmd(env),
			notifyCmd(env),
			reviewCmd(env),
			reportCmd(env),
			calendarCmd(env),
			exportCmd(env),
			importCmd(env),
			webCmd(env),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// --- timer ---

func startCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:      "start",
		Usage:     "Start the timer on a task, template or plan item",
		ArgsUsage: "[name]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "template", Aliases: []string{"t"}, Usage: "Template ID"},
			&cli.StringFlag{Name: "plan", Aliases: []string{"p"}, Usage: "Plan item ID"},
			&cli.StringFlag{Name: "tags", Usage: "Comma-separated tags"},
			&cli.BoolFlag{Name: "switch", Aliases: []string{"s"}, Usage: "Stop the running task first"},
		},
		Action: func(c *cli.Context) error {
			out, err := ops.Start(c.Context, env, ops.StartInput{
				Name:       strings.Join(c.Args().Slice(), " "),
				TemplateID: c.String("template"),
				PlanID:     c.String("plan"),
				Switch:     c.Bool("switch"),
				Tags:       parseTags(c.String("tags")),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(out)
		},
	}
}

func stopCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "stop",
		Usage: "Stop the running task and log the session",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "tags", Usage: "Comma-separated tags added to the session"},
			&cli.StringFlag{Name: "note", Aliases: []string{"n"}, Usage: "Note appended to the session"},
			&cli.BoolFlag{Name: "done", Aliases: []string{"d"}, Usage: "Mark the linked plan item done"},
			&cli.StringFlag{Name: "split", Usage: "Leave the rest of the estimate as a new item: split|split-tomorrow"},
		},
		Action: func(c *cli.Context) error {
			out, err := ops.Stop(c.Context, env, ops.StopInput{
				Tags:         parseTags(c.String("tags")),
				Note:         c.String("note"),
				CompletePlan: c.Bool("done"),
				Split:        c.String("split"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(out)
		},
	}
}

func interruptCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:      "interrupt",
		Usage:     "Pause the running task for an interruption",
		ArgsUsage: "[name]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "template", Aliases: []string{"t"}, Usage: "Template ID"},
			&cli.StringFlag{Name: "plan", Aliases: []string{"p"}, Usage: "Plan item ID"},
		},
		Action: func(c *cli.Context) error {
			out, err := ops.Interrupt(c.Context, env, ops.InterruptInput{
				Name:       strings.Join(c.Args().Slice(), " "),
				TemplateID: c.String("template"),
				PlanID:     c.String("plan"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(out)
		},
	}
}

func breakCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "break",
		Usage: "Pause the running task for a break",
		Action: func(c *cli.Context) error {
			out, err := ops.Break(c.Context, env)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(out)
		},
	}
}

func noteCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:      "note",
		Usage:     "Append a note to the running task",
		ArgsUsage: "<text>",
		Action: func(c *cli.Context) error {
			out, err := ops.QuickNote(c.Context, env, strings.Join(c.Args().Slice(), " "))
			if err != nil {
				return outputError(err)
			}
			return outputJSON(out)
		},
	}
}

func statusCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show the running task",
		Action: func(c *cli.Context) error {
			out, err := ops.Status(c.Context, env)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(out)
		},
	}
}

// --- plan ---

func planCmd(env *ops.Env) *cli.Command {
	byID := func(name, usage string, op func(*cli.Context, string) (any, error)) *cli.Command {
		return &cli.Command{
			Name:      name,
			Usage:     usage,
			ArgsUsage: "<id>",
			Action: func(c *cli.Context) error {
				id, err := requireArg(c, "id")
				if err != nil {
					return outputError(err)
				}
				out, err := op(c, id)
				if err != nil {
					return outputError(err)
				}
				return outputJSON(out)
			},
		}
	}
	deltaCmd := func(name, usage string, op func(*cli.Context, string, int) (*plan.PlanItem, error)) *cli.Command {
		return &cli.Command{
			Name:      name,
			Usage:     usage,
			ArgsUsage: "<id> <delta>",
			Action: func(c *cli.Context) error {
				if c.NArg() != 2 {
					return outputError(errors.NewValidation("expected <id> <delta>"))
				}
				delta, err := strconv.Atoi(c.Args().Get(1))
				if err != nil {
					return outputError(errors.NewValidation("delta must be an integer"))
				}
				out, err := op(c, c.Args().First(), delta)
				if err != nil {
					return outputError(err)
				}
				return outputJSON(out)
			},
		}
	}

	return &cli.Command{
		Name:  "plan",
		Usage: "Manage plan items",
		Subcommands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Add a plan item",
				ArgsUsage: "[name]",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "day", Usage: "Plan day YYYY-MM-DD (default today)"},
					&cli.StringFlag{Name: "template", Aliases: []string{"t"}, Usage: "Template ID"},
					&cli.StringFlag{Name: "estimate", Aliases: []string{"e"}, Usage: "Estimate: minutes or a duration like 1h30m"},
					&cli.StringFlag{Name: "at", Usage: "Fixed start time HH:MM"},
				},
				Action: func(c *cli.Context) error {
					est, err := parseMinutes(c.String("estimate"))
					if err != nil {
						return outputError(errors.NewValidation(err.Error()))
					}
					out, err := ops.AddPlan(c.Context, env, ops.AddPlanInput{
						Day:         c.String("day"),
						Name:        strings.Join(c.Args().Slice(), " "),
						TemplateID:  c.String("template"),
						EstimateMin: est,
						ScheduledAt: c.String("at"),
					})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(out)
				},
			},
			{
				Name:      "edit",
				Usage:     "Edit a plan item",
				ArgsUsage: "<id>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "New name"},
					&cli.StringFlag{Name: "estimate", Aliases: []string{"e"}, Usage: "New estimate"},
					&cli.StringFlag{Name: "at", Usage: "New fixed time HH:MM, empty to clear"},
					&cli.StringFlag{Name: "day", Usage: "Move to another day"},
				},
				Action: func(c *cli.Context) error {
					id, err := requireArg(c, "id")
					if err != nil {
						return outputError(err)
					}
					input := ops.EditPlanInput{ID: id}
					if c.IsSet("name") {
						name := c.String("name")
						input.Name = &name
					}
					if c.IsSet("estimate") {
						est, err := parseMinutes(c.String("estimate"))
						if err != nil {
							return outputError(errors.NewValidation(err.Error()))
						}
						input.EstimateMin = &est
					}
					if c.IsSet("at") {
						at := c.String("at")
						input.ScheduledAt = &at
					}
					if c.IsSet("day") {
						day := c.String("day")
						input.Day = &day
					}
					out, err := ops.EditPlan(c.Context, env, input)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(out)
				},
			},
			byID("done", "Mark a plan item done", func(c *cli.Context, id string) (any, error) {
				return ops.CompletePlan(c.Context, env, id)
			}),
			byID("skip", "Skip a plan item", func(c *cli.Context, id string) (any, error) {
				return ops.SkipPlan(c.Context, env, id)
			}),
			byID("unskip", "Return a skipped item to todo", func(c *cli.Context, id string) (any, error) {
				return ops.UndoSkip(c.Context, env, id)
			}),
			byID("delete", "Delete a plan item", func(c *cli.Context, id string) (any, error) {
				return ops.DeletePlan(c.Context, env, id)
			}),
			byID("split", "Split the remaining estimate into a sibling item", func(c *cli.Context, id string) (any, error) {
				return ops.SplitPlan(c.Context, env, id)
			}),
			deltaCmd("estimate", "Adjust an estimate by a number of minutes", func(c *cli.Context, id string, delta int) (*plan.PlanItem, error) {
				return ops.AdjustEstimate(c.Context, env, id, delta)
			}),
			deltaCmd("move", "Move an item up (negative) or down the order", func(c *cli.Context, id string, delta int) (*plan.PlanItem, error) {
				return ops.MovePlan(c.Context, env, id, delta)
			}),
			{
				Name:  "restore",
				Usage: "Restore a deleted plan item (reads the item JSON from stdin)",
				Action: func(c *cli.Context) error {
					var item plan.PlanItem
					if err := readStdinJSON(&item); err != nil {
						return outputError(err)
					}
					out, err := ops.RestorePlan(c.Context, env, item)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(out)
				},
			},
			{
				Name:      "reorder",
				Usage:     "Reorder a day's items",
				ArgsUsage: "<id>...",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "day", Usage: "Plan day (default today)"},
				},
				Action: func(c *cli.Context) error {
					out, err := ops.ReorderPlan(c.Context, env, ops.ReorderInput{
						Day: c.String("day"),
						IDs: c.Args().Slice(),
					})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(itemsOutput(out))
				},
			},
			{
				Name:  "rollover",
				Usage: "Carry unfinished items to another day",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "from", Usage: "Source day (default yesterday)"},
					&cli.StringFlag{Name: "to", Usage: "Target day (default today)"},
				},
				Action: func(c *cli.Context) error {
					out, err := ops.Rollover(c.Context, env, ops.RolloverInput{
						From: c.String("from"),
						To:   c.String("to"),
					})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(itemsOutput(out))
				},
			},
			{
				Name:  "routines",
				Usage: "Add the routines due on a day (default tomorrow)",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "day", Usage: "Plan day"},
				},
				Action: func(c *cli.Context) error {
					out, err := ops.PlanRoutines(c.Context, env, c.String("day"))
					if err != nil {
						return outputError(err)
					}
					return outputJSON(itemsOutput(out))
				},
			},
			{
				Name:      "suppress",
				Usage:     "Keep a routine off a day",
				ArgsUsage: "<template-id>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "day", Usage: "Plan day (default today)"},
					&cli.BoolFlag{Name: "off", Usage: "Lift the suppression"},
				},
				Action: func(c *cli.Context) error {
					id, err := requireArg(c, "template-id")
					if err != nil {
						return outputError(err)
					}
					out, err := ops.SuppressRoutine(c.Context, env, ops.SuppressInput{
						Day:        c.String("day"),
						TemplateID: id,
						Off:        c.Bool("off"),
					})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(itemsOutput(out))
				},
			},
			{
				Name:  "list",
				Usage: "List a day's plan",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "day", Usage: "Plan day (default today)"},
				},
				Action: func(c *cli.Context) error {
					out, err := ops.ListPlan(c.Context, env, c.String("day"))
					if err != nil {
						return outputError(err)
					}
					return outputJSON(out)
				},
			},
		},
	}
}

// --- templates ---

func templateFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "Template name"},
		&cli.StringFlag{Name: "tags", Usage: "Comma-separated default tags"},
		&cli.StringFlag{Name: "color", Usage: "Display color"},
		&cli.BoolFlag{Name: "routine", Usage: "Add to the plan automatically"},
		&cli.StringFlag{Name: "days", Usage: "Routine weekdays, Monday=0 (e.g. 0,2,4)"},
		&cli.StringFlag{Name: "at", Usage: "Routine time of day HH:MM"},
		&cli.IntFlag{Name: "daily", Usage: "Daily target minutes"},
		&cli.IntFlag{Name: "weekly", Usage: "Weekly target minutes"},
		&cli.IntFlag{Name: "monthly", Usage: "Monthly target minutes"},
	}
}

// templateInput copies only the flags the user set.
func templateInput(c *cli.Context) (ops.TemplateInput, error) {
	var in ops.TemplateInput
	if c.IsSet("name") {
		v := c.String("name")
		in.Name = &v
	}
	if c.IsSet("tags") {
		v := parseTags(c.String("tags"))
		in.DefaultTags = &v
	}
	if c.IsSet("color") {
		v := c.String("color")
		in.Color = &v
	}
	if c.IsSet("routine") {
		v := c.Bool("routine")
		in.IsRoutine = &v
	}
	if c.IsSet("days") {
		days, err := parseWeekdays(c.String("days"))
		if err != nil {
			return in, errors.NewValidation(err.Error())
		}
		in.RoutineDays = &days
	}
	if c.IsSet("at") {
		v := c.String("at")
		in.TimeOfDay = &v
	}
	for flag, dst := range map[string]**int{
		"daily":   &in.TargetDailyMin,
		"weekly":  &in.TargetWeeklyMin,
		"monthly": &in.TargetMonthlyMin,
	} {
		if c.IsSet(flag) {
			v := c.Int(flag)
			*dst = &v
		}
	}
	return in, nil
}

func templateCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "template",
		Usage: "Manage task templates and routines",
		Subcommands: []*cli.Command{
			{
				Name:  "add",
				Usage: "Add a template",
				Flags: templateFlags(),
				Action: func(c *cli.Context) error {
					in, err := templateInput(c)
					if err != nil {
						return outputError(err)
					}
					out, err := ops.AddTemplate(c.Context, env, in)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(out)
				},
			},
			{
				Name:      "edit",
				Usage:     "Edit a template",
				ArgsUsage: "<id>",
				Flags:     templateFlags(),
				Action: func(c *cli.Context) error {
					id, err := requireArg(c, "id")
					if err != nil {
						return outputError(err)
					}
					in, err := templateInput(c)
					if err != nil {
						return outputError(err)
					}
					in.ID = id
					out, err := ops.EditTemplate(c.Context, env, in)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(out)
				},
			},
			{
				Name:      "delete",
				Usage:     "Delete a template",
				ArgsUsage: "<id>",
				Action: func(c *cli.Context) error {
					id, err := requireArg(c, "id")
					if err != nil {
						return outputError(err)
					}
					out, err := ops.DeleteTemplate(c.Context, env, id)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(out)
				},
			},
			{
				Name:  "list",
				Usage: "List templates",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "routines", Usage: "Only routines"},
				},
				Action: func(c *cli.Context) error {
					out, err := ops.ListTemplates(c.Context, env, c.Bool("routines"))
					if err != nil {
						return outputError(err)
					}
					return outputJSON(out)
				},
			},
		},
	}
}

// --- session log ---

func logCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "log",
		Usage: "Browse and correct logged sessions",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List sessions by logical day",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "from", Usage: "First day (default today)"},
					&cli.StringFlag{Name: "to", Usage: "Last day, inclusive (default from)"},
					&cli.StringFlag{Name: "tag", Usage: "Only sessions with this tag"},
					&cli.StringFlag{Name: "template", Usage: "Only sessions of this template"},
					&cli.StringFlag{Name: "plan", Usage: "Only sessions of this plan item"},
				},
				Action: func(c *cli.Context) error {
					out, err := ops.ListSessions(c.Context, env, ops.ListSessionsInput{
						From:       c.String("from"),
						To:         c.String("to"),
						Tag:        c.String("tag"),
						TemplateID: c.String("template"),
						PlanID:     c.String("plan"),
					})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(out)
				},
			},
			{
				Name:      "edit",
				Usage:     "Edit a session",
				ArgsUsage: "<id>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "New name"},
					&cli.StringFlag{Name: "start", Usage: "New start (RFC 3339 or \"YYYY-MM-DD HH:MM\")"},
					&cli.StringFlag{Name: "end", Usage: "New end (RFC 3339 or \"YYYY-MM-DD HH:MM\")"},
					&cli.StringFlag{Name: "tags", Usage: "Replace tags (comma-separated)"},
					&cli.StringFlag{Name: "note", Usage: "Replace the note"},
				},
				Action: func(c *cli.Context) error {
					id, err := requireArg(c, "id")
					if err != nil {
						return outputError(err)
					}
					loc, err := env.Config.Location()
					if err != nil {
						loc = time.Local
					}
					input := ops.EditSessionInput{ID: id}
					if c.IsSet("name") {
						v := c.String("name")
						input.Name = &v
					}
					for flag, dst := range map[string]**time.Time{"start": &input.StartAt, "end": &input.EndAt} {
						if !c.IsSet(flag) {
							continue
						}
						t, err := parseTime(c.String(flag), loc)
						if err != nil {
							return outputError(errors.NewValidation(fmt.Sprintf("%s: %v", flag, err)))
						}
						*dst = &t
					}
					if c.IsSet("tags") {
						v := parseTags(c.String("tags"))
						input.Tags = &v
					}
					if c.IsSet("note") {
						v := c.String("note")
						input.Note = &v
					}
					out, err := ops.EditSession(c.Context, env, input)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(out)
				},
			},
			{
				Name:      "delete",
				Usage:     "Delete a session",
				ArgsUsage: "<id>",
				Action: func(c *cli.Context) error {
					id, err := requireArg(c, "id")
					if err != nil {
						return outputError(err)
					}
					out, err := ops.DeleteSession(c.Context, env, id)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(out)
				},
			},
			{
				Name:  "restore",
				Usage: "Restore a deleted session (reads the session JSON from stdin)",
				Action: func(c *cli.Context) error {
					var s plan.Session
					if err := readStdinJSON(&s); err != nil {
						return outputError(err)
					}
					out, err := ops.RestoreSession(c.Context, env, s)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(out)
				},
			},
		},
	}
}

// --- schedule ---

func todayCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "today",
		Usage: "Project the day's plan onto the clock",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "day", Usage: "Plan day (default today)"},
			&cli.BoolFlag{Name: "no-routines", Usage: "Do not add today's due routines first"},
		},
		Action: func(c *cli.Context) error {
			out, err := ops.Today(c.Context, env, ops.TodayInput{
				Day:            c.String("day"),
				EnsureRoutines: !c.Bool("no-routines"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(out)
		},
	}
}

func capacityCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "capacity",
		Usage: "Compare the remaining plan with the work window",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "day", Usage: "Plan day (default today)"},
		},
		Action: func(c *cli.Context) error {
			out, err := ops.Capacity(c.Context, env, c.String("day"))
			if err != nil {
				return outputError(err)
			}
			return outputJSON(out)
		},
	}
}

func notifyCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "notify",
		Usage: "List due start notifications and mark them delivered",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "day", Usage: "Plan day (default today)"},
			&cli.BoolFlag{Name: "peek", Usage: "Do not mark them delivered"},
		},
		Action: func(c *cli.Context) error {
			out, err := ops.Notifications(c.Context, env, ops.NotificationsInput{
				Day:  c.String("day"),
				Peek: c.Bool("peek"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(out)
		},
	}
}

func reviewCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "review",
		Usage: "Compare tracked time with estimates and targets",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "range", Aliases: []string{"r"}, Value: "day", Usage: "day|week|month"},
			&cli.StringFlag{Name: "day", Usage: "Period end (default today)"},
		},
		Action: func(c *cli.Context) error {
			out, err := ops.Review(c.Context, env, ops.ReviewInput{
				Range: c.String("range"),
				Day:   c.String("day"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(out)
		},
	}
}

func reportCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "report",
		Usage: "Print the daily report as Markdown",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "day", Usage: "Plan day (default today)"},
			&cli.BoolFlag{Name: "json", Usage: "Print JSON with an HTML rendering"},
		},
		Action: func(c *cli.Context) error {
			asJSON := c.Bool("json")
			out, err := ops.Report(c.Context, env, c.String("day"), asJSON)
			if err != nil {
				return outputError(err)
			}
			if asJSON {
				return outputJSON(out)
			}
			_, err = io.WriteString(os.Stdout, out.Markdown)
			return err
		},
	}
}

// --- data ---

func calendarCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "calendar-import",
		Usage: "Add calendar events as fixed-time plan items (JSON array from --path or stdin)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Events file"},
		},
		Action: func(c *cli.Context) error {
			input := ops.ImportCalendarInput{Path: c.String("path")}
			if input.Path == "" {
				if err := readStdinJSON(&input.Events); err != nil {
					return outputError(err)
				}
			}
			out, err := ops.ImportCalendar(c.Context, env, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(out)
		},
	}
}

func exportCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export data to a file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: "jsonl", Usage: "jsonl|json|csv|markdown"},
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Export file path (default: ~/.daychain/exports/...)"},
			&cli.StringFlag{Name: "from", Usage: "First day of sessions (csv, json) or the report day (markdown)"},
			&cli.StringFlag{Name: "to", Usage: "Last day of sessions, inclusive"},
		},
		Action: func(c *cli.Context) error {
			out, err := ops.Export(c.Context, env, ops.ExportInput{
				Format: c.String("format"),
				Path:   c.String("path"),
				From:   c.String("from"),
				To:     c.String("to"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(out)
		},
	}
}

func importCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Import a JSONL backup",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Required: true, Usage: "Import file path"},
			&cli.StringFlag{Name: "mode", Aliases: []string{"m"}, Value: "error", Usage: "Collision mode: error|replace|skip"},
		},
		Action: func(c *cli.Context) error {
			out, err := ops.Import(c.Context, env, ops.ImportInput{
				Path: c.String("path"),
				Mode: ops.ImportMode(c.String("mode")),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(out)
		},
	}
}

func webCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "web",
		Usage: "Serve the dashboard and run the notification loop",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "port", Usage: "Override web_port"},
		},
		Action: func(c *cli.Context) error {
			if c.IsSet("port") {
				env.Config.WebPort = c.Int("port")
			}
			srv, err := web.NewServer(env, Version)
			if err != nil {
				return outputError(err)
			}
			if err := srv.Run(); err != nil {
				return outputError(err)
			}
			return nil
		},
	}
}

// Helper functions

type listOutput struct {
	Items []plan.PlanItem `json:"items"`
	Count int             `json:"count"`
}

func itemsOutput(items []plan.PlanItem) listOutput {
	if items == nil {
		items = []plan.PlanItem{}
	}
	return listOutput{Items: items, Count: len(items)}
}

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if dErr, ok := errors.As(err); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", dErr.Code, dErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

func requireArg(c *cli.Context, name string) (string, error) {
	if c.NArg() < 1 || strings.TrimSpace(c.Args().First()) == "" {
		return "", errors.NewValidation(name + " is required")
	}
	return c.Args().First(), nil
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// readStdin reads at most limit bytes from stdin.
func readStdin(limit int64) (string, error) {
	data, err := io.ReadAll(io.LimitReader(os.Stdin, limit+1))
	if err != nil {
		return "", err
	}
	if int64(len(data)) > limit {
		return "", fmt.Errorf("stdin exceeds %d bytes", limit)
	}
	return strings.TrimSpace(string(data)), nil
}

func readStdinJSON(v any) error {
	if !stdinHasData() {
		return errors.NewValidation("JSON input must be piped via stdin")
	}
	text, err := readStdin(maxStdinBytes)
	if err != nil {
		return errors.NewValidation(err.Error())
	}
	if text == "" {
		return errors.NewValidation("stdin is empty")
	}
	if err := json.Unmarshal([]byte(text), v); err != nil {
		return errors.NewValidation("invalid JSON on stdin: " + err.Error())
	}
	return nil
}

// parseTags splits a comma-separated string into a slice of tags.
func parseTags(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// parseMinutes parses "45" or a Go duration like "1h30m" to whole minutes.
func parseMinutes(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("estimate must be non-negative")
		}
		return n, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid estimate: %s", s)
	}
	if d < 0 {
		return 0, fmt.Errorf("estimate must be non-negative")
	}
	return int(d.Round(time.Minute) / time.Minute), nil
}

// parseWeekdays parses "0,2,4" (Monday=0).
func parseWeekdays(s string) ([]int, error) {
	days := []int{}
	for _, p := range parseTags(s) {
		d, err := strconv.Atoi(p)
		if err != nil || d < 0 || d > 6 {
			return nil, fmt.Errorf("invalid weekday %q: use 0 (Monday) to 6 (Sunday)", p)
		}
		days = append(days, d)
	}
	return days, nil
}

// parseTime accepts RFC 3339 or "YYYY-MM-DD HH:MM" in loc.
func parseTime(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation("2006-01-02 15:04", s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q", s)
	}
	return t, nil
}
