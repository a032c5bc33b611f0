package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/dev-tams/cronkit/internal/output"
	"github.com/dev-tams/cronkit/internal/report"
	"github.com/dev-tams/cronkit/internal/schedule"
)

// expressionArg joins the arguments so an unquoted expression still works.
func expressionArg(c *cli.Context) (string, error) {
	if c.NArg() == 0 {
		return "", cli.Exit("a cron expression is required", 2)
	}
	return strings.Join(c.Args().Slice(), " "), nil
}

func printWarnings(w io.Writer, e schedule.Expression) {
	for _, v := range e.Warnings() {
		fmt.Fprintln(w, "warning:", v.Error())
	}
}

func describeCommand() *cli.Command {
	return &cli.Command{
		Name:      "describe",
		Usage:     "explain a cron expression in English",
		ArgsUsage: "<expression>",
		Action: func(c *cli.Context) error {
			expr, err := expressionArg(c)
			if err != nil {
				return err
			}
			if e, err := schedule.Parse(expr); err == nil {
				printWarnings(c.App.ErrWriter, e)
			}
			fmt.Fprintln(c.App.Writer, schedule.Describe(expr))
			return nil
		},
	}
}

func nextCommand() *cli.Command {
	return &cli.Command{
		Name:      "next",
		Usage:     "list the upcoming times a cron expression fires",
		ArgsUsage: "<expression>",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "count",
				Aliases: []string{"n"},
				Value:   5,
				Usage:   "number of occurrences to list",
			},
			&cli.StringFlag{
				Name:  "from",
				Usage: "RFC 3339 start time (default: now)",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "print JSON instead of a table",
			},
		},
		Action: func(c *cli.Context) error {
			expr, err := expressionArg(c)
			if err != nil {
				return err
			}
			if c.Int("count") < 0 {
				return cli.Exit("--count must be >= 0", 2)
			}

			from := time.Now()
			if raw := c.String("from"); raw != "" {
				from, err = time.Parse(time.RFC3339, raw)
				if err != nil {
					return cli.Exit(fmt.Sprintf("--from: %v", err), 2)
				}
			}

			e, err := schedule.Parse(expr)
			if err != nil {
				return err
			}
			printWarnings(c.App.ErrWriter, e)

			times := e.Next(from, c.Int("count"))
			if c.Bool("json") {
				return output.RenderJSON(c.App.Writer, times)
			}
			if len(times) == 0 {
				fmt.Fprintln(c.App.Writer, report.NoOccurrences)
				return nil
			}

			rows := make([][]interface{}, 0, len(times))
			for i, t := range times {
				rows = append(rows, []interface{}{i + 1, t.Format(time.RFC3339), t.Weekday().String()})
			}
			output.RenderTable(c.App.Writer, []string{"#", "Time", "Weekday"}, rows)
			return nil
		},
	}
}

func validateCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "strictly check an expression, or every schedule in a config file",
		ArgsUsage: "[expression]",
		Flags:     []cli.Flag{configFlag(false)},
		Action: func(c *cli.Context) error {
			if c.String("config") != "" {
				cfg, err := loadValidatedConfig(c)
				if err != nil {
					return cli.Exit(err.Error(), 1)
				}
				fmt.Fprintf(c.App.Writer, "config ok: %d schedules, %d active\n", len(cfg.Schedules), len(cfg.ActiveSchedules()))
				if c.NArg() == 0 {
					return nil
				}
			}

			expr, err := expressionArg(c)
			if err != nil {
				return err
			}
			if _, err := schedule.ParseStrict(expr); err != nil {
				return cli.Exit(violationReport(err), 1)
			}
			fmt.Fprintln(c.App.Writer, "ok")
			return nil
		},
	}
}

// violationReport lists one problem per line.
func violationReport(err error) string {
	lines := []string{schedule.ErrInvalidExpression.Error()}

	var syn *schedule.SyntaxError
	if errors.As(err, &syn) {
		return strings.Join(append(lines, "  "+syn.Error()), "\n")
	}

	var walk func(error)
	walk = func(e error) {
		switch x := e.(type) {
		case schedule.DomainViolation:
			lines = append(lines, "  "+x.Error())
		case interface{ Unwrap() []error }:
			for _, inner := range x.Unwrap() {
				walk(inner)
			}
		default:
			if inner := errors.Unwrap(e); inner != nil {
				walk(inner)
			}
		}
	}
	walk(err)

	if len(lines) == 1 {
		lines = append(lines, "  "+err.Error())
	}
	return strings.Join(lines, "\n")
}

func fieldCommand() *cli.Command {
	fieldFlag := &cli.StringFlag{
		Name:  "field",
		Value: "minute",
		Usage: "second, minute, hour, day-of-month, month or day-of-week",
	}

	return &cli.Command{
		Name:  "field",
		Usage: "convert between a single field spec and its editable form",
		Subcommands: []*cli.Command{
			{
				Name:  "format",
				Usage: "render an editable field state as a spec",
				Flags: []cli.Flag{
					fieldFlag,
					&cli.StringFlag{Name: "kind", Value: "every", Usage: "every, specific, range or step"},
					&cli.IntSliceFlag{Name: "specific", Usage: "values for kind=specific"},
					&cli.IntFlag{Name: "start", Usage: "range start for kind=range"},
					&cli.IntFlag{Name: "end", Usage: "range end for kind=range"},
					&cli.IntFlag{Name: "step", Value: 1, Usage: "interval for kind=step"},
				},
				Action: func(c *cli.Context) error {
					f, err := fieldArg(c)
					if err != nil {
						return err
					}
					kind, err := schedule.ParseFieldKind(c.String("kind"))
					if err != nil {
						return cli.Exit(err.Error(), 2)
					}

					state := schedule.NewFieldState(f.Domain())
					state.Kind = kind
					if c.IsSet("specific") {
						state.Specific = c.IntSlice("specific")
					}
					if c.IsSet("start") {
						state.RangeStart = c.Int("start")
					}
					if c.IsSet("end") {
						state.RangeEnd = c.Int("end")
					}
					state.Step = c.Int("step")

					fmt.Fprintln(c.App.Writer, schedule.FieldToString(state))
					return nil
				},
			},
			{
				Name:      "parse",
				Usage:     "show the editable state of a field spec",
				ArgsUsage: "<spec>",
				Flags: []cli.Flag{
					fieldFlag,
					&cli.BoolFlag{Name: "json", Usage: "print JSON instead of a table"},
				},
				Action: func(c *cli.Context) error {
					f, err := fieldArg(c)
					if err != nil {
						return err
					}
					spec := strings.TrimSpace(c.Args().First())
					if spec == "" {
						spec = "*"
					}

					state := schedule.ParseFieldState(spec, f.Domain())
					if c.Bool("json") {
						return output.RenderJSON(c.App.Writer, state)
					}
					output.RenderTable(c.App.Writer, []string{"Field", "Kind", "Specific", "Range", "Step", "Spec"}, [][]interface{}{{
						f.String(),
						state.Kind.String(),
						fmt.Sprint(state.Specific),
						fmt.Sprintf("%d-%d", state.RangeStart, state.RangeEnd),
						state.Step,
						schedule.FieldToString(state),
					}})
					return nil
				},
			},
		},
	}
}

func fieldArg(c *cli.Context) (schedule.Field, error) {
	f, ok := schedule.FieldByName(c.String("field"))
	if !ok {
		return 0, cli.Exit(fmt.Sprintf("unknown field %q", c.String("field")), 2)
	}
	return f, nil
}
