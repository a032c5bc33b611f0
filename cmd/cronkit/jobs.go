package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/dev-tams/cronkit/internal/app"
	"github.com/dev-tams/cronkit/internal/output"
	"github.com/dev-tams/cronkit/internal/server"
)

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func reportCommand() *cli.Command {
	return &cli.Command{
		Name:  "report",
		Usage: "write the upcoming-runs report for every configured schedule",
		Flags: []cli.Flag{configFlag(true)},
		Action: func(c *cli.Context) error {
			cfg, err := loadValidatedConfig(c)
			if err != nil {
				return err
			}

			res, err := app.RunReport(c.Context, cfg, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintln(c.App.Writer, res.Dest)
			return nil
		},
	}
}

func showCommand() *cli.Command {
	return &cli.Command{
		Name:  "show",
		Usage: "print a stored report (the newest by default)",
		Flags: []cli.Flag{
			configFlag(false),
			&cli.StringFlag{
				Name:  "file",
				Usage: "read a report file from disk instead of storage",
			},
			&cli.StringFlag{
				Name:  "key",
				Usage: "storage key of the report to show",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "print the report document as JSON",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := optionalConfig(c)
			if err != nil {
				return err
			}
			return app.RunShow(c.Context, cfg, app.ShowOptions{
				File: c.String("file"),
				Key:  c.String("key"),
				JSON: c.Bool("json"),
			}, c.App.Writer)
		},
	}
}

func daemonCommand() *cli.Command {
	return &cli.Command{
		Name:  "daemon",
		Usage: "fire the configured schedules as their minutes arrive",
		Flags: []cli.Flag{configFlag(true)},
		Action: func(c *cli.Context) error {
			cfg, err := loadValidatedConfig(c)
			if err != nil {
				return err
			}

			ctx, stop := signalContext(c.Context)
			defer stop()
			return app.RunDaemon(ctx, cfg)
		},
	}
}

func historyCommand() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "list recent firings recorded by the daemon",
		Flags: []cli.Flag{
			configFlag(true),
			&cli.StringFlag{
				Name:  "schedule",
				Usage: "only show this schedule",
			},
			&cli.IntFlag{
				Name:  "limit",
				Value: 20,
				Usage: "maximum number of firings",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "print JSON instead of a table",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadValidatedConfig(c)
			if err != nil {
				return err
			}

			firings, err := app.ListHistory(c.Context, cfg, c.String("schedule"), c.Int("limit"))
			if err != nil {
				return err
			}
			if c.Bool("json") {
				return output.RenderJSON(c.App.Writer, firings)
			}

			rows := make([][]interface{}, 0, len(firings))
			for _, f := range firings {
				rows = append(rows, []interface{}{
					f.Schedule,
					f.ScheduledFor.Format(time.RFC3339),
					f.Status,
					f.Expression,
					f.Error,
				})
			}
			output.RenderTable(c.App.Writer, []string{"Schedule", "Scheduled For", "Status", "Expression", "Error"}, rows)
			return nil
		},
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "serve the describe/next/parse API over HTTP",
		Flags: []cli.Flag{
			configFlag(false),
			&cli.StringFlag{
				Name:  "addr",
				Usage: "listen address (default from config, then :8080)",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := optionalConfig(c)
			if err != nil {
				return err
			}

			addr := cfg.Server.Addr
			if c.IsSet("addr") {
				addr = c.String("addr")
			}

			ctx, stop := signalContext(c.Context)
			defer stop()
			return server.ListenAndServe(ctx, addr, server.NewRouter(server.Options{MaxCount: cfg.Server.MaxCount}))
		},
	}
}
