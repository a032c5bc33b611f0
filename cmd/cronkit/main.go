package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/dev-tams/cronkit/internal/config"
	"github.com/dev-tams/cronkit/internal/logging"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "cronkit",
		Usage: "parse, explain and run cron schedules",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-level",
				Value: "info",
				Usage: "log level (debug, info, warn, error)",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Value: "console",
				Usage: "log format (console or json)",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "enable verbose logging",
			},
		},
		Before: func(c *cli.Context) error {
			return logging.Setup(os.Stderr, c.String("log-level"), c.String("log-format"), c.Bool("verbose"))
		},
		Commands: []*cli.Command{
			describeCommand(),
			nextCommand(),
			validateCommand(),
			fieldCommand(),
			reportCommand(),
			showCommand(),
			daemonCommand(),
			historyCommand(),
			serveCommand(),
		},
	}
}

func configFlag(required bool) cli.Flag {
	return &cli.StringFlag{
		Name:     "config",
		Aliases:  []string{"c"},
		Required: required,
		Usage:    "path to config yaml",
	}
}

func loadValidatedConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// the config file sets logging unless the command line already did
	level, format := cfg.Log.Level, cfg.Log.Format
	if c.IsSet("log-level") {
		level = c.String("log-level")
	}
	if c.IsSet("log-format") {
		format = c.String("log-format")
	}
	if err := logging.Setup(os.Stderr, level, format, c.Bool("verbose")); err != nil {
		return nil, err
	}
	return cfg, nil
}

// optionalConfig loads --config when given and falls back to defaults.
func optionalConfig(c *cli.Context) (*config.Config, error) {
	if c.String("config") == "" {
		return config.Default(), nil
	}
	return loadValidatedConfig(c)
}
