// Package main provides the teamflow service and its maintenance commands.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dukex/teamflow/pkg/cmd"
	cli "github.com/urfave/cli/v3"
)

const defaultPort = 9092

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	command := NewCommand()

	if err := command.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func NewCommand() *cli.Command {
	return &cli.Command{
		Name:                  "teamflow",
		Version:               version,
		Usage:                 "Run adaptive team workflows and their cross-team coordinator",
		EnableShellCompletion: true,
		Commands: []*cli.Command{
			NewRunCommand(),
			NewValidateCommand(),
			NewTeamsCommand(),
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the YAML configuration file",
				Sources: cli.EnvVars("TEAMFLOW_CONFIG"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:    "log-format",
				Usage:   "Log format (text, json)",
				Value:   "text",
				Sources: cli.EnvVars("LOG_FORMAT"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (gochannel, kafka)",
				Value:   cmd.EventBusGoChannel,
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "scheduler",
				Usage:   "Cycle scheduler (ticker, cron)",
				Value:   cmd.SchedulerTicker,
				Sources: cli.EnvVars("TEAMFLOW_SCHEDULER"),
			},
			&cli.StringFlag{
				Name:    "provider",
				Usage:   "Capability provider (deterministic, http)",
				Value:   cmd.ProviderDeterministic,
				Sources: cli.EnvVars("TEAMFLOW_PROVIDER"),
			},
			&cli.StringFlag{
				Name:    "provider-url",
				Usage:   "Endpoint of the http capability provider",
				Sources: cli.EnvVars("TEAMFLOW_PROVIDER_URL"),
			},
			&cli.IntFlag{
				Name:    "provider-seed",
				Usage:   "Seed of the deterministic capability provider",
				Value:   1,
				Sources: cli.EnvVars("TEAMFLOW_PROVIDER_SEED"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL for the analysis cache and consumed alerts (in memory when empty)",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.StringFlag{
				Name:    "journal-url",
				Usage:   "Event journal location: file://dir or postgres://... (in memory when empty)",
				Sources: cli.EnvVars("JOURNAL_URL"),
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Export traces over OTLP HTTP",
				Sources: cli.EnvVars("TEAMFLOW_TRACING"),
			},
			&cli.FloatFlag{
				Name:    "trace-sample-ratio",
				Usage:   "Fraction of root traces to keep when tracing is enabled",
				Value:   1,
				Sources: cli.EnvVars("TEAMFLOW_TRACE_SAMPLE_RATIO"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			return runService(ctx, command)
		},
	}
}
