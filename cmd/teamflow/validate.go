package main

import (
	"context"
	"fmt"

	"github.com/dukex/teamflow/pkg/cmd"
	"github.com/dukex/teamflow/pkg/config"
	"github.com/dukex/teamflow/pkg/otelhelper"
	"github.com/dukex/teamflow/pkg/provider"
	"github.com/jonboulle/clockwork"
	cli "github.com/urfave/cli/v3"
)

func NewValidateCommand() *cli.Command {
	return &cli.Command{
		Name:    "validate",
		Aliases: []string{"v"},
		Usage:   "Validate the team tables and the dependency list",
		Action: func(ctx context.Context, command *cli.Command) error {
			out := command.Root().Writer

			cfg, err := config.Load(command.String("config"))
			if err != nil {
				fmt.Fprintf(out, "❌ INVALID configuration: %v\n", err)

				return fmt.Errorf("failed to load configuration: %w", err)
			}

			results := cmd.ValidateTeams(cfg, cmd.Runtime{
				Provider: provider.NewDeterministic(1),
				Clock:    clockwork.NewRealClock(),
				Tracer:   otelhelper.NoopTracer(),
			})

			fmt.Fprintln(out, "Team Validation Results:")
			fmt.Fprintln(out, "========================")

			invalid := 0

			for _, result := range results {
				fmt.Fprintf(out, "\nTeam: %s\n", result.Team)

				if result.Err != nil {
					fmt.Fprintf(out, "    ❌ INVALID: %v\n", result.Err)

					invalid++

					continue
				}

				fmt.Fprintf(out, "    ✅ VALID\n")
			}

			fmt.Fprintf(out, "\nValidation Summary:\n")
			fmt.Fprintf(out, "  Active teams: %d\n", len(cfg.Definitions()))
			fmt.Fprintf(out, "  Placeholder teams: %d\n", len(cfg.PlaceholderTeams()))
			fmt.Fprintf(out, "  Dependency edges: %d\n", len(cfg.DependencyEdges()))
			fmt.Fprintf(out, "  Invalid: %d\n", invalid)

			if invalid > 0 {
				return fmt.Errorf("found %d invalid teams", invalid)
			}

			fmt.Fprintln(out, "All teams are valid! ✅")

			return nil
		},
	}
}
