package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/dukex/teamflow/pkg/config"
	cli "github.com/urfave/cli/v3"
)

func NewTeamsCommand() *cli.Command {
	return &cli.Command{
		Name:    "teams",
		Aliases: []string{"ls"},
		Usage:   "List the configured teams and their dependencies",
		Action: func(ctx context.Context, command *cli.Command) error {
			out := command.Root().Writer

			cfg, err := config.Load(command.String("config"))
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			dependsOn := make(map[string][]string)
			for _, edge := range cfg.DependencyEdges() {
				dependsOn[edge.Team] = append(dependsOn[edge.Team], edge.DependsOn...)
			}

			fmt.Fprintln(out, "Active Teams:")
			fmt.Fprintln(out, "=============")

			for _, definition := range cfg.Definitions() {
				fmt.Fprintf(out, "\nTeam: %s\n", definition.Name)
				fmt.Fprintf(out, "  Processes: %d\n", len(definition.Processes))
				fmt.Fprintf(out, "  KPIs: %d\n", len(definition.KPIs))

				if related := dependsOn[definition.Name]; len(related) > 0 {
					fmt.Fprintf(out, "  Depends on: %s\n", strings.Join(related, ", "))
				}
			}

			placeholders := cfg.PlaceholderTeams()

			fmt.Fprintf(out, "\nPlaceholder Teams (%d):\n", len(placeholders))

			for _, placeholder := range placeholders {
				fmt.Fprintf(out, "  - %s (%s)\n", placeholder.Name, placeholder.Status)
			}

			return nil
		},
	}
}
