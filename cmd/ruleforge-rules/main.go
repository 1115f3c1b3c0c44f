// Package main provides the command-line tool for validating and importing rule files.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dukex/ruleforge/pkg/approval"
	"github.com/dukex/ruleforge/pkg/automation"
	"github.com/dukex/ruleforge/pkg/cmd"
	"github.com/dukex/ruleforge/pkg/eventbus"
	"github.com/dukex/ruleforge/pkg/log"
	cli "github.com/urfave/cli/v3"
)

func main() {
	command := &cli.Command{
		Name:                  "ruleforge-rules",
		Usage:                 "Validate and import automation rule files",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "warn",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Before: func(ctx context.Context, command *cli.Command) (context.Context, error) {
			log.Setup(command.String("log-level"))

			return ctx, nil
		},
		Commands: []*cli.Command{
			validateCommand(),
			importCommand(),
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func validateCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Aliases:   []string{"v"},
		Usage:     "Check a rule file without touching any store",
		ArgsUsage: "<file.yaml>",
		Action: func(_ context.Context, command *cli.Command) error {
			file, err := loadRuleFile(command.Args().First())
			if err != nil {
				return err
			}

			registry := cmd.NewRegistry(log.WithModule("rules"), "", "")

			problems := validateRules(file, registry)
			if len(problems) > 0 {
				printProblems(command.Root().Writer, problems)

				return errInvalidRules
			}

			fmt.Fprintf(command.Root().Writer, "%d rules are valid\n", len(file.Rules))

			return nil
		},
	}
}

func importCommand() *cli.Command {
	return &cli.Command{
		Name:      "import",
		Aliases:   []string{"i"},
		Usage:     "Validate a rule file and create every rule in it",
		ArgsUsage: "<file.yaml>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Persistence URL (file://dir or postgres://...)",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:  "approval-id",
				Usage: "Approved request covering the sensitive actions in the file",
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			logger := log.WithModule("rules")

			file, err := loadRuleFile(command.Args().First())
			if err != nil {
				return err
			}

			persistence, err := cmd.NewPersistence(ctx, logger, command.String("database-url"), "")
			if err != nil {
				return err
			}

			defer func() {
				err := persistence.Close(ctx)
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			registry := cmd.NewRegistry(logger, "", "")
			engine := automation.NewEngine(logger, persistence, registry, eventbus.NewBus(), nil)
			gate := approval.NewGate(logger, persistence.ApprovalRepository(), nil)

			created, problems, err := importRules(ctx, engine, gate, file, command.String("approval-id"))
			if len(problems) > 0 {
				printProblems(command.Root().Writer, problems)
			}

			for _, rule := range created {
				fmt.Fprintf(command.Root().Writer, "created %s %q\n", rule.ID, rule.Name)
			}

			return err
		},
	}
}

func printProblems(w io.Writer, problems []ruleProblem) {
	for _, problem := range problems {
		fmt.Fprintln(w, problem.String())
	}
}
