// -- cmd/experiments.go --
package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/gatectl/internal/overrides"
)

func newExperimentsCmd(a *app) *cobra.Command {
	list := func(cmd *cobra.Command, args []string) error {
		c, release, err := a.session(cmd)
		if err != nil {
			return err
		}
		defer release()
		return c.Reporter.WriteExperiments(c.Controller.Overrides())
	}

	experiments := &cobra.Command{
		Use:     "experiments",
		Aliases: []string{"experiment", "exp"},
		Short:   "List or change experiment parameter overrides",
		Args:    cobra.NoArgs,
		RunE:    list,
	}

	experiments.AddCommand(
		&cobra.Command{
			Use:     "list",
			Aliases: []string{"ls"},
			Short:   "List experiment overrides",
			Args:    cobra.NoArgs,
			RunE:    list,
		},
		&cobra.Command{
			Use:   "set EXPERIMENT KEY VALUE...",
			Short: "Force one parameter of an experiment",
			Long: `Force one parameter of an experiment.

VALUE is read as JSON when it parses (true, 15, [1,2], {"a":1}, "quoted") and
kept as a plain string otherwise. Remaining arguments are joined with spaces.`,
			Args: cobra.MinimumNArgs(3),
			RunE: func(cmd *cobra.Command, args []string) error {
				value := overrides.ParseValue(strings.Join(args[2:], " "))
				c, release, err := a.session(cmd)
				if err != nil {
					return err
				}
				defer release()
				return c.Controller.SetExperimentValue(cmd.Context(), args[0], args[1], value)
			},
		},
		&cobra.Command{
			Use:     "rm EXPERIMENT [KEY]",
			Aliases: []string{"remove", "delete"},
			Short:   "Remove one parameter override, or every override of an experiment",
			Args:    cobra.RangeArgs(1, 2),
			RunE: func(cmd *cobra.Command, args []string) error {
				c, release, err := a.session(cmd)
				if err != nil {
					return err
				}
				defer release()
				if len(args) == 2 {
					return c.Controller.RemoveExperimentValue(cmd.Context(), args[0], args[1])
				}
				return c.Controller.RemoveExperiment(cmd.Context(), args[0])
			},
		},
	)
	return experiments
}
