// -- cmd/gates.go --
package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newGatesCmd(a *app) *cobra.Command {
	list := func(cmd *cobra.Command, args []string) error {
		c, release, err := a.session(cmd)
		if err != nil {
			return err
		}
		defer release()
		return c.Reporter.WriteGates(c.Controller.Overrides())
	}

	gates := &cobra.Command{
		Use:     "gates",
		Aliases: []string{"gate"},
		Short:   "List or change gate overrides",
		Args:    cobra.NoArgs,
		RunE:    list,
	}

	gates.AddCommand(
		&cobra.Command{
			Use:     "list",
			Aliases: []string{"ls"},
			Short:   "List gate overrides",
			Args:    cobra.NoArgs,
			RunE:    list,
		},
		&cobra.Command{
			Use:   "set NAME true|false",
			Short: "Force a gate to a value",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				value, err := strconv.ParseBool(args[1])
				if err != nil {
					return fmt.Errorf("gate value must be true or false, got %q", args[1])
				}
				c, release, err := a.session(cmd)
				if err != nil {
					return err
				}
				defer release()
				return c.Controller.SetGate(cmd.Context(), args[0], value)
			},
		},
		&cobra.Command{
			Use:   "toggle NAME",
			Short: "Flip a gate override, forcing it on when there is none",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				c, release, err := a.session(cmd)
				if err != nil {
					return err
				}
				defer release()
				return c.Controller.ToggleGate(cmd.Context(), args[0])
			},
		},
		&cobra.Command{
			Use:     "rm NAME",
			Aliases: []string{"remove", "delete"},
			Short:   "Remove a gate override",
			Args:    cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				c, release, err := a.session(cmd)
				if err != nil {
					return err
				}
				defer release()
				return c.Controller.RemoveGate(cmd.Context(), args[0])
			},
		},
	)
	return gates
}
