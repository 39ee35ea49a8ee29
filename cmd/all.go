// -- cmd/all.go --
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/gatectl/internal/probe"
	"github.com/xkilldash9x/gatectl/internal/reporting"
	"github.com/xkilldash9x/gatectl/internal/service"
)

func newAllCmd(a *app) *cobra.Command {
	var (
		filter  string
		refresh bool
	)
	all := &cobra.Command{
		Use:   "all",
		Short: "Show every gate and experiment the page evaluated, with overrides applied",
		Long: `Show every gate and experiment the page's Statsig client evaluated.

Overridden entries show the override value. An entry marked "reload pending"
has an override the page has not picked up yet.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, release, err := a.session(cmd)
			if err != nil {
				return err
			}
			defer release()

			res := snapshot(cmd.Context(), c, refresh)
			if !res.OK() {
				if err := c.Reporter.WriteFailure(*res.Failure); err != nil {
					return err
				}
				return fmt.Errorf("read page values: %s", res.Failure.Reason)
			}
			snap := res.Snapshot.Filter(filter)
			return c.Reporter.WriteAll(reporting.BuildAllView(snap, c.Controller.Overrides()))
		},
	}
	all.Flags().StringVarP(&filter, "filter", "f", "", "only show names containing this text (case-insensitive)")
	all.Flags().BoolVar(&refresh, "refresh", false, "read the page again instead of using the cached values")

	all.AddCommand(
		&cobra.Command{
			Use:   "override GATE",
			Short: "Override a gate to the opposite of its live value",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				c, release, err := a.session(cmd)
				if err != nil {
					return err
				}
				defer release()

				res := snapshot(cmd.Context(), c, false)
				if !res.OK() {
					return fmt.Errorf("read page values: %s", res.Failure)
				}
				for _, g := range res.Snapshot.Gates {
					if g.Name == args[0] {
						return c.Controller.SetGate(cmd.Context(), g.Name, !g.Value)
					}
				}
				return fmt.Errorf("gate %q is not evaluated by the page", args[0])
			},
		},
		&cobra.Command{
			Use:   "experiment NAME",
			Short: "Show every parameter of one experiment",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				c, release, err := a.session(cmd)
				if err != nil {
					return err
				}
				defer release()

				res := snapshot(cmd.Context(), c, false)
				if !res.OK() {
					return fmt.Errorf("read page values: %s", res.Failure)
				}
				view := reporting.BuildAllView(*res.Snapshot, c.Controller.Overrides())
				for _, row := range view.Experiments {
					if row.Name == args[0] {
						return c.Reporter.WriteExperimentDetail(row)
					}
				}
				return fmt.Errorf("experiment %q is not evaluated by the page", args[0])
			},
		},
	)
	return all
}

// snapshot reads the page values, from the session cache unless fresh is set.
func snapshot(ctx context.Context, c *service.Components, fresh bool) probe.Result {
	if fresh {
		return c.Reader.Refresh(ctx)
	}
	return c.Reader.Snapshot(ctx)
}
