// -- cmd/page.go --
package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newClearCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every gate and experiment override",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, release, err := a.session(cmd)
			if err != nil {
				return err
			}
			defer release()
			ctx := cmd.Context()
			if yes {
				ctx = withAssumeYes(ctx)
			}
			return c.Controller.ClearAll(ctx)
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

// isYes accepts y and yes in any case.
func isYes(answer string) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}

func newRefreshCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:       "refresh [on|off]",
		Short:     "Show or change whether the page reloads after a change",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"on", "off"},
		RunE: func(cmd *cobra.Command, args []string) error {
			c, release, err := a.session(cmd)
			if err != nil {
				return err
			}
			defer release()
			if len(args) == 1 {
				switch strings.ToLower(args[0]) {
				case "on":
					c.Controller.SetAutoRefresh(true)
				case "off":
					c.Controller.SetAutoRefresh(false)
				default:
					return fmt.Errorf("refresh takes on or off, got %q", args[0])
				}
			}
			state := "off"
			if c.Controller.AutoRefresh() {
				state = "on"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Auto refresh is %s\n", state)
			return nil
		},
	}
}

func newReloadCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reload",
		Short: "Reload the page so it picks up the stored overrides",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, release, err := a.session(cmd)
			if err != nil {
				return err
			}
			defer release()
			if err := c.Page.Reload(cmd.Context()); err != nil {
				return fmt.Errorf("reload page: %w", err)
			}
			c.Reader.Invalidate()
			fmt.Fprintln(cmd.ErrOrStderr(), "Page reloaded")
			return nil
		},
	}
}
