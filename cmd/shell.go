// -- cmd/shell.go --
package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/gatectl/internal/reporting"
	"github.com/xkilldash9x/gatectl/internal/service"
)

const shellPrompt = "gatectl> "

func newShellCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Start an interactive session against one page",
		Long: `Start an interactive session against one page.

Every gatectl command can be typed without the leading "gatectl". The page is
read once and cached until it reloads. Type exit or quit to leave.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runShell(cmd)
		},
	}
}

func (a *app) runShell(cmd *cobra.Command) error {
	if a.shared != nil {
		return errors.New("already in the shell")
	}
	ctx := cmd.Context()
	errOut := cmd.ErrOrStderr()

	reporter, err := a.newReporter(cmd)
	if err != nil {
		return err
	}
	c, err := a.open(cmd, reporter)
	if err != nil {
		return err
	}
	defer c.Shutdown()

	url, err := c.Page.URL(ctx)
	if err != nil {
		url = "page"
	}
	set := c.Controller.Overrides()
	fmt.Fprintf(errOut, "Connected to %s (%s, %s overridden)\n", url,
		reporting.Count(len(set.Gates), "gate"),
		reporting.Count(len(set.Experiments), "experiment"))

	in := a.input(cmd)
	for ctx.Err() == nil {
		fmt.Fprint(errOut, shellPrompt)
		line, err := in.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("read command: %w", err)
		}
		eof := err != nil

		line = strings.TrimSpace(line)
		if line == "exit" || line == "quit" {
			break
		}
		if line != "" {
			a.runLine(cmd, c, strings.Fields(line))
		}
		if eof {
			fmt.Fprintln(errOut)
			break
		}
	}
	return nil
}

// runLine executes one shell line through a new command tree bound to the
// shell's session, so flags never leak from one line to the next.
func (a *app) runLine(parent *cobra.Command, c *service.Components, args []string) {
	line := &app{
		factory: a.factory,
		cfg:     a.cfg,
		logger:  a.logger,
		in:      a.in,
		shared:  c,
	}
	root := newRootCmd(line)
	root.SetArgs(args)
	root.SetIn(parent.InOrStdin())
	root.SetOut(parent.OutOrStdout())
	root.SetErr(parent.ErrOrStderr())

	defer func() {
		if r := recover(); r != nil {
			c.Logger().Error("Shell command panicked.", zap.Any("panic", r), zap.Strings("args", args))
			fmt.Fprintf(parent.ErrOrStderr(), "Error: command panicked: %v\n", r)
		}
	}()
	if err := root.ExecuteContext(parent.Context()); err != nil {
		fmt.Fprintf(parent.ErrOrStderr(), "Error: %v\n", err)
	}
}
