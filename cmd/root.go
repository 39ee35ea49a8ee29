// -- cmd/root.go --
package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/gatectl/internal/config"
	"github.com/xkilldash9x/gatectl/internal/observability"
	"github.com/xkilldash9x/gatectl/internal/overrides"
	"github.com/xkilldash9x/gatectl/internal/reporting"
	"github.com/xkilldash9x/gatectl/internal/service"
)

// rootFlags holds the persistent flags of one command tree.
type rootFlags struct {
	cfgFile   string
	mode      string
	remoteURL string
	target    string
	output    string
	noRefresh bool
	quiet     bool
	noColor   bool
}

// app is the state shared by the commands of one tree. Inside the shell a
// tree is built per line, all of them sharing the shell's session.
type app struct {
	factory service.ComponentFactory
	flags   rootFlags

	cfg    config.Interface
	logger *zap.Logger

	// in is created on first use from the command's stdin and shared with
	// every tree the shell builds, so prompts and lines read the same buffer.
	in *bufio.Reader

	// shared is the shell's session. Nil for one-shot commands.
	shared *service.Components
}

// NewRootCommand builds a fresh command tree wired to the production factory.
func NewRootCommand() *cobra.Command {
	return newRootCmd(&app{factory: service.NewComponentFactory()})
}

// Execute runs the command line in os.Args until ctx is cancelled.
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gatectl",
		Short: "Inspect and override Statsig gates and experiments in a live page.",
		Long: `gatectl reads feature gates and experiments from the Statsig client of a
page open in Chrome and lets you force their values. Overrides are stored in
the page's localStorage and picked up by the page after a reload.

Run without arguments to start an interactive shell.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if a.shared != nil {
				// Inside the shell the configuration was settled when it started.
				return nil
			}
			return a.initialize(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runShell(cmd)
		},
	}
	cmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	pf := cmd.PersistentFlags()
	pf.StringVarP(&a.flags.cfgFile, "config", "c", "", "config file (default is ./gatectl.yaml)")
	pf.StringVar(&a.flags.mode, "mode", "", "how to reach the page: attach, launch or fixture")
	pf.StringVar(&a.flags.remoteURL, "remote-url", "", "Chrome remote debugging endpoint for attach mode")
	pf.StringVar(&a.flags.target, "target", "", "substring of the URL or title of the tab to attach to")
	pf.StringVar(&a.flags.output, "output", reporting.FormatText, "output format: text, json or yaml")
	pf.BoolVar(&a.flags.noRefresh, "no-refresh", false, "do not reload the page after a change")
	pf.BoolVarP(&a.flags.quiet, "quiet", "q", false, "do not print the override lists after a change")
	pf.BoolVar(&a.flags.noColor, "no-color", false, "disable colored status lines")

	cmd.AddCommand(
		newGatesCmd(a),
		newExperimentsCmd(a),
		newClearCmd(a),
		newAllCmd(a),
		newExportCmd(a),
		newImportCmd(a),
		newRefreshCmd(a),
		newReloadCmd(a),
		newShellCmd(a),
		newVersionCmd(),
	)
	return cmd
}

// initialize loads configuration, applies flag overrides and starts logging.
func (a *app) initialize(cmd *cobra.Command) error {
	v := viper.New()
	config.SetDefaults(v)
	config.BindEnv(v)

	if err := readConfigFile(v, a.flags.cfgFile); err != nil {
		return err
	}

	pf := cmd.Flags()
	for key, flag := range map[string]string{
		"browser.mode":         "mode",
		"browser.remote_url":   "remote-url",
		"browser.target_match": "target",
	} {
		if f := pf.Lookup(flag); f != nil && f.Changed {
			if err := v.BindPFlag(key, f); err != nil {
				return fmt.Errorf("bind --%s: %w", flag, err)
			}
		}
	}

	cfg, err := config.NewConfigFromViper(v)
	if err != nil {
		return fmt.Errorf("failed to load or validate config: %w", err)
	}
	if a.flags.noRefresh {
		cfg.SetOverridesAutoRefresh(false)
	}
	a.cfg = cfg

	observability.InitializeLogger(cfg.Logger())
	a.logger = observability.GetLogger()
	a.logger.Debug("Starting gatectl", zap.String("version", Version), zap.String("mode", cfg.Browser().Mode))
	return nil
}

func readConfigFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("gatectl")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("error reading config file: %w", err)
	}
	return nil
}

func (a *app) input(cmd *cobra.Command) *bufio.Reader {
	if a.in == nil {
		a.in = bufio.NewReader(cmd.InOrStdin())
	}
	return a.in
}

// newReporter builds the reporter for a session: views on the command's
// stdout, statuses on its stderr.
func (a *app) newReporter(cmd *cobra.Command) (*reporting.Reporter, error) {
	var opts []reporting.Option
	if a.flags.noColor {
		opts = append(opts, reporting.WithColor(false))
	}
	// Loading the stored overrides renders both lists. Nobody asked for them.
	opts = append(opts, reporting.WithQuiet(true))
	return reporting.New(a.flags.output, cmd.OutOrStdout(), cmd.ErrOrStderr(), opts...)
}

// session returns the components to run a command against. One-shot commands
// get a fresh session that release tears down. Shell lines reuse the shell's.
func (a *app) session(cmd *cobra.Command) (*service.Components, func(), error) {
	if a.shared != nil {
		return a.shared, func() {}, nil
	}
	reporter, err := a.newReporter(cmd)
	if err != nil {
		return nil, nil, err
	}
	c, err := a.open(cmd, reporter)
	if err != nil {
		return nil, nil, err
	}
	return c, c.Shutdown, nil
}

// open creates a session and loads the stored overrides into it.
func (a *app) open(cmd *cobra.Command, reporter *reporting.Reporter) (*service.Components, error) {
	ctx := cmd.Context()
	deps := service.Dependencies{
		Reporter:  reporter,
		Confirmer: overrides.ConfirmFunc(a.confirm(cmd)),
	}
	c, err := a.factory.Create(ctx, a.cfg, deps, a.logger)
	if err != nil {
		return nil, err
	}
	if err := c.Controller.Load(ctx); err != nil {
		c.Shutdown()
		return nil, err
	}
	reporter.SetQuiet(a.flags.quiet)
	return c, nil
}

// confirm prompts on stderr and reads the answer from stdin. clear --yes
// skips it by setting assumeYes on the command context.
func (a *app) confirm(cmd *cobra.Command) func(ctx context.Context, prompt string) (bool, error) {
	return func(ctx context.Context, prompt string) (bool, error) {
		if assumeYes(ctx) {
			return true, nil
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "%s [y/N] ", prompt)
		answer, err := a.input(cmd).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return false, err
		}
		return isYes(answer), nil
	}
}

type assumeYesKey struct{}

func withAssumeYes(ctx context.Context) context.Context {
	return context.WithValue(ctx, assumeYesKey{}, true)
}

func assumeYes(ctx context.Context) bool {
	yes, _ := ctx.Value(assumeYesKey{}).(bool)
	return yes
}
