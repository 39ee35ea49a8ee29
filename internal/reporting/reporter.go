// -- internal/reporting/reporter.go --
package reporting

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/xkilldash9x/gatectl/internal/observability"
	"github.com/xkilldash9x/gatectl/internal/overrides"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Reporter renders override views to the output writer and status lines to
// the status writer. It implements overrides.Renderer.
type Reporter struct {
	mu     sync.Mutex
	out    io.Writer
	status io.Writer
	format string
	color  bool
	quiet  bool
}

var _ overrides.Renderer = (*Reporter)(nil)

// Option configures a Reporter.
type Option func(*Reporter)

// WithColor forces colored status lines on or off.
func WithColor(enabled bool) Option {
	return func(r *Reporter) { r.color = enabled }
}

// WithQuiet suppresses views pushed by the controller. Explicit Write*
// calls are unaffected.
func WithQuiet(quiet bool) Option {
	return func(r *Reporter) { r.quiet = quiet }
}

// New creates a reporter for format. Status lines are colored when status
// is a terminal, unless an option says otherwise.
func New(format string, out, status io.Writer, opts ...Option) (*Reporter, error) {
	switch format {
	case FormatText, FormatJSON, FormatYAML:
	case "":
		format = FormatText
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
	r := &Reporter{
		out:    out,
		status: status,
		format: format,
		color:  observability.IsTerminal(status),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Format returns the output format.
func (r *Reporter) Format() string { return r.format }

// SetQuiet toggles whether controller-driven views are written.
func (r *Reporter) SetQuiet(quiet bool) {
	r.mu.Lock()
	r.quiet = quiet
	r.mu.Unlock()
}

// RenderGates implements overrides.Renderer.
func (r *Reporter) RenderGates(set overrides.OverrideSet) {
	if r.isQuiet() {
		return
	}
	r.report(r.WriteGates(set))
}

// RenderExperiments implements overrides.Renderer.
func (r *Reporter) RenderExperiments(set overrides.OverrideSet) {
	if r.isQuiet() {
		return
	}
	r.report(r.WriteExperiments(set))
}

// Status implements overrides.Renderer. Status lines always go to the
// status writer in plain text, whatever the output format.
func (r *Reporter) Status(st overrides.Status) {
	r.mu.Lock()
	defer r.mu.Unlock()

	icon, color := "•", "cyan"
	switch st.Kind {
	case overrides.StatusSuccess:
		icon, color = "✓", "green"
	case overrides.StatusError:
		icon, color = "✗", "red"
	}
	line := icon + " " + st.Message
	if r.color {
		line = observability.Colorize(color, line)
	}
	fmt.Fprintln(r.status, line)
}

func (r *Reporter) isQuiet() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.quiet
}

// report surfaces a write failure from a Renderer callback, which has no
// error return of its own.
func (r *Reporter) report(err error) {
	if err != nil {
		r.Status(overrides.Status{Kind: overrides.StatusError, Message: "Could not render view: " + err.Error()})
	}
}

// nopWriteCloser wraps an io.Writer and provides a no-op Close method.
type nopWriteCloser struct {
	io.Writer
}

func (nwc *nopWriteCloser) Close() error {
	return nil
}

// OpenOutput returns a writer for path. An empty path or "-" is stdout,
// which is never closed.
func OpenOutput(path string) (io.WriteCloser, error) {
	if path == "" || path == "-" || path == "stdout" {
		return &nopWriteCloser{os.Stdout}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file %s: %w", path, err)
	}
	return f, nil
}
