// File: internal/probe/reader.go
package probe

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/xkilldash9x/gatectl/internal/config"
)

//go:embed probe.js
var probeSource string

// codec keeps numbers as json.Number so compact indices and values are not
// rounded through float64.
var codec = jsoniter.Config{
	EscapeHTML: false,
	UseNumber:  true,
}.Froze()

// Evaluator runs a script in the host page and returns the string it
// evaluates to.
type Evaluator interface {
	Evaluate(ctx context.Context, script string) (string, error)
}

// Reader reads the live gate and experiment values out of the page. It
// never writes to the page.
type Reader struct {
	page   Evaluator
	script string
	logger *zap.Logger

	group singleflight.Group

	mu     sync.Mutex
	cached *Snapshot
}

// NewReader builds a Reader that locates the client through the globals
// named in cfg.
func NewReader(page Evaluator, cfg config.ProbeConfig, logger *zap.Logger) *Reader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reader{
		page:   page,
		script: BuildScript(cfg.APIKeyGlobal, cfg.ClientGlobal),
		logger: logger.Named("probe"),
	}
}

// BuildScript returns the probe expression bound to the given global names.
func BuildScript(apiKeyGlobal, clientGlobal string) string {
	return fmt.Sprintf("%s(%s, %s)", strings.TrimSpace(probeSource), quote(apiKeyGlobal), quote(clientGlobal))
}

func quote(s string) string {
	out, err := codec.MarshalToString(s)
	if err != nil {
		return `""`
	}
	return out
}

// probeResponse is what the page script returns.
type probeResponse struct {
	Error  string     `json:"error"`
	Detail string     `json:"detail"`
	Values *rawValues `json:"values"`
}

// Fetch evaluates the probe script and normalizes the outcome. It always
// returns a value the caller can render; failures are reported in the
// Result, never as an error.
func (r *Reader) Fetch(ctx context.Context) Result {
	raw, err := r.page.Evaluate(ctx, r.script)
	if err != nil {
		r.logger.Debug("Probe evaluation failed.", zap.Error(err))
		return failed(ReasonHostUnavailable, err.Error())
	}
	return Decode(raw)
}

// Decode interprets the page script's output.
func Decode(raw string) Result {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" || raw == "undefined" {
		return failed(ReasonClientAbsent, "no data returned from page")
	}

	var resp probeResponse
	if err := codec.UnmarshalFromString(raw, &resp); err != nil {
		return failed(ReasonNoValues, fmt.Sprintf("unrecognized probe response: %v", err))
	}
	if resp.Error != "" {
		return failed(Reason(resp.Error), resp.Detail)
	}
	if resp.Values == nil {
		return failed(ReasonNoValues, "")
	}
	snap := Normalize(classify(*resp.Values))
	return Result{Snapshot: &snap}
}

// Snapshot returns the cached snapshot, fetching it on first use. Only
// successful fetches are cached, so a failure is retried on the next call.
// Concurrent callers share a single evaluation.
func (r *Reader) Snapshot(ctx context.Context) Result {
	r.mu.Lock()
	cached := r.cached
	r.mu.Unlock()
	if cached != nil {
		return Result{Snapshot: cached}
	}
	return r.load(ctx)
}

// Refresh discards the cache and fetches again.
func (r *Reader) Refresh(ctx context.Context) Result {
	r.Invalidate()
	return r.load(ctx)
}

// Invalidate drops the cached snapshot. The page has been reloaded, so
// whatever it evaluated before may no longer hold.
func (r *Reader) Invalidate() {
	r.mu.Lock()
	r.cached = nil
	r.mu.Unlock()
}

func (r *Reader) load(ctx context.Context) Result {
	v, _, _ := r.group.Do("snapshot", func() (interface{}, error) {
		res := r.Fetch(ctx)
		if res.OK() {
			r.mu.Lock()
			r.cached = res.Snapshot
			r.mu.Unlock()
			r.logger.Debug("Snapshot cached.",
				zap.Int("gates", len(res.Snapshot.Gates)),
				zap.Int("experiments", len(res.Snapshot.Experiments)))
		} else {
			r.logger.Debug("Probe returned no snapshot.", zap.String("reason", string(res.Failure.Reason)))
		}
		return res, nil
	})
	return v.(Result)
}
