// internal/browser/jsexec/runtime.go
package jsexec

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dop251/goja"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

//go:embed fixture.js
var defaultFixture string

// DefaultFixture returns the built-in page script: a Statsig client with a
// handful of gates and experiments that honours stored overrides.
func DefaultFixture() string { return defaultFixture }

// BindStorageKey prefixes script with the global the built-in fixture reads
// its override storage key from. Scripts that ignore the global are
// unaffected.
func BindStorageKey(script, key string) string {
	if key == "" {
		return script
	}
	quoted, err := codec.MarshalToString(key)
	if err != nil {
		return script
	}
	return "window.__gatectlStorageKey = " + quoted + ";\n" + script
}

// DefaultTimeout bounds a single evaluation when the context has no deadline.
const DefaultTimeout = 30 * time.Second

var codec = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrClosed is returned for any use of a page after Close.
var ErrClosed = errors.New("fixture page closed")

// Page is an in-process host page backed by a goja VM. The page script runs
// on every load; localStorage lives outside the VM so it survives reloads,
// as it would in a browser.
type Page struct {
	mu      sync.Mutex
	vm      *goja.Runtime
	url     string
	script  string
	storage *Storage
	logger  *zap.Logger
	loads   int
}

// NewPage loads script as a page at url.
func NewPage(url, script string, storage *Storage, logger *zap.Logger) (*Page, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if storage == nil {
		storage = NewStorage()
	}
	p := &Page{
		url:     url,
		script:  script,
		storage: storage,
		logger:  logger.Named("jsexec"),
	}
	if err := p.load(); err != nil {
		return nil, err
	}
	return p, nil
}

// load builds a fresh VM, installs the browser globals and runs the page
// script. Callers hold p.mu, or own p exclusively.
func (p *Page) load() error {
	vm := goja.New()
	vm.SetMaxCallStackSize(1024)

	global := vm.GlobalObject()
	_ = global.Set("window", global)
	_ = global.Set("self", global)
	_ = global.Set("console", p.console(vm))
	_ = global.Set("localStorage", p.storage.bind(vm))

	location := vm.NewObject()
	_ = location.Set("href", p.url)
	_ = global.Set("location", location)

	// Timers never fire; the page script is expected to be synchronous.
	noop := func(goja.FunctionCall) goja.Value { return goja.Undefined() }
	_ = global.Set("setTimeout", noop)
	_ = global.Set("setInterval", noop)

	if _, err := vm.RunString(p.script); err != nil {
		return fmt.Errorf("run page script: %w", describe(err))
	}
	p.vm = vm
	p.loads++
	p.logger.Debug("Fixture page loaded.", zap.String("url", p.url), zap.Int("load", p.loads))
	return nil
}

func (p *Page) console(vm *goja.Runtime) *goja.Object {
	console := vm.NewObject()
	for _, level := range []string{"log", "info", "warn", "error", "debug"} {
		_ = console.Set(level, func(call goja.FunctionCall) goja.Value {
			args := make([]interface{}, len(call.Arguments))
			for i, a := range call.Arguments {
				args[i] = a.Export()
			}
			p.logger.Debug("Page console.", zap.String("level", level), zap.Any("args", args))
			return goja.Undefined()
		})
	}
	return console
}

// URL returns the address the page was loaded from.
func (p *Page) URL(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.vm == nil {
		return "", ErrClosed
	}
	return p.url, nil
}

// Evaluate runs script and returns its string result. Non-string results
// are JSON encoded. Settled promises are unwrapped; the VM has no event
// loop, so a promise still pending after the run is an error.
func (p *Page) Evaluate(ctx context.Context, script string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.vm == nil {
		return "", ErrClosed
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultTimeout)
		defer cancel()
	}
	vm := p.vm
	stop := context.AfterFunc(ctx, func() { vm.Interrupt(ctx.Err()) })
	defer func() {
		stop()
		vm.ClearInterrupt()
	}()

	val, err := vm.RunString(script)
	if err != nil {
		var interrupted *goja.InterruptedError
		if errors.As(err, &interrupted) {
			return "", fmt.Errorf("javascript execution interrupted: %w", ctx.Err())
		}
		return "", describe(err)
	}

	if promise, ok := val.Export().(*goja.Promise); ok {
		switch promise.State() {
		case goja.PromiseStateFulfilled:
			val = promise.Result()
		case goja.PromiseStateRejected:
			return "", fmt.Errorf("javascript promise rejected: %v", promise.Result().Export())
		default:
			return "", fmt.Errorf("javascript promise did not settle")
		}
	}
	return stringify(val)
}

// Reload discards the VM and runs the page script again. Storage persists.
func (p *Page) Reload(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.vm == nil {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.load()
}

// Close releases the VM. Storage is flushed if it is file backed.
func (p *Page) Close(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.vm == nil {
		return nil
	}
	p.vm = nil
	return p.storage.Flush()
}

// Storage exposes the page's localStorage for inspection.
func (p *Page) Storage() *Storage { return p.storage }

// Loads reports how many times the page script has run.
func (p *Page) Loads() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loads
}

func stringify(val goja.Value) (string, error) {
	if val == nil || goja.IsUndefined(val) {
		return "", nil
	}
	if goja.IsNull(val) {
		return "null", nil
	}
	if s, ok := val.Export().(string); ok {
		return s, nil
	}
	out, err := codec.MarshalToString(val.Export())
	if err != nil {
		return "", fmt.Errorf("encode result: %w", err)
	}
	return out, nil
}

func describe(err error) error {
	var jsErr *goja.Exception
	if errors.As(err, &jsErr) {
		return fmt.Errorf("javascript exception: %s", jsErr.Value().String())
	}
	return fmt.Errorf("javascript error: %w", err)
}
