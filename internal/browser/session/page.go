// internal/browser/session/page.go
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/gatectl/internal/config"
)

// ErrNoTarget is returned when no open tab matches the requested filter.
var ErrNoTarget = errors.New("no matching page target")

// Page drives one Chrome tab over the DevTools protocol.
type Page struct {
	ctx     context.Context // tab context, carries the chromedp target
	cancels []context.CancelFunc
	timeout time.Duration
	logger  *zap.Logger

	// owned is true when gatectl launched the browser and should shut it down.
	owned     bool
	closeOnce sync.Once
}

// Attach connects to an already running browser and adopts the first page
// target whose URL contains match.
func Attach(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (*Page, error) {
	log := logger.Named("session")

	allocCtx, allocCancel := chromedp.NewRemoteAllocator(ctx, cfg.RemoteURL)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// The browser connection lives as long as the context it is first
	// allocated with, so targets are listed on browserCtx itself.
	targets, err := chromedp.Targets(browserCtx)
	if err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("list targets at %s: %w", cfg.RemoteURL, err)
	}

	info := pickTarget(targets, cfg.TargetMatch)
	if info == nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("%w (match %q, %d targets)", ErrNoTarget, cfg.TargetMatch, len(targets))
	}

	tabCtx, tabCancel := chromedp.NewContext(browserCtx, chromedp.WithTargetID(info.TargetID))
	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("attach to target %s: %w", info.TargetID, err)
	}
	log.Debug("Attached to page target.",
		zap.String("target_id", string(info.TargetID)),
		zap.String("url", info.URL),
		zap.String("title", info.Title))

	return &Page{
		ctx:     tabCtx,
		cancels: []context.CancelFunc{tabCancel, browserCancel, allocCancel},
		timeout: cfg.OperationTimeout,
		logger:  log,
	}, nil
}

// pickTarget returns the first page target containing match in its URL.
func pickTarget(targets []*target.Info, match string) *target.Info {
	for _, t := range targets {
		if t == nil || t.Type != "page" {
			continue
		}
		if match == "" || strings.Contains(t.URL, match) {
			return t
		}
	}
	return nil
}

// Launch starts a browser, opens a tab and navigates it to cfg.StartURL.
func Launch(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (*Page, error) {
	log := logger.Named("session")

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, BuildAllocatorOptions(cfg)...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(log.Sugar().Debugf),
		chromedp.WithErrorf(log.Sugar().Errorf))

	p := &Page{
		ctx:     tabCtx,
		cancels: []context.CancelFunc{tabCancel, allocCancel},
		timeout: cfg.OperationTimeout,
		logger:  log,
		owned:   true,
	}

	// Allocate the browser and tab on the long-lived tab context first.
	if err := chromedp.Run(tabCtx); err != nil {
		_ = p.Close(ctx)
		return nil, fmt.Errorf("start browser: %w", err)
	}

	actions := []chromedp.Action{}
	if cfg.DisableCache {
		actions = append(actions, network.Enable(), network.SetCacheDisabled(true))
	}
	actions = append(actions, chromedp.Navigate(cfg.StartURL))
	if err := p.run(ctx, actions...); err != nil {
		_ = p.Close(ctx)
		return nil, fmt.Errorf("launch browser at %s: %w", cfg.StartURL, err)
	}
	log.Debug("Browser launched.", zap.String("url", cfg.StartURL))
	return p, nil
}

// BuildAllocatorOptions assembles launch flags from configuration.
func BuildAllocatorOptions(cfg config.BrowserConfig) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("ignore-certificate-errors", cfg.IgnoreTLSErrors),
	)
	if w, h := cfg.Viewport["width"], cfg.Viewport["height"]; w > 0 && h > 0 {
		opts = append(opts, chromedp.WindowSize(w, h))
	}
	for _, arg := range cfg.Args {
		name, value, hasValue := strings.Cut(arg, "=")
		name = strings.TrimPrefix(name, "--")
		if hasValue {
			opts = append(opts, chromedp.Flag(name, value))
		} else {
			opts = append(opts, chromedp.Flag(name, true))
		}
	}
	return opts
}

// run executes actions on the tab, bounded by ctx and the operation timeout.
func (p *Page) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := CombineContext(p.ctx, ctx, p.timeout)
	defer cancel()
	return chromedp.Run(runCtx, actions...)
}

// URL returns the tab's current location.
func (p *Page) URL(ctx context.Context) (string, error) {
	var loc string
	if err := p.run(ctx, chromedp.Location(&loc)); err != nil {
		return "", fmt.Errorf("read location: %w", err)
	}
	return loc, nil
}

// Evaluate runs script in the page's main world, awaiting a returned
// promise. The script must evaluate to a string.
func (p *Page) Evaluate(ctx context.Context, script string) (string, error) {
	var out string
	err := p.run(ctx, chromedp.Evaluate(script, &out, func(ep *runtime.EvaluateParams) *runtime.EvaluateParams {
		return ep.WithAwaitPromise(true).WithUserGesture(false)
	}))
	if err != nil {
		return "", fmt.Errorf("evaluate in page: %w", err)
	}
	return out, nil
}

// Reload reloads the tab and waits for it to load.
func (p *Page) Reload(ctx context.Context) error {
	if err := p.run(ctx, chromedp.Reload()); err != nil {
		return fmt.Errorf("reload page: %w", err)
	}
	return nil
}

// Close releases the tab. A launched browser is shut down; an attached one
// is left running.
func (p *Page) Close(ctx context.Context) error {
	var err error
	p.closeOnce.Do(func() {
		if p.owned {
			err = chromedp.Cancel(p.ctx)
		}
		for _, cancel := range p.cancels {
			cancel()
		}
		p.logger.Debug("Session closed.", zap.Bool("owned", p.owned))
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("close browser: %w", err)
	}
	return nil
}
