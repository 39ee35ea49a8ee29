// File: internal/overrides/controller.go
package overrides

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultRefreshDelay gives the page a moment after a write before it is reloaded.
	DefaultRefreshDelay = 250 * time.Millisecond

	statusSaveFailed    = "Could not save overrides"
	statusReloadFailed  = "Could not refresh page"
	statusReloaded      = "Page refreshed"
	statusLoadFailed    = "Could not read overrides from page"
	clearConfirmPrompt  = "Clear all overrides?"
	statusCleared       = "All overrides cleared"
	statusReplacedTempl = "Imported %d gate and %d experiment overrides"
)

// Controller owns the in-memory override document and keeps it in step with
// the Store. Every mutation is applied optimistically, rendered, then
// persisted; a failed write reverts the change and re-renders.
//
// All operations are serialized, so a revert never interleaves with another
// mutation.
type Controller struct {
	mu sync.Mutex

	current     OverrideSet
	autoRefresh bool
	delay       time.Duration

	store     Store
	renderer  Renderer
	reloader  Reloader
	confirmer Confirmer
	onReload  []func()
	logger    *zap.Logger
}

// Option configures a Controller.
type Option func(*Controller)

// WithReloader sets the page reloader used for auto-refresh.
func WithReloader(r Reloader) Option {
	return func(c *Controller) { c.reloader = r }
}

// WithConfirmer sets the prompt used before destructive operations.
func WithConfirmer(cf Confirmer) Option {
	return func(c *Controller) { c.confirmer = cf }
}

// WithAutoRefresh sets the initial auto-refresh preference.
func WithAutoRefresh(enabled bool) Option {
	return func(c *Controller) { c.autoRefresh = enabled }
}

// WithRefreshDelay overrides DefaultRefreshDelay.
func WithRefreshDelay(d time.Duration) Option {
	return func(c *Controller) { c.delay = d }
}

// WithReloadHook registers fn to run after each successful page reload.
func WithReloadHook(fn func()) Option {
	return func(c *Controller) { c.onReload = append(c.onReload, fn) }
}

// NewController creates a controller with an empty document. Call Load
// before issuing mutations.
func NewController(store Store, renderer Renderer, logger *zap.Logger, opts ...Option) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Controller{
		current:     Empty(),
		autoRefresh: true,
		delay:       DefaultRefreshDelay,
		store:       store,
		renderer:    renderer,
		confirmer:   NeverConfirm,
		logger:      logger.Named("overrides"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load reads the stored document and renders both lists. A missing or
// unparsable document is treated as empty. Only a failed read is an error.
func (c *Controller) Load(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	raw, found, err := c.store.Get(ctx)
	if err != nil {
		c.status(StatusError, statusLoadFailed)
		return fmt.Errorf("%w: read overrides: %w", ErrHostUnavailable, err)
	}

	set := Empty()
	if found {
		parsed, perr := Parse(raw)
		if perr != nil {
			c.logger.Debug("Stored overrides unreadable, starting empty.", zap.Error(perr))
		} else {
			set = parsed
		}
	}
	c.current = set
	c.render(ViewAll)
	c.logger.Debug("Overrides loaded.",
		zap.Int("gates", len(set.Gates)),
		zap.Int("experiments", len(set.Experiments)))
	return nil
}

// Overrides returns a deep copy of the current document.
func (c *Controller) Overrides() OverrideSet {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current.Clone()
}

// AutoRefresh reports whether successful writes reload the page.
func (c *Controller) AutoRefresh() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.autoRefresh
}

// SetAutoRefresh changes the preference for the rest of the session.
func (c *Controller) SetAutoRefresh(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.autoRefresh = enabled
}

// SetGate forces a gate to value.
func (c *Controller) SetGate(ctx context.Context, name string, value bool) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("gate: %w", ErrInvalidName)
	}
	return c.execute(ctx, &setGate{name: name, value: value})
}

// ToggleGate flips a gate override. A gate without an override is treated as
// currently false, so toggling it forces it on.
func (c *Controller) ToggleGate(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("gate: %w", ErrInvalidName)
	}
	return c.execute(ctx, &setGate{name: name, toggle: true})
}

// RemoveGate drops a gate override.
func (c *Controller) RemoveGate(ctx context.Context, name string) error {
	return c.execute(ctx, &removeGate{name: strings.TrimSpace(name)})
}

// SetExperimentValue forces one parameter of an experiment, creating the
// experiment entry if needed.
func (c *Controller) SetExperimentValue(ctx context.Context, experiment, key string, value any) error {
	experiment, key = strings.TrimSpace(experiment), strings.TrimSpace(key)
	if experiment == "" || key == "" {
		return fmt.Errorf("experiment: %w", ErrInvalidName)
	}
	return c.execute(ctx, &setExperimentValue{experiment: experiment, key: key, value: value})
}

// RemoveExperimentValue drops one parameter override. The experiment entry
// goes with it when no keys remain.
func (c *Controller) RemoveExperimentValue(ctx context.Context, experiment, key string) error {
	return c.execute(ctx, &removeExperimentValue{
		experiment: strings.TrimSpace(experiment),
		key:        strings.TrimSpace(key),
	})
}

// RemoveExperiment drops every override for an experiment.
func (c *Controller) RemoveExperiment(ctx context.Context, experiment string) error {
	return c.execute(ctx, &removeExperiment{experiment: strings.TrimSpace(experiment)})
}

// ClearAll resets the document after the user confirms. Declining returns
// ErrCancelled and changes nothing.
func (c *Controller) ClearAll(ctx context.Context) error {
	ok, err := c.confirmer.Confirm(ctx, clearConfirmPrompt)
	if err != nil {
		return fmt.Errorf("confirm clear: %w", err)
	}
	if !ok {
		return ErrCancelled
	}
	return c.execute(ctx, &replaceAll{next: Empty(), message: statusCleared})
}

// Replace swaps in a whole document, as done by import.
func (c *Controller) Replace(ctx context.Context, set OverrideSet) error {
	next := set.Clone()
	next.Normalize()
	msg := fmt.Sprintf(statusReplacedTempl, len(next.Gates), len(next.Experiments))
	return c.execute(ctx, &replaceAll{next: next, message: msg})
}

// execute runs the apply, render, persist and maybe-refresh protocol for one
// mutation while holding the lock. A mutation that Apply rejects is returned
// as-is, before anything is rendered or written.
func (c *Controller) execute(ctx context.Context, m Mutation) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := m.Apply(&c.current); err != nil {
		return err
	}
	c.render(m.Views())
	c.status(StatusSuccess, m.Describe())

	if err := c.persist(ctx); err != nil {
		m.Revert(&c.current)
		c.render(m.Views())
		c.status(StatusError, statusSaveFailed)
		c.logger.Warn("Persisting overrides failed, change reverted.",
			zap.String("change", m.Describe()), zap.Error(err))
		return err
	}

	if !c.autoRefresh || c.reloader == nil {
		return nil
	}
	return c.refresh(ctx)
}

func (c *Controller) persist(ctx context.Context) error {
	raw, err := Serialize(c.current)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	if err := c.store.Set(ctx, raw); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return nil
}

// refresh waits out the refresh delay and reloads the page. The write has
// already landed, so neither a cancelled wait nor a failed reload reverts it.
func (c *Controller) refresh(ctx context.Context) error {
	if c.delay > 0 {
		timer := time.NewTimer(c.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			c.logger.Debug("Pending page reload dropped.", zap.Error(ctx.Err()))
			return nil
		case <-timer.C:
		}
	}

	if err := c.reloader.Reload(ctx); err != nil {
		c.status(StatusError, statusReloadFailed)
		return fmt.Errorf("reload page: %w", err)
	}
	for _, fn := range c.onReload {
		fn()
	}
	c.status(StatusInfo, statusReloaded)
	return nil
}

func (c *Controller) render(v View) {
	if c.renderer == nil {
		return
	}
	snapshot := c.current.Clone()
	if v&ViewGates != 0 {
		c.renderer.RenderGates(snapshot)
	}
	if v&ViewExperiments != 0 {
		c.renderer.RenderExperiments(snapshot)
	}
}

func (c *Controller) status(kind StatusKind, msg string) {
	if c.renderer == nil {
		return
	}
	c.renderer.Status(Status{Kind: kind, Message: msg})
}
