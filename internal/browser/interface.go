package browser

import (
	"context"

	"github.com/xkilldash9x/gatectl/internal/overrides"
)

// Page is the host page gatectl works against: a Chrome tab, or the
// in-process fixture page.
type Page interface {
	// URL returns the page's current address.
	URL(ctx context.Context) (string, error)
	// Evaluate runs script in the page and returns the string it evaluates to.
	Evaluate(ctx context.Context, script string) (string, error)
	// Reload reloads the page.
	Reload(ctx context.Context) error
	// Close releases the page. It is safe to call more than once.
	Close(ctx context.Context) error
}

// ErrHostUnavailable is shared with the overrides package so callers can
// test for it without caring which layer failed.
var ErrHostUnavailable = overrides.ErrHostUnavailable
