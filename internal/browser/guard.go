package browser

import (
	"context"
	"fmt"
	"strings"
)

// Guard wraps a Page and refuses to touch pages whose URL is empty or
// starts with a restricted prefix. The check runs before every script and
// reload, since the tab may have navigated since the last call.
type Guard struct {
	page     Page
	prefixes []string
}

// NewGuard returns a Guard over page. prefixes are compared case-insensitively.
func NewGuard(page Page, prefixes []string) *Guard {
	lower := make([]string, 0, len(prefixes))
	for _, p := range prefixes {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			lower = append(lower, p)
		}
	}
	return &Guard{page: page, prefixes: lower}
}

// IsRestricted reports whether url may not be scripted.
func (g *Guard) IsRestricted(url string) bool {
	u := strings.ToLower(strings.TrimSpace(url))
	if u == "" {
		return true
	}
	for _, p := range g.prefixes {
		if strings.HasPrefix(u, p) {
			return true
		}
	}
	return false
}

// check resolves the page URL and fails fast on restricted pages.
func (g *Guard) check(ctx context.Context) error {
	url, err := g.page.URL(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrHostUnavailable, err)
	}
	if g.IsRestricted(url) {
		if url == "" {
			return fmt.Errorf("%w: page has no URL", ErrHostUnavailable)
		}
		return fmt.Errorf("%w: cannot access %s", ErrHostUnavailable, url)
	}
	return nil
}

// URL implements Page.
func (g *Guard) URL(ctx context.Context) (string, error) {
	return g.page.URL(ctx)
}

// Evaluate implements Page. Evaluation failures are reported as
// ErrHostUnavailable as well, since the page could not answer.
func (g *Guard) Evaluate(ctx context.Context, script string) (string, error) {
	if err := g.check(ctx); err != nil {
		return "", err
	}
	out, err := g.page.Evaluate(ctx, script)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrHostUnavailable, err)
	}
	return out, nil
}

// Reload implements Page.
func (g *Guard) Reload(ctx context.Context) error {
	if err := g.check(ctx); err != nil {
		return err
	}
	return g.page.Reload(ctx)
}

// Close implements Page.
func (g *Guard) Close(ctx context.Context) error {
	return g.page.Close(ctx)
}
