package browser_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/gatectl/internal/browser"
	"github.com/xkilldash9x/gatectl/internal/mocks"
)

var defaultPrefixes = []string{"chrome://", "chrome-extension://", "about:", "edge://", "devtools://"}

func TestGuard_IsRestricted(t *testing.T) {
	g := browser.NewGuard(nil, append(defaultPrefixes, "  ", ""))

	tests := []struct {
		url  string
		want bool
	}{
		{"", true},
		{"   ", true},
		{"chrome://settings", true},
		{"CHROME://newtab", true},
		{"chrome-extension://abcdef/popup.html", true},
		{"about:blank", true},
		{"devtools://devtools/bundled/inspector.html", true},
		{"https://app.example.com/", false},
		{"http://localhost:3000/chrome://", false},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, g.IsRestricted(tt.url))
		})
	}
}

func TestGuard_Evaluate(t *testing.T) {
	ctx := context.Background()

	t.Run("restricted page never sees the script", func(t *testing.T) {
		page := new(mocks.MockPage)
		page.On("URL", mock.Anything).Return("chrome://extensions", nil)

		_, err := browser.NewGuard(page, defaultPrefixes).Evaluate(ctx, "1")
		require.Error(t, err)
		assert.ErrorIs(t, err, browser.ErrHostUnavailable)
		assert.Contains(t, err.Error(), "chrome://extensions")
		page.AssertNotCalled(t, "Evaluate", mock.Anything, mock.Anything)
	})

	t.Run("empty url", func(t *testing.T) {
		page := new(mocks.MockPage)
		page.On("URL", mock.Anything).Return("", nil)

		_, err := browser.NewGuard(page, defaultPrefixes).Evaluate(ctx, "1")
		assert.ErrorIs(t, err, browser.ErrHostUnavailable)
		assert.Contains(t, err.Error(), "page has no URL")
	})

	t.Run("url lookup failure", func(t *testing.T) {
		page := new(mocks.MockPage)
		page.On("URL", mock.Anything).Return("", errors.New("target closed"))

		_, err := browser.NewGuard(page, defaultPrefixes).Evaluate(ctx, "1")
		assert.ErrorIs(t, err, browser.ErrHostUnavailable)
		assert.Contains(t, err.Error(), "target closed")
	})

	t.Run("evaluation errors are host errors", func(t *testing.T) {
		page := new(mocks.MockPage)
		page.On("URL", mock.Anything).Return("https://app.example.com", nil)
		page.On("Evaluate", mock.Anything, "boom()").Return("", errors.New("ReferenceError: boom is not defined"))

		_, err := browser.NewGuard(page, defaultPrefixes).Evaluate(ctx, "boom()")
		assert.ErrorIs(t, err, browser.ErrHostUnavailable)
	})

	t.Run("allowed page", func(t *testing.T) {
		page := new(mocks.MockPage)
		page.On("URL", mock.Anything).Return("https://app.example.com", nil)
		page.On("Evaluate", mock.Anything, "document.title").Return("Dashboard", nil)

		out, err := browser.NewGuard(page, defaultPrefixes).Evaluate(ctx, "document.title")
		require.NoError(t, err)
		assert.Equal(t, "Dashboard", out)
		page.AssertExpectations(t)
	})
}

func TestGuard_Reload(t *testing.T) {
	ctx := context.Background()

	page := new(mocks.MockPage)
	page.On("URL", mock.Anything).Return("about:blank", nil).Once()
	page.On("URL", mock.Anything).Return("https://app.example.com", nil).Once()
	page.On("Reload", mock.Anything).Return(nil).Once()

	g := browser.NewGuard(page, defaultPrefixes)
	assert.ErrorIs(t, g.Reload(ctx), browser.ErrHostUnavailable)
	assert.NoError(t, g.Reload(ctx))
	page.AssertExpectations(t)
}
