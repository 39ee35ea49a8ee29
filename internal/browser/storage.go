package browser

import (
	"context"
	"fmt"

	jsoniter "github.com/json-iterator/go"

	"github.com/xkilldash9x/gatectl/internal/overrides"
)

var codec = jsoniter.Config{EscapeHTML: false}.Froze()

// LocalStorage stores the override document in the page's localStorage
// under a fixed key.
type LocalStorage struct {
	page Page
	key  string
}

var _ overrides.Store = (*LocalStorage)(nil)

// NewLocalStorage returns a store for key on page.
func NewLocalStorage(page Page, key string) *LocalStorage {
	return &LocalStorage{page: page, key: key}
}

// Key returns the storage key.
func (s *LocalStorage) Key() string { return s.key }

type storageItem struct {
	Found bool   `json:"found"`
	Value string `json:"value"`
}

// Get reads the raw document.
func (s *LocalStorage) Get(ctx context.Context) (string, bool, error) {
	script := fmt.Sprintf(`(function (key) {
  var v = window.localStorage.getItem(key);
  return JSON.stringify({ found: v !== null, value: v === null ? "" : v });
})(%s)`, quote(s.key))

	out, err := s.page.Evaluate(ctx, script)
	if err != nil {
		return "", false, fmt.Errorf("read localStorage[%s]: %w", s.key, err)
	}
	var item storageItem
	if err := codec.UnmarshalFromString(out, &item); err != nil {
		return "", false, fmt.Errorf("decode localStorage[%s] result: %w", s.key, err)
	}
	return item.Value, item.Found, nil
}

// Set overwrites the raw document. Browser write errors, such as an
// exceeded quota, are returned as-is.
func (s *LocalStorage) Set(ctx context.Context, value string) error {
	script := fmt.Sprintf(`(function (key, value) {
  window.localStorage.setItem(key, value);
  return "ok";
})(%s, %s)`, quote(s.key), quote(value))

	if _, err := s.page.Evaluate(ctx, script); err != nil {
		return fmt.Errorf("write localStorage[%s]: %w", s.key, err)
	}
	return nil
}

// quote encodes s as a JavaScript string literal. The codec escapes U+2028
// and U+2029, the only characters where JSON and JavaScript strings differ.
func quote(s string) string {
	out, err := codec.MarshalToString(s)
	if err != nil {
		return `""`
	}
	return out
}
