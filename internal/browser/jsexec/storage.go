// internal/browser/jsexec/storage.go
package jsexec

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"syscall"
	"sync"

	"github.com/dop251/goja"
)

// Storage is a Web Storage area shared by every load of a fixture page.
// With a backing path, every write is flushed to disk so state carries over
// between gatectl runs.
type Storage struct {
	mu    sync.Mutex
	items map[string]string
	path  string
}

// NewStorage returns an empty in-memory storage area.
func NewStorage() *Storage {
	return &Storage{items: map[string]string{}}
}

// OpenStorage loads a file-backed storage area. A missing file is empty.
func OpenStorage(path string) (*Storage, error) {
	s := &Storage{items: map[string]string{}, path: path}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read fixture state: %w", err)
	}
	if len(data) == 0 {
		return s, nil
	}
	if err := codec.Unmarshal(data, &s.items); err != nil {
		return nil, fmt.Errorf("decode fixture state %s: %w", path, err)
	}
	return s, nil
}

// GetItem returns the stored value and whether it was present.
func (s *Storage) GetItem(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.items[key]
	return v, ok
}

// SetItem stores a value, flushing it when file backed.
func (s *Storage) SetItem(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, had := s.items[key]
	s.items[key] = value
	if err := s.flushLocked(); err != nil {
		if had {
			s.items[key] = prev
		} else {
			delete(s.items, key)
		}
		return err
	}
	return nil
}

// RemoveItem deletes a key.
func (s *Storage) RemoveItem(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
	return s.flushLocked()
}

// Clear deletes every key.
func (s *Storage) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = map[string]string{}
	return s.flushLocked()
}

// Keys returns the stored keys in ascending order.
func (s *Storage) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.items))
	for k := range s.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Flush writes the current contents to the backing file, if any.
func (s *Storage) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked()
}

func (s *Storage) flushLocked() error {
	if s.path == "" {
		return nil
	}
	data, err := codec.MarshalIndent(s.items, "", "  ")
	if err != nil {
		return fmt.Errorf("encode fixture state: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create fixture state dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write fixture state: %w", err)
	}
	return os.Rename(tmp, s.path)
}

// bind exposes the storage area to a VM as a localStorage object.
// Failed writes surface as thrown exceptions, like a quota error would.
func (s *Storage) bind(vm *goja.Runtime) *goja.Object {
	obj := vm.NewObject()
	throw := func(err error) {
		panic(vm.NewGoError(err))
	}
	_ = obj.Set("getItem", func(call goja.FunctionCall) goja.Value {
		v, ok := s.GetItem(call.Argument(0).String())
		if !ok {
			return goja.Null()
		}
		return vm.ToValue(v)
	})
	_ = obj.Set("setItem", func(call goja.FunctionCall) goja.Value {
		if err := s.SetItem(call.Argument(0).String(), call.Argument(1).String()); err != nil {
			throw(err)
		}
		return goja.Undefined()
	})
	_ = obj.Set("removeItem", func(call goja.FunctionCall) goja.Value {
		if err := s.RemoveItem(call.Argument(0).String()); err != nil {
			throw(err)
		}
		return goja.Undefined()
	})
	_ = obj.Set("clear", func(call goja.FunctionCall) goja.Value {
		if err := s.Clear(); err != nil {
			throw(err)
		}
		return goja.Undefined()
	})
	_ = obj.Set("key", func(call goja.FunctionCall) goja.Value {
		keys := s.Keys()
		i := call.Argument(0).ToInteger()
		if i < 0 || i >= int64(len(keys)) {
			return goja.Null()
		}
		return vm.ToValue(keys[i])
	})
	_ = obj.DefineAccessorProperty("length", vm.ToValue(func() int {
		return len(s.Keys())
	}), nil, goja.FLAG_FALSE, goja.FLAG_TRUE)
	return obj
}
