// File: cmd/gatectl/main_test.go
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xkilldash9x/gatectl/internal/overrides"
)

// resetMocks restores the original function implementations.
func resetMocks() {
	osWriteFile = os.WriteFile
	osExit = os.Exit
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, exitCode(nil))
	assert.Equal(t, 0, exitCode(fmt.Errorf("run: %w", context.Canceled)))
	assert.Equal(t, 0, exitCode(overrides.ErrCancelled))
	assert.Equal(t, 1, exitCode(errors.New("boom")))
	assert.Equal(t, 1, exitCode(fmt.Errorf("%w: disk full", overrides.ErrPersistence)))
}

func TestHandlePanic(t *testing.T) {
	defer resetMocks()

	var (
		written  []byte
		path     string
		exitWith = -1
	)
	osWriteFile = func(name string, data []byte, perm os.FileMode) error {
		path, written = name, data
		return nil
	}
	osExit = func(code int) { exitWith = code }

	func() {
		defer handlePanic()
		panic("test panic")
	}()

	assert.Equal(t, panicLogFile, path)
	assert.Contains(t, string(written), "panic: test panic")
	assert.Contains(t, string(written), "goroutine")
	assert.Equal(t, 2, exitWith)
}

func TestHandlePanic_WriteFails(t *testing.T) {
	defer resetMocks()

	exitWith := -1
	osWriteFile = func(string, []byte, os.FileMode) error { return errors.New("read-only fs") }
	osExit = func(code int) { exitWith = code }

	func() {
		defer handlePanic()
		panic("test panic")
	}()
	assert.Equal(t, 2, exitWith)
}

func TestHandlePanic_NoPanic(t *testing.T) {
	defer resetMocks()

	called := false
	osExit = func(int) { called = true }
	func() {
		defer handlePanic()
	}()
	assert.False(t, called)
}
