// File: internal/overrides/interfaces.go
package overrides

import "context"

// Store is the external key/value slot holding the serialized document.
// The key is fixed by the implementation.
type Store interface {
	// Get returns the raw document and whether one was present.
	Get(ctx context.Context) (value string, found bool, err error)
	// Set overwrites the whole document.
	Set(ctx context.Context, value string) error
}

// Renderer receives the views affected by a change, and transient status messages.
// Implementations must not retain or mutate the sets they are given.
type Renderer interface {
	RenderGates(set OverrideSet)
	RenderExperiments(set OverrideSet)
	Status(st Status)
}

// Reloader reloads the host page so it picks up the persisted overrides.
type Reloader interface {
	Reload(ctx context.Context) error
}

// Confirmer asks the user a yes/no question.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// StatusKind classifies a status message.
type StatusKind string

const (
	StatusSuccess StatusKind = "success"
	StatusError   StatusKind = "error"
	StatusInfo    StatusKind = "info"
)

// Status is a transient, user-facing message about the last operation.
type Status struct {
	Kind    StatusKind `json:"kind" yaml:"kind"`
	Message string     `json:"message" yaml:"message"`
}

// View selects which override lists need re-rendering.
type View uint8

const (
	ViewGates View = 1 << iota
	ViewExperiments

	ViewAll = ViewGates | ViewExperiments
)

// ConfirmFunc adapts a plain function to the Confirmer interface.
type ConfirmFunc func(ctx context.Context, prompt string) (bool, error)

// Confirm implements Confirmer.
func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) (bool, error) {
	return f(ctx, prompt)
}

// AlwaysConfirm approves every prompt. Used for --yes.
var AlwaysConfirm Confirmer = ConfirmFunc(func(context.Context, string) (bool, error) { return true, nil })

// NeverConfirm declines every prompt. It is the controller default, so
// destructive operations are opt-in.
var NeverConfirm Confirmer = ConfirmFunc(func(context.Context, string) (bool, error) { return false, nil })
