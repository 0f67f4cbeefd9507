package syncer

import (
	"errors"
	"fmt"

	"github.com/five82/gatehouse/internal/adminapi"
	"github.com/five82/gatehouse/internal/state"
)

var (
	// ErrUnknownKind is returned for a kind the syncer has no store for.
	ErrUnknownKind = errors.New("unknown kind")
	// ErrUnknownAction is returned for an action the kind does not support.
	ErrUnknownAction = errors.New("unknown action")
	// ErrSuperseded is returned by a load whose outcome was discarded because
	// a newer load for the same store had already been issued.
	ErrSuperseded = errors.New("load superseded")
)

// FetchError is a failed read. Its message is recorded on the store and the
// cached collection stays visible until the user retries.
type FetchError struct {
	Kind state.Kind
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Message is the short text shown next to the table.
func (e *FetchError) Message() string {
	return adminapi.Message(e.Err)
}

// MutationError is a failed write. Nothing is recorded on a store.
type MutationError struct {
	Kind   state.Kind
	Action Action
	ID     string
	Err    error
}

func (e *MutationError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s %s: %v", e.Action, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s %s %s: %v", e.Action, e.Kind, e.ID, e.Err)
}

func (e *MutationError) Unwrap() error { return e.Err }

// Message is the short text shown in the status line.
func (e *MutationError) Message() string {
	return adminapi.Message(e.Err)
}
