package store

import (
	"context"
	"errors"
)

// ErrNotExist is returned by a Backend when no dataset artifact has ever been
// written. Callers treat this as a normal first-run state.
var ErrNotExist = errors.New("dataset artifact does not exist")

// Backend persists the dataset as one opaque artifact. Keeping records and
// metadata in a single blob means a write either lands completely or not at
// all; there is no window where the two disagree.
type Backend interface {
	// Load returns the raw artifact, or ErrNotExist when never written.
	Load(ctx context.Context) ([]byte, error)

	// Save replaces the artifact atomically.
	Save(ctx context.Context, data []byte) error
}
