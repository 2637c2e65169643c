// Package docstore is the client's view of the remote document store: live
// collection listeners and appends.
package docstore

import (
	"context"

	"github.com/and161185/forever-vivid/internal/listen"
	"github.com/and161185/forever-vivid/internal/model"
)

// Store is a remote document store.
type Store interface {
	// Listen starts a live listener on the collection at path.
	Listen(ctx context.Context, path string) (*Listener, error)
	// Append adds a document to the collection at path and returns its id.
	// model.ServerTimestamp values are resolved by the store.
	Append(ctx context.Context, path string, fields model.Fields) (string, error)
}

// Listener delivers full collection snapshots in store order. At most one error is
// delivered on Errors, after which Snapshots is closed. Release stops delivery.
type Listener struct {
	Snapshots <-chan []model.Document
	Errors    <-chan error
	handle    *listen.Handle
}

// NewListener wraps channels fed by a Store implementation. release runs once.
func NewListener(snapshots <-chan []model.Document, errors <-chan error, release func()) *Listener {
	return &Listener{Snapshots: snapshots, Errors: errors, handle: listen.NewHandle(release)}
}

// Release stops the listener. Idempotent.
func (l *Listener) Release() {
	if l == nil {
		return
	}
	l.handle.Release()
}
