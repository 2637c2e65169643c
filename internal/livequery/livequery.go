// Package livequery keeps a defaulted, sorted snapshot of a user-scoped collection
// in step with the store.
package livequery

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/forever-vivid/internal/errs"
	"github.com/and161185/forever-vivid/internal/listen"
	"github.com/and161185/forever-vivid/internal/model"
	"github.com/and161185/forever-vivid/internal/session"
)

// Schema binds a collection to its record type.
type Schema[T any] struct {
	Collection model.Collection
	// FromDocument merges stored fields over the record defaults; now is the
	// snapshot construction time.
	FromDocument func(doc model.Document, now time.Time) T
	CreatedAt    func(T) time.Time
}

// Memories is the home feed collection.
var Memories = Schema[model.Memory]{
	Collection:   model.CollectionMemories,
	FromDocument: model.MemoryFromDocument,
	CreatedAt:    func(m model.Memory) time.Time { return m.CreatedAt },
}

// Projects is the projects collection.
var Projects = Schema[model.Project]{
	Collection:   model.CollectionProjects,
	FromDocument: model.ProjectFromDocument,
	CreatedAt:    func(p model.Project) time.Time { return p.CreatedAt },
}

// Snapshot is what a consumer renders. Records is never nil. Err is the listener
// failure, if any; Records then holds the last good snapshot.
type Snapshot[T any] struct {
	Records []T
	Loading bool
	Err     error
}

// Ingest converts a store snapshot into records sorted newest first. Records with
// equal creation times keep store order.
func Ingest[T any](s Schema[T], docs []model.Document, now time.Time) []T {
	out := make([]T, 0, len(docs))
	for _, d := range docs {
		out = append(out, s.FromDocument(d, now))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return s.CreatedAt(out[i]).After(s.CreatedAt(out[j]))
	})
	return out
}

// Options tunes a subscription.
type Options struct {
	AppID string
	Log   *zap.Logger
	Now   func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Log == nil {
		o.Log = zap.NewNop()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Subscribe listens on the schema's collection for the session's user and calls observe
// with every new snapshot, serially and in delivery order. It fails with errs.ErrNotReady,
// without touching the store, unless the session is ready. Listener errors are logged and
// reported once with the last snapshot, as is a listener that closes on its own; there is no retry. observe must not call Release.
func Subscribe[T any](ctx context.Context, sess session.Session, s Schema[T], opts Options, observe func(Snapshot[T])) (*listen.Handle, error) {
	opts = opts.withDefaults()
	path, err := sess.CollectionPath(opts.AppID, s.Collection)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	l, err := sess.Store.Listen(ctx, path)
	if err != nil {
		cancel()
		opts.Log.Error("listen failed", zap.String("collection", string(s.Collection)), zap.Error(err))
		return nil, err
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		last := []T{}
		for {
			select {
			case <-ctx.Done():
				return
			case docs, ok := <-l.Snapshots:
				if !ok {
					if ctx.Err() != nil {
						return
					}
					// a close without a pending error still ends the subscription
					err := errs.ErrListenerClosed
					select {
					case e := <-l.Errors:
						err = e
					default:
					}
					reportError(opts.Log, s.Collection, err, last, observe)
					return
				}
				last = Ingest(s, docs, opts.Now())
				observe(Snapshot[T]{Records: last})
			case err := <-l.Errors:
				reportError(opts.Log, s.Collection, err, last, observe)
				return
			}
		}
	}()

	return listen.NewHandle(func() {
		cancel()
		l.Release()
		wg.Wait()
	}), nil
}

func reportError[T any](log *zap.Logger, c model.Collection, err error, last []T, observe func(Snapshot[T])) {
	log.Error("collection listener failed", zap.String("collection", string(c)), zap.Error(err))
	observe(Snapshot[T]{Records: last, Err: err})
}

// Follow keeps one subscription per session. Each new session first yields an empty
// loading snapshot, then the snapshots of its subscription. Sessions that are not ready
// stay loading with Err set to errs.ErrNotReady. The output closes when ctx is done or
// sessions closes.
func Follow[T any](ctx context.Context, sessions <-chan session.Session, s Schema[T], opts Options) <-chan Snapshot[T] {
	opts = opts.withDefaults()
	out := make(chan Snapshot[T])

	go func() {
		defer close(out)

		var (
			h         *listen.Handle
			subCancel context.CancelFunc = func() {}
		)
		stop := func() {
			subCancel()
			h.Release()
			h = nil
		}
		defer stop()

		emit := func(ctx context.Context, snap Snapshot[T]) {
			select {
			case out <- snap:
			case <-ctx.Done():
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case sess, ok := <-sessions:
				if !ok {
					return
				}
				stop()

				reset := Snapshot[T]{Records: []T{}, Loading: true}
				if !sess.Ready() {
					reset.Err = errs.ErrNotReady
					emit(ctx, reset)
					continue
				}
				emit(ctx, reset)

				var subCtx context.Context
				subCtx, subCancel = context.WithCancel(ctx)
				var err error
				h, err = Subscribe(subCtx, sess, s, opts, func(snap Snapshot[T]) { emit(subCtx, snap) })
				if err != nil {
					emit(ctx, Snapshot[T]{Records: []T{}, Err: err})
				}
			}
		}
	}()
	return out
}
