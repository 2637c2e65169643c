package docstore

import (
	"context"
	"errors"
	"io"
	"sync"

	"go.uber.org/zap"

	vividv1 "github.com/and161185/forever-vivid/api/vivid/v1"
	"github.com/and161185/forever-vivid/internal/conn"
	"github.com/and161185/forever-vivid/internal/convert"
	"github.com/and161185/forever-vivid/internal/errs"
	"github.com/and161185/forever-vivid/internal/model"
)

// Remote implements Store over the vivid.v1.Documents service.
type Remote struct {
	rpc vividv1.DocumentsClient
	log *zap.Logger
}

var _ Store = (*Remote)(nil)

// NewRemote wraps a Documents client.
func NewRemote(rpc vividv1.DocumentsClient, log *zap.Logger) *Remote {
	if log == nil {
		log = zap.NewNop()
	}
	return &Remote{rpc: rpc, log: log}
}

// Append sends one document and returns the id the store assigned.
func (r *Remote) Append(ctx context.Context, path string, fields model.Fields) (string, error) {
	req, err := convert.ToProtoAppendRequest(path, fields)
	if err != nil {
		return "", err
	}
	resp, err := r.rpc.Append(ctx, req)
	if err != nil {
		return "", conn.FromStatus(err)
	}
	return convert.FromProtoAppendResponse(resp)
}

// Listen opens a Listen stream and pumps decoded snapshots until the stream ends,
// fails, or the listener is released.
func (r *Remote) Listen(ctx context.Context, path string) (*Listener, error) {
	ctx, cancel := context.WithCancel(ctx)
	stream, err := r.rpc.Listen(ctx, convert.ToProtoListenRequest(path))
	if err != nil {
		cancel()
		return nil, conn.FromStatus(err)
	}

	snaps := make(chan []model.Document)
	errc := make(chan error, 1)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(snaps)
		for {
			msg, err := stream.Recv()
			if err != nil {
				switch {
				case ctx.Err() != nil:
				case errors.Is(err, io.EOF):
					errc <- errs.ErrListenerClosed
				default:
					errc <- conn.FromStatus(err)
				}
				return
			}
			docs, err := convert.FromProtoSnapshot(msg)
			if err != nil {
				r.log.Warn("bad snapshot", zap.String("path", path), zap.Error(err))
				errc <- err
				return
			}
			select {
			case snaps <- docs:
			case <-ctx.Done():
				return
			}
		}
	}()

	return NewListener(snaps, errc, func() {
		cancel()
		wg.Wait()
	}), nil
}
