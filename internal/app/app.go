// Package app wires configuration, the store connection, the identity client and the
// authentication state machine into one value the CLI drives.
package app

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"google.golang.org/grpc"

	vividv1 "github.com/and161185/forever-vivid/api/vivid/v1"
	"github.com/and161185/forever-vivid/internal/auth"
	"github.com/and161185/forever-vivid/internal/config"
	"github.com/and161185/forever-vivid/internal/conn"
	"github.com/and161185/forever-vivid/internal/docstore"
	"github.com/and161185/forever-vivid/internal/identity"
	"github.com/and161185/forever-vivid/internal/livequery"
	"github.com/and161185/forever-vivid/internal/mutation"
	"github.com/and161185/forever-vivid/internal/session"
)

// App is one client process.
type App struct {
	cfg *config.Client
	log *zap.Logger

	cc      *grpc.ClientConn
	store   docstore.Store
	ident   *identity.Client
	machine *auth.Machine

	cancel context.CancelFunc
	done   chan struct{}
}

// Open builds the client. A missing or malformed store configuration is logged once
// and leaves the store and identity provider unset; Open still succeeds.
func Open(cfg *config.Client, log *zap.Logger, dialOpts ...grpc.DialOption) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}
	a := &App{cfg: cfg, log: log}

	sc, err := config.ParseStoreConfig(cfg.StoreConfig)
	if err != nil {
		if errors.Is(err, config.ErrNoStoreConfig) {
			log.Error("store configuration absent; persistence unavailable")
		} else {
			log.Error("store configuration malformed; persistence unavailable", zap.Error(err))
		}
		a.machine = auth.NewMachine(nil, cfg.AuthToken, log)
		return a, nil
	}

	var ident *identity.Client
	cc, err := conn.Dial(sc, func() string { return ident.Token() }, dialOpts...)
	if err != nil {
		log.Error("store connection unavailable", zap.String("address", sc.Address), zap.Error(err))
		a.machine = auth.NewMachine(nil, cfg.AuthToken, log)
		return a, nil
	}

	var sessions identity.SessionStore
	if cfg.SessionFile != "" {
		sessions = &identity.FileStore{Path: cfg.SessionFile}
	}
	ident = identity.New(vividv1.NewIdentityClient(cc), sessions, log)
	if err := ident.Restore(); err != nil {
		log.Warn("restore session", zap.Error(err))
	}

	a.cc = cc
	a.ident = ident
	a.store = docstore.NewRemote(vividv1.NewDocumentsClient(cc), log)
	a.machine = auth.NewMachine(ident, cfg.AuthToken, log)
	return a, nil
}

// Start runs the authentication state machine in the background.
func (a *App) Start(ctx context.Context) {
	ctx, a.cancel = context.WithCancel(ctx)
	a.done = make(chan struct{})
	go func() {
		defer close(a.done)
		if err := a.machine.Run(ctx); err != nil {
			a.log.Error("auth machine stopped", zap.Error(err))
		}
	}()
}

// AwaitSession waits until authentication has settled and returns the session.
func (a *App) AwaitSession(ctx context.Context) (session.Session, error) {
	st, err := a.machine.AwaitSettled(ctx)
	if err != nil {
		return session.Session{}, err
	}
	return session.FromState(a.store, st), nil
}

// Sessions streams a session for every resolved identity change.
func (a *App) Sessions(ctx context.Context) <-chan session.Session {
	return session.Stream(ctx, a.store, a.machine)
}

// Machine exposes the authentication state machine.
func (a *App) Machine() *auth.Machine { return a.machine }

// Submitter returns a mutation submitter bound to sess.
func (a *App) Submitter(sess session.Session) *mutation.Submitter {
	return mutation.New(sess, a.cfg.AppID, a.log)
}

// QueryOptions returns the options live subscriptions run with.
func (a *App) QueryOptions() livequery.Options {
	return livequery.Options{AppID: a.cfg.AppID, Log: a.log}
}

// SignOut forgets the current user. Without a store it is a no-op.
func (a *App) SignOut() error {
	if a.ident == nil {
		return nil
	}
	return a.ident.SignOut()
}

// Close stops the machine and closes the connection.
func (a *App) Close() error {
	if a.cancel != nil {
		a.cancel()
		<-a.done
	}
	if a.cc != nil {
		return a.cc.Close()
	}
	return nil
}
