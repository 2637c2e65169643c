// Package identity is the client for the vivid.v1.Identity service. It keeps the
// current credential, persists it, and notifies auth-state listeners.
package identity

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	vividv1 "github.com/and161185/forever-vivid/api/vivid/v1"
	"github.com/and161185/forever-vivid/internal/conn"
	"github.com/and161185/forever-vivid/internal/convert"
	"github.com/and161185/forever-vivid/internal/listen"
	"github.com/and161185/forever-vivid/internal/model"
)

// Client signs in against the identity service and tracks the current user.
type Client struct {
	rpc   vividv1.IdentityClient
	store SessionStore
	log   *zap.Logger
	now   func() time.Time

	// setMu serializes credential changes so listeners see them in order.
	setMu sync.Mutex

	mu        sync.Mutex
	cred      *model.Credential
	expiry    *time.Timer
	listeners map[int]func(*model.Identity)
	nextID    int
}

// New builds a Client. store may be nil to keep the session in memory only.
func New(rpc vividv1.IdentityClient, store SessionStore, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		rpc:       rpc,
		store:     store,
		log:       log,
		now:       time.Now,
		listeners: make(map[int]func(*model.Identity)),
	}
}

// Restore loads a persisted credential. Expired or unreadable sessions are discarded.
func (c *Client) Restore() error {
	if c.store == nil {
		return nil
	}
	cred, err := c.store.Load()
	if err != nil {
		c.log.Warn("discarding unreadable session", zap.Error(err))
		return c.store.Clear()
	}
	if cred == nil {
		return nil
	}
	if cred.Expired(c.now()) {
		c.log.Info("stored session expired", zap.String("uid", cred.UID))
		return c.store.Clear()
	}
	c.set(cred)
	return nil
}

// SignInAnonymously creates a fresh anonymous user and makes it current.
func (c *Client) SignInAnonymously(ctx context.Context) (model.Identity, error) {
	resp, err := c.rpc.SignInAnonymously(ctx, &emptypb.Empty{})
	if err != nil {
		return model.Identity{}, conn.FromStatus(err)
	}
	return c.accept(resp)
}

// SignInWithCustomToken exchanges a host-issued token and makes its user current.
func (c *Client) SignInWithCustomToken(ctx context.Context, token string) (model.Identity, error) {
	resp, err := c.rpc.SignInWithCustomToken(ctx, convert.ToProtoCustomTokenRequest(token))
	if err != nil {
		return model.Identity{}, conn.FromStatus(err)
	}
	return c.accept(resp)
}

func (c *Client) accept(resp *structpb.Struct) (model.Identity, error) {
	cred, err := convert.FromProtoCredential(resp)
	if err != nil {
		return model.Identity{}, err
	}
	c.set(&cred)
	return cred.Identity, nil
}

// SignOut forgets the current user and clears the persisted session.
func (c *Client) SignOut() error {
	c.set(nil)
	if c.store == nil {
		return nil
	}
	return c.store.Clear()
}

// Current returns the signed-in identity, or nil.
func (c *Client) Current() *model.Identity {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cred == nil {
		return nil
	}
	id := c.cred.Identity
	return &id
}

// Token returns the bearer token for per-RPC credentials, or "" when signed out or expired.
func (c *Client) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cred == nil || c.cred.Expired(c.now()) {
		return ""
	}
	return c.cred.AccessToken
}

// OnAuthStateChanged registers fn. fn is called once right away with the current user
// and then on every change, with nil meaning signed out.
func (c *Client) OnAuthStateChanged(fn func(*model.Identity)) *listen.Handle {
	c.setMu.Lock()
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()
	fn(c.Current())
	c.setMu.Unlock()

	return listen.NewHandle(func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	})
}

// set replaces the credential, persists it, arms the expiry timer and notifies listeners.
func (c *Client) set(cred *model.Credential) {
	c.setMu.Lock()
	defer c.setMu.Unlock()
	c.setLocked(cred)
}

// setLocked requires setMu.
func (c *Client) setLocked(cred *model.Credential) {
	c.mu.Lock()
	prev := c.cred
	c.cred = cred
	if c.expiry != nil {
		c.expiry.Stop()
		c.expiry = nil
	}
	if cred != nil {
		c.expiry = time.AfterFunc(cred.ExpiresAt.Sub(c.now()), func() { c.expire(cred) })
	}
	fns := make([]func(*model.Identity), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	if cred != nil && c.store != nil {
		if err := c.store.Save(*cred); err != nil {
			c.log.Warn("persist session", zap.Error(err))
		}
	}
	if sameUser(prev, cred) {
		return
	}

	var cur *model.Identity
	if cred != nil {
		id := cred.Identity
		cur = &id
	}
	for _, fn := range fns {
		fn(cur)
	}
}

// expire signs out if cred is still current when its access token runs out.
func (c *Client) expire(cred *model.Credential) {
	c.setMu.Lock()
	defer c.setMu.Unlock()

	c.mu.Lock()
	still := c.cred == cred
	c.mu.Unlock()
	if !still {
		return
	}
	c.log.Info("access token expired; signing out", zap.String("uid", cred.UID))
	c.setLocked(nil)
	if c.store != nil {
		if err := c.store.Clear(); err != nil {
			c.log.Warn("clear session", zap.Error(err))
		}
	}
}

func sameUser(a, b *model.Credential) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Identity == b.Identity
}
