// Package session carries the two values every data consumer needs: the store
// handle and the signed-in identity.
package session

import (
	"context"

	"github.com/and161185/forever-vivid/internal/auth"
	"github.com/and161185/forever-vivid/internal/docstore"
	"github.com/and161185/forever-vivid/internal/errs"
	"github.com/and161185/forever-vivid/internal/model"
	"github.com/and161185/forever-vivid/internal/paths"
)

// Session is passed by value. A nil Store means persistence is unavailable; a nil
// Identity means nobody is signed in.
type Session struct {
	Store    docstore.Store
	Identity *model.Identity
}

// FromState builds the session for an auth state. Identity is set only when signed in.
func FromState(store docstore.Store, st auth.State) Session {
	s := Session{Store: store}
	if st.Status == auth.SignedIn && st.Identity != nil {
		id := *st.Identity
		s.Identity = &id
	}
	return s
}

// Ready reports whether both the store and the identity are present.
func (s Session) Ready() bool {
	return s.Store != nil && s.Identity != nil
}

// UID returns the signed-in user id, or "".
func (s Session) UID() string {
	if s.Identity == nil {
		return ""
	}
	return s.Identity.UID
}

// CollectionPath returns the user-scoped path of collection c, or errs.ErrNotReady
// when the session is not ready.
func (s Session) CollectionPath(appID string, c model.Collection) (string, error) {
	if !s.Ready() {
		return "", errs.ErrNotReady
	}
	return paths.UserCollection(appID, s.Identity.UID, c)
}

func (s Session) same(o Session) bool {
	if s.Store != o.Store {
		return false
	}
	if s.Identity == nil || o.Identity == nil {
		return s.Identity == o.Identity
	}
	return *s.Identity == *o.Identity
}

// Stream emits a Session every time the resolved auth state changes who is signed in.
// Nothing is emitted while the machine is Unresolved. The channel closes when ctx is done.
func Stream(ctx context.Context, store docstore.Store, m *auth.Machine) <-chan Session {
	out := make(chan Session)
	states, h := m.Subscribe()
	go func() {
		defer close(out)
		defer h.Release()

		var last *Session
		for {
			select {
			case <-ctx.Done():
				return
			case st := <-states:
				if st.Status == auth.Unresolved {
					continue
				}
				s := FromState(store, st)
				if last != nil && last.same(s) {
					continue
				}
				select {
				case out <- s:
					last = &s
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}
