package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/and161185/forever-vivid/internal/auth"
	"github.com/and161185/forever-vivid/internal/docstore"
	"github.com/and161185/forever-vivid/internal/errs"
	"github.com/and161185/forever-vivid/internal/listen"
	"github.com/and161185/forever-vivid/internal/model"
)

type nopStore struct{}

var _ docstore.Store = nopStore{}

func (nopStore) Listen(context.Context, string) (*docstore.Listener, error) {
	return nil, errors.New("not implemented")
}

func (nopStore) Append(context.Context, string, model.Fields) (string, error) {
	return "", errors.New("not implemented")
}

func TestFromState(t *testing.T) {
	t.Parallel()

	id := &model.Identity{UID: "u1"}
	cases := []struct {
		name  string
		store docstore.Store
		st    auth.State
		ready bool
	}{
		{"unresolved", nopStore{}, auth.State{Status: auth.Unresolved}, false},
		{"signed out", nopStore{}, auth.State{Status: auth.SignedOut}, false},
		{"signed in", nopStore{}, auth.State{Status: auth.SignedIn, Identity: id}, true},
		{"no store", nil, auth.State{Status: auth.SignedIn, Identity: id}, false},
	}
	for _, tc := range cases {
		s := FromState(tc.store, tc.st)
		if s.Ready() != tc.ready {
			t.Fatalf("%s: Ready=%v", tc.name, s.Ready())
		}
		if tc.st.Status != auth.SignedIn && s.Identity != nil {
			t.Fatalf("%s: identity must be absent", tc.name)
		}
	}

	s := FromState(nopStore{}, auth.State{Status: auth.SignedIn, Identity: id})
	id.UID = "mutated"
	if s.UID() != "u1" {
		t.Fatalf("session must copy the identity, got %q", s.UID())
	}
}

func TestCollectionPath(t *testing.T) {
	t.Parallel()

	s := Session{Store: nopStore{}, Identity: &model.Identity{UID: "u1"}}
	p, err := s.CollectionPath("app", model.CollectionMemories)
	if err != nil || p != "artifacts/app/users/u1/memories" {
		t.Fatalf("path=%q err=%v", p, err)
	}

	if _, err := (Session{Store: nopStore{}}).CollectionPath("app", model.CollectionProjects); !errors.Is(err, errs.ErrNotReady) {
		t.Fatalf("want ErrNotReady without identity, got %v", err)
	}
	if _, err := (Session{Identity: &model.Identity{UID: "u1"}}).CollectionPath("app", model.CollectionProjects); !errors.Is(err, errs.ErrNotReady) {
		t.Fatalf("want ErrNotReady without store, got %v", err)
	}
	if _, err := s.CollectionPath("", model.CollectionProjects); !errors.Is(err, errs.ErrInvalidArgument) {
		t.Fatalf("want ErrInvalidArgument for empty app id, got %v", err)
	}
}

// scriptedProvider reports one signed-in user and refuses sign-ins.
type scriptedProvider struct{}

func (p *scriptedProvider) SignInAnonymously(context.Context) (model.Identity, error) {
	return model.Identity{}, errors.New("disabled")
}

func (p *scriptedProvider) SignInWithCustomToken(context.Context, string) (model.Identity, error) {
	return model.Identity{}, errors.New("disabled")
}

func (p *scriptedProvider) OnAuthStateChanged(fn func(*model.Identity)) *listen.Handle {
	fn(&model.Identity{UID: "u1"})
	return listen.NewHandle(nil)
}

func TestStream_EmitsResolvedChanges(t *testing.T) {
	t.Parallel()

	m := auth.NewMachine(&scriptedProvider{}, "", zaptest.NewLogger(t))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sessions := Stream(ctx, nopStore{}, m)
	go func() { _ = m.Run(ctx) }()

	select {
	case s := <-sessions:
		if !s.Ready() || s.UID() != "u1" {
			t.Fatalf("first session: %+v", s)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("timeout")
	}

	cancel()
	select {
	case _, ok := <-sessions:
		if ok {
			// a racing emission is fine; the channel must still close
			<-sessions
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("stream did not close")
	}
}
