// Package auth resolves who the user is. The state machine starts Unresolved and
// settles on SignedIn or SignedOut after the first auth-state callback.
package auth

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/and161185/forever-vivid/internal/listen"
	"github.com/and161185/forever-vivid/internal/model"
)

// Status is the authentication status.
type Status int

// Statuses.
const (
	Unresolved Status = iota
	SignedIn
	SignedOut
)

func (s Status) String() string {
	switch s {
	case Unresolved:
		return "unresolved"
	case SignedIn:
		return "signed-in"
	case SignedOut:
		return "signed-out"
	}
	return "unknown"
}

// State is a machine state. Identity is non-nil only when Status is SignedIn.
type State struct {
	Status   Status
	Identity *model.Identity
}

func (s State) equal(o State) bool {
	if s.Status != o.Status {
		return false
	}
	if s.Identity == nil || o.Identity == nil {
		return s.Identity == o.Identity
	}
	return *s.Identity == *o.Identity
}

// Provider is the identity provider the machine drives.
type Provider interface {
	SignInAnonymously(ctx context.Context) (model.Identity, error)
	SignInWithCustomToken(ctx context.Context, token string) (model.Identity, error)
	// OnAuthStateChanged calls fn with the current user right away and on every change.
	// fn may be called from any goroutine.
	OnAuthStateChanged(fn func(*model.Identity)) *listen.Handle
}

// event is an auth-state callback, or the end of a sign-in call when done is set.
type event struct {
	id   *model.Identity
	done bool
}

// Machine is the authentication state machine.
type Machine struct {
	p     Provider
	token string
	log   *zap.Logger

	events chan event

	mu       sync.RWMutex
	state    State
	inflight int
	subs     map[int]chan State
	nextSub  int
	resolved chan struct{}
	once     sync.Once
}

// NewMachine builds a machine over p. initialToken, when set, is exchanged on Run and
// disables anonymous sign-in. A nil p means persistence is unavailable: Run settles on
// SignedOut without calling anything.
func NewMachine(p Provider, initialToken string, log *zap.Logger) *Machine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Machine{
		p:        p,
		token:    initialToken,
		log:      log,
		events:   make(chan event, 16),
		subs:     make(map[int]chan State),
		resolved: make(chan struct{}),
	}
}

// Run processes auth-state callbacks serially until ctx is done. Sign-in calls run on
// helper goroutines; Run waits for them before returning.
func (m *Machine) Run(ctx context.Context) error {
	if m.p == nil {
		m.set(State{Status: SignedOut})
		<-ctx.Done()
		return nil
	}

	var wg sync.WaitGroup
	defer wg.Wait()

	send := func(ev event) {
		select {
		case m.events <- ev:
		case <-ctx.Done():
		}
	}
	// signIn runs call on a helper goroutine. The provider notifies before call
	// returns, so the identity event is queued ahead of the done event.
	signIn := func(what string, call func() error) {
		m.mu.Lock()
		m.inflight++
		m.mu.Unlock()
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := call(); err != nil {
				m.log.Error(what+" sign-in failed", zap.Error(err))
			}
			send(event{done: true})
		}()
	}

	if m.token != "" {
		signIn("custom token", func() error {
			_, err := m.p.SignInWithCustomToken(ctx, m.token)
			return err
		})
	}

	h := m.p.OnAuthStateChanged(func(id *model.Identity) {
		var ev event
		if id != nil {
			cp := *id
			ev.id = &cp
		}
		send(ev)
	})
	defer h.Release()

	anonInFlight := false
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-m.events:
			switch {
			case ev.done:
				m.finishSignIn()
				anonInFlight = false
			case ev.id != nil:
				m.set(State{Status: SignedIn, Identity: ev.id})
			default:
				// count the anonymous attempt before publishing SignedOut so
				// nobody sees a settled SignedOut in between
				if m.token == "" && !anonInFlight {
					anonInFlight = true
					signIn("anonymous", func() error {
						_, err := m.p.SignInAnonymously(ctx)
						return err
					})
				}
				m.set(State{Status: SignedOut})
			}
		}
	}
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Resolved is closed once the machine leaves Unresolved.
func (m *Machine) Resolved() <-chan struct{} {
	return m.resolved
}

// Await blocks until the machine is resolved and returns the state at that point.
func (m *Machine) Await(ctx context.Context) (State, error) {
	select {
	case <-m.resolved:
		return m.State(), nil
	case <-ctx.Done():
		return State{}, ctx.Err()
	}
}

// Settled reports whether the machine is resolved and no sign-in is in flight.
func (m *Machine) Settled() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settledLocked()
}

func (m *Machine) settledLocked() bool {
	return m.state.Status != Unresolved && m.inflight == 0
}

// AwaitSettled blocks until Settled and returns the state at that point. Use it where a
// one-shot caller would rather see the outcome of the startup sign-in than SignedOut.
func (m *Machine) AwaitSettled(ctx context.Context) (State, error) {
	ch, h := m.Subscribe()
	defer h.Release()
	for {
		m.mu.RLock()
		st, ok := m.state, m.settledLocked()
		m.mu.RUnlock()
		if ok {
			return st, nil
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return State{}, ctx.Err()
		}
	}
}

// Subscribe returns a channel holding the latest state; intermediate states may be
// skipped by slow readers. The current state is delivered first.
func (m *Machine) Subscribe() (<-chan State, *listen.Handle) {
	ch := make(chan State, 1)
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = ch
	ch <- m.state
	m.mu.Unlock()

	return ch, listen.NewHandle(func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	})
}

func (m *Machine) finishSignIn() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inflight--
	if m.inflight == 0 {
		m.broadcastLocked()
	}
}

func (m *Machine) set(st State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.equal(st) {
		return
	}
	m.state = st
	m.log.Debug("auth state", zap.Stringer("status", st.Status))
	if st.Status != Unresolved {
		m.once.Do(func() { close(m.resolved) })
	}
	m.broadcastLocked()
}

// broadcastLocked hands the current state to every subscriber, replacing any unread one.
func (m *Machine) broadcastLocked() {
	st := m.state
	for _, ch := range m.subs {
		select {
		case <-ch:
		default:
		}
		ch <- st
	}
}
