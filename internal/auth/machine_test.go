package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/and161185/forever-vivid/internal/listen"
	"github.com/and161185/forever-vivid/internal/model"
)

type fakeProvider struct {
	mu          sync.Mutex
	cur         *model.Identity
	fns         map[int]func(*model.Identity)
	next        int
	anonErr     error
	customErr   error
	anonCalls   int
	customCalls int
	released    int
}

var _ Provider = (*fakeProvider)(nil)

func newFakeProvider() *fakeProvider {
	return &fakeProvider{fns: make(map[int]func(*model.Identity))}
}

func (f *fakeProvider) signIn(id model.Identity) {
	f.mu.Lock()
	f.cur = &id
	fns := make([]func(*model.Identity), 0, len(f.fns))
	for _, fn := range f.fns {
		fns = append(fns, fn)
	}
	f.mu.Unlock()
	for _, fn := range fns {
		cp := id
		fn(&cp)
	}
}

func (f *fakeProvider) SignInAnonymously(context.Context) (model.Identity, error) {
	f.mu.Lock()
	f.anonCalls++
	err := f.anonErr
	f.mu.Unlock()
	if err != nil {
		return model.Identity{}, err
	}
	id := model.Identity{UID: "anon-1", Anonymous: true}
	f.signIn(id)
	return id, nil
}

func (f *fakeProvider) SignInWithCustomToken(_ context.Context, token string) (model.Identity, error) {
	f.mu.Lock()
	f.customCalls++
	err := f.customErr
	f.mu.Unlock()
	if err != nil {
		return model.Identity{}, err
	}
	id := model.Identity{UID: "host-" + token}
	f.signIn(id)
	return id, nil
}

func (f *fakeProvider) OnAuthStateChanged(fn func(*model.Identity)) *listen.Handle {
	f.mu.Lock()
	id := f.next
	f.next++
	f.fns[id] = fn
	cur := f.cur
	f.mu.Unlock()
	fn(cur)
	return listen.NewHandle(func() {
		f.mu.Lock()
		delete(f.fns, id)
		f.released++
		f.mu.Unlock()
	})
}

func (f *fakeProvider) counts() (anon, custom int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.anonCalls, f.customCalls
}

// start runs m until the test ends and returns a channel closed when Run returns.
func start(t *testing.T, m *Machine) (context.CancelFunc, <-chan struct{}) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = m.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return cancel, done
}

func waitFor(t *testing.T, m *Machine, pred func(State) bool) State {
	t.Helper()
	ch, h := m.Subscribe()
	defer h.Release()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case st := <-ch:
			if pred(st) {
				return st
			}
		case <-timeout:
			t.Fatalf("timeout; last state %v", m.State().Status)
		}
	}
}

func signedInAs(uid string) func(State) bool {
	return func(s State) bool { return s.Status == SignedIn && s.Identity != nil && s.Identity.UID == uid }
}

func TestMachine_StartsUnresolved(t *testing.T) {
	t.Parallel()

	m := NewMachine(newFakeProvider(), "", zaptest.NewLogger(t))
	if st := m.State(); st.Status != Unresolved || st.Identity != nil {
		t.Fatalf("initial state: %+v", st)
	}
	select {
	case <-m.Resolved():
		t.Fatalf("must not be resolved before Run")
	default:
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := m.Await(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Await: want deadline, got %v", err)
	}
}

func TestMachine_AnonymousWhenNoToken(t *testing.T) {
	t.Parallel()

	p := newFakeProvider()
	m := NewMachine(p, "", zaptest.NewLogger(t))
	start(t, m)

	st := waitFor(t, m, signedInAs("anon-1"))
	if !st.Identity.Anonymous {
		t.Fatalf("want anonymous identity")
	}
	if anon, custom := p.counts(); anon != 1 || custom != 0 {
		t.Fatalf("calls: anon=%d custom=%d", anon, custom)
	}
	<-m.Resolved()
}

func TestMachine_AnonymousFailureStaysSignedOut(t *testing.T) {
	t.Parallel()

	p := newFakeProvider()
	p.anonErr = errors.New("offline")
	m := NewMachine(p, "", zaptest.NewLogger(t))
	start(t, m)

	st, err := m.Await(context.Background())
	if err != nil {
		t.Fatalf("Await: %v", err)
	}
	if st.Status != SignedOut || st.Identity != nil {
		t.Fatalf("want SignedOut, got %+v", st)
	}

	time.Sleep(50 * time.Millisecond)
	if anon, _ := p.counts(); anon != 1 {
		t.Fatalf("anonymous sign-in must not be retried, calls=%d", anon)
	}
	if m.State().Status != SignedOut {
		t.Fatalf("state changed after failure: %v", m.State().Status)
	}
}

func TestMachine_CustomToken(t *testing.T) {
	t.Parallel()

	p := newFakeProvider()
	m := NewMachine(p, "T", zaptest.NewLogger(t))
	start(t, m)

	waitFor(t, m, signedInAs("host-T"))
	if anon, custom := p.counts(); anon != 0 || custom != 1 {
		t.Fatalf("calls: anon=%d custom=%d", anon, custom)
	}
}

func TestMachine_CustomTokenFailureNoAnonymous(t *testing.T) {
	t.Parallel()

	p := newFakeProvider()
	p.customErr = errors.New("expired token")
	m := NewMachine(p, "T", zaptest.NewLogger(t))
	start(t, m)

	st := waitFor(t, m, func(s State) bool { return s.Status == SignedOut })
	if st.Identity != nil {
		t.Fatalf("SignedOut must carry no identity")
	}
	time.Sleep(50 * time.Millisecond)
	if anon, custom := p.counts(); anon != 0 || custom != 1 {
		t.Fatalf("calls: anon=%d custom=%d", anon, custom)
	}
}

func TestMachine_ExistingUser(t *testing.T) {
	t.Parallel()

	p := newFakeProvider()
	p.cur = &model.Identity{UID: "restored"}
	m := NewMachine(p, "", zaptest.NewLogger(t))
	start(t, m)

	waitFor(t, m, signedInAs("restored"))
	if anon, custom := p.counts(); anon != 0 || custom != 0 {
		t.Fatalf("no sign-in expected: anon=%d custom=%d", anon, custom)
	}
}

func TestMachine_SignOutThenAnonymousAgain(t *testing.T) {
	t.Parallel()

	p := newFakeProvider()
	p.cur = &model.Identity{UID: "restored"}
	m := NewMachine(p, "", zaptest.NewLogger(t))
	start(t, m)
	waitFor(t, m, signedInAs("restored"))

	p.mu.Lock()
	p.cur = nil
	fns := make([]func(*model.Identity), 0, len(p.fns))
	for _, fn := range p.fns {
		fns = append(fns, fn)
	}
	p.mu.Unlock()
	for _, fn := range fns {
		fn(nil)
	}

	waitFor(t, m, signedInAs("anon-1"))
}

func TestMachine_NilProvider(t *testing.T) {
	t.Parallel()

	m := NewMachine(nil, "T", zaptest.NewLogger(t))
	start(t, m)

	st, err := m.Await(context.Background())
	if err != nil || st.Status != SignedOut {
		t.Fatalf("want SignedOut, got %+v err=%v", st, err)
	}
}

func TestMachine_RunReleasesListener(t *testing.T) {
	t.Parallel()

	p := newFakeProvider()
	m := NewMachine(p, "", zaptest.NewLogger(t))
	cancel, done := start(t, m)
	waitFor(t, m, signedInAs("anon-1"))

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("Run did not return")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.released != 1 || len(p.fns) != 0 {
		t.Fatalf("listener not released: released=%d active=%d", p.released, len(p.fns))
	}
}

func TestMachine_SubscribeLatestWins(t *testing.T) {
	t.Parallel()

	m := NewMachine(nil, "", zaptest.NewLogger(t))
	ch, h := m.Subscribe()
	defer h.Release()

	m.set(State{Status: SignedOut})
	m.set(State{Status: SignedIn, Identity: &model.Identity{UID: "a"}})
	m.set(State{Status: SignedIn, Identity: &model.Identity{UID: "b"}})

	st := <-ch
	if st.Identity == nil || st.Identity.UID != "b" {
		t.Fatalf("want latest state, got %+v", st)
	}
	select {
	case extra := <-ch:
		t.Fatalf("only the latest state must be buffered, got %+v", extra)
	default:
	}
}

func TestStatus_String(t *testing.T) {
	t.Parallel()

	for s, want := range map[Status]string{Unresolved: "unresolved", SignedIn: "signed-in", SignedOut: "signed-out", Status(9): "unknown"} {
		if s.String() != want {
			t.Fatalf("%d: %q", s, s.String())
		}
	}
}

func TestMachine_AwaitSettled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ok := NewMachine(newFakeProvider(), "", zaptest.NewLogger(t))
	start(t, ok)
	st, err := ok.AwaitSettled(ctx)
	if err != nil || st.Status != SignedIn || st.Identity.UID != "anon-1" {
		t.Fatalf("want settled SignedIn(anon-1), got %+v err=%v", st, err)
	}
	if !ok.Settled() {
		t.Fatalf("Settled must hold after AwaitSettled")
	}

	failing := newFakeProvider()
	failing.customErr = errors.New("revoked")
	bad := NewMachine(failing, "T", zaptest.NewLogger(t))
	start(t, bad)
	st, err = bad.AwaitSettled(ctx)
	if err != nil || st.Status != SignedOut {
		t.Fatalf("want settled SignedOut, got %+v err=%v", st, err)
	}

	none := NewMachine(nil, "", zaptest.NewLogger(t))
	start(t, none)
	st, err = none.AwaitSettled(ctx)
	if err != nil || st.Status != SignedOut {
		t.Fatalf("nil provider: %+v err=%v", st, err)
	}
}
