package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	pkgcrypto "github.com/and161185/forever-vivid/internal/crypto"
	"github.com/and161185/forever-vivid/internal/errs"
	"github.com/and161185/forever-vivid/internal/limiter"
	"github.com/and161185/forever-vivid/internal/model"
	"github.com/and161185/forever-vivid/internal/repository"
)

type fakeUsers struct {
	byID map[string]*model.User

	createErr error
	touchErr  error
}

var _ repository.UserRepository = (*fakeUsers)(nil)

func (f *fakeUsers) Create(_ context.Context, u *model.User) error {
	if f.createErr != nil {
		return f.createErr
	}
	if f.byID == nil {
		f.byID = map[string]*model.User{}
	}
	if _, exists := f.byID[u.ID]; exists {
		return errs.ErrAlreadyExists
	}
	cpy := *u
	f.byID[u.ID] = &cpy
	return nil
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (*model.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	c := *u
	return &c, nil
}

func (f *fakeUsers) TouchSignIn(_ context.Context, id string) (*model.User, error) {
	if f.touchErr != nil {
		return nil, f.touchErr
	}
	if f.byID == nil {
		f.byID = map[string]*model.User{}
	}
	u, ok := f.byID[id]
	if !ok {
		u = &model.User{ID: id}
		f.byID[id] = u
	}
	u.LastSignInAt = time.Now()
	c := *u
	return &c, nil
}

type fakeLimiter struct {
	allowOK  bool
	allowErr error

	hitBlocked bool
	hitErr     error

	resetErr error

	allowCalls int
	hitCalls   int
	resetCalls int
	buckets    []string
}

var _ limiter.Limiter = (*fakeLimiter)(nil)

func (l *fakeLimiter) Allow(_ context.Context, bucket string, _ []byte) (bool, time.Duration, error) {
	l.allowCalls++
	l.buckets = append(l.buckets, bucket)
	return l.allowOK, 0, l.allowErr
}

func (l *fakeLimiter) Hit(context.Context, string, []byte) (bool, time.Duration, error) {
	l.hitCalls++
	return l.hitBlocked, 0, l.hitErr
}

func (l *fakeLimiter) Reset(context.Context, string, []byte) error {
	l.resetCalls++
	return l.resetErr
}

func testKeys(t *testing.T) pkgcrypto.SigningKeys {
	t.Helper()
	k, err := pkgcrypto.DeriveSigningKeys([]byte("test-secret"))
	if err != nil {
		t.Fatalf("DeriveSigningKeys: %v", err)
	}
	return k
}

func TestIdentity_SignInAnonymously(t *testing.T) {
	t.Parallel()
	keys := testKeys(t)
	users := &fakeUsers{}
	lim := &fakeLimiter{allowOK: true}
	s := NewIdentityService(users, keys, time.Hour, lim)

	c1, err := s.SignInAnonymously(context.Background(), "1.2.3.4:5")
	if err != nil {
		t.Fatalf("SignInAnonymously: %v", err)
	}
	if !c1.Anonymous || c1.UID == "" || c1.AccessToken == "" {
		t.Fatalf("bad credential: %+v", c1)
	}
	if c1.ExpiresAt.Before(time.Now().Add(59 * time.Minute)) {
		t.Fatalf("ttl not applied: %v", c1.ExpiresAt)
	}
	if u := users.byID[c1.UID]; u == nil || !u.Anonymous {
		t.Fatalf("anonymous user must be persisted")
	}
	if lim.hitCalls != 1 || lim.buckets[0] != limiter.BucketAnonymous {
		t.Fatalf("every anonymous sign-in counts: hits=%d buckets=%v", lim.hitCalls, lim.buckets)
	}

	c2, _ := s.SignInAnonymously(context.Background(), "1.2.3.4:6")
	if c2.UID == c1.UID {
		t.Fatalf("each anonymous sign-in gets a fresh uid")
	}

	id, err := VerifyAccessToken(keys.Access, c1.AccessToken, nil)
	if err != nil || id.UID != c1.UID || !id.Anonymous {
		t.Fatalf("VerifyAccessToken: id=%+v err=%v", id, err)
	}
}

func TestIdentity_SignInAnonymously_Limited(t *testing.T) {
	t.Parallel()
	s := NewIdentityService(&fakeUsers{}, testKeys(t), time.Hour, &fakeLimiter{allowOK: false})
	if _, err := s.SignInAnonymously(context.Background(), "ip"); !errors.Is(err, errs.ErrRateLimited) {
		t.Fatalf("want ErrRateLimited, got %v", err)
	}

	lim := &fakeLimiter{allowErr: errors.New("lim-err")}
	s = NewIdentityService(&fakeUsers{}, testKeys(t), time.Hour, lim)
	if _, err := s.SignInAnonymously(context.Background(), "ip"); err == nil {
		t.Fatalf("want limiter error propagate")
	}

	users := &fakeUsers{createErr: errors.New("db down")}
	s = NewIdentityService(users, testKeys(t), time.Hour, &fakeLimiter{allowOK: true})
	if _, err := s.SignInAnonymously(context.Background(), "ip"); err == nil {
		t.Fatalf("want repo error propagate")
	}
}

func TestIdentity_SignInWithCustomToken(t *testing.T) {
	t.Parallel()
	keys := testKeys(t)
	users := &fakeUsers{}
	lim := &fakeLimiter{allowOK: true}
	s := NewIdentityService(users, keys, time.Hour, lim)

	tok, err := MintCustomToken(keys.Custom, "partner-42", time.Minute, time.Now())
	if err != nil {
		t.Fatalf("MintCustomToken: %v", err)
	}
	c, err := s.SignInWithCustomToken(context.Background(), tok, "ip")
	if err != nil {
		t.Fatalf("SignInWithCustomToken: %v", err)
	}
	if c.UID != "partner-42" || c.Anonymous {
		t.Fatalf("bad credential: %+v", c)
	}
	if lim.resetCalls != 1 || lim.hitCalls != 0 {
		t.Fatalf("success must reset and not count: reset=%d hit=%d", lim.resetCalls, lim.hitCalls)
	}
	if _, ok := users.byID["partner-42"]; !ok {
		t.Fatalf("user must be upserted")
	}
}

func TestIdentity_SignInWithCustomToken_Rejects(t *testing.T) {
	t.Parallel()
	keys := testKeys(t)
	now := time.Now()

	expired, _ := MintCustomToken(keys.Custom, "u", time.Minute, now.Add(-time.Hour))
	wrongKey, _ := MintCustomToken(keys.Access, "u", time.Minute, now)
	noAud, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "u",
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
	}).SignedString(keys.Custom)
	noExp, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:  "u",
		Audience: jwt.ClaimStrings{CustomTokenAudience},
	}).SignedString(keys.Custom)
	noSub, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Audience:  jwt.ClaimStrings{CustomTokenAudience},
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
	}).SignedString(keys.Custom)

	for name, tok := range map[string]string{
		"empty":     "",
		"garbage":   "not.a.jwt",
		"expired":   expired,
		"wrong key": wrongKey,
		"no aud":    noAud,
		"no exp":    noExp,
		"no sub":    noSub,
	} {
		lim := &fakeLimiter{allowOK: true}
		s := NewIdentityService(&fakeUsers{}, keys, time.Hour, lim)
		if _, err := s.SignInWithCustomToken(context.Background(), tok, "ip"); !errors.Is(err, errs.ErrUnauthorized) {
			t.Fatalf("%s: want ErrUnauthorized, got %v", name, err)
		}
		if lim.hitCalls != 1 {
			t.Fatalf("%s: failure must be counted", name)
		}
	}

	lim := &fakeLimiter{allowOK: true, hitBlocked: true}
	s := NewIdentityService(&fakeUsers{}, keys, time.Hour, lim)
	if _, err := s.SignInWithCustomToken(context.Background(), "bad", "ip"); !errors.Is(err, errs.ErrRateLimited) {
		t.Fatalf("want ErrRateLimited when failure reaches threshold, got %v", err)
	}

	lim = &fakeLimiter{allowOK: false}
	s = NewIdentityService(&fakeUsers{}, keys, time.Hour, lim)
	good, _ := MintCustomToken(keys.Custom, "u", time.Minute, now)
	if _, err := s.SignInWithCustomToken(context.Background(), good, "ip"); !errors.Is(err, errs.ErrRateLimited) {
		t.Fatalf("blocked address must be refused even with a good token, got %v", err)
	}
}

func TestVerifyAccessToken_Rejects(t *testing.T) {
	t.Parallel()
	keys := testKeys(t)
	s := NewIdentityService(&fakeUsers{}, keys, time.Minute, &fakeLimiter{allowOK: true})
	c, err := s.SignInAnonymously(context.Background(), "ip")
	if err != nil {
		t.Fatalf("SignInAnonymously: %v", err)
	}

	if _, err := VerifyAccessToken(keys.Custom, c.AccessToken, nil); !errors.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("custom key must not verify access tokens, got %v", err)
	}
	later := func() time.Time { return time.Now().Add(2 * time.Minute) }
	if _, err := VerifyAccessToken(keys.Access, c.AccessToken, later); !errors.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("expired token must be rejected, got %v", err)
	}
}

func TestMintCustomToken_Validation(t *testing.T) {
	t.Parallel()
	if _, err := MintCustomToken([]byte("k"), "", time.Minute, time.Now()); err == nil {
		t.Fatalf("want error on empty uid")
	}
	if _, err := MintCustomToken([]byte("k"), "u", 0, time.Now()); err == nil {
		t.Fatalf("want error on zero ttl")
	}
}
