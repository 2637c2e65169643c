// Package service contains application services for identities and documents.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"

	pkgcrypto "github.com/and161185/forever-vivid/internal/crypto"
	"github.com/and161185/forever-vivid/internal/errs"
	"github.com/and161185/forever-vivid/internal/limiter"
	"github.com/and161185/forever-vivid/internal/model"
	"github.com/and161185/forever-vivid/internal/repository"
)

// CustomTokenAudience is the aud claim every custom token must carry.
const CustomTokenAudience = "vivid-custom-token"

const clockLeeway = 30 * time.Second

// AccessClaims are the claims of an access token.
type AccessClaims struct {
	Anonymous bool `json:"anon"`
	jwt.RegisteredClaims
}

// IdentityService issues access credentials.
type IdentityService interface {
	// SignInAnonymously creates a fresh anonymous user.
	SignInAnonymously(ctx context.Context, ip string) (model.Credential, error)
	// SignInWithCustomToken exchanges an issuer-signed custom token for a credential.
	SignInWithCustomToken(ctx context.Context, token, ip string) (model.Credential, error)
}

type IdentityServiceImpl struct {
	users     repository.UserRepository
	keys      pkgcrypto.SigningKeys
	accessTTL time.Duration
	lim       limiter.Limiter
	now       func() time.Time
}

// NewIdentityService constructs IdentityService with required dependencies.
func NewIdentityService(users repository.UserRepository, keys pkgcrypto.SigningKeys, accessTTL time.Duration, lim limiter.Limiter) *IdentityServiceImpl {
	return &IdentityServiceImpl{users: users, keys: keys, accessTTL: accessTTL, lim: lim, now: time.Now}
}

// SignInAnonymously is rate limited per client address; every call counts.
func (s *IdentityServiceImpl) SignInAnonymously(ctx context.Context, ip string) (model.Credential, error) {
	ipHash := limiter.HashIP(ip)
	allowed, _, err := s.lim.Allow(ctx, limiter.BucketAnonymous, ipHash)
	if err != nil {
		return model.Credential{}, err
	}
	if !allowed {
		return model.Credential{}, errs.ErrRateLimited
	}
	if _, _, err := s.lim.Hit(ctx, limiter.BucketAnonymous, ipHash); err != nil {
		return model.Credential{}, err
	}

	uid, err := uuid.NewV4()
	if err != nil {
		return model.Credential{}, err
	}
	now := s.now().UTC()
	u := &model.User{ID: uid.String(), Anonymous: true, CreatedAt: now, LastSignInAt: now}
	if err := s.users.Create(ctx, u); err != nil {
		return model.Credential{}, err
	}
	return s.issue(model.Identity{UID: u.ID, Anonymous: true})
}

// SignInWithCustomToken verifies token; failures count against the client address.
func (s *IdentityServiceImpl) SignInWithCustomToken(ctx context.Context, token, ip string) (model.Credential, error) {
	ipHash := limiter.HashIP(ip)
	allowed, _, err := s.lim.Allow(ctx, limiter.BucketCustomToken, ipHash)
	if err != nil {
		return model.Credential{}, err
	}
	if !allowed {
		return model.Credential{}, errs.ErrRateLimited
	}

	uid, err := s.verifyCustomToken(token)
	if err != nil {
		if blocked, _, ferr := s.lim.Hit(ctx, limiter.BucketCustomToken, ipHash); ferr == nil && blocked {
			return model.Credential{}, errs.ErrRateLimited
		}
		return model.Credential{}, fmt.Errorf("%w: %v", errs.ErrUnauthorized, err)
	}

	// best-effort
	_ = s.lim.Reset(ctx, limiter.BucketCustomToken, ipHash)

	u, err := s.users.TouchSignIn(ctx, uid)
	if err != nil {
		return model.Credential{}, err
	}
	return s.issue(model.Identity{UID: u.ID, Anonymous: false})
}

func (s *IdentityServiceImpl) verifyCustomToken(token string) (string, error) {
	if token == "" {
		return "", errors.New("empty custom token")
	}
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) { return s.keys.Custom, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(CustomTokenAudience),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(clockLeeway),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return "", err
	}
	if claims.Subject == "" || len(claims.Subject) > 128 {
		return "", errors.New("bad subject")
	}
	return claims.Subject, nil
}

// issue creates a signed HS256 access token for id.
func (s *IdentityServiceImpl) issue(id model.Identity) (model.Credential, error) {
	now := s.now()
	exp := now.Add(s.accessTTL)
	claims := AccessClaims{
		Anonymous: id.Anonymous,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.keys.Access)
	if err != nil {
		return model.Credential{}, err
	}
	return model.Credential{Identity: id, AccessToken: signed, ExpiresAt: exp}, nil
}

// VerifyAccessToken checks an access token signed with key and returns its identity.
func VerifyAccessToken(key []byte, token string, now func() time.Time) (model.Identity, error) {
	var claims AccessClaims
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(clockLeeway),
	}
	if now != nil {
		opts = append(opts, jwt.WithTimeFunc(now))
	}
	if _, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) { return key, nil }, opts...); err != nil {
		return model.Identity{}, fmt.Errorf("%w: %v", errs.ErrUnauthorized, err)
	}
	if claims.Subject == "" {
		return model.Identity{}, fmt.Errorf("%w: empty subject", errs.ErrUnauthorized)
	}
	return model.Identity{UID: claims.Subject, Anonymous: claims.Anonymous}, nil
}

// MintCustomToken signs a custom token for uid, valid for ttl from now.
func MintCustomToken(key []byte, uid string, ttl time.Duration, now time.Time) (string, error) {
	if uid == "" {
		return "", errors.New("empty uid")
	}
	if ttl <= 0 {
		return "", errors.New("non-positive ttl")
	}
	claims := jwt.RegisteredClaims{
		Subject:   uid,
		Audience:  jwt.ClaimStrings{CustomTokenAudience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
}
