package limiter

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PG is a PostgreSQL-backed limiter with a sliding window and lockout.
type PG struct {
	pool     pgxQuerier
	policies Policies
	now      func() time.Time
}

type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// NewPG constructs a PostgreSQL-backed limiter over any pgx querier (pool, tx or mock).
func NewPG(q pgxQuerier, policies Policies) *PG {
	return &PG{pool: q, policies: policies, now: time.Now}
}

// Allow reports whether the address may try again and a retry-after duration.
func (l *PG) Allow(ctx context.Context, bucket string, ipHash []byte) (bool, time.Duration, error) {
	if _, err := l.policies.lookup(bucket); err != nil {
		return false, 0, err
	}
	const q = `SELECT blocked_until FROM auth_limiter WHERE bucket=$1 AND ip_hash=$2`
	var blockedUntil time.Time
	err := l.pool.QueryRow(ctx, q, bucket, ipHash).Scan(&blockedUntil)
	switch {
	case err == nil:
		if now := l.now(); blockedUntil.After(now) {
			return false, blockedUntil.Sub(now), nil
		}
		return true, 0, nil
	case errors.Is(err, pgx.ErrNoRows):
		return true, 0, nil
	default:
		return false, 0, err
	}
}

// Reset zeroes counters for (bucket, ip).
func (l *PG) Reset(ctx context.Context, bucket string, ipHash []byte) error {
	const q = `
INSERT INTO auth_limiter (bucket, ip_hash, hits, blocked_until, updated_at)
VALUES ($1,$2,0,'epoch',now())
ON CONFLICT (bucket, ip_hash)
DO UPDATE SET hits=0, blocked_until='epoch', updated_at=now()`
	_, err := l.pool.Exec(ctx, q, bucket, ipHash)
	return err
}

// Hit counts one attempt; a counter older than the window restarts at 1.
func (l *PG) Hit(ctx context.Context, bucket string, ipHash []byte) (bool, time.Duration, error) {
	pol, err := l.policies.lookup(bucket)
	if err != nil {
		return false, 0, err
	}

	const q = `
INSERT INTO auth_limiter (bucket, ip_hash, hits, blocked_until, updated_at)
VALUES ($1,$2,1,'epoch',now())
ON CONFLICT (bucket, ip_hash) DO UPDATE
SET
  hits = CASE WHEN EXCLUDED.updated_at - auth_limiter.updated_at > $3::interval THEN 1 ELSE auth_limiter.hits + 1 END,
  updated_at = now()
RETURNING hits`
	var hits int
	if err := l.pool.QueryRow(ctx, q, bucket, ipHash, pol.Window).Scan(&hits); err != nil {
		return false, 0, err
	}
	if hits < pol.Max {
		return false, 0, nil
	}
	const upd = `UPDATE auth_limiter SET blocked_until=$3 WHERE bucket=$1 AND ip_hash=$2`
	if _, err := l.pool.Exec(ctx, upd, bucket, ipHash, l.now().Add(pol.BlockFor)); err != nil {
		return false, 0, err
	}
	return true, pol.BlockFor, nil
}
