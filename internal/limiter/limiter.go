// Package limiter throttles sign-in attempts per client address.
package limiter

import (
	"context"
	"crypto/sha256"
	"fmt"
	"net"
	"time"
)

// Buckets. Each bucket keeps independent counters.
const (
	BucketAnonymous   = "anonymous"
	BucketCustomToken = "custom-token"
)

// Policy bounds hits per window; reaching Max blocks the address for BlockFor.
type Policy struct {
	Window   time.Duration
	Max      int
	BlockFor time.Duration
}

// Limiter counts sign-in attempts and places temporary blocks.
type Limiter interface {
	// Allow reports whether an attempt is currently allowed and an optional retry-after.
	Allow(ctx context.Context, bucket string, ipHash []byte) (bool, time.Duration, error)
	// Hit counts an attempt; may place a temporary block.
	Hit(ctx context.Context, bucket string, ipHash []byte) (bool, time.Duration, error)
	// Reset clears counters, e.g. after a successful custom-token sign-in.
	Reset(ctx context.Context, bucket string, ipHash []byte) error
}

// Policies maps bucket names to their policy.
type Policies map[string]Policy

func (p Policies) lookup(bucket string) (Policy, error) {
	pol, ok := p[bucket]
	if !ok || pol.Max <= 0 {
		return Policy{}, fmt.Errorf("limiter: no policy for bucket %q", bucket)
	}
	return pol, nil
}

// HashIP returns a stable hash of the host part of addr so raw addresses are never stored.
func HashIP(addr string) []byte {
	host := addr
	if h, _, err := net.SplitHostPort(addr); err == nil {
		host = h
	}
	sum := sha256.Sum256([]byte(host))
	return sum[:]
}
