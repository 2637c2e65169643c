package limiter

import (
	"context"
	"sync"
	"time"
)

type counter struct {
	hits         int
	windowStart  time.Time
	blockedUntil time.Time
}

// Memory is an in-process limiter for single-instance and test deployments.
type Memory struct {
	mu       sync.Mutex
	policies Policies
	now      func() time.Time
	counters map[string]*counter
}

// NewMemory constructs an in-process limiter.
func NewMemory(policies Policies) *Memory {
	return &Memory{policies: policies, now: time.Now, counters: make(map[string]*counter)}
}

func key(bucket string, ipHash []byte) string { return bucket + "\x00" + string(ipHash) }

// Allow reports whether the address may try again.
func (m *Memory) Allow(_ context.Context, bucket string, ipHash []byte) (bool, time.Duration, error) {
	if _, err := m.policies.lookup(bucket); err != nil {
		return false, 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.counters[key(bucket, ipHash)]
	if now := m.now(); ok && c.blockedUntil.After(now) {
		return false, c.blockedUntil.Sub(now), nil
	}
	return true, 0, nil
}

// Hit counts one attempt.
func (m *Memory) Hit(_ context.Context, bucket string, ipHash []byte) (bool, time.Duration, error) {
	pol, err := m.policies.lookup(bucket)
	if err != nil {
		return false, 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	k := key(bucket, ipHash)
	c, ok := m.counters[k]
	if !ok || now.Sub(c.windowStart) > pol.Window {
		c = &counter{windowStart: now}
		m.counters[k] = c
	}
	c.hits++
	if c.hits < pol.Max {
		return false, 0, nil
	}
	c.blockedUntil = now.Add(pol.BlockFor)
	return true, pol.BlockFor, nil
}

// Reset drops counters for (bucket, ip).
func (m *Memory) Reset(_ context.Context, bucket string, ipHash []byte) error {
	m.mu.Lock()
	delete(m.counters, key(bucket, ipHash))
	m.mu.Unlock()
	return nil
}
