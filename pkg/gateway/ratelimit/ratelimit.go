// Package ratelimit is a per-key token bucket for a single process. State
// lives in memory; multi-instance deployments shard by key at the load
// balancer or accept per-instance limits.
package ratelimit

import (
	"crypto/sha256"
	"encoding/hex"
	"math"
	"sync"
	"time"
)

type Config struct {
	RPS   float64
	Burst int

	// Bounds for the in-memory principal map.
	MaxEntries int
	EntryTTL   time.Duration
}

type Limiter struct {
	cfg Config

	mu sync.Mutex
	m  map[string]*bucket
}

type bucket struct {
	tokens   float64
	last     time.Time
	lastSeen time.Time
}

func New(cfg Config) *Limiter {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = 10_000
	}
	if cfg.EntryTTL <= 0 {
		cfg.EntryTTL = 30 * time.Minute
	}
	return &Limiter{cfg: cfg, m: make(map[string]*bucket)}
}

// PrincipalKey derives a stable map key from an API key id without
// holding the id itself in limiter state dumps.
func PrincipalKey(keyID string) string {
	sum := sha256.Sum256([]byte(keyID))
	return "k_" + hex.EncodeToString(sum[:16])
}

type Decision struct {
	Allowed bool
	// RetryAfter is whole seconds until a token is available, at least 1
	// when the request was denied.
	RetryAfter int
}

// Allow consumes one token for the principal if available.
func (l *Limiter) Allow(principal string, now time.Time) Decision {
	if l == nil || l.cfg.RPS <= 0 || l.cfg.Burst <= 0 {
		return Decision{Allowed: true}
	}
	if principal == "" {
		principal = "anonymous"
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.m[principal]
	if !ok {
		l.evictLocked(now)
		b = &bucket{tokens: float64(l.cfg.Burst), last: now}
		l.m[principal] = b
	}
	b.lastSeen = now

	elapsed := now.Sub(b.last).Seconds()
	if elapsed > 0 {
		b.tokens = math.Min(float64(l.cfg.Burst), b.tokens+elapsed*l.cfg.RPS)
		b.last = now
	}

	if b.tokens >= 1 {
		b.tokens--
		return Decision{Allowed: true}
	}

	wait := (1 - b.tokens) / l.cfg.RPS
	retry := int(math.Ceil(wait))
	if retry < 1 {
		retry = 1
	}
	return Decision{Allowed: false, RetryAfter: retry}
}

// evictLocked drops stale principals, and when the map is still at its
// cap, the oldest one.
func (l *Limiter) evictLocked(now time.Time) {
	if len(l.m) < l.cfg.MaxEntries {
		return
	}
	var (
		oldestKey  string
		oldestSeen time.Time
	)
	for k, b := range l.m {
		if now.Sub(b.lastSeen) > l.cfg.EntryTTL {
			delete(l.m, k)
			continue
		}
		if oldestKey == "" || b.lastSeen.Before(oldestSeen) {
			oldestKey, oldestSeen = k, b.lastSeen
		}
	}
	if len(l.m) >= l.cfg.MaxEntries && oldestKey != "" {
		delete(l.m, oldestKey)
	}
}
