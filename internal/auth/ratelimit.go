package auth

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/mrlokans/readnext/internal/logging"
)

// RateLimitConfig controls login throttling per client IP and username.
type RateLimitConfig struct {
	MaxAttempts     int           // Failed attempts allowed per window (default: 5)
	WindowDuration  time.Duration // Window the attempts are spread over (default: 15m)
	LockoutDuration time.Duration // Lockout once the attempts are used up (default: 30m)
	CleanupInterval time.Duration // How often idle records are dropped (default: 5m)
}

func (c RateLimitConfig) withDefaults() RateLimitConfig {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	if c.WindowDuration <= 0 {
		c.WindowDuration = 15 * time.Minute
	}
	if c.LockoutDuration <= 0 {
		c.LockoutDuration = 30 * time.Minute
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = 5 * time.Minute
	}
	return c
}

type attemptRecord struct {
	failures    *rate.Limiter
	lockedUntil time.Time
	lastSeen    time.Time
}

// RateLimiter throttles failed logins. Each IP and username pair gets a
// token bucket holding MaxAttempts failures that refills over the window;
// an empty bucket locks the pair out.
type RateLimiter struct {
	cfg RateLimitConfig
	now func() time.Time

	mu       sync.Mutex
	attempts map[string]*attemptRecord

	stopOnce sync.Once
	stop     chan struct{}
}

// NewRateLimiter creates a limiter and starts its cleanup loop.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	rl := &RateLimiter{
		cfg:      cfg.withDefaults(),
		now:      time.Now,
		attempts: make(map[string]*attemptRecord),
		stop:     make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

// Stop ends the cleanup loop.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

func key(ip, username string) string {
	return ip + ":" + username
}

// Allow reports whether a login attempt may proceed and, if not, how long
// until the lockout ends.
func (rl *RateLimiter) Allow(ip, username string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	record, ok := rl.attempts[key(ip, username)]
	if !ok {
		return true, 0
	}
	now := rl.now()
	if now.Before(record.lockedUntil) {
		return false, record.lockedUntil.Sub(now)
	}
	return true, 0
}

// RecordFailure records a failed login and reports whether the pair is now
// locked out.
func (rl *RateLimiter) RecordFailure(ip, username string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	k := key(ip, username)
	record, ok := rl.attempts[k]
	if !ok {
		every := rl.cfg.WindowDuration / time.Duration(rl.cfg.MaxAttempts)
		record = &attemptRecord{failures: rate.NewLimiter(rate.Every(every), rl.cfg.MaxAttempts)}
		rl.attempts[k] = record
	}
	record.lastSeen = now

	// The last token is the one that triggers the lockout.
	if !record.failures.AllowN(now, 1) || record.failures.TokensAt(now) < 1 {
		record.lockedUntil = now.Add(rl.cfg.LockoutDuration)
		logging.Warn().Str("ip", ip).Str("username", username).Dur("lockout", rl.cfg.LockoutDuration).Msg("Login attempts locked out")
		return true, rl.cfg.LockoutDuration
	}
	return false, 0
}

// RecordSuccess clears the failure record for a pair.
func (rl *RateLimiter) RecordSuccess(ip, username string) {
	rl.mu.Lock()
	delete(rl.attempts, key(ip, username))
	rl.mu.Unlock()
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stop:
			return
		}
	}
}

// cleanup drops records that are neither locked nor recently used.
func (rl *RateLimiter) cleanup() {
	now := rl.now()
	idle := rl.cfg.WindowDuration + rl.cfg.LockoutDuration

	rl.mu.Lock()
	defer rl.mu.Unlock()

	for k, record := range rl.attempts {
		if now.After(record.lockedUntil) && now.Sub(record.lastSeen) > idle {
			delete(rl.attempts, k)
		}
	}
}
