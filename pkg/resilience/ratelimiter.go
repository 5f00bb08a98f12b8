package resilience

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// LimiterOpts configures the per-client rate limiter.
type LimiterOpts struct {
	// Window is the period over which Max requests are allowed.
	Window time.Duration
	// Max is the number of requests a client may make per Window.
	Max int
	// MaxClients bounds how many client windows are tracked at once; the
	// least recently seen client is forgotten first.
	MaxClients int
}

// DefaultLimiterOpts allows 30 requests per minute per client.
var DefaultLimiterOpts = LimiterOpts{
	Window:     time.Minute,
	Max:        30,
	MaxClients: 10000,
}

// window counts one client's requests since start.
type window struct {
	start time.Time
	count int
}

// Limiter rate limits requests per client key with fixed windows: the first
// request from a key opens a window of length Window, and at most Max
// requests are accepted until it ends.
type Limiter struct {
	mu      sync.Mutex
	opts    LimiterOpts
	clients *lru.Cache[string, *window]
	now     func() time.Time
}

// NewLimiter creates a per-client limiter. Invalid options fall back to
// DefaultLimiterOpts field by field.
func NewLimiter(opts LimiterOpts) *Limiter {
	if opts.Window <= 0 {
		opts.Window = DefaultLimiterOpts.Window
	}
	if opts.Max <= 0 {
		opts.Max = DefaultLimiterOpts.Max
	}
	if opts.MaxClients <= 0 {
		opts.MaxClients = DefaultLimiterOpts.MaxClients
	}
	clients, _ := lru.New[string, *window](opts.MaxClients) // only fails for size <= 0
	return &Limiter{
		opts:    opts,
		clients: clients,
		now:     time.Now,
	}
}

// Limit returns the configured requests per window.
func (l *Limiter) Limit() int { return l.opts.Max }

// Allow reports whether the client identified by key may proceed. When it
// may not, retryAfter is how long until its window ends. Rejected requests
// do not count.
func (l *Limiter) Allow(key string) (ok bool, retryAfter time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w := l.current(key, now)
	if w.count >= l.opts.Max {
		return false, w.start.Add(l.opts.Window).Sub(now)
	}
	w.count++
	return true, 0
}

// Remaining returns how many requests key may still make in its window.
func (l *Limiter) Remaining(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.clients.Peek(key)
	if !ok || !l.now().Before(w.start.Add(l.opts.Window)) {
		return l.opts.Max
	}
	return l.opts.Max - w.count
}

// current returns key's open window, starting a new one when none is open.
// Callers hold l.mu.
func (l *Limiter) current(key string, now time.Time) *window {
	if w, ok := l.clients.Get(key); ok && now.Before(w.start.Add(l.opts.Window)) {
		return w
	}
	w := &window{start: now}
	l.clients.Add(key, w)
	return w
}
