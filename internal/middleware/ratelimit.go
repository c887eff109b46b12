package middleware

import (
	"fmt"
	"hash/fnv"
	"math"
	"net"
	"net/http"
	"sync"
	"time"
)

// shardCount is the number of lock shards backing the rate limiter's
// counter map, bounding lock contention under concurrent request load
// (spec §5: "guarded by sharded locks, at least 16 shards").
const shardCount = 32

// RateLimiterConfig configures the per-IP sliding-window limits (§4.6).
type RateLimiterConfig struct {
	PerMinute     int
	PerHour       int
	BlockDuration time.Duration
}

// DefaultRateLimiterConfig returns spec §4.6's stated defaults.
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		PerMinute:     60,
		PerHour:       1000,
		BlockDuration: 3600 * time.Second,
	}
}

// RateLimiter enforces per-IP sliding-window request limits over a
// one-minute and one-hour horizon, blocking a client for a configured
// duration once it breaches the hourly cap.
type RateLimiter struct {
	cfg    RateLimiterConfig
	shards [shardCount]*shard
}

type shard struct {
	mu      sync.Mutex
	buckets map[string]*window
}

type window struct {
	minuteHits  []time.Time
	hourHits    []time.Time
	blockedUntil time.Time
	lastSeen    time.Time
}

// NewRateLimiter constructs a sharded sliding-window rate limiter.
func NewRateLimiter(cfg RateLimiterConfig) *RateLimiter {
	rl := &RateLimiter{cfg: cfg}
	for i := range rl.shards {
		rl.shards[i] = &shard{buckets: make(map[string]*window)}
	}
	return rl
}

func (rl *RateLimiter) shardFor(ip string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(ip))
	return rl.shards[h.Sum32()%shardCount]
}

// Handler returns HTTP middleware that enforces the sliding-window limits.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := realIP(r)
		allowed, retryAfter := rl.Allow(ip, time.Now())
		if !allowed {
			w.Header().Set("Retry-After", fmt.Sprintf("%.0f", math.Ceil(retryAfter.Seconds())))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = fmt.Fprintf(w, `{"error":"rate limited","retry_after_seconds":%d}`, int(math.Ceil(retryAfter.Seconds())))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Allow reports whether a request from ip at time now is within the
// minute and hour limits, recording the hit if so. On denial it also
// returns how long the caller should wait before retrying.
func (rl *RateLimiter) Allow(ip string, now time.Time) (allowed bool, retryAfter time.Duration) {
	sh := rl.shardFor(ip)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	w, ok := sh.buckets[ip]
	if !ok {
		w = &window{}
		sh.buckets[ip] = w
	}
	w.lastSeen = now

	if now.Before(w.blockedUntil) {
		return false, w.blockedUntil.Sub(now)
	}

	w.minuteHits = prune(w.minuteHits, now.Add(-time.Minute))
	w.hourHits = prune(w.hourHits, now.Add(-time.Hour))

	if len(w.minuteHits) >= rl.cfg.PerMinute {
		return false, time.Minute - now.Sub(w.minuteHits[0])
	}
	if len(w.hourHits) >= rl.cfg.PerHour {
		w.blockedUntil = now.Add(rl.cfg.BlockDuration)
		return false, rl.cfg.BlockDuration
	}

	w.minuteHits = append(w.minuteHits, now)
	w.hourHits = append(w.hourHits, now)
	return true, 0
}

func prune(hits []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(hits) && hits[i].Before(cutoff) {
		i++
	}
	if i == 0 {
		return hits
	}
	return append([]time.Time(nil), hits[i:]...)
}

// StartCleanup spawns a goroutine that removes stale per-IP windows
// every interval, returning a cancel function that stops it.
func (rl *RateLimiter) StartCleanup(interval, maxIdle time.Duration) func() {
	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				rl.cleanup(maxIdle)
			}
		}
	}()
	return func() { close(stop) }
}

func (rl *RateLimiter) cleanup(maxIdle time.Duration) {
	cutoff := time.Now().Add(-maxIdle)
	for _, sh := range rl.shards {
		sh.mu.Lock()
		for ip, w := range sh.buckets {
			if w.lastSeen.Before(cutoff) && time.Now().After(w.blockedUntil) {
				delete(sh.buckets, ip)
			}
		}
		sh.mu.Unlock()
	}
}

// Len returns the number of tracked IP windows across all shards, for
// metrics and testing.
func (rl *RateLimiter) Len() int {
	n := 0
	for _, sh := range rl.shards {
		sh.mu.Lock()
		n += len(sh.buckets)
		sh.mu.Unlock()
	}
	return n
}

// realIP extracts the client IP from RemoteAddr. Proxy headers
// (X-Forwarded-For, X-Real-Ip) are NOT trusted because they can be
// spoofed by attackers to bypass rate limiting.
func realIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
