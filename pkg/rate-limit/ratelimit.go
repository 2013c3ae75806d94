// Package ratelimit implements a fixed-window request counter.
//
// Every key gets a counter that lives for exactly one window. The first
// request in a window creates the counter, later requests increment it, and
// the counter disappears when the window ends. Requests beyond the limit are
// rejected until then.
package ratelimit

import (
	"net/http"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	DefaultLimit   = 5
	DefaultWindow  = time.Minute
	DefaultMessage = "Too many requests, please try again later."
)

type Config struct {
	// Maximum number of requests allowed per window.
	Limit int
	// Length of the window.
	Window time.Duration
	// Body sent with rejected requests.
	Message string
	// KeyFunc returns the key requests are counted by.
	// The client address is used if nil.
	KeyFunc func(*http.Request) string
	// Logger to use. The global zerolog logger is used if nil.
	Logger *zerolog.Logger
}

// Decision is the outcome of counting a single request.
type Decision struct {
	Allowed bool
	Key     string
	// Count is the number of requests seen in the current window,
	// including this one.
	Count int
	// Reset is when the current window ends.
	Reset time.Time
}

// Remaining returns how many more requests the window allows.
func (d Decision) Remaining(limit int) int {
	if d.Count >= limit {
		return 0
	}
	return limit - d.Count
}

type FixedWindow struct {
	limit    int
	window   time.Duration
	message  string
	keyFunc  func(*http.Request) string
	counters *cache.Cache
	log      zerolog.Logger
}

// New creates a fixed-window limiter.
// Zero values in the config are replaced with the package defaults.
func New(config Config) *FixedWindow {
	if config.Limit <= 0 {
		config.Limit = DefaultLimit
	}
	if config.Window <= 0 {
		config.Window = DefaultWindow
	}
	if config.Message == "" {
		config.Message = DefaultMessage
	}
	if config.KeyFunc == nil {
		config.KeyFunc = ClientAddress
	}
	logger := log.Logger
	if config.Logger != nil {
		logger = *config.Logger
	}
	return &FixedWindow{
		limit:   config.Limit,
		window:  config.Window,
		message: config.Message,
		keyFunc: config.KeyFunc,
		// expired windows are swept once per window
		counters: cache.New(config.Window, config.Window),
		log:      logger.With().Str("component", "ratelimit").Logger(),
	}
}

// Allow counts a request for the given key and reports whether it is within the limit.
// It is safe for concurrent use.
func (f *FixedWindow) Allow(key string) Decision {
	count := f.increment(key)
	d := Decision{
		Allowed: count <= f.limit,
		Key:     key,
		Count:   count,
	}
	if _, exp, ok := f.counters.GetWithExpiration(key); ok {
		d.Reset = exp
	}
	return d
}

// increment opens a window for the key or counts another request in the open one.
func (f *FixedWindow) increment(key string) int {
	for {
		if err := f.counters.Add(key, 1, f.window); err == nil {
			return 1
		}
		// the window may expire between the failed add and the increment,
		// in which case we simply try to open a new one
		if count, err := f.counters.IncrementInt(key, 1); err == nil {
			return count
		}
	}
}

// Handler rejects requests over the limit with 429 Too Many Requests.
func (f *FixedWindow) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d := f.Allow(f.keyFunc(r))
		if !d.Allowed {
			f.log.Debug().
				Str("key", d.Key).
				Int("count", d.Count).
				Time("reset", d.Reset).
				Msg("Rate limit exceeded")
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.WriteHeader(http.StatusTooManyRequests)
			// the message is the whole body, no trailing newline
			w.Write([]byte(f.message))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ClientAddress returns the IP part of the request's remote address.
func ClientAddress(r *http.Request) string {
	// RemoteAddr is in the format:
	// 1.2.3.4:10000 for ipv4
	// [1:2:3]:10000 for ipv6
	ipAndPort := r.RemoteAddr
	portSepIdx := strings.LastIndex(ipAndPort, ":")
	// if not found, return
	if portSepIdx < 0 {
		return ipAndPort
	}
	return ipAndPort[:portSepIdx]
}
