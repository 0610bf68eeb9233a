package api

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// CONTEXT
// =============================================================================

type ctxKey int

const (
	callerKey ctxKey = iota
	loggerKey
	callerSlotKey
)

// CallerFrom returns the authenticated caller, if any.
func CallerFrom(ctx context.Context) (leave.Caller, bool) {
	c, ok := ctx.Value(callerKey).(leave.Caller)
	return c, ok
}

func WithCaller(ctx context.Context, c leave.Caller) context.Context {
	return context.WithValue(ctx, callerKey, c)
}

// LoggerFrom returns the request-scoped logger, falling back to the global.
func LoggerFrom(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(loggerKey).(*zap.Logger); ok {
		return l
	}
	return zap.L()
}

// =============================================================================
// REQUEST LOGGING
// =============================================================================

const requestIDHeader = "X-Request-ID"

// ContextLogger echoes the request id assigned by middleware.RequestID,
// attaches a scoped logger to the context and logs one line per request
// when it completes.
func ContextLogger(base *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rid := middleware.GetReqID(r.Context())
			if rid != "" {
				w.Header().Set(requestIDHeader, rid)
			}

			reqLogger := base.With(zap.String("request_id", rid))
			slot := new(leave.Caller)
			ctx := context.WithValue(r.Context(), loggerKey, reqLogger)
			ctx = context.WithValue(ctx, callerSlotKey, slot)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r.WithContext(ctx))

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("remote", r.RemoteAddr),
			}
			if slot.ID != "" {
				fields = append(fields, zap.String("user_id", slot.ID))
			}
			reqLogger.Info("request", fields...)
		})
	}
}

// =============================================================================
// AUTHENTICATION
// =============================================================================

// TokenVerifier turns a bearer token into a caller.
type TokenVerifier interface {
	Verify(raw string) (leave.Caller, error)
}

// Authenticate requires a valid bearer token and stores the caller in the
// request context.
func Authenticate(tokens TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !found || strings.TrimSpace(raw) == "" {
				writeFailure(w, http.StatusUnauthorized, MsgUnauthorized, nil)
				return
			}

			caller, err := tokens.Verify(strings.TrimSpace(raw))
			if err != nil {
				LoggerFrom(r.Context()).Debug("token rejected", zap.Error(err))
				writeError(w, r, err)
				return
			}

			if slot, ok := r.Context().Value(callerSlotKey).(*leave.Caller); ok {
				*slot = caller
			}
			ctx := WithCaller(r.Context(), caller)
			ctx = context.WithValue(ctx, loggerKey, LoggerFrom(ctx).With(zap.String("user_id", caller.ID)))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// =============================================================================
// RATE LIMITING
// =============================================================================

// KeyedRateLimiter hands out one token bucket per key. Buckets untouched
// for longer than the idle window are dropped on a later lookup; an idle
// bucket has refilled anyway, so dropping it changes nothing for the key.
type KeyedRateLimiter struct {
	limiters  map[string]*keyedLimiter
	mu        sync.Mutex
	r         rate.Limit
	b         int
	idle      time.Duration
	lastSweep time.Time
	now       func() time.Time
}

type keyedLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

const defaultLimiterIdle = 10 * time.Minute

func NewKeyedRateLimiter(r rate.Limit, b int) *KeyedRateLimiter {
	return &KeyedRateLimiter{
		limiters:  make(map[string]*keyedLimiter),
		r:         r,
		b:         b,
		idle:      defaultLimiterIdle,
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

func (k *KeyedRateLimiter) GetLimiter(key string) *rate.Limiter {
	k.mu.Lock()
	defer k.mu.Unlock()

	now := k.now()
	if now.Sub(k.lastSweep) >= k.idle {
		k.sweep(now)
	}

	entry, exists := k.limiters[key]
	if !exists {
		entry = &keyedLimiter{limiter: rate.NewLimiter(k.r, k.b)}
		k.limiters[key] = entry
	}
	entry.lastSeen = now
	return entry.limiter
}

// Len reports how many keys currently hold a bucket.
func (k *KeyedRateLimiter) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.limiters)
}

func (k *KeyedRateLimiter) sweep(now time.Time) {
	for key, entry := range k.limiters {
		if now.Sub(entry.lastSeen) >= k.idle {
			delete(k.limiters, key)
		}
	}
	k.lastSweep = now
}

// RateLimitByCaller throttles per authenticated caller, falling back to the
// remote address. Must run after Authenticate.
func RateLimitByCaller(limiter *KeyedRateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.RemoteAddr
			if c, ok := CallerFrom(r.Context()); ok {
				key = "user:" + c.ID
			}
			if !limiter.GetLimiter(key).Allow() {
				writeFailure(w, http.StatusTooManyRequests, MsgTooManyReqs, nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
