package middleware

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/phorium/phorium/internal/cache"
)

// UserIDHeader carries the caller's user id for per-user limits and logs.
const UserIDHeader = "X-User-ID"

// ErrUserMismatch is returned when the body, header and query name different users.
var ErrUserMismatch = errors.New("user_id in body, X-User-ID header and query must match")

// ResolveUserID returns the user a generation is charged to: the body
// user_id, then the X-User-ID header, then the user_id query parameter.
// Every non-empty source must name the same user.
func ResolveUserID(r *http.Request, bodyUserID string) (string, error) {
	var resolved string
	for _, candidate := range []string{
		bodyUserID,
		r.Header.Get(UserIDHeader),
		r.URL.Query().Get("user_id"),
	} {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" {
			continue
		}
		if resolved != "" && candidate != resolved {
			return "", ErrUserMismatch
		}
		if resolved == "" {
			resolved = candidate
		}
	}
	return resolved, nil
}

// RateLimiter checks token buckets.
type RateLimiter interface {
	CheckGenerationRateLimit(ctx context.Context, userID string, ratePerMinute, burst int) (*cache.RateLimitResult, error)
	CheckIPRateLimit(ctx context.Context, ip string, ratePerMinute, burst int) (*cache.RateLimitResult, error)
}

// RateLimitConfig holds configuration for rate limiting middleware.
type RateLimitConfig struct {
	Logger  *slog.Logger
	Limiter RateLimiter

	// Per-user generation budget; zero disables.
	GenerationPerMinute int
	GenerationBurst     int

	// Per-IP budget for the access code and admin secret endpoints; zero disables.
	GatePerMinute int
	GateBurst     int
}

// RateLimitGeneration limits generation requests per charged user, resolved
// with ResolveUserID from the JSON body, header and query. The body is
// restored for the handler. Requests naming no user are keyed by client IP.
func RateLimitGeneration(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.GenerationPerMinute <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			bodyUserID, err := peekBodyUserID(r)
			if err != nil {
				var tooLarge *http.MaxBytesError
				if errors.As(err, &tooLarge) {
					writeError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "Request body too large")
					return
				}
				writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
				return
			}

			key, err := ResolveUserID(r, bodyUserID)
			if err != nil {
				writeError(w, http.StatusBadRequest, "USER_MISMATCH", err.Error())
				return
			}
			if key == "" {
				key = "ip:" + clientIP(r)
			}

			result, err := cfg.Limiter.CheckGenerationRateLimit(r.Context(), key, cfg.GenerationPerMinute, cfg.GenerationBurst)
			if !allow(cfg.Logger, w, r, "generation", cfg.GenerationPerMinute, result, err) {
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RateLimitGate limits secret guessing per client IP.
func RateLimitGate(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.GatePerMinute <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			result, err := cfg.Limiter.CheckIPRateLimit(r.Context(), clientIP(r), cfg.GatePerMinute, cfg.GateBurst)
			if !allow(cfg.Logger, w, r, "gate", cfg.GatePerMinute, result, err) {
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// peekBodyUserID reads user_id from a JSON body and puts the body back.
func peekBodyUserID(r *http.Request) (string, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return "", nil
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return "", err
	}
	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(body))

	return gjson.GetBytes(body, "user_id").String(), nil
}

// allow applies a limiter result. Limiter errors fail open.
func allow(logger *slog.Logger, w http.ResponseWriter, r *http.Request, kind string, limit int, result *cache.RateLimitResult, err error) bool {
	if err != nil || result == nil {
		if logger != nil && err != nil {
			logger.Error("rate limit check failed",
				slog.String("type", kind),
				slog.String("error", err.Error()),
			)
		}
		return true
	}

	setRateLimitHeaders(w, limit, result.Remaining, result.ResetAt)
	if result.Allowed {
		return true
	}

	retryAfter := int(result.RetryAfter.Seconds())
	if retryAfter < 1 {
		retryAfter = 1
	}

	if logger != nil {
		logger.Warn("rate limit exceeded",
			slog.String("type", kind),
			slog.String("endpoint", r.Method+" "+r.URL.Path),
			slog.Int("retry_after_seconds", retryAfter),
			slog.String("request_id", GetRequestID(r.Context())),
		)
	}

	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	writeError(w, http.StatusTooManyRequests, "RATE_LIMITED",
		fmt.Sprintf("Rate limit exceeded. Retry after %d seconds.", retryAfter))
	return false
}

func setRateLimitHeaders(w http.ResponseWriter, limit int, remaining int64, resetAt time.Time) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))
}

// clientIP returns the host part of RemoteAddr. chi's RealIP runs first
// and has already applied X-Forwarded-For / X-Real-IP.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
