package server

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	apierrors "github.com/maruel/inkzone/internal/errors"
	"github.com/maruel/inkzone/internal/metrics"
	"github.com/maruel/inkzone/internal/server/ratelimit"
)

// AdminHeader carries the admin passphrase on admin requests.
const AdminHeader = "X-Admin-Passphrase"

// AdminGate rejects requests whose AdminHeader does not equal passphrase.
// It is a plaintext comparison meant to keep casual visitors out of the
// console, not an access control mechanism.
func AdminGate(passphrase string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get(AdminHeader) != passphrase {
				writeAPIError(w, apierrors.Unauthorized())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimit limits requests per client IP. A nil limiter disables it.
func RateLimit(l *ratelimit.Limiter, name string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if l == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			result := l.Allow(ratelimit.ClientIP(r) + ":" + name)
			ratelimit.WriteHeaders(w, result)
			if !result.Allowed {
				writeAPIError(w, apierrors.RateLimitExceeded(int(result.RetryAfter.Seconds())))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// MaxBody limits the size of request bodies.
func MaxBody(n int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if n > 0 {
				r.Body = http.MaxBytesReader(w, r.Body, n)
			}
			next.ServeHTTP(w, r)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

// Instrument counts requests and records their latency by route pattern, and
// logs each request at debug level.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		pattern := r.Pattern
		if pattern == "" {
			pattern = "unmatched"
		}
		d := time.Since(start)
		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, pattern, strconv.Itoa(rec.status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(r.Method, pattern).Observe(d.Seconds())
		slog.DebugContext(r.Context(), "http", "method", r.Method, "path", r.URL.Path, "status", rec.status, "dur", d, "ip", ratelimit.ClientIP(r))
	})
}
