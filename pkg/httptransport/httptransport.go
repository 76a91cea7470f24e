// Package httptransport provides composable http.RoundTripper decorators for
// outgoing requests: request-id stamping, throttling and call logging.
package httptransport

import (
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Middleware wraps an http.RoundTripper with extra behaviour.
type Middleware func(http.RoundTripper) http.RoundTripper

// Chain applies middlewares to base so that the first middleware listed is
// the outermost one. A nil base means http.DefaultTransport.
func Chain(base http.RoundTripper, mws ...Middleware) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	for i := len(mws) - 1; i >= 0; i-- {
		base = mws[i](base)
	}
	return base
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// RequestID returns a middleware that stamps every outgoing request with an
// X-Request-ID header. A valid value already set by the caller is kept;
// otherwise a new UUID v4 is generated. Valid means non-empty, at most 128
// bytes and printable ASCII only.
func RequestID() Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return roundTripperFunc(func(req *http.Request) (*http.Response, error) {
			if !isValidRequestID(req.Header.Get("X-Request-ID")) {
				req = req.Clone(req.Context())
				req.Header.Set("X-Request-ID", uuid.New().String())
			}
			return next.RoundTrip(req)
		})
	}
}

// isValidRequestID checks that id is non-empty, at most 128 bytes, and
// contains only printable ASCII (0x20-0x7E).
func isValidRequestID(id string) bool {
	if len(id) == 0 || len(id) > 128 {
		return false
	}
	for i := range len(id) {
		if id[i] < 0x20 || id[i] > 0x7E {
			return false
		}
	}
	return true
}

// RateLimit returns a middleware that delays each request through limiter.
// A nil limiter disables throttling.
func RateLimit(limiter *rate.Limiter) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		if limiter == nil {
			return next
		}
		return roundTripperFunc(func(req *http.Request) (*http.Response, error) {
			if err := limiter.Wait(req.Context()); err != nil {
				return nil, errors.Wrap(err, "rate limit")
			}
			return next.RoundTrip(req)
		})
	}
}

// Logging returns a middleware that debug-logs every call with its method,
// path, status and duration. The logger comes from the request context.
func Logging() Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return roundTripperFunc(func(req *http.Request) (*http.Response, error) {
			start := time.Now()
			resp, err := next.RoundTrip(req)

			fields := []zap.Field{
				zap.String("method", req.Method),
				zap.String("path", req.URL.Path),
				zap.Duration("duration", time.Since(start)),
			}
			if err != nil {
				fields = append(fields, zap.Error(err))
			} else {
				fields = append(fields, zap.Int("status", resp.StatusCode))
			}
			zctx.From(req.Context()).Debug("api call", fields...)

			return resp, err
		})
	}
}
