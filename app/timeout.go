package app

import (
	"context"
	"net/http"
	"time"

	"github.com/advdv/broute"
)

// DefaultDeadlineBuffer is the time reserved before the request timeout for writing an error response.
const DefaultDeadlineBuffer = 500 * time.Millisecond

// TimeoutConfig holds timeout configuration for the HTTP server.
type TimeoutConfig struct {
	// RequestTimeout bounds the handling of a single request, from BR_REQUEST_TIMEOUT.
	RequestTimeout time.Duration

	// DeadlineBuffer is subtracted from RequestTimeout. Defaults to DefaultDeadlineBuffer.
	DeadlineBuffer time.Duration
}

func (tc TimeoutConfig) effective() time.Duration {
	buffer := tc.DeadlineBuffer
	if buffer <= 0 {
		buffer = DefaultDeadlineBuffer
	}

	timeout := tc.RequestTimeout - buffer
	if timeout <= 0 {
		timeout = tc.RequestTimeout // fallback if buffer >= timeout
	}

	return timeout
}

// ServerTimeouts returns the http.Server timeout values. The header timeout is capped at 5 seconds, the
// others equal the request timeout minus the buffer.
func (tc TimeoutConfig) ServerTimeouts() (readHeaderTimeout, readTimeout, writeTimeout, idleTimeout time.Duration) {
	timeout := tc.effective()

	readHeaderTimeout = min(timeout, 5*time.Second)
	readTimeout = timeout
	writeTimeout = timeout
	idleTimeout = timeout

	return
}

// WithRequestDeadline returns middleware that bounds the request context by the effective timeout, so
// handlers and downstream calls give up before the server cuts the connection.
func WithRequestDeadline(tc TimeoutConfig) broute.Middleware {
	timeout := tc.effective()

	return func(next broute.BareHandler) broute.BareHandler {
		return broute.BareHandlerFunc(func(w broute.ResponseWriter, r *http.Request) error {
			if timeout <= 0 {
				return next.ServeBareHTTP(w, r)
			}

			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			return next.ServeBareHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestRemainingTime returns the duration until the request context deadline.
// Returns 0 if no deadline is set or if the deadline has passed.
func RequestRemainingTime(ctx context.Context) time.Duration {
	deadline, ok := ctx.Deadline()
	if !ok {
		return 0
	}

	return max(time.Until(deadline), 0)
}
