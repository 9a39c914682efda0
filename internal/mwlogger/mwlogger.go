// Package mwlogger attaches a request-scoped logger (with request id) to every request
package mwlogger

import (
	"context"
	"net/http"
	"time"

	"github.com/wb-go/wbf/helpers"
	"github.com/wb-go/wbf/zlog"
)

const RequestIDHeader = "X-Request-Id"

type loggerKey struct{}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// NewMWLogger wraps next: request id is taken from X-Request-Id or generated,
// echoed back in the response, and a logger carrying it is put into the request context.
func NewMWLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get(RequestIDHeader)
		if reqID == "" {
			reqID = helpers.CreateUUID()
		}
		w.Header().Set(RequestIDHeader, reqID)

		logger := zlog.Logger.With().
			Str("request_id", reqID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Logger()

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(rec, r.WithContext(WithLogger(r.Context(), logger)))

		logger.Info().
			Int("status", rec.status).
			Dur("took", time.Since(start)).
			Msg("Request served")
	})
}

func WithLogger(ctx context.Context, logger zlog.Zerolog) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// LoggerFromContext returns the request logger, or the global one outside of a request.
func LoggerFromContext(ctx context.Context) zlog.Zerolog {
	if ctx == nil {
		return zlog.Logger
	}
	if l, ok := ctx.Value(loggerKey{}).(zlog.Zerolog); ok {
		return l
	}
	return zlog.Logger
}
