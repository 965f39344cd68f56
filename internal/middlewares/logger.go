package middlewares

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type LoggerKey struct{}

// Logger attaches a request scoped zap logger to the context and logs the outcome of
// every request once it completes.
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := r.Header.Get(middleware.RequestIDHeader)
		if requestID == "" {
			requestID = middleware.GetReqID(r.Context())
		}

		logger := zap.L().With(
			zap.String("request_id", requestID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
		)
		if spanContext := trace.SpanContextFromContext(r.Context()); spanContext.HasTraceID() {
			logger = logger.With(zap.String("trace_id", spanContext.TraceID().String()))
		}

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		ctx := context.WithValue(r.Context(), LoggerKey{}, logger)
		next.ServeHTTP(ww, r.WithContext(ctx))

		status := ww.Status()
		fields := []zap.Field{
			zap.Int("status", status),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
		}
		switch {
		case status >= http.StatusInternalServerError:
			logger.Error("Request failed", fields...)
		case status >= http.StatusBadRequest:
			logger.Info("Request rejected", fields...)
		default:
			logger.Debug("Request served", fields...)
		}
	})
}

// GetLogger returns the request logger, or the global one outside of a request.
func GetLogger(r *http.Request) *zap.Logger {
	if logger, ok := r.Context().Value(LoggerKey{}).(*zap.Logger); ok {
		return logger
	}
	return zap.L()
}
