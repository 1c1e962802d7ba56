package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/okian/ethos/pkg/logger"
)

// MetricsMiddleware records request count and latency labelled by the
// matched route pattern, so ids in the path do not explode cardinality.
func (s *Server) MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(wrapped, r)

		status := statusOrOK(wrapped)
		s.metrics.RecordHTTPRequest(routePattern(r), r.Method, strconv.Itoa(status),
			float64(time.Since(start).Microseconds())/1000)
	})
}

// RequestLog logs every request at debug level and client or server errors
// at warn.
func (s *Server) RequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(wrapped, r)

		status := statusOrOK(wrapped)
		fields := []logger.Field{
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.Int("status", status),
			logger.Int("bytes", wrapped.BytesWritten()),
			logger.Duration("duration", time.Since(start)),
			logger.String("requestID", chimw.GetReqID(r.Context())),
		}
		if status >= http.StatusBadRequest {
			s.logger.Warn(r.Context(), "request", fields...)
			return
		}
		s.logger.Debug(r.Context(), "request", fields...)
	})
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

// statusOrOK treats a handler that never called WriteHeader as 200.
func statusOrOK(w chimw.WrapResponseWriter) int {
	if st := w.Status(); st != 0 {
		return st
	}
	return http.StatusOK
}
