package logging

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// Middleware logs one entry per request and exposes a request-scoped logger
// through FromContext.
func Middleware(logger *Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			reqLogger := logger.WithFields(map[string]interface{}{
				"request_id": middleware.GetReqID(r.Context()),
				"method":     r.Method,
				"path":       r.URL.Path,
				"remote":     r.RemoteAddr,
			})
			if reqLogger.Enabled(DebugLevel) {
				reqLogger.Debug("Request started")
			}

			next.ServeHTTP(ww, r.WithContext((&CtxLogger{reqLogger}).WithContext(r.Context())))

			status := ww.Status()
			fields := map[string]interface{}{
				"status":     status,
				"bytes":      ww.BytesWritten(),
				"latency_ms": float64(time.Since(start).Microseconds()) / 1000.0,
				"user_agent": r.UserAgent(),
				"protocol":   r.Proto,
			}
			if status >= http.StatusBadRequest {
				fields["error"] = http.StatusText(status)
			}
			reqLogger.Info("Request completed", fields)
		})
	}
}
