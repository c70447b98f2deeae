package middleware

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/image-tagger/internal/api/shared"
	"github.com/phrazzld/image-tagger/internal/platform/logger"
)

// Trace adds a trace ID to the request context, and a logger carrying it.
// It should be applied early in the middleware chain so later handlers can
// correlate their logs and error responses.
func Trace(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := shared.SetTraceID(r.Context())
			traceID := shared.GetTraceID(ctx)

			log := base.With(slog.String("trace_id", traceID))
			ctx = logger.WithLogger(ctx, log)

			log.DebugContext(ctx, "request started",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("remote_addr", r.RemoteAddr))

			w.Header().Set("X-Trace-ID", traceID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
