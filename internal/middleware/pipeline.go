package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/jmtsu/supablog/internal/respond"
)

// HeaderRequestID is the response header carrying the correlation id.
const HeaderRequestID = "X-Request-ID"

// RequestObserver records completed requests for metrics.
type RequestObserver interface {
	ObserveRequest(method, route string, status int, elapsed time.Duration)
}

// RequestID assigns a fresh correlation id before any other middleware runs.
// The response header is stamped up front so the id survives panics and early
// error exits.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set(HeaderRequestID, id)
		next.ServeHTTP(w, r.WithContext(WithRequestID(r.Context(), id)))
	})
}

// Logger emits the request started/completed pair. The completion event is
// deferred so it fires even when an inner handler panics, after the recoverer
// has translated the fault.
func Logger(logger *slog.Logger, observer RequestObserver) func(http.Handler) http.Handler {
	logger = logger.With(slog.String("component", "pipeline"))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := RequestIDFrom(r.Context())
			logger.Info("request started",
				slog.String("request_id", requestID),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("remote_addr", r.RemoteAddr))

			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				status := ww.Status()
				if status == 0 {
					status = http.StatusOK
				}
				logger.Info("request completed",
					slog.String("request_id", requestID),
					slog.Int("status_code", status),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path))
				if observer != nil {
					route := r.URL.Path
					if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
						route = rctx.RoutePattern()
					}
					observer.ObserveRequest(r.Method, route, status, time.Since(start))
				}
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

// Recoverer translates unhandled panics into a generic 500. The fault detail
// stays in the server log; clients under the API namespaces get the canonical
// JSON error body, everything else a plain text error.
func Recoverer(logger *slog.Logger) func(http.Handler) http.Handler {
	logger = logger.With(slog.String("component", "pipeline"))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil || rec == http.ErrAbortHandler {
					if rec != nil {
						panic(rec)
					}
					return
				}
				logger.Error("internal server error",
					slog.String("request_id", RequestIDFrom(r.Context())),
					slog.Any("error", rec),
					slog.String("stack", string(debug.Stack())))
				if isAPIPath(r.URL.Path) {
					respond.Error(w, http.StatusInternalServerError, "Internal server error")
					return
				}
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func isAPIPath(path string) bool {
	return strings.HasPrefix(path, "/api/") ||
		strings.HasPrefix(path, "/auth/") ||
		strings.HasPrefix(path, "/blog/api/")
}
