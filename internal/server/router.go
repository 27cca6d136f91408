package server

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/onemec/gmeet-slash-cmd/internal/instrumentation"
	"github.com/onemec/gmeet-slash-cmd/internal/logging"
)

// maxCommandBody bounds the slash command form body.
const maxCommandBody = 64 << 10

// NewRouter returns the HTTP handler for the three request legs and the
// health endpoints. health may be nil.
func NewRouter(h *Handler, health *HealthChecker, metrics *instrumentation.Metrics) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("POST "+instrumentation.RouteCreate, legHandler(LegCommand, func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxCommandBody))
		if err != nil {
			h.logger.InfoContext(r.Context(), "failed to read command body",
				slog.String(logging.KeyLeg, LegCommand), logging.Err(err))
			textResponse(http.StatusBadRequest, bodyBadRequest).Write(w)
			return
		}
		h.Command(r.Context(), string(body)).Write(w)
	}))
	mux.Handle("GET "+instrumentation.RouteAuth, legHandler(LegAuth, func(w http.ResponseWriter, r *http.Request) {
		h.AuthRedirect(r.Context(), r.URL.Query()).Write(w)
	}))
	mux.Handle("GET "+instrumentation.RouteCallback, legHandler(LegCallback, func(w http.ResponseWriter, r *http.Request) {
		h.Callback(r.Context(), r.URL.Query()).Write(w)
	}))

	if health != nil {
		health.RegisterHealthEndpoints(mux)
	}

	return MetricsMiddleware(metrics)(mux)
}

// legHandler runs fn inside a server span for the leg.
func legHandler(leg string, fn http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := instrumentation.StartLegSpan(r.Context(), leg)
		defer span.End()

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		fn(rec, r.WithContext(ctx))

		if rec.status >= http.StatusInternalServerError {
			instrumentation.SetSpanError(span, errStatus(rec.status))
			return
		}
		instrumentation.SetSpanSuccess(span)
	})
}

// MetricsMiddleware records http_requests_total and
// http_request_duration_seconds for every request.
func MetricsMiddleware(metrics *instrumentation.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			metrics.RecordHTTPRequest(r.Context(), r.Method, r.URL.Path, rec.status, time.Since(start))
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(code int) {
	if !r.wroteHeader {
		r.status = code
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

type errStatus int

func (e errStatus) Error() string {
	return http.StatusText(int(e))
}
