package api

import (
    "bufio"
    "errors"
    "fmt"
    "net"
    "net/http"
    "strconv"
    "time"

    "github.com/go-chi/chi/v5"

    "deliverydesk/internal/logger"
    "deliverydesk/internal/metrics"
)

type statusRecorder struct {
    http.ResponseWriter
    status int
}

func (r *statusRecorder) WriteHeader(code int) {
    r.status = code
    r.ResponseWriter.WriteHeader(code)
}

// Flush keeps SSE working through the recorder.
func (r *statusRecorder) Flush() {
    if f, ok := r.ResponseWriter.(http.Flusher); ok { f.Flush() }
}

func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
    h, ok := r.ResponseWriter.(http.Hijacker)
    if !ok { return nil, nil, errors.New("hijack not supported") }
    r.status = http.StatusSwitchingProtocols
    return h.Hijack()
}

func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

// instrument logs each request and records it in the HTTP metrics under its route pattern.
func instrument(log *logger.Logger) func(http.Handler) http.Handler {
    return func(next http.Handler) http.Handler {
        return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
            ctx := log.WithFields(r.Context(), map[string]any{"method": r.Method, "path": r.URL.Path})
            rec := &statusRecorder{ResponseWriter: w}
            start := time.Now()
            next.ServeHTTP(rec, r.WithContext(ctx))
            if rec.status == 0 { rec.status = http.StatusOK }
            dur := time.Since(start)

            route := r.URL.Path
            if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
                route = rc.RoutePattern()
            }
            code := strconv.Itoa(rec.status)
            metrics.HTTPRequests.WithLabelValues(r.Method, route, code).Inc()
            metrics.HTTPDuration.WithLabelValues(r.Method, route, code).Observe(dur.Seconds())
            log.Debug(log.WithFields(ctx, map[string]any{"status": rec.status, "duration_ms": dur.Milliseconds()}), "request complete")
        })
    }
}

func recoverer(log *logger.Logger) func(http.Handler) http.Handler {
    return func(next http.Handler) http.Handler {
        return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
            defer func() {
                if rec := recover(); rec != nil {
                    if rec == http.ErrAbortHandler { panic(rec) }
                    log.Error(r.Context(), "panic recovered", fmt.Errorf("panic: %v", rec))
                    writeProblem(w, http.StatusInternalServerError, "Internal Error", "", r.URL.Path)
                }
            }()
            next.ServeHTTP(w, r)
        })
    }
}
