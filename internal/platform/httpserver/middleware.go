package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prodline-labs/prodline-go/internal/platform/requestid"
)

const requestIDHeader = "X-Request-Id"

// Observer receives one call per finished request. route is the matched
// ServeMux pattern, or "unmatched".
type Observer interface {
	ObserveHTTP(method, route string, status int, elapsed time.Duration)
}

type Options struct {
	Service    string
	CORSOrigin string
	Observer   Observer
}

// Wrap applies, outermost first: panic recovery, request id, CORS (when
// CORSOrigin is set) and access logging.
func Wrap(logger *slog.Logger, opts Options, next http.Handler) http.Handler {
	h := accessLog(logger, opts.Observer, next)
	if opts.CORSOrigin != "" {
		h = cors(opts.CORSOrigin, h)
	}
	h = withRequestID(opts.Service, h)
	return recoverPanics(logger, h)
}

type ctxKeyRequestID struct{}

func RequestIDFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ctxKeyRequestID{}).(string)
	return v, ok
}

func withRequestID(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if id == "" {
			var err error
			if id, err = requestid.New(); err != nil {
				id = fmt.Sprintf("%s-%d", service, time.Now().UnixNano())
			}
			r.Header.Set(requestIDHeader, id)
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKeyRequestID{}, id)))
	})
}

func cors(origin string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Access-Control-Allow-Methods", "GET, POST, PATCH, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, "+requestIDHeader)
		h.Set("Access-Control-Expose-Headers", requestIDHeader)
		if origin != "*" {
			h.Add("Vary", "Origin")
		}
		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// responseRecorder captures the status and body size for the access log.
type responseRecorder struct {
	http.ResponseWriter
	status      int
	bytes       int
	wroteHeader bool
}

func (w *responseRecorder) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *responseRecorder) Write(p []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	n, err := w.ResponseWriter.Write(p)
	w.bytes += n
	return n, err
}

func (w *responseRecorder) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

func accessLog(logger *slog.Logger, observer Observer, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		elapsed := time.Since(start)

		route := routeOf(r)
		if observer != nil {
			observer.ObserveHTTP(r.Method, route, rw.status, elapsed)
		}

		requestID, _ := RequestIDFromContext(r.Context())
		level := slog.LevelInfo
		switch {
		case rw.status >= 500:
			level = slog.LevelError
		case rw.status >= 400:
			level = slog.LevelWarn
		}
		logger.LogAttrs(r.Context(), level, "http request",
			slog.String("request_id", requestID),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("route", route),
			slog.Int("status", rw.status),
			slog.Int("bytes", rw.bytes),
			slog.Int64("duration_ms", elapsed.Milliseconds()),
		)
	})
}

// routeOf strips the method prefix from the matched pattern.
func routeOf(r *http.Request) string {
	route := r.Pattern
	if route == "" {
		return "unmatched"
	}
	if i := strings.IndexByte(route, ' '); i >= 0 {
		route = route[i+1:]
	}
	return route
}

func recoverPanics(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			v := recover()
			if v == nil {
				return
			}
			if v == http.ErrAbortHandler {
				panic(v)
			}
			requestID := r.Header.Get(requestIDHeader)
			logger.Error("panic recovered", "request_id", requestID, "route", routeOf(r), "panic", fmt.Sprint(v))
			writeJSON(w, http.StatusInternalServerError, map[string]any{
				"error":      "internal_error",
				"message":    "Erro interno do servidor.",
				"request_id": requestID,
			})
		}()
		next.ServeHTTP(w, r)
	})
}
