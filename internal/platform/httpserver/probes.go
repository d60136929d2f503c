package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Healthz reports liveness only; it never touches dependencies.
func Healthz(service string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"service": service, "status": "ok"})
	}
}

// ReadinessCheck is one dependency probe. Timeout bounds a single run; zero
// means the request context alone.
type ReadinessCheck struct {
	Name    string
	Timeout time.Duration
	Check   func(context.Context) error
}

type checkResult struct {
	Name       string `json:"name"`
	Status     string `json:"status"`
	DurationMs int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

func (c ReadinessCheck) run(ctx context.Context) checkResult {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}
	start := time.Now()
	res := checkResult{Name: c.Name, Status: "ok"}
	if err := c.Check(ctx); err != nil {
		res.Status = "fail"
		res.Error = err.Error()
	}
	res.DurationMs = time.Since(start).Milliseconds()
	return res
}

// ReadyzWithChecks answers 200 "ready" when every check passes and 503
// "not_ready" otherwise, listing each result.
func ReadyzWithChecks(service string, checks ...ReadinessCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		results := make([]checkResult, 0, len(checks))
		code, status := http.StatusOK, "ready"
		for _, check := range checks {
			res := check.run(r.Context())
			if res.Status != "ok" {
				code, status = http.StatusServiceUnavailable, "not_ready"
			}
			results = append(results, res)
		}
		writeJSON(w, code, map[string]any{"service": service, "status": status, "checks": results})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
