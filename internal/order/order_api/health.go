package order_api

import (
	"context"
	"net/http"
	"sort"
	"time"

	"sooicy-orders/internal/logger"
	"sooicy-orders/internal/utils"

	"github.com/go-chi/chi/v5/middleware"
)

// HealthCheck reports whether one dependency is reachable.
type HealthCheck func(ctx context.Context) error

const healthTimeout = 2 * time.Second

// Health runs every check and answers 503 if any of them fails.
func Health(log *logger.Logger, checks map[string]HealthCheck) http.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		status := map[string]string{}
		healthy := true
		for _, name := range names {
			if err := checks[name](ctx); err != nil {
				healthy = false
				status[name] = err.Error()
				log.Warn("HEALTH", name+": "+err.Error())
				continue
			}
			status[name] = "ok"
		}

		code, body := http.StatusOK, utils.SuccessResponse("healthy", status)
		if !healthy {
			code, body = http.StatusServiceUnavailable, utils.APIResponse{Success: false, Message: "unhealthy", Data: status, Timestamp: time.Now().UTC()}
		}
		if err := utils.WriteJSON(w, code, body); err != nil {
			log.Error("HEALTH", err.Error())
		}
	}
}

// RequestLogger logs method, path, status and latency of every request.
func RequestLogger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			log.LogAPI(r.Method, r.URL.Path, status, time.Since(start))
		})
	}
}
