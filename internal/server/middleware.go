package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/releaseradar/internal/repositories"
	"github.com/desertthunder/releaseradar/internal/shared"
	"github.com/desertthunder/releaseradar/internal/tasks"
)

// statusRecorder captures the response status for request logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Logging returns middleware that logs each request with method, path,
// status, and duration.
func Logging(logger *log.Logger) Middleware {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(recorder, r)

			logger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", recorder.status,
				"duration", time.Since(start),
			)
		})
	}
}

// BearerAuth returns middleware that requires the static admin token as a
// bearer credential. An empty configured token disables the check, for local
// single-user deployments.
func BearerAuth(token string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token != "" {
				header := r.Header.Get("Authorization")
				provided, ok := strings.CutPrefix(header, "Bearer ")
				if !ok || provided != token {
					writeError(w, http.StatusUnauthorized, "unauthorized")
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// New builds the administrative HTTP server.
//
// The health endpoint is registered before the auth middleware so probes
// never need the admin token; middleware snapshots apply at registration
// time in [BasicRouter].
func New(config shared.ServerConfig, scheduler *tasks.Scheduler, entries *repositories.ExecutionLogRepository, logger *log.Logger) *http.Server {
	router := NewBasicRouter()
	router.Use(Logging(logger))
	router.Handler(NewHealthHandler())

	router.Use(BearerAuth(config.AdminToken))
	router.Handler(NewJobsHandler(scheduler, entries, logger))

	return &http.Server{
		Addr:    fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler: router,
	}
}
