// Package httptransport is the thin HTTP layer over the flow controller and
// the cart gate. Handlers parse input at the trust boundary, call one service
// method and render the result or the error envelope.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"agegate/internal/platform/metrics"
	"agegate/internal/platform/middleware"
	dErrors "agegate/pkg/domain-errors"
	"agegate/pkg/platform/httputil"
)

// Registrar mounts a handler's routes.
type Registrar interface {
	Register(r chi.Router)
}

type RouterConfig struct {
	// AllowedOrigin is the storefront origin allowed to call with
	// credentials. Empty disables CORS.
	AllowedOrigin string
	Timeout       time.Duration
	Metrics       *metrics.Metrics
	Logger        *slog.Logger
}

// NewRouter builds the middleware chain and mounts every handler under it.
// /metrics sits outside the request timeout.
func NewRouter(cfg RouterConfig, handlers ...Registrar) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.ClientMetadata)
	r.Use(middleware.Logger(cfg.Logger))
	if cfg.AllowedOrigin != "" {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{cfg.AllowedOrigin},
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
	r.Use(middleware.LatencyMiddleware(cfg.Metrics))

	r.Handle("/metrics", promhttp.Handler())
	r.Group(func(r chi.Router) {
		if cfg.Timeout > 0 {
			r.Use(middleware.Timeout(cfg.Timeout))
		}
		for _, h := range handlers {
			h.Register(r)
		}
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "route not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusMethodNotAllowed, httputil.ErrorResponse{Error: "method_not_allowed"})
	})
	return r
}
