package router

import (
	"encoding/json"
	"net/http"

	"github.com/funneldesk/funnel-api/internal/config"
	"github.com/funneldesk/funnel-api/internal/http/handler"
	"github.com/funneldesk/funnel-api/internal/http/middleware"
	"github.com/funneldesk/funnel-api/internal/store"
	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"
)

type Router struct {
	cfg              *config.Config
	logger           *zap.Logger
	store            store.Store
	rateLimiter      *middleware.RateLimiter
	leadHandler      *handler.LeadHandler
	stageHandler     *handler.StageHandler
	strategyHandler  *handler.StrategyHandler
	activityHandler  *handler.ActivityHandler
	dashboardHandler *handler.DashboardHandler
	exportHandler    *handler.ExportHandler
}

func NewRouter(
	cfg *config.Config,
	logger *zap.Logger,
	st store.Store,
	rateLimiter *middleware.RateLimiter,
	leadHandler *handler.LeadHandler,
	stageHandler *handler.StageHandler,
	strategyHandler *handler.StrategyHandler,
	activityHandler *handler.ActivityHandler,
	dashboardHandler *handler.DashboardHandler,
	exportHandler *handler.ExportHandler,
) *Router {
	return &Router{
		cfg:              cfg,
		logger:           logger,
		store:            st,
		rateLimiter:      rateLimiter,
		leadHandler:      leadHandler,
		stageHandler:     stageHandler,
		strategyHandler:  strategyHandler,
		activityHandler:  activityHandler,
		dashboardHandler: dashboardHandler,
		exportHandler:    exportHandler,
	}
}

func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(rt.logger))
	r.Use(middleware.Logging(rt.logger))
	r.Use(middleware.SecurityHeaders(&rt.cfg.Security))
	r.Use(middleware.CORS(&rt.cfg.CORS, rt.cfg.App.Environment, rt.logger))
	r.Use(rt.rateLimiter.Limit)

	// Liveness probe
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	// Readiness probe for the persistence backend
	r.Get("/health/store", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if hc, ok := rt.store.(store.HealthChecker); ok {
			if err := hc.HealthCheck(r.Context()); err != nil {
				rt.logger.Error("store health check failed", zap.Error(err))
				w.WriteHeader(http.StatusServiceUnavailable)
				_ = json.NewEncoder(w).Encode(map[string]interface{}{
					"status":  "unhealthy",
					"error":   err.Error(),
					"service": "store",
				})
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  "healthy",
			"service": "store",
		})
	})

	if rt.cfg.Server.EnableSwagger {
		r.Get("/swagger/*", httpSwagger.Handler(
			httpSwagger.URL("/swagger/doc.json"),
		))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/board", rt.stageHandler.Board)

		r.Route("/leads", func(r chi.Router) {
			r.Get("/", rt.leadHandler.List)
			r.Post("/", rt.leadHandler.Create)
			r.Get("/selection", rt.leadHandler.Selection)
			r.Delete("/selection", rt.leadHandler.ClearSelection)
			r.Post("/bulk/move", rt.leadHandler.BulkMove)
			r.Post("/bulk/delete", rt.leadHandler.BulkDelete)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", rt.leadHandler.Get)
				r.Patch("/", rt.leadHandler.Update)
				r.Delete("/", rt.leadHandler.Delete)
				r.Post("/move", rt.leadHandler.Move)
				r.Post("/reorder", rt.leadHandler.Reorder)
				r.Put("/selection", rt.leadHandler.ToggleSelection)
			})
		})

		r.Route("/stages", func(r chi.Router) {
			r.Get("/", rt.stageHandler.List)
			r.Post("/", rt.stageHandler.Create)

			r.Route("/{key}", func(r chi.Router) {
				r.Patch("/", rt.stageHandler.Update)
				r.Delete("/", rt.stageHandler.Delete)
				r.Post("/reorder", rt.stageHandler.Reorder)
			})
		})

		r.Route("/strategies", func(r chi.Router) {
			r.Get("/", rt.strategyHandler.List)
			r.Post("/", rt.strategyHandler.Create)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", rt.strategyHandler.Get)
				r.Patch("/", rt.strategyHandler.Update)
				r.Delete("/", rt.strategyHandler.Delete)
			})
		})

		r.Get("/activity", rt.activityHandler.Recent)
		r.Get("/dashboard/analytics", rt.dashboardHandler.Analytics)

		r.Route("/export", func(r chi.Router) {
			r.Get("/json", rt.exportHandler.JSON)
			r.Get("/csv", rt.exportHandler.CSV)
		})
	})

	return r
}
