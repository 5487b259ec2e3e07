package http

import (
	"encoding/json"
	stdhttp "net/http"

	"github.com/faeln1/go-onebot-guard/internal/app/controllers"
	"github.com/faeln1/go-onebot-guard/internal/platform/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	waLog "go.mau.fi/whatsmeow/util/log"
)

const (
	serviceName    = "OneBot Guard"
	serviceVersion = "0.1.0"
)

type RouterConfig struct {
	OneBotCtrl    *controllers.OneBotController
	BlacklistCtrl *controllers.BlacklistController
	WelcomeCtrl   *controllers.WelcomeController
	StatusCtrl    *controllers.StatusController
	Logger        waLog.Logger
	MasterToken   string
	EventSecret   string
	// Metrics defaults to the prometheus default registry.
	Metrics stdhttp.Handler
}

func NewRouter(cfg RouterConfig) stdhttp.Handler {
	mux := stdhttp.NewServeMux()

	mux.HandleFunc("GET /{$}", func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		writeJSON(w, stdhttp.StatusOK, map[string]any{
			"status":      "ok",
			"name":        serviceName,
			"version":     serviceVersion,
			"description": "Blacklist enforcement and welcome messages for OneBot v11 groups",
			"endpoints": map[string]string{
				"health":  "/health",
				"metrics": "/metrics",
				"events":  "/onebot/event",
				"admin":   "/api",
			},
		})
	})

	mux.HandleFunc("GET /health", func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		writeJSON(w, stdhttp.StatusOK, map[string]string{"status": "ok"})
	})

	metrics := cfg.Metrics
	if metrics == nil {
		metrics = promhttp.Handler()
	}
	mux.Handle("GET /metrics", metrics)

	if cfg.OneBotCtrl != nil {
		mux.Handle("POST /onebot/event",
			middleware.OneBotSignature(cfg.EventSecret)(stdhttp.HandlerFunc(cfg.OneBotCtrl.Event)))
	}

	// Admin API (master token)
	api := stdhttp.NewServeMux()
	if cfg.BlacklistCtrl != nil {
		api.HandleFunc("GET /api/blacklist", cfg.BlacklistCtrl.List)
		api.HandleFunc("POST /api/blacklist", cfg.BlacklistCtrl.Create)
		api.HandleFunc("GET /api/blacklist/{user_id}", cfg.BlacklistCtrl.Get)
		api.HandleFunc("DELETE /api/blacklist/{user_id}", cfg.BlacklistCtrl.Delete)
	}
	if cfg.WelcomeCtrl != nil {
		api.HandleFunc("GET /api/welcome/{group_id}", cfg.WelcomeCtrl.Get)
		api.HandleFunc("PUT /api/welcome/{group_id}", cfg.WelcomeCtrl.Set)
		api.HandleFunc("DELETE /api/welcome/{group_id}", cfg.WelcomeCtrl.Delete)
	}
	if cfg.StatusCtrl != nil {
		api.HandleFunc("GET /api/onebot/status", cfg.StatusCtrl.OneBot)
	}
	mux.Handle("/api/", middleware.BearerAuth(middleware.MasterToken(cfg.MasterToken))(api))

	var handler stdhttp.Handler = mux
	handler = middleware.Logging(cfg.Logger)(handler)
	handler = middleware.CORS(handler)
	return handler
}

func writeJSON(w stdhttp.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
