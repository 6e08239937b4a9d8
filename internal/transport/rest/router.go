package rest

import (
	"net/http"
	"os"

	"github.com/gorilla/mux"

	"github.com/rewrz/word-soul/internal/service"
	"github.com/rewrz/word-soul/internal/transport/rest/handler"
	"github.com/rewrz/word-soul/internal/transport/rest/middleware"
)

// Container holds all dependencies for the router
type Container struct {
	AuthService    *service.AuthService
	WorldService   *service.WorldService
	SessionService *service.SessionService
	SettingService *service.SettingService
}

// NewRouter creates the API router with all endpoints
func NewRouter(c *Container) http.Handler {
	r := mux.NewRouter()

	// Initialize handlers
	authHandler := handler.NewAuthHandler(c.AuthService)
	worldHandler := handler.NewWorldHandler(c.WorldService)
	sessionHandler := handler.NewSessionHandler(c.SessionService)
	settingHandler := handler.NewSettingHandler(c.SettingService)

	// Initialize middleware
	authMW := middleware.NewAuthMiddleware(c.AuthService)

	// CORS middleware (apply first)
	r.Use(corsMiddleware)

	api := r.PathPrefix("/api").Subrouter()

	// Public routes
	api.HandleFunc("/register", authHandler.Register).Methods("POST", "OPTIONS")
	api.HandleFunc("/login", authHandler.Login).Methods("POST", "OPTIONS")
	api.HandleFunc("/refresh", authHandler.Refresh).Methods("POST", "OPTIONS")
	api.HandleFunc("/logout", authHandler.Logout).Methods("POST", "OPTIONS")

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// Authenticated routes
	authed := api.NewRoute().Subrouter()
	authed.Use(authMW.RequireUser)

	authed.HandleFunc("/worlds", worldHandler.Create).Methods("POST", "OPTIONS")
	authed.HandleFunc("/worlds/assist", worldHandler.Assist).Methods("POST", "OPTIONS")

	authed.HandleFunc("/sessions", sessionHandler.List).Methods("GET", "OPTIONS")
	authed.HandleFunc("/sessions/{sessionId}", sessionHandler.Get).Methods("GET", "OPTIONS")
	authed.HandleFunc("/sessions/{sessionId}", sessionHandler.Delete).Methods("DELETE", "OPTIONS")
	authed.HandleFunc("/sessions/{sessionId}/action", sessionHandler.Action).Methods("POST", "OPTIONS")
	authed.HandleFunc("/sessions/{sessionId}/set-ai-config", sessionHandler.SetAIConfig).Methods("POST", "OPTIONS")
	authed.HandleFunc("/sessions/{sessionId}/update_narrative", sessionHandler.UpdateNarrative).Methods("POST", "OPTIONS")

	authed.HandleFunc("/ai-configs", settingHandler.List).Methods("GET", "OPTIONS")
	authed.HandleFunc("/ai-configs", settingHandler.Create).Methods("POST", "OPTIONS")
	authed.HandleFunc("/ai-configs/{configId}", settingHandler.Update).Methods("PUT", "OPTIONS")
	authed.HandleFunc("/ai-configs/{configId}", settingHandler.Delete).Methods("DELETE", "OPTIONS")

	return r
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowedOrigins := os.Getenv("CORS_ALLOWED_ORIGINS")
		if allowedOrigins == "" {
			allowedOrigins = "*"
		}

		allowedMethods := os.Getenv("CORS_ALLOWED_METHODS")
		if allowedMethods == "" {
			allowedMethods = "GET, POST, PUT, DELETE, OPTIONS"
		}

		allowedHeaders := os.Getenv("CORS_ALLOWED_HEADERS")
		if allowedHeaders == "" {
			allowedHeaders = "Content-Type, Authorization"
		}

		w.Header().Set("Access-Control-Allow-Origin", allowedOrigins)
		w.Header().Set("Access-Control-Allow-Methods", allowedMethods)
		w.Header().Set("Access-Control-Allow-Headers", allowedHeaders)

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
