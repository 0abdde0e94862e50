package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/FACorreiaa/go-user-accounts/internal/api"
	"github.com/FACorreiaa/go-user-accounts/internal/api/user"
)

const version = "1.0.0"

// Config contains dependencies needed for the router setup
type Config struct {
	ServiceName            string
	UserHandler            user.Handler
	AuthenticateMiddleware func(http.Handler) http.Handler
}

// SetupRouter initializes and configures the main application router.
// Server-wide middleware (logger, requestID, recoverer) are expected to be
// applied before mounting this router in main.go.
func SetupRouter(cfg *Config) chi.Router {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		api.WriteJSONResponse(w, r, http.StatusOK, map[string]string{
			"message": "Welcome to " + cfg.ServiceName,
			"health":  "/health",
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.WriteJSONResponse(w, r, http.StatusOK, map[string]string{
			"status":  "healthy",
			"service": cfg.ServiceName,
			"version": version,
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		// Public auth routes
		r.Group(func(r chi.Router) {
			r.Post("/auth/register", cfg.UserHandler.Register)
			r.Post("/auth/login", cfg.UserHandler.Login)
		})

		// Routes below require a valid bearer token
		r.Group(func(r chi.Router) {
			r.Use(cfg.AuthenticateMiddleware)

			r.Get("/users/me", cfg.UserHandler.GetCurrentUser)
			r.Put("/users/me", cfg.UserHandler.UpdateCurrentUser)
			r.Delete("/users/me", cfg.UserHandler.DeleteCurrentUser)
		})
	})

	return r
}
