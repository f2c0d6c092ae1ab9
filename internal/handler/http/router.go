package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type RouteRegistrar interface {
	RegisterRoutes(router chi.Router, authz Authorizer)
}

// Routes groups the handlers by the prefix they are mounted under.
type Routes struct {
	Cafe     []RouteRegistrar
	Students *StudentHandler
	// Media serves stored files; it strips its own prefix.
	Media http.Handler
}

// NewRouter builds the application router. authn attaches the caller's
// principal; authz enforces the policy per route.
func NewRouter(authn func(http.Handler) http.Handler, authz Authorizer, routes Routes) *chi.Mux {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	if routes.Media != nil {
		router.Handle("/media/*", routes.Media)
	}

	router.Route("/api", func(api chi.Router) {
		api.Use(authn)

		api.Route("/cafe", func(cafe chi.Router) {
			for _, h := range routes.Cafe {
				h.RegisterRoutes(cafe, authz)
			}
		})

		if routes.Students != nil {
			routes.Students.RegisterRoutes(api, authz)
		}
	})

	return router
}
