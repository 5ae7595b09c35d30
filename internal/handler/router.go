package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	custommiddleware "github.com/soundcu/finance-copilot/internal/middleware"
)

// SetupRouter configures the HTTP routes and middleware of the co-pilot API.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Get("/api/products", h.GetProducts)

	r.Route("/api/member", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)

		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)

			r.Get("/profile", h.GetProfile)
			r.Put("/profile", h.UpdateProfile)

			r.Get("/goals", h.GetGoals)
			r.Post("/goals", h.CreateGoal)
			r.Get("/goals/{goalID}", h.GetGoal)
			r.Put("/goals/{goalID}", h.UpdateGoal)
			r.Delete("/goals/{goalID}", h.DeleteGoal)
			r.Post("/goals/impact-analysis", h.AnalyzeImpact)

			r.Post("/recommendations", h.GetRecommendations)
			r.Post("/recommendations/track", h.TrackEvent)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
