// internal/app/features/stats/routes.go
package stats

import (
	"github.com/go-chi/chi/v5"
	"github.com/hearthsocial/hearth/internal/app/system/auth"
)

// Routes is mounted at /stats.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Get("/me", h.ServeMe)
	})

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSiteAdmin)
		pr.Get("/overview", h.ServeOverview)
		pr.Get("/posts-per-day", h.ServePostsPerDay)
		pr.Get("/top-groups", h.ServeTopGroups)
	})

	return r
}
