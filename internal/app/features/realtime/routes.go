// internal/app/features/realtime/routes.go
package realtime

import (
	"github.com/go-chi/chi/v5"
	"github.com/hearthsocial/hearth/internal/app/system/auth"
)

// Routes is mounted at /realtime.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Get("/ws", h.ServeSocket)

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Post("/ticket", h.HandleTicket)
		pr.Get("/online", h.ServeOnline)
	})

	return r
}
