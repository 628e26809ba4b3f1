// internal/app/features/media/routes.go
package media

import (
	"github.com/go-chi/chi/v5"
	"github.com/hearthsocial/hearth/internal/app/system/auth"
)

// Routes is mounted at /media.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Post("/", h.HandleUpload)
	})

	return r
}
