// internal/app/features/users/routes.go
package users

import (
	"github.com/go-chi/chi/v5"
	"github.com/hearthsocial/hearth/internal/app/system/auth"
)

func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)

		pr.Get("/search", h.ServeSearch)

		// SELF
		pr.Put("/me", h.HandleUpdateMe)
		pr.Put("/me/password", h.HandleChangePassword)
		pr.Delete("/me", h.HandleDeleteMe)

		// OTHERS
		pr.Get("/{id}", h.ServeUser)
		pr.Get("/{id}/friends", h.ServeFriends)
	})

	return r
}
