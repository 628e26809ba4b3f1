// internal/app/features/friends/routes.go
package friends

import (
	"github.com/go-chi/chi/v5"
	"github.com/hearthsocial/hearth/internal/app/system/auth"
)

// Routes is mounted at /users/friends.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)

		pr.Get("/requests", h.ServeRequests)
		pr.Post("/request/{userID}", h.HandleRequest)
		pr.Post("/accept/{userID}", h.HandleAccept)
		pr.Post("/reject/{userID}", h.HandleReject)
		pr.Delete("/{userID}", h.HandleUnfriend)
	})

	return r
}
