// internal/app/features/groups/routes.go
package groups

import (
	"github.com/go-chi/chi/v5"
	"github.com/hearthsocial/hearth/internal/app/system/auth"
)

func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	// Everything under /groups requires authentication
	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)

		// LIST
		pr.Get("/", h.ServeList)
		pr.Get("/my", h.ServeMine)
		pr.Get("/invitations", h.ServeInvitations)
		pr.Get("/search", h.ServeSearch)

		// CREATE / VIEW / EDIT / DELETE
		pr.Post("/", h.HandleCreate)
		pr.Get("/{id}", h.ServeGroup)
		pr.Put("/{id}", h.HandleUpdate)
		pr.Delete("/{id}", h.HandleDelete)

		// LIFECYCLE
		pr.Post("/{id}/join", h.HandleJoin)
		pr.Put("/{id}/invitation", h.HandleRespond)
		pr.Delete("/{id}/leave", h.HandleLeave)
		pr.Post("/{id}/invite/{userID}", h.HandleInvite)
		pr.Post("/{id}/approve/{userID}", h.HandleApprove)
		pr.Post("/{id}/reject/{userID}", h.HandleReject)
		pr.Delete("/{id}/members/{userID}", h.HandleRemoveMember)
		pr.Get("/{id}/requests", h.ServeRequests)
	})

	return r
}
