// internal/app/features/messages/routes.go
package messages

import (
	"github.com/go-chi/chi/v5"
	"github.com/hearthsocial/hearth/internal/app/system/auth"
)

// Routes is mounted at /messages.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)

		pr.Post("/", h.HandleSend)
		pr.Get("/conversations", h.ServeConversations)
		pr.Get("/unread", h.ServeUnread)
		pr.Get("/{userId}", h.ServeConversation)
		pr.Put("/{userId}/read", h.HandleMarkRead)
	})

	return r
}
