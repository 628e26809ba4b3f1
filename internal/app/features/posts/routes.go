// internal/app/features/posts/routes.go
package posts

import (
	"github.com/go-chi/chi/v5"
	"github.com/hearthsocial/hearth/internal/app/system/auth"
)

// Routes is mounted at /posts.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)

		pr.Post("/", h.HandleCreate)
		pr.Get("/feed", h.ServeFeed)
		pr.Get("/group/{groupId}", h.ServeGroupPosts)
		pr.Get("/user/{userId}", h.ServeUserPosts)

		pr.Get("/{id}", h.ServePost)
		pr.Put("/{id}", h.HandleUpdate)
		pr.Delete("/{id}", h.HandleDelete)
		pr.Post("/{id}/like", h.HandleLike)
		pr.Post("/{id}/comments", h.HandleAddComment)
		pr.Put("/{id}/comments/{commentId}", h.HandleUpdateComment)
		pr.Delete("/{id}/comments/{commentId}", h.HandleDeleteComment)
	})

	return r
}
