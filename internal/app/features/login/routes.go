// internal/app/features/login/routes.go
package login

import "github.com/go-chi/chi/v5"

// Routes serves register, login and me under /auth. Register and login are
// public; me requires a signed-in caller.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/register", h.HandleRegister)
	r.Post("/login", h.HandleLogin)

	r.Group(func(pr chi.Router) {
		pr.Use(h.SessionMgr.RequireSignedIn)
		pr.Get("/me", h.ServeMe)
	})
	return r
}
