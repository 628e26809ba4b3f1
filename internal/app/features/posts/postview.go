// internal/app/features/posts/postview.go
package posts

import (
	"context"
	"net/http"

	"github.com/hearthsocial/hearth/internal/app/system/respond"
	"github.com/hearthsocial/hearth/internal/app/system/timeouts"
)

// ServePost handles GET /posts/{id}.
func (h *Handler) ServePost(w http.ResponseWriter, r *http.Request) {
	caller, postID, ok := h.target(w, r, "posts.view")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	p, _, err := h.loadReadable(ctx, postID, caller)
	if err != nil {
		h.ErrLog.Write(w, r, "posts.view", err)
		return
	}
	v, err := h.view(ctx, caller, p)
	if err != nil {
		h.ErrLog.Write(w, r, "posts.view", err)
		return
	}
	respond.OK(w, map[string]any{"post": v})
}
