// internal/app/features/posts/like.go
package posts

import (
	"context"
	"errors"
	"net/http"

	poststore "github.com/hearthsocial/hearth/internal/app/store/posts"
	"github.com/hearthsocial/hearth/internal/app/system/apperr"
	"github.com/hearthsocial/hearth/internal/app/system/respond"
	"github.com/hearthsocial/hearth/internal/app/system/timeouts"
)

type likeResponse struct {
	Liked     bool `json:"liked"`
	LikeCount int  `json:"like_count"`
}

// HandleLike handles POST /posts/{id}/like, toggling the caller's like.
func (h *Handler) HandleLike(w http.ResponseWriter, r *http.Request) {
	caller, postID, ok := h.target(w, r, "posts.like")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if _, _, err := h.loadReadable(ctx, postID, caller); err != nil {
		h.ErrLog.Write(w, r, "posts.like", err)
		return
	}
	p, liked, err := h.Posts.ToggleLike(ctx, postID, caller)
	if err != nil {
		if errors.Is(err, poststore.ErrNotFound) {
			err = apperr.ErrPostNotFound
		}
		h.ErrLog.Write(w, r, "posts.like", err)
		return
	}
	respond.OK(w, likeResponse{Liked: liked, LikeCount: len(p.Likes)})
}
