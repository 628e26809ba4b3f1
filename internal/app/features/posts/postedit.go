// internal/app/features/posts/postedit.go
package posts

import (
	"context"
	"errors"
	"net/http"

	"github.com/hearthsocial/hearth/internal/app/policy/postpolicy"
	poststore "github.com/hearthsocial/hearth/internal/app/store/posts"
	"github.com/hearthsocial/hearth/internal/app/system/apperr"
	"github.com/hearthsocial/hearth/internal/app/system/htmlsanitize"
	"github.com/hearthsocial/hearth/internal/app/system/inputval"
	"github.com/hearthsocial/hearth/internal/app/system/respond"
	"github.com/hearthsocial/hearth/internal/app/system/timeouts"
	"github.com/hearthsocial/hearth/internal/domain/models"
	"go.uber.org/zap"
)

type editInput struct {
	Text string `json:"text"`
}

/*─────────────────────────────────────────────────────────────────────────────*
| Edit                                                                         |
*─────────────────────────────────────────────────────────────────────────────*/

// HandleUpdate handles PUT /posts/{id}. Only the author may edit, and only
// the text changes.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	caller, postID, ok := h.target(w, r, "posts.update")
	if !ok {
		return
	}
	var in editInput
	if err := respond.Decode(r, &in); err != nil {
		h.ErrLog.Write(w, r, "posts.update", err)
		return
	}
	text := htmlsanitize.PlainText(in.Text)
	if inputval.TooLong(text, inputval.MaxPostText) {
		h.ErrLog.Write(w, r, "posts.update", apperr.Invalid("Post text must be at most 2000 characters."))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	p, _, err := h.loadReadable(ctx, postID, caller)
	if err != nil {
		h.ErrLog.Write(w, r, "posts.update", err)
		return
	}
	if !postpolicy.CanEditPost(p, caller) {
		h.ErrLog.Write(w, r, "posts.update", apperr.ErrNotAuthorized)
		return
	}
	if text == "" && p.Media.Type == models.MediaNone {
		h.ErrLog.Write(w, r, "posts.update", apperr.Invalid("A post needs text or media."))
		return
	}

	p, err = h.Posts.UpdateText(ctx, postID, text)
	if err != nil {
		if errors.Is(err, poststore.ErrNotFound) {
			err = apperr.ErrPostNotFound
		}
		h.ErrLog.Write(w, r, "posts.update", err)
		return
	}
	v, err := h.view(ctx, caller, p)
	if err != nil {
		h.ErrLog.Write(w, r, "posts.update", err)
		return
	}
	respond.OK(w, map[string]any{"post": v})
}

/*─────────────────────────────────────────────────────────────────────────────*
| Delete                                                                       |
*─────────────────────────────────────────────────────────────────────────────*/

// HandleDelete handles DELETE /posts/{id}. The author or the admin of the
// post's group may delete it.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	caller, postID, ok := h.target(w, r, "posts.delete")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	p, groupAdmin, err := h.loadPost(ctx, postID, caller, func(p models.Post) bool { return p.Author == caller })
	if err != nil {
		h.ErrLog.Write(w, r, "posts.delete", err)
		return
	}
	if !postpolicy.CanDeletePost(p, caller, groupAdmin) {
		h.ErrLog.Write(w, r, "posts.delete", apperr.ErrNotAuthorized)
		return
	}
	n, err := h.Posts.Delete(ctx, postID)
	if err != nil {
		h.ErrLog.Write(w, r, "posts.delete", err)
		return
	}
	if n == 0 {
		h.ErrLog.Write(w, r, "posts.delete", apperr.ErrPostNotFound)
		return
	}
	if p.Author != caller {
		h.Log.Info("post removed by group admin",
			zap.String("post_id", postID.Hex()),
			zap.String("admin_id", caller.Hex()))
		if p.Group != nil {
			h.Audit.PostRemovedByModerator(ctx, r, caller, p.Author, *p.Group, postID)
		}
	}
	respond.NoContent(w)
}
