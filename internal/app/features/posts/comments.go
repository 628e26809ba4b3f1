// internal/app/features/posts/comments.go
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
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type commentInput struct {
	Text string `json:"text"`
}

func (in commentInput) clean() (string, error) {
	text := htmlsanitize.PlainText(in.Text)
	switch {
	case text == "":
		return "", apperr.Invalid("Comment text is required.")
	case inputval.TooLong(text, inputval.MaxCommentText):
		return "", apperr.Invalid("Comment text must be at most 500 characters.")
	}
	return text, nil
}

func commentStoreErr(err error) error {
	switch {
	case errors.Is(err, poststore.ErrCommentNotFound):
		return apperr.ErrCommentNotFound
	case errors.Is(err, poststore.ErrNotFound):
		return apperr.ErrPostNotFound
	}
	return err
}

// loadComment loads a readable post and one of its comments. When deleting,
// the post author and the comment author skip the group read check.
func (h *Handler) loadComment(ctx context.Context, r *http.Request, postID, caller primitive.ObjectID, deleting bool) (models.Post, models.Comment, primitive.ObjectID, error) {
	commentID, err := respond.PathID(r, "commentId")
	if err != nil {
		return models.Post{}, models.Comment{}, primitive.NilObjectID, err
	}
	var owned func(models.Post) bool
	if deleting {
		owned = func(p models.Post) bool {
			if p.Author == caller {
				return true
			}
			c := p.FindComment(commentID)
			return c != nil && c.Author == caller
		}
	}
	p, groupAdmin, err := h.loadPost(ctx, postID, caller, owned)
	if err != nil {
		return models.Post{}, models.Comment{}, primitive.NilObjectID, err
	}
	c := p.FindComment(commentID)
	if c == nil {
		return models.Post{}, models.Comment{}, primitive.NilObjectID, apperr.ErrCommentNotFound
	}
	return p, *c, groupAdmin, nil
}

// HandleAddComment handles POST /posts/{id}/comments.
func (h *Handler) HandleAddComment(w http.ResponseWriter, r *http.Request) {
	caller, postID, ok := h.target(w, r, "posts.comment_add")
	if !ok {
		return
	}
	var in commentInput
	if err := respond.Decode(r, &in); err != nil {
		h.ErrLog.Write(w, r, "posts.comment_add", err)
		return
	}
	text, err := in.clean()
	if err != nil {
		h.ErrLog.Write(w, r, "posts.comment_add", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if _, _, err := h.loadReadable(ctx, postID, caller); err != nil {
		h.ErrLog.Write(w, r, "posts.comment_add", err)
		return
	}
	c, err := h.Posts.AddComment(ctx, postID, caller, text)
	if err != nil {
		h.ErrLog.Write(w, r, "posts.comment_add", commentStoreErr(err))
		return
	}
	respond.Created(w, map[string]any{"comment": c})
}

// HandleUpdateComment handles PUT /posts/{id}/comments/{commentId}.
func (h *Handler) HandleUpdateComment(w http.ResponseWriter, r *http.Request) {
	caller, postID, ok := h.target(w, r, "posts.comment_update")
	if !ok {
		return
	}
	var in commentInput
	if err := respond.Decode(r, &in); err != nil {
		h.ErrLog.Write(w, r, "posts.comment_update", err)
		return
	}
	text, err := in.clean()
	if err != nil {
		h.ErrLog.Write(w, r, "posts.comment_update", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	_, c, _, err := h.loadComment(ctx, r, postID, caller, false)
	if err != nil {
		h.ErrLog.Write(w, r, "posts.comment_update", err)
		return
	}
	if !postpolicy.CanEditComment(c, caller) {
		h.ErrLog.Write(w, r, "posts.comment_update", apperr.ErrNotAuthorized)
		return
	}
	c, err = h.Posts.UpdateComment(ctx, postID, c.ID, text)
	if err != nil {
		h.ErrLog.Write(w, r, "posts.comment_update", commentStoreErr(err))
		return
	}
	respond.OK(w, map[string]any{"comment": c})
}

// HandleDeleteComment handles DELETE /posts/{id}/comments/{commentId}. The
// comment's author, the post's author or the group admin may delete it.
func (h *Handler) HandleDeleteComment(w http.ResponseWriter, r *http.Request) {
	caller, postID, ok := h.target(w, r, "posts.comment_delete")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	p, c, groupAdmin, err := h.loadComment(ctx, r, postID, caller, true)
	if err != nil {
		h.ErrLog.Write(w, r, "posts.comment_delete", err)
		return
	}
	if !postpolicy.CanDeleteComment(p, c, caller, groupAdmin) {
		h.ErrLog.Write(w, r, "posts.comment_delete", apperr.ErrNotAuthorized)
		return
	}
	if err := h.Posts.DeleteComment(ctx, postID, c.ID); err != nil {
		h.ErrLog.Write(w, r, "posts.comment_delete", commentStoreErr(err))
		return
	}
	respond.NoContent(w)
}
