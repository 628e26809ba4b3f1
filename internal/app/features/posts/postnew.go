// internal/app/features/posts/postnew.go
package posts

import (
	"context"
	"net/http"
	"strings"

	uierrors "github.com/hearthsocial/hearth/internal/app/features/errors"
	"github.com/hearthsocial/hearth/internal/app/policy/grouppolicy"
	"github.com/hearthsocial/hearth/internal/app/system/apperr"
	"github.com/hearthsocial/hearth/internal/app/system/authz"
	"github.com/hearthsocial/hearth/internal/app/system/htmlsanitize"
	"github.com/hearthsocial/hearth/internal/app/system/inputval"
	"github.com/hearthsocial/hearth/internal/app/system/respond"
	"github.com/hearthsocial/hearth/internal/app/system/timeouts"
	"github.com/hearthsocial/hearth/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type postInput struct {
	Text  string        `json:"text"`
	Group string        `json:"group"`
	Media *models.Media `json:"media"`
}

// normalize sanitizes the text and checks the media reference. It returns
// the group id when one was given.
func (in *postInput) normalize() (*primitive.ObjectID, error) {
	in.Text = htmlsanitize.PlainText(in.Text)
	if inputval.TooLong(in.Text, inputval.MaxPostText) {
		return nil, apperr.Invalid("Post text must be at most 2000 characters.")
	}

	hasMedia := in.Media != nil && in.Media.Type != "" && in.Media.Type != models.MediaNone
	if hasMedia {
		if in.Media.Type != models.MediaImage && in.Media.Type != models.MediaVideo {
			return nil, apperr.ErrUnsupportedMedia
		}
		in.Media.URL = strings.TrimSpace(in.Media.URL)
		if !inputval.IsValidMediaURL(in.Media.URL) {
			return nil, apperr.Invalid("Media URL is not valid.")
		}
	} else {
		in.Media = &models.Media{Type: models.MediaNone}
	}
	if in.Text == "" && !hasMedia {
		return nil, apperr.Invalid("A post needs text or media.")
	}

	g := strings.TrimSpace(in.Group)
	if g == "" {
		return nil, nil
	}
	oid, err := primitive.ObjectIDFromHex(g)
	if err != nil {
		return nil, apperr.ErrBadID
	}
	return &oid, nil
}

// HandleCreate handles POST /posts.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	caller, ok := authz.UserID(r)
	if !ok {
		uierrors.Unauthenticated(w)
		return
	}
	var in postInput
	if err := respond.Decode(r, &in); err != nil {
		h.ErrLog.Write(w, r, "posts.create", err)
		return
	}
	group, err := in.normalize()
	if err != nil {
		h.ErrLog.Write(w, r, "posts.create", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if group != nil {
		_, state, err := h.groupAccess(ctx, *group, caller)
		if err != nil {
			h.ErrLog.Write(w, r, "posts.create", err)
			return
		}
		if !grouppolicy.CanPost(state) {
			h.ErrLog.Write(w, r, "posts.create", apperr.ErrNotAuthorized)
			return
		}
	}

	p, err := h.Posts.Create(ctx, models.Post{
		Author: caller,
		Group:  group,
		Text:   in.Text,
		Media:  *in.Media,
	})
	if err != nil {
		h.ErrLog.Write(w, r, "posts.create", err)
		return
	}
	v, err := h.view(ctx, caller, p)
	if err != nil {
		h.ErrLog.Write(w, r, "posts.create", err)
		return
	}
	respond.Created(w, map[string]any{"post": v})
}
