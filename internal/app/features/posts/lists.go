// internal/app/features/posts/lists.go
package posts

import (
	"context"
	"errors"
	"net/http"

	uierrors "github.com/hearthsocial/hearth/internal/app/features/errors"
	"github.com/hearthsocial/hearth/internal/app/policy/grouppolicy"
	userstore "github.com/hearthsocial/hearth/internal/app/store/users"
	"github.com/hearthsocial/hearth/internal/app/system/apperr"
	"github.com/hearthsocial/hearth/internal/app/system/authz"
	"github.com/hearthsocial/hearth/internal/app/system/paging"
	"github.com/hearthsocial/hearth/internal/app/system/respond"
	"github.com/hearthsocial/hearth/internal/app/system/timeouts"
	"github.com/hearthsocial/hearth/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ServeGroupPosts handles GET /posts/group/{groupId}.
func (h *Handler) ServeGroupPosts(w http.ResponseWriter, r *http.Request) {
	caller, ok := authz.UserID(r)
	if !ok {
		uierrors.Unauthenticated(w)
		return
	}
	groupID, err := respond.PathID(r, "groupId")
	if err != nil {
		h.ErrLog.Write(w, r, "posts.group", err)
		return
	}
	page, err := paging.Parse(r)
	if err != nil {
		h.ErrLog.Write(w, r, "posts.group", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	g, state, err := h.groupAccess(ctx, groupID, caller)
	if err != nil {
		h.ErrLog.Write(w, r, "posts.group", err)
		return
	}
	if !grouppolicy.CanReadPosts(g, state) {
		h.ErrLog.Write(w, r, "posts.group", apperr.ErrNotAuthorized)
		return
	}

	rows, hasMore, err := h.Posts.ByGroup(ctx, groupID, page)
	if err != nil {
		h.ErrLog.Write(w, r, "posts.group", err)
		return
	}
	h.writePage(ctx, w, r, "posts.group", caller, rows, hasMore, nil)
}

// ServeUserPosts handles GET /posts/user/{userId}: the user's posts outside
// groups plus their posts in groups the caller can read.
func (h *Handler) ServeUserPosts(w http.ResponseWriter, r *http.Request) {
	caller, ok := authz.UserID(r)
	if !ok {
		uierrors.Unauthenticated(w)
		return
	}
	author, err := respond.PathID(r, "userId")
	if err != nil {
		h.ErrLog.Write(w, r, "posts.user", err)
		return
	}
	page, err := paging.Parse(r)
	if err != nil {
		h.ErrLog.Write(w, r, "posts.user", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if _, err := h.Users.GetByID(ctx, author); err != nil {
		if errors.Is(err, userstore.ErrNotFound) {
			err = apperr.ErrUserNotFound
		}
		h.ErrLog.Write(w, r, "posts.user", err)
		return
	}
	groups, memberOf, err := h.readableGroups(ctx, caller)
	if err != nil {
		h.ErrLog.Write(w, r, "posts.user", err)
		return
	}
	rows, hasMore, err := h.Posts.ByAuthor(ctx, author, groups, page)
	if err != nil {
		h.ErrLog.Write(w, r, "posts.user", err)
		return
	}
	h.writePage(ctx, w, r, "posts.user", caller, rows, hasMore, memberOf)
}

// writePage re-checks group visibility when memberOf is non-nil, decorates
// the rows and writes a pageResponse. The cursor comes from the unfiltered
// rows so dropped posts never stall paging.
func (h *Handler) writePage(ctx context.Context, w http.ResponseWriter, r *http.Request, op string,
	caller primitive.ObjectID, rows []models.Post, hasMore bool, memberOf map[primitive.ObjectID]bool) {
	next := paging.NextBefore(rows, hasMore, sortKey)

	visible := rows
	if memberOf != nil {
		var err error
		if visible, err = h.recheck(ctx, rows, memberOf); err != nil {
			h.ErrLog.Write(w, r, op, err)
			return
		}
	}
	views, err := h.views(ctx, caller, visible)
	if err != nil {
		h.ErrLog.Write(w, r, op, err)
		return
	}
	respond.OK(w, pageResponse{Posts: views, Next: next})
}
