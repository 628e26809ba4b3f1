// internal/app/features/posts/feed.go
package posts

import (
	"context"
	"errors"
	"net/http"

	uierrors "github.com/hearthsocial/hearth/internal/app/features/errors"
	poststore "github.com/hearthsocial/hearth/internal/app/store/posts"
	userstore "github.com/hearthsocial/hearth/internal/app/store/users"
	"github.com/hearthsocial/hearth/internal/app/system/apperr"
	"github.com/hearthsocial/hearth/internal/app/system/authz"
	"github.com/hearthsocial/hearth/internal/app/system/paging"
	"github.com/hearthsocial/hearth/internal/app/system/timeouts"
)

// ServeFeed handles GET /posts/feed: the caller's own posts, friends' posts
// outside groups, and posts of groups the caller can read.
func (h *Handler) ServeFeed(w http.ResponseWriter, r *http.Request) {
	caller, ok := authz.UserID(r)
	if !ok {
		uierrors.Unauthenticated(w)
		return
	}
	page, err := paging.Parse(r)
	if err != nil {
		h.ErrLog.Write(w, r, "posts.feed", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	me, err := h.Users.GetByID(ctx, caller)
	if err != nil {
		if errors.Is(err, userstore.ErrNotFound) {
			err = apperr.ErrUserNotFound
		}
		h.ErrLog.Write(w, r, "posts.feed", err)
		return
	}
	groups, memberOf, err := h.readableGroups(ctx, caller)
	if err != nil {
		h.ErrLog.Write(w, r, "posts.feed", err)
		return
	}

	rows, hasMore, err := h.Posts.Feed(ctx, poststore.FeedQuery{
		Self:    caller,
		Friends: me.Friends,
		Groups:  groups,
	}, page)
	if err != nil {
		h.ErrLog.Write(w, r, "posts.feed", err)
		return
	}
	h.writePage(ctx, w, r, "posts.feed", caller, rows, hasMore, memberOf)
}
