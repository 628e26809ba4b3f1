// internal/app/features/users/search.go
package users

import (
	"context"
	"net/http"

	"github.com/dalemusser/waffle/pantry/query"
	uierrors "github.com/hearthsocial/hearth/internal/app/features/errors"
	"github.com/hearthsocial/hearth/internal/app/system/apperr"
	"github.com/hearthsocial/hearth/internal/app/system/authz"
	"github.com/hearthsocial/hearth/internal/app/system/inputval"
	"github.com/hearthsocial/hearth/internal/app/system/normalize"
	"github.com/hearthsocial/hearth/internal/app/system/paging"
	"github.com/hearthsocial/hearth/internal/app/system/respond"
	"github.com/hearthsocial/hearth/internal/app/system/timeouts"
	"github.com/hearthsocial/hearth/internal/domain/models"
)

type searchResponse struct {
	Users []models.PublicUser `json:"users"`
	Next  string              `json:"next,omitempty"`
}

// ServeSearch handles GET /users/search?q=. Matches are username prefixes,
// case- and diacritics-insensitive, in username order.
func (h *Handler) ServeSearch(w http.ResponseWriter, r *http.Request) {
	if _, ok := authz.UserID(r); !ok {
		uierrors.Unauthenticated(w)
		return
	}
	q := normalize.QueryParam(query.Get(r, "q"))
	if inputval.TooLong(q, inputval.MaxSearchQueryText) {
		h.ErrLog.Write(w, r, "users.search", apperr.Invalid("Search query is too long."))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	rows, next, err := h.Users.Search(ctx, q, paging.ParseKeyset(r))
	if err != nil {
		h.ErrLog.Write(w, r, "users.search", err)
		return
	}
	respond.OK(w, searchResponse{Users: models.PublicUsers(rows), Next: next})
}
