// internal/app/features/users/profile.go
package users

import (
	"context"
	"errors"
	"net/http"
	"strings"

	uierrors "github.com/hearthsocial/hearth/internal/app/features/errors"
	userstore "github.com/hearthsocial/hearth/internal/app/store/users"
	"github.com/hearthsocial/hearth/internal/app/system/apperr"
	"github.com/hearthsocial/hearth/internal/app/system/authz"
	"github.com/hearthsocial/hearth/internal/app/system/htmlsanitize"
	"github.com/hearthsocial/hearth/internal/app/system/inputval"
	"github.com/hearthsocial/hearth/internal/app/system/respond"
	"github.com/hearthsocial/hearth/internal/app/system/timeouts"
)

// profileInput is the body of PUT /users/me. Absent fields are unchanged.
type profileInput struct {
	Bio            *string `json:"bio"`
	ProfilePicture *string `json:"profile_picture"`
	Email          *string `json:"email"`
}

func (in profileInput) toUpdate() (userstore.ProfileUpdate, error) {
	var upd userstore.ProfileUpdate
	if in.Bio != nil {
		bio := htmlsanitize.PlainText(*in.Bio)
		if inputval.TooLong(bio, inputval.MaxBio) {
			return upd, apperr.Invalid("Bio must be at most 500 characters.")
		}
		upd.Bio = &bio
	}
	if in.ProfilePicture != nil {
		pic := strings.TrimSpace(*in.ProfilePicture)
		if !inputval.IsValidProfilePicture(pic) {
			return upd, apperr.Invalid("Profile picture must be an http(s) URL or an uploaded media path.")
		}
		upd.ProfilePicture = &pic
	}
	if in.Email != nil {
		email := strings.TrimSpace(*in.Email)
		if !inputval.IsValidEmail(email) {
			return upd, apperr.Invalid("A valid email is required.")
		}
		upd.Email = &email
	}
	return upd, nil
}

// HandleUpdateMe handles PUT /users/me.
func (h *Handler) HandleUpdateMe(w http.ResponseWriter, r *http.Request) {
	caller, ok := authz.UserID(r)
	if !ok {
		uierrors.Unauthenticated(w)
		return
	}
	var in profileInput
	if err := respond.Decode(r, &in); err != nil {
		h.ErrLog.Write(w, r, "users.update", err)
		return
	}
	upd, err := in.toUpdate()
	if err != nil {
		h.ErrLog.Write(w, r, "users.update", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Users.UpdateProfile(ctx, caller, upd)
	switch {
	case errors.Is(err, userstore.ErrNotFound):
		h.ErrLog.Write(w, r, "users.update", apperr.ErrUserNotFound)
		return
	case errors.Is(err, userstore.ErrDuplicateEmail):
		h.ErrLog.Write(w, r, "users.update", apperr.ErrEmailTaken)
		return
	case err != nil:
		h.ErrLog.Write(w, r, "users.update", err)
		return
	}
	respond.OK(w, map[string]any{"user": u})
}
