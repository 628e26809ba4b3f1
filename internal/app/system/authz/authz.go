// internal/app/system/authz/authz.go
package authz

import (
	"net/http"

	"github.com/hearthsocial/hearth/internal/app/system/auth"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserCtx returns the caller's username, Mongo ObjectID, and a found flag.
// If no user is present in context or the user ID is malformed, it returns
// "", NilObjectID, false. Callers can trust that ok=true means a valid,
// authenticated user with a valid ObjectID.
func UserCtx(r *http.Request) (username string, userID primitive.ObjectID, ok bool) {
	user, ok := auth.CurrentUser(r)
	if !ok {
		return "", primitive.NilObjectID, false
	}
	userID, err := primitive.ObjectIDFromHex(user.ID)
	if err != nil {
		// Malformed id in a token or cookie: fail closed.
		return "", primitive.NilObjectID, false
	}
	return user.Username, userID, true
}

// UserID returns just the caller's ObjectID.
func UserID(r *http.Request) (primitive.ObjectID, bool) {
	_, id, ok := UserCtx(r)
	return id, ok
}

// IsSiteAdmin reports whether the caller is a site administrator.
// Site admins see stats; they get no extra rights inside groups.
func IsSiteAdmin(r *http.Request) bool {
	user, ok := auth.CurrentUser(r)
	return ok && user.IsAdmin
}
