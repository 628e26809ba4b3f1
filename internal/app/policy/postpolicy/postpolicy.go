// Package postpolicy provides authorization policies for posts and comments.
//
// Authorization rules:
//   - Only the author edits a post; the author or the group's admin deletes it
//   - Only the comment's author edits a comment
//   - The comment's author, the post's author or the group's admin deletes a comment
//
// Read access is decided per group by grouppolicy.
package postpolicy

import (
	"github.com/hearthsocial/hearth/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CanEditPost reports whether caller may change the post's text.
func CanEditPost(p models.Post, caller primitive.ObjectID) bool {
	return p.Author == caller
}

// CanDeletePost reports whether caller may delete the post. groupAdmin is
// the admin of the post's group, or NilObjectID for non-group posts.
func CanDeletePost(p models.Post, caller, groupAdmin primitive.ObjectID) bool {
	if p.Author == caller {
		return true
	}
	return p.Group != nil && !groupAdmin.IsZero() && groupAdmin == caller
}

// CanEditComment reports whether caller may change the comment's text.
func CanEditComment(c models.Comment, caller primitive.ObjectID) bool {
	return c.Author == caller
}

// CanDeleteComment reports whether caller may delete the comment.
func CanDeleteComment(p models.Post, c models.Comment, caller, groupAdmin primitive.ObjectID) bool {
	return c.Author == caller || CanDeletePost(p, caller, groupAdmin)
}
