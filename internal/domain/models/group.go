// internal/domain/models/group.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Group is a named collection of users with one immutable admin.
//
// NOTE:
//   - Members, pending requests and invitations are not embedded on Group.
//     Every (user, group) relationship lives in group_memberships.
//   - Admin never changes after creation.
type Group struct {
	ID          primitive.ObjectID `bson:"_id" json:"id"`
	Name        string             `bson:"name" json:"name"`
	NameCI      string             `bson:"name_ci" json:"-"`
	Description string             `bson:"description" json:"description"`
	IsPrivate   bool               `bson:"is_private" json:"is_private"`
	Admin       primitive.ObjectID `bson:"admin" json:"admin"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
