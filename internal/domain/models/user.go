// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is a registered account.
//
// NOTE:
//   - Friends and Groups are denormalized sets kept for fast lookups.
//     Group membership is authoritative in the group_memberships collection;
//     Groups mirrors the groups where the user's membership state is "member".
//   - FriendRequests is the inbox of requests other users sent to this user.
type User struct {
	ID             primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Username       string               `bson:"username" json:"username"`
	UsernameCI     string               `bson:"username_ci" json:"-"` // folded for search
	Email          string               `bson:"email" json:"email,omitempty"`
	PasswordHash   string               `bson:"password_hash" json:"-"`
	Bio            string               `bson:"bio" json:"bio"`
	ProfilePicture string               `bson:"profile_picture" json:"profile_picture"`
	Friends        []primitive.ObjectID `bson:"friends" json:"friends"`
	FriendRequests []FriendRequest      `bson:"friend_requests" json:"friend_requests,omitempty"`
	Groups         []primitive.ObjectID `bson:"groups" json:"groups"`
	IsAdmin        bool                 `bson:"is_admin" json:"is_admin"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// FriendRequest is an entry in a user's friend-request inbox.
type FriendRequest struct {
	Requester primitive.ObjectID `bson:"requester" json:"requester"`
	SentAt    time.Time          `bson:"sent_at" json:"sent_at"`
}

// HasFriend reports whether id is in the user's friend set.
func (u *User) HasFriend(id primitive.ObjectID) bool {
	for _, f := range u.Friends {
		if f == id {
			return true
		}
	}
	return false
}

// HasRequestFrom reports whether the user's inbox holds a request from id.
func (u *User) HasRequestFrom(id primitive.ObjectID) bool {
	for _, fr := range u.FriendRequests {
		if fr.Requester == id {
			return true
		}
	}
	return false
}

// PublicUser is the projection of a User that other users may see.
type PublicUser struct {
	ID             primitive.ObjectID `json:"id"`
	Username       string             `json:"username"`
	Bio            string             `json:"bio"`
	ProfilePicture string             `json:"profile_picture"`
	FriendCount    int                `json:"friend_count"`
	GroupCount     int                `json:"group_count"`
	CreatedAt      time.Time          `json:"created_at"`
}

// Public returns the public projection of u.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:             u.ID,
		Username:       u.Username,
		Bio:            u.Bio,
		ProfilePicture: u.ProfilePicture,
		FriendCount:    len(u.Friends),
		GroupCount:     len(u.Groups),
		CreatedAt:      u.CreatedAt,
	}
}

// PublicUsers projects each of users.
func PublicUsers(users []User) []PublicUser {
	out := make([]PublicUser, len(users))
	for i := range users {
		out[i] = users[i].Public()
	}
	return out
}
