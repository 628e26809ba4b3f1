// internal/domain/models/groupmembership.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Membership states. A (user, group) pair with no record is in state NONE.
const (
	StatePending = "pending"
	StateInvited = "invited"
	StateMember  = "member"
)

// Membership roles. Only records in StateMember carry RoleAdmin.
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// GroupMembership is the authoritative relationship between a user and a group.
// Exactly one document per (user_id, group_id); state and role are scalars, so a
// user can never be a member, a requester and an invitee of the same group at once.
type GroupMembership struct {
	ID        primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	GroupID   primitive.ObjectID  `bson:"group_id" json:"group_id"`
	UserID    primitive.ObjectID  `bson:"user_id" json:"user_id"`
	State     string              `bson:"state" json:"state"` // "pending" | "invited" | "member"
	Role      string              `bson:"role" json:"role"`   // "admin" | "member"
	InvitedBy *primitive.ObjectID `bson:"invited_by,omitempty" json:"invited_by,omitempty"`
	CreatedAt time.Time           `bson:"created_at" json:"created_at"` // requested, invited or joined
	UpdatedAt time.Time           `bson:"updated_at" json:"updated_at"`
}

// IsAdmin reports whether the record is the group's admin membership.
func (m *GroupMembership) IsAdmin() bool {
	return m.State == StateMember && m.Role == RoleAdmin
}
