// Package grouppolicy decides what a caller may see of and do to a group,
// given the caller's membership record.
//
// Rules:
//   - Public groups are readable by every signed-in user.
//   - Private groups are readable in full only by members (the admin
//     included); everyone else gets the restricted view.
//   - Pending requests and open invitations are listed only to members.
//   - Only the admin approves, rejects, removes, updates and deletes.
//   - Any member may invite.
package grouppolicy

import (
	"github.com/hearthsocial/hearth/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Relationship of a caller to a group, as reported in my_state.
const (
	StateNone    = "none"
	StatePending = models.StatePending
	StateInvited = models.StateInvited
	StateMember  = models.StateMember
	StateAdmin   = "admin"
)

// StateOf maps a caller's membership record (nil for none) to my_state.
func StateOf(g models.Group, callerID primitive.ObjectID, m *models.GroupMembership) string {
	if callerID == g.Admin {
		return StateAdmin
	}
	if m == nil {
		return StateNone
	}
	return m.State
}

// IsMember reports whether state grants member rights.
func IsMember(state string) bool {
	return state == StateMember || state == StateAdmin
}

// CanViewDetails reports whether the caller gets the full group view.
func CanViewDetails(g models.Group, state string) bool {
	return !g.IsPrivate || IsMember(state)
}

// CanSeeQueues reports whether the caller may see pending requests and invitations.
func CanSeeQueues(state string) bool {
	return IsMember(state)
}

// CanReadPosts reports whether the caller may read the group's posts.
func CanReadPosts(g models.Group, state string) bool {
	return CanViewDetails(g, state)
}

// CanPost reports whether the caller may publish into the group.
func CanPost(state string) bool {
	return IsMember(state)
}

// CanInvite reports whether the caller may invite others.
func CanInvite(state string) bool {
	return IsMember(state)
}

// CanManage reports whether the caller administers the group.
func CanManage(g models.Group, callerID primitive.ObjectID) bool {
	return g.Admin == callerID
}

// VisiblePost reports whether a post in a group with the given privacy is
// visible to a caller whose member groups are memberOf.
func VisiblePost(groupID primitive.ObjectID, private bool, memberOf map[primitive.ObjectID]bool) bool {
	return !private || memberOf[groupID]
}
