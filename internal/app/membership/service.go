// Package membership implements the group membership lifecycle: creating
// groups, join requests, invitations, approvals, removals and the delete
// cascade.
//
// Every (user, group) pair has at most one record in group_memberships and
// every transition is a compare-and-swap on that record's state. Checks run in
// a fixed order: the group must exist, then the caller must be authorized,
// then the target's state must allow the transition. A transition that loses
// a race reports the precondition error the loser would have seen had it
// arrived second (for example ErrRequestNotFound).
package membership

import (
	"context"
	"errors"

	groupstore "github.com/hearthsocial/hearth/internal/app/store/groups"
	membershipstore "github.com/hearthsocial/hearth/internal/app/store/memberships"
	poststore "github.com/hearthsocial/hearth/internal/app/store/posts"
	userstore "github.com/hearthsocial/hearth/internal/app/store/users"
	"github.com/hearthsocial/hearth/internal/app/system/apperr"
	"github.com/hearthsocial/hearth/internal/app/system/htmlsanitize"
	"github.com/hearthsocial/hearth/internal/app/system/inputval"
	"github.com/hearthsocial/hearth/internal/app/system/metrics"
	"github.com/hearthsocial/hearth/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// maxAttempts bounds the re-read loop used when an insert or transition
// races with another writer on the same pair.
const maxAttempts = 3

// Notifier receives best-effort lifecycle events for delivery to users.
type Notifier interface {
	NotifyUser(userID primitive.ObjectID, event string, payload any)
}

// Lifecycle events sent through Notifier.
const (
	EventInvited         = "group:invited"
	EventRequestReceived = "group:request"
	EventApproved        = "group:approved"
	EventRemoved         = "group:removed"
)

// Service runs lifecycle operations against the stores.
type Service struct {
	groups      *groupstore.Store
	memberships *membershipstore.Store
	users       *userstore.Store
	posts       *poststore.Store

	Metrics  *metrics.Metrics
	Notifier Notifier
	Log      *zap.Logger
}

// New wires a Service to db.
func New(db *mongo.Database, m *metrics.Metrics, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		groups:      groupstore.New(db),
		memberships: membershipstore.New(db),
		users:       userstore.New(db),
		posts:       poststore.New(db),
		Metrics:     m,
		Log:         logger,
	}
}

// record counts the outcome of op and passes err through.
func (s *Service) record(op string, err error) error {
	outcome := "ok"
	if err != nil {
		outcome = apperr.As(err).Code
	}
	s.Metrics.Transition(op, outcome)
	return err
}

func (s *Service) notify(userID primitive.ObjectID, event string, payload any) {
	if s.Notifier != nil {
		s.Notifier.NotifyUser(userID, event, payload)
	}
}

// loadGroup returns the group or ErrGroupNotFound.
func (s *Service) loadGroup(ctx context.Context, id primitive.ObjectID) (models.Group, error) {
	g, err := s.groups.GetByID(ctx, id)
	if errors.Is(err, groupstore.ErrNotFound) {
		return models.Group{}, apperr.ErrGroupNotFound
	}
	if err != nil {
		return models.Group{}, apperr.Internal(err)
	}
	return g, nil
}

// loadMembership returns the pair's record, or nil when there is none.
func (s *Service) loadMembership(ctx context.Context, groupID, userID primitive.ObjectID) (*models.GroupMembership, error) {
	m, err := s.memberships.Get(ctx, groupID, userID)
	if errors.Is(err, membershipstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return m, nil
}

// retryable reports whether err means the record changed under us.
func retryable(err error) bool {
	return errors.Is(err, membershipstore.ErrDuplicate) || errors.Is(err, membershipstore.ErrStateMismatch)
}

/* -------------------------------------------------------------------------- */
/* Create / update / delete                                                    */
/* -------------------------------------------------------------------------- */

// GroupInput carries the editable group fields. On create every nil field
// takes its zero value; on update nil leaves the field unchanged.
type GroupInput struct {
	Name        *string
	Description *string
	IsPrivate   *bool
}

func cleanGroupInput(in GroupInput, create bool) (GroupInput, error) {
	out := GroupInput{IsPrivate: in.IsPrivate}
	if in.Name != nil || create {
		name := ""
		if in.Name != nil {
			name = htmlsanitize.PlainText(*in.Name)
		}
		if name == "" {
			return GroupInput{}, apperr.Invalid("Group name is required.")
		}
		if inputval.TooLong(name, inputval.MaxGroupName) {
			return GroupInput{}, apperr.Invalid("Group name must be at most 100 characters.")
		}
		out.Name = &name
	}
	if in.Description != nil {
		desc := htmlsanitize.PlainText(*in.Description)
		if inputval.TooLong(desc, inputval.MaxGroupDesc) {
			return GroupInput{}, apperr.Invalid("Description must be at most 1000 characters.")
		}
		out.Description = &desc
	}
	return out, nil
}

// CreateGroup creates a group administered by callerID. The admin's member
// record is written with the group; if that fails the group is removed again.
func (s *Service) CreateGroup(ctx context.Context, callerID primitive.ObjectID, in GroupInput) (models.Group, error) {
	in, err := cleanGroupInput(in, true)
	if err != nil {
		return models.Group{}, s.record("create", err)
	}

	g := models.Group{Name: *in.Name, Admin: callerID}
	if in.Description != nil {
		g.Description = *in.Description
	}
	if in.IsPrivate != nil {
		g.IsPrivate = *in.IsPrivate
	}
	g, err = s.groups.Create(ctx, g)
	if err != nil {
		return models.Group{}, s.record("create", apperr.Internal(err))
	}

	if _, err := s.memberships.Insert(ctx, g.ID, callerID, models.StateMember, models.RoleAdmin, nil); err != nil {
		_, _ = s.groups.Delete(ctx, g.ID)
		return models.Group{}, s.record("create", apperr.Internal(err))
	}
	if err := s.users.AddGroup(ctx, callerID, g.ID); err != nil {
		s.Log.Warn("group created but admin's groups set not updated",
			zap.String("group_id", g.ID.Hex()), zap.Error(err))
	}
	return g, s.record("create", nil)
}

// UpdateGroup changes name, description or privacy. Only the admin may.
func (s *Service) UpdateGroup(ctx context.Context, groupID, callerID primitive.ObjectID, in GroupInput) (models.Group, error) {
	g, err := s.loadGroup(ctx, groupID)
	if err != nil {
		return models.Group{}, s.record("update", err)
	}
	if g.Admin != callerID {
		return models.Group{}, s.record("update", apperr.ErrNotAuthorized)
	}
	in, err = cleanGroupInput(in, false)
	if err != nil {
		return models.Group{}, s.record("update", err)
	}

	g, err = s.groups.UpdateInfo(ctx, groupID, groupstore.Update{
		Name:        in.Name,
		Description: in.Description,
		IsPrivate:   in.IsPrivate,
	})
	if errors.Is(err, groupstore.ErrNotFound) {
		return models.Group{}, s.record("update", apperr.ErrGroupNotFound)
	}
	if err != nil {
		return models.Group{}, s.record("update", apperr.Internal(err))
	}
	return g, s.record("update", nil)
}

// DeleteGroup removes the group and everything scoped to it: the group id
// from every user's groups set, all membership records and the group's posts.
func (s *Service) DeleteGroup(ctx context.Context, groupID, callerID primitive.ObjectID) error {
	g, err := s.loadGroup(ctx, groupID)
	if err != nil {
		return s.record("delete", err)
	}
	if g.Admin != callerID {
		return s.record("delete", apperr.ErrNotAuthorized)
	}
	return s.record("delete", s.cascadeDelete(ctx, g))
}

func (s *Service) cascadeDelete(ctx context.Context, g models.Group) error {
	users, err := s.users.RemoveGroupFromAll(ctx, g.ID)
	if err != nil {
		return apperr.Internal(err)
	}
	records, err := s.memberships.DeleteByGroup(ctx, g.ID)
	if err != nil {
		return apperr.Internal(err)
	}
	posts, err := s.posts.DeleteByGroup(ctx, g.ID)
	if err != nil {
		return apperr.Internal(err)
	}
	if _, err := s.groups.Delete(ctx, g.ID); err != nil {
		return apperr.Internal(err)
	}

	s.Log.Info("group deleted",
		zap.String("group_id", g.ID.Hex()),
		zap.String("admin", g.Admin.Hex()),
		zap.Int64("users_updated", users),
		zap.Int64("memberships_deleted", records),
		zap.Int64("posts_deleted", posts))
	return nil
}

// DeleteGroupsAdministeredBy runs the delete cascade for every group userID
// administers. Used when the account itself is deleted.
func (s *Service) DeleteGroupsAdministeredBy(ctx context.Context, userID primitive.ObjectID) (int, error) {
	ids, err := s.groups.IDsAdministeredBy(ctx, userID)
	if err != nil {
		return 0, apperr.Internal(err)
	}
	for _, id := range ids {
		g, err := s.loadGroup(ctx, id)
		if errors.Is(err, apperr.ErrGroupNotFound) {
			continue
		}
		if err != nil {
			return 0, err
		}
		if err := s.cascadeDelete(ctx, g); err != nil {
			return 0, err
		}
	}
	return len(ids), nil
}

/* -------------------------------------------------------------------------- */
/* Transitions                                                                 */
/* -------------------------------------------------------------------------- */

// JoinResult is the outcome of RequestJoin.
type JoinResult struct {
	Membership          models.GroupMembership
	InvitationCancelled bool
}

// RequestJoin files a join request for userID. An open invitation for the
// same user is replaced by the request.
func (s *Service) RequestJoin(ctx context.Context, groupID, userID primitive.ObjectID) (JoinResult, error) {
	g, err := s.loadGroup(ctx, groupID)
	if err != nil {
		return JoinResult{}, s.record("request", err)
	}
	if g.Admin == userID {
		return JoinResult{}, s.record("request", apperr.ErrAlreadyMember)
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		cur, err := s.loadMembership(ctx, groupID, userID)
		if err != nil {
			return JoinResult{}, s.record("request", err)
		}

		var res JoinResult
		switch {
		case cur == nil:
			res.Membership, err = s.memberships.Insert(ctx, groupID, userID, models.StatePending, models.RoleMember, nil)
		case cur.State == models.StateMember:
			return JoinResult{}, s.record("request", apperr.ErrAlreadyMember)
		case cur.State == models.StatePending:
			return JoinResult{}, s.record("request", apperr.ErrAlreadyPending)
		case cur.State == models.StateInvited:
			res.Membership, err = s.memberships.Transition(ctx, groupID, userID, models.StateInvited, models.StatePending, nil)
			res.InvitationCancelled = true
		}
		if retryable(err) {
			continue
		}
		if err != nil {
			return JoinResult{}, s.record("request", apperr.Internal(err))
		}
		s.notify(g.Admin, EventRequestReceived, map[string]string{"group_id": g.ID.Hex(), "user_id": userID.Hex()})
		return res, s.record("request", nil)
	}
	return JoinResult{}, s.record("request", apperr.Internal(errors.New("membership changed concurrently")))
}

// InviteResult is the outcome of Invite.
type InviteResult struct {
	Membership       models.GroupMembership
	RequestCancelled bool
}

// Invite invites targetID on behalf of callerID, who must be a member. A
// pending request from the target is replaced by the invitation.
func (s *Service) Invite(ctx context.Context, groupID, callerID, targetID primitive.ObjectID) (InviteResult, error) {
	g, err := s.loadGroup(ctx, groupID)
	if err != nil {
		return InviteResult{}, s.record("invite", err)
	}
	caller, err := s.loadMembership(ctx, groupID, callerID)
	if err != nil {
		return InviteResult{}, s.record("invite", err)
	}
	if g.Admin != callerID && (caller == nil || caller.State != models.StateMember) {
		return InviteResult{}, s.record("invite", apperr.ErrNotAuthorized)
	}
	ok, err := s.users.Exists(ctx, targetID)
	if err != nil {
		return InviteResult{}, s.record("invite", apperr.Internal(err))
	}
	if !ok {
		return InviteResult{}, s.record("invite", apperr.ErrUserNotFound)
	}
	if g.Admin == targetID {
		return InviteResult{}, s.record("invite", apperr.ErrTargetAlreadyMember)
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		cur, err := s.loadMembership(ctx, groupID, targetID)
		if err != nil {
			return InviteResult{}, s.record("invite", err)
		}

		var res InviteResult
		switch {
		case cur == nil:
			res.Membership, err = s.memberships.Insert(ctx, groupID, targetID, models.StateInvited, models.RoleMember, &callerID)
		case cur.State == models.StateMember:
			return InviteResult{}, s.record("invite", apperr.ErrTargetAlreadyMember)
		case cur.State == models.StateInvited:
			return InviteResult{}, s.record("invite", apperr.ErrAlreadyInvited)
		case cur.State == models.StatePending:
			res.Membership, err = s.memberships.Transition(ctx, groupID, targetID, models.StatePending, models.StateInvited, &callerID)
			res.RequestCancelled = true
		}
		if retryable(err) {
			continue
		}
		if err != nil {
			return InviteResult{}, s.record("invite", apperr.Internal(err))
		}
		s.notify(targetID, EventInvited, map[string]string{"group_id": g.ID.Hex(), "group_name": g.Name, "invited_by": callerID.Hex()})
		return res, s.record("invite", nil)
	}
	return InviteResult{}, s.record("invite", apperr.Internal(errors.New("membership changed concurrently")))
}

// RespondToInvitation accepts or declines userID's invitation.
func (s *Service) RespondToInvitation(ctx context.Context, groupID, userID primitive.ObjectID, accept bool) (*models.GroupMembership, error) {
	const op = "respond"
	if _, err := s.loadGroup(ctx, groupID); err != nil {
		return nil, s.record(op, err)
	}

	if !accept {
		err := s.memberships.DeleteInState(ctx, groupID, userID, models.StateInvited)
		if errors.Is(err, membershipstore.ErrStateMismatch) {
			return nil, s.record(op, apperr.ErrInvitationNotFound)
		}
		if err != nil {
			return nil, s.record(op, apperr.Internal(err))
		}
		return nil, s.record(op, nil)
	}

	m, err := s.memberships.Transition(ctx, groupID, userID, models.StateInvited, models.StateMember, nil)
	if errors.Is(err, membershipstore.ErrStateMismatch) {
		return nil, s.record(op, apperr.ErrInvitationNotFound)
	}
	if err != nil {
		return nil, s.record(op, apperr.Internal(err))
	}
	s.linkUser(ctx, userID, groupID)
	return &m, s.record(op, nil)
}

// requireAdmin loads the group and checks that callerID administers it.
func (s *Service) requireAdmin(ctx context.Context, groupID, callerID primitive.ObjectID) (models.Group, error) {
	g, err := s.loadGroup(ctx, groupID)
	if err != nil {
		return models.Group{}, err
	}
	if g.Admin != callerID {
		return models.Group{}, apperr.ErrNotAuthorized
	}
	return g, nil
}

// ApproveRequest turns targetID's pending request into membership.
func (s *Service) ApproveRequest(ctx context.Context, groupID, callerID, targetID primitive.ObjectID) (models.GroupMembership, error) {
	const op = "approve"
	g, err := s.requireAdmin(ctx, groupID, callerID)
	if err != nil {
		return models.GroupMembership{}, s.record(op, err)
	}
	m, err := s.memberships.Transition(ctx, groupID, targetID, models.StatePending, models.StateMember, nil)
	if errors.Is(err, membershipstore.ErrStateMismatch) {
		return models.GroupMembership{}, s.record(op, apperr.ErrRequestNotFound)
	}
	if err != nil {
		return models.GroupMembership{}, s.record(op, apperr.Internal(err))
	}
	s.linkUser(ctx, targetID, groupID)
	s.notify(targetID, EventApproved, map[string]string{"group_id": g.ID.Hex(), "group_name": g.Name})
	return m, s.record(op, nil)
}

// RejectRequest drops targetID's pending request.
func (s *Service) RejectRequest(ctx context.Context, groupID, callerID, targetID primitive.ObjectID) error {
	const op = "reject"
	if _, err := s.requireAdmin(ctx, groupID, callerID); err != nil {
		return s.record(op, err)
	}
	err := s.memberships.DeleteInState(ctx, groupID, targetID, models.StatePending)
	if errors.Is(err, membershipstore.ErrStateMismatch) {
		return s.record(op, apperr.ErrRequestNotFound)
	}
	if err != nil {
		return s.record(op, apperr.Internal(err))
	}
	return s.record(op, nil)
}

// RemoveMember removes targetID from the group. The admin cannot be removed.
func (s *Service) RemoveMember(ctx context.Context, groupID, callerID, targetID primitive.ObjectID) error {
	const op = "remove"
	g, err := s.requireAdmin(ctx, groupID, callerID)
	if err != nil {
		return s.record(op, err)
	}
	if targetID == g.Admin {
		return s.record(op, apperr.ErrCannotRemoveAdmin)
	}
	err = s.memberships.DeleteInState(ctx, groupID, targetID, models.StateMember)
	if errors.Is(err, membershipstore.ErrStateMismatch) {
		return s.record(op, apperr.ErrMemberNotFound)
	}
	if err != nil {
		return s.record(op, apperr.Internal(err))
	}
	s.unlinkUser(ctx, targetID, groupID)
	s.Log.Info("member removed",
		zap.String("group_id", groupID.Hex()),
		zap.String("user_id", targetID.Hex()))
	s.notify(targetID, EventRemoved, map[string]string{"group_id": g.ID.Hex(), "group_name": g.Name})
	return s.record(op, nil)
}

// Leave removes userID from the group. The admin cannot leave.
func (s *Service) Leave(ctx context.Context, groupID, userID primitive.ObjectID) error {
	const op = "leave"
	g, err := s.loadGroup(ctx, groupID)
	if err != nil {
		return s.record(op, err)
	}
	if g.Admin == userID {
		return s.record(op, apperr.ErrAdminCannotLeave)
	}
	err = s.memberships.DeleteInState(ctx, groupID, userID, models.StateMember)
	if errors.Is(err, membershipstore.ErrStateMismatch) {
		return s.record(op, apperr.ErrNotAMember)
	}
	if err != nil {
		return s.record(op, apperr.Internal(err))
	}
	s.unlinkUser(ctx, userID, groupID)
	return s.record(op, nil)
}

// linkUser and unlinkUser maintain the denormalized users.groups set after
// the membership CAS has succeeded. The set is repairable from
// group_memberships, so a failure is logged rather than returned.
func (s *Service) linkUser(ctx context.Context, userID, groupID primitive.ObjectID) {
	if err := s.users.AddGroup(ctx, userID, groupID); err != nil {
		s.Log.Warn("users.groups not updated after join",
			zap.String("user_id", userID.Hex()), zap.String("group_id", groupID.Hex()), zap.Error(err))
	}
}

func (s *Service) unlinkUser(ctx context.Context, userID, groupID primitive.ObjectID) {
	if err := s.users.RemoveGroup(ctx, userID, groupID); err != nil {
		s.Log.Warn("users.groups not updated after removal",
			zap.String("user_id", userID.Hex()), zap.String("group_id", groupID.Hex()), zap.Error(err))
	}
}

// RepairUserGroups rewrites userID's groups set from group_memberships and
// returns the repaired set. Login runs it so drift left by an interrupted
// transition heals the next time the user signs in.
func (s *Service) RepairUserGroups(ctx context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, error) {
	ids, err := s.memberships.GroupIDsForUser(ctx, userID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if err := s.users.SetGroups(ctx, userID, ids); err != nil {
		if errors.Is(err, userstore.ErrNotFound) {
			return nil, apperr.ErrUserNotFound
		}
		return nil, apperr.Internal(err)
	}
	return ids, nil
}
