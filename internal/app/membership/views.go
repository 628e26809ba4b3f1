package membership

import (
	"context"
	"time"

	"github.com/hearthsocial/hearth/internal/app/policy/grouppolicy"
	"github.com/hearthsocial/hearth/internal/app/system/apperr"
	"github.com/hearthsocial/hearth/internal/app/system/paging"
	"github.com/hearthsocial/hearth/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Entry is one user in a members, pending or invitations list.
type Entry struct {
	User      models.PublicUser   `json:"user"`
	Since     time.Time           `json:"since"`
	InvitedBy *primitive.ObjectID `json:"invited_by,omitempty"`
}

// GroupView is the JSON shape of a single group as seen by one caller.
//
// A restricted view carries only ID, Name, IsPrivate, Admin, an empty
// Members list and MyState.
type GroupView struct {
	ID              primitive.ObjectID `json:"id"`
	Name            string             `json:"name"`
	Description     string             `json:"description,omitempty"`
	IsPrivate       bool               `json:"is_private"`
	Admin           primitive.ObjectID `json:"admin"`
	Restricted      bool               `json:"restricted,omitempty"`
	Members         []Entry            `json:"members"`
	PendingRequests []Entry            `json:"pending_requests,omitempty"`
	Invitations     []Entry            `json:"invitations,omitempty"`
	MemberCount     int                `json:"member_count,omitempty"`
	MyState         string             `json:"my_state"`
	CreatedAt       *time.Time         `json:"created_at,omitempty"`
}

// Summary is a group row in list responses.
type Summary struct {
	ID          primitive.ObjectID `json:"id"`
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	IsPrivate   bool               `json:"is_private"`
	Admin       primitive.ObjectID `json:"admin"`
	MyState     string             `json:"my_state"`
}

func summarize(g models.Group, state string) Summary {
	s := Summary{ID: g.ID, Name: g.Name, IsPrivate: g.IsPrivate, Admin: g.Admin, MyState: state}
	if grouppolicy.CanViewDetails(g, state) {
		s.Description = g.Description
	}
	return s
}

// View returns groupID as seen by callerID.
func (s *Service) View(ctx context.Context, groupID, callerID primitive.ObjectID) (GroupView, error) {
	g, err := s.loadGroup(ctx, groupID)
	if err != nil {
		return GroupView{}, err
	}
	mine, err := s.loadMembership(ctx, groupID, callerID)
	if err != nil {
		return GroupView{}, err
	}
	state := grouppolicy.StateOf(g, callerID, mine)

	if !grouppolicy.CanViewDetails(g, state) {
		return GroupView{
			ID:         g.ID,
			Name:       g.Name,
			IsPrivate:  true,
			Admin:      g.Admin,
			Restricted: true,
			Members:    []Entry{},
			MyState:    state,
		}, nil
	}

	records, err := s.memberships.ListAllByGroup(ctx, groupID)
	if err != nil {
		return GroupView{}, apperr.Internal(err)
	}
	people, err := s.publicUsers(ctx, records)
	if err != nil {
		return GroupView{}, err
	}

	created := g.CreatedAt
	v := GroupView{
		ID:          g.ID,
		Name:        g.Name,
		Description: g.Description,
		IsPrivate:   g.IsPrivate,
		Admin:       g.Admin,
		Members:     []Entry{},
		MyState:     state,
		CreatedAt:   &created,
	}
	showQueues := grouppolicy.CanSeeQueues(state)
	if showQueues {
		v.PendingRequests = []Entry{}
		v.Invitations = []Entry{}
	}
	for _, m := range records {
		u, ok := people[m.UserID]
		if !ok {
			continue
		}
		e := Entry{User: u, Since: m.CreatedAt}
		switch m.State {
		case models.StateMember:
			v.Members = append(v.Members, e)
		case models.StatePending:
			if showQueues {
				v.PendingRequests = append(v.PendingRequests, e)
			}
		case models.StateInvited:
			if showQueues {
				e.InvitedBy = m.InvitedBy
				v.Invitations = append(v.Invitations, e)
			}
		}
	}
	v.MemberCount = len(v.Members)
	return v, nil
}

// publicUsers loads the public projection of every user in records.
// Users that no longer exist are left out.
func (s *Service) publicUsers(ctx context.Context, records []models.GroupMembership) (map[primitive.ObjectID]models.PublicUser, error) {
	ids := make([]primitive.ObjectID, 0, len(records))
	for _, m := range records {
		ids = append(ids, m.UserID)
	}
	users, err := s.users.GetMany(ctx, ids)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	out := make(map[primitive.ObjectID]models.PublicUser, len(users))
	for i := range users {
		out[users[i].ID] = users[i].Public()
	}
	return out, nil
}

// List returns the groups callerID can see: public ones plus those the
// caller belongs to, optionally filtered by a name prefix.
func (s *Service) List(ctx context.Context, callerID primitive.ObjectID, q string, page paging.Keyset) ([]Summary, string, error) {
	memberOf, err := s.memberships.GroupIDsForUser(ctx, callerID)
	if err != nil {
		return nil, "", apperr.Internal(err)
	}
	groups, next, err := s.groups.ListVisible(ctx, memberOf, q, page)
	if err != nil {
		return nil, "", apperr.Internal(err)
	}
	out, err := s.summaries(ctx, callerID, groups)
	if err != nil {
		return nil, "", err
	}
	return out, next, nil
}

func (s *Service) summaries(ctx context.Context, callerID primitive.ObjectID, groups []models.Group) ([]Summary, error) {
	ids := make([]primitive.ObjectID, 0, len(groups))
	for _, g := range groups {
		ids = append(ids, g.ID)
	}
	states, err := s.memberships.StatesForUser(ctx, callerID, ids)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	out := make([]Summary, 0, len(groups))
	for _, g := range groups {
		var m *models.GroupMembership
		if st, ok := states[g.ID]; ok {
			m = &models.GroupMembership{State: st}
		}
		out = append(out, summarize(g, grouppolicy.StateOf(g, callerID, m)))
	}
	return out, nil
}

// MyGroups returns the groups where callerID is a member, admin included.
func (s *Service) MyGroups(ctx context.Context, callerID primitive.ObjectID) ([]Summary, error) {
	ids, err := s.memberships.GroupIDsForUser(ctx, callerID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	groups, err := s.groups.GetMany(ctx, ids)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	out := make([]Summary, 0, len(groups))
	for _, g := range groups {
		state := grouppolicy.StateMember
		if g.Admin == callerID {
			state = grouppolicy.StateAdmin
		}
		out = append(out, summarize(g, state))
	}
	return out, nil
}

// Invitation is an open invitation addressed to the caller.
type Invitation struct {
	Group     Summary             `json:"group"`
	InvitedBy *primitive.ObjectID `json:"invited_by,omitempty"`
	InvitedAt time.Time           `json:"invited_at"`
}

// MyInvitations lists callerID's open invitations, newest first.
func (s *Service) MyInvitations(ctx context.Context, callerID primitive.ObjectID) ([]Invitation, error) {
	records, err := s.memberships.ListByUser(ctx, callerID, models.StateInvited)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	ids := make([]primitive.ObjectID, 0, len(records))
	for _, m := range records {
		ids = append(ids, m.GroupID)
	}
	groups, err := s.groups.GetMany(ctx, ids)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	byID := make(map[primitive.ObjectID]models.Group, len(groups))
	for _, g := range groups {
		byID[g.ID] = g
	}

	out := make([]Invitation, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		m := records[i]
		g, ok := byID[m.GroupID]
		if !ok {
			continue
		}
		// Invitees may see a private group's description.
		sum := summarize(g, grouppolicy.StateInvited)
		sum.Description = g.Description
		out = append(out, Invitation{Group: sum, InvitedBy: m.InvitedBy, InvitedAt: m.CreatedAt})
	}
	return out, nil
}

// PendingRequests lists the group's pending join requests. Admin only.
func (s *Service) PendingRequests(ctx context.Context, groupID, callerID primitive.ObjectID) ([]Entry, error) {
	if _, err := s.requireAdmin(ctx, groupID, callerID); err != nil {
		return nil, err
	}
	records, err := s.memberships.ListByGroup(ctx, groupID, models.StatePending)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	people, err := s.publicUsers(ctx, records)
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(records))
	for _, m := range records {
		if u, ok := people[m.UserID]; ok {
			out = append(out, Entry{User: u, Since: m.CreatedAt})
		}
	}
	return out, nil
}
