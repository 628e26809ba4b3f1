package membership_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/hearthsocial/hearth/internal/app/membership"
	membershipstore "github.com/hearthsocial/hearth/internal/app/store/memberships"
	userstore "github.com/hearthsocial/hearth/internal/app/store/users"
	"github.com/hearthsocial/hearth/internal/app/system/apperr"
	"github.com/hearthsocial/hearth/internal/app/system/metrics"
	"github.com/hearthsocial/hearth/internal/app/system/paging"
	"github.com/hearthsocial/hearth/internal/domain/models"
	"github.com/hearthsocial/hearth/internal/testutil"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type recordedEvent struct {
	user  primitive.ObjectID
	event string
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (f *fakeNotifier) NotifyUser(userID primitive.ObjectID, event string, _ any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, recordedEvent{userID, event})
}

func (f *fakeNotifier) has(user primitive.ObjectID, event string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.events {
		if e.user == user && e.event == event {
			return true
		}
	}
	return false
}

func newService(db *mongo.Database) (*membership.Service, *fakeNotifier) {
	svc := membership.New(db, metrics.New(), zap.NewNop())
	n := &fakeNotifier{}
	svc.Notifier = n
	return svc, n
}

// stateOf returns the pair's membership state, or "none".
func stateOf(t *testing.T, ctx context.Context, db *mongo.Database, groupID, userID primitive.ObjectID) string {
	t.Helper()
	m, err := membershipstore.New(db).Get(ctx, groupID, userID)
	if errors.Is(err, membershipstore.ErrNotFound) {
		return "none"
	}
	if err != nil {
		t.Fatalf("get membership: %v", err)
	}
	return m.State
}

func recordCount(t *testing.T, ctx context.Context, db *mongo.Database, groupID, userID primitive.ObjectID) int64 {
	t.Helper()
	n, err := db.Collection("group_memberships").CountDocuments(ctx, bson.M{"group_id": groupID, "user_id": userID})
	if err != nil {
		t.Fatalf("count memberships: %v", err)
	}
	return n
}

func userGroups(t *testing.T, ctx context.Context, db *mongo.Database, userID primitive.ObjectID) []primitive.ObjectID {
	t.Helper()
	u, err := userstore.New(db).GetByID(ctx, userID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	return u.Groups
}

func contains(ids []primitive.ObjectID, id primitive.ObjectID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func TestCreateGroup(t *testing.T) {
	db := testutil.SetupTestDBWithIndexes(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	svc, _ := newService(db)
	owner := fixtures.CreateUser(ctx, "owner")

	g, err := svc.CreateGroup(ctx, owner.ID, membership.GroupInput{
		Name:        strPtr("  <b>Hikers</b> "),
		Description: strPtr("Weekend trips"),
		IsPrivate:   boolPtr(true),
	})
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	if g.Name != "Hikers" || g.Description != "Weekend trips" || !g.IsPrivate || g.Admin != owner.ID {
		t.Errorf("unexpected group: %+v", g)
	}

	m, err := membershipstore.New(db).Get(ctx, g.ID, owner.ID)
	if err != nil {
		t.Fatalf("admin membership missing: %v", err)
	}
	if !m.IsAdmin() {
		t.Errorf("admin record: got state=%q role=%q", m.State, m.Role)
	}
	if !contains(userGroups(t, ctx, db, owner.ID), g.ID) {
		t.Error("creator's groups set should contain the new group")
	}
}

func TestCreateGroup_Validation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	svc, _ := newService(db)
	owner := fixtures.CreateUser(ctx, "owner")

	tests := []struct {
		name string
		in   membership.GroupInput
	}{
		{"missing name", membership.GroupInput{}},
		{"blank name", membership.GroupInput{Name: strPtr("   ")}},
		{"markup only", membership.GroupInput{Name: strPtr("<i></i>")}},
		{"name too long", membership.GroupInput{Name: strPtr(strings.Repeat("n", 101))}},
		{"description too long", membership.GroupInput{Name: strPtr("ok"), Description: strPtr(strings.Repeat("d", 1001))}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateGroup(ctx, owner.ID, tt.in)
			if apperr.KindOf(err) != apperr.KindInvalidInput {
				t.Errorf("CreateGroup: got %v, want invalid input", err)
			}
		})
	}

	n, err := db.Collection("groups").CountDocuments(ctx, bson.M{})
	if err != nil {
		t.Fatalf("count groups: %v", err)
	}
	if n != 0 {
		t.Errorf("no group should be stored, got %d", n)
	}
}

func TestJoinApproveScenario(t *testing.T) {
	db := testutil.SetupTestDBWithIndexes(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	m := metrics.New()
	svc := membership.New(db, m, zap.NewNop())
	notes := &fakeNotifier{}
	svc.Notifier = notes

	admin := fixtures.CreateUser(ctx, "admin")
	a := fixtures.CreateUser(ctx, "alice")
	g := fixtures.CreateGroup(ctx, "Public", admin.ID, false)

	res, err := svc.RequestJoin(ctx, g.ID, a.ID)
	if err != nil {
		t.Fatalf("RequestJoin failed: %v", err)
	}
	if res.Membership.State != models.StatePending || res.InvitationCancelled {
		t.Errorf("unexpected join result: %+v", res)
	}
	if !notes.has(admin.ID, membership.EventRequestReceived) {
		t.Error("admin should be notified of the request")
	}

	view, err := svc.View(ctx, g.ID, admin.ID)
	if err != nil {
		t.Fatalf("View failed: %v", err)
	}
	if len(view.PendingRequests) != 1 || view.PendingRequests[0].User.ID != a.ID {
		t.Fatalf("pending should be {alice}, got %+v", view.PendingRequests)
	}

	if _, err := svc.ApproveRequest(ctx, g.ID, admin.ID, a.ID); err != nil {
		t.Fatalf("ApproveRequest failed: %v", err)
	}

	view, err = svc.View(ctx, g.ID, admin.ID)
	if err != nil {
		t.Fatalf("View failed: %v", err)
	}
	if len(view.PendingRequests) != 0 {
		t.Errorf("pending should be empty, got %+v", view.PendingRequests)
	}
	found := false
	for _, e := range view.Members {
		if e.User.ID == a.ID {
			found = true
		}
	}
	if !found || view.MemberCount != 2 {
		t.Errorf("alice should be a member (count 2), got %+v", view.Members)
	}
	if !contains(userGroups(t, ctx, db, a.ID), g.ID) {
		t.Error("alice.groups should contain the group")
	}
	if !notes.has(a.ID, membership.EventApproved) {
		t.Error("alice should be notified of approval")
	}
	if got := promtest.ToFloat64(m.Transitions.WithLabelValues("approve", "ok")); got != 1 {
		t.Errorf("approve ok counter: got %v, want 1", got)
	}
}

func TestRequestJoin_Errors(t *testing.T) {
	db := testutil.SetupTestDBWithIndexes(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	svc, _ := newService(db)
	admin := fixtures.CreateUser(ctx, "admin")
	member := fixtures.CreateUser(ctx, "member")
	pending := fixtures.CreateUser(ctx, "pending")
	g := fixtures.CreateGroup(ctx, "G", admin.ID, false)
	fixtures.CreateMembership(ctx, g.ID, member.ID, models.StateMember)
	fixtures.CreateMembership(ctx, g.ID, pending.ID, models.StatePending)

	tests := []struct {
		name    string
		groupID primitive.ObjectID
		userID  primitive.ObjectID
		want    error
	}{
		{"admin", g.ID, admin.ID, apperr.ErrAlreadyMember},
		{"member", g.ID, member.ID, apperr.ErrAlreadyMember},
		{"pending", g.ID, pending.ID, apperr.ErrAlreadyPending},
		{"unknown group", primitive.NewObjectID(), member.ID, apperr.ErrGroupNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.RequestJoin(ctx, tt.groupID, tt.userID)
			if !errors.Is(err, tt.want) {
				t.Errorf("RequestJoin: got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestRequestJoin_CancelsInvitation(t *testing.T) {
	db := testutil.SetupTestDBWithIndexes(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	svc, _ := newService(db)
	admin := fixtures.CreateUser(ctx, "admin")
	u := fixtures.CreateUser(ctx, "u")
	g := fixtures.CreateGroup(ctx, "G", admin.ID, true)
	fixtures.CreateMembership(ctx, g.ID, u.ID, models.StateInvited)

	res, err := svc.RequestJoin(ctx, g.ID, u.ID)
	if err != nil {
		t.Fatalf("RequestJoin failed: %v", err)
	}
	if !res.InvitationCancelled {
		t.Error("invitation_cancelled should be set")
	}
	if got := stateOf(t, ctx, db, g.ID, u.ID); got != models.StatePending {
		t.Errorf("state: got %q, want pending", got)
	}
	if n := recordCount(t, ctx, db, g.ID, u.ID); n != 1 {
		t.Errorf("exactly one record expected, got %d", n)
	}
	if res.Membership.InvitedBy != nil {
		t.Error("invited_by should be cleared on the pending record")
	}
}

func TestInvite_CancelsRequest(t *testing.T) {
	db := testutil.SetupTestDBWithIndexes(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	svc, notes := newService(db)
	admin := fixtures.CreateUser(ctx, "admin")
	b := fixtures.CreateUser(ctx, "bob")
	g := fixtures.CreateGroup(ctx, "G", admin.ID, false)

	if _, err := svc.RequestJoin(ctx, g.ID, b.ID); err != nil {
		t.Fatalf("RequestJoin failed: %v", err)
	}
	res, err := svc.Invite(ctx, g.ID, admin.ID, b.ID)
	if err != nil {
		t.Fatalf("Invite failed: %v", err)
	}
	if !res.RequestCancelled {
		t.Error("request_cancelled should be set")
	}
	if res.Membership.InvitedBy == nil || *res.Membership.InvitedBy != admin.ID {
		t.Errorf("invited_by: got %v, want %s", res.Membership.InvitedBy, admin.ID.Hex())
	}
	if got := stateOf(t, ctx, db, g.ID, b.ID); got != models.StateInvited {
		t.Errorf("state: got %q, want invited", got)
	}
	if n := recordCount(t, ctx, db, g.ID, b.ID); n != 1 {
		t.Errorf("exactly one record expected, got %d", n)
	}
	if !notes.has(b.ID, membership.EventInvited) {
		t.Error("bob should be notified of the invitation")
	}

	view, err := svc.View(ctx, g.ID, admin.ID)
	if err != nil {
		t.Fatalf("View failed: %v", err)
	}
	if len(view.PendingRequests) != 0 || len(view.Invitations) != 1 {
		t.Errorf("queues: pending=%d invitations=%d, want 0 and 1", len(view.PendingRequests), len(view.Invitations))
	}
}

func TestInvite_Errors(t *testing.T) {
	db := testutil.SetupTestDBWithIndexes(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	svc, _ := newService(db)
	admin := fixtures.CreateUser(ctx, "admin")
	member := fixtures.CreateUser(ctx, "member")
	outsider := fixtures.CreateUser(ctx, "outsider")
	invited := fixtures.CreateUser(ctx, "invited")
	g := fixtures.CreateGroup(ctx, "G", admin.ID, false)
	fixtures.CreateMembership(ctx, g.ID, member.ID, models.StateMember)
	fixtures.CreateMembership(ctx, g.ID, invited.ID, models.StateInvited)

	tests := []struct {
		name    string
		groupID primitive.ObjectID
		caller  primitive.ObjectID
		target  primitive.ObjectID
		want    error
	}{
		{"unknown group", primitive.NewObjectID(), admin.ID, outsider.ID, apperr.ErrGroupNotFound},
		{"caller not a member", g.ID, outsider.ID, outsider.ID, apperr.ErrNotAuthorized},
		{"invited caller", g.ID, invited.ID, outsider.ID, apperr.ErrNotAuthorized},
		{"unknown target", g.ID, admin.ID, primitive.NewObjectID(), apperr.ErrUserNotFound},
		{"target is member", g.ID, admin.ID, member.ID, apperr.ErrTargetAlreadyMember},
		{"target is admin", g.ID, member.ID, admin.ID, apperr.ErrTargetAlreadyMember},
		{"already invited", g.ID, member.ID, invited.ID, apperr.ErrAlreadyInvited},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Invite(ctx, tt.groupID, tt.caller, tt.target)
			if !errors.Is(err, tt.want) {
				t.Errorf("Invite: got %v, want %v", err, tt.want)
			}
		})
	}

	// Any member may invite.
	if _, err := svc.Invite(ctx, g.ID, member.ID, outsider.ID); err != nil {
		t.Errorf("member invite failed: %v", err)
	}
}

func TestRespondToInvitation(t *testing.T) {
	db := testutil.SetupTestDBWithIndexes(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	svc, _ := newService(db)
	admin := fixtures.CreateUser(ctx, "admin")
	yes := fixtures.CreateUser(ctx, "yes")
	no := fixtures.CreateUser(ctx, "no")
	g := fixtures.CreateGroup(ctx, "G", admin.ID, true)
	fixtures.CreateMembership(ctx, g.ID, yes.ID, models.StateInvited)
	fixtures.CreateMembership(ctx, g.ID, no.ID, models.StateInvited)

	m, err := svc.RespondToInvitation(ctx, g.ID, yes.ID, true)
	if err != nil {
		t.Fatalf("accept failed: %v", err)
	}
	if m == nil || m.State != models.StateMember {
		t.Errorf("accepted record: got %+v", m)
	}
	if !contains(userGroups(t, ctx, db, yes.ID), g.ID) {
		t.Error("accepting should add the group to user.groups")
	}

	if _, err := svc.RespondToInvitation(ctx, g.ID, no.ID, false); err != nil {
		t.Fatalf("decline failed: %v", err)
	}
	if got := stateOf(t, ctx, db, g.ID, no.ID); got != "none" {
		t.Errorf("declined state: got %q, want none", got)
	}

	_, err = svc.RespondToInvitation(ctx, g.ID, no.ID, true)
	if !errors.Is(err, apperr.ErrInvitationNotFound) {
		t.Errorf("respond without invitation: got %v, want %v", err, apperr.ErrInvitationNotFound)
	}
	_, err = svc.RespondToInvitation(ctx, g.ID, yes.ID, false)
	if !errors.Is(err, apperr.ErrInvitationNotFound) {
		t.Errorf("member declining: got %v, want %v", err, apperr.ErrInvitationNotFound)
	}
}

func TestApproveReject_Errors(t *testing.T) {
	db := testutil.SetupTestDBWithIndexes(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	svc, _ := newService(db)
	admin := fixtures.CreateUser(ctx, "admin")
	member := fixtures.CreateUser(ctx, "member")
	pending := fixtures.CreateUser(ctx, "pending")
	invited := fixtures.CreateUser(ctx, "invited")
	g := fixtures.CreateGroup(ctx, "G", admin.ID, false)
	fixtures.CreateMembership(ctx, g.ID, member.ID, models.StateMember)
	fixtures.CreateMembership(ctx, g.ID, pending.ID, models.StatePending)
	fixtures.CreateMembership(ctx, g.ID, invited.ID, models.StateInvited)

	if _, err := svc.ApproveRequest(ctx, g.ID, member.ID, pending.ID); !errors.Is(err, apperr.ErrNotAuthorized) {
		t.Errorf("approve by member: got %v, want %v", err, apperr.ErrNotAuthorized)
	}
	if err := svc.RejectRequest(ctx, g.ID, member.ID, pending.ID); !errors.Is(err, apperr.ErrNotAuthorized) {
		t.Errorf("reject by member: got %v, want %v", err, apperr.ErrNotAuthorized)
	}
	if _, err := svc.ApproveRequest(ctx, g.ID, admin.ID, invited.ID); !errors.Is(err, apperr.ErrRequestNotFound) {
		t.Errorf("approve invitee: got %v, want %v", err, apperr.ErrRequestNotFound)
	}
	if err := svc.RejectRequest(ctx, g.ID, admin.ID, member.ID); !errors.Is(err, apperr.ErrRequestNotFound) {
		t.Errorf("reject member: got %v, want %v", err, apperr.ErrRequestNotFound)
	}
	if got := stateOf(t, ctx, db, g.ID, member.ID); got != models.StateMember {
		t.Errorf("member state changed to %q", got)
	}

	if err := svc.RejectRequest(ctx, g.ID, admin.ID, pending.ID); err != nil {
		t.Fatalf("RejectRequest failed: %v", err)
	}
	if got := stateOf(t, ctx, db, g.ID, pending.ID); got != "none" {
		t.Errorf("rejected state: got %q, want none", got)
	}
}

func TestApproveRejectRace_OneWins(t *testing.T) {
	db := testutil.SetupTestDBWithIndexes(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	svc, _ := newService(db)
	admin := fixtures.CreateUser(ctx, "admin")
	u := fixtures.CreateUser(ctx, "u")
	g := fixtures.CreateGroup(ctx, "G", admin.ID, false)
	fixtures.CreateMembership(ctx, g.ID, u.ID, models.StatePending)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, errs[0] = svc.ApproveRequest(ctx, g.ID, admin.ID, u.ID)
	}()
	go func() {
		defer wg.Done()
		errs[1] = svc.RejectRequest(ctx, g.ID, admin.ID, u.ID)
	}()
	wg.Wait()

	wins := 0
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, apperr.ErrRequestNotFound):
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("exactly one operation should win, got %d (%v)", wins, errs)
	}
	state := stateOf(t, ctx, db, g.ID, u.ID)
	if errs[0] == nil && state != models.StateMember {
		t.Errorf("approve won but state is %q", state)
	}
	if errs[1] == nil && state != "none" {
		t.Errorf("reject won but state is %q", state)
	}
}

func TestRemoveMemberAndLeave(t *testing.T) {
	db := testutil.SetupTestDBWithIndexes(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	svc, notes := newService(db)
	admin := fixtures.CreateUser(ctx, "admin")
	kicked := fixtures.CreateUser(ctx, "kicked")
	leaver := fixtures.CreateUser(ctx, "leaver")
	pending := fixtures.CreateUser(ctx, "pending")
	g := fixtures.CreateGroup(ctx, "G", admin.ID, false)
	fixtures.CreateMembership(ctx, g.ID, kicked.ID, models.StateMember)
	fixtures.CreateMembership(ctx, g.ID, leaver.ID, models.StateMember)
	fixtures.CreateMembership(ctx, g.ID, pending.ID, models.StatePending)

	if err := svc.RemoveMember(ctx, g.ID, admin.ID, admin.ID); !errors.Is(err, apperr.ErrCannotRemoveAdmin) {
		t.Errorf("remove admin: got %v, want %v", err, apperr.ErrCannotRemoveAdmin)
	}
	if err := svc.RemoveMember(ctx, g.ID, leaver.ID, kicked.ID); !errors.Is(err, apperr.ErrNotAuthorized) {
		t.Errorf("remove by member: got %v, want %v", err, apperr.ErrNotAuthorized)
	}
	if err := svc.RemoveMember(ctx, g.ID, admin.ID, pending.ID); !errors.Is(err, apperr.ErrMemberNotFound) {
		t.Errorf("remove requester: got %v, want %v", err, apperr.ErrMemberNotFound)
	}
	if err := svc.RemoveMember(ctx, g.ID, admin.ID, kicked.ID); err != nil {
		t.Fatalf("RemoveMember failed: %v", err)
	}
	if contains(userGroups(t, ctx, db, kicked.ID), g.ID) {
		t.Error("removed member's groups set should not contain the group")
	}
	if !notes.has(kicked.ID, membership.EventRemoved) {
		t.Error("removed member should be notified")
	}

	if err := svc.Leave(ctx, g.ID, admin.ID); !errors.Is(err, apperr.ErrAdminCannotLeave) {
		t.Errorf("admin leave: got %v, want %v", err, apperr.ErrAdminCannotLeave)
	}
	if err := svc.Leave(ctx, g.ID, pending.ID); !errors.Is(err, apperr.ErrNotAMember) {
		t.Errorf("requester leave: got %v, want %v", err, apperr.ErrNotAMember)
	}
	if err := svc.Leave(ctx, g.ID, leaver.ID); err != nil {
		t.Fatalf("Leave failed: %v", err)
	}
	if got := stateOf(t, ctx, db, g.ID, leaver.ID); got != "none" {
		t.Errorf("leaver state: got %q, want none", got)
	}
	if contains(userGroups(t, ctx, db, leaver.ID), g.ID) {
		t.Error("leaver's groups set should not contain the group")
	}
	if got := stateOf(t, ctx, db, g.ID, admin.ID); got != models.StateMember {
		t.Errorf("admin record must survive, got %q", got)
	}
}

func TestUpdateGroup_RoundTrip(t *testing.T) {
	db := testutil.SetupTestDBWithIndexes(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	svc, _ := newService(db)
	admin := fixtures.CreateUser(ctx, "admin")
	member := fixtures.CreateUser(ctx, "member")
	g := fixtures.CreateGroup(ctx, "Before", admin.ID, false)
	fixtures.CreateMembership(ctx, g.ID, member.ID, models.StateMember)

	if _, err := svc.UpdateGroup(ctx, g.ID, member.ID, membership.GroupInput{Name: strPtr("Nope")}); !errors.Is(err, apperr.ErrNotAuthorized) {
		t.Errorf("update by member: got %v, want %v", err, apperr.ErrNotAuthorized)
	}
	if _, err := svc.UpdateGroup(ctx, g.ID, admin.ID, membership.GroupInput{Name: strPtr("")}); apperr.KindOf(err) != apperr.KindInvalidInput {
		t.Errorf("empty name: got %v, want invalid input", err)
	}

	if _, err := svc.UpdateGroup(ctx, g.ID, admin.ID, membership.GroupInput{
		Name:        strPtr("After"),
		Description: strPtr("New description"),
	}); err != nil {
		t.Fatalf("UpdateGroup failed: %v", err)
	}

	view, err := svc.View(ctx, g.ID, admin.ID)
	if err != nil {
		t.Fatalf("View failed: %v", err)
	}
	if view.Name != "After" || view.Description != "New description" {
		t.Errorf("view after update: %+v", view)
	}
	if view.Admin != admin.ID || view.MemberCount != 2 {
		t.Errorf("admin or members changed: admin=%s count=%d", view.Admin.Hex(), view.MemberCount)
	}
	if view.IsPrivate {
		t.Error("privacy should be unchanged")
	}
}

func TestDeleteGroup_Cascade(t *testing.T) {
	db := testutil.SetupTestDBWithIndexes(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	svc, _ := newService(db)
	admin := fixtures.CreateUser(ctx, "admin")
	x := fixtures.CreateUser(ctx, "x")
	y := fixtures.CreateUser(ctx, "y")
	g := fixtures.CreateGroup(ctx, "Doomed", admin.ID, false)
	other := fixtures.CreateGroup(ctx, "Other", admin.ID, false)
	fixtures.CreateMembership(ctx, g.ID, x.ID, models.StateMember)
	fixtures.CreateMembership(ctx, g.ID, y.ID, models.StateInvited)
	fixtures.CreateMembership(ctx, other.ID, x.ID, models.StateMember)
	fixtures.CreatePost(ctx, x.ID, &g.ID, "in doomed")
	kept := fixtures.CreatePost(ctx, x.ID, nil, "personal")

	if err := svc.DeleteGroup(ctx, g.ID, x.ID); !errors.Is(err, apperr.ErrNotAuthorized) {
		t.Errorf("delete by member: got %v, want %v", err, apperr.ErrNotAuthorized)
	}
	if err := svc.DeleteGroup(ctx, g.ID, admin.ID); err != nil {
		t.Fatalf("DeleteGroup failed: %v", err)
	}

	for _, u := range []models.User{admin, x, y} {
		if contains(userGroups(t, ctx, db, u.ID), g.ID) {
			t.Errorf("%s.groups still contains the deleted group", u.Username)
		}
	}
	if !contains(userGroups(t, ctx, db, x.ID), other.ID) {
		t.Error("unrelated group should stay in x.groups")
	}
	if n, _ := db.Collection("group_memberships").CountDocuments(ctx, bson.M{"group_id": g.ID}); n != 0 {
		t.Errorf("memberships left: %d", n)
	}
	if n, _ := db.Collection("posts").CountDocuments(ctx, bson.M{"group": g.ID}); n != 0 {
		t.Errorf("group posts left: %d", n)
	}
	if n, _ := db.Collection("posts").CountDocuments(ctx, bson.M{"_id": kept.ID}); n != 1 {
		t.Error("non-group post should survive")
	}
	if _, err := svc.View(ctx, g.ID, admin.ID); !errors.Is(err, apperr.ErrGroupNotFound) {
		t.Errorf("view deleted group: got %v, want %v", err, apperr.ErrGroupNotFound)
	}
}

func TestView_PrivateRestricted(t *testing.T) {
	db := testutil.SetupTestDBWithIndexes(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	svc, _ := newService(db)
	admin := fixtures.CreateUser(ctx, "admin")
	c := fixtures.CreateUser(ctx, "carol")
	member := fixtures.CreateUser(ctx, "member")
	g := fixtures.CreateGroup(ctx, "Secret", admin.ID, true)
	fixtures.CreateMembership(ctx, g.ID, member.ID, models.StateMember)

	view, err := svc.View(ctx, g.ID, c.ID)
	if err != nil {
		t.Fatalf("View failed: %v", err)
	}
	if !view.Restricted || len(view.Members) != 0 || view.Description != "" {
		t.Errorf("non-member should get the restricted view, got %+v", view)
	}
	if view.PendingRequests != nil || view.Invitations != nil || view.MyState != "none" {
		t.Errorf("restricted view leaked queues or state: %+v", view)
	}

	view, err = svc.View(ctx, g.ID, member.ID)
	if err != nil {
		t.Fatalf("View failed: %v", err)
	}
	if view.Restricted || view.Description == "" || view.MemberCount != 2 || view.MyState != "member" {
		t.Errorf("member should get the full view, got %+v", view)
	}
	if view.PendingRequests == nil || view.Invitations == nil {
		t.Error("members see the (empty) queues")
	}
}

func TestView_PublicNonMemberHidesQueues(t *testing.T) {
	db := testutil.SetupTestDBWithIndexes(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	svc, _ := newService(db)
	admin := fixtures.CreateUser(ctx, "admin")
	asker := fixtures.CreateUser(ctx, "asker")
	g := fixtures.CreateGroup(ctx, "Open", admin.ID, false)
	fixtures.CreateMembership(ctx, g.ID, asker.ID, models.StatePending)

	view, err := svc.View(ctx, g.ID, asker.ID)
	if err != nil {
		t.Fatalf("View failed: %v", err)
	}
	if view.Restricted || view.Description == "" {
		t.Errorf("public group should be fully visible: %+v", view)
	}
	if view.PendingRequests != nil || view.Invitations != nil {
		t.Error("non-members must not see the queues")
	}
	if view.MyState != "pending" {
		t.Errorf("my_state: got %q, want pending", view.MyState)
	}
}

func TestLists(t *testing.T) {
	db := testutil.SetupTestDBWithIndexes(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	svc, _ := newService(db)
	admin := fixtures.CreateUser(ctx, "admin")
	me := fixtures.CreateUser(ctx, "me")
	asker := fixtures.CreateUser(ctx, "asker")
	public := fixtures.CreateGroup(ctx, "Alpha", admin.ID, false)
	hidden := fixtures.CreateGroup(ctx, "Beta", admin.ID, true)
	mine := fixtures.CreateGroup(ctx, "Gamma", admin.ID, true)
	fixtures.CreateMembership(ctx, mine.ID, me.ID, models.StateMember)
	fixtures.CreateMembership(ctx, hidden.ID, me.ID, models.StateInvited)
	fixtures.CreateMembership(ctx, public.ID, asker.ID, models.StatePending)

	rows, _, err := svc.List(ctx, me.ID, "", paging.Keyset{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	names := map[string]string{}
	for _, r := range rows {
		names[r.Name] = r.MyState
	}
	if _, ok := names["Beta"]; ok {
		t.Error("private group without membership must not be listed")
	}
	if names["Alpha"] != "none" || names["Gamma"] != "member" {
		t.Errorf("unexpected list: %v", names)
	}

	rows, _, err = svc.List(ctx, me.ID, "gam", paging.Keyset{})
	if err != nil {
		t.Fatalf("List with query failed: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != mine.ID {
		t.Errorf("search should return Gamma only, got %+v", rows)
	}

	my, err := svc.MyGroups(ctx, me.ID)
	if err != nil {
		t.Fatalf("MyGroups failed: %v", err)
	}
	if len(my) != 1 || my[0].ID != mine.ID {
		t.Errorf("MyGroups: got %+v", my)
	}

	inv, err := svc.MyInvitations(ctx, me.ID)
	if err != nil {
		t.Fatalf("MyInvitations failed: %v", err)
	}
	if len(inv) != 1 || inv[0].Group.ID != hidden.ID || inv[0].InvitedBy == nil {
		t.Errorf("MyInvitations: got %+v", inv)
	}

	reqs, err := svc.PendingRequests(ctx, public.ID, admin.ID)
	if err != nil {
		t.Fatalf("PendingRequests failed: %v", err)
	}
	if len(reqs) != 1 || reqs[0].User.ID != asker.ID {
		t.Errorf("PendingRequests: got %+v", reqs)
	}
	if _, err := svc.PendingRequests(ctx, public.ID, me.ID); !errors.Is(err, apperr.ErrNotAuthorized) {
		t.Errorf("PendingRequests by non-admin: got %v, want %v", err, apperr.ErrNotAuthorized)
	}
}

func TestExclusiveStates_AfterSequence(t *testing.T) {
	db := testutil.SetupTestDBWithIndexes(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	svc, _ := newService(db)
	admin := fixtures.CreateUser(ctx, "admin")
	u := fixtures.CreateUser(ctx, "u")
	g := fixtures.CreateGroup(ctx, "G", admin.ID, false)

	steps := []func() error{
		func() error { _, err := svc.RequestJoin(ctx, g.ID, u.ID); return err },
		func() error { _, err := svc.Invite(ctx, g.ID, admin.ID, u.ID); return err },
		func() error { _, err := svc.RequestJoin(ctx, g.ID, u.ID); return err },
		func() error { _, err := svc.ApproveRequest(ctx, g.ID, admin.ID, u.ID); return err },
		func() error { return svc.Leave(ctx, g.ID, u.ID) },
		func() error { _, err := svc.Invite(ctx, g.ID, admin.ID, u.ID); return err },
		func() error { _, err := svc.RespondToInvitation(ctx, g.ID, u.ID, true); return err },
	}
	for i, step := range steps {
		if err := step(); err != nil {
			t.Fatalf("step %d failed: %v", i, err)
		}
		if n := recordCount(t, ctx, db, g.ID, u.ID); n > 1 {
			t.Fatalf("step %d: %d records for one pair", i, n)
		}
		if n := recordCount(t, ctx, db, g.ID, admin.ID); n != 1 {
			t.Fatalf("step %d: admin record count %d", i, n)
		}
	}
	if got := stateOf(t, ctx, db, g.ID, u.ID); got != models.StateMember {
		t.Errorf("final state: got %q, want member", got)
	}
}

func TestRepairUserGroups(t *testing.T) {
	db := testutil.SetupTestDBWithIndexes(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	svc, _ := newService(db)
	admin := fixtures.CreateUser(ctx, "admin")
	u := fixtures.CreateUser(ctx, "u")
	g := fixtures.CreateGroup(ctx, "G", admin.ID, false)
	fixtures.CreateMembership(ctx, g.ID, u.ID, models.StateMember)

	stale := primitive.NewObjectID()
	if _, err := db.Collection("users").UpdateByID(ctx, u.ID, bson.M{"$set": bson.M{"groups": bson.A{stale}}}); err != nil {
		t.Fatalf("corrupt groups: %v", err)
	}
	ids, err := svc.RepairUserGroups(ctx, u.ID)
	if err != nil {
		t.Fatalf("RepairUserGroups failed: %v", err)
	}
	if len(ids) != 1 || ids[0] != g.ID {
		t.Errorf("returned groups: got %v, want [%s]", ids, g.ID.Hex())
	}
	got := userGroups(t, ctx, db, u.ID)
	if len(got) != 1 || got[0] != g.ID {
		t.Errorf("groups after repair: got %v, want [%s]", got, g.ID.Hex())
	}
}
