package testutil

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"github.com/hearthsocial/hearth/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// TestPassword is the plain password behind every fixture user's hash.
const TestPassword = "correct-horse-battery"

// testPasswordHash is bcrypt("correct-horse-battery") at the minimum cost.
// Computing it once keeps fixtures fast.
var testPasswordHash = mustHash(TestPassword)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx, ok := r.Context().Value(chi.RouteCtxKey).(*chi.Context)
	if !ok || rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateUser creates a user whose email is <username>@example.com and whose
// password is TestPassword.
func (f *Fixtures) CreateUser(ctx context.Context, username string) models.User {
	f.t.Helper()
	return f.insertUser(ctx, username, false)
}

// CreateSiteAdmin creates a user with the site administrator flag set.
func (f *Fixtures) CreateSiteAdmin(ctx context.Context, username string) models.User {
	f.t.Helper()
	return f.insertUser(ctx, username, true)
}

func (f *Fixtures) insertUser(ctx context.Context, username string, admin bool) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	user := models.User{
		ID:             primitive.NewObjectID(),
		Username:       username,
		UsernameCI:     text.Fold(username),
		Email:          strings.ToLower(username) + "@example.com",
		PasswordHash:   testPasswordHash,
		Friends:        []primitive.ObjectID{},
		FriendRequests: []models.FriendRequest{},
		Groups:         []primitive.ObjectID{},
		IsAdmin:        admin,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if _, err := f.db.Collection("users").InsertOne(ctx, user); err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// MakeFriends records a mutual friendship between a and b.
func (f *Fixtures) MakeFriends(ctx context.Context, a, b primitive.ObjectID) {
	f.t.Helper()
	users := f.db.Collection("users")
	if _, err := users.UpdateByID(ctx, a, bson.M{"$addToSet": bson.M{"friends": b}}); err != nil {
		f.t.Fatalf("failed to add friend: %v", err)
	}
	if _, err := users.UpdateByID(ctx, b, bson.M{"$addToSet": bson.M{"friends": a}}); err != nil {
		f.t.Fatalf("failed to add friend: %v", err)
	}
}

// CreateGroup creates a group administered by admin, together with the
// admin's membership record and the admin's groups entry.
func (f *Fixtures) CreateGroup(ctx context.Context, name string, admin primitive.ObjectID, private bool) models.Group {
	f.t.Helper()

	now := time.Now().UTC()
	group := models.Group{
		ID:          primitive.NewObjectID(),
		Name:        name,
		NameCI:      text.Fold(name),
		Description: "About " + name,
		IsPrivate:   private,
		Admin:       admin,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := f.db.Collection("groups").InsertOne(ctx, group); err != nil {
		f.t.Fatalf("failed to create test group: %v", err)
	}

	f.insertMembership(ctx, group.ID, admin, models.StateMember, models.RoleAdmin, nil)
	if _, err := f.db.Collection("users").UpdateByID(ctx, admin, bson.M{"$addToSet": bson.M{"groups": group.ID}}); err != nil {
		f.t.Fatalf("failed to link admin to group: %v", err)
	}
	return group
}

// CreateMembership puts user into the given state for group. A member state
// also adds the group to the user's groups set.
func (f *Fixtures) CreateMembership(ctx context.Context, groupID, userID primitive.ObjectID, state string) models.GroupMembership {
	f.t.Helper()

	var invitedBy *primitive.ObjectID
	if state == models.StateInvited {
		var g models.Group
		if err := f.db.Collection("groups").FindOne(ctx, bson.M{"_id": groupID}).Decode(&g); err == nil {
			invitedBy = &g.Admin
		}
	}
	m := f.insertMembership(ctx, groupID, userID, state, models.RoleMember, invitedBy)
	if state == models.StateMember {
		if _, err := f.db.Collection("users").UpdateByID(ctx, userID, bson.M{"$addToSet": bson.M{"groups": groupID}}); err != nil {
			f.t.Fatalf("failed to link member to group: %v", err)
		}
	}
	return m
}

func (f *Fixtures) insertMembership(ctx context.Context, groupID, userID primitive.ObjectID, state, role string, invitedBy *primitive.ObjectID) models.GroupMembership {
	f.t.Helper()

	now := time.Now().UTC()
	m := models.GroupMembership{
		ID:        primitive.NewObjectID(),
		GroupID:   groupID,
		UserID:    userID,
		State:     state,
		Role:      role,
		InvitedBy: invitedBy,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := f.db.Collection("group_memberships").InsertOne(ctx, m); err != nil {
		f.t.Fatalf("failed to create test membership: %v", err)
	}
	return m
}

// CreatePost creates a text post. groupID may be nil.
func (f *Fixtures) CreatePost(ctx context.Context, author primitive.ObjectID, groupID *primitive.ObjectID, body string) models.Post {
	f.t.Helper()
	return f.CreatePostAt(ctx, author, groupID, body, time.Now().UTC())
}

// CreatePostAt creates a post with an explicit creation time, for ordering tests.
func (f *Fixtures) CreatePostAt(ctx context.Context, author primitive.ObjectID, groupID *primitive.ObjectID, body string, at time.Time) models.Post {
	f.t.Helper()

	p := models.Post{
		ID:        primitive.NewObjectID(),
		Author:    author,
		Group:     groupID,
		Text:      body,
		Media:     models.Media{Type: models.MediaNone},
		Likes:     []primitive.ObjectID{},
		Comments:  []models.Comment{},
		CreatedAt: at.UTC().Truncate(time.Millisecond),
	}
	if _, err := f.db.Collection("posts").InsertOne(ctx, p); err != nil {
		f.t.Fatalf("failed to create test post: %v", err)
	}
	return p
}

// CreateMessage stores a direct message from sender to receiver.
func (f *Fixtures) CreateMessage(ctx context.Context, sender, receiver primitive.ObjectID, content string, read bool) models.Message {
	f.t.Helper()

	a, b := sender.Hex(), receiver.Hex()
	if b < a {
		a, b = b, a
	}
	m := models.Message{
		ID:        primitive.NewObjectID(),
		Sender:    sender,
		Receiver:  receiver,
		Content:   content,
		RoomID:    a + "_" + b,
		IsRead:    read,
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
	if _, err := f.db.Collection("messages").InsertOne(ctx, m); err != nil {
		f.t.Fatalf("failed to create test message: %v", err)
	}
	return m
}
