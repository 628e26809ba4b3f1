package users_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	uierrors "github.com/hearthsocial/hearth/internal/app/features/errors"
	"github.com/hearthsocial/hearth/internal/app/features/users"
	"github.com/hearthsocial/hearth/internal/app/membership"
	"github.com/hearthsocial/hearth/internal/app/system/auth"
	"github.com/hearthsocial/hearth/internal/domain/models"
	"github.com/hearthsocial/hearth/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

func newTestHandler(t *testing.T) (*users.Handler, *testutil.Fixtures) {
	t.Helper()
	db := testutil.SetupTestDBWithIndexes(t)
	logger := zap.NewNop()
	sm, err := auth.NewSessionManager(
		"test-session-key-must-be-32-chars-long",
		"test-session",
		"",
		time.Hour,
		false,
		auth.NewTokenService("test-jwt-secret-at-least-32-characters", time.Hour),
		logger,
	)
	if err != nil {
		t.Fatalf("NewSessionManager: %v", err)
	}
	h := users.NewHandler(db, membership.New(db, nil, logger), sm, uierrors.NewErrorLogger(logger), logger)
	return h, testutil.NewFixtures(t, db)
}

func TestServeUser(t *testing.T) {
	h, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	ada := fx.CreateUser(ctx, "ada")
	bob := fx.CreateUser(ctx, "bob")
	fx.MakeFriends(ctx, ada.ID, bob.ID)

	req := testutil.NewAuthenticatedRequest(t, "GET", "/users/"+bob.ID.Hex(), nil, ada)
	req = testutil.WithChiURLParam(req, "id", bob.ID.Hex())
	rec := httptest.NewRecorder()
	h.ServeUser(rec, req)
	testutil.AssertStatus(t, rec, http.StatusOK)

	var raw map[string]map[string]any
	testutil.DecodeJSON(t, rec, &raw)
	if _, leaked := raw["user"]["email"]; leaked {
		t.Error("public profile must not expose email")
	}
	var body struct {
		User     models.PublicUser `json:"user"`
		IsFriend bool              `json:"is_friend"`
	}
	testutil.DecodeJSON(t, rec, &body)
	if body.User.Username != "bob" || !body.IsFriend || body.User.FriendCount != 1 {
		t.Errorf("profile = %+v", body)
	}

	req = testutil.NewAuthenticatedRequest(t, "GET", "/users/x", nil, ada)
	req = testutil.WithChiURLParam(req, "id", "5f0000000000000000000000")
	rec = httptest.NewRecorder()
	h.ServeUser(rec, req)
	testutil.AssertStatus(t, rec, http.StatusNotFound)
}

func TestServeFriends(t *testing.T) {
	h, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	ada := fx.CreateUser(ctx, "ada")
	bob := fx.CreateUser(ctx, "bob")
	cy := fx.CreateUser(ctx, "cy")
	fx.MakeFriends(ctx, ada.ID, cy.ID)
	fx.MakeFriends(ctx, ada.ID, bob.ID)

	req := testutil.NewAuthenticatedRequest(t, "GET", "/users/"+ada.ID.Hex()+"/friends", nil, bob)
	req = testutil.WithChiURLParam(req, "id", ada.ID.Hex())
	rec := httptest.NewRecorder()
	h.ServeFriends(rec, req)
	testutil.AssertStatus(t, rec, http.StatusOK)

	var body struct {
		Friends []models.PublicUser `json:"friends"`
	}
	testutil.DecodeJSON(t, rec, &body)
	if len(body.Friends) != 2 || body.Friends[0].Username != "bob" || body.Friends[1].Username != "cy" {
		t.Errorf("friends = %+v", body.Friends)
	}
}

func TestHandleUpdateMe(t *testing.T) {
	h, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	ada := fx.CreateUser(ctx, "ada")
	fx.CreateUser(ctx, "bob")

	rec := httptest.NewRecorder()
	h.HandleUpdateMe(rec, testutil.NewAuthenticatedRequest(t, "PUT", "/users/me", map[string]string{
		"bio":             "<b>hello</b> world",
		"profile_picture": "https://cdn.example.com/a.png",
	}, ada))
	testutil.AssertStatus(t, rec, http.StatusOK)
	var body struct {
		User struct {
			Bio            string `json:"bio"`
			ProfilePicture string `json:"profile_picture"`
			Email          string `json:"email"`
		} `json:"user"`
	}
	testutil.DecodeJSON(t, rec, &body)
	if body.User.Bio != "hello world" {
		t.Errorf("bio = %q, want sanitized %q", body.User.Bio, "hello world")
	}
	if body.User.Email != "ada@example.com" {
		t.Errorf("email changed unexpectedly to %q", body.User.Email)
	}

	rec = httptest.NewRecorder()
	h.HandleUpdateMe(rec, testutil.NewAuthenticatedRequest(t, "PUT", "/users/me",
		map[string]string{"email": "bob@example.com"}, ada))
	testutil.AssertStatus(t, rec, http.StatusConflict)

	rec = httptest.NewRecorder()
	h.HandleUpdateMe(rec, testutil.NewAuthenticatedRequest(t, "PUT", "/users/me",
		map[string]string{"profile_picture": "javascript:alert(1)"}, ada))
	testutil.AssertStatus(t, rec, http.StatusBadRequest)
}

func TestHandleChangePassword(t *testing.T) {
	h, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	ada := fx.CreateUser(ctx, "ada")

	rec := httptest.NewRecorder()
	h.HandleChangePassword(rec, testutil.NewAuthenticatedRequest(t, "PUT", "/users/me/password",
		map[string]string{"current_password": "wrong-one", "new_password": "brand-new-pass"}, ada))
	testutil.AssertStatus(t, rec, http.StatusBadRequest)
	if code := testutil.ErrorCode(t, rec); code != "wrong_password" {
		t.Errorf("code = %q, want wrong_password", code)
	}

	rec = httptest.NewRecorder()
	h.HandleChangePassword(rec, testutil.NewAuthenticatedRequest(t, "PUT", "/users/me/password",
		map[string]string{"current_password": testutil.TestPassword, "new_password": "brand-new-pass"}, ada))
	testutil.AssertStatus(t, rec, http.StatusNoContent)

	u, err := h.Users.GetByID(ctx, ada.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !auth.CheckPassword(u.PasswordHash, "brand-new-pass") {
		t.Error("new password not stored")
	}
}

func TestServeSearch(t *testing.T) {
	h, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	ada := fx.CreateUser(ctx, "ada")
	fx.CreateUser(ctx, "Adele")
	fx.CreateUser(ctx, "bob")

	rec := httptest.NewRecorder()
	h.ServeSearch(rec, testutil.NewAuthenticatedRequest(t, "GET", "/users/search?q=AD", nil, ada))
	testutil.AssertStatus(t, rec, http.StatusOK)
	var body struct {
		Users []models.PublicUser `json:"users"`
	}
	testutil.DecodeJSON(t, rec, &body)
	if len(body.Users) != 2 || body.Users[0].Username != "ada" || body.Users[1].Username != "Adele" {
		t.Errorf("search = %+v", body.Users)
	}
}

func TestHandleDeleteMe_Cascades(t *testing.T) {
	h, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	db := fx.DB()
	ada := fx.CreateUser(ctx, "ada")
	bob := fx.CreateUser(ctx, "bob")
	fx.MakeFriends(ctx, ada.ID, bob.ID)

	owned := fx.CreateGroup(ctx, "ada's", ada.ID, false)
	fx.CreateMembership(ctx, owned.ID, bob.ID, models.StateMember)
	other := fx.CreateGroup(ctx, "bob's", bob.ID, false)
	fx.CreateMembership(ctx, other.ID, ada.ID, models.StateMember)

	fx.CreatePost(ctx, ada.ID, nil, "mine")
	fx.CreatePost(ctx, bob.ID, &owned.ID, "in ada's group")
	kept := fx.CreatePost(ctx, bob.ID, nil, "bob's own")
	if _, _, err := h.Posts.ToggleLike(ctx, kept.ID, ada.ID); err != nil {
		t.Fatalf("ToggleLike: %v", err)
	}
	fx.CreateMessage(ctx, ada.ID, bob.ID, "hi", false)

	rec := httptest.NewRecorder()
	h.HandleDeleteMe(rec, testutil.NewAuthenticatedRequest(t, "DELETE", "/users/me", nil, ada))
	testutil.AssertStatus(t, rec, http.StatusNoContent)

	count := func(coll string, filter bson.M) int64 {
		t.Helper()
		n, err := db.Collection(coll).CountDocuments(ctx, filter)
		if err != nil {
			t.Fatalf("count %s: %v", coll, err)
		}
		return n
	}
	if n := count("users", bson.M{"_id": ada.ID}); n != 0 {
		t.Error("user document still present")
	}
	if n := count("groups", bson.M{"_id": owned.ID}); n != 0 {
		t.Error("administered group still present")
	}
	if n := count("groups", bson.M{"_id": other.ID}); n != 1 {
		t.Error("other user's group must survive")
	}
	if n := count("group_memberships", bson.M{"user_id": ada.ID}); n != 0 {
		t.Errorf("%d memberships left", n)
	}
	if n := count("posts", bson.M{"$or": []bson.M{{"author": ada.ID}, {"group": owned.ID}}}); n != 0 {
		t.Errorf("%d posts left", n)
	}
	if n := count("posts", bson.M{"likes": ada.ID}); n != 0 {
		t.Error("likes by the deleted user remain")
	}
	if n := count("messages", bson.M{}); n != 0 {
		t.Error("messages remain")
	}

	b, err := h.Users.GetByID(ctx, bob.ID)
	if err != nil {
		t.Fatalf("GetByID bob: %v", err)
	}
	if b.HasFriend(ada.ID) {
		t.Error("deleted user still in friend list")
	}
	for _, g := range b.Groups {
		if g == owned.ID {
			t.Error("deleted group still in bob's groups")
		}
	}
}
