package realtime_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	uierrors "github.com/hearthsocial/hearth/internal/app/features/errors"
	"github.com/hearthsocial/hearth/internal/app/features/realtime"
	"github.com/hearthsocial/hearth/internal/app/system/wsauth"
	"github.com/hearthsocial/hearth/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// fakeHub records served users and reports a fixed online set.
type fakeHub struct {
	served []primitive.ObjectID
	online map[primitive.ObjectID]bool
}

func (f *fakeHub) Serve(w http.ResponseWriter, _ *http.Request, userID primitive.ObjectID) {
	f.served = append(f.served, userID)
	w.WriteHeader(http.StatusSwitchingProtocols)
}

func (f *fakeHub) OnlineAmong(_ context.Context, ids []primitive.ObjectID) ([]primitive.ObjectID, error) {
	out := []primitive.ObjectID{}
	for _, id := range ids {
		if f.online[id] {
			out = append(out, id)
		}
	}
	return out, nil
}

func newTestHandler(t *testing.T) (*realtime.Handler, *testutil.Fixtures, *fakeHub) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	signer, err := wsauth.NewSigner([]byte("0123456789abcdef0123456789abcdef"), 0)
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}
	hub := &fakeHub{online: map[primitive.ObjectID]bool{}}
	logger := zap.NewNop()
	h := realtime.NewHandler(db, signer, hub, uierrors.NewErrorLogger(logger), logger)
	return h, testutil.NewFixtures(t, db), hub
}

func TestTicketThenSocket(t *testing.T) {
	h, fx, hub := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	ada := fx.CreateUser(ctx, "ada")

	rec := httptest.NewRecorder()
	h.HandleTicket(rec, testutil.NewAuthenticatedRequest(t, "POST", "/realtime/ticket", nil, ada))
	testutil.AssertStatus(t, rec, http.StatusOK)
	var out struct {
		Ticket string `json:"ticket"`
	}
	testutil.DecodeJSON(t, rec, &out)
	if out.Ticket == "" {
		t.Fatal("empty ticket")
	}

	rec = httptest.NewRecorder()
	h.ServeSocket(rec, httptest.NewRequest("GET", "/realtime/ws?ticket="+url.QueryEscape(out.Ticket), nil))
	if len(hub.served) != 1 || hub.served[0] != ada.ID {
		t.Fatalf("served = %v, want [%s]", hub.served, ada.ID.Hex())
	}
}

func TestServeSocket_Rejects(t *testing.T) {
	h, _, hub := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.ServeSocket(rec, httptest.NewRequest("GET", "/realtime/ws", nil))
	testutil.AssertStatus(t, rec, http.StatusUnauthorized)

	rec = httptest.NewRecorder()
	h.ServeSocket(rec, httptest.NewRequest("GET", "/realtime/ws?ticket=forged", nil))
	testutil.AssertStatus(t, rec, http.StatusUnauthorized)

	// A valid ticket for a user that no longer exists.
	ticket, _, err := h.Tickets.Issue(primitive.NewObjectID())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	rec = httptest.NewRecorder()
	h.ServeSocket(rec, httptest.NewRequest("GET", "/realtime/ws?ticket="+url.QueryEscape(ticket), nil))
	testutil.AssertStatus(t, rec, http.StatusUnauthorized)

	if len(hub.served) != 0 {
		t.Errorf("served = %v, want none", hub.served)
	}
}

func TestServeOnline(t *testing.T) {
	h, fx, hub := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	ada := fx.CreateUser(ctx, "ada")
	bob := fx.CreateUser(ctx, "bob")
	cy := fx.CreateUser(ctx, "cy")
	dee := fx.CreateUser(ctx, "dee")
	fx.MakeFriends(ctx, ada.ID, bob.ID)
	fx.MakeFriends(ctx, ada.ID, cy.ID)
	hub.online[bob.ID] = true
	hub.online[dee.ID] = true

	rec := httptest.NewRecorder()
	h.ServeOnline(rec, testutil.NewAuthenticatedRequest(t, "GET", "/realtime/online", nil, ada))
	testutil.AssertStatus(t, rec, http.StatusOK)
	var out struct {
		Online []primitive.ObjectID `json:"online"`
	}
	testutil.DecodeJSON(t, rec, &out)
	if len(out.Online) != 1 || out.Online[0] != bob.ID {
		t.Errorf("online = %v, want [%s]", out.Online, bob.ID.Hex())
	}

	// No friends yields an empty list, not null.
	rec = httptest.NewRecorder()
	h.ServeOnline(rec, testutil.NewAuthenticatedRequest(t, "GET", "/realtime/online", nil, dee))
	testutil.AssertStatus(t, rec, http.StatusOK)
	if body := rec.Body.String(); body != "{\"online\":[]}\n" {
		t.Errorf("body = %q", body)
	}
}
