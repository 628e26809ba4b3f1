package auditlog_test

import (
	"net/http/httptest"
	"testing"

	"github.com/hearthsocial/hearth/internal/app/store/audit"
	"github.com/hearthsocial/hearth/internal/app/system/auditlog"
	"github.com/hearthsocial/hearth/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogger_NilLogger(t *testing.T) {
	var logger *auditlog.Logger
	ctx, cancel := testutil.TestContext()
	defer cancel()
	req := httptest.NewRequest("POST", "/auth/login", nil)

	// These should all be no-ops, not panic
	logger.Log(ctx, audit.Event{EventType: "test"})
	logger.LoginSuccess(ctx, req, primitive.NewObjectID(), "ada")
	logger.Logout(ctx, req, nil)
}

func TestLogger_Modes(t *testing.T) {
	tests := []struct {
		mode    string
		wantDB  bool
		wantZap bool
	}{
		{auditlog.ModeAll, true, true},
		{auditlog.ModeDB, true, false},
		{auditlog.ModeLog, false, true},
		{auditlog.ModeOff, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			db := testutil.SetupTestDB(t)
			store := audit.New(db)
			core, logs := observer.New(zap.DebugLevel)
			ctx, cancel := testutil.TestContext()
			defer cancel()

			logger := auditlog.New(store, zap.New(core), auditlog.Config{
				Auth:       tt.mode,
				Account:    auditlog.ModeOff,
				Moderation: auditlog.ModeOff,
			})

			userID := primitive.NewObjectID()
			req := httptest.NewRequest("POST", "/auth/login", nil)
			logger.LoginSuccess(ctx, req, userID, "ada")

			events, err := store.GetByUser(ctx, userID, 10)
			if err != nil {
				t.Fatalf("GetByUser failed: %v", err)
			}
			if got := len(events) == 1; got != tt.wantDB {
				t.Errorf("stored = %v, want %v", got, tt.wantDB)
			}
			if got := logs.FilterMessage("audit event").Len() == 1; got != tt.wantZap {
				t.Errorf("logged = %v, want %v", got, tt.wantZap)
			}
		})
	}
}

func TestLogger_LoginFailedIsWarning(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	core, logs := observer.New(zap.DebugLevel)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	logger := auditlog.New(store, zap.New(core), auditlog.Config{Auth: auditlog.ModeAll})
	req := httptest.NewRequest("POST", "/auth/login", nil)
	req.Header.Set("User-Agent", "TestBrowser/1.0")
	logger.LoginFailed(ctx, req, nil, "ghost", "unknown identifier")

	entries := logs.FilterMessage("audit event").All()
	if len(entries) != 1 || entries[0].Level != zap.WarnLevel {
		t.Fatalf("expected one warning, got %+v", entries)
	}

	events, err := store.GetFailedLogins(ctx, entries[0].Time.Add(-1e9).UTC(), 10)
	if err != nil {
		t.Fatalf("GetFailedLogins failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 failed login, got %d", len(events))
	}
	if events[0].FailureReason != "unknown identifier" || events[0].Details["identifier"] != "ghost" {
		t.Errorf("unexpected event: %+v", events[0])
	}
	if events[0].UserAgent != "TestBrowser/1.0" {
		t.Errorf("UserAgent = %q", events[0].UserAgent)
	}
}

func TestLogger_Moderation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	logger := auditlog.New(store, zap.NewNop(), auditlog.Config{Moderation: auditlog.ModeDB})
	req := httptest.NewRequest("POST", "/groups/x/approve/y", nil)

	admin, member, group := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()
	logger.GroupCreated(ctx, req, admin, group, "Knitters", true)
	logger.MemberApproved(ctx, req, admin, member, group)
	logger.MemberRemoved(ctx, req, admin, member, group)
	logger.PostRemovedByModerator(ctx, req, admin, member, group, primitive.NewObjectID())

	events, err := store.Query(ctx, audit.QueryFilter{GroupID: &group})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(events) != 4 {
		t.Fatalf("expected 4 moderation events, got %d", len(events))
	}
	for _, e := range events {
		if e.Category != audit.CategoryModeration || e.ActorID == nil || *e.ActorID != admin {
			t.Errorf("unexpected event: %+v", e)
		}
	}
}

func TestValidMode(t *testing.T) {
	for _, m := range []string{"all", "db", "log", "off"} {
		if !auditlog.ValidMode(m) {
			t.Errorf("ValidMode(%q) = false", m)
		}
	}
	if auditlog.ValidMode("everything") {
		t.Error("ValidMode accepted an unknown mode")
	}
}
