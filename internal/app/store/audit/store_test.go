package audit_test

import (
	"testing"
	"time"

	"github.com/hearthsocial/hearth/internal/app/store/audit"
	"github.com/hearthsocial/hearth/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_Log(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	userID := primitive.NewObjectID()
	event := audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventLoginSuccess,
		UserID:    &userID,
		IP:        "192.168.1.1",
		UserAgent: "TestBrowser/1.0",
		Success:   true,
	}

	if err := store.Log(ctx, event); err != nil {
		t.Fatalf("Log failed: %v", err)
	}

	events, err := store.GetByUser(ctx, userID, 10)
	if err != nil {
		t.Fatalf("GetByUser failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	got := events[0]
	if got.ID.IsZero() {
		t.Error("expected ID to be generated")
	}
	if got.Timestamp.IsZero() {
		t.Error("expected Timestamp to be set")
	}
	if got.IP != "192.168.1.1" || got.UserAgent != "TestBrowser/1.0" {
		t.Errorf("context not stored: %+v", got)
	}
}

func TestStore_Query_Filters(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	alice := primitive.NewObjectID()
	group := primitive.NewObjectID()
	base := time.Now().UTC().Add(-time.Hour)

	events := []audit.Event{
		{Category: audit.CategoryAuth, EventType: audit.EventLoginSuccess, UserID: &alice, Success: true, Timestamp: base},
		{Category: audit.CategoryAuth, EventType: audit.EventLoginFailed, UserID: &alice, Timestamp: base.Add(time.Minute)},
		{Category: audit.CategoryModeration, EventType: audit.EventMemberApproved, UserID: &alice, GroupID: &group, Success: true, Timestamp: base.Add(2 * time.Minute)},
		{Category: audit.CategoryModeration, EventType: audit.EventGroupDeleted, GroupID: &group, Success: true, Timestamp: base.Add(3 * time.Minute)},
	}
	for _, e := range events {
		if err := store.Log(ctx, e); err != nil {
			t.Fatalf("Log failed: %v", err)
		}
	}

	since := base.Add(90 * time.Second)
	tests := []struct {
		name   string
		filter audit.QueryFilter
		want   int
	}{
		{"all", audit.QueryFilter{}, 4},
		{"by user", audit.QueryFilter{UserID: &alice}, 3},
		{"by group", audit.QueryFilter{GroupID: &group}, 2},
		{"by category", audit.QueryFilter{Category: audit.CategoryAuth}, 2},
		{"by type", audit.QueryFilter{EventType: audit.EventGroupDeleted}, 1},
		{"by start time", audit.QueryFilter{StartTime: &since}, 2},
		{"limit", audit.QueryFilter{Limit: 1}, 1},
		{"offset", audit.QueryFilter{Offset: 3}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.Query(ctx, tt.filter)
			if err != nil {
				t.Fatalf("Query failed: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("Query returned %d events, want %d", len(got), tt.want)
			}
			n, err := store.CountByFilter(ctx, audit.QueryFilter{
				UserID: tt.filter.UserID, GroupID: tt.filter.GroupID,
				Category: tt.filter.Category, EventType: tt.filter.EventType,
				StartTime: tt.filter.StartTime,
			})
			if err != nil {
				t.Fatalf("CountByFilter failed: %v", err)
			}
			if n < int64(len(got)) {
				t.Errorf("CountByFilter = %d, less than page size %d", n, len(got))
			}
		})
	}

	all, _ := store.Query(ctx, audit.QueryFilter{})
	if all[0].EventType != audit.EventGroupDeleted {
		t.Errorf("expected newest first, got %s", all[0].EventType)
	}
}

func TestStore_GetFailedLogins(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	now := time.Now().UTC()
	_ = store.Log(ctx, audit.Event{Category: audit.CategoryAuth, EventType: audit.EventLoginSuccess, Success: true, Timestamp: now})
	_ = store.Log(ctx, audit.Event{Category: audit.CategoryAuth, EventType: audit.EventLoginFailed, Timestamp: now})
	_ = store.Log(ctx, audit.Event{Category: audit.CategoryAuth, EventType: audit.EventLoginRateLimited, Timestamp: now})
	_ = store.Log(ctx, audit.Event{Category: audit.CategoryAuth, EventType: audit.EventLoginFailed, Timestamp: now.Add(-48 * time.Hour)})

	got, err := store.GetFailedLogins(ctx, now.Add(-time.Hour), 10)
	if err != nil {
		t.Fatalf("GetFailedLogins failed: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 recent failures, got %d", len(got))
	}
}
