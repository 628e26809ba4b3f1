package messagestore_test

import (
	"testing"
	"time"

	messagestore "github.com/hearthsocial/hearth/internal/app/store/messages"
	"github.com/hearthsocial/hearth/internal/app/system/paging"
	"github.com/hearthsocial/hearth/internal/app/system/roomid"
	"github.com/hearthsocial/hearth/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
)

func TestStore_CreateAndConversation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := messagestore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	a := fixtures.CreateUser(ctx, "a")
	b := fixtures.CreateUser(ctx, "b")

	m1, err := store.Create(ctx, a.ID, b.ID, "hi")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	m2, err := store.Create(ctx, b.ID, a.ID, "hello")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if m1.RoomID != m2.RoomID || m1.RoomID != roomid.For(a.ID, b.ID) {
		t.Errorf("room ids differ: %q vs %q", m1.RoomID, m2.RoomID)
	}
	if m1.IsRead {
		t.Error("new messages must be unread")
	}

	rows, hasMore, err := store.Conversation(ctx, m1.RoomID, paging.Page{Limit: paging.DefaultLimit})
	if err != nil {
		t.Fatalf("Conversation failed: %v", err)
	}
	if len(rows) != 2 || hasMore {
		t.Fatalf("expected 2 messages, got %d (hasMore=%v)", len(rows), hasMore)
	}
	if rows[0].ID != m1.ID || rows[1].ID != m2.ID {
		t.Error("expected oldest first")
	}
}

func TestStore_Conversation_SameTimestamp(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := messagestore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	a := fixtures.CreateUser(ctx, "a")
	b := fixtures.CreateUser(ctx, "b")
	first := fixtures.CreateMessage(ctx, a.ID, b.ID, "first", true)
	second := fixtures.CreateMessage(ctx, b.ID, a.ID, "second", true)

	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	if _, err := db.Collection("messages").UpdateMany(ctx, bson.M{}, bson.M{"$set": bson.M{"created_at": at}}); err != nil {
		t.Fatalf("pin created_at: %v", err)
	}

	page1, hasMore, err := store.Conversation(ctx, first.RoomID, paging.Page{Limit: 1})
	if err != nil {
		t.Fatalf("Conversation failed: %v", err)
	}
	if len(page1) != 1 || page1[0].ID != second.ID || !hasMore {
		t.Fatalf("first page = %+v hasMore=%v", page1, hasMore)
	}

	next := paging.Page{Limit: 1, Before: page1[0].CreatedAt, BeforeID: page1[0].ID}
	page2, hasMore, err := store.Conversation(ctx, first.RoomID, next)
	if err != nil {
		t.Fatalf("Conversation failed: %v", err)
	}
	if len(page2) != 1 || page2[0].ID != first.ID || hasMore {
		t.Errorf("second page = %+v hasMore=%v", page2, hasMore)
	}
}

func TestStore_UnreadAndMarkRead(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := messagestore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	a := fixtures.CreateUser(ctx, "a")
	b := fixtures.CreateUser(ctx, "b")
	c := fixtures.CreateUser(ctx, "c")
	fixtures.CreateMessage(ctx, a.ID, b.ID, "1", false)
	fixtures.CreateMessage(ctx, a.ID, b.ID, "2", false)
	fixtures.CreateMessage(ctx, c.ID, b.ID, "3", false)
	fixtures.CreateMessage(ctx, b.ID, a.ID, "4", false)

	n, err := store.UnreadCount(ctx, b.ID)
	if err != nil || n != 3 {
		t.Fatalf("UnreadCount: got %d, %v; want 3", n, err)
	}

	changed, err := store.MarkRead(ctx, roomid.For(a.ID, b.ID), b.ID)
	if err != nil {
		t.Fatalf("MarkRead failed: %v", err)
	}
	if changed != 2 {
		t.Errorf("MarkRead changed %d, want 2", changed)
	}

	n, _ = store.UnreadCount(ctx, b.ID)
	if n != 1 {
		t.Errorf("UnreadCount after read: got %d, want 1", n)
	}
	// a's incoming message in the same room is untouched.
	if n, _ := store.UnreadCount(ctx, a.ID); n != 1 {
		t.Errorf("UnreadCount for a: got %d, want 1", n)
	}
}

func TestStore_Conversations(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := messagestore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	me := fixtures.CreateUser(ctx, "me")
	x := fixtures.CreateUser(ctx, "x")
	y := fixtures.CreateUser(ctx, "y")

	fixtures.CreateMessage(ctx, x.ID, me.ID, "x1", false)
	fixtures.CreateMessage(ctx, x.ID, me.ID, "x2", false)
	if _, err := store.Create(ctx, me.ID, y.ID, "y1"); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := store.Conversations(ctx, me.ID)
	if err != nil {
		t.Fatalf("Conversations failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 conversations, got %d", len(got))
	}
	if got[0].Peer != y.ID || got[0].LastMessage.Content != "y1" || got[0].Unread != 0 {
		t.Errorf("most recent conversation: %+v", got[0])
	}
	if got[1].Peer != x.ID || got[1].Unread != 2 {
		t.Errorf("older conversation: %+v", got[1])
	}
}

func TestStore_DeleteByUser(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := messagestore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	a := fixtures.CreateUser(ctx, "a")
	b := fixtures.CreateUser(ctx, "b")
	c := fixtures.CreateUser(ctx, "c")
	fixtures.CreateMessage(ctx, a.ID, b.ID, "1", false)
	fixtures.CreateMessage(ctx, b.ID, a.ID, "2", true)
	fixtures.CreateMessage(ctx, b.ID, c.ID, "3", false)

	n, err := store.DeleteByUser(ctx, a.ID)
	if err != nil || n != 2 {
		t.Fatalf("DeleteByUser: got %d, %v; want 2", n, err)
	}
	if total, _ := store.Count(ctx); total != 1 {
		t.Errorf("Count: got %d, want 1", total)
	}
}
