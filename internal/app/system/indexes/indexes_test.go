package indexes_test

import (
	"context"
	"testing"

	"github.com/hearthsocial/hearth/internal/app/system/indexes"
	"github.com/hearthsocial/hearth/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func indexNames(t *testing.T, ctx context.Context, db *mongo.Database, coll string) map[string]bool {
	t.Helper()
	cur, err := db.Collection(coll).Indexes().List(ctx)
	if err != nil {
		t.Fatalf("List indexes failed: %v", err)
	}
	defer cur.Close(ctx)

	names := make(map[string]bool)
	for cur.Next(ctx) {
		var idx bson.M
		if err := cur.Decode(&idx); err != nil {
			continue
		}
		if name, ok := idx["name"].(string); ok {
			names[name] = true
		}
	}
	return names
}

func TestEnsureAll_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("First EnsureAll failed: %v", err)
	}
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("Second EnsureAll failed: %v", err)
	}
}

func TestEnsureAll_CreatesIndexes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	expected := map[string][]string{
		"users":             {"uniq_users_usernameci", "uniq_users_email", "idx_users_friends", "idx_users_groups"},
		"groups":            {"idx_groups_nameci__id", "idx_groups_private_nameci", "idx_groups_admin"},
		"group_memberships": {"uniq_gm_user_group", "idx_gm_group_state_created", "idx_gm_user_state_group"},
		"posts":             {"idx_posts_author_created", "idx_posts_group_created", "idx_posts_created"},
		"messages":          {"idx_messages_room_created", "idx_messages_receiver_read", "idx_messages_sender"},
		"audit_events":      {"idx_audit_time", "idx_audit_user_time", "idx_audit_group_time", "idx_audit_category_type_time"},
	}
	for coll, want := range expected {
		got := indexNames(t, ctx, db, coll)
		for _, name := range want {
			if !got[name] {
				t.Errorf("expected index %q on %s", name, coll)
			}
		}
	}
}

func TestEnsureAll_RenamesMisnamedIndex(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, err := db.Collection("posts").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "author", Value: 1}, {Key: "created_at", Value: -1}},
		Options: options.Index().SetName("legacy_author_idx"),
	})
	if err != nil {
		t.Fatalf("create legacy index: %v", err)
	}

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}
	got := indexNames(t, ctx, db, "posts")
	if got["legacy_author_idx"] {
		t.Error("legacy index should have been replaced")
	}
	if !got["idx_posts_author_created"] {
		t.Error("expected idx_posts_author_created after rename")
	}
}

func TestEnsureAll_MembershipUniquePerUserGroup(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	user, group := primitive.NewObjectID(), primitive.NewObjectID()
	c := db.Collection("group_memberships")
	if _, err := c.InsertOne(ctx, bson.M{"user_id": user, "group_id": group, "state": "pending"}); err != nil {
		t.Fatalf("insert membership: %v", err)
	}
	if _, err := c.InsertOne(ctx, bson.M{"user_id": user, "group_id": group, "state": "invited"}); err == nil {
		t.Error("expected duplicate key error for a second record on the same (user, group)")
	}
}
