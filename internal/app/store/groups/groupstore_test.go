package groupstore_test

import (
	"testing"

	groupstore "github.com/hearthsocial/hearth/internal/app/store/groups"
	"github.com/hearthsocial/hearth/internal/app/system/paging"
	"github.com/hearthsocial/hearth/internal/domain/models"
	"github.com/hearthsocial/hearth/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_Create(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := groupstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	admin := primitive.NewObjectID()
	g, err := store.Create(ctx, models.Group{
		Name:        "  Hiking Club ",
		Description: "Trails",
		IsPrivate:   true,
		Admin:       admin,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if g.ID.IsZero() {
		t.Error("expected ID to be set")
	}
	if g.Name != "Hiking Club" || g.NameCI != "hiking club" {
		t.Errorf("name: got %q / %q", g.Name, g.NameCI)
	}

	got, err := store.GetByID(ctx, g.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Admin != admin || !got.IsPrivate || got.Description != "Trails" {
		t.Errorf("unexpected group: %+v", got)
	}
}

func TestStore_GetByID_NotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := groupstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, err := store.GetByID(ctx, primitive.NewObjectID()); err != groupstore.ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_UpdateInfo(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := groupstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateUser(ctx, "owner")
	g := fixtures.CreateGroup(ctx, "Readers", owner.ID, false)

	name, desc, private := "Book Readers", "Monthly picks", true
	updated, err := store.UpdateInfo(ctx, g.ID, groupstore.Update{Name: &name, Description: &desc, IsPrivate: &private})
	if err != nil {
		t.Fatalf("UpdateInfo failed: %v", err)
	}
	if updated.Name != name || updated.NameCI != "book readers" || updated.Description != desc || !updated.IsPrivate {
		t.Errorf("unexpected group after update: %+v", updated)
	}
	if updated.Admin != owner.ID {
		t.Error("admin must not change on update")
	}

	if _, err := store.UpdateInfo(ctx, primitive.NewObjectID(), groupstore.Update{Name: &name}); err != groupstore.ErrNotFound {
		t.Errorf("update unknown: got %v, want ErrNotFound", err)
	}
}

func TestStore_ListVisible(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := groupstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateUser(ctx, "owner")
	public := fixtures.CreateGroup(ctx, "Alpha", owner.ID, false)
	secret := fixtures.CreateGroup(ctx, "Beta", owner.ID, true)
	fixtures.CreateGroup(ctx, "Gamma", owner.ID, true)

	rows, _, err := store.ListVisible(ctx, nil, "", paging.Keyset{})
	if err != nil {
		t.Fatalf("ListVisible failed: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != public.ID {
		t.Errorf("anonymous view: got %d groups", len(rows))
	}

	rows, _, err = store.ListVisible(ctx, []primitive.ObjectID{secret.ID}, "", paging.Keyset{})
	if err != nil {
		t.Fatalf("ListVisible failed: %v", err)
	}
	if len(rows) != 2 || rows[0].ID != public.ID || rows[1].ID != secret.ID {
		t.Errorf("member view: got %+v", rows)
	}

	rows, _, err = store.ListVisible(ctx, []primitive.ObjectID{secret.ID}, "be", paging.Keyset{})
	if err != nil {
		t.Fatalf("ListVisible failed: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != secret.ID {
		t.Errorf("search: got %+v", rows)
	}
}

func TestStore_Lookups(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := groupstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateUser(ctx, "owner")
	other := fixtures.CreateUser(ctx, "other")
	a := fixtures.CreateGroup(ctx, "A", owner.ID, false)
	b := fixtures.CreateGroup(ctx, "B", owner.ID, true)
	fixtures.CreateGroup(ctx, "C", other.ID, false)

	ids, err := store.IDsAdministeredBy(ctx, owner.ID)
	if err != nil {
		t.Fatalf("IDsAdministeredBy failed: %v", err)
	}
	if len(ids) != 2 {
		t.Errorf("expected 2 administered groups, got %d", len(ids))
	}

	privacy, err := store.PrivacyByID(ctx, []primitive.ObjectID{a.ID, b.ID, primitive.NewObjectID()})
	if err != nil {
		t.Fatalf("PrivacyByID failed: %v", err)
	}
	if len(privacy) != 2 || privacy[a.ID] || !privacy[b.ID] {
		t.Errorf("unexpected privacy map: %v", privacy)
	}

	pub, err := store.PublicIDs(ctx)
	if err != nil {
		t.Fatalf("PublicIDs failed: %v", err)
	}
	if len(pub) != 2 {
		t.Errorf("expected 2 public groups, got %d", len(pub))
	}

	n, err := store.Delete(ctx, a.ID)
	if err != nil || n != 1 {
		t.Fatalf("Delete: got %d, %v", n, err)
	}
	if c, _ := store.Count(ctx); c != 2 {
		t.Errorf("Count after delete: got %d, want 2", c)
	}
}
