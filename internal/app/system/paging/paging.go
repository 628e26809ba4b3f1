// Package paging parses list cursors and builds their Mongo windows.
package paging

import (
	"net/http"
	"strconv"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/hearthsocial/hearth/internal/app/system/apperr"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Feed page sizes.
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// SearchPageSize is the number of rows returned per page by name searches.
const SearchPageSize = 20

/* -------------------------------------------------------------------------- */
/* Time-cursor pages (feeds)                                                   */
/* -------------------------------------------------------------------------- */

// Page is a request for the newest Limit items that sort strictly after the
// (Before, BeforeID) position in (created_at desc, _id desc) order. A zero
// Before means "from now". A zero BeforeID compares on time alone.
type Page struct {
	Limit    int
	Before   time.Time
	BeforeID primitive.ObjectID
}

// Parse reads "limit" and "before" from the query string.
// limit defaults to DefaultLimit and is clamped to MaxLimit. before is either
// a cursor returned in "next" or a bare RFC3339 timestamp.
func Parse(r *http.Request) (Page, error) {
	p := Page{Limit: DefaultLimit}

	if s := query.Get(r, "limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return Page{}, apperr.Invalid("limit must be a positive integer.")
		}
		if n > MaxLimit {
			n = MaxLimit
		}
		p.Limit = n
	}

	if s := query.Get(r, "before"); s != "" {
		t, id, ok := decodeBefore(s)
		if !ok {
			return Page{}, apperr.Invalid("before must be a page cursor or an RFC3339 timestamp.")
		}
		p.Before, p.BeforeID = t, id
	}
	return p, nil
}

// decodeBefore accepts a bare RFC3339 timestamp or a cursor from EncodeBefore.
func decodeBefore(s string) (time.Time, primitive.ObjectID, bool) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, primitive.NilObjectID, true
	}
	c, ok := wafflemongo.DecodeCursor(s)
	if !ok {
		return time.Time{}, primitive.NilObjectID, false
	}
	t, err := time.Parse(time.RFC3339Nano, c.CI)
	if err != nil {
		return time.Time{}, primitive.NilObjectID, false
	}
	return t, c.ID, true
}

// EncodeBefore renders the cursor that resumes after the row at (t, id).
func EncodeBefore(t time.Time, id primitive.ObjectID) string {
	return wafflemongo.EncodeCursor(t.UTC().Format(time.RFC3339Nano), id)
}

// LimitPlusOne returns Limit+1 for look-ahead pagination
// (fetch one extra document to detect hasMore).
func (p Page) LimitPlusOne() int64 { return int64(p.Limit + 1) }

// Window returns the condition selecting rows after the cursor, or nil on the
// first page. Rows sharing the cursor's timestamp are split on _id.
func (p Page) Window(field string) bson.M {
	if p.Before.IsZero() {
		return nil
	}
	if p.BeforeID.IsZero() {
		return bson.M{field: bson.M{"$lt": p.Before}}
	}
	return bson.M{"$or": []bson.M{
		{field: bson.M{"$lt": p.Before}},
		{field: p.Before, "_id": bson.M{"$lt": p.BeforeID}},
	}}
}

// FindOptions sorts newest first and applies the look-ahead limit.
func (p Page) FindOptions(field string) *options.FindOptions {
	return options.Find().
		SetSort(bson.D{{Key: field, Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(p.LimitPlusOne())
}

// Trim cuts a fetched slice back to limit and reports whether more rows exist.
func Trim[T any](rows *[]T, limit int) (hasMore bool) {
	if len(*rows) > limit {
		*rows = (*rows)[:limit]
		return true
	}
	return false
}

// NextBefore returns the before cursor for the page after rows, or "" when
// there is none. key returns a row's sort timestamp and id.
func NextBefore[T any](rows []T, hasMore bool, key func(T) (time.Time, primitive.ObjectID)) string {
	if !hasMore || len(rows) == 0 {
		return ""
	}
	return EncodeBefore(key(rows[len(rows)-1]))
}

/* -------------------------------------------------------------------------- */
/* Name keyset pages (searches)                                                */
/* -------------------------------------------------------------------------- */

// Keyset holds the decoded "after" cursor for a name-sorted list.
type Keyset struct {
	Cursor *wafflemongo.Cursor
}

// ParseKeyset decodes the opaque "after" query parameter. An absent or
// undecodable cursor starts from the first page.
func ParseKeyset(r *http.Request) Keyset {
	var k Keyset
	if s := query.Get(r, "after"); s != "" {
		if c, ok := wafflemongo.DecodeCursor(s); ok {
			k.Cursor = &c
		}
	}
	return k
}

// Window returns the cursor condition on (sortField, _id), or nil.
func (k Keyset) Window(sortField string) bson.M {
	if k.Cursor == nil {
		return nil
	}
	return wafflemongo.KeysetWindow(sortField, "gt", k.Cursor.CI, k.Cursor.ID)
}

// FindOptions sorts ascending on (sortField, _id) with a look-ahead limit.
func (k Keyset) FindOptions(sortField string) *options.FindOptions {
	return options.Find().
		SetSort(bson.D{{Key: sortField, Value: 1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(SearchPageSize + 1))
}

// NextCursor encodes the cursor that resumes after the last row.
// It returns "" when there are no more rows.
func NextCursor[T any](rows []T, hasMore bool, keyFn func(T) string, idFn func(T) primitive.ObjectID) string {
	if !hasMore || len(rows) == 0 {
		return ""
	}
	last := rows[len(rows)-1]
	return wafflemongo.EncodeCursor(keyFn(last), idFn(last))
}
