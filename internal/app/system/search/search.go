// Package search builds case/diacritics-insensitive prefix filters over the
// *_ci fields kept alongside display names.
package search

import (
	"regexp"

	"github.com/hearthsocial/hearth/internal/app/system/normalize"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Prefix returns {field: /^<folded q>/} so the query can use the index on
// field. An empty query returns nil.
func Prefix(field, q string) bson.M {
	folded := normalize.Fold(q)
	if folded == "" {
		return nil
	}
	return bson.M{field: primitive.Regex{Pattern: "^" + regexp.QuoteMeta(folded)}}
}

// Contains returns {field: /<folded q>/} for substring matching.
// It cannot use an index and is only used on small candidate sets.
func Contains(field, q string) bson.M {
	folded := normalize.Fold(q)
	if folded == "" {
		return nil
	}
	return bson.M{field: primitive.Regex{Pattern: regexp.QuoteMeta(folded)}}
}
