// Package inputval validates user-supplied identifiers and free text.
package inputval

import (
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Username length bounds.
const (
	MinUsernameLen = 3
	MaxUsernameLen = 30
)

// Free-text limits, counted in characters after sanitizing.
const (
	MaxPostText        = 2000
	MaxCommentText     = 500
	MaxMessageText     = 2000
	MaxGroupName       = 100
	MaxGroupDesc       = 1000
	MaxBio             = 500
	MaxProfilePicture  = 2048
	MaxSearchQueryText = 100
)

// IsValidEmail reports whether s is a bare addr-spec (no display name).
// Single-label domains such as "localhost" are accepted.
func IsValidEmail(s string) bool {
	s = strings.TrimSpace(s)
	at := strings.LastIndexByte(s, '@')
	if at <= 0 || at == len(s)-1 {
		return false
	}
	local, domain := s[:at], s[at+1:]
	if strings.ContainsAny(s, " \t\r\n<>\"(),;:[]\\") || strings.Contains(local, "@") {
		return false
	}
	if !dotAtom(local) || !dotAtom(domain) {
		return false
	}
	for _, r := range domain {
		if !(r == '.' || r == '-' || unicode.IsLetter(r) || unicode.IsDigit(r)) {
			return false
		}
	}
	return true
}

// dotAtom rejects leading, trailing and consecutive dots.
func dotAtom(s string) bool {
	return s != "" && !strings.HasPrefix(s, ".") && !strings.HasSuffix(s, ".") && !strings.Contains(s, "..")
}

// IsValidUsername reports whether s is 3-30 characters of letters, digits,
// underscore, dot or hyphen.
func IsValidUsername(s string) bool {
	n := utf8.RuneCountInString(s)
	if n < MinUsernameLen || n > MaxUsernameLen {
		return false
	}
	for _, r := range s {
		if !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '.' || r == '-') {
			return false
		}
	}
	return true
}

// TooLong reports whether s exceeds max characters.
func TooLong(s string, max int) bool {
	return utf8.RuneCountInString(s) > max
}

// IsValidHTTPURL reports whether s is an absolute http(s) URL with a host.
func IsValidHTTPURL(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// IsValidProfilePicture accepts an empty value, an http(s) URL, or a path
// under the local media prefix returned by the upload endpoint.
func IsValidProfilePicture(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return true
	}
	return IsValidMediaURL(s)
}

// IsValidMediaURL reports whether s is an http(s) URL or a rooted local path
// without parent references.
func IsValidMediaURL(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" || TooLong(s, MaxProfilePicture) {
		return false
	}
	return IsValidHTTPURL(s) || (strings.HasPrefix(s, "/") && !strings.HasPrefix(s, "//") && !strings.Contains(s, ".."))
}

// IsValidObjectID reports whether s is a 24-character hex ObjectID.
func IsValidObjectID(s string) bool {
	_, err := primitive.ObjectIDFromHex(strings.TrimSpace(s))
	return err == nil
}
