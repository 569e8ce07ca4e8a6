// internal/chat/sanitize.go
// Gates all outbound message content. Validation failure blocks the send
// and surfaces a user-visible error; it never panics across the boundary.

package chat

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxMessageLength is the upper bound on sanitized message content.
const MaxMessageLength = 500

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	idPattern     = regexp.MustCompile(`^[A-Za-z0-9_-]{8,}$`)
)

// stripAngles removes '<' and '>' characters only. The rendering context
// is plain text, so dropping the brackets is enough to neutralize markup.
func stripAngles(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '<' || r == '>' {
			return -1
		}
		return r
	}, s)
}

// SanitizeText normalizes outbound message text: strip angle brackets,
// collapse whitespace runs to single spaces, trim, and truncate to
// MaxMessageLength runes.
func SanitizeText(s string) string {
	s = stripAngles(s)
	s = whitespaceRun.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) > MaxMessageLength {
		s = string([]rune(s)[:MaxMessageLength])
	}
	return s
}

// IsValidMessage reports whether a string is an acceptable message: after
// sanitization (without truncation) its length must be above zero and at
// most MaxMessageLength.
func IsValidMessage(s string) bool {
	t := strings.TrimSpace(whitespaceRun.ReplaceAllString(stripAngles(s), " "))
	n := utf8.RuneCountInString(t)
	return n > 0 && n <= MaxMessageLength
}

// IsValidID reports whether an identifier is safe to forward to the
// transport: alphanumeric plus hyphen/underscore, at least 8 characters.
func IsValidID(s string) bool {
	return idPattern.MatchString(s)
}
