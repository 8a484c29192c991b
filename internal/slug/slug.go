// Package slug normalises account names into the key used to enforce unique
// names in the chart of accounts ("Cash on Hand", "cash-on-hand" and
// " CASH ON HAND " all collide).
package slug

import (
	"regexp"
	"strings"
)

const maxLen = 64

var reSlug = regexp.MustCompile(`^[a-z0-9_]{1,64}$`)

// IsSlug returns true if s matches ^[a-z0-9_]{1,64}$.
func IsSlug(s string) bool {
	return reSlug.MatchString(s)
}

// Slugify lowercases s, maps runs of anything outside [a-z0-9] to a single '_',
// trims leading/trailing '_' and caps the result at 64 characters.
func Slugify(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	pending := false
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pending && b.Len() > 0 {
				if b.Len()+1 >= maxLen {
					break
				}
				b.WriteByte('_')
			}
			pending = false
			b.WriteRune(r)
			if b.Len() >= maxLen {
				break
			}
			continue
		}
		pending = true
	}
	return strings.TrimRight(b.String(), "_")
}
