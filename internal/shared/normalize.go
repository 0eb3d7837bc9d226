package shared

import (
	"regexp"
	"strings"
)

var (
	unsafeIDChars = regexp.MustCompile(`[^\p{L}\p{N}_\s-]`)
	idSeparators  = regexp.MustCompile(`[\s-]+`)
)

// NormalizeID derives a storage key from free text (titles, entry ids, links).
//
// Characters other than letters, digits, whitespace, hyphens and underscores are dropped,
// the rest is trimmed and lowercased, and runs of whitespace or hyphens become a single underscore,
// so "The Communist Manifesto" and "the   communist manifesto" share an id.
//
// Text that is empty, or empty once stripped, gets a random id from [GenerateID].
// Untitled items therefore duplicate on re-ingestion.
func NormalizeID(text string) string {
	id := strings.TrimSpace(unsafeIDChars.ReplaceAllString(text, ""))
	id = idSeparators.ReplaceAllString(strings.ToLower(id), "_")
	if id == "" {
		return GenerateID()
	}
	return id
}

// CompositeID joins parts with an underscore before normalizing (e.g. platform + username),
// so one external identity always maps to one id regardless of case.
func CompositeID(parts ...string) string {
	return NormalizeID(strings.Join(parts, "_"))
}
