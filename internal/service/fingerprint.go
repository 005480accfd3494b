package service

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/timmy/recordhub/internal/domain"
)

// fingerprintContentLimit is how many characters of normalized content feed the fingerprint.
const fingerprintContentLimit = 500

// NormalizeText lower-cases s, collapses runs of whitespace to one space and trims.
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Fingerprint hashes the normalized title and the first 500 characters of the
// normalized content. Truncation happens after normalization.
// Parameters:
//   - title: record title.
//   - content: record body, or its description when there is no body.
// Returns:
//   - string: lower-case hex SHA-256.
func Fingerprint(title, content string) string {
	c := []rune(NormalizeText(content))
	if len(c) > fingerprintContentLimit {
		c = c[:fingerprintContentLimit]
	}
	sum := sha256.Sum256([]byte(NormalizeText(title) + "|" + string(c)))
	return hex.EncodeToString(sum[:])
}

// FingerprintFields fingerprints canonical fields, using Description when Content is empty.
func FingerprintFields(f domain.CanonicalFields) string {
	content := f.Content
	if content == "" {
		content = f.Description
	}
	return Fingerprint(f.Title, content)
}

// EntityIDFor mints the entity id of a cluster first seen with fingerprint.
func EntityIDFor(fingerprint string) string {
	if len(fingerprint) > 16 {
		fingerprint = fingerprint[:16]
	}
	return "entity_" + fingerprint
}
