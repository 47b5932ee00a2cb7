// Package ulid generates prefixed ULID identifiers for review runs and
// webhook deliveries. ULIDs sort lexicographically by time, which keeps
// log lines for one run greppable and ordered.
package ulid

import (
	"crypto/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

const (
	// PrefixReview marks a review run identifier.
	PrefixReview = "rev"

	// PrefixJob marks a queued webhook job identifier.
	PrefixJob = "job"

	// PrefixSeparator separates the prefix from the ULID body.
	PrefixSeparator = "-"
)

var (
	entropy     = ulid.Monotonic(rand.Reader, 0)
	entropyLock sync.Mutex
)

// Generate returns a new ULID string for the current time.
func Generate() string {
	entropyLock.Lock()
	id := ulid.MustNew(ulid.Timestamp(time.Now()), entropy)
	entropyLock.Unlock()
	return id.String()
}

// GenerateWithPrefix returns a new ULID string with the given prefix,
// e.g. "rev-01AN4Z07BY79KA1307SR9X4MV3".
func GenerateWithPrefix(prefix string) string {
	if prefix == "" {
		return Generate()
	}
	return prefix + PrefixSeparator + Generate()
}

// Validate reports whether s is a plain or prefixed ULID.
func Validate(s string) bool {
	raw := s
	if i := strings.LastIndex(s, PrefixSeparator); i >= 0 {
		raw = s[i+1:]
	}
	_, err := ulid.Parse(raw)
	return err == nil
}
