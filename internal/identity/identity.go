// Package identity derives deterministic 128-bit identifiers from an ordered
// list of field values. The same inputs always produce the same UUID, which
// lets the verification store detect "this channel already verified this
// exact email" without a secondary index.
//
// The digest is MD5: the identifier is an anti-duplication key, not a
// security boundary.
package identity

import (
	"crypto/md5"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Fields is the statically ordered list of values feeding a hash. Each value
// is rendered with fmt, trimmed and uppercased before joining.
type Fields []any

// Sum hashes the fields joined by "," and returns the digest as a UUID. The
// most and least significant 64 bits are the high and low halves of the
// digest. No version bits are stamped.
func (f Fields) Sum() uuid.UUID {
	parts := make([]string, len(f))
	for i, v := range f {
		parts[i] = canonical(v)
	}
	return uuid.UUID(md5.Sum([]byte(strings.Join(parts, ","))))
}

// Of returns the contact identity for a channel and email address.
func Of(channelID int64, email string) uuid.UUID {
	return Fields{channelID, email}.Sum()
}

func canonical(v any) string {
	return strings.ToUpper(strings.TrimSpace(fmt.Sprint(v)))
}
