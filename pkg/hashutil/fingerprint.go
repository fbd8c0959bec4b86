package hashutil

import (
	"encoding/hex"

	"lukechampine.com/blake3"
)

// Fingerprint is the hex BLAKE3-256 digest of a document body.
// The zero value means nothing was fetched.
type Fingerprint string

const shortLen = 12

// FingerprintOf digests data. An empty body still has a fingerprint.
func FingerprintOf(data []byte) Fingerprint {
	sum := blake3.Sum256(data)
	return Fingerprint(hex.EncodeToString(sum[:]))
}

func (f Fingerprint) String() string {
	return string(f)
}

func (f Fingerprint) IsZero() bool {
	return f == ""
}

// Short returns a log-friendly prefix of the digest.
func (f Fingerprint) Short() string {
	if len(f) <= shortLen {
		return string(f)
	}
	return string(f[:shortLen])
}
