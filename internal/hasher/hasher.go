// Package hasher computes the content digests attached to transcoded outputs
// and used as HTTP ETags and report integrity checks.
package hasher

import (
	"encoding/binary"
	"encoding/hex"

	"github.com/cespare/xxhash/v2"
)

// DigestLen is the hex length of a Digest: the full 64-bit xxHash.
const DigestLen = 16

// Digest returns the xxHash64 of data as 16 lowercase hex chars.
func Digest(data []byte) string {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], xxhash.Sum64(data))
	return hex.EncodeToString(b[:])
}

// Short returns the first n hex chars of the digest, for filenames and logs.
func Short(data []byte, n int) string {
	d := Digest(data)
	if n > 0 && n < len(d) {
		return d[:n]
	}
	return d
}
