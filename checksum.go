// checksum.go
//
// MD5 integrity digests for save-container regions. The game validates each
// region against a 16-byte MD5 digest stored immediately in front of the
// region's payload; any byte we change inside a payload makes its stored
// digest stale, and the game then rejects the whole file. The engine
// therefore recomputes the digest of every region it touched and verifies
// the full container before writing anything back.
//
// MD5 is the game's own choice of algorithm; it is an integrity check
// against accidental corruption, not a security boundary.

package erfix

import (
	"bytes"
	"crypto/md5"
	"fmt"
)

// computeDigest returns the MD5 digest of the payload bytes in span.
// It is a pure function of the buffer contents.
func computeDigest(buf []byte, payload Span) Digest {
	return md5.Sum(buf[payload.Offset:payload.End()])
}

// storedDigest returns the digest recorded in the buffer for region r.
// The region must carry a digest field.
func storedDigest(buf []byte, r Region) Digest {
	var d Digest
	copy(d[:], buf[r.DigestOffset:r.DigestOffset+digestSize])
	return d
}

// verifyRegion reports whether the stored digest of r matches a fresh
// computation over its payload. Regions without a digest field always
// verify: there is nothing to check against.
func verifyRegion(buf []byte, r Region) bool {
	if !r.hasDigest() {
		return true
	}
	got := computeDigest(buf, r.Payload)
	return bytes.Equal(got[:], buf[r.DigestOffset:r.DigestOffset+digestSize])
}

// recomputeRegion freshly computes the digest of r's payload and writes it
// into the buffer at the region's digest offset.
func recomputeRegion(buf []byte, r Region) {
	if !r.hasDigest() {
		return
	}
	d := computeDigest(buf, r.Payload)
	copy(buf[r.DigestOffset:r.DigestOffset+digestSize], d[:])
}

// digestMismatchError builds the diagnostic for a failed verification,
// carrying the region name, the covered range and both digests so the
// caller can diagnose without re-reading the file.
func digestMismatchError(buf []byte, r Region) error {
	return fmt.Errorf("%s [0x%x,0x%x): stored digest %s, computed %s",
		r.Name, r.Payload.Offset, r.Payload.End(),
		storedDigest(buf, r), computeDigest(buf, r.Payload))
}
