// Package erfix repairs Elden Ring save containers (ER0000.sl2) that the
// game refuses to load because the Steam ID embedded in the file no longer
// matches the current account — typically after the save was copied between
// machines or accounts.
//
// The engine rewrites the identifier everywhere it occurs, recomputes the
// MD5 digest of every region whose bytes changed, and re-verifies the whole
// container before atomically replacing the file on disk. All bytes outside
// the identifier and digest fields are opaque payload and are preserved
// byte-for-byte.
//
// Typical usage:
//
//	id, err := erfix.ParseSteamID("76561198000000000")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	report, err := erfix.Repair("ER0000.sl2", id)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Print(report)
//
// All format-specific knowledge (sizes, offsets, digest placement) lives in
// the layout registry; the rest of the engine is format-agnostic. Additional
// formats can be registered at runtime, including from an INI file, without
// touching the engine.
package erfix

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strconv"
)

// SteamID is the 64-bit platform account identifier bound into a save
// container. It is stored little-endian wherever it appears in the file.
// The zero value never identifies a real account and is treated as "no
// identifier" by the rebinder.
type SteamID uint64

// ParseSteamID converts the canonical decimal SteamID64 string (as shown in
// a Steam profile URL) into a SteamID.
//
// An error is returned when the input cannot be parsed as an unsigned
// 64-bit decimal or when it parses to zero, which never corresponds to a
// real account.
func ParseSteamID(s string) (SteamID, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid steam id %q: %w", s, err)
	}
	if v == 0 {
		return 0, fmt.Errorf("invalid steam id %q: zero", s)
	}
	return SteamID(v), nil
}

// String returns the canonical decimal form.
func (id SteamID) String() string { return strconv.FormatUint(uint64(id), 10) }

// bytes returns the identifier in its on-disk little-endian encoding.
func (id SteamID) bytes() [identifierSize]byte {
	var b [identifierSize]byte
	binary.LittleEndian.PutUint64(b[:], uint64(id))
	return b
}

// steamIDAt decodes the little-endian identifier stored at off.
func steamIDAt(buf []byte, off int64) SteamID {
	return SteamID(binary.LittleEndian.Uint64(buf[off : off+identifierSize]))
}

// Digest is the raw 16-byte MD5 digest the game stores in front of each
// protected region. Digests are stored verbatim; there is no endianness
// concern.
type Digest [digestSize]byte

// String returns the digest as 32 lowercase hex characters.
func (d Digest) String() string { return hex.EncodeToString(d[:]) }

// Span addresses a contiguous byte range inside a save container.
type Span struct {
	// Offset is the absolute position of the first byte of the range.
	Offset int64

	// Length is the number of bytes in the range.
	Length int64
}

// End returns the offset one past the last byte of the span.
func (s Span) End() int64 { return s.Offset + s.Length }

// contains reports whether the absolute offset off falls inside the span.
func (s Span) contains(off int64) bool { return off >= s.Offset && off < s.End() }

// overlaps reports whether any byte of [off, off+n) falls inside the span.
func (s Span) overlaps(off, n int64) bool { return off < s.End() && off+n > s.Offset }
