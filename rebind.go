// rebind.go
//
// Identifier rebinding: locating every copy of the Steam ID inside the
// container and overwriting it with the target account's ID. The summary
// region carries the authoritative copy at a fixed offset; each non-empty
// character slot embeds further copies at positions that shift with the
// slot's variable-length internals, so those are found by scanning the slot
// payload for the previous identifier's byte pattern.

package erfix

import "bytes"

// rebindIdentifier overwrites every occurrence of the container's current
// identifier with target and returns the previous identifier together with
// the starting offsets of the identifier-width writes that actually changed
// bytes. The orchestrator uses the offsets to decide which region digests
// went stale.
//
// Slots carrying the empty-slot sentinel are skipped: their payload was
// never written by the game, and rewriting bytes inside one risks turning
// it into a spuriously "valid" slot. Occurrences already equal to target
// are not rewritten and not reported, which is what makes a second repair
// with the same target a byte-identical no-op.
func rebindIdentifier(c *SaveContainer, target SteamID) (previous SteamID, touched []int64) {
	buf, layout := c.buf, c.layout
	previous = c.Identifier()
	want := target.bytes()

	if previous != target {
		copy(buf[layout.IdentifierOffset:], want[:])
		touched = append(touched, layout.IdentifierOffset)
	}

	// A zero identifier carries no scannable pattern — the all-zero word
	// occurs throughout unwritten payload — so only the anchored copy is
	// rewritten in that case.
	if previous == 0 || previous == target {
		return previous, touched
	}
	pattern := previous.bytes()

	for i, slot := range layout.Slots {
		if layout.slotEmpty(buf, i) {
			continue
		}
		payload := buf[slot.Offset:slot.End()]
		for at := 0; ; {
			rel := bytes.Index(payload[at:], pattern[:])
			if rel < 0 {
				break
			}
			at += rel
			copy(payload[at:], want[:])
			touched = append(touched, slot.Offset+int64(at))
			at++
		}
	}
	return previous, touched
}
