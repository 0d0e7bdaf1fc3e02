package erfix

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRebindRewritesEveryOccurrence(t *testing.T) {
	l := registerMiniFormat(t, miniParams)
	const oldID, newID = SteamID(76561198000000001), SteamID(76561198000000002)

	buf := buildContainer(t, l, oldID, 0)
	c := &SaveContainer{buf: buf, layout: l}

	prev, touched := rebindIdentifier(c, newID)
	assert.Equal(t, oldID, prev)

	want := []int64{l.IdentifierOffset}
	for _, off := range embeddedIDOffsets(l.Slots[0].Length) {
		want = append(want, l.Slots[0].Offset+off)
	}
	assert.ElementsMatch(t, want, touched)

	assert.Equal(t, newID, c.Identifier())
	for _, off := range embeddedIDOffsets(l.Slots[0].Length) {
		assert.Equal(t, newID, steamIDAt(buf, l.Slots[0].Offset+off))
	}
}

func TestRebindSkipsEmptySlots(t *testing.T) {
	l := registerMiniFormat(t, miniParams)
	buf := buildContainer(t, l, 1001, 0) // slot 1 empty

	empty := append([]byte(nil), buf[l.Slots[1].Offset:l.Slots[1].End()]...)

	c := &SaveContainer{buf: buf, layout: l}
	_, _ = rebindIdentifier(c, 2002)

	requireBytesEqual(t, empty, buf[l.Slots[1].Offset:l.Slots[1].End()],
		"empty slot payload must stay untouched")
	assert.True(t, l.slotEmpty(buf, 1))
}

func TestRebindSameTargetIsNoOp(t *testing.T) {
	l := registerMiniFormat(t, miniParams)
	buf := buildContainer(t, l, 3003, 0, 1)
	before := append([]byte(nil), buf...)

	c := &SaveContainer{buf: buf, layout: l}
	prev, touched := rebindIdentifier(c, 3003)

	assert.Equal(t, SteamID(3003), prev)
	assert.Empty(t, touched)
	requireBytesEqual(t, before, buf, "rebinding to the current identifier must change nothing")
}

func TestRebindZeroPreviousOnlyAnchor(t *testing.T) {
	l := registerMiniFormat(t, miniParams)
	buf := buildContainer(t, l, 0, 0)

	// The occupied slot is full of data but the anchor reads zero; a zero
	// pattern must not be scanned for, or half the payload would match.
	c := &SaveContainer{buf: buf, layout: l}
	prev, touched := rebindIdentifier(c, 4004)

	assert.Equal(t, SteamID(0), prev)
	require.Equal(t, []int64{l.IdentifierOffset}, touched)
	assert.Equal(t, SteamID(4004), c.Identifier())
}

func TestRebindAdjacentOccurrences(t *testing.T) {
	l := registerMiniFormat(t, miniParams)
	const oldID, newID = SteamID(0x1122334455667788), SteamID(0x8877665544332211)

	buf := buildContainer(t, l, oldID, 0)

	// Plant two back-to-back copies on top of the builder's embedded ones.
	raw := oldID.bytes()
	base := l.Slots[0].Offset + 0x80
	copy(buf[base:], raw[:])
	copy(buf[base+identifierSize:], raw[:])
	recomputeRegion(buf, l.Regions[0])

	c := &SaveContainer{buf: buf, layout: l}
	_, touched := rebindIdentifier(c, newID)

	assert.Contains(t, touched, base)
	assert.Contains(t, touched, base+identifierSize)
	assert.Equal(t, newID, steamIDAt(buf, base))
	assert.Equal(t, newID, steamIDAt(buf, base+identifierSize))
}
