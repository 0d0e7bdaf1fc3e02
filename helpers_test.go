package erfix

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/hexops/gotextdiff"
	"github.com/hexops/gotextdiff/myers"
	"github.com/hexops/gotextdiff/span"
	"github.com/stretchr/testify/require"
)

// miniParams is a scaled-down two-slot format so tests can exercise the
// full engine without allocating real 28 MiB containers.
var miniParams = FormatParams{
	Name:               "test-mini",
	HeaderSize:         0x20,
	SlotCount:          2,
	SlotPayloadSize:    0x100,
	SummaryPayloadSize: 0x40,
	TrailerPayloadSize: 0x30,
	WithDigests:        true,
	IdentifierOffset:   0x4,
	ActiveFlagsOffset:  0x10,
}

// registerMiniFormat registers the two-slot test format and removes it when
// the test finishes.
func registerMiniFormat(t *testing.T, p FormatParams) *LayoutDescriptor {
	t.Helper()
	l, err := NewLayout(p)
	require.NoError(t, err)
	require.NoError(t, RegisterFormat(l))
	t.Cleanup(func() { unregisterFormat(l.ContainerSize) })
	return l
}

// embeddedIDOffsets returns the relative payload positions at which
// buildContainer plants identifier copies inside an occupied slot.
func embeddedIDOffsets(payloadSize int64) []int64 {
	return []int64{0x40, payloadSize - 0x20}
}

// buildContainer assembles a valid container for layout: deterministic
// pseudo-random payload, the identifier anchored in the summary region and
// embedded in every occupied slot, sentinel-zero empty slots, and all
// digests freshly computed.
func buildContainer(t *testing.T, l *LayoutDescriptor, id SteamID, occupied ...int) []byte {
	t.Helper()

	buf := make([]byte, l.ContainerSize)
	rng := rand.New(rand.NewSource(0x5A7E))
	rng.Read(buf)

	for i, slot := range l.Slots {
		payload := buf[slot.Offset:slot.End()]
		if !contains(occupied, i) {
			for j := range payload {
				payload[j] = 0
			}
			continue
		}
		// Non-zero version field keeps the slot out of sentinel territory.
		binary.LittleEndian.PutUint32(payload, 0x51)
		raw := id.bytes()
		for _, off := range embeddedIDOffsets(slot.Length) {
			copy(payload[off:], raw[:])
		}
	}

	raw := id.bytes()
	copy(buf[l.IdentifierOffset:], raw[:])
	if l.ActiveFlagsOffset >= 0 {
		for i := range l.Slots {
			flag := byte(0)
			if contains(occupied, i) {
				flag = 1
			}
			buf[l.ActiveFlagsOffset+int64(i)] = flag
		}
	}

	for _, r := range l.Regions {
		recomputeRegion(buf, r)
	}
	return buf
}

func contains(s []int, v int) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

// writeContainer drops buf into a temp dir and returns the file path.
func writeContainer(t *testing.T, buf []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ER0000.sl2")
	require.NoError(t, os.WriteFile(path, buf, 0o644))
	return path
}

// requireBytesEqual fails with a hexdump diff when the two buffers differ,
// which is far easier to act on than a bare "not equal" for binary data.
func requireBytesEqual(t *testing.T, want, got []byte, msg string) {
	t.Helper()
	if string(want) == string(got) {
		return
	}
	a, b := hex.Dump(want), hex.Dump(got)
	edits := myers.ComputeEdits(span.URIFromPath(""), a, b)
	diff := fmt.Sprint(gotextdiff.ToUnified("want", "got", a, edits))
	if len(diff) > 4096 {
		diff = diff[:4096] + "\n... (truncated)"
	}
	t.Fatalf("%s:\n%s", msg, diff)
}
