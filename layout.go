// layout.go
//
// Static description of the save container's on-disk structure. Every
// game-specific constant — region sizes, digest placement, identifier and
// slot offsets — is encoded here as data, so the checksum engine, rebinder
// and orchestrator stay format-agnostic. Supporting a new game edition or
// patch means registering one more descriptor, not touching the engine.
//
// The built-in constants were determined empirically against real save
// samples and mirror the layout used by the game's own loader: a 0x300-byte
// archive header, ten fixed-size character slots each preceded by a 16-byte
// MD5 digest, a summary region carrying the authoritative Steam ID and the
// per-slot activity flags, and a trailing region. The regions tile the file
// exactly, which is what lets us recognize a format from its byte length
// alone.

package erfix

import (
	"errors"
	"fmt"
	"sync"
)

const (
	// digestSize is the width of the MD5 digest stored before each
	// protected region.
	digestSize = 16

	// identifierSize is the width of the little-endian Steam ID field.
	identifierSize = 8

	// sentinelSize is the width of the empty-slot marker: the slot's
	// version field at the start of its payload. All-zero means the game
	// never wrote the slot.
	sentinelSize = 4
)

// Steam (PC) format constants for ER0000.sl2.
const (
	steamHeaderSize     = 0x300
	steamSlotCount      = 10
	steamSlotPayload    = 0x280000
	steamSummaryPayload = 0x60000
	steamTrailerPayload = 0x240010

	// Offsets relative to the start of the summary payload.
	steamIdentifierOffset  = 0x4
	steamActiveFlagsOffset = 0x1954
)

// Region is one digest-protected byte range of a container.
type Region struct {
	// Name is the archive entry name the game uses for the region,
	// e.g. "USER_DATA_03".
	Name string

	// Payload is the byte range the digest covers.
	Payload Span

	// DigestOffset is the absolute position of the stored 16-byte digest,
	// or -1 for formats that carry no digests (console saves are integrity
	// protected by the platform's own envelope instead).
	DigestOffset int64
}

// hasDigest reports whether the format stores a digest for this region.
func (r Region) hasDigest() bool { return r.DigestOffset >= 0 }

// LayoutDescriptor is the full structural map of one container format.
// Descriptors are immutable after registration and may be shared freely.
type LayoutDescriptor struct {
	// Name identifies the format in reports, e.g. "steam".
	Name string

	// ContainerSize is the exact byte length of a file in this format.
	// Formats are recognized by length, so sizes must be unique across
	// the registry.
	ContainerSize int64

	// Slots holds the payload span of every character slot, in slot order.
	Slots []Span

	// Regions lists every digest-protected region, character slots
	// included. Regions never overlap.
	Regions []Region

	// IdentifierOffset is the absolute position of the authoritative
	// Steam ID copy (inside the summary region).
	IdentifierOffset int64

	// ActiveFlagsOffset is the absolute position of the first slot's
	// activity byte (one byte per slot, inside the summary region), or -1
	// when the format does not expose the flags. The flags are advisory:
	// occupancy is decided by the slot sentinel, not by these bytes.
	ActiveFlagsOffset int64
}

// FormatParams is the compact parameterization from which a descriptor is
// derived. The container is laid out as
//
//	header | slot×SlotCount | summary | trailer
//
// with each region preceded by a 16-byte digest when WithDigests is set.
// The total container size follows from the parameters; it is never
// specified directly.
type FormatParams struct {
	Name               string
	HeaderSize         int64
	SlotCount          int
	SlotPayloadSize    int64
	SummaryPayloadSize int64
	TrailerPayloadSize int64

	// WithDigests selects whether each region is preceded by a stored
	// MD5 digest.
	WithDigests bool

	// IdentifierOffset is relative to the start of the summary payload.
	IdentifierOffset int64

	// ActiveFlagsOffset is relative to the start of the summary payload;
	// use -1 when the format has no activity flags.
	ActiveFlagsOffset int64
}

// NewLayout derives a LayoutDescriptor from p.
//
// Every span is computed, then cross-checked: regions must tile without
// overlap, and the identifier and flag fields must fall inside the summary
// payload. A violated invariant is a descriptor bug, reported as an error
// rather than discovered later as silent corruption.
func NewLayout(p FormatParams) (*LayoutDescriptor, error) {
	if p.Name == "" {
		return nil, errors.New("layout: empty format name")
	}
	if p.SlotCount <= 0 || p.HeaderSize < 0 || p.SlotPayloadSize <= 0 ||
		p.SummaryPayloadSize <= 0 || p.TrailerPayloadSize < 0 {
		return nil, fmt.Errorf("layout %s: non-positive dimension", p.Name)
	}

	var d int64
	if p.WithDigests {
		d = digestSize
	}

	l := &LayoutDescriptor{
		Name:              p.Name,
		Slots:             make([]Span, 0, p.SlotCount),
		ActiveFlagsOffset: -1,
	}

	off := p.HeaderSize
	for i := 0; i < p.SlotCount; i++ {
		payload := Span{Offset: off + d, Length: p.SlotPayloadSize}
		l.Slots = append(l.Slots, payload)
		l.Regions = append(l.Regions, Region{
			Name:         fmt.Sprintf("USER_DATA_%02d", i),
			Payload:      payload,
			DigestOffset: digestOffset(off, p.WithDigests),
		})
		off = payload.End()
	}

	summary := Span{Offset: off + d, Length: p.SummaryPayloadSize}
	l.Regions = append(l.Regions, Region{
		Name:         fmt.Sprintf("USER_DATA_%02d", p.SlotCount),
		Payload:      summary,
		DigestOffset: digestOffset(off, p.WithDigests),
	})
	off = summary.End()

	if p.TrailerPayloadSize > 0 {
		trailer := Span{Offset: off + d, Length: p.TrailerPayloadSize}
		l.Regions = append(l.Regions, Region{
			Name:         fmt.Sprintf("USER_DATA_%02d", p.SlotCount+1),
			Payload:      trailer,
			DigestOffset: digestOffset(off, p.WithDigests),
		})
		off = trailer.End()
	}

	l.ContainerSize = off

	if p.IdentifierOffset < 0 ||
		p.IdentifierOffset+identifierSize > p.SummaryPayloadSize {
		return nil, fmt.Errorf("layout %s: identifier offset 0x%x outside summary payload",
			p.Name, p.IdentifierOffset)
	}
	l.IdentifierOffset = summary.Offset + p.IdentifierOffset

	if p.ActiveFlagsOffset >= 0 {
		if p.ActiveFlagsOffset+int64(p.SlotCount) > p.SummaryPayloadSize {
			return nil, fmt.Errorf("layout %s: active flags 0x%x outside summary payload",
				p.Name, p.ActiveFlagsOffset)
		}
		l.ActiveFlagsOffset = summary.Offset + p.ActiveFlagsOffset
	}

	if p.SlotPayloadSize < sentinelSize {
		return nil, fmt.Errorf("layout %s: slot payload smaller than sentinel", p.Name)
	}

	return l, nil
}

func digestOffset(off int64, withDigests bool) int64 {
	if withDigests {
		return off
	}
	return -1
}

// summary returns the summary region (the one after the character slots).
func (l *LayoutDescriptor) summary() Region { return l.Regions[len(l.Slots)] }

// slotEmpty reports whether the slot at index i carries the empty-slot
// sentinel: an all-zero version field at the start of its payload. Empty
// slots were never written by the game and must not be touched.
func (l *LayoutDescriptor) slotEmpty(buf []byte, i int) bool {
	p := l.Slots[i].Offset
	for _, b := range buf[p : p+sentinelSize] {
		if b != 0 {
			return false
		}
	}
	return true
}

// staleRegions returns every digest-carrying region whose payload or digest
// field overlaps one of the touched writes. touched holds the starting
// offsets of identifier-width writes performed by the rebinder. Regions
// without a digest field are never stale: a payload write there invalidates
// nothing.
func (l *LayoutDescriptor) staleRegions(touched []int64) []Region {
	var stale []Region
	for _, r := range l.Regions {
		if !r.hasDigest() {
			continue
		}
		for _, off := range touched {
			if r.Payload.overlaps(off, identifierSize) ||
				(off < r.DigestOffset+digestSize && off+identifierSize > r.DigestOffset) {
				stale = append(stale, r)
				break
			}
		}
	}
	return stale
}

// ErrUnknownFormat is returned when a file's byte length does not match any
// registered container format.
var ErrUnknownFormat = errors.New("unrecognized save container format")

var (
	registryMu sync.RWMutex
	registry   = map[int64]*LayoutDescriptor{}
)

func init() {
	for _, p := range []FormatParams{
		{
			Name:               "steam",
			HeaderSize:         steamHeaderSize,
			SlotCount:          steamSlotCount,
			SlotPayloadSize:    steamSlotPayload,
			SummaryPayloadSize: steamSummaryPayload,
			TrailerPayloadSize: steamTrailerPayload,
			WithDigests:        true,
			IdentifierOffset:   steamIdentifierOffset,
			ActiveFlagsOffset:  steamActiveFlagsOffset,
		},
		{
			// Decrypted console saves carry the same regions without the
			// per-region digests; the platform envelope provides integrity.
			Name:               "playstation",
			HeaderSize:         steamHeaderSize,
			SlotCount:          steamSlotCount,
			SlotPayloadSize:    steamSlotPayload,
			SummaryPayloadSize: steamSummaryPayload,
			TrailerPayloadSize: steamTrailerPayload,
			WithDigests:        false,
			IdentifierOffset:   steamIdentifierOffset,
			ActiveFlagsOffset:  steamActiveFlagsOffset,
		},
	} {
		l, err := NewLayout(p)
		if err != nil {
			panic(err)
		}
		if err := RegisterFormat(l); err != nil {
			panic(err)
		}
	}
}

// RegisterFormat adds a descriptor to the registry so that DescribeFormat
// and Load recognize containers of its size. Registering a second format
// with the same container size is an error.
func RegisterFormat(l *LayoutDescriptor) error {
	registryMu.Lock()
	defer registryMu.Unlock()
	if prev, ok := registry[l.ContainerSize]; ok {
		return fmt.Errorf("format %s: size 0x%x already registered by %s",
			l.Name, l.ContainerSize, prev.Name)
	}
	registry[l.ContainerSize] = l
	return nil
}

// unregisterFormat removes the descriptor registered for size. Test-only.
func unregisterFormat(size int64) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(registry, size)
}

// DescribeFormat returns the layout for a container of exactly size bytes.
//
// The byte length is the format discriminator: every known format has a
// fixed total size. ErrUnknownFormat is returned (wrapped with the offending
// size) when no registered descriptor matches.
func DescribeFormat(size int64) (*LayoutDescriptor, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	l, ok := registry[size]
	if !ok {
		return nil, fmt.Errorf("%d bytes: %w", size, ErrUnknownFormat)
	}
	return l, nil
}
