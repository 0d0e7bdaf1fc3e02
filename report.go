// report.go
//
// Result types handed to the front end: what a repair changed, and what an
// inspection found. Both are plain data; the String methods produce the
// human-oriented summary a UI or log line can show verbatim.

package erfix

import (
	"fmt"
	"strings"
)

// RepairReport enumerates everything a successful Repair did to the
// container.
type RepairReport struct {
	// Format names the layout the container was recognized as.
	Format string

	// PreviousID is the identifier the container carried before the
	// repair; TargetID is what every occurrence now reads.
	PreviousID SteamID
	TargetID   SteamID

	// ReboundOffsets lists the absolute offset of every identifier
	// occurrence that was rewritten. Empty when the container was already
	// bound to TargetID.
	ReboundOffsets []int64

	// RecomputedRegions names every region whose digest was freshly
	// computed because a rebound write fell inside it.
	RecomputedRegions []string

	// PreexistingMismatches names regions whose stored digest already
	// disagreed with their payload before anything was touched. They are
	// left exactly as found unless a rebound write landed in them.
	PreexistingMismatches []string
}

// String renders the report as a short multi-line summary.
func (r *RepairReport) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "format %s: rebound %s -> %s (%d occurrences)\n",
		r.Format, r.PreviousID, r.TargetID, len(r.ReboundOffsets))
	if len(r.RecomputedRegions) > 0 {
		fmt.Fprintf(&b, "recomputed digests: %s\n", strings.Join(r.RecomputedRegions, ", "))
	}
	if len(r.PreexistingMismatches) > 0 {
		fmt.Fprintf(&b, "pre-existing mismatches (left as found): %s\n",
			strings.Join(r.PreexistingMismatches, ", "))
	}
	return b.String()
}

// SlotInfo describes one character slot as found on disk.
type SlotInfo struct {
	// Index is the zero-based slot number.
	Index int

	// Occupied is false when the slot carries the empty-slot sentinel.
	Occupied bool

	// Version is the slot's leading version field; zero for empty slots.
	Version uint32

	// ActiveFlag mirrors the slot's activity byte from the summary region,
	// or zero when the format has no flags. Advisory only.
	ActiveFlag byte
}

// RegionStatus reports the digest state of one protected region.
type RegionStatus struct {
	Name string

	// Payload is the byte range the digest covers.
	Payload Span

	// HasDigest is false for formats that store no digests; Valid, Stored
	// and Computed are then meaningless.
	HasDigest bool

	// Valid reports whether Stored equals Computed.
	Valid bool

	Stored   Digest
	Computed Digest
}

// Inspection is a read-only structural survey of a save container: which
// format it is, which slots are occupied, whose account it is bound to, and
// which digests currently verify. It never mutates the file.
type Inspection struct {
	Format     string
	Identifier SteamID
	Slots      []SlotInfo
	Regions    []RegionStatus
}

// Mismatches returns the names of regions whose digest does not verify.
func (in *Inspection) Mismatches() []string {
	var names []string
	for _, r := range in.Regions {
		if r.HasDigest && !r.Valid {
			names = append(names, r.Name)
		}
	}
	return names
}

// String renders the inspection as a short multi-line summary.
func (in *Inspection) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "format %s, bound to %s\n", in.Format, in.Identifier)
	for _, s := range in.Slots {
		if !s.Occupied {
			continue
		}
		fmt.Fprintf(&b, "slot %d: version %d, active flag 0x%02x\n",
			s.Index, s.Version, s.ActiveFlag)
	}
	if m := in.Mismatches(); len(m) > 0 {
		fmt.Fprintf(&b, "digest mismatches: %s\n", strings.Join(m, ", "))
	}
	return b.String()
}
