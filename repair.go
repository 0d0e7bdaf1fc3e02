// repair.go
//
// The repair orchestrator: read → validate → rebind → recompute → verify →
// write, as an explicit state machine with Aborted reachable from every
// step. Nothing touches the file on disk until the in-memory result has
// been fully re-verified; the original save is replaced only by a container
// the engine itself would accept.

package erfix

import (
	"errors"
	"fmt"
	"slices"

	"github.com/dgryski/go-farm"
)

var (
	// ErrRepairFailed is returned when the post-repair self-verification
	// finds a digest mismatch the repair itself introduced. The original
	// file is never overwritten in this case.
	ErrRepairFailed = errors.New("repaired container failed self-verification")

	// ErrContainerLocked is returned when another process holds the save
	// file open under an exclusive lock, typically the running game.
	ErrContainerLocked = errors.New("save container is locked by another process")
)

// repairState tracks the orchestrator's progress. States advance strictly
// in order; any error sends the run to stateAborted.
type repairState int

const (
	stateLoaded repairState = iota
	stateValidated
	stateRebound
	stateRecomputed
	stateVerified
	stateWritten
	stateAborted
)

var stateNames = map[repairState]string{
	stateLoaded:     "loaded",
	stateValidated:  "validated",
	stateRebound:    "rebound",
	stateRecomputed: "recomputed",
	stateVerified:   "verified",
	stateWritten:    "written",
	stateAborted:    "aborted",
}

func (s repairState) String() string { return stateNames[s] }

// Repair rebinds the save container at path to target and recomputes every
// digest invalidated by the rewrite, atomically replacing the file on
// success.
//
// Pre-existing digest mismatches — regions that already failed verification
// before anything was touched — do not stop the repair: the file may be
// partially corrupt, and the engine fixes what it can while leaving
// untouched regions byte-for-byte intact, stale digests included. They are
// flagged in the returned report instead.
//
// Error semantics:
//   - an unrecognized file length yields ErrUnknownFormat before any
//     mutation;
//   - ErrRepairFailed means the self-verification after recomputation found
//     a mismatch the repair introduced; the file on disk is unchanged;
//   - ErrContainerLocked and plain I/O errors propagate from the writer.
func Repair(path string, target SteamID) (*RepairReport, error) {
	if target == 0 {
		return nil, errors.New("target steam id must be non-zero")
	}

	// Loaded.
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	layout := c.layout

	state := stateLoaded
	abort := func(err error) error {
		state = stateAborted
		return err
	}

	report := &RepairReport{
		Format:   layout.Name,
		TargetID: target,
	}

	// Validated: record pre-existing mismatches, fatal for none of them.
	validBefore := make(map[string]bool, len(layout.Regions))
	for _, r := range layout.Regions {
		ok := verifyRegion(c.buf, r)
		validBefore[r.Name] = ok
		if !ok {
			report.PreexistingMismatches = append(report.PreexistingMismatches, r.Name)
		}
	}
	state = stateValidated

	// Rebound.
	report.PreviousID, report.ReboundOffsets = rebindIdentifier(c, target)
	stale := layout.staleRegions(report.ReboundOffsets)
	preserved := payloadFingerprint(c.buf, excludedSpans(report.ReboundOffsets, stale))
	state = stateRebound

	// Recomputed: only regions overlapping a rebound write. Untouched
	// regions keep their original digest bytes, valid or not.
	for _, r := range stale {
		recomputeRegion(c.buf, r)
		report.RecomputedRegions = append(report.RecomputedRegions, r.Name)
	}
	state = stateRecomputed

	// Verified: every recomputed region must verify, and no region that was
	// valid before the repair may have regressed. Mismatches that predate
	// the repair in untouched regions carry through unchanged.
	recomputed := make(map[string]bool, len(stale))
	for _, r := range stale {
		recomputed[r.Name] = true
	}
	for _, r := range layout.Regions {
		if !recomputed[r.Name] && !validBefore[r.Name] {
			continue
		}
		if !verifyRegion(c.buf, r) {
			return nil, abort(fmt.Errorf("%w in state %s: %s",
				ErrRepairFailed, state, digestMismatchError(c.buf, r)))
		}
	}
	if got := payloadFingerprint(c.buf, excludedSpans(report.ReboundOffsets, stale)); got != preserved {
		return nil, abort(fmt.Errorf("%w in state %s: payload outside rebound fields changed",
			ErrRepairFailed, state))
	}
	state = stateVerified

	// Written.
	if err := c.Store(path); err != nil {
		return nil, abort(fmt.Errorf("in state %s: %w", state, err))
	}

	return report, nil
}

// excludedSpans collects the byte ranges a repair is allowed to change: the
// identifier-width rebound writes plus the digest fields of every stale
// region. Everything outside these spans is opaque payload that must be
// preserved exactly.
func excludedSpans(touched []int64, stale []Region) []Span {
	spans := make([]Span, 0, len(touched)+len(stale))
	for _, off := range touched {
		spans = append(spans, Span{Offset: off, Length: identifierSize})
	}
	for _, r := range stale {
		if r.hasDigest() {
			spans = append(spans, Span{Offset: r.DigestOffset, Length: digestSize})
		}
	}
	slices.SortFunc(spans, func(a, b Span) int {
		switch {
		case a.Offset < b.Offset:
			return -1
		case a.Offset > b.Offset:
			return 1
		default:
			return 0
		}
	})
	return spans
}

// payloadFingerprint hashes every byte of buf outside the excluded spans,
// chaining farmhash over the gaps between exclusions. Comparing the value
// before and after mutation is a cheap whole-file guarantee that the repair
// only wrote where it claims to have written. excluded must be sorted by
// offset.
func payloadFingerprint(buf []byte, excluded []Span) uint64 {
	var h uint64
	var pos int64
	for _, s := range excluded {
		if s.Offset > pos {
			h = farm.Hash64WithSeed(buf[pos:s.Offset], h)
		}
		if s.End() > pos {
			pos = s.End()
		}
	}
	if pos < int64(len(buf)) {
		h = farm.Hash64WithSeed(buf[pos:], h)
	}
	return h
}
