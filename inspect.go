// inspect.go
//
// Read-only structural survey of a save container without loading it into
// memory: the file is memory-mapped and each region's digest is streamed
// through MD5 via a section reader. Front ends call this repeatedly — every
// directory refresh, every file-picker selection — so Inspector wraps the
// survey in a small LRU cache keyed by path and stat identity.

package erfix

import (
	"crypto/md5"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/exp/mmap"
)

// Inspect surveys the save container at path without modifying it.
//
// The file length must match a registered format (ErrUnknownFormat
// otherwise). Digest mismatches are not errors here — reporting them is the
// point of an inspection.
func Inspect(path string) (*Inspection, error) {
	ra, err := mmap.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open save container: %w", err)
	}
	defer ra.Close()

	layout, err := DescribeFormat(int64(ra.Len()))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	in := &Inspection{Format: layout.Name}

	var idBuf [identifierSize]byte
	if _, err := ra.ReadAt(idBuf[:], layout.IdentifierOffset); err != nil {
		return nil, fmt.Errorf("read identifier @0x%x: %w", layout.IdentifierOffset, err)
	}
	in.Identifier = SteamID(binary.LittleEndian.Uint64(idBuf[:]))

	for i, slot := range layout.Slots {
		var head [sentinelSize]byte
		if _, err := ra.ReadAt(head[:], slot.Offset); err != nil {
			return nil, fmt.Errorf("read slot %d header @0x%x: %w", i, slot.Offset, err)
		}
		info := SlotInfo{
			Index:    i,
			Version:  binary.LittleEndian.Uint32(head[:]),
			Occupied: head != [sentinelSize]byte{},
		}
		if layout.ActiveFlagsOffset >= 0 {
			var flag [1]byte
			if _, err := ra.ReadAt(flag[:], layout.ActiveFlagsOffset+int64(i)); err != nil {
				return nil, fmt.Errorf("read slot %d active flag: %w", i, err)
			}
			info.ActiveFlag = flag[0]
		}
		in.Slots = append(in.Slots, info)
	}

	for _, r := range layout.Regions {
		st := RegionStatus{Name: r.Name, Payload: r.Payload, HasDigest: r.hasDigest()}
		if st.HasDigest {
			if _, err := ra.ReadAt(st.Stored[:], r.DigestOffset); err != nil {
				return nil, fmt.Errorf("read %s digest @0x%x: %w", r.Name, r.DigestOffset, err)
			}
			h := md5.New()
			sec := io.NewSectionReader(ra, r.Payload.Offset, r.Payload.Length)
			if _, err := io.Copy(h, sec); err != nil {
				return nil, fmt.Errorf("digest %s: %w", r.Name, err)
			}
			copy(st.Computed[:], h.Sum(nil))
			st.Valid = st.Stored == st.Computed
		}
		in.Regions = append(in.Regions, st)
	}

	return in, nil
}

// inspectKey identifies a file's content for caching purposes: same path,
// same size, same mtime means the cached survey is still accurate.
type inspectKey struct {
	path    string
	size    int64
	modTime int64
}

// Inspector memoizes Inspect results in an LRU cache. A front end that
// re-scans a save directory on every refresh hits the cache for every file
// that has not changed since the last scan. The cache is safe for
// concurrent use.
type Inspector struct {
	cache *lru.Cache[inspectKey, *Inspection]
}

// NewInspector returns an Inspector caching at most capacity surveys.
func NewInspector(capacity int) (*Inspector, error) {
	cache, err := lru.New[inspectKey, *Inspection](capacity)
	if err != nil {
		return nil, err
	}
	return &Inspector{cache: cache}, nil
}

// Inspect returns the survey for path, served from cache when the file's
// size and modification time are unchanged since the last call.
func (ins *Inspector) Inspect(path string) (*Inspection, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat save container: %w", err)
	}
	key := inspectKey{path: path, size: fi.Size(), modTime: fi.ModTime().UnixNano()}
	if in, ok := ins.cache.Get(key); ok {
		return in, nil
	}
	in, err := Inspect(path)
	if err != nil {
		return nil, err
	}
	ins.cache.Add(key, in)
	return in, nil
}
