// container.go
//
// The pure I/O boundary of the engine: loading a save container into an
// addressable byte buffer and writing it back. Store is atomic from the
// caller's perspective — the new contents are written to a temporary file in
// the destination directory and renamed into place only on full success, so
// a crash mid-write never leaves a truncated save where the original was.

package erfix

import (
	"fmt"
	"os"
	"path/filepath"
)

// SaveContainer is a save file held fully in memory together with the
// layout recognized from its byte length.
//
// The container is mutated in place by the rebinder and the checksum engine
// during a repair and is not safe for concurrent use; a repair is one file,
// one pass.
type SaveContainer struct {
	buf    []byte
	layout *LayoutDescriptor
}

// Load reads the save container at path into memory.
//
// The file's byte length must exactly match a registered format; otherwise
// the container is rejected with ErrUnknownFormat before anything else
// happens. I/O failures are returned wrapped with the path.
func Load(path string) (*SaveContainer, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read save container: %w", err)
	}
	layout, err := DescribeFormat(int64(len(buf)))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &SaveContainer{buf: buf, layout: layout}, nil
}

// Layout returns the descriptor the container was recognized as.
func (c *SaveContainer) Layout() *LayoutDescriptor { return c.layout }

// Bytes exposes the underlying buffer. The slice aliases the container's
// working memory; callers must treat it as read-only.
func (c *SaveContainer) Bytes() []byte { return c.buf }

// Identifier returns the authoritative Steam ID copy from the summary
// region.
func (c *SaveContainer) Identifier() SteamID {
	return steamIDAt(c.buf, c.layout.IdentifierOffset)
}

// Store writes the container to path, atomically replacing any existing
// file.
//
// The contents go to a temporary file in the same directory first; the
// rename happens only after a successful write and close, so no reader ever
// observes a half-written save. Before writing, the destination is probed
// for an exclusive byte-range lock where the platform supports it — a held
// lock means the game (or a sync client) currently owns the file and the
// repair must not race it.
func (c *SaveContainer) Store(path string) error {
	if err := ensureWritable(path); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".er-save-*")
	if err != nil {
		return fmt.Errorf("create temp save: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(c.buf); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp save %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync temp save %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp save %s: %w", tmpName, err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace save container: %w", err)
	}
	return nil
}
