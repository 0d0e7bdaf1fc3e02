//go:build !windows

package erfix

// ensureWritable is a no-op outside Windows: the game only runs there, and
// mandatory byte-range locks do not exist on the other platforms we target.
func ensureWritable(string) error { return nil }
