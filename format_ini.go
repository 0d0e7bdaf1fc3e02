// format_ini.go
//
// Runtime format registration from an INI file. New game patches
// occasionally shift the container layout; the offsets are discovered by
// the community well before a release of this tool can carry them as
// built-ins. An INI file with one section per format lets users load such
// descriptors without a rebuild.
//
// Example:
//
//	[steam-2.0]
//	header_size          = 0x300
//	slot_count           = 10
//	slot_payload_size    = 0x290000
//	summary_payload_size = 0x60000
//	trailer_payload_size = 0x240010
//	with_digests         = true
//	identifier_offset    = 0x4
//	active_flags_offset  = 0x1954

package erfix

import (
	"fmt"
	"strconv"

	"gopkg.in/ini.v1"
)

// LoadFormatsINI registers every format described in the INI file at path.
// Section names become format names. Offsets and sizes accept decimal or
// 0x-prefixed hex. Registration stops at the first invalid or conflicting
// descriptor.
func LoadFormatsINI(path string) error {
	cfg, err := ini.Load(path)
	if err != nil {
		return fmt.Errorf("load format descriptors: %w", err)
	}

	for _, sec := range cfg.Sections() {
		if sec.Name() == ini.DefaultSection {
			continue
		}
		p, err := paramsFromSection(sec)
		if err != nil {
			return err
		}
		l, err := NewLayout(p)
		if err != nil {
			return err
		}
		if err := RegisterFormat(l); err != nil {
			return err
		}
	}
	return nil
}

func paramsFromSection(sec *ini.Section) (FormatParams, error) {
	p := FormatParams{
		Name:              sec.Name(),
		WithDigests:       sec.Key("with_digests").MustBool(false),
		ActiveFlagsOffset: -1,
	}

	required := []struct {
		key string
		dst *int64
	}{
		{"header_size", &p.HeaderSize},
		{"slot_payload_size", &p.SlotPayloadSize},
		{"summary_payload_size", &p.SummaryPayloadSize},
		{"trailer_payload_size", &p.TrailerPayloadSize},
		{"identifier_offset", &p.IdentifierOffset},
	}
	for _, f := range required {
		v, err := sectionInt(sec, f.key)
		if err != nil {
			return p, err
		}
		*f.dst = v
	}

	slots, err := sectionInt(sec, "slot_count")
	if err != nil {
		return p, err
	}
	p.SlotCount = int(slots)

	if sec.HasKey("active_flags_offset") {
		v, err := sectionInt(sec, "active_flags_offset")
		if err != nil {
			return p, err
		}
		p.ActiveFlagsOffset = v
	}
	return p, nil
}

// sectionInt reads a required integer key, accepting decimal or 0x hex.
func sectionInt(sec *ini.Section, key string) (int64, error) {
	if !sec.HasKey(key) {
		return 0, fmt.Errorf("format %s: missing key %s", sec.Name(), key)
	}
	v, err := strconv.ParseInt(sec.Key(key).String(), 0, 64)
	if err != nil {
		return 0, fmt.Errorf("format %s: key %s: %w", sec.Name(), key, err)
	}
	return v, nil
}
