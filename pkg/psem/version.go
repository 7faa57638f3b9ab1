package psem

import (
	"cmp"
	"fmt"
	"strconv"
	"strings"
)

// Version is a firmware or hardware revision as reported by the device.
type Version struct {
	Major uint8
	Minor uint8
	Build uint16
}

// ParseVersion reads "5.5", "5.5.12" or "v5.5.12".
func ParseVersion(s string) (Version, error) {
	parts := strings.Split(strings.TrimPrefix(strings.TrimSpace(s), "v"), ".")
	if len(parts) < 2 || len(parts) > 3 {
		return Version{}, fmt.Errorf("invalid version %q", s)
	}
	major, err := strconv.ParseUint(parts[0], 10, 8)
	if err != nil {
		return Version{}, fmt.Errorf("invalid version %q: %w", s, err)
	}
	minor, err := strconv.ParseUint(parts[1], 10, 8)
	if err != nil {
		return Version{}, fmt.Errorf("invalid version %q: %w", s, err)
	}
	var build uint64
	if len(parts) == 3 {
		build, err = strconv.ParseUint(parts[2], 10, 16)
		if err != nil {
			return Version{}, fmt.Errorf("invalid version %q: %w", s, err)
		}
	}
	return Version{Major: uint8(major), Minor: uint8(minor), Build: uint16(build)}, nil
}

// MustParseVersion is ParseVersion for constants.
func MustParseVersion(s string) Version {
	v, err := ParseVersion(s)
	if err != nil {
		panic(err)
	}
	return v
}

// Compare returns -1, 0 or 1.
func (v Version) Compare(o Version) int {
	switch {
	case v.Major != o.Major:
		return cmp.Compare(v.Major, o.Major)
	case v.Minor != o.Minor:
		return cmp.Compare(v.Minor, o.Minor)
	default:
		return cmp.Compare(v.Build, o.Build)
	}
}

func (v Version) Less(o Version) bool {
	return v.Compare(o) < 0
}

func (v Version) IsZero() bool {
	return v == Version{}
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Build)
}
