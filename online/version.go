package online

import (
	"cmp"
	"fmt"
	"strconv"
	"strings"
)

// ServerVersion is the management model version a server reports through
// the management-{major,minor,micro}-version root attributes. It is not
// the product version.
type ServerVersion struct {
	Major, Minor, Micro int
}

// Well-known management versions.
var (
	VersionEAP6_0    = ServerVersion{1, 4, 0}
	VersionEAP6_4    = ServerVersion{1, 8, 0}
	VersionWildFly8  = ServerVersion{2, 0, 0}
	VersionWildFly9  = ServerVersion{3, 0, 0}
	VersionWildFly10 = ServerVersion{4, 0, 0}
	VersionWildFly11 = ServerVersion{5, 0, 0}
	VersionWildFly12 = ServerVersion{6, 0, 0}
	VersionWildFly13 = ServerVersion{7, 0, 0}
	VersionWildFly14 = ServerVersion{8, 0, 0}
)

// ParseServerVersion parses "major[.minor[.micro]]".
func ParseServerVersion(s string) (ServerVersion, error) {
	parts := strings.Split(strings.TrimSpace(s), ".")
	if len(parts) == 0 || len(parts) > 3 || parts[0] == "" {
		return ServerVersion{}, fmt.Errorf("%w: malformed version %q", ErrInvalidArgument, s)
	}
	var nums [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return ServerVersion{}, fmt.Errorf("%w: malformed version %q", ErrInvalidArgument, s)
		}
		nums[i] = n
	}
	return ServerVersion{nums[0], nums[1], nums[2]}, nil
}

func (v ServerVersion) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Micro)
}

// Compare returns -1, 0 or +1.
func (v ServerVersion) Compare(o ServerVersion) int {
	if c := cmp.Compare(v.Major, o.Major); c != 0 {
		return c
	}
	if c := cmp.Compare(v.Minor, o.Minor); c != 0 {
		return c
	}
	return cmp.Compare(v.Micro, o.Micro)
}

func (v ServerVersion) LessThan(o ServerVersion) bool    { return v.Compare(o) < 0 }
func (v ServerVersion) GreaterThan(o ServerVersion) bool { return v.Compare(o) > 0 }

// AtLeast reports v >= o.
func (v ServerVersion) AtLeast(o ServerVersion) bool { return v.Compare(o) >= 0 }

// InRange reports from <= v < to.
func (v ServerVersion) InRange(from, to ServerVersion) bool {
	return v.AtLeast(from) && v.LessThan(to)
}
