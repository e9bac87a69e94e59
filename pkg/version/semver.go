package version

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// SemVer is a semantic version per semver.org, with an optional leading "v"
// accepted on parse.
type SemVer struct {
	Major int64
	Minor int64
	Patch int64

	PreRelease string
	Build      string
}

// Parse parses a semantic version string.
func Parse(raw string) (SemVer, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return SemVer{}, errors.New("version cannot be empty")
	}
	s = strings.TrimPrefix(s, "v")

	s, build, hasBuild := strings.Cut(s, "+")
	s, preRelease, hasPre := strings.Cut(s, "-")

	nums := strings.Split(s, ".")
	if len(nums) != 3 {
		return SemVer{}, fmt.Errorf("invalid semantic version: %q", raw)
	}

	v := SemVer{PreRelease: preRelease, Build: build}
	var err error
	if v.Major, err = parseVersionNumber(nums[0]); err != nil {
		return SemVer{}, fmt.Errorf("invalid major version in %q: %w", raw, err)
	}
	if v.Minor, err = parseVersionNumber(nums[1]); err != nil {
		return SemVer{}, fmt.Errorf("invalid minor version in %q: %w", raw, err)
	}
	if v.Patch, err = parseVersionNumber(nums[2]); err != nil {
		return SemVer{}, fmt.Errorf("invalid patch version in %q: %w", raw, err)
	}

	if hasPre {
		if err := validateIdentifiers(preRelease, true); err != nil {
			return SemVer{}, fmt.Errorf("invalid prerelease in %q: %w", raw, err)
		}
	}
	if hasBuild {
		if err := validateIdentifiers(build, false); err != nil {
			return SemVer{}, fmt.Errorf("invalid build metadata in %q: %w", raw, err)
		}
	}

	return v, nil
}

// MustParse parses a semantic version string and panics on error.
func MustParse(raw string) SemVer {
	v, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return v
}

// IsValid reports whether a semantic version is valid.
func IsValid(raw string) bool {
	_, err := Parse(raw)
	return err == nil
}

// String returns the canonical string representation, without "v" prefix.
func (v SemVer) String() string {
	base := fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	if v.PreRelease != "" {
		base += "-" + v.PreRelease
	}
	if v.Build != "" {
		base += "+" + v.Build
	}
	return base
}

// Compare orders versions per semver precedence rules. Build metadata is
// ignored. It returns -1 when v < other, 1 when v > other and 0 when equal.
func (v SemVer) Compare(other SemVer) int {
	if c := compareInt(v.Major, other.Major); c != 0 {
		return c
	}
	if c := compareInt(v.Minor, other.Minor); c != 0 {
		return c
	}
	if c := compareInt(v.Patch, other.Patch); c != 0 {
		return c
	}
	return comparePreRelease(v.PreRelease, other.PreRelease)
}

// parseVersionNumber parses a numeric version component. Leading zeros are
// rejected, as semver requires.
func parseVersionNumber(s string) (int64, error) {
	if s == "" {
		return 0, errors.New("empty component")
	}
	if len(s) > 1 && s[0] == '0' {
		return 0, fmt.Errorf("leading zero in %q", s)
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("not a number: %q", s)
	}
	return n, nil
}

// validateIdentifiers checks dot-separated prerelease or build identifiers.
// Numeric prerelease identifiers must not carry leading zeros; build
// identifiers may.
func validateIdentifiers(s string, preRelease bool) error {
	for _, id := range strings.Split(s, ".") {
		if id == "" {
			return errors.New("empty identifier")
		}
		for _, r := range id {
			valid := r == '-' ||
				(r >= '0' && r <= '9') ||
				(r >= 'A' && r <= 'Z') ||
				(r >= 'a' && r <= 'z')
			if !valid {
				return fmt.Errorf("invalid character in identifier %q", id)
			}
		}
		if preRelease && len(id) > 1 && id[0] == '0' && isDigits(id) {
			return fmt.Errorf("numeric identifier %q has a leading zero", id)
		}
	}
	return nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

func compareInt(a, b int64) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}

// comparePreRelease orders prerelease strings: a release outranks any
// prerelease, numeric identifiers compare numerically and rank below
// alphanumeric ones, and a longer identifier list wins a shared prefix.
func comparePreRelease(a, b string) int {
	if a == b {
		return 0
	}
	if a == "" {
		return 1
	}
	if b == "" {
		return -1
	}

	aIDs := strings.Split(a, ".")
	bIDs := strings.Split(b, ".")

	for i := 0; i < len(aIDs) && i < len(bIDs); i++ {
		if aIDs[i] == bIDs[i] {
			continue
		}

		aNum, aErr := strconv.ParseInt(aIDs[i], 10, 64)
		bNum, bErr := strconv.ParseInt(bIDs[i], 10, 64)

		switch {
		case aErr == nil && bErr == nil:
			return compareInt(aNum, bNum)
		case aErr == nil:
			return -1
		case bErr == nil:
			return 1
		default:
			if aIDs[i] < bIDs[i] {
				return -1
			}
			return 1
		}
	}

	if len(aIDs) < len(bIDs) {
		return -1
	}
	return 1
}
