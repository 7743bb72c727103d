package utils

import (
	"regexp"
	"strconv"
	"strings"

	"furnace/internal/models"
)

// VersionNumber is a dotted version; missing parts are zero.
type VersionNumber struct {
	Major int
	Minor int
	Micro int
}

var phpVersionRe = regexp.MustCompile(`(\d+)\.(\d+)`)

/**
 * Parse version string into VersionNumber struct
 * @param {string} versionStr - Version string such as "8.2" or "8.2.1"
 * @returns {*VersionNumber} Pointer to VersionNumber struct if parse succeeds, nil on failure
 * @description
 * - Accepts two or three dot separated numeric parts
 * @example
 * ver := ParseVersionNumber("8.2.1")  // returns VersionNumber{Major:8, Minor:2, Micro:1}
 * ver := ParseVersionNumber("invalid") // returns nil
 */
func ParseVersionNumber(versionStr string) *VersionNumber {
	vers := strings.Split(strings.TrimSpace(versionStr), ".")
	if len(vers) < 2 || len(vers) > 3 {
		return nil
	}

	var ver VersionNumber
	var err error
	ver.Major, err = strconv.Atoi(vers[0])
	if err != nil {
		return nil
	}
	ver.Minor, err = strconv.Atoi(vers[1])
	if err != nil {
		return nil
	}
	if len(vers) == 3 {
		ver.Micro, err = strconv.Atoi(vers[2])
		if err != nil {
			return nil
		}
	}
	return &ver
}

// CompareVersion returns -1, 0 or 1 as a is older than, equal to or newer than b.
func CompareVersion(a, b VersionNumber) int {
	switch {
	case a.Major != b.Major:
		return cmpInt(a.Major, b.Major)
	case a.Minor != b.Minor:
		return cmpInt(a.Minor, b.Minor)
	default:
		return cmpInt(a.Micro, b.Micro)
	}
}

func cmpInt(a, b int) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}

/**
 * Reduce a PHP version or constraint to "major.minor"
 * @param {string} constraint - Raw value such as "^8.2.1", ">=8.1" or "8.3"
 * @returns {string} Returns "major.minor", or models.UnknownPHPVersion if none found
 * @example
 * NormalizePHPVersion("^8.2.1") // "8.2"
 * NormalizePHPVersion("*")      // "unknown"
 */
func NormalizePHPVersion(constraint string) string {
	m := phpVersionRe.FindStringSubmatch(constraint)
	if m == nil {
		return models.UnknownPHPVersion
	}
	return m[1] + "." + m[2]
}

// ValidPHPVersion reports whether v is already in "major.minor" form.
func ValidPHPVersion(v string) bool {
	ver := ParseVersionNumber(v)
	return ver != nil && strings.Count(v, ".") == 1
}
