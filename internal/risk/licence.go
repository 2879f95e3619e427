package risk

import (
	"regexp"
	"strings"
)

// licenceTableEntry is one ordered substring-match rule: the first
// entry whose substring is found (case-insensitively) in the raw
// licence string wins.
type licenceTableEntry struct {
	substring string
	spdx      string
}

// licenceTable mirrors the fixed normalisation table: ordered,
// case-insensitive substring match, first hit wins.
var licenceTable = []licenceTableEntry{
	{"MIT", "MIT"},
	{"ISC", "ISC"},
	{"BSD", "BSD-3-Clause"},
	{"APACHE 2.0", "Apache-2.0"},
	{"APACHE-2.0", "Apache-2.0"},
	{"BSD-2-CLAUSE", "BSD-2-Clause"},
	{"BSD-3-CLAUSE", "BSD-3-Clause"},
	{"GPL-2.0", "GPL-2.0"},
	{"GPL-3.0", "GPL-3.0"},
	{"LGPL-2.1", "LGPL-2.1"},
	{"LGPL-3.0", "LGPL-3.0"},
	{"MPL-2.0", "MPL-2.0"},
	{"UNLICENSE", "Unlicense"},
	{"AGPL-3.0", "AGPL-3.0"},
}

var passthroughPattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// NormaliseLicence maps a raw, freeform licence string to an SPDX-like
// identifier. Unmatched short alphanumeric tokens pass through
// unchanged; anything else is truncated to 30 characters.
func NormaliseLicence(raw string) string {
	if raw == "" {
		return ""
	}
	upper := strings.ToUpper(raw)
	for _, entry := range licenceTable {
		if strings.Contains(upper, entry.substring) {
			return entry.spdx
		}
	}
	if len(raw) <= 30 && passthroughPattern.MatchString(raw) {
		return raw
	}
	if len(raw) > 30 {
		return raw[:30]
	}
	return raw
}

// LicenceRiskLevel classifies a normalised SPDX-like id into the fixed
// risk map: permissive → low, weak-copyleft → medium, strong-copyleft →
// high, anything else (including empty) → unknown.
func LicenceRiskLevel(spdx string) string {
	if spdx == "" {
		return "unknown"
	}
	upper := strings.ToUpper(spdx)
	switch {
	case hasAnyPrefix(upper, "MIT", "APACHE-2.0", "BSD", "ISC", "UNLICENSE", "CC0-1.0", "0BSD"):
		return "low"
	case hasAnyPrefix(upper, "LGPL", "MPL-2.0"):
		return "medium"
	case hasAnyPrefix(upper, "GPL", "AGPL"):
		return "high"
	default:
		return "unknown"
	}
}

func hasAnyPrefix(s string, prefixes ...string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// LicenceRiskPoints returns the §4.5 licence bucket score for a
// classification level.
func LicenceRiskPoints(level string) int {
	switch level {
	case "low":
		return 0
	case "medium":
		return 5
	case "high":
		return 10
	default:
		return 3
	}
}
