// Package risk scores resolved packages from vulnerability,
// exploitation, age, staleness, popularity, and licence signals.
package risk

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/NFrozeCLAWDBOT/bastion/internal/advisory"
	"github.com/NFrozeCLAWDBOT/bastion/internal/graph"
)

const dateLayout = "2006-01-02"

var severityScore = map[string]int{
	"CRITICAL": 40,
	"HIGH":     30,
	"MEDIUM":   15,
	"LOW":      5,
	"UNKNOWN":  10,
}

var cvssNumberPattern = regexp.MustCompile(`^\d+(\.\d+)?$`)

// Clock supplies "now" so scoring is deterministic under test.
type Clock func() time.Time

// Scorer computes risk fields for resolved package nodes.
type Scorer struct {
	now Clock
}

// NewScorer builds a scorer using the given clock. A nil clock defaults
// to time.Now.
func NewScorer(now Clock) *Scorer {
	if now == nil {
		now = time.Now
	}
	return &Scorer{now: now}
}

// Score populates the risk fields on every node in set, given the
// per-node vulnerability results aligned by PackageKey and the set of
// exploited CVE ids from the KEV feed.
func (s *Scorer) Score(set *graph.Set, vulnsByKey map[graph.Key][]advisory.Vulnerability, exploited map[string]bool) {
	for _, node := range set.Nodes() {
		s.scoreNode(node, vulnsByKey[keyFor(node)], exploited)
	}
}

func keyFor(node *graph.Node) graph.Key {
	return graph.NewKey(node.Name, node.RawVersion)
}

func (s *Scorer) scoreNode(node *graph.Node, vulns []advisory.Vulnerability, exploited map[string]bool) {
	if node.ResolutionError {
		node.RiskLevel = "unknown"
		node.LicenceSPDX = NormaliseLicence(node.LicenceRaw)
		node.LicenceRiskLevel = LicenceRiskLevel(node.LicenceSPDX)
		return
	}

	records := make([]graph.VulnerabilityRecord, 0, len(vulns))
	maxSeverityScore := 0
	anyExploited := false

	for _, v := range vulns {
		severity, cvss := deriveSeverity(v)
		fixed := lastFixedEvent(v)
		isExploited := vulnerabilityExploited(v, exploited)
		if isExploited {
			anyExploited = true
		}
		if sc := severityScore[severity]; sc > maxSeverityScore {
			maxSeverityScore = sc
		}
		records = append(records, graph.VulnerabilityRecord{
			ID:       v.ID,
			Summary:  truncate(v.Summary, 300),
			Severity: severity,
			CVSS:     cvss,
			FixedIn:  fixed,
			CisaKev:  isExploited,
		})
	}
	node.Vulnerabilities = records

	vulnBucket := 0
	if len(vulns) > 0 {
		vulnBucket = maxSeverityScore + 2*len(vulns)
		if vulnBucket > 40 {
			vulnBucket = 40
		}
	}

	exploitedBucket := 0
	if anyExploited {
		exploitedBucket = 25
	}

	ageBucket := ageScore(node.FirstPublished, s.now())
	staleBucket := staleScore(node.LastPublished, s.now())
	popularityBucket := popularityScore(node.WeeklyDownloads)

	node.LicenceSPDX = NormaliseLicence(node.LicenceRaw)
	node.LicenceRiskLevel = LicenceRiskLevel(node.LicenceSPDX)
	licenceBucket := LicenceRiskPoints(node.LicenceRiskLevel)

	total := vulnBucket + exploitedBucket + ageBucket + staleBucket + popularityBucket + licenceBucket
	if total > 100 {
		total = 100
	}
	if total < 0 {
		total = 0
	}
	node.RiskScore = total
	node.RiskLevel = levelFor(total, anyExploited, len(vulns) > 0)
	node.ReleaseFrequency = releaseFrequency(node.FirstPublished, node.LastPublished, s.now())
}

func deriveSeverity(v advisory.Vulnerability) (string, float64) {
	var cvss float64
	for _, sev := range v.Severity {
		if !strings.Contains(strings.ToUpper(sev.Type), "CVSS") {
			continue
		}
		for _, segment := range strings.Split(sev.Score, "/") {
			if cvssNumberPattern.MatchString(segment) {
				if parsed, err := strconv.ParseFloat(segment, 64); err == nil {
					cvss = parsed
					break
				}
			}
		}
		if cvss > 0 {
			break
		}
	}

	if dbSeverity := databaseSpecificSeverity(v); dbSeverity != "" {
		return strings.ToUpper(dbSeverity), cvss
	}

	switch {
	case cvss >= 9.0:
		return "CRITICAL", cvss
	case cvss >= 7.0:
		return "HIGH", cvss
	case cvss >= 4.0:
		return "MEDIUM", cvss
	case cvss > 0:
		return "LOW", cvss
	default:
		return "UNKNOWN", cvss
	}
}

// databaseSpecificSeverity returns the ecosystem-supplied severity
// override, when the advisory carries one. GHSA-sourced npm/PyPI/Maven
// records commonly set this instead of (or alongside) a CVSS vector.
func databaseSpecificSeverity(v advisory.Vulnerability) string {
	if v.DatabaseSpecific == nil {
		return ""
	}
	return v.DatabaseSpecific.Severity
}

func lastFixedEvent(v advisory.Vulnerability) string {
	var last string
	for _, affected := range v.Affected {
		for _, r := range affected.Ranges {
			for _, e := range r.Events {
				if e.Fixed != "" {
					last = e.Fixed
				}
			}
		}
	}
	return last
}

func vulnerabilityExploited(v advisory.Vulnerability, exploited map[string]bool) bool {
	for _, alias := range v.Aliases {
		if strings.HasPrefix(alias, "CVE-") && exploited[alias] {
			return true
		}
	}
	return false
}

func ageScore(firstPublished string, now time.Time) int {
	t, ok := parseDate(firstPublished)
	if !ok {
		return 0
	}
	days := now.Sub(t).Hours() / 24
	switch {
	case days < 90:
		return 10
	case days < 365:
		return 5
	default:
		return 0
	}
}

func staleScore(lastPublished string, now time.Time) int {
	t, ok := parseDate(lastPublished)
	if !ok {
		return 0
	}
	days := now.Sub(t).Hours() / 24
	switch {
	case days > 730:
		return 10
	case days > 365:
		return 5
	default:
		return 0
	}
}

func popularityScore(weeklyDownloads int) int {
	switch {
	case weeklyDownloads == 0:
		return 5
	case weeklyDownloads < 1000:
		return 3
	default:
		return 0
	}
}

func levelFor(score int, anyExploited bool, hasVulns bool) string {
	switch {
	case score >= 70 || anyExploited:
		return "critical"
	case score >= 50:
		return "high"
	case score >= 30:
		return "medium"
	case score >= 10:
		return "low"
	case hasVulns:
		return "low"
	default:
		return "none"
	}
}

func releaseFrequency(firstPublished, lastPublished string, now time.Time) string {
	first, firstOK := parseDate(firstPublished)
	last, lastOK := parseDate(lastPublished)
	if !firstOK || !lastOK {
		return "unknown"
	}
	spanDays := last.Sub(first).Hours() / 24
	switch {
	case spanDays < 30:
		return "new"
	case spanDays < 365:
		return "active"
	}
	if now.Sub(last).Hours()/24 > 365 {
		return "low"
	}
	return "moderate"
}

func parseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if len(s) > len(dateLayout) {
		s = s[:len(dateLayout)]
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
