package wazuh

import (
	"encoding/json"
	"sort"
	"strings"
)

// Severity bucket boundaries on the integer rule level.
const (
	LevelCritical = 13
	LevelHigh     = 8
	LevelMedium   = 4
)

// Scan and cap sizes for derived queries.
const (
	criticalScanLimit = 500
	summaryScanLimit  = 1000
	criticalDetailCap = 50

	// Vulnerabilities look back a full week instead of the default day.
	vulnLookbackHours = 168

	maxAffectedAgents = 5

	malwareDetailCap    = 20
	fimDefaultLimit     = 15
	complianceDetailCap = 15
)

var vulnKeywords = []string{"vulnerability", "cve", "exploit", "vulnerable"}

var authKeywords = []string{"authentication", "login", "auth", "failed", "invalid password"}

var malwareKeywords = []string{"malware", "trojan", "virus"}

var fimKeywords = []string{"fim", "file integrity"}

var complianceKeywords = []string{"compliance", "policy", "cis", "pci"}

// Bucket names a severity bucket.
type Bucket string

const (
	BucketCritical Bucket = "critical"
	BucketHigh     Bucket = "high"
	BucketMedium   Bucket = "medium"
	BucketLow      Bucket = "low"
)

// BucketFor maps an integer rule level to exactly one severity bucket.
func BucketFor(level int) Bucket {
	switch {
	case level >= LevelCritical:
		return BucketCritical
	case level >= LevelHigh:
		return BucketHigh
	case level >= LevelMedium:
		return BucketMedium
	default:
		return BucketLow
	}
}

// Summarize counts alerts per severity bucket.
func Summarize(alerts []Alert) SeveritySummary {
	var s SeveritySummary
	for _, a := range alerts {
		switch BucketFor(a.Rule.Level) {
		case BucketCritical:
			s.Critical++
		case BucketHigh:
			s.High++
		case BucketMedium:
			s.Medium++
		case BucketLow:
			s.Low++
		}
	}
	return s
}

func filterCritical(alerts []Alert) []Alert {
	var out []Alert
	for _, a := range alerts {
		if a.Rule.Level >= LevelCritical {
			out = append(out, a)
		}
	}
	return out
}

// cveOf extracts data.vulnerability.cve from an alert, falling back to the
// rule description when the alert carries no CVE.
func cveOf(a Alert) string {
	if vuln, ok := a.Data["vulnerability"].(map[string]any); ok {
		if cve, ok := vuln["cve"].(string); ok && cve != "" {
			return cve
		}
	}
	if a.Rule.Description != "" {
		return a.Rule.Description
	}
	return "Unknown"
}

// GroupVulnerabilities filters vulnerability-looking alerts, groups them by
// CVE, and returns the top groups by count, capped to limit.
func GroupVulnerabilities(alerts []Alert, limit int) []Vulnerability {
	type group struct {
		count    int
		severity int
		agents   map[string]struct{}
	}
	groups := make(map[string]*group)

	for _, a := range alerts {
		desc := strings.ToLower(a.Rule.Description)
		matched := false
		for _, kw := range vulnKeywords {
			if strings.Contains(desc, kw) {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}

		cve := cveOf(a)
		g, ok := groups[cve]
		if !ok {
			g = &group{severity: a.Rule.Level, agents: make(map[string]struct{})}
			groups[cve] = g
		}
		g.count++
		if a.Agent.Name != "" {
			g.agents[a.Agent.Name] = struct{}{}
		}
	}

	vulns := make([]Vulnerability, 0, len(groups))
	for cve, g := range groups {
		agents := make([]string, 0, len(g.agents))
		for name := range g.agents {
			agents = append(agents, name)
		}
		sort.Strings(agents)
		if len(agents) > maxAffectedAgents {
			agents = agents[:maxAffectedAgents]
		}
		vulns = append(vulns, Vulnerability{
			CVE:            cve,
			Count:          g.count,
			Severity:       g.severity,
			AffectedAgents: agents,
		})
	}

	sort.Slice(vulns, func(i, j int) bool {
		if vulns[i].Count != vulns[j].Count {
			return vulns[i].Count > vulns[j].Count
		}
		return vulns[i].CVE < vulns[j].CVE
	})

	if limit > 0 && len(vulns) > limit {
		vulns = vulns[:limit]
	}
	return vulns
}

// FilterByKeywords keeps alerts whose serialized JSON mentions any of the
// given keywords. limit > 0 stops the scan once that many have matched;
// limit 0 keeps them all.
func FilterByKeywords(alerts []Alert, keywords []string, limit int) []Alert {
	var out []Alert
	for _, a := range alerts {
		raw, err := json.Marshal(a)
		if err != nil {
			continue
		}
		serialized := strings.ToLower(string(raw))
		for _, kw := range keywords {
			if strings.Contains(serialized, kw) {
				out = append(out, a)
				break
			}
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// FilterFailedAuth keeps alerts whose serialized JSON mentions any
// authentication failure keyword, capped to limit.
func FilterFailedAuth(alerts []Alert, limit int) []Alert {
	return FilterByKeywords(alerts, authKeywords, limit)
}
