package analyst

import "strings"

// Tag identifies one category of secondary data fetch.
type Tag string

const (
	TagSeverity Tag = "severity"
	TagAlerts   Tag = "alerts"
	TagAgents   Tag = "agents"
	TagVulns    Tag = "vulnerabilities"
	TagAuth     Tag = "auth"
	TagMalware  Tag = "malware"
	TagFIM      Tag = "fim"
	TagComply   Tag = "compliance"
)

// fetchTriggers gates whether a turn touches the monitoring platform at all.
// Tested as substrings against the lowered prompt.
var fetchTriggers = []string{
	"fetch", "show me", "show ", "list", "get ", "check", "how many",
	"what are", "what is", "display", "give me", "tell me", "status",
	"summary", "report", "scan", "yes", "go ahead", "sure", "okay", "do it",
}

// bucket binds a tag to its trigger vocabulary. Buckets are tested
// independently; several may fire on one prompt.
type bucket struct {
	tag      Tag
	triggers []string
}

// buckets is data, not conditionals: adding a category is one more row.
var buckets = []bucket{
	{TagSeverity, []string{"critical", "severe", "severity", "urgent", "high priority"}},
	{TagAlerts, []string{"alert", "recent", "event", "incident", "happening"}},
	{TagAgents, []string{"agent", "host", "server", "endpoint", "machine"}},
	{TagVulns, []string{"vulnerab", "cve", "exploit", "patch"}},
	{TagAuth, []string{"auth", "login", "failed", "password", "brute"}},
	{TagMalware, []string{"malware", "trojan", "virus", "ransom"}},
	{TagFIM, []string{"fim", "file integrity", "integrity"}},
	{TagComply, []string{"compliance", "policy", "cis", "pci"}},
}

// agentMarkers identify hostname-looking tokens by substring. The deployment
// names hosts with OS prefixes; "agent" catches names like "webagent01".
var agentMarkers = []string{"win-", "srv-", "ubuntu-", "deb-", "centos-", "agent"}

// Intent is the classification of one prompt.
type Intent struct {
	// Fetch reports whether the prompt asks for monitoring data at all.
	Fetch bool
	// AgentName is the extracted host token, empty for a global query.
	AgentName string
	// Tags are the buckets whose trigger words matched.
	Tags []Tag
}

// Has reports whether the given tag fired.
func (i Intent) Has(tag Tag) bool {
	for _, t := range i.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Classify is a pure function over the lowered prompt: fetch gate, agent
// token extraction, and independent keyword buckets.
func Classify(prompt string) Intent {
	lowered := strings.ToLower(prompt)

	var intent Intent
	for _, trigger := range fetchTriggers {
		if strings.Contains(lowered, trigger) {
			intent.Fetch = true
			break
		}
	}
	if !intent.Fetch {
		return intent
	}

	intent.AgentName = extractAgentToken(lowered)

	for _, b := range buckets {
		for _, trigger := range b.triggers {
			if strings.Contains(lowered, trigger) {
				intent.Tags = append(intent.Tags, b.tag)
				break
			}
		}
	}

	return intent
}

// extractAgentToken scans whitespace-split tokens for the first one matching
// an agent marker. The bare words "agent"/"agents" are bucket vocabulary, not
// hostnames, and are skipped.
func extractAgentToken(lowered string) string {
	for _, token := range strings.Fields(lowered) {
		token = strings.Trim(token, ".,:;!?\"'()[]")
		if token == "" || token == "agent" || token == "agents" {
			continue
		}
		for _, marker := range agentMarkers {
			if strings.Contains(token, marker) {
				return token
			}
		}
	}
	return ""
}
