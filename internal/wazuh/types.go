// Package wazuh implements a client for the Wazuh manager REST API and the
// Wazuh indexer (OpenSearch) alert index.
//
// Every fallible operation returns a success/error envelope instead of a Go
// error so partial failures can be carried into the assistant's analysis
// context without aborting the whole turn.
package wazuh

// Rule is the triggering rule attached to an alert.
type Rule struct {
	Level       int    `json:"level"`
	Description string `json:"description"`
}

// AgentRef identifies the agent an alert originated from.
type AgentRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Alert is a single alert document from the indexer.
type Alert struct {
	Timestamp string         `json:"timestamp"`
	Rule      Rule           `json:"rule"`
	Agent     AgentRef       `json:"agent"`
	Data      map[string]any `json:"data,omitempty"`
	FullLog   string         `json:"full_log,omitempty"`
}

// Agent is a monitored host registered with the manager.
type Agent struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	IP            string `json:"ip"`
	Status        string `json:"status"`
	Version       string `json:"version"`
	LastKeepAlive string `json:"lastKeepAlive"`
	Key           string `json:"key,omitempty"`
}

// HealthResult reports manager connectivity and the agent census.
type HealthResult struct {
	Success      bool   `json:"success"`
	Connected    bool   `json:"connected"`
	TotalAgents  int    `json:"total_agents"`
	ActiveAgents int    `json:"active_agents"`
	Error        string `json:"error,omitempty"`
}

type AgentsResult struct {
	Success bool    `json:"success"`
	Total   int     `json:"total"`
	Agents  []Agent `json:"agents"`
	Error   string  `json:"error,omitempty"`
}

type AgentResult struct {
	Success bool   `json:"success"`
	Agent   *Agent `json:"agent,omitempty"`
	Error   string `json:"error,omitempty"`
}

type AlertsResult struct {
	Success   bool    `json:"success"`
	Total     int     `json:"total"`
	Alerts    []Alert `json:"alerts"`
	Timeframe string  `json:"timeframe,omitempty"`
	Error     string  `json:"error,omitempty"`
}

type CriticalAlertsResult struct {
	Success        bool    `json:"success"`
	TotalCritical  int     `json:"total_critical"`
	CriticalAlerts []Alert `json:"critical_alerts"`
	Agent          string  `json:"agent,omitempty"`
	Timeframe      string  `json:"timeframe,omitempty"`
	Error          string  `json:"error,omitempty"`
}

// SeveritySummary buckets alert counts by rule level.
type SeveritySummary struct {
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
}

// Total returns the sum over all buckets.
func (s SeveritySummary) Total() int {
	return s.Critical + s.High + s.Medium + s.Low
}

type AlertSummaryResult struct {
	Success     bool            `json:"success"`
	Summary     SeveritySummary `json:"summary"`
	TotalAlerts int             `json:"total_alerts"`
	Agent       string          `json:"agent,omitempty"`
	Timeframe   string          `json:"timeframe,omitempty"`
	Error       string          `json:"error,omitempty"`
}

// Vulnerability aggregates alerts sharing a CVE (or rule description when no
// CVE is present in the alert data).
type Vulnerability struct {
	CVE            string   `json:"cve"`
	Count          int      `json:"count"`
	Severity       int      `json:"severity"`
	AffectedAgents []string `json:"affected_agents"`
}

type VulnerabilitiesResult struct {
	Success         bool            `json:"success"`
	Vulnerabilities []Vulnerability `json:"vulnerabilities"`
	Total           int             `json:"total"`
	Agent           string          `json:"agent,omitempty"`
	Error           string          `json:"error,omitempty"`
}

type FailedAuthResult struct {
	Success            bool    `json:"success"`
	FailedAuthAttempts []Alert `json:"failed_auth_attempts"`
	Total              int     `json:"total"`
	Agent              string  `json:"agent,omitempty"`
	Timeframe          string  `json:"timeframe,omitempty"`
	Error              string  `json:"error,omitempty"`
}

type MalwareResult struct {
	Success           bool    `json:"success"`
	MalwareDetections []Alert `json:"malware_detections"`
	TotalDetections   int     `json:"total_detections"`
	Agent             string  `json:"agent,omitempty"`
	Timeframe         string  `json:"timeframe,omitempty"`
	Error             string  `json:"error,omitempty"`
}

type FIMResult struct {
	Success      bool    `json:"success"`
	FIMChanges   []Alert `json:"fim_changes"`
	TotalChanges int     `json:"total_changes"`
	Agent        string  `json:"agent,omitempty"`
	Timeframe    string  `json:"timeframe,omitempty"`
	Error        string  `json:"error,omitempty"`
}

type ComplianceResult struct {
	Success              bool    `json:"success"`
	ComplianceViolations []Alert `json:"compliance_violations"`
	TotalViolations      int     `json:"total_violations"`
	Agent                string  `json:"agent,omitempty"`
	Timeframe            string  `json:"timeframe,omitempty"`
	Error                string  `json:"error,omitempty"`
}

type AddAgentResult struct {
	Success bool   `json:"success"`
	Agent   *Agent `json:"agent,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

type DeleteAgentResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

type AgentKeyResult struct {
	Success bool   `json:"success"`
	Key     string `json:"key,omitempty"`
	Error   string `json:"error,omitempty"`
}

type AssignGroupsResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}
