package wazuh

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"
)

// Alerts fetches the most recent alerts from the indexer, newest first,
// optionally scoped to a single agent name.
func (c *Client) Alerts(ctx context.Context, hours, limit int, agentName string) AlertsResult {
	start := time.Now().UTC().Add(-time.Duration(hours) * time.Hour).Format(time.RFC3339)

	must := []map[string]any{
		{"range": map[string]any{"timestamp": map[string]any{"gte": start}}},
	}
	if agentName != "" {
		must = append(must, map[string]any{
			"match": map[string]any{"agent.name": agentName},
		})
	}

	query := map[string]any{
		"query": map[string]any{
			"bool": map[string]any{"must": must},
		},
		"size": limit,
		"sort": []map[string]any{
			{"timestamp": map[string]any{"order": "desc"}},
		},
	}

	raw, err := json.Marshal(query)
	if err != nil {
		return AlertsResult{Error: fmt.Sprintf("encode query: %v", err)}
	}

	req := opensearchapi.SearchRequest{
		Index: []string{c.index},
		Body:  strings.NewReader(string(raw)),
	}

	res, err := req.Do(ctx, c.indexer)
	if err != nil {
		return AlertsResult{Error: fmt.Sprintf("indexer search: %v", err)}
	}
	defer res.Body.Close()

	if res.IsError() {
		return AlertsResult{Error: fmt.Sprintf("indexer error: %s", res.Status())}
	}

	var body struct {
		Hits struct {
			Hits []struct {
				Source Alert `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return AlertsResult{Error: fmt.Sprintf("decode response: %v", err)}
	}

	alerts := make([]Alert, 0, len(body.Hits.Hits))
	for _, hit := range body.Hits.Hits {
		alerts = append(alerts, hit.Source)
	}

	return AlertsResult{
		Success:   true,
		Total:     len(alerts),
		Alerts:    alerts,
		Timeframe: fmt.Sprintf("last %d hours", hours),
	}
}

// CriticalAlerts returns alerts at or above the critical rule level. The
// returned detail list is capped; TotalCritical is the uncapped count.
func (c *Client) CriticalAlerts(ctx context.Context, hours int, agentName string) CriticalAlertsResult {
	alerts := c.Alerts(ctx, hours, criticalScanLimit, agentName)
	if !alerts.Success {
		return CriticalAlertsResult{Error: alerts.Error, Agent: agentName}
	}

	critical := filterCritical(alerts.Alerts)
	detail := critical
	if len(detail) > criticalDetailCap {
		detail = detail[:criticalDetailCap]
	}

	return CriticalAlertsResult{
		Success:        true,
		TotalCritical:  len(critical),
		CriticalAlerts: detail,
		Agent:          agentName,
		Timeframe:      fmt.Sprintf("last %d hours", hours),
	}
}

// AlertSummary buckets recent alerts by severity.
func (c *Client) AlertSummary(ctx context.Context, hours int, agentName string) AlertSummaryResult {
	alerts := c.Alerts(ctx, hours, summaryScanLimit, agentName)
	if !alerts.Success {
		return AlertSummaryResult{Error: alerts.Error, Agent: agentName}
	}

	summary := Summarize(alerts.Alerts)
	return AlertSummaryResult{
		Success:     true,
		Summary:     summary,
		TotalAlerts: summary.Total(),
		Agent:       agentName,
		Timeframe:   fmt.Sprintf("last %d hours", hours),
	}
}

// Vulnerabilities aggregates vulnerability-looking alerts over the past week,
// grouped by CVE and ordered by hit count.
func (c *Client) Vulnerabilities(ctx context.Context, agentName string, limit int) VulnerabilitiesResult {
	alerts := c.Alerts(ctx, vulnLookbackHours, summaryScanLimit, agentName)
	if !alerts.Success {
		return VulnerabilitiesResult{Error: alerts.Error, Agent: agentName}
	}

	vulns := GroupVulnerabilities(alerts.Alerts, limit)
	return VulnerabilitiesResult{
		Success:         true,
		Vulnerabilities: vulns,
		Total:           len(vulns),
		Agent:           agentName,
	}
}

// FailedAuth returns alerts whose serialized form mentions authentication
// failure keywords.
func (c *Client) FailedAuth(ctx context.Context, hours int, agentName string, limit int) FailedAuthResult {
	alerts := c.Alerts(ctx, hours, summaryScanLimit, agentName)
	if !alerts.Success {
		return FailedAuthResult{Error: alerts.Error, Agent: agentName}
	}

	matched := FilterFailedAuth(alerts.Alerts, limit)
	return FailedAuthResult{
		Success:            true,
		FailedAuthAttempts: matched,
		Total:              len(matched),
		Agent:              agentName,
		Timeframe:          fmt.Sprintf("last %d hours", hours),
	}
}

// MalwareDetections returns malware-looking alerts. The detail list is
// capped; TotalDetections is the uncapped count.
func (c *Client) MalwareDetections(ctx context.Context, hours int, agentName string) MalwareResult {
	alerts := c.Alerts(ctx, hours, summaryScanLimit, agentName)
	if !alerts.Success {
		return MalwareResult{Error: alerts.Error, Agent: agentName}
	}

	matched := FilterByKeywords(alerts.Alerts, malwareKeywords, 0)
	detail := matched
	if len(detail) > malwareDetailCap {
		detail = detail[:malwareDetailCap]
	}
	return MalwareResult{
		Success:           true,
		MalwareDetections: detail,
		TotalDetections:   len(matched),
		Agent:             agentName,
		Timeframe:         fmt.Sprintf("last %d hours", hours),
	}
}

// FileIntegrityChanges returns recent file integrity monitoring alerts,
// capped to limit.
func (c *Client) FileIntegrityChanges(ctx context.Context, hours int, agentName string, limit int) FIMResult {
	if limit <= 0 {
		limit = fimDefaultLimit
	}
	alerts := c.Alerts(ctx, hours, summaryScanLimit, agentName)
	if !alerts.Success {
		return FIMResult{Error: alerts.Error, Agent: agentName}
	}

	matched := FilterByKeywords(alerts.Alerts, fimKeywords, limit)
	return FIMResult{
		Success:      true,
		FIMChanges:   matched,
		TotalChanges: len(matched),
		Agent:        agentName,
		Timeframe:    fmt.Sprintf("last %d hours", hours),
	}
}

// ComplianceStatus returns policy violation alerts. The detail list is
// capped; TotalViolations is the uncapped count.
func (c *Client) ComplianceStatus(ctx context.Context, hours int, agentName string) ComplianceResult {
	alerts := c.Alerts(ctx, hours, summaryScanLimit, agentName)
	if !alerts.Success {
		return ComplianceResult{Error: alerts.Error, Agent: agentName}
	}

	matched := FilterByKeywords(alerts.Alerts, complianceKeywords, 0)
	detail := matched
	if len(detail) > complianceDetailCap {
		detail = detail[:complianceDetailCap]
	}
	return ComplianceResult{
		Success:              true,
		ComplianceViolations: detail,
		TotalViolations:      len(matched),
		Agent:                agentName,
		Timeframe:            fmt.Sprintf("last %d hours", hours),
	}
}
