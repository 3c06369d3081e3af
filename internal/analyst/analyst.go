// Package analyst turns a chat prompt into an answer: a keyword classifier
// decides which monitoring data to fetch, the fetched envelopes are rendered
// into a labeled context, and a single model call produces the response.
package analyst

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-kratos/blades"

	"github.com/Sachinn-p/CHATSEC-SOC-Agent/internal/consts"
	"github.com/Sachinn-p/CHATSEC-SOC-Agent/internal/metrics"
	"github.com/Sachinn-p/CHATSEC-SOC-Agent/internal/store"
	"github.com/Sachinn-p/CHATSEC-SOC-Agent/internal/wazuh"
)

// Data-fetch defaults. Vulnerability scans look back a full week because CVE
// alerts are far sparser than the rest of the index.
const (
	defaultLookbackHours = 24
	recentAlertLimit     = 50
	vulnLimit            = 20
	failedAuthLimit      = 50
	fimLimit             = 15
)

// Model is the one-shot slice of blades.ModelProvider the analyst needs.
type Model interface {
	Generate(ctx context.Context, req *blades.ModelRequest) (*blades.ModelResponse, error)
}

// Monitoring is the slice of the Wazuh client the analyst consumes.
type Monitoring interface {
	HealthCheck(ctx context.Context) wazuh.HealthResult
	Agents(ctx context.Context, status string) wazuh.AgentsResult
	AgentByName(ctx context.Context, name string) wazuh.AgentResult
	Alerts(ctx context.Context, hours, limit int, agentName string) wazuh.AlertsResult
	CriticalAlerts(ctx context.Context, hours int, agentName string) wazuh.CriticalAlertsResult
	AlertSummary(ctx context.Context, hours int, agentName string) wazuh.AlertSummaryResult
	Vulnerabilities(ctx context.Context, agentName string, limit int) wazuh.VulnerabilitiesResult
	FailedAuth(ctx context.Context, hours int, agentName string, limit int) wazuh.FailedAuthResult
	MalwareDetections(ctx context.Context, hours int, agentName string) wazuh.MalwareResult
	FileIntegrityChanges(ctx context.Context, hours int, agentName string, limit int) wazuh.FIMResult
	ComplianceStatus(ctx context.Context, hours int, agentName string) wazuh.ComplianceResult
}

// Analyst orchestrates one chat turn end to end.
type Analyst struct {
	monitoring Monitoring
	model      Model
	maxRecent  int
	maxSteps   int
}

// New 构建分析器。maxRecent 控制纯对话回合回放的历史条数，maxSteps
// 限制单回合允许发起的监控查询次数。
func New(monitoring Monitoring, model Model, maxRecent, maxSteps int) *Analyst {
	if maxRecent <= 0 {
		maxRecent = 5
	}
	if maxSteps <= 0 {
		maxSteps = 10
	}
	return &Analyst{
		monitoring: monitoring,
		model:      model,
		maxRecent:  maxRecent,
		maxSteps:   maxSteps,
	}
}

// HandleTurn answers one user prompt. Errors never escape as Go errors: a
// failed model call or an unreachable platform comes back as a user-facing
// string so the chat loop stays alive.
func (a *Analyst) HandleTurn(ctx context.Context, prompt string, history []store.Message) string {
	out, _ := a.handle(ctx, prompt, history)
	return out
}

// Run executes a prompt without chat history, for scheduled proactive jobs.
// Unlike HandleTurn it propagates failure so the caller can retry.
func (a *Analyst) Run(ctx context.Context, prompt string) (string, error) {
	out, err := a.handle(ctx, prompt, nil)
	if err != nil {
		return "", err
	}
	return out, nil
}

// handle is the shared turn pipeline. It always returns a user-facing string;
// the error is non-nil exactly when that string reports a failure.
func (a *Analyst) handle(ctx context.Context, prompt string, history []store.Message) (string, error) {
	start := time.Now()
	defer func() {
		metrics.TurnDuration.Observe(time.Since(start).Seconds())
	}()

	intent := Classify(prompt)
	if !intent.Fetch {
		metrics.TurnsTotal.WithLabelValues("false").Inc()
		return a.converse(ctx, prompt, history)
	}
	metrics.TurnsTotal.WithLabelValues("true").Inc()

	health := a.monitoring.HealthCheck(ctx)
	if !health.Success || !health.Connected {
		reason := health.Error
		if reason == "" {
			reason = "monitoring platform is unreachable"
		}
		slog.Warn("analyst.health.failed", "error", reason)
		return fmt.Sprintf("Cannot connect: %s", reason), fmt.Errorf("health check failed: %s", reason)
	}

	sections := a.fetchSections(ctx, intent)
	slog.Info("analyst.turn.fetched",
		"tags", len(intent.Tags),
		"agent", intent.AgentName,
		"sections", len(sections),
	)

	user := blades.UserMessage(fmt.Sprintf(consts.AnalystContextFormat, prompt, renderSections(sections)))
	return a.generate(ctx, []*blades.Message{user})
}

// section is one labeled block of fetched data in the model context.
type section struct {
	label string
	value any
}

// fetchSections issues one fetch per matched bucket, up to maxSteps fetches
// per turn. Buckets are independent; a prompt mentioning critical alerts on a
// host gets both scoped to the host.
func (a *Analyst) fetchSections(ctx context.Context, intent Intent) []section {
	var sections []section
	full := func() bool { return len(sections) >= a.maxSteps }

	if intent.Has(TagSeverity) {
		crit := a.monitoring.CriticalAlerts(ctx, defaultLookbackHours, intent.AgentName)
		if !crit.Success {
			metrics.FetchErrorsTotal.WithLabelValues("critical_alerts").Inc()
		}
		sections = append(sections, section{"Critical Alerts", crit})
		if full() {
			return sections
		}

		sum := a.monitoring.AlertSummary(ctx, defaultLookbackHours, intent.AgentName)
		if !sum.Success {
			metrics.FetchErrorsTotal.WithLabelValues("alert_summary").Inc()
		}
		sections = append(sections, section{"Alert Severity Summary", sum})
	}

	if intent.Has(TagAlerts) && !full() {
		alerts := a.monitoring.Alerts(ctx, defaultLookbackHours, recentAlertLimit, intent.AgentName)
		if !alerts.Success {
			metrics.FetchErrorsTotal.WithLabelValues("alerts").Inc()
		}
		sections = append(sections, section{"Recent Alerts", alerts})
	}

	if intent.Has(TagAgents) && !full() {
		if intent.AgentName != "" {
			agent := a.monitoring.AgentByName(ctx, intent.AgentName)
			if !agent.Success {
				metrics.FetchErrorsTotal.WithLabelValues("agent").Inc()
			}
			sections = append(sections, section{"Agent Details", agent})
		} else {
			agents := a.monitoring.Agents(ctx, "")
			if !agents.Success {
				metrics.FetchErrorsTotal.WithLabelValues("agents").Inc()
			}
			sections = append(sections, section{"Registered Agents", agents})
		}
	}

	if intent.Has(TagVulns) && !full() {
		vulns := a.monitoring.Vulnerabilities(ctx, intent.AgentName, vulnLimit)
		if !vulns.Success {
			metrics.FetchErrorsTotal.WithLabelValues("vulnerabilities").Inc()
		}
		sections = append(sections, section{"Vulnerabilities", vulns})
	}

	if intent.Has(TagAuth) && !full() {
		auth := a.monitoring.FailedAuth(ctx, defaultLookbackHours, intent.AgentName, failedAuthLimit)
		if !auth.Success {
			metrics.FetchErrorsTotal.WithLabelValues("failed_auth").Inc()
		}
		sections = append(sections, section{"Failed Authentication Attempts", auth})
	}

	if intent.Has(TagMalware) && !full() {
		mal := a.monitoring.MalwareDetections(ctx, defaultLookbackHours, intent.AgentName)
		if !mal.Success {
			metrics.FetchErrorsTotal.WithLabelValues("malware").Inc()
		}
		sections = append(sections, section{"Malware Detections", mal})
	}

	if intent.Has(TagFIM) && !full() {
		fim := a.monitoring.FileIntegrityChanges(ctx, defaultLookbackHours, intent.AgentName, fimLimit)
		if !fim.Success {
			metrics.FetchErrorsTotal.WithLabelValues("fim").Inc()
		}
		sections = append(sections, section{"File Integrity Changes", fim})
	}

	if intent.Has(TagComply) && !full() {
		comp := a.monitoring.ComplianceStatus(ctx, defaultLookbackHours, intent.AgentName)
		if !comp.Success {
			metrics.FetchErrorsTotal.WithLabelValues("compliance").Inc()
		}
		sections = append(sections, section{"Compliance Violations", comp})
	}

	// Fetch intent with no matched bucket: fall back to a general overview.
	if len(sections) == 0 {
		sum := a.monitoring.AlertSummary(ctx, defaultLookbackHours, intent.AgentName)
		if !sum.Success {
			metrics.FetchErrorsTotal.WithLabelValues("alert_summary").Inc()
		}
		sections = append(sections, section{"Alert Severity Summary", sum})

		if intent.AgentName != "" && !full() {
			agent := a.monitoring.AgentByName(ctx, intent.AgentName)
			if !agent.Success {
				metrics.FetchErrorsTotal.WithLabelValues("agent").Inc()
			}
			sections = append(sections, section{"Agent Details", agent})
		}
	}

	return sections
}

// renderSections lays the fetched envelopes out as labeled JSON blocks.
// Error envelopes are rendered too, so the model can report partial failure.
func renderSections(sections []section) string {
	var b strings.Builder
	for i, s := range sections {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString("=== ")
		b.WriteString(s.label)
		b.WriteString(" ===\n")
		data, err := json.MarshalIndent(s.value, "", "  ")
		if err != nil {
			b.WriteString(fmt.Sprintf("(failed to render: %s)", err))
			continue
		}
		b.Write(data)
	}
	return b.String()
}

// converse handles a turn with no data-fetch intent: replay the most recent
// history as role-tagged messages and let the model answer directly.
func (a *Analyst) converse(ctx context.Context, prompt string, history []store.Message) (string, error) {
	msgs := make([]*blades.Message, 0, a.maxRecent+1)
	for _, m := range tail(history, a.maxRecent) {
		switch m.Role {
		case consts.RoleAssistant:
			msgs = append(msgs, blades.AssistantMessage(m.Content))
		default:
			msgs = append(msgs, blades.UserMessage(m.Content))
		}
	}
	msgs = append(msgs, blades.UserMessage(prompt))

	return a.generate(ctx, msgs)
}

// generate issues the single model call of a turn.
func (a *Analyst) generate(ctx context.Context, msgs []*blades.Message) (string, error) {
	resp, err := a.model.Generate(ctx, &blades.ModelRequest{
		Instruction: blades.SystemMessage(consts.AnalystInstruction),
		Messages:    msgs,
	})
	if err != nil {
		slog.Error("analyst.model.failed", "error", err)
		return fmt.Sprintf("Error generating response: %s", err), err
	}
	if resp == nil || resp.Message == nil {
		err := fmt.Errorf("model returned an empty response")
		return fmt.Sprintf("Error generating response: %s", err), err
	}
	return strings.TrimSpace(resp.Message.Text()), nil
}

func tail(history []store.Message, n int) []store.Message {
	if len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}
