package wazuh

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/opensearch-project/opensearch-go/v2"

	"github.com/Sachinn-p/CHATSEC-SOC-Agent/config"
)

// Client talks to the Wazuh manager REST API for agent management and to the
// indexer for alert search. A bearer token is fetched lazily on first use and
// refreshed whenever a request comes back 401.
type Client struct {
	baseURL  string
	username string
	password string

	http    *http.Client
	indexer *opensearch.Client
	index   string

	mu    sync.Mutex
	token string
}

func NewClient(cfg config.WazuhConfig, idx config.IndexerConfig) (*Client, error) {
	transport := &http.Transport{}
	if !cfg.VerifySSL {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	indexerClient, err := opensearch.NewClient(opensearch.Config{
		Addresses: idx.Addresses,
		Username:  idx.Username,
		Password:  idx.Password,
		Transport: transport.Clone(),
	})
	if err != nil {
		return nil, fmt.Errorf("create indexer client: %w", err)
	}

	return &Client{
		baseURL:  fmt.Sprintf("https://%s:%d", cfg.Host, cfg.Port),
		username: cfg.Username,
		password: cfg.Password,
		http: &http.Client{
			Timeout:   cfg.Timeout.Duration,
			Transport: transport,
		},
		indexer: indexerClient,
		index:   idx.Index,
	}, nil
}

// Authenticate obtains a bearer token from the manager API.
func (c *Client) Authenticate(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/security/user/authenticate", nil)
	if err != nil {
		return false
	}
	req.SetBasicAuth(c.username, c.password)

	resp, err := c.http.Do(req)
	if err != nil {
		slog.Warn("wazuh.auth.failed", "url", c.baseURL, "error", err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.Warn("wazuh.auth.rejected", "status", resp.StatusCode)
		return false
	}

	var body struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.Data.Token == "" {
		return false
	}

	c.mu.Lock()
	c.token = body.Data.Token
	c.mu.Unlock()
	return true
}

// do issues an authenticated manager API request, authenticating first if no
// token is held yet, and decodes the response body into out.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload, out any) error {
	c.mu.Lock()
	token := c.token
	c.mu.Unlock()
	if token == "" {
		if !c.Authenticate(ctx) {
			return fmt.Errorf("authentication failed to %s", c.baseURL)
		}
		c.mu.Lock()
		token = c.token
		c.mu.Unlock()
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("wazuh api %s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(text)))
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// affectedItems is the common envelope the manager API wraps results in.
type affectedItems[T any] struct {
	Data struct {
		AffectedItems []T `json:"affected_items"`
	} `json:"data"`
}

// Agents lists registered agents, optionally filtered by status.
func (c *Client) Agents(ctx context.Context, status string) AgentsResult {
	query := url.Values{}
	if status != "" {
		query.Set("status", status)
	}

	var body affectedItems[Agent]
	if err := c.do(ctx, http.MethodGet, "/agents", query, nil, &body); err != nil {
		return AgentsResult{Error: err.Error()}
	}

	agents := body.Data.AffectedItems
	return AgentsResult{Success: true, Total: len(agents), Agents: agents}
}

// AgentByName resolves a single agent by its (case-insensitive) name.
func (c *Client) AgentByName(ctx context.Context, name string) AgentResult {
	result := c.Agents(ctx, "")
	if !result.Success {
		return AgentResult{Error: result.Error}
	}
	for i := range result.Agents {
		if strings.EqualFold(result.Agents[i].Name, name) {
			return AgentResult{Success: true, Agent: &result.Agents[i]}
		}
	}
	return AgentResult{Error: fmt.Sprintf("agent %s not found", name)}
}

// AddAgent registers a new monitored host, retrieves its auth key, and
// optionally assigns it to groups.
func (c *Client) AddAgent(ctx context.Context, name, ip string, groups []string) AddAgentResult {
	payload := map[string]string{"name": name}
	if ip != "" && !strings.EqualFold(ip, "any") {
		payload["ip"] = ip
	}

	var body affectedItems[Agent]
	if err := c.do(ctx, http.MethodPost, "/agents", nil, payload, &body); err != nil {
		return AddAgentResult{Error: fmt.Sprintf("failed to add agent: %v", err)}
	}
	if len(body.Data.AffectedItems) == 0 {
		return AddAgentResult{Error: "failed to add agent: empty response"}
	}

	agent := body.Data.AffectedItems[0]
	if agent.ID != "" {
		if key := c.AgentKey(ctx, agent.ID); key.Success {
			agent.Key = key.Key
		}
		if len(groups) > 0 {
			if res := c.AssignGroups(ctx, agent.ID, groups); !res.Success {
				slog.Warn("wazuh.agent.group_assign_failed", "agent", agent.ID, "error", res.Error)
			}
		}
	}

	return AddAgentResult{
		Success: true,
		Agent:   &agent,
		Message: fmt.Sprintf("Agent '%s' added successfully with ID: %s", name, agent.ID),
	}
}

// AgentKey fetches the authentication key used to enroll an agent.
func (c *Client) AgentKey(ctx context.Context, agentID string) AgentKeyResult {
	var body affectedItems[struct {
		Key string `json:"key"`
	}]
	if err := c.do(ctx, http.MethodGet, "/agents/"+agentID+"/key", nil, nil, &body); err != nil {
		return AgentKeyResult{Error: fmt.Sprintf("failed to get agent key: %v", err)}
	}
	if len(body.Data.AffectedItems) == 0 {
		return AgentKeyResult{Error: "failed to get agent key: empty response"}
	}
	return AgentKeyResult{Success: true, Key: body.Data.AffectedItems[0].Key}
}

// DeleteAgent removes an agent; purge also drops it from the manager database.
func (c *Client) DeleteAgent(ctx context.Context, agentID string, purge bool) DeleteAgentResult {
	query := url.Values{}
	query.Set("agents_list", agentID)
	query.Set("purge", fmt.Sprintf("%t", purge))

	if err := c.do(ctx, http.MethodDelete, "/agents", query, nil, nil); err != nil {
		return DeleteAgentResult{Error: fmt.Sprintf("failed to delete agent: %v", err)}
	}
	return DeleteAgentResult{Success: true, Message: fmt.Sprintf("Agent %s deleted successfully", agentID)}
}

// AssignGroups assigns the agent to each group in turn.
func (c *Client) AssignGroups(ctx context.Context, agentID string, groups []string) AssignGroupsResult {
	for _, group := range groups {
		path := fmt.Sprintf("/agents/%s/group/%s", agentID, group)
		if err := c.do(ctx, http.MethodPut, path, nil, nil, nil); err != nil {
			return AssignGroupsResult{Error: fmt.Sprintf("failed to assign group %s: %v", group, err)}
		}
	}
	return AssignGroupsResult{Success: true, Message: fmt.Sprintf("Groups assigned to agent %s", agentID)}
}

// HealthCheck verifies authentication and counts registered agents.
func (c *Client) HealthCheck(ctx context.Context) HealthResult {
	if !c.Authenticate(ctx) {
		return HealthResult{
			Error: fmt.Sprintf("Authentication failed to %s. Check username/password.", c.baseURL),
		}
	}

	agents := c.Agents(ctx, "")
	if !agents.Success {
		return HealthResult{
			Connected: true,
			Error:     fmt.Sprintf("Failed to get agents: %s", agents.Error),
		}
	}

	active := 0
	for _, a := range agents.Agents {
		if a.Status == "active" {
			active++
		}
	}

	return HealthResult{
		Success:      true,
		Connected:    true,
		TotalAgents:  agents.Total,
		ActiveAgents: active,
	}
}
