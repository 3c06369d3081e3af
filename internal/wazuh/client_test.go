package wazuh

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestClient 把客户端指向一个本地 httptest 服务
func newTestClient(t *testing.T, register func(mux *http.ServeMux)) *Client {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/security/user/authenticate", func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "wazuh" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, `{"data":{"token":"test-token"}}`)
	})
	if register != nil {
		register(mux)
	}

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return &Client{
		baseURL:  srv.URL,
		username: "wazuh",
		password: "secret",
		http:     srv.Client(),
	}
}

const agentsJSON = `{"data":{"affected_items":[
	{"id":"000","name":"wazuh-manager","ip":"127.0.0.1","status":"active"},
	{"id":"001","name":"Win-SRV01","ip":"10.0.0.5","status":"active"},
	{"id":"002","name":"ubuntu-web02","ip":"10.0.0.6","status":"disconnected"}
]}}`

// TestAuthenticate 基本认证换取 bearer token
func TestAuthenticate(t *testing.T) {
	c := newTestClient(t, nil)
	assert.True(t, c.Authenticate(context.Background()))
	assert.Equal(t, "test-token", c.token)
}

// TestAuthenticate_BadCredentials 凭据错误时返回 false
func TestAuthenticate_BadCredentials(t *testing.T) {
	c := newTestClient(t, nil)
	c.password = "wrong"
	assert.False(t, c.Authenticate(context.Background()))
}

// TestAgents 请求携带 bearer token 并解包 affected_items
func TestAgents(t *testing.T) {
	c := newTestClient(t, func(mux *http.ServeMux) {
		mux.HandleFunc("/agents", func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
			fmt.Fprint(w, agentsJSON)
		})
	})

	res := c.Agents(context.Background(), "")
	require.True(t, res.Success)
	assert.Equal(t, 3, res.Total)
	assert.Equal(t, "wazuh-manager", res.Agents[0].Name)
}

// TestAgentByName 名称匹配不区分大小写
func TestAgentByName(t *testing.T) {
	c := newTestClient(t, func(mux *http.ServeMux) {
		mux.HandleFunc("/agents", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, agentsJSON)
		})
	})

	res := c.AgentByName(context.Background(), "win-srv01")
	require.True(t, res.Success)
	assert.Equal(t, "001", res.Agent.ID)

	res = c.AgentByName(context.Background(), "nonexistent")
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "not found")
}

// TestAddAgent 注册主机后取 key 并分配组
func TestAddAgent(t *testing.T) {
	var groupAssigned string
	c := newTestClient(t, func(mux *http.ServeMux) {
		mux.HandleFunc("/agents", func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, http.MethodPost, r.Method)
			fmt.Fprint(w, `{"data":{"affected_items":[{"id":"003","name":"new-host","ip":"10.0.0.7"}]}}`)
		})
		mux.HandleFunc("/agents/003/key", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"data":{"affected_items":[{"key":"enrollment-key"}]}}`)
		})
		mux.HandleFunc("/agents/003/group/web", func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, http.MethodPut, r.Method)
			groupAssigned = "web"
			fmt.Fprint(w, `{}`)
		})
	})

	res := c.AddAgent(context.Background(), "new-host", "10.0.0.7", []string{"web"})
	require.True(t, res.Success)
	assert.Equal(t, "Agent 'new-host' added successfully with ID: 003", res.Message)
	require.NotNil(t, res.Agent)
	assert.Equal(t, "enrollment-key", res.Agent.Key)
	assert.Equal(t, "web", groupAssigned)
}

// TestDeleteAgent 删除请求带 agents_list 和 purge 参数
func TestDeleteAgent(t *testing.T) {
	c := newTestClient(t, func(mux *http.ServeMux) {
		mux.HandleFunc("/agents", func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, http.MethodDelete, r.Method)
			require.Equal(t, "002", r.URL.Query().Get("agents_list"))
			require.Equal(t, "true", r.URL.Query().Get("purge"))
			fmt.Fprint(w, `{}`)
		})
	})

	res := c.DeleteAgent(context.Background(), "002", true)
	require.True(t, res.Success)
	assert.Contains(t, res.Message, "002")
}

// TestHealthCheck 统计 active 状态的 agent 数
func TestHealthCheck(t *testing.T) {
	c := newTestClient(t, func(mux *http.ServeMux) {
		mux.HandleFunc("/agents", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, agentsJSON)
		})
	})

	h := c.HealthCheck(context.Background())
	require.True(t, h.Success)
	assert.True(t, h.Connected)
	assert.Equal(t, 3, h.TotalAgents)
	assert.Equal(t, 2, h.ActiveAgents)
}

// TestHealthCheck_AuthFailure 认证失败时给出可读错误
func TestHealthCheck_AuthFailure(t *testing.T) {
	c := newTestClient(t, nil)
	c.password = "wrong"

	h := c.HealthCheck(context.Background())
	assert.False(t, h.Success)
	assert.False(t, h.Connected)
	assert.Contains(t, h.Error, "Authentication failed")
}
