package wazuh

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newIndexerClient 把 indexer 指向本地 httptest 服务并捕获查询体
func newIndexerClient(t *testing.T, handler http.HandlerFunc) (*Client, *[]byte) {
	t.Helper()
	var lastBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		lastBody = body
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	idx, err := opensearch.NewClient(opensearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)

	return &Client{indexer: idx, index: "wazuh-alerts-*"}, &lastBody
}

func searchResponse(alerts ...Alert) string {
	type hit struct {
		Source Alert `json:"_source"`
	}
	hits := make([]hit, 0, len(alerts))
	for _, a := range alerts {
		hits = append(hits, hit{Source: a})
	}
	raw, _ := json.Marshal(map[string]any{
		"hits": map[string]any{"hits": hits},
	})
	return string(raw)
}

// TestAlerts_QueryShape 查询包含时间范围、主机过滤、条数和倒序排序
func TestAlerts_QueryShape(t *testing.T) {
	c, lastBody := newIndexerClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, searchResponse(alertAt(5, "win-srv01", "test")))
	})

	res := c.Alerts(context.Background(), 24, 50, "win-srv01")
	require.True(t, res.Success)
	require.Equal(t, 1, res.Total)
	assert.Equal(t, "last 24 hours", res.Timeframe)

	var query map[string]any
	require.NoError(t, json.Unmarshal(*lastBody, &query))
	assert.EqualValues(t, 50, query["size"])

	boolQuery := query["query"].(map[string]any)["bool"].(map[string]any)
	must := boolQuery["must"].([]any)
	require.Len(t, must, 2, "range filter plus agent match")

	rangeClause := must[0].(map[string]any)["range"].(map[string]any)["timestamp"].(map[string]any)
	assert.NotEmpty(t, rangeClause["gte"])

	matchClause := must[1].(map[string]any)["match"].(map[string]any)
	assert.Equal(t, "win-srv01", matchClause["agent.name"])
}

// TestAlerts_GlobalQueryOmitsAgentFilter 无主机时只有时间范围过滤
func TestAlerts_GlobalQueryOmitsAgentFilter(t *testing.T) {
	c, lastBody := newIndexerClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, searchResponse())
	})

	res := c.Alerts(context.Background(), 24, 50, "")
	require.True(t, res.Success)

	var query map[string]any
	require.NoError(t, json.Unmarshal(*lastBody, &query))
	must := query["query"].(map[string]any)["bool"].(map[string]any)["must"].([]any)
	assert.Len(t, must, 1)
}

// TestAlerts_IndexerError 后端报错时转为错误信封
func TestAlerts_IndexerError(t *testing.T) {
	c, _ := newIndexerClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, `{"error":"unavailable"}`)
	})

	res := c.Alerts(context.Background(), 24, 50, "")
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "indexer")
}

// TestCriticalAlerts_CapAndCount 明细列表截断但总数不截断
func TestCriticalAlerts_CapAndCount(t *testing.T) {
	var alerts []Alert
	for i := 0; i < 60; i++ {
		alerts = append(alerts, alertAt(14, "srv01", "critical thing"))
	}
	alerts = append(alerts, alertAt(5, "srv01", "medium thing"))

	c, _ := newIndexerClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, searchResponse(alerts...))
	})

	res := c.CriticalAlerts(context.Background(), 24, "srv01")
	require.True(t, res.Success)
	assert.Equal(t, 60, res.TotalCritical, "count is uncapped")
	assert.Len(t, res.CriticalAlerts, 50, "detail list is capped")
	assert.Equal(t, "srv01", res.Agent)
}

// TestAlertSummary_Buckets 汇总按严重度分桶
func TestAlertSummary_Buckets(t *testing.T) {
	c, _ := newIndexerClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, searchResponse(
			alertAt(14, "a", ""), alertAt(9, "a", ""), alertAt(5, "a", ""), alertAt(2, "a", ""),
		))
	})

	res := c.AlertSummary(context.Background(), 24, "")
	require.True(t, res.Success)
	assert.Equal(t, 1, res.Summary.Critical)
	assert.Equal(t, 1, res.Summary.High)
	assert.Equal(t, 1, res.Summary.Medium)
	assert.Equal(t, 1, res.Summary.Low)
	assert.Equal(t, 4, res.TotalAlerts)
}

// TestMalwareDetections_CapAndCount 明细截断到 20 条，总数不截断
func TestMalwareDetections_CapAndCount(t *testing.T) {
	var alerts []Alert
	for i := 0; i < 25; i++ {
		alerts = append(alerts, alertAt(12, "srv01", "Virus detected in /tmp/payload"))
	}
	alerts = append(alerts, alertAt(5, "srv01", "disk space low"))

	c, _ := newIndexerClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, searchResponse(alerts...))
	})

	res := c.MalwareDetections(context.Background(), 24, "srv01")
	require.True(t, res.Success)
	assert.Equal(t, 25, res.TotalDetections, "count is uncapped")
	assert.Len(t, res.MalwareDetections, 20, "detail list is capped")
	assert.Equal(t, "last 24 hours", res.Timeframe)
}

// TestFileIntegrityChanges_DefaultLimit limit<=0 时退回默认 15 条
func TestFileIntegrityChanges_DefaultLimit(t *testing.T) {
	var alerts []Alert
	for i := 0; i < 20; i++ {
		alerts = append(alerts, alertAt(7, "srv02", "File integrity checksum changed"))
	}

	c, _ := newIndexerClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, searchResponse(alerts...))
	})

	res := c.FileIntegrityChanges(context.Background(), 24, "srv02", 0)
	require.True(t, res.Success)
	assert.Len(t, res.FIMChanges, 15)
	assert.Equal(t, 15, res.TotalChanges)

	res = c.FileIntegrityChanges(context.Background(), 24, "srv02", 5)
	require.True(t, res.Success)
	assert.Len(t, res.FIMChanges, 5)
}

// TestComplianceStatus_FiltersAndCaps 只保留合规相关告警，明细截断到 15 条
func TestComplianceStatus_FiltersAndCaps(t *testing.T) {
	var alerts []Alert
	for i := 0; i < 18; i++ {
		alerts = append(alerts, alertAt(6, "srv03", "CIS benchmark check failed"))
	}
	alerts = append(alerts, alertAt(6, "srv03", "disk space low"))

	c, _ := newIndexerClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, searchResponse(alerts...))
	})

	res := c.ComplianceStatus(context.Background(), 24, "srv03")
	require.True(t, res.Success)
	assert.Equal(t, 18, res.TotalViolations, "count is uncapped")
	assert.Len(t, res.ComplianceViolations, 15, "detail list is capped")
}

// TestMalwareDetections_IndexerError 底层拉取失败时透传错误信封
func TestMalwareDetections_IndexerError(t *testing.T) {
	c, _ := newIndexerClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, `{"error":"unavailable"}`)
	})

	res := c.MalwareDetections(context.Background(), 24, "srv01")
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "indexer")
}
