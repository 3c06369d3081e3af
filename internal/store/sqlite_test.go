package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	st, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

// TestSaveMessage_Ordering 消息按插入顺序返回
func TestSaveMessage_Ordering(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	for _, content := range []string{"one", "two", "three"} {
		_, err := st.SaveMessage(ctx, "user", content, "s1")
		require.NoError(t, err)
	}

	msgs, err := st.Messages(ctx, "s1", 0)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "one", msgs[0].Content)
	assert.Equal(t, "three", msgs[2].Content)
}

// TestMessages_LimitKeepsMostRecent limit 保留最新的 N 条，仍按时间正序
func TestMessages_LimitKeepsMostRecent(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	for _, content := range []string{"a", "b", "c", "d"} {
		_, err := st.SaveMessage(ctx, "user", content, "s1")
		require.NoError(t, err)
	}

	msgs, err := st.Messages(ctx, "s1", 2)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "c", msgs[0].Content)
	assert.Equal(t, "d", msgs[1].Content)
}

// TestMessages_SessionIsolation 会话之间互不可见
func TestMessages_SessionIsolation(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	_, err := st.SaveMessage(ctx, "user", "in s1", "s1")
	require.NoError(t, err)
	_, err = st.SaveMessage(ctx, "user", "in s2", "s2")
	require.NoError(t, err)

	msgs, err := st.Messages(ctx, "s1", 0)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "in s1", msgs[0].Content)
}

// TestSaveProactiveAgent_Upsert 同名保存是替换而不是追加
func TestSaveProactiveAgent_Upsert(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.SaveProactiveAgent(ctx, "x", "p1", 10))
	require.NoError(t, st.SaveProactiveAgent(ctx, "x", "p2", 20))

	agents, err := st.ProactiveAgents(ctx, false)
	require.NoError(t, err)
	require.Len(t, agents, 1, "upsert must not duplicate")
	assert.Equal(t, "x", agents[0].Name)
	assert.Equal(t, "p2", agents[0].Prompt)
	assert.Equal(t, 20, agents[0].IntervalMinutes)
	assert.True(t, agents[0].Enabled)
}

// TestUpdateProactiveAgentLastRun last_run 从空到有值
func TestUpdateProactiveAgentLastRun(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.SaveProactiveAgent(ctx, "daily-scan", "check alerts", 30))

	agents, err := st.ProactiveAgents(ctx, false)
	require.NoError(t, err)
	require.Nil(t, agents[0].LastRun)

	require.NoError(t, st.UpdateProactiveAgentLastRun(ctx, "daily-scan"))

	agents, err = st.ProactiveAgents(ctx, false)
	require.NoError(t, err)
	require.NotNil(t, agents[0].LastRun)
}

// TestDeleteProactiveAgent_UnknownName 删除不存在的名称不报错
func TestDeleteProactiveAgent_UnknownName(t *testing.T) {
	st := newTestStore(t)
	assert.NoError(t, st.DeleteProactiveAgent(context.Background(), "never-registered"))
}

// TestPreferences_SingletonSeed 偏好单行在建库时播种
func TestPreferences_SingletonSeed(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	prefs, err := st.Preferences(ctx)
	require.NoError(t, err)
	assert.False(t, prefs.ProactiveEnabled)
	assert.Equal(t, 60, prefs.ProactiveInterval)

	require.NoError(t, st.UpdatePreferences(ctx, true, 15))

	prefs, err = st.Preferences(ctx)
	require.NoError(t, err)
	assert.True(t, prefs.ProactiveEnabled)
	assert.Equal(t, 15, prefs.ProactiveInterval)
}

// TestToolLogs 工具调用日志按会话过滤
func TestToolLogs(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	_, err := st.SaveToolLog(ctx, "proactive:daily-scan", "succeeded on attempt 1", "s1")
	require.NoError(t, err)
	_, err = st.SaveToolLog(ctx, "health_check", "manual", "s2")
	require.NoError(t, err)

	logs, err := st.ToolLogs(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "proactive:daily-scan", logs[0].ToolName)
}

// TestDeleteSession 同时清掉消息和工具日志
func TestDeleteSession(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	_, err := st.SaveMessage(ctx, "user", "hi", "gone")
	require.NoError(t, err)
	_, err = st.SaveToolLog(ctx, "health_check", "manual", "gone")
	require.NoError(t, err)
	_, err = st.SaveMessage(ctx, "user", "hi", "kept")
	require.NoError(t, err)

	require.NoError(t, st.DeleteSession(ctx, "gone"))

	msgs, err := st.Messages(ctx, "gone", 0)
	require.NoError(t, err)
	assert.Empty(t, msgs)
	logs, err := st.ToolLogs(ctx, "gone")
	require.NoError(t, err)
	assert.Empty(t, logs)

	msgs, err = st.Messages(ctx, "kept", 0)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
}

// TestSessionStats 统计消息数与工具调用数
func TestSessionStats(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	_, err := st.SaveMessage(ctx, "user", "q", "s1")
	require.NoError(t, err)
	_, err = st.SaveMessage(ctx, "assistant", "a", "s1")
	require.NoError(t, err)
	_, err = st.SaveToolLog(ctx, "health_check", "manual", "s1")
	require.NoError(t, err)

	stats, err := st.SessionStats(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalMessages)
	assert.Equal(t, 1, stats.MessageCounts["user"])
	assert.Equal(t, 1, stats.MessageCounts["assistant"])
	assert.Equal(t, 1, stats.ToolUsage)
	require.NotNil(t, stats.FirstMessage)
	require.NotNil(t, stats.LastMessage)
}
