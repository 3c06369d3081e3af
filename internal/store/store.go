// Package store provides durable storage for chat messages, tool invocation
// logs, user preferences, and proactive agent configurations.
package store

import (
	"context"
	"time"
)

// Message is one chat turn, append-only within a session.
type Message struct {
	ID        int64     `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	SessionID string    `json:"session_id"`
}

// ToolLog is an audit record of a monitoring-API or scheduled-task execution.
type ToolLog struct {
	ID        int64     `json:"id"`
	ToolName  string    `json:"tool_name"`
	Usage     string    `json:"usage"`
	Timestamp time.Time `json:"timestamp"`
	SessionID string    `json:"session_id"`
}

// ProactiveAgent is a named recurring prompt. Name is the sole identity;
// saving an existing name replaces prompt and interval.
type ProactiveAgent struct {
	Name            string     `json:"name"`
	Prompt          string     `json:"prompt"`
	IntervalMinutes int        `json:"interval_minutes"`
	Enabled         bool       `json:"enabled"`
	LastRun         *time.Time `json:"last_run,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Preferences is the singleton UI default record.
type Preferences struct {
	ProactiveEnabled  bool `json:"proactive_enabled"`
	ProactiveInterval int  `json:"proactive_interval"`
}

// SessionStats summarizes one chat session.
type SessionStats struct {
	SessionID     string         `json:"session_id"`
	MessageCounts map[string]int `json:"message_counts"`
	TotalMessages int            `json:"total_messages"`
	FirstMessage  *time.Time     `json:"first_message,omitempty"`
	LastMessage   *time.Time     `json:"last_message,omitempty"`
	ToolUsage     int            `json:"tool_usage_count"`
}

// Store is the record store consumed by the analyst and the scheduler.
type Store interface {
	SaveMessage(ctx context.Context, role, content, sessionID string) (int64, error)
	Messages(ctx context.Context, sessionID string, limit int) ([]Message, error)

	SaveToolLog(ctx context.Context, toolName, usage, sessionID string) (int64, error)
	ToolLogs(ctx context.Context, sessionID string) ([]ToolLog, error)

	Preferences(ctx context.Context) (Preferences, error)
	UpdatePreferences(ctx context.Context, enabled bool, interval int) error

	SaveProactiveAgent(ctx context.Context, name, prompt string, intervalMinutes int) error
	ProactiveAgents(ctx context.Context, enabledOnly bool) ([]ProactiveAgent, error)
	UpdateProactiveAgentLastRun(ctx context.Context, name string) error
	DeleteProactiveAgent(ctx context.Context, name string) error

	Sessions(ctx context.Context) ([]string, error)
	SessionStats(ctx context.Context, sessionID string) (SessionStats, error)
	DeleteSession(ctx context.Context, sessionID string) error

	Ping(ctx context.Context) error
	Close() error
}
