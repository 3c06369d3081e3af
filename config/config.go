package config

import "time"

// Config 根配置结构
type Config struct {
	App       AppConfig              `toml:"app" validate:"required"`
	Log       LogConfig              `toml:"log"`
	Database  DatabaseConfig         `toml:"database"`
	Wazuh     WazuhConfig            `toml:"wazuh" validate:"required"`
	Indexer   IndexerConfig          `toml:"indexer" validate:"required"`
	Chat      ChatConfig             `toml:"chat"`
	Proactive ProactiveConfig        `toml:"proactive"`
	Agents    map[string]AgentConfig `toml:"agents" validate:"dive"`
}

// AppConfig 应用全局配置
type AppConfig struct {
	Name     string `toml:"name" validate:"required"`
	MaxSteps int    `toml:"max_steps"`
}

type LogConfig struct {
	Level  string `toml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `toml:"format" validate:"omitempty,oneof=text json"`
	Output string `toml:"output"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

// WazuhConfig Wazuh manager REST API 配置
type WazuhConfig struct {
	Host      string   `toml:"host" validate:"required"`
	Port      int      `toml:"port" validate:"required,min=1,max=65535"`
	Username  string   `toml:"username" validate:"required"`
	Password  string   `toml:"password" validate:"required"`
	VerifySSL bool     `toml:"verify_ssl"`
	Timeout   Duration `toml:"timeout"`
}

// IndexerConfig Wazuh indexer (OpenSearch) 配置
type IndexerConfig struct {
	Addresses []string `toml:"addresses" validate:"required,min=1,dive,url"`
	Username  string   `toml:"username" validate:"required"`
	Password  string   `toml:"password" validate:"required"`
	Index     string   `toml:"index" validate:"required"`
}

type ChatConfig struct {
	SessionID string `toml:"session_id"`
	MaxRecent int    `toml:"max_recent"`
}

// ProactiveConfig 周期任务默认配置
type ProactiveConfig struct {
	Enabled         bool     `toml:"enabled"`
	DefaultInterval int      `toml:"default_interval" validate:"omitempty,min=1"`
	MaxRetries      int      `toml:"max_retries" validate:"omitempty,min=0"`
	RetryDelay      Duration `toml:"retry_delay"`
}

type AgentConfig struct {
	Enabled bool           `toml:"enabled"`
	LLM     AgentLLMConfig `toml:"llm"`
}

// AgentLLMConfig 每个 agent 的 LLM 配置
type AgentLLMConfig struct {
	Provider    string   `toml:"provider" validate:"required,oneof=openai anthropic gemini"`
	Model       string   `toml:"model" validate:"required"`
	APIKey      string   `toml:"api_key"`
	BaseURL     string   `toml:"base_url"`
	Timeout     string   `toml:"timeout"`
	MaxTokens   *int     `toml:"max_tokens"`
	Temperature *float64 `toml:"temperature"`
}

func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Database.Path == "" {
		c.Database.Path = "chat_logs.db"
	}
	if c.Chat.SessionID == "" {
		c.Chat.SessionID = "default"
	}
	if c.Chat.MaxRecent == 0 {
		c.Chat.MaxRecent = 5
	}
	if c.App.MaxSteps == 0 {
		c.App.MaxSteps = 10
	}
	if c.Proactive.DefaultInterval == 0 {
		c.Proactive.DefaultInterval = 60
	}
	if c.Proactive.MaxRetries == 0 {
		c.Proactive.MaxRetries = 2
	}
	if c.Proactive.RetryDelay.Duration == 0 {
		c.Proactive.RetryDelay = Duration{Duration: 5 * time.Second}
	}
	if c.Wazuh.Timeout.Duration == 0 {
		c.Wazuh.Timeout = Duration{Duration: 10 * time.Second}
	}
}
