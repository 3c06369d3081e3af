package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Loader 配置加载器
type Loader struct {
	configPath string
	config     *Config
	mu         sync.RWMutex
	validator  *validator.Validate
}

// NewLoader 创建配置加载器
// configPath: 配置文件路径 (如 "./config.toml")
func NewLoader(configPath string) *Loader {
	return &Loader{
		configPath: configPath,
		validator:  validator.New(),
	}
}

// Load 加载并解析配置
// 先加载同目录下的 .env（如果存在），再展开 ${VAR} 占位符并解析 TOML
func (l *Loader) Load() (*Config, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	envPath := filepath.Join(filepath.Dir(l.configPath), ".env")
	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			return nil, fmt.Errorf("load .env file: %w", err)
		}
	}

	content, err := os.ReadFile(l.configPath)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if _, err := toml.Decode(expandEnv(string(content)), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()

	if err := l.validator.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	l.config = &cfg
	return &cfg, nil
}

// expandEnv 展开环境变量占位符
// 支持 ${VAR} 和 ${VAR:default} 语法
func expandEnv(s string) string {
	re := regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		groups := re.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}

		varName := groups[1]
		defaultVal := ""
		if len(groups) >= 3 {
			defaultVal = groups[2]
		}

		if val := os.Getenv(varName); val != "" {
			return val
		}
		return defaultVal
	})
}

// Get 线程安全地获取当前配置
func (l *Loader) Get() *Config {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.config
}

// ConfigPath 获取配置文件路径
func (l *Loader) ConfigPath() string {
	return l.configPath
}

// GetAgentConfig 获取指定 agent 的配置
func (c *Config) GetAgentConfig(name string) (*AgentConfig, error) {
	agent, ok := c.Agents[name]
	if !ok {
		return nil, fmt.Errorf("agent config %s not found", name)
	}
	return &agent, nil
}
