package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sachinn-p/CHATSEC-SOC-Agent/config"
)

// TestFactory_Build_OpenAI 使用配置中的 api_key 构建 openai 模型
func TestFactory_Build_OpenAI(t *testing.T) {
	f := NewFactory()
	model, err := f.Build(context.Background(), config.AgentLLMConfig{
		Provider: "openai",
		Model:    "gpt-4o-mini",
		APIKey:   "test-key",
	})
	require.NoError(t, err)
	assert.NotNil(t, model)
}

// TestFactory_Build_ProviderCaseInsensitive provider 名称不区分大小写
func TestFactory_Build_ProviderCaseInsensitive(t *testing.T) {
	f := NewFactory()
	_, err := f.Build(context.Background(), config.AgentLLMConfig{
		Provider: " OpenAI ",
		Model:    "gpt-4o-mini",
		APIKey:   "test-key",
	})
	assert.NoError(t, err)
}

// TestFactory_Build_MissingModel 缺少 model 时校验失败
func TestFactory_Build_MissingModel(t *testing.T) {
	f := NewFactory()
	_, err := f.Build(context.Background(), config.AgentLLMConfig{
		Provider: "openai",
		APIKey:   "test-key",
	})
	assert.Error(t, err)
}

// TestFactory_Build_UnsupportedProvider 不支持的 provider 被拒绝
func TestFactory_Build_UnsupportedProvider(t *testing.T) {
	f := NewFactory()
	_, err := f.Build(context.Background(), config.AgentLLMConfig{
		Provider: "llama-at-home",
		Model:    "x",
		APIKey:   "test-key",
	})
	assert.Error(t, err)
}

// TestFactory_Build_MissingAPIKey 配置和环境变量都没有 key 时报错
func TestFactory_Build_MissingAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	f := NewFactory()
	_, err := f.Build(context.Background(), config.AgentLLMConfig{
		Provider: "openai",
		Model:    "gpt-4o-mini",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api key")
}

// TestFactory_Build_APIKeyFromEnv 配置为空时回退到环境变量
func TestFactory_Build_APIKeyFromEnv(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "env-key")
	f := NewFactory()
	_, err := f.Build(context.Background(), config.AgentLLMConfig{
		Provider: "openai",
		Model:    "gpt-4o-mini",
	})
	assert.NoError(t, err)
}

// TestModelRegistry 注册与查找
func TestModelRegistry(t *testing.T) {
	f := NewFactory()
	model, err := f.Build(context.Background(), config.AgentLLMConfig{
		Provider: "openai",
		Model:    "gpt-4o-mini",
		APIKey:   "test-key",
	})
	require.NoError(t, err)

	r := NewModelRegistry()
	r.Register("analyst", model)

	got, err := r.Get("analyst")
	require.NoError(t, err)
	assert.Equal(t, model, got)

	_, err = r.Get("nonexistent")
	assert.Error(t, err)
}
