package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kairoslabs/agentcore/pkg/config"
)

func TestDefaults_ProducesValidZeroConfig(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	cfg := config.Defaults()
	require.NoError(t, cfg.Validate())
	require.Equal(t, "agent", cfg.Name)
	require.Equal(t, 10, cfg.MaxIterations)
}

func TestDefaults_MissingAPIKeyFailsValidation(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	cfg := config.Defaults()
	require.Error(t, cfg.Validate())
}

func TestLoad_ExpandsEnvVarsAndAppliesDefaults(t *testing.T) {
	t.Setenv("TEST_AGENT_API_KEY", "sk-from-env")

	dir := t.TempDir()
	path := filepath.Join(dir, "agent.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: weather-agent
system_prompt: "You help with weather."
llm:
  provider: openai
  model: gpt-4o-mini
  api_key: ${TEST_AGENT_API_KEY}
`), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, "weather-agent", cfg.Name)
	require.Equal(t, "sk-from-env", cfg.LLM.APIKey)
	require.Equal(t, 10, cfg.MaxIterations) // default applied
}

func TestLoad_ParsesFeatureSwitches(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "agent.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: planner-agent
llm:
  api_key: sk-test
features:
  plan: true
  tasks: true
  memory: true
  sub_agents: true
  human_in_loop: true
`), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.True(t, cfg.Features.Plan)
	require.True(t, cfg.Features.Tasks)
	require.True(t, cfg.Features.Memory)
	require.True(t, cfg.Features.SubAgents)
	require.True(t, cfg.Features.HumanInLoop)
}

func TestLoad_MissingFileErrors(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestLoad_InvalidProviderFailsValidation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "agent.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: broken
llm:
  provider: not-a-real-provider
  api_key: sk-test
`), 0o644))

	_, err := config.Load(path)
	require.Error(t, err)
}
