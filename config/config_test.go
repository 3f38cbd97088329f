package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setModelEnv(t *testing.T) {
	t.Helper()
	t.Setenv(EnvModelID, "gpt-4o-mini")
	t.Setenv(EnvAPIKey, "test-key")
	t.Setenv(EnvBaseURL, "http://localhost:8080/v1")
}

func TestLoad_FromEnvironment(t *testing.T) {
	setModelEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o-mini", cfg.ModelID)
	assert.Equal(t, "test-key", cfg.APIKey)
	assert.Equal(t, "http://localhost:8080/v1", cfg.BaseURL)
	assert.Equal(t, "react", cfg.Agent.Kind)
	assert.Equal(t, ".", cfg.Workspace.Root)
}

func TestLoad_MissingModelID(t *testing.T) {
	t.Setenv(EnvModelID, "")
	t.Setenv(EnvAPIKey, "key")

	_, err := Load("")
	assert.ErrorContains(t, err, EnvModelID)
}

func TestLoad_MissingAPIKey(t *testing.T) {
	t.Setenv(EnvModelID, "model")
	t.Setenv(EnvAPIKey, "")

	_, err := Load("")
	assert.ErrorContains(t, err, EnvAPIKey)
}

func TestLoad_YAMLFile(t *testing.T) {
	setModelEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
agent:
  kind: plansolve
  max_steps: 8
  max_parse_retries: 1
  timeout: 90s
  max_plan_steps: 3
workspace:
  root: /tmp/work
  hidden:
    - ".git/**"
  read_only:
    - "go.sum"
search_api_key: tvly-abc
mcp_servers:
  - name: files
    command: mcp-files
    args: ["--root", "/tmp"]
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "plansolve", cfg.Agent.Kind)
	assert.Equal(t, 8, cfg.Agent.MaxSteps)
	assert.Equal(t, 1, cfg.Agent.MaxParseRetries)
	assert.Equal(t, 90*time.Second, cfg.Agent.Timeout.Std())
	assert.Equal(t, 3, cfg.Agent.MaxPlanSteps)

	assert.Equal(t, "/tmp/work", cfg.Workspace.Root)
	assert.Equal(t, []string{".git/**"}, cfg.Workspace.Hidden)
	assert.Equal(t, []string{"go.sum"}, cfg.Workspace.ReadOnly)

	assert.Equal(t, "tvly-abc", cfg.SearchAPIKey)
	require.Len(t, cfg.MCPServers, 1)
	assert.Equal(t, "files", cfg.MCPServers[0].Name)
	assert.Equal(t, "mcp-files", cfg.MCPServers[0].Command)
	assert.Equal(t, []string{"--root", "/tmp"}, cfg.MCPServers[0].Args)
}

func TestLoad_SearchKeyFallsBackToEnv(t *testing.T) {
	setModelEnv(t)
	t.Setenv(EnvSearchAPIKey, "tvly-env")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "tvly-env", cfg.SearchAPIKey)
}

func TestLoad_Invalid(t *testing.T) {
	setModelEnv(t)
	dir := t.TempDir()

	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "unknown agent kind",
			yaml:    "agent:\n  kind: oracle\n",
			wantErr: "unknown agent kind",
		},
		{
			name:    "negative max steps",
			yaml:    "agent:\n  kind: react\n  max_steps: -1\n",
			wantErr: "max_steps",
		},
		{
			name:    "bad duration",
			yaml:    "agent:\n  kind: react\n  timeout: fast\n",
			wantErr: "invalid duration",
		},
		{
			name:    "mcp server without command",
			yaml:    "mcp_servers:\n  - name: files\n",
			wantErr: "name and command",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(dir, tc.name+".yaml")
			require.NoError(t, os.WriteFile(path, []byte(tc.yaml), 0o644))

			_, err := Load(path)
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	setModelEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
