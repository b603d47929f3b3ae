package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PROJECT_ENDPOINT", "")
	t.Setenv("AGENT_MODEL_DEPLOYMENT_NAME", "")
	t.Setenv("AZURE_API_KEY", "")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "data/input", cfg.Dirs.Data)
	assert.Equal(t, "data/output", cfg.Dirs.Output)
	assert.Equal(t, "Environment_Segregation_Register.xlsx", cfg.Source.Workbook)
	assert.Equal(t, 10, cfg.Analysis.BatchSize)
	assert.Equal(t, "Development", cfg.Analysis.Environment)
	assert.Equal(t, 5, cfg.Scheduler.IntervalMinutes)
	assert.Equal(t, "envsegd.log", cfg.Log.File)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9090
  apiKey: sekret
analysis:
  batchSize: 25
  environment: Production
scheduler:
  intervalMinutes: 15
  durationMinutes: 60
database:
  driver: postgres
  host: db.local
  port: 5432
  user: envsegd
  password: pw
  name: audits
log:
  level: debug
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "sekret", cfg.Server.APIKey)
	assert.Equal(t, 25, cfg.Analysis.BatchSize)
	assert.Equal(t, "Production", cfg.Analysis.Environment)
	assert.Equal(t, 15*60, int(cfg.Interval().Seconds()))
	assert.Equal(t, 60*60, int(cfg.Duration().Seconds()))
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel())
	assert.Equal(t, "host=db.local port=5432 user=envsegd password=pw dbname=audits sslmode=disable", cfg.PostgresDSN())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestAgentsComeFromEnvironmentOnly(t *testing.T) {
	t.Setenv("PROJECT_ENDPOINT", "https://aiproj.example.com")
	t.Setenv("AGENT_MODEL_DEPLOYMENT_NAME", "gpt-4o")
	t.Setenv("AZURE_API_KEY", "key-123")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "https://aiproj.example.com", cfg.Agents.Endpoint)
	assert.Equal(t, "gpt-4o", cfg.Agents.Deployment)
	assert.Equal(t, "key-123", cfg.Agents.APIKey)
	assert.NoError(t, cfg.ValidateAgents())
}

func TestValidateAgentsListsMissingVariables(t *testing.T) {
	t.Setenv("PROJECT_ENDPOINT", "")
	t.Setenv("AGENT_MODEL_DEPLOYMENT_NAME", "gpt-4o")
	t.Setenv("AZURE_API_KEY", "")

	cfg, err := Load("")
	require.NoError(t, err)
	err = cfg.ValidateAgents()
	require.Error(t, err)
	assert.ErrorContains(t, err, "PROJECT_ENDPOINT")
	assert.ErrorContains(t, err, "AZURE_API_KEY")
	assert.NotContains(t, err.Error(), "AGENT_MODEL_DEPLOYMENT_NAME")
}

func TestMySQLDSN(t *testing.T) {
	cfg := &Config{}
	cfg.Database.User = "envsegd"
	cfg.Database.Password = "pw"
	cfg.Database.Host = "db.local"
	cfg.Database.Port = 3306
	cfg.Database.Name = "audits"
	assert.Equal(t, "envsegd:pw@tcp(db.local:3306)/audits?parseTime=true&charset=utf8mb4&loc=UTC", cfg.MySQLDSN())
}

func TestLogLevelFallsBackToInfo(t *testing.T) {
	cfg := &Config{}
	cfg.Log.Level = "verbose"
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel())
}
