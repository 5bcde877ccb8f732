package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "setup.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, `
[app]
base_url = "http://localhost:8585/"
`)

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8585", config.BaseURL())
	assert.Equal(t, "/my-data", config.App.HomePath)
	assert.True(t, config.Browser.Headless)
	assert.Equal(t, 1920, config.Browser.WindowWidth)
	assert.Equal(t, 30*time.Second, config.Browser.ActionTimeoutDuration())
	assert.Equal(t, 11*time.Minute, config.Run.StepTimeoutDuration())
	assert.Equal(t, "on-first-retry", config.Run.Trace)
	assert.Equal(t, 1, config.Run.Retries)
	assert.Equal(t, []string{"console"}, config.Logging.Output)
	assert.Equal(t, 5*time.Minute, config.Ingestion.StatusTimeoutDuration())
}

func TestLoadConfigFileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
[app]
base_url = "http://om.local:8585"

[browser]
headless = false
action_timeout = "45s"

[run]
retries = 2
trace = "retain-on-failure"
tags = ["@ingestion"]

[credentials]
MYSQL_USERNAME = "openmetadata_user"
`)

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.False(t, config.Browser.Headless)
	assert.Equal(t, 45*time.Second, config.Browser.ActionTimeoutDuration())
	assert.Equal(t, 2, config.Run.Retries)
	assert.Equal(t, "retain-on-failure", config.Run.Trace)
	assert.Equal(t, []string{"@ingestion"}, config.Run.Tags)
	assert.Equal(t, "openmetadata_user", config.Credential("MYSQL_USERNAME"))
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
[app]
base_url = "http://localhost:8585"
`)
	t.Setenv("E2E_BASE_URL", "http://ci-host:8585")
	t.Setenv("E2E_RETRIES", "3")
	t.Setenv("E2E_TAGS", "@ingestion\n Mysql\n")
	t.Setenv("E2E_HEADLESS", "false")

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "http://ci-host:8585", config.BaseURL())
	assert.Equal(t, 3, config.Run.Retries)
	assert.Equal(t, []string{"@ingestion", "Mysql"}, config.Run.Tags)
	assert.False(t, config.Browser.Headless)
}

func TestLoadConfigTagsKeepRegexCommas(t *testing.T) {
	path := writeConfig(t, `
[app]
base_url = "http://localhost:8585"
`)
	t.Setenv("E2E_TAGS", "Create & Ingest a{1,2}\n(Postgres|Mysql),?")

	config, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Create & Ingest a{1,2}", "(Postgres|Mysql),?"}, config.Run.Tags)
}

func TestLoadConfigOSSDisablesTrace(t *testing.T) {
	path := writeConfig(t, `
[app]
base_url = "http://localhost:8585"
`)
	t.Setenv("E2E_IS_OSS", "true")

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.True(t, config.Run.IsOSS)
	assert.Equal(t, "off", config.Run.Trace)
}

func TestLoadConfigOSSKeepsExplicitTrace(t *testing.T) {
	path := writeConfig(t, `
[app]
base_url = "http://localhost:8585"
`)
	t.Setenv("E2E_IS_OSS", "1")
	t.Setenv("E2E_TRACE", "on")

	config, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "on", config.Run.Trace)
}

func TestLoadConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing base url", `[app]
home_path = "/my-data"`},
		{"bad trace mode", `[app]
base_url = "http://localhost:8585"
[run]
trace = "sometimes"`},
		{"bad duration", `[app]
base_url = "http://localhost:8585"
[browser]
action_timeout = "thirty"`},
		{"negative retries", `[app]
base_url = "http://localhost:8585"
[run]
retries = -1`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfigInvalidEnv(t *testing.T) {
	path := writeConfig(t, `
[app]
base_url = "http://localhost:8585"
`)
	t.Setenv("E2E_IS_OSS", "maybe")

	_, err := LoadConfig(path)
	assert.ErrorContains(t, err, "E2E_IS_OSS")
}

func TestCredentialFallsBackToEnv(t *testing.T) {
	t.Setenv("KAFKA_BOOTSTRAP_SERVERS", "localhost:9092")
	config := NewDefaultConfig()

	assert.Equal(t, "localhost:9092", config.Credential("KAFKA_BOOTSTRAP_SERVERS"))
	assert.Empty(t, config.Credential("NOT_SET_ANYWHERE_E2E"))
}

func TestLoadConfigResolvesCredentialReferences(t *testing.T) {
	t.Setenv("CI_MYSQL_SECRET", "s3cret")
	path := writeConfig(t, `
[app]
base_url = "http://localhost:8585"

[credentials]
MYSQL_PASSWORD = "{CI_MYSQL_SECRET}"
MYSQL_HOST_PORT = "{CI_MYSQL_HOST_NOT_SET_E2E}"
`)

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "s3cret", config.Credential("MYSQL_PASSWORD"))
	assert.Equal(t, []string{"MYSQL_HOST_PORT"}, config.UnresolvedCredentials)
}
