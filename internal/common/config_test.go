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
	path := filepath.Join(t.TempDir(), "speckle-accounts.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestNewDefaultConfig(t *testing.T) {
	config := NewDefaultConfig()

	assert.Equal(t, 29363, config.Auth.CallbackPort)
	assert.Equal(t, "sca", config.Auth.AppID)
	assert.Equal(t, "Accounts", config.Accounts.Scope)
	assert.Equal(t, "sqlite", config.Storage.Type)
	assert.Equal(t, 2*time.Minute, config.LoginTimeout())
	assert.NoError(t, config.Validate())
}

func TestLoadFromFiles_LaterFileWins(t *testing.T) {
	base := writeConfig(t, `
[auth]
callback_port = 30000
login_timeout = "30s"

[storage]
type = "badger"
`)
	override := writeConfig(t, `
[auth]
callback_port = 30001
`)

	config, err := LoadFromFiles(base, override)
	require.NoError(t, err)

	assert.Equal(t, 30001, config.Auth.CallbackPort)
	assert.Equal(t, 30*time.Second, config.LoginTimeout())
	assert.Equal(t, "badger", config.Storage.Type)
	assert.Equal(t, "sca", config.Auth.AppSecret, "unset keys keep defaults")
}

func TestLoadFromFiles_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
[logging]
level = "warn"
`)
	t.Setenv("SPECKLE_LOG_LEVEL", "debug")
	t.Setenv("SPECKLE_CALLBACK_PORT", "31000")
	t.Setenv("SPECKLE_ACCOUNTS_DIR", "/tmp/accounts")

	config, err := LoadFromFiles(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", config.Logging.Level)
	assert.Equal(t, 31000, config.Auth.CallbackPort)
	assert.Equal(t, "/tmp/accounts", config.Accounts.Dir)
}

func TestLoadFromFiles_Invalid(t *testing.T) {
	_, err := LoadFromFiles(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)

	path := writeConfig(t, `
[storage]
type = "postgres"
`)
	_, err = LoadFromFiles(path)
	assert.ErrorContains(t, err, "unsupported storage type")

	path = writeConfig(t, `
[refresh]
enabled = true
schedule = "every now and then"
`)
	_, err = LoadFromFiles(path)
	assert.ErrorContains(t, err, "invalid refresh schedule")
}

func TestApplyFlagOverrides(t *testing.T) {
	config := NewDefaultConfig()
	ApplyFlagOverrides(config, "error", 40000)

	assert.Equal(t, "error", config.Logging.Level)
	assert.Equal(t, 40000, config.Auth.CallbackPort)

	ApplyFlagOverrides(config, "", 0)
	assert.Equal(t, "error", config.Logging.Level)
	assert.Equal(t, 40000, config.Auth.CallbackPort)
}

func TestValidateSchedule(t *testing.T) {
	assert.NoError(t, ValidateSchedule("@every 15m"))
	assert.NoError(t, ValidateSchedule("*/5 * * * *"))
	assert.Error(t, ValidateSchedule(""))
	assert.Error(t, ValidateSchedule("not a schedule"))
}
