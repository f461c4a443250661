package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	config, err := loadConfig(filepath.Join(t.TempDir(), "config.json5"))
	require.NoError(t, err)
	require.Equal(t, "file", config.Store.Kind)
	require.Equal(t, "history.json", config.Store.File)
	require.Empty(t, config.Discord.Webhooks)
}

func TestLoadConfigOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json5")
	require.NoError(t, os.WriteFile(path, []byte(`{
		// checked every half hour
		timezone: "America/New_York",
		store: { kind: "sqlite", file: "state.db" },
		discord: { webhooks: ["https://discord.com/api/webhooks/1/file"] },
		smtp: { server: "smtp.example.com", port: 587, password: "from-file" }
	}`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.local.json5"), []byte(`{
		retention_days: 45
	}`), 0644))

	t.Setenv(envDiscordWebhooks, "https://discord.com/api/webhooks/2/env, https://discord.com/api/webhooks/3/env")
	t.Setenv(envSmtpPassword, "from-env")

	config, err := loadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "sqlite", config.Store.Kind)
	require.Equal(t, "state.db", config.Store.File)
	require.Equal(t, 45, config.RetentionDays)
	require.Equal(t, []string{
		"https://discord.com/api/webhooks/2/env",
		"https://discord.com/api/webhooks/3/env",
	}, config.Discord.Webhooks)
	require.Equal(t, "from-env", config.Smtp.Password)
	require.Equal(t, 587, config.Smtp.Port)
}
