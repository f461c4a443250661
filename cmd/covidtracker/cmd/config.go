package cmd

import (
	"errors"
	"os"
	"rpicovid/internal/store"
	"rpicovid/internal/telemetry"
	"rpicovid/lib/configutil"
)

type DashboardConfig struct {
	Url              string `json:"url"`
	UserAgent        string `json:"user_agent"`
	TimeoutSeconds   int    `json:"timeout_seconds"`
	Retries          int    `json:"retries"`
	CloudflareBypass bool   `json:"cloudflare_bypass"`
	// DumpDir keeps every http exchange with the dashboard for debugging.
	DumpDir string `json:"dump_dir"`
}

type StoreConfig struct {
	// Kind is one of "file", "sqlite" or "libsql".
	Kind      string `json:"kind"`
	File      string `json:"file"`
	Url       string `json:"url"`
	AuthToken string `json:"auth_token"`
}

type DiscordConfig struct {
	Webhooks  []string `json:"webhooks"`
	Username  string   `json:"username"`
	AvatarUrl string   `json:"avatar_url"`
	Content   string   `json:"content"`
}

type SmtpConfig struct {
	Server       string   `json:"server"`
	Port         int      `json:"port"`
	EmailAddress string   `json:"email_address"`
	Password     string   `json:"password"`
	To           []string `json:"to"`
}

type ArchiveConfig struct {
	Disabled bool   `json:"disabled"`
	Endpoint string `json:"endpoint"`
}

type Config struct {
	// Timezone the dashboard's days are counted in.
	Timezone      string           `json:"timezone"`
	RetentionDays int              `json:"retention_days"`
	Dashboard     DashboardConfig  `json:"dashboard"`
	Store         StoreConfig      `json:"store"`
	Discord       DiscordConfig    `json:"discord"`
	Smtp          SmtpConfig       `json:"smtp"`
	Archive       ArchiveConfig    `json:"archive"`
	Telemetry     telemetry.Config `json:"telemetry"`
}

const (
	envDiscordWebhooks = "COVIDTRACKER_DISCORD_WEBHOOKS"
	envSmtpPassword    = "COVIDTRACKER_SMTP_PASSWORD"
	envStoreAuthToken  = "COVIDTRACKER_STORE_AUTH_TOKEN"
)

// loadConfig reads the config file and its local override, a missing file
// leaves every setting at its default. Secrets set in the environment take
// precedence over the file.
func loadConfig(path string) (Config, error) {
	err := configutil.LoadEnv(".env")
	if err != nil {
		return Config{}, err
	}

	config, err := configutil.ReadConfig[Config](path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, err
	}

	if webhooks := configutil.EnvList(envDiscordWebhooks); len(webhooks) > 0 {
		config.Discord.Webhooks = webhooks
	}
	if password := os.Getenv(envSmtpPassword); password != "" {
		config.Smtp.Password = password
	}
	if token := os.Getenv(envStoreAuthToken); token != "" {
		config.Store.AuthToken = token
	}

	if config.Store.Kind == "" {
		config.Store.Kind = "file"
	}
	if config.Store.Kind == "file" && config.Store.File == "" {
		config.Store.File = "history.json"
	}
	return config, nil
}

func (c StoreConfig) dbConfig() store.DBConfig {
	return store.DBConfig{
		Kind:      c.Kind,
		File:      c.File,
		Url:       c.Url,
		AuthToken: c.AuthToken,
	}
}
