package cmd

import (
	"context"
	"fmt"
	"io"
	"rpicovid/internal/archive"
	"rpicovid/internal/chrono"
	"rpicovid/internal/notify"
	"rpicovid/internal/scrapers/dashboard"
	"rpicovid/internal/store"
	"rpicovid/internal/telemetry"
	"rpicovid/internal/tracker"
	"time"
)

const (
	report_app_telemetry = "app.telemetry"
	report_schedule_run  = "schedule.run"
)

// app holds what every command shares, built from the config file.
type app struct {
	config Config
	time   chrono.StandardTime
	tel    telemetry.API
	store  store.Store
	closer io.Closer
}

func newApp(ctx context.Context) (*app, error) {
	config, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	clock, err := chrono.NewStandardTime(config.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone: %w", err)
	}

	a := &app{
		config: config,
		time:   clock,
		tel:    telemetry.NewSlogAPI(nil),
	}
	err = a.openStore(ctx)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (a *app) openStore(ctx context.Context) error {
	if a.config.Store.Kind == "file" {
		a.store = store.NewFileStore(a.config.Store.File)
		return nil
	}

	db, err := a.config.Store.dbConfig().OpenDB()
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	sqlStore, err := store.NewSQLStore(ctx, db, a.time)
	if err != nil {
		db.Close()
		return fmt.Errorf("open store: %w", err)
	}
	a.store = sqlStore
	a.closer = db
	return nil
}

func (a *app) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}

func (a *app) notifier() notify.Multi {
	notifiers := []notify.Notifier{}
	if len(a.config.Discord.Webhooks) > 0 {
		notifiers = append(notifiers, notify.NewDiscord(notify.DiscordOptions{
			Webhooks:  a.config.Discord.Webhooks,
			Username:  a.config.Discord.Username,
			AvatarUrl: a.config.Discord.AvatarUrl,
			Content:   a.config.Discord.Content,
		}, a.tel))
	}
	if a.config.Smtp.Server != "" && len(a.config.Smtp.To) > 0 {
		notifiers = append(notifiers, notify.NewEmail(notify.EmailOptions{
			Smtp: notify.SmtpConfig{
				Server:       a.config.Smtp.Server,
				Port:         a.config.Smtp.Port,
				EmailAddress: a.config.Smtp.EmailAddress,
				Password:     a.config.Smtp.Password,
			},
			To: a.config.Smtp.To,
		}, a.tel))
	}
	return notify.NewMulti(a.tel, notifiers...)
}

func (a *app) tracker() (tracker.Tracker, error) {
	source, err := dashboard.NewClient(dashboard.Options{
		Url:              a.config.Dashboard.Url,
		UserAgent:        a.config.Dashboard.UserAgent,
		Timeout:          time.Duration(a.config.Dashboard.TimeoutSeconds) * time.Second,
		Retries:          a.config.Dashboard.Retries,
		CloudflareBypass: a.config.Dashboard.CloudflareBypass,
		DumpDir:          a.config.Dashboard.DumpDir,
	}, a.time, a.tel)
	if err != nil {
		return tracker.Tracker{}, err
	}

	params := tracker.Params{
		Source:        source,
		Store:         a.store,
		Notifier:      a.notifier(),
		Time:          a.time,
		Tel:           a.tel,
		RetentionDays: a.config.RetentionDays,
	}
	if !a.config.Archive.Disabled {
		params.Archiver = archive.NewClient(a.config.Archive.Endpoint, a.tel)
	}
	return tracker.NewTracker(params)
}

// setupTelemetry installs the otel exporters from the config, the returned
// function flushes them.
func (a *app) setupTelemetry(ctx context.Context) func() {
	otel, err := telemetry.Setup(ctx, "covidtracker", a.config.Telemetry)
	if err != nil {
		a.tel.ReportWarning(report_app_telemetry, "continuing without telemetry export", err)
		return func() {}
	}
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
		defer cancel()
		err := otel.Shutdown(ctx)
		if err != nil {
			a.tel.ReportWarning(report_app_telemetry, "failed to flush telemetry", err)
		}
	}
}
