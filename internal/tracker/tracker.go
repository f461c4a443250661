package tracker

import (
	"context"
	"errors"
	"fmt"
	"rpicovid/internal/change"
	"rpicovid/internal/chart"
	"rpicovid/internal/chrono"
	"rpicovid/internal/history"
	"rpicovid/internal/notify"
	"rpicovid/internal/store"
	"rpicovid/internal/telemetry"

	"github.com/mazen160/go-random"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

const (
	report_tracker_run     = "tracker.run"
	report_tracker_archive = "tracker.archive"
	report_tracker_chart   = "tracker.chart"
	report_tracker_notify  = "tracker.notify"
)

var (
	tracer = otel.Tracer("rpicovid/internal/tracker")
	meter  = otel.Meter("rpicovid/internal/tracker")
)

// ErrNotifyFailed is returned by Run when the update was saved but could not
// be delivered by every notifier.
var ErrNotifyFailed = errors.New("notification failed")

// ErrFutureSnapshot is returned by Run when the source dates its snapshot
// after the current day, storing it would reject every later update.
var ErrFutureSnapshot = errors.New("snapshot dated in the future")

// Source supplies dashboard snapshots.
type Source interface {
	Url() string
	Fetch(ctx context.Context) (history.Snapshot, error)
}

// Archiver keeps a copy of the dashboard page.
type Archiver interface {
	Capture(ctx context.Context, target string) (string, error)
}

type Options struct {
	// CI skips archiving the dashboard.
	CI bool
	// Force notifies even when the change is not significant.
	Force bool
}

type Result struct {
	RunID string

	Previous history.Counts
	Current  history.Counts

	RollingSum         int
	PreviousRollingSum int

	Significant bool
	// Posted is set when every notifier accepted the update.
	Posted bool
	Saved  bool
}

type Params struct {
	Source   Source
	Store    store.Store
	Notifier notify.Notifier
	// Archiver may be nil, archiving is skipped then.
	Archiver Archiver
	Time     chrono.TimeAPI
	Tel      telemetry.API
	// RetentionDays is how many days of daily counts are kept, 0 keeps the
	// history default.
	RetentionDays int
	ChartTitle    string
}

type Tracker struct {
	source        Source
	store         store.Store
	notifier      notify.Notifier
	archiver      Archiver
	time          chrono.TimeAPI
	tel           telemetry.API
	retentionDays int
	chartTitle    string

	rollingSumGauge metric.Int64Gauge
	newCasesGauge   metric.Int64Gauge
}

func NewTracker(p Params) (Tracker, error) {
	if p.Source == nil || p.Store == nil || p.Notifier == nil || p.Time == nil || p.Tel == nil {
		return Tracker{}, fmt.Errorf("tracker: source, store, notifier, time and telemetry are required")
	}
	if p.ChartTitle == "" {
		p.ChartTitle = "RPI positive tests"
	}

	rollingSumGauge, err := meter.Int64Gauge(
		"covid.rolling_sum",
		metric.WithDescription(fmt.Sprintf("Positive tests over the last %d days.", history.WindowDays)),
	)
	if err != nil {
		return Tracker{}, err
	}
	newCasesGauge, err := meter.Int64Gauge(
		"covid.new_cases",
		metric.WithDescription("Positive tests reported in the last 24 hours."),
	)
	if err != nil {
		return Tracker{}, err
	}

	return Tracker{
		source:          p.Source,
		store:           p.Store,
		notifier:        p.Notifier,
		archiver:        p.Archiver,
		time:            p.Time,
		tel:             telemetry.NewScopedAPI("tracker", p.Tel),
		retentionDays:   p.RetentionDays,
		chartTitle:      p.ChartTitle,
		rollingSumGauge: rollingSumGauge,
		newCasesGauge:   newCasesGauge,
	}, nil
}

// Load returns the stored history, or an empty one when nothing usable is
// stored.
func (t Tracker) Load(ctx context.Context) *history.History {
	h := store.LoadOrNew(ctx, t.store, t.tel)
	if t.retentionDays > 0 {
		h.SetRetention(t.retentionDays)
	}
	return h
}

// Run fetches the dashboard once and, when its numbers changed in a way
// worth announcing, notifies and saves the updated history.
//
// Nothing is saved when the fetch fails, the fetched snapshot is older
// than the stored history or it is dated after today. A failing notifier does not prevent saving, Run
// then returns the saved result along with ErrNotifyFailed.
func (t Tracker) Run(ctx context.Context, opts Options) (Result, error) {
	ctx, span := tracer.Start(ctx, "Run")
	defer span.End()
	span.SetAttributes(
		attribute.Bool("ci", opts.CI),
		attribute.Bool("force", opts.Force),
	)

	runID, err := random.String(8)
	if err != nil {
		return Result{}, fmt.Errorf("generate run id: %w", err)
	}
	tel := telemetry.NewScopedAPI(runID, t.tel)
	result := Result{RunID: runID}

	h := t.Load(ctx)
	result.Previous = h.Current
	result.PreviousRollingSum = h.RollingSum()

	snap, err := t.source.Fetch(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch snapshot")
		return result, fmt.Errorf("fetch: %w", err)
	}

	today := history.DateOf(t.time.Now())
	if snap.Date.After(today) {
		err = fmt.Errorf("%w: %s is after %s", ErrFutureSnapshot, snap.Date, today)
		tel.ReportBroken(report_tracker_run, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "snapshot dated in the future")
		return result, err
	}

	err = h.Update(snap)
	if err != nil {
		tel.ReportBroken(report_tracker_run, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to update history")
		return result, err
	}
	result.Current = h.Current
	result.RollingSum = h.RollingSum()

	t.rollingSumGauge.Record(ctx, int64(result.RollingSum))
	t.newCasesGauge.Record(ctx, int64(snap.Counts[history.NewCases24h]))

	result.Significant = change.HasSignificantChange(result.Previous, result.Current)
	if !result.Significant && !opts.Force {
		tel.ReportDebug("no significant change", result.Previous, result.Current)
		return result, nil
	}

	update := t.buildUpdate(ctx, tel, h, result, opts)
	notifyErr := t.notifier.Send(ctx, update)
	if notifyErr != nil {
		tel.ReportBroken(report_tracker_notify, notifyErr)
		span.RecordError(notifyErr)
	}
	result.Posted = notifyErr == nil

	err = t.store.Save(ctx, h)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to save history")
		return result, errors.Join(fmt.Errorf("save: %w", err), notifyErr)
	}
	result.Saved = true

	if notifyErr != nil {
		span.SetStatus(codes.Error, "failed to notify")
		return result, fmt.Errorf("%w: %w", ErrNotifyFailed, notifyErr)
	}
	return result, nil
}

func (t Tracker) buildUpdate(ctx context.Context, tel telemetry.API, h *history.History, result Result, opts Options) notify.Update {
	update := notify.Update{
		Label:              h.Label,
		Date:               h.LastUpdated,
		Url:                t.source.Url(),
		Current:            result.Current,
		Previous:           result.Previous,
		RollingSum:         result.RollingSum,
		PreviousRollingSum: result.PreviousRollingSum,
		Deltas:             change.Deltas(result.Previous, result.Current),
	}

	rate, err := change.WeeklyPositivityRate(result.Current[history.Positive7d], result.Current[history.Tests7d])
	switch {
	case err == nil:
		update.PositivityRate = rate
		update.HasPositivityRate = true
	case errors.Is(err, change.ErrDivisionUndefined):
		tel.ReportWarning(report_tracker_run, "positivity rate omitted", err)
	}

	if opts.CI {
		tel.ReportDebug("skipping page archive in ci mode")
	} else if t.archiver != nil {
		archived, err := t.archiver.Capture(ctx, update.Url)
		if err != nil {
			tel.ReportWarning(report_tracker_archive, "using live dashboard url", err)
		} else {
			update.Url = archived
		}
	}

	image, err := chart.Render(chart.FromHistory(h, h.LastUpdated, t.chartTitle))
	if err != nil {
		tel.ReportWarning(report_tracker_chart, "sending update without chart", err)
	} else {
		update.Chart = image
	}

	return update
}
