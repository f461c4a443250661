package notify

import (
	"context"
	"errors"
	"fmt"
	"rpicovid/internal/change"
	"rpicovid/internal/history"
	"rpicovid/internal/telemetry"
)

const (
	report_multi_send = "multi.send"
)

// Update is everything a notifier needs to announce new dashboard numbers.
type Update struct {
	// Label is the date caption shown on the dashboard.
	Label string
	Date  history.Date
	// Url links to the dashboard, or to its archived copy when one was made.
	Url string

	Current  history.Counts
	Previous history.Counts

	RollingSum         int
	PreviousRollingSum int

	Deltas []change.FieldDelta

	// PositivityRate is only meaningful when HasPositivityRate is set.
	PositivityRate    float64
	HasPositivityRate bool

	// Chart is a PNG image, nil when rendering failed.
	Chart []byte
}

// RollingDelta formats the rolling sum with its change since the previous
// update.
func (u Update) RollingDelta() string {
	return change.FormatDelta(u.RollingSum, u.PreviousRollingSum)
}

type Notifier interface {
	// Name identifies the notifier in logs.
	Name() string
	Send(ctx context.Context, update Update) error
}

// Multi sends an update through every notifier it holds.
type Multi struct {
	notifiers []Notifier
	tel       telemetry.API
}

func NewMulti(tel telemetry.API, notifiers ...Notifier) Multi {
	return Multi{
		notifiers: notifiers,
		tel:       telemetry.NewScopedAPI("notify", tel),
	}
}

func (m Multi) Name() string {
	return "multi"
}

// Len returns the number of notifiers.
func (m Multi) Len() int {
	return len(m.notifiers)
}

// Send tries every notifier even when some fail, the returned error joins
// every failure.
func (m Multi) Send(ctx context.Context, update Update) error {
	if len(m.notifiers) == 0 {
		m.tel.ReportWarning(report_multi_send, "no notifiers configured, the update is only stored locally")
		return nil
	}

	errlist := []error{}
	for _, n := range m.notifiers {
		err := n.Send(ctx, update)
		if err != nil {
			m.tel.ReportBroken(report_multi_send, n.Name(), err)
			errlist = append(errlist, fmt.Errorf("%s: %w", n.Name(), err))
			continue
		}
		m.tel.ReportDebug("sent update", n.Name())
	}
	return errors.Join(errlist...)
}
