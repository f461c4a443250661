package notify

import (
	"context"
	"errors"
	"rpicovid/internal/change"
	"rpicovid/internal/history"
	"rpicovid/internal/telemetry"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeNotifier struct {
	name    string
	err     error
	updates []Update
}

func (f *fakeNotifier) Name() string {
	return f.name
}

func (f *fakeNotifier) Send(ctx context.Context, update Update) error {
	f.updates = append(f.updates, update)
	return f.err
}

func testUpdate() Update {
	previous := history.Counts{0, 10, 500, 1000, 20000}
	current := history.Counts{3, 12, 503, 1100, 21100}
	return Update{
		Label:              "Updated October 19, 2020",
		Date:               history.Date{Year: 2020, Month: time.October, Day: 19},
		Url:                "https://covid19.rpi.edu/dashboard",
		Current:            current,
		Previous:           previous,
		RollingSum:         21,
		PreviousRollingSum: 18,
		Deltas:             change.Deltas(previous, current),
		PositivityRate:     1.0909,
		HasPositivityRate:  true,
	}
}

func TestMultiSendsToAll(t *testing.T) {
	failing := &fakeNotifier{name: "failing", err: errors.New("webhook down")}
	working := &fakeNotifier{name: "working"}
	tel := &telemetry.RecorderAPI{}

	multi := NewMulti(tel, failing, working)
	require.Equal(t, 2, multi.Len())

	err := multi.Send(context.Background(), testUpdate())
	require.Error(t, err)
	require.ErrorContains(t, err, "failing: webhook down")
	require.Len(t, failing.updates, 1)
	require.Len(t, working.updates, 1)
	require.Len(t, tel.Reports("broken"), 1)
}

func TestMultiWithoutNotifiers(t *testing.T) {
	tel := &telemetry.RecorderAPI{}
	multi := NewMulti(tel)
	require.NoError(t, multi.Send(context.Background(), testUpdate()))
	require.Len(t, tel.Reports("warning"), 1)
}

func TestRollingDelta(t *testing.T) {
	require.Equal(t, "21 (+3)", testUpdate().RollingDelta())
}
