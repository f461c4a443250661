package chrono

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStandardTime(t *testing.T) {
	clock, err := NewStandardTime("")
	require.NoError(t, err)
	require.Equal(t, DefaultZone, clock.Location().String())
	require.Equal(t, DefaultZone, clock.Now().Location().String())

	_, err = NewStandardTime("Not/AZone")
	require.Error(t, err)
}

func TestFixedTime(t *testing.T) {
	instant := time.Date(2020, time.October, 1, 9, 30, 0, 0, time.UTC)
	clock := FixedTime{Time: instant}
	require.Equal(t, instant, clock.Now())
	require.Equal(t, time.UTC, clock.Location())
}
