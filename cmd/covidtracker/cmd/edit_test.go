package cmd

import (
	"rpicovid/internal/chrono"
	"rpicovid/internal/history"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEditEnd(t *testing.T) {
	clock := chrono.FixedTime{Time: time.Date(2020, time.October, 20, 23, 30, 0, 0, time.UTC)}
	today := history.Date{Year: 2020, Month: time.October, Day: 20}

	end, err := editEnd(clock, "")
	require.NoError(t, err)
	require.Equal(t, today, end)

	end, err = editEnd(clock, "2020-10-20")
	require.NoError(t, err)
	require.Equal(t, today, end)

	end, err = editEnd(clock, "2020-10-02")
	require.NoError(t, err)
	require.Equal(t, history.Date{Year: 2020, Month: time.October, Day: 2}, end)

	_, err = editEnd(clock, "2020-10-21")
	require.ErrorContains(t, err, "after today")

	_, err = editEnd(clock, "10/02/2020")
	require.Error(t, err)
}
