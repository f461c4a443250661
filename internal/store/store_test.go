package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"rpicovid/internal/chrono"
	"rpicovid/internal/history"
	"rpicovid/internal/telemetry"
	"rpicovid/lib/testutil"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

var day1 = history.Date{Year: 2020, Month: time.October, Day: 1}

func sampleHistory(t *testing.T) *history.History {
	h := history.New()
	require.NoError(t, h.Update(history.Snapshot{
		Counts: history.Counts{2, 10, 500, 1000, 20000},
		Date:   day1,
		Label:  "October 1",
	}))
	require.NoError(t, h.Update(history.Snapshot{
		Counts: history.Counts{5, 12, 505, 1100, 21000},
		Date:   day1.AddDays(3),
		Label:  "October 4",
	}))
	return h
}

func requireSameHistory(t *testing.T, expected, got *history.History) {
	t.Helper()
	if diff := cmp.Diff(expected.ByDate, got.ByDate); diff != "" {
		t.Fatalf("unexpected by_date (-want +got):\n%s", diff)
	}
	require.Equal(t, expected.Current, got.Current)
	require.Equal(t, expected.Label, got.Label)
	require.Equal(t, expected.LastUpdated, got.LastUpdated)
}

func testStore(t *testing.T, store Store) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	_, err := store.Load(ctx)
	require.ErrorIs(t, err, ErrNoState)

	h := sampleHistory(t)
	require.NoError(t, store.Save(ctx, h))
	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	requireSameHistory(t, h, loaded)
	require.Equal(t, h.RollingSum(), loaded.RollingSum())

	require.NoError(t, h.Update(history.Snapshot{
		Counts: history.Counts{1, 13, 506, 1200, 21500},
		Date:   day1.AddDays(4),
	}))
	require.NoError(t, store.Save(ctx, h))
	loaded, err = store.Load(ctx)
	require.NoError(t, err)
	requireSameHistory(t, h, loaded)
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "history.json")
	testStore(t, NewFileStore(path))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1, "temporary files should not be left behind")
}

func TestFileStoreCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, err := NewFileStore(path).Load(context.Background())
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrNoState))
}

func TestSQLStore(t *testing.T) {
	db := testutil.OpenSQLite(t, Schema)

	clock := chrono.FixedTime{Time: time.Date(2020, time.October, 5, 12, 0, 0, 0, time.UTC)}
	store, err := NewSQLStore(context.Background(), db, clock)
	require.NoError(t, err)
	testStore(t, store)

	var rows int
	require.NoError(t, db.QueryRow("select count(*) from tracker_state").Scan(&rows))
	require.Equal(t, 1, rows)

	// the schema may be applied again on the next run
	_, err = NewSQLStore(context.Background(), db, clock)
	require.NoError(t, err)
}

func TestOpenDB(t *testing.T) {
	_, err := DBConfig{Kind: "sqlite"}.OpenDB()
	require.Error(t, err)
	_, err = DBConfig{Kind: "libsql"}.OpenDB()
	require.Error(t, err)
	_, err = DBConfig{Kind: "postgres"}.OpenDB()
	require.Error(t, err)

	db, err := DBConfig{Kind: "sqlite", File: filepath.Join(t.TempDir(), "state.db")}.OpenDB()
	require.NoError(t, err)
	defer db.Close()
	_, err = NewSQLStore(context.Background(), db, chrono.FixedTime{Time: time.Now()})
	require.NoError(t, err)
}

type brokenStore struct {
	err error
}

func (b brokenStore) Load(context.Context) (*history.History, error) {
	return nil, b.err
}

func (b brokenStore) Save(context.Context, *history.History) error {
	return b.err
}

func TestLoadOrNew(t *testing.T) {
	tel := &telemetry.RecorderAPI{}
	h := LoadOrNew(context.Background(), brokenStore{err: errors.New("disk on fire")}, tel)
	require.True(t, h.LastUpdated.IsZero())
	require.Empty(t, h.ByDate)
	require.Len(t, tel.Reports("warning"), 1)

	tel = &telemetry.RecorderAPI{}
	h = LoadOrNew(context.Background(), brokenStore{err: ErrNoState}, tel)
	require.True(t, h.LastUpdated.IsZero())
	require.Empty(t, tel.Reports("warning"))
}
