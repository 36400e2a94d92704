package tripstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDriverFor(t *testing.T) {
	testCases := []struct {
		dsn    string
		driver string
	}{
		{"postgres://user@localhost/citibike", "pgx"},
		{"postgresql://user@localhost/citibike", "pgx"},
		{"libsql://citibike.turso.io", "libsql"},
		{"http://127.0.0.1:8080", "libsql"},
		{"https://db.example.com", "libsql"},
		{"trips.db", "sqlite"},
		{":memory:", "sqlite"},
	}
	for _, test := range testCases {
		require.Equal(t, test.driver, DriverFor(test.dsn), test.dsn)
	}
}

func TestRebind(t *testing.T) {
	pg := &Store{driver: "pgx"}
	require.Equal(t, "SELECT $1, $2", pg.rebind("SELECT ?, ?"))
	lite := &Store{driver: "sqlite"}
	require.Equal(t, "SELECT ?, ?", lite.rebind("SELECT ?, ?"))
}

func openTestStore(t testing.TB) *Store {
	store, err := OpenStore(context.Background(), filepath.Join(t.TempDir(), "trips.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLSinkCommit(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	sink, err := store.NewSink(ctx, "run-1")
	require.NoError(t, err)
	require.NoError(t, sink.Push(ctx, sampleTrips[:1]))
	require.NoError(t, sink.Push(ctx, sampleTrips[1:]))
	require.NoError(t, sink.Commit())

	trips, err := store.Trips(ctx, "run-1")
	require.NoError(t, err)
	require.Equal(t, sampleTrips, trips)

	trips, err = store.Trips(ctx, "run-2")
	require.NoError(t, err)
	require.Empty(t, trips)
}

func TestSQLSinkAbort(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	sink, err := store.NewSink(ctx, "run-1")
	require.NoError(t, err)
	require.NoError(t, sink.Push(ctx, sampleTrips))
	require.NoError(t, sink.Abort())
	require.NoError(t, sink.Abort())

	trips, err := store.Trips(ctx, "run-1")
	require.NoError(t, err)
	require.Empty(t, trips)
}

func TestSQLSinkCancelledWalk(t *testing.T) {
	store := openTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())

	sink, err := store.NewSink(ctx, "run-1")
	require.NoError(t, err)
	require.NoError(t, sink.Push(ctx, sampleTrips[:1]))
	cancel()
	require.NoError(t, sink.Abort())

	trips, err := store.Trips(context.Background(), "run-1")
	require.NoError(t, err)
	require.Empty(t, trips)
}

func TestOpenStoreRequiresDsn(t *testing.T) {
	_, err := OpenStore(context.Background(), "")
	require.Error(t, err)
}
