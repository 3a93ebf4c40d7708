package sqldata

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"stationflow/internal/store"
)

func TestStore_SaveUpsertsByPrimaryKey(t *testing.T) {
	conn, err := store.Open(filepath.Join(t.TempDir(), "stationflow.db"))
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, store.Migrate(conn))

	s := New(conn, &sync.Mutex{})
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "tickets", []string{"id"}, map[string]interface{}{"id": "T-1", "status": "open"}))
	require.NoError(t, s.Save(ctx, "tickets", []string{"id"}, map[string]interface{}{"id": "T-1", "status": "closed"}))

	rows, err := s.Query(ctx, "SELECT data FROM structured_rows WHERE table_name = ?", []interface{}{"tickets"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Contains(t, rows[0]["data"], "closed")
}

func TestStore_QueryParameterises(t *testing.T) {
	conn, err := store.Open(filepath.Join(t.TempDir(), "stationflow.db"))
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, store.Migrate(conn))

	s := New(conn, &sync.Mutex{})
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, "tickets", []string{"id"}, map[string]interface{}{"id": "T-2"}))

	rows, err := s.Query(ctx, "SELECT table_name FROM structured_rows WHERE row_key = ?", []interface{}{"id=T-2"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "tickets", rows[0]["table_name"])
}
