package rawlog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/f1grid/livetiming-ingest-go/testsupport/testdb"
)

func TestRawlogRepository(t *testing.T) {
	pool := testdb.InitTestDb()
	repo := NewRawlogRepository(pool)
	ctx := context.Background()

	payload := []byte(`{"Lines": {"16": {"NumberOfLaps": 12}}}`)
	require.NoError(t, repo.Create(ctx, "TimingData", payload))

	var (
		count int
		topic string
		data  []byte
	)
	row := pool.QueryRow(ctx, "select count(*) from rawlog")
	require.NoError(t, row.Scan(&count))
	assert.Equal(t, 1, count)

	row = pool.QueryRow(ctx, "select topic, data from rawlog")
	require.NoError(t, row.Scan(&topic, &data))
	assert.Equal(t, "TimingData", topic)
	assert.JSONEq(t, string(payload), string(data))
}
