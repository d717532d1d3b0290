//nolint:funlen // ok for this test code
package lap

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/f1grid/livetiming-ingest-go/pkg/model"
	"github.com/f1grid/livetiming-ingest-go/pkg/repository/api"
	"github.com/f1grid/livetiming-ingest-go/pkg/repository/session"
	"github.com/f1grid/livetiming-ingest-go/testsupport/testdb"
)

func TestLapRepository(t *testing.T) {
	pool := testdb.InitTestDb()
	repo := NewLapRepository(pool)
	ctx := context.Background()

	sess := model.NewSession(model.NewID, "Monza", "IT", model.SessionTypeRace)
	require.NoError(t, session.NewSessionRepository(pool).Create(ctx, sess))

	t.Run("noLapsYet", func(t *testing.T) {
		_, err := repo.FindLastByDriverAndSession(ctx, "16", sess.ID)
		assert.ErrorIs(t, err, api.ErrNoRows)
	})

	lap1 := model.NewLap(model.NewID, "16", 1, sess.ID)
	s1 := 33120
	lap1.Sector1Time = &s1
	require.NoError(t, repo.Create(ctx, lap1))

	t.Run("roundTripNullableFields", func(t *testing.T) {
		got, err := repo.FindLastByDriverAndSession(ctx, "16", sess.ID)
		require.NoError(t, err)
		assert.Equal(t, lap1.ID, got.ID)
		require.NotNil(t, got.Sector1Time)
		assert.Equal(t, 33120, *got.Sector1Time)
		assert.Nil(t, got.Sector2Time)
		assert.Nil(t, got.Sector3Time)
		assert.Nil(t, got.Time)
	})

	t.Run("updateInPlace", func(t *testing.T) {
		total := 92780
		lap1.Time = &total
		require.NoError(t, repo.Update(ctx, lap1))

		got, err := repo.FindLastByDriverAndSession(ctx, "16", sess.ID)
		require.NoError(t, err)
		assert.Equal(t, lap1.ID, got.ID)
		require.NotNil(t, got.Time)
		assert.Equal(t, 92780, *got.Time)
	})

	t.Run("findLastPrefersHighestLapNumber", func(t *testing.T) {
		lap2 := model.NewLap(model.NewID, "16", 2, sess.ID)
		s1 := 32990
		lap2.Sector1Time = &s1
		require.NoError(t, repo.Create(ctx, lap2))

		got, err := repo.FindLastByDriverAndSession(ctx, "16", sess.ID)
		require.NoError(t, err)
		assert.Equal(t, lap2.ID, got.ID)
		assert.Equal(t, 2, got.LapNumber)
	})

	t.Run("otherDriverIsolated", func(t *testing.T) {
		_, err := repo.FindLastByDriverAndSession(ctx, "44", sess.ID)
		assert.ErrorIs(t, err, api.ErrNoRows)
	})
}
