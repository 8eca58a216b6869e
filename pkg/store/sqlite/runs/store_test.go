package runs

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/mixtools/mixatlas/pkg/models/store"
	"github.com/mixtools/mixatlas/pkg/store/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	db    *sql.DB
	store Store
}

func setupFixture(t *testing.T) *fixture {
	db, err := sqlite.NewDB(sqlite.Settings{DbPath: ":memory:"})
	require.NoError(t, err)

	s, err := NewStore(db)
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
	})

	return &fixture{db: db, store: s}
}

func testRun(i int, createdAt time.Time) store.AllocationRun {
	return store.AllocationRun{
		ID:        fmt.Sprintf("run-%d", i),
		Model:     "spring_campaign",
		Weeks:     4,
		Budget:    1500,
		KPIBefore: 110.25,
		KPIAfter:  120.5,
		CreatedAt: createdAt,
	}
}

func TestNewStore(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		f := setupFixture(t)
		assert.NotNil(t, f.store)
	})

	t.Run("nil db", func(t *testing.T) {
		s, err := NewStore(nil)
		assert.Error(t, err)
		assert.Nil(t, s)
	})
}

func TestStore_AddAndList(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	base := time.Date(2026, time.August, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, f.store.Add(ctx, testRun(i, base.Add(time.Duration(i)*time.Minute))))
	}

	t.Run("newest first", func(t *testing.T) {
		runs, err := f.store.List(ctx, 10)
		require.NoError(t, err)
		require.Len(t, runs, 3)
		assert.Equal(t, "run-2", runs[0].ID)
		assert.Equal(t, "run-0", runs[2].ID)
	})

	t.Run("limit applied", func(t *testing.T) {
		runs, err := f.store.List(ctx, 2)
		require.NoError(t, err)
		assert.Len(t, runs, 2)
	})

	t.Run("non-positive limit falls back to default", func(t *testing.T) {
		runs, err := f.store.List(ctx, 0)
		require.NoError(t, err)
		assert.Len(t, runs, 3)
	})

	t.Run("fields round trip", func(t *testing.T) {
		runs, err := f.store.List(ctx, 1)
		require.NoError(t, err)
		require.Len(t, runs, 1)

		got := runs[0]
		assert.Equal(t, "spring_campaign", got.Model)
		assert.Equal(t, 4, got.Weeks)
		assert.Equal(t, 1500.0, got.Budget)
		assert.Equal(t, 110.25, got.KPIBefore)
		assert.Equal(t, 120.5, got.KPIAfter)
	})

	t.Run("duplicate id rejected", func(t *testing.T) {
		err := f.store.Add(ctx, testRun(0, base))
		assert.Error(t, err)
	})
}

func TestStore_QueryErrors(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s, err := NewStore(db)
	require.NoError(t, err)

	t.Run("insert failure surfaces", func(t *testing.T) {
		mock.ExpectExec("INSERT INTO allocation_runs").
			WillReturnError(fmt.Errorf("disk full"))

		err := s.Add(context.Background(), testRun(0, time.Now()))
		assert.ErrorContains(t, err, "disk full")
	})

	t.Run("query failure surfaces", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, model, weeks").
			WillReturnError(fmt.Errorf("table missing"))

		_, err := s.List(context.Background(), 5)
		assert.ErrorContains(t, err, "table missing")
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}
