//go:build unit

package repository

import (
	"context"
	"testing"

	"venuebook/internal/domain/booking"
	"venuebook/internal/infra"
	"venuebook/tests/common/builder"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedRow struct {
	err error
}

func (r scriptedRow) Scan(_ ...any) error { return r.err }

// scriptedDB records every statement and replays queued row results, so
// tests can pin the order a method issues its statements in.
type scriptedDB struct {
	statements []string
	rows       []scriptedRow
}

func (db *scriptedDB) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	db.statements = append(db.statements, sql)
	return pgconn.CommandTag{}, nil
}

func (db *scriptedDB) Query(_ context.Context, sql string, _ ...any) (pgx.Rows, error) {
	db.statements = append(db.statements, sql)
	return nil, pgx.ErrNoRows
}

func (db *scriptedDB) QueryRow(_ context.Context, sql string, _ ...any) pgx.Row {
	db.statements = append(db.statements, sql)
	if len(db.rows) == 0 {
		return scriptedRow{}
	}
	row := db.rows[0]
	db.rows = db.rows[1:]
	return row
}

func waitlistedReservation(t *testing.T) *booking.Reservation {
	t.Helper()
	res, err := booking.NewWaitlisted(builder.NewReservationBuilder().BuildDomainParams())
	require.NoError(t, err)
	return res
}

func TestCreateIfCapacity(t *testing.T) {
	ctx := context.Background()

	t.Run("locks the slot row before the conditional insert", func(t *testing.T) {
		// Without the lock, two concurrent inserts for the last seats both
		// read the pre-race occupancy sum and both pass the guard.
		db := &scriptedDB{rows: []scriptedRow{{}, {}}}
		repo := NewReservationRepository(db)

		ok, err := repo.CreateIfCapacity(ctx, waitlistedReservation(t))
		require.NoError(t, err)
		assert.True(t, ok)

		require.Len(t, db.statements, 2)
		assert.Equal(t, lockSlotSQL, db.statements[0])
		assert.Equal(t, createIfCapacitySQL, db.statements[1])
	})

	t.Run("missing slot aborts before the insert", func(t *testing.T) {
		db := &scriptedDB{rows: []scriptedRow{{err: pgx.ErrNoRows}}}
		repo := NewReservationRepository(db)

		ok, err := repo.CreateIfCapacity(ctx, waitlistedReservation(t))
		assert.False(t, ok)
		assert.True(t, infra.IsKind(err, infra.KindNotFound))
		assert.Equal(t, []string{lockSlotSQL}, db.statements)
	})

	t.Run("zero-row insert reports the failed capacity check", func(t *testing.T) {
		db := &scriptedDB{rows: []scriptedRow{{}, {err: pgx.ErrNoRows}}}
		repo := NewReservationRepository(db)

		ok, err := repo.CreateIfCapacity(ctx, waitlistedReservation(t))
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("slotless reservation is rejected outright", func(t *testing.T) {
		db := &scriptedDB{}
		repo := NewReservationRepository(db)

		res, err := booking.NewWaitlisted(builder.NewReservationBuilder().WithoutSlot().BuildDomainParams())
		require.NoError(t, err)

		ok, err := repo.CreateIfCapacity(ctx, res)
		assert.False(t, ok)
		assert.Error(t, err)
		assert.Empty(t, db.statements)
	})
}
