package pg_test

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/rpcgate/integration/database/pg"
)

func TestConnect_Config(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	_, err := pg.Connect(ctx, pg.Config{})
	assert.ErrorIs(t, err, pg.ErrEmptyConnectionString)

	_, err = pg.Connect(ctx, pg.Config{ConnectionString: "postgres://%zz"})
	assert.ErrorIs(t, err, pg.ErrFailedToParseDBConfig)
}

func TestMigrations(t *testing.T) {
	t.Parallel()

	data, err := fs.ReadFile(pg.Migrations(), "00001_membership.sql")
	require.NoError(t, err)
	assert.Contains(t, string(data), "-- +goose Up")
	assert.Contains(t, string(data), "CREATE TABLE rpc_user_roles")

	assert.ErrorIs(t, pg.Migrate(context.Background(), nil, nil), pg.ErrNilPool)
}

func TestErrorClassification(t *testing.T) {
	t.Parallel()

	assert.True(t, pg.IsNotFoundError(pgx.ErrNoRows))
	assert.True(t, pg.IsNotFoundError(fmt.Errorf("select user: %w", pgx.ErrNoRows)))
	assert.False(t, pg.IsNotFoundError(errors.New("boom")))

	dup := &pgconn.PgError{Code: "23505"}
	assert.True(t, pg.IsDuplicateKeyError(fmt.Errorf("insert: %w", dup)))
	assert.False(t, pg.IsDuplicateKeyError(&pgconn.PgError{Code: "23503"}))
	assert.False(t, pg.IsDuplicateKeyError(nil))
}

func TestTxContext(t *testing.T) {
	t.Parallel()

	ctx := pg.WithTx(context.Background(), nil)
	_, ok := pg.TxFromContext(ctx)
	assert.False(t, ok)

	_, ok = pg.TxFromContext(nil)
	assert.False(t, ok)
}

func TestNewMembershipStore_RequiresPool(t *testing.T) {
	t.Parallel()
	_, err := pg.NewMembershipStore(nil, membershipConfig())
	assert.ErrorIs(t, err, pg.ErrNilPool)
}
