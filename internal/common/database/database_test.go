package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"advanced-http-worker/internal/common/config"
)

// ==========================
// Postgres
// ==========================

func TestPostgresClient_Migrate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	pg := NewPostgresFromDB(db)
	defer pg.Close()

	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS a").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE INDEX IF NOT EXISTS b").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err = pg.Migrate(context.Background(),
		"CREATE TABLE IF NOT EXISTS a (id int)",
		"CREATE INDEX IF NOT EXISTS b ON a (id)",
	)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresClient_MigrateRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	pg := NewPostgresFromDB(db)
	defer pg.Close()

	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE").WillReturnError(errors.New("permission denied"))
	mock.ExpectRollback()

	err = pg.Migrate(context.Background(), "CREATE TABLE x (id int)")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permission denied")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewPostgres_DoesNotDial(t *testing.T) {
	pg, err := NewPostgres(config.PostgresConfig{
		Host: "127.0.0.1", Port: 1, Database: "x", User: "u", SSLMode: "disable",
		MaxConnections: 2, MaxIdle: 1,
	})
	require.NoError(t, err)
	assert.NoError(t, pg.Close())
}

// ==========================
// Redis
// ==========================

func TestRedisClient_GetSetDel(t *testing.T) {
	mr := miniredis.RunT(t)
	rc := NewRedisFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	defer rc.Close()
	ctx := context.Background()

	require.NoError(t, rc.Ping(ctx))

	_, found, err := rc.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, rc.Set(ctx, "k", "v", time.Minute))
	val, found, err := rc.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "v", val)
	assert.Equal(t, time.Minute, mr.TTL("k"))

	require.NoError(t, rc.Del(ctx, "k"))
	assert.False(t, mr.Exists("k"))
}

func TestNewRedis_RequiresAddress(t *testing.T) {
	_, err := NewRedis(config.RedisConfig{})
	assert.Error(t, err)
}
