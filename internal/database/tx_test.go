package database

import (
	"context"
	"database/sql"
	"testing"

	"book-store/internal/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDSNIncludesSchema(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{
		Host:     "db",
		Port:     "5432",
		User:     "bookstore",
		Password: "secret",
		Database: "shop",
		Schema:   "public",
	})

	assert.Equal(t, "postgres://bookstore:secret@db:5432/shop?sslmode=disable&search_path=public", dsn)
}

func TestNewRedisClientPings(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewRedisClient(context.Background(), config.RedisConfig{Host: mr.Host(), Port: mr.Port()})
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.Set(context.Background(), "k", "v", 0).Err())
	got, err := mr.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)
}

func TestNewRedisClientFailsWhenUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	host, port := mr.Host(), mr.Port()
	mr.Close()

	_, err := NewRedisClient(context.Background(), config.RedisConfig{Host: host, Port: port})
	assert.Error(t, err)
}

func TestWithTxFailsWhenBeginFails(t *testing.T) {
	svc, err := New(config.DatabaseConfig{Host: "127.0.0.1", Port: "1", User: "u", Password: "p", Database: "d", Schema: "public"})
	require.NoError(t, err)
	defer svc.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err = WithTx(ctx, svc.DB(), nil, func(_ *sql.Tx) error {
		called = true
		return nil
	})

	assert.Error(t, err)
	assert.False(t, called)
}
