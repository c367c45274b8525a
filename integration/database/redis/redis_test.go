package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/rpcgate/core/session"
	"github.com/dmitrymomot/rpcgate/integration/database/redis"
)

func startRedis(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestConnect(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		t.Parallel()
		mr := miniredis.RunT(t)
		cfg := redis.DefaultConfig()
		cfg.ConnectionURL = "redis://" + mr.Addr() + "/0"

		client, err := redis.Connect(ctx, cfg)
		require.NoError(t, err)
		t.Cleanup(func() { _ = client.Close() })
		assert.NoError(t, redis.Healthcheck(client)(ctx))
	})

	t.Run("empty url", func(t *testing.T) {
		t.Parallel()
		_, err := redis.Connect(ctx, redis.Config{})
		assert.ErrorIs(t, err, redis.ErrEmptyConnectionURL)
	})

	t.Run("invalid url", func(t *testing.T) {
		t.Parallel()
		_, err := redis.Connect(ctx, redis.Config{ConnectionURL: "http://localhost:6379"})
		assert.ErrorIs(t, err, redis.ErrFailedToParseRedisConnString)
	})

	t.Run("unreachable", func(t *testing.T) {
		t.Parallel()
		mr := miniredis.RunT(t)
		addr := mr.Addr()
		mr.Close()

		_, err := redis.Connect(ctx, redis.Config{
			ConnectionURL:  "redis://" + addr,
			RetryAttempts:  2,
			RetryInterval:  10 * time.Millisecond,
			ConnectTimeout: 2 * time.Second,
		})
		assert.ErrorIs(t, err, redis.ErrRedisNotReady)
	})
}

func TestHealthcheck_Failure(t *testing.T) {
	t.Parallel()
	mr, client := startRedis(t)
	mr.Close()
	assert.ErrorIs(t, redis.Healthcheck(client)(context.Background()), redis.ErrHealthcheckFailed)
}

func TestSessionBackend(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	_, err := redis.NewSessionBackend(nil)
	assert.ErrorIs(t, err, redis.ErrNilClient)

	mr, client := startRedis(t)
	b, err := redis.NewSessionBackendFromConfig(redis.Config{SessionPrefix: "test:"}, client)
	require.NoError(t, err)

	_, err = b.Load(ctx, "missing")
	assert.ErrorIs(t, err, session.ErrNotFound)

	require.NoError(t, b.Save(ctx, "abc", session.Values{"user": "alice", "n": 3}, time.Minute))
	assert.True(t, mr.Exists("test:abc"))
	assert.Equal(t, time.Minute, mr.TTL("test:abc"))

	values, err := b.Load(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "alice", values["user"])
	assert.Equal(t, float64(3), values["n"])

	mr.FastForward(2 * time.Minute)
	_, err = b.Load(ctx, "abc")
	assert.ErrorIs(t, err, session.ErrNotFound)

	require.NoError(t, b.Save(ctx, "def", session.Values{}, time.Minute))
	require.NoError(t, b.Delete(ctx, "def"))
	require.NoError(t, b.Delete(ctx, "def"))
	assert.False(t, mr.Exists("test:def"))

	require.NoError(t, mr.Set("test:bad", "{not json"))
	_, err = b.Load(ctx, "bad")
	assert.ErrorIs(t, err, redis.ErrCorruptSession)
}

func TestSessionBackend_WithStore(t *testing.T) {
	t.Parallel()
	_, client := startRedis(t)
	b, err := redis.NewSessionBackend(client)
	require.NoError(t, err)

	store, err := session.NewStore(b, nil)
	require.NoError(t, err)
	ctx := context.Background()

	w, r := newRoundTrip(nil)
	sess := store.Open(w, r)
	require.NoError(t, sess.Set(ctx, "greeting", "hello"))
	require.NoError(t, sess.Commit(ctx))

	w2, r2 := newRoundTrip(w.Result().Cookies())
	sess = store.Open(w2, r2)
	got, err := sess.GetString(ctx, "greeting")
	require.NoError(t, err)
	assert.Equal(t, "hello", got)
}
