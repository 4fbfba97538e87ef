package database

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRedisConnects(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewRedis(context.Background(), "redis://"+mr.Addr()+"/0")
	require.NoError(t, err)
	defer CloseRedis(client)

	require.NoError(t, client.Set(context.Background(), "k", "v", 0).Err())
	assert.True(t, mr.Exists("k"))
}

func TestNewRedisWithoutURL(t *testing.T) {
	client, err := NewRedis(context.Background(), "")
	assert.ErrorIs(t, err, ErrRedisNotConfigured)
	assert.Nil(t, client)
}

func TestNewRedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	client, err := NewRedis(context.Background(), "redis://"+addr+"/0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), addr)
	assert.Nil(t, client)
}

func TestRedisOptionsDefaultsAndOverrides(t *testing.T) {
	opt, err := RedisOptions("redis://localhost:6379/2")
	require.NoError(t, err)
	assert.Equal(t, 2, opt.DB)
	assert.Equal(t, 20, opt.PoolSize)
	assert.Equal(t, 500*time.Millisecond, opt.ReadTimeout)

	opt, err = RedisOptions("redis://localhost:6379/0?pool_size=5&read_timeout=2s")
	require.NoError(t, err)
	assert.Equal(t, 5, opt.PoolSize)
	assert.Equal(t, 2*time.Second, opt.ReadTimeout)

	_, err = RedisOptions("http://localhost:6379")
	assert.Error(t, err)
}

func TestCloseRedisIgnoresNil(t *testing.T) {
	assert.NotPanics(t, func() { CloseRedis(nil) })
}
