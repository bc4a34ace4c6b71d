package middleware

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"launchpad/models"
	"launchpad/utils"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStorage(t *testing.T) (*RedisStorage, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStorage(client, "test"), mr
}

func TestRedisStorageGetSetDelete(t *testing.T) {
	s, mr := newRedisStorage(t)

	val, err := s.Get("missing")
	require.NoError(t, err)
	assert.Nil(t, val)

	require.NoError(t, s.Set("k1", []byte("v1"), time.Minute))
	val, err = s.Get("k1")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), val)
	assert.True(t, mr.Exists("test:limiter:k1"))
	assert.Equal(t, time.Minute, mr.TTL("test:limiter:k1"))

	require.NoError(t, s.Delete("k1"))
	val, err = s.Get("k1")
	require.NoError(t, err)
	assert.Nil(t, val)
}

func TestRedisStorageExpiry(t *testing.T) {
	s, mr := newRedisStorage(t)
	require.NoError(t, s.Set("k1", []byte("v1"), time.Minute))
	mr.FastForward(2 * time.Minute)

	val, err := s.Get("k1")
	require.NoError(t, err)
	assert.Nil(t, val)
}

func TestRedisStorageResetKeepsOtherKeys(t *testing.T) {
	s, mr := newRedisStorage(t)
	require.NoError(t, s.Set("a", []byte("1"), 0))
	require.NoError(t, s.Set("b", []byte("2"), 0))
	require.NoError(t, mr.Set("unrelated", "keep"))

	require.NoError(t, s.Reset())

	assert.False(t, mr.Exists("test:limiter:a"))
	assert.False(t, mr.Exists("test:limiter:b"))
	assert.True(t, mr.Exists("unrelated"))
	assert.NoError(t, s.Close())
}

func TestCommandRateLimiterWithRedisStorage(t *testing.T) {
	storage, _ := newRedisStorage(t)
	good, err := utils.GenerateToken("u1", testSecret, time.Hour)
	require.NoError(t, err)

	team := "T1"
	src := profiles{"u1": {ID: "u1", Name: "Alice", Role: models.RoleBuilder, TeamID: &team}}
	app := fiber.New()
	app.Post("/cmd", Protected(src, testSecret), CommandRateLimiter(2, storage), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	hit := func() int {
		req := httptest.NewRequest("POST", "/cmd", nil)
		req.Header.Set("Authorization", "Bearer "+good)
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp.StatusCode
	}

	assert.Equal(t, []int{200, 200, 429}, []int{hit(), hit(), hit()})

	keys, err := storage.client.Keys(context.Background(), "test:limiter:*").Result()
	require.NoError(t, err)
	assert.NotEmpty(t, keys, "counters live in redis")

	require.NoError(t, storage.Reset())
	assert.Equal(t, fiber.StatusOK, hit())
}
