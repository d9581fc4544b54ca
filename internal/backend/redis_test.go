package backend

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMiniRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestRedisSessions_PutGetDelete(t *testing.T) {
	mr, rdb := newMiniRedis(t)
	store := NewRedisSessions(rdb)
	ctx := context.Background()

	in := &Session{Token: "tok", UID: "u1", Email: "a@b.edu", CreatedAt: time.Now().UTC().Truncate(time.Second)}
	require.NoError(t, store.Put(ctx, in, time.Hour))
	assert.True(t, mr.Exists("session:tok"))
	assert.Equal(t, time.Hour, mr.TTL("session:tok"))

	out, err := store.Get(ctx, "tok")
	require.NoError(t, err)
	assert.Equal(t, "tok", out.Token)
	assert.Equal(t, "u1", out.UID)
	assert.Equal(t, "a@b.edu", out.Email)
	assert.True(t, in.CreatedAt.Equal(out.CreatedAt))

	require.NoError(t, store.Delete(ctx, "tok"))
	_, err = store.Get(ctx, "tok")
	assert.Equal(t, CodeNoSession, ErrorCode(err))
}

func TestRedisSessions_Expiry(t *testing.T) {
	mr, rdb := newMiniRedis(t)
	store := NewRedisSessions(rdb)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, &Session{Token: "tok", UID: "u1"}, time.Minute))
	mr.FastForward(2 * time.Minute)

	_, err := store.Get(ctx, "tok")
	assert.Equal(t, CodeNoSession, ErrorCode(err))
}

func TestRedisSessions_TokenNotStoredInPayload(t *testing.T) {
	mr, rdb := newMiniRedis(t)
	store := NewRedisSessions(rdb)

	require.NoError(t, store.Put(context.Background(), &Session{Token: "secret-token", UID: "u1"}, time.Minute))
	raw, err := mr.Get("session:secret-token")
	require.NoError(t, err)
	assert.NotContains(t, raw, "secret-token")
}

func TestRedisAttempts_WindowAndReset(t *testing.T) {
	mr, rdb := newMiniRedis(t)
	counter := NewRedisAttempts(rdb)
	ctx := context.Background()

	n, err := counter.Failures(ctx, "a@b.edu")
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, counter.RecordFailure(ctx, "a@b.edu", 10*time.Minute))
	require.NoError(t, counter.RecordFailure(ctx, "a@b.edu", 10*time.Minute))

	n, err = counter.Failures(ctx, "a@b.edu")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 10*time.Minute, mr.TTL("login_attempts:a@b.edu"))

	mr.FastForward(11 * time.Minute)
	n, err = counter.Failures(ctx, "a@b.edu")
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, counter.RecordFailure(ctx, "a@b.edu", 10*time.Minute))
	require.NoError(t, counter.Reset(ctx, "a@b.edu"))
	assert.False(t, mr.Exists("login_attempts:a@b.edu"))
}

func TestService_WithRedisStores(t *testing.T) {
	_, rdb := newMiniRedis(t)
	mem := NewMemory(nil)
	svc := NewService(mem.Accounts(), NewRedisSessions(rdb), NewRedisAttempts(rdb), Options{MaxAttempts: 2})
	ctx := context.Background()

	session, err := svc.CreateUserWithPassword(ctx, "ivy@uni.edu", "Abcdef1!")
	require.NoError(t, err)

	resolved, err := svc.ResolveSession(ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, session.UID, resolved.UID)

	_, _ = svc.SignInWithPassword(ctx, "ivy@uni.edu", "x")
	_, _ = svc.SignInWithPassword(ctx, "ivy@uni.edu", "x")
	_, err = svc.SignInWithPassword(ctx, "ivy@uni.edu", "Abcdef1!")
	assert.Equal(t, CodeTooManyRequests, ErrorCode(err))
}
