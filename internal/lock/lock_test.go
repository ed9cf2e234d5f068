package lock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/laborplan/laborplan/pkg/errors"
)

func setupRedisLocker(t *testing.T) (*miniredis.Miniredis, *RedisLocker) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, NewRedisLocker(client, time.Minute)
}

func TestRedisLockerAcquireRelease(t *testing.T) {
	mr, locker := setupRedisLocker(t)
	ctx := context.Background()

	release, err := locker.Acquire(ctx, "2025-09")
	require.NoError(t, err)
	assert.True(t, mr.Exists(keyPrefix+"2025-09"))
	assert.Equal(t, time.Minute, mr.TTL(keyPrefix+"2025-09"))

	_, err = locker.Acquire(ctx, "2025-09")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.CodePlanInProgress))

	// 其它期间不受影响
	releaseOther, err := locker.Acquire(ctx, "2025-10")
	require.NoError(t, err)
	releaseOther()

	release()
	assert.False(t, mr.Exists(keyPrefix+"2025-09"))

	release, err = locker.Acquire(ctx, "2025-09")
	require.NoError(t, err)
	release()
}

func TestRedisLockerReleaseKeepsForeignToken(t *testing.T) {
	mr, locker := setupRedisLocker(t)
	ctx := context.Background()

	release, err := locker.Acquire(ctx, "2025-09")
	require.NoError(t, err)

	// 锁过期后被其它实例占用
	mr.FastForward(2 * time.Minute)
	require.NoError(t, mr.Set(keyPrefix+"2025-09", "other-instance"))

	release()
	got, err := mr.Get(keyPrefix + "2025-09")
	require.NoError(t, err)
	assert.Equal(t, "other-instance", got)
}

func TestRedisLockerUnavailable(t *testing.T) {
	mr, locker := setupRedisLocker(t)
	mr.Close()

	_, err := locker.Acquire(context.Background(), "2025-09")
	require.Error(t, err)
	assert.False(t, errors.Is(err, errors.CodePlanInProgress))
}

func TestLocalLocker(t *testing.T) {
	locker := NewLocalLocker()
	ctx := context.Background()

	release, err := locker.Acquire(ctx, "2025-09")
	require.NoError(t, err)

	_, err = locker.Acquire(ctx, "2025-09")
	assert.True(t, errors.Is(err, errors.CodePlanInProgress))

	release()
	release()

	release, err = locker.Acquire(ctx, "2025-09")
	require.NoError(t, err)
	release()
}

func TestLocalLockerConcurrent(t *testing.T) {
	locker := NewLocalLocker()
	ctx := context.Background()

	const workers = 20
	results := make(chan error, workers)
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		go func() {
			<-start
			_, err := locker.Acquire(ctx, "2025-09")
			results <- err
		}()
	}
	close(start)

	acquired := 0
	for i := 0; i < workers; i++ {
		if err := <-results; err == nil {
			acquired++
		}
	}
	assert.Equal(t, 1, acquired)
}
