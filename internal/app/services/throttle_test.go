package services

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThrottleBurstSendsOnce(t *testing.T) {
	th := NewNotificationThrottle(30*time.Second, clockwork.NewFakeClock())
	ctx := context.Background()

	sent := 0
	for i := 0; i < 10; i++ {
		if th.ShouldSend(ctx, "member_leave:111") {
			sent++
		}
	}
	assert.Equal(t, 1, sent)
	assert.True(t, th.ShouldSend(ctx, "member_leave:222"), "keys are independent")
}

func TestThrottleReopensAfterCooldown(t *testing.T) {
	clock := clockwork.NewFakeClock()
	th := NewNotificationThrottle(30*time.Second, clock)
	ctx := context.Background()

	require.True(t, th.ShouldSend(ctx, "blacklist_join:111"))
	clock.Advance(29 * time.Second)
	assert.False(t, th.ShouldSend(ctx, "blacklist_join:111"))
	clock.Advance(time.Second)
	assert.True(t, th.ShouldSend(ctx, "blacklist_join:111"))
}

func TestThrottleConcurrentClaim(t *testing.T) {
	th := NewNotificationThrottle(time.Minute, clockwork.NewFakeClock())
	var sent atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if th.ShouldSend(context.Background(), "blacklist_join:1") {
				sent.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, sent.Load())
}

func TestNotificationClass(t *testing.T) {
	assert.Equal(t, "member_leave", notificationClass("member_leave:123"))
	assert.Equal(t, "plain", notificationClass("plain"))
}

func TestRedisThrottleFailsOpen(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()
	th := NewRedisThrottle(client, time.Minute, nil)

	assert.True(t, th.ShouldSend(context.Background(), "member_leave:1"))
	assert.True(t, th.ShouldSend(context.Background(), "member_leave:1"))
}

func TestRedisThrottleLive(t *testing.T) {
	url := os.Getenv("GUARD_TEST_REDIS_URL")
	if url == "" {
		t.Skip("GUARD_TEST_REDIS_URL not set")
	}
	ctx := context.Background()
	client, err := NewRedisClient(ctx, url)
	require.NoError(t, err)
	defer client.Close()

	th := NewRedisThrottle(client, 500*time.Millisecond, nil)
	key := "test:" + uuid.NewString()
	assert.True(t, th.ShouldSend(ctx, key))
	assert.False(t, th.ShouldSend(ctx, key))
	time.Sleep(600 * time.Millisecond)
	assert.True(t, th.ShouldSend(ctx, key))
}
