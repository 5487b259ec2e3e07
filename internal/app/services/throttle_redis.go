package services

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	waLog "go.mau.fi/whatsmeow/util/log"
)

const redisThrottlePrefix = "guard/notify/"

type redisThrottle struct {
	client   *redis.Client
	cooldown time.Duration
	log      waLog.Logger
}

// NewRedisThrottle shares cooldown windows between replicas with SET NX PX.
// When redis is unreachable the notification is allowed.
func NewRedisThrottle(client *redis.Client, cooldown time.Duration, log waLog.Logger) NotificationThrottle {
	if cooldown <= 0 {
		cooldown = DefaultNotificationCooldown
	}
	if log == nil {
		log = waLog.Noop
	}
	return &redisThrottle{client: client, cooldown: cooldown, log: log}
}

// NewRedisClient parses a redis:// URL and checks connectivity.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opt)
	if _, err := client.Ping(ctx).Result(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

func (t *redisThrottle) ShouldSend(ctx context.Context, key string) bool {
	ok, err := t.client.SetNX(ctx, redisThrottlePrefix+key, 1, t.cooldown).Result()
	if err != nil {
		t.log.Warnf("notification throttle unavailable for %s, sending anyway: %v", key, err)
		notificationsTotal.WithLabelValues(notificationClass(key), "sent").Inc()
		return true
	}
	decision := "suppressed"
	if ok {
		decision = "sent"
	}
	notificationsTotal.WithLabelValues(notificationClass(key), decision).Inc()
	return ok
}
