package services

import (
	"context"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/jonboulle/clockwork"
)

const (
	DefaultNotificationCooldown = 30 * time.Second
	defaultCooldownCapacity     = 10000
)

// NotificationThrottle lets a notification class fire at most once per cooldown.
type NotificationThrottle interface {
	// ShouldSend atomically checks the window and claims it when open.
	ShouldSend(ctx context.Context, key string) bool
}

type memoryThrottle struct {
	mu       sync.Mutex
	last     *lru.Cache[string, time.Time]
	cooldown time.Duration
	clock    clockwork.Clock
}

// NewNotificationThrottle keeps the cooldown table in process memory. The table
// is capped; evicting a stale key only reopens its window.
func NewNotificationThrottle(cooldown time.Duration, clock clockwork.Clock) NotificationThrottle {
	if cooldown <= 0 {
		cooldown = DefaultNotificationCooldown
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	cache, _ := lru.New[string, time.Time](defaultCooldownCapacity)
	return &memoryThrottle{last: cache, cooldown: cooldown, clock: clock}
}

func (t *memoryThrottle) ShouldSend(ctx context.Context, key string) bool {
	now := t.clock.Now()

	t.mu.Lock()
	defer t.mu.Unlock()
	if last, ok := t.last.Get(key); ok && now.Sub(last) < t.cooldown {
		notificationsTotal.WithLabelValues(notificationClass(key), "suppressed").Inc()
		return false
	}
	t.last.Add(key, now)
	notificationsTotal.WithLabelValues(notificationClass(key), "sent").Inc()
	return true
}

func notificationClass(key string) string {
	if idx := strings.Index(key, ":"); idx > 0 {
		return key[:idx]
	}
	return key
}
