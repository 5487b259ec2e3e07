package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/jonboulle/clockwork"
	waLog "go.mau.fi/whatsmeow/util/log"
	"golang.org/x/sync/singleflight"
)

// Level is an actor's authority within a group context.
type Level int

const (
	LevelUser Level = iota
	LevelGroupAdmin
	LevelSuperAdmin
)

func (l Level) String() string {
	switch l {
	case LevelSuperAdmin:
		return "super_admin"
	case LevelGroupAdmin:
		return "group_admin"
	default:
		return "user"
	}
}

// Actor describes who is acting and the static metadata the transport attached.
type Actor struct {
	UserID     string
	GroupID    string
	SuperAdmin bool
	OwnerID    string
	AdminIDs   []string
}

// PermissionResolver classifies an actor. It never fails; the worst case is LevelUser.
type PermissionResolver interface {
	Resolve(ctx context.Context, actor Actor) Level
}

const (
	DefaultPermissionTTL     = 300 * time.Second
	defaultPermissionEntries = 4096
)

// PermissionCacheOptions configures the live resolver cache.
type PermissionCacheOptions struct {
	TTL      time.Duration
	Capacity int
	Clock    clockwork.Clock
}

type permissionEntry struct {
	elevated   bool
	resolvedAt time.Time
}

type livePermissionResolver struct {
	querier MemberRoleQuerier
	ttl     time.Duration
	clock   clockwork.Clock
	log     waLog.Logger

	mu     sync.Mutex
	cache  *lru.Cache[string, permissionEntry]
	flight singleflight.Group
}

// NewLivePermissionResolver resolves through the platform role lookup, falling back
// to the actor's static metadata, and caches each verdict for the TTL.
func NewLivePermissionResolver(querier MemberRoleQuerier, opts PermissionCacheOptions, log waLog.Logger) PermissionResolver {
	if opts.TTL <= 0 {
		opts.TTL = DefaultPermissionTTL
	}
	if opts.Capacity <= 0 {
		opts.Capacity = defaultPermissionEntries
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if log == nil {
		log = waLog.Noop
	}
	cache, _ := lru.New[string, permissionEntry](opts.Capacity)
	return &livePermissionResolver{
		querier: querier,
		ttl:     opts.TTL,
		clock:   opts.Clock,
		log:     log,
		cache:   cache,
	}
}

func permissionKey(groupID, userID string) string {
	return groupID + "|" + userID
}

func (r *livePermissionResolver) Resolve(ctx context.Context, actor Actor) Level {
	if actor.SuperAdmin {
		return LevelSuperAdmin
	}
	groupID := strings.TrimSpace(actor.GroupID)
	userID := strings.TrimSpace(actor.UserID)
	if groupID == "" || userID == "" {
		return LevelUser
	}

	key := permissionKey(groupID, userID)
	if entry, ok := r.cached(key); ok {
		permissionLookups.WithLabelValues("cache").Inc()
		return levelFor(entry.elevated)
	}

	v, _, _ := r.flight.Do(key, func() (any, error) {
		// Another caller may have stored the verdict between our miss and this flight.
		if entry, ok := r.cached(key); ok {
			permissionLookups.WithLabelValues("cache").Inc()
			return entry.elevated, nil
		}
		elevated := r.resolve(ctx, actor, groupID, userID)
		r.store(key, elevated)
		return elevated, nil
	})
	elevated, _ := v.(bool)
	return levelFor(elevated)
}

func (r *livePermissionResolver) resolve(ctx context.Context, actor Actor, groupID, userID string) bool {
	role, err := r.lookup(ctx, groupID, userID)
	if err == nil {
		permissionLookups.WithLabelValues("live").Inc()
		return role
	}
	r.log.Debugf("live role lookup failed for %s in %s, using event metadata: %v", userID, groupID, err)
	permissionLookups.WithLabelValues("fallback").Inc()
	return staticElevated(actor)
}

func (r *livePermissionResolver) lookup(ctx context.Context, groupID, userID string) (elevated bool, err error) {
	if r.querier == nil {
		return false, fmt.Errorf("no role querier configured")
	}
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("role lookup panic: %v", rec)
		}
	}()
	role, err := r.querier.MemberRole(ctx, groupID, userID)
	if err != nil {
		return false, err
	}
	return role.Elevated(), nil
}

func (r *livePermissionResolver) cached(key string) (permissionEntry, bool) {
	now := r.clock.Now()
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.cache.Get(key)
	if !ok {
		return permissionEntry{}, false
	}
	if now.Sub(entry.resolvedAt) >= r.ttl {
		r.cache.Remove(key)
		return permissionEntry{}, false
	}
	return entry, true
}

// store records the verdict and purges expired entries under the same lock.
func (r *livePermissionResolver) store(key string, elevated bool) {
	now := r.clock.Now()
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, k := range r.cache.Keys() {
		if e, ok := r.cache.Peek(k); ok && now.Sub(e.resolvedAt) >= r.ttl {
			r.cache.Remove(k)
		}
	}
	r.cache.Add(key, permissionEntry{elevated: elevated, resolvedAt: now})
}

type conservativePermissionResolver struct{}

// NewConservativePermissionResolver never touches the network: it only trusts
// the host flag and the metadata carried by the event. A GroupAdmin verdict
// obtained live may therefore not be reproduced here.
func NewConservativePermissionResolver() PermissionResolver {
	return conservativePermissionResolver{}
}

func (conservativePermissionResolver) Resolve(_ context.Context, actor Actor) Level {
	if actor.SuperAdmin {
		return LevelSuperAdmin
	}
	if strings.TrimSpace(actor.GroupID) == "" || strings.TrimSpace(actor.UserID) == "" {
		return LevelUser
	}
	return levelFor(staticElevated(actor))
}

func staticElevated(actor Actor) bool {
	userID := strings.TrimSpace(actor.UserID)
	if userID == "" {
		return false
	}
	if strings.TrimSpace(actor.OwnerID) == userID {
		return true
	}
	for _, id := range actor.AdminIDs {
		if strings.TrimSpace(id) == userID {
			return true
		}
	}
	return false
}

func levelFor(elevated bool) Level {
	if elevated {
		return LevelGroupAdmin
	}
	return LevelUser
}
