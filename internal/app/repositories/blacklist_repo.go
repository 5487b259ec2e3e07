package repositories

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/faeln1/go-onebot-guard/internal/domain/blacklist"
)

var (
	ErrBlacklistNotFound = errors.New("blacklist entry not found")
	ErrBlacklistConflict = errors.New("blacklist entry conflict")
	ErrStoreUnavailable  = errors.New("store unavailable")
)

// DefaultListLimit caps List when the caller passes no limit.
const DefaultListLimit = 50

// BlacklistRepository stores blacklist rows keyed by (user_id, group_id).
// An empty groupID addresses the global scope.
type BlacklistRepository interface {
	// IsBlacklisted reports a global entry or one scoped to groupID.
	IsBlacklisted(ctx context.Context, userID, groupID string) (bool, error)
	// Get returns the entry of the exact scope.
	Get(ctx context.Context, userID, groupID string) (*blacklist.Entry, error)
	// Upsert inserts or refreshes reason, added_by and updated_at.
	Upsert(ctx context.Context, entry blacklist.Entry) (*blacklist.Entry, error)
	Remove(ctx context.Context, userID, groupID string) error
	List(ctx context.Context, opts blacklist.ListOptions) ([]blacklist.Entry, error)
}

type blacklistKey struct {
	userID  string
	groupID string
}

type inMemoryBlacklistRepo struct {
	mu    sync.RWMutex
	items map[blacklistKey]blacklist.Entry
	now   func() time.Time
}

func NewInMemoryBlacklistRepo() BlacklistRepository {
	return &inMemoryBlacklistRepo{
		items: make(map[blacklistKey]blacklist.Entry),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func normalizeScope(userID, groupID string) blacklistKey {
	return blacklistKey{userID: strings.TrimSpace(userID), groupID: strings.TrimSpace(groupID)}
}

func (r *inMemoryBlacklistRepo) IsBlacklisted(ctx context.Context, userID, groupID string) (bool, error) {
	key := normalizeScope(userID, groupID)
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.items[blacklistKey{userID: key.userID}]; ok {
		return true, nil
	}
	if key.groupID == "" {
		return false, nil
	}
	_, ok := r.items[key]
	return ok, nil
}

func (r *inMemoryBlacklistRepo) Get(ctx context.Context, userID, groupID string) (*blacklist.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.items[normalizeScope(userID, groupID)]
	if !ok {
		return nil, ErrBlacklistNotFound
	}
	return &entry, nil
}

func (r *inMemoryBlacklistRepo) Upsert(ctx context.Context, entry blacklist.Entry) (*blacklist.Entry, error) {
	key := normalizeScope(entry.UserID, entry.GroupID)
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()
	stored := blacklist.Entry{
		UserID:    key.userID,
		GroupID:   key.groupID,
		Reason:    entry.Reason,
		AddedBy:   entry.AddedBy,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if existing, ok := r.items[key]; ok {
		stored.CreatedAt = existing.CreatedAt
	}
	r.items[key] = stored
	return &stored, nil
}

func (r *inMemoryBlacklistRepo) Remove(ctx context.Context, userID, groupID string) error {
	key := normalizeScope(userID, groupID)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[key]; !ok {
		return ErrBlacklistNotFound
	}
	delete(r.items, key)
	return nil
}

func (r *inMemoryBlacklistRepo) List(ctx context.Context, opts blacklist.ListOptions) ([]blacklist.Entry, error) {
	limit, offset := pageBounds(opts.Limit, opts.Offset)
	groupID := strings.TrimSpace(opts.GroupID)

	r.mu.RLock()
	out := make([]blacklist.Entry, 0, len(r.items))
	for key, entry := range r.items {
		switch {
		case groupID != "" && key.groupID != groupID:
			continue
		case groupID == "" && opts.Global && key.groupID != "":
			continue
		}
		out = append(out, entry)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		if out[i].UserID != out[j].UserID {
			return out[i].UserID < out[j].UserID
		}
		return out[i].GroupID < out[j].GroupID
	})

	if offset >= len(out) {
		return []blacklist.Entry{}, nil
	}
	end := offset + limit
	if end > len(out) {
		end = len(out)
	}
	return out[offset:end], nil
}

func pageBounds(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
