package repositories

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/faeln1/go-onebot-guard/internal/domain/welcome"
)

var ErrWelcomeNotFound = errors.New("welcome template not found")

// WelcomeRepository stores one welcome template per group.
type WelcomeRepository interface {
	Get(ctx context.Context, groupID string) (*welcome.Template, error)
	Set(ctx context.Context, groupID, message string) (*welcome.Template, error)
	Delete(ctx context.Context, groupID string) error
}

type inMemoryWelcomeRepo struct {
	mu    sync.RWMutex
	items map[string]welcome.Template
}

func NewInMemoryWelcomeRepo() WelcomeRepository {
	return &inMemoryWelcomeRepo{items: make(map[string]welcome.Template)}
}

func (r *inMemoryWelcomeRepo) Get(ctx context.Context, groupID string) (*welcome.Template, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tpl, ok := r.items[strings.TrimSpace(groupID)]
	if !ok {
		return nil, ErrWelcomeNotFound
	}
	return &tpl, nil
}

func (r *inMemoryWelcomeRepo) Set(ctx context.Context, groupID, message string) (*welcome.Template, error) {
	tpl := welcome.Template{GroupID: strings.TrimSpace(groupID), Message: message, UpdatedAt: time.Now().UTC()}
	r.mu.Lock()
	r.items[tpl.GroupID] = tpl
	r.mu.Unlock()
	return &tpl, nil
}

func (r *inMemoryWelcomeRepo) Delete(ctx context.Context, groupID string) error {
	id := strings.TrimSpace(groupID)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return ErrWelcomeNotFound
	}
	delete(r.items, id)
	return nil
}
