package services

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/faeln1/go-onebot-guard/internal/app/repositories"
	"github.com/faeln1/go-onebot-guard/internal/domain/blacklist"
	"github.com/faeln1/go-onebot-guard/internal/domain/event"
	"github.com/faeln1/go-onebot-guard/internal/domain/group"
	"github.com/faeln1/go-onebot-guard/internal/domain/message"
	"github.com/faeln1/go-onebot-guard/internal/domain/moderation"
)

type kickCall struct {
	groupID, userID, reason string
}

type fakeKicker struct {
	mu    sync.Mutex
	calls []kickCall
	err   error
	panic bool
}

func (k *fakeKicker) Kick(_ context.Context, groupID, userID, reason string) error {
	if k.panic {
		panic("kick exploded")
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	k.calls = append(k.calls, kickCall{groupID, userID, reason})
	return k.err
}

func (k *fakeKicker) count() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.calls)
}

type fakeRoles struct {
	roles map[string]group.Role
	err   error
	panic bool
	calls atomic.Int32
}

func (f *fakeRoles) MemberRole(_ context.Context, groupID, userID string) (group.Role, error) {
	f.calls.Add(1)
	if f.panic {
		panic("role lookup exploded")
	}
	if f.err != nil {
		return "", f.err
	}
	if role, ok := f.roles[groupID+"|"+userID]; ok {
		return role, nil
	}
	return group.RoleMember, nil
}

type fakeMembers struct {
	members []group.Member
	err     error
}

func (f *fakeMembers) ListMembers(context.Context, string) ([]group.Member, error) {
	return f.members, f.err
}

type recordingDispatcher struct {
	mu     sync.Mutex
	events []moderation.Event
}

func (d *recordingDispatcher) Dispatch(_ context.Context, events []moderation.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, events...)
	return nil
}

// brokenBlacklistRepo fails every read.
type brokenBlacklistRepo struct {
	repositories.BlacklistRepository
}

func (brokenBlacklistRepo) Get(context.Context, string, string) (*blacklist.Entry, error) {
	return nil, repositories.ErrStoreUnavailable
}

func (brokenBlacklistRepo) IsBlacklisted(context.Context, string, string) (bool, error) {
	return false, repositories.ErrStoreUnavailable
}

// rejectingBlacklistRepo answers reads but refuses every write.
type rejectingBlacklistRepo struct {
	repositories.BlacklistRepository
}

func (rejectingBlacklistRepo) IsBlacklisted(context.Context, string, string) (bool, error) {
	return false, nil
}

func (rejectingBlacklistRepo) Upsert(context.Context, blacklist.Entry) (*blacklist.Entry, error) {
	return nil, repositories.ErrStoreUnavailable
}

func joinEvent(groupID, userID string) event.Event {
	return event.Event{
		PostType:   event.PostTypeNotice,
		NoticeType: event.NoticeGroupIncrease,
		SubType:    "approve",
		GroupID:    event.ID(groupID),
		UserID:     event.ID(userID),
	}
}

func leaveEvent(groupID, userID, subType string) event.Event {
	return event.Event{
		PostType:   event.PostTypeNotice,
		NoticeType: event.NoticeGroupDecrease,
		SubType:    subType,
		GroupID:    event.ID(groupID),
		UserID:     event.ID(userID),
	}
}

func groupMessage(groupID, userID, role, text string) event.Event {
	return event.Event{
		PostType:    event.PostTypeMessage,
		MessageType: event.MessageTypeGroup,
		GroupID:     event.ID(groupID),
		UserID:      event.ID(userID),
		RawMessage:  text,
		Sender:      &event.Sender{UserID: event.ID(userID), Role: role},
	}
}

func hasMention(chain message.Chain) bool {
	for _, seg := range chain {
		if seg.IsMention() {
			return true
		}
	}
	return false
}
