package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/faeln1/go-onebot-guard/internal/app/repositories"
	"github.com/faeln1/go-onebot-guard/internal/domain/blacklist"
	"github.com/faeln1/go-onebot-guard/internal/domain/group"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlacklistServiceValidation(t *testing.T) {
	svc := NewBlacklistService(repositories.NewInMemoryBlacklistRepo(), nil)
	ctx := context.Background()

	_, err := svc.Add(ctx, blacklist.AddInput{UserID: "abc"}, "1")
	assert.ErrorIs(t, err, ErrInvalidUserID)

	_, err = svc.Add(ctx, blacklist.AddInput{UserID: "1", GroupID: "x1"}, "1")
	assert.ErrorIs(t, err, ErrInvalidGroupID)

	_, err = svc.Add(ctx, blacklist.AddInput{UserID: "1", Reason: strings.Repeat("a", MaxReasonLength+1)}, "1")
	assert.ErrorIs(t, err, ErrReasonTooLong)

	entry, err := svc.Add(ctx, blacklist.AddInput{UserID: " 12 ", Reason: strings.Repeat("a", MaxReasonLength)}, "1")
	require.NoError(t, err)
	assert.Equal(t, "12", entry.UserID)
	assert.True(t, entry.IsGlobal())
}

func TestBlacklistServiceCheckPrefersGlobal(t *testing.T) {
	svc := NewBlacklistService(repositories.NewInMemoryBlacklistRepo(), nil)
	ctx := context.Background()

	_, err := svc.Add(ctx, blacklist.AddInput{UserID: "5", GroupID: "100", Reason: "local"}, "1")
	require.NoError(t, err)

	entry, err := svc.Check(ctx, "5", "100")
	require.NoError(t, err)
	assert.Equal(t, "local", entry.Reason)

	_, err = svc.Add(ctx, blacklist.AddInput{UserID: "5", Reason: "global"}, "1")
	require.NoError(t, err)
	entry, err = svc.Check(ctx, "5", "100")
	require.NoError(t, err)
	assert.Equal(t, "global", entry.Reason)

	_, err = svc.Check(ctx, "6", "100")
	assert.ErrorIs(t, err, repositories.ErrBlacklistNotFound)
}

func TestBlacklistServiceRemove(t *testing.T) {
	svc := NewBlacklistService(repositories.NewInMemoryBlacklistRepo(), nil)
	ctx := context.Background()

	assert.ErrorIs(t, svc.Remove(ctx, "5", "100"), repositories.ErrBlacklistNotFound)
	_, err := svc.Add(ctx, blacklist.AddInput{UserID: "5", GroupID: "100"}, "1")
	require.NoError(t, err)
	assert.NoError(t, svc.Remove(ctx, "5", "100"))
}

func TestBlacklistServiceScan(t *testing.T) {
	members := &fakeMembers{members: []group.Member{
		{UserID: "1", Nickname: "alice"},
		{UserID: "2", Nickname: "bob"},
		{UserID: "3", Nickname: "carol"},
	}}
	svc := NewBlacklistService(repositories.NewInMemoryBlacklistRepo(), members)
	ctx := context.Background()
	_, err := svc.Add(ctx, blacklist.AddInput{UserID: "2", GroupID: "100", Reason: "spam"}, "9")
	require.NoError(t, err)
	_, err = svc.Add(ctx, blacklist.AddInput{UserID: "3", Reason: "scam"}, "9")
	require.NoError(t, err)

	hits, err := svc.Scan(ctx, "100")
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "bob", hits[0].Nickname)
	assert.Equal(t, "scam", hits[1].Entry.Reason)

	members.err = errors.New("offline")
	_, err = svc.Scan(ctx, "100")
	assert.Error(t, err)

	_, err = NewBlacklistService(repositories.NewInMemoryBlacklistRepo(), nil).Scan(ctx, "100")
	assert.ErrorIs(t, err, ErrNoMemberLister)
}

func TestWelcomeServiceValidation(t *testing.T) {
	svc := NewWelcomeService(repositories.NewInMemoryWelcomeRepo())
	ctx := context.Background()

	_, err := svc.Set(ctx, "100", "   ")
	assert.ErrorIs(t, err, ErrWelcomeEmpty)
	_, err = svc.Set(ctx, "100", strings.Repeat("x", MaxWelcomeLength+1))
	assert.ErrorIs(t, err, ErrWelcomeTooLong)
	_, err = svc.Set(ctx, "abc", "hi")
	assert.ErrorIs(t, err, ErrInvalidGroupID)

	tpl, err := svc.Set(ctx, "100", `Hi {user}\nread the rules`)
	require.NoError(t, err)
	assert.Equal(t, "Hi {user}\nread the rules", tpl.Message)

	got, err := svc.Get(ctx, "100")
	require.NoError(t, err)
	assert.Equal(t, tpl.Message, got.Message)

	require.NoError(t, svc.Delete(ctx, "100"))
	_, err = svc.Get(ctx, "100")
	assert.ErrorIs(t, err, repositories.ErrWelcomeNotFound)
}
