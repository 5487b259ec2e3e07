package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/faeln1/go-onebot-guard/internal/app/repositories"
	"github.com/faeln1/go-onebot-guard/internal/domain/blacklist"
	"github.com/faeln1/go-onebot-guard/internal/platform/onebot"
)

const MaxReasonLength = 200

var (
	ErrInvalidUserID  = errors.New("user id must be numeric")
	ErrInvalidGroupID = errors.New("group id must be numeric")
	ErrReasonTooLong  = fmt.Errorf("reason exceeds %d characters", MaxReasonLength)
	ErrNoMemberLister = errors.New("platform cannot list members")
)

// BlacklistService valida e aplica operações administrativas sobre a blacklist.
type BlacklistService interface {
	Add(ctx context.Context, in blacklist.AddInput, addedBy string) (*blacklist.Entry, error)
	Remove(ctx context.Context, userID, groupID string) error
	Get(ctx context.Context, userID, groupID string) (*blacklist.Entry, error)
	// Check returns the effective entry for a group, global first.
	Check(ctx context.Context, userID, groupID string) (*blacklist.Entry, error)
	List(ctx context.Context, opts blacklist.ListOptions) ([]blacklist.Entry, error)
	// Scan reports current members of the group that are blacklisted.
	Scan(ctx context.Context, groupID string) ([]blacklist.ScanHit, error)
}

type blacklistService struct {
	repo    repositories.BlacklistRepository
	members MemberLister
}

func NewBlacklistService(repo repositories.BlacklistRepository, members MemberLister) BlacklistService {
	return &blacklistService{repo: repo, members: members}
}

func validateUserID(id string) error {
	if !onebot.IsNumericID(strings.TrimSpace(id)) {
		return fmt.Errorf("%w: %q", ErrInvalidUserID, id)
	}
	return nil
}

func validateGroupScope(id string) error {
	id = strings.TrimSpace(id)
	if id != "" && !onebot.IsNumericID(id) {
		return fmt.Errorf("%w: %q", ErrInvalidGroupID, id)
	}
	return nil
}

func (s *blacklistService) Add(ctx context.Context, in blacklist.AddInput, addedBy string) (*blacklist.Entry, error) {
	if err := validateUserID(in.UserID); err != nil {
		return nil, err
	}
	if err := validateGroupScope(in.GroupID); err != nil {
		return nil, err
	}
	reason := strings.TrimSpace(in.Reason)
	if utf8.RuneCountInString(reason) > MaxReasonLength {
		return nil, ErrReasonTooLong
	}
	return s.repo.Upsert(ctx, blacklist.Entry{
		UserID:  strings.TrimSpace(in.UserID),
		GroupID: strings.TrimSpace(in.GroupID),
		Reason:  reason,
		AddedBy: addedBy,
	})
}

func (s *blacklistService) Remove(ctx context.Context, userID, groupID string) error {
	if err := validateUserID(userID); err != nil {
		return err
	}
	if err := validateGroupScope(groupID); err != nil {
		return err
	}
	return s.repo.Remove(ctx, strings.TrimSpace(userID), strings.TrimSpace(groupID))
}

func (s *blacklistService) Get(ctx context.Context, userID, groupID string) (*blacklist.Entry, error) {
	if err := validateUserID(userID); err != nil {
		return nil, err
	}
	if err := validateGroupScope(groupID); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, strings.TrimSpace(userID), strings.TrimSpace(groupID))
}

func (s *blacklistService) Check(ctx context.Context, userID, groupID string) (*blacklist.Entry, error) {
	entry, err := s.Get(ctx, userID, "")
	if err == nil || !errors.Is(err, repositories.ErrBlacklistNotFound) || strings.TrimSpace(groupID) == "" {
		return entry, err
	}
	return s.Get(ctx, userID, groupID)
}

func (s *blacklistService) List(ctx context.Context, opts blacklist.ListOptions) ([]blacklist.Entry, error) {
	if err := validateGroupScope(opts.GroupID); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, opts)
}

func (s *blacklistService) Scan(ctx context.Context, groupID string) ([]blacklist.ScanHit, error) {
	if !onebot.IsNumericID(strings.TrimSpace(groupID)) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidGroupID, groupID)
	}
	if s.members == nil {
		return nil, ErrNoMemberLister
	}
	members, err := s.members.ListMembers(ctx, groupID)
	if err != nil {
		return nil, err
	}
	var hits []blacklist.ScanHit
	for _, m := range members {
		entry, err := s.Check(ctx, m.UserID, groupID)
		if errors.Is(err, repositories.ErrBlacklistNotFound) {
			continue
		}
		if err != nil {
			return hits, err
		}
		hits = append(hits, blacklist.ScanHit{UserID: m.UserID, Nickname: m.Nickname, Entry: *entry})
	}
	return hits, nil
}
