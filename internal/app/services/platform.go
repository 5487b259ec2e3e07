package services

import (
	"context"

	"github.com/faeln1/go-onebot-guard/internal/domain/group"
	"github.com/faeln1/go-onebot-guard/internal/domain/message"
)

// Kicker removes a member from a group.
type Kicker interface {
	Kick(ctx context.Context, groupID, userID, reason string) error
}

// MemberLister enumerates the current members of a group.
type MemberLister interface {
	ListMembers(ctx context.Context, groupID string) ([]group.Member, error)
}

// MemberRoleQuerier looks up a member's live role.
type MemberRoleQuerier interface {
	MemberRole(ctx context.Context, groupID, userID string) (group.Role, error)
}

// Messenger delivers outbound messages into a group.
type Messenger interface {
	SendGroupMessage(ctx context.Context, groupID string, msg message.Chain) error
}

// Platform is the full capability set a chat platform adapter provides.
type Platform interface {
	Name() string
	Kicker
	MemberLister
	MemberRoleQuerier
	Messenger
}
