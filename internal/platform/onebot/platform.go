package onebot

import (
	"context"
	"sync"

	"github.com/faeln1/go-onebot-guard/internal/domain/group"
	"github.com/faeln1/go-onebot-guard/internal/domain/message"
	waLog "go.mau.fi/whatsmeow/util/log"
)

// PlatformName identifies this adapter in logs and status output.
const PlatformName = "onebot"

// Platform adapts the control API client to the moderation capabilities
// (kick, member listing, role lookup, messaging).
type Platform struct {
	client *Client
	log    waLog.Logger

	mu     sync.Mutex
	selfID string
}

func NewPlatform(client *Client, log waLog.Logger) *Platform {
	if log == nil {
		log = waLog.Noop
	}
	return &Platform{client: client, log: log}
}

func (p *Platform) Name() string { return PlatformName }

// SetSelfID records the bot account id, usually taken from inbound events.
func (p *Platform) SetSelfID(id string) {
	if !IsNumericID(id) {
		return
	}
	p.mu.Lock()
	p.selfID = id
	p.mu.Unlock()
}

func (p *Platform) botID(ctx context.Context) (string, error) {
	p.mu.Lock()
	id := p.selfID
	p.mu.Unlock()
	if id != "" {
		return id, nil
	}
	login, err := p.client.GetLoginInfo(ctx)
	if err != nil {
		return "", err
	}
	p.SetSelfID(login.UserID)
	return login.UserID, nil
}

// Kick removes a member after checking the bot itself can moderate the group.
// If the bot's role cannot be determined the kick is still attempted.
func (p *Platform) Kick(ctx context.Context, groupID, userID, reason string) error {
	if self, err := p.botID(ctx); err != nil {
		p.log.Warnf("could not resolve bot account before kick in %s: %v", groupID, err)
	} else if me, err := p.client.GetMemberInfo(ctx, groupID, self); err != nil {
		p.log.Warnf("could not check bot role in %s: %v", groupID, err)
	} else if !me.Role.Elevated() {
		return ErrBotNotAdmin
	}
	p.log.Infof("kicking %s from %s: %s", userID, groupID, reason)
	return p.client.KickMember(ctx, groupID, userID, false)
}

func (p *Platform) ListMembers(ctx context.Context, groupID string) ([]group.Member, error) {
	return p.client.ListMembers(ctx, groupID)
}

func (p *Platform) MemberRole(ctx context.Context, groupID, userID string) (group.Role, error) {
	m, err := p.client.GetMemberInfo(ctx, groupID, userID)
	if err != nil {
		return "", err
	}
	return m.Role, nil
}

func (p *Platform) SendGroupMessage(ctx context.Context, groupID string, msg message.Chain) error {
	_, err := p.client.SendGroupMessage(ctx, groupID, msg)
	return err
}

func (p *Platform) Status(ctx context.Context) (group.Status, error) {
	return p.client.TestConnection(ctx)
}
