package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/faeln1/go-onebot-guard/internal/app/repositories"
	"github.com/faeln1/go-onebot-guard/internal/domain/blacklist"
	"github.com/faeln1/go-onebot-guard/internal/domain/event"
	"github.com/faeln1/go-onebot-guard/internal/domain/message"
	"github.com/faeln1/go-onebot-guard/internal/domain/moderation"
	"github.com/jonboulle/clockwork"
	waLog "go.mau.fi/whatsmeow/util/log"
)

const (
	notifyBlacklistJoin = "blacklist_join:"
	notifyMemberLeave   = "member_leave:"

	defaultBlacklistReason = "blacklisted user"
)

// Departure classifies a group_decrease sub_type.
type Departure int

const (
	DepartureUnknown Departure = iota
	DepartureVoluntary
	DepartureKicked
	DepartureBotKicked
)

// ClassifyDeparture maps a sub_type to a departure kind and the reason recorded
// on the automatic blacklist entry.
func ClassifyDeparture(subType string) (Departure, string) {
	switch subType {
	case event.SubTypeLeave:
		return DepartureVoluntary, "voluntary departure"
	case event.SubTypeKick:
		return DepartureKicked, "kicked"
	case event.SubTypeKickMe:
		return DepartureBotKicked, ""
	default:
		return DepartureUnknown, fmt.Sprintf("left group (%s)", subType)
	}
}

// ModerationPipeline reacts to membership notices. Each call finishes all of its
// side effects before returning at most one outbound message for the group.
type ModerationPipeline interface {
	Handle(ctx context.Context, evt event.Event) message.Chain
}

type moderationPipeline struct {
	blacklist  repositories.BlacklistRepository
	welcome    repositories.WelcomeRepository
	kicker     Kicker
	throttle   NotificationThrottle
	dispatcher ModerationEventsDispatcher
	clock      clockwork.Clock
	log        waLog.Logger
}

// NewModerationPipeline monta o pipeline de entrada/saída de membros.
func NewModerationPipeline(
	blacklistRepo repositories.BlacklistRepository,
	welcomeRepo repositories.WelcomeRepository,
	kicker Kicker,
	throttle NotificationThrottle,
	dispatcher ModerationEventsDispatcher,
	clock clockwork.Clock,
	log waLog.Logger,
) ModerationPipeline {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if throttle == nil {
		throttle = NewNotificationThrottle(DefaultNotificationCooldown, clock)
	}
	if log == nil {
		log = waLog.Noop
	}
	return &moderationPipeline{
		blacklist:  blacklistRepo,
		welcome:    welcomeRepo,
		kicker:     kicker,
		throttle:   throttle,
		dispatcher: dispatcher,
		clock:      clock,
		log:        log,
	}
}

func (p *moderationPipeline) Handle(ctx context.Context, evt event.Event) (out message.Chain) {
	defer func() {
		if r := recover(); r != nil {
			pipelinePanics.Inc()
			p.log.Errorf("recovered from panic handling %s in %s: %v", evt.Kind(), evt.GroupID, r)
			out = nil
		}
	}()

	switch {
	case evt.IsMemberJoin():
		eventsTotal.WithLabelValues("join").Inc()
		return p.handleJoin(ctx, string(evt.GroupID), string(evt.UserID))
	case evt.IsMemberLeave():
		eventsTotal.WithLabelValues("leave").Inc()
		return p.handleLeave(ctx, string(evt.GroupID), string(evt.UserID), evt.SubType)
	default:
		return nil
	}
}

func (p *moderationPipeline) handleJoin(ctx context.Context, groupID, userID string) message.Chain {
	if groupID == "" || userID == "" {
		return nil
	}

	entry, err := p.lookupBlacklist(ctx, userID, groupID)
	if err != nil {
		// Without a verdict the user is neither kicked nor welcomed.
		p.log.Errorf("blacklist lookup failed for %s joining %s: %v", userID, groupID, err)
		if !p.throttle.ShouldSend(ctx, notifyBlacklistJoin+groupID) {
			return nil
		}
		return message.Plain(fmt.Sprintf(
			"User %s joined but could not be checked against the blacklist, an admin should verify them", userID))
	}
	if entry != nil {
		return p.expel(ctx, groupID, userID, *entry)
	}
	return p.greet(ctx, groupID, userID)
}

// lookupBlacklist checks the global scope first so its reason wins.
func (p *moderationPipeline) lookupBlacklist(ctx context.Context, userID, groupID string) (*blacklist.Entry, error) {
	for _, scope := range []string{"", groupID} {
		entry, err := p.blacklist.Get(ctx, userID, scope)
		if err == nil {
			return entry, nil
		}
		if !errors.Is(err, repositories.ErrBlacklistNotFound) {
			return nil, err
		}
	}
	return nil, nil
}

func (p *moderationPipeline) expel(ctx context.Context, groupID, userID string, entry blacklist.Entry) message.Chain {
	reason := strings.TrimSpace(entry.Reason)
	if reason == "" {
		reason = defaultBlacklistReason
	}
	p.log.Infof("blacklisted user %s (%s) joined %s, reason: %s, added by %s", userID, entry.Scope(), groupID, reason, entry.AddedBy)

	var kickErr error
	if p.kicker == nil {
		kickErr = errors.New("platform cannot kick members")
	} else {
		kickErr = p.kicker.Kick(ctx, groupID, userID, defaultBlacklistReason+": "+reason)
	}

	detail := ""
	if kickErr != nil {
		kicksTotal.WithLabelValues("failed").Inc()
		detail = kickErr.Error()
		p.log.Warnf("failed to kick blacklisted user %s from %s: %v", userID, groupID, kickErr)
	} else {
		kicksTotal.WithLabelValues("kicked").Inc()
		p.log.Infof("kicked blacklisted user %s from %s", userID, groupID)
	}
	p.dispatch(ctx, groupID, moderation.ActionBlacklistKick, moderation.Payload{
		UserID: userID, Reason: reason, Success: kickErr == nil, Detail: detail,
	})

	if !p.throttle.ShouldSend(ctx, notifyBlacklistJoin+groupID) {
		p.log.Debugf("blacklist notification for %s suppressed by cooldown", groupID)
		return nil
	}
	return blacklistNotice(userID, reason, kickErr)
}

func blacklistNotice(userID, reason string, kickErr error) message.Chain {
	if kickErr == nil {
		return message.Chain{
			message.Text(fmt.Sprintf("Blacklisted user %s joined the group\n", userID)),
			message.Text("Removed automatically, reason: " + reason),
		}
	}
	return message.Chain{
		message.Text(fmt.Sprintf("Blacklisted user %s joined the group\n", userID)),
		message.Text("Automatic removal failed, an admin needs to remove them manually\n"),
		message.Text("Failure: " + kickErr.Error() + "\n"),
		message.Text("Blacklist reason: " + reason),
	}
}

func (p *moderationPipeline) greet(ctx context.Context, groupID, userID string) message.Chain {
	if p.welcome != nil {
		tpl, err := p.welcome.Get(ctx, groupID)
		switch {
		case err == nil:
			if chain := RenderWelcome(tpl.Message, userID, groupID); !chain.Empty() {
				return chain
			}
		case !errors.Is(err, repositories.ErrWelcomeNotFound):
			p.log.Warnf("welcome template lookup failed for %s: %v", groupID, err)
		}
	}
	return DefaultWelcome(userID)
}

func (p *moderationPipeline) handleLeave(ctx context.Context, groupID, userID, subType string) message.Chain {
	kind, reason := ClassifyDeparture(subType)
	if kind == DepartureBotKicked {
		p.log.Infof("bot was removed from group %s", groupID)
		return nil
	}
	if groupID == "" || userID == "" {
		return nil
	}
	p.log.Infof("user %s left %s: %s", userID, groupID, reason)

	outcome := p.autoBlacklist(ctx, groupID, userID, reason)
	text := fmt.Sprintf("User %s left the group (%s), %s", userID, reason, outcome)

	if !p.throttle.ShouldSend(ctx, notifyMemberLeave+groupID) {
		p.log.Infof("departure notification suppressed by cooldown: %s", text)
		return nil
	}
	return message.Plain(text)
}

// autoBlacklist adds a departed member to the group blacklist unless already
// blacklisted in any scope, and describes the result.
func (p *moderationPipeline) autoBlacklist(ctx context.Context, groupID, userID, reason string) string {
	already, err := p.blacklist.IsBlacklisted(ctx, userID, groupID)
	if err != nil {
		autoBlacklistTotal.WithLabelValues("failed").Inc()
		p.log.Errorf("blacklist check failed for departed user %s in %s: %v", userID, groupID, err)
		return "could not check the blacklist"
	}
	if already {
		autoBlacklistTotal.WithLabelValues("exists").Inc()
		return "already on the blacklist"
	}
	_, err = p.blacklist.Upsert(ctx, blacklist.Entry{
		UserID:  userID,
		GroupID: groupID,
		Reason:  reason,
		AddedBy: blacklist.SystemActor,
	})
	p.dispatch(ctx, groupID, moderation.ActionAutoBlacklist, moderation.Payload{
		UserID: userID, Reason: reason, Success: err == nil, Detail: errDetail(err),
	})
	if err != nil {
		autoBlacklistTotal.WithLabelValues("failed").Inc()
		p.log.Errorf("auto-blacklist failed for %s in %s: %v", userID, groupID, err)
		return "failed to add to the group blacklist"
	}
	autoBlacklistTotal.WithLabelValues("added").Inc()
	return "auto-blacklisted in this group"
}

func (p *moderationPipeline) dispatch(ctx context.Context, groupID, action string, payload moderation.Payload) {
	if p.dispatcher == nil {
		return
	}
	evt := moderation.Event{Timestamp: p.clock.Now().UTC(), GroupID: groupID, Action: action, Payload: payload}
	if err := p.dispatcher.Dispatch(ctx, []moderation.Event{evt}); err != nil {
		p.log.Warnf("moderation webhook failed for %s: %v", groupID, err)
	}
}

func errDetail(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
