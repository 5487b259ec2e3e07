package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/faeln1/go-onebot-guard/internal/app/repositories"
	"github.com/faeln1/go-onebot-guard/internal/domain/blacklist"
	"github.com/faeln1/go-onebot-guard/internal/domain/event"
	"github.com/faeln1/go-onebot-guard/internal/domain/group"
	"github.com/faeln1/go-onebot-guard/internal/domain/message"
	waLog "go.mau.fi/whatsmeow/util/log"
)

var DefaultCommandPrefixes = []string{"/sunos", ".sunos"}

const (
	msgPermissionDenied = "You do not have permission to use this command"
	commandListPreview  = 20
)

const commandHelp = `Available commands:
bl add <user_id> [reason]  blacklist in this group
bl gadd <user_id> [reason] blacklist globally
bl del <user_id>           remove from this group's blacklist
bl gdel <user_id>          remove from the global blacklist
bl list                    show this group's blacklist
bl check <user_id>         check a user
bl scan                    find blacklisted members in this group
wc set <template>          set the welcome message ({user}, {group})
wc del                     restore the default welcome
wc show                    show the welcome message
status                     show your permission level`

// CommandService interpreta comandos administrativos enviados no chat do grupo.
type CommandService interface {
	// Handle returns false when the message is not a command for this bot.
	Handle(ctx context.Context, evt event.Event) (message.Chain, bool)
}

type commandService struct {
	blacklist   BlacklistService
	welcome     WelcomeService
	gate        CommandGate
	superAdmins map[string]struct{}
	prefixes    []string
	log         waLog.Logger
}

func NewCommandService(
	blacklistSvc BlacklistService,
	welcomeSvc WelcomeService,
	gate CommandGate,
	superAdmins []string,
	prefixes []string,
	log waLog.Logger,
) CommandService {
	if len(prefixes) == 0 {
		prefixes = DefaultCommandPrefixes
	}
	if log == nil {
		log = waLog.Noop
	}
	admins := make(map[string]struct{}, len(superAdmins))
	for _, id := range superAdmins {
		if id = strings.TrimSpace(id); id != "" {
			admins[id] = struct{}{}
		}
	}
	return &commandService{
		blacklist:   blacklistSvc,
		welcome:     welcomeSvc,
		gate:        gate,
		superAdmins: admins,
		prefixes:    prefixes,
		log:         log,
	}
}

// ActorFromEvent builds the permission actor from a group message's metadata.
func ActorFromEvent(evt event.Event, superAdmins map[string]struct{}) Actor {
	actor := Actor{UserID: evt.SenderID(), GroupID: string(evt.GroupID)}
	if _, ok := superAdmins[actor.UserID]; ok {
		actor.SuperAdmin = true
	}
	if evt.Sender != nil {
		switch group.ParseRole(evt.Sender.Role) {
		case group.RoleOwner:
			actor.OwnerID = actor.UserID
		case group.RoleAdmin:
			actor.AdminIDs = []string{actor.UserID}
		}
	}
	return actor
}

func (s *commandService) Handle(ctx context.Context, evt event.Event) (message.Chain, bool) {
	if !evt.IsGroupMessage() || evt.GroupID == "" {
		return nil, false
	}
	rest, ok := s.stripPrefix(evt.Text())
	if !ok {
		return nil, false
	}
	actor := ActorFromEvent(evt, s.superAdmins)

	name, args := nextWord(rest)
	var (
		reply   string
		command = strings.ToLower(name)
	)
	switch command {
	case "bl":
		var sub string
		sub, args = nextWord(args)
		command = "bl_" + strings.ToLower(sub)
		reply = s.blacklistCommand(ctx, actor, strings.ToLower(sub), args)
	case "wc":
		var sub string
		sub, args = nextWord(args)
		command = "wc_" + strings.ToLower(sub)
		reply = s.welcomeCommand(ctx, actor, strings.ToLower(sub), args)
	case "status":
		level := s.gate.LevelNow(actor)
		reply = fmt.Sprintf("User %s in group %s: %s", actor.UserID, actor.GroupID, level)
	case "", "help":
		command = "help"
		reply = commandHelp
	default:
		command = "unknown"
		reply = "Unknown command, send " + s.prefixes[0] + " help"
	}

	result := "ok"
	if reply == msgPermissionDenied {
		result = "denied"
	}
	commandsTotal.WithLabelValues(command, result).Inc()
	s.log.Debugf("command %s from %s in %s: %s", command, actor.UserID, actor.GroupID, result)
	return message.Plain(reply), true
}

func (s *commandService) stripPrefix(text string) (string, bool) {
	for _, p := range s.prefixes {
		if !strings.HasPrefix(text, p) {
			continue
		}
		rest := text[len(p):]
		if rest != "" && !unicode.IsSpace(rune(rest[0])) {
			continue
		}
		return strings.TrimSpace(rest), true
	}
	return "", false
}

// nextWord splits off the first whitespace separated word.
func nextWord(s string) (string, string) {
	s = strings.TrimSpace(s)
	i := strings.IndexFunc(s, unicode.IsSpace)
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimSpace(s[i:])
}

func (s *commandService) blacklistCommand(ctx context.Context, actor Actor, sub, args string) string {
	switch sub {
	case "add", "gadd":
		scope, required := actor.GroupID, LevelGroupAdmin
		if sub == "gadd" {
			scope, required = "", LevelSuperAdmin
		}
		if !s.gate.Authorize(ctx, actor, required) {
			return msgPermissionDenied
		}
		userID, reason := nextWord(args)
		if userID == "" {
			return "Usage: bl " + sub + " <user_id> [reason]"
		}
		entry, err := s.blacklist.Add(ctx, blacklist.AddInput{UserID: userID, GroupID: scope, Reason: reason}, actor.UserID)
		if err != nil {
			return commandError(err)
		}
		return fmt.Sprintf("Added %s to the %s blacklist", entry.UserID, scopeLabel(entry.GroupID))

	case "del", "gdel":
		scope, required := actor.GroupID, LevelGroupAdmin
		if sub == "gdel" {
			scope, required = "", LevelSuperAdmin
		}
		if !s.gate.Authorize(ctx, actor, required) {
			return msgPermissionDenied
		}
		userID, _ := nextWord(args)
		if userID == "" {
			return "Usage: bl " + sub + " <user_id>"
		}
		if err := s.blacklist.Remove(ctx, userID, scope); err != nil {
			return commandError(err)
		}
		return fmt.Sprintf("Removed %s from the %s blacklist", userID, scopeLabel(scope))

	case "list":
		entries, err := s.blacklist.List(ctx, blacklist.ListOptions{GroupID: actor.GroupID, Limit: commandListPreview})
		if err != nil {
			return commandError(err)
		}
		if len(entries) == 0 {
			return "This group's blacklist is empty"
		}
		var b strings.Builder
		b.WriteString("Blacklist for this group:")
		for _, e := range entries {
			fmt.Fprintf(&b, "\n%s %s", e.UserID, describeReason(e.Reason))
		}
		return b.String()

	case "check":
		userID, _ := nextWord(args)
		if userID == "" {
			return "Usage: bl check <user_id>"
		}
		entry, err := s.blacklist.Check(ctx, userID, actor.GroupID)
		if errors.Is(err, repositories.ErrBlacklistNotFound) {
			return fmt.Sprintf("%s is not blacklisted", userID)
		}
		if err != nil {
			return commandError(err)
		}
		return fmt.Sprintf("%s is on the %s blacklist %s", entry.UserID, scopeLabel(entry.GroupID), describeReason(entry.Reason))

	case "scan":
		if !s.gate.Authorize(ctx, actor, LevelGroupAdmin) {
			return msgPermissionDenied
		}
		hits, err := s.blacklist.Scan(ctx, actor.GroupID)
		if err != nil {
			return commandError(err)
		}
		if len(hits) == 0 {
			return "No blacklisted members found"
		}
		var b strings.Builder
		fmt.Fprintf(&b, "Found %d blacklisted member(s):", len(hits))
		for _, h := range hits {
			fmt.Fprintf(&b, "\n%s (%s) %s", h.UserID, h.Nickname, describeReason(h.Entry.Reason))
		}
		return b.String()
	}
	return "Usage: bl add|gadd|del|gdel|list|check|scan"
}

func (s *commandService) welcomeCommand(ctx context.Context, actor Actor, sub, args string) string {
	switch sub {
	case "set":
		if !s.gate.Authorize(ctx, actor, LevelGroupAdmin) {
			return msgPermissionDenied
		}
		if _, err := s.welcome.Set(ctx, actor.GroupID, args); err != nil {
			return commandError(err)
		}
		return "Welcome message updated"
	case "del":
		if !s.gate.Authorize(ctx, actor, LevelGroupAdmin) {
			return msgPermissionDenied
		}
		err := s.welcome.Delete(ctx, actor.GroupID)
		if err != nil && !errors.Is(err, repositories.ErrWelcomeNotFound) {
			return commandError(err)
		}
		return "Welcome message reset to the default"
	case "show":
		tpl, err := s.welcome.Get(ctx, actor.GroupID)
		if errors.Is(err, repositories.ErrWelcomeNotFound) {
			return "No custom welcome message, the default is used"
		}
		if err != nil {
			return commandError(err)
		}
		return "Current welcome message:\n" + tpl.Message
	}
	return "Usage: wc set <template>|del|show"
}

func scopeLabel(groupID string) string {
	if groupID == "" {
		return "global"
	}
	return "group"
}

func describeReason(reason string) string {
	if reason == "" {
		return "(no reason)"
	}
	return "(" + reason + ")"
}

func commandError(err error) string {
	switch {
	case errors.Is(err, ErrInvalidUserID):
		return "User id must be numeric"
	case errors.Is(err, ErrInvalidGroupID):
		return "Group id must be numeric"
	case errors.Is(err, ErrReasonTooLong):
		return fmt.Sprintf("Reason is too long (max %d characters)", MaxReasonLength)
	case errors.Is(err, ErrWelcomeEmpty):
		return "Welcome message cannot be empty"
	case errors.Is(err, ErrWelcomeTooLong):
		return fmt.Sprintf("Welcome message is too long (max %d characters)", MaxWelcomeLength)
	case errors.Is(err, repositories.ErrBlacklistNotFound):
		return "User is not on that blacklist"
	case errors.Is(err, repositories.ErrStoreUnavailable):
		return "Storage is unavailable, try again later"
	default:
		return "Command failed: " + err.Error()
	}
}
