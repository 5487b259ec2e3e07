package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/faeln1/go-onebot-guard/internal/app/services"
	"github.com/faeln1/go-onebot-guard/internal/domain/event"
	"github.com/faeln1/go-onebot-guard/internal/domain/message"
	waLog "go.mau.fi/whatsmeow/util/log"
)

var errEmptyEvent = errors.New("empty event body")

// EventArchiver stores the raw inbound payload.
type EventArchiver interface {
	Write(ctx context.Context, evt event.Event, raw []byte) error
}

// SelfIDRecorder learns the bot account id from inbound events.
type SelfIDRecorder interface {
	SetSelfID(id string)
}

// OneBotController recebe os eventos postados pela implementação OneBot.
type OneBotController struct {
	pipeline  services.ModerationPipeline
	commands  services.CommandService
	messenger services.Messenger
	archive   EventArchiver
	self      SelfIDRecorder
	log       waLog.Logger
}

type OneBotControllerConfig struct {
	Pipeline  services.ModerationPipeline
	Commands  services.CommandService
	Messenger services.Messenger
	Archive   EventArchiver
	Self      SelfIDRecorder
	Logger    waLog.Logger
}

func NewOneBotController(cfg OneBotControllerConfig) *OneBotController {
	log := cfg.Logger
	if log == nil {
		log = waLog.Noop
	}
	return &OneBotController{
		pipeline:  cfg.Pipeline,
		commands:  cfg.Commands,
		messenger: cfg.Messenger,
		archive:   cfg.Archive,
		self:      cfg.Self,
		log:       log,
	}
}

// Event handles POST /onebot/event. The event is fully processed before the
// 204 is written; a disconnecting poster does not cancel it.
func (c *OneBotController) Event(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if len(raw) == 0 {
		writeError(w, http.StatusBadRequest, errEmptyEvent)
		return
	}
	var evt event.Event
	if err := json.Unmarshal(raw, &evt); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	ctx := context.WithoutCancel(r.Context())
	if c.self != nil && evt.SelfID != "" {
		c.self.SetSelfID(string(evt.SelfID))
	}
	if c.archive != nil {
		if err := c.archive.Write(ctx, evt, raw); err != nil {
			c.log.Warnf("failed to archive %s event: %v", evt.Kind(), err)
		}
	}

	c.reply(ctx, evt, c.route(ctx, evt))
	w.WriteHeader(http.StatusNoContent)
}

func (c *OneBotController) route(ctx context.Context, evt event.Event) message.Chain {
	switch {
	case evt.IsMemberJoin(), evt.IsMemberLeave():
		if c.pipeline == nil {
			return nil
		}
		return c.pipeline.Handle(ctx, evt)
	case evt.IsGroupMessage():
		return c.command(ctx, evt)
	default:
		return nil
	}
}

func (c *OneBotController) command(ctx context.Context, evt event.Event) (out message.Chain) {
	if c.commands == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			c.log.Errorf("recovered from panic handling command in %s: %v", evt.GroupID, r)
			out = nil
		}
	}()
	out, _ = c.commands.Handle(ctx, evt)
	return out
}

func (c *OneBotController) reply(ctx context.Context, evt event.Event, out message.Chain) {
	if out.Empty() || c.messenger == nil || evt.GroupID == "" {
		return
	}
	if err := c.messenger.SendGroupMessage(ctx, string(evt.GroupID), out); err != nil {
		c.log.Errorf("failed to send message to group %s: %v", evt.GroupID, err)
	}
}
