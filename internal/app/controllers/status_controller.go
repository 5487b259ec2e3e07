package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/faeln1/go-onebot-guard/internal/domain/group"
)

// StatusChecker reports the health of the chat platform.
type StatusChecker interface {
	Name() string
	Status(ctx context.Context) (group.Status, error)
}

// Pinger is any optional dependency with a health probe, e.g. the event archive store.
type Pinger interface {
	Ping(ctx context.Context) error
}

type StatusController struct {
	platform StatusChecker
	archive  Pinger
}

func NewStatusController(platform StatusChecker, archive Pinger) *StatusController {
	return &StatusController{platform: platform, archive: archive}
}

// OneBot handles GET /api/onebot/status.
func (c *StatusController) OneBot(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	resp := map[string]any{"platform": c.platform.Name()}
	status, err := c.platform.Status(ctx)
	code := http.StatusOK
	if err != nil {
		code = http.StatusBadGateway
		resp["error"] = err.Error()
	} else {
		resp["online"] = status.Online
		resp["good"] = status.Good
	}

	if c.archive != nil {
		if err := c.archive.Ping(ctx); err != nil {
			resp["archive"] = "unavailable: " + err.Error()
		} else {
			resp["archive"] = "ok"
		}
	}
	writeJSON(w, code, resp)
}
