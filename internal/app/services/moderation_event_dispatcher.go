package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/faeln1/go-onebot-guard/internal/domain/moderation"
	"github.com/faeln1/go-onebot-guard/pkg/logger"
	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-retryablehttp"
	waLog "go.mau.fi/whatsmeow/util/log"
)

var ErrWebhookStatus = errors.New("moderation webhook returned non-2xx status")

// ModerationEventsDispatcher envia ações automáticas de moderação para um webhook global.
type ModerationEventsDispatcher interface {
	Dispatch(ctx context.Context, events []moderation.Event) error
}

type moderationEventsDispatcher struct {
	client *http.Client
	url    string
	token  string
	log    waLog.Logger
}

// NewModerationWebhookClient builds the retrying client used for webhook delivery.
func NewModerationWebhookClient(maxRetries int, log waLog.Logger) *http.Client {
	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient.Transport = cleanhttp.DefaultPooledTransport()
	retryClient.RetryMax = maxRetries
	retryClient.RetryWaitMin = 500 * time.Millisecond
	retryClient.RetryWaitMax = 5 * time.Second
	retryClient.Logger = retryablehttp.LeveledLogger(logger.NewLeveled(log))

	client := retryClient.StandardClient()
	client.Timeout = 10 * time.Second
	return client
}

// NewModerationEventsDispatcher cria um dispatcher com URL fixa (via env).
// An empty URL yields a dispatcher that silently drops events.
func NewModerationEventsDispatcher(url, token string, client *http.Client, log waLog.Logger) ModerationEventsDispatcher {
	if log == nil {
		log = waLog.Noop
	}
	if client == nil {
		client = NewModerationWebhookClient(3, log)
	}
	return &moderationEventsDispatcher{
		client: client,
		url:    strings.TrimSpace(url),
		token:  strings.TrimSpace(token),
		log:    log,
	}
}

func (d *moderationEventsDispatcher) Dispatch(ctx context.Context, events []moderation.Event) error {
	if len(events) == 0 {
		return nil
	}
	if d.url == "" {
		d.log.Debugf("moderation webhook ignorado: URL vazia")
		return nil
	}
	payload, err := json.Marshal(events)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if d.token != "" {
		req.Header.Set("Authorization", "Bearer "+d.token)
	}

	d.log.Debugf("enviando %d evento(s) de moderação para %s", len(events), d.url)

	resp, err := d.client.Do(req)
	if err != nil {
		d.log.Warnf("falha ao enviar eventos de moderação: %v", err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		d.log.Warnf("webhook de moderação retornou status %d", resp.StatusCode)
		return fmt.Errorf("%w: %d", ErrWebhookStatus, resp.StatusCode)
	}
	return nil
}
