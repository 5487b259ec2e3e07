package onebot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	waLog "go.mau.fi/whatsmeow/util/log"
)

const (
	DefaultTimeout         = 30 * time.Second
	DefaultMaxConns        = 100
	DefaultMaxConnsPerHost = 30

	maxResponseBytes = 8 << 20
	statusOK         = "ok"
)

// Config descreve o endpoint HTTP da implementação OneBot.
type Config struct {
	BaseURL         string
	AccessToken     string
	Timeout         time.Duration
	MaxConns        int
	MaxConnsPerHost int
	Retry           RetryPolicy
}

// Client executes control API actions against a single base endpoint.
// The connection pool is created on first use and released by Close.
type Client struct {
	baseURL string
	token   string
	timeout time.Duration
	maxConn int
	perHost int
	retry   RetryPolicy
	log     waLog.Logger

	mu        sync.Mutex
	http      *http.Client
	transport *http.Transport
	closed    bool
}

type envelope struct {
	Status  string          `json:"status"`
	Retcode *int            `json:"retcode"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Wording string          `json:"wording"`
}

// New valida a configuração e devolve um cliente ainda sem conexões abertas.
func New(cfg Config, log waLog.Logger) (*Client, error) {
	base, err := NormalizeBaseURL(cfg.BaseURL)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = waLog.Noop
	}
	c := &Client{
		baseURL: base,
		token:   strings.TrimSpace(cfg.AccessToken),
		timeout: cfg.Timeout,
		maxConn: cfg.MaxConns,
		perHost: cfg.MaxConnsPerHost,
		retry:   cfg.Retry,
		log:     log,
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.maxConn <= 0 {
		c.maxConn = DefaultMaxConns
	}
	if c.perHost <= 0 {
		c.perHost = DefaultMaxConnsPerHost
	}
	defaults := DefaultRetryPolicy()
	if c.retry.MaxRetries == 0 && c.retry.Delay == 0 {
		c.retry.MaxRetries = defaults.MaxRetries
		c.retry.Delay = defaults.Delay
	}
	if c.retry.Retryable == nil {
		c.retry.Retryable = defaults.Retryable
	}
	if c.retry.Sleep == nil {
		c.retry.Sleep = defaults.Sleep
	}
	return c, nil
}

// NormalizeBaseURL adds a missing scheme and strips trailing slashes.
func NormalizeBaseURL(raw string) (string, error) {
	base := strings.TrimSpace(raw)
	if base == "" {
		return "", fmt.Errorf("%w: empty base url", ErrInvalidParam)
	}
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	base = strings.TrimRight(base, "/")
	u, err := url.Parse(base)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("%w: base url %q", ErrInvalidParam, raw)
	}
	return base, nil
}

func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) httpClient() (*http.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}
	if c.http == nil {
		transport := cleanhttp.DefaultPooledTransport()
		transport.MaxIdleConns = c.maxConn
		transport.MaxIdleConnsPerHost = c.perHost
		transport.MaxConnsPerHost = c.perHost
		c.transport = transport
		c.http = &http.Client{Transport: transport}
		c.log.Debugf("connection pool opened for %s (max=%d per_host=%d)", c.baseURL, c.maxConn, c.perHost)
	}
	return c.http, nil
}

// Close releases pooled connections. Calls made afterwards fail with ErrClosed.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if c.transport != nil {
		c.transport.CloseIdleConnections()
	}
	c.http = nil
	c.transport = nil
	return nil
}

// Call posts params to {base}/{action} and returns the data field of a
// successful response. Failures are *Error values, retried per the policy.
func (c *Client) Call(ctx context.Context, action string, params map[string]any) (json.RawMessage, error) {
	hc, err := c.httpClient()
	if err != nil {
		return nil, err
	}
	action = strings.Trim(strings.TrimSpace(action), "/")
	if action == "" {
		return nil, fmt.Errorf("%w: empty action", ErrInvalidParam)
	}
	if params == nil {
		params = map[string]any{}
	}
	body, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidParam, err)
	}

	start := time.Now()
	var data json.RawMessage
	err = c.retry.Do(ctx, func(attempt int) error {
		if attempt > 0 {
			retriesTotal.WithLabelValues(action).Inc()
			c.log.Warnf("retrying %s (attempt %d/%d)", action, attempt+1, c.retry.MaxRetries+1)
		}
		var attemptErr error
		data, attemptErr = c.do(ctx, hc, action, body)
		return attemptErr
	})
	callDuration.WithLabelValues(action).Observe(time.Since(start).Seconds())
	callsTotal.WithLabelValues(action, outcomeLabel(err)).Inc()
	if err != nil {
		c.log.Debugf("%s failed: %v", action, err)
		return nil, err
	}
	return data, nil
}

func (c *Client) do(ctx context.Context, hc *http.Client, action string, body []byte) (json.RawMessage, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.baseURL+"/"+action, bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Kind: KindNetwork, Action: action, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := hc.Do(req)
	if err != nil {
		return nil, transportError(action, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, transportError(action, err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &Error{
			Kind:    KindRemote,
			Action:  action,
			Status:  resp.StatusCode,
			Message: httpMessage(resp.StatusCode, raw),
		}
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, &Error{Kind: KindResponseFormat, Action: action, Status: resp.StatusCode, Message: "response is not valid JSON", Err: err}
	}
	if env.Status == "" || env.Retcode == nil {
		return nil, &Error{Kind: KindResponseFormat, Action: action, Status: resp.StatusCode, Message: "response missing status or retcode"}
	}
	if env.Status != statusOK || *env.Retcode != 0 {
		msg := env.Message
		if msg == "" {
			msg = env.Wording
		}
		if msg == "" {
			msg = "status " + env.Status
		}
		return nil, &Error{Kind: KindRemote, Action: action, Status: resp.StatusCode, Retcode: *env.Retcode, Message: msg}
	}
	return env.Data, nil
}

func transportError(action string, err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Action: action, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Error{Kind: KindTimeout, Action: action, Err: err}
	}
	return &Error{Kind: KindNetwork, Action: action, Err: err}
}

func httpMessage(status int, body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) > 200 {
		text = text[:200]
	}
	if text == "" {
		return http.StatusText(status)
	}
	return fmt.Sprintf("%s: %s", http.StatusText(status), text)
}
