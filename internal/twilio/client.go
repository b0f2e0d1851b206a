// Package twilio is a minimal REST client for the two Twilio surfaces the
// bridge needs: the Messaging API (direct sends) and the Conversations API
// scoped to one service. Responses are decoded into typed structs at this
// boundary; callers never see raw JSON.
package twilio

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	messagingAPIBase     = "https://api.twilio.com/2010-04-01"
	conversationsAPIBase = "https://conversations.twilio.com/v1"
)

// Client is an authenticated handle to Twilio. One Client is constructed at
// startup and reused for the process lifetime; there is no retry layer.
type Client struct {
	accountSID   string
	apiKeySID    string
	apiKeySecret string
	serviceSID   string

	messagingBase     string
	conversationsBase string

	http   *http.Client
	logger *slog.Logger
}

type ClientConfig struct {
	AccountSID   string
	APIKeySID    string
	APIKeySecret string
	ServiceSID   string
	Logger       *slog.Logger

	// MessagingBase and ConversationsBase override the Twilio endpoints.
	// Used by tests; empty means production.
	MessagingBase     string
	ConversationsBase string
}

func NewClient(cfg ClientConfig) *Client {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.MessagingBase == "" {
		cfg.MessagingBase = messagingAPIBase
	}
	if cfg.ConversationsBase == "" {
		cfg.ConversationsBase = conversationsAPIBase
	}
	return &Client{
		accountSID:        cfg.AccountSID,
		apiKeySID:         cfg.APIKeySID,
		apiKeySecret:      cfg.APIKeySecret,
		serviceSID:        cfg.ServiceSID,
		messagingBase:     cfg.MessagingBase,
		conversationsBase: cfg.ConversationsBase,
		http:              sharedHTTPClient(30 * time.Second),
		logger:            cfg.Logger.With("component", "twilio"),
	}
}

// sharedHTTPClient returns an HTTP client with connection pooling tuned for a
// single long-lived process polling one API.
func sharedHTTPClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 5,
		IdleConnTimeout:     90 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: timeout,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

// get issues an authenticated GET and decodes the JSON response into out.
func (c *Client) get(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	return c.do(req, out)
}

// postForm issues an authenticated form-encoded POST and decodes the JSON
// response into out.
func (c *Client) postForm(ctx context.Context, rawURL string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	req.SetBasicAuth(c.apiKeySID, c.apiKeySecret)

	requestID := uuid.NewString()
	req.Header.Set("X-Request-Id", requestID)
	c.logger.Debug("twilio request", "method", req.Method, "url", req.URL.Path, "request_id", requestID)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("twilio request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode twilio response: %w", err)
	}
	return nil
}

// APIError is a non-2xx response from Twilio.
type APIError struct {
	StatusCode int
	Code       int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("twilio API %d (code %d): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("twilio API %d", e.StatusCode)
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return apiErr
	}

	var payload struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &payload) == nil && payload.Message != "" {
		apiErr.Code = payload.Code
		apiErr.Message = payload.Message
	} else {
		apiErr.Message = strings.TrimSpace(string(body))
	}
	return apiErr
}
