// Package twilio implements a minimal client and webhook helpers for the
// Twilio WhatsApp API, an alternative transport to the Meta Cloud API.
package twilio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultBaseURL is the Twilio REST API endpoint.
const DefaultBaseURL = "https://api.twilio.com"

// Client sends WhatsApp messages through Twilio's messaging API.
type Client struct {
	accountSID string
	authToken  string
	from       string
	baseURL    string
	httpClient *http.Client
}

// Config is the configuration for the Twilio client.
// AccountSID: Twilio account SID (required)
// AuthToken: Twilio auth token (required)
// From: sender number, e.g. "whatsapp:+14155238886" (required)
// BaseURL: API base URL, defaults to DefaultBaseURL
// Timeout: per-request timeout, defaults to 15 seconds
// HTTPClient: optional custom HTTP client; overrides Timeout when set
type Config struct {
	AccountSID string
	AuthToken  string
	From       string
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// NewClient creates a new Twilio messaging client.
func NewClient(cfg *Config) (*Client, error) {
	if cfg.AccountSID == "" {
		return nil, errors.New("account SID is required")
	}
	if cfg.AuthToken == "" {
		return nil, errors.New("auth token is required")
	}
	if cfg.From == "" {
		return nil, errors.New("sender number is required")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		accountSID: cfg.AccountSID,
		authToken:  cfg.AuthToken,
		from:       ensureWhatsAppPrefix(cfg.From),
		baseURL:    baseURL,
		httpClient: httpClient,
	}, nil
}

// SendText sends a WhatsApp text message to the given number. The
// "whatsapp:" channel prefix is added when missing.
func (c *Client) SendText(ctx context.Context, to, body string) error {
	form := url.Values{}
	form.Set("From", c.from)
	form.Set("To", ensureWhatsAppPrefix(to))
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", c.baseURL, c.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build message request: %w", err)
	}
	req.SetBasicAuth(c.accountSID, c.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("message send returned status %d: %s", resp.StatusCode, detail)
	}
	return nil
}

func ensureWhatsAppPrefix(number string) string {
	if strings.HasPrefix(number, "whatsapp:") {
		return number
	}
	return "whatsapp:" + number
}
