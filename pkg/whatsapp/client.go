// Package whatsapp implements a client and webhook types for the Meta
// WhatsApp Business Cloud API.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultBaseURL is the Meta Graph API endpoint used for sending messages.
const DefaultBaseURL = "https://graph.facebook.com/v18.0"

// Client sends messages through the WhatsApp Business Cloud API.
type Client struct {
	accessToken   string
	phoneNumberID string
	baseURL       string
	httpClient    *http.Client
}

// Config is the configuration for the WhatsApp Cloud API client.
// AccessToken: Meta access token (required)
// PhoneNumberID: sender phone number ID (required)
// BaseURL: Graph API base URL, defaults to DefaultBaseURL
// Timeout: per-request timeout, defaults to 15 seconds
// HTTPClient: optional custom HTTP client; overrides Timeout when set
type Config struct {
	AccessToken   string
	PhoneNumberID string
	BaseURL       string
	Timeout       time.Duration
	HTTPClient    *http.Client
}

// NewClient creates a new WhatsApp Cloud API client.
func NewClient(cfg *Config) (*Client, error) {
	if cfg.AccessToken == "" {
		return nil, errors.New("access token is required")
	}
	if cfg.PhoneNumberID == "" {
		return nil, errors.New("phone number ID is required")
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
		accessToken:   cfg.AccessToken,
		phoneNumberID: cfg.PhoneNumberID,
		baseURL:       baseURL,
		httpClient:    httpClient,
	}, nil
}

// SendText sends a plain text message to the given phone number.
// The text is normalized with FormatText before sending.
func (c *Client) SendText(ctx context.Context, to, text string) error {
	payload := map[string]interface{}{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "text",
		"text":              map[string]string{"body": FormatText(text)},
	}
	return c.post(ctx, payload)
}

// SendTemplate sends a pre-approved template message, used for initiating
// conversations outside the 24-hour customer service window.
func (c *Client) SendTemplate(ctx context.Context, to, templateName, languageCode string) error {
	if templateName == "" {
		templateName = "hello_world"
	}
	if languageCode == "" {
		languageCode = "en_US"
	}
	payload := map[string]interface{}{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "template",
		"template": map[string]interface{}{
			"name":     templateName,
			"language": map[string]string{"code": languageCode},
		},
	}
	return c.post(ctx, payload)
}

func (c *Client) post(ctx context.Context, payload map[string]interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal message payload: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", c.baseURL, c.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build message request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("message send returned status %d: %s", resp.StatusCode, detail)
	}
	return nil
}
