// Package sms sends text messages through an HTTP SMS gateway.
package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"visitor_backend/platform/config"
	"visitor_backend/platform/phone"
)

type Client struct {
	gatewayURL string
	apiKey     string
	senderID   string
	http       *http.Client
}

type sendRequest struct {
	To      string `json:"to"`
	From    string `json:"from,omitempty"`
	Message string `json:"message"`
}

// NewClient returns nil when no gateway is configured.
func NewClient(cfg config.SMSConfig) *Client {
	if cfg.GetSMSGatewayURL() == "" {
		return nil
	}
	return &Client{
		gatewayURL: strings.TrimRight(cfg.GetSMSGatewayURL(), "/"),
		apiKey:     cfg.GetSMSAPIKey(),
		senderID:   cfg.GetSMSSenderID(),
		http:       &http.Client{Timeout: 10 * time.Second},
	}
}

// Send posts one message. The recipient is normalized to E.164.
func (c *Client) Send(ctx context.Context, phoneNumber, message string) error {
	if c == nil {
		return fmt.Errorf("sms gateway not configured")
	}
	to := phone.NormalizeE164(phoneNumber)
	if !phone.IsValid(to) {
		return fmt.Errorf("sms recipient %q is not a valid phone number", phoneNumber)
	}

	body, err := json.Marshal(sendRequest{To: to, From: c.senderID, Message: message})
	if err != nil {
		return fmt.Errorf("marshal sms payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.gatewayURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("sms request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("sms gateway returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	return nil
}
