package sms

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

type stubConfig struct{ url string }

func (s stubConfig) GetSMSGatewayURL() string { return s.url }
func (s stubConfig) GetSMSAPIKey() string     { return "sms-key" }
func (s stubConfig) GetSMSSenderID() string   { return "Reception" }

func TestSend(t *testing.T) {
	var (
		got  sendRequest
		auth string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/messages" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		auth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	client := NewClient(stubConfig{url: server.URL})
	if err := client.Send(context.Background(), "06 12345678", "See you at 10:00"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.To != "+31612345678" || got.From != "Reception" || auth != "Bearer sms-key" {
		t.Fatalf("unexpected request %+v auth=%q", got, auth)
	}
}

func TestSendFailures(t *testing.T) {
	if NewClient(stubConfig{}) != nil {
		t.Fatalf("expected no client without a gateway url")
	}

	var missing *Client
	if err := missing.Send(context.Background(), "+31612345678", "x"); err == nil {
		t.Fatalf("expected an unconfigured client to fail")
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(stubConfig{url: server.URL})
	if err := client.Send(context.Background(), "+31612345678", "x"); err == nil {
		t.Fatalf("expected a gateway error")
	}
	if err := client.Send(context.Background(), "12", "x"); err == nil {
		t.Fatalf("expected an invalid number to fail")
	}
}
