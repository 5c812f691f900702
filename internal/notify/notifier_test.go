package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
)

func TestWebhookNotifierDelivers(t *testing.T) {
	var received map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected json content type, got %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	n, err := NewWebhookNotifier(server.URL, server.Client())
	if err != nil {
		t.Fatalf("new notifier: %v", err)
	}
	if err := n.Notify(context.Background(), "customer-1", EventCollectionReady, map[string]any{"photo_id": "photo-1"}); err != nil {
		t.Fatalf("notify: %v", err)
	}

	if received["customer_id"] != "customer-1" {
		t.Fatalf("unexpected customer_id: %v", received["customer_id"])
	}
	if received["event"] != EventCollectionReady {
		t.Fatalf("unexpected event: %v", received["event"])
	}
}

func TestWebhookNotifierRelayError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	n, err := NewWebhookNotifier(server.URL, server.Client())
	if err != nil {
		t.Fatalf("new notifier: %v", err)
	}
	if err := n.Notify(context.Background(), "customer-1", EventCollectionReady, nil); err == nil {
		t.Fatal("expected error on relay failure")
	}
}

func TestWebhookNotifierRequiresURL(t *testing.T) {
	if _, err := NewWebhookNotifier("  ", nil); err == nil {
		t.Fatal("expected error for empty url")
	}
}

func TestLogNotifierAlwaysSucceeds(t *testing.T) {
	n := NewLogNotifier(zerolog.Nop())
	if err := n.Notify(context.Background(), "customer-1", EventCollectionReady, nil); err != nil {
		t.Fatalf("log notifier must not fail: %v", err)
	}
}
