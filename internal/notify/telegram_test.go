package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestTelegramNotifierSendsMarkdownMessage(t *testing.T) {
	var captured sendMessageRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/bottest-token/sendMessage") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request failed: %v", err)
		}
		_ = json.NewEncoder(w).Encode(sendMessageResponse{OK: true})
	}))
	defer server.Close()

	notifier, err := NewTelegramNotifier("test-token", "12345", server.URL, time.Second)
	if err != nil {
		t.Fatalf("failed to build notifier: %v", err)
	}

	alert := Alert{Kind: KindNew, Listing: sampleListing(), DetectedAt: time.Now()}
	if err := notifier.Notify(context.Background(), alert); err != nil {
		t.Fatalf("notify failed: %v", err)
	}

	if captured.ChatID != "12345" {
		t.Errorf("expected chat id 12345, got %q", captured.ChatID)
	}
	if captured.ParseMode != "Markdown" {
		t.Errorf("expected markdown parse mode, got %q", captured.ParseMode)
	}
	if !strings.Contains(captured.Text, "Example Holdings Limited") {
		t.Errorf("expected rendered message, got %q", captured.Text)
	}
}

func TestTelegramNotifierReportsAPIRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(sendMessageResponse{OK: false, Description: "chat not found"})
	}))
	defer server.Close()

	notifier, err := NewTelegramNotifier("test-token", "12345", server.URL, time.Second)
	if err != nil {
		t.Fatalf("failed to build notifier: %v", err)
	}

	err = notifier.Notify(context.Background(), Alert{Kind: KindNew, Listing: sampleListing()})
	if err == nil {
		t.Fatal("expected an error for a rejected message")
	}
	if !strings.Contains(err.Error(), "chat not found") {
		t.Errorf("expected api description in error, got %v", err)
	}
}

func TestTelegramNotifierRequiresCredentials(t *testing.T) {
	if _, err := NewTelegramNotifier("", "12345", "", 0); err == nil {
		t.Error("expected error for missing token")
	}
	if _, err := NewTelegramNotifier("token", "", "", 0); err == nil {
		t.Error("expected error for missing chat id")
	}
}
