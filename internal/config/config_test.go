package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hkexwatch.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
telegram:
  bot_token: "123:abc"
  chat_id: "-100200300"
`)
	doc, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if err := doc.Validate(); err != nil {
		t.Fatalf("validate failed: %v", err)
	}

	if doc.Poll.Interval.Std() != 60*time.Second {
		t.Errorf("expected default interval 60s, got %s", doc.Poll.Interval)
	}
	if doc.Poll.Pacing.Std() != time.Second {
		t.Errorf("expected default pacing 1s, got %s", doc.Poll.Pacing)
	}
	if doc.Feed.Timeout.Std() != 30*time.Second {
		t.Errorf("expected default feed timeout 30s, got %s", doc.Feed.Timeout)
	}
	if doc.State.Backend != "file" || doc.State.Path != "listings_state.json" {
		t.Errorf("expected file state defaults, got %+v", doc.State)
	}
}

func TestValidateRejectsPlaceholderCredentials(t *testing.T) {
	path := writeConfig(t, `
telegram:
  bot_token: "YOUR_BOT_TOKEN_HERE"
  chat_id: "-100200300"
`)
	doc, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	err = doc.Validate()
	if err == nil {
		t.Fatal("expected validation to reject the placeholder token")
	}
	if !strings.Contains(err.Error(), "bot token") {
		t.Errorf("expected bot token in error, got %v", err)
	}
}

func TestValidateRequiresANotifier(t *testing.T) {
	path := writeConfig(t, `
poll:
  interval: "5m"
`)
	doc, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if err := doc.Validate(); err == nil {
		t.Fatal("expected validation to require a notifier")
	}
}

func TestValidateRejectsUnknownStateBackend(t *testing.T) {
	path := writeConfig(t, `
state:
  backend: "redis"
telegram:
  bot_token: "123:abc"
  chat_id: "42"
`)
	doc, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if err := doc.Validate(); err == nil {
		t.Fatal("expected validation to reject an unknown backend")
	}
}

func TestDurationParsing(t *testing.T) {
	cases := []struct {
		raw  string
		want time.Duration
	}{
		{"60s", 60 * time.Second},
		{"5m", 5 * time.Minute},
		{"90", 90 * time.Second},
		{"1d", 24 * time.Hour},
		{"1.5d", 36 * time.Hour},
	}
	for _, tc := range cases {
		got, err := parseDuration(tc.raw)
		if err != nil {
			t.Errorf("parseDuration(%q) failed: %v", tc.raw, err)
			continue
		}
		if got != tc.want {
			t.Errorf("parseDuration(%q) = %s, want %s", tc.raw, got, tc.want)
		}
	}

	for _, raw := range []string{"", "soon", "d", "5x"} {
		if _, err := parseDuration(raw); err == nil {
			t.Errorf("expected parseDuration(%q) to fail", raw)
		}
	}
}

func TestEnvOverridesCredentials(t *testing.T) {
	doc := &Document{}
	doc.applyDefaults()

	env := Env{TelegramBotToken: "env-token", TelegramChatID: "env-chat"}
	env.Apply(doc)

	if doc.Telegram == nil || doc.Telegram.BotToken != "env-token" || doc.Telegram.ChatID != "env-chat" {
		t.Fatalf("expected env credentials applied, got %+v", doc.Telegram)
	}
	if err := doc.Validate(); err != nil {
		t.Fatalf("expected env-completed config to validate, got %v", err)
	}
}

func TestSQLiteBackendDefaultsItsOwnPath(t *testing.T) {
	path := writeConfig(t, `
state:
  backend: "sqlite"
telegram:
  bot_token: "123:abc"
  chat_id: "42"
`)
	doc, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if doc.State.Path != "listings_state.db" {
		t.Errorf("expected sqlite default path, got %q", doc.State.Path)
	}
}
