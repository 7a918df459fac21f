// Package config loads and validates the hkexwatch YAML document. Secrets
// can be supplied or overridden through the environment.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Placeholder values shipped in the sample config. Leaving them in place is a
// fatal startup error rather than a runtime surprise.
const (
	placeholderBotToken = "YOUR_BOT_TOKEN_HERE"
	placeholderChatID   = "YOUR_CHAT_ID_HERE"
)

// Document is the top-level structure of an hkexwatch.yaml file.
type Document struct {
	Feed      Feed      `yaml:"feed"`
	Poll      Poll      `yaml:"poll"`
	State     State     `yaml:"state"`
	Telegram  *Telegram `yaml:"telegram,omitempty"`
	Email     *Email    `yaml:"email,omitempty"`
	AlertRule string    `yaml:"alert_rule,omitempty"`
}

// Feed configures the upstream listing endpoint.
type Feed struct {
	URL       string   `yaml:"url,omitempty"`
	Timeout   Duration `yaml:"timeout,omitempty"`
	UserAgent string   `yaml:"user_agent,omitempty"`
}

// Poll configures the cycle cadence. Schedule (a cron expression) takes
// precedence over Interval when both are set.
type Poll struct {
	Interval Duration `yaml:"interval,omitempty"`
	Schedule string   `yaml:"schedule,omitempty"`
	Pacing   Duration `yaml:"pacing,omitempty"`
}

// State selects the persistence backend for the engine state.
type State struct {
	Backend string `yaml:"backend,omitempty"` // "file" or "sqlite"
	Path    string `yaml:"path,omitempty"`
}

// Telegram configures the Bot API notifier.
type Telegram struct {
	BotToken string `yaml:"bot_token"`
	ChatID   string `yaml:"chat_id"`
	APIBase  string `yaml:"api_base,omitempty"`
}

// Email configures the optional SMTP notifier.
type Email struct {
	Host               string `yaml:"host"`
	Port               int    `yaml:"port,omitempty"`
	Username           string `yaml:"username,omitempty"`
	Password           string `yaml:"password,omitempty"`
	TLSMode            string `yaml:"tls_mode,omitempty"`
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify,omitempty"`
	From               string `yaml:"from,omitempty"`
	To                 string `yaml:"to"`
}

// Load reads, parses, and defaults a config document. Validate must still be
// called after any env overrides are applied.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	doc.applyDefaults()
	return &doc, nil
}

func (d *Document) applyDefaults() {
	if d.Feed.Timeout <= 0 {
		d.Feed.Timeout = Duration(30 * time.Second)
	}
	if d.Poll.Interval <= 0 {
		d.Poll.Interval = Duration(60 * time.Second)
	}
	if d.Poll.Pacing <= 0 {
		d.Poll.Pacing = Duration(time.Second)
	}
	if d.State.Backend == "" {
		d.State.Backend = "file"
	}
	if d.State.Path == "" {
		if d.State.Backend == "sqlite" {
			d.State.Path = "listings_state.db"
		} else {
			d.State.Path = "listings_state.json"
		}
	}
	if d.Email != nil && d.Email.Port == 0 {
		d.Email.Port = 587
	}
}

// Validate reports configuration problems that must abort startup.
func (d *Document) Validate() error {
	if d.Telegram == nil && d.Email == nil {
		return fmt.Errorf("at least one notifier (telegram or email) must be configured")
	}
	if d.Telegram != nil {
		if d.Telegram.BotToken == "" || d.Telegram.BotToken == placeholderBotToken {
			return fmt.Errorf("telegram bot token is not set (edit the config or set TELEGRAM_BOT_TOKEN)")
		}
		if d.Telegram.ChatID == "" || d.Telegram.ChatID == placeholderChatID {
			return fmt.Errorf("telegram chat id is not set (edit the config or set TELEGRAM_CHAT_ID)")
		}
	}
	if d.Email != nil {
		if d.Email.Host == "" {
			return fmt.Errorf("email smtp host is required")
		}
		if d.Email.To == "" {
			return fmt.Errorf("email recipient is required")
		}
	}
	if d.Poll.Interval <= 0 && d.Poll.Schedule == "" {
		return fmt.Errorf("poll interval must be positive")
	}
	switch d.State.Backend {
	case "file", "sqlite":
	default:
		return fmt.Errorf("unknown state backend %q (expected file or sqlite)", d.State.Backend)
	}
	return nil
}
