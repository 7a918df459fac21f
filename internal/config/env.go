package config

import (
	"net/url"
	"os"
	"strconv"
	"strings"
)

// Env carries process-level settings and secret overrides read from the
// environment once at startup.
type Env struct {
	ConfigPath string
	RunOnce    bool
	StatePath  string

	TelegramBotToken string
	TelegramChatID   string
	SMTPUser         string
	SMTPPassword     string

	OTel OTelEnv
}

// OTelEnv configures the optional trace exporter from the standard OTEL_*
// variables.
type OTelEnv struct {
	Enabled     bool
	ServiceName string
	Endpoint    string
	Protocol    string // "grpc" or "http/protobuf"
	Headers     map[string]string
	Insecure    bool
	SampleRatio float64
}

func LoadEnv() Env {
	endpoint := strings.TrimSpace(envString("OTEL_EXPORTER_OTLP_ENDPOINT", ""))
	return Env{
		ConfigPath:       envString("HKEXWATCH_CONFIG", "hkexwatch.yaml"),
		RunOnce:          envBool("RUN_ONCE", false),
		StatePath:        envString("HKEXWATCH_STATE", ""),
		TelegramBotToken: strings.TrimSpace(envString("TELEGRAM_BOT_TOKEN", "")),
		TelegramChatID:   strings.TrimSpace(envString("TELEGRAM_CHAT_ID", "")),
		SMTPUser:         envString("SMTP_USER", ""),
		SMTPPassword:     envString("SMTP_PASSWORD", ""),
		OTel: OTelEnv{
			Enabled:     envBool("OTEL_ENABLED", false),
			ServiceName: strings.TrimSpace(envString("OTEL_SERVICE_NAME", "hkex-watch")),
			Endpoint:    endpoint,
			Protocol:    strings.ToLower(strings.TrimSpace(envString("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc"))),
			Headers:     parseHeaders(envString("OTEL_EXPORTER_OTLP_HEADERS", "")),
			Insecure:    envBool("OTEL_EXPORTER_OTLP_INSECURE", defaultInsecure(endpoint)),
			SampleRatio: clamp01(envFloat("OTEL_TRACES_SAMPLE_RATIO", 1.0)),
		},
	}
}

// Apply overlays environment secrets onto the loaded document. Env values win
// over file values so deployments can keep credentials out of the config.
func (e Env) Apply(doc *Document) {
	if e.StatePath != "" {
		doc.State.Path = e.StatePath
	}
	if e.TelegramBotToken != "" {
		if doc.Telegram == nil {
			doc.Telegram = &Telegram{}
		}
		doc.Telegram.BotToken = e.TelegramBotToken
	}
	if e.TelegramChatID != "" {
		if doc.Telegram == nil {
			doc.Telegram = &Telegram{}
		}
		doc.Telegram.ChatID = e.TelegramChatID
	}
	if doc.Email != nil {
		if e.SMTPUser != "" {
			doc.Email.Username = e.SMTPUser
		}
		if e.SMTPPassword != "" {
			doc.Email.Password = e.SMTPPassword
		}
	}
}

func envString(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "y", "on":
		return true
	default:
		return false
	}
}

func envFloat(key string, fallback float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func parseHeaders(raw string) map[string]string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	out := map[string]string{}
	for _, part := range strings.Split(raw, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		k = strings.TrimSpace(k)
		v = strings.TrimSpace(v)
		if k == "" || v == "" {
			continue
		}
		out[k] = v
	}
	return out
}

func defaultInsecure(endpoint string) bool {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return true
	}
	if strings.Contains(endpoint, "://") {
		u, err := url.Parse(endpoint)
		if err != nil {
			return false
		}
		return u.Scheme == "http"
	}
	return strings.HasPrefix(endpoint, "localhost:") ||
		strings.HasPrefix(endpoint, "127.0.0.1:") ||
		strings.HasPrefix(endpoint, "0.0.0.0:")
}
