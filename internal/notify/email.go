package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"strings"

	mail "github.com/wneessen/go-mail"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// EmailConfig holds SMTP connection and addressing settings for the e-mail
// notifier.
type EmailConfig struct {
	Host               string
	Port               int
	Username           string
	Password           string
	TLSMode            string
	InsecureSkipVerify bool
	From               string
	To                 string
}

// EmailNotifier renders alerts to HTML and delivers them over SMTP.
type EmailNotifier struct {
	config    EmailConfig
	converter goldmark.Markdown
}

func NewEmailNotifier(config EmailConfig) (*EmailNotifier, error) {
	if config.Host == "" {
		return nil, fmt.Errorf("smtp host is required")
	}
	if config.Port <= 0 {
		return nil, fmt.Errorf("smtp port must be positive")
	}
	if config.To == "" {
		return nil, fmt.Errorf("email recipient is required")
	}
	if config.From == "" {
		config.From = config.Username
	}
	if _, err := resolveTLSMode(config.TLSMode, config.Port); err != nil {
		return nil, err
	}
	return &EmailNotifier{
		config:    config,
		converter: goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}, nil
}

func (n *EmailNotifier) Notify(ctx context.Context, alert Alert) error {
	var body bytes.Buffer
	if err := n.converter.Convert([]byte(RenderMarkdown(alert)), &body); err != nil {
		return fmt.Errorf("render alert html: %w", err)
	}

	m := mail.NewMsg()
	if err := m.From(n.config.From); err != nil {
		return fmt.Errorf("invalid from address %q: %w", n.config.From, err)
	}
	if err := m.ToFromString(n.config.To); err != nil {
		return fmt.Errorf("invalid to address(es) %q: %w", n.config.To, err)
	}
	m.Subject(subjectFor(alert))
	m.SetBodyString(mail.TypeTextHTML, body.String())

	client, err := n.client()
	if err != nil {
		return err
	}
	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("send alert email: %w", err)
	}
	return nil
}

func (n *EmailNotifier) client() (*mail.Client, error) {
	mode, err := resolveTLSMode(n.config.TLSMode, n.config.Port)
	if err != nil {
		return nil, err
	}

	opts := []mail.Option{
		mail.WithPort(n.config.Port),
		mail.WithTLSConfig(&tls.Config{
			ServerName:         n.config.Host,
			MinVersion:         tls.VersionTLS12,
			InsecureSkipVerify: n.config.InsecureSkipVerify,
		}),
	}
	switch mode {
	case "disabled":
		opts = append(opts, mail.WithTLSPortPolicy(mail.NoTLS))
	case "starttls":
		opts = append(opts, mail.WithTLSPortPolicy(mail.TLSMandatory))
	case "implicit":
		opts = append(opts, mail.WithSSL())
	}
	if n.config.Username != "" {
		opts = append(opts,
			mail.WithUsername(n.config.Username),
			mail.WithPassword(n.config.Password),
			mail.WithSMTPAuth(mail.SMTPAuthAutoDiscover),
		)
	}

	client, err := mail.NewClient(n.config.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}
	return client, nil
}

func subjectFor(alert Alert) string {
	name := alert.Listing.Name
	if name == "" {
		name = fmt.Sprintf("listing %d", alert.Listing.ID)
	}
	if alert.Kind == KindUpdated {
		return fmt.Sprintf("HKEX listing updated: %s", name)
	}
	return fmt.Sprintf("New HKEX listing: %s", name)
}

// resolveTLSMode normalizes the configured TLS mode, falling back to
// port-based defaults (implicit TLS on 465, STARTTLS otherwise).
func resolveTLSMode(mode string, port int) (string, error) {
	switch strings.TrimSpace(strings.ToLower(mode)) {
	case "", "auto":
		if port == 465 {
			return "implicit", nil
		}
		return "starttls", nil
	case "disabled", "off", "none":
		return "disabled", nil
	case "starttls", "start_tls":
		return "starttls", nil
	case "implicit", "smtptls", "smtp_tls":
		return "implicit", nil
	default:
		return "", fmt.Errorf("invalid smtp tls mode %q (expected: auto, disabled, starttls, implicit)", mode)
	}
}
