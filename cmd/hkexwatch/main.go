package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bakkerme/hkex-watch/internal/config"
	"github.com/bakkerme/hkex-watch/internal/filter"
	"github.com/bakkerme/hkex-watch/internal/hkex"
	"github.com/bakkerme/hkex-watch/internal/monitor"
	"github.com/bakkerme/hkex-watch/internal/notify"
	"github.com/bakkerme/hkex-watch/internal/observability/otelx"
	"github.com/bakkerme/hkex-watch/internal/state"
)

func main() {
	env := config.LoadEnv()
	configPath := flag.String("config", env.ConfigPath, "path to hkexwatch config")
	runOnce := flag.Bool("run-once", env.RunOnce, "run a single cycle and exit")
	statePath := flag.String("state", env.StatePath, "override the state path")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{}))
	slog.SetDefault(logger)

	doc, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	env.StatePath = *statePath
	env.Apply(doc)
	if err := doc.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTraces, err := otelx.Init(ctx, logger, env.OTel)
	if err != nil {
		log.Fatalf("failed to initialize tracing: %v", err)
	}
	if shutdownTraces != nil {
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			_ = shutdownTraces(flushCtx)
		}()
	}

	store, err := buildStore(doc)
	if err != nil {
		log.Fatalf("failed to open state store: %v", err)
	}
	defer func() { _ = store.Close() }()

	notifiers, err := buildNotifiers(doc)
	if err != nil {
		log.Fatalf("failed to build notifiers: %v", err)
	}

	var rule *filter.Rule
	if doc.AlertRule != "" {
		rule, err = filter.New(doc.AlertRule, logger)
		if err != nil {
			log.Fatalf("invalid alert rule: %v", err)
		}
	}

	fetcher := hkex.NewHTTPFetcher(doc.Feed.URL, doc.Feed.Timeout.Std(), doc.Feed.UserAgent)

	mon, err := monitor.New(monitor.Config{
		Interval: doc.Poll.Interval.Std(),
		Schedule: doc.Poll.Schedule,
		Pacing:   doc.Poll.Pacing.Std(),
	}, fetcher, store, notifiers, rule, logger)
	if err != nil {
		log.Fatalf("failed to build monitor: %v", err)
	}

	if *runOnce {
		if err := mon.RunOnce(ctx); err != nil {
			log.Fatalf("run failed: %v", err)
		}
		return
	}

	if err := mon.Run(ctx); err != nil {
		log.Fatalf("monitor failed: %v", err)
	}
}

func buildStore(doc *config.Document) (state.Store, error) {
	switch doc.State.Backend {
	case "sqlite":
		return state.NewSQLiteStore(doc.State.Path)
	case "file":
		return state.NewFileStore(doc.State.Path)
	default:
		return nil, fmt.Errorf("unknown state backend %q", doc.State.Backend)
	}
}

func buildNotifiers(doc *config.Document) ([]notify.Notifier, error) {
	var notifiers []notify.Notifier
	if doc.Telegram != nil {
		telegram, err := notify.NewTelegramNotifier(
			doc.Telegram.BotToken, doc.Telegram.ChatID, doc.Telegram.APIBase, 0)
		if err != nil {
			return nil, err
		}
		notifiers = append(notifiers, telegram)
	}
	if doc.Email != nil {
		email, err := notify.NewEmailNotifier(notify.EmailConfig{
			Host:               doc.Email.Host,
			Port:               doc.Email.Port,
			Username:           doc.Email.Username,
			Password:           doc.Email.Password,
			TLSMode:            doc.Email.TLSMode,
			InsecureSkipVerify: doc.Email.InsecureSkipVerify,
			From:               doc.Email.From,
			To:                 doc.Email.To,
		})
		if err != nil {
			return nil, err
		}
		notifiers = append(notifiers, email)
	}
	return notifiers, nil
}
