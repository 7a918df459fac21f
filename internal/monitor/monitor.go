package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/bakkerme/hkex-watch/internal/engine"
	"github.com/bakkerme/hkex-watch/internal/filter"
	"github.com/bakkerme/hkex-watch/internal/hkex"
	"github.com/bakkerme/hkex-watch/internal/notify"
	"github.com/bakkerme/hkex-watch/internal/state"
)

// Config controls the monitor's scheduling and delivery pacing.
type Config struct {
	// Interval between polling cycles. Ignored when Schedule is set.
	Interval time.Duration
	// Schedule is an optional cron expression driving cycles instead of the
	// fixed interval.
	Schedule string
	// Pacing is the minimum spacing between alert deliveries within a cycle,
	// to stay under downstream rate limits.
	Pacing time.Duration
}

// Monitor drives the fetch → reconcile → notify → persist cycle. It owns the
// engine state for its whole lifetime; cycles are strictly serialized, so the
// state needs no locking.
type Monitor struct {
	config    Config
	fetcher   hkex.Fetcher
	store     state.Store
	engine    *engine.Engine
	notifiers []notify.Notifier
	rule      *filter.Rule
	state     *engine.State
	logger    *slog.Logger
	tracer    trace.Tracer
}

// New wires a monitor. rule may be nil to deliver every alert.
func New(config Config, fetcher hkex.Fetcher, store state.Store, notifiers []notify.Notifier, rule *filter.Rule, logger *slog.Logger) (*Monitor, error) {
	if fetcher == nil {
		return nil, fmt.Errorf("fetcher is required")
	}
	if store == nil {
		return nil, fmt.Errorf("state store is required")
	}
	if len(notifiers) == 0 {
		return nil, fmt.Errorf("at least one notifier is required")
	}
	if config.Interval <= 0 && config.Schedule == "" {
		return nil, fmt.Errorf("poll interval must be positive")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		config:    config,
		fetcher:   fetcher,
		store:     store,
		engine:    engine.New(logger),
		notifiers: notifiers,
		rule:      rule,
		logger:    logger,
		tracer:    otel.Tracer("hkex-watch/monitor"),
	}, nil
}

// Run loads the persisted state and polls until ctx is cancelled. A final
// best-effort persist runs on the way out. Cancellation is observed between
// cycles; a cycle already in flight completes first.
func (m *Monitor) Run(ctx context.Context) error {
	m.ensureState(ctx)
	m.logger.Info("monitor starting",
		"seen_listings", m.state.TotalSeen(),
		"interval", m.config.Interval,
		"schedule", m.config.Schedule)
	defer m.persistFinal()

	if m.config.Schedule != "" {
		return m.runCron(ctx)
	}
	return m.runInterval(ctx)
}

// RunOnce executes a single cycle, loading state first if needed. Used by the
// -run-once flag and by tests.
func (m *Monitor) RunOnce(ctx context.Context) error {
	m.ensureState(ctx)
	return m.cycle(ctx)
}

func (m *Monitor) runInterval(ctx context.Context) error {
	ticker := time.NewTicker(m.config.Interval)
	defer ticker.Stop()

	for {
		if err := m.cycle(ctx); err != nil {
			m.logger.Error("cycle skipped", "error", err)
		}
		select {
		case <-ctx.Done():
			m.logger.Info("monitor stopping")
			return nil
		case <-ticker.C:
		}
	}
}

func (m *Monitor) runCron(ctx context.Context) error {
	events := make(chan struct{}, 1)
	c := cron.New()
	_, err := c.AddFunc(m.config.Schedule, func() {
		select {
		case events <- struct{}{}:
		default:
		}
	})
	if err != nil {
		return fmt.Errorf("parse cron schedule %q: %w", m.config.Schedule, err)
	}
	c.Start()
	defer func() { <-c.Stop().Done() }()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("monitor stopping")
			return nil
		case <-events:
			if err := m.cycle(ctx); err != nil {
				m.logger.Error("cycle skipped", "error", err)
			}
		}
	}
}

// cycle runs one fetch → reconcile → notify → persist pass. A fetch failure
// aborts before any state mutation, so the next cycle diffs against the same
// prior state. Persist failures are logged, not returned: the in-memory state
// still drives the next cycle correctly.
func (m *Monitor) cycle(ctx context.Context) error {
	ctx, span := m.tracer.Start(ctx, "monitor.cycle")
	defer span.End()

	listings, err := m.fetcher.Fetch(ctx)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("fetch listings: %w", err)
	}

	result := m.engine.Reconcile(listings, m.state)
	span.SetAttributes(
		attribute.Int("monitor.new", len(result.New)),
		attribute.Int("monitor.updated", len(result.Updated)),
	)

	m.deliver(ctx, alertsFor(result))

	m.state.LastCheck = time.Now().UTC()
	if err := m.store.Save(ctx, m.state); err != nil {
		m.logger.Error("state persist failed, continuing with in-memory state", "error", err)
	}
	return nil
}

// alertsFor orders alerts new-first, then updated, each preserving snapshot
// order.
func alertsFor(result engine.Result) []notify.Alert {
	now := time.Now().UTC()
	alerts := make([]notify.Alert, 0, len(result.New)+len(result.Updated))
	for _, listing := range result.New {
		alerts = append(alerts, notify.Alert{Kind: notify.KindNew, Listing: listing, DetectedAt: now})
	}
	for _, update := range result.Updated {
		alerts = append(alerts, notify.Alert{
			Kind:       notify.KindUpdated,
			Listing:    update.Listing,
			NewRefs:    update.NewRefs,
			DetectedAt: now,
		})
	}
	return alerts
}

// deliver sends alerts sequentially with the configured pacing. A failure for
// one alert or one notifier never blocks the rest.
func (m *Monitor) deliver(ctx context.Context, alerts []notify.Alert) {
	delivered := 0
	for _, alert := range alerts {
		if m.rule != nil && !m.rule.Keep(alert) {
			m.logger.Debug("alert dropped by rule", "listing_id", alert.Listing.ID, "kind", alert.Kind)
			continue
		}
		if delivered > 0 && m.config.Pacing > 0 {
			if !sleepContext(ctx, m.config.Pacing) {
				return
			}
		}
		for _, notifier := range m.notifiers {
			if err := notifier.Notify(ctx, alert); err != nil {
				m.logger.Error("alert delivery failed",
					"listing_id", alert.Listing.ID, "kind", alert.Kind, "error", err)
				continue
			}
			m.logger.Info("alert delivered", "listing_id", alert.Listing.ID, "kind", alert.Kind)
		}
		delivered++
	}
}

func (m *Monitor) ensureState(ctx context.Context) {
	if m.state != nil {
		return
	}
	loaded, err := m.store.Load(ctx)
	if err != nil {
		m.logger.Warn("could not load prior state, starting fresh", "error", err)
	}
	if loaded == nil {
		loaded = engine.NewState()
	}
	m.state = loaded
	m.logger.Info("state loaded",
		"seen_listings", m.state.TotalSeen(),
		"tracking_initialized", m.state.Initialized)
}

// persistFinal makes a last save attempt during shutdown, detached from the
// already-cancelled run context.
func (m *Monitor) persistFinal() {
	if m.state == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.store.Save(ctx, m.state); err != nil {
		m.logger.Error("final state persist failed", "error", err)
		return
	}
	m.logger.Info("final state saved", "seen_listings", m.state.TotalSeen())
}

func sleepContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
