package notify

import (
	"context"
	"time"

	"github.com/bakkerme/hkex-watch/internal/hkex"
)

// Kind distinguishes the two alert classes.
type Kind string

const (
	KindNew     Kind = "new"
	KindUpdated Kind = "updated"
)

// Alert is one classified change ready for delivery. For updated listings,
// NewRefs holds only the document references that appeared this cycle.
type Alert struct {
	Kind       Kind
	Listing    hkex.Listing
	NewRefs    []string
	DetectedAt time.Time
}

// Notifier delivers a single alert to a downstream channel.
type Notifier interface {
	Notify(ctx context.Context, alert Alert) error
}
