package state

import (
	"context"

	"github.com/bakkerme/hkex-watch/internal/engine"
)

// Store persists the engine state between cycles and process restarts.
//
// Load never fails hard on bad data: a missing or corrupt backing store
// yields a fresh empty state. When the stored data was unreadable the empty
// state is returned together with the decoding error so the caller can log a
// warning and carry on.
type Store interface {
	Load(ctx context.Context) (*engine.State, error)
	Save(ctx context.Context, state *engine.State) error
	Close() error
}
