package mock

import (
	"context"

	"github.com/bakkerme/hkex-watch/internal/hkex"
)

// Fetcher replays canned snapshots in order. After the last snapshot is
// served it keeps returning the final one, so a test can run extra cycles
// against a stable feed.
type Fetcher struct {
	Snapshots [][]hkex.Listing
	Err       error
	Calls     int
}

func (f *Fetcher) Fetch(ctx context.Context) ([]hkex.Listing, error) {
	_ = ctx
	f.Calls++
	if f.Err != nil {
		return nil, f.Err
	}
	if len(f.Snapshots) == 0 {
		return nil, nil
	}
	idx := f.Calls - 1
	if idx >= len(f.Snapshots) {
		idx = len(f.Snapshots) - 1
	}
	return f.Snapshots[idx], nil
}
