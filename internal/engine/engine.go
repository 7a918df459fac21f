package engine

import (
	"log/slog"

	"github.com/samber/lo"

	"github.com/bakkerme/hkex-watch/internal/hkex"
)

// Engine classifies each poll's snapshot against the durable state.
type Engine struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{logger: logger}
}

// Update is a previously-seen listing that gained documents since the last
// cycle. NewRefs holds only the references that appeared, in snapshot order.
type Update struct {
	Listing hkex.Listing
	NewRefs []string
}

// Result is the classified diff for one cycle. New and Updated preserve the
// snapshot's relative order, and a listing appears in at most one of them.
type Result struct {
	New     []hkex.Listing
	Updated []Update
}

// Reconcile compares the snapshot against state and mutates state in place:
// SeenIDs is unioned with the snapshot's IDs, each listing's document set is
// overwritten with the snapshot's, and Initialized is set after the cycle.
//
// While state.Initialized is false at cycle start, document changes are
// detected and logged but excluded from Result.Updated: on a fresh state
// every existing listing's documents would otherwise look new. New-listing
// classification is never suppressed since SeenIDs is the correct novelty
// signal regardless of document-tracking history.
func (e *Engine) Reconcile(snapshot []hkex.Listing, state *State) Result {
	// Captured before any mutation; must not change mid-cycle.
	skipUpdateAlerts := !state.Initialized

	var result Result
	currentIDs := make(map[int64]struct{}, len(snapshot))

	for _, listing := range snapshot {
		if listing.ID <= 0 {
			e.logger.Debug("skipping listing without id")
			continue
		}
		currentIDs[listing.ID] = struct{}{}
		refs := listing.DocumentRefs()

		if !state.Seen(listing.ID) {
			result.New = append(result.New, listing)
		} else {
			prior := state.Documents[listing.ID]
			newRefs := lo.Filter(refs, func(ref string, _ int) bool {
				_, ok := prior[ref]
				return !ok
			})
			if len(newRefs) > 0 {
				if skipUpdateAlerts {
					e.logger.Debug("document change detected during initialization, alert suppressed",
						"listing_id", listing.ID, "new_documents", len(newRefs))
				} else {
					result.Updated = append(result.Updated, Update{Listing: listing, NewRefs: newRefs})
				}
			}
		}

		current := make(map[string]struct{}, len(refs))
		for _, ref := range refs {
			current[ref] = struct{}{}
		}
		state.Documents[listing.ID] = current
	}

	for id := range currentIDs {
		state.SeenIDs[id] = struct{}{}
	}
	state.Initialized = true

	if len(result.New) > 0 || len(result.Updated) > 0 {
		e.logger.Info("snapshot reconciled",
			"listings", len(snapshot), "new", len(result.New), "updated", len(result.Updated))
	} else {
		e.logger.Debug("snapshot reconciled, no changes", "listings", len(snapshot))
	}
	return result
}
