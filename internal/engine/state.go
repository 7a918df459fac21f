package engine

import (
	"sort"
	"strconv"
	"time"
)

// State is the monitor's durable memory of what has been observed. It is
// loaded once at startup, mutated exactly once per cycle by Reconcile, and
// persisted after every successful cycle.
type State struct {
	// SeenIDs holds every listing ID ever observed. It only grows: a listing
	// disappearing from a later snapshot is not a deletion event.
	SeenIDs map[int64]struct{}

	// Documents maps a listing ID to the document references observed for it
	// in the last cycle. Values are replaced wholesale each cycle so the next
	// cycle's diff runs against "last seen", not "ever seen".
	Documents map[int64]map[string]struct{}

	// Initialized flips to true after the first cycle that populated the
	// document index, and never flips back. While false, "updated" alerts
	// are suppressed to avoid a flood on a fresh state.
	Initialized bool

	// LastCheck records when the state was last persisted.
	LastCheck time.Time
}

func NewState() *State {
	return &State{
		SeenIDs:   make(map[int64]struct{}),
		Documents: make(map[int64]map[string]struct{}),
	}
}

// Seen reports whether the listing ID has been observed in any prior cycle.
func (s *State) Seen(id int64) bool {
	_, ok := s.SeenIDs[id]
	return ok
}

// TotalSeen returns the number of distinct listing IDs ever observed.
func (s *State) TotalSeen() int {
	return len(s.SeenIDs)
}

// Snapshot is the persisted form of State. Set-valued fields serialize as
// sorted slices: order is lost on the round trip, membership is not.
type Snapshot struct {
	LastCheck   time.Time           `json:"last_check"`
	SeenIDs     []int64             `json:"seen_ids"`
	TotalSeen   int                 `json:"total_seen"`
	Documents   map[string][]string `json:"documents"`
	Initialized bool                `json:"tracking_initialized"`
}

// Snapshot converts the in-memory state to its persisted form.
func (s *State) Snapshot() Snapshot {
	ids := make([]int64, 0, len(s.SeenIDs))
	for id := range s.SeenIDs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	docs := make(map[string][]string, len(s.Documents))
	for id, refs := range s.Documents {
		urls := make([]string, 0, len(refs))
		for url := range refs {
			urls = append(urls, url)
		}
		sort.Strings(urls)
		docs[strconv.FormatInt(id, 10)] = urls
	}

	return Snapshot{
		LastCheck:   s.LastCheck,
		SeenIDs:     ids,
		TotalSeen:   len(ids),
		Documents:   docs,
		Initialized: s.Initialized,
	}
}

// FromSnapshot rebuilds set semantics from a persisted snapshot, ignoring
// order and duplicates. Document keys that are not numeric listing IDs are
// dropped.
func FromSnapshot(snap Snapshot) *State {
	state := NewState()
	state.LastCheck = snap.LastCheck
	state.Initialized = snap.Initialized
	for _, id := range snap.SeenIDs {
		state.SeenIDs[id] = struct{}{}
	}
	for key, urls := range snap.Documents {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			continue
		}
		refs := make(map[string]struct{}, len(urls))
		for _, url := range urls {
			refs[url] = struct{}{}
		}
		state.Documents[id] = refs
	}
	return state
}
