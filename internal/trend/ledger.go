package trend

import "sort"

const (
	// DefaultCapacity bounds retained events when the caller does not choose.
	DefaultCapacity = 2048

	defaultListLimit = 50
)

// Ledger is the append-only, bounded event window. Events are kept oldest
// first; once capacity is exceeded the oldest are evicted. Like the belief
// store it does no locking of its own.
type Ledger struct {
	events   []Event
	capacity int
}

func NewLedger(capacity int) *Ledger {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Ledger{capacity: capacity}
}

// Append adds an event, evicting the oldest once capacity is exceeded.
// Persistent storage trims itself (see Repo.TrimToCapacity).
func (l *Ledger) Append(e Event) {
	l.events = append(l.events, e)
	if len(l.events) > l.capacity {
		l.events = l.events[len(l.events)-l.capacity:]
	}
}

// List returns up to limit events newer than sinceID, oldest first
// (most-recent-last). An empty sinceID means "the latest limit events". A
// cursor older than the retained window yields the whole retained window:
// the caller is simply caught up to the oldest we still have.
func (l *Ledger) List(limit int, sinceID string) []Event {
	if limit <= 0 {
		limit = defaultListLimit
	}
	events := l.events
	if sinceID != "" {
		// First index with ID > sinceID. IDs are monotonic ULIDs, so the
		// slice is sorted by ID.
		i := sort.Search(len(events), func(i int) bool { return events[i].ID > sinceID })
		events = events[i:]
		// With a cursor, keep the oldest of the remainder so the caller's
		// next cursor continues without gaps.
		if len(events) > limit {
			events = events[:limit]
		}
	} else if len(events) > limit {
		events = events[len(events)-limit:]
	}
	out := make([]Event, len(events))
	copy(out, events)
	return out
}

// Recent returns the newest n events, oldest first.
func (l *Ledger) Recent(n int) []Event {
	return l.List(n, "")
}

func (l *Ledger) Len() int { return len(l.events) }

// Load seeds the ledger from persisted events, assumed oldest first.
func (l *Ledger) Load(events []Event) {
	l.events = append(l.events, events...)
	if len(l.events) > l.capacity {
		l.events = l.events[len(l.events)-l.capacity:]
	}
}
