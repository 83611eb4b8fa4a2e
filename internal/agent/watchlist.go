package agent

import (
	"context"

	"github.com/mkravets/gamescout/internal/belief"
	"github.com/mkravets/gamescout/internal/trend"
)

// ReplaceWatchlist replaces the tracked-game set. Incoming games are merged
// through the change detector; games missing from the input get their
// tracked flag cleared (never hard-deleted, so a pending "price dropped then
// game removed" event can still surface). The returned set is the
// authoritative post-merge state, which may differ from the submitted values
// wherever the detector recomputed or enrichment filled fields in.
func (s *Service) ReplaceWatchlist(ctx context.Context, updates []belief.Update) ([]belief.Game, []trend.Event, error) {
	// Validate everything up front: a malformed entry rejects the whole
	// request with no state change.
	for i := range updates {
		if err := updates[i].Validate(); err != nil {
			return nil, nil, err
		}
		if updates[i].ID == "" {
			updates[i].ID = belief.NormalizeID(updates[i].Title)
		}
		tracked := true
		if updates[i].Tracked == nil {
			updates[i].Tracked = &tracked
		}
	}

	s.enrich(ctx, updates)

	incoming := make(map[string]struct{}, len(updates))
	for _, u := range updates {
		incoming[u.ID] = struct{}{}
	}

	s.mu.Lock()
	existing := s.store.List(true)
	s.mu.Unlock()

	// The returned set is the post-merge record for every submitted id, in
	// submitted order, so an entry sent with a cleared tracked flag still
	// comes back with its authoritative merged state.
	games := make([]belief.Game, 0, len(updates))
	var events []trend.Event
	for _, u := range updates {
		g, ev, err := s.Apply(ctx, u)
		if err != nil {
			return nil, nil, err
		}
		games = append(games, g)
		if ev != nil {
			events = append(events, *ev)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, g := range existing {
		if _, ok := incoming[g.ID]; ok {
			continue
		}
		if _, err := s.setTrackedLocked(ctx, g.ID, false); err != nil {
			return nil, nil, err
		}
	}
	return games, events, nil
}

// enrich resolves watchlist entries that arrived without an external id
// against the storefront lookup. Best-effort: a lookup failure leaves the
// entry unenriched. Runs outside the mutation lock.
func (s *Service) enrich(ctx context.Context, updates []belief.Update) {
	if s.lookup == nil {
		return
	}
	for i := range updates {
		u := &updates[i]
		if u.ExternalID != nil || u.Title == "" {
			continue
		}
		results, err := s.lookup.Search(ctx, u.Title, 1)
		if err != nil || len(results) == 0 {
			if err != nil {
				s.log.Debug().Err(err).Str("title", u.Title).Msg("storefront lookup failed")
			}
			continue
		}
		r := results[0]
		u.ExternalID = &r.ExternalID
		if u.CurrentPrice == nil && r.Price != nil {
			u.CurrentPrice = r.Price
		}
		if u.Currency == nil && r.Currency != "" {
			cur := r.Currency
			u.Currency = &cur
		}
	}
}
