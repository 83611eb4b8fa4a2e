package agent

import (
	"context"
	"fmt"

	"github.com/mkravets/gamescout/internal/belief"
	"github.com/mkravets/gamescout/internal/trend"
)

// Apply is the single entry point for every belief mutation that could be
// event-worthy: watchlist edits, refresh updates and chat-derived facts all
// land here. It merges the partial update into the prior belief, detects at
// most one event, and commits store + ledger together.
func (s *Service) Apply(ctx context.Context, u belief.Update) (belief.Game, *trend.Event, error) {
	if err := u.Validate(); err != nil {
		return belief.Game{}, nil, err
	}
	if u.ID == "" {
		u.ID = belief.NormalizeID(u.Title)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applyLocked(ctx, u)
}

func (s *Service) applyLocked(ctx context.Context, u belief.Update) (belief.Game, *trend.Event, error) {
	var prior *belief.Game
	if g, ok := s.store.Get(u.ID); ok {
		prior = &g
	}
	merged := belief.Merge(prior, u)
	merged.Seq = s.store.SeqFor(merged.ID)

	ev := s.detect(prior, merged, u)
	if ev != nil {
		key := cooldownKey{gameID: merged.ID, typ: ev.Type}
		if last, ok := s.cooldown[key]; ok && s.now().Sub(last) < s.cfg.Cooldown {
			s.log.Debug().Str("game", merged.ID).Str("type", string(ev.Type)).Msg("event suppressed by cooldown")
			ev = nil
		}
	}

	if err := s.persist(ctx, &merged, ev); err != nil {
		return belief.Game{}, nil, err
	}
	merged = s.store.Put(merged)
	if ev != nil {
		s.ledger.Append(*ev)
		s.cooldown[cooldownKey{gameID: merged.ID, typ: ev.Type}] = ev.CreatedAt
		s.log.Info().Str("game", merged.ID).Str("type", string(ev.Type)).Str("event", ev.ID).Msg("trend event")
	}
	return merged, ev, nil
}

// detect compares the prior belief with the merged result and returns at
// most one candidate event. When several rules match a single update only
// the highest-priority one fires; one physical change should make one line
// of chat noise, not three.
func (s *Service) detect(prior *belief.Game, merged belief.Game, u belief.Update) *trend.Event {
	priorPriced := prior != nil && prior.CurrentPrice != nil

	if !priorPriced && u.CurrentPrice != nil && discountOf(merged) > 0 {
		return s.newEvent(merged.ID, trend.EventDiscountStarted,
			fmt.Sprintf("Discount on %s", merged.Title),
			fmt.Sprintf("Now %s (-%.0f%%)", price(merged.CurrentPrice, merged.Currency), discountOf(merged)))
	}

	if priorPriced && u.CurrentPrice != nil {
		was, now := *prior.CurrentPrice, *merged.CurrentPrice
		if s.significant(was, now) {
			if now < was {
				return s.newEvent(merged.ID, trend.EventPriceDrop,
					fmt.Sprintf("Price drop: %s", merged.Title),
					fmt.Sprintf("Was %s, now %s", price(&was, merged.Currency), price(&now, merged.Currency)))
			}
			return s.newEvent(merged.ID, trend.EventPriceIncrease,
				fmt.Sprintf("Price increase: %s", merged.Title),
				fmt.Sprintf("Was %s, now %s", price(&was, merged.Currency), price(&now, merged.Currency)))
		}
	}

	if prior != nil && discountOf(*prior) > 0 && discountOf(merged) == 0 {
		return s.newEvent(merged.ID, trend.EventDiscountEnded,
			fmt.Sprintf("Discount ended: %s", merged.Title),
			fmt.Sprintf("Back to %s", price(merged.CurrentPrice, merged.Currency)))
	}

	if prior != nil && prior.Tracked && prior.CurrentPrice == nil && u.CurrentPrice != nil {
		return s.newEvent(merged.ID, trend.EventBackInStock,
			fmt.Sprintf("%s is available again", merged.Title),
			fmt.Sprintf("Listed at %s", price(merged.CurrentPrice, merged.Currency)))
	}

	return nil
}

// significant reports whether a price move clears either threshold.
func (s *Service) significant(old, new float64) bool {
	if old <= 0 {
		return false
	}
	delta := old - new
	if delta < 0 {
		delta = -delta
	}
	if delta/old*100 >= s.cfg.MinChangePercent {
		return true
	}
	return s.cfg.MinChangeAbsolute > 0 && delta >= s.cfg.MinChangeAbsolute
}

func (s *Service) newEvent(gameID string, typ trend.EventType, title, desc string) *trend.Event {
	return &trend.Event{
		ID:          trend.NewEventID(),
		GameID:      &gameID,
		Type:        typ,
		Title:       title,
		Description: desc,
		CreatedAt:   s.now(),
	}
}

func discountOf(g belief.Game) float64 {
	if g.DiscountPercent == nil {
		return 0
	}
	return *g.DiscountPercent
}

func price(v *float64, currency *string) string {
	if v == nil {
		return "price unknown"
	}
	cur := "USD"
	if currency != nil && *currency != "" {
		cur = *currency
	}
	return fmt.Sprintf("%.2f %s", *v, cur)
}
