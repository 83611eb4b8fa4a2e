package refresh

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/mkravets/gamescout/internal/agent"
	"github.com/mkravets/gamescout/internal/belief"
	"github.com/mkravets/gamescout/internal/storefront"
)

// Monitor periodically refreshes the tracked watchlist from the storefront.
// With a Publisher it only enqueues per-game jobs for the worker fleet;
// without one it fetches inline.
type Monitor struct {
	Agent     *agent.Service
	Steam     *storefront.Steam
	Publisher *Publisher
	Interval  time.Duration
	Log       zerolog.Logger
}

func (m *Monitor) Run(ctx context.Context) {
	interval := m.Interval
	if interval <= 0 {
		interval = 3 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.Log.Info().Dur("interval", interval).Bool("queued", m.Publisher != nil).Msg("refresh monitor started")
	for {
		select {
		case <-ctx.Done():
			m.Log.Info().Msg("refresh monitor stopped")
			return
		case <-ticker.C:
			m.tick(ctx)
		}
	}
}

func (m *Monitor) tick(ctx context.Context) {
	for _, g := range m.Agent.Watchlist(false) {
		if g.ExternalID == nil || g.Source != belief.SourceSteam {
			continue
		}
		if m.Publisher != nil {
			if err := m.Publisher.PublishRefresh(ctx, g.ID); err != nil {
				m.Log.Warn().Err(err).Str("game", g.ID).Msg("enqueue refresh failed")
			}
			continue
		}
		if err := RefreshGame(ctx, m.Agent, m.Steam, g.ID); err != nil {
			m.Log.Warn().Err(err).Str("game", g.ID).Msg("refresh failed")
		}
	}
}

// RefreshGame fetches current storefront state for one game and replays it
// through the agent's apply path. Shared by the inline monitor and the queue
// worker. A game the storefront no longer knows is left untouched.
func RefreshGame(ctx context.Context, ag *agent.Service, steam *storefront.Steam, gameID string) error {
	g, err := ag.Game(gameID)
	if err != nil {
		if errors.Is(err, agent.ErrNotFound) {
			return nil
		}
		return err
	}
	if g.ExternalID == nil || g.Source != belief.SourceSteam {
		return nil
	}

	details, err := steam.AppDetails(ctx, *g.ExternalID)
	if err != nil {
		return err
	}
	if details == nil || details.FinalPrice == nil {
		return nil
	}

	u := belief.Update{
		ID:           g.ID,
		CurrentPrice: details.FinalPrice,
	}
	if details.InitialPrice != nil {
		u.OriginalPrice = details.InitialPrice
	}
	if details.Currency != "" {
		u.Currency = belief.Str(details.Currency)
	}
	if details.DiscountPercent > 0 {
		u.DiscountPercent = belief.Float(details.DiscountPercent)
	}
	_, _, err = ag.Apply(ctx, u)
	return err
}
