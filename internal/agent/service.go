package agent

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/mkravets/gamescout/internal/ai"
	"github.com/mkravets/gamescout/internal/belief"
	"github.com/mkravets/gamescout/internal/trend"
)

// Config carries the tunables of the detection and context machinery.
type Config struct {
	// MinChangePercent is the smallest relative price move (percent of the
	// prior price) that counts as a price_drop / price_increase.
	MinChangePercent float64
	// MinChangeAbsolute, when > 0, lets a large absolute move qualify even
	// below the percentage threshold.
	MinChangeAbsolute float64
	// Cooldown suppresses a second event of the same type for the same game
	// within this window.
	Cooldown time.Duration
	// LedgerCapacity bounds retained events.
	LedgerCapacity int
	// ContextEvents is how many recent events go into a chat context.
	ContextEvents int
	// HistoryWindow caps how many conversation turns are forwarded to the
	// language model.
	HistoryWindow int
}

func (c Config) withDefaults() Config {
	if c.MinChangePercent <= 0 {
		c.MinChangePercent = 1.0
	}
	if c.Cooldown <= 0 {
		c.Cooldown = 5 * time.Minute
	}
	if c.LedgerCapacity <= 0 {
		c.LedgerCapacity = trend.DefaultCapacity
	}
	if c.ContextEvents <= 0 {
		c.ContextEvents = 10
	}
	if c.HistoryWindow <= 0 {
		c.HistoryWindow = 8
	}
	return c
}

type cooldownKey struct {
	gameID string
	typ    trend.EventType
}

// Service owns the belief store and the event ledger behind a single
// mutation lock. Every write path (watchlist edits, refresh updates,
// chat-derived facts) funnels through Apply so delta detection, dedup and
// persistence happen in one critical section. Collaborator calls (language
// model, storefront lookup) never run under the lock.
type Service struct {
	mu       sync.Mutex
	store    *belief.Store
	ledger   *trend.Ledger
	cooldown map[cooldownKey]time.Time

	cfg      Config
	db       *gorm.DB // nil = in-memory only
	games    *belief.Repo
	events   *trend.Repo
	provider ai.Provider
	lookup   Lookup
	log      zerolog.Logger

	now func() time.Time
}

// New builds the service. db, provider and lookup may each be nil: without a
// db state lives in memory only (and the dedup cooldown resets on restart);
// without a provider chat answers fall back to the deterministic summary;
// without a lookup watchlist entries are not enriched.
func New(cfg Config, db *gorm.DB, provider ai.Provider, lookup Lookup, log zerolog.Logger) (*Service, error) {
	cfg = cfg.withDefaults()
	s := &Service{
		store:    belief.NewStore(),
		ledger:   trend.NewLedger(cfg.LedgerCapacity),
		cooldown: make(map[cooldownKey]time.Time),
		cfg:      cfg,
		db:       db,
		provider: provider,
		lookup:   lookup,
		log:      log,
		now:      time.Now,
	}
	if db != nil {
		s.games = belief.NewRepo(db)
		s.events = trend.NewRepo(db)
		if err := s.restore(context.Background()); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// restore reloads the tracked-game set and the retained event window, then
// rebuilds cooldown state from event timestamps so a restart does not
// immediately re-emit events that were already within cooldown.
func (s *Service) restore(ctx context.Context) error {
	games, err := s.games.LoadAll(ctx)
	if err != nil {
		return err
	}
	s.store.Load(games)

	events, err := s.events.LoadRecent(ctx, s.cfg.LedgerCapacity)
	if err != nil {
		return err
	}
	s.ledger.Load(events)
	for _, e := range events {
		gid := ""
		if e.GameID != nil {
			gid = *e.GameID
		}
		s.cooldown[cooldownKey{gameID: gid, typ: e.Type}] = e.CreatedAt
	}
	s.log.Info().Int("games", len(games)).Int("events", len(events)).Msg("state restored")
	return nil
}

// Watchlist returns games in insertion order, tracked-only unless all is set.
func (s *Service) Watchlist(all bool) []belief.Game {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.List(!all)
}

// Game returns the current belief for one id.
func (s *Service) Game(id string) (belief.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.store.Get(id)
	if !ok {
		return belief.Game{}, ErrNotFound
	}
	return g, nil
}

// Remove hard-deletes a game belief. Historical events naming the id stay in
// the ledger; association is by id only.
func (s *Service) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.store.Get(id); !ok {
		return ErrNotFound
	}
	if s.db != nil {
		if err := s.db.WithContext(ctx).Delete(&belief.Game{}, "id = ?", id).Error; err != nil {
			return err
		}
	}
	s.store.Remove(id)
	return nil
}

// Events reads the ledger: up to limit events newer than the sinceID cursor,
// most-recent-last. A stale cursor returns the full retained window.
func (s *Service) Events(limit int, sinceID string) []trend.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.List(limit, sinceID)
}

// setTrackedLocked is the one mutation allowed to bypass the change
// detector: a plain tracked-flag toggle carries no price state.
func (s *Service) setTrackedLocked(ctx context.Context, id string, tracked bool) (belief.Game, error) {
	g, ok := s.store.Get(id)
	if !ok {
		return belief.Game{}, ErrNotFound
	}
	if g.Tracked == tracked {
		return g, nil
	}
	g.Tracked = tracked
	if s.db != nil {
		if err := s.games.Upsert(ctx, s.db, &g); err != nil {
			return belief.Game{}, err
		}
	}
	return s.store.Put(g), nil
}

// persist writes the merged game and the optional event in one transaction,
// trimming persisted events to the ledger capacity. Memory is only touched
// after this succeeds, so a storage failure leaves no split state.
func (s *Service) persist(ctx context.Context, g *belief.Game, ev *trend.Event) error {
	if s.db == nil {
		return nil
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.games.Upsert(ctx, tx, g); err != nil {
			return err
		}
		if ev != nil {
			if err := s.events.Append(ctx, tx, ev); err != nil {
				return err
			}
			if err := s.events.TrimToCapacity(ctx, tx, s.cfg.LedgerCapacity); err != nil {
				return err
			}
		}
		return nil
	})
}
