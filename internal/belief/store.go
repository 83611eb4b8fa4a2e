package belief

import "time"

// Store holds the current belief about every known game, in insertion order.
// It is a plain container: serialization is the caller's job (the agent
// service wraps every mutation in its single critical section).
type Store struct {
	games   map[string]*Game
	order   []string
	nextSeq uint64
}

func NewStore() *Store {
	return &Store{games: make(map[string]*Game), nextSeq: 1}
}

// Put replaces the record for g.ID, assigning an insertion seq when the id is
// new. The merge itself happens upstream (see Merge).
func (s *Store) Put(g Game) Game {
	now := time.Now()
	if prior, ok := s.games[g.ID]; ok {
		g.Seq = prior.Seq
		g.CreatedAt = prior.CreatedAt
	} else {
		g.Seq = s.nextSeq
		s.nextSeq++
		g.CreatedAt = now
		s.order = append(s.order, g.ID)
	}
	g.UpdatedAt = now
	cp := g
	s.games[g.ID] = &cp
	return g
}

// SeqFor previews the insertion seq an id has, or would get from the next
// Put. Lets callers persist a record with its final seq before committing it
// to memory.
func (s *Store) SeqFor(id string) uint64 {
	if g, ok := s.games[id]; ok {
		return g.Seq
	}
	return s.nextSeq
}

func (s *Store) Get(id string) (Game, bool) {
	g, ok := s.games[id]
	if !ok {
		return Game{}, false
	}
	return *g, true
}

// List returns games in insertion order; with trackedOnly, untracked entries
// are skipped. The result is a copy safe to hand to readers.
func (s *Store) List(trackedOnly bool) []Game {
	out := make([]Game, 0, len(s.order))
	for _, id := range s.order {
		g := s.games[id]
		if trackedOnly && !g.Tracked {
			continue
		}
		out = append(out, *g)
	}
	return out
}

func (s *Store) Remove(id string) bool {
	if _, ok := s.games[id]; !ok {
		return false
	}
	delete(s.games, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

func (s *Store) Len() int { return len(s.games) }

// Load seeds the store from persisted records. Records must already be in
// seq order; the next seq continues after the highest seen.
func (s *Store) Load(games []Game) {
	for i := range games {
		g := games[i]
		s.games[g.ID] = &g
		s.order = append(s.order, g.ID)
		if g.Seq >= s.nextSeq {
			s.nextSeq = g.Seq + 1
		}
	}
}
