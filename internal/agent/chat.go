package agent

import (
	"context"

	"gorm.io/gorm"

	"github.com/mkravets/gamescout/internal/ai"
	"github.com/mkravets/gamescout/internal/trend"
)

const unavailableReply = "Sorry, I can't reach the language model right now. " +
	"Here is what I currently know:\n\n"

// Chat runs one conversational turn: build context, call the language-model
// collaborator (retry-once), then feed any facts the reply asserts back
// through the change detector. A failed or abandoned turn leaves the belief
// store and ledger untouched; a collaborator failure degrades to a
// deterministic summary reply rather than an error.
func (s *Service) Chat(ctx context.Context, history []Turn, userMessage string) (string, []trend.Event, error) {
	payload := s.BuildContext(history, userMessage)

	if s.provider == nil {
		return unavailableReply + payload.Summary, nil, nil
	}

	reply, err := ai.Retrying{Inner: s.provider}.Chat(ctx, payload.Messages)
	if err != nil {
		if ctx.Err() != nil {
			return "", nil, ctx.Err()
		}
		s.log.Warn().Err(err).Msg("language model unavailable")
		return unavailableReply + payload.Summary, nil, nil
	}
	// The caller abandoned the turn: do not apply extracted facts.
	if ctx.Err() != nil {
		return "", nil, ctx.Err()
	}

	clean, facts, insights := s.ExtractFacts(reply, payload)

	var events []trend.Event
	for _, f := range facts {
		_, ev, err := s.Apply(ctx, f)
		if err != nil {
			s.log.Debug().Err(err).Str("game", f.ID).Msg("chat fact rejected")
			continue
		}
		if ev != nil {
			events = append(events, *ev)
		}
	}
	for _, in := range insights {
		ev, err := s.addInsight(ctx, in)
		if err != nil {
			s.log.Debug().Err(err).Msg("chat insight rejected")
			continue
		}
		if ev != nil {
			events = append(events, *ev)
		}
	}

	if clean == "" {
		clean = reply
	}
	return clean, events, nil
}

// addInsight appends a chat_insight event, subject to the same cooldown
// dedup as detector events. A nil GameID makes it agent-wide.
func (s *Service) addInsight(ctx context.Context, in insightLine) (*trend.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	gid := ""
	if in.GameID != nil {
		gid = *in.GameID
	}
	key := cooldownKey{gameID: gid, typ: trend.EventChatInsight}
	if last, ok := s.cooldown[key]; ok && s.now().Sub(last) < s.cfg.Cooldown {
		return nil, nil
	}

	ev := &trend.Event{
		ID:          trend.NewEventID(),
		GameID:      in.GameID,
		Type:        trend.EventChatInsight,
		Title:       in.Title,
		Description: in.Description,
		CreatedAt:   s.now(),
	}
	if s.db != nil {
		err := s.db.Transaction(func(tx *gorm.DB) error {
			if err := s.events.Append(ctx, tx, ev); err != nil {
				return err
			}
			return s.events.TrimToCapacity(ctx, tx, s.cfg.LedgerCapacity)
		})
		if err != nil {
			return nil, err
		}
	}
	s.ledger.Append(*ev)
	s.cooldown[key] = ev.CreatedAt
	return ev, nil
}
