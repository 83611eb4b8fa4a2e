package agent

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mkravets/gamescout/internal/ai"
	"github.com/mkravets/gamescout/internal/belief"
)

// Turn is one entry of a caller-owned conversation. The core never persists
// conversation state; only extracted facts survive a request.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ContextPayload is the bounded, deterministic input for the language-model
// collaborator, plus the bookkeeping ExtractFacts needs to recognize echoes
// of its own summaries.
type ContextPayload struct {
	Messages []ai.Message
	Summary  string
	KnownIDs map[string]struct{}
}

const (
	factPrefix    = "FACT "
	insightPrefix = "INSIGHT "
)

var systemPreamble = strings.TrimSpace(`
You are GameScout, a game price tracking assistant.
Answer briefly. Use ONLY the data in the context below; if the context has no
answer, say so instead of inventing prices or titles.
When you assert a price or discount for a tracked game that is not already in
the context, append a line: ` + factPrefix + `{"game_id":"...","current_price":0,"discount_percent":0}
When you have a noteworthy observation worth surfacing as an event, append a
line: ` + insightPrefix + `{"title":"...","description":"..."}
These lines are machine-read and stripped before the user sees your reply.
`)

// BuildContext assembles the payload for one chat turn: tracked-game
// summary, the most recent ledger events, the capped history and the new
// user message. It reads a consistent snapshot and never mutates state.
func (s *Service) BuildContext(history []Turn, userMessage string) ContextPayload {
	s.mu.Lock()
	games := s.store.List(true)
	events := s.ledger.Recent(s.cfg.ContextEvents)
	s.mu.Unlock()

	var b strings.Builder
	known := make(map[string]struct{}, len(games))

	b.WriteString("Tracked games:\n")
	if len(games) == 0 {
		b.WriteString("- none\n")
	}
	for _, g := range games {
		known[g.ID] = struct{}{}
		line := fmt.Sprintf("- %s (id=%s): %s", g.Title, g.ID, price(g.CurrentPrice, g.Currency))
		if d := discountOf(g); d > 0 {
			line += fmt.Sprintf(" (-%.0f%%)", d)
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}

	b.WriteString("Recent events:\n")
	if len(events) == 0 {
		b.WriteString("- none\n")
	}
	for _, e := range events {
		fmt.Fprintf(&b, "- [%s] %s: %s\n", e.Type, e.Title, e.Description)
	}
	summary := b.String()

	if len(history) > s.cfg.HistoryWindow {
		history = history[len(history)-s.cfg.HistoryWindow:]
	}
	msgs := make([]ai.Message, 0, len(history)+2)
	msgs = append(msgs, ai.Message{
		Role:    ai.RoleSystem,
		Content: systemPreamble + "\n\nCONTEXT:\n" + summary,
	})
	for _, t := range history {
		role := t.Role
		if role != ai.RoleAssistant {
			role = ai.RoleUser
		}
		msgs = append(msgs, ai.Message{Role: role, Content: t.Content})
	}
	msgs = append(msgs, ai.Message{Role: ai.RoleUser, Content: userMessage})

	return ContextPayload{Messages: msgs, Summary: summary, KnownIDs: known}
}

type factLine struct {
	GameID          string   `json:"game_id"`
	CurrentPrice    *float64 `json:"current_price"`
	OriginalPrice   *float64 `json:"original_price"`
	DiscountPercent *float64 `json:"discount_percent"`
	Currency        *string  `json:"currency"`
}

type insightLine struct {
	GameID      *string `json:"game_id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
}

// ExtractFacts scans a reply for the structured lines the system prompt asks
// the model to emit. It is deliberately best-effort: malformed lines and
// facts about games outside the payload are dropped, never errors. The
// returned reply has the machine channels stripped.
func (s *Service) ExtractFacts(reply string, payload ContextPayload) (clean string, facts []belief.Update, insights []insightLine) {
	var visible []string
	for _, raw := range strings.Split(reply, "\n") {
		line := strings.TrimSpace(raw)
		switch {
		case strings.HasPrefix(line, factPrefix):
			var f factLine
			if err := json.Unmarshal([]byte(line[len(factPrefix):]), &f); err != nil {
				s.log.Debug().Err(err).Msg("unparseable fact line")
				continue
			}
			if _, ok := payload.KnownIDs[f.GameID]; !ok {
				continue
			}
			facts = append(facts, belief.Update{
				ID:              f.GameID,
				CurrentPrice:    f.CurrentPrice,
				OriginalPrice:   f.OriginalPrice,
				DiscountPercent: f.DiscountPercent,
				Currency:        f.Currency,
			})
		case strings.HasPrefix(line, insightPrefix):
			var in insightLine
			if err := json.Unmarshal([]byte(line[len(insightPrefix):]), &in); err != nil {
				s.log.Debug().Err(err).Msg("unparseable insight line")
				continue
			}
			if in.Title == "" {
				continue
			}
			if in.GameID != nil {
				if _, ok := payload.KnownIDs[*in.GameID]; !ok {
					in.GameID = nil
				}
			}
			insights = append(insights, in)
		default:
			visible = append(visible, raw)
		}
	}
	return strings.TrimSpace(strings.Join(visible, "\n")), facts, insights
}
