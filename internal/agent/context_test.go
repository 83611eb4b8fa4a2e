package agent

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/mkravets/gamescout/internal/ai"
	"github.com/mkravets/gamescout/internal/belief"
	"github.com/mkravets/gamescout/internal/trend"
)

type scriptedProvider struct {
	reply string
	err   error
	calls int
	last  []ai.Message
}

func (p *scriptedProvider) Chat(ctx context.Context, messages []ai.Message) (string, error) {
	p.calls++
	p.last = append([]ai.Message(nil), messages...)
	return p.reply, p.err
}

func newChatService(t *testing.T, provider ai.Provider) *Service {
	t.Helper()
	s, err := New(Config{}, nil, provider, nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return s
}

func TestBuildContext_SummaryAndBounds(t *testing.T) {
	s := newMemService(t, Config{ContextEvents: 2, HistoryWindow: 2})
	ctx := context.Background()
	s.Apply(ctx, belief.Update{ID: "celeste", Title: "Celeste", CurrentPrice: belief.Float(20), Currency: belief.Str("USD")})
	s.Apply(ctx, belief.Update{ID: "hades", Title: "Hades"})

	history := []Turn{
		{Role: "user", Content: "one"},
		{Role: "assistant", Content: "two"},
		{Role: "user", Content: "three"},
	}
	p := s.BuildContext(history, "what's cheap?")

	if !strings.Contains(p.Summary, "Celeste (id=celeste): 20.00 USD") {
		t.Fatalf("summary missing priced game:\n%s", p.Summary)
	}
	if !strings.Contains(p.Summary, "Hades (id=hades): price unknown") {
		t.Fatalf("summary missing unpriced game:\n%s", p.Summary)
	}
	if _, ok := p.KnownIDs["celeste"]; !ok {
		t.Fatalf("known ids missing celeste")
	}

	// system + 2 history turns (window) + user message
	if len(p.Messages) != 4 {
		t.Fatalf("message count = %d, want 4", len(p.Messages))
	}
	if p.Messages[0].Role != ai.RoleSystem {
		t.Fatalf("first message role = %s", p.Messages[0].Role)
	}
	if p.Messages[1].Content != "two" || p.Messages[2].Content != "three" {
		t.Fatalf("history window wrong: %+v", p.Messages[1:3])
	}
	last := p.Messages[len(p.Messages)-1]
	if last.Role != ai.RoleUser || last.Content != "what's cheap?" {
		t.Fatalf("user message not last: %+v", last)
	}

	// Identical state yields an identical payload.
	q := s.BuildContext(history, "what's cheap?")
	if q.Summary != p.Summary {
		t.Fatalf("summary not deterministic")
	}
}

func TestBuildContext_EventWindow(t *testing.T) {
	s := newMemService(t, Config{ContextEvents: 2, Cooldown: time.Nanosecond})
	ctx := context.Background()
	s.Apply(ctx, belief.Update{ID: "g", Title: "G", CurrentPrice: belief.Float(100)})
	for _, p := range []float64{90, 80, 70} {
		s.Apply(ctx, belief.Update{ID: "g", CurrentPrice: belief.Float(p)})
	}
	payload := s.BuildContext(nil, "hi")
	if n := strings.Count(payload.Summary, "[price_drop]"); n != 2 {
		t.Fatalf("summary has %d events, want the 2 newest:\n%s", n, payload.Summary)
	}
}

func TestExtractFacts(t *testing.T) {
	s := newMemService(t, Config{})
	payload := ContextPayload{KnownIDs: map[string]struct{}{"celeste": {}}}

	reply := strings.Join([]string{
		"Celeste is on sale right now.",
		`FACT {"game_id":"celeste","current_price":9.99,"discount_percent":50}`,
		`FACT {"game_id":"unknown-game","current_price":1}`,
		`FACT not even json`,
		`INSIGHT {"title":"Celeste at a historic low","description":"Half price."}`,
		`INSIGHT {"game_id":"unknown-game","title":"Keep an eye out","description":"..."}`,
		"Grab it while it lasts.",
	}, "\n")

	clean, facts, insights := s.ExtractFacts(reply, payload)

	if strings.Contains(clean, "FACT") || strings.Contains(clean, "INSIGHT") {
		t.Fatalf("machine lines leaked into visible reply:\n%s", clean)
	}
	if !strings.Contains(clean, "Celeste is on sale") || !strings.Contains(clean, "Grab it") {
		t.Fatalf("visible text lost:\n%s", clean)
	}

	if len(facts) != 1 {
		t.Fatalf("facts = %+v, want exactly the known-game fact", facts)
	}
	f := facts[0]
	if f.ID != "celeste" || *f.CurrentPrice != 9.99 || *f.DiscountPercent != 50 {
		t.Fatalf("fact fields wrong: %+v", f)
	}

	if len(insights) != 2 {
		t.Fatalf("insights = %+v", insights)
	}
	if insights[0].Title != "Celeste at a historic low" {
		t.Fatalf("insight title: %q", insights[0].Title)
	}
	// Unknown game ids on insights degrade to agent-wide.
	if insights[1].GameID != nil {
		t.Fatalf("unknown insight game id should be dropped")
	}
}

func TestChat_AppliesExtractedFacts(t *testing.T) {
	provider := &scriptedProvider{reply: "Celeste dropped to 9.99!\n" +
		`FACT {"game_id":"celeste","current_price":9.99}`}
	s := newChatService(t, provider)
	ctx := context.Background()
	s.Apply(ctx, belief.Update{ID: "celeste", Title: "Celeste", CurrentPrice: belief.Float(19.99)})

	reply, events, err := s.Chat(ctx, nil, "any deals?")
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if reply != "Celeste dropped to 9.99!" {
		t.Fatalf("reply = %q", reply)
	}
	if len(events) != 1 || events[0].Type != trend.EventPriceDrop {
		t.Fatalf("events = %+v", events)
	}
	g, _ := s.Game("celeste")
	if *g.CurrentPrice != 9.99 {
		t.Fatalf("belief not updated from chat fact: %v", *g.CurrentPrice)
	}
}

func TestChat_RecordsInsights(t *testing.T) {
	provider := &scriptedProvider{reply: "Worth noting.\n" +
		`INSIGHT {"title":"Sales season ahead","description":"Summer sale starts next week."}`}
	s := newChatService(t, provider)

	_, events, err := s.Chat(context.Background(), nil, "anything coming up?")
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if len(events) != 1 || events[0].Type != trend.EventChatInsight {
		t.Fatalf("events = %+v", events)
	}
	if events[0].GameID != nil {
		t.Fatalf("expected agent-wide insight")
	}
	if got := s.Events(10, ""); len(got) != 1 {
		t.Fatalf("insight not in ledger")
	}
}

func TestChat_ProviderFailureLeavesStateUnchanged(t *testing.T) {
	provider := &scriptedProvider{err: errors.New("connection refused")}
	s := newChatService(t, provider)
	ctx := context.Background()
	s.Apply(ctx, belief.Update{ID: "celeste", Title: "Celeste", CurrentPrice: belief.Float(19.99)})

	reply, events, err := s.Chat(ctx, nil, "any deals?")
	if err != nil {
		t.Fatalf("provider failure should degrade, not error: %v", err)
	}
	if !strings.Contains(reply, "Celeste (id=celeste)") {
		t.Fatalf("fallback reply missing summary:\n%s", reply)
	}
	if len(events) != 0 {
		t.Fatalf("failed turn produced events")
	}
	// Retry-once: the provider saw exactly two attempts.
	if provider.calls != 2 {
		t.Fatalf("provider calls = %d, want 2", provider.calls)
	}
	g, _ := s.Game("celeste")
	if *g.CurrentPrice != 19.99 {
		t.Fatalf("failed turn mutated belief: %v", *g.CurrentPrice)
	}
	if got := s.Events(10, ""); len(got) != 0 {
		t.Fatalf("failed turn appended events")
	}
}

func TestChat_NilProviderFallsBack(t *testing.T) {
	s := newChatService(t, nil)
	s.Apply(context.Background(), belief.Update{ID: "hades", Title: "Hades"})

	reply, events, err := s.Chat(context.Background(), nil, "hello")
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if !strings.HasPrefix(reply, unavailableReply) {
		t.Fatalf("expected fallback reply, got:\n%s", reply)
	}
	if !strings.Contains(reply, "Hades") {
		t.Fatalf("fallback missing watchlist summary")
	}
	if len(events) != 0 {
		t.Fatalf("fallback produced events")
	}
}

func TestChat_CanceledContextAborts(t *testing.T) {
	provider := &scriptedProvider{reply: `FACT {"game_id":"celeste","current_price":1}`}
	s := newChatService(t, provider)
	s.Apply(context.Background(), belief.Update{ID: "celeste", Title: "Celeste", CurrentPrice: belief.Float(19.99)})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := s.Chat(ctx, nil, "any deals?")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	g, _ := s.Game("celeste")
	if *g.CurrentPrice != 19.99 {
		t.Fatalf("abandoned turn mutated belief")
	}
}
