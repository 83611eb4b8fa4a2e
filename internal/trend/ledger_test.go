package trend

import (
	"fmt"
	"testing"
	"time"
)

func makeEvent(seq uint64) Event {
	gid := fmt.Sprintf("game-%d", seq)
	return Event{
		Seq:         seq,
		ID:          NewEventID(),
		GameID:      &gid,
		Type:        EventPriceDrop,
		Title:       fmt.Sprintf("event %d", seq),
		Description: "test",
		CreatedAt:   time.Now(),
	}
}

func TestLedger_CapacityEvictsOldest(t *testing.T) {
	l := NewLedger(3)
	for seq := uint64(1); seq <= 5; seq++ {
		l.Append(makeEvent(seq))
	}

	got := l.List(10, "")
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	for i, want := range []uint64{3, 4, 5} {
		if got[i].Seq != want {
			t.Fatalf("got[%d].Seq = %d, want %d", i, got[i].Seq, want)
		}
	}
}

func TestLedger_LenTracksEviction(t *testing.T) {
	l := NewLedger(2)
	l.Append(makeEvent(1))
	l.Append(makeEvent(2))
	l.Append(makeEvent(3))
	if l.Len() != 2 {
		t.Fatalf("len = %d, want 2", l.Len())
	}
	if got := l.List(10, ""); got[0].Seq != 2 {
		t.Fatalf("oldest retained seq = %d, want 2", got[0].Seq)
	}
}

func TestLedger_ListCursor(t *testing.T) {
	l := NewLedger(10)
	var ids []string
	for seq := uint64(1); seq <= 5; seq++ {
		e := makeEvent(seq)
		ids = append(ids, e.ID)
		l.Append(e)
	}

	// Events after a mid-window cursor, oldest first.
	got := l.List(10, ids[1])
	if len(got) != 3 || got[0].ID != ids[2] || got[2].ID != ids[4] {
		t.Fatalf("cursor list wrong: %+v", got)
	}

	// With a cursor the oldest of the remainder is kept so paging
	// continues without gaps.
	got = l.List(2, ids[0])
	if len(got) != 2 || got[0].ID != ids[1] || got[1].ID != ids[2] {
		t.Fatalf("paged cursor list wrong")
	}

	// Caught up: nothing newer.
	if got := l.List(10, ids[4]); len(got) != 0 {
		t.Fatalf("expected empty list, got %d", len(got))
	}
}

func TestLedger_StaleCursorReturnsWindow(t *testing.T) {
	// The cursor's event has been evicted; the caller gets the whole
	// retained window rather than an error.
	staleID := NewEventID()
	l := NewLedger(3)
	for seq := uint64(1); seq <= 4; seq++ {
		l.Append(makeEvent(seq))
	}
	got := l.List(10, staleID)
	if len(got) != 3 || got[0].Seq != 2 {
		t.Fatalf("stale cursor: got %d events starting at seq %d", len(got), got[0].Seq)
	}
}

func TestLedger_NoCursorReturnsNewest(t *testing.T) {
	l := NewLedger(10)
	for seq := uint64(1); seq <= 5; seq++ {
		l.Append(makeEvent(seq))
	}
	got := l.List(2, "")
	if len(got) != 2 || got[0].Seq != 4 || got[1].Seq != 5 {
		t.Fatalf("newest-window list wrong: %+v", got)
	}
}

func TestNewEventID_Monotonic(t *testing.T) {
	prev := NewEventID()
	for i := 0; i < 1000; i++ {
		id := NewEventID()
		if id <= prev {
			t.Fatalf("ids not strictly increasing: %s then %s", prev, id)
		}
		prev = id
	}
}
