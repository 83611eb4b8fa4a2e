package trend

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// EventType classifies a detected change in belief state.
type EventType string

const (
	EventPriceDrop       EventType = "price_drop"
	EventPriceIncrease   EventType = "price_increase"
	EventBackInStock     EventType = "back_in_stock"
	EventDiscountStarted EventType = "discount_started"
	EventDiscountEnded   EventType = "discount_ended"
	EventChatInsight     EventType = "chat_insight"
)

// Event is an immutable record of one user-relevant change. GameID is nil
// for agent-wide events. The ULID id doubles as the ledger cursor: ids are
// strictly increasing, so "newer than" is a string comparison.
type Event struct {
	Seq         uint64    `gorm:"primaryKey;autoIncrement" json:"-"`
	ID          string    `gorm:"type:varchar(26);uniqueIndex;not null" json:"id"`
	GameID      *string   `gorm:"type:varchar(128);index" json:"game_id,omitempty"`
	Type        EventType `gorm:"type:varchar(32);not null" json:"type"`
	Title       string    `gorm:"type:varchar(255);not null" json:"title"`
	Description string    `gorm:"type:text;not null" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

func (Event) TableName() string { return "trend_events" }

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewEventID returns a monotonic ULID. Monotonicity keeps cursor comparisons
// valid even for events minted within the same millisecond.
func NewEventID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}
