package belief

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// Source identifies the storefront a game record came from.
type Source string

const (
	SourceSteam Source = "steam"
	SourceEpic  Source = "epic"
	SourceGOG   Source = "gog"
	SourceOther Source = "other"
)

var ErrValidation = errors.New("validation failed")

// Game is the agent's current belief about a single tracked title.
// Optional attributes are pointers so a missing value is distinguishable
// from zero.
type Game struct {
	ID              string   `gorm:"primaryKey;type:varchar(128)" json:"id"`
	Title           string   `gorm:"type:varchar(255);not null" json:"title"`
	Source          Source   `gorm:"type:varchar(16);not null" json:"source"`
	ExternalID      *string  `gorm:"type:varchar(64)" json:"external_id,omitempty"`
	CurrentPrice    *float64 `json:"current_price,omitempty"`
	OriginalPrice   *float64 `json:"original_price,omitempty"`
	Currency        *string  `gorm:"type:varchar(8)" json:"currency,omitempty"`
	DiscountPercent *float64 `json:"discount_percent,omitempty"`
	Tracked         bool     `gorm:"not null" json:"is_tracked"`

	// Seq preserves insertion order across restarts. Assigned by the store,
	// never by the database.
	Seq       uint64    `gorm:"index;not null" json:"-"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

func (Game) TableName() string { return "games" }

// Update is a partial Game. Nil pointer fields are "not supplied" and leave
// the stored value alone; Title and Source are treated as absent when empty.
type Update struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	Source          Source   `json:"source"`
	ExternalID      *string  `json:"external_id"`
	CurrentPrice    *float64 `json:"current_price"`
	OriginalPrice   *float64 `json:"original_price"`
	Currency        *string  `json:"currency"`
	DiscountPercent *float64 `json:"discount_percent"`
	Tracked         *bool    `json:"is_tracked"`
}

// NormalizeID derives a stable game id from a title: lowercased, with runs
// of non-alphanumeric characters collapsed to single dashes.
func NormalizeID(title string) string {
	var b strings.Builder
	dash := true // suppress leading dash
	for _, r := range strings.ToLower(strings.TrimSpace(title)) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		default:
			if !dash {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// Validate rejects malformed updates before they reach the store.
func (u Update) Validate() error {
	if u.ID == "" && NormalizeID(u.Title) == "" {
		return fmt.Errorf("%w: game id or title required", ErrValidation)
	}
	if u.CurrentPrice != nil && *u.CurrentPrice < 0 {
		return fmt.Errorf("%w: current_price is negative", ErrValidation)
	}
	if u.OriginalPrice != nil && *u.OriginalPrice < 0 {
		return fmt.Errorf("%w: original_price is negative", ErrValidation)
	}
	if u.DiscountPercent != nil && (*u.DiscountPercent < 0 || *u.DiscountPercent > 100) {
		return fmt.Errorf("%w: discount_percent out of range", ErrValidation)
	}
	return nil
}

// discountTolerance is how far (in percentage points) a submitted
// discount_percent may drift from the value derived from the two prices
// before it is considered untrusted and recomputed.
const discountTolerance = 0.5

// Merge folds an update into the prior belief. A nil prior means the game is
// new. Supplied fields overwrite, absent fields are preserved, with one
// exception: an update that carries a current price but no discount clears a
// previously known discount, because a price refresh that reports no discount
// means the discount is gone.
func Merge(prior *Game, u Update) Game {
	var g Game
	if prior != nil {
		g = *prior
	} else {
		g.ID = u.ID
		g.Source = SourceOther
		g.Tracked = true
	}
	if g.ID == "" {
		g.ID = NormalizeID(u.Title)
	}
	if u.Title != "" {
		g.Title = u.Title
	}
	if u.Source != "" {
		g.Source = u.Source
	}
	if u.ExternalID != nil {
		g.ExternalID = u.ExternalID
	}
	if u.CurrentPrice != nil {
		g.CurrentPrice = u.CurrentPrice
	}
	if u.OriginalPrice != nil {
		g.OriginalPrice = u.OriginalPrice
	}
	if u.Currency != nil {
		g.Currency = u.Currency
	}
	switch {
	case u.DiscountPercent != nil:
		g.DiscountPercent = u.DiscountPercent
	case u.CurrentPrice != nil && prior != nil && prior.DiscountPercent != nil:
		g.DiscountPercent = nil
	}
	if u.Tracked != nil {
		g.Tracked = *u.Tracked
	}
	reconcileDiscount(&g)
	return g
}

// reconcileDiscount recomputes discount_percent from the two prices whenever
// the submitted value disagrees with the derived one. Client-supplied
// percentages are never trusted blindly.
func reconcileDiscount(g *Game) {
	if g.OriginalPrice == nil || g.CurrentPrice == nil || *g.OriginalPrice <= 0 {
		return
	}
	if g.DiscountPercent == nil {
		return
	}
	derived := (*g.OriginalPrice - *g.CurrentPrice) / *g.OriginalPrice * 100
	if derived < 0 {
		derived = 0
	}
	if math.Abs(*g.DiscountPercent-derived) > discountTolerance {
		g.DiscountPercent = &derived
	}
}

// Float is a convenience for building optional price fields.
func Float(v float64) *float64 { return &v }

// Str is a convenience for building optional string fields.
func Str(v string) *string { return &v }

// Bool is a convenience for building the tracked flag.
func Bool(v bool) *bool { return &v }
