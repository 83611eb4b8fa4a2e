package belief

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repo persists game beliefs. Mutations take the *gorm.DB they should run
// under so the agent can put a game upsert and an event append in one
// transaction.
type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) Upsert(ctx context.Context, tx *gorm.DB, g *Game) error {
	return tx.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(g).Error
}

// LoadAll returns every persisted game in insertion order.
func (r *Repo) LoadAll(ctx context.Context) ([]Game, error) {
	var games []Game
	if err := r.db.WithContext(ctx).Order("seq ASC").Find(&games).Error; err != nil {
		return nil, err
	}
	return games, nil
}
