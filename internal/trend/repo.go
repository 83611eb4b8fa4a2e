package trend

import (
	"context"

	"gorm.io/gorm"
)

// Repo persists ledger events. Append takes the caller's transaction so an
// event insert commits atomically with the belief update that produced it.
type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) Append(ctx context.Context, tx *gorm.DB, e *Event) error {
	return tx.WithContext(ctx).Create(e).Error
}

// TrimToCapacity deletes the oldest persisted events beyond capacity,
// mirroring in-memory eviction.
func (r *Repo) TrimToCapacity(ctx context.Context, tx *gorm.DB, capacity int) error {
	var count int64
	if err := tx.WithContext(ctx).Model(&Event{}).Count(&count).Error; err != nil {
		return err
	}
	if count <= int64(capacity) {
		return nil
	}
	// seq of the oldest event that survives
	var boundary Event
	if err := tx.WithContext(ctx).
		Order("seq ASC").
		Offset(int(count) - capacity).
		First(&boundary).Error; err != nil {
		return err
	}
	return tx.WithContext(ctx).Where("seq < ?", boundary.Seq).Delete(&Event{}).Error
}

// LoadRecent returns the newest `limit` persisted events, oldest first.
func (r *Repo) LoadRecent(ctx context.Context, limit int) ([]Event, error) {
	var desc []Event
	if err := r.db.WithContext(ctx).Order("seq DESC").Limit(limit).Find(&desc).Error; err != nil {
		return nil, err
	}
	// reverse to ASC (oldest -> newest)
	for i, j := 0, len(desc)-1; i < j; i, j = i+1, j-1 {
		desc[i], desc[j] = desc[j], desc[i]
	}
	return desc, nil
}
