package audit

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// GormStore persists audit events through GORM. Any dialector works; tests
// use the sqlite driver.
type GormStore struct {
	db *gorm.DB
}

var _ Store = (*GormStore)(nil)

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) AutoMigrate() error {
	return s.db.AutoMigrate(&Event{})
}

func (s *GormStore) SaveEvent(ctx context.Context, event *Event) error {
	return s.db.WithContext(ctx).Create(event).Error
}

func (s *GormStore) Query(ctx context.Context, filter Filter) ([]Event, error) {
	var events []Event
	err := s.scope(ctx, filter).
		Order("created_at").
		Limit(normalizeLimit(filter.Limit)).
		Offset(filter.Offset).
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (s *GormStore) Count(ctx context.Context, filter Filter) (int64, error) {
	var count int64
	err := s.scope(ctx, filter).Count(&count).Error
	return count, err
}

func (s *GormStore) Purge(ctx context.Context, olderThan time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("created_at < ?", olderThan).
		Delete(&Event{})
	return res.RowsAffected, res.Error
}

func (s *GormStore) scope(ctx context.Context, filter Filter) *gorm.DB {
	q := s.db.WithContext(ctx).Model(&Event{})
	if filter.ActorID != "" {
		q = q.Where("actor_id = ?", filter.ActorID)
	}
	if len(filter.Types) > 0 {
		q = q.Where("type IN ?", filter.Types)
	}
	if len(filter.Statuses) > 0 {
		q = q.Where("status IN ?", filter.Statuses)
	}
	if !filter.Since.IsZero() {
		q = q.Where("created_at >= ?", filter.Since)
	}
	if !filter.Until.IsZero() {
		q = q.Where("created_at <= ?", filter.Until)
	}
	return q
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}
