package history

import (
	"context"

	"scramble-service/internal/model"

	"gorm.io/gorm"
)

// Service records finalized matches. Callers must treat a nil *Service as
// "history disabled"; Record and List are nil-safe.
type Service struct {
	db *gorm.DB
}

type ListResult struct {
	Items []model.MatchRecord
	Total int64
}

func NewService(db *gorm.DB) *Service {
	if db == nil {
		return nil
	}
	return &Service{db: db}
}

func (s *Service) Record(ctx context.Context, rec model.MatchRecord) error {
	if s == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(&rec).Error
}

func (s *Service) List(ctx context.Context, page, size int) (*ListResult, error) {
	if s == nil {
		return &ListResult{}, nil
	}
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	if size > 100 {
		size = 100
	}

	var total int64
	if err := s.db.WithContext(ctx).
		Model(&model.MatchRecord{}).
		Count(&total).Error; err != nil {
		return nil, err
	}

	var items []model.MatchRecord
	if total > 0 {
		offset := (page - 1) * size
		if err := s.db.WithContext(ctx).
			Model(&model.MatchRecord{}).
			Order("id DESC").
			Limit(size).
			Offset(offset).
			Find(&items).Error; err != nil {
			return nil, err
		}
	}

	return &ListResult{Items: items, Total: total}, nil
}
