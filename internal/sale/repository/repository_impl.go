package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	saledomain "github.com/tarumnet/mikrobill/internal/sale/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() saledomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, s *saledomain.Sale) error {
	return db.WithContext(ctx).Create(s).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*saledomain.Sale, error) {
	var s saledomain.Sale
	err := db.WithContext(ctx).
		Where("id = ?", id).
		Take(&s).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter saledomain.ListFilter) ([]saledomain.Sale, error) {
	query := db.WithContext(ctx).Order("sold_at DESC, id DESC")
	if filter.ClientID != 0 {
		query = query.Where("client_id = ?", filter.ClientID)
	}
	if !filter.From.IsZero() {
		query = query.Where("sold_at >= ?", filter.From)
	}
	if !filter.To.IsZero() {
		query = query.Where("sold_at < ?", filter.To)
	}

	var items []saledomain.Sale
	if err := query.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&saledomain.Sale{}).Error
}
