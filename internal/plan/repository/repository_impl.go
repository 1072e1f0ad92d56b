package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	plandomain "github.com/tarumnet/mikrobill/internal/plan/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() plandomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, p *plandomain.Plan) error {
	return db.WithContext(ctx).Create(p).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*plandomain.Plan, error) {
	var p plandomain.Plan
	err := db.WithContext(ctx).
		Where("id = ?", id).
		Take(&p).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// List returns the catalog in insertion order. Callers rely on this
// ordering when preselecting a plan.
func (r *repo) List(ctx context.Context, db *gorm.DB) ([]plandomain.Plan, error) {
	var items []plandomain.Plan
	err := db.WithContext(ctx).
		Order("created_at ASC, id ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, p *plandomain.Plan) error {
	return db.WithContext(ctx).Save(p).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&plandomain.Plan{}).Error
}
