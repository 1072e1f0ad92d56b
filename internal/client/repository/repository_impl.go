package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/tarumnet/mikrobill/internal/client/domain"
)

type repository struct{}

func Provide() domain.Repository { return &repository{} }

func (r *repository) Insert(ctx context.Context, db *gorm.DB, client *domain.Client) error {
	return db.WithContext(ctx).Create(client).Error
}

func (r *repository) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Client, error) {
	var client domain.Client
	err := db.WithContext(ctx).Where("id = ?", id).First(&client).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &client, nil
}

func (r *repository) FindByRouterRef(ctx context.Context, db *gorm.DB, ref string) (*domain.Client, error) {
	var client domain.Client
	err := db.WithContext(ctx).Where("router_ref = ?", ref).First(&client).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &client, nil
}

func (r *repository) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]domain.Client, error) {
	q := db.WithContext(ctx).Model(&domain.Client{})
	if filter.Search != "" {
		term := "%" + filter.Search + "%"
		q = q.Where("name LIKE ? OR address LIKE ? OR mac_address LIKE ?", term, term, term)
	}
	if filter.Disabled != nil {
		q = q.Where("disabled = ?", *filter.Disabled)
	}

	var clients []domain.Client
	if err := q.Order("name ASC, id ASC").Find(&clients).Error; err != nil {
		return nil, err
	}
	return clients, nil
}

func (r *repository) Update(ctx context.Context, db *gorm.DB, client *domain.Client) error {
	return db.WithContext(ctx).Save(client).Error
}

func (r *repository) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Client{}).Error
}
