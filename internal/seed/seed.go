// Package seed bootstraps a fresh install with a starter plan catalog.
package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	plandomain "github.com/tarumnet/mikrobill/internal/plan/domain"
)

// EnsureDefaultPlans inserts a starter catalog when the plans table is
// empty. It never touches an existing catalog, so operators can rename or
// delete the defaults freely.
func EnsureDefaultPlans(db *gorm.DB, currency string) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}
	if currency == "" {
		currency = "USD"
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&plandomain.Plan{}).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		now := time.Now().UTC()
		limit10 := "10M/10M"
		limit50 := "50M/50M"
		plans := []plandomain.Plan{
			{
				ID:         node.Generate(),
				Name:       "Basic 10M",
				Price:      150000,
				CycleDays:  30,
				SpeedLimit: &limit10,
				Currency:   currency,
				Active:     true,
				CreatedAt:  now,
				UpdatedAt:  now,
			},
			{
				ID:         node.Generate(),
				Name:       "Fiber 50M",
				Price:      300000,
				CycleDays:  30,
				SpeedLimit: &limit50,
				Currency:   currency,
				Active:     true,
				CreatedAt:  now,
				UpdatedAt:  now,
			},
		}
		return tx.Create(&plans).Error
	})
}
