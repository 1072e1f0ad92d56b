package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// ListFilter narrows ledger listings. Zero values mean "no filter".
type ListFilter struct {
	ClientID snowflake.ID
	From     time.Time
	To       time.Time
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, sale *Sale) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Sale, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]Sale, error)
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error
}
