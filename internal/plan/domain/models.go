// Package domain contains persistence models for the billing plan catalog.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Plan is one billing offering: a price for a cycle of service, with an
// optional bandwidth cap applied on the router.
type Plan struct {
	ID         snowflake.ID `json:"id" gorm:"primaryKey"`
	Name       string       `json:"name" gorm:"type:text;not null;uniqueIndex"`
	Price      float64      `json:"price" gorm:"not null"`
	CycleDays  int          `json:"cycle_days" gorm:"not null"`
	SpeedLimit *string      `json:"speed_limit,omitempty" gorm:"type:text"`
	Currency   string       `json:"currency" gorm:"type:text;not null"`
	Active     bool         `json:"active" gorm:"not null;default:true"`
	CreatedAt  time.Time    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt  time.Time    `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Plan) TableName() string { return "plans" }

// PricePerDay returns the daily rate for one cycle. A non-positive cycle
// length yields zero rather than dividing by zero.
func (p Plan) PricePerDay() float64 {
	if p.CycleDays <= 0 {
		return 0
	}
	return p.Price / float64(p.CycleDays)
}
