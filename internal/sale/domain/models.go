// Package domain contains persistence models for the sale ledger.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Sale is one completed billing transaction. Rows are append-only: there is
// no update path, and removal is a hard delete rather than a status flag.
type Sale struct {
	ID         snowflake.ID  `json:"id" gorm:"primaryKey"`
	ClientID   *snowflake.ID `json:"client_id,omitempty" gorm:"index"`
	ClientName string        `json:"client_name" gorm:"type:text;not null"`
	Contact    string        `json:"contact" gorm:"type:text"`
	PlanName   string        `json:"plan_name" gorm:"type:text;not null"`
	PlanPrice  float64       `json:"plan_price" gorm:"not null"`
	Discount   float64       `json:"discount" gorm:"not null"`
	Total      float64       `json:"total" gorm:"not null"`
	Currency   string        `json:"currency" gorm:"type:text;not null"`
	SoldAt     time.Time     `json:"sold_at" gorm:"not null;index"`
	CreatedAt  time.Time     `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Sale) TableName() string { return "sales" }
