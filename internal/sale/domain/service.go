package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	// CreateInTx appends a ledger entry inside the caller's transaction so
	// a client save and its sale commit together.
	CreateInTx(ctx context.Context, tx *gorm.DB, req CreateRequest) (*Response, error)
	List(ctx context.Context, req ListRequest) ([]Response, error)
	Get(ctx context.Context, id string) (*Response, error)
	Delete(ctx context.Context, id string) error
}

type CreateRequest struct {
	ClientID   string  `json:"client_id"`
	ClientName string  `json:"client_name"`
	Contact    string  `json:"contact"`
	PlanName   string  `json:"plan_name"`
	PlanPrice  float64 `json:"plan_price"`
	Discount   float64 `json:"discount"`
	Total      float64 `json:"total"`
	Currency   string  `json:"currency"`
}

type ListRequest struct {
	ClientID string
	From     string // YYYY-MM-DD
	To       string // YYYY-MM-DD
}

type Response struct {
	ID         snowflake.ID  `json:"id"`
	ClientID   *snowflake.ID `json:"client_id,omitempty"`
	ClientName string        `json:"client_name"`
	Contact    string        `json:"contact,omitempty"`
	PlanName   string        `json:"plan_name"`
	PlanPrice  float64       `json:"plan_price"`
	Discount   float64       `json:"discount"`
	Total      float64       `json:"total"`
	Currency   string        `json:"currency"`
	SoldAt     time.Time     `json:"sold_at"`
}

var (
	ErrInvalidClientName = errors.New("invalid_client_name")
	ErrInvalidPlanName   = errors.New("invalid_plan_name")
	ErrInvalidTotal      = errors.New("invalid_total")
	ErrInvalidCurrency   = errors.New("invalid_currency")
	ErrInvalidDateRange  = errors.New("invalid_date_range")
	ErrInvalidID         = errors.New("invalid_id")
	ErrNotFound          = errors.New("not_found")
)
