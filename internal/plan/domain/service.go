package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	List(ctx context.Context) ([]Response, error)
	Get(ctx context.Context, id string) (*Response, error)
	Update(ctx context.Context, id string, req UpdateRequest) (*Response, error)
	Delete(ctx context.Context, id string) error
}

type CreateRequest struct {
	Name       string  `json:"name"`
	Price      float64 `json:"price"`
	CycleDays  int     `json:"cycle_days"`
	SpeedLimit *string `json:"speed_limit"`
	Currency   string  `json:"currency"`
	Active     *bool   `json:"active"`
}

type UpdateRequest struct {
	Name       *string  `json:"name"`
	Price      *float64 `json:"price"`
	CycleDays  *int     `json:"cycle_days"`
	SpeedLimit *string  `json:"speed_limit"`
	Currency   *string  `json:"currency"`
	Active     *bool    `json:"active"`
}

type Response struct {
	ID         snowflake.ID `json:"id"`
	Name       string       `json:"name"`
	Price      float64      `json:"price"`
	CycleDays  int          `json:"cycle_days"`
	SpeedLimit *string      `json:"speed_limit,omitempty"`
	Currency   string       `json:"currency"`
	Active     bool         `json:"active"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

var (
	ErrInvalidName      = errors.New("invalid_name")
	ErrInvalidPrice     = errors.New("invalid_price")
	ErrInvalidCycleDays = errors.New("invalid_cycle_days")
	ErrInvalidCurrency  = errors.New("invalid_currency")
	ErrInvalidID        = errors.New("invalid_id")
	ErrDuplicateName    = errors.New("duplicate_name")
	ErrNotFound         = errors.New("not_found")
)
