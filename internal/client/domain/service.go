package domain

import (
	"context"
	"errors"
	"time"

	"github.com/tarumnet/mikrobill/internal/billing"
	plandomain "github.com/tarumnet/mikrobill/internal/plan/domain"
	"github.com/tarumnet/mikrobill/internal/router"
)

var (
	ErrInvalidID      = errors.New("invalid_id")
	ErrInvalidName    = errors.New("invalid_name")
	ErrNotFound       = errors.New("not_found")
	ErrNoPlanSelected = errors.New("no_plan_selected")
	ErrPlanNotFound   = errors.New("plan_not_found")
	ErrInvalidDueDate = errors.New("invalid_due_date")
)

type CreateRequest struct {
	Name       string `json:"name"`
	Address    string `json:"address"`
	MACAddress string `json:"mac_address"`
	Contact    string `json:"contact"`
	Comment    string `json:"comment"`
	RouterRef  string `json:"router_ref"`
}

type UpdateRequest struct {
	Name     *string `json:"name,omitempty"`
	Contact  *string `json:"contact,omitempty"`
	Disabled *bool   `json:"disabled,omitempty"`
}

type ListRequest struct {
	Search   string
	Disabled *bool
}

// QuoteRequest previews a charge without touching the router or the ledger.
// An empty PlanID falls back to the catalog preselection for the client.
type QuoteRequest struct {
	PlanID       string  `json:"plan_id"`
	DowntimeDays float64 `json:"downtime_days"`
}

// ActivateRequest applies a new subscription state to a client. DueDate is
// the operator-entered expiry (YYYY-MM-DD); when set it wins over any
// plan-cycle default the router would apply, and when empty the router is
// told nothing about expiry at all.
type ActivateRequest struct {
	PlanID       string  `json:"plan_id"`
	DowntimeDays float64 `json:"downtime_days"`
	BillingType  string  `json:"billing_type"`
	DueDate      string  `json:"due_date"`
}

type Response struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Address    string    `json:"address"`
	MACAddress string    `json:"mac_address"`
	Contact    string    `json:"contact"`
	Comment    string    `json:"comment"`
	RouterRef  string    `json:"router_ref"`
	Disabled   bool      `json:"disabled"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// SubscriptionView is the decoded billing state of one client plus the plan
// the catalog preselects for it.
type SubscriptionView struct {
	State billing.State        `json:"state"`
	Plan  *plandomain.Response `json:"plan,omitempty"`
}

type QuoteResponse struct {
	Plan   plandomain.Response `json:"plan"`
	Charge billing.Charge      `json:"charge"`
}

type ActivateResponse struct {
	Client Response            `json:"client"`
	Plan   plandomain.Response `json:"plan"`
	Charge billing.Charge      `json:"charge"`
	State  billing.State       `json:"state"`
	SaleID string              `json:"sale_id"`
}

// SyncResult reports one poller pass over the router's lease table.
type SyncResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	List(ctx context.Context, req ListRequest) ([]Response, error)
	Get(ctx context.Context, id string) (*Response, error)
	Update(ctx context.Context, id string, req UpdateRequest) (*Response, error)
	Delete(ctx context.Context, id string) error

	Subscription(ctx context.Context, id string) (*SubscriptionView, error)
	Quote(ctx context.Context, id string, req QuoteRequest) (*QuoteResponse, error)
	Activate(ctx context.Context, id string, req ActivateRequest) (*ActivateResponse, error)

	SyncLeases(ctx context.Context, leases []router.Lease) (*SyncResult, error)
}
