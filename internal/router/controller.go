// Package router talks to the RouterOS REST API for DHCP lease control.
package router

import (
	"context"
	"errors"
	"time"
)

// Lease mirrors the fields of a RouterOS DHCP lease the console cares about.
type Lease struct {
	Ref        string // RouterOS .id
	Address    string
	MACAddress string
	HostName   string
	Comment    string
	Disabled   bool
}

// UpdateLeaseParams carries the mutable lease fields for one save. Nil
// pointers leave the router-side value untouched; the expiry in particular
// is passed through as nil when the operator supplied no manual date, so the
// router applies its own plan defaults.
type UpdateLeaseParams struct {
	Comment   *string
	RateLimit *string
	ExpiresAt *time.Time
}

// Controller is the router-facing collaborator used by the client service
// and the lease poller.
type Controller interface {
	ListLeases(ctx context.Context) ([]Lease, error)
	UpdateLease(ctx context.Context, ref string, params UpdateLeaseParams) error
	DeleteLease(ctx context.Context, ref string) error
}

// ErrNotConfigured is returned when no router endpoint is set.
var ErrNotConfigured = errors.New("router_not_configured")

// Error carries the router's own message through to the operator without
// translation; the UI shows collaborator errors verbatim.
type Error struct {
	Op      string
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Op + " failed"
}
