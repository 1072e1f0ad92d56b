package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/tarumnet/mikrobill/internal/billing"
	"github.com/tarumnet/mikrobill/internal/client/domain"
	"github.com/tarumnet/mikrobill/internal/clock"
	obsmetrics "github.com/tarumnet/mikrobill/internal/observability/metrics"
	plandomain "github.com/tarumnet/mikrobill/internal/plan/domain"
	"github.com/tarumnet/mikrobill/internal/router"
	saledomain "github.com/tarumnet/mikrobill/internal/sale/domain"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	PlanRepo plandomain.Repository
	Sales    saledomain.Service
	Router   router.Controller
	Metrics  *obsmetrics.Metrics `optional:"true"`
}

type service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	planRepo plandomain.Repository
	sales    saledomain.Service
	router   router.Controller
	metrics  *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	return &service{
		db:       p.DB,
		log:      p.Log.Named("client.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		planRepo: p.PlanRepo,
		sales:    p.Sales,
		router:   p.Router,
		metrics:  p.Metrics,
	}
}

func (s *service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Response, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	now := s.clock.Now()
	client := domain.Client{
		ID:         s.genID.Generate(),
		Name:       name,
		Address:    strings.TrimSpace(req.Address),
		MACAddress: strings.ToUpper(strings.TrimSpace(req.MACAddress)),
		Contact:    strings.TrimSpace(req.Contact),
		Comment:    req.Comment,
		RouterRef:  strings.TrimSpace(req.RouterRef),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.Insert(ctx, s.db, &client); err != nil {
		return nil, err
	}
	return toResponse(&client), nil
}

func (s *service) List(ctx context.Context, req domain.ListRequest) ([]domain.Response, error) {
	clients, err := s.repo.List(ctx, s.db, domain.ListFilter{
		Search:   strings.TrimSpace(req.Search),
		Disabled: req.Disabled,
	})
	if err != nil {
		return nil, err
	}

	out := make([]domain.Response, 0, len(clients))
	for i := range clients {
		out = append(out, *toResponse(&clients[i]))
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, id string) (*domain.Response, error) {
	client, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return toResponse(client), nil
}

func (s *service) Update(ctx context.Context, id string, req domain.UpdateRequest) (*domain.Response, error) {
	client, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, domain.ErrInvalidName
		}
		client.Name = name
	}
	if req.Contact != nil {
		client.Contact = strings.TrimSpace(*req.Contact)
	}
	if req.Disabled != nil {
		client.Disabled = *req.Disabled
	}
	client.UpdatedAt = s.clock.Now()

	if err := s.repo.Update(ctx, s.db, client); err != nil {
		return nil, err
	}
	return toResponse(client), nil
}

// Delete removes the lease on the router first, then the local row. A router
// failure aborts the whole removal and its message reaches the operator as-is.
func (s *service) Delete(ctx context.Context, id string) error {
	client, err := s.find(ctx, id)
	if err != nil {
		return err
	}

	if client.RouterRef != "" {
		if err := s.router.DeleteLease(ctx, client.RouterRef); err != nil {
			return err
		}
	}
	return s.repo.Delete(ctx, s.db, client.ID)
}

// Subscription decodes the client's comment annotation and pairs it with the
// plan the catalog preselects for it. Unreadable annotations come back as the
// prepaid default rather than an error.
func (s *service) Subscription(ctx context.Context, id string) (*domain.SubscriptionView, error) {
	client, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	state := billing.DecodeState(client.Comment)
	plans, err := s.planRepo.List(ctx, s.db)
	if err != nil {
		return nil, err
	}

	view := domain.SubscriptionView{State: state}
	if plan := billing.Preselect(plans, state.PlanName); plan != nil {
		view.Plan = planResponse(plan)
	}
	return &view, nil
}

func (s *service) Quote(ctx context.Context, id string, req domain.QuoteRequest) (*domain.QuoteResponse, error) {
	client, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	plan, err := s.resolvePlan(ctx, client, req.PlanID)
	if err != nil {
		return nil, err
	}

	s.metrics.RecordChargeQuote(ctx)
	return &domain.QuoteResponse{
		Plan:   *planResponse(plan),
		Charge: billing.Calculate(plan, req.DowntimeDays),
	}, nil
}

// Activate applies a new subscription to the client: it recomputes the
// charge, rewrites the comment annotation wholesale, pushes the lease update
// to the router and commits the local row together with a ledger entry.
//
// The router call happens before the local transaction. If the router
// rejects the save nothing is persisted; if the local commit fails after the
// router accepted, the router keeps the new state and the operator retries.
// There is no automatic rollback of the router side.
func (s *service) Activate(ctx context.Context, id string, req domain.ActivateRequest) (*domain.ActivateResponse, error) {
	client, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	plan, err := s.resolvePlan(ctx, client, req.PlanID)
	if err != nil {
		return nil, err
	}

	var expiresAt *time.Time
	dueDate := strings.TrimSpace(req.DueDate)
	if dueDate != "" {
		day, err := time.ParseInLocation("2006-01-02", dueDate, time.UTC)
		if err != nil {
			return nil, domain.ErrInvalidDueDate
		}
		// Service runs through the stated day, so the lease expires at
		// its last second.
		endOfDay := time.Date(day.Year(), day.Month(), day.Day(), 23, 59, 59, 0, time.UTC)
		expiresAt = &endOfDay
	}

	prior := billing.DecodeState(client.Comment)
	state := billing.State{
		DueDate:     dueDate,
		BillingType: prior.BillingType,
		PlanName:    plan.Name,
	}
	switch billing.BillingType(req.BillingType) {
	case billing.Prepaid, billing.Postpaid:
		state.BillingType = billing.BillingType(req.BillingType)
	}

	charge := billing.Calculate(plan, req.DowntimeDays)
	comment := billing.EncodeState(state)

	if client.RouterRef != "" {
		err := s.router.UpdateLease(ctx, client.RouterRef, router.UpdateLeaseParams{
			Comment:   &comment,
			RateLimit: plan.SpeedLimit,
			ExpiresAt: expiresAt,
		})
		if err != nil {
			return nil, err
		}
	}

	client.Comment = comment
	client.UpdatedAt = s.clock.Now()

	var sale *saledomain.Response
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Update(ctx, tx, client); err != nil {
			return err
		}
		created, err := s.sales.CreateInTx(ctx, tx, saledomain.CreateRequest{
			ClientID:   client.ID.String(),
			ClientName: client.Name,
			Contact:    client.Contact,
			PlanName:   plan.Name,
			PlanPrice:  charge.Price,
			Discount:   charge.Discount,
			Total:      charge.Total,
			Currency:   plan.Currency,
		})
		if err != nil {
			return err
		}
		sale = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("subscription activated",
		zap.String("client_id", client.ID.String()),
		zap.String("plan_name", plan.Name),
		zap.Float64("total", charge.Total),
	)

	return &domain.ActivateResponse{
		Client: *toResponse(client),
		Plan:   *planResponse(plan),
		Charge: charge,
		State:  state,
		SaleID: sale.ID.String(),
	}, nil
}

// SyncLeases reconciles the router's lease table into the local client list.
// Known leases get their router-owned fields refreshed in place, including
// the comment annotation; operator-entered name and contact are kept.
func (s *service) SyncLeases(ctx context.Context, leases []router.Lease) (*domain.SyncResult, error) {
	result := domain.SyncResult{}
	now := s.clock.Now()

	for i := range leases {
		lease := leases[i]
		if lease.Ref == "" {
			continue
		}

		existing, err := s.repo.FindByRouterRef(ctx, s.db, lease.Ref)
		if err != nil {
			return nil, err
		}

		if existing != nil {
			existing.Address = lease.Address
			existing.MACAddress = lease.MACAddress
			existing.Comment = lease.Comment
			existing.Disabled = lease.Disabled
			existing.UpdatedAt = now
			if err := s.repo.Update(ctx, s.db, existing); err != nil {
				return nil, err
			}
			result.Updated++
			continue
		}

		client := domain.Client{
			ID:         s.genID.Generate(),
			Name:       leaseName(lease),
			Address:    lease.Address,
			MACAddress: lease.MACAddress,
			Comment:    lease.Comment,
			RouterRef:  lease.Ref,
			Disabled:   lease.Disabled,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := s.repo.Insert(ctx, s.db, &client); err != nil {
			return nil, err
		}
		result.Created++
	}

	return &result, nil
}

func (s *service) find(ctx context.Context, id string) (*domain.Client, error) {
	parsed, err := parseID(id)
	if err != nil {
		return nil, err
	}
	client, err := s.repo.FindByID(ctx, s.db, parsed)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, domain.ErrNotFound
	}
	return client, nil
}

// resolvePlan picks the plan for a quote or activation. An explicit plan id
// wins; otherwise the catalog preselection based on the annotation's planName
// hint applies, and an empty catalog means nothing can be activated.
func (s *service) resolvePlan(ctx context.Context, client *domain.Client, planID string) (*plandomain.Plan, error) {
	planID = strings.TrimSpace(planID)
	if planID != "" {
		parsed, err := snowflake.ParseString(planID)
		if err != nil {
			return nil, domain.ErrPlanNotFound
		}
		plan, err := s.planRepo.FindByID(ctx, s.db, parsed)
		if err != nil {
			return nil, err
		}
		if plan == nil {
			return nil, domain.ErrPlanNotFound
		}
		return plan, nil
	}

	plans, err := s.planRepo.List(ctx, s.db)
	if err != nil {
		return nil, err
	}
	state := billing.DecodeState(client.Comment)
	plan := billing.Preselect(plans, state.PlanName)
	if plan == nil {
		return nil, domain.ErrNoPlanSelected
	}
	return plan, nil
}

func leaseName(lease router.Lease) string {
	if lease.HostName != "" {
		return lease.HostName
	}
	if lease.MACAddress != "" {
		return lease.MACAddress
	}
	return lease.Address
}

func parseID(id string) (snowflake.ID, error) {
	raw, err := strconv.ParseInt(strings.TrimSpace(id), 10, 64)
	if err != nil {
		return 0, domain.ErrInvalidID
	}
	return snowflake.ParseInt64(raw), nil
}

func toResponse(client *domain.Client) *domain.Response {
	return &domain.Response{
		ID:         client.ID.String(),
		Name:       client.Name,
		Address:    client.Address,
		MACAddress: client.MACAddress,
		Contact:    client.Contact,
		Comment:    client.Comment,
		RouterRef:  client.RouterRef,
		Disabled:   client.Disabled,
		CreatedAt:  client.CreatedAt,
		UpdatedAt:  client.UpdatedAt,
	}
}

func planResponse(plan *plandomain.Plan) *plandomain.Response {
	return &plandomain.Response{
		ID:         plan.ID,
		Name:       plan.Name,
		Price:      plan.Price,
		CycleDays:  plan.CycleDays,
		SpeedLimit: plan.SpeedLimit,
		Currency:   plan.Currency,
		Active:     plan.Active,
		CreatedAt:  plan.CreatedAt,
		UpdatedAt:  plan.UpdatedAt,
	}
}
