package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/tarumnet/mikrobill/internal/clock"
	obsmetrics "github.com/tarumnet/mikrobill/internal/observability/metrics"
	saledomain "github.com/tarumnet/mikrobill/internal/sale/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Repo    saledomain.Repository
	Metrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	repo    saledomain.Repository
	metrics *obsmetrics.Metrics
}

func New(p Params) saledomain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("sale.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		repo:    p.Repo,
		metrics: p.Metrics,
	}
}

func (s *Service) Create(ctx context.Context, req saledomain.CreateRequest) (*saledomain.Response, error) {
	entity, err := s.build(req)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Insert(ctx, s.db, entity); err != nil {
		return nil, err
	}

	s.metrics.RecordSale(ctx, entity.PlanName, entity.Total == 0)
	s.log.Info("sale recorded",
		zap.String("sale_id", entity.ID.String()),
		zap.String("plan_name", entity.PlanName),
		zap.Float64("total", entity.Total),
	)

	return toResponse(entity), nil
}

// CreateInTx appends a ledger entry inside an existing transaction. The
// activation path uses this so the client save and its sale land together.
func (s *Service) CreateInTx(ctx context.Context, tx *gorm.DB, req saledomain.CreateRequest) (*saledomain.Response, error) {
	entity, err := s.build(req)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Insert(ctx, tx, entity); err != nil {
		return nil, err
	}

	s.metrics.RecordSale(ctx, entity.PlanName, entity.Total == 0)
	return toResponse(entity), nil
}

func (s *Service) build(req saledomain.CreateRequest) (*saledomain.Sale, error) {
	clientName := strings.TrimSpace(req.ClientName)
	if clientName == "" {
		return nil, saledomain.ErrInvalidClientName
	}
	planName := strings.TrimSpace(req.PlanName)
	if planName == "" {
		return nil, saledomain.ErrInvalidPlanName
	}
	// Zero-total sales are valid: a fully-discounted renewal still gets a
	// ledger entry. Only negative totals are rejected.
	if req.Total < 0 {
		return nil, saledomain.ErrInvalidTotal
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if len(currency) != 3 {
		return nil, saledomain.ErrInvalidCurrency
	}

	var clientID *snowflake.ID
	if strings.TrimSpace(req.ClientID) != "" {
		parsed, err := parseID(req.ClientID)
		if err != nil {
			return nil, saledomain.ErrInvalidID
		}
		clientID = &parsed
	}

	now := s.clock.Now()
	return &saledomain.Sale{
		ID:         s.genID.Generate(),
		ClientID:   clientID,
		ClientName: clientName,
		Contact:    strings.TrimSpace(req.Contact),
		PlanName:   planName,
		PlanPrice:  req.PlanPrice,
		Discount:   req.Discount,
		Total:      req.Total,
		Currency:   currency,
		SoldAt:     now,
		CreatedAt:  now,
	}, nil
}

func (s *Service) List(ctx context.Context, req saledomain.ListRequest) ([]saledomain.Response, error) {
	filter := saledomain.ListFilter{}

	if strings.TrimSpace(req.ClientID) != "" {
		parsed, err := parseID(req.ClientID)
		if err != nil {
			return nil, saledomain.ErrInvalidID
		}
		filter.ClientID = parsed
	}
	if strings.TrimSpace(req.From) != "" {
		from, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(req.From), time.UTC)
		if err != nil {
			return nil, saledomain.ErrInvalidDateRange
		}
		filter.From = from
	}
	if strings.TrimSpace(req.To) != "" {
		to, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(req.To), time.UTC)
		if err != nil {
			return nil, saledomain.ErrInvalidDateRange
		}
		// Exclusive upper bound at the following midnight.
		filter.To = to.AddDate(0, 0, 1)
	}
	if !filter.From.IsZero() && !filter.To.IsZero() && filter.To.Before(filter.From) {
		return nil, saledomain.ErrInvalidDateRange
	}

	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return nil, err
	}

	resp := make([]saledomain.Response, 0, len(items))
	for i := range items {
		resp = append(resp, *toResponse(&items[i]))
	}
	return resp, nil
}

func (s *Service) Get(ctx context.Context, id string) (*saledomain.Response, error) {
	entity, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return toResponse(entity), nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	entity, err := s.find(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, s.db, entity.ID); err != nil {
		return err
	}

	s.log.Info("sale deleted", zap.String("sale_id", entity.ID.String()))
	return nil
}

func (s *Service) find(ctx context.Context, id string) (*saledomain.Sale, error) {
	saleID, err := parseID(id)
	if err != nil {
		return nil, saledomain.ErrInvalidID
	}

	entity, err := s.repo.FindByID(ctx, s.db, saleID)
	if err != nil {
		return nil, err
	}
	if entity == nil {
		return nil, saledomain.ErrNotFound
	}
	return entity, nil
}

func parseID(value string) (snowflake.ID, error) {
	parsed, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return 0, err
	}
	return snowflake.ParseInt64(parsed), nil
}

func toResponse(s *saledomain.Sale) *saledomain.Response {
	return &saledomain.Response{
		ID:         s.ID,
		ClientID:   s.ClientID,
		ClientName: s.ClientName,
		Contact:    s.Contact,
		PlanName:   s.PlanName,
		PlanPrice:  s.PlanPrice,
		Discount:   s.Discount,
		Total:      s.Total,
		Currency:   s.Currency,
		SoldAt:     s.SoldAt,
	}
}
