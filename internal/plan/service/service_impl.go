package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	plandomain "github.com/tarumnet/mikrobill/internal/plan/domain"
	"github.com/tarumnet/mikrobill/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  plandomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  plandomain.Repository
}

func New(p Params) plandomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("plan.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req plandomain.CreateRequest) (*plandomain.Response, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, plandomain.ErrInvalidName
	}
	if req.Price < 0 {
		return nil, plandomain.ErrInvalidPrice
	}
	if req.CycleDays <= 0 {
		return nil, plandomain.ErrInvalidCycleDays
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if len(currency) != 3 {
		return nil, plandomain.ErrInvalidCurrency
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	now := time.Now().UTC()
	entity := &plandomain.Plan{
		ID:         s.genID.Generate(),
		Name:       name,
		Price:      req.Price,
		CycleDays:  req.CycleDays,
		SpeedLimit: normalizeSpeedLimit(req.SpeedLimit),
		Currency:   currency,
		Active:     active,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.repo.Insert(ctx, s.db, entity); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, plandomain.ErrDuplicateName
		}
		return nil, err
	}

	return toResponse(entity), nil
}

func (s *Service) List(ctx context.Context) ([]plandomain.Response, error) {
	items, err := s.repo.List(ctx, s.db)
	if err != nil {
		return nil, err
	}

	resp := make([]plandomain.Response, 0, len(items))
	for i := range items {
		resp = append(resp, *toResponse(&items[i]))
	}
	return resp, nil
}

func (s *Service) Get(ctx context.Context, id string) (*plandomain.Response, error) {
	entity, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return toResponse(entity), nil
}

func (s *Service) Update(ctx context.Context, id string, req plandomain.UpdateRequest) (*plandomain.Response, error) {
	entity, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, plandomain.ErrInvalidName
		}
		entity.Name = name
	}
	if req.Price != nil {
		if *req.Price < 0 {
			return nil, plandomain.ErrInvalidPrice
		}
		entity.Price = *req.Price
	}
	if req.CycleDays != nil {
		if *req.CycleDays <= 0 {
			return nil, plandomain.ErrInvalidCycleDays
		}
		entity.CycleDays = *req.CycleDays
	}
	if req.SpeedLimit != nil {
		entity.SpeedLimit = normalizeSpeedLimit(req.SpeedLimit)
	}
	if req.Currency != nil {
		currency := strings.ToUpper(strings.TrimSpace(*req.Currency))
		if len(currency) != 3 {
			return nil, plandomain.ErrInvalidCurrency
		}
		entity.Currency = currency
	}
	if req.Active != nil {
		entity.Active = *req.Active
	}
	entity.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, s.db, entity); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, plandomain.ErrDuplicateName
		}
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

	s.log.Info("plan deleted", zap.String("plan_id", entity.ID.String()), zap.String("name", entity.Name))
	return nil
}

func (s *Service) find(ctx context.Context, id string) (*plandomain.Plan, error) {
	planID, err := parseID(id)
	if err != nil {
		return nil, plandomain.ErrInvalidID
	}

	entity, err := s.repo.FindByID(ctx, s.db, planID)
	if err != nil {
		return nil, err
	}
	if entity == nil {
		return nil, plandomain.ErrNotFound
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

func normalizeSpeedLimit(limit *string) *string {
	if limit == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*limit)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func toResponse(p *plandomain.Plan) *plandomain.Response {
	return &plandomain.Response{
		ID:         p.ID,
		Name:       p.Name,
		Price:      p.Price,
		CycleDays:  p.CycleDays,
		SpeedLimit: p.SpeedLimit,
		Currency:   p.Currency,
		Active:     p.Active,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
}
