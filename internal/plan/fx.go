package plan

import (
	"github.com/tarumnet/mikrobill/internal/plan/repository"
	"github.com/tarumnet/mikrobill/internal/plan/service"
	"go.uber.org/fx"
)

var Module = fx.Module("plan.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
