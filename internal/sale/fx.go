package sale

import (
	"github.com/tarumnet/mikrobill/internal/sale/repository"
	"github.com/tarumnet/mikrobill/internal/sale/service"
	"go.uber.org/fx"
)

var Module = fx.Module("sale.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
