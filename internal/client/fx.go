package client

import (
	"go.uber.org/fx"

	"github.com/tarumnet/mikrobill/internal/client/repository"
	"github.com/tarumnet/mikrobill/internal/client/service"
)

var Module = fx.Module("client",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
