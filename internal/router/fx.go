package router

import (
	"github.com/tarumnet/mikrobill/internal/config"
	obsmetrics "github.com/tarumnet/mikrobill/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("router",
	fx.Provide(provideController),
)

type controllerParams struct {
	fx.In

	Cfg     config.Config
	Log     *zap.Logger
	Metrics *obsmetrics.Metrics `optional:"true"`
}

func provideController(p controllerParams) Controller {
	return NewRESTClient(p.Cfg.Router, p.Log, p.Metrics)
}
