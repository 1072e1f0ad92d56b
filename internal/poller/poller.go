// Package poller periodically pulls the router's DHCP lease table into the
// local client list so the console stays usable when leases are created or
// renumbered outside of it.
package poller

import (
	"context"
	"errors"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	clientdomain "github.com/tarumnet/mikrobill/internal/client/domain"
	"github.com/tarumnet/mikrobill/internal/config"
	obsmetrics "github.com/tarumnet/mikrobill/internal/observability/metrics"
	"github.com/tarumnet/mikrobill/internal/router"
)

type Params struct {
	fx.In

	Log     *zap.Logger
	Router  router.Controller
	Clients clientdomain.Service
	Portal  *config.PortalConfigHolder
	Metrics *obsmetrics.Metrics `optional:"true"`
}

type Poller struct {
	log     *zap.Logger
	router  router.Controller
	clients clientdomain.Service
	portal  *config.PortalConfigHolder
	metrics *obsmetrics.Metrics
}

func New(p Params) *Poller {
	return &Poller{
		log:     p.Log.Named("poller"),
		router:  p.Router,
		clients: p.Clients,
		portal:  p.Portal,
		metrics: p.Metrics,
	}
}

// RunOnce performs one lease sync pass. An unconfigured router is not an
// error; the console simply runs without live lease data.
func (p *Poller) RunOnce(ctx context.Context) error {
	leases, err := p.router.ListLeases(ctx)
	if err != nil {
		if errors.Is(err, router.ErrNotConfigured) {
			return nil
		}
		p.metrics.RecordLeaseSync(ctx, "error")
		return err
	}

	result, err := p.clients.SyncLeases(ctx, leases)
	if err != nil {
		p.metrics.RecordLeaseSync(ctx, "error")
		return err
	}

	p.metrics.RecordLeaseSync(ctx, "ok")
	if result.Created > 0 || result.Updated > 0 {
		p.log.Info("lease sync",
			zap.Int("created", result.Created),
			zap.Int("updated", result.Updated),
		)
	}
	return nil
}

// RunForever re-reads the portal config every pass, so the interval and the
// enabled flag can be changed at runtime without a restart.
func (p *Poller) RunForever(ctx context.Context) {
	for {
		cfg := p.portal.Get()

		if cfg.PollEnabled {
			if err := p.RunOnce(ctx); err != nil {
				p.log.Warn("lease sync failed", zap.Error(err))
			}
		}

		interval := time.Duration(cfg.PollIntervalSeconds) * time.Second
		if interval <= 0 {
			interval = time.Minute
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}
