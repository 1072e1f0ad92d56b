package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/tarumnet/mikrobill/internal/client"
	clientdomain "github.com/tarumnet/mikrobill/internal/client/domain"
	"github.com/tarumnet/mikrobill/internal/config"
	"github.com/tarumnet/mikrobill/internal/migration"
	"github.com/tarumnet/mikrobill/internal/observability"
	obsmiddleware "github.com/tarumnet/mikrobill/internal/observability/logger"
	obsmetrics "github.com/tarumnet/mikrobill/internal/observability/metrics"
	obstracing "github.com/tarumnet/mikrobill/internal/observability/tracing"
	"github.com/tarumnet/mikrobill/internal/plan"
	plandomain "github.com/tarumnet/mikrobill/internal/plan/domain"
	"github.com/tarumnet/mikrobill/internal/poller"
	"github.com/tarumnet/mikrobill/internal/providers/pdf"
	"github.com/tarumnet/mikrobill/internal/ratelimit"
	"github.com/tarumnet/mikrobill/internal/router"
	"github.com/tarumnet/mikrobill/internal/sale"
	saledomain "github.com/tarumnet/mikrobill/internal/sale/domain"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	router.Module,
	plan.Module,
	client.Module,
	sale.Module,
	ratelimit.Module,
	pdf.Module,
	migration.Module,
	poller.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine      *gin.Engine
	cfg         config.Config
	db          *gorm.DB
	genID       *snowflake.Node
	planSvc     plandomain.Service
	clientSvc   clientdomain.Service
	saleSvc     saledomain.Service
	receipts    pdf.Generator
	portal      *config.PortalConfigHolder
	obsMetrics  *obsmetrics.Metrics
	saveLimiter *ratelimit.SaveLimiter
}

type ServerParams struct {
	fx.In

	Gin       *gin.Engine
	Cfg       config.Config
	DB        *gorm.DB
	GenID     *snowflake.Node
	PlanSvc   plandomain.Service
	ClientSvc clientdomain.Service
	SaleSvc   saledomain.Service
	Receipts  pdf.Generator
	Portal    *config.PortalConfigHolder

	ObsMetrics  *obsmetrics.Metrics    `optional:"true"`
	SaveLimiter *ratelimit.SaveLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:      p.Gin,
		cfg:         p.Cfg,
		db:          p.DB,
		genID:       p.GenID,
		planSvc:     p.PlanSvc,
		clientSvc:   p.ClientSvc,
		saleSvc:     p.SaleSvc,
		receipts:    p.Receipts,
		portal:      p.Portal,
		obsMetrics:  p.ObsMetrics,
		saveLimiter: p.SaveLimiter,
	}

	svc.registerAdminRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/admin")

	admin.GET("/plans", s.ListPlans)
	admin.POST("/plans", s.CreatePlan)
	admin.GET("/plans/:id", s.GetPlanByID)
	admin.PATCH("/plans/:id", s.UpdatePlan)
	admin.DELETE("/plans/:id", s.DeletePlan)

	admin.GET("/clients", s.ListClients)
	admin.POST("/clients", s.CreateClient)
	admin.GET("/clients/:id", s.GetClientByID)
	admin.PATCH("/clients/:id", s.UpdateClient)
	admin.DELETE("/clients/:id", s.RouterSaveRateLimit(), s.DeleteClient)

	admin.GET("/clients/:id/subscription", s.GetClientSubscription)
	admin.POST("/clients/:id/quote", s.QuoteClientCharge)
	admin.POST("/clients/:id/activate", s.RouterSaveRateLimit(), s.ActivateClientSubscription)

	admin.GET("/sales", s.ListSales)
	admin.POST("/sales", s.CreateSale)
	admin.GET("/sales/:id", s.GetSaleByID)
	admin.DELETE("/sales/:id", s.DeleteSale)
	admin.GET("/sales/:id/receipt", s.GetSaleReceipt)
}
