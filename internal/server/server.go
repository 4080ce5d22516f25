package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/triviabees/internal/cache"
	"github.com/smallbiznis/triviabees/internal/commission"
	commissiondomain "github.com/smallbiznis/triviabees/internal/commission/domain"
	"github.com/smallbiznis/triviabees/internal/config"
	"github.com/smallbiznis/triviabees/internal/eligibility"
	eligibilitydomain "github.com/smallbiznis/triviabees/internal/eligibility/domain"
	"github.com/smallbiznis/triviabees/internal/observability"
	obsmiddleware "github.com/smallbiznis/triviabees/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/triviabees/internal/observability/metrics"
	obstracing "github.com/smallbiznis/triviabees/internal/observability/tracing"
	"github.com/smallbiznis/triviabees/internal/order"
	orderdomain "github.com/smallbiznis/triviabees/internal/order/domain"
	"github.com/smallbiznis/triviabees/internal/profile"
	"github.com/smallbiznis/triviabees/internal/ratelimit"
	"github.com/smallbiznis/triviabees/internal/referral"
	referraldomain "github.com/smallbiznis/triviabees/internal/referral/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	cache.Module,
	ratelimit.Module,
	profile.Module,
	referral.Module,
	commission.Module,
	order.Module,
	eligibility.Module,
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(func(s *Server) { s.RegisterRoutes() }),
	fx.Invoke(run),
)

func NewEngine(cfg config.Config, obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}

	registerJSONFieldNames()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(CORS(cfg.CORSOrigins))
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	if httpMetrics != nil {
		r.Use(httpMetrics.GinMiddleware())
	}
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type ServerParams struct {
	fx.In

	Engine         *gin.Engine
	Config         config.Config
	CommissionSvc  commissiondomain.Service
	EligibilitySvc eligibilitydomain.Service
	ReferralSvc    referraldomain.Service
	OrderSvc       orderdomain.Service
	ReferralLimit  *ratelimit.ReferralLookupLimiter `optional:"true"`
	ObsMetrics     *obsmetrics.Metrics              `optional:"true"`
}

type Server struct {
	engine         *gin.Engine
	cfg            config.Config
	commissionSvc  commissiondomain.Service
	eligibilitySvc eligibilitydomain.Service
	referralSvc    referraldomain.Service
	orderSvc       orderdomain.Service
	referralLimit  *ratelimit.ReferralLookupLimiter
	obsMetrics     *obsmetrics.Metrics
}

func NewServer(p ServerParams) *Server {
	return &Server{
		engine:         p.Engine,
		cfg:            p.Config,
		commissionSvc:  p.CommissionSvc,
		eligibilitySvc: p.EligibilitySvc,
		referralSvc:    p.ReferralSvc,
		orderSvc:       p.OrderSvc,
		referralLimit:  p.ReferralLimit,
		obsMetrics:     p.ObsMetrics,
	}
}

// RegisterRoutes mounts the function endpoints at the root and the
// resource endpoints under /api.
func (s *Server) RegisterRoutes() {
	r := s.engine

	r.OPTIONS("/*path", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	handleFunction(r, "/distribute-commissions", s.ServiceKeyRequired(), s.DistributeCommissions)
	handleFunction(r, "/check-marketplace-eligibility", s.CheckMarketplaceEligibility)
	handleFunction(r, "/validate-referral", s.ReferralLookupRateLimit(), s.ValidateReferral)

	api := r.Group("/api")
	{
		api.GET("/users/:id/marketplace-eligibility", s.GetMarketplaceEligibility)
		api.GET("/users/:id/commissions", s.ListUserCommissions)
		api.GET("/orders/:id", s.GetOrder)
		api.POST("/orders/:id/paid", s.ServiceKeyRequired(), s.MarkOrderPaid)
	}
}

// functionMethods is every method a function endpoint serves. OPTIONS stays
// with the preflight route.
var functionMethods = []string{
	http.MethodGet,
	http.MethodHead,
	http.MethodPost,
	http.MethodPut,
	http.MethodPatch,
	http.MethodDelete,
	http.MethodConnect,
	http.MethodTrace,
}

func handleFunction(r gin.IRoutes, path string, handlers ...gin.HandlerFunc) {
	for _, method := range functionMethods {
		r.Handle(method, path, handlers...)
	}
}
