package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/bizhub/internal/activity"
	activitydomain "github.com/smallbiznis/bizhub/internal/activity/domain"
	"github.com/smallbiznis/bizhub/internal/asset"
	assetdomain "github.com/smallbiznis/bizhub/internal/asset/domain"
	"github.com/smallbiznis/bizhub/internal/config"
	"github.com/smallbiznis/bizhub/internal/customer"
	customerdomain "github.com/smallbiznis/bizhub/internal/customer/domain"
	"github.com/smallbiznis/bizhub/internal/invoice"
	invoicedomain "github.com/smallbiznis/bizhub/internal/invoice/domain"
	"github.com/smallbiznis/bizhub/internal/observability"
	obsmiddleware "github.com/smallbiznis/bizhub/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/bizhub/internal/observability/metrics"
	obstracing "github.com/smallbiznis/bizhub/internal/observability/tracing"
	"github.com/smallbiznis/bizhub/internal/ratelimit"
	"github.com/smallbiznis/bizhub/internal/user"
	userdomain "github.com/smallbiznis/bizhub/internal/user/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	activity.Module,
	invoice.Module,
	customer.Module,
	asset.Module,
	user.Module,
	ratelimit.Module,
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
	engine       *gin.Engine
	cfg          config.Config
	db           *gorm.DB
	genID        *snowflake.Node
	settings     *config.SettingsHolder
	activitySvc  activitydomain.Service
	invoiceSvc   invoicedomain.Service
	customerSvc  customerdomain.Service
	assetSvc     assetdomain.Service
	userSvc      userdomain.Service
	writeLimiter *ratelimit.WriteLimiter
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Cfg          config.Config
	DB           *gorm.DB
	GenID        *snowflake.Node
	Settings     *config.SettingsHolder
	ActivitySvc  activitydomain.Service
	InvoiceSvc   invoicedomain.Service
	CustomerSvc  customerdomain.Service
	AssetSvc     assetdomain.Service
	UserSvc      userdomain.Service
	WriteLimiter *ratelimit.WriteLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:       p.Gin,
		cfg:          p.Cfg,
		db:           p.DB,
		genID:        p.GenID,
		settings:     p.Settings,
		activitySvc:  p.ActivitySvc,
		invoiceSvc:   p.InvoiceSvc,
		customerSvc:  p.CustomerSvc,
		assetSvc:     p.AssetSvc,
		userSvc:      p.UserSvc,
		writeLimiter: p.WriteLimiter,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api", s.ActorMiddleware())
	write := s.RateLimitWrites()

	api.GET("/activity-logs", s.ListActivityLogs)

	api.POST("/invoices", write, s.CreateInvoice)
	api.GET("/invoices", s.ListInvoices)
	api.GET("/invoices/:id", s.GetInvoice)
	api.POST("/invoices/:id/items", write, s.AddInvoiceItem)
	api.GET("/invoices/:id/items", s.ListInvoiceItems)
	api.POST("/invoices/:id/items/:itemId/void", write, s.VoidInvoiceItem)

	api.POST("/customers", write, s.CreateCustomer)
	api.GET("/customers", s.ListCustomers)
	api.GET("/customers/:id", s.GetCustomer)
	api.PATCH("/customers/:id", write, s.UpdateCustomer)
	api.DELETE("/customers/:id", write, s.DeleteCustomer)

	api.POST("/assets", write, s.CreateAsset)
	api.GET("/assets", s.ListAssets)
	api.GET("/assets/:id", s.GetAsset)
	api.PATCH("/assets/:id", write, s.UpdateAsset)
	api.DELETE("/assets/:id", write, s.DeleteAsset)

	api.POST("/users", write, s.CreateUser)
	api.GET("/users/:id", s.GetUser)
	api.DELETE("/users/:id", write, s.DeleteUser)

	api.GET("/reference/currencies", s.ListCurrencies)
}
