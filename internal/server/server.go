package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	accountdomain "github.com/smallbiznis/menuya/internal/account/domain"
	"github.com/smallbiznis/menuya/internal/authorization"
	"github.com/smallbiznis/menuya/internal/config"
	discountdomain "github.com/smallbiznis/menuya/internal/discount/domain"
	"github.com/smallbiznis/menuya/internal/observability"
	obsmiddleware "github.com/smallbiznis/menuya/internal/observability/logger"
	obstracing "github.com/smallbiznis/menuya/internal/observability/tracing"
	orderdomain "github.com/smallbiznis/menuya/internal/order/domain"
	"github.com/smallbiznis/menuya/internal/ratelimit"
	"github.com/smallbiznis/menuya/internal/realtime"
	tabledomain "github.com/smallbiznis/menuya/internal/table/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Provide(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
		QuietRoutes:     obsCfg.LogQuietRoutes,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}
	return NewEngine(obsCfg)
}

func run(lc fx.Lifecycle, cfg config.Config, s *Server, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           s.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
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
	log         *zap.Logger
	authzSvc    authorization.Service
	orderSvc    orderdomain.Service
	accountSvc  accountdomain.Service
	discountSvc discountdomain.Service
	tableSvc    tabledomain.Service
	streams     *realtime.Registry
	tipLimiter  *ratelimit.TipLimiter

	heartbeat time.Duration
}

type ServerParams struct {
	fx.In

	Gin         *gin.Engine
	Cfg         config.Config
	Log         *zap.Logger
	AuthzSvc    authorization.Service
	OrderSvc    orderdomain.Service
	AccountSvc  accountdomain.Service
	DiscountSvc discountdomain.Service
	TableSvc    tabledomain.Service
	Streams     *realtime.Registry    `optional:"true"`
	TipLimiter  *ratelimit.TipLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:      p.Gin,
		cfg:         p.Cfg,
		log:         p.Log.Named("http.server"),
		authzSvc:    p.AuthzSvc,
		orderSvc:    p.OrderSvc,
		accountSvc:  p.AccountSvc,
		discountSvc: p.DiscountSvc,
		tableSvc:    p.TableSvc,
		streams:     p.Streams,
		tipLimiter:  p.TipLimiter,
		heartbeat:   15 * time.Second,
	}

	svc.registerAPIRoutes()
	svc.registerStreamRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")
	api.Use(s.ActorRequired())

	// -------- Orders --------
	api.POST("/orders", s.authorize(authorization.ObjectOrder, authorization.ActionOrderCreate), s.CreateOrder)
	api.GET("/orders", s.authorize(authorization.ObjectOrder, authorization.ActionOrderView), s.ListOrders)
	api.GET("/orders/:id", s.authorize(authorization.ObjectOrder, authorization.ActionOrderView), s.GetOrderByID)
	api.PATCH("/orders/:id", s.authorize(authorization.ObjectOrder, authorization.ActionOrderUpdate), s.UpdateOrder)
	api.POST("/orders/:id/confirm", s.authorize(authorization.ObjectOrder, authorization.ActionOrderConfirm), s.ConfirmOrder)
	api.POST("/orders/:id/ready", s.MarkOrderReady)
	api.POST("/orders/:id/deliver", s.authorize(authorization.ObjectOrder, authorization.ActionOrderDeliver), s.MarkOrderDelivered)
	api.POST("/orders/:id/receive", s.authorize(authorization.ObjectOrder, authorization.ActionOrderReceive), s.ConfirmOrderReceipt)
	api.POST("/orders/:id/cancel", s.authorize(authorization.ObjectOrder, authorization.ActionOrderCancel), s.CancelOrder)

	// -------- Tables --------
	api.GET("/tables", s.authorize(authorization.ObjectTable, authorization.ActionTableView), s.ListTables)
	api.GET("/tables/:number", s.authorize(authorization.ObjectTable, authorization.ActionTableView), s.GetTable)
	api.GET("/tables/:number/billable-orders", s.authorize(authorization.ObjectOrder, authorization.ActionOrderView), s.ListBillableOrders)
	api.POST("/tables/:number/occupy", s.authorize(authorization.ObjectTable, authorization.ActionTableManage), s.OccupyTable)
	api.POST("/tables/:number/release", s.authorize(authorization.ObjectTable, authorization.ActionTableManage), s.ReleaseTable)

	// -------- Accounts --------
	api.POST("/accounts", s.authorize(authorization.ObjectAccount, authorization.ActionAccountRequest), s.RequestAccount)
	api.POST("/accounts/delivery", s.authorize(authorization.ObjectAccount, authorization.ActionAccountRequest), s.RequestDeliveryAccount)
	api.GET("/accounts", s.authorize(authorization.ObjectAccount, authorization.ActionAccountView), s.ListAccounts)
	api.GET("/accounts/:id", s.authorize(authorization.ObjectAccount, authorization.ActionAccountView), s.GetAccountByID)
	api.POST("/accounts/:id/tip", s.authorize(authorization.ObjectAccount, authorization.ActionAccountTip), s.EnableAccountTip)
	api.PUT("/accounts/:id/tip", s.authorize(authorization.ObjectAccount, authorization.ActionAccountTip), s.SetAccountTip)
	api.PUT("/tips/:token", s.TipRateLimit(), s.authorize(authorization.ObjectAccount, authorization.ActionAccountTip), s.SetTipByToken)
	api.POST("/accounts/:id/pay", s.authorize(authorization.ObjectAccount, authorization.ActionAccountPay), s.PayAccount)
	api.POST("/accounts/:id/confirm-payment", s.authorize(authorization.ObjectAccount, authorization.ActionAccountConfirmPayment), s.ConfirmAccountPayment)
	api.POST("/identity/dni", s.authorize(authorization.ObjectAccount, authorization.ActionAccountRequest), s.ParseDNI)

	// -------- Discounts --------
	api.POST("/discounts/results", s.authorize(authorization.ObjectDiscount, authorization.ActionDiscountPlay), s.RecordGameResult)
	api.POST("/discounts/losses", s.authorize(authorization.ObjectDiscount, authorization.ActionDiscountPlay), s.RecordGameLoss)
	api.GET("/discounts/current", s.authorize(authorization.ObjectDiscount, authorization.ActionDiscountView), s.GetCurrentDiscount)
	api.GET("/discounts/results", s.authorize(authorization.ObjectDiscount, authorization.ActionDiscountView), s.ListGameResults)
}

func (s *Server) registerStreamRoutes() {
	streams := s.engine.Group("/streams")
	streams.Use(s.ActorRequired())

	streams.GET("/pending/:role", s.authorize(authorization.ObjectStream, authorization.ActionStreamPending), s.StreamPendingOrders)
	streams.GET("/tables", s.authorize(authorization.ObjectStream, authorization.ActionStreamTables), s.StreamTables)
	streams.GET("/delivery-accounts", s.authorize(authorization.ObjectStream, authorization.ActionStreamDelivery), s.StreamDeliveryAccounts)
}
