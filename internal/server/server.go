package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	auditdomain "github.com/smallbiznis/telecomservice/internal/audit/domain"
	authdomain "github.com/smallbiznis/telecomservice/internal/auth/domain"
	"github.com/smallbiznis/telecomservice/internal/auth/session"
	"github.com/smallbiznis/telecomservice/internal/authorization"
	"github.com/smallbiznis/telecomservice/internal/config"
	consumptiondomain "github.com/smallbiznis/telecomservice/internal/consumption/domain"
	"github.com/smallbiznis/telecomservice/internal/observability"
	obsmiddleware "github.com/smallbiznis/telecomservice/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/telecomservice/internal/observability/metrics"
	obstracing "github.com/smallbiznis/telecomservice/internal/observability/tracing"
	"github.com/smallbiznis/telecomservice/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	basePathV1 = "/telecomservice/api/v1"
	basePathV2 = "/telecomservice/api/v2"

	shutdownTimeout = 10 * time.Second
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Provide(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware(classifyErrorForLog))
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

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
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
			shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine         *gin.Engine
	cfg            config.Config
	telecomCfg     *config.TelecomConfigHolder
	authsvc        authdomain.Service
	sessions       *session.Manager
	authzSvc       authorization.Service
	auditSvc       auditdomain.Service
	consumptionSvc consumptiondomain.Service
	authLimiter    *ratelimit.AuthenticateLimiter
	obsMetrics     *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin            *gin.Engine
	Cfg            config.Config
	TelecomCfg     *config.TelecomConfigHolder
	Authsvc        authdomain.Service
	Sessions       *session.Manager
	AuthzSvc       authorization.Service
	AuditSvc       auditdomain.Service            `optional:"true"`
	ConsumptionSvc consumptiondomain.Service
	AuthLimiter    *ratelimit.AuthenticateLimiter `optional:"true"`
	ObsMetrics     *obsmetrics.Metrics            `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:         p.Gin,
		cfg:            p.Cfg,
		telecomCfg:     p.TelecomCfg,
		authsvc:        p.Authsvc,
		sessions:       p.Sessions,
		authzSvc:       p.AuthzSvc,
		auditSvc:       p.AuditSvc,
		consumptionSvc: p.ConsumptionSvc,
		authLimiter:    p.AuthLimiter,
		obsMetrics:     p.ObsMetrics,
	}

	svc.registerV2Routes()
	svc.registerV1Routes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerV2Routes() {
	api := s.engine.Group(basePathV2)

	api.POST("/authenticate", RPC("authenticate"), s.Authenticate)
	api.POST("/logout", RPC("logout"), s.SessionRequired(), s.Logout)

	consumption := api.Group("/consumption")
	consumption.POST("/create", RPC("consumption.create"), s.SessionRequired(), s.authorizeConsumption(authorization.ActionConsumptionCreate), s.CreateConsumption)
	consumption.POST("/onchange", RPC("consumption.onchange"), s.SessionRequired(), s.authorizeConsumption(authorization.ActionConsumptionView), s.OnChangeConsumption)
	consumption.GET("/list", RPC("consumption.list"), s.SessionRequired(), s.authorizeConsumption(authorization.ActionConsumptionView), s.ListConsumption(apiV2))
	consumption.GET("/:id", RPC("consumption.get"), s.SessionRequired(), s.authorizeConsumption(authorization.ActionConsumptionView), s.GetConsumption)
	consumption.PUT("/update/:id", RPC("consumption.update"), s.SessionRequired(), s.authorizeConsumption(authorization.ActionConsumptionUpdate), s.UpdateConsumption)
	consumption.DELETE("/delete/:id", RPC("consumption.delete"), s.SessionRequired(), s.authorizeConsumption(authorization.ActionConsumptionDelete), s.DeleteConsumption)
}

// registerV1Routes mounts the POST-only facade that accepts credentials on every call.
func (s *Server) registerV1Routes() {
	consumption := s.engine.Group(basePathV1 + "/consumption")

	consumption.POST("/create", RPC("consumption.create"), s.CredentialsOrSession(), s.authorizeConsumption(authorization.ActionConsumptionCreate), s.CreateConsumption)
	consumption.POST("/onchange", RPC("consumption.onchange"), s.CredentialsOrSession(), s.authorizeConsumption(authorization.ActionConsumptionView), s.OnChangeConsumption)
	consumption.POST("/list", RPC("consumption.list"), s.CredentialsOrSession(), s.authorizeConsumption(authorization.ActionConsumptionView), s.ListConsumption(apiV1))
	consumption.POST("/:id", RPC("consumption.get"), s.CredentialsOrSession(), s.authorizeConsumption(authorization.ActionConsumptionView), s.GetConsumption)
	consumption.POST("/update/:id", RPC("consumption.update"), s.CredentialsOrSession(), s.authorizeConsumption(authorization.ActionConsumptionUpdate), s.UpdateConsumption)
	consumption.POST("/delete/:id", RPC("consumption.delete"), s.CredentialsOrSession(), s.authorizeConsumption(authorization.ActionConsumptionDelete), s.DeleteConsumption)
}
