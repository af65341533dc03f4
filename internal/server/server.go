// Package server exposes the admin HTTP API: users, scan definitions,
// schedules, invoices and manual dispatch runs.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/invoicereminder/internal/config"
	invoicedomain "github.com/smallbiznis/invoicereminder/internal/invoice/domain"
	"github.com/smallbiznis/invoicereminder/internal/observability"
	obslogger "github.com/smallbiznis/invoicereminder/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/invoicereminder/internal/observability/metrics"
	obstracing "github.com/smallbiznis/invoicereminder/internal/observability/tracing"
	scheduledomain "github.com/smallbiznis/invoicereminder/internal/schedule/domain"
	"github.com/smallbiznis/invoicereminder/internal/scheduler"
	userdomain "github.com/smallbiznis/invoicereminder/internal/user/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

// Dispatcher runs one dispatch synchronously.
type Dispatcher interface {
	SendMessage(ctx context.Context, userID snowflake.ID) (string, error)
}

// ScheduleStatus reports the live trigger state of a schedule.
type ScheduleStatus interface {
	Status(scheduleID snowflake.ID) scheduler.State
	NextRun(scheduleID snowflake.ID) time.Time
}

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(classifyErrorForLog))
	r.Use(obstracing.GinMiddleware())
	r.Use(httpMetrics.Middleware())
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

func run(lc fx.Lifecycle, shutdowner fx.Shutdowner, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("http.server.failed", zap.String("addr", srv.Addr), zap.Error(err))
					_ = shutdowner.Shutdown(fx.ExitCode(1))
				}
			}()
			log.Info("http.server.listening", zap.String("addr", srv.Addr))
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
	userSvc     userdomain.Service
	invoiceSvc  invoicedomain.Service
	scheduleSvc scheduledomain.Service
	status      ScheduleStatus
	dispatcher  Dispatcher
}

type ServerParams struct {
	fx.In

	Gin         *gin.Engine
	Cfg         config.Config
	UserSvc     userdomain.Service
	InvoiceSvc  invoicedomain.Service
	ScheduleSvc scheduledomain.Service
	Status      ScheduleStatus `optional:"true"`
	Dispatcher  Dispatcher
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:      p.Gin,
		cfg:         p.Cfg,
		userSvc:     p.UserSvc,
		invoiceSvc:  p.InvoiceSvc,
		scheduleSvc: p.ScheduleSvc,
		status:      p.Status,
		dispatcher:  p.Dispatcher,
	}

	svc.registerAPIRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/v1")
	api.Use(s.AdminKeyRequired())

	// -------- Users --------
	api.POST("/users", s.CreateUser)
	api.GET("/users/:user_id", s.GetUser)
	api.POST("/users/:user_id/tokens", s.StoreToken)

	// -------- Scan definitions --------
	api.POST("/users/:user_id/scan-definitions", s.CreateScanDefinition)
	api.GET("/users/:user_id/scan-definitions", s.ListScanDefinitions)
	api.DELETE("/scan-definitions/:id", s.DeleteScanDefinition)

	// -------- Schedules --------
	api.POST("/schedules", s.CreateSchedule)
	api.GET("/schedules/:id", s.GetSchedule)
	api.PATCH("/schedules/:id", s.UpdateSchedule)
	api.DELETE("/schedules/:id", s.DeleteSchedule)
	api.POST("/schedules/:id/pause", s.PauseSchedule)
	api.POST("/schedules/:id/resume", s.ResumeSchedule)
	api.POST("/schedules/:id/run", s.RunSchedule)
	api.GET("/users/:user_id/schedules", s.ListSchedules)

	// -------- Invoices --------
	api.GET("/users/:user_id/invoices", s.ListInvoices)
	api.GET("/invoices/:id", s.GetInvoiceByID)
	api.PATCH("/invoices/:id", s.UpdateInvoice)
	api.DELETE("/invoices/:id", s.DeleteInvoice)

	// -------- Dispatch --------
	api.POST("/users/:user_id/dispatch", s.RunDispatch)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
