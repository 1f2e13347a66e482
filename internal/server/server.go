package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/smallbiznis/salespipe/internal/activity"
	activitydomain "github.com/smallbiznis/salespipe/internal/activity/domain"
	"github.com/smallbiznis/salespipe/internal/auth"
	authdomain "github.com/smallbiznis/salespipe/internal/auth/domain"
	"github.com/smallbiznis/salespipe/internal/auth/session"
	"github.com/smallbiznis/salespipe/internal/config"
	"github.com/smallbiznis/salespipe/internal/lead"
	leaddomain "github.com/smallbiznis/salespipe/internal/lead/domain"
	"github.com/smallbiznis/salespipe/internal/observability"
	"github.com/smallbiznis/salespipe/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/salespipe/internal/observability/metrics"
	"github.com/smallbiznis/salespipe/internal/pipeline"
	pipelinedomain "github.com/smallbiznis/salespipe/internal/pipeline/domain"
)

var Module = fx.Options(
	auth.Module,
	session.Module,
	pipeline.Module,
	activity.Module,
	lead.Module,
	fx.Provide(NewEngine),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.GinMiddleware(logger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
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

func classifyErrorForLog(err error) (string, string) {
	if err == nil {
		return "", ""
	}
	status, payload := mapError(err)
	if status >= http.StatusInternalServerError {
		return "internal", payload.Type
	}
	return "client", payload.Type
}

type Server struct {
	engine        *gin.Engine
	cfg           config.Config
	db            *gorm.DB
	authsvc       authdomain.Service
	sessions      *session.Manager
	genID         *snowflake.Node
	pipelineSvc   pipelinedomain.Service
	leadSvc       leaddomain.Service
	activitySvc   activitydomain.Service
	forgotLimiter *rateLimiter
}

type ServerParams struct {
	fx.In

	Gin         *gin.Engine
	Cfg         config.Config
	DB          *gorm.DB
	Authsvc     authdomain.Service
	Sessions    *session.Manager
	GenID       *snowflake.Node
	PipelineSvc pipelinedomain.Service
	LeadSvc     leaddomain.Service
	ActivitySvc activitydomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:        p.Gin,
		cfg:           p.Cfg,
		db:            p.DB,
		authsvc:       p.Authsvc,
		sessions:      p.Sessions,
		genID:         p.GenID,
		pipelineSvc:   p.PipelineSvc,
		leadSvc:       p.LeadSvc,
		activitySvc:   p.ActivitySvc,
		forgotLimiter: newRateLimiter(5, 10*time.Minute),
	}

	svc.registerAuthRoutes()
	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAuthRoutes() {
	auth := s.engine.Group("/auth")

	auth.POST("/register", s.Register)
	auth.POST("/login", s.Login)
	auth.POST("/logout", s.Logout)
	auth.GET("/me", s.Me)
	auth.PATCH("/me", s.AuthRequired(), s.UpdateProfile)
	auth.PATCH("/password", s.AuthRequired(), s.ChangePassword)
	auth.POST("/password/forgot", s.ForgotPassword)
	auth.POST("/password/reset", s.ResetPassword)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api", s.AuthRequired())

	// -------- Pipelines --------
	api.GET("/pipelines", s.ListPipelines)
	api.POST("/pipelines", s.CreatePipeline)
	api.GET("/pipelines/:id", s.GetPipeline)
	api.PATCH("/pipelines/:id", s.UpdatePipeline)
	api.DELETE("/pipelines/:id", s.DeletePipeline)

	// -------- Stages --------
	api.POST("/pipelines/:id/stages", s.CreateStage)
	api.POST("/pipelines/:id/stages/reorder", s.ReorderStages)
	api.PATCH("/stages/:id", s.UpdateStage)
	api.DELETE("/stages/:id", s.DeleteStage)

	// -------- Leads --------
	api.GET("/leads", s.ListLeads)
	api.POST("/leads", s.CreateLead)
	api.GET("/leads/:id", s.GetLead)
	api.PATCH("/leads/:id", s.UpdateLead)
	api.DELETE("/leads/:id", s.DeleteLead)
	api.POST("/leads/:id/move", s.MoveLead)
	api.GET("/leads/:id/activity", s.ListLeadActivity)
}
