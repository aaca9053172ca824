package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	authdomain "github.com/smallbiznis/streamhub/internal/auth/domain"
	"github.com/smallbiznis/streamhub/internal/auth/session"
	catalogdomain "github.com/smallbiznis/streamhub/internal/catalog/domain"
	"github.com/smallbiznis/streamhub/internal/config"
	entitlementdomain "github.com/smallbiznis/streamhub/internal/entitlement/domain"
	"github.com/smallbiznis/streamhub/internal/observability"
	obsmiddleware "github.com/smallbiznis/streamhub/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/streamhub/internal/observability/metrics"
	obstracing "github.com/smallbiznis/streamhub/internal/observability/tracing"
	plandomain "github.com/smallbiznis/streamhub/internal/plan/domain"
	"github.com/smallbiznis/streamhub/internal/ratelimit"
	"github.com/smallbiznis/streamhub/internal/realtime"
	signupdomain "github.com/smallbiznis/streamhub/internal/signup/domain"
	subscriptiondomain "github.com/smallbiznis/streamhub/internal/subscription/domain"
	taskdomain "github.com/smallbiznis/streamhub/internal/task/domain"
	userdomain "github.com/smallbiznis/streamhub/internal/user/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
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

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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

// watchLimiter is satisfied by *ratelimit.WatchLimiter.
type watchLimiter interface {
	Enabled() bool
	AllowUser(ctx context.Context, userID snowflake.ID) (*ratelimit.Result, error)
}

type Server struct {
	engine          *gin.Engine
	cfg             config.Config
	log             *zap.Logger
	authsvc         authdomain.Service
	sessions        *session.Manager
	signupsvc       signupdomain.Service
	userSvc         userdomain.Service
	subscriptionSvc subscriptiondomain.Service
	planSvc         plandomain.Service
	catalogSvc      catalogdomain.Service
	entitlementSvc  entitlementdomain.Service
	taskSvc         taskdomain.Service
	changes         realtime.Subscriber
	watchLimiter    watchLimiter
	obsMetrics      *obsmetrics.Metrics

	heartbeatInterval time.Duration
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	Log             *zap.Logger
	Authsvc         authdomain.Service
	Sessions        *session.Manager
	Signupsvc       signupdomain.Service
	UserSvc         userdomain.Service
	SubscriptionSvc subscriptiondomain.Service
	PlanSvc         plandomain.Service
	CatalogSvc      catalogdomain.Service
	EntitlementSvc  entitlementdomain.Service
	TaskSvc         taskdomain.Service
	Changes         realtime.Subscriber     `optional:"true"`
	WatchLimiter    *ratelimit.WatchLimiter `optional:"true"`
	ObsMetrics      *obsmetrics.Metrics     `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:            p.Gin,
		cfg:               p.Cfg,
		log:               p.Log.Named("http.server"),
		authsvc:           p.Authsvc,
		sessions:          p.Sessions,
		signupsvc:         p.Signupsvc,
		userSvc:           p.UserSvc,
		subscriptionSvc:   p.SubscriptionSvc,
		planSvc:           p.PlanSvc,
		catalogSvc:        p.CatalogSvc,
		entitlementSvc:    p.EntitlementSvc,
		taskSvc:           p.TaskSvc,
		changes:           p.Changes,
		obsMetrics:        p.ObsMetrics,
		heartbeatInterval: 15 * time.Second,
	}
	// a typed nil pointer inside the interface would defeat the nil check
	if p.WatchLimiter != nil {
		svc.watchLimiter = p.WatchLimiter
	}
	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// RegisterAuthRoutes mounts sign-up and session endpoints.
func (s *Server) RegisterAuthRoutes() {
	auth := s.engine.Group("/auth")

	auth.POST("/signup", s.Signup)
	auth.POST("/login", s.Login)
	auth.POST("/logout", s.Logout)
	auth.GET("/me", s.AuthRequired(), s.Me)
}

// RegisterAPIRoutes mounts the viewer-facing storefront.
func (s *Server) RegisterAPIRoutes() {
	api := s.engine.Group("/api")
	api.Use(s.AuthRequired())

	api.GET("/channels", s.ListChannels)
	api.GET("/content", s.ListContent)

	api.GET("/me/subscription", s.GetMySubscription)
	api.GET("/me/history", s.ListMyHistory)

	watch := api.Group("/watch", s.WatchRateLimit())
	watch.POST("/channels/:id", s.WatchChannel)
	watch.POST("/content/:id", s.WatchContent)

	api.GET("/tasks", s.ListTasks)
	api.POST("/tasks", s.CreateTask)
	api.PATCH("/tasks/:id", s.UpdateTask)
	api.DELETE("/tasks/:id", s.DeleteTask)

	api.GET("/realtime/:table", s.StreamChanges)
}

// RegisterAdminRoutes mounts the back-office. Every route requires an
// administrator.
func (s *Server) RegisterAdminRoutes() {
	admin := s.engine.Group("/admin")
	admin.Use(s.AuthRequired())
	admin.Use(s.AdminRequired())

	admin.GET("/users", s.ListUsers)
	admin.PATCH("/users/:id", s.UpdateUser)
	admin.DELETE("/users/:id", s.DeleteUser)

	admin.GET("/channels", s.AdminListChannels)
	admin.POST("/channels", s.CreateChannel)
	admin.PATCH("/channels/:id", s.UpdateChannel)
	admin.DELETE("/channels/:id", s.DeleteChannel)

	admin.GET("/content", s.AdminListContent)
	admin.POST("/content", s.CreateContent)
	admin.PATCH("/content/:id", s.UpdateContent)
	admin.DELETE("/content/:id", s.DeleteContent)

	admin.GET("/plans", s.ListPlans)
}

func (s *Server) RegisterFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
