package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/OldStager01/cold-autoscaler/api/handlers"
	"github.com/OldStager01/cold-autoscaler/api/middleware"
	"github.com/OldStager01/cold-autoscaler/api/websocket"
	"github.com/OldStager01/cold-autoscaler/docs"
	"github.com/OldStager01/cold-autoscaler/internal/auth"
	"github.com/OldStager01/cold-autoscaler/internal/orchestrator"
	"github.com/OldStager01/cold-autoscaler/pkg/config"
	"github.com/OldStager01/cold-autoscaler/pkg/database"
	"github.com/OldStager01/cold-autoscaler/pkg/database/queries"
	"github.com/gin-gonic/gin"
)

const maxRequestBody = 1 << 20

type Server struct {
	router       *gin.Engine
	httpServer   *http.Server
	config       *config.Config
	db           *database.DB
	orchestrator *orchestrator.Orchestrator
	users        auth.UserStore
	authService  *auth.Service
	wsHub        *websocket.Hub
	wsBridge     *websocket.EventBridge
}

// NewServer builds the admin API on top of a wired orchestrator. db may be
// nil, in which case history endpoints answer 503 and users must be a
// non-database store.
func NewServer(cfg *config.Config, orch *orchestrator.Orchestrator, db *database.DB, users auth.UserStore) *Server {
	if cfg.App.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	if users == nil && db != nil {
		users = queries.NewUserRepository(db.DB)
	}

	s := &Server{
		router:       gin.New(),
		config:       cfg,
		db:           db,
		orchestrator: orch,
		users:        users,
		authService:  auth.NewService(cfg.API.JWTSecret, cfg.API.JWTDuration, cfg.API.JWTIssuer),
		wsHub:        websocket.NewHub(&cfg.WebSocket),
	}

	s.setupMiddleware()
	s.setupRoutes()

	go s.wsHub.Run()

	s.wsBridge = websocket.NewEventBridge(s.wsHub, orch.SubscribeAllEvents())
	s.wsBridge.Start()

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(middleware.SecurityHeaders("/auth", "/autoscaler"))
	s.router.Use(middleware.CORS(middleware.CORSFromConfig(s.config.API.CORS)))
	s.router.Use(middleware.RequestLogger("/health/live", "/health/ready", "/metrics"))
	s.router.Use(middleware.TraceID())
	s.router.Use(middleware.RequestSizeLimit(maxRequestBody))

	rateLimiter := middleware.NewRateLimiter(s.config.API.RateLimit, time.Minute)
	s.router.Use(middleware.RateLimit(rateLimiter))
}

func (s *Server) setupRoutes() {
	pipeline := s.orchestrator.Pipeline()

	var dbCheck handlers.HealthChecker
	var decisions handlers.DecisionStore
	if s.db != nil {
		dbCheck = s.db
		decisions = queries.NewDecisionRepository(s.db.DB)
	}

	healthHandler := handlers.NewHealthHandler(dbCheck, pipeline, pipeline)
	authHandler := handlers.NewAuthHandler(s.users, s.authService)
	autoscalerHandler := handlers.NewAutoscalerHandler(s.orchestrator.Loop(), pipeline, handlers.AutoscalerSettings{
		Thresholds:  s.orchestrator.Thresholds(),
		HotRegions:  s.config.Regions.Hot,
		ColdRegions: s.config.Regions.Cold,
		RunTimeout:  s.config.API.RunTimeout,
	})
	historyHandler := handlers.NewHistoryHandler(decisions, &s.config.API)

	s.router.GET("/health", healthHandler.Health)
	s.router.GET("/health/ready", healthHandler.Ready)
	s.router.GET("/health/live", healthHandler.Live)

	s.router.POST("/auth/login", middleware.AuthRateLimiter(), authHandler.Login)

	docs.SwaggerInfo.BasePath = "/"
	s.router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	s.router.GET("/metrics", gin.WrapH(s.orchestrator.Metrics().Handler()))

	s.router.GET("/ws", websocket.ServeWebSocket(s.wsHub))

	protected := s.router.Group("/autoscaler")
	protected.Use(middleware.JWTAuth(s.authService))
	{
		protected.POST("/run", autoscalerHandler.Run)
		protected.GET("/status", autoscalerHandler.Status)
		protected.POST("/start", autoscalerHandler.Start)
		protected.POST("/stop", autoscalerHandler.Stop)

		protected.GET("/history", historyHandler.List)
		protected.GET("/history/:id", historyHandler.Get)
		protected.GET("/stats", historyHandler.Stats)
	}
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.API.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.API.ReadTimeout,
		WriteTimeout: s.config.API.WriteTimeout,
		IdleTimeout:  s.config.API.IdleTimeout,
	}

	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.wsBridge.Stop()
	s.wsHub.Stop()

	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) WebSocketHub() *websocket.Hub {
	return s.wsHub
}
