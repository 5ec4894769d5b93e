package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/cl0udz1/cyber-guard-platfrom/internal/config"
	"github.com/cl0udz1/cyber-guard-platfrom/internal/handler"
	"github.com/cl0udz1/cyber-guard-platfrom/internal/ingest"
	"github.com/cl0udz1/cyber-guard-platfrom/internal/middleware"
	"github.com/cl0udz1/cyber-guard-platfrom/internal/repository"
	"github.com/cl0udz1/cyber-guard-platfrom/internal/scoring"
	"github.com/cl0udz1/cyber-guard-platfrom/internal/service"
)

// iocSubmitPath is excluded from the access log.
const iocSubmitPath = "/api/v1/ioc/submit"

type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	cfg        *config.Config
	db         *sqlx.DB
	engine     *scoring.Engine
	notifier   service.VerdictNotifier
	logger     *zap.Logger

	authService service.AuthService
}

// NewServer wires repositories, services and handlers. notifier may be nil.
func NewServer(cfg *config.Config, db *sqlx.DB, engine *scoring.Engine, notifier service.VerdictNotifier, logger *zap.Logger) *Server {
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	// IoC submissions stay out of the access log so no record ties an
	// indicator to a client address.
	router.Use(gin.LoggerWithConfig(gin.LoggerConfig{SkipPaths: []string{iocSubmitPath}}), gin.Recovery())
	router.MaxMultipartMemory = cfg.Server.MaxUploadMB << 20

	s := &Server{
		router:   router,
		cfg:      cfg,
		db:       db,
		engine:   engine,
		notifier: notifier,
		logger:   logger,
	}
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) setupRoutes() {
	scanRepo := repository.NewScanRepository(s.db, s.logger)
	iocRepo := repository.NewIocRepository(s.db, s.logger)
	authRepo := repository.NewAuthRepository(s.db, s.logger)

	s.authService = service.NewAuthService(authRepo, s.cfg.Auth.JWTSecret, time.Duration(s.cfg.Auth.TokenTTLMinutes)*time.Minute, s.logger)
	scanService := service.NewScanService(s.engine, scanRepo, s.notifier, s.logger)
	iocService := service.NewIocService(ingest.NewGuard(s.logger), iocRepo, s.engine, s.logger)
	dashboardService := service.NewDashboardService(iocRepo, scanRepo, s.logger)

	authHandler := handler.NewAuthHandler(s.authService, s.logger)
	scanHandler := handler.NewScanHandler(scanService, s.cfg.Server.MaxUploadMB, s.logger)
	iocHandler := handler.NewIocHandler(iocService, s.logger)
	dashboardHandler := handler.NewDashboardHandler(dashboardService, service.Limits{
		RecentIocs:  s.cfg.Dashboard.RecentIocs,
		RecentScans: s.cfg.Dashboard.RecentScans,
	}, s.logger)

	s.router.Use(middleware.Metrics(nil))
	s.router.Use(middleware.CORS(s.cfg.Server.CORSOrigins))

	health := handler.Health(s.cfg.App.Name, s.cfg.App.Env)
	s.router.GET("/", health)
	s.router.GET("/healthz", health)

	api := s.router.Group("/api/v1")

	scan := api.Group("/scan")
	scan.POST("/url", scanHandler.ScanURL)
	scan.POST("/file", scanHandler.ScanFile)
	scan.POST("/hash", scanHandler.ScanHash)
	scan.GET("/:scan_id", scanHandler.GetScan)
	scan.GET("/:scan_id/report.pdf", scanHandler.GetReport)

	api.POST("/auth/login", authHandler.Login)

	authRequired := api.Group("")
	authRequired.Use(middleware.RequirePrincipal(s.authService, s.logger))
	{
		authRequired.GET("/auth/me", authHandler.Me)
		authRequired.POST("/ioc/submit", iocHandler.Submit)
		authRequired.GET("/dashboard/summary", dashboardHandler.GetSummary)
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// SeedUsers creates the accounts listed in auth.seed_users if missing.
func (s *Server) SeedUsers(ctx context.Context) error {
	for _, u := range s.cfg.Auth.SeedUsers {
		if u.Email == "" || u.Password == "" {
			s.logger.Warn("Skipping seed user without email or password")
			continue
		}
		if _, err := s.authService.EnsureUser(ctx, u.Email, u.Password, u.Role); err != nil {
			return err
		}
	}
	return nil
}

// Run blocks serving HTTP until Shutdown is called.
func (s *Server) Run() error {
	s.logger.Info("Server starting", zap.String("address", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
