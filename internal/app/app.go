package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"prep_backend/internal/config"
	"prep_backend/internal/controller"
	"prep_backend/internal/middleware"
	"prep_backend/internal/repository"
	"prep_backend/internal/service"
	"prep_backend/pkg/configwatcher"
	"prep_backend/pkg/database"
	"prep_backend/pkg/logger"
	"prep_backend/pkg/monitoring"
	"prep_backend/pkg/security"
	"prep_backend/pkg/tracing"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config          *config.Config
	ConfigDir       string
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	services        *services
	tracer          *sdktrace.TracerProvider
	configCallbacks []func(*config.Config)
}

type repositories struct {
	user         *repository.UserRepository
	catalog      *repository.CatalogRepository
	progress     *repository.ProgressRepository
	streak       *repository.StreakRepository
	points       *repository.PointsRepository
	reward       *repository.RewardRepository
	subscription *repository.SubscriptionRepository
	payment      *repository.PaymentRepository
	dashboard    *repository.DashboardRepository
}

type services struct {
	auth         *service.AuthService
	storage      *service.StorageService
	user         *service.UserService
	catalog      *service.CatalogService
	content      *service.ContentService
	progress     *service.ProgressService
	loyalty      *service.LoyaltyService
	reward       *service.RewardService
	subscription *service.SubscriptionService
	dashboard    *service.DashboardService
	scheduler    *service.SubscriptionScheduler
}

type controllers struct {
	auth         *controller.AuthController
	user         *controller.UserController
	content      *controller.ContentController
	progress     *controller.ProgressController
	reward       *controller.RewardController
	subscription *controller.SubscriptionController
	dashboard    *controller.DashboardController
	health       *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:         repository.NewUserRepository(db),
		catalog:      repository.NewCatalogRepository(db),
		progress:     repository.NewProgressRepository(db),
		streak:       repository.NewStreakRepository(db),
		points:       repository.NewPointsRepository(db),
		reward:       repository.NewRewardRepository(db),
		subscription: repository.NewSubscriptionRepository(db),
		payment:      repository.NewPaymentRepository(db),
		dashboard:    repository.NewDashboardRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, rdb *redis.Client) (*services, error) {
	s := &services{}

	gateway, err := service.NewPaymentGateway(cfg)
	if err != nil {
		return nil, err
	}

	s.storage = service.NewStorageService(cfg)
	s.auth = service.NewAuthService(repos.user, service.NewMailer(&cfg.Mail), rdb, cfg)
	s.user = service.NewUserService(repos.user, s.storage)
	s.catalog = service.NewCatalogService(repos.catalog, repos.subscription)
	s.content = service.NewContentService(repos.catalog, s.storage, cfg)
	s.progress = service.NewProgressService(repos.progress, repos.catalog)
	s.loyalty = service.NewLoyaltyService(repos.streak, repos.points, cfg)
	s.reward = service.NewRewardService(repos.reward, repos.points, repos.streak)
	s.subscription = service.NewSubscriptionService(repos.subscription, repos.payment, repos.user, gateway, cfg)
	s.dashboard = service.NewDashboardService(repos.progress, repos.streak, repos.points, s.subscription, repos.dashboard, cfg)
	s.scheduler = service.NewSubscriptionScheduler(repos.subscription)

	return s, nil
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		auth:         controller.NewAuthController(s.auth, s.loyalty),
		user:         controller.NewUserController(s.user),
		content:      controller.NewContentController(s.catalog, s.content),
		progress:     controller.NewProgressController(s.progress, s.loyalty),
		reward:       controller.NewRewardController(s.reward),
		subscription: controller.NewSubscriptionController(s.subscription),
		dashboard:    controller.NewDashboardController(s.dashboard),
		health:       controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	router.Use(security.RateLimiter(cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute))

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

func (a *App) startBackgroundTasks(s *services, cfg *config.Config) {
	if cfg.Scheduler.ExpirySweepEnabled {
		if err := s.scheduler.Start(cfg.Scheduler.ExpirySweepSpec); err != nil {
			logger.Log.Error("Failed to start subscription scheduler", zap.Error(err))
		}
	}

	a.RegisterConfigCallback(func(newCfg *config.Config) {
		logger.SetMode(newCfg.Server.Mode)
		s.dashboard.UpdateConfig(newCfg)
	})

	configPath := filepath.Join(a.ConfigDir, "config.yaml")
	go func() {
		err := configwatcher.WatchConfig(context.Background(), configPath, func(newCfg *config.Config) {
			for _, cb := range a.configCallbacks {
				cb(newCfg)
			}
		})
		if err != nil {
			logger.Log.Warn("Config watcher stopped", zap.Error(err))
		}
	}()
}

func NewApp(cfg *config.Config, configDir string) *App {
	logger.InitLogger(cfg.Server.Mode)
	defer logger.Log.Sync()

	logger.Log.Info("Logger initialized successfully")

	// release 模式默认不迁移，除非显式指定
	migrate := cfg.Server.Mode != "release" || cfg.ForceMigrate
	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode, migrate)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
		log.Fatalf("Failed to initialize database: %v", err)
	}

	app := &App{
		Config:    cfg,
		ConfigDir: configDir,
		DB:        db,
	}
	if cfg.MigrateOnly {
		return app
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
		log.Fatalf("Failed to initialize redis: %v", err)
	}
	app.Redis = rdb

	if err := middleware.RegisterValidators(); err != nil {
		logger.Log.Fatal("Failed to register validators", zap.Error(err))
	}

	repos := app.initRepositories(db)
	services, err := app.initServices(repos, cfg, rdb)
	if err != nil {
		logger.Log.Fatal("Failed to initialize services", zap.Error(err))
	}
	app.services = services
	controllers := app.initControllers(services, db, rdb)

	// 监控初始化
	monitoring.Init()

	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	router.Use(gin.Recovery())
	app.Router = router

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer(tracing.ServiceName, cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracer = tp
	}

	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, controllers, repos, cfg)

	if cfg.Storage.Type == "local" {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	app.startBackgroundTasks(services, cfg)

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	// 启动服务器
	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	if a.services != nil && a.services.scheduler != nil {
		a.services.scheduler.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		a.Redis.Close()
	}

	logger.Log.Info("Server exiting")
}
