package app

import (
	"context"
	"dontpanic_backend/internal/config"
	"dontpanic_backend/internal/controller"
	"dontpanic_backend/internal/repository"
	"dontpanic_backend/internal/service"
	"dontpanic_backend/pkg/configwatcher"
	"dontpanic_backend/pkg/database"
	"dontpanic_backend/pkg/logger"
	"dontpanic_backend/pkg/monitoring"
	"dontpanic_backend/pkg/security"
	"dontpanic_backend/pkg/tracing"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config          *config.Config
	ConfigFile      string
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	services        *services
	limiter         *security.IPRateLimiter
	shutdownTracer  func(context.Context) error
	configCallbacks []func(*config.Config)
}

type repositories struct {
	user     *repository.UserRepository
	scenario *repository.ScenarioRepository
	session  *repository.SessionRepository
}

type services struct {
	auth     *service.AuthService
	storage  *service.StorageService
	scenario *service.ScenarioService
	session  *service.SessionService
	score    *service.ScoreService
	user     *service.UserService
}

type controllers struct {
	auth     *controller.AuthController
	scenario *controller.ScenarioController
	session  *controller.SessionController
	stats    *controller.StatsController
	user     *controller.UserController
	health   *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:     repository.NewUserRepository(db),
		scenario: repository.NewScenarioRepository(db),
		session:  repository.NewSessionRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, db *gorm.DB, rdb *redis.Client) *services {
	s := &services{}

	cache := service.NewStatsCache(rdb, cfg.Stats.CacheTTL())

	s.storage = service.NewStorageService(&cfg.Storage)
	s.auth = service.NewAuthService(repos.user, cfg)
	s.scenario = service.NewScenarioService(db, repos.scenario, repos.session, s.storage, cache)
	s.session = service.NewSessionService(db, repos.session, repos.scenario, s.scenario, cache)
	s.score = service.NewScoreService(repos.session, repos.scenario, repos.user, cache)
	s.user = service.NewUserService(db, repos.user, s.auth, s.score, s.session, s.scenario)

	return s
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		auth:     controller.NewAuthController(s.auth),
		scenario: controller.NewScenarioController(s.scenario, s.session),
		session:  controller.NewSessionController(s.session),
		stats:    controller.NewStatsController(s.score),
		user:     controller.NewUserController(s.user),
		health:   controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	a.limiter = security.NewIPRateLimiter(cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute)
	router.Use(a.limiter.Middleware())

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// NewApp 初始化日志、数据库、缓存与路由；仅迁移模式下不创建路由
func NewApp(cfg *config.Config) (*App, error) {
	logger.InitLogger(cfg)
	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode)
	if err != nil {
		return nil, err
	}

	// release 模式默认不自动迁移，需要 -migrate 显式开启
	if cfg.Server.Mode != gin.ReleaseMode || cfg.ForceMigrate {
		if err := database.Migrate(db); err != nil {
			return nil, err
		}
	}

	app := &App{
		Config: cfg,
		DB:     db,
	}
	if cfg.MigrateOnly {
		return app, nil
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		// 缓存是可选的，连不上时直接查库
		logger.Log.Warn("Redis unavailable, stats cache disabled", zap.Error(err))
		rdb = nil
	}
	app.Redis = rdb

	repos := app.initRepositories(db)
	svcs := app.initServices(repos, cfg, db, rdb)
	app.services = svcs
	ctrls := app.initControllers(svcs, db, rdb)

	if _, err := svcs.user.EnsureDefaultInstructor(context.Background(), cfg.Seed); err != nil {
		logger.Log.Error("Failed to create default instructor", zap.Error(err))
	}

	// 监控初始化
	monitoring.Init()

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer(tracing.ServiceName, cfg.Tracing.CollectorEndpoint)
		if err != nil {
			return nil, err
		}
		app.shutdownTracer = tp.Shutdown
	}

	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	router.Use(gin.Recovery())
	app.Router = router

	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, ctrls, repos, cfg)

	// 配置热更新：目前只有日志级别可以在运行时调整
	app.RegisterConfigCallback(logger.SetLevel)

	return app, nil
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	go a.limiter.Run(ctx)
	a.watchConfig(ctx)

	// 启动服务器
	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal("listen", zap.Error(err))
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}
	a.Close(shutdownCtx)

	logger.Log.Info("Server exiting")
}

func (a *App) watchConfig(ctx context.Context) {
	if a.ConfigFile == "" || len(a.configCallbacks) == 0 {
		return
	}
	go func() {
		err := configwatcher.WatchConfig(ctx, a.ConfigFile, func(newCfg *config.Config) {
			for _, cb := range a.configCallbacks {
				cb(newCfg)
			}
		})
		if err != nil {
			logger.Log.Error("Config watcher stopped", zap.Error(err))
		}
	}()
}

// Close 释放外部连接
func (a *App) Close(ctx context.Context) {
	if a.shutdownTracer != nil {
		if err := a.shutdownTracer(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
	_ = logger.Log.Sync()
}

// DefaultConfigFile 配置目录下的 config.yaml
func DefaultConfigFile(dir string) string {
	return filepath.Join(dir, "config.yaml")
}
