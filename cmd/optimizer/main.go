package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"adsoptimizer/internal/auth"
	"adsoptimizer/internal/client/amazonads"
	"adsoptimizer/internal/config"
	cronrunner "adsoptimizer/internal/cron"
	"adsoptimizer/internal/db"
	"adsoptimizer/internal/handler"
	"adsoptimizer/internal/logger"
	"adsoptimizer/internal/optimization"
	gormrepository "adsoptimizer/internal/repository/gorm"
	"adsoptimizer/internal/service"

	_ "adsoptimizer/docs"
)

func main() {
	// optional local .env
	_ = godotenv.Load()

	cfgPath := os.Getenv("AO_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("AO_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.Log, cfg.App.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	dbConn, err := db.Open(cfg.DB, log)
	if err != nil {
		log.Fatal("db open failed", zap.Error(err))
	}
	defer db.Close(dbConn)

	if err := db.SetTimezone(dbConn, cfg.DB.Timezone); err != nil {
		log.Warn("failed to set timezone", zap.Error(err))
	}
	if err := db.AutoMigrate(dbConn); err != nil {
		log.Fatal("auto-migrate failed", zap.Error(err))
	}

	store := gormrepository.New(dbConn.Gorm)
	settingsSvc := &service.SystemSettingsService{Repo: store}
	if err := settingsSvc.EnsureDefaultSwitches(context.Background()); err != nil {
		log.Warn("init default system switches failed", zap.Error(err))
	}

	loc, err := time.LoadLocation(cfg.Scheduler.Timezone)
	if err != nil {
		log.Warn("invalid scheduler timezone, using UTC", zap.String("timezone", cfg.Scheduler.Timezone), zap.Error(err))
		loc = time.UTC
	}

	var locker optimization.RuleLocker = optimization.NewMemoryLocker()
	if addr := strings.TrimSpace(cfg.Redis.Addr); addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			log.Warn("redis ping failed, rule locks stay in-process", zap.Error(err))
		} else {
			locker = &optimization.RedisLocker{Client: rdb, TTL: cfg.Redis.LockTTL, KeyPrefix: cfg.Redis.KeyPrefix}
			log.Info("redis rule locks enabled", zap.String("addr", addr))
		}
		cancel()
	}

	clients := &amazonads.Factory{
		HTTPClient: &http.Client{Timeout: cfg.Ads.Timeout},
		ClientID:   cfg.Ads.ClientID,
		Endpoints:  cfg.Ads.Endpoints,
		DryRun:     cfg.Ads.DryRun,
		Logger:     log.Named("amazonads"),
	}
	if cfg.Ads.DryRun {
		log.Warn("advertising mutations run in dry-run mode")
	}

	engine := &optimization.Engine{
		Repo:         store,
		Clients:      clients,
		Locker:       locker,
		Logger:       log.Named("optimization"),
		Location:     loc,
		StaleAfter:   cfg.Scheduler.StaleAfter,
		SweepTimeout: cfg.Scheduler.SweepTimeout,
	}

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	if cfg.Auth.Disabled {
		log.Warn("api authentication disabled")
	}
	authMW := auth.Middleware(auth.JWT{Secret: []byte(cfg.Auth.JWTSecret)}, cfg.Auth.Disabled)

	healthHandler := &handler.HealthHandler{DB: dbConn}
	healthHandler.Register(router)
	ruleHandler := &handler.RuleHandler{
		Repo:     store,
		Engine:   engine,
		Settings: settingsSvc,
		Auth:     authMW,
		Location: loc,
		Logger:   log,
	}
	ruleHandler.Register(router)
	executionHandler := &handler.ExecutionHandler{Repo: store, Auth: authMW}
	executionHandler.Register(router)
	switchHandler := &handler.SwitchHandler{Settings: settingsSvc, Auth: authMW}
	switchHandler.Register(router)
	cronHandler := &handler.CronHandler{
		Engine:   engine,
		Settings: settingsSvc,
		Secret:   cfg.Auth.CronSecret,
		Logger:   log,
	}
	cronHandler.Register(router)

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cronRunner := cronrunner.New(log, ctx)
	if cfg.Scheduler.Enabled {
		_, err = cronRunner.Add(cfg.Scheduler.Sweep, func(ctx context.Context) {
			if !settingsSvc.IsEnabled(ctx, service.FeatureOptimizationSweep, true) {
				return
			}
			if _, err := engine.RunScheduledRules(ctx); err != nil {
				log.Warn("scheduled sweep failed", zap.Error(err))
			}
		})
		if err != nil {
			log.Fatal("register sweep failed", zap.String("spec", cfg.Scheduler.Sweep), zap.Error(err))
		}
	}
	cronRunner.Start()
	defer cronRunner.Stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("http server starting", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown requested")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		log.Error("server error", zap.Error(err))
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,PATCH,DELETE,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
