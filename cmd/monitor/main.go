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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"polyedge/internal/client/clob"
	"polyedge/internal/client/gamma"
	"polyedge/internal/client/yahoo"
	"polyedge/internal/config"
	cronrunner "polyedge/internal/cron"
	"polyedge/internal/db"
	"polyedge/internal/handler"
	"polyedge/internal/logger"
	"polyedge/internal/rank"
	"polyedge/internal/refresh"
	"polyedge/internal/repository"
	gormrepository "polyedge/internal/repository/gorm"
	"polyedge/internal/stream"

	_ "polyedge/docs"
)

func main() {
	cfgPath := os.Getenv("PE_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("PE_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	resolution, err := cfg.Pricing.ResolutionTime()
	if err != nil {
		logger.Fatal("bad pricing config", zap.Error(err))
	}
	if len(cfg.Instruments) == 0 {
		logger.Fatal("no instruments configured")
	}

	// The database is optional: without a DSN the service runs purely from
	// the in-memory snapshot and skips history endpoints.
	var dbConn *db.DB
	var repo repository.Repository
	var refreshStore refresh.Store
	if strings.TrimSpace(cfg.DB.DSN) != "" {
		dbConn, err = db.Open(cfg.DB)
		if err != nil {
			logger.Fatal("db open failed", zap.Error(err))
		}
		defer db.Close(dbConn)

		if err := db.SetTimezone(dbConn, cfg.DB.Timezone); err != nil {
			logger.Warn("failed to set timezone", zap.Error(err))
		}
		if err := db.AutoMigrate(dbConn); err != nil {
			logger.Fatal("auto-migrate failed", zap.Error(err))
		}
		store := gormrepository.New(dbConn.Gorm)
		repo = store
		refreshStore = store
	} else {
		logger.Warn("db.dsn is empty, running without persistence")
	}

	gammaClient := gamma.NewClient(&http.Client{Timeout: cfg.Gamma.Timeout}, cfg.Gamma.BaseURL)
	clobClient := clob.NewClient(&http.Client{Timeout: cfg.ClobREST.Timeout}, cfg.ClobREST.BaseURL)
	yahooClient := yahoo.NewClient(&http.Client{Timeout: cfg.Yahoo.Timeout}, cfg.Yahoo.BaseURL, cfg.Yahoo.Range)

	refresher := &refresh.Refresher{
		Gamma:              gammaClient,
		Clob:               clobClient,
		Yahoo:              yahooClient,
		Store:              refreshStore,
		Logger:             logger,
		Instruments:        cfg.Instruments,
		Volatility:         cfg.Volatility,
		RiskFreeRate:       cfg.Pricing.RiskFreeRate,
		TradingDaysPerYear: cfg.Pricing.TradingDaysPerYear,
		Resolution:         resolution,
		TopN:               cfg.Ranking.TopN,
		Thresholds: rank.Thresholds{
			ROIPct:   cfg.Ranking.ROIChangePct,
			Price:    cfg.Ranking.PriceChange,
			KellyPct: cfg.Ranking.KellyChangePct,
		},
		StockCacheTTL: cfg.Refresh.StockCacheTTL,
		RunRetention:  cfg.Refresh.RunRetention,
	}

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())

	healthHandler := &handler.HealthHandler{DB: dbConn}
	healthHandler.Register(engine)
	monitorHandler := &handler.MonitorHandler{
		Refresher: refresher,
		Repo:      repo,
		Logger:    logger,
	}
	monitorHandler.Register(engine)
	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: engine,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Cron.Enabled {
		cronRunner := cronrunner.New(logger, ctx)
		if _, err := cronRunner.Add(cfg.Cron.Refresh, "refresh", func(ctx context.Context) {
			if _, err := refresher.Refresh(ctx, "cron"); err != nil {
				if errors.Is(err, refresh.ErrBusy) {
					logger.Debug("cron refresh skipped, cycle in flight")
					return
				}
				logger.Warn("cron refresh failed", zap.Error(err))
			}
		}); err != nil {
			logger.Warn("cron register refresh failed", zap.Error(err))
		}
		if repo != nil {
			if _, err := cronRunner.Add(cfg.Cron.RunsRetention, "runs-retention", func(ctx context.Context) {
				n, err := refresher.PruneRuns(ctx)
				if err != nil {
					logger.Warn("runs retention failed", zap.Error(err))
					return
				}
				if n > 0 {
					logger.Info("pruned refresh runs", zap.Int64("count", n))
				}
			}); err != nil {
				logger.Warn("cron register runs retention failed", zap.Error(err))
			}
		}
		cronRunner.Start()
		defer cronRunner.Stop()
	}

	if cfg.ClobStream.Enabled && repo != nil {
		streamSvc := &stream.Service{Store: repo, Logger: logger}
		go func() {
			err := streamSvc.Run(ctx, stream.Options{
				URL:             cfg.ClobStream.URL,
				RefreshInterval: cfg.ClobStream.RefreshInterval,
				MaxAssets:       cfg.ClobStream.MaxAssets,
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("clob stream stopped", zap.Error(err))
			}
		}()
	}

	// Prime the snapshot so the API serves data as soon as the port is open.
	go func() {
		if _, err := refresher.Refresh(ctx, "startup"); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("initial refresh failed", zap.Error(err))
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
