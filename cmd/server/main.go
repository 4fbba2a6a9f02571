package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/trade-journal/internal/cache"
	"github.com/trade-journal/internal/company"
	"github.com/trade-journal/internal/config"
	"github.com/trade-journal/internal/handler"
	"github.com/trade-journal/internal/logger"
	"github.com/trade-journal/internal/middleware"
	"github.com/trade-journal/internal/models"
	"github.com/trade-journal/internal/repository"
	"github.com/trade-journal/internal/service"
	"github.com/trade-journal/internal/worker"
)

// Build info (injected at build time via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zlog, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	gin.SetMode(cfg.Server.Mode)

	db, err := initDatabase(cfg)
	if err != nil {
		zlog.Fatal("failed to initialize database", zap.Error(err))
	}
	if err := autoMigrate(db); err != nil {
		zlog.Fatal("failed to migrate database", zap.Error(err))
	}

	reportCache, rdb := initCache(cfg, zlog)
	companies := loadCompanies(cfg.Journal.CompanyCSV, zlog)

	// Repositories
	userRepo := repository.NewUserRepository(db)
	tradeRepo := repository.NewTradeRepository(db)

	// Services
	authService := service.NewAuthService(userRepo, cfg.JWT)
	reportService := service.NewReportService(tradeRepo, reportCache, cfg.Journal.ReportCacheTTL, zlog.Named("report"))
	journalService := service.NewJournalService(tradeRepo, companies, reportService, service.JournalOptions{
		EnforcePositionLimit: cfg.Journal.PositionLimitEnabled(),
		HistoryPageSize:      cfg.Journal.HistoryPageSize,
	}, zlog.Named("journal"))

	// Handlers
	authHandler := handler.NewAuthHandler(authService, reportService)
	companyHandler := handler.NewCompanyHandler(companies)
	journalHandler := handler.NewJournalHandler(journalService)
	reportHandler := handler.NewReportHandler(reportService, cfg.Journal.MatrixPageSize)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLoggerMiddleware(zlog.Named("http")))
	router.Use(corsMiddleware())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":     "ok",
			"version":    Version,
			"commit":     Commit,
			"build_time": BuildTime,
			"time":       time.Now().Unix(),
			"companies":  companies.Len(),
		})
	})

	v1 := router.Group("/api/v1")
	{
		authMiddleware := middleware.AuthMiddleware(authService)

		authHandler.RegisterRoutes(v1, authMiddleware)
		companyHandler.RegisterRoutes(v1)
		journalHandler.RegisterRoutes(v1, authMiddleware)
		reportHandler.RegisterRoutes(v1, authMiddleware)
	}

	warmer := worker.NewReportWarmer(tradeRepo, reportService, cfg.Journal.ReportWarmSpec, zlog.Named("warmer"))
	if err := warmer.Start(); err != nil {
		zlog.Fatal("failed to start report warmer", zap.Error(err))
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zlog.Info("starting server", zap.String("addr", addr), zap.String("version", Version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zlog.Info("shutting down server")
	warmer.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Error("server forced to shutdown", zap.Error(err))
	}

	if rdb != nil {
		if err := rdb.Close(); err != nil {
			zlog.Warn("error closing redis connection", zap.Error(err))
		}
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}

	zlog.Info("server exited properly")
}

func initDatabase(cfg *config.Config) (*gorm.DB, error) {
	gormLogger := gormlogger.Default.LogMode(gormlogger.Info)
	if cfg.Server.Mode == gin.ReleaseMode {
		gormLogger = gormlogger.Default.LogMode(gormlogger.Warn)
	}

	db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	return db, nil
}

// initCache returns the redis-backed report cache when redis is enabled and
// reachable, and an in-process cache otherwise
func initCache(cfg *config.Config, zlog *zap.Logger) (cache.Store, *redis.Client) {
	if !cfg.Redis.Enabled {
		return cache.NewMemoryStore(), nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		zlog.Warn("redis unavailable, using in-memory report cache", zap.Error(err))
		_ = rdb.Close()
		return cache.NewMemoryStore(), nil
	}
	return cache.NewRedisStore(rdb, "journal:"), rdb
}

func loadCompanies(path string, zlog *zap.Logger) *company.Table {
	table, err := company.LoadFile(path)
	if err != nil {
		zlog.Warn("company table not loaded, names will not be auto-filled",
			zap.String("path", path), zap.Error(err))
		return company.NewTable(nil)
	}
	zlog.Info("company table loaded", zap.String("path", path), zap.Int("codes", table.Len()))
	return table
}

func autoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Trade{},
	)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization, X-Request-ID")
		c.Header("Access-Control-Expose-Headers", "X-Request-ID")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
