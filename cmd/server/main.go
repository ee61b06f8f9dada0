package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	declapp "github.com/aeat/backend/internal/application/declaration"
	"github.com/aeat/backend/internal/domain/declaration"
	"github.com/aeat/backend/internal/infrastructure/aeatfile"
	"github.com/aeat/backend/internal/infrastructure/config"
	"github.com/aeat/backend/internal/infrastructure/ledger"
	"github.com/aeat/backend/internal/infrastructure/logger"
	"github.com/aeat/backend/internal/infrastructure/persistence"
	"github.com/aeat/backend/internal/interfaces/http/handler"
	"github.com/aeat/backend/internal/interfaces/http/middleware"
	"github.com/aeat/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting AEAT 303 backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	db, err := persistence.NewDatabase(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Repositories and ledger ports
	reportRepo := persistence.NewGormReportRepository(db.DB)
	mappingRepo := persistence.NewGormMappingRepository(db.DB)
	prorataRepo := persistence.NewGormProrataRepository(db.DB)
	ledgerService := ledger.NewGormLedgerService(db.DB)
	moveService := ledger.NewGormMoveService(db.DB)
	recordWriter := aeatfile.NewWriter(declaration.Form303Schema)

	// Application services
	reportService := declapp.NewReportService(reportRepo, mappingRepo, prorataRepo, ledgerService, moveService, recordWriter)
	prorataService := declapp.NewProrataService(prorataRepo, ledgerService)
	chartService := declapp.NewChartService(mappingRepo)

	// HTTP layer
	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()
	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Fatal("Failed to set trusted proxies", zap.Error(err))
	}
	engine.Use(
		logger.Recovery(log),
		middleware.RequestID(),
		logger.GinMiddleware(log),
		middleware.CORS(middleware.CORSConfig{AllowOrigins: cfg.HTTP.CORSOrigins}),
	)
	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.NewRouter(engine).
		Register(handler.NewDeclarationHandler(reportService)).
		Register(handler.NewProrataHandler(prorataService)).
		Register(handler.NewChartHandler(chartService)).
		Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Forced shutdown", zap.Error(err))
	}
	log.Info("Server stopped")
}
