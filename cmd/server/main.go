package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/marnevik/prompt-service-api/internal/config"
	"github.com/marnevik/prompt-service-api/internal/handler"
	"github.com/marnevik/prompt-service-api/internal/handler/middleware"
	"github.com/marnevik/prompt-service-api/internal/ierr"
	"github.com/marnevik/prompt-service-api/internal/provider/gemini"
	"github.com/marnevik/prompt-service-api/internal/service"
	"github.com/marnevik/prompt-service-api/internal/storage/postgres"
	"github.com/marnevik/prompt-service-api/internal/storage/redis"
	"github.com/marnevik/prompt-service-api/internal/worker"
	"github.com/marnevik/prompt-service-api/pkg/logger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger, err := logger.NewZapLogger(cfg.Log.Level)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer appLogger.Sync()

	sugarLogger := appLogger.Sugar()

	sugarLogger.Info("Starting application...")
	sugarLogger.Infof("Log level set to: %s", cfg.Log.Level)

	appCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbPool, err := postgres.NewPgxPool(appCtx, &cfg.Database, appLogger)
	if err != nil {
		sugarLogger.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	defer dbPool.Close()

	redisClient, err := redis.NewRedisClient(appCtx, &cfg.Redis, appLogger)
	if err != nil {
		sugarLogger.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	apiKeyRepo := postgres.NewAPIKeyRepository(dbPool, appLogger)
	callRepo := postgres.NewCallRepository(dbPool, appLogger)
	templateRepo := postgres.NewTemplateRepository(dbPool, appLogger)
	statsCache := redis.NewStatsCache(redisClient, 10*time.Minute, appLogger)

	descGen := gemini.NewClient(&cfg.Gemini, cfg.Gemini.APIKey)
	itemGen := gemini.NewClient(&cfg.Gemini, cfg.Gemini.ItemsAPIKey)

	usageService := service.NewUsageService(apiKeyRepo, callRepo, appLogger)
	proxyService := service.NewProxyService(descGen, itemGen, templateRepo, usageService, appLogger)
	apiKeyService := service.NewAPIKeyService(apiKeyRepo, callRepo, appLogger)
	validateService := service.NewValidateService(apiKeyRepo, usageService, appLogger)
	templateService := service.NewTemplateService(templateRepo, appLogger)
	statsService := service.NewStatsService(callRepo, statsCache, appLogger)
	ledgerQueryService := service.NewLedgerQueryService(callRepo, appLogger)

	healthHandler := handler.NewHealthHandler(dbPool, redisClient, appLogger)
	apiKeyHandler := handler.NewAPIKeyHandler(apiKeyService, appLogger)
	callHandler := handler.NewCallHandler(proxyService, statsService, ledgerQueryService, appLogger)
	validateHandler := handler.NewValidateHandler(validateService, appLogger)
	templateHandler := handler.NewTemplateHandler(templateService, appLogger)

	keyAuthMiddleware := middleware.APIKeyAuth(apiKeyRepo, appLogger)
	errorMiddleware := middleware.ErrorHandler(appLogger)

	router := gin.New()
	router.Use(gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
			param.ClientIP,
			param.TimeStamp.Format(time.RFC1123),
			param.Method,
			param.Path,
			param.Request.Proto,
			param.StatusCode,
			param.Latency,
			param.Request.UserAgent(),
			param.ErrorMessage,
		)
	}))
	router.Use(gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logMsg := "Panic recovered"
		if err, ok := recovered.(string); ok {
			logMsg = fmt.Sprintf("%s: %s", logMsg, err)
		} else if err, ok := recovered.(error); ok {
			logMsg = fmt.Sprintf("%s: %v", logMsg, err)
		}
		appLogger.Error(logMsg, zap.Stack("stack"))

		_ = c.Error(ierr.ErrInternalServer)
		c.Abort()
	}))

	corsConfig := cors.Config{
		AllowOrigins: cfg.CORS.Origins,
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{
			"Origin",
			"Content-Type",
			"Accept",
			"Authorization",
			"X-API-Key",
		},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	router.Use(cors.New(corsConfig))
	router.Use(errorMiddleware)

	router.GET("/health", healthHandler.Check)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	keyRoutes := router.Group("/api/keys")
	{
		keyRoutes.POST("/generate", apiKeyHandler.Generate)
		keyRoutes.GET("", apiKeyHandler.List)
		keyRoutes.GET("/:id", apiKeyHandler.Get)
		keyRoutes.GET("/:id/stats", apiKeyHandler.Stats)
		keyRoutes.PATCH("/:id/revoke", apiKeyHandler.Revoke)
		keyRoutes.PATCH("/:id/reactivate", apiKeyHandler.Reactivate)
		keyRoutes.DELETE("/:id", apiKeyHandler.Delete)
	}

	callRoutes := router.Group("/api/calls")
	{
		callRoutes.POST("/execute", keyAuthMiddleware, callHandler.Execute)
		callRoutes.POST("/items", keyAuthMiddleware, callHandler.ExecuteItem)
		callRoutes.POST("/templates/:id", keyAuthMiddleware, callHandler.ExecuteTemplate)
		callRoutes.GET("/logs", keyAuthMiddleware, callHandler.Logs)

		adminRoutes := callRoutes.Group("/admin")
		{
			adminRoutes.GET("/all-calls", callHandler.AdminAllCalls)
			adminRoutes.GET("/statistics", callHandler.AdminStatistics)
		}
	}

	router.POST("/api/validate", validateHandler.Validate)

	templateRoutes := router.Group("/api/templates")
	{
		templateRoutes.POST("/generate", templateHandler.Create)
		templateRoutes.GET("", templateHandler.List)
	}

	g, groupCtx := errgroup.WithContext(appCtx)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g.Go(func() error {
		sugarLogger.Infof("HTTP server listening on port %s", cfg.Server.Port)

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugarLogger.Errorf("HTTP server ListenAndServe error: %v", err)
			return fmt.Errorf("http server failed: %w", err)
		}
		sugarLogger.Info("HTTP server stopped listening.")
		return nil
	})

	g.Go(func() error {
		<-groupCtx.Done()
		sugarLogger.Info("Shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownPeriod)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			sugarLogger.Errorf("HTTP server graceful shutdown failed: %v", err)
			return fmt.Errorf("http server shutdown error: %w", err)
		}
		sugarLogger.Info("HTTP server shutdown complete.")
		return nil
	})

	g.Go(func() error {
		if err := worker.RunWorkers(groupCtx, cfg, statsService, appLogger); err != nil {
			sugarLogger.Error("Asynq worker failed", zap.Error(err))
			return fmt.Errorf("asynq worker error: %w", err)
		}
		sugarLogger.Info("Asynq workers finished gracefully.")
		return nil
	})

	sugarLogger.Info("Application started. Waiting for interrupt signal (Ctrl+C) or component error...")

	waitErr := g.Wait()

	sugarLogger.Info("Shutdown sequence finished.")

	if waitErr != nil {
		if errors.Is(waitErr, context.Canceled) {
			sugarLogger.Info("Shutdown reason: Context canceled (likely due to OS signal).")
		} else if errors.Is(waitErr, http.ErrServerClosed) {
			sugarLogger.Info("Shutdown reason: HTTP server closed normally.")
		} else {
			sugarLogger.Errorf("Application shutdown finished with unexpected error: %v", waitErr)
		}
	} else {
		sugarLogger.Info("Application shutdown successfully (all components finished without errors).")
	}

	sugarLogger.Info("Application exiting now.")
}
