package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"hms-server/internal/config"
	"hms-server/internal/handler"
	"hms-server/internal/middleware"
	"hms-server/internal/repository"
	"hms-server/internal/services"
	"hms-server/pkg/database"
	"hms-server/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg.Server.Environment)
	logger.SetGlobalLogger(log)
	defer log.Logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := database.Connect(ctx, cfg)
	if err != nil {
		log.Errorf("failed to connect to database: %v", err)
		return
	}
	defer pool.Close()

	if err := database.ApplyRawMigrations(ctx, pool, "migrations"); err != nil {
		log.Errorf("failed to apply migrations: %v", err)
		return
	}

	appts := repository.NewAppointmentRepository(pool)
	auditRepo := repository.NewAuditLogRepository(pool)
	outboxRepo := repository.NewOutboxRepository(pool)
	locks := repository.NewResourceLocker()
	svc := services.NewAppointmentService(pool, locks, appts, auditRepo, outboxRepo, log)

	if cfg.Server.Environment == logger.ProductionMode {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.ErrorHandler(log))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	handler.NewAppointmentHandler(svc, log).RegisterRoutes(r.Group("/api/v1"))

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	go func() {
		log.Infof("api listening on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("server error: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Infof("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("shutdown error: %v", err)
	}
}
