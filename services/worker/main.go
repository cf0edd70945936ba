package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/pavitra93/go-hostel-management-system/shared/config"
	"github.com/pavitra93/go-hostel-management-system/shared/events"
	"github.com/pavitra93/go-hostel-management-system/shared/hostel"
	"github.com/pavitra93/go-hostel-management-system/shared/models"
	"github.com/pavitra93/go-hostel-management-system/shared/store"
	"github.com/pavitra93/go-hostel-management-system/shared/utils"
)

const retryInterval = 30 * time.Second

func setupRouter(w *Worker, findings *store.FindingStore, retries *store.RetryStore) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		utils.OKResponse(c, "Worker is healthy", nil)
	})

	router.GET("/stats", func(c *gin.Context) {
		stats := w.Stats()
		open, err := findings.CountOpen(c.Request.Context())
		if err != nil {
			utils.DomainErrorResponse(c, err)
			return
		}
		retryStats, err := retries.Stats(c.Request.Context())
		if err != nil {
			utils.DomainErrorResponse(c, err)
			return
		}
		utils.OKResponse(c, "Worker stats retrieved successfully", gin.H{
			"worker":        stats,
			"open_findings": open,
			"retry_stats":   retryStats,
		})
	})

	router.GET("/findings", func(c *gin.Context) {
		list, err := findings.List(c.Request.Context(), c.Query("hostelId"), models.FindingStatus(c.DefaultQuery("status", string(models.FindingStatusOpen))))
		if err != nil {
			utils.DomainErrorResponse(c, err)
			return
		}
		utils.OKResponse(c, "Findings retrieved successfully", list)
	})

	return router
}

func main() {
	config.LoadEnv()
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database
	db, err := config.ConnectDatabase(cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	st, err := config.OpenStore(db)
	if err != nil {
		log.Fatal("Failed to open document store:", err)
	}
	findings := store.NewFindingStore(db)
	if err := findings.AutoMigrate(); err != nil {
		log.Fatal("Failed to migrate findings:", err)
	}
	retries := store.NewRetryStore(db)
	if err := retries.AutoMigrate(); err != nil {
		log.Fatal("Failed to migrate retry queue:", err)
	}

	opts := []hostel.Option{hostel.WithLogger(logrus.WithField("service", "worker"))}
	rctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	rdb, err := utils.NewRedisClient(rctx, utils.RedisConfig{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	cancel()
	if err != nil {
		logrus.WithError(err).Warn("Redis unavailable, refreshed snapshots will not be cached")
	} else {
		defer rdb.Close()
		opts = append(opts, hostel.WithSnapshotCache(utils.NewRedisSnapshotCache(rdb, cfg.StatsCacheTTL)))
	}

	svc := hostel.New(st, opts...)
	worker := NewWorker(svc, findings, retries, cfg.ReconcileInterval)

	consumer := events.NewKafkaConsumer(events.ConsumerConfig{
		Broker:  cfg.KafkaBroker,
		Topic:   cfg.KafkaTopic,
		GroupID: cfg.KafkaGroupID,
	})
	defer consumer.Close()

	go func() {
		if err := consumer.Run(ctx, worker.HandleEvent); err != nil {
			logrus.WithError(err).Error("Kafka consumer stopped")
		}
	}()
	go worker.RunSweeps(ctx)
	go worker.RunRetries(ctx, retryInterval)

	srv := &http.Server{Addr: ":" + cfg.WorkerPort, Handler: setupRouter(worker, findings, retries)}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logrus.Infof("Worker starting on port %s (reconcile every %s)", cfg.WorkerPort, cfg.ReconcileInterval)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("Failed to start worker:", err)
	}
}
