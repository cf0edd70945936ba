package main

import (
	"context"
	"log"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pavitra93/go-hostel-management-system/shared/config"
	"github.com/pavitra93/go-hostel-management-system/shared/events"
	"github.com/pavitra93/go-hostel-management-system/shared/hostel"
	"github.com/pavitra93/go-hostel-management-system/shared/utils"
)

func main() {
	config.LoadEnv()
	cfg := config.Load()

	// Initialize database
	db, err := config.ConnectDatabase(cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	st, err := config.OpenStore(db)
	if err != nil {
		log.Fatal("Failed to open document store:", err)
	}

	opts := []hostel.Option{hostel.WithLogger(logrus.WithField("service", "hostel"))}

	// Redis holds the stats snapshot cache; the service still works without it
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	rdb, err := utils.NewRedisClient(ctx, utils.RedisConfig{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	cancel()
	if err != nil {
		logrus.WithError(err).Warn("Redis unavailable, stats snapshots will not be cached")
	} else {
		defer rdb.Close()
		opts = append(opts, hostel.WithSnapshotCache(utils.NewRedisSnapshotCache(rdb, cfg.StatsCacheTTL)))
	}

	// Initialize Kafka producer
	producer := events.NewKafkaProducer(events.ProducerConfig{
		Broker: cfg.KafkaBroker,
		Topic:  cfg.KafkaTopic,
	})
	defer producer.Close()
	opts = append(opts, hostel.WithPublisher(producer))

	svc := hostel.New(st, opts...)
	router := setupRouter(NewHandler(svc))

	logrus.Infof("Hostel service starting on port %s", cfg.HostelPort)
	if err := router.Run(":" + cfg.HostelPort); err != nil {
		log.Fatal("Failed to start hostel service:", err)
	}
}
