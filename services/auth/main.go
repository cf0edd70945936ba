package main

import (
	"context"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/pavitra93/go-hostel-management-system/shared/config"
	"github.com/pavitra93/go-hostel-management-system/shared/events"
	"github.com/pavitra93/go-hostel-management-system/shared/hostel"
	"github.com/pavitra93/go-hostel-management-system/shared/identity"
	"github.com/pavitra93/go-hostel-management-system/shared/middleware"
	"github.com/pavitra93/go-hostel-management-system/shared/utils"
)

func setupRouter(provider identity.Provider, registrar *identity.Registrar, authMiddleware *middleware.AuthMiddleware) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		utils.OKResponse(c, "Auth service is healthy", nil)
	})

	// Authentication routes
	auth := router.Group("/auth")
	{
		auth.POST("/login", handleLogin(provider))
		auth.POST("/register", handleRegister(registrar))
		auth.POST("/logout", authMiddleware.RequireAuth(), handleLogout(provider))
		auth.GET("/me", authMiddleware.RequireAuth(), handleMe(registrar))
	}

	return router
}

func main() {
	config.LoadEnv()
	cfg := config.Load()

	// Initialize Redis for session management
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	rdb, err := utils.NewRedisClient(ctx, utils.RedisConfig{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	cancel()
	if err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}
	defer rdb.Close()
	sessions := utils.NewRedisSessionStore(rdb)

	// Initialize database
	db, err := config.ConnectDatabase(cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	st, err := config.OpenStore(db)
	if err != nil {
		log.Fatal("Failed to open document store:", err)
	}

	provider, err := identity.NewCognitoProvider(identity.CognitoConfig{
		Region:       cfg.AWSRegion,
		UserPoolID:   cfg.CognitoUserPoolID,
		ClientID:     cfg.CognitoClientID,
		ClientSecret: cfg.CognitoClientSecret,
		AutoConfirm:  cfg.CognitoAutoConfirm,
	}, sessions)
	if err != nil {
		log.Fatal("Failed to initialize identity provider:", err)
	}

	// Registration creates the owner's first hostel
	producer := events.NewKafkaProducer(events.ProducerConfig{
		Broker: cfg.KafkaBroker,
		Topic:  cfg.KafkaTopic,
	})
	defer producer.Close()
	svc := hostel.New(st, hostel.WithPublisher(producer), hostel.WithLogger(logrus.WithField("service", "auth")))
	registrar := identity.NewRegistrar(provider, st, svc.Hostels)

	var validator middleware.TokenValidator
	if cfg.VerifyTokens {
		validator = utils.NewJWKSValidator(cfg.AWSRegion, cfg.CognitoUserPoolID)
	}
	authMiddleware := middleware.NewAuthMiddleware(provider, validator)

	router := setupRouter(provider, registrar, authMiddleware)

	logrus.Infof("Auth service starting on port %s", cfg.AuthPort)
	if err := router.Run(":" + cfg.AuthPort); err != nil {
		log.Fatal("Failed to start auth service:", err)
	}
}
