package main

import (
	"context"
	"log"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/pavitra93/go-hostel-management-system/shared/config"
	"github.com/pavitra93/go-hostel-management-system/shared/identity"
	"github.com/pavitra93/go-hostel-management-system/shared/middleware"
	"github.com/pavitra93/go-hostel-management-system/shared/utils"
)

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

func setupRouter(clients *ServiceClients, authMiddleware *middleware.AuthMiddleware, origins []string) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery(), cors.New(corsConfig(origins)))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		utils.OKResponse(c, "API Gateway is healthy", nil)
	})
	router.GET("/status", func(c *gin.Context) {
		utils.OKResponse(c, "Service status retrieved", clients.GetServiceStatus())
	})

	// Authentication routes
	auth := router.Group("/auth")
	{
		auth.POST("/login", clients.AuthService.ProxyRequest)
		auth.POST("/register", clients.AuthService.ProxyRequest)
		auth.POST("/logout", authMiddleware.RequireAuth(), clients.AuthService.ProxyRequest)
		auth.GET("/me", authMiddleware.RequireAuth(), clients.AuthService.ProxyRequest)
	}

	// Hostel API; the hostel service trusts the identity headers set here
	for _, prefix := range []string{"/hostels", "/rooms", "/tenants", "/payments"} {
		group := router.Group(prefix)
		group.Use(authMiddleware.RequireAuth())
		group.Any("", clients.HostelService.ProxyRequest)
		group.Any("/*path", clients.HostelService.ProxyRequest)
	}

	return router
}

func main() {
	config.LoadEnv()
	cfg := config.Load()

	// Sessions are written by the auth service and read here
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

	var validator middleware.TokenValidator
	if cfg.VerifyTokens {
		if cfg.CognitoUserPoolID == "" {
			log.Fatal("COGNITO_USER_POOL_ID must be set when VERIFY_TOKEN_SIGNATURE is on")
		}
		validator = utils.NewJWKSValidator(cfg.AWSRegion, cfg.CognitoUserPoolID)
	}
	authMiddleware := middleware.NewAuthMiddleware(
		identity.NewSessionResolver(utils.NewRedisSessionStore(rdb)),
		validator,
	)

	clients := &ServiceClients{
		AuthService:   NewServiceClient("auth_service", cfg.AuthServiceURL),
		HostelService: NewServiceClient("hostel_service", cfg.HostelServiceURL),
		Worker:        NewServiceClient("worker", cfg.WorkerServiceURL),
	}

	router := setupRouter(clients, authMiddleware, cfg.AllowedOrigins)

	logrus.Infof("API Gateway starting on port %s", cfg.GatewayPort)
	if err := router.Run(":" + cfg.GatewayPort); err != nil {
		log.Fatal("Failed to start API Gateway:", err)
	}
}
