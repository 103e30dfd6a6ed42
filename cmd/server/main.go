package main

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"qrwallet/internal/api"
	"qrwallet/internal/config"
	"qrwallet/internal/middleware"
	"qrwallet/internal/notify"
	"qrwallet/internal/store"
	"qrwallet/internal/wallet"
)

// Main function to set up and run the server
func main() {
	cfg := config.LoadConfig()

	// Setup logger
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	// Setup Data Source Name (DSN) and connect to the database
	dsn := cfg.DBUser + ":" + cfg.DBPassword + "@tcp(" + cfg.DBHost + ":" + cfg.DBPort + ")/" + cfg.DBName + "?parseTime=true"
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err)
	}

	// Setup Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})

	// Test Redis connection
	_, err = redisClient.Ping(context.Background()).Result()
	if err != nil {
		logrus.Fatalf("failed to connect to Redis: %v", err)
	}

	// Wallet service on top of the durable snapshot store, with events
	// published to Redis pub/sub
	svc := wallet.NewService(store.NewGormStore(db), notify.NewRedisNotifier(redisClient), cfg.StartBalance)

	// Set Mode to Release if in production
	if cfg.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup Gin
	r := gin.Default()

	// Set trusted proxies for Gin
	if err := r.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		logrus.Fatalf("failed to set trusted proxies: %v", err)
	}

	// Auth routes
	r.POST("/user", api.RegisterHandler(db))            // Registration endpoint
	r.GET("/user", api.LoginHandler(db, cfg.JWTSecret)) // Login endpoint

	// Wallet routes (protected by JWT)
	walletGroup := r.Group("/wallet")
	// Protect wallet routes with JWT middleware and inject Redis client into context
	walletGroup.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret), func(c *gin.Context) {
		c.Set("redisClient", redisClient)
		c.Next()
	})
	walletGroup.POST("", api.CreateWalletHandler(svc))                      // Create wallet endpoint
	walletGroup.GET("", api.GetWalletHandler(svc, redisClient))             // Get wallet endpoint
	walletGroup.GET("/identity", api.IdentityHandler(svc))                  // Public key for QR sharing
	walletGroup.POST("/send", api.SendHandler(svc))                         // Send endpoint
	walletGroup.POST("/confirm", api.ConfirmHandler(svc))                   // Confirm endpoint
	walletGroup.POST("/receive", api.ReceiveHandler(svc))                   // Receive endpoint
	walletGroup.GET("/transactions", api.TransactionsHandler(svc, redisClient)) // Transaction history endpoint

	// Admin routes (protected, admin only)
	adminGroup := r.Group("/admin")
	adminGroup.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret), middleware.AdminOnlyMiddleware(db))
	adminGroup.GET("/users", api.ListUsersHandler(db, redisClient))               // List users endpoint
	adminGroup.GET("/transactions", api.ListTransactionsHandler(db, redisClient)) // List transactions endpoint

	log.Println("Server running on " + cfg.AppPort)
	r.Run(":" + cfg.AppPort)
}
