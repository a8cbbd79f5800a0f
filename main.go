package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"taproom-backend/config"
	"taproom-backend/database"
	"taproom-backend/events"
	"taproom-backend/notify"
	"taproom-backend/routes"
	"taproom-backend/storage"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	if err := config.LoadEnv(); err != nil {
		log.Fatal("Error loading .env file:", err)
	}

	if err := config.ValidateEnv(); err != nil {
		log.Fatal("Environment validation failed: ", err)
	}
	cfg := config.Load()

	db, err := database.Connect()
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	if err := database.Migrate(db); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	if err := database.CreateDefaultAdmin(db, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		log.Printf("WARNING: Could not create default admin: %v", err)
	}
	if err := database.SeedDefaultSettings(db); err != nil {
		log.Printf("WARNING: Could not seed default settings: %v", err)
	}

	initCtx, cancelInit := context.WithTimeout(context.Background(), 30*time.Second)
	storageClient, err := storage.New(initCtx, storage.Config{
		Provider:          cfg.StorageProvider,
		FirebaseBucket:    cfg.FirebaseBucket,
		GoogleCredentials: cfg.GoogleCredentials,
		AWSRegion:         cfg.AWSRegion,
		AWSS3Bucket:       cfg.AWSS3Bucket,
		AWSAccessKeyID:    cfg.AWSAccessKeyID,
		AWSSecretKey:      cfg.AWSSecretAccessKey,
	})
	cancelInit()
	if err != nil {
		log.Printf("WARNING: image storage disabled: %v", err)
		storageClient = nil
	}

	mailer := notify.NewMailer(notify.Config{
		Provider:     cfg.EmailProvider,
		From:         cfg.EmailFrom,
		ResendAPIKey: cfg.ResendAPIKey,
		SMTPHost:     cfg.SMTPHost,
		SMTPPort:     cfg.SMTPPort,
		SMTPUsername: cfg.SMTPUsername,
		SMTPPassword: cfg.SMTPPassword,
	})

	publisher := events.Connect(cfg.AMQPURL)

	r := gin.Default()

	// Limit multipart form memory to 10MB
	r.MaxMultipartMemory = 10 << 20

	origins := cfg.AllowedOrigins()
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173"}
		log.Println("WARNING: No CORS origins configured, defaulting to http://localhost:5173")
	}

	r.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
	}))

	authLimiter := routes.SetupRoutes(r, routes.Dependencies{
		DB:            db,
		Storage:       storageClient,
		Mailer:        mailer,
		Events:        publisher,
		PublicBaseURL: cfg.PublicBaseURL,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		log.Printf("Server starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Give outstanding requests 30 seconds to complete
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	authLimiter.Stop()

	if err := publisher.Close(); err != nil {
		log.Printf("Error closing event publisher: %v", err)
	}

	sqlDB, err := db.DB()
	if err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Printf("Error closing database connection: %v", err)
		} else {
			log.Println("Database connection closed")
		}
	}

	log.Println("Server exited gracefully")
}
