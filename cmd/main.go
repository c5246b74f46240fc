package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"learnhub-server/internal/config"
	"learnhub-server/internal/database/mongo"
	"learnhub-server/internal/database/redis"
	"learnhub-server/internal/events"
	"learnhub-server/internal/handlers"
	"learnhub-server/internal/middleware"
	"learnhub-server/internal/repository"
	"learnhub-server/internal/service"
	"learnhub-server/pkg/discovery"

	"github.com/gofiber/fiber/v3"
	"github.com/joho/godotenv"
)

func setupLogging(logDir string) (*os.File, error) {
	if logDir == "" {
		log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
		return nil, nil
	}

	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %v", err)
	}

	logFileName := fmt.Sprintf("log_%s.log", time.Now().Format("2006-01-02"))
	file, err := os.OpenFile(filepath.Join(logDir, logFileName), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %v", err)
	}

	log.SetOutput(file)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	return file, nil
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system env")
	}

	cfg := config.New()
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}

	logFile, err := setupLogging(cfg.LogDir)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	if logFile != nil {
		defer logFile.Close()
	}

	mongoClient, db, err := mongo.Connect(cfg)
	if err != nil {
		log.Fatalf("Fatal error connecting to MongoDB: %s", err)
	}
	defer mongo.Disconnect(mongoClient)

	redisClient := redis.Connect(cfg)
	defer redisClient.Close()

	publisher, err := events.NewEventPublisher(cfg.RabbitMQURI)
	if err != nil {
		log.Fatalf("Failed to connect to RabbitMQ: %v", err)
	}
	defer publisher.Close()

	// Repositories
	userRepo := repository.NewUserRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	resultRepo := repository.NewResultRepository(db)
	redisRepo := repository.NewRedisRepo(redisClient)

	indexCtx, indexCancel := context.WithTimeout(context.Background(), 20*time.Second)
	if err := userRepo.EnsureIndexes(indexCtx); err != nil {
		log.Printf("Warning: failed to create user indexes: %v", err)
	}
	if err := profileRepo.EnsureIndexes(indexCtx); err != nil {
		log.Printf("Warning: failed to create profile indexes: %v", err)
	}
	indexCancel()

	// Services
	emailService := service.NewEmailService(cfg.Email)
	jwtService := service.NewJWTService(cfg.JWTSecret, cfg.JWTExpiryDays)
	userService := service.NewUserService(userRepo, redisRepo, emailService, publisher, cfg.FEAddress)
	otpService := service.NewOTPService(userRepo, emailService, publisher)
	oauthService := service.NewGoogleOAuthService(cfg.Google)
	federationService := service.NewFederationService(userRepo, publisher)
	profileService := service.NewProfileService(profileRepo, userRepo, publisher)
	resultService := service.NewResultService(resultRepo)

	authMW := middleware.NewAuthMiddleware(jwtService, userRepo)

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler,
	})
	app.Use(authMW.Guard())

	handlers.NewAuthHandler(userService, otpService, jwtService).RegisterRoutes(app)
	handlers.NewGoogleHandler(oauthService, federationService, jwtService, redisRepo, cfg.FEAddress).RegisterRoutes(app)
	handlers.NewProfileHandler(profileService).RegisterRoutes(app)
	handlers.NewResultHandler(resultService).RegisterRoutes(app, authMW)
	handlers.NewUserHandler(userService).RegisterRoutes(app, authMW)

	registry, err := discovery.NewServiceRegistry(cfg)
	if err != nil {
		log.Printf("Warning: service discovery init failed: %v", err)
	}
	if err := registry.Register(); err != nil {
		log.Printf("Warning: %v", err)
	}

	shutdownChan := make(chan os.Signal, 1)
	doneChan := make(chan bool, 1)

	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Starting server on port %s", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatalf("Error starting server: %v", err)
		}
		doneChan <- true
	}()

	<-shutdownChan
	log.Println("Shutting down server...")

	if err := registry.Deregister(); err != nil {
		log.Printf("Error deregistering from Consul: %v", err)
	}
	if err := app.Shutdown(); err != nil {
		log.Printf("Error shutting down server: %v", err)
	}

	<-doneChan
	log.Println("Server exited, goodbye!")
}
