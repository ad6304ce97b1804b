package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/arushdixit/personal-workout-planner-sub000/internal/config"
	"github.com/arushdixit/personal-workout-planner-sub000/internal/domain"
	"github.com/arushdixit/personal-workout-planner-sub000/internal/notify"
	"github.com/arushdixit/personal-workout-planner-sub000/internal/remote"
	"github.com/arushdixit/personal-workout-planner-sub000/internal/server"
	"github.com/arushdixit/personal-workout-planner-sub000/internal/telemetry"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/contrib/instrumentation/go.mongodb.org/mongo-driver/mongo/otelmongo"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	log.Println("Starting Personal Workout Planner Service...")

	ctx := context.Background()

	// Initialize OpenTelemetry
	otelProvider, err := telemetry.Initialize(ctx, telemetry.Config{
		ServiceName:    "workout-planner",
		ServiceVersion: "1.0.0",
		Environment:    "production",
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		Enabled:        cfg.Telemetry.Enabled,
	})
	if err != nil {
		log.Printf("Warning: Failed to initialize OpenTelemetry: %v", err)
	}
	if otelProvider != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			otelProvider.Shutdown(shutdownCtx)
		}()
	}

	// Connect to MongoDB with OpenTelemetry instrumentation
	ctxMongo, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	mongoOpts := options.Client().ApplyURI(cfg.MongoDB.URI)
	if cfg.Telemetry.Enabled {
		mongoOpts.SetMonitor(otelmongo.NewMonitor())
	}

	mongoClient, err := mongo.Connect(ctxMongo, mongoOpts)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer func() {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			log.Printf("Error disconnecting from MongoDB: %v", err)
		}
	}()

	if err := mongoClient.Ping(ctxMongo, nil); err != nil {
		log.Fatalf("Failed to ping MongoDB: %v", err)
	}
	log.Println("✓ MongoDB connected")

	mongoDB := mongoClient.Database(cfg.MongoDB.Database)

	// Connect to Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       0,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	log.Println("✓ Redis connected")

	// Remote sync backend
	remoteClient := remote.NewClient(remote.Config{
		BaseURL: cfg.Remote.BaseURL,
		APIKey:  cfg.Remote.APIKey,
	})

	// Push notifications for terminal sync failures (optional)
	var notifier domain.Notifier = notify.LogNotifier{}
	if cfg.PushEnabled() {
		firebaseApp, err := notify.InitFirebase(
			cfg.Firebase.ProjectID,
			cfg.Firebase.PrivateKey,
			cfg.Firebase.ClientEmail,
		)
		if err != nil {
			log.Fatalf("Failed to initialize Firebase: %v", err)
		}
		fcm, err := notify.NewFCMNotifier(ctx, firebaseApp, cfg.Firebase.DeviceToken)
		if err != nil {
			log.Fatalf("Failed to create FCM client: %v", err)
		}
		notifier = fcm
		log.Println("✓ Firebase push initialized")
	}

	// Initialize App using Server package
	app := server.NewApp(server.AppDependencies{
		Config:      cfg,
		MongoDB:     mongoDB,
		RedisClient: redisClient,
		Remote:      remoteClient,
		Notifier:    notifier,
	})

	// Resume or evict any session left over from the previous run
	if err := app.Sessions.Bootstrap(ctx, cfg.User.ID); err != nil {
		log.Fatalf("Failed to bootstrap session state: %v", err)
	}
	if session := app.Sessions.ActiveSession(); session != nil {
		log.Printf("✓ Resumed in-progress session %s (%s)", session.ID, session.RoutineName)
	}

	// Background sync drain
	syncCtx, stopSync := context.WithCancel(context.Background())
	defer stopSync()
	app.Processor.StartBackground(syncCtx, cfg.Sync.Interval)
	defer app.Processor.StopBackground()

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		log.Println("Shutting down gracefully...")
		app.Fiber.Shutdown()
	}()

	// Start server
	log.Printf("🚀 Server starting on port %s", cfg.Server.Port)
	if err := app.Fiber.Listen(":" + cfg.Server.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
