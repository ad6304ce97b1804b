package server

import (
	"log"
	"time"

	"github.com/arushdixit/personal-workout-planner-sub000/internal/config"
	"github.com/arushdixit/personal-workout-planner-sub000/internal/domain"
	"github.com/arushdixit/personal-workout-planner-sub000/internal/handler"
	"github.com/arushdixit/personal-workout-planner-sub000/internal/middleware"
	"github.com/arushdixit/personal-workout-planner-sub000/internal/notify"
	"github.com/arushdixit/personal-workout-planner-sub000/internal/repository"
	"github.com/arushdixit/personal-workout-planner-sub000/internal/service"
	"github.com/arushdixit/personal-workout-planner-sub000/internal/telemetry"
	"github.com/arushdixit/personal-workout-planner-sub000/internal/timer"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

const idempotencyTTL = 10 * time.Minute

// AppDependencies holds the dependencies required to start the application
type AppDependencies struct {
	Config      *config.Config
	MongoDB     *mongo.Database
	RedisClient *redis.Client
	Remote      service.RemoteClient
	Notifier    domain.Notifier
}

// App bundles the Fiber application with the long-lived services the caller
// drives at startup (bootstrap) and shutdown.
type App struct {
	Fiber     *fiber.App
	Sessions  *service.SessionService
	Processor *service.SyncProcessor
	RestTimer *timer.Engine
}

// NewApp creates and configures the Fiber application with the given dependencies
func NewApp(deps AppDependencies) *App {
	// Initialize repositories
	sessionRepo := repository.NewMongoWorkoutSessionRepository(deps.MongoDB)
	routineRepo := repository.NewMongoRoutineRepository(deps.MongoDB)
	userRepo := repository.NewMongoUserRepository(deps.MongoDB)
	queueRepo := repository.NewMongoSyncQueueRepository(deps.MongoDB)
	navRepo := repository.NewRedisNavStateRepository(deps.RedisClient)

	// Rest timer engine. Server-side the chime is a log line; clients render
	// their own audio off the published state.
	restTimer := timer.NewEngine(timer.Options{
		WakeLock: timer.NopWakeLock{},
		Chime:    timer.LogChime{},
	})

	// Initialize services
	syncQueue := service.NewSyncQueue(queueRepo)
	notifier := deps.Notifier
	if notifier == nil {
		notifier = notify.LogNotifier{}
	}
	processor := service.NewSyncProcessor(syncQueue, sessionRepo, deps.Remote, notifier)
	sessionService := service.NewSessionService(sessionRepo, routineRepo, userRepo, syncQueue, restTimer, navRepo)

	// Initialize handlers
	sessionHandler := handler.NewSessionHandler(sessionService, restTimer, sessionRepo)
	routineHandler := handler.NewRoutineHandler(routineRepo)
	syncHandler := handler.NewSyncHandler(syncQueue, processor)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Personal Workout Planner API",
		ErrorHandler: customErrorHandler,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New())
	if deps.Config.Telemetry.Enabled {
		app.Use(telemetry.FiberMiddleware())
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Correlation-ID",
		AllowMethods: "GET, POST, PUT, PATCH, DELETE, OPTIONS",
	}))

	// Health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"service": "workout-planner",
		})
	})

	// API v1 routes, all authenticated
	v1 := app.Group("/v1")
	v1.Use(middleware.VerifyToken(deps.Config.JWT.Secret))
	v1.Use(middleware.Idempotency(deps.RedisClient, idempotencyTTL))

	// Routines
	routines := v1.Group("/routines")
	routines.Get("/", routineHandler.ListRoutines)
	routines.Post("/", routineHandler.CreateRoutine)
	routines.Get("/:id", routineHandler.GetRoutine)
	routines.Put("/:id", routineHandler.UpdateRoutine)
	routines.Delete("/:id", routineHandler.DeleteRoutine)

	// Workout sessions
	sessions := v1.Group("/sessions")
	sessions.Get("/", sessionHandler.ListHistory)
	sessions.Post("/", sessionHandler.StartSession)
	sessions.Get("/active", sessionHandler.GetActive)
	sessions.Post("/active/end", sessionHandler.EndSession)
	sessions.Post("/active/abandon", sessionHandler.AbandonSession)
	sessions.Put("/active/nav", sessionHandler.UpdateNav)
	sessions.Patch("/active/exercises/:index/sets/:set_id", sessionHandler.CompleteSet)
	sessions.Post("/active/exercises/:index/sets", sessionHandler.AddSet)
	sessions.Delete("/active/exercises/:index/sets", sessionHandler.RemoveSet)
	sessions.Put("/active/exercises/:index/note", sessionHandler.UpdateNote)

	// Rest timer
	timerGroup := v1.Group("/timer")
	timerGroup.Get("/", sessionHandler.GetTimer)
	timerGroup.Post("/skip", sessionHandler.SkipTimer)
	timerGroup.Post("/adjust", sessionHandler.AdjustTimer)
	timerGroup.Post("/resync", sessionHandler.ResyncTimer)
	timerGroup.Post("/minimize", sessionHandler.MinimizeTimer)
	timerGroup.Post("/restore", sessionHandler.RestoreTimer)

	// Sync queue operator surface
	sync := v1.Group("/sync")
	sync.Get("/queue", syncHandler.GetQueue)
	sync.Post("/drain", syncHandler.TriggerDrain)
	sync.Delete("/failed", syncHandler.ClearFailed)

	return &App{
		Fiber:     app,
		Sessions:  sessionService,
		Processor: processor,
		RestTimer: restTimer,
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}
	log.Printf("Error: %v", err)
	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}
