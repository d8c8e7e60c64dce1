package server

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/mediadepot/api/internal/config"
	"github.com/mediadepot/api/internal/domain"
	"github.com/mediadepot/api/internal/handler"
	"github.com/mediadepot/api/internal/middleware"
	"github.com/mediadepot/api/internal/repository"
	"github.com/mediadepot/api/internal/service"
	"github.com/mediadepot/api/internal/telemetry"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

const idempotencyTTL = 10 * time.Minute

// AppDependencies holds the dependencies required to start the application.
// Storage and CDN are injected as interfaces so tests can swap in local
// backends without touching the wiring.
type AppDependencies struct {
	Config      *config.Config
	MongoDB     *mongo.Database
	RedisClient *redis.Client // optional, disables URL cache and idempotency when nil
	Storage     domain.StorageClient
	CDN         domain.CDNResolver
}

// NewApp creates and configures the Fiber application with the given dependencies
func NewApp(deps AppDependencies) *fiber.App {
	// Initialize repositories
	fileRepo := repository.NewMongoFileRepository(deps.MongoDB)

	var urlCache domain.URLCache
	if deps.RedisClient != nil {
		urlCache = repository.NewRedisURLCache(deps.RedisClient)
	} else {
		log.Println("Warning: redis not configured, URL cache and idempotency disabled")
	}

	// Initialize services
	transformer := service.NewImageTransformer()
	uploadService := service.NewUploadService(fileRepo, deps.Storage, deps.CDN, transformer, deps.Config.S3.KeyPrefix)
	deleteService := service.NewDeleteService(fileRepo, deps.Storage, deps.CDN, urlCache)
	resolveService := service.NewResolveService(fileRepo, deps.Storage, deps.CDN, urlCache)

	// Initialize handlers
	fileHandler := handler.NewFileHandler(uploadService, deleteService, resolveService)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "MediaDepot API",
		BodyLimit:    int(deps.Config.Server.MaxUploadSizeMB * 1024 * 1024),
		ErrorHandler: customErrorHandler,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(telemetry.FiberMiddleware())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Correlation-ID",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))

	// Health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"service": "mediadepot-api",
		})
	})

	// API v1 routes
	v1 := app.Group("/v1")

	files := v1.Group("/files")

	// Reads are public; resolution decides per category whether the URL
	// is a CDN link or a short-lived signed one.
	files.Get("/:id", fileHandler.Get)
	files.Get("/:id/content", fileHandler.GetContent)

	// Mutations require a bearer token and replay the same
	// X-Correlation-ID instead of ingesting twice.
	mutations := files.Group("")
	mutations.Use(middleware.VerifyToken(deps.Config.JWT.Secret))
	mutations.Use(middleware.AuthorizeRole(domain.RoleUploader, domain.RoleAdmin))
	if deps.RedisClient != nil {
		mutations.Use(middleware.IdempotencyMiddleware(deps.RedisClient, idempotencyTTL))
	}

	mutations.Post("/:category", fileHandler.Upload)
	mutations.Post("/:category/batch", fileHandler.UploadBatch)
	mutations.Delete("/:id", fileHandler.Delete)

	return app
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
