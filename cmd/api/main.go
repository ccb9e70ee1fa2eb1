package main

import (
	"log"
	"math/rand"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/vishal-grover-dev/iq-sub000/internal/adapter"
	"github.com/vishal-grover-dev/iq-sub000/internal/adapter/embedding"
	"github.com/vishal-grover-dev/iq-sub000/internal/adapter/genai"
	"github.com/vishal-grover-dev/iq-sub000/internal/cache"
	"github.com/vishal-grover-dev/iq-sub000/internal/config"
	"github.com/vishal-grover-dev/iq-sub000/internal/database"
	"github.com/vishal-grover-dev/iq-sub000/internal/handler"
	"github.com/vishal-grover-dev/iq-sub000/internal/logger"
	"github.com/vishal-grover-dev/iq-sub000/internal/middleware"
	"github.com/vishal-grover-dev/iq-sub000/internal/repository"
	"github.com/vishal-grover-dev/iq-sub000/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
)

// lockedSource makes a rand.Source safe for use across request goroutines.
type lockedSource struct {
	mu  sync.Mutex
	src rand.Source64
}

func (s *lockedSource) Int63() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src.Int63()
}

func (s *lockedSource) Uint64() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src.Uint64()
}

func (s *lockedSource) Seed(seed int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.src.Seed(seed)
}

// requestLogger is a middleware that logs HTTP requests
func requestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		path := c.Path()
		method := c.Method()

		err := c.Next()

		logger.Get().Info("HTTP Request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", c.Response().StatusCode()),
			zap.Duration("duration", time.Since(start)),
			zap.String("ip", c.IP()),
		)
		return err
	}
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Initialize(cfg.Logger); err != nil {
		panic(err)
	}
	appLogger := logger.Get()
	defer logger.Sync()

	db, err := database.NewSQLXPostgresDB(cfg.GetDSN())
	if err != nil {
		appLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedisClient(cfg.Redis)
	if err != nil {
		appLogger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	cacheAdapter := adapter.NewRedisCacheAdapter(redisClient)

	embeddingService, err := embedding.NewOpenAIEmbeddingService(cfg.OpenAI, cacheAdapter, cfg.CacheTTLs.Embedding)
	if err != nil {
		appLogger.Fatal("Failed to create embedding service", zap.Error(err))
	}

	generationService, err := genai.NewOpenAIGenerationService(cfg.OpenAI.APIKey, cfg.OpenAI.ChatModel, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to create generation service", zap.Error(err))
	}

	attemptRepo := repository.NewAttemptDatabaseAdapter(db)
	questionRepo := repository.NewQuestionDatabaseAdapter(db)

	seed := cfg.Selection.RandomSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(&lockedSource{src: rand.NewSource(seed).(rand.Source64)})

	bankQuery := service.NewBankQueryEngine(questionRepo, attemptRepo, cfg.Selection, appLogger)
	gate := service.NewSimilarityGate(questionRepo, cfg.Selection, appLogger)
	scorer := service.NewCandidateScorer(rng, cfg.Selection.TopKSelection, appLogger)
	executor := service.NewAssignmentExecutor(attemptRepo, questionRepo, cfg.Selection, appLogger)
	fallback := service.NewGenerationFallback(questionRepo, embeddingService, generationService, gate, cfg.Selection, rng, appLogger)

	selectionService := service.NewSelectionService(
		attemptRepo, generationService, bankQuery, gate, scorer, executor, fallback, appLogger,
	)

	attemptHandler := handler.NewAttemptHandler(selectionService)

	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		ErrorHandler: middleware.ErrorHandler(),
	})

	app.Use(recover.New())
	app.Use(cors.New())
	app.Use(requestLogger())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api", middleware.Protected(cfg.Auth.JWTSecret))
	api.Get("/attempts/:id", attemptHandler.GetAttempt)
	api.Get("/attempts/:id/next-question", attemptHandler.GetNextQuestion)

	go func() {
		addr := ":" + strconv.Itoa(cfg.Server.Port)
		appLogger.Info("Starting server", zap.String("addr", addr))
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server stopped", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server")
	if err := app.Shutdown(); err != nil {
		appLogger.Error("Server shutdown failed", zap.Error(err))
	}
}
