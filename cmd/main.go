package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"docchat-backend/internal/ai"
	"docchat-backend/internal/config"
	"docchat-backend/internal/logger"
	"docchat-backend/internal/telemetry"
	"docchat-backend/internal/vectorstore"
	"docchat-backend/middleware"
	"docchat-backend/routes"
	"docchat-backend/services"
	"docchat-backend/utils"
)

func main() {
	// Load configuration; an invalid configuration must never serve traffic.
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger.InitLogger(cfg)

	if cfg.TracingEnabled {
		shutdownTracer, err := telemetry.InitTracer("docchat-backend", cfg.OTLPEndpoint)
		if err != nil {
			log.Fatal("Failed to init tracer:", err)
		}
		defer shutdownTracer()
	}

	// Connect to MongoDB
	mongoClient, err := config.ConnectMongoDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	defer func() {
		ctx, cancel := utils.WithTimeout(context.Background())
		defer cancel()
		mongoClient.Disconnect(ctx)
	}()
	db := mongoClient.Database(cfg.DBName)

	// Connect to Redis (rate limiting + background ingestion queue)
	redisClient, err := config.NewRedisClient(cfg)
	if err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}
	defer redisClient.Close()

	// Gemini client serves both embeddings and generation.
	geminiClient, err := ai.NewGeminiClient(cfg)
	if err != nil {
		log.Fatal("Failed to initialize Gemini client:", err)
	}
	defer geminiClient.Close()

	// Vector index: durable in Mongo, queried in process.
	index := vectorstore.NewIndex(vectorstore.NewMongoPersistence(db))
	{
		ctx, cancel := utils.WithLongTimeout(context.Background())
		err := index.Load(ctx)
		cancel()
		if err != nil {
			log.Fatal("Failed to load vector index:", err)
		}
	}
	logger.Info("Vector index loaded", "entries", index.Size())

	// Reload the in-memory index whenever the worker finishes an ingest,
	// so re-ingestion takes effect without a restart.
	reloadCtx, stopReload := context.WithCancel(context.Background())
	defer stopReload()
	go services.NewIndexReloadListener(redisClient, index, 30*time.Second).Run(reloadCtx)

	chunker, err := services.NewChunker(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		log.Fatal("Invalid chunking configuration:", err)
	}
	ingestor := services.NewIngestor(chunker, geminiClient, index, cfg.MaxRetries, cfg.EmbedTimeout)

	// First boot: ingest the configured knowledge PDF if the index is empty.
	if index.Size() == 0 {
		if _, err := os.Stat(cfg.KnowledgePDFPath); err == nil {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			chunks, err := ingestor.IngestPDF(ctx, cfg.KnowledgePDFPath, false)
			cancel()
			if err != nil {
				log.Fatal("Failed to ingest knowledge PDF:", err)
			}
			logger.Info("Startup ingestion complete", "path", cfg.KnowledgePDFPath, "chunks", chunks)
		} else {
			logger.Warn("Knowledge PDF not found; the chatbot has no context yet", "path", cfg.KnowledgePDFPath)
		}
	}

	// Pipeline dependencies are explicit: no hidden singletons.
	sessions := services.NewSessionStore(cfg.SessionTTL)
	retriever := services.NewRetriever(geminiClient, index, cfg.TopK, cfg.RelevanceThreshold,
		cfg.MaxRetries, cfg.EmbedTimeout, cfg.IndexQueryTimeout)
	assembler := services.NewContextAssembler(cfg.MaxPromptChars, cfg.HistoryTurns, cfg.EmptyContextPolicy)
	generator := services.NewAnswerGenerator(geminiClient, cfg.MaxRetries, cfg.GenerateTimeout)
	archive := services.NewMongoMessageArchive(db)
	pipeline := services.NewChatPipeline(retriever, assembler, generator, sessions, archive)

	notifications := services.NewNotificationService(db, cfg.FCMServerKey, cfg.FCMEndpoint)

	cronService := services.NewCronService(sessions)
	if err := cronService.Start(); err != nil {
		log.Fatal("Failed to start cron service:", err)
	}
	defer cronService.Stop()

	// Asynq client for enqueuing re-ingestion tasks.
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer asynqClient.Close()

	// Initialize Gin router
	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.RateLimitMiddleware(redisClient, cfg))
	if cfg.TracingEnabled {
		router.Use(otelgin.Middleware("docchat-backend"))
	}

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"}
	corsConfig.AllowCredentials = true
	router.Use(cors.New(corsConfig))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":        "healthy",
			"index_entries": index.Size(),
			"timestamp":     time.Now(),
		})
	})

	// Setup routes
	routes.SetupChatRoutes(router, pipeline)
	routes.SetupIngestRoutes(router, cfg, asynqClient)
	routes.SetupNotificationRoutes(router, notifications)

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := utils.WithLongTimeout(context.Background())
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	logger.Info("Server exited")
}
