package main

import (
	"context"
	"log"

	"github.com/hibiken/asynq"

	"docchat-backend/internal/ai"
	"docchat-backend/internal/config"
	"docchat-backend/internal/logger"
	"docchat-backend/internal/queue"
	"docchat-backend/internal/vectorstore"
	"docchat-backend/services"
	"docchat-backend/utils"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger.InitLogger(cfg)

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

	// Initialize Gemini client
	geminiClient, err := ai.NewGeminiClient(cfg)
	if err != nil {
		log.Fatal("Failed to initialize Gemini client:", err)
	}
	defer geminiClient.Close()

	// The worker shares the durable index with the API process.
	index := vectorstore.NewIndex(vectorstore.NewMongoPersistence(db))
	{
		ctx, cancel := utils.WithLongTimeout(context.Background())
		err := index.Load(ctx)
		cancel()
		if err != nil {
			log.Fatal("Failed to load vector index:", err)
		}
	}

	chunker, err := services.NewChunker(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		log.Fatal("Invalid chunking configuration:", err)
	}
	ingestor := services.NewIngestor(chunker, geminiClient, index, cfg.MaxRetries, cfg.EmbedTimeout)

	// Serving processes learn about completed ingests over Redis pub/sub.
	redisClient, err := config.NewRedisClient(cfg)
	if err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}
	defer redisClient.Close()
	notifier := services.NewRedisReloadNotifier(redisClient)

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			// Ingestion tasks are heavyweight; one at a time is plenty
			// and keeps same-document ingests from overlapping.
			Concurrency: 1,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
			StrictPriority: true,
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error("Task failed", "type", task.Type(), "error", err)
			}),
		},
	)

	processor := queue.NewTaskProcessor(ingestor, notifier)

	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TaskIngestPDF, processor.ProcessIngestPDF)

	logger.Info("Starting ingestion worker", "redis", cfg.RedisURL)

	if err := server.Run(mux); err != nil {
		log.Fatal("Failed to start worker:", err)
	}
}
