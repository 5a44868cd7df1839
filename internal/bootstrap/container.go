package bootstrap

import (
	"context"
	"log"

	"ai-answer-engine-be/internal/config"
	"ai-answer-engine-be/internal/controller"
	"ai-answer-engine-be/internal/handler"
	"ai-answer-engine-be/internal/pkg/logger"
	"ai-answer-engine-be/internal/repository/implementation"
	"ai-answer-engine-be/internal/repository/memory"
	"ai-answer-engine-be/internal/service"
	"ai-answer-engine-be/internal/websocket"
	"ai-answer-engine-be/pkg/cache"
	"ai-answer-engine-be/pkg/embedding"
	"ai-answer-engine-be/pkg/fetch"
	"ai-answer-engine-be/pkg/followup"
	"ai-answer-engine-be/pkg/llm/factory"
	"ai-answer-engine-be/pkg/orchestrator"
	"ai-answer-engine-be/pkg/pool"
	"ai-answer-engine-be/pkg/rerank"
	"ai-answer-engine-be/pkg/resilience"
	"ai-answer-engine-be/pkg/searxng"

	pktNats "ai-answer-engine-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/panjf2000/ants/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	SearchController     controller.ISearchController
	AttachmentController controller.IAttachmentController
	HealthController     controller.IHealthController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	// WebSockets & Notification
	NotificationHandler *handler.NotificationHandler
	WebSocketHub        *websocket.Hub
}

// NewContainer wires the whole engine. db may be nil, in which case the
// attachment pipeline and file retrieval are disabled.
func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. Shared Infrastructure
	cacheManager := cache.NewManager()

	connPool := pool.NewConnectionPool(pool.ConnectionPoolConfig{
		MaxConnections: cfg.Search.PoolMaxSize,
	})

	errorTracker := resilience.NewErrorTracker()
	searchRetry := resilience.NewRetryHandler(resilience.RetryConfig{
		MaxAttempts: cfg.Search.RetryAttempts,
	}, errorTracker)
	searchBreaker := resilience.NewCircuitBreaker("searxng", resilience.CircuitBreakerConfig{})

	searchConfig := searxng.DefaultClientConfig(cfg.Search.SearxngURL)
	searchConfig.MaxResults = cfg.Search.MaxResults
	searchClient := searxng.NewClient(
		searchConfig,
		cacheManager.Region(cache.RegionSearchResults),
		connPool,
		searchRetry,
		searchBreaker,
	)

	// 4. AI Providers
	var embeddingProvider embedding.EmbeddingProvider
	if cfg.Ai.EmbeddingProvider == "openai" {
		provider, err := embedding.NewOpenAIProvider(cfg.Ai.OpenAIBaseURL, cfg.Ai.OpenAIKey, "text-embedding-3-small")
		if err != nil {
			log.Fatalf("[FATAL] Failed to initialize Embedding Provider: %v", err)
		}
		embeddingProvider = provider
		log.Printf("[INFO] Using Embedding Provider: OPENAI")
	} else {
		embeddingProvider = embedding.NewOllamaProvider(
			cfg.Ai.OllamaBaseURL,
			cfg.Ai.OllamaEmbeddingModel,
		)
		log.Printf("[INFO] Using Embedding Provider: OLLAMA (%s)", cfg.Ai.OllamaEmbeddingModel)
	}
	embeddingProvider = embedding.NewCachedProvider(embeddingProvider, cacheManager.Region(cache.RegionEmbeddings))

	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.OllamaBaseURL,
		cfg.Ai.OpenAIBaseURL,
		cfg.Ai.OpenAIKey,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	// 5. External Messaging
	// NATS
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
	}

	// Redis
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
	}

	// WebSocket Hub
	wsLogger := logger.NewIsolatedLogger("logs/notification.log")
	wsHub := websocket.NewHub(rdb, wsLogger)
	go wsHub.Run()

	// 6. Attachment Pipeline (requires the database)
	var (
		fileSearcher         orchestrator.FileSearcher
		attachmentController controller.IAttachmentController
		consumerService      service.IConsumerService
	)
	if db != nil {
		attachmentRepo := implementation.NewAttachmentRepository(db)
		segmentRepo := implementation.NewAttachmentSegmentRepository(db)

		publisherService := service.NewPublisherService(cfg.Engine.IngestTopic, pubSub)
		consumerService = service.NewConsumerService(
			pubSub,
			cfg.Engine.IngestTopic,
			db,
			embeddingProvider,
			sysLogger,
		)

		attachmentService := service.NewAttachmentService(attachmentRepo, segmentRepo, publisherService, sysLogger)
		attachmentController = controller.NewAttachmentController(attachmentService)

		fileSearcher = service.NewFileSearchService(segmentRepo, embeddingProvider)
	} else {
		log.Printf("[WARN] No database configured, attachment search disabled")
	}

	// 7. Search Engine
	agentPool, err := ants.NewPool(cfg.Engine.MaxAgentWorker)
	if err != nil {
		log.Fatalf("[FATAL] Failed to create agent worker pool: %v", err)
	}

	reranker := rerank.NewReranker(embeddingProvider)
	followupGenerator := followup.NewGenerator(llmProvider)
	pageFetcher := fetch.NewFetcher(0)

	engine := orchestrator.NewOrchestrator(
		llmProvider,
		searchClient,
		reranker,
		followupGenerator,
		fileSearcher,
		pageFetcher,
		agentPool,
		sysLogger,
		orchestrator.RunConfig{
			RunDeadline: cfg.Engine.RunDeadline,
			EventBuffer: cfg.Engine.EventBuffer,
		},
	)

	runRepo := memory.NewRunRepository()
	prioritizer := pool.NewQueryPrioritizer(pool.PrioritizerWeights{})

	searchService := service.NewSearchService(
		engine,
		runRepo,
		prioritizer,
		natsPub,
		sysLogger,
		cfg.Search.PoolMaxSize,
	)

	// 8. Notification System
	notifService := service.NewNotificationService(natsSub, wsHub, wsLogger)
	if natsSub != nil {
		go notifService.Start()
	}

	notifHandler := handler.NewNotificationHandler(notifService, natsPub, wsHub, wsLogger)

	// 9. Controllers
	return &Container{
		NotificationHandler: notifHandler,
		WebSocketHub:        wsHub,

		SearchController:     controller.NewSearchController(searchService, sysLogger),
		AttachmentController: attachmentController,
		HealthController: controller.NewHealthController(
			searchClient,
			cacheManager,
			connPool,
			[]*resilience.CircuitBreaker{searchBreaker},
		),

		ConsumerService: consumerService,
	}
}
