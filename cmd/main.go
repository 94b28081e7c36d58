package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/imsaurabhkr/EDU-RAG/api"
	"github.com/imsaurabhkr/EDU-RAG/api/handler"
	"github.com/imsaurabhkr/EDU-RAG/api/middleware"
	ragconfig "github.com/imsaurabhkr/EDU-RAG/config"
	"github.com/imsaurabhkr/EDU-RAG/internal/cache"
	"github.com/imsaurabhkr/EDU-RAG/internal/database"
	"github.com/imsaurabhkr/EDU-RAG/internal/document"
	"github.com/imsaurabhkr/EDU-RAG/internal/embedding"
	"github.com/imsaurabhkr/EDU-RAG/internal/llm"
	"github.com/imsaurabhkr/EDU-RAG/internal/repository"
	"github.com/imsaurabhkr/EDU-RAG/internal/services"
	"github.com/imsaurabhkr/EDU-RAG/internal/vectordb"
	"github.com/imsaurabhkr/EDU-RAG/pkg/storage"
)

func main() {
	// 命令行参数
	configFile := flag.String("config", "", "Path to config file")
	mode := flag.String("mode", "release", "Run mode (debug/release)")
	port := flag.Int("port", 0, "Server port (overrides config file)")
	flag.Parse()

	// 加载.env文件中的API密钥等环境变量，文件不存在时忽略
	_ = godotenv.Load()

	// 加载配置
	cfg, err := ragconfig.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}

	// 设置Gin模式
	gin.SetMode(*mode)

	// 初始化日志
	if cfg.Logging.File != "" {
		middleware.SetupFileLogging(cfg.Logging.File, cfg.Logging.MaxSizeMB, cfg.Logging.MaxBackups, cfg.Logging.MaxAgeDays)
	}
	logger := middleware.GetLogger()
	logger.Info("Starting EDU-RAG service...")

	// 初始化元数据数据库
	if err := database.Setup(&database.Config{
		Type: cfg.Database.Type,
		DSN:  cfg.Database.DSN,
	}, logger); err != nil {
		logger.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close()

	// 创建语料文件存储
	fileStorage, err := storage.NewStorage(storage.Config{
		Type:      cfg.Storage.Type,
		Path:      cfg.Storage.Path,
		Endpoint:  cfg.Storage.Endpoint,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		UseSSL:    cfg.Storage.UseSSL,
		Bucket:    cfg.Storage.Bucket,
	})
	if err != nil {
		logger.Fatalf("Failed to initialize storage: %v", err)
	}

	// 创建向量存储
	vectorPath := cfg.VectorDB.Path
	if cfg.VectorDB.Type == "mongo" {
		vectorPath = cfg.VectorDB.URI
	}
	store, err := vectordb.NewStore(vectordb.Config{
		Type:         cfg.VectorDB.Type,
		Path:         vectorPath,
		Database:     cfg.VectorDB.Database,
		IndexName:    cfg.VectorDB.Index,
		Dimension:    cfg.VectorDB.Dim,
		DistanceType: vectordb.DistanceType(cfg.VectorDB.Distance),
	})
	if err != nil {
		logger.Fatalf("Failed to initialize vector store: %v", err)
	}
	defer store.Close()

	// 创建嵌入客户端
	embedder, err := embedding.NewClient("gemini",
		embedding.WithAPIKey(cfg.Embed.APIKey),
		embedding.WithBaseURL(cfg.Embed.Endpoint),
		embedding.WithModel(cfg.Embed.Model),
		embedding.WithDimensions(cfg.Embed.Dimensions),
		embedding.WithBatchSize(cfg.Embed.BatchSize),
	)
	if err != nil {
		logger.Fatalf("Failed to initialize embedding client: %v", err)
	}

	// 创建大语言模型客户端
	llmClient, err := llm.NewClient("gemini",
		llm.WithAPIKey(cfg.LLM.APIKey),
		llm.WithBaseURL(cfg.LLM.Endpoint),
		llm.WithModel(cfg.LLM.Model),
		llm.WithMaxTokens(cfg.LLM.MaxTokens),
		llm.WithTemperature(cfg.LLM.Temperature),
	)
	if err != nil {
		logger.Fatalf("Failed to initialize LLM client: %v", err)
	}

	// 创建问答缓存
	qaCache, err := cache.NewCache(cache.Config{
		Type:          cfg.Cache.Type,
		RedisAddr:     cfg.Cache.Address,
		RedisPassword: cfg.Cache.Password,
		RedisDB:       cfg.Cache.DB,
		DefaultTTL:    time.Duration(cfg.Cache.TTL) * time.Second,
	})
	if err != nil {
		logger.Fatalf("Failed to initialize cache: %v", err)
	}

	// 创建文本分块器
	splitter := document.NewTextSplitter(document.SplitterConfig{
		ChunkSize:    cfg.Document.ChunkSize,
		ChunkOverlap: cfg.Document.ChunkOverlap,
	})

	// 创建RAG服务
	ragService := llm.NewRAG(llmClient,
		llm.WithPolicy(llm.GroundingPolicy(cfg.QA.Policy)),
		llm.WithRAGMaxTokens(cfg.LLM.MaxTokens),
		llm.WithRAGTemperature(cfg.LLM.Temperature),
	)

	// 初始化仓储和业务服务
	corpusRepo := repository.NewCorpusRepository()
	chatRepo := repository.NewChatRepository()

	ingestService := services.NewIngestService(splitter, embedder, store,
		services.WithCorpusRepository(corpusRepo),
		services.WithStorage(fileStorage),
		services.WithBatchSize(cfg.Embed.BatchSize),
		services.WithLogger(logger),
	)

	qaService := services.NewQAService(embedder, store, ragService, qaCache,
		services.WithIngester(ingestService),
		services.WithSearchLimit(cfg.Search.Limit),
		services.WithMinScore(cfg.Search.MinScore),
		services.WithCacheTTL(time.Duration(cfg.Cache.TTL)*time.Second),
		services.WithQALogger(logger),
	)

	chatService := services.NewChatService(chatRepo, services.WithChatLogger(logger))
	collectionService := services.NewCollectionService(store, corpusRepo, qaCache, logger)

	// 初始化API处理器和路由
	r := api.SetupRouter(
		handler.NewQAHandler(qaService, chatService),
		handler.NewCollectionHandler(collectionService, ingestService),
		handler.NewChatHandler(chatService),
	)

	// 启动HTTP服务器
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		logger.WithFields(logrus.Fields{
			"addr":     srv.Addr,
			"vectordb": cfg.VectorDB.Type,
			"policy":   cfg.QA.Policy,
		}).Info("Server is running")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// 等待终止信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	// 优雅关闭服务器
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatalf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited")
}
