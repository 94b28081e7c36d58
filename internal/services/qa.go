package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/imsaurabhkr/EDU-RAG/internal/cache"
	"github.com/imsaurabhkr/EDU-RAG/internal/embedding"
	"github.com/imsaurabhkr/EDU-RAG/internal/llm"
	"github.com/imsaurabhkr/EDU-RAG/internal/models"
	"github.com/imsaurabhkr/EDU-RAG/internal/vectordb"
)

// QAResult 问答结果
type QAResult struct {
	Answer  string          `json:"answer"`            // 生成的回答
	Sources []models.Source `json:"sources,omitempty"` // 引用的分块
	Cached  bool            `json:"cached"`            // 是否命中缓存
}

// QAService 问答服务
// 负责协调语料入库、向量检索和大模型生成答案
type QAService struct {
	embedder    embedding.Client // 嵌入模型客户端
	store       vectordb.Store   // 向量存储
	rag         *llm.RAGService  // RAG服务
	ingester    *IngestService   // 语料入库服务
	cache       cache.Cache      // 缓存
	cacheTTL    time.Duration    // 缓存有效期
	searchLimit int              // 检索结果数量
	minScore    float32          // 最低相似度分数，0表示不过滤
	logger      *logrus.Logger   // 日志记录器
}

// QAOption 问答服务配置选项
type QAOption func(*QAService)

// NewQAService 创建问答服务实例
func NewQAService(
	embedder embedding.Client,
	store vectordb.Store,
	rag *llm.RAGService,
	qaCache cache.Cache,
	opts ...QAOption,
) *QAService {
	service := &QAService{
		embedder:    embedder,
		store:       store,
		rag:         rag,
		cache:       qaCache,
		cacheTTL:    time.Hour,
		searchLimit: 3,
		logger:      logrus.New(),
	}

	for _, opt := range opts {
		opt(service)
	}

	return service
}

// WithCacheTTL 设置缓存时间
func WithCacheTTL(ttl time.Duration) QAOption {
	return func(s *QAService) {
		s.cacheTTL = ttl
	}
}

// WithSearchLimit 设置检索结果数量
func WithSearchLimit(limit int) QAOption {
	return func(s *QAService) {
		if limit > 0 {
			s.searchLimit = limit
		}
	}
}

// WithMinScore 设置最低相似度分数
func WithMinScore(score float32) QAOption {
	return func(s *QAService) {
		s.minScore = score
	}
}

// WithIngester 设置语料入库服务
func WithIngester(ingester *IngestService) QAOption {
	return func(s *QAService) {
		s.ingester = ingester
	}
}

// WithQALogger 设置日志记录器
func WithQALogger(logger *logrus.Logger) QAOption {
	return func(s *QAService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Answer 基于集合内已有语料回答问题
func (s *QAService) Answer(ctx context.Context, collection string, question string) (*QAResult, error) {
	if collection == "" {
		return nil, fmt.Errorf("collection name cannot be empty")
	}
	if question == "" {
		return nil, fmt.Errorf("question cannot be empty")
	}

	// 1. 尝试从缓存获取
	cacheKey := cache.AnswerKey(collection, question)
	if cached, found, err := s.cache.Get(ctx, cacheKey); err == nil && found {
		var result QAResult
		if err := json.Unmarshal([]byte(cached), &result); err == nil {
			result.Cached = true
			return &result, nil
		}
		// 缓存内容损坏时当作未命中，走正常流程覆盖
		s.logger.WithField("cache_key", cacheKey).Warn("Failed to unmarshal cached answer")
	}

	// 2. 将问题转换为向量
	vector, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embedding: %w", err)
	}

	// 3. 检索相关分块
	results, err := s.store.Query(ctx, collection, vector, s.searchLimit)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	if s.minScore > 0 {
		filtered := results[:0]
		for _, r := range results {
			if r.Score >= s.minScore {
				filtered = append(filtered, r)
			}
		}
		results = filtered
	}

	// 集合为空或没有相关分块时不调用模型，直接走无上下文回答
	if len(results) == 0 && s.rag.Policy() == llm.GroundingStrict {
		result := &QAResult{Answer: llm.NoContextAnswer}
		s.cacheResult(ctx, cacheKey, result)
		return result, nil
	}

	// 4. 组装上下文并生成回答
	contexts := make([]string, len(results))
	sources := make([]models.Source, len(results))
	for i, r := range results {
		contexts[i] = r.Chunk.Text
		sources[i] = models.Source{
			ChunkID:  r.Chunk.ID,
			FileName: r.Chunk.FileName,
			Position: r.Chunk.Position,
			Text:     r.Chunk.Text,
			Score:    r.Score,
		}
	}

	ragResponse, err := s.rag.Answer(ctx, question, contexts)
	if err != nil {
		return nil, fmt.Errorf("failed to generate answer: %w", err)
	}

	result := &QAResult{
		Answer:  ragResponse.Answer,
		Sources: sources,
	}

	// 5. 缓存结果
	s.cacheResult(ctx, cacheKey, result)

	return result, nil
}

// AnswerWithCorpus 先把语料写入集合再回答问题
// corpusPath可以是文件或目录；为空时退化为纯查询
func (s *QAService) AnswerWithCorpus(ctx context.Context, collection string, question string, corpusPath string) (*QAResult, error) {
	if corpusPath != "" {
		if s.ingester == nil {
			return nil, fmt.Errorf("corpus ingestion not configured")
		}
		if _, err := s.ingester.IngestPath(ctx, collection, corpusPath); err != nil {
			return nil, fmt.Errorf("failed to ingest corpus: %w", err)
		}
		// 集合内容变了，该集合的缓存回答全部过期
		// 简单起见直接让本问题的缓存失效
		s.cache.Delete(ctx, cache.AnswerKey(collection, question))
	}

	return s.Answer(ctx, collection, question)
}

// ClearCache 清除问答缓存
func (s *QAService) ClearCache(ctx context.Context) error {
	return s.cache.Clear(ctx)
}

func (s *QAService) cacheResult(ctx context.Context, key string, result *QAResult) {
	data, err := json.Marshal(result)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to marshal answer for caching")
		return
	}
	if err := s.cache.Set(ctx, key, string(data), s.cacheTTL); err != nil {
		s.logger.WithError(err).Warn("Failed to cache answer")
	}
}
