package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/imsaurabhkr/EDU-RAG/internal/document"
	"github.com/imsaurabhkr/EDU-RAG/internal/embedding"
	"github.com/imsaurabhkr/EDU-RAG/internal/models"
	"github.com/imsaurabhkr/EDU-RAG/internal/repository"
	"github.com/imsaurabhkr/EDU-RAG/internal/vectordb"
	"github.com/imsaurabhkr/EDU-RAG/pkg/storage"
)

// 并发生成嵌入的最大批次数
const maxEmbedConcurrency = 4

// IngestService 语料入库服务
// 负责协调文档解析、分段、嵌入和向量集合写入
type IngestService struct {
	storage   storage.Storage             // 文件存储服务
	splitter  document.Splitter           // 文本分段器
	embedder  embedding.Client            // 嵌入模型客户端
	store     vectordb.Store              // 向量存储
	repo      repository.CorpusRepository // 语料元数据存储
	batchSize int                         // 批处理大小
	timeout   time.Duration               // 处理超时时间
	logger    *logrus.Logger              // 日志记录器
}

// IngestOption 入库服务配置选项
type IngestOption func(*IngestService)

// NewIngestService 创建语料入库服务
func NewIngestService(
	splitter document.Splitter,
	embedder embedding.Client,
	store vectordb.Store,
	opts ...IngestOption,
) *IngestService {
	srv := &IngestService{
		splitter:  splitter,
		embedder:  embedder,
		store:     store,
		batchSize: 16,
		timeout:   time.Minute * 5,
		logger:    logrus.New(),
	}

	for _, opt := range opts {
		opt(srv)
	}

	return srv
}

// WithBatchSize 设置嵌入批处理大小
func WithBatchSize(size int) IngestOption {
	return func(s *IngestService) {
		if size > 0 {
			s.batchSize = size
		}
	}
}

// WithTimeout 设置处理超时时间
func WithTimeout(timeout time.Duration) IngestOption {
	return func(s *IngestService) {
		s.timeout = timeout
	}
}

// WithLogger 设置日志记录器
func WithLogger(logger *logrus.Logger) IngestOption {
	return func(s *IngestService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithCorpusRepository 设置语料元数据仓储
func WithCorpusRepository(repo repository.CorpusRepository) IngestOption {
	return func(s *IngestService) {
		s.repo = repo
	}
}

// WithStorage 设置上传文件存储
func WithStorage(store storage.Storage) IngestOption {
	return func(s *IngestService) {
		s.storage = store
	}
}

// IngestPath 将路径指向的语料写入集合
// path可以是单个文件，也可以是目录；目录时递归处理所有支持的文件
func (s *IngestService) IngestPath(ctx context.Context, collection string, path string) ([]*models.CorpusFile, error) {
	if collection == "" {
		return nil, errors.New("collection name cannot be empty")
	}
	if path == "" {
		return nil, errors.New("corpus path cannot be empty")
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to access corpus path: %w", err)
	}

	if !info.IsDir() {
		file, err := s.IngestFile(ctx, collection, path)
		if err != nil {
			return nil, err
		}
		return []*models.CorpusFile{file}, nil
	}

	var files []*models.CorpusFile
	err = filepath.Walk(path, func(p string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() || !isSupportedFile(p) {
			return nil
		}

		file, err := s.IngestFile(ctx, collection, p)
		if err != nil {
			return fmt.Errorf("failed to ingest %s: %w", p, err)
		}
		files = append(files, file)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("no supported documents found in %s", path)
	}

	return files, nil
}

// IngestFile 将单个文件解析、分段、向量化后写入集合
func (s *IngestService) IngestFile(ctx context.Context, collection string, filePath string) (*models.CorpusFile, error) {
	if collection == "" {
		return nil, errors.New("collection name cannot be empty")
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	s.logger.WithFields(logrus.Fields{
		"collection": collection,
		"file_path":  filePath,
	}).Info("Starting corpus ingestion")

	parser, err := document.ParserFactory(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create parser: %w", err)
	}

	content, err := parser.Parse(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}

	return s.ingestContent(ctx, collection, filepath.Base(filePath), filePath, content)
}

// IngestUpload 保存上传文件并写入集合
// 原始文件落到存储层，之后按存储路径解析内容
func (s *IngestService) IngestUpload(ctx context.Context, collection string, reader io.Reader, filename string) (*models.CorpusFile, error) {
	if s.storage == nil {
		return nil, errors.New("upload storage not configured")
	}
	if collection == "" {
		return nil, errors.New("collection name cannot be empty")
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	info, err := s.storage.Save(ctx, reader, filename)
	if err != nil {
		return nil, fmt.Errorf("failed to save uploaded file: %w", err)
	}

	stored, err := s.storage.Get(ctx, info.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to read back uploaded file: %w", err)
	}
	defer stored.Close()

	parser, err := document.ParserFactory(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create parser: %w", err)
	}

	content, err := parser.ParseReader(stored, filename)
	if err != nil {
		return nil, fmt.Errorf("failed to parse uploaded document: %w", err)
	}

	file, err := s.ingestContentWithID(ctx, info.ID, collection, filename, info.Path, content)
	if err != nil {
		return nil, err
	}
	file.FileSize = info.Size
	if s.repo != nil {
		if err := s.repo.Update(file); err != nil {
			s.logger.WithError(err).Warn("Failed to update corpus file metadata")
		}
	}
	return file, nil
}

// ingestContent 用新生成的文件ID入库
func (s *IngestService) ingestContent(ctx context.Context, collection, fileName, filePath, content string) (*models.CorpusFile, error) {
	return s.ingestContentWithID(ctx, uuid.New().String(), collection, fileName, filePath, content)
}

// ingestContentWithID 分段、向量化并写入集合的核心流程
func (s *IngestService) ingestContentWithID(ctx context.Context, fileID, collection, fileName, filePath, content string) (*models.CorpusFile, error) {
	segments, err := s.splitter.Split(content)
	if err != nil {
		return nil, fmt.Errorf("failed to split content: %w", err)
	}
	if len(segments) == 0 {
		return nil, fmt.Errorf("document %s produced no chunks", fileName)
	}

	vectors, err := s.embedSegments(ctx, segments)
	if err != nil {
		return nil, err
	}

	coll, err := s.store.GetOrCreate(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to get collection: %w", err)
	}

	chunks := make([]vectordb.Chunk, len(segments))
	for i, seg := range segments {
		chunks[i] = vectordb.Chunk{
			ID:        fmt.Sprintf("%s-%d", fileID, seg.Index),
			FileID:    fileID,
			FileName:  fileName,
			Position:  seg.Index,
			Offset:    seg.Offset,
			Text:      seg.Text,
			Vector:    vectors[i],
			CreatedAt: time.Now(),
		}
	}

	if err := coll.Add(ctx, chunks); err != nil {
		return nil, fmt.Errorf("failed to store vectors: %w", err)
	}

	file := &models.CorpusFile{
		ID:         fileID,
		Collection: collection,
		FileName:   fileName,
		FileType:   strings.TrimPrefix(filepath.Ext(fileName), "."),
		FilePath:   filePath,
		FileSize:   fileSizeOf(filePath),
		ChunkCount: len(chunks),
	}
	if s.repo != nil {
		if err := s.repo.Create(file); err != nil {
			s.logger.WithError(err).Warn("Failed to save corpus file metadata")
		}
	}

	s.logger.WithFields(logrus.Fields{
		"collection":  collection,
		"file_id":     fileID,
		"chunk_count": len(chunks),
	}).Info("Corpus ingestion completed")

	return file, nil
}

// embedSegments 分批并发生成段落嵌入，结果保持段落顺序
func (s *IngestService) embedSegments(ctx context.Context, segments []document.Chunk) ([][]float32, error) {
	vectors := make([][]float32, len(segments))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxEmbedConcurrency)

	for start := 0; start < len(segments); start += s.batchSize {
		end := start + s.batchSize
		if end > len(segments) {
			end = len(segments)
		}

		batchStart, batch := start, segments[start:end]
		g.Go(func() error {
			texts := make([]string, len(batch))
			for i, seg := range batch {
				texts[i] = seg.Text
			}

			embedded, err := s.embedder.EmbedBatch(ctx, texts)
			if err != nil {
				return fmt.Errorf("failed to generate embeddings: %w", err)
			}
			if len(embedded) != len(batch) {
				return fmt.Errorf("embedding count mismatch: got %d, want %d", len(embedded), len(batch))
			}

			for i, v := range embedded {
				vectors[batchStart+i] = v
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}

// isSupportedFile 判断文件是否为支持的语料格式
func isSupportedFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf", ".md", ".markdown", ".txt":
		return true
	default:
		return false
	}
}

func fileSizeOf(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}
