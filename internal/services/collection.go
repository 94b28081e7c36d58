package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/imsaurabhkr/EDU-RAG/internal/cache"
	"github.com/imsaurabhkr/EDU-RAG/internal/models"
	"github.com/imsaurabhkr/EDU-RAG/internal/repository"
	"github.com/imsaurabhkr/EDU-RAG/internal/vectordb"
)

// CollectionService 集合管理服务
// 负责命名集合的查询和删除，保持向量索引与语料元数据一致
type CollectionService struct {
	store  vectordb.Store              // 向量存储
	repo   repository.CorpusRepository // 语料元数据存储
	cache  cache.Cache                 // 问答缓存
	logger *logrus.Logger              // 日志记录器
}

// NewCollectionService 创建集合管理服务
func NewCollectionService(store vectordb.Store, repo repository.CorpusRepository, qaCache cache.Cache, logger *logrus.Logger) *CollectionService {
	if logger == nil {
		logger = logrus.New()
	}
	return &CollectionService{
		store:  store,
		repo:   repo,
		cache:  qaCache,
		logger: logger,
	}
}

// CollectionInfo 集合概要信息
type CollectionInfo struct {
	Name       string               `json:"name"`        // 集合名
	ChunkCount int                  `json:"chunk_count"` // 分块总数
	Files      []*models.CorpusFile `json:"files"`       // 集合内的语料文件
}

// Describe 返回集合的分块数量和语料文件列表
func (s *CollectionService) Describe(ctx context.Context, name string) (*CollectionInfo, error) {
	if name == "" {
		return nil, errors.New("collection name cannot be empty")
	}

	count, err := s.store.Count(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to count collection chunks: %w", err)
	}

	info := &CollectionInfo{
		Name:       name,
		ChunkCount: count,
	}

	if s.repo != nil {
		files, _, err := s.repo.ListByCollection(name, 0, 100)
		if err != nil {
			s.logger.WithError(err).Warn("Failed to list corpus files")
		} else {
			info.Files = files
		}
	}

	return info, nil
}

// Delete 删除集合的向量数据和语料元数据
// 集合不存在时同样返回成功，方便管理脚本重复执行
func (s *CollectionService) Delete(ctx context.Context, name string) error {
	if name == "" {
		return errors.New("collection name cannot be empty")
	}

	if err := s.store.DeleteCollection(ctx, name); err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}

	if s.repo != nil {
		if err := s.repo.DeleteByCollection(name); err != nil {
			s.logger.WithError(err).Warn("Failed to delete corpus file metadata")
		}
	}

	// 集合没了，针对它缓存的回答也全部失效
	if s.cache != nil {
		if err := s.cache.Clear(ctx); err != nil {
			s.logger.WithError(err).Warn("Failed to clear answer cache")
		}
	}

	s.logger.WithField("collection", name).Info("Collection deleted")
	return nil
}
