package vectordb

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore 内存向量存储实现
// 所有集合保存在进程内，配置了快照路径时在每次写操作后
// 落盘为JSON文件，重启后可以恢复，是本地持久化索引的实现
type MemoryStore struct {
	mu          sync.RWMutex
	dimension   int                  // 向量维度
	distType    DistanceType         // 距离计算类型
	path        string               // 快照文件路径，空表示纯内存运行
	collections map[string][]Chunk   // 集合名到分块序列（插入顺序）的映射
	closed      bool
}

// snapshot 快照文件的序列化结构
type snapshot struct {
	Dimension   int                `json:"dimension"`
	Collections map[string][]Chunk `json:"collections"`
}

// NewMemoryStore 创建内存向量存储
func NewMemoryStore(config Config) (Store, error) {
	if config.Dimension <= 0 {
		return nil, fmt.Errorf("vector dimension must be positive")
	}

	distType := config.DistanceType
	if distType != Cosine && distType != DotProduct && distType != Euclidean {
		distType = Cosine // 默认使用余弦距离
	}

	s := &MemoryStore{
		dimension:   config.Dimension,
		distType:    distType,
		path:        config.Path,
		collections: make(map[string][]Chunk),
	}

	// 有快照文件时恢复之前持久化的集合
	if s.path != "" {
		if err := s.load(); err != nil {
			return nil, fmt.Errorf("failed to load vector snapshot: %w", err)
		}
	}

	return s, nil
}

// GetOrCreate 获取或创建命名集合
// 幂等：已存在的集合原样返回，已有分块不受影响
func (s *MemoryStore) GetOrCreate(ctx context.Context, name string) (*Collection, error) {
	if name == "" {
		return nil, fmt.Errorf("collection name cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrStoreClosed
	}

	if _, exists := s.collections[name]; !exists {
		s.collections[name] = []Chunk{}
		if err := s.saveLocked(); err != nil {
			return nil, err
		}
	}

	return NewCollection(s, name), nil
}

// Add 向集合追加分块
// ID为空的分块会被分配一个全局唯一ID；重复ID报错而不是覆盖
func (s *MemoryStore) Add(ctx context.Context, collection string, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}

	existing := s.collections[collection]
	seen := make(map[string]bool, len(existing))
	for _, c := range existing {
		seen[c.ID] = true
	}

	seq := int64(len(existing))
	appended := existing
	for i := range chunks {
		chunk := chunks[i]

		if err := ValidateVector(chunk.Vector, s.dimension); err != nil {
			return fmt.Errorf("invalid vector for chunk %q: %w", chunk.ID, err)
		}
		if chunk.ID == "" {
			chunk.ID = uuid.NewString()
		}
		if seen[chunk.ID] {
			return fmt.Errorf("%w: %s", ErrDuplicateID, chunk.ID)
		}
		seen[chunk.ID] = true

		if chunk.CreatedAt.IsZero() {
			chunk.CreatedAt = time.Now()
		}
		// 余弦距离下预先归一化，查询时只需要算点积
		if s.distType == Cosine {
			chunk.Vector = normalizeVector(chunk.Vector)
		}
		chunk.Seq = seq
		seq++

		appended = append(appended, chunk)
	}

	s.collections[collection] = appended
	return s.saveLocked()
}

// Query 在集合内做相似度搜索
// 从未写入过的集合返回空结果，管线据此走"无上下文"回答路径
func (s *MemoryStore) Query(ctx context.Context, collection string, vector []float32, limit int) ([]SearchResult, error) {
	if err := ValidateVector(vector, s.dimension); err != nil {
		return nil, err
	}
	if s.distType == Cosine {
		vector = normalizeVector(vector)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}

	chunks := s.collections[collection]
	if len(chunks) == 0 {
		return []SearchResult{}, nil
	}

	results := make([]SearchResult, 0, len(chunks))
	for _, chunk := range chunks {
		dist, err := ComputeDistance(vector, chunk.Vector, s.distType)
		if err != nil {
			return nil, fmt.Errorf("error computing distance: %w", err)
		}
		results = append(results, SearchResult{
			Chunk:    chunk,
			Score:    DistanceToScore(dist, s.distType),
			Distance: dist,
		})
	}

	SortSearchResults(results)

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Count 返回集合内的分块总数
func (s *MemoryStore) Count(ctx context.Context, collection string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, ErrStoreClosed
	}
	return len(s.collections[collection]), nil
}

// DeleteCollection 删除整个集合
// 集合不存在时静默返回，管理脚本可以重复执行
func (s *MemoryStore) DeleteCollection(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}

	if _, exists := s.collections[name]; !exists {
		return nil
	}
	delete(s.collections, name)
	return s.saveLocked()
}

// Dimensions 返回向量维度
func (s *MemoryStore) Dimensions() int {
	return s.dimension
}

// Close 关闭存储
// 配置了快照路径时做最后一次落盘
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	err := s.saveLocked()
	s.closed = true
	return err
}

// load 从快照文件恢复集合
func (s *MemoryStore) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // 首次运行，没有快照
		}
		return err
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("corrupt snapshot file %s: %v", s.path, err)
	}
	if snap.Dimension != s.dimension {
		return fmt.Errorf("%w: snapshot has dimension %d, store configured with %d",
			ErrInvalidDimension, snap.Dimension, s.dimension)
	}

	if snap.Collections != nil {
		s.collections = snap.Collections
	}
	return nil
}

// saveLocked 将当前状态写入快照文件
// 先写临时文件再重命名，避免写一半的快照
// 调用方必须持有写锁
func (s *MemoryStore) saveLocked() error {
	if s.path == "" {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return err
	}

	data, err := json.Marshal(snapshot{
		Dimension:   s.dimension,
		Collections: s.collections,
	})
	if err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

// 在包初始化时注册内存存储
func init() {
	RegisterStore("memory", NewMemoryStore)
}
